package generator

import (
	"fmt"
	"time"
)

// Pass distinguishes the first rewrite of user input from a rewrite of prior output.
type Pass int

const (
	PassInitial Pass = iota
	PassRefine
)

func (p Pass) String() string {
	switch p {
	case PassRefine:
		return "refine"
	default:
		return "initial"
	}
}

// MarshalText lets Pass appear as a word in JSON snapshots.
func (p Pass) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pass) UnmarshalText(text []byte) error {
	switch string(text) {
	case "initial":
		*p = PassInitial
	case "refine":
		*p = PassRefine
	default:
		return fmt.Errorf("unknown pass %q", text)
	}
	return nil
}

// State is a snapshot of one enhancement session as the surfaces render it.
type State struct {
	Input      string    `json:"input"`
	Current    string    `json:"current"`
	Iterations int       `json:"iterations"`
	Pending    bool      `json:"pending"`
	LastError  string    `json:"last_error,omitempty"`
	Copied     bool      `json:"copied"`
	LastPass   Pass      `json:"last_pass"`
	Epoch      uint64    `json:"epoch"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasCurrent reports whether a pass has produced text that can be refined or copied.
func (s State) HasCurrent() bool {
	return s.Current != ""
}
