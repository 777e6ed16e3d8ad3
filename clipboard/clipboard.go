// Package clipboard writes copied prompts to the system clipboard.
package clipboard

import (
	"fmt"

	"github.com/atotto/clipboard"

	"prompt_enhancer/generator"
)

// System is the OS clipboard (pbcopy, xclip/xsel/wl-copy, or the Windows API).
type System struct{}

// WriteText implements generator.Clipboard.
func (System) WriteText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard unsupported on this system")
	}
	return clipboard.WriteAll(text)
}

var _ generator.Clipboard = System{}
