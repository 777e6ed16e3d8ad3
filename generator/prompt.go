package generator

import (
	"fmt"
	"strings"
)

// Prompt 表示发送给 LLM 的消息集合。
type Prompt struct {
	System string
	User   string
}

const enhanceSystem = "You rewrite prompts. Reply with the rewritten prompt only, with no preamble, notes or explanation."

var enhanceCriteria = []string{
	"Add more context and specific details",
	"Include any relevant parameters or constraints",
	"Make it more descriptive and clear",
	"Ensure it guides towards high-quality output",
}

const refineCriterion = "Further refine and expand upon the existing enhancements"

// BuildEnhancePrompt 生成改写提示词；refinement pass 追加第 5 条要求。
func BuildEnhancePrompt(base string, pass Pass) Prompt {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Given this prompt: \"%s\"\n", base))
	sb.WriteString("Please enhance it to be more detailed and specific, considering:\n")
	criteria := enhanceCriteria
	if pass == PassRefine {
		criteria = append(criteria[:len(criteria):len(criteria)], refineCriterion)
	}
	for i, c := range criteria {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, c))
	}
	sb.WriteString("\nProvide only the enhanced prompt without any explanations.")

	return Prompt{
		System: enhanceSystem,
		User:   sb.String(),
	}
}
