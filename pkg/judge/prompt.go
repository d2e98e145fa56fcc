package judge

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Makoq/evalsmith/pkg/domain"
)

const preferenceSystemPrompt = `You are an impartial judge comparing two candidate answers to the same task.
Judge only the content of the answers: ignore their order, length, and formatting.
Respond with a single JSON object and nothing else:
{"winner": "A" | "B" | "tie", "reasoning": "<one or two sentences>"}`

const gradeSystemPrompt = `You are an impartial grader scoring one candidate answer to a task.
Score 1.0 for a fully correct and complete answer, 0.0 for a useless one, and
intermediate values proportionally. Respond with a single JSON object and nothing else:
{"score": <number between 0 and 1>, "reasoning": "<one or two sentences>"}`

// preferencePrompt renders the pairwise judging prompt. Answers are labeled
// A and B in the order given, which the caller has already randomized when
// position bias matters.
func preferencePrompt(example *domain.Example, outputA, outputB map[string]any) (system, user string) {
	var sb strings.Builder
	sb.WriteString("## Task\n")
	sb.WriteString(renderJSON(example.Inputs))
	if len(example.Outputs) > 0 {
		sb.WriteString("\n\n## Reference answer\n")
		sb.WriteString(renderJSON(example.Outputs))
	}
	sb.WriteString("\n\n## Answer A\n")
	sb.WriteString(renderJSON(outputA))
	sb.WriteString("\n\n## Answer B\n")
	sb.WriteString(renderJSON(outputB))
	return preferenceSystemPrompt, sb.String()
}

// gradePrompt renders the single-answer grading prompt.
func gradePrompt(example *domain.Example, outputs map[string]any) (system, user string) {
	var sb strings.Builder
	sb.WriteString("## Task\n")
	sb.WriteString(renderJSON(example.Inputs))
	if len(example.Outputs) > 0 {
		sb.WriteString("\n\n## Reference answer\n")
		sb.WriteString(renderJSON(example.Outputs))
	}
	sb.WriteString("\n\n## Candidate answer\n")
	sb.WriteString(renderJSON(outputs))
	return gradeSystemPrompt, sb.String()
}

// renderJSON formats a payload for prompt inclusion. Marshalling failures
// fall back to Go formatting rather than aborting the judgment.
func renderJSON(v map[string]any) string {
	if len(v) == 0 {
		return "(none)"
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
