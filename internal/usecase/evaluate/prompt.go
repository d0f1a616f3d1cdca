package evaluate

import (
	"fmt"
	"strings"

	"github.com/prepcoach/prepcoach/internal/domain"
)

// emptyTranscriptPlaceholder stands in for a silent recording so the
// judge scores communication as absent instead of choking on an empty
// section.
const emptyTranscriptPlaceholder = "[No verbal explanation provided]"

// buildJudgePrompt assembles the structured evaluation request for a
// coding submission. Fully deterministic: same inputs, same prompt, so
// the pipeline stays testable without the oracle.
func buildJudgePrompt(q *domain.Question, userCode, transcript string) string {
	jc := q.JudgeContext
	if transcript == "" {
		transcript = emptyTranscriptPlaceholder
	}

	var b strings.Builder
	b.WriteString(`You are a Senior Technical Interviewer evaluating a coding interview submission.

EVALUATION PROTOCOL:
1. Compare the user's code against the optimal solution
2. Check if the explanation (transcript) mentions time/space complexity
3. Assess code correctness, efficiency, and communication quality
4. If the transcript is empty, score communication as 0

QUESTION CONTEXT:
<question>
`)
	b.WriteString(q.SearchText)
	b.WriteString("\n</question>\n\nOPTIMAL SOLUTION:\n<gold_standard>\n")
	b.WriteString(jc.OptimalSolutionCode)
	fmt.Fprintf(&b, "\n\nTime Complexity: %s\nSpace Complexity: %s\n", jc.TimeComplexity, jc.SpaceComplexity)

	b.WriteString("\nKey Insights:\n")
	writeBullets(&b, jc.KeyInsights)
	b.WriteString("\nEdge Cases to Consider:\n")
	writeBullets(&b, jc.EdgeCases)

	b.WriteString("</gold_standard>\n\nUSER SUBMISSION:\n<user_code>\n")
	b.WriteString(userCode)
	b.WriteString("\n</user_code>\n\n<transcript>\n")
	b.WriteString(transcript)
	b.WriteString("\n</transcript>\n")

	b.WriteString(`
SCORING RUBRIC:
- Correctness (0-40): Does the code solve the problem? Are edge cases handled?
- Efficiency (0-30): Is the time/space complexity optimal?
- Communication (0-30): Did they explain their approach, complexity, and trade-offs?

OUTPUT FORMAT (JSON only, no markdown):
{
  "score": <number 0-100>,
  "breakdown": {
    "correctness": <number 0-40>,
    "efficiency": <number 0-30>,
    "communication": <number 0-30>
  },
  "feedback": "<detailed feedback paragraph>",
  "strengths": ["<strength 1>", "<strength 2>"],
  "improvements": ["<improvement 1>", "<improvement 2>"]
}

Respond with ONLY the JSON object, no additional text.`)

	return b.String()
}

// buildTheoryPrompt assembles the evaluation request for a free-text
// theory answer, graded against the bank's reference material.
func buildTheoryPrompt(q *domain.TheoryQuestion, userAnswer string) string {
	var b strings.Builder
	b.WriteString("You are evaluating a student's answer to a technical interview question.\n\nQUESTION:\n")
	b.WriteString(q.Question)
	b.WriteString("\n\nREFERENCE ANSWER:\n")
	b.WriteString(q.ReferenceAnswer)

	b.WriteString("\n\nEXPECTED KEY POINTS:\n")
	for i, p := range q.ExpectedPoints {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p)
	}

	b.WriteString("\nIMPORTANT KEYWORDS:\n")
	b.WriteString(strings.Join(q.Keywords, ", "))

	b.WriteString("\n\nSTUDENT'S ANSWER:\n")
	b.WriteString(userAnswer)

	b.WriteString(`

EVALUATION CRITERIA:
1. Clarity (0-30): Is the answer well-structured and easy to understand?
2. Completeness (0-40): Does it cover the expected key points?
3. Accuracy (0-30): Is the technical information correct?

OUTPUT FORMAT (JSON only, no markdown):
{
  "score": <total 0-100>,
  "breakdown": {
    "clarity": <0-30>,
    "completeness": <0-40>,
    "accuracy": <0-30>
  },
  "feedback": "<2-3 sentence constructive feedback>",
  "matchedKeywords": ["keyword1", "keyword2"],
  "missedPoints": ["point they should have mentioned"],
  "strengths": ["what they did well"],
  "improvements": ["specific areas to improve"]
}

Respond with ONLY the JSON object, no additional text.`)

	return b.String()
}

func writeBullets(b *strings.Builder, items []string) {
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
}
