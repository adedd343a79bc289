package practice

import (
	"context"
	"fmt"
	"strings"
)

// AnalysisRequest is what the feedback generator needs to evaluate a
// response.
type AnalysisRequest struct {
	Category Category
	Topic    string
	Text     string
}

// Analyzer produces written feedback for a response.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (string, error)
}

// Prompt renders the evaluator instructions for req.
func (req AnalysisRequest) Prompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are a Group Discussion (GD) evaluator and coach. Analyze this GD response on the topic category \"%s\".", req.Category.Label())
	if req.Topic != "" {
		fmt.Fprintf(&b, "\nGD Topic: \"%s\"", req.Topic)
	}
	b.WriteString(`

Evaluate on these GD-specific criteria:
1. **Content & Relevance** - Are the points relevant to the topic? Is there depth of knowledge?
2. **Structure & Coherence** - Is the argument logically structured? Good opening/body/conclusion?
3. **Communication & Clarity** - Is the language clear, persuasive, and confident?
4. **Vocabulary & Grammar** - Quality of vocabulary, any grammatical issues?
5. **Critical Thinking** - Does it show original thinking, counterarguments, or balanced view?

Provide:
- A brief overall assessment (2-3 lines)
- Score out of 10 for each criterion
- Top 2-3 strengths
- Top 2-3 areas to improve
- One specific suggestion for the next attempt

Keep it concise (max 200 words). Be constructive and encouraging.

GD Response to analyze:
`)
	fmt.Fprintf(&b, "\"%s\"", req.Text)
	return b.String()
}
