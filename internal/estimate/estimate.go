// Package estimate prices work item attempts in tokens. The constants are
// calibrated against observed pipeline usage; they feed admission control,
// so changing them changes which items a batch admits.
package estimate

import "github.com/example/fleet/internal/ports/secondary"

// Token costs for the pipeline stages (approximate).
const (
	CategorizationTokens        = 500
	ComplexityEstimationTokens  = 300
	CodeGenerationBaseTokens    = 1000
	CodeGenerationPerComplexity = 500
	TestGenerationTokens        = 800
	CodeReviewTokens            = 400
	PRCreationTokens            = 200
)

// CharsPerToken is the rough character-to-token ratio (~4 chars per token).
const CharsPerToken = 4

// Estimator implements secondary.CostEstimator.
type Estimator struct {
	tokensPerSecond int
}

// New creates an estimator. tokensPerSecond drives the time estimates;
// pass 0 for the default of 50.
func New(tokensPerSecond int) *Estimator {
	if tokensPerSecond <= 0 {
		tokensPerSecond = 50
	}
	return &Estimator{tokensPerSecond: tokensPerSecond}
}

// TextTokens estimates the token count of a piece of text.
func (e *Estimator) TextTokens(text string) int {
	return len(text) / CharsPerToken
}

// Categorization estimates the cost of categorizing an item.
func (e *Estimator) Categorization(title, body string) secondary.CostEstimate {
	tokens := CategorizationTokens + e.TextTokens(title) + e.TextTokens(body)
	return e.estimate("categorization", tokens)
}

// CodeGeneration estimates the cost of generating a fix.
func (e *Estimator) CodeGeneration(title, body string, complexity int) secondary.CostEstimate {
	tokens := CodeGenerationBaseTokens +
		complexity*CodeGenerationPerComplexity +
		e.TextTokens(title) + e.TextTokens(body)
	return e.estimate("code_generation", tokens)
}

// TestGeneration estimates the cost of generating tests.
func (e *Estimator) TestGeneration(filesCount int) secondary.CostEstimate {
	if filesCount <= 0 {
		filesCount = 1
	}
	return e.estimate("test_generation", TestGenerationTokens*filesCount)
}

// EstimateFullSolution estimates the end-to-end cost of attempting a fix.
func (e *Estimator) EstimateFullSolution(title, body string, complexity int) secondary.CostEstimate {
	if complexity <= 0 {
		complexity = 5
	}

	tokens := e.Categorization(title, body).Tokens +
		e.CodeGeneration(title, body, complexity).Tokens +
		e.TestGeneration(1).Tokens +
		CodeReviewTokens +
		PRCreationTokens

	return e.estimate("full_solution", tokens)
}

func (e *Estimator) estimate(operation string, tokens int) secondary.CostEstimate {
	seconds := tokens / e.tokensPerSecond
	if seconds < 1 {
		seconds = 1
	}
	return secondary.CostEstimate{
		Operation: operation,
		Tokens:    tokens,
		Seconds:   seconds,
	}
}

// Ensure Estimator implements the interface
var _ secondary.CostEstimator = (*Estimator)(nil)
