package secondary

// CostEstimate is a token and time estimate for one operation.
type CostEstimate struct {
	Operation string
	Tokens    int
	Seconds   int
}

// CostEstimator defines the secondary port for token cost estimation.
// The admission controller consumes it to price candidate items before
// checking affordability; the actual model and prompt shapes live with
// the collaborator that implements it.
type CostEstimator interface {
	// EstimateFullSolution estimates the end-to-end cost of attempting a
	// fix: categorization, code generation, test generation, review, and
	// PR creation.
	EstimateFullSolution(title, body string, complexity int) CostEstimate
}
