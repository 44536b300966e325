// Package priority contains the pure scoring logic that orders work items.
// Scoring is a deterministic linear combination with no side effects; all
// inputs arrive pre-normalized to [0,1] from the providers that compute them.
package priority

// Weights holds the per-dimension multipliers for the overall score.
type Weights struct {
	Health      float64
	Impact      float64
	Solvability float64
	Urgency     float64
}

// DefaultWeights are the production defaults. Impact dominates, solvability
// next, health and urgency trail.
func DefaultWeights() Weights {
	return Weights{
		Health:      1.0,
		Impact:      2.0,
		Solvability: 1.5,
		Urgency:     0.5,
	}
}

// Inputs are the normalized scoring signals for one work item.
type Inputs struct {
	Health            float64
	Impact            float64
	Solvability       float64
	Urgency           float64
	RedundancyPenalty float64
}

// Score computes the overall priority. No normalization is performed here.
func Score(in Inputs, w Weights) float64 {
	return w.Health*in.Health +
		w.Impact*in.Impact +
		w.Solvability*in.Solvability +
		w.Urgency*in.Urgency -
		in.RedundancyPenalty
}

// Urgency combines category weight, issue age, and engagement into [0,1].
// categoryMultiplier is on a 0-10 scale; ageDays saturates at one year;
// engagement saturates at 50. The exact constants participate in ordering,
// so they must not drift.
func Urgency(categoryMultiplier, ageDays, engagement float64) float64 {
	ageFactor := min1(ageDays / 365)
	engagementFactor := min1(engagement / 50)
	return 0.5*(categoryMultiplier/10) + 0.3*ageFactor + 0.2*engagementFactor
}

func min1(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}
