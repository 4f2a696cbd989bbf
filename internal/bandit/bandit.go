// Package bandit implements the posterior-sampling policies. All
// learning is closed-form single-pass Bayesian updating; policies keep
// their own parameters and expose them only as audit payloads.
package bandit

import (
	"math/rand/v2"
)

// Params is an opaque parameter snapshot persisted for audit.
type Params map[string]any

// Sample records one posterior draw for audit and reward gating.
type Sample struct {
	Action          string             `json:"action,omitempty"`
	EstimatedReward float64            `json:"estimated_reward"`
	Theta           []float64          `json:"theta,omitempty"`
	PerAction       map[string]float64 `json:"per_action,omitempty"`
}

// ActionPolicy chooses among opaque action ids. Actions are registered
// lazily the first time they are seen.
type ActionPolicy interface {
	Select(actions []string) (string, Sample)
	Update(action string, reward float64) Params
	InitialParameters() Params
}

// ContextualPolicy chooses among candidate sets keyed by feature
// vector; the returned slice is the candidate set behind the winning
// vector.
type ContextualPolicy interface {
	Select(actionSets [][]string, vectors [][]float64) ([]string, []float64, Sample)
	Update(vector []float64, reward float64) (Params, error)
	InitialParameters() Params
}

// GroupPolicy is implemented by action policies that can exploit the
// vector grouping directly (the fixed-preference baseline does).
type GroupPolicy interface {
	SelectGrouped(actionSets [][]string, vectors [][]float64) (string, Sample)
}

func newRand(src rand.Source) *rand.Rand {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.New(src)
}

func ensureSource(src rand.Source) rand.Source {
	if src == nil {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return src
}
