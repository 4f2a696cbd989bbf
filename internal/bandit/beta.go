package bandit

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// BernoulliBetaTS is Thompson sampling with an independent
// Beta-Bernoulli posterior per action. Unseen actions start at the
// (alpha0, beta0) prior.
type BernoulliBetaTS struct {
	alpha0 float64
	beta0  float64
	alpha  map[string]float64
	beta   map[string]float64
	src    rand.Source
}

func NewBernoulliBetaTS(alpha0, beta0 float64, src rand.Source) *BernoulliBetaTS {
	return &BernoulliBetaTS{
		alpha0: alpha0,
		beta0:  beta0,
		alpha:  map[string]float64{},
		beta:   map[string]float64{},
		src:    ensureSource(src),
	}
}

func (p *BernoulliBetaTS) register(action string) {
	if _, ok := p.alpha[action]; !ok {
		p.alpha[action] = p.alpha0
		p.beta[action] = p.beta0
	}
}

// Select draws one Beta sample per candidate and picks the argmax.
// Ties resolve to the earliest candidate.
func (p *BernoulliBetaTS) Select(actions []string) (string, Sample) {
	draws := make(map[string]float64, len(actions))
	best := ""
	bestDraw := -1.0
	for _, a := range actions {
		p.register(a)
		d := distuv.Beta{Alpha: p.alpha[a], Beta: p.beta[a], Src: p.src}.Rand()
		draws[a] = d
		if d > bestDraw {
			best, bestDraw = a, d
		}
	}
	return best, Sample{Action: best, EstimatedReward: bestDraw, PerAction: draws}
}

// Update counts the observation as a success only on reward exactly 1;
// anything else counts as a failure.
func (p *BernoulliBetaTS) Update(action string, reward float64) Params {
	p.register(action)
	if reward == 1 {
		p.alpha[action]++
	} else {
		p.beta[action]++
	}
	return Params{
		"action": action,
		"alpha":  p.alpha[action],
		"beta":   p.beta[action],
	}
}

func (p *BernoulliBetaTS) InitialParameters() Params {
	return Params{"alpha0": p.alpha0, "beta0": p.beta0}
}
