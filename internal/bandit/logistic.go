package bandit

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// LogisticLaplaceTS is Thompson sampling over a Bayesian logistic
// regression with a diagonal Laplace approximation: per-coordinate mean
// mu and precision pd. An optional discount in (0,1) decays precision
// towards the prior so old evidence fades.
type LogisticLaplaceTS struct {
	dim      int
	discount float64
	mu       []float64
	pd       []float64
	prior    []float64
	normal   distuv.Normal
}

func NewLogisticLaplaceTS(dim int, discount float64, src rand.Source) (*LogisticLaplaceTS, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("logistic policy dimension must be positive, got %d", dim)
	}
	if discount <= 0 || discount > 1 {
		return nil, fmt.Errorf("logistic discount must be in (0,1], got %g", discount)
	}
	p := &LogisticLaplaceTS{
		dim:      dim,
		discount: discount,
		mu:       make([]float64, dim),
		pd:       make([]float64, dim),
		prior:    make([]float64, dim),
		normal:   distuv.Normal{Mu: 0, Sigma: 1, Src: ensureSource(src)},
	}
	for i := 0; i < dim; i++ {
		p.pd[i] = 1
		p.prior[i] = 1
	}
	return p, nil
}

func sigmoid(z float64) float64 { return 1 / (1 + math.Exp(-z)) }

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// Select draws one weight vector from the posterior and scores every
// candidate vector with it; the first argmax wins. The winning set and
// its vector come back alongside the draw.
func (p *LogisticLaplaceTS) Select(actionSets [][]string, vectors [][]float64) ([]string, []float64, Sample) {
	theta := make([]float64, p.dim)
	for i := range theta {
		theta[i] = p.mu[i] + p.normal.Rand()/math.Sqrt(p.pd[i])
	}

	bestIdx := 0
	bestProb := math.Inf(-1)
	for i, x := range vectors {
		prob := sigmoid(dot(theta, x))
		if prob > bestProb {
			bestIdx, bestProb = i, prob
		}
	}
	return actionSets[bestIdx], vectors[bestIdx], Sample{
		EstimatedReward: bestProb,
		Theta:           theta,
	}
}

// Update performs the single-pass Laplace step: decay precision
// towards the prior, compute the predicted probability from the
// pre-update mean, sharpen precision, then move the mean along the
// gradient scaled by the new precision.
func (p *LogisticLaplaceTS) Update(vector []float64, reward float64) (Params, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("feature vector has %d coordinates, policy expects %d", len(vector), p.dim)
	}

	if p.discount < 1 {
		for i := range p.pd {
			p.pd[i] *= p.discount
			if p.pd[i] < p.prior[i] {
				p.pd[i] = p.prior[i]
			}
		}
	}

	sig := sigmoid(dot(vector, p.mu))
	for i, x := range vector {
		p.pd[i] += x * x * sig * (1 - sig)
	}
	for i, x := range vector {
		p.mu[i] -= (sig - reward) * x / p.pd[i]
	}

	return Params{"mu": append([]float64{}, p.mu...), "pd": append([]float64{}, p.pd...)}, nil
}

func (p *LogisticLaplaceTS) InitialParameters() Params {
	return Params{
		"mu": append([]float64{}, p.mu...),
		"pd": append([]float64{}, p.pd...),
	}
}
