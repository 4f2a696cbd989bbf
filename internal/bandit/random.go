package bandit

import "math/rand/v2"

// Random is the uniform baseline: every candidate is equally likely and
// feedback is ignored.
type Random struct {
	rng *rand.Rand
}

func NewRandom(src rand.Source) *Random {
	return &Random{rng: newRand(src)}
}

func (p *Random) Select(actions []string) (string, Sample) {
	if len(actions) == 0 {
		return "", Sample{}
	}
	a := actions[p.rng.IntN(len(actions))]
	// Report a draw above the exploration gate so the selector never
	// rejects a random pick.
	return a, Sample{Action: a, EstimatedReward: 1}
}

func (p *Random) Update(action string, reward float64) Params {
	return Params{"action": action}
}

func (p *Random) InitialParameters() Params {
	return Params{"type": "random"}
}
