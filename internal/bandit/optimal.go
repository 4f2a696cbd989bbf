package bandit

// The Optimal stand-ins score candidates against fixed per-item
// preferences instead of a learned posterior. They exist for simulation
// baselines and regression tests where the best pick is known up front.

// ResourceOptimal always returns the highest-preference candidate.
type ResourceOptimal struct {
	prefs map[string]float64
}

func NewResourceOptimal(prefs map[string]float64) *ResourceOptimal {
	if prefs == nil {
		prefs = map[string]float64{}
	}
	return &ResourceOptimal{prefs: prefs}
}

func (p *ResourceOptimal) Select(actions []string) (string, Sample) {
	if len(actions) == 0 {
		return "", Sample{}
	}
	best := actions[0]
	bestScore := p.prefs[best]
	for _, a := range actions[1:] {
		if s := p.prefs[a]; s > bestScore {
			best, bestScore = a, s
		}
	}
	return best, Sample{Action: best, EstimatedReward: sigmoid(bestScore)}
}

func (p *ResourceOptimal) Update(action string, reward float64) Params {
	return Params{"action": action}
}

func (p *ResourceOptimal) InitialParameters() Params {
	return Params{"preferences": p.prefs}
}

// RecommendationOptimal scores whole candidate sets by their best
// member's preference. It satisfies both the flat and grouped selection
// paths.
type RecommendationOptimal struct {
	prefs map[string]float64
}

func NewRecommendationOptimal(prefs map[string]float64) *RecommendationOptimal {
	if prefs == nil {
		prefs = map[string]float64{}
	}
	return &RecommendationOptimal{prefs: prefs}
}

func (p *RecommendationOptimal) Select(actions []string) (string, Sample) {
	return (&ResourceOptimal{prefs: p.prefs}).Select(actions)
}

func (p *RecommendationOptimal) SelectGrouped(actionSets [][]string, vectors [][]float64) (string, Sample) {
	best := ""
	bestScore := 0.0
	for _, set := range actionSets {
		for _, a := range set {
			if s := p.prefs[a]; best == "" || s > bestScore {
				best, bestScore = a, s
			}
		}
	}
	if best == "" {
		return "", Sample{}
	}
	return best, Sample{Action: best, EstimatedReward: sigmoid(bestScore)}
}

func (p *RecommendationOptimal) Update(action string, reward float64) Params {
	return Params{"action": action}
}

func (p *RecommendationOptimal) InitialParameters() Params {
	return Params{"preferences": p.prefs}
}
