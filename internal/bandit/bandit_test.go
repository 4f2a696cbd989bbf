package bandit

import (
	"math"
	"math/rand/v2"
	"testing"
)

func TestBernoulliBetaTSUpdateCounts(t *testing.T) {
	p := NewBernoulliBetaTS(1, 1, rand.NewPCG(1, 2))

	params := p.Update("a", 1)
	if params["alpha"].(float64) != 2 || params["beta"].(float64) != 1 {
		t.Fatalf("after success expected alpha=2 beta=1, got %v", params)
	}

	params = p.Update("a", 0)
	if params["alpha"].(float64) != 2 || params["beta"].(float64) != 2 {
		t.Fatalf("after failure expected alpha=2 beta=2, got %v", params)
	}

	// Non-unit rewards count as failures under the thumbs mapping.
	params = p.Update("a", 0.7)
	if params["beta"].(float64) != 3 {
		t.Fatalf("expected beta=3 after reward 0.7, got %v", params)
	}
}

func TestBernoulliBetaTSPrefersRewardedAction(t *testing.T) {
	p := NewBernoulliBetaTS(1, 1, rand.NewPCG(7, 11))
	for i := 0; i < 50; i++ {
		p.Update("good", 1)
		p.Update("bad", 0)
	}

	wins := 0
	for i := 0; i < 200; i++ {
		a, sample := p.Select([]string{"bad", "good"})
		if sample.Action != a {
			t.Fatalf("sample action %q does not match returned action %q", sample.Action, a)
		}
		if a == "good" {
			wins++
		}
	}
	if wins < 180 {
		t.Fatalf("expected the rewarded action to dominate, won %d/200", wins)
	}
}

func TestBernoulliBetaTSDeterministicWithSeed(t *testing.T) {
	p1 := NewBernoulliBetaTS(1, 1, rand.NewPCG(3, 5))
	p2 := NewBernoulliBetaTS(1, 1, rand.NewPCG(3, 5))
	for i := 0; i < 20; i++ {
		a1, _ := p1.Select([]string{"x", "y", "z"})
		a2, _ := p2.Select([]string{"x", "y", "z"})
		if a1 != a2 {
			t.Fatalf("iteration %d: same seed diverged: %q vs %q", i, a1, a2)
		}
	}
}

func TestLogisticLaplaceTSUpdateStep(t *testing.T) {
	p, err := NewLogisticLaplaceTS(2, 1, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}

	x := []float64{1, 0.5}
	params, err := p.Update(x, 1)
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// mu starts at zero so the pre-update prediction is sigmoid(0)=0.5.
	sig := 0.5
	wantPd := []float64{1 + 1*sig*(1-sig), 1 + 0.25*sig*(1-sig)}
	wantMu := []float64{
		-(sig - 1) * 1 / wantPd[0],
		-(sig - 1) * 0.5 / wantPd[1],
	}

	gotMu := params["mu"].([]float64)
	gotPd := params["pd"].([]float64)
	for i := range wantPd {
		if math.Abs(gotPd[i]-wantPd[i]) > 1e-12 {
			t.Fatalf("pd[%d] = %v, want %v", i, gotPd[i], wantPd[i])
		}
		if math.Abs(gotMu[i]-wantMu[i]) > 1e-12 {
			t.Fatalf("mu[%d] = %v, want %v", i, gotMu[i], wantMu[i])
		}
	}
}

func TestLogisticLaplaceTSDiscountFloorsAtPrior(t *testing.T) {
	p, err := NewLogisticLaplaceTS(1, 0.5, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	// Precision starts at the prior, so decay alone must not push it
	// below 1.
	params, err := p.Update([]float64{0}, 0)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	pd := params["pd"].([]float64)
	if pd[0] < 1 {
		t.Fatalf("precision decayed below prior: %v", pd[0])
	}
}

func TestLogisticLaplaceTSRejectsDimensionMismatch(t *testing.T) {
	p, err := NewLogisticLaplaceTS(3, 1, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	if _, err := p.Update([]float64{1, 2}, 1); err == nil {
		t.Fatal("expected error on mismatched vector length")
	}
}

func TestLogisticLaplaceTSSelectFollowsLearnedWeights(t *testing.T) {
	p, err := NewLogisticLaplaceTS(2, 1, rand.NewPCG(9, 9))
	if err != nil {
		t.Fatalf("new policy: %v", err)
	}
	for i := 0; i < 200; i++ {
		if _, err := p.Update([]float64{1, 1}, 1); err != nil {
			t.Fatalf("update: %v", err)
		}
		if _, err := p.Update([]float64{1, 0}, 0); err != nil {
			t.Fatalf("update: %v", err)
		}
	}

	wins := 0
	for i := 0; i < 100; i++ {
		set, vec, sample := p.Select(
			[][]string{{"lo"}, {"hi"}},
			[][]float64{{1, 0}, {1, 1}},
		)
		if len(sample.Theta) != 2 {
			t.Fatalf("expected 2-dim theta, got %d", len(sample.Theta))
		}
		if set[0] == "hi" {
			wins++
			if vec[1] != 1 {
				t.Fatalf("winning vector does not match winning set: %v", vec)
			}
		}
	}
	if wins < 90 {
		t.Fatalf("expected the high-reward context to dominate, won %d/100", wins)
	}
}

func TestResourceOptimalPicksHighestPreference(t *testing.T) {
	p := NewResourceOptimal(map[string]float64{"a": -1, "b": 2, "c": 0.5})
	a, sample := p.Select([]string{"a", "b", "c"})
	if a != "b" {
		t.Fatalf("expected b, got %q", a)
	}
	if sample.EstimatedReward <= 0.5 {
		t.Fatalf("positive preference should map above 0.5, got %v", sample.EstimatedReward)
	}
}

func TestRecommendationOptimalGrouped(t *testing.T) {
	p := NewRecommendationOptimal(map[string]float64{"r1": 0.1, "r2": 3, "r3": 1})
	a, _ := p.SelectGrouped([][]string{{"r1", "r3"}, {"r2"}}, nil)
	if a != "r2" {
		t.Fatalf("expected r2, got %q", a)
	}
}

func TestRandomSelectsWithinSet(t *testing.T) {
	p := NewRandom(rand.NewPCG(4, 4))
	actions := []string{"a", "b", "c"}
	seen := map[string]bool{}
	for i := 0; i < 60; i++ {
		a, sample := p.Select(actions)
		if sample.EstimatedReward != 1 {
			t.Fatalf("random draws must clear the exploration gate, got %v", sample.EstimatedReward)
		}
		seen[a] = true
	}
	for _, a := range actions {
		if !seen[a] {
			t.Fatalf("action %q never selected over 60 draws", a)
		}
	}
}
