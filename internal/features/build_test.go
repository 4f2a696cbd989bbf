package features

import (
	"testing"

	"github.com/yungbote/contentselect/internal/config"
)

func defaultSchema(t *testing.T) *Schema {
	t.Helper()
	cfg := config.Default()
	s, err := NewSchema(cfg.Features, cfg.MaxPerMission, cfg.MaxSamePerMission)
	if err != nil {
		t.Fatalf("new schema: %v", err)
	}
	return s
}

func labelIndex(t *testing.T, s *Schema, label string) int {
	t.Helper()
	for i, l := range s.Labels() {
		if l == label {
			return i
		}
	}
	t.Fatalf("label %q not in schema", label)
	return -1
}

func TestDefaultSchemaDimension(t *testing.T) {
	s := defaultSchema(t)
	labels := s.Labels()
	if len(labels) != s.Dim() {
		t.Fatalf("Dim %d disagrees with %d labels", s.Dim(), len(labels))
	}
	if s.Dim() != 45 {
		t.Fatalf("expected 45 coordinates for the default flags, got %d", s.Dim())
	}
	if labels[0] != "bias" {
		t.Fatalf("first coordinate must be bias, got %q", labels[0])
	}
}

func TestUnknownFlagRejected(t *testing.T) {
	if _, err := NewSchema(map[string]bool{"XYZ": true}, 10, 3); err == nil {
		t.Fatal("expected an error for an unknown flag")
	}
}

func TestBuildLengthAndBias(t *testing.T) {
	s := defaultSchema(t)
	vec := s.Build(UserContext{}, ItemContext{ID: "NRc1"}, NewOffsets(), false)
	if len(vec) != s.Dim() {
		t.Fatalf("vector length %d, want %d", len(vec), s.Dim())
	}
	if vec[0] != 1 {
		t.Fatalf("bias must be 1, got %v", vec[0])
	}
}

func TestMissingUserDataEncodesNeutral(t *testing.T) {
	s := defaultSchema(t)
	vec := s.Build(UserContext{DaysInProgram: -1}, ItemContext{ID: "NRc1"}, NewOffsets(), false)

	for _, label := range []string{"gender", "userAge", "education"} {
		if got := vec[labelIndex(t, s, label)]; got != 0.5 {
			t.Fatalf("%s should default to 0.5, got %v", label, got)
		}
	}
	for _, label := range []string{"ICO", "UMFCD", "UNIPA"} {
		if got := vec[labelIndex(t, s, label)]; got != 0 {
			t.Fatalf("unknown center must encode as zeros, %s = %v", label, got)
		}
	}
	for _, p := range Pillars {
		if got := vec[labelIndex(t, s, p)]; got != 0.5 {
			t.Fatalf("missing %s score should default to 0.5, got %v", p, got)
		}
	}
	if got := vec[labelIndex(t, s, "num_intervention_days")]; got != 0 {
		t.Fatalf("pre-intervention days should encode 0, got %v", got)
	}
}

func TestPromptedTogglesOnlyItsCoordinate(t *testing.T) {
	s := defaultSchema(t)
	u := UserContext{HealthScores: map[string]float64{"nutrition": 70}}
	item := ItemContext{ID: "NRc1", Types: []string{"Education"}, Pillar: "nutrition", MissionWeeklyFrequency: 3}

	plain := s.Build(u, item, NewOffsets(), false)
	prompted := s.Build(u, item, NewOffsets(), true)

	pr := labelIndex(t, s, "prompted")
	if plain[pr] != 0 || prompted[pr] != 1 {
		t.Fatalf("prompted coordinate: plain=%v prompted=%v", plain[pr], prompted[pr])
	}
	for i := range plain {
		if i == pr {
			continue
		}
		if plain[i] != prompted[i] {
			t.Fatalf("coordinate %s changed with the prompted flag", s.Labels()[i])
		}
	}
}

func TestScheduledOffsetsMoveScheduledCoordinates(t *testing.T) {
	s := defaultSchema(t)
	item := ItemContext{ID: "NRc1", Types: []string{"Education"}, Pillar: "nutrition", MissionWeeklyFrequency: 3}

	off := NewOffsets()
	off.Total = 3
	off.PerType["Education"] = 2
	off.PerItem["NRc1"] = 1

	vec := s.Build(UserContext{}, item, off, false)

	// Scheduled caps are one below the per-mission caps.
	if got, want := vec[labelIndex(t, s, "TF_sched")], 3.0/9.0; got != want {
		t.Fatalf("TF_sched = %v, want %v", got, want)
	}
	if got, want := vec[labelIndex(t, s, "IF_sched")], 2.0/9.0; got != want {
		t.Fatalf("IF_sched = %v, want %v", got, want)
	}
	if got, want := vec[labelIndex(t, s, "RF_sched")], 1.0/2.0; got != want {
		t.Fatalf("RF_sched = %v, want %v", got, want)
	}
}

func TestFrequencyEncodingClips(t *testing.T) {
	if got := encodeFrequency(42, 0, 10); got != 1 {
		t.Fatalf("over-cap should clip to 1, got %v", got)
	}
	if got := encodeFrequency(-1, 0, 10); got != 0 {
		t.Fatalf("under-floor should clip to 0, got %v", got)
	}
	if got := encodeFrequency(0.5, 1, 7); got != 0 {
		t.Fatalf("sub-minimum mission frequency should clip to 0, got %v", got)
	}
}

func TestTypeMixture(t *testing.T) {
	mix := TypeMixture([]string{"Education", "Training", "not-a-type"})
	sum := 0.0
	for i, known := range InterventionTypes {
		sum += mix[i]
		switch known {
		case "Education", "Training":
			if mix[i] != 0.5 {
				t.Fatalf("%s weight = %v, want 0.5", known, mix[i])
			}
		default:
			if mix[i] != 0 {
				t.Fatalf("%s weight = %v, want 0", known, mix[i])
			}
		}
	}
	if sum != 1 {
		t.Fatalf("mixture must sum to 1, got %v", sum)
	}

	for _, w := range TypeMixture([]string{"not-a-type"}) {
		if w != 0 {
			t.Fatal("unrecognized tags alone must yield the zero vector")
		}
	}
}

func TestKeyComparesByValue(t *testing.T) {
	a := []float64{1, 0.25, 0}
	b := []float64{1, 0.25, 0}
	if Key(a) != Key(b) {
		t.Fatal("independently built equal vectors must share a key")
	}
	if Key(a) == Key([]float64{1, 0.25, 0.0001}) {
		t.Fatal("different vectors must not collide")
	}
}
