package selection

import (
	"math/rand/v2"
	"testing"

	"github.com/yungbote/contentselect/internal/audit"
	"github.com/yungbote/contentselect/internal/binder"
	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/logger"
)

func frozenClock(t *testing.T, ts string) *clock.Clock {
	t.Helper()
	clk, err := clock.New(clock.ModeFrozen)
	if err != nil {
		t.Fatalf("clock: %v", err)
	}
	at, err := clock.Parse(ts)
	if err != nil {
		t.Fatalf("parse %q: %v", ts, err)
	}
	clk.Set(at)
	return clk
}

func testCatalog() *catalog.Catalog {
	cat := catalog.New()
	cat.SetMissions([]catalog.Mission{
		{ID: "M1", WeeklyFrequency: 3, Pillar: "nutrition"},
		{ID: "M2", WeeklyFrequency: 2, Pillar: "physical_activity"},
	})
	cat.SetRecommendations([]catalog.Item{
		{ID: "NRc1", Types: []string{"Education"}},
		{ID: "NRc2", Types: []string{"Enablement"}},
		{ID: "NRc3", Types: []string{"Training"}},
		{ID: "NRc4", Types: []string{"Persuasion"}},
		{ID: "NRc5", Types: []string{"Modelling"}},
		{ID: "NRc6", Types: []string{"Incentivisation"}},
		{ID: "PRc7", Types: []string{"Education", "Training"}},
		{ID: "SRc52", Types: []string{"Education"}},
		{ID: "SRc100", Types: []string{"Persuasion"}},
		{ID: "SRc101", Types: []string{"Persuasion"}},
		{ID: "ERc65", Types: []string{"Enablement"}},
		{ID: "ERc110", Types: []string{"Enablement"}},
	})
	cat.SetResources([]catalog.Item{
		{ID: "NRes1", Types: []string{"Education"}},
		{ID: "NRes2", Types: []string{"Enablement"}},
		{ID: "PRes3", Types: []string{"Training"}},
	})
	return cat
}

// testConfig defaults to the always-accepting Random policy so slate
// tests exercise the quota rules rather than the posterior draws.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ResourcePolicy = config.PolicyConfig{Type: config.PolicyRandom}
	cfg.RecommendationPolicy = config.PolicyConfig{Type: config.PolicyRandom}
	cfg.InterventionPolicy = config.PolicyConfig{Type: config.PolicyNone}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config, clk *clock.Clock, cat *catalog.Catalog, sink audit.Sink) *Service {
	t.Helper()
	b := binder.New(cfg.BinderCapacity, nil, logger.NewNop())
	svc, err := newService(cfg, clk, cat, b, sink, logger.NewNop(), sources{
		Resource:       rand.NewPCG(1, 11),
		Recommendation: rand.NewPCG(2, 22),
		Intervention:   rand.NewPCG(3, 33),
	})
	if err != nil {
		t.Fatalf("newService: %v", err)
	}
	return svc
}

func registerBatch(userID string) Batch {
	return Batch{NewUsers: map[string]NewUser{
		userID: {EnrolmentDate: "2024-06-01T00:00:00Z", Gender: "female", Age: floatPtr(60), Education: "secondary", RecruitmentCenter: "ICO"},
	}}
}

func missionBatch(userID, ts string, missions ...MissionSelection) Batch {
	return Batch{NewMissionsAndContents: map[string]MissionsUpdate{
		userID: {UpdateTimestamp: ts, NewMissions: missions},
	}}
}

func feedbackBatch(userID string, events ...FeedbackEvent) Batch {
	return Batch{Feedback: map[string]Feedback{userID: {Events: events}}}
}

func sentEvent(ts, correlationID, itemID, missionID string) FeedbackEvent {
	return FeedbackEvent{
		Name:          EventSent,
		Timestamp:     ts,
		CorrelationID: correlationID,
		ContentID:     itemID,
		ContentType:   ContentRecommendation,
		MissionID:     missionID,
	}
}

func ratedEvent(ts, correlationID, itemID, missionID, thumb string, eom *bool) FeedbackEvent {
	return FeedbackEvent{
		Name:          EventRated,
		Timestamp:     ts,
		CorrelationID: correlationID,
		ContentID:     itemID,
		ContentType:   ContentRecommendation,
		MissionID:     missionID,
		Rating:        Rating{Thumb: thumb},
		EndOfMission:  eom,
	}
}

func recommendationItems(slate *Slate) []SlateItem {
	var out []SlateItem
	for _, it := range slate.Contents {
		if it.Type == "recommendation" {
			out = append(out, it)
		}
	}
	return out
}

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func vectorsEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
