package selection

import (
	"testing"
	"time"

	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/features"
)

func newTestUser(t *testing.T, cfg *config.Config, now string) *User {
	t.Helper()
	clk := frozenClock(t, now)
	return newUser("u1", clk, cfg, features.Demographics{Gender: "female"}, clk.Now())
}

func selectMission(u *User, missionID, ts string, recs ...string) time.Time {
	selTS, _ := time.Parse(time.RFC3339, ts)
	u.ApplyMissionSelected(MissionSelection{
		MissionID:       missionID,
		Recommendations: recs,
	}, selTS, nil, 1)
	return selTS
}

func TestSeasonalAvailability(t *testing.T) {
	cfg := config.Default()

	u := newTestUser(t, cfg, "2025-01-15T10:00:00Z")
	selectMission(u, "M1", "2025-01-15T09:00:00Z", "NRc1", "ERc65", "ERc110")
	got := u.AvailableRecommendations("M1")
	if !contains(got, "ERc65") || contains(got, "ERc110") {
		t.Fatalf("january pool should keep winter and drop spring items, got %v", got)
	}

	u.clk.Set(time.Date(2025, 4, 10, 10, 0, 0, 0, time.UTC))
	got = u.AvailableRecommendations("M1")
	if contains(got, "ERc65") || !contains(got, "ERc110") {
		t.Fatalf("april pool should keep spring and drop winter items, got %v", got)
	}

	u.clk.Set(time.Date(2025, 7, 10, 10, 0, 0, 0, time.UTC))
	got = u.AvailableRecommendations("M1")
	if len(got) != 1 || got[0] != "NRc1" {
		t.Fatalf("july pool should carry only the year-round item, got %v", got)
	}
}

func TestAvailableRecommendationsUsesFirstRecord(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")
	selectMission(u, "M1", "2025-06-01T09:00:00Z", "NRc1", "NRc2")
	selectMission(u, "M1", "2025-06-08T09:00:00Z", "NRc3")

	got := u.AvailableRecommendations("M1")
	if len(got) != 2 || got[0] != "NRc1" {
		t.Fatalf("expected the first record's pool, got %v", got)
	}
}

func TestPruneExclusivePair(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")

	avail := map[string][]string{"M1": {"SRc100", "SRc101", "NRc1"}}
	u.PruneAvailable(avail, "SRc100")
	if contains(avail["M1"], "SRc101") {
		t.Fatalf("selecting SRc100 must remove SRc101, got %v", avail["M1"])
	}
	if !contains(avail["M1"], "SRc100") || !contains(avail["M1"], "NRc1") {
		t.Fatalf("other items must survive, got %v", avail["M1"])
	}
}

func TestPruneMandatoryOnce(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")

	avail := map[string][]string{"M1": {"SRc52", "NRc1"}}
	u.PruneAvailable(avail, "SRc52")
	if contains(avail["M1"], "SRc52") {
		t.Fatalf("mandatory-once item must leave the pool, got %v", avail["M1"])
	}
	if !u.HasHadMandatoryOnce() {
		t.Fatal("mandatory-once flag must be set after selection")
	}
}

func TestMissionSnapshotAtPrefersLatestBeforeEvent(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")
	selectMission(u, "M1", "2025-06-01T09:00:00Z", "NRc1")
	selectMission(u, "M1", "2025-06-08T09:00:00Z", "NRc2")

	at, _ := time.Parse(time.RFC3339, "2025-06-10T09:00:00Z")
	snap := u.MissionSnapshotAt("M1", at)
	if snap == nil || snap.Recommendations[0] != "NRc2" {
		t.Fatalf("expected the June 8 selection, got %+v", snap)
	}

	between, _ := time.Parse(time.RFC3339, "2025-06-03T09:00:00Z")
	snap = u.MissionSnapshotAt("M1", between)
	if snap == nil || snap.Recommendations[0] != "NRc1" {
		t.Fatalf("expected the June 1 selection, got %+v", snap)
	}

	before, _ := time.Parse(time.RFC3339, "2025-05-01T09:00:00Z")
	if u.MissionSnapshotAt("M1", before) != nil {
		t.Fatal("no selection existed before June")
	}
}

func TestInterventionStartPinnedByFirstMission(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")
	first := selectMission(u, "M1", "2025-06-01T09:00:00Z", "NRc1")
	selectMission(u, "M2", "2025-06-15T09:00:00Z", "NRc2")

	if u.InterventionStart == nil || !u.InterventionStart.Equal(first) {
		t.Fatalf("intervention start must stay at the first selection, got %v", u.InterventionStart)
	}
	if u.DaysInProgram() != 30 {
		t.Fatalf("expected 30 days in program, got %d", u.DaysInProgram())
	}
}

func TestEngagementRateCountsVoluntaryOnly(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")

	ts1, _ := time.Parse(time.RFC3339, "2025-06-28T09:00:00Z")
	ts2, _ := time.Parse(time.RFC3339, "2025-06-29T09:00:00Z")
	u.TrackSent(ts1, "c1", "NRc1", []string{"Education"}, "M1")
	u.TrackSent(ts2, "c2", "NRc2", []string{"Enablement"}, "M1")
	u.TrackRating(ts1, "NRc1", false)
	u.TrackRating(ts2, "NRc2", true)

	win := &window{Start: ts1.AddDate(0, 0, -7), End: u.clk.Now()}
	if got := u.EngagementRate(win); got != 0.5 {
		t.Fatalf("expected rate 0.5, got %v", got)
	}

	empty := &window{Start: ts1.AddDate(0, 0, -14), End: ts1.AddDate(0, 0, -7)}
	if got := u.EngagementRate(empty); got != 0 {
		t.Fatalf("expected zero rate with nothing sent, got %v", got)
	}
}

func TestApplyAssessmentAttachesComponents(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")

	u.ApplyAssessment(AssessmentEntry{
		Pillars:    map[string]float64{"nutrition": 80, "smoking": 40},
		Components: map[string]float64{"fruit_intake": 0.5},
	})
	if u.HealthScores()["nutrition"] != 80 || u.HealthScores()["smoking"] != 40 {
		t.Fatalf("pillar scores not stored: %v", u.HealthScores())
	}
	if u.healthComponents["nutrition"]["fruit_intake"] != 0.5 {
		t.Fatalf("components must attach to the carrying pillar: %v", u.healthComponents)
	}

	u.ApplyAssessment(AssessmentEntry{
		Pillars:           map[string]float64{"emotional_wellbeing": 60},
		EmotionalDistress: floatPtr(0.4),
	})
	if u.healthComponents["emotional_wellbeing"]["emotional_distress"] != 0.4 {
		t.Fatalf("distress must fold into emotional wellbeing components: %v", u.healthComponents)
	}
}

func TestTypeFrequencyIsMixtureWeighted(t *testing.T) {
	cfg := config.Default()
	u := newTestUser(t, cfg, "2025-07-01T10:00:00Z")

	ts, _ := time.Parse(time.RFC3339, "2025-06-28T09:00:00Z")
	u.TrackSent(ts, "c1", "NRc1", []string{"Education"}, "M1")
	u.TrackSent(ts.Add(time.Hour), "c2", "NRc1", []string{"Education"}, "M1")

	win := &window{Start: ts.AddDate(0, 0, -7), End: u.clk.Now()}
	got := u.TypeFrequency([]string{"Education"}, win)
	want := 2.0 / float64(cfg.MaxPerMission)
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if u.TypeFrequency([]string{"Training"}, win) != 0 {
		t.Fatal("unrelated type must carry no burden")
	}
}
