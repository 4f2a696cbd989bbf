package selection

import (
	"context"
	"testing"

	"github.com/yungbote/contentselect/internal/audit"
)

func generateSlate(t *testing.T, svc *Service, userID, ts string, missions ...MissionSelection) *Slate {
	t.Helper()
	ctx := context.Background()
	if err := svc.Update(ctx, registerBatch(userID), false, false); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Update(ctx, missionBatch(userID, ts, missions...), false, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	u := svc.Users().Get(userID)
	if u == nil || u.Selected == nil {
		t.Fatal("expected a slate after intervention update")
	}
	return u.Selected
}

func TestSlateRespectsQuotas(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"NRc1", "NRc2", "NRc3", "NRc4", "NRc5", "NRc6"},
	})

	recs := recommendationItems(slate)
	if len(recs) != cfg.MaxPerMission {
		t.Fatalf("expected a full slate of %d, got %d", cfg.MaxPerMission, len(recs))
	}

	perItem := map[string]int{}
	for _, it := range recs {
		perItem[it.ID]++
	}
	if len(perItem) > cfg.MaxDistinctPerMission {
		t.Fatalf("distinct cap exceeded: %d items", len(perItem))
	}
	for id, n := range perItem {
		if n > cfg.MaxSamePerMission {
			t.Fatalf("same-item cap exceeded for %s: %d", id, n)
		}
	}
}

func TestMandatoryOnceForcedFirstThenExcluded(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"NRc1", "NRc2", "SRc52", "NRc3"},
	})
	recs := recommendationItems(slate)
	if recs[0].ID != "SRc52" {
		t.Fatalf("mandatory item must fill the first slot, got %s", recs[0].ID)
	}
	n := 0
	for _, it := range recs {
		if it.ID == "SRc52" {
			n++
		}
	}
	if n != 1 {
		t.Fatalf("mandatory item must appear exactly once, got %d", n)
	}

	ctx := context.Background()
	if err := svc.Update(ctx, missionBatch("u1", "2025-07-14T09:00:00Z", MissionSelection{
		MissionID:          "M2",
		Recommendations:    []string{"NRc1", "NRc2", "SRc52", "NRc3"},
		SelectionTimestamp: "2025-07-14T09:00:00Z",
	}), false, true); err != nil {
		t.Fatalf("second update: %v", err)
	}
	for _, it := range recommendationItems(svc.Users().Get("u1").Selected) {
		if it.ID == "SRc52" {
			t.Fatal("mandatory item must never reappear after its first send")
		}
	}
}

func TestExclusivePairNeverSharesSlate(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"SRc100", "SRc101", "NRc1"},
	})

	var hasA, hasB bool
	for _, it := range recommendationItems(slate) {
		if it.ID == "SRc100" {
			hasA = true
		}
		if it.ID == "SRc101" {
			hasB = true
		}
	}
	if hasA && hasB {
		t.Fatal("exclusive pair must not share a slate")
	}
}

func TestResourcesSentOncePerUser(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"NRc1", "NRc2"},
		Resources:       []string{"NRes1"},
	})
	var resources []SlateItem
	for _, it := range slate.Contents {
		if it.Type == "resource" {
			resources = append(resources, it)
		}
	}
	if len(resources) != 1 || resources[0].ID != "NRes1" {
		t.Fatalf("expected the single unreceived resource, got %v", resources)
	}

	ctx := context.Background()
	if err := svc.Update(ctx, missionBatch("u1", "2025-07-14T09:00:00Z", MissionSelection{
		MissionID:          "M1",
		Recommendations:    []string{"NRc1", "NRc2"},
		Resources:          []string{"NRes1"},
		SelectionTimestamp: "2025-07-14T09:00:00Z",
	}), false, true); err != nil {
		t.Fatalf("second update: %v", err)
	}
	for _, it := range svc.Users().Get("u1").Selected.Contents {
		if it.Type == "resource" {
			t.Fatalf("already-received resource must not resend, got %s", it.ID)
		}
	}
}

func TestPlanIDRotatesBetweenSlates(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	first := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"NRc1", "NRc2"},
	})
	ctx := context.Background()
	if err := svc.Update(ctx, missionBatch("u1", "2025-07-14T09:00:00Z", MissionSelection{
		MissionID:          "M2",
		Recommendations:    []string{"NRc3", "NRc4"},
		SelectionTimestamp: "2025-07-14T09:00:00Z",
	}), false, true); err != nil {
		t.Fatalf("second update: %v", err)
	}
	second := svc.Users().Get("u1").Selected

	if first.PlanID == "" || first.PlanID == second.PlanID {
		t.Fatalf("plan ids must rotate, got %q then %q", first.PlanID, second.PlanID)
	}
}

func TestMostRecentMissionSupersedesOlder(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z",
		MissionSelection{
			MissionID:          "M1",
			Recommendations:    []string{"NRc1", "NRc2"},
			SelectionTimestamp: "2025-07-07T08:00:00Z",
		},
		MissionSelection{
			MissionID:          "M2",
			Recommendations:    []string{"NRc3", "NRc4"},
			SelectionTimestamp: "2025-07-07T09:00:00Z",
		},
	)

	for _, it := range recommendationItems(slate) {
		if it.MissionID != "M2" {
			t.Fatalf("only the most recent mission should be planned, got item for %s", it.MissionID)
		}
	}
	u := svc.Users().Get("u1")
	if len(u.NewMissions()) != 0 {
		t.Fatalf("older missions must be superseded, still pending: %d", len(u.NewMissions()))
	}
}

func TestNoPlannedMissionYieldsNoSlate(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	ctx := context.Background()
	if err := svc.Update(ctx, registerBatch("u1"), false, true); err != nil {
		t.Fatalf("update: %v", err)
	}
	if svc.Users().Get("u1").Selected != nil {
		t.Fatal("no slate expected without a planned mission")
	}
}

func TestSlateWindowIsOneWeek(t *testing.T) {
	cfg := testConfig()
	svc := newTestService(t, cfg, frozenClock(t, "2025-07-07T09:00:00Z"), testCatalog(), audit.NopSink{})

	slate := generateSlate(t, svc, "u1", "2025-07-07T09:00:00Z", MissionSelection{
		MissionID:       "M1",
		Recommendations: []string{"NRc1"},
	})
	if slate.MissionStartTime != "2025-07-07T09:00:00Z" {
		t.Fatalf("unexpected start %q", slate.MissionStartTime)
	}
	if slate.MissionEndTime != "2025-07-14T09:00:00Z" {
		t.Fatalf("unexpected end %q", slate.MissionEndTime)
	}
}
