package selection

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/yungbote/contentselect/internal/audit"
	"github.com/yungbote/contentselect/internal/bandit"
	"github.com/yungbote/contentselect/internal/binder"
	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/features"
	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/types"
)

// Service is the engine facade: it owns the user registry, the
// policies, the binder and the audit sink, and applies orchestrator
// batches in their canonical order.
type Service struct {
	cfg   *config.Config
	clk   *clock.Clock
	cat   *catalog.Catalog
	users *Manager
	bind  *binder.Binder
	eng   *Engine
	rec   *Reconciler
	sink  audit.Sink
	log   *logger.Logger

	mu  sync.Mutex
	seq atomic.Int64
}

// sources lets tests pin the policy randomness; nil means fresh seeds.
type sources struct {
	Resource       rand.Source
	Recommendation rand.Source
	Intervention   rand.Source
}

func NewService(
	cfg *config.Config,
	clk *clock.Clock,
	cat *catalog.Catalog,
	bind *binder.Binder,
	sink audit.Sink,
	log *logger.Logger,
) (*Service, error) {
	return newService(cfg, clk, cat, bind, sink, log, sources{})
}

func newService(
	cfg *config.Config,
	clk *clock.Clock,
	cat *catalog.Catalog,
	bind *binder.Binder,
	sink audit.Sink,
	log *logger.Logger,
	src sources,
) (*Service, error) {
	if sink == nil {
		sink = audit.NopSink{}
	}
	svcLog := log.With("service", "ContentSelection")

	schema, err := features.NewSchema(cfg.Features, cfg.MaxPerMission, cfg.MaxSamePerMission)
	if err != nil {
		return nil, err
	}

	resourcePolicy, err := bandit.NewActionPolicy(cfg.ResourcePolicy, src.Resource)
	if err != nil {
		return nil, err
	}
	recPolicy, err := bandit.NewActionPolicy(cfg.RecommendationPolicy, src.Recommendation)
	if err != nil {
		return nil, err
	}
	intvPolicy, err := bandit.NewContextualPolicy(cfg.InterventionPolicy, schema.Dim(), src.Intervention)
	if err != nil {
		return nil, err
	}

	now := clk.Now()
	for _, run := range []struct {
		domain string
		typ    string
		params bandit.Params
	}{
		{"resource", cfg.ResourcePolicy.Type, resourcePolicy.InitialParameters()},
		{"recommendation", cfg.RecommendationPolicy.Type, recPolicy.InitialParameters()},
	} {
		raw, _ := json.Marshal(run.params)
		sink.Run(&types.BanditRun{
			Domain:     run.domain,
			PolicyType: run.typ,
			Parameters: datatypes.JSON(raw),
			CreatedAt:  now,
		})
	}
	if intvPolicy != nil {
		raw, _ := json.Marshal(intvPolicy.InitialParameters())
		sink.Run(&types.BanditRun{
			Domain:     "intervention",
			PolicyType: cfg.InterventionPolicy.Type,
			Parameters: datatypes.JSON(raw),
			CreatedAt:  now,
		})
	}

	users := NewManager(clk, cfg, log)
	eng := NewEngine(cfg, clk, cat, schema, bind, sink, resourcePolicy, recPolicy, intvPolicy, log)
	rec := NewReconciler(cfg, clk, cat, schema, bind, users, eng, sink, log)

	return &Service{
		cfg:   cfg,
		clk:   clk,
		cat:   cat,
		users: users,
		bind:  bind,
		eng:   eng,
		rec:   rec,
		sink:  sink,
		log:   svcLog,
	}, nil
}

func (s *Service) Users() *Manager { return s.users }

var eventPriority = map[string]int{
	EventSent:   0,
	EventOpened: 1,
	EventRated:  2,
}

func (s *Service) sortEvents(events []FeedbackEvent) []FeedbackEvent {
	type keyed struct {
		ev  FeedbackEvent
		ts  time.Time
		pri int
	}
	now := s.clk.Now()
	ks := make([]keyed, len(events))
	for i, ev := range events {
		ev.seq = s.seq.Add(1)
		ts, err := clock.Parse(ev.Timestamp)
		if err != nil {
			// Unparseable timestamps sink to the end deterministically.
			ts = now
		}
		pri, ok := eventPriority[ev.Name]
		if !ok {
			pri = 99
		}
		ks[i] = keyed{ev: ev, ts: ts, pri: pri}
	}
	sort.SliceStable(ks, func(i, j int) bool {
		if !ks[i].ts.Equal(ks[j].ts) {
			return ks[i].ts.Before(ks[j].ts)
		}
		if ks[i].pri != ks[j].pri {
			return ks[i].pri < ks[j].pri
		}
		if ks[i].ev.CorrelationID != ks[j].ev.CorrelationID {
			return ks[i].ev.CorrelationID < ks[j].ev.CorrelationID
		}
		return ks[i].ev.seq < ks[j].ev.seq
	})
	out := make([]FeedbackEvent, len(ks))
	for i, k := range ks {
		out[i] = k.ev
	}
	return out
}

type missionEvent struct {
	ts        time.Time
	kind      int // 0 = select, 1 = accomplish
	seq       int64
	sel       MissionSelection
	finishTS  *time.Time
	missionID string
	score     *float64
}

// Update applies one orchestrator batch: registrations, assessments,
// feedback ordering, mission lifecycle events, optional learning,
// account state, then slate generation when intervention is on.
func (s *Service) Update(ctx context.Context, batch Batch, isLearning, isIntervention bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Info("Applying update batch", "learning", isLearning, "intervention", isIntervention)

	if len(batch.NewUsers) > 0 {
		s.users.AddUsers(batch.NewUsers)
	}

	if len(batch.HealthAssessments) > 0 {
		filtered := map[string][]AssessmentEntry{}
		for userID, entries := range batch.HealthAssessments {
			if !s.users.Has(userID) {
				s.log.Warn("User not found, skipping health assessments", "user_id", userID)
				continue
			}
			filtered[userID] = entries
		}
		s.users.UpdateHealthHabits(filtered)
	}

	feedback := map[string]Feedback{}
	for userID, fb := range batch.Feedback {
		if !s.users.Has(userID) {
			s.log.Warn("User not found, skipping feedback", "user_id", userID)
			continue
		}
		feedback[userID] = Feedback{Events: s.sortEvents(fb.Events)}
	}

	missionUpdates := map[string]MissionsUpdate{}
	for userID, mu := range batch.NewMissionsAndContents {
		if !s.users.Has(userID) {
			s.log.Warn("User not found, skipping new missions", "user_id", userID)
			continue
		}
		missionUpdates[userID] = mu
	}

	s.applyMissionEvents(feedback, missionUpdates)

	if isLearning && len(feedback) > 0 {
		s.rec.UpdateAll(ctx, feedback)
	}

	if len(batch.EscalationLevels) > 0 {
		s.users.UpdateEscalationLevels(batch.EscalationLevels)
	}
	if len(batch.DisabledUsers) > 0 {
		s.users.DisableUsers(batch.DisabledUsers)
	}

	if isIntervention {
		return s.selectContents(ctx)
	}
	return nil
}

// applyMissionEvents merges mission selections and accomplishments per
// user and applies them in chronological order; selections win ties.
func (s *Service) applyMissionEvents(feedback map[string]Feedback, missionUpdates map[string]MissionsUpdate) {
	merged := map[string][]missionEvent{}

	for userID, fb := range feedback {
		for _, ev := range fb.Events {
			if ev.Name != EventAccomplished {
				continue
			}
			ts, err := clock.Parse(ev.Timestamp)
			if err != nil {
				s.log.Warn("Bad accomplishment timestamp, skipping",
					"user_id", userID, "timestamp", ev.Timestamp, "error", err)
				continue
			}
			merged[userID] = append(merged[userID], missionEvent{
				ts:        ts,
				kind:      1,
				seq:       ev.seq,
				missionID: ev.MissionID,
				score:     ev.Score,
			})
		}
	}

	for userID, mu := range missionUpdates {
		for _, sel := range mu.NewMissions {
			raw := sel.SelectionTimestamp
			if raw == "" {
				raw = mu.UpdateTimestamp
			}
			ts, err := clock.Parse(raw)
			if err != nil {
				ts = s.clk.Now()
				s.log.Warn("Bad selection timestamp, using current time",
					"user_id", userID, "timestamp", raw, "error", err)
			}
			var finishTS *time.Time
			if sel.FinishTimestamp != "" {
				if ft, err := clock.Parse(sel.FinishTimestamp); err == nil {
					finishTS = &ft
				}
			}
			merged[userID] = append(merged[userID], missionEvent{
				ts:       ts,
				kind:     0,
				seq:      s.seq.Add(1),
				sel:      sel,
				finishTS: finishTS,
			})
		}
	}

	for userID, events := range merged {
		sort.SliceStable(events, func(i, j int) bool {
			if !events[i].ts.Equal(events[j].ts) {
				return events[i].ts.Before(events[j].ts)
			}
			if events[i].kind != events[j].kind {
				return events[i].kind < events[j].kind
			}
			return events[i].seq < events[j].seq
		})
		for _, ev := range events {
			if ev.kind == 0 {
				s.users.ApplyMissionSelected(userID, ev.sel, ev.ts, ev.finishTS, ev.seq)
			} else {
				s.users.ApplyMissionAccomplished(userID, ev.missionID, ev.score, ev.ts)
			}
		}
	}
}

// selectContents builds slates for every user awaiting a plan. Users
// are independent, so slates run in parallel; the policies and binder
// serialize internally.
func (s *Service) selectContents(ctx context.Context) error {
	var pending []*User
	for _, u := range s.users.All() {
		if u.NewPlanRequired {
			pending = append(pending, u)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, u := range pending {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.eng.SelectSlate(gctx, u)
			return nil
		})
	}
	return g.Wait()
}

// SelectedContents returns the latest slate per user whose mission
// start falls in [start, end); nil bounds are open.
func (s *Service) SelectedContents(start, end *time.Time) map[string]*Slate {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]*Slate{}
	for userID, u := range s.users.All() {
		if u.Selected == nil {
			continue
		}
		ts, err := clock.Parse(u.Selected.MissionStartTime)
		if err != nil {
			s.log.Warn("Unparseable slate start time", "user_id", userID, "error", err)
			continue
		}
		if start != nil && ts.Before(*start) {
			continue
		}
		if end != nil && !ts.Before(*end) {
			continue
		}
		out[userID] = u.Selected
	}
	return out
}

// UserPlan confirms which plan the orchestrator actually scheduled.
type UserPlan struct {
	UserID string
	PlanID string
}

func (s *Service) SaveRecommendationPlans(plans []UserPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range plans {
		u := s.users.Get(p.UserID)
		if u == nil {
			s.log.Warn("User not found for saving weekly plan", "user_id", p.UserID)
			continue
		}
		u.CurrentPlanID = p.PlanID
		u.NewPlanRequired = false
	}
}
