package selection

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
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

// Slate is the weekly content plan for one user.
type Slate struct {
	Contents         []SlateItem `json:"contents"`
	MissionStartTime string      `json:"mission_start_time"`
	MissionEndTime   string      `json:"mission_end_time"`
	PlanID           string      `json:"plan_id"`
}

type SlateItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	MissionID string `json:"mission_id"`
}

type planState struct {
	PlanID       string
	ContentCount int
}

// Engine runs slate generation: the per-slot bandit loop with quota
// and business-rule enforcement. Policies are shared across users and
// serialized by policyMu; all per-user state lives on the User.
type Engine struct {
	cfg    *config.Config
	clk    *clock.Clock
	cat    *catalog.Catalog
	schema *features.Schema
	bind   *binder.Binder
	sink   audit.Sink
	log    *logger.Logger

	resourcePolicy bandit.ActionPolicy
	recPolicy      bandit.ActionPolicy
	intvPolicy     bandit.ContextualPolicy
	policyMu       sync.Mutex

	planMu sync.Mutex
	plans  map[string]*planState
}

func NewEngine(
	cfg *config.Config,
	clk *clock.Clock,
	cat *catalog.Catalog,
	schema *features.Schema,
	bind *binder.Binder,
	sink audit.Sink,
	resourcePolicy, recPolicy bandit.ActionPolicy,
	intvPolicy bandit.ContextualPolicy,
	log *logger.Logger,
) *Engine {
	return &Engine{
		cfg:            cfg,
		clk:            clk,
		cat:            cat,
		schema:         schema,
		bind:           bind,
		sink:           sink,
		log:            log.With("service", "Engine"),
		resourcePolicy: resourcePolicy,
		recPolicy:      recPolicy,
		intvPolicy:     intvPolicy,
		plans:          map[string]*planState{},
	}
}

func (e *Engine) plan(userID string) *planState {
	e.planMu.Lock()
	defer e.planMu.Unlock()
	p, ok := e.plans[userID]
	if !ok {
		p = &planState{PlanID: uuid.NewString(), ContentCount: 1}
		e.plans[userID] = p
	}
	return p
}

// rotatePlan rolls a fresh weekly plan id after a slate is produced.
func (e *Engine) rotatePlan(userID string) {
	e.planMu.Lock()
	defer e.planMu.Unlock()
	e.plans[userID] = &planState{PlanID: uuid.NewString(), ContentCount: 1}
}

func (e *Engine) CurrentPlanID(userID string) string {
	return e.plan(userID).PlanID
}

func (e *Engine) HasInterventionPolicy() bool { return e.intvPolicy != nil }

// Policy updates funnel through the engine so draws and posterior
// steps share one lock.
func (e *Engine) UpdateIntervention(fv []float64, reward float64) (bandit.Params, error) {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	return e.intvPolicy.Update(fv, reward)
}

func (e *Engine) UpdateRecommendation(itemID string, reward float64) bandit.Params {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	return e.recPolicy.Update(itemID, reward)
}

func (e *Engine) UpdateResource(itemID string, reward float64) bandit.Params {
	e.policyMu.Lock()
	defer e.policyMu.Unlock()
	return e.resourcePolicy.Update(itemID, reward)
}

// applyMandatoryOnce forces the mandatory item to the front of the
// queue on its first appearance and removes it from candidacy for the
// rest of the intervention afterwards.
func (e *Engine) applyMandatoryOnce(u *User, groups []*candidateGroup) []*candidateGroup {
	once := e.cfg.MandatoryOnceID
	host := groupFor(groups, once)
	if host == nil {
		return groups
	}
	if !u.HasHadMandatoryOnce() {
		return []*candidateGroup{{Key: host.Key, Vector: host.Vector, IDs: []string{once}}}
	}
	var out []*candidateGroup
	for _, g := range groups {
		ids := g.IDs
		if contains(ids, once) {
			ids = remove(ids, once)
		}
		if len(ids) == 0 {
			continue
		}
		out = append(out, &candidateGroup{Key: g.Key, Vector: g.Vector, IDs: ids})
	}
	return out
}

func (e *Engine) auditSample(u *User, domain, missionID, action string, sample bandit.Sample, accepted bool, plan *planState) {
	payload, _ := json.Marshal(map[string]any{
		"plan_id":       plan.PlanID,
		"content_count": plan.ContentCount,
		"sample":        sample,
	})
	e.sink.Sample(&types.BanditSample{
		UserID:          u.ID,
		Domain:          domain,
		MissionID:       missionID,
		Action:          action,
		EstimatedReward: sample.EstimatedReward,
		Accepted:        accepted,
		Payload:         datatypes.JSON(payload),
		SelectedAt:      e.clk.Now(),
	})
}

// selectOne runs one slot: the intervention policy (when enabled)
// proposes a feature vector, then the recommendation policy picks an
// item from that vector's candidates. An estimated reward at or below
// 0.5 rejects the slot unless the minimum quota is still unmet.
func (e *Engine) selectOne(u *User, groups []*candidateGroup, selectAnyway bool, missionID string, plan *planState) (string, []float64, bool) {
	groups = e.applyMandatoryOnce(u, groups)
	if len(groups) == 0 {
		return "", nil, false
	}

	sets := make([][]string, len(groups))
	vecs := make([][]float64, len(groups))
	for i, g := range groups {
		sets[i] = g.IDs
		vecs[i] = g.Vector
	}

	e.policyMu.Lock()
	defer e.policyMu.Unlock()

	if e.intvPolicy == nil {
		var sel string
		var sample bandit.Sample
		if gp, ok := e.recPolicy.(bandit.GroupPolicy); ok {
			sel, sample = gp.SelectGrouped(sets, vecs)
		} else {
			var flat []string
			for _, ids := range sets {
				flat = append(flat, ids...)
			}
			sel, sample = e.recPolicy.Select(flat)
		}
		if !selectAnyway && sample.EstimatedReward <= 0.5 {
			return "", nil, false
		}
		e.auditSample(u, "recommendation", missionID, sel, sample, true, plan)
		return sel, nil, true
	}

	ids, fv, sample := e.intvPolicy.Select(sets, vecs)
	if !selectAnyway && sample.EstimatedReward <= 0.5 {
		return "", nil, false
	}
	sel, recSample := e.recPolicy.Select(ids)
	e.auditSample(u, "recommendation", missionID, sel, recSample, true, plan)
	e.auditSample(u, "intervention", missionID, sel, sample, true, plan)
	return sel, fv, true
}

// resourcesToSend picks one not-yet-received resource per planned
// mission and marks it received optimistically.
func (e *Engine) resourcesToSend(u *User, planned []*MissionRecord, plan *planState) []SlateItem {
	var out []SlateItem
	for _, m := range planned {
		var rids []string
		for _, id := range m.Resources {
			if !contains(u.ReceivedResources(), id) {
				rids = append(rids, id)
			}
		}
		if len(rids) == 0 {
			continue
		}
		e.policyMu.Lock()
		sel, sample := e.resourcePolicy.Select(rids)
		e.policyMu.Unlock()
		e.auditSample(u, "resource", m.MissionID, sel, sample, true, plan)
		out = append(out, SlateItem{ID: sel, Type: "resource", MissionID: m.MissionID})
		u.AddReceivedResource(sel)
	}
	return out
}

// SelectSlate builds the weekly plan for one user. It reports false
// when the user has no planned mission to fill.
func (e *Engine) SelectSlate(ctx context.Context, u *User) (*Slate, string, bool) {
	planned := u.NewMissions()
	if len(planned) == 0 {
		e.log.Warn("No new missions found, skipping content selection", "user_id", u.ID)
		return nil, "", false
	}

	// The pilot delivers one mission at a time: plan only the most
	// recent selection and supersede older ones.
	chosen := planned[0]
	for _, m := range planned[1:] {
		if m.SelectionTS.After(chosen.SelectionTS) ||
			(m.SelectionTS.Equal(chosen.SelectionTS) && m.Seq > chosen.Seq) {
			chosen = m
		}
	}
	var older []string
	for _, m := range planned {
		if m.MissionID != chosen.MissionID {
			older = append(older, m.MissionID)
		}
	}
	if len(older) > 0 {
		u.SetPlanNotRequired(older...)
	}
	planned = u.NewMissions()

	plan := e.plan(u.ID)
	plan.ContentCount = 1
	resources := e.resourcesToSend(u, planned, plan)
	plan.ContentCount = len(resources)

	avail := map[string][]string{}
	availUnchanged := map[string][]string{}
	var missionOrder []string
	for _, m := range planned {
		if _, seen := avail[m.MissionID]; seen {
			continue
		}
		missionOrder = append(missionOrder, m.MissionID)
		avail[m.MissionID] = u.AvailableRecommendations(m.MissionID)
		availUnchanged[m.MissionID] = u.AvailableRecommendations(m.MissionID)
	}

	st := newSlateState()
	slots := e.cfg.MaxPerMission / len(planned)
	contents := append([]SlateItem{}, resources...)

	for _, missionID := range missionOrder {
		count := 1
		for slot := 0; slot < slots; slot++ {
			groups := buildGroups(e.schema, u, e.cat, missionID, avail[missionID], st, chosen.SelectionTS, false)
			if len(groups) == 0 {
				e.log.Warn("No candidates for mission, skipping slot", "mission_id", missionID, "user_id", u.ID)
				break
			}
			sel, fv, ok := e.selectOne(u, groups, count <= e.cfg.MinPerMission, missionID, plan)
			if !ok {
				continue
			}

			e.bind.Enqueue(binder.Snapshot{
				UserID:     u.ID,
				PlanID:     plan.PlanID,
				MissionID:  missionID,
				ItemID:     sel,
				Vector:     fv,
				SelectedAt: e.clk.Now(),
			})
			contents = append(contents, SlateItem{ID: sel, Type: "recommendation", MissionID: missionID})

			applySelection(st, e.cfg, e.cat, missionID, sel, avail)
			count++
			plan.ContentCount++

			// Anticipate the end-of-period context: encode this item as
			// prompted against the untouched pool so a later prompted
			// rating can reuse the exact vector.
			eowGroups := buildGroups(e.schema, u, e.cat, missionID, availUnchanged[missionID], st, chosen.SelectionTS, true)
			if g := groupFor(eowGroups, sel); g != nil {
				u.SetEoWVector(sel, append([]float64{}, g.Vector...))
			} else {
				e.log.Warn("No end-of-period vector found for item", "item_id", sel, "mission_id", missionID)
			}

			u.PruneAvailable(avail, sel)
			if len(avail[missionID]) == 0 {
				break
			}
		}
	}

	start := chosen.SelectionTS
	end := start.Add(7 * 24 * time.Hour)
	slate := &Slate{
		Contents:         contents,
		MissionStartTime: clock.FormatUTC(start),
		MissionEndTime:   clock.FormatUTC(end),
		PlanID:           plan.PlanID,
	}

	u.NewPlanRequired = false
	u.SetPlanNotRequired(chosen.MissionID)
	u.Selected = slate
	e.rotatePlan(u.ID)

	items, _ := json.Marshal(slate.Contents)
	e.sink.Slate(&types.SelectedSlate{
		UserID:     u.ID,
		PlanID:     slate.PlanID,
		MissionID:  chosen.MissionID,
		Items:      datatypes.JSON(items),
		SelectedAt: e.clk.Now(),
	})
	return slate, chosen.MissionID, true
}
