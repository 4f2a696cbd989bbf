package selection

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

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

const (
	updateSourceImmediate = "immediate"
	updateSourcePrompted  = "end_of_period"
)

// Reconciler turns delivery and rating feedback into posterior
// updates. Feedback from prescribed missions never reaches the
// policies, and any context the binder lost is reconstructed offline
// to the exact vectors the live path produced.
type Reconciler struct {
	cfg    *config.Config
	clk    *clock.Clock
	cat    *catalog.Catalog
	schema *features.Schema
	bind   *binder.Binder
	users  *Manager
	eng    *Engine
	sink   audit.Sink
	log    *logger.Logger
}

func NewReconciler(
	cfg *config.Config,
	clk *clock.Clock,
	cat *catalog.Catalog,
	schema *features.Schema,
	bind *binder.Binder,
	users *Manager,
	eng *Engine,
	sink audit.Sink,
	log *logger.Logger,
) *Reconciler {
	return &Reconciler{
		cfg:    cfg,
		clk:    clk,
		cat:    cat,
		schema: schema,
		bind:   bind,
		users:  users,
		eng:    eng,
		sink:   sink,
		log:    log.With("service", "Reconciler"),
	}
}

// UpdateAll applies one feedback batch. Users apply in id order so an
// identical batch always replays to the identical posterior; the
// logistic update is order-sensitive. Malformed events are skipped
// with a warning; the batch always runs to completion.
func (r *Reconciler) UpdateAll(ctx context.Context, feedback map[string]Feedback) {
	userIDs := make([]string, 0, len(feedback))
	for userID := range feedback {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		fb := feedback[userID]
		u := r.users.Get(userID)
		if u == nil {
			r.log.Warn("User not found, skipping feedback", "user_id", userID)
			continue
		}
		for _, ev := range fb.Events {
			ts, err := clock.Parse(ev.Timestamp)
			if err != nil {
				r.log.Warn("Bad feedback timestamp, skipping event",
					"user_id", userID, "timestamp", ev.Timestamp, "error", err)
				continue
			}
			snap := u.MissionSnapshotAt(ev.MissionID, ts)
			if snap == nil {
				r.log.Warn("No mission snapshot at event time, skipping feedback",
					"user_id", userID, "mission_id", ev.MissionID, "timestamp", ev.Timestamp)
				continue
			}
			if snap.Prescribed {
				continue
			}
			r.processSent(ctx, u, ev, ts, snap)
			r.processRatedRecommendation(ctx, u, ev, ts)
			r.processRatedResource(u, ev)
		}
	}
}

// processSent records the delivery and attaches selection context to
// the correlation id: first by consuming the binder's pending queue,
// otherwise by replaying the mission's sent sequence to rebuild the
// exact selection-time vector.
func (r *Reconciler) processSent(ctx context.Context, u *User, ev FeedbackEvent, ts time.Time, snap *MissionRecord) {
	if !ev.isSentRecommendation() {
		return
	}
	item, ok := r.cat.Recommendation(ev.ContentID)
	if !ok {
		r.log.Warn("Unknown recommendation id in sent event", "item_id", ev.ContentID)
		return
	}

	u.TrackSent(ts, ev.CorrelationID, ev.ContentID, item.Types, ev.MissionID)

	planID := u.CurrentPlanID
	if planID == "" && u.Selected != nil {
		planID = u.Selected.PlanID
	}
	if _, ok := r.bind.BindOnSent(ctx, u.ID, planID, ev.ContentID, ev.MissionID, ev.CorrelationID); ok {
		return
	}

	selTS := snap.SelectionTS
	win := &window{Start: selTS, End: selTS.Add(7 * 24 * time.Hour)}
	seq := u.sent.MissionSequence(ev.MissionID, win)

	slot := 0
	for i, e := range seq {
		if e.CorrelationID == ev.CorrelationID {
			slot = i + 1
			break
		}
	}
	if slot == 0 {
		for i, e := range seq {
			if e.ItemID == ev.ContentID && e.TS.Equal(ts) {
				slot = i + 1
				break
			}
		}
	}
	if slot == 0 {
		// Bind a minimal snapshot so a later rating lookup resolves.
		r.bind.Put(ctx, ev.CorrelationID, binder.Snapshot{
			UserID:     u.ID,
			MissionID:  ev.MissionID,
			ItemID:     ev.ContentID,
			SelectedAt: selTS,
		})
		return
	}

	fv := r.vectorForSlot(u, ev.MissionID, ev.ContentID, seq, slot, selTS, false)
	r.bind.Put(ctx, ev.CorrelationID, binder.Snapshot{
		UserID:     u.ID,
		MissionID:  ev.MissionID,
		ItemID:     ev.ContentID,
		Vector:     fv,
		SelectedAt: selTS,
	})

	if fvPrompted := r.vectorForSlot(u, ev.MissionID, ev.ContentID, seq, slot, selTS, true); fvPrompted != nil {
		u.SetEoWVector(ev.ContentID, fvPrompted)
	}
}

// vectorForSlot replays the sent sequence up to (excluding) the slot,
// accumulating offsets and availability pruning exactly as the live
// loop did, then encodes the item in that state. The prompted variant
// additionally counts the item itself, mirroring the live
// end-of-period precompute.
func (r *Reconciler) vectorForSlot(u *User, missionID, itemID string, seq []sentEntry, slot int, selTS time.Time, prompted bool) []float64 {
	avail := map[string][]string{missionID: u.AvailableRecommendations(missionID)}
	untouched := append([]string{}, avail[missionID]...)
	st := newSlateState()
	for i := 1; i < slot; i++ {
		prior := seq[i-1].ItemID
		applySelection(st, r.cfg, r.cat, missionID, prior, avail)
		u.PruneAvailable(avail, prior)
	}
	pool := avail[missionID]
	if prompted {
		// The live precompute counts the item's own selection but encodes
		// it against the pool as it stood at slate start, so quota pruning
		// must not hide the item here either.
		applySelection(st, r.cfg, r.cat, missionID, itemID, avail)
		pool = untouched
	}

	groups := buildGroups(r.schema, u, r.cat, missionID, pool, st, selTS, prompted)
	if g := groupFor(groups, itemID); g != nil {
		return append([]float64{}, g.Vector...)
	}
	return nil
}

func (r *Reconciler) processRatedRecommendation(ctx context.Context, u *User, ev FeedbackEvent, ts time.Time) {
	if !ev.isRatedRecommendation() {
		return
	}
	reward, err := r.reward(ev.Rating)
	if err != nil {
		r.log.Warn("Unusable rating, skipping event", "user_id", u.ID, "error", err)
		return
	}

	var itemID, missionID string
	var fv []float64
	source := updateSourceImmediate

	if ev.endOfMission(true) {
		source = updateSourcePrompted
		itemID, missionID = ev.ContentID, ev.MissionID
		if !r.cat.HasRecommendation(itemID) || !r.cat.HasMission(missionID) {
			r.log.Warn("Unknown recommendation or mission id in rating",
				"item_id", itemID, "mission_id", missionID)
			return
		}
		cached, ok := u.EoWVector(itemID)
		if !ok {
			r.log.Warn("No end-of-period vector cached for item; skipping rating",
				"user_id", u.ID, "item_id", itemID)
			return
		}
		fv = cached
	} else {
		snap, ok := r.bind.Lookup(ev.CorrelationID)
		if !ok {
			r.log.Warn("No binder snapshot for rating",
				"correlation_id", ev.CorrelationID, "user_id", u.ID, "item_id", ev.ContentID)
			return
		}
		itemID, fv, missionID = snap.ItemID, snap.Vector, snap.MissionID
		if itemID == "" {
			itemID = ev.ContentID
		}
		if missionID == "" {
			missionID = ev.MissionID
		}
		if !r.cat.HasRecommendation(itemID) || !r.cat.HasMission(missionID) {
			r.log.Warn("Unknown recommendation or mission id in rating",
				"item_id", itemID, "mission_id", missionID)
			return
		}
		if ev.ContentID != "" && itemID != ev.ContentID {
			r.log.Info("Bound item differs from event content id, trusting the bound decision",
				"bound_item_id", itemID, "event_item_id", ev.ContentID)
		}
	}

	u.TrackRating(ts, itemID, ev.endOfMission(false))

	if !r.eng.HasInterventionPolicy() {
		if ev.CorrelationID != "" {
			r.bind.Release(ctx, ev.CorrelationID)
		}
		r.updateRecommendationPolicy(u, itemID, reward, source)
		return
	}

	params, err := r.eng.UpdateIntervention(fv, reward)
	if err != nil {
		r.log.Warn("Intervention update failed, skipping contextual learning for this rating",
			"user_id", u.ID, "item_id", itemID, "error", err)
	} else {
		r.auditUpdate(u.ID, "intervention", itemID, reward, source, params)
	}
	if ev.CorrelationID != "" {
		r.bind.Release(ctx, ev.CorrelationID)
	}
	r.updateRecommendationPolicy(u, itemID, reward, source)
}

func (r *Reconciler) updateRecommendationPolicy(u *User, itemID string, reward float64, source string) {
	params := r.eng.UpdateRecommendation(itemID, reward)
	r.auditUpdate(u.ID, "recommendation", itemID, reward, source, params)
}

func (r *Reconciler) processRatedResource(u *User, ev FeedbackEvent) {
	if !ev.isRatedResource() {
		return
	}
	if !r.cat.HasResource(ev.ContentID) {
		r.log.Warn("Unknown resource id in rating", "item_id", ev.ContentID)
		return
	}
	reward, err := r.reward(ev.Rating)
	if err != nil {
		r.log.Warn("Unusable rating, skipping event", "user_id", u.ID, "error", err)
		return
	}
	source := updateSourceImmediate
	if ev.endOfMission(false) {
		source = updateSourcePrompted
	}
	params := r.eng.UpdateResource(ev.ContentID, reward)
	r.auditUpdate(u.ID, "resource", ev.ContentID, reward, source, params)
}

func (r *Reconciler) auditUpdate(userID, domain, action string, reward float64, source string, params bandit.Params) {
	payload, _ := json.Marshal(params)
	r.sink.Update(&types.BanditUpdate{
		UserID:     userID,
		Domain:     domain,
		Action:     action,
		Reward:     reward,
		Source:     source,
		Parameters: datatypes.JSON(payload),
		ObservedAt: r.clk.Now(),
	})
}

func (r *Reconciler) reward(rt Rating) (float64, error) {
	switch r.cfg.RewardType {
	case config.RewardThumbs:
		if rt.Thumb == "liked" {
			return 1, nil
		}
		return 0, nil
	case config.RewardFloat:
		if rt.Value == nil {
			return 0, fmt.Errorf("numeric rating missing")
		}
		return *rt.Value, nil
	}
	return 0, fmt.Errorf("unknown reward type %q", r.cfg.RewardType)
}
