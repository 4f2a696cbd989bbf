package selection

import (
	"time"

	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/features"
)

// MissionRecord is one mission-selected event as the user experienced
// it. Records accumulate; the same mission can be selected repeatedly.
type MissionRecord struct {
	MissionID       string
	Recommendations []string
	Resources       []string
	Prescribed      bool
	PlanRequired    bool
	SelectionTS     time.Time
	FinishTS        *time.Time
	Seq             int64
}

type ratingEntry struct {
	TS       time.Time
	ItemID   string
	Prompted bool
}

// User is the full per-user state the engine selects and learns from.
// Access is serialized by the Manager; User itself is not locked.
type User struct {
	ID  string
	clk *clock.Clock
	cfg *config.Config

	Demographics    features.Demographics
	EscalationLevel int

	health           map[string]float64
	healthComponents map[string]map[string]float64

	Active            bool
	missionsStarted   bool
	InterventionStart *time.Time
	NewPlanRequired   bool

	missions []*MissionRecord

	// Selected is the most recent slate produced for this user;
	// CurrentPlanID tracks the plan the orchestrator confirmed.
	Selected      *Slate
	CurrentPlanID string

	sent    sentTracker
	ratings []ratingEntry

	// eowVectors caches the prompted (end-of-period) feature vector
	// per item so a later prompted rating can be credited.
	eowVectors map[string][]float64

	onceSent          map[string]bool
	receivedResources []string
	prevMissionScore  float64
}

func newUser(id string, clk *clock.Clock, cfg *config.Config, d features.Demographics, start time.Time) *User {
	return &User{
		ID:                id,
		clk:               clk,
		cfg:               cfg,
		Demographics:      d,
		health:            map[string]float64{},
		healthComponents:  map[string]map[string]float64{},
		Active:            true,
		InterventionStart: &start,
		eowVectors:        map[string][]float64{},
		onceSent:          map[string]bool{},
	}
}

func (u *User) Disable() { u.Active = false }

// ApplyMissionSelected appends the selection record and flags the user
// for planning. The intervention start date is pinned by the first
// selection and never moves afterwards.
func (u *User) ApplyMissionSelected(sel MissionSelection, selTS time.Time, finishTS *time.Time, seq int64) {
	u.missions = append(u.missions, &MissionRecord{
		MissionID:       sel.MissionID,
		Recommendations: append([]string{}, sel.Recommendations...),
		Resources:       append([]string{}, sel.Resources...),
		Prescribed:      sel.Prescribed,
		PlanRequired:    true,
		SelectionTS:     selTS,
		FinishTS:        finishTS,
		Seq:             seq,
	})
	if !u.missionsStarted {
		u.missionsStarted = true
		ts := selTS
		u.InterventionStart = &ts
	}
	u.NewPlanRequired = true
}

func (u *User) ApplyMissionAccomplished(score float64) {
	u.prevMissionScore = score
}

// NewMissions lists records still awaiting a plan.
func (u *User) NewMissions() []*MissionRecord {
	var out []*MissionRecord
	for _, m := range u.missions {
		if m.PlanRequired {
			out = append(out, m)
		}
	}
	return out
}

func (u *User) SetPlanNotRequired(missionIDs ...string) {
	for _, m := range u.missions {
		for _, id := range missionIDs {
			if m.MissionID == id {
				m.PlanRequired = false
			}
		}
	}
}

// MissionSnapshotAt returns the most recent selection of missionID at
// or before ts, or nil.
func (u *User) MissionSnapshotAt(missionID string, ts time.Time) *MissionRecord {
	var best *MissionRecord
	for _, m := range u.missions {
		if m.MissionID != missionID || m.SelectionTS.After(ts) {
			continue
		}
		if best == nil || m.SelectionTS.After(best.SelectionTS) ||
			(m.SelectionTS.Equal(best.SelectionTS) && m.Seq > best.Seq) {
			best = m
		}
	}
	return best
}

func (u *User) isWinter() bool {
	m := u.clk.Now().Month()
	return m == time.December || m == time.January || m == time.February
}

func (u *User) isSpring() bool {
	m := u.clk.Now().Month()
	return m >= time.March && m <= time.May
}

func (u *User) seasonOpen(itemID string) bool {
	switch u.cfg.SeasonalItems[itemID] {
	case "winter":
		return u.isWinter()
	case "spring":
		return u.isSpring()
	}
	return true
}

// AvailableRecommendations returns the mission's candidate pool with
// out-of-season items removed.
func (u *User) AvailableRecommendations(missionID string) []string {
	for _, m := range u.missions {
		if m.MissionID != missionID {
			continue
		}
		var out []string
		for _, id := range m.Recommendations {
			if u.seasonOpen(id) {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

// PruneAvailable applies the post-selection business rules to every
// mission pool: the mandatory-once item leaves the pool for good once
// selected, and picking either half of the exclusive pair removes the
// other for the mission.
func (u *User) PruneAvailable(avail map[string][]string, selectedID string) {
	once := u.cfg.MandatoryOnceID
	a, b := u.cfg.ExclusivePair[0], u.cfg.ExclusivePair[1]

	for missionID, pool := range avail {
		if selectedID == once && !u.onceSent[once] && contains(pool, once) {
			u.onceSent[once] = true
			pool = remove(pool, once)
		}
		if selectedID == a || selectedID == b {
			other := a
			if selectedID == a {
				other = b
			}
			if contains(pool, selectedID) && contains(pool, other) {
				pool = remove(pool, other)
			}
		}
		avail[missionID] = pool
	}
}

func (u *User) HasHadMandatoryOnce() bool {
	return u.onceSent[u.cfg.MandatoryOnceID]
}

func (u *User) AddReceivedResource(id string) {
	if !contains(u.receivedResources, id) {
		u.receivedResources = append(u.receivedResources, id)
	}
}

func (u *User) ReceivedResources() []string { return u.receivedResources }

func (u *User) TrackSent(ts time.Time, correlationID, itemID string, itemTypes []string, missionID string) {
	u.sent.Add(ts, correlationID, itemID, itemTypes, missionID)
}

func (u *User) TrackRating(ts time.Time, itemID string, prompted bool) {
	u.ratings = append(u.ratings, ratingEntry{TS: ts, ItemID: itemID, Prompted: prompted})
}

func (u *User) TotalFrequency(win *window) float64 {
	return float64(u.sent.Count(win, ""))
}

func (u *User) ItemFrequency(itemID string, win *window) float64 {
	return float64(u.sent.Count(win, itemID))
}

// TypeFrequency is the mixture-weighted past burden for an item's tag
// set, normalized by the weekly total cap.
func (u *User) TypeFrequency(itemTypes []string, win *window) float64 {
	mix := features.TypeMixture(itemTypes)
	counters := u.sent.TypeCounters(win)
	burden := 0.0
	for i := range mix {
		burden += mix[i] * counters[i]
	}
	return burden / float64(u.cfg.MaxPerMission)
}

// EngagementRate is voluntary ratings over items sent in the window;
// zero when nothing was sent.
func (u *User) EngagementRate(win *window) float64 {
	sent := u.sent.Count(win, "")
	if sent == 0 {
		return 0
	}
	vol := 0
	for _, r := range u.ratings {
		if win.contains(r.TS) && !r.Prompted {
			vol++
		}
	}
	rate := float64(vol) / float64(sent)
	if rate > 1 {
		return 1
	}
	return rate
}

// DaysInProgram since the intervention start; -1 before any mission.
func (u *User) DaysInProgram() int {
	if u.InterventionStart == nil {
		return -1
	}
	return int(u.clk.Now().Sub(*u.InterventionStart).Hours() / 24)
}

func (u *User) UpdateEscalationLevel(level int) { u.EscalationLevel = level }

// ApplyAssessment folds one health-habit assessment into the user's
// pillar scores. Unknown pillars are ignored with a warning upstream;
// component maps attach to the pillar the entry names.
func (u *User) ApplyAssessment(entry AssessmentEntry) {
	target := ""
	for pillar, score := range entry.Pillars {
		if !contains(features.Pillars, pillar) {
			continue
		}
		u.health[pillar] = score
		if features.PillarsWithComponents[pillar] {
			target = pillar
		}
	}
	if len(entry.Components) > 0 && target != "" {
		comp := u.healthComponents[target]
		if comp == nil {
			comp = map[string]float64{}
			u.healthComponents[target] = comp
		}
		for name, v := range entry.Components {
			comp[name] = v
		}
	}
	if entry.EmotionalDistress != nil {
		comp := u.healthComponents["emotional_wellbeing"]
		if comp == nil {
			comp = map[string]float64{}
			u.healthComponents["emotional_wellbeing"] = comp
		}
		comp["emotional_distress"] = *entry.EmotionalDistress
	}
}

func (u *User) HealthScores() map[string]float64 { return u.health }

func (u *User) PreviousMissionScore() float64 { return u.prevMissionScore }

func (u *User) EoWVector(itemID string) ([]float64, bool) {
	fv, ok := u.eowVectors[itemID]
	return fv, ok
}

func (u *User) SetEoWVector(itemID string, fv []float64) {
	u.eowVectors[itemID] = fv
}

// userContext assembles the user-side feature inputs with the
// past-week window anchored at the selection timestamp.
func (u *User) userContext(selTS time.Time) (features.UserContext, *window) {
	win := &window{Start: selTS.AddDate(0, 0, -7), End: selTS}
	return features.UserContext{
		Demographics:     u.Demographics,
		HealthScores:     u.health,
		DaysInProgram:    u.DaysInProgram(),
		TotalPast:        u.TotalFrequency(win),
		EngagementRate:   u.EngagementRate(win),
		PrevMissionScore: u.prevMissionScore,
	}, win
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

func remove(xs []string, s string) []string {
	out := xs[:0:0]
	for _, x := range xs {
		if x != s {
			out = append(out, x)
		}
	}
	return out
}
