package selection

import (
	"sync"
	"time"

	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/config"
	"github.com/yungbote/contentselect/internal/features"
	"github.com/yungbote/contentselect/internal/logger"
)

// Manager owns the user registry. Unknown users are never created
// implicitly; callers warn and drop instead.
type Manager struct {
	mu    sync.RWMutex
	clk   *clock.Clock
	cfg   *config.Config
	log   *logger.Logger
	users map[string]*User
}

func NewManager(clk *clock.Clock, cfg *config.Config, log *logger.Logger) *Manager {
	return &Manager{
		clk:   clk,
		cfg:   cfg,
		log:   log.With("service", "UserManager"),
		users: map[string]*User{},
	}
}

func (m *Manager) Get(userID string) *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[userID]
}

func (m *Manager) Has(userID string) bool { return m.Get(userID) != nil }

// All returns a snapshot of the registered users.
func (m *Manager) All() map[string]*User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*User, len(m.users))
	for id, u := range m.users {
		out[id] = u
	}
	return out
}

// AddUsers registers (or refreshes) users. An unparseable enrolment
// date falls back to the clock with a warning; registration never
// fails on user data.
func (m *Manager) AddUsers(newUsers map[string]NewUser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, nu := range newUsers {
		enrol, err := clock.Parse(nu.EnrolmentDate)
		if err != nil {
			enrol = m.clk.Now()
			m.log.Warn("Invalid enrolment date, using current time",
				"user_id", id, "enrolment_date", nu.EnrolmentDate, "error", err)
		}
		m.users[id] = newUser(id, m.clk, m.cfg, features.Demographics{
			Gender:            nu.Gender,
			Age:               nu.Age,
			Education:         nu.Education,
			RecruitmentCenter: nu.RecruitmentCenter,
		}, enrol)
	}
}

func (m *Manager) DisableUsers(userIDs []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range userIDs {
		if u, ok := m.users[id]; ok {
			u.Disable()
		}
	}
}

func (m *Manager) UpdateEscalationLevels(levels map[string][]EscalationEntry) {
	for userID, entries := range levels {
		u := m.Get(userID)
		if u == nil {
			m.log.Warn("User not found for escalation level update", "user_id", userID)
			continue
		}
		for _, e := range entries {
			u.UpdateEscalationLevel(e.Level)
		}
	}
}

// UpdateHealthHabits applies assessments oldest-first per user.
func (m *Manager) UpdateHealthHabits(assessments map[string][]AssessmentEntry) {
	for userID, entries := range assessments {
		u := m.Get(userID)
		if u == nil {
			m.log.Warn("User not found for health habit update", "user_id", userID)
			continue
		}
		for _, e := range entries {
			for pillar := range e.Pillars {
				if !contains(features.Pillars, pillar) {
					m.log.Warn("Unknown pillar in assessment", "user_id", userID, "pillar", pillar)
				}
			}
			u.ApplyAssessment(e)
		}
	}
}

func (m *Manager) ApplyMissionSelected(userID string, sel MissionSelection, selTS time.Time, finishTS *time.Time, seq int64) {
	u := m.Get(userID)
	if u == nil {
		m.log.Warn("User not found for mission selection", "user_id", userID)
		return
	}
	u.ApplyMissionSelected(sel, selTS, finishTS, seq)
}

func (m *Manager) ApplyMissionAccomplished(userID string, missionID string, score *float64, ts time.Time) {
	u := m.Get(userID)
	if u == nil {
		m.log.Warn("User not found for mission accomplished", "user_id", userID)
		return
	}
	if u.MissionSnapshotAt(missionID, ts) == nil {
		m.log.Warn("Mission accomplished without a matching selection",
			"user_id", userID, "mission_id", missionID, "timestamp", ts)
	}
	if score != nil {
		u.ApplyMissionAccomplished(*score)
	}
}
