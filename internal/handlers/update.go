package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/logger"
	"github.com/yungbote/contentselect/internal/selection"
)

type NewUserDTO struct {
	EnrolmentDate     string   `json:"enrolment_date"`
	Gender            string   `json:"gender"`
	Age               *float64 `json:"age"`
	Education         string   `json:"education"`
	RecruitmentCenter string   `json:"recruitment_center"`
}

type AssessmentDTO struct {
	Timestamp         string             `json:"timestamp"`
	Pillars           map[string]float64 `json:"pillars"`
	Components        map[string]float64 `json:"components"`
	EmotionalDistress *float64           `json:"emotional_distress"`
}

type RatingDTO struct {
	Thumb string   `json:"thumb"`
	Value *float64 `json:"value"`
}

type FeedbackEventDTO struct {
	Name          string     `json:"name" binding:"required"`
	Timestamp     string     `json:"timestamp" binding:"required"`
	CorrelationID string     `json:"correlation_id"`
	ContentID     string     `json:"content_id"`
	ContentType   string     `json:"content_type"`
	MissionID     string     `json:"mission_id"`
	Rating        *RatingDTO `json:"rating"`
	Score         *float64   `json:"score"`
	EndOfMission  *bool      `json:"end_of_mission"`
}

type MissionSelectionDTO struct {
	MissionID          string   `json:"mission_id" binding:"required"`
	Recommendations    []string `json:"recommendations"`
	Resources          []string `json:"resources"`
	Prescribed         bool     `json:"prescribed"`
	SelectionTimestamp string   `json:"selection_timestamp"`
	FinishTimestamp    string   `json:"finish_timestamp"`
}

type MissionsUpdateDTO struct {
	UpdateTimestamp string                `json:"update_timestamp"`
	NewMissions     []MissionSelectionDTO `json:"new_missions"`
}

type EscalationDTO struct {
	Level int `json:"level"`
}

type UpdateRequest struct {
	NewUsers               map[string]NewUserDTO         `json:"new_users"`
	HealthAssessments      map[string][]AssessmentDTO    `json:"health_assessments"`
	Feedback               map[string][]FeedbackEventDTO `json:"feedback"`
	NewMissionsAndContents map[string]MissionsUpdateDTO  `json:"new_missions_and_contents"`
	EscalationLevels       map[string][]EscalationDTO    `json:"escalation_levels"`
	DisabledUsers          []string                      `json:"disabled_users"`
}

type PlanDTO struct {
	UserID string `json:"user_id" binding:"required"`
	PlanID string `json:"plan_id" binding:"required"`
}

// UpdateHandler is the orchestrator-facing boundary: it converts the
// wire payloads into typed batches before anything reaches the engine.
type UpdateHandler struct {
	log *logger.Logger
	svc *selection.Service
}

func NewUpdateHandler(log *logger.Logger, svc *selection.Service) *UpdateHandler {
	return &UpdateHandler{
		log: log.With("handler", "UpdateHandler"),
		svc: svc,
	}
}

func boolQuery(c *gin.Context, name string, def bool) (bool, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def, fmt.Errorf("query parameter %s: %w", name, err)
	}
	return v, nil
}

// POST /api/updates?is_learning=&is_intervention=
func (h *UpdateHandler) PostUpdates(c *gin.Context) {
	isLearning, err := boolQuery(c, "is_learning", true)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}
	isIntervention, err := boolQuery(c, "is_intervention", true)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_query", err)
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}

	batch := toBatch(req)
	if err := h.svc.Update(c.Request.Context(), batch, isLearning, isIntervention); err != nil {
		RespondError(c, http.StatusInternalServerError, "update_failed", err)
		return
	}
	RespondOK(c, gin.H{"status": "ok"})
}

// GET /api/selected-contents?start_time=&end_time=
func (h *UpdateHandler) GetSelectedContents(c *gin.Context) {
	var start, end *time.Time
	if raw := c.Query("start_time"); raw != "" {
		ts, err := clock.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_query", err)
			return
		}
		start = &ts
	}
	if raw := c.Query("end_time"); raw != "" {
		ts, err := clock.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_query", err)
			return
		}
		end = &ts
	}
	RespondOK(c, gin.H{"selected_contents": h.svc.SelectedContents(start, end)})
}

// POST /api/recommendation-plans
func (h *UpdateHandler) SavePlans(c *gin.Context) {
	var req struct {
		Plans []PlanDTO `json:"recommendation_plans" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	plans := make([]selection.UserPlan, 0, len(req.Plans))
	for _, p := range req.Plans {
		plans = append(plans, selection.UserPlan{UserID: p.UserID, PlanID: p.PlanID})
	}
	h.svc.SaveRecommendationPlans(plans)
	RespondOK(c, gin.H{"saved": len(plans)})
}

func toBatch(req UpdateRequest) selection.Batch {
	batch := selection.Batch{
		DisabledUsers: req.DisabledUsers,
	}

	if len(req.NewUsers) > 0 {
		batch.NewUsers = map[string]selection.NewUser{}
		for id, u := range req.NewUsers {
			batch.NewUsers[id] = selection.NewUser{
				EnrolmentDate:     u.EnrolmentDate,
				Gender:            u.Gender,
				Age:               u.Age,
				Education:         u.Education,
				RecruitmentCenter: u.RecruitmentCenter,
			}
		}
	}

	if len(req.HealthAssessments) > 0 {
		batch.HealthAssessments = map[string][]selection.AssessmentEntry{}
		for id, entries := range req.HealthAssessments {
			out := make([]selection.AssessmentEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, selection.AssessmentEntry{
					Timestamp:         e.Timestamp,
					Pillars:           e.Pillars,
					Components:        e.Components,
					EmotionalDistress: e.EmotionalDistress,
				})
			}
			batch.HealthAssessments[id] = out
		}
	}

	if len(req.Feedback) > 0 {
		batch.Feedback = map[string]selection.Feedback{}
		for id, events := range req.Feedback {
			out := make([]selection.FeedbackEvent, 0, len(events))
			for _, e := range events {
				ev := selection.FeedbackEvent{
					Name:          e.Name,
					Timestamp:     e.Timestamp,
					CorrelationID: e.CorrelationID,
					ContentID:     e.ContentID,
					ContentType:   e.ContentType,
					MissionID:     e.MissionID,
					Score:         e.Score,
					EndOfMission:  e.EndOfMission,
				}
				if e.Rating != nil {
					ev.Rating = selection.Rating{Thumb: e.Rating.Thumb, Value: e.Rating.Value}
				}
				out = append(out, ev)
			}
			batch.Feedback[id] = selection.Feedback{Events: out}
		}
	}

	if len(req.NewMissionsAndContents) > 0 {
		batch.NewMissionsAndContents = map[string]selection.MissionsUpdate{}
		for id, mu := range req.NewMissionsAndContents {
			missions := make([]selection.MissionSelection, 0, len(mu.NewMissions))
			for _, m := range mu.NewMissions {
				missions = append(missions, selection.MissionSelection{
					MissionID:          m.MissionID,
					Recommendations:    m.Recommendations,
					Resources:          m.Resources,
					Prescribed:         m.Prescribed,
					SelectionTimestamp: m.SelectionTimestamp,
					FinishTimestamp:    m.FinishTimestamp,
				})
			}
			batch.NewMissionsAndContents[id] = selection.MissionsUpdate{
				UpdateTimestamp: mu.UpdateTimestamp,
				NewMissions:     missions,
			}
		}
	}

	if len(req.EscalationLevels) > 0 {
		batch.EscalationLevels = map[string][]selection.EscalationEntry{}
		for id, entries := range req.EscalationLevels {
			out := make([]selection.EscalationEntry, 0, len(entries))
			for _, e := range entries {
				out = append(out, selection.EscalationEntry{Level: e.Level})
			}
			batch.EscalationLevels[id] = out
		}
	}

	return batch
}
