package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentselect/internal/catalog"
	"github.com/yungbote/contentselect/internal/logger"
)

type MissionDTO struct {
	ID              string  `json:"id" binding:"required"`
	WeeklyFrequency float64 `json:"weekly_frequency"`
	Pillar          string  `json:"pillar"`
}

type ItemDTO struct {
	ID       string   `json:"id" binding:"required"`
	Types    []string `json:"types"`
	Pillar   string   `json:"pillar"`
	Missions []string `json:"missions"`
}

// CatalogHandler receives full catalog replacements from the
// orchestrator.
type CatalogHandler struct {
	log *logger.Logger
	cat *catalog.Catalog
}

func NewCatalogHandler(log *logger.Logger, cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{
		log: log.With("handler", "CatalogHandler"),
		cat: cat,
	}
}

// POST /api/missions
func (h *CatalogHandler) SetMissions(c *gin.Context) {
	var req struct {
		Missions []MissionDTO `json:"missions" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	missions := make([]catalog.Mission, 0, len(req.Missions))
	for _, m := range req.Missions {
		missions = append(missions, catalog.Mission{
			ID:              m.ID,
			WeeklyFrequency: m.WeeklyFrequency,
			Pillar:          m.Pillar,
		})
	}
	h.cat.SetMissions(missions)
	h.log.Info("Missions catalog replaced", "count", len(missions))
	RespondOK(c, gin.H{"missions": len(missions)})
}

// POST /api/recommendations
func (h *CatalogHandler) SetRecommendations(c *gin.Context) {
	var req struct {
		Recommendations []ItemDTO `json:"recommendations" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	items := toItems(req.Recommendations)
	h.cat.SetRecommendations(items)
	h.log.Info("Recommendations catalog replaced", "count", len(items))
	RespondOK(c, gin.H{"recommendations": len(items)})
}

// POST /api/resources
func (h *CatalogHandler) SetResources(c *gin.Context) {
	var req struct {
		Resources []ItemDTO `json:"resources" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	items := toItems(req.Resources)
	h.cat.SetResources(items)
	h.log.Info("Resources catalog replaced", "count", len(items))
	RespondOK(c, gin.H{"resources": len(items)})
}

func toItems(dtos []ItemDTO) []catalog.Item {
	items := make([]catalog.Item, 0, len(dtos))
	for _, d := range dtos {
		items = append(items, catalog.Item{
			ID:       d.ID,
			Types:    d.Types,
			Pillar:   d.Pillar,
			Missions: d.Missions,
		})
	}
	return items
}
