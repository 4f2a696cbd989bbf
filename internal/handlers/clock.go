package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentselect/internal/clock"
	"github.com/yungbote/contentselect/internal/logger"
)

// ClockHandler exposes the engine clock for replay and backfill runs.
type ClockHandler struct {
	log *logger.Logger
	clk *clock.Clock
}

func NewClockHandler(log *logger.Logger, clk *clock.Clock) *ClockHandler {
	return &ClockHandler{
		log: log.With("handler", "ClockHandler"),
		clk: clk,
	}
}

// GET /api/clock
func (h *ClockHandler) GetClock(c *gin.Context) {
	RespondOK(c, gin.H{
		"mode": h.clk.Mode(),
		"now":  clock.FormatUTC(h.clk.Now()),
	})
}

// POST /api/clock/mode
func (h *ClockHandler) SetMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	if err := h.clk.SetMode(req.Mode); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_mode", err)
		return
	}
	h.log.Info("Clock mode changed", "mode", req.Mode)
	RespondOK(c, gin.H{"mode": h.clk.Mode()})
}

// POST /api/clock/time
func (h *ClockHandler) SetTime(c *gin.Context) {
	var req struct {
		Time string `json:"time" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_payload", err)
		return
	}
	ts, err := clock.Parse(req.Time)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_timestamp", err)
		return
	}
	if h.clk.Mode() != clock.ModeFrozen {
		RespondError(c, http.StatusConflict, "clock_not_frozen", clock.ErrRealClock)
		return
	}
	h.clk.Set(ts)
	RespondOK(c, gin.H{"now": clock.FormatUTC(h.clk.Now())})
}
