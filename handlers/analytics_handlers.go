// api/handlers/analytics_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"portfolio/api/analytics"
	"portfolio/api/models"
	"portfolio/api/store"
)

// AnalyticsHandlers exposes the ingestion endpoints (public, called by the
// site's tracking script) and the stats rollup (admin dashboard).
type AnalyticsHandlers struct {
	Ingestor   *analytics.Ingestor
	Aggregator *analytics.Aggregator
	log        zerolog.Logger
	timeout    time.Duration
}

func NewAnalyticsHandlers(ing *analytics.Ingestor, agg *analytics.Aggregator, timeout time.Duration, log zerolog.Logger) *AnalyticsHandlers {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AnalyticsHandlers{Ingestor: ing, Aggregator: agg, log: log, timeout: timeout}
}

func (h *AnalyticsHandlers) requestCtx(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

// StartSession handles POST /api/analytics/session/start.
func (h *AnalyticsHandlers) StartSession(c *gin.Context) {
	var req models.SessionStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	// The tracking script usually omits these; the request itself knows them.
	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	session, err := h.Ingestor.StartSession(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Str("visitor_id", req.VisitorID).Msg("failed to start session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusCreated, session)
}

// EndSession handles POST /api/analytics/session/end.
func (h *AnalyticsHandlers) EndSession(c *gin.Context) {
	var req models.SessionEndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	if err := h.Ingestor.EndSession(ctx, req.SessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to end session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session ended"})
}

// RecordPageView handles POST /api/analytics/pageview.
func (h *AnalyticsHandlers) RecordPageView(c *gin.Context) {
	var req models.PageViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	view, err := h.Ingestor.RecordPageView(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to record page view")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record page view"})
		return
	}

	c.JSON(http.StatusCreated, view)
}

// RecordDevToolsAlert handles POST /api/analytics/devtools-alert.
func (h *AnalyticsHandlers) RecordDevToolsAlert(c *gin.Context) {
	var req models.DevToolsAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if req.IPAddress == "" {
		req.IPAddress = c.ClientIP()
	}
	if req.UserAgent == "" {
		req.UserAgent = c.Request.UserAgent()
	}

	ctx, cancel := h.requestCtx(c)
	defer cancel()

	alert, err := h.Ingestor.RecordDevToolsAlert(ctx, req)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", req.SessionID).Msg("failed to record devtools alert")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record alert"})
		return
	}

	c.JSON(http.StatusCreated, alert)
}

// GetStats handles GET /api/analytics/stats. The aggregator degrades
// internally, so this endpoint always returns a structurally valid snapshot.
func (h *AnalyticsHandlers) GetStats(c *gin.Context) {
	ctx, cancel := h.requestCtx(c)
	defer cancel()

	stats := h.Aggregator.Compute(ctx, time.Now().UTC())
	c.JSON(http.StatusOK, stats)
}
