package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"

	"municipal-sentinel/aggregator"
	"municipal-sentinel/metrics"
	"municipal-sentinel/models"
	"municipal-sentinel/service"
	"municipal-sentinel/store"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	store  store.Store
	triage *service.Service
}

// NewHandlers creates a new handlers instance
func NewHandlers(st store.Store, triage *service.Service) *Handlers {
	return &Handlers{
		store:  st,
		triage: triage,
	}
}

// HealthCheck returns the service health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    "healthy",
		Service:   "municipal-sentinel",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// SubmitReport runs a citizen submission through the triage pipeline.
func (h *Handlers) SubmitReport(c *gin.Context) {
	var req models.SubmitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorf("Invalid request body in /report: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	result, err := h.triage.Submit(c.Request.Context(), &service.Submission{
		Image:           req.Image,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		LocationContext: req.LocationContext,
		LocationName:    req.LocationName,
		UserNotes:       req.UserNotes,
		Reporter:        req.Reporter,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotRelevant) {
			c.JSON(http.StatusOK, gin.H{
				"success":  false,
				"rejected": true,
				"message":  "Image is not related to municipal infrastructure",
			})
			return
		}
		log.Errorf("Failed to persist submission: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to save the report, please retry",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  result.Report,
		"tier":    result.Tier,
	})
}

// UpdateStatus moves a report to a new workflow status.
func (h *Handlers) UpdateStatus(c *gin.Context) {
	var req models.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Errorf("Invalid request body in /update_status: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request body",
			"error":   err.Error(),
		})
		return
	}

	if !models.IsValidStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Unknown status " + strconv.Quote(req.Status),
		})
		return
	}

	err := h.store.UpdateStatus(c.Request.Context(), req.ID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "Report not found",
				"id":      req.ID,
			})
			return
		}
		log.Errorf("Failed to update status of report %s: %v", req.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to update report status",
			"error":   err.Error(),
		})
		return
	}

	metrics.StatusUpdatesTotal.WithLabelValues(req.Status).Inc()
	c.JSON(http.StatusOK, models.UpdateStatusResponse{
		Success: true,
		Message: "Report status updated successfully",
		ID:      req.ID,
		Status:  req.Status,
	})
}

// GetReports returns every report in insertion order.
func (h *Handlers) GetReports(c *gin.Context) {
	reports, err := h.store.GetAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to get reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get reports",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(reports),
		"reports": reports,
	})
}

// GetFilteredReports returns reports matching the type and status filters.
// Filters are comma-separated; an absent filter matches everything on
// that dimension.
func (h *Handlers) GetFilteredReports(c *gin.Context) {
	reports, err := h.store.GetAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to get reports: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get reports",
			"error":   err.Error(),
		})
		return
	}

	types := splitFilter(c.Query("types"))
	statuses := splitFilter(c.Query("statuses"))
	filtered := aggregator.Filter(reports, types, statuses)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(filtered),
		"reports": filtered,
	})
}

// GetStats returns the dashboard headline numbers.
func (h *Handlers) GetStats(c *gin.Context) {
	reports, err := h.store.GetAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to get reports for stats: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get stats",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, aggregator.Stats(reports))
}

// GetLeaderboard returns per-reporter contribution counts.
func (h *Handlers) GetLeaderboard(c *gin.Context) {
	reports, err := h.store.GetAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to get reports for leaderboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get leaderboard",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"leaderboard": aggregator.Leaderboard(reports),
	})
}

// GetMap returns S2-aggregated report counts for the requested viewport.
func (h *Handlers) GetMap(c *gin.Context) {
	vp, err := parseViewPort(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": err.Error(),
		})
		return
	}

	reports, err := h.store.GetAllReports(c.Request.Context())
	if err != nil {
		log.Errorf("Failed to get reports for map: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to get map data",
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cells":   aggregator.AggregateMap(reports, vp),
	})
}

func parseViewPort(c *gin.Context) (*aggregator.ViewPort, error) {
	vp := &aggregator.ViewPort{}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"latmin", &vp.LatMin},
		{"lonmin", &vp.LonMin},
		{"latmax", &vp.LatMax},
		{"lonmax", &vp.LonMax},
	} {
		raw := c.Query(f.name)
		if raw == "" {
			return nil, errors.New(f.name + " parameter is required")
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New(f.name + " must be a valid number")
		}
		*f.dst = v
	}
	return vp, nil
}

func splitFilter(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
