package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fleet-alerts-service/internal/model"
	"fleet-alerts-service/internal/realtime"
	"fleet-alerts-service/internal/repository"
	"fleet-alerts-service/internal/service"
)

type Handler struct {
	checks *service.CheckService
	alerts *repository.AlertRepository
	fleet  *repository.FleetRepository
	hub    *realtime.Hub
	log    zerolog.Logger
}

func NewHandler(checks *service.CheckService, alerts *repository.AlertRepository, fleet *repository.FleetRepository, hub *realtime.Hub, log zerolog.Logger) *Handler {
	return &Handler{checks: checks, alerts: alerts, fleet: fleet, hub: hub, log: log}
}

type checkRequest struct {
	Type       string `json:"type" binding:"required"`
	FuelFillID string `json:"fuel_fill_id"`
}

// runCheck is the evaluation trigger: daily sweep, fill-triggered consumption
// check or monthly report, selected by the request body.
func (h *Handler) runCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	ctx := c.Request.Context()

	switch req.Type {
	case "daily":
		if err := h.checks.RunDaily(ctx); err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(gin.H{"success": true, "message": "daily alerts checked"}))

	case "high_consumption":
		fillID, err := uuid.Parse(strings.TrimSpace(req.FuelFillID))
		if err != nil {
			c.JSON(http.StatusBadRequest, errorResponse("invalid fuel_fill_id"))
			return
		}
		if err := h.checks.CheckHighConsumption(ctx, fillID); err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(gin.H{"success": true, "message": "consumption check completed"}))

	case "monthly_report":
		period, err := h.checks.GenerateMonthlyReport(ctx)
		if err != nil {
			h.handleError(c, err)
			return
		}
		c.JSON(http.StatusOK, successResponse(gin.H{"success": true, "message": "monthly report generated", "period": period}))

	default:
		h.handleError(c, service.ErrUnknownCheckType)
	}
}

func (h *Handler) listAlerts(c *gin.Context) {
	onlyOpen := c.Query("open") == "true"

	alerts, err := h.alerts.List(c.Request.Context(), onlyOpen, 200)
	if err != nil {
		h.handleError(c, err)
		return
	}
	if alerts == nil {
		alerts = []model.Alert{}
	}
	c.JSON(http.StatusOK, successResponse(alerts))
}

func (h *Handler) unreadCount(c *gin.Context) {
	count, err := h.alerts.UnreadCount(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"count": count}))
}

func (h *Handler) acknowledgeAlert(c *gin.Context) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param("id")))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("invalid alert id"))
		return
	}

	if err := h.alerts.Acknowledge(c.Request.Context(), id); err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"acknowledged": true}))
}

func (h *Handler) applySettingsToAll(c *gin.Context) {
	updated, err := h.fleet.ApplySettingsToAll(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, successResponse(gin.H{"vehicles_updated": updated}))
}

func (h *Handler) streamAlerts(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repository.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrUnknownCheckType):
		c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
	default:
		h.log.Error().Err(err).Msg("handler error")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
	}
}

func successResponse(data interface{}) gin.H {
	return gin.H{"data": data}
}

func errorResponse(message string) gin.H {
	return gin.H{"error": message}
}
