package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/angewarren12/billeterie-maritime-sub002/internal/domain"
	"github.com/angewarren12/billeterie-maritime-sub002/internal/service/scan"
	"github.com/gin-gonic/gin"
)

type ScanHandler struct {
	service     scan.Validator
	logger      *slog.Logger
	debugErrors bool
}

func NewScanHandler(service scan.Validator, logger *slog.Logger, debugErrors bool) *ScanHandler {
	return &ScanHandler{service: service, logger: logger, debugErrors: debugErrors}
}

func (h *ScanHandler) Register(router *gin.RouterGroup) {
	router.POST("/validate", h.validate)
	router.POST("/sync", h.sync)
	router.POST("/bypass", h.bypass)
}

type validateRequest struct {
	ScanID     string `json:"scan_id"`
	Credential string `json:"credential" binding:"required"`
	Direction  string `json:"direction"`
	TripID     int64  `json:"trip_id"`
}

type syncRequest struct {
	DeviceID    int64       `json:"device_id"`
	Validations []syncEntry `json:"validations" binding:"required"`
}

type syncEntry struct {
	ScanID     string    `json:"scan_id"`
	Credential string    `json:"credential"`
	Direction  string    `json:"direction"`
	TripID     int64     `json:"trip_id"`
	Timestamp  time.Time `json:"timestamp"`
}

type bypassRequest struct {
	TicketID   int64  `json:"ticket_id" binding:"required"`
	Direction  string `json:"direction"`
	Supervisor string `json:"supervisor"`
	Reason     string `json:"reason" binding:"required"`
}

// validate decides a single live scan. Denials and warnings come back with
// HTTP 200: the outcome for the gate UI lives in the decision's status and
// code, not in the transport status.
func (h *ScanHandler) validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := deviceFromContext(c)
	input := scan.ValidateInput{
		ScanID:     req.ScanID,
		Credential: req.Credential,
		Direction:  parseDirection(req.Direction),
		TripID:     req.TripID,
	}
	if device != nil {
		input.DeviceID = &device.ID
	}

	decision, err := h.service.Validate(c.Request.Context(), input)
	if err != nil {
		h.systemError(c, "validate scan", err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// sync replays a batch of offline scans for the authenticated device.
func (h *ScanHandler) sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := deviceFromContext(c)
	if device == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "device identity required for sync"})
		return
	}
	// The body's device_id is advisory; the token decides the identity. A
	// mismatch means the batch was captured for another device.
	if req.DeviceID != 0 && req.DeviceID != device.ID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "device_id does not match the authenticated device"})
		return
	}

	entries := make([]scan.BatchEntry, 0, len(req.Validations))
	for _, v := range req.Validations {
		entries = append(entries, scan.BatchEntry{
			ScanID:     v.ScanID,
			Credential: v.Credential,
			Direction:  parseDirection(v.Direction),
			TripID:     v.TripID,
			Timestamp:  v.Timestamp,
		})
	}

	results, err := h.service.ValidateBatch(c.Request.Context(), device.ID, entries)
	if err != nil {
		h.systemError(c, "sync offline batch", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *ScanHandler) bypass(c *gin.Context) {
	var req bypassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	device := deviceFromContext(c)
	input := scan.BypassInput{
		TicketID:   req.TicketID,
		Direction:  parseDirection(req.Direction),
		Supervisor: req.Supervisor,
		Reason:     req.Reason,
	}
	if device != nil {
		input.DeviceID = &device.ID
	}

	decision, err := h.service.Bypass(c.Request.Context(), input)
	if err != nil {
		h.systemError(c, "bypass", err)
		return
	}

	c.JSON(http.StatusOK, decision)
}

// systemError logs the full failure server-side and returns a generic
// SYSTEM_ERROR envelope; the detail only leaks to the client in debug mode.
func (h *ScanHandler) systemError(c *gin.Context, op string, err error) {
	h.logger.Error("scan request failed", "op", op, "path", c.FullPath(), "error", err)

	body := gin.H{"status": scan.StatusError, "code": scan.CodeSystemError, "message": "validation service error"}
	if h.debugErrors {
		body["detail"] = err.Error()
	}
	c.JSON(http.StatusInternalServerError, body)
}

func parseDirection(raw string) domain.Direction {
	switch raw {
	case "exit", "EXIT":
		return domain.DirectionExit
	default:
		return domain.DirectionEntry
	}
}
