package handlers

import (
	"errors"
	"time"

	"hostelpass/internal/adapters/http/middleware"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/core/services"
	"hostelpass/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ScanHandler handles gate scan endpoints
type ScanHandler struct {
	scanService *services.ScanService
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scanService *services.ScanService) *ScanHandler {
	return &ScanHandler{
		scanService: scanService,
	}
}

// ScanRequest represents a presented gate token
type ScanRequest struct {
	Token string `json:"token"`
}

// Scan handles a gate token scan
// @Summary Process gate scan
// @Description Validate a presented gate token and record the exit or return
// @Tags Scans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body ScanRequest true "Scanned token"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /scans [post]
func (h *ScanHandler) Scan(c *fiber.Ctx) error {
	var req ScanRequest
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	staff := middleware.Identity(c)

	outcome, err := h.scanService.ProcessScan(c.Context(), req.Token, staff, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Forbidden(c, "Only gate guards can process scans")
		case errors.Is(err, domain.ErrMalformedToken):
			return response.UnprocessableEntity(c, "Token is malformed")
		case errors.Is(err, domain.ErrUnknownToken):
			return response.UnprocessableEntity(c, "Token does not match any leave request")
		case errors.Is(err, domain.ErrNotApproved):
			return response.UnprocessableEntity(c, "Leave request is not approved")
		case errors.Is(err, domain.ErrOutsideLeaveWindow):
			return response.UnprocessableEntity(c, "Scan is outside the approved leave window")
		case errors.Is(err, domain.ErrCycleAlreadyComplete):
			return response.UnprocessableEntity(c, "Exit and return have already been recorded for this leave")
		default:
			return response.InternalServerError(c, "Failed to process scan")
		}
	}

	return response.Success(c, "Scan recorded", fiber.Map{
		"scan": outcome,
	})
}

// History lists the guard's recent scans
// @Summary Guard scan history
// @Description List the calling guard's recent scan events, newest first
// @Tags Scans
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /scans/history [get]
func (h *ScanHandler) History(c *fiber.Ctx) error {
	staff := middleware.Identity(c)

	events, err := h.scanService.History(c.Context(), staff)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return response.Forbidden(c, "Only gate guards can view scan history")
		}
		return response.InternalServerError(c, "Failed to load scan history")
	}

	return response.Success(c, "Scan history retrieved", fiber.Map{
		"scans": events,
	})
}
