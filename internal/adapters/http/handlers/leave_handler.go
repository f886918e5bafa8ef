package handlers

import (
	"errors"

	"hostelpass/internal/adapters/http/middleware"
	"hostelpass/internal/adapters/persistence/models"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/core/services"
	"hostelpass/internal/pkg/pagination"
	"hostelpass/internal/pkg/response"
	"hostelpass/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// LeaveHandler handles leave request endpoints
type LeaveHandler struct {
	leaveService *services.LeaveService
}

// NewLeaveHandler creates a new leave handler
func NewLeaveHandler(leaveService *services.LeaveService) *LeaveHandler {
	return &LeaveHandler{
		leaveService: leaveService,
	}
}

// Create handles leave request submission
// @Summary Submit leave request
// @Description Submit a new exit-leave request (students only)
// @Tags Leaves
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateLeaveInput true "Leave request data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /leaves [post]
func (h *LeaveHandler) Create(c *fiber.Ctx) error {
	var input services.CreateLeaveInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	actor := middleware.Identity(c)

	leave, err := h.leaveService.Create(c.Context(), &input, actor)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			return response.BadRequest(c, verr.Message)
		case errors.Is(err, domain.ErrInvalidInput):
			return response.BadRequest(c, "Reason, destination and emergency contact are required")
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Forbidden(c, "Only students can submit leave requests")
		default:
			return response.InternalServerError(c, "Failed to create leave request")
		}
	}

	return response.Created(c, "Leave request submitted", fiber.Map{
		"leave": leave.ToResponse(),
	})
}

// List handles listing leave requests visible to the caller
// @Summary List leave requests
// @Description List leave requests visible to the caller's role
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by overall status" Enums(pending, approved, rejected)
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Success 200 {object} response.Response
// @Router /leaves [get]
func (h *LeaveHandler) List(c *fiber.Ctx) error {
	params := pagination.GetParams(c)
	status := c.Query("status")

	actor := middleware.Identity(c)

	leaves, total, err := h.leaveService.ListVisible(c.Context(), actor, &services.ListInput{
		Status: status,
		Offset: params.Offset,
		Limit:  params.Limit,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return response.Forbidden(c, "Your role has no leave request visibility")
		}
		return response.InternalServerError(c, "Failed to list leave requests")
	}

	responses := make([]*models.LeaveResponse, len(leaves))
	for i, leave := range leaves {
		responses[i] = leave.ToResponse()
	}

	return response.Success(c, "Leave requests retrieved",
		pagination.NewResponse(responses, params, total))
}

// Get handles fetching one leave request
// @Summary Get leave request
// @Description Get one leave request by ID, subject to role visibility
// @Tags Leaves
// @Produce json
// @Security BearerAuth
// @Param id path int true "Leave request ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid leave request ID")
	}

	actor := middleware.Identity(c)

	leave, err := h.leaveService.GetByID(c.Context(), uint(id), actor)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrLeaveNotFound):
			return response.NotFound(c, "Leave request not found")
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Forbidden(c, "You don't have access to this leave request")
		default:
			return response.InternalServerError(c, "Failed to get leave request")
		}
	}

	return response.Success(c, "Leave request retrieved", fiber.Map{
		"leave": leave.ToResponse(),
	})
}

// Decide handles an approve/reject decision on one stage
// @Summary Decide a leave request stage
// @Description Approve or reject a leave request at one approval stage
// @Tags Leaves
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Leave request ID"
// @Param stage path string true "Approval stage" Enums(advisor, hod, warden)
// @Param body body services.DecideInput true "Decision"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /leaves/{id}/decisions/{stage} [post]
func (h *LeaveHandler) Decide(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id < 1 {
		return response.BadRequest(c, "Invalid leave request ID")
	}

	stage, ok := domain.ParseStage(c.Params("stage"))
	if !ok {
		return response.BadRequest(c, "Unknown approval stage")
	}

	var input services.DecideInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	actor := middleware.Identity(c)

	leave, err := h.leaveService.Decide(c.Context(), uint(id), stage, actor, &input)
	if err != nil {
		var verr *validation.Error
		switch {
		case errors.As(err, &verr):
			return response.BadRequest(c, verr.Message)
		case errors.Is(err, domain.ErrUnknownStage):
			return response.BadRequest(c, "Unknown approval stage")
		case errors.Is(err, domain.ErrUnauthorized):
			return response.Forbidden(c, "You are not the designated approver for this request")
		case errors.Is(err, domain.ErrLeaveNotFound):
			return response.NotFound(c, "Leave request not found")
		case errors.Is(err, domain.ErrAlreadyDecided):
			return response.Conflict(c, "Leave request has already been finalized")
		case errors.Is(err, domain.ErrStagePrerequisiteNotMet):
			return response.Conflict(c, "An earlier stage has not approved this request yet")
		case errors.Is(err, domain.ErrStageAlreadyDecided):
			return response.Conflict(c, "This stage has already been decided")
		default:
			return response.InternalServerError(c, "Failed to record decision")
		}
	}

	return response.Success(c, "Decision recorded", fiber.Map{
		"leave": leave.ToResponse(),
	})
}
