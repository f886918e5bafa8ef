package handlers

import (
	"hostelpass/internal/adapters/http/middleware"
	"hostelpass/internal/core/domain"
	"hostelpass/internal/core/services"
	"hostelpass/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler handles dashboard endpoints
type DashboardHandler struct {
	dashboardService *services.DashboardService
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

// Dashboard returns the dashboard for the caller's role
// @Summary Role dashboard
// @Description Return the dashboard matching the caller's role
// @Tags Dashboard
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /dashboard [get]
func (h *DashboardHandler) Dashboard(c *fiber.Ctx) error {
	actor := middleware.Identity(c)

	var (
		data interface{}
		err  error
	)
	switch actor.Role {
	case domain.RoleAdmin:
		data, err = h.dashboardService.GetAdminDashboard(c.Context())
	case domain.RoleAdvisor:
		data, err = h.dashboardService.GetApproverDashboard(c.Context(), domain.StageAdvisor, actor.UserID)
	case domain.RoleHOD:
		data, err = h.dashboardService.GetApproverDashboard(c.Context(), domain.StageHOD, actor.UserID)
	case domain.RoleWarden:
		data, err = h.dashboardService.GetApproverDashboard(c.Context(), domain.StageWarden, actor.UserID)
	case domain.RoleStudent:
		data, err = h.dashboardService.GetStudentDashboard(c.Context(), actor.UserID)
	case domain.RoleGuard:
		data, err = h.dashboardService.GetGuardDashboard(c.Context(), actor.UserID)
	default:
		return response.Forbidden(c, "No dashboard for your role")
	}
	if err != nil {
		return response.InternalServerError(c, "Failed to load dashboard")
	}

	return response.Success(c, "Dashboard retrieved successfully", data)
}
