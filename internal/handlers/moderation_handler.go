package handlers

import (
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/circle-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type ModerationHandler struct {
	moderation *services.ModerationService
}

func NewModerationHandler(moderation *services.ModerationService) *ModerationHandler {
	return &ModerationHandler{moderation: moderation}
}

func actorFrom(c *fiber.Ctx) (services.Actor, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return services.Actor{}, err
	}
	return services.Actor{ID: userID, IsAdmin: middleware.IsAdmin(c)}, nil
}

// POST /api/reports
func (h *ModerationHandler) CreateReport(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	report, err := h.moderation.CreateReport(c.UserContext(), userID, services.CreateReportInput{
		ReportedID: req.ReportedID,
		Reason:     req.Reason,
		Details:    req.Details,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": report.ID, "status": report.Status})
}

// GET /api/admin/reports?status&page&limit
func (h *ModerationHandler) ListReports(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}

	page, limit := pageParams(c, 20, 100)
	reports, total, err := h.moderation.ListReports(c.UserContext(), actor, c.Query("status"), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(dto.ReportListResponse{Reports: reports, Total: total, Page: page, Limit: limit})
}

func (h *ModerationHandler) GetReport(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	report, err := h.moderation.GetReport(c.UserContext(), actor, reportID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

func (h *ModerationHandler) Review(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	report, err := h.moderation.Review(c.UserContext(), actor, reportID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

// Resolve answers 200 even when the side effect failed; the failure is
// reported in the warning field.
func (h *ModerationHandler) Resolve(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return unauthorized(c)
	}
	reportID, ok := paramUUID(c, "id")
	if !ok {
		return badRequest(c, "Invalid report ID")
	}

	var req dto.ResolveReportRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	result, err := h.moderation.Resolve(c.UserContext(), actor, reportID, req.Action, req.AdminNotes)
	if err != nil {
		return respondError(c, err)
	}

	resp := dto.ResolveReportResponse{Report: result.Report}
	if result.Warning != nil {
		resp.Warning = result.Warning.Error()
	}
	return c.JSON(resp)
}
