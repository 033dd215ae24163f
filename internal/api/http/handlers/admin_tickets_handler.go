package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/ai"
	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// InvalidRequestMessage is returned for malformed or unauthorized async calls.
const InvalidRequestMessage = "Invalid request or unauthorized."

// AdminTicketsHandler serves the admin console and its async endpoints.
type AdminTicketsHandler struct {
	service *service.TicketService
	drafter *ai.Drafter
	logger  *zap.Logger
}

// NewAdminTicketsHandler constructs handler.
func NewAdminTicketsHandler(ticketService *service.TicketService, drafter *ai.Drafter, logger *zap.Logger) *AdminTicketsHandler {
	return &AdminTicketsHandler{service: ticketService, drafter: drafter, logger: logger}
}

// List GET /admin/view_ticket/.
func (h *AdminTicketsHandler) List(c *fiber.Ctx) error {
	tickets, err := h.service.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return Render(c, "admin_ticket_list", fiber.Map{
		"Title":    "All tickets",
		"Tickets":  dto.NewTicketViews(tickets),
		"Statuses": domain.TicketStatuses,
	})
}

// Update POST /tickets/update/:id/.
func (h *AdminTicketsHandler) Update(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	var form dto.UpdateTicketForm
	if err := c.BodyParser(&form); err != nil {
		return errorutil.NewBadRequest("invalid form submission")
	}

	ticket, err := h.service.UpdateByAdmin(c.UserContext(), principal.Account, id, form.ToInput())
	if err != nil {
		return err
	}

	Flash(c, LevelSuccess, fmt.Sprintf("Ticket #%d updated successfully.", ticket.ID))
	return c.Redirect(auth.AdminHomePath)
}

// BackToList redirects non-POST requests on the update route.
func (h *AdminTicketsHandler) BackToList(c *fiber.Ctx) error {
	return c.Redirect(auth.AdminHomePath)
}

// MarkInProcess POST /tickets/mark_in_process/:id/.
func (h *AdminTicketsHandler) MarkInProcess(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := ticketID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(err.Error()))
	}

	ticket, changed, err := h.service.MarkInProcess(c.UserContext(), principal.Account, id)
	if err != nil {
		h.logger.Warn("mark in process failed", zap.Int64("ticket_id", id), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(err.Error()))
	}
	if changed {
		Flash(c, LevelInfo, fmt.Sprintf("Ticket #%d marked as In Process.", ticket.ID))
	}
	return c.JSON(dto.MarkInProcessResponse{Success: true, Status: string(ticket.Status)})
}

// InvalidRequest answers async endpoints called with the wrong method.
func (h *AdminTicketsHandler) InvalidRequest(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.Failure(InvalidRequestMessage))
}

// AIReply POST /tickets/ai_reply/:id/.
func (h *AdminTicketsHandler) AIReply(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := ticketID(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(err.Error()))
	}

	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(err.Error()))
	}

	reply, err := h.drafter.Draft(c.UserContext(), principal.Account, ticket)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.Failure(err.Error()))
	}
	return c.JSON(dto.AIReplyResponse{Success: true, Reply: reply})
}
