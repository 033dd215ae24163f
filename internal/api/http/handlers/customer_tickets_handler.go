package handlers

import (
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/api/dto"
	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/service"
	"github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// CustomerTicketsHandler serves the customer ticket page.
type CustomerTicketsHandler struct {
	service *service.TicketService
}

// NewCustomerTicketsHandler constructs handler.
func NewCustomerTicketsHandler(ticketService *service.TicketService) *CustomerTicketsHandler {
	return &CustomerTicketsHandler{service: ticketService}
}

// List GET /list/.
func (h *CustomerTicketsHandler) List(c *fiber.Ctx) error {
	form := dto.TicketForm{
		Category: string(domain.TicketCategoryTechnical),
		Priority: string(domain.TicketPriorityMedium),
	}
	return h.render(c, form, nil)
}

// Create POST /list/.
func (h *CustomerTicketsHandler) Create(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var form dto.TicketForm
	if err := c.BodyParser(&form); err != nil {
		return errorutil.NewBadRequest("invalid form submission")
	}

	upload, closeUpload, err := attachmentFrom(c)
	if err != nil {
		return err
	}
	defer closeUpload()

	if _, err := h.service.CreateTicket(c.UserContext(), principal.Account, form.ToInput(upload)); err != nil {
		if verr, ok := errorutil.AsValidation(err); ok {
			return h.render(c, form, verr.Fields)
		}
		return err
	}

	Flash(c, LevelSuccess, "Your ticket has been created successfully!")
	return c.Redirect(auth.CustomerHomePath)
}

// Attachment GET /tickets/attachment/:id/.
func (h *CustomerTicketsHandler) Attachment(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	id, err := ticketID(c)
	if err != nil {
		return err
	}

	att, dl, err := h.service.OpenAttachment(c.UserContext(), principal.Account, id)
	if err != nil {
		return err
	}
	if dl.RedirectURL != "" {
		return c.Redirect(dl.RedirectURL)
	}

	c.Set(fiber.HeaderContentType, att.MimeType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", strings.ReplaceAll(att.FileName, `"`, "")))
	if att.SizeBytes > 0 {
		return c.SendStream(dl.Body, int(att.SizeBytes))
	}
	return c.SendStream(dl.Body)
}

func (h *CustomerTicketsHandler) render(c *fiber.Ctx, form dto.TicketForm, fieldErrors map[string]string) error {
	principal, _ := auth.PrincipalFromContext(c)
	tickets, err := h.service.ListForCustomer(c.UserContext(), principal.Account.ID)
	if err != nil {
		return err
	}
	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}
	return Render(c, "ticket_list", fiber.Map{
		"Title":      "My tickets",
		"Tickets":    dto.NewTicketViews(tickets),
		"Form":       form,
		"Errors":     fieldErrors,
		"Categories": domain.TicketCategories,
		"Priorities": domain.TicketPriorities,
	})
}

// attachmentFrom returns the optional uploaded file and a closer for it.
func attachmentFrom(c *fiber.Ctx) (*service.Upload, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return nil, noop, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, noop, errorutil.NewBadRequest("invalid multipart form")
	}
	files := form.File["attachment"]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, noop, nil
	}
	return openUpload(files[0])
}

func openUpload(fh *multipart.FileHeader) (*service.Upload, func(), error) {
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &service.Upload{FileName: fh.Filename, Size: fh.Size, Body: f}, func() { _ = f.Close() }, nil
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, errorutil.NewNotFound("ticket", map[string]any{"id": c.Params("id")})
	}
	return int64(id), nil
}
