package dto

import "github.com/spec-kit/support-desk/internal/service"

// RegisterForm is the sign-up form. A role field, if posted, is never read.
type RegisterForm struct {
	Username  string `form:"username"`
	Email     string `form:"email"`
	Password1 string `form:"password1"`
	Password2 string `form:"password2"`
}

// ToInput maps the form to the service input.
func (f RegisterForm) ToInput() service.RegisterInput {
	return service.RegisterInput{
		Username:        f.Username,
		Email:           f.Email,
		Password:        f.Password1,
		PasswordConfirm: f.Password2,
	}
}

// LoginForm is the login form.
type LoginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// TicketForm is the customer ticket form. Status is deliberately absent.
type TicketForm struct {
	Subject     string `form:"subject"`
	Description string `form:"description"`
	Category    string `form:"category"`
	Priority    string `form:"priority"`
}

// ToInput maps the form to the service input.
func (f TicketForm) ToInput(upload *service.Upload) service.TicketCreateInput {
	return service.TicketCreateInput{
		Subject:     f.Subject,
		Description: f.Description,
		Category:    f.Category,
		Priority:    f.Priority,
		Attachment:  upload,
	}
}

// UpdateTicketForm is the admin update form.
type UpdateTicketForm struct {
	Response      string `form:"response"`
	Status        string `form:"status"`
	IsAIGenerated string `form:"is_ai_generated"`
}

// ToInput maps the form to the service input. Only the literal "true" marks a
// reply as AI generated.
func (f UpdateTicketForm) ToInput() service.TicketUpdateInput {
	return service.TicketUpdateInput{
		Response:      f.Response,
		Status:        f.Status,
		IsAIGenerated: f.IsAIGenerated == "true",
	}
}
