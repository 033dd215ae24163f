// Package ai drafts admin replies to tickets with a generative model.
package ai

import (
	"strings"
	"text/template"

	"github.com/spec-kit/support-desk/internal/domain"
)

// DefaultOrganization is used when no organization name is configured.
const DefaultOrganization = "WeNS Pvt. Ltd."

var promptTemplate = template.Must(template.New("reply").Parse(`
You are a professional customer support assistant at **{{.Organization}}**.
Your task: generate a **concise, professional, and helpful** reply to this ticket.

Ticket Details:
- Subject: {{.Subject}}
- Description: {{.Description}}
- Priority: {{.Priority}}

### Requirements:
- Return the **reply strictly in HTML** format.
- Use only: <p>, <strong>, <em>, <ul>, and <li> tags.
- Do NOT use Markdown, plain text lists, or email-like templates.
- Focus only on providing **actionable guidance or solution** for the ticket.
- Do NOT add greetings like "Dear customer" or sign-offs like "Best regards".
`))

// BuildPrompt renders the drafting instructions for ticket.
func BuildPrompt(organization string, ticket *domain.Ticket) string {
	if organization == "" {
		organization = DefaultOrganization
	}
	var b strings.Builder
	_ = promptTemplate.Execute(&b, struct {
		Organization string
		Subject      string
		Description  string
		Priority     domain.TicketPriority
	}{organization, ticket.Subject, ticket.Description, ticket.Priority})
	return b.String()
}
