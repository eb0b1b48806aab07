package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/spec-kit/helpdesk-service/internal/events"
)

// message is the one-line inbox text for a notice.
func message(n Notice, e events.Event) string {
	number := e.Ticket.TicketNumber
	switch n.Reason {
	case reasonCreatedOwner:
		if e.Ticket.Area != nil {
			return fmt.Sprintf("Your ticket %s was created and routed to %s.", number, e.Ticket.Area.Name)
		}
		return fmt.Sprintf("Your ticket %s was created.", number)
	case reasonAssigned:
		return fmt.Sprintf("Ticket %s has been assigned to you.", number)
	case reasonReassignedAway:
		return fmt.Sprintf("Ticket %s has been reassigned to someone else.", number)
	case reasonUpdated:
		return fmt.Sprintf("Ticket %s was updated.", number)
	case reasonStatusChanged:
		msg := fmt.Sprintf("Ticket %s changed from %s to %s.", number, e.OldStatus.Label(), e.NewStatus.Label())
		if c := strings.TrimSpace(e.Comment); c != "" {
			msg += " Comment: " + c
		}
		return msg
	case reasonPriorityChanged:
		return fmt.Sprintf("Ticket %s priority changed from %s to %s.", number, e.OldPriority, e.NewPriority)
	case reasonDeleted:
		return fmt.Sprintf("Ticket %s has been deleted.", number)
	case reasonComment:
		return fmt.Sprintf("New comment on ticket %s.", number)
	}
	return number
}

var emailBody = template.Must(template.New("email").Parse(`{{.Intro}}

Ticket: {{.Number}}
Description: {{.Description}}
Category: {{.Category}}
Subcategory: {{.Subcategory}}{{if .Detail}}
Detail: {{.Detail}}{{end}}
Area: {{.Area}}
Priority: {{.Priority}}
Status: {{.Status}}{{if .StatusChange}}
Status change: {{.StatusChange}}{{end}}{{if .Comment}}
Comment: {{.Comment}}{{end}}
`))

type emailData struct {
	Intro        string
	Number       string
	Description  string
	Category     string
	Subcategory  string
	Detail       string
	Area         string
	Priority     string
	Status       string
	StatusChange string
	Comment      string
}

// renderEmail returns the subject and plain-text body for a notice.
func renderEmail(n Notice, e events.Event) (string, string, error) {
	t := e.Ticket
	data := emailData{
		Intro:       message(n, e),
		Number:      t.TicketNumber,
		Description: t.Description,
		Category:    t.Category.Name,
		Subcategory: t.Subcategory.Name,
		Detail:      t.Subcategory.DetailName(),
		Area:        "Unassigned",
		Priority:    string(t.Priority),
		Status:      t.Status.Label(),
	}
	if t.Area != nil {
		data.Area = t.Area.Name
	}
	if n.Reason == reasonStatusChanged {
		data.StatusChange = fmt.Sprintf("%s -> %s", e.OldStatus.Label(), e.NewStatus.Label())
		data.Comment = strings.TrimSpace(e.Comment)
	}

	var buf bytes.Buffer
	if err := emailBody.Execute(&buf, data); err != nil {
		return "", "", err
	}
	subject := fmt.Sprintf("[%s] %s", t.TicketNumber, n.Title)
	return subject, buf.String(), nil
}
