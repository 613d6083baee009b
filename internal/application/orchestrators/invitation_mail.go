package orchestrators

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"coachdesk/internal/domain/account"
	"coachdesk/internal/domain/invitation"
	"coachdesk/internal/domain/outbox"
	"coachdesk/internal/domain/relationship"
)

// MailSettings describes the deployment to outgoing mail.
type MailSettings struct {
	AppBaseURL string // e.g. https://app.coachdesk.test, used to build links
}

// AcceptURL is the link an invitee follows to accept.
func (m MailSettings) AcceptURL(token string) string {
	return strings.TrimRight(m.AppBaseURL, "/") + "/invite?token=" + url.QueryEscape(token)
}

// mdRenderer converts trainer-written markdown. Raw HTML in the input is escaped
// because WithUnsafe is not set.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// renderMarkdown turns a personal message into safe HTML, falling back to escaped text.
func renderMarkdown(md string) template.HTML {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(md) + "</p>")
	}
	return template.HTML(buf.String())
}

var mailTemplates = template.Must(template.New("mail").Parse(`
{{define "invitation"}}<p>Hi{{if .FirstName}} {{.FirstName}}{{end}},</p>
<p>{{.TrainerName}} has invited you to train with them on Coachdesk.</p>
{{if .Message}}<blockquote>{{.Message}}</blockquote>{{end}}
<p><a href="{{.Link}}">Accept the invitation</a></p>
<p>This invitation expires on {{.ExpiresAt}}.</p>{{end}}
{{define "welcome"}}<p>Hi {{.ClientName}},</p>
<p>You are now training with {{.TrainerName}}. Your programs will show up when you sign in.</p>{{end}}
{{define "trainer_notify"}}<p>Hi {{.TrainerName}},</p>
<p>{{.ClientName}} ({{.ClientEmail}}) accepted your invitation and is now one of your clients.</p>{{end}}
`))

type mailData struct {
	FirstName   string
	TrainerName string
	ClientName  string
	ClientEmail string
	Message     template.HTML
	Link        string
	ExpiresAt   string
}

func renderMail(name string, data mailData) (string, error) {
	var buf bytes.Buffer
	if err := mailTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s email: %w", name, err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// invitationEmail builds the email carrying the accept link.
func invitationEmail(inv invitation.Invitation, trainer account.Account, settings MailSettings) (outbox.EmailPayload, error) {
	html, err := renderMail("invitation", mailData{
		FirstName:   inv.FirstName,
		TrainerName: trainer.DisplayName(),
		Message:     renderMarkdown(inv.PersonalMessage),
		Link:        settings.AcceptURL(inv.Token),
		ExpiresAt:   inv.ExpiresAt.UTC().Format("2 January 2006"),
	})
	if err != nil {
		return outbox.EmailPayload{}, err
	}
	return outbox.EmailPayload{
		To:      inv.Email,
		Subject: trainer.DisplayName() + " invited you to Coachdesk",
		HTML:    html,
		ReplyTo: trainer.Email,
		RefID:   inv.ID,
	}, nil
}

// welcomeEmail greets a client who just joined.
func welcomeEmail(rel relationship.Relationship, trainer, client account.Account) (outbox.EmailPayload, error) {
	html, err := renderMail("welcome", mailData{TrainerName: trainer.DisplayName(), ClientName: client.DisplayName()})
	if err != nil {
		return outbox.EmailPayload{}, err
	}
	return outbox.EmailPayload{
		To:      client.Email,
		Subject: "Welcome to " + trainer.DisplayName() + "'s coaching",
		HTML:    html,
		ReplyTo: trainer.Email,
		RefID:   rel.ID,
	}, nil
}

// trainerNotifyEmail tells a trainer a client joined.
func trainerNotifyEmail(rel relationship.Relationship, trainer, client account.Account) (outbox.EmailPayload, error) {
	html, err := renderMail("trainer_notify", mailData{
		TrainerName: trainer.DisplayName(),
		ClientName:  client.DisplayName(),
		ClientEmail: client.Email,
	})
	if err != nil {
		return outbox.EmailPayload{}, err
	}
	return outbox.EmailPayload{
		To:      trainer.Email,
		Subject: client.DisplayName() + " joined as your client",
		HTML:    html,
		RefID:   rel.ID,
	}, nil
}
