package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"
	"unicode/utf8"
)

const previewLength = 200

// TicketResponse carries what the customer email needs about a new response.
type TicketResponse struct {
	CustomerEmail string
	CustomerName  string
	TicketTitle   string
	TicketID      string
	AgentName     string
	Message       string
}

var ticketResponseHTML = template.Must(template.New("ticket_response").Parse(`<p>Hello {{.CustomerName}},</p>
<p>{{.AgentName}} replied to your ticket <strong>{{.TicketTitle}}</strong>:</p>
<blockquote>{{.Preview}}</blockquote>
<p><a href="{{.Link}}">View the full conversation</a></p>`))

var magicLinkHTML = template.Must(template.New("magic_link").Parse(`<p>Use the link below to sign in. It expires in {{.Minutes}} minutes and works once.</p>
<p><a href="{{.Link}}">Sign in</a></p>`))

// Preview truncates s to the first 200 characters, appending an ellipsis
// when anything was cut.
func Preview(s string) string {
	if utf8.RuneCountInString(s) <= previewLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:previewLength]) + "..."
}

// TicketLink points the customer at the ticket in the portal.
func TicketLink(baseURL, ticketID string) string {
	return fmt.Sprintf("%s/my-tickets?ticketId=%s", baseURL, url.QueryEscape(ticketID))
}

// TicketResponseMessage renders the customer notification for a response.
func TicketResponseMessage(baseURL string, n TicketResponse) (Message, error) {
	link := TicketLink(baseURL, n.TicketID)
	preview := Preview(n.Message)

	var html bytes.Buffer
	err := ticketResponseHTML.Execute(&html, map[string]string{
		"CustomerName": n.CustomerName,
		"AgentName":    n.AgentName,
		"TicketTitle":  n.TicketTitle,
		"Preview":      preview,
		"Link":         link,
	})
	if err != nil {
		return Message{}, err
	}

	text := fmt.Sprintf("Hello %s,\n\n%s replied to your ticket %q:\n\n%s\n\nView the conversation: %s\n",
		n.CustomerName, n.AgentName, n.TicketTitle, preview, link)

	return Message{
		To:      n.CustomerEmail,
		ToName:  n.CustomerName,
		Subject: "New response to your ticket: " + n.TicketTitle,
		Text:    text,
		HTML:    html.String(),
		Metadata: map[string]string{
			"kind":      "ticket_response",
			"ticket_id": n.TicketID,
		},
	}, nil
}

// MagicLinkMessage renders the sign-in email.
func MagicLinkMessage(email, link string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Minutes())
	var html bytes.Buffer
	if err := magicLinkHTML.Execute(&html, map[string]any{"Link": link, "Minutes": minutes}); err != nil {
		return Message{}, err
	}
	return Message{
		To:      email,
		Subject: "Your sign-in link",
		Text:    fmt.Sprintf("Sign in with this link (valid for %d minutes, single use):\n\n%s\n", minutes, link),
		HTML:    html.String(),
		Metadata: map[string]string{
			"kind": "magic_link",
		},
	}, nil
}
