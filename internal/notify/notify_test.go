package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestPreviewTruncatesAt200Characters(t *testing.T) {
	short := strings.Repeat("a", 200)
	if got := Preview(short); got != short {
		t.Fatalf("200 chars should be kept verbatim")
	}
	long := strings.Repeat("é", 250)
	got := Preview(long)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if n := len([]rune(strings.TrimSuffix(got, "..."))); n != 200 {
		t.Fatalf("expected 200 runes before ellipsis, got %d", n)
	}
}

func TestTicketResponseMessage(t *testing.T) {
	msg, err := TicketResponseMessage("https://help.example.com", TicketResponse{
		CustomerEmail: "x@y.com",
		CustomerName:  "Xavier",
		TicketTitle:   "Cannot log in",
		TicketID:      "t-1",
		AgentName:     "Agent <Smith>",
		Message:       "Try resetting your password.",
	})
	if err != nil {
		t.Fatalf("TicketResponseMessage: %v", err)
	}
	if msg.To != "x@y.com" {
		t.Fatalf("unexpected recipient %q", msg.To)
	}
	if msg.Subject != "New response to your ticket: Cannot log in" {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}
	if !strings.Contains(msg.Text, "https://help.example.com/my-tickets?ticketId=t-1") {
		t.Fatalf("missing ticket link in %q", msg.Text)
	}
	if strings.Contains(msg.HTML, "<Smith>") {
		t.Fatalf("agent name not escaped in html body")
	}
}

func TestWebhookSender(t *testing.T) {
	var received Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sender := NewWebhookSender(srv.URL, srv.Client())
	if err := sender.Send(context.Background(), Message{To: "x@y.com", Subject: "hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if received.To != "x@y.com" || received.Subject != "hi" {
		t.Fatalf("unexpected payload %+v", received)
	}
}

func TestWebhookSenderReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := NewWebhookSender(srv.URL, srv.Client()).Send(ctx, Message{To: "x@y.com"}); err == nil {
		t.Fatalf("expected error on 502")
	}
}

func TestBuildMailRejectsBadRecipient(t *testing.T) {
	if _, err := buildMail("noreply@example.com", Message{To: "not an address"}); err == nil {
		t.Fatalf("expected invalid recipient error")
	}
}
