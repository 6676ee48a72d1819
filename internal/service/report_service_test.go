package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

type failingRenderer struct{}

func (failingRenderer) Render(domain.MonthlyReport) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestMonthlyReport(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	agentID := h.agent.ID
	k := h.customerProfile("k1@example.com", "K1")
	h.ticket(k, nil)
	h.ticket(k, func(t *domain.Ticket) {
		t.Status = domain.TicketStatusClosed
		t.ClosedAt = &fixedNow
		t.AssignedToID, t.AssignedAt = &agentID, &fixedNow
	})

	admin := h.principal(h.admin)
	r, err := h.reports.Monthly(ctx, admin, 0, 0)
	if err != nil {
		t.Fatalf("Monthly: %v", err)
	}
	if r.Year != 2024 || r.Month != time.March || r.TotalTickets != 2 || r.ClosedTickets != 1 {
		t.Fatalf("unexpected report %+v", r)
	}
	if len(r.TopAgents) != 1 || r.TopAgents[0].UserID != agentID {
		t.Fatalf("unexpected top agents %+v", r.TopAgents)
	}

	empty, err := h.reports.Monthly(ctx, admin, 2024, 2)
	if err != nil || empty.TotalTickets != 0 {
		t.Fatalf("February = %+v, %v", empty, err)
	}

	_, err = h.reports.Monthly(ctx, admin, 2024, 13)
	expectCode(t, err, apperrors.CodeValidation)
	_, err = h.reports.Monthly(ctx, h.principal(h.supervisor), 2024, 3)
	expectCode(t, err, apperrors.CodeForbidden)

	doc, _, err := h.reports.MonthlyPDF(ctx, admin, 2024, 3)
	if err != nil || !bytes.HasPrefix(doc, []byte("%PDF-")) {
		t.Fatalf("MonthlyPDF: %v", err)
	}
}

func TestMonthlyPDFRendererFailure(t *testing.T) {
	h := newHarness(t)
	svc := NewReportService(h.store.Reports(), failingRenderer{}, nil, func() time.Time { return fixedNow })

	_, _, err := svc.MonthlyPDF(context.Background(), h.principal(h.admin), 2024, 3)
	expectCode(t, err, apperrors.CodeDependencyFailure)
}
