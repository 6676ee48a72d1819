// Package service holds the helpdesk workflows. Every operation takes the
// principal resolved for the current request and applies the policy package
// before touching storage.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

var tracer = otel.Tracer("github.com/deskline/helpdesk-service/internal/service")

// Clock returns the current time. Services default to time.Now.
type Clock func() time.Time

func clockOrNow(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}

func loggerOrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func requirePermission(actor *domain.Principal, capability policy.Capability, message string) error {
	if actor == nil || actor.User == nil {
		return apperrors.NewUnauthenticated("authentication required")
	}
	if !policy.HasPermission(actor.Role(), capability) {
		return apperrors.NewForbidden(message)
	}
	return nil
}

// notFoundOr maps a missing row to NotFound and leaves other errors alone.
func notFoundOr(err error, resource string, id string) error {
	if repository.IsNotFound(err) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}

func duplicateOr(err error, message string, details map[string]any) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return apperrors.NewConflict(message, details)
	}
	return err
}

func actorOf(p *domain.Principal) events.Actor {
	if p == nil || p.User == nil {
		return events.Actor{}
	}
	return events.Actor{UserID: p.User.ID, Role: p.User.Role}
}

// publish hands event to dispatcher. Delivery failures never fail the
// triggering operation.
func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, now Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func displayName(u *domain.User) string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	return NameFromEmail(u.Email)
}
