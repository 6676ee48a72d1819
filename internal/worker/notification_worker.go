package worker

import (
	"context"

	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers on dispatcher and
// starts its worker pool. Dropped events that would have sent a message are
// counted as dropped notifications.
func StartNotificationWorker(ctx context.Context, notificationService *service.NotificationService, dispatcher *events.AsyncDispatcher, metrics *observability.Metrics, workers int) {
	if notificationService == nil || dispatcher == nil {
		return
	}
	notificationService.RegisterHandlers(dispatcher)
	dispatcher.OnDrop = func(event events.Event) {
		if notificationService.Notifies(event) {
			metrics.RecordNotification("dropped")
		}
	}
	dispatcher.Start(ctx, workers)
}
