package service

import (
	"context"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var notifTracer = otel.Tracer("service/notifications")

const (
	defaultInboxSize = 10
	maxInboxSize     = 50
)

// NotificationService is the per-user inbox. Clients poll it.
type NotificationService struct {
	store        port.NotificationStore
	pollInterval int
	opts         Options
}

// NewNotificationService creates the inbox service; pollSeconds is
// advertised to clients with every listing.
func NewNotificationService(store port.NotificationStore, pollSeconds int, opts Options) *NotificationService {
	if pollSeconds <= 0 {
		pollSeconds = 60
	}
	return &NotificationService{store: store, pollInterval: pollSeconds, opts: opts.withDefaults()}
}

// List returns the most recent notifications of the principal. The unread
// count covers the returned page only.
func (s *NotificationService) List(ctx context.Context, p *domain.Principal, limit int) (*domain.Inbox, error) {
	ctx, span := notifTracer.Start(ctx, "NotificationService.List")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	switch {
	case limit <= 0:
		limit = defaultInboxSize
	case limit > maxInboxSize:
		limit = maxInboxSize
	}
	span.SetAttributes(attribute.String("user.id", p.ID), attribute.Int("limit", limit))

	items, err := storeCall(ctx, s.opts, "ListNotifications", func(ctx context.Context) ([]domain.Notification, error) {
		return s.store.ListNotifications(ctx, p.ID, limit)
	})
	if err != nil {
		return nil, err
	}
	return domain.NewInbox(items, s.pollInterval), nil
}

// MarkRead marks one notification of the principal as read.
func (s *NotificationService) MarkRead(ctx context.Context, p *domain.Principal, id string) error {
	ctx, span := notifTracer.Start(ctx, "NotificationService.MarkRead")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return err
	}
	return storeExec(ctx, s.opts, "MarkNotificationRead", func(ctx context.Context) error {
		return s.store.MarkNotificationRead(ctx, p.ID, id)
	})
}

// MarkAllRead marks every notification of the principal as read.
func (s *NotificationService) MarkAllRead(ctx context.Context, p *domain.Principal) error {
	ctx, span := notifTracer.Start(ctx, "NotificationService.MarkAllRead")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return err
	}
	return storeExec(ctx, s.opts, "MarkAllNotificationsRead", func(ctx context.Context) error {
		return s.store.MarkAllNotificationsRead(ctx, p.ID)
	})
}
