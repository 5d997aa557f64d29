package supabase

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// CreateNotifications inserts every notification in one request.
func (c *Client) CreateNotifications(ctx context.Context, notifs []domain.Notification) ([]domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateNotifications")
	defer span.End()
	span.SetAttributes(attribute.Int("notifications.count", len(notifs)))

	if len(notifs) == 0 {
		return []domain.Notification{}, nil
	}

	data := make([]map[string]any, 0, len(notifs))
	for i := range notifs {
		n := &notifs[i]
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		data = append(data, map[string]any{
			"id":      n.ID,
			"user_id": n.UserID,
			"title":   n.Title,
			"message": n.Message,
			"link":    n.Link,
			"read":    n.Read,
			"task_id": n.TaskID,
		})
	}

	created := []domain.Notification{}
	if err := c.mutate(ctx, "notifications", http.MethodPost, "notifications", data, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return notifs, nil
	}
	return created, nil
}

// ListNotifications returns a user's most recent notifications.
func (c *Client) ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListNotifications")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("order", "created_at.desc")
	q.Set("limit", strconv.Itoa(limit))

	rows := []domain.Notification{}
	if err := c.query(ctx, "notifications", path("notifications", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
func (c *Client) MarkNotificationRead(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkNotificationRead")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("user_id", eq(userID))

	var rows []domain.Notification
	if err := c.mutate(ctx, "notifications", http.MethodPatch, path("notifications", q), map[string]any{"read": true}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "notification", ID: id}
	}
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user.
func (c *Client) MarkAllNotificationsRead(ctx context.Context, userID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.MarkAllNotificationsRead")
	defer span.End()

	q := url.Values{}
	q.Set("user_id", eq(userID))
	q.Set("read", "eq.false")

	return c.mutate(ctx, "notifications", http.MethodPatch, path("notifications", q), map[string]any{"read": true}, nil)
}
