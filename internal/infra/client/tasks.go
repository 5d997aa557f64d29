package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/elance/franquias-portal-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// CreateTask submits a task assignment. On a partial batch the error is a
// *domain.ErrPartialBatch naming the persisted tasks.
func (c *PortalClient) CreateTask(ctx context.Context, req *domain.CreateTaskRequest) (*domain.TaskBatchResult, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.CreateTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.mode", string(req.Mode)))

	var res domain.TaskBatchResult
	if err := c.send(ctx, http.MethodPost, "/v1/tasks", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ListTasks lists the tasks visible to the signed-in user.
func (c *PortalClient) ListTasks(ctx context.Context, status string) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.ListTasks")
	defer span.End()

	path := "/v1/tasks"
	if status != "" {
		path += "?" + url.Values{"status": {status}}.Encode()
	}
	var tasks []domain.Task
	if err := c.get(ctx, path, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Inbox fetches the most recent notifications of the signed-in user.
func (c *PortalClient) Inbox(ctx context.Context, limit int) (*domain.Inbox, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.Inbox")
	defer span.End()

	path := "/v1/notifications"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var inbox domain.Inbox
	if err := c.get(ctx, path, &inbox); err != nil {
		return nil, err
	}
	return &inbox, nil
}

// MarkAllRead clears the unread state of the whole inbox.
func (c *PortalClient) MarkAllRead(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "PortalClient.MarkAllRead")
	defer span.End()

	return c.send(ctx, http.MethodPost, "/v1/notifications/read-all", nil, nil)
}
