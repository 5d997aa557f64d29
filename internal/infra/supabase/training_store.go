package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// ListTrainings returns the training catalogue.
func (c *Client) ListTrainings(ctx context.Context) ([]domain.TrainingContent, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTrainings")
	defer span.End()

	q := url.Values{}
	q.Set("order", "title.asc")

	rows := []domain.TrainingContent{}
	if err := c.query(ctx, "trainings", path("trainings", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetTraining fetches one training content.
func (c *Client) GetTraining(ctx context.Context, id string) (*domain.TrainingContent, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTraining")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []domain.TrainingContent
	if err := c.query(ctx, "trainings", path("trainings", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "training", ID: id}
	}
	return &rows[0], nil
}

// CreateTraining inserts training content.
func (c *Client) CreateTraining(ctx context.Context, t *domain.TrainingContent) (*domain.TrainingContent, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTraining")
	defer span.End()

	id := t.ID
	if id == "" {
		id = uuid.New().String()
	}
	data := map[string]any{
		"id":          id,
		"title":       t.Title,
		"description": t.Description,
		"type":        t.Type,
		"url":         t.URL,
		"points":      t.Points,
	}

	var rows []domain.TrainingContent
	if err := c.mutate(ctx, "trainings", http.MethodPost, "trainings", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		out := *t
		out.ID = id
		return &out, nil
	}
	return &rows[0], nil
}

// CreateCompletion records a completion. The unique (user_id, training_id)
// index turns a repeat into *domain.ErrDuplicate.
func (c *Client) CreateCompletion(ctx context.Context, comp *domain.TrainingCompletion) error {
	ctx, span := tracer.Start(ctx, "Supabase.CreateCompletion")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", comp.UserID),
		attribute.String("training.id", comp.TrainingID),
	)

	data := map[string]any{
		"user_id":      comp.UserID,
		"training_id":  comp.TrainingID,
		"score":        comp.Score,
		"completed_at": comp.CompletedAt,
	}
	return c.mutate(ctx, "training_completions", http.MethodPost, "training_completions", data, nil)
}

// ListCompletions returns every completion.
func (c *Client) ListCompletions(ctx context.Context) ([]domain.TrainingCompletion, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListCompletions")
	defer span.End()

	q := url.Values{}
	q.Set("select", "user_id,training_id,score,completed_at")

	rows := []domain.TrainingCompletion{}
	if err := c.query(ctx, "training_completions", path("training_completions", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
