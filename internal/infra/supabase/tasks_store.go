package supabase

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// taskRow is a tasks row with its embedded task_steps.
type taskRow struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	DueDate     *string             `json:"due_date"`
	Status      string              `json:"status"`
	Priority    domain.TaskPriority `json:"priority"`
	CreatedBy   string              `json:"created_by"`
	AssignedTo  *string             `json:"assigned_to"`
	FranchiseID string              `json:"franchise_id"`
	CreatedAt   time.Time           `json:"created_at"`
	Steps       []domain.TaskStep   `json:"task_steps"`
}

func (r taskRow) toDomain() domain.Task {
	status, ok := domain.NormalizeTaskStatus(r.Status)
	if !ok {
		status = domain.TaskTodo
	}
	steps := r.Steps
	sortSteps(steps)
	return domain.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate,
		Status:      status,
		Priority:    r.Priority,
		CreatedBy:   r.CreatedBy,
		AssignedTo:  r.AssignedTo,
		FranchiseID: r.FranchiseID,
		Steps:       steps,
		CreatedAt:   r.CreatedAt,
	}
}

func sortSteps(steps []domain.TaskStep) {
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].OrderIndex < steps[j].OrderIndex })
}

// CreateTasks inserts every task in one request and every step in a second
// one. PostgREST runs each bulk insert in a single statement; when the step
// insert fails the tasks are deleted again so the batch stays all-or-nothing.
func (c *Client) CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTasks")
	defer span.End()
	span.SetAttributes(attribute.Int("tasks.count", len(tasks)))

	if len(tasks) == 0 {
		return []domain.Task{}, nil
	}

	taskData := make([]map[string]any, 0, len(tasks))
	var stepData []map[string]any
	ids := make([]string, 0, len(tasks))
	for i := range tasks {
		t := &tasks[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		ids = append(ids, t.ID)
		taskData = append(taskData, map[string]any{
			"id":           t.ID,
			"title":        t.Title,
			"description":  t.Description,
			"due_date":     t.DueDate,
			"status":       t.Status,
			"priority":     t.Priority,
			"created_by":   t.CreatedBy,
			"assigned_to":  t.AssignedTo,
			"franchise_id": t.FranchiseID,
		})
		for j := range t.Steps {
			s := &t.Steps[j]
			if s.ID == "" {
				s.ID = uuid.New().String()
			}
			s.TaskID = t.ID
			stepData = append(stepData, map[string]any{
				"id":          s.ID,
				"task_id":     t.ID,
				"title":       s.Title,
				"completed":   s.Completed,
				"order_index": s.OrderIndex,
			})
		}
	}

	var created []taskRow
	if err := c.mutate(ctx, "tasks", http.MethodPost, "tasks", taskData, &created); err != nil {
		return nil, err
	}

	if len(stepData) > 0 {
		if err := c.mutate(ctx, "task_steps", http.MethodPost, "task_steps", stepData, nil); err != nil {
			q := url.Values{}
			q.Set("id", in(ids))
			if delErr := c.mutate(ctx, "tasks", http.MethodDelete, path("tasks", q), nil, nil); delErr != nil {
				c.logger.Error("supabase: compensating task delete failed",
					zap.Strings("task_ids", ids),
					zap.Error(delErr),
				)
			}
			return nil, err
		}
	}

	byID := make(map[string]taskRow, len(created))
	for _, r := range created {
		byID[r.ID] = r
	}
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if r, ok := byID[t.ID]; ok {
			t.CreatedAt = r.CreatedAt
		}
		out = append(out, t)
	}
	return out, nil
}

// GetTask fetches a task with its steps.
func (c *Client) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTask")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", id))

	q := url.Values{}
	q.Set("select", "*,task_steps(*)")
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []taskRow
	if err := c.query(ctx, "tasks", path("tasks", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "task", ID: id}
	}
	t := rows[0].toDomain()
	return &t, nil
}

// ListTasks returns tasks matching filter, newest first.
func (c *Client) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTasks")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*,task_steps(*)")
	q.Set("order", "created_at.desc")
	switch {
	case filter.Either && filter.FranchiseID != "":
		q.Set("or", fmt.Sprintf("(assigned_to.eq.%s,and(assigned_to.is.null,franchise_id.eq.%s))",
			filter.AssignedTo, filter.FranchiseID))
	case filter.Either || filter.AssignedTo != "":
		q.Set("assigned_to", eq(filter.AssignedTo))
	case filter.FranchiseID != "":
		q.Set("franchise_id", eq(filter.FranchiseID))
	}
	if filter.Status != "" {
		q.Set("status", eq(string(filter.Status)))
	}

	var rows []taskRow
	if err := c.query(ctx, "tasks", path("tasks", q), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// UpdateTaskStatus sets a task's status.
func (c *Client) UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateTaskStatus")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", id), attribute.String("task.status", string(status)))

	q := url.Values{}
	q.Set("id", eq(id))

	var rows []taskRow
	if err := c.mutate(ctx, "tasks", http.MethodPatch, path("tasks", q), map[string]any{"status": status}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "task", ID: id}
	}
	return nil
}

// SetStepCompleted flips one checklist item of a task.
func (c *Client) SetStepCompleted(ctx context.Context, taskID, stepID string, completed bool) error {
	ctx, span := tracer.Start(ctx, "Supabase.SetStepCompleted")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(stepID))
	q.Set("task_id", eq(taskID))

	var rows []domain.TaskStep
	if err := c.mutate(ctx, "task_steps", http.MethodPatch, path("task_steps", q), map[string]any{"completed": completed}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "task step", ID: stepID}
	}
	return nil
}

// DeleteTask removes a task; its steps cascade in the database.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTask")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(id))

	var rows []taskRow
	if err := c.mutate(ctx, "tasks", http.MethodDelete, path("tasks", q), nil, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "task", ID: id}
	}
	return nil
}

// --- Templates ---

type templateRow struct {
	domain.TaskTemplate
	TemplateSteps []domain.TemplateStep `json:"task_template_steps"`
}

func (r templateRow) toDomain() domain.TaskTemplate {
	t := r.TaskTemplate
	t.Steps = r.TemplateSteps
	sort.SliceStable(t.Steps, func(i, j int) bool { return t.Steps[i].OrderIndex < t.Steps[j].OrderIndex })
	if t.TriggerEvent == "" {
		t.TriggerEvent = domain.TriggerNone
	}
	return t
}

// CreateTemplate inserts a template and its steps.
func (c *Client) CreateTemplate(ctx context.Context, tpl *domain.TaskTemplate) (*domain.TaskTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateTemplate")
	defer span.End()

	out := *tpl
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	data := map[string]any{
		"id":            out.ID,
		"title":         out.Title,
		"description":   out.Description,
		"trigger_event": out.TriggerEvent,
	}
	if err := c.mutate(ctx, "task_templates", http.MethodPost, "task_templates", data, nil); err != nil {
		return nil, err
	}

	if len(out.Steps) == 0 {
		return &out, nil
	}
	steps := make([]map[string]any, 0, len(out.Steps))
	out.Steps = append([]domain.TemplateStep(nil), out.Steps...)
	for i := range out.Steps {
		s := &out.Steps[i]
		if s.ID == "" {
			s.ID = uuid.New().String()
		}
		s.TemplateID = out.ID
		steps = append(steps, map[string]any{
			"id":          s.ID,
			"template_id": out.ID,
			"title":       s.Title,
			"order_index": s.OrderIndex,
		})
	}
	if err := c.mutate(ctx, "task_template_steps", http.MethodPost, "task_template_steps", steps, nil); err != nil {
		q := url.Values{}
		q.Set("id", eq(out.ID))
		if delErr := c.mutate(ctx, "task_templates", http.MethodDelete, path("task_templates", q), nil, nil); delErr != nil {
			c.logger.Error("supabase: compensating template delete failed",
				zap.String("template_id", out.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}
	return &out, nil
}

// GetTemplate fetches a template with its steps.
func (c *Client) GetTemplate(ctx context.Context, id string) (*domain.TaskTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetTemplate")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*,task_template_steps(*)")
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []templateRow
	if err := c.query(ctx, "task_templates", path("task_templates", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "task template", ID: id}
	}
	t := rows[0].toDomain()
	return &t, nil
}

// ListTemplates returns every template ordered by title.
func (c *Client) ListTemplates(ctx context.Context) ([]domain.TaskTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTemplates")
	defer span.End()

	q := url.Values{}
	q.Set("select", "*,task_template_steps(*)")
	q.Set("order", "title.asc")

	var rows []templateRow
	if err := c.query(ctx, "task_templates", path("task_templates", q), &rows); err != nil {
		return nil, err
	}
	out := make([]domain.TaskTemplate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
