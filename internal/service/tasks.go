package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var taskTracer = otel.Tracer("service/tasks")

const tasksLink = "/admin/tarefas"

// TaskStores is the slice of the store the task engine needs.
type TaskStores interface {
	port.ProfileStore
	port.FranchiseStore
	port.TaskStore
	port.TemplateStore
	port.NotificationStore
}

// TaskService is the task assignment engine.
type TaskService struct {
	store    TaskStores
	inflight *inflight
	opts     Options
}

// NewTaskService creates the task service.
func NewTaskService(store TaskStores, opts Options) *TaskService {
	return &TaskService{store: store, inflight: newInflight(), opts: opts.withDefaults()}
}

// CreateTask turns one request into tasks plus their notifications.
//
// Franchise mode writes one task open to the whole unit and notifies every
// member. Single and multiple modes write one task per distinct target,
// filed under the target's home unit or, failing that, the creator's.
// Nothing is written when validation fails. Tasks are written in one atomic
// batch; if the notification batch then fails the error is an
// *domain.ErrPartialBatch naming the persisted tasks and the recipients left
// without a notification.
func (s *TaskService) CreateTask(ctx context.Context, creator *domain.Principal, req *domain.CreateTaskRequest) (*domain.TaskBatchResult, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.CreateTask")
	defer span.End()

	if err := requirePrincipal(creator); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &domain.ErrValidation{Field: "body", Message: "request is required"}
	}
	in := *req
	if in.Mode == "" {
		in.Mode = domain.AssignSingle
	}
	span.SetAttributes(attribute.String("task.mode", string(in.Mode)))

	if err := s.applyTemplate(ctx, &in); err != nil {
		return nil, err
	}
	targets, err := validateTaskRequest(&in)
	if err != nil {
		return nil, err
	}

	release, ok := s.inflight.acquire(submissionKey(creator.ID, &in, targets))
	if !ok {
		return nil, &domain.ErrConflict{Message: "an identical task submission is already in progress"}
	}
	defer release()

	var tasks []domain.Task
	var recipients [][]string // recipients[i] are notified about tasks[i]
	switch in.Mode {
	case domain.AssignFranchise:
		tasks, recipients, err = s.planFranchiseTask(ctx, creator, &in)
	default:
		tasks, recipients, err = s.planIndividualTasks(ctx, creator, &in, targets)
	}
	if err != nil {
		return nil, err
	}

	created, err := storeCall(ctx, s.opts, "CreateTasks", func(ctx context.Context) ([]domain.Task, error) {
		return s.store.CreateTasks(ctx, tasks)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.AddTasksCreated(string(in.Mode), len(created))

	notifs := buildTaskNotifications(in.Mode, in.Title, created, recipients)
	result := &domain.TaskBatchResult{Tasks: created, Notifications: []domain.Notification{}}
	if len(notifs) == 0 {
		return result, nil
	}

	sent, err := storeCall(ctx, s.opts, "CreateNotifications", func(ctx context.Context) ([]domain.Notification, error) {
		return s.store.CreateNotifications(ctx, notifs)
	})
	if err != nil {
		partial := &domain.ErrPartialBatch{Err: err}
		for _, t := range created {
			partial.Succeeded = append(partial.Succeeded, t.ID)
		}
		for _, n := range notifs {
			partial.Failed = append(partial.Failed, n.UserID)
		}
		s.opts.Logger.Error("tasks persisted but notifications failed",
			zap.String("created_by", creator.ID),
			zap.Strings("task_ids", partial.Succeeded),
			zap.Strings("recipients", partial.Failed),
			zap.Error(err),
		)
		return result, partial
	}
	s.opts.Metrics.AddNotifications(len(sent))
	result.Notifications = sent

	s.opts.Logger.Info("tasks created",
		zap.String("created_by", creator.ID),
		zap.String("mode", string(in.Mode)),
		zap.Int("tasks", len(created)),
		zap.Int("notifications", len(sent)),
	)
	return result, nil
}

// applyTemplate fills blank fields from the referenced template.
func (s *TaskService) applyTemplate(ctx context.Context, in *domain.CreateTaskRequest) error {
	if in.TemplateID == "" {
		return nil
	}
	tpl, err := storeCall(ctx, s.opts, "GetTemplate", func(ctx context.Context) (*domain.TaskTemplate, error) {
		return s.store.GetTemplate(ctx, in.TemplateID)
	})
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		in.Title = tpl.Title
	}
	if in.Description == "" {
		in.Description = tpl.Description
	}
	if len(in.Steps) == 0 {
		for _, st := range tpl.Steps {
			in.Steps = append(in.Steps, st.Title)
		}
	}
	return nil
}

// validateTaskRequest normalizes the request and returns the de-duplicated
// targets of individual modes.
func validateTaskRequest(in *domain.CreateTaskRequest) ([]string, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return nil, &domain.ErrValidation{Field: "priority", Message: "unknown priority '" + string(in.Priority) + "'"}
	}
	if in.DueDate != "" {
		if _, err := time.Parse("2006-01-02", in.DueDate); err != nil {
			return nil, &domain.ErrValidation{Field: "due_date", Message: "due date must be YYYY-MM-DD"}
		}
	}
	for i, st := range in.Steps {
		if strings.TrimSpace(st) == "" {
			return nil, &domain.ErrValidation{Field: "steps", Message: fmt.Sprintf("step %d has no title", i+1)}
		}
	}

	switch in.Mode {
	case domain.AssignFranchise:
		if in.FranchiseID == "" {
			return nil, &domain.ErrValidation{Field: "franchise_id", Message: "select a franchise"}
		}
		return nil, nil
	case domain.AssignSingle, domain.AssignMultiple:
		targets := dedupe(in.UserIDs)
		if len(targets) == 0 {
			return nil, &domain.ErrValidation{Field: "user_ids", Message: "select at least one user"}
		}
		if in.Mode == domain.AssignSingle && len(targets) > 1 {
			return nil, &domain.ErrValidation{Field: "user_ids", Message: "single mode takes exactly one user"}
		}
		return targets, nil
	}
	return nil, &domain.ErrValidation{Field: "mode", Message: "unknown assignment mode '" + string(in.Mode) + "'"}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func submissionKey(creatorID string, in *domain.CreateTaskRequest, targets []string) string {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)
	return strings.Join([]string{"task", creatorID, string(in.Mode), in.Title, in.FranchiseID, strings.Join(sorted, ",")}, "|")
}

func newTask(creator *domain.Principal, in *domain.CreateTaskRequest, assignee *string, franchiseID string) domain.Task {
	t := domain.Task{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     optional(in.DueDate),
		Status:      domain.TaskTodo,
		Priority:    in.Priority,
		CreatedBy:   creator.ID,
		AssignedTo:  assignee,
		FranchiseID: franchiseID,
	}
	for i, title := range in.Steps {
		t.Steps = append(t.Steps, domain.TaskStep{Title: strings.TrimSpace(title), OrderIndex: i})
	}
	return t
}

func (s *TaskService) planFranchiseTask(ctx context.Context, creator *domain.Principal, in *domain.CreateTaskRequest) ([]domain.Task, [][]string, error) {
	if _, err := storeCall(ctx, s.opts, "GetFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
		return s.store.GetFranchise(ctx, in.FranchiseID)
	}); err != nil {
		return nil, nil, err
	}
	members, err := storeCall(ctx, s.opts, "ListProfilesByFranchise", func(ctx context.Context) ([]domain.Profile, error) {
		return s.store.ListProfilesByFranchise(ctx, in.FranchiseID)
	})
	if err != nil {
		return nil, nil, err
	}

	recipients := make([]string, 0, len(members))
	for _, m := range members {
		recipients = append(recipients, m.ID)
	}
	return []domain.Task{newTask(creator, in, nil, in.FranchiseID)}, [][]string{recipients}, nil
}

func (s *TaskService) planIndividualTasks(ctx context.Context, creator *domain.Principal, in *domain.CreateTaskRequest, targets []string) ([]domain.Task, [][]string, error) {
	profiles, err := storeCall(ctx, s.opts, "ListProfilesByIDs", func(ctx context.Context) ([]domain.Profile, error) {
		return s.store.ListProfilesByIDs(ctx, targets)
	})
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[string]domain.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}

	tasks := make([]domain.Task, 0, len(targets))
	recipients := make([][]string, 0, len(targets))
	for _, id := range targets {
		p, ok := byID[id]
		if !ok {
			return nil, nil, &domain.ErrNotFound{Resource: "profile", ID: id}
		}
		franchiseID := p.HomeFranchise()
		if franchiseID == "" {
			franchiseID = creator.HomeFranchise()
		}
		if franchiseID == "" {
			return nil, nil, &domain.ErrValidation{
				Field:   "user_ids",
				Message: fmt.Sprintf("no franchise unit for user %s: neither the user nor the creator belongs to one", id),
			}
		}
		tasks = append(tasks, newTask(creator, in, strPtr(id), franchiseID))
		recipients = append(recipients, []string{id})
	}
	return tasks, recipients, nil
}

func buildTaskNotifications(mode domain.AssignmentMode, title string, tasks []domain.Task, recipients [][]string) []domain.Notification {
	var out []domain.Notification
	for i, t := range tasks {
		if i >= len(recipients) {
			break
		}
		n := domain.Notification{
			Title:   "Nova Tarefa Atribuída: " + title,
			Message: "Você recebeu uma nova tarefa.",
			Link:    tasksLink,
			TaskID:  strPtr(t.ID),
		}
		if mode == domain.AssignFranchise {
			n.Title = "Nova Tarefa de Franquia: " + title
			n.Message = "Uma nova tarefa foi atribuída à sua franquia."
		}
		for _, uid := range recipients[i] {
			n.UserID = uid
			out = append(out, n)
		}
	}
	return out
}

// ListTasks returns every task for admins, and otherwise the tasks assigned
// to the principal plus the open tasks of their franchise.
func (s *TaskService) ListTasks(ctx context.Context, p *domain.Principal, status string) ([]domain.Task, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.ListTasks")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	filter := domain.TaskFilter{}
	if status != "" {
		st, ok := domain.NormalizeTaskStatus(status)
		if !ok {
			return nil, &domain.ErrValidation{Field: "status", Message: "unknown task status '" + status + "'"}
		}
		filter.Status = st
	}
	if !p.IsAdmin() {
		filter.AssignedTo = p.ID
		filter.FranchiseID = p.HomeFranchise()
		filter.Either = true
	}
	return storeCall(ctx, s.opts, "ListTasks", func(ctx context.Context) ([]domain.Task, error) {
		return s.store.ListTasks(ctx, filter)
	})
}

// visibleTask loads a task the principal may act on.
func (s *TaskService) visibleTask(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	t, err := storeCall(ctx, s.opts, "GetTask", func(ctx context.Context) (*domain.Task, error) {
		return s.store.GetTask(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	switch {
	case p.IsAdmin(), t.CreatedBy == p.ID:
	case t.AssignedTo != nil && *t.AssignedTo == p.ID:
	case t.IsFranchiseWide() && t.FranchiseID != "" && t.FranchiseID == p.HomeFranchise():
	default:
		return nil, &domain.ErrForbidden{Action: "act on task " + id}
	}
	return t, nil
}

// ToggleStatus flips a task between done and todo. It notifies nobody.
func (s *TaskService) ToggleStatus(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.ToggleStatus")
	defer span.End()
	span.SetAttributes(attribute.String("task.id", id))

	t, err := s.visibleTask(ctx, p, id)
	if err != nil {
		return nil, err
	}
	next := domain.TaskDone
	if t.Status == domain.TaskDone {
		next = domain.TaskTodo
	}
	if err := storeExec(ctx, s.opts, "UpdateTaskStatus", func(ctx context.Context) error {
		return s.store.UpdateTaskStatus(ctx, id, next)
	}); err != nil {
		return nil, err
	}
	t.Status = next
	return t, nil
}

// UpdateStatus sets an explicit status; legacy aliases are accepted.
func (s *TaskService) UpdateStatus(ctx context.Context, p *domain.Principal, id, status string) (*domain.Task, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.UpdateStatus")
	defer span.End()

	next, ok := domain.NormalizeTaskStatus(status)
	if !ok {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown task status '" + status + "'"}
	}
	t, err := s.visibleTask(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if t.Status == next {
		return t, nil
	}
	if err := storeExec(ctx, s.opts, "UpdateTaskStatus", func(ctx context.Context) error {
		return s.store.UpdateTaskStatus(ctx, id, next)
	}); err != nil {
		return nil, err
	}
	t.Status = next
	return t, nil
}

// SetStepCompleted ticks or unticks one checklist step.
func (s *TaskService) SetStepCompleted(ctx context.Context, p *domain.Principal, taskID, stepID string, completed bool) (*domain.Task, error) {
	ctx, span := taskTracer.Start(ctx, "TaskService.SetStepCompleted")
	defer span.End()

	t, err := s.visibleTask(ctx, p, taskID)
	if err != nil {
		return nil, err
	}
	idx := -1
	for i, st := range t.Steps {
		if st.ID == stepID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "task step", ID: stepID}
	}
	if err := storeExec(ctx, s.opts, "SetStepCompleted", func(ctx context.Context) error {
		return s.store.SetStepCompleted(ctx, taskID, stepID, completed)
	}); err != nil {
		return nil, err
	}
	t.Steps[idx].Completed = completed
	return t, nil
}

// DeleteTask removes a task; only its creator or an admin may do so.
func (s *TaskService) DeleteTask(ctx context.Context, p *domain.Principal, id string) error {
	ctx, span := taskTracer.Start(ctx, "TaskService.DeleteTask")
	defer span.End()

	t, err := s.visibleTask(ctx, p, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && t.CreatedBy != p.ID {
		return &domain.ErrForbidden{Action: "delete a task created by someone else"}
	}
	err = storeExec(ctx, s.opts, "DeleteTask", func(ctx context.Context) error {
		return s.store.DeleteTask(ctx, id)
	})
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nil
	}
	return err
}
