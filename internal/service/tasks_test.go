package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/service"
)

func allTasks(t *testing.T, svc *service.TaskService) []domain.Task {
	t.Helper()
	tasks, err := svc.ListTasks(context.Background(), admin, "")
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	return tasks
}

func TestCreateTask_FranchiseFanOut(t *testing.T) {
	store := seededStore()
	metrics := observability.NewMetrics()
	svc := service.NewTaskService(store, testOptions(metrics))

	res, err := svc.CreateTask(context.Background(), creator, &domain.CreateTaskRequest{
		Title:       "Atualizar vitrine",
		Mode:        domain.AssignFranchise,
		FranchiseID: "f1",
		Steps:       []string{"Fotografar", "Publicar"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(res.Tasks))
	}
	task := res.Tasks[0]
	if task.AssignedTo != nil || task.FranchiseID != "f1" {
		t.Errorf("expected a franchise-wide task in f1, got %+v", task)
	}
	if len(task.Steps) != 2 || task.Steps[0].Title != "Fotografar" {
		t.Errorf("unexpected steps: %+v", task.Steps)
	}

	if len(res.Notifications) != 2 {
		t.Fatalf("expected 2 notifications (userA, userC), got %d", len(res.Notifications))
	}
	for _, n := range res.Notifications {
		if n.TaskID == nil || *n.TaskID != task.ID {
			t.Errorf("notification not linked to task %s: %+v", task.ID, n)
		}
		if n.Title != "Nova Tarefa de Franquia: Atualizar vitrine" || n.Link != "/admin/tarefas" {
			t.Errorf("unexpected notification: %+v", n)
		}
	}

	snap := metrics.GetSnapshot()
	if snap.TasksCreated != 1 || snap.Notifications != 2 {
		t.Errorf("unexpected metrics: %+v", snap)
	}
}

func TestCreateTask_FranchiseModeUnknownUnit(t *testing.T) {
	svc := service.NewTaskService(seededStore(), testOptions(nil))

	_, err := svc.CreateTask(context.Background(), creator, &domain.CreateTaskRequest{
		Title: "x", Mode: domain.AssignFranchise, FranchiseID: "nope",
	})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTask_MultipleTargetsWithFranchiseFallback(t *testing.T) {
	store := seededStore()
	svc := service.NewTaskService(store, testOptions(nil))

	res, err := svc.CreateTask(context.Background(), creator, &domain.CreateTaskRequest{
		Title:   "Revisar contrato",
		Mode:    domain.AssignMultiple,
		UserIDs: []string{"userA", "userB", "userA", " "},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(res.Tasks) != 2 || len(res.Notifications) != 2 {
		t.Fatalf("expected 2 tasks and 2 notifications, got %d/%d", len(res.Tasks), len(res.Notifications))
	}
	byAssignee := map[string]domain.Task{}
	for _, task := range res.Tasks {
		byAssignee[*task.AssignedTo] = task
	}
	if byAssignee["userA"].FranchiseID != "f1" {
		t.Errorf("userA's task should be filed under f1, got %q", byAssignee["userA"].FranchiseID)
	}
	if byAssignee["userB"].FranchiseID != "f2" {
		t.Errorf("userB's task should fall back to the creator's f2, got %q", byAssignee["userB"].FranchiseID)
	}
	for _, n := range res.Notifications {
		if n.TaskID == nil || byAssignee[n.UserID].ID != *n.TaskID {
			t.Errorf("notification %+v not linked to its own task", n)
		}
		if n.Title != "Nova Tarefa Atribuída: Revisar contrato" {
			t.Errorf("unexpected title %q", n.Title)
		}
	}
}

func TestCreateTask_NoResolvableFranchise(t *testing.T) {
	store := seededStore()
	svc := service.NewTaskService(store, testOptions(nil))

	_, err := svc.CreateTask(context.Background(), admin, &domain.CreateTaskRequest{
		Title: "Sem unidade", Mode: domain.AssignSingle, UserIDs: []string{"userB"},
	})
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if n := len(allTasks(t, svc)); n != 0 {
		t.Errorf("expected no writes, found %d tasks", n)
	}
}

func TestCreateTask_ValidationWritesNothing(t *testing.T) {
	tests := []struct {
		name string
		req  domain.CreateTaskRequest
	}{
		{"empty title", domain.CreateTaskRequest{Title: "   ", UserIDs: []string{"userA"}}},
		{"single with two users", domain.CreateTaskRequest{Title: "x", Mode: domain.AssignSingle, UserIDs: []string{"userA", "userC"}}},
		{"multiple without users", domain.CreateTaskRequest{Title: "x", Mode: domain.AssignMultiple}},
		{"franchise without unit", domain.CreateTaskRequest{Title: "x", Mode: domain.AssignFranchise}},
		{"bad due date", domain.CreateTaskRequest{Title: "x", UserIDs: []string{"userA"}, DueDate: "10/03/2026"}},
		{"unknown mode", domain.CreateTaskRequest{Title: "x", Mode: "broadcast", UserIDs: []string{"userA"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			svc := service.NewTaskService(store, testOptions(nil))

			_, err := svc.CreateTask(context.Background(), creator, &tt.req)
			var v *domain.ErrValidation
			if !errors.As(err, &v) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if n := len(allTasks(t, svc)); n != 0 {
				t.Errorf("expected no tasks, found %d", n)
			}
			inbox, _ := store.ListNotifications(context.Background(), "userA", 50)
			if len(inbox) != 0 {
				t.Errorf("expected no notifications, found %d", len(inbox))
			}
		})
	}
}

func TestCreateTask_PartialBatchWhenNotificationsFail(t *testing.T) {
	store := seededStore()
	svc := service.NewTaskService(failingNotifications{store}, testOptions(nil))

	res, err := svc.CreateTask(context.Background(), creator, &domain.CreateTaskRequest{
		Title: "Revisar contrato", Mode: domain.AssignMultiple, UserIDs: []string{"userA", "userC"},
	})
	var partial *domain.ErrPartialBatch
	if !errors.As(err, &partial) {
		t.Fatalf("expected ErrPartialBatch, got %v", err)
	}
	if len(partial.Succeeded) != 2 || len(partial.Failed) != 2 {
		t.Errorf("unexpected partial batch: %+v", partial)
	}
	if res == nil || len(res.Tasks) != 2 {
		t.Fatalf("persisted tasks must be returned with the error, got %+v", res)
	}
	if n := len(allTasks(t, svc)); n != 2 {
		t.Errorf("expected 2 persisted tasks, found %d", n)
	}
}

func TestCreateTask_RejectsSubmissionInFlight(t *testing.T) {
	store := &blockingTasks{Store: seededStore(), started: make(chan struct{}), release: make(chan struct{})}
	svc := service.NewTaskService(store, testOptions(nil))
	req := &domain.CreateTaskRequest{Title: "Duplo clique", UserIDs: []string{"userA"}}

	done := make(chan error, 1)
	go func() {
		_, err := svc.CreateTask(context.Background(), creator, req)
		done <- err
	}()

	select {
	case <-store.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first submission never reached the store")
	}

	_, err := svc.CreateTask(context.Background(), creator, req)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if n := len(allTasks(t, svc)); n != 1 {
		t.Errorf("expected exactly 1 task, found %d", n)
	}
}

func TestCreateTask_FromTemplate(t *testing.T) {
	store := seededStore()
	opts := testOptions(nil)
	templates := service.NewTemplateService(store, opts)
	svc := service.NewTaskService(store, opts)
	ctx := context.Background()

	tpl, err := templates.CreateTemplate(ctx, creator, &domain.TaskTemplate{
		Title: "Onboarding de arrematante",
		Steps: []domain.TemplateStep{{Title: "Coletar documentos"}, {Title: "Assinar termo"}},
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}

	res, err := svc.CreateTask(ctx, creator, &domain.CreateTaskRequest{TemplateID: tpl.ID, UserIDs: []string{"userA"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	task := res.Tasks[0]
	if task.Title != "Onboarding de arrematante" || len(task.Steps) != 2 || task.Steps[1].Title != "Assinar termo" {
		t.Errorf("template not applied: %+v", task)
	}
}

func TestListTasks_VisibilityAndToggle(t *testing.T) {
	store := seededStore()
	svc := service.NewTaskService(store, testOptions(nil))
	ctx := context.Background()

	if _, err := svc.CreateTask(ctx, creator, &domain.CreateTaskRequest{Title: "Unidade", Mode: domain.AssignFranchise, FranchiseID: "f1"}); err != nil {
		t.Fatal(err)
	}
	own, err := svc.CreateTask(ctx, creator, &domain.CreateTaskRequest{Title: "Só da Ana", UserIDs: []string{"userA"}})
	if err != nil {
		t.Fatal(err)
	}

	forC, err := svc.ListTasks(ctx, userC, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(forC) != 1 || forC[0].Title != "Unidade" {
		t.Errorf("userC should only see the franchise task, got %+v", forC)
	}

	var forbidden *domain.ErrForbidden
	if _, err := svc.ToggleStatus(ctx, userC, own.Tasks[0].ID); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	toggled, err := svc.ToggleStatus(ctx, userA, own.Tasks[0].ID)
	if err != nil || toggled.Status != domain.TaskDone {
		t.Fatalf("expected done, got %+v err=%v", toggled, err)
	}
	done, _ := svc.ListTasks(ctx, userA, "completed")
	if len(done) != 1 {
		t.Errorf("legacy alias filter should find 1 done task, got %d", len(done))
	}

	inbox, _ := store.ListNotifications(ctx, "userA", 50)
	if len(inbox) != 2 {
		t.Errorf("toggling must not notify, inbox has %d entries", len(inbox))
	}
}

func TestDeleteTask_OnlyCreatorOrAdmin(t *testing.T) {
	svc := service.NewTaskService(seededStore(), testOptions(nil))
	ctx := context.Background()

	res, err := svc.CreateTask(ctx, creator, &domain.CreateTaskRequest{Title: "Apagar", UserIDs: []string{"userA"}})
	if err != nil {
		t.Fatal(err)
	}
	id := res.Tasks[0].ID

	var forbidden *domain.ErrForbidden
	if err := svc.DeleteTask(ctx, userA, id); !errors.As(err, &forbidden) {
		t.Errorf("assignee must not delete, got %v", err)
	}
	if err := svc.DeleteTask(ctx, creator, id); err != nil {
		t.Fatalf("creator delete failed: %v", err)
	}
	var nf *domain.ErrNotFound
	if err := svc.DeleteTask(ctx, admin, id); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
