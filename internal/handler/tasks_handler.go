package handler

import (
	"net/http"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Tasks
// ============================================================

func listTasksHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/tasks")
		defer span.End()

		list, err := tasks.ListTasks(ctx, PrincipalFromContext(ctx), r.URL.Query().Get("status"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createTaskHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/tasks")
		defer span.End()

		var req domain.CreateTaskRequest
		if !decodeBody(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("task.mode", string(req.Mode)))

		res, err := tasks.CreateTask(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func toggleTaskHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tasks/{id}/toggle")
		defer span.End()

		t, err := tasks.ToggleStatus(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateTaskStatusHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tasks/{id}/status")
		defer span.End()

		var req struct {
			Status string `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		t, err := tasks.UpdateStatus(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func updateStepHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/tasks/{id}/steps/{stepId}")
		defer span.End()

		var req struct {
			Completed bool `json:"completed"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		t, err := tasks.SetStepCompleted(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), chi.URLParam(r, "stepId"), req.Completed)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, t)
	}
}

func deleteTaskHandler(tasks *service.TaskService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/tasks/{id}")
		defer span.End()

		if err := tasks.DeleteTask(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Task templates
// ============================================================

func listTemplatesHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/task-templates")
		defer span.End()

		list, err := templates.ListTemplates(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/task-templates/{id}")
		defer span.End()

		tpl, err := templates.GetTemplate(ctx, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	}
}

func createTemplateHandler(templates *service.TemplateService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/task-templates")
		defer span.End()

		var tpl domain.TaskTemplate
		if !decodeBody(w, r, &tpl) {
			return
		}

		created, err := templates.CreateTemplate(ctx, PrincipalFromContext(ctx), &tpl)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	}
}

// ============================================================
// Notifications
// ============================================================

func listNotificationsHandler(notifs *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/notifications")
		defer span.End()

		inbox, err := notifs.List(ctx, PrincipalFromContext(ctx), queryInt(r, "limit"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, inbox)
	}
}

func markReadHandler(notifs *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/{id}/read")
		defer span.End()

		if err := notifs.MarkRead(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id")); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func markAllReadHandler(notifs *service.NotificationService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/notifications/read-all")
		defer span.End()

		if err := notifs.MarkAllRead(ctx, PrincipalFromContext(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
