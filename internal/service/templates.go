package service

import (
	"context"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"
)

// TemplateService manages task templates.
type TemplateService struct {
	store port.TemplateStore
	opts  Options
}

// NewTemplateService creates the template service.
func NewTemplateService(store port.TemplateStore, opts Options) *TemplateService {
	return &TemplateService{store: store, opts: opts.withDefaults()}
}

func (s *TemplateService) ListTemplates(ctx context.Context) ([]domain.TaskTemplate, error) {
	ctx, span := taskTracer.Start(ctx, "TemplateService.ListTemplates")
	defer span.End()

	return storeCall(ctx, s.opts, "ListTemplates", func(ctx context.Context) ([]domain.TaskTemplate, error) {
		return s.store.ListTemplates(ctx)
	})
}

func (s *TemplateService) GetTemplate(ctx context.Context, id string) (*domain.TaskTemplate, error) {
	ctx, span := taskTracer.Start(ctx, "TemplateService.GetTemplate")
	defer span.End()

	return storeCall(ctx, s.opts, "GetTemplate", func(ctx context.Context) (*domain.TaskTemplate, error) {
		return s.store.GetTemplate(ctx, id)
	})
}

// CreateTemplate stores a template. Steps are renumbered in the order given.
// The trigger is a label only; nothing fires tasks automatically.
func (s *TemplateService) CreateTemplate(ctx context.Context, p *domain.Principal, tpl *domain.TaskTemplate) (*domain.TaskTemplate, error) {
	ctx, span := taskTracer.Start(ctx, "TemplateService.CreateTemplate")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if p.Role == domain.RoleCollaborator {
		return nil, &domain.ErrForbidden{Action: "create task templates"}
	}

	in := *tpl
	in.ID = ""
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, &domain.ErrValidation{Field: "title", Message: "title is required"}
	}
	if in.TriggerEvent == "" {
		in.TriggerEvent = domain.TriggerNone
	}
	if !in.TriggerEvent.Valid() {
		return nil, &domain.ErrValidation{Field: "trigger_event", Message: "unknown trigger '" + string(in.TriggerEvent) + "'"}
	}
	steps := make([]domain.TemplateStep, 0, len(in.Steps))
	for _, st := range in.Steps {
		title := strings.TrimSpace(st.Title)
		if title == "" {
			return nil, &domain.ErrValidation{Field: "steps", Message: "every step needs a title"}
		}
		steps = append(steps, domain.TemplateStep{Title: title, OrderIndex: len(steps)})
	}
	in.Steps = steps

	return storeCall(ctx, s.opts, "CreateTemplate", func(ctx context.Context) (*domain.TaskTemplate, error) {
		return s.store.CreateTemplate(ctx, &in)
	})
}
