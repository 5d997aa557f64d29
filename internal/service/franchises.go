package service

import (
	"context"
	"errors"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.uber.org/zap"
)

// FranchiseService serves the franchise directory and per-unit branding.
type FranchiseService struct {
	store    port.FranchiseStore
	defaults domain.Branding
	opts     Options
}

// NewFranchiseService creates the franchise service. defaults is the brand
// shown to principals without a unit.
func NewFranchiseService(store port.FranchiseStore, defaults domain.Branding, opts Options) *FranchiseService {
	return &FranchiseService{store: store, defaults: defaults, opts: opts.withDefaults()}
}

// ListFranchises lists every franchise unit.
func (s *FranchiseService) ListFranchises(ctx context.Context, p *domain.Principal) ([]domain.FranchiseUnit, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "ListFranchises", s.store.ListFranchises)
}

// Branding returns the presentation config for p: the default brand,
// overridden by p's franchise unit when it has one.
func (s *FranchiseService) Branding(ctx context.Context, p *domain.Principal) (domain.Branding, error) {
	unit := p.HomeFranchise()
	if unit == "" {
		return s.defaults, nil
	}
	u, err := storeCall(ctx, s.opts, "GetFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
		return s.store.GetFranchise(ctx, unit)
	})
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		s.opts.Logger.Warn("principal references a missing franchise unit", zap.String("franchise_id", unit))
		return s.defaults, nil
	}
	if err != nil {
		return domain.Branding{}, err
	}
	return s.defaults.Apply(u), nil
}

// CreateFranchise registers a new franchise unit. Admin only.
func (s *FranchiseService) CreateFranchise(ctx context.Context, p *domain.Principal, in *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	if err := requireAdmin(p, "create a franchise unit"); err != nil {
		return nil, err
	}
	u := *in
	u.Name = strings.TrimSpace(u.Name)
	if u.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	u.ID = strings.TrimSpace(u.ID)

	created, err := storeCall(ctx, s.opts, "CreateFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
		return s.store.CreateFranchise(ctx, &u)
	})
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		return nil, &domain.ErrConflict{Message: "franchise unit " + u.ID + " already exists"}
	}
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("franchise unit created",
		zap.String("franchise_id", created.ID),
		zap.String("created_by", p.ID),
	)
	return created, nil
}

// UpdateFranchise edits the name and branding of a unit. Admin only.
func (s *FranchiseService) UpdateFranchise(ctx context.Context, p *domain.Principal, id string, upd *domain.FranchiseUpdate) (*domain.FranchiseUnit, error) {
	if err := requireAdmin(p, "edit a franchise unit"); err != nil {
		return nil, err
	}
	u, err := storeCall(ctx, s.opts, "GetFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
		return s.store.GetFranchise(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	next := *u
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "name", Message: "name cannot be empty"}
		}
		next.Name = name
	}
	if upd.LogoURL != nil {
		next.LogoURL = strings.TrimSpace(*upd.LogoURL)
	}
	if upd.IconURL != nil {
		next.IconURL = strings.TrimSpace(*upd.IconURL)
	}
	if upd.SiteTitle != nil {
		next.SiteTitle = strings.TrimSpace(*upd.SiteTitle)
	}

	updated, err := storeCall(ctx, s.opts, "UpdateFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
		return s.store.UpdateFranchise(ctx, &next)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("franchise unit updated",
		zap.String("franchise_id", id),
		zap.String("updated_by", p.ID),
	)
	return updated, nil
}
