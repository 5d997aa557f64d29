package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const profileColumns = "id,email,full_name,phone,role,franchise_unit_id,permissions"

// GetProfile fetches one profile row.
func (c *Client) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	q := url.Values{}
	q.Set("select", profileColumns)
	q.Set("id", eq(userID))
	q.Set("limit", "1")

	var rows []domain.Profile
	if err := c.query(ctx, "profiles", path("profiles", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &rows[0], nil
}

// UpdateProfile writes the editable columns of a profile.
func (c *Client) UpdateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", p.ID))

	perms := p.Permissions
	if perms == nil {
		perms = map[string]bool{}
	}
	data := map[string]any{
		"full_name":         p.FullName,
		"phone":             p.Phone,
		"role":              p.Role,
		"franchise_unit_id": p.FranchiseUnitID,
		"permissions":       perms,
	}

	q := url.Values{}
	q.Set("id", eq(p.ID))
	q.Set("select", profileColumns)

	var rows []domain.Profile
	if err := c.mutate(ctx, "profiles", http.MethodPatch, path("profiles", q), data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: p.ID}
	}
	return &rows[0], nil
}

// ListProfiles returns every profile ordered by name.
func (c *Client) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfiles")
	defer span.End()

	q := url.Values{}
	q.Set("select", profileColumns)
	q.Set("order", "full_name.asc")

	rows := []domain.Profile{}
	if err := c.query(ctx, "profiles", path("profiles", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProfilesByIDs returns the profiles whose id is in ids.
func (c *Client) ListProfilesByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfilesByIDs")
	defer span.End()
	span.SetAttributes(attribute.Int("profiles.requested", len(ids)))

	if len(ids) == 0 {
		return []domain.Profile{}, nil
	}

	q := url.Values{}
	q.Set("select", profileColumns)
	q.Set("id", in(ids))

	rows := []domain.Profile{}
	if err := c.query(ctx, "profiles", path("profiles", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListProfilesByFranchise returns the members of a franchise unit.
func (c *Client) ListProfilesByFranchise(ctx context.Context, franchiseID string) ([]domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProfilesByFranchise")
	defer span.End()
	span.SetAttributes(attribute.String("franchise.id", franchiseID))

	q := url.Values{}
	q.Set("select", profileColumns)
	q.Set("franchise_unit_id", eq(franchiseID))

	rows := []domain.Profile{}
	if err := c.query(ctx, "profiles", path("profiles", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ListFranchises returns every franchise unit ordered by name.
func (c *Client) ListFranchises(ctx context.Context) ([]domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFranchises")
	defer span.End()

	q := url.Values{}
	q.Set("order", "name.asc")

	rows := []domain.FranchiseUnit{}
	if err := c.query(ctx, "franchise_units", path("franchise_units", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetFranchise fetches one franchise unit.
func (c *Client) GetFranchise(ctx context.Context, id string) (*domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetFranchise")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []domain.FranchiseUnit
	if err := c.query(ctx, "franchise_units", path("franchise_units", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "franchise", ID: id}
	}
	return &rows[0], nil
}

// CreateFranchise inserts a franchise unit with a client-generated id.
func (c *Client) CreateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFranchise")
	defer span.End()

	out := *u
	if out.ID == "" {
		out.ID = uuid.New().String()
	}
	data := map[string]any{
		"id":         out.ID,
		"name":       out.Name,
		"logo_url":   out.LogoURL,
		"icon_url":   out.IconURL,
		"site_title": out.SiteTitle,
	}

	var rows []domain.FranchiseUnit
	if err := c.mutate(ctx, "franchise_units", http.MethodPost, "franchise_units", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return &rows[0], nil
	}
	return &out, nil
}

// UpdateFranchise writes name and branding of a franchise unit.
func (c *Client) UpdateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateFranchise")
	defer span.End()
	span.SetAttributes(attribute.String("franchise.id", u.ID))

	data := map[string]any{
		"name":       u.Name,
		"logo_url":   u.LogoURL,
		"icon_url":   u.IconURL,
		"site_title": u.SiteTitle,
	}
	q := url.Values{}
	q.Set("id", eq(u.ID))

	var rows []domain.FranchiseUnit
	if err := c.mutate(ctx, "franchise_units", http.MethodPatch, path("franchise_units", q), data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "franchise", ID: u.ID}
	}
	return &rows[0], nil
}
