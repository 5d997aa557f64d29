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

// CreateLead inserts a lead.
func (c *Client) CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLead")
	defer span.End()

	id := lead.ID
	if id == "" {
		id = uuid.New().String()
	}
	data := map[string]any{
		"id":           id,
		"name":         lead.Name,
		"email":        lead.Email,
		"phone":        lead.Phone,
		"source":       lead.Source,
		"status":       lead.Status,
		"notes":        lead.Notes,
		"franchise_id": lead.FranchiseID,
		"tags":         lead.Tags,
		"type":         lead.Type,
		"cpf_cnpj":     lead.CPFCNPJ,
		"address":      lead.Address,
	}

	var rows []domain.Lead
	if err := c.mutate(ctx, "leads", http.MethodPost, "leads", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		out := *lead
		out.ID = id
		return &out, nil
	}
	return &rows[0], nil
}

// GetLead fetches one lead.
func (c *Client) GetLead(ctx context.Context, id string) (*domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetLead")
	defer span.End()
	span.SetAttributes(attribute.String("lead.id", id))

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []domain.Lead
	if err := c.query(ctx, "leads", path("leads", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return &rows[0], nil
}

// ListLeads returns leads matching filter, newest first.
func (c *Client) ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListLeads")
	defer span.End()

	q := url.Values{}
	q.Set("order", "created_at.desc")
	if filter.FranchiseID != "" {
		q.Set("franchise_id", eq(filter.FranchiseID))
	}
	if filter.Status != "" {
		q.Set("status", eq(string(filter.Status)))
	}
	if filter.Type != "" {
		q.Set("type", eq(string(filter.Type)))
	}
	if filter.Limit > 0 {
		q.Set("limit", strconv.Itoa(filter.Limit))
	}

	rows := []domain.Lead{}
	if err := c.query(ctx, "leads", path("leads", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateLeadStatus moves a lead through the funnel.
func (c *Client) UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateLeadStatus")
	defer span.End()

	q := url.Values{}
	q.Set("id", eq(id))

	var rows []domain.Lead
	if err := c.mutate(ctx, "leads", http.MethodPatch, path("leads", q), map[string]any{"status": status}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return nil
}

// CreateLegalProcess stores an imported process. The unique index on
// process_number turns a re-import into *domain.ErrDuplicate.
func (c *Client) CreateLegalProcess(ctx context.Context, p *domain.LegalProcess) (*domain.LegalProcess, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateLegalProcess")
	defer span.End()
	span.SetAttributes(attribute.String("process.number", p.ProcessNumber))

	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}
	data := map[string]any{
		"id":             id,
		"process_number": p.ProcessNumber,
		"court":          p.Court,
		"subject":        p.Subject,
		"raw":            p.Raw,
		"franchise_id":   p.FranchiseID,
	}

	var rows []domain.LegalProcess
	if err := c.mutate(ctx, "legal_process_leads", http.MethodPost, "legal_process_leads", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		out := *p
		out.ID = id
		return &out, nil
	}
	return &rows[0], nil
}
