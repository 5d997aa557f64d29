package service

import (
	"context"
	"errors"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var leadTracer = otel.Tracer("service/leads")

const maxLeadPage = 500

// LeadService is the lead desk: public capture, staff CRUD and legal-process
// imports.
type LeadService struct {
	store port.LeadStore
	opts  Options
}

// NewLeadService creates the lead service.
func NewLeadService(store port.LeadStore, opts Options) *LeadService {
	return &LeadService{store: store, opts: opts.withDefaults()}
}

// CaptureLead stores a contact sent by the public site. No principal.
func (s *LeadService) CaptureLead(ctx context.Context, req *domain.CaptureLeadRequest) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.CaptureLead")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if email == "" && phone == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email or phone is required"}
	}
	if email != "" && !strings.Contains(email, "@") {
		return nil, &domain.ErrValidation{Field: "email", Message: "invalid email"}
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = "site"
	}

	lead, err := storeCall(ctx, s.opts, "CreateLead", func(ctx context.Context) (*domain.Lead, error) {
		return s.store.CreateLead(ctx, &domain.Lead{
			Name:        name,
			Email:       email,
			Phone:       phone,
			Source:      source,
			Status:      domain.LeadNew,
			Notes:       req.Notes,
			Tags:        req.Tags,
			FranchiseID: optional(strings.TrimSpace(req.FranchiseID)),
			Type:        domain.LeadTypeLead,
		})
	})
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.IncrLeadCaptured(source)
	s.opts.Logger.Info("lead captured", zap.String("lead_id", lead.ID), zap.String("source", source))
	return lead, nil
}

// ListLeads lists leads; non-admins only see their own unit.
func (s *LeadService) ListLeads(ctx context.Context, p *domain.Principal, filter domain.LeadFilter) ([]domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.ListLeads")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown lead status '" + string(filter.Status) + "'"}
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "unknown lead type '" + string(filter.Type) + "'"}
	}
	sc := scopeOf(p)
	if sc.empty() {
		return []domain.Lead{}, nil
	}
	filter.FranchiseID = sc.filter(filter.FranchiseID)
	if filter.Limit <= 0 || filter.Limit > maxLeadPage {
		filter.Limit = maxLeadPage
	}
	return storeCall(ctx, s.opts, "ListLeads", func(ctx context.Context) ([]domain.Lead, error) {
		return s.store.ListLeads(ctx, filter)
	})
}

// ListBidders lists the leads an award can be given to.
func (s *LeadService) ListBidders(ctx context.Context, p *domain.Principal) ([]domain.Lead, error) {
	return s.ListLeads(ctx, p, domain.LeadFilter{Type: domain.LeadTypeArrematante})
}

// CreateLead stores a lead entered by staff.
func (s *LeadService) CreateLead(ctx context.Context, p *domain.Principal, in *domain.Lead) (*domain.Lead, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.CreateLead")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	lead := *in
	lead.ID = ""
	lead.Name = strings.TrimSpace(lead.Name)
	if lead.Name == "" {
		return nil, &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if lead.Type == "" {
		lead.Type = domain.LeadTypeLead
	}
	if !lead.Type.Valid() {
		return nil, &domain.ErrValidation{Field: "type", Message: "unknown lead type '" + string(lead.Type) + "'"}
	}
	if lead.Status == "" {
		lead.Status = domain.LeadNew
	}
	if !lead.Status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown lead status '" + string(lead.Status) + "'"}
	}
	if lead.Source == "" {
		lead.Source = "manual"
	}
	owner, err := scopeOf(p).owner(lead.FranchiseID, "create a lead")
	if err != nil {
		return nil, err
	}
	lead.FranchiseID = owner

	created, err := storeCall(ctx, s.opts, "CreateLead", func(ctx context.Context) (*domain.Lead, error) {
		return s.store.CreateLead(ctx, &lead)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("lead created",
		zap.String("lead_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("created_by", p.ID),
	)
	return created, nil
}

// UpdateLeadStatus moves a lead through the funnel.
func (s *LeadService) UpdateLeadStatus(ctx context.Context, p *domain.Principal, id string, status domain.LeadStatus) error {
	ctx, span := leadTracer.Start(ctx, "LeadService.UpdateLeadStatus")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !status.Valid() {
		return &domain.ErrValidation{Field: "status", Message: "unknown lead status '" + string(status) + "'"}
	}
	lead, err := storeCall(ctx, s.opts, "GetLead", func(ctx context.Context) (*domain.Lead, error) {
		return s.store.GetLead(ctx, id)
	})
	if err != nil {
		return err
	}
	if !scopeOf(p).allows(lead.FranchiseID) {
		return &domain.ErrForbidden{Action: "update a lead of another franchise"}
	}
	return storeExec(ctx, s.opts, "UpdateLeadStatus", func(ctx context.Context) error {
		return s.store.UpdateLeadStatus(ctx, id, status)
	})
}

// ImportLegalProcess stores a process found by the legal search. Importing
// the same process number twice is a no-op.
func (s *LeadService) ImportLegalProcess(ctx context.Context, p *domain.Principal, in *domain.LegalProcess) (*domain.ImportResult, error) {
	ctx, span := leadTracer.Start(ctx, "LeadService.ImportLegalProcess")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	proc := *in
	proc.ProcessNumber = strings.TrimSpace(proc.ProcessNumber)
	if proc.ProcessNumber == "" {
		return nil, &domain.ErrValidation{Field: "process_number", Message: "process number is required"}
	}
	owner, err := scopeOf(p).owner(proc.FranchiseID, "import a legal process")
	if err != nil {
		return nil, err
	}
	proc.FranchiseID = owner

	created, err := storeCall(ctx, s.opts, "CreateLegalProcess", func(ctx context.Context) (*domain.LegalProcess, error) {
		return s.store.CreateLegalProcess(ctx, &proc)
	})
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		s.opts.Metrics.IncrDuplicateIgnored("legal_process")
		s.opts.Logger.Info("legal process already imported", zap.String("process_number", proc.ProcessNumber))
		return &domain.ImportResult{Imported: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.ImportResult{Imported: true, Process: created}, nil
}
