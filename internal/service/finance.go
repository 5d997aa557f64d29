package service

import (
	"context"
	"strings"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var financeTracer = otel.Tracer("service/finance")

const dateLayout = "2006-01-02"

// FinanceService keeps the append-only ledger.
type FinanceService struct {
	store port.FinanceStore
	opts  Options
}

// NewFinanceService creates the finance service.
func NewFinanceService(store port.FinanceStore, opts Options) *FinanceService {
	return &FinanceService{store: store, opts: opts.withDefaults()}
}

// RecordEntry appends one revenue or expense entry.
func (s *FinanceService) RecordEntry(ctx context.Context, p *domain.Principal, in *domain.FinancialLog) (*domain.FinancialLog, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.RecordEntry")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	entry := *in
	entry.ID = ""
	if entry.Type != domain.EntryRevenue && entry.Type != domain.EntryExpense {
		return nil, &domain.ErrValidation{Field: "type", Message: "type must be revenue or expense"}
	}
	if !entry.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	entry.Category = strings.TrimSpace(entry.Category)
	if entry.Category == "" {
		return nil, &domain.ErrValidation{Field: "category", Message: "category is required"}
	}
	if entry.Date == "" {
		entry.Date = s.opts.Now().Format(dateLayout)
	} else if _, err := time.Parse(dateLayout, entry.Date); err != nil {
		return nil, &domain.ErrValidation{Field: "date", Message: "date must be YYYY-MM-DD"}
	}
	owner, err := scopeOf(p).owner(entry.FranchiseID, "record a ledger entry")
	if err != nil {
		return nil, err
	}
	entry.FranchiseID = owner

	created, err := storeCall(ctx, s.opts, "CreateFinancialLog", func(ctx context.Context) (*domain.FinancialLog, error) {
		return s.store.CreateFinancialLog(ctx, &entry)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Logger.Info("ledger entry recorded",
		zap.String("entry_id", created.ID),
		zap.String("type", string(created.Type)),
		zap.String("amount", created.Amount.StringFixed(2)),
		zap.String("recorded_by", p.ID),
	)
	return created, nil
}

// ListEntries lists ledger entries in an inclusive date range.
func (s *FinanceService) ListEntries(ctx context.Context, p *domain.Principal, filter domain.FinanceFilter) ([]domain.FinancialLog, error) {
	ctx, span := financeTracer.Start(ctx, "FinanceService.ListEntries")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	for _, bound := range []struct{ field, value string }{{"from", filter.From}, {"to", filter.To}} {
		if bound.value == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, bound.value); err != nil {
			return nil, &domain.ErrValidation{Field: bound.field, Message: "date must be YYYY-MM-DD"}
		}
	}
	if filter.From != "" && filter.To != "" && filter.To < filter.From {
		return nil, &domain.ErrValidation{Field: "to", Message: "range end precedes its start"}
	}
	sc := scopeOf(p)
	if sc.empty() {
		return []domain.FinancialLog{}, nil
	}
	filter.FranchiseID = sc.filter(filter.FranchiseID)
	return storeCall(ctx, s.opts, "ListFinancialLogs", func(ctx context.Context) ([]domain.FinancialLog, error) {
		return s.store.ListFinancialLogs(ctx, filter)
	})
}

// Summary totals the entries ListEntries would return.
func (s *FinanceService) Summary(ctx context.Context, p *domain.Principal, filter domain.FinanceFilter) (*domain.FinanceSummary, error) {
	entries, err := s.ListEntries(ctx, p, filter)
	if err != nil {
		return nil, err
	}
	sum := domain.Summarize(entries)
	return &sum, nil
}
