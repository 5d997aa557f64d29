package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
)

// CreateFinancialLog appends a ledger entry.
func (c *Client) CreateFinancialLog(ctx context.Context, entry *domain.FinancialLog) (*domain.FinancialLog, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFinancialLog")
	defer span.End()

	id := entry.ID
	if id == "" {
		id = uuid.New().String()
	}
	data := map[string]any{
		"id":           id,
		"type":         entry.Type,
		"category":     entry.Category,
		"amount":       entry.Amount,
		"description":  entry.Description,
		"date":         entry.Date,
		"franchise_id": entry.FranchiseID,
		"auction_id":   entry.AuctionID,
	}

	var rows []domain.FinancialLog
	if err := c.mutate(ctx, "financial_logs", http.MethodPost, "financial_logs", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		out := *entry
		out.ID = id
		return &out, nil
	}
	return &rows[0], nil
}

// ListFinancialLogs returns ledger entries in date order.
func (c *Client) ListFinancialLogs(ctx context.Context, filter domain.FinanceFilter) ([]domain.FinancialLog, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFinancialLogs")
	defer span.End()

	q := url.Values{}
	q.Set("order", "date.desc")
	if filter.FranchiseID != "" {
		q.Set("franchise_id", eq(filter.FranchiseID))
	}
	if filter.From != "" {
		q.Add("date", "gte."+filter.From)
	}
	if filter.To != "" {
		q.Add("date", "lte."+filter.To)
	}

	rows := []domain.FinancialLog{}
	if err := c.query(ctx, "financial_logs", path("financial_logs", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
