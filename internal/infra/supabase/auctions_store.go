package supabase

import (
	"context"
	"net/http"
	"net/url"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// CreateAuction inserts an auction; a taken process number yields
// *domain.ErrDuplicate.
func (c *Client) CreateAuction(ctx context.Context, a *domain.Auction) (*domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateAuction")
	defer span.End()

	id := a.ID
	if id == "" {
		id = uuid.New().String()
	}
	data := map[string]any{
		"id":                  id,
		"process_number":      a.ProcessNumber,
		"description":         a.Description,
		"vara":                a.Vara,
		"status":              a.Status,
		"valuation_value":     a.ValuationValue,
		"minimum_bid":         a.MinimumBid,
		"first_auction_date":  a.FirstAuctionDate,
		"second_auction_date": a.SecondAuctionDate,
		"comitente_id":        a.ComitenteID,
		"franchise_id":        a.FranchiseID,
	}

	var rows []domain.Auction
	if err := c.mutate(ctx, "auctions", http.MethodPost, "auctions", data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		out := *a
		out.ID = id
		return &out, nil
	}
	return &rows[0], nil
}

// GetAuction fetches one auction.
func (c *Client) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id))

	q := url.Values{}
	q.Set("id", eq(id))
	q.Set("limit", "1")

	var rows []domain.Auction
	if err := c.query(ctx, "auctions", path("auctions", q), &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	return &rows[0], nil
}

// ListAuctions returns auctions, optionally scoped to one franchise.
func (c *Client) ListAuctions(ctx context.Context, franchiseID string) ([]domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAuctions")
	defer span.End()

	q := url.Values{}
	q.Set("order", "created_at.desc")
	if franchiseID != "" {
		q.Set("franchise_id", eq(franchiseID))
	}

	rows := []domain.Auction{}
	if err := c.query(ctx, "auctions", path("auctions", q), &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateAuctionStatus moves an auction to another column.
func (c *Client) UpdateAuctionStatus(ctx context.Context, id string, status domain.AuctionStatus) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateAuctionStatus")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id), attribute.String("auction.status", string(status)))

	q := url.Values{}
	q.Set("id", eq(id))

	var rows []domain.Auction
	if err := c.mutate(ctx, "auctions", http.MethodPatch, path("auctions", q), map[string]any{"status": status}, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	return nil
}

// AwardAuction sets status and winning bidder in a single PATCH.
func (c *Client) AwardAuction(ctx context.Context, id, bidderID string) (*domain.Auction, error) {
	ctx, span := tracer.Start(ctx, "Supabase.AwardAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id), attribute.String("bidder.id", bidderID))

	q := url.Values{}
	q.Set("id", eq(id))

	data := map[string]any{
		"status":         domain.AuctionArrematado,
		"arrematante_id": bidderID,
	}
	var rows []domain.Auction
	if err := c.mutate(ctx, "auctions", http.MethodPatch, path("auctions", q), data, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	return &rows[0], nil
}
