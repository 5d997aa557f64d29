package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/elance/franquias-portal-go/internal/domain"

	"go.opentelemetry.io/otel/attribute"
)

// Board fetches the auction board with its bidder list.
func (c *PortalClient) Board(ctx context.Context) (*domain.AuctionBoardView, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.Board")
	defer span.End()

	var view domain.AuctionBoardView
	if err := c.get(ctx, "/v1/auctions/board", &view); err != nil {
		return nil, err
	}
	return &view, nil
}

// MoveAuction asks the API to move an auction to another column.
func (c *PortalClient) MoveAuction(ctx context.Context, id string, status domain.AuctionStatus) (*domain.MoveResult, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.MoveAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id), attribute.String("auction.target", string(status)))

	var res domain.MoveResult
	body := map[string]string{"status": string(status)}
	if err := c.send(ctx, http.MethodPatch, "/v1/auctions/"+url.PathEscape(id)+"/status", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// ConfirmAward awards an auction to a bidder. The returned result carries
// the document metadata; fetch the PDF with AwardDocument. A 202 means the
// award stands but its document was not rendered: the result is returned
// with *domain.ErrDocumentPending.
func (c *PortalClient) ConfirmAward(ctx context.Context, id, bidderID string) (*domain.AwardResult, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.ConfirmAward")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id))

	var res domain.AwardResult
	body := map[string]string{"arrematante_id": bidderID}
	if err := c.send(ctx, http.MethodPost, "/v1/auctions/"+url.PathEscape(id)+"/award", body, &res); err != nil {
		return nil, err
	}
	if res.DocumentPending {
		return &res, &domain.ErrDocumentPending{AuctionID: id, Err: errors.New("award document was not rendered")}
	}
	return &res, nil
}

// AwardDocument downloads the Auto de Arrematação PDF of an awarded auction.
func (c *PortalClient) AwardDocument(ctx context.Context, id string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "PortalClient.AwardDocument")
	defer span.End()

	var pdf []byte
	_, err := c.cb.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/auctions/"+url.PathEscape(id)+"/award-document", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/pdf")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, decodeError(resp)
		}
		pdf, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read award document: %w", err)
		}
		return nil, nil
	})
	if err != nil {
		return nil, c.wrap("award-document", err)
	}
	return pdf, nil
}
