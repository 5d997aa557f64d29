package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var auctionTracer = otel.Tracer("service/auctions")

// AuctionStores is the slice of the store the auction pipeline needs.
type AuctionStores interface {
	port.AuctionStore
	port.LeadStore
}

// AuctionService drives the auction pipeline and issues award documents.
type AuctionService struct {
	store    AuctionStores
	renderer port.AwardRenderer
	window   time.Duration
	inflight *inflight
	opts     Options
}

// NewAuctionService creates the auction service. window is how far ahead a
// second round raises the advisory flag.
func NewAuctionService(store AuctionStores, renderer port.AwardRenderer, window time.Duration, opts Options) *AuctionService {
	if window <= 0 {
		window = 48 * time.Hour
	}
	return &AuctionService{
		store:    store,
		renderer: renderer,
		window:   window,
		inflight: newInflight(),
		opts:     opts.withDefaults(),
	}
}

func (s *AuctionService) load(ctx context.Context, p *domain.Principal, id string) (*domain.Auction, error) {
	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	a, err := storeCall(ctx, s.opts, "GetAuction", func(ctx context.Context) (*domain.Auction, error) {
		return s.store.GetAuction(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !scopeOf(p).allows(a.FranchiseID) {
		return nil, &domain.ErrForbidden{Action: "access an auction of another franchise"}
	}
	return a, nil
}

// CreateAuction opens a process in preparacao.
func (s *AuctionService) CreateAuction(ctx context.Context, p *domain.Principal, req *domain.CreateAuctionRequest) (*domain.Auction, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.CreateAuction")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}
	process := strings.TrimSpace(req.ProcessNumber)
	if process == "" {
		return nil, &domain.ErrValidation{Field: "process_number", Message: "process number is required"}
	}
	if req.ValuationValue.Valid && req.ValuationValue.Decimal.IsNegative() {
		return nil, &domain.ErrValidation{Field: "valuation_value", Message: "amount cannot be negative"}
	}
	if req.MinimumBid.Valid && req.MinimumBid.Decimal.IsNegative() {
		return nil, &domain.ErrValidation{Field: "minimum_bid", Message: "amount cannot be negative"}
	}
	if req.FirstAuctionDate != nil && req.SecondAuctionDate != nil && req.SecondAuctionDate.Before(*req.FirstAuctionDate) {
		return nil, &domain.ErrValidation{Field: "second_auction_date", Message: "second round cannot precede the first"}
	}

	franchise, err := scopeOf(p).owner(req.FranchiseID, "create an auction")
	if err != nil {
		return nil, err
	}

	a := &domain.Auction{
		ProcessNumber:     process,
		Description:       req.Description,
		Vara:              req.Vara,
		Status:            domain.AuctionPreparacao,
		ValuationValue:    req.ValuationValue,
		MinimumBid:        req.MinimumBid,
		FirstAuctionDate:  req.FirstAuctionDate,
		SecondAuctionDate: req.SecondAuctionDate,
		ComitenteID:       req.ComitenteID,
		FranchiseID:       franchise,
	}
	created, err := storeCall(ctx, s.opts, "CreateAuction", func(ctx context.Context) (*domain.Auction, error) {
		return s.store.CreateAuction(ctx, a)
	})
	var dup *domain.ErrDuplicate
	if errors.As(err, &dup) {
		return nil, &domain.ErrConflict{Message: "process number " + process + " is already registered"}
	}
	if err != nil {
		return nil, err
	}

	s.opts.Logger.Info("auction created",
		zap.String("auction_id", created.ID),
		zap.String("process_number", created.ProcessNumber),
		zap.String("created_by", p.ID),
	)
	return created, nil
}

// GetAuction returns one auction with its derived flag.
func (s *AuctionService) GetAuction(ctx context.Context, p *domain.Principal, id string) (*domain.AuctionCard, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.GetAuction")
	defer span.End()

	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	return &domain.AuctionCard{Auction: *a, SecondRoundSoon: a.SecondRoundSoon(s.opts.Now(), s.window)}, nil
}

// Board groups the visible auctions by column and lists the bidders that an
// award can pick from. Both reads run concurrently.
func (s *AuctionService) Board(ctx context.Context, p *domain.Principal) (*domain.AuctionBoardView, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.Board")
	defer span.End()

	if err := requirePrincipal(p); err != nil {
		return nil, err
	}

	var (
		auctions []domain.Auction
		bidders  []domain.Lead
	)
	sc := scopeOf(p)
	unit := sc.filter("")

	if sc.empty() {
		s.opts.Logger.Debug("principal without a franchise unit gets an empty board", zap.String("user_id", p.ID))
		bidders = []domain.Lead{}
	} else {
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			auctions, err = storeCall(gCtx, s.opts, "ListAuctions", func(ctx context.Context) ([]domain.Auction, error) {
				return s.store.ListAuctions(ctx, unit)
			})
			return err
		})
		g.Go(func() error {
			var err error
			bidders, err = storeCall(gCtx, s.opts, "ListLeads", func(ctx context.Context) ([]domain.Lead, error) {
				return s.store.ListLeads(ctx, domain.LeadFilter{FranchiseID: unit, Type: domain.LeadTypeArrematante})
			})
			return err
		})
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	now := s.opts.Now()
	view := &domain.AuctionBoardView{Bidders: bidders}
	index := make(map[domain.AuctionStatus]int, len(domain.AuctionColumns))
	for i, col := range domain.AuctionColumns {
		index[col.Status] = i
		view.Columns = append(view.Columns, domain.BoardColumn{AuctionColumn: col, Cards: []domain.AuctionCard{}})
	}
	for _, a := range auctions {
		i, ok := index[a.Status]
		if !ok {
			s.opts.Logger.Warn("auction with unknown status left off the board",
				zap.String("auction_id", a.ID),
				zap.String("status", string(a.Status)),
			)
			continue
		}
		view.Columns[i].Cards = append(view.Columns[i].Cards, domain.AuctionCard{
			Auction:         a,
			SecondRoundSoon: a.SecondRoundSoon(now, s.window),
		})
	}
	return view, nil
}

// MoveAuction moves an auction to another column. Moves into arrematado are
// held: nothing is written and the caller must ConfirmAward with a bidder.
func (s *AuctionService) MoveAuction(ctx context.Context, p *domain.Principal, id string, target domain.AuctionStatus) (*domain.MoveResult, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.MoveAuction")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id), attribute.String("auction.target", string(target)))

	if !target.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "unknown auction status '" + string(target) + "'"}
	}
	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if err := domain.CheckTransition(a.Status, target); err != nil {
		return nil, err
	}
	if a.Status == target {
		return &domain.MoveResult{Auction: a}, nil
	}
	if target == domain.AuctionArrematado {
		return &domain.MoveResult{Auction: a, Held: true}, nil
	}

	if err := storeExec(ctx, s.opts, "UpdateAuctionStatus", func(ctx context.Context) error {
		return s.store.UpdateAuctionStatus(ctx, id, target)
	}); err != nil {
		return nil, err
	}
	s.opts.Metrics.IncrAuctionTransition(string(target))
	s.opts.Logger.Info("auction moved",
		zap.String("auction_id", id),
		zap.String("from", string(a.Status)),
		zap.String("to", string(target)),
	)
	a.Status = target
	return &domain.MoveResult{Auction: a}, nil
}

// ConfirmAward completes a held move: status and winning bidder are written
// in one update, then the award document is rendered exactly once. When the
// write fails the renderer is never called. When rendering fails the award
// stands: the result is returned together with *domain.ErrDocumentPending.
func (s *AuctionService) ConfirmAward(ctx context.Context, p *domain.Principal, id, bidderID string) (*domain.AwardResult, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.ConfirmAward")
	defer span.End()
	span.SetAttributes(attribute.String("auction.id", id))

	bidderID = strings.TrimSpace(bidderID)
	if bidderID == "" {
		return nil, &domain.ErrValidation{Field: "arrematante_id", Message: "select the winning bidder"}
	}

	release, ok := s.inflight.acquire("award|" + id)
	if !ok {
		return nil, &domain.ErrConflict{Message: "this award is already being confirmed"}
	}
	defer release()

	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.Status == domain.AuctionArrematado {
		return nil, &domain.ErrConflict{Message: "auction already awarded"}
	}
	if err := domain.CheckTransition(a.Status, domain.AuctionArrematado); err != nil {
		return nil, err
	}

	bidder, err := s.bidder(ctx, bidderID)
	if err != nil {
		return nil, err
	}

	awarded, err := storeCall(ctx, s.opts, "AwardAuction", func(ctx context.Context) (*domain.Auction, error) {
		return s.store.AwardAuction(ctx, id, bidderID)
	})
	if err != nil {
		return nil, err
	}
	s.opts.Metrics.IncrAuctionTransition(string(domain.AuctionArrematado))
	s.opts.Logger.Info("auction awarded",
		zap.String("auction_id", id),
		zap.String("bidder_id", bidderID),
		zap.String("confirmed_by", p.ID),
	)

	doc, err := s.renderer.Render(awarded, bidder)
	if err != nil {
		s.opts.Logger.Error("award persisted but document rendering failed",
			zap.String("auction_id", id),
			zap.Error(err),
		)
		return &domain.AwardResult{Auction: awarded, DocumentPending: true}, &domain.ErrDocumentPending{AuctionID: id, Err: err}
	}
	s.opts.Metrics.IncrDocument()
	return &domain.AwardResult{Auction: awarded, Document: doc}, nil
}

func (s *AuctionService) bidder(ctx context.Context, id string) (*domain.Lead, error) {
	lead, err := storeCall(ctx, s.opts, "GetLead", func(ctx context.Context) (*domain.Lead, error) {
		return s.store.GetLead(ctx, id)
	})
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nil, &domain.ErrValidation{Field: "arrematante_id", Message: "unknown bidder " + id}
	}
	if err != nil {
		return nil, err
	}
	if lead.Type != domain.LeadTypeArrematante {
		return nil, &domain.ErrValidation{Field: "arrematante_id", Message: "lead " + id + " is not a bidder"}
	}
	return lead, nil
}

// ReissueAwardDocument renders the document of an awarded auction again.
func (s *AuctionService) ReissueAwardDocument(ctx context.Context, p *domain.Principal, id string) (*domain.AwardDocument, error) {
	ctx, span := auctionTracer.Start(ctx, "AuctionService.ReissueAwardDocument")
	defer span.End()

	a, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AuctionArrematado || a.ArrematanteID == nil {
		return nil, &domain.ErrConflict{Message: "auction has not been awarded"}
	}
	lead, err := storeCall(ctx, s.opts, "GetLead", func(ctx context.Context) (*domain.Lead, error) {
		return s.store.GetLead(ctx, *a.ArrematanteID)
	})
	if err != nil {
		return nil, err
	}
	doc, err := s.renderer.Render(a, lead)
	if err != nil {
		return nil, fmt.Errorf("render award document: %w", err)
	}
	s.opts.Metrics.IncrDocument()
	return doc, nil
}

// PrincipalAuctions binds the auction service to one principal so it can
// back the board model in process.
type PrincipalAuctions struct {
	svc *AuctionService
	p   *domain.Principal
}

// For returns the auction operations of p.
func (s *AuctionService) For(p *domain.Principal) *PrincipalAuctions {
	return &PrincipalAuctions{svc: s, p: p}
}

func (a *PrincipalAuctions) Board(ctx context.Context) (*domain.AuctionBoardView, error) {
	return a.svc.Board(ctx, a.p)
}

func (a *PrincipalAuctions) MoveAuction(ctx context.Context, id string, status domain.AuctionStatus) (*domain.MoveResult, error) {
	return a.svc.MoveAuction(ctx, a.p, id, status)
}

func (a *PrincipalAuctions) ConfirmAward(ctx context.Context, id, bidderID string) (*domain.AwardResult, error) {
	return a.svc.ConfirmAward(ctx, a.p, id, bidderID)
}
