package service_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/memstore"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/port"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/shopspring/decimal"
)

type auctionFixture struct {
	store    *memstore.Store
	renderer *countingRenderer
	metrics  *observability.Metrics
	svc      *service.AuctionService
	auction  *domain.Auction
	bidder   *domain.Lead
}

func newAuctionFixture(t *testing.T, wrap func(*memstore.Store) service.AuctionStores) *auctionFixture {
	t.Helper()
	store := seededStore()
	ctx := context.Background()
	second := fixedNow.Add(24 * time.Hour)
	a, err := store.CreateAuction(ctx, &domain.Auction{
		ProcessNumber:     "0001234-55.2024.8.26.0100",
		Description:       "Apartamento 72m², Centro",
		Vara:              "2ª Vara Cível - São Paulo",
		Status:            domain.AuctionSegundaPraca,
		ValuationValue:    decimal.NewNullDecimal(decimal.RequireFromString("450000.00")),
		MinimumBid:        decimal.NewNullDecimal(decimal.RequireFromString("225000.00")),
		SecondAuctionDate: &second,
		FranchiseID:       strPtr("f1"),
	})
	if err != nil {
		t.Fatal(err)
	}
	bidder, err := store.CreateLead(ctx, &domain.Lead{
		Name: "Maria Souza", CPFCNPJ: "123.456.789-00", Type: domain.LeadTypeArrematante,
		Status: domain.LeadQualified, FranchiseID: strPtr("f1"),
	})
	if err != nil {
		t.Fatal(err)
	}

	var backing service.AuctionStores = store
	if wrap != nil {
		backing = wrap(store)
	}
	metrics := observability.NewMetrics()
	renderer := newCountingRenderer()
	return &auctionFixture{
		store:    store,
		renderer: renderer,
		metrics:  metrics,
		svc:      service.NewAuctionService(backing, renderer, 48*time.Hour, testOptions(metrics)),
		auction:  a,
		bidder:   bidder,
	}
}

var _ port.AwardRenderer = (*countingRenderer)(nil)

func TestConfirmAward_SetsStatusBidderAndRendersOnce(t *testing.T) {
	f := newAuctionFixture(t, nil)

	res, err := f.svc.ConfirmAward(context.Background(), userA, f.auction.ID, f.bidder.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Auction.Status != domain.AuctionArrematado || *res.Auction.ArrematanteID != f.bidder.ID {
		t.Errorf("unexpected auction: %+v", res.Auction)
	}
	if f.renderer.Calls() != 1 {
		t.Errorf("expected exactly one render, got %d", f.renderer.Calls())
	}
	if res.Document.Filename != "Auto_Arrematacao_0001234-55.2024.8.26.0100.pdf" {
		t.Errorf("unexpected filename %q", res.Document.Filename)
	}
	if !bytes.HasPrefix(res.Document.PDF, []byte("%PDF")) {
		t.Error("expected PDF bytes")
	}

	stored, _ := f.store.GetAuction(context.Background(), f.auction.ID)
	if stored.Status != domain.AuctionArrematado || stored.ArrematanteID == nil {
		t.Errorf("award not persisted: %+v", stored)
	}
	if f.metrics.GetSnapshot().AwardDocuments != 1 {
		t.Error("expected the document counter to move")
	}
}

func TestConfirmAward_NoBidderRejectedBeforeWrite(t *testing.T) {
	f := newAuctionFixture(t, nil)

	_, err := f.svc.ConfirmAward(context.Background(), userA, f.auction.ID, "")
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	stored, _ := f.store.GetAuction(context.Background(), f.auction.ID)
	if stored.Status != domain.AuctionSegundaPraca || stored.ArrematanteID != nil {
		t.Errorf("auction must be unchanged, got %+v", stored)
	}
	if f.renderer.Calls() != 0 {
		t.Errorf("renderer must not run, ran %d times", f.renderer.Calls())
	}
}

func TestConfirmAward_RejectsNonBidderLead(t *testing.T) {
	f := newAuctionFixture(t, nil)
	plain, _ := f.store.CreateLead(context.Background(), &domain.Lead{Name: "Curioso", Type: domain.LeadTypeLead})

	_, err := f.svc.ConfirmAward(context.Background(), admin, f.auction.ID, plain.ID)
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if f.renderer.Calls() != 0 {
		t.Error("renderer must not run")
	}
}

func TestConfirmAward_WriteFailureSkipsRenderer(t *testing.T) {
	f := newAuctionFixture(t, func(s *memstore.Store) service.AuctionStores { return failingAward{s} })

	_, err := f.svc.ConfirmAward(context.Background(), admin, f.auction.ID, f.bidder.ID)
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if f.renderer.Calls() != 0 {
		t.Errorf("renderer must not run after a failed write, ran %d times", f.renderer.Calls())
	}
}

func TestConfirmAward_RenderFailureKeepsAward(t *testing.T) {
	f := newAuctionFixture(t, nil)
	ctx := context.Background()
	f.renderer.err = errors.New("font missing")

	res, err := f.svc.ConfirmAward(ctx, admin, f.auction.ID, f.bidder.ID)
	var pending *domain.ErrDocumentPending
	if !errors.As(err, &pending) || pending.AuctionID != f.auction.ID {
		t.Fatalf("expected ErrDocumentPending, got %v", err)
	}
	if res == nil || !res.DocumentPending || res.Document != nil {
		t.Fatalf("expected an award without document, got %+v", res)
	}
	if res.Auction.Status != domain.AuctionArrematado {
		t.Errorf("unexpected status %s", res.Auction.Status)
	}
	stored, _ := f.store.GetAuction(ctx, f.auction.ID)
	if stored.Status != domain.AuctionArrematado || stored.ArrematanteID == nil {
		t.Errorf("award must be persisted, got %+v", stored)
	}

	f.renderer.err = nil
	doc, err := f.svc.ReissueAwardDocument(ctx, admin, f.auction.ID)
	if err != nil || len(doc.PDF) == 0 {
		t.Fatalf("reissue after a pending document failed: %v", err)
	}
}

func TestConfirmAward_AlreadyAwarded(t *testing.T) {
	f := newAuctionFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.ConfirmAward(ctx, admin, f.auction.ID, f.bidder.ID); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.ConfirmAward(ctx, admin, f.auction.ID, f.bidder.ID)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if f.renderer.Calls() != 1 {
		t.Errorf("expected a single render overall, got %d", f.renderer.Calls())
	}

	doc, err := f.svc.ReissueAwardDocument(ctx, admin, f.auction.ID)
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if len(doc.PDF) == 0 {
		t.Error("expected reissued PDF bytes")
	}
}

func TestConfirmAward_OtherFranchiseForbidden(t *testing.T) {
	f := newAuctionFixture(t, nil)

	_, err := f.svc.ConfirmAward(context.Background(), creator, f.auction.ID, f.bidder.ID)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestMoveAuction(t *testing.T) {
	tests := []struct {
		name    string
		from    domain.AuctionStatus
		to      domain.AuctionStatus
		held    bool
		wantErr any
		stored  domain.AuctionStatus
	}{
		{"forward", domain.AuctionPreparacao, domain.AuctionPublicado, false, nil, domain.AuctionPublicado},
		{"backward", domain.AuctionSegundaPraca, domain.AuctionPrimeiraPraca, false, nil, domain.AuctionPrimeiraPraca},
		{"same column", domain.AuctionPublicado, domain.AuctionPublicado, false, nil, domain.AuctionPublicado},
		{"into arrematado is held", domain.AuctionSegundaPraca, domain.AuctionArrematado, true, nil, domain.AuctionSegundaPraca},
		{"out of suspenso", domain.AuctionSuspenso, domain.AuctionPublicado, false, &domain.ErrInvalidTransition{}, domain.AuctionSuspenso},
		{"unknown status", domain.AuctionPublicado, "vendido", false, &domain.ErrValidation{}, domain.AuctionPublicado},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seededStore()
			ctx := context.Background()
			a, _ := store.CreateAuction(ctx, &domain.Auction{ProcessNumber: "p-1", Status: tt.from})
			svc := service.NewAuctionService(store, newCountingRenderer(), 0, testOptions(nil))

			res, err := svc.MoveAuction(ctx, admin, a.ID, tt.to)
			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if res.Held != tt.held {
					t.Errorf("held = %v, want %v", res.Held, tt.held)
				}
			case *domain.ErrInvalidTransition:
				if !errors.As(err, &want) {
					t.Fatalf("expected ErrInvalidTransition, got %v", err)
				}
			case *domain.ErrValidation:
				if !errors.As(err, &want) {
					t.Fatalf("expected ErrValidation, got %v", err)
				}
			}
			stored, _ := store.GetAuction(ctx, a.ID)
			if stored.Status != tt.stored {
				t.Errorf("stored status = %s, want %s", stored.Status, tt.stored)
			}
		})
	}
}

func TestCreateAuction(t *testing.T) {
	store := seededStore()
	svc := service.NewAuctionService(store, newCountingRenderer(), 0, testOptions(nil))
	ctx := context.Background()

	a, err := svc.CreateAuction(ctx, userA, &domain.CreateAuctionRequest{ProcessNumber: " 0009999-11.2025.8.26.0001 "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != domain.AuctionPreparacao || a.FranchiseID == nil || *a.FranchiseID != "f1" {
		t.Errorf("expected preparacao in the creator's unit, got %+v", a)
	}

	_, err = svc.CreateAuction(ctx, admin, &domain.CreateAuctionRequest{ProcessNumber: "0009999-11.2025.8.26.0001"})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Errorf("expected ErrConflict for a duplicate process, got %v", err)
	}

	_, err = svc.CreateAuction(ctx, admin, &domain.CreateAuctionRequest{})
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Errorf("expected ErrValidation for a missing process, got %v", err)
	}
}

func TestBoard_GroupsColumnsAndFlagsSecondRound(t *testing.T) {
	f := newAuctionFixture(t, nil)
	ctx := context.Background()
	far := fixedNow.Add(10 * 24 * time.Hour)
	other, _ := f.store.CreateAuction(ctx, &domain.Auction{ProcessNumber: "p-far", Status: domain.AuctionSegundaPraca, SecondAuctionDate: &far, FranchiseID: strPtr("f1")})
	_, _ = f.store.CreateAuction(ctx, &domain.Auction{ProcessNumber: "p-f2", Status: domain.AuctionPublicado, FranchiseID: strPtr("f2")})

	view, err := f.svc.Board(ctx, userA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Columns) != len(domain.AuctionColumns) {
		t.Fatalf("expected %d columns, got %d", len(domain.AuctionColumns), len(view.Columns))
	}
	if len(view.Columns[1].Cards) != 0 {
		t.Errorf("another unit's auction leaked onto the board: %+v", view.Columns[1].Cards)
	}
	flags := map[string]bool{}
	for _, c := range view.Columns[3].Cards {
		flags[c.ID] = c.SecondRoundSoon
	}
	if !flags[f.auction.ID] || flags[other.ID] {
		t.Errorf("unexpected second-round flags: %v", flags)
	}
	if len(view.Bidders) != 1 || view.Bidders[0].ID != f.bidder.ID {
		t.Errorf("unexpected bidders: %+v", view.Bidders)
	}
}

func TestAuctionWithoutFranchise_AdminOnly(t *testing.T) {
	store := seededStore()
	ctx := context.Background()
	a, _ := store.CreateAuction(ctx, &domain.Auction{ProcessNumber: "p-matriz", Status: domain.AuctionPublicado})
	svc := service.NewAuctionService(store, newCountingRenderer(), 0, testOptions(nil))

	var forbidden *domain.ErrForbidden
	if _, err := svc.GetAuction(ctx, userA, a.ID); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on read, got %v", err)
	}
	if _, err := svc.MoveAuction(ctx, userA, a.ID, domain.AuctionPrimeiraPraca); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on move, got %v", err)
	}
	if _, err := svc.MoveAuction(ctx, admin, a.ID, domain.AuctionPrimeiraPraca); err != nil {
		t.Errorf("admin move failed: %v", err)
	}
}

func TestUnitlessCollaborator_EmptyBoardAndNoAuctionAccess(t *testing.T) {
	f := newAuctionFixture(t, nil)
	ctx := context.Background()

	view, err := f.svc.Board(ctx, userB)
	if err != nil {
		t.Fatal(err)
	}
	for _, col := range view.Columns {
		if len(col.Cards) != 0 {
			t.Errorf("column %s must be empty, got %d cards", col.Status, len(col.Cards))
		}
	}
	if len(view.Bidders) != 0 {
		t.Errorf("expected no bidders, got %+v", view.Bidders)
	}

	var forbidden *domain.ErrForbidden
	if _, err := f.svc.GetAuction(ctx, userB, f.auction.ID); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on read, got %v", err)
	}
	if _, err := f.svc.ConfirmAward(ctx, userB, f.auction.ID, f.bidder.ID); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on award, got %v", err)
	}
	if _, err := f.svc.CreateAuction(ctx, userB, &domain.CreateAuctionRequest{ProcessNumber: "p-new"}); !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on create, got %v", err)
	}
	if f.renderer.Calls() != 0 {
		t.Error("renderer must not run")
	}
}
