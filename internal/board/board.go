// Package board keeps a client-side model of the auction kanban. Moves are
// applied tentatively, confirmed by the API, and reconciled by refetching
// the board when the API refuses them.
package board

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/elance/franquias-portal-go/internal/domain"

	"go.uber.org/zap"
)

// Backend is the API the model talks to. *client.PortalClient implements
// it over HTTP; service.AuctionService.For implements it in process.
type Backend interface {
	Board(ctx context.Context) (*domain.AuctionBoardView, error)
	MoveAuction(ctx context.Context, id string, status domain.AuctionStatus) (*domain.MoveResult, error)
	ConfirmAward(ctx context.Context, id, bidderID string) (*domain.AwardResult, error)
}

// Card is an auction as the model currently shows it.
type Card struct {
	domain.AuctionCard
	// Tentative is set while a move is waiting for the API.
	Tentative bool `json:"tentative"`
}

// Column is a snapshot of one pipeline column.
type Column struct {
	domain.AuctionColumn
	Cards []Card `json:"cards"`
}

// PendingAward is a move into arrematado waiting for a winning bidder.
type PendingAward struct {
	AuctionID string               `json:"auction_id"`
	From      domain.AuctionStatus `json:"from"`
}

// Model is safe for concurrent use.
type Model struct {
	backend Backend
	logger  *zap.Logger

	mu      sync.Mutex
	cards   map[string]*Card
	order   []string
	bidders []domain.Lead
	pending map[string]PendingAward
}

// New creates an empty model; call Load to fill it.
func New(backend Backend, logger *zap.Logger) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Model{
		backend: backend,
		logger:  logger,
		cards:   make(map[string]*Card),
		pending: make(map[string]PendingAward),
	}
}

// Load replaces the model with the API's current board. Pending awards of
// auctions that can no longer be awarded are dropped.
func (m *Model) Load(ctx context.Context) error {
	view, err := m.backend.Board(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.cards = make(map[string]*Card)
	m.order = m.order[:0]
	for _, col := range view.Columns {
		for _, c := range col.Cards {
			m.cards[c.ID] = &Card{AuctionCard: c}
			m.order = append(m.order, c.ID)
		}
	}
	m.bidders = view.Bidders
	for id := range m.pending {
		c, ok := m.cards[id]
		if !ok || c.Status.IsTerminal() {
			delete(m.pending, id)
		}
	}
	return nil
}

// Columns returns the board grouped in pipeline order.
func (m *Model) Columns() []Column {
	m.mu.Lock()
	defer m.mu.Unlock()

	cols := make([]Column, len(domain.AuctionColumns))
	index := make(map[domain.AuctionStatus]int, len(cols))
	for i, c := range domain.AuctionColumns {
		cols[i] = Column{AuctionColumn: c, Cards: []Card{}}
		index[c.Status] = i
	}
	for _, id := range m.order {
		c := m.cards[id]
		if i, ok := index[c.Status]; ok {
			cols[i].Cards = append(cols[i].Cards, *c)
		}
	}
	return cols
}

// Card returns one card by auction id.
func (m *Model) Card(id string) (Card, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return Card{}, false
	}
	return *c, true
}

// Bidders returns the bidders an award can pick from.
func (m *Model) Bidders() []domain.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Lead(nil), m.bidders...)
}

// Pending returns the held awards ordered by auction id.
func (m *Model) Pending() []PendingAward {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PendingAward, 0, len(m.pending))
	for _, p := range m.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AuctionID < out[j].AuctionID })
	return out
}

// Move drags a card to target. A move into arrematado is only held until
// ConfirmAward or CancelAward; held reports that case. Any other move is
// shown at once and sent to the API; on refusal the board is refetched and
// the API's error returned.
func (m *Model) Move(ctx context.Context, id string, target domain.AuctionStatus) (held bool, err error) {
	m.mu.Lock()
	c, ok := m.cards[id]
	if !ok {
		m.mu.Unlock()
		return false, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	if c.Tentative {
		m.mu.Unlock()
		return false, &domain.ErrConflict{Message: "a move of this auction is already in progress"}
	}
	if err := domain.CheckTransition(c.Status, target); err != nil {
		m.mu.Unlock()
		return false, err
	}
	if c.Status == target {
		m.mu.Unlock()
		return false, nil
	}
	if target == domain.AuctionArrematado {
		m.pending[id] = PendingAward{AuctionID: id, From: c.Status}
		m.mu.Unlock()
		return true, nil
	}
	from := c.Status
	c.Status = target
	c.Tentative = true
	delete(m.pending, id)
	m.mu.Unlock()

	res, err := m.backend.MoveAuction(ctx, id, target)
	if err != nil {
		m.reconcile(ctx, id, from, err)
		return false, err
	}
	m.confirm(id, res.Auction)
	return res.Held, nil
}

// ConfirmAward completes a held move with the winning bidder. An award whose
// document is pending still lands in arrematado; the result comes back with
// the *domain.ErrDocumentPending.
func (m *Model) ConfirmAward(ctx context.Context, id, bidderID string) (*domain.AwardResult, error) {
	if strings.TrimSpace(bidderID) == "" {
		return nil, &domain.ErrValidation{Field: "arrematante_id", Message: "select the winning bidder"}
	}

	m.mu.Lock()
	c, ok := m.cards[id]
	if !ok {
		m.mu.Unlock()
		return nil, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	if c.Tentative {
		m.mu.Unlock()
		return nil, &domain.ErrConflict{Message: "a move of this auction is already in progress"}
	}
	if err := domain.CheckTransition(c.Status, domain.AuctionArrematado); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	from := c.Status
	c.Status = domain.AuctionArrematado
	c.Tentative = true
	m.mu.Unlock()

	res, err := m.backend.ConfirmAward(ctx, id, bidderID)
	var pending *domain.ErrDocumentPending
	if err != nil && !(errors.As(err, &pending) && res != nil) {
		m.reconcile(ctx, id, from, err)
		return nil, err
	}
	m.confirm(id, res.Auction)

	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
	return res, err
}

// CancelAward drops a held move; the card stays where it was.
func (m *Model) CancelAward(id string) {
	m.mu.Lock()
	delete(m.pending, id)
	m.mu.Unlock()
}

func (m *Model) confirm(id string, a *domain.Auction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return
	}
	if a != nil {
		c.Auction = *a
	}
	c.Tentative = false
}

// reconcile restores the API's view after a refused move. When the refetch
// fails too, the card goes back to its last confirmed column.
func (m *Model) reconcile(ctx context.Context, id string, from domain.AuctionStatus, cause error) {
	m.logger.Warn("auction move refused, reloading board",
		zap.String("auction_id", id),
		zap.Error(cause),
	)
	err := m.Load(ctx)
	if err == nil {
		return
	}
	m.logger.Error("board reload failed", zap.Error(err))

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.cards[id]; ok {
		c.Status = from
		c.Tentative = false
	}
}
