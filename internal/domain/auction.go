package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AuctionStatus is a column of the auction pipeline.
type AuctionStatus string

const (
	AuctionPreparacao    AuctionStatus = "preparacao"
	AuctionPublicado     AuctionStatus = "publicado"
	AuctionPrimeiraPraca AuctionStatus = "primeira_praca"
	AuctionSegundaPraca  AuctionStatus = "segunda_praca"
	AuctionArrematado    AuctionStatus = "arrematado"
	AuctionSuspenso      AuctionStatus = "suspenso"
)

// AuctionColumn describes one pipeline column.
type AuctionColumn struct {
	Status AuctionStatus `json:"id"`
	Title  string        `json:"title"`
}

// AuctionColumns is the pipeline in display order.
var AuctionColumns = []AuctionColumn{
	{Status: AuctionPreparacao, Title: "Preparação"},
	{Status: AuctionPublicado, Title: "Publicado"},
	{Status: AuctionPrimeiraPraca, Title: "1ª Praça"},
	{Status: AuctionSegundaPraca, Title: "2ª Praça"},
	{Status: AuctionArrematado, Title: "Arrematado"},
	{Status: AuctionSuspenso, Title: "Suspenso"},
}

// Valid reports whether s is a pipeline status.
func (s AuctionStatus) Valid() bool {
	switch s {
	case AuctionPreparacao, AuctionPublicado, AuctionPrimeiraPraca,
		AuctionSegundaPraca, AuctionArrematado, AuctionSuspenso:
		return true
	}
	return false
}

// IsTerminal reports whether no further move is accepted from s.
func (s AuctionStatus) IsTerminal() bool {
	return s == AuctionArrematado || s == AuctionSuspenso
}

// CheckTransition validates a move between two pipeline columns.
// Non-terminal columns are mutually reachable; terminal columns are final.
func CheckTransition(from, to AuctionStatus) error {
	if !to.Valid() {
		return &ErrValidation{Field: "status", Message: "unknown auction status '" + string(to) + "'"}
	}
	if from.IsTerminal() && from != to {
		return &ErrInvalidTransition{From: from, To: to}
	}
	return nil
}

// Auction is a judicial auction process tracked through the pipeline.
type Auction struct {
	ID                string              `json:"id"`
	ProcessNumber     string              `json:"process_number"`
	Description       string              `json:"description"`
	Vara              string              `json:"vara"`
	Status            AuctionStatus       `json:"status"`
	ValuationValue    decimal.NullDecimal `json:"valuation_value"`
	MinimumBid        decimal.NullDecimal `json:"minimum_bid"`
	FirstAuctionDate  *time.Time          `json:"first_auction_date"`
	SecondAuctionDate *time.Time          `json:"second_auction_date"`
	ComitenteID       *string             `json:"comitente_id"`
	ArrematanteID     *string             `json:"arrematante_id"`
	FranchiseID       *string             `json:"franchise_id"`
	CreatedAt         time.Time           `json:"created_at"`
}

// SecondRoundSoon is the derived advisory flag: the second round starts
// within window from now. Never persisted.
func (a *Auction) SecondRoundSoon(now time.Time, window time.Duration) bool {
	if a.SecondAuctionDate == nil {
		return false
	}
	d := a.SecondAuctionDate.Sub(now)
	return d >= 0 && d <= window
}

// CreateAuctionRequest is the input of POST /v1/auctions.
type CreateAuctionRequest struct {
	ProcessNumber     string              `json:"process_number"`
	Description       string              `json:"description"`
	Vara              string              `json:"vara"`
	ValuationValue    decimal.NullDecimal `json:"valuation_value"`
	MinimumBid        decimal.NullDecimal `json:"minimum_bid"`
	FirstAuctionDate  *time.Time          `json:"first_auction_date"`
	SecondAuctionDate *time.Time          `json:"second_auction_date"`
	ComitenteID       *string             `json:"comitente_id"`
	FranchiseID       *string             `json:"franchise_id"`
}

// AuctionCard is an auction as shown on the board, with derived flags.
type AuctionCard struct {
	Auction
	SecondRoundSoon bool `json:"second_round_soon"`
}

// BoardColumn groups the cards of one status.
type BoardColumn struct {
	AuctionColumn
	Cards []AuctionCard `json:"cards"`
}

// AuctionBoardView is the kanban read model.
type AuctionBoardView struct {
	Columns []BoardColumn `json:"columns"`
	Bidders []Lead        `json:"bidders"`
}

// MoveResult tells the caller what a status move did.
type MoveResult struct {
	Auction *Auction `json:"auction,omitempty"`
	// Held is true when the move targets arrematado: nothing was written and
	// the caller must confirm with a winning bidder.
	Held bool `json:"held"`
}

// AwardDocument is a rendered Auto de Arrematação.
type AwardDocument struct {
	Filename    string    `json:"filename"`
	Lines       []string  `json:"-"`
	PDF         []byte    `json:"-"`
	GeneratedAt time.Time `json:"generated_at"`
}

// AwardResult is the outcome of a confirmed award.
type AwardResult struct {
	Auction  *Auction       `json:"auction"`
	Document *AwardDocument `json:"document"`
	// DocumentPending is set when the award was written but rendering failed.
	DocumentPending bool `json:"document_pending,omitempty"`
}
