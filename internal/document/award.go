// Package document renders the Auto de Arrematação issued when an auction
// is awarded to a bidder.
package document

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	title        = "AUTO DE ARREMATAÇÃO"
	defaultBrand = "E-Lance Franquias"
	lineHeight   = 10.0
	marginLeft   = 20.0
	textWidth    = 170.0
)

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Filename is the download name of an award document.
func Filename(processNumber string) string {
	name := unsafeFilename.ReplaceAllString(strings.TrimSpace(processNumber), "_")
	if name == "" {
		name = "sem_numero"
	}
	return "Auto_Arrematacao_" + name + ".pdf"
}

// FormatBRL renders an amount as "R$ 1.234,56".
func FormatBRL(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return fmt.Sprintf("%sR$ %s,%s", sign, grouped.String(), frac)
}

func nullBRL(d decimal.NullDecimal) string {
	if !d.Valid {
		return FormatBRL(decimal.Zero)
	}
	return FormatBRL(d.Decimal)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// content holds the text blocks of the document in reading order.
type content struct {
	process   string
	vara      string
	opening   string
	bidder    []string
	asset     string
	valuation string
	minimum   string
	footer    string
}

func compose(a *domain.Auction, bidder *domain.Lead, generatedAt time.Time, brand string) content {
	vara := a.Vara
	if strings.TrimSpace(vara) == "" {
		vara = "Não informado"
	}
	return content{
		process: "PROCESSO Nº: " + a.ProcessNumber,
		vara:    "VARA/COMARCA: " + vara,
		opening: fmt.Sprintf("Aos %s, compareceu o arrematante abaixo qualificado, que ofereceu lance "+
			"vencedor para aquisição do bem descrito neste auto.", generatedAt.Format("02/01/2006")),
		bidder: []string{
			"Nome: " + orDash(bidder.Name),
			"CPF/CNPJ: " + orDash(bidder.CPFCNPJ),
			"Endereço: " + orDash(bidder.Address),
			"Email: " + orDash(bidder.Email),
			"Telefone: " + orDash(bidder.Phone),
		},
		asset:     a.Description,
		valuation: "Valor da Avaliação: " + nullBRL(a.ValuationValue),
		minimum:   "Lance Mínimo: " + nullBRL(a.MinimumBid),
		footer:    fmt.Sprintf("Este documento foi gerado automaticamente pelo Sistema %s.", brand),
	}
}

// lines flattens the content into the text a reader sees, top to bottom.
func (c content) lines() []string {
	out := []string{title, c.process, c.vara, c.opening, "DADOS DO ARREMATANTE:"}
	out = append(out, c.bidder...)
	out = append(out, "DESCRIÇÃO DO BEM:", c.asset, c.valuation, c.minimum,
		"Arrematante", "Leiloeiro Oficial", c.footer)
	return out
}

// GenerateAward renders the award document. The output depends only on its
// arguments: the PDF creation date is pinned to generatedAt.
func GenerateAward(a *domain.Auction, bidder *domain.Lead, generatedAt time.Time) (*domain.AwardDocument, error) {
	return generate(a, bidder, generatedAt, defaultBrand)
}

func generate(a *domain.Auction, bidder *domain.Lead, generatedAt time.Time, brand string) (*domain.AwardDocument, error) {
	if a == nil {
		return nil, &domain.ErrValidation{Field: "auction", Message: "auction is required"}
	}
	if bidder == nil {
		return nil, &domain.ErrValidation{Field: "arrematante_id", Message: "bidder is required"}
	}

	c := compose(a, bidder, generatedAt, brand)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCreationDate(generatedAt)
	pdf.SetModificationDate(generatedAt)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(title, true)
	pdf.SetCreator(brand, true)
	pdf.SetMargins(marginLeft, 20, marginLeft)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	pdf.SetFont("Times", "B", 16)
	pdf.SetY(15)
	pdf.CellFormat(0, lineHeight, tr(title), "", 1, "C", false, 0, "")

	pdf.SetFont("Times", "", 12)
	pdf.SetY(35)
	pdf.CellFormat(0, lineHeight, tr(c.process), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(c.vara), "", 1, "L", false, 0, "")
	pdf.Ln(lineHeight / 2)
	pdf.MultiCell(textWidth, lineHeight*0.7, tr(c.opening), "", "J", false)
	pdf.Ln(lineHeight)

	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, lineHeight, tr("DADOS DO ARREMATANTE:"), "", 1, "L", false, 0, "")
	pdf.SetFont("Times", "", 12)
	for _, l := range c.bidder {
		pdf.CellFormat(0, lineHeight, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(lineHeight)

	pdf.SetFont("Times", "B", 12)
	pdf.CellFormat(0, lineHeight, tr("DESCRIÇÃO DO BEM:"), "", 1, "L", false, 0, "")
	pdf.SetFont("Times", "", 12)
	pdf.MultiCell(textWidth, lineHeight*0.7, tr(c.asset), "", "J", false)
	pdf.Ln(lineHeight / 2)
	pdf.CellFormat(0, lineHeight, tr(c.valuation), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(c.minimum), "", 1, "L", false, 0, "")

	y := pdf.GetY() + lineHeight*2.5
	pdf.Line(20, y, 90, y)
	pdf.Line(110, y, 180, y)
	pdf.SetFont("Times", "", 10)
	pdf.SetXY(20, y+1)
	pdf.CellFormat(70, 6, "Arrematante", "", 0, "C", false, 0, "")
	pdf.SetXY(110, y+1)
	pdf.CellFormat(70, 6, "Leiloeiro Oficial", "", 0, "C", false, 0, "")

	pdf.SetFont("Times", "I", 8)
	pdf.SetXY(marginLeft, 277)
	pdf.CellFormat(textWidth, 5, tr(c.footer), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render award document: %w", err)
	}

	return &domain.AwardDocument{
		Filename:    Filename(a.ProcessNumber),
		Lines:       c.lines(),
		PDF:         buf.Bytes(),
		GeneratedAt: generatedAt,
	}, nil
}

// Generator is the AwardRenderer used by the auction service. It stamps
// documents with the current time of its clock.
type Generator struct {
	brand string
	now   func() time.Time
}

// NewGenerator creates a generator; an empty brand falls back to the
// default portal name.
func NewGenerator(brand string, now func() time.Time) *Generator {
	if brand == "" {
		brand = defaultBrand
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{brand: brand, now: now}
}

// Render implements port.AwardRenderer.
func (g *Generator) Render(a *domain.Auction, bidder *domain.Lead) (*domain.AwardDocument, error) {
	return generate(a, bidder, g.now(), g.brand)
}
