package domain

import (
	"encoding/json"
	"time"
)

// LeadType distinguishes plain leads from auction parties.
type LeadType string

const (
	LeadTypeLead        LeadType = "lead"
	LeadTypeComitente   LeadType = "comitente"
	LeadTypeArrematante LeadType = "arrematante"
)

// Valid reports whether t is a known lead type.
func (t LeadType) Valid() bool {
	return t == LeadTypeLead || t == LeadTypeComitente || t == LeadTypeArrematante
}

// LeadStatus is the funnel position of a lead.
type LeadStatus string

const (
	LeadNew       LeadStatus = "new"
	LeadContacted LeadStatus = "contacted"
	LeadQualified LeadStatus = "qualified"
	LeadConverted LeadStatus = "converted"
	LeadLost      LeadStatus = "lost"
)

// Valid reports whether s is a known lead status.
func (s LeadStatus) Valid() bool {
	switch s {
	case LeadNew, LeadContacted, LeadQualified, LeadConverted, LeadLost:
		return true
	}
	return false
}

// Lead is a contact captured by the public site or entered by staff.
// Bidders (arrematantes) and consignors (comitentes) are leads too.
type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Source      string     `json:"source"`
	Status      LeadStatus `json:"status"`
	Notes       string     `json:"notes"`
	FranchiseID *string    `json:"franchise_id"`
	Tags        []string   `json:"tags,omitempty"`
	Type        LeadType   `json:"type"`
	CPFCNPJ     string     `json:"cpf_cnpj"`
	Address     string     `json:"address"`
	CreatedAt   time.Time  `json:"created_at"`
}

// LeadFilter narrows a lead listing.
type LeadFilter struct {
	FranchiseID string
	Status      LeadStatus
	Type        LeadType
	Limit       int
}

// CaptureLeadRequest is the public landing-page form.
type CaptureLeadRequest struct {
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Phone       string   `json:"phone"`
	Source      string   `json:"source"`
	Notes       string   `json:"notes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	FranchiseID string   `json:"franchise_id,omitempty"`
}

// LegalProcess is a judicial process imported from the legal-search proxy.
type LegalProcess struct {
	ID            string          `json:"id,omitempty"`
	ProcessNumber string          `json:"process_number"`
	Court         string          `json:"court"`
	Subject       string          `json:"subject"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	FranchiseID   *string         `json:"franchise_id"`
}

// ImportResult reports whether an import wrote anything.
type ImportResult struct {
	Imported bool          `json:"imported"`
	Process  *LegalProcess `json:"process,omitempty"`
}
