package domain

// FranchiseUnit is a franchise location with its own branding.
type FranchiseUnit struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	LogoURL   string `json:"logo_url,omitempty"`
	IconURL   string `json:"icon_url,omitempty"`
	SiteTitle string `json:"site_title,omitempty"`
}

// FranchiseUpdate is the payload of PATCH /v1/franchises/{id}. Nil fields
// are left unchanged.
type FranchiseUpdate struct {
	Name      *string `json:"name,omitempty"`
	LogoURL   *string `json:"logo_url,omitempty"`
	IconURL   *string `json:"icon_url,omitempty"`
	SiteTitle *string `json:"site_title,omitempty"`
}

// Branding is the explicit presentation config handed to clients.
type Branding struct {
	FranchiseID string `json:"franchise_id,omitempty"`
	SiteTitle   string `json:"site_title"`
	LogoURL     string `json:"logo_url,omitempty"`
	IconURL     string `json:"icon_url,omitempty"`
}

// Apply overrides the default branding with the unit's non-empty fields.
func (b Branding) Apply(u *FranchiseUnit) Branding {
	if u == nil {
		return b
	}
	b.FranchiseID = u.ID
	if u.SiteTitle != "" {
		b.SiteTitle = u.SiteTitle
	} else if u.Name != "" {
		b.SiteTitle = u.Name
	}
	if u.LogoURL != "" {
		b.LogoURL = u.LogoURL
	}
	if u.IconURL != "" {
		b.IconURL = u.IconURL
	}
	return b
}
