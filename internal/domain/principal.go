package domain

import "time"

// Role is the portal role of a profile.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleCollaborator Role = "collaborator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleCollaborator
}

// Profile is the stored row of the profiles table.
type Profile struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FullName        string          `json:"full_name"`
	Phone           string          `json:"phone,omitempty"`
	Role            Role            `json:"role"`
	FranchiseUnitID *string         `json:"franchise_unit_id"`
	Permissions     map[string]bool `json:"permissions,omitempty"`
}

// Principal is an authenticated profile resolved for a request.
type Principal struct {
	ID              string              `json:"id"`
	Email           string              `json:"email"`
	FullName        string              `json:"full_name"`
	Role            Role                `json:"role"`
	FranchiseUnitID string              `json:"franchise_unit_id,omitempty"`
	Permissions     map[Capability]bool `json:"permissions,omitempty"`
}

// IsAdmin reports whether the principal bypasses every gate.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// HomeFranchise returns the principal's franchise unit, empty when none.
func (p *Principal) HomeFranchise() string {
	if p == nil {
		return ""
	}
	return p.FranchiseUnitID
}

// HomeFranchise returns the profile's franchise unit, empty when none.
func (p *Profile) HomeFranchise() string {
	if p == nil || p.FranchiseUnitID == nil {
		return ""
	}
	return *p.FranchiseUnitID
}

// ProfileUpdate is the payload of PATCH /v1/profiles/{id} and PATCH /v1/me.
// Nil fields are left unchanged. A user may edit their own name and phone;
// role, unit and permissions are set by an admin. An empty FranchiseUnitID
// detaches the profile from its unit.
type ProfileUpdate struct {
	FullName        *string         `json:"full_name,omitempty"`
	Phone           *string         `json:"phone,omitempty"`
	Role            *Role           `json:"role,omitempty"`
	FranchiseUnitID *string         `json:"franchise_unit_id,omitempty"`
	Permissions     map[string]bool `json:"permissions,omitempty"`
}

// ChangesAccess reports whether the update touches role, unit or permissions.
func (u *ProfileUpdate) ChangesAccess() bool {
	return u.Role != nil || u.FranchiseUnitID != nil || u.Permissions != nil
}

// SignInRequest is the payload of POST /v1/auth/login.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session is what the identity provider hands back on sign-in.
type Session struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	ExpiresIn    int        `json:"expires_in"`
	UserID       string     `json:"user_id"`
	Principal    *Principal `json:"principal,omitempty"`
}

// Credential is a locally stored password login, used when the portal runs
// without Supabase Auth.
type Credential struct {
	UserID         string     `json:"user_id"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	FailedAttempts int        `json:"failed_attempts"`
	LockedUntil    *time.Time `json:"locked_until,omitempty"`
}
