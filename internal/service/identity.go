package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var identityTracer = otel.Tracer("service/identity")

// AccessClaims are the claims of a Supabase access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// IdentityStores is the slice of the store the identity service needs.
type IdentityStores interface {
	port.ProfileStore
	port.FranchiseStore
}

// IdentityService resolves bearer tokens to principals and maintains the
// profiles they come from.
type IdentityService struct {
	profiles  IdentityStores
	auth      port.Authenticator
	cache     port.Cache[*domain.Principal]
	jwtSecret []byte
	opts      Options
}

// NewIdentityService creates the identity resolver. auth may be nil when no
// identity provider is configured; SignIn then fails.
func NewIdentityService(profiles IdentityStores, auth port.Authenticator, cache port.Cache[*domain.Principal], jwtSecret string, opts Options) *IdentityService {
	return &IdentityService{
		profiles:  profiles,
		auth:      auth,
		cache:     cache,
		jwtSecret: []byte(jwtSecret),
		opts:      opts.withDefaults(),
	}
}

// ValidateAccessToken checks an HS256 access token and returns its claims.
func (s *IdentityService) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	if len(s.jwtSecret) == 0 {
		return nil, &domain.ErrUnauthorized{Message: "token validation is not configured"}
	}
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	return claims, nil
}

// Authenticate validates a token and resolves its subject.
func (s *IdentityService) Authenticate(ctx context.Context, tokenString string) (*domain.Principal, error) {
	claims, err := s.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	p, err := s.Resolve(ctx, claims.Subject)
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		return nil, &domain.ErrUnauthorized{Message: "no profile for this account"}
	}
	return p, err
}

// Resolve loads the principal of userID, through the cache.
func (s *IdentityService) Resolve(ctx context.Context, userID string) (*domain.Principal, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	cacheKey := "principal:" + userID
	if p, ok := s.cache.Get(cacheKey); ok && p != nil {
		s.opts.Metrics.IncrCacheHit("profile")
		return p, nil
	}
	s.opts.Metrics.IncrCacheMiss("profile")

	profile, err := storeCall(ctx, s.opts, "GetProfile", func(ctx context.Context) (*domain.Profile, error) {
		return s.profiles.GetProfile(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	p := s.principalFrom(profile)
	s.cache.Set(cacheKey, p)
	return p, nil
}

// Invalidate drops a cached principal after a sign-in or a profile change.
func (s *IdentityService) Invalidate(userID string) {
	s.cache.Delete("principal:" + userID)
}

func (s *IdentityService) principalFrom(profile *domain.Profile) *domain.Principal {
	perms, unknown := domain.ParsePermissions(profile.Permissions)
	if len(unknown) > 0 {
		s.opts.Logger.Debug("ignoring unknown permission keys",
			zap.String("user_id", profile.ID),
			zap.Strings("keys", unknown),
		)
	}
	role := profile.Role
	if !role.Valid() {
		s.opts.Logger.Warn("unknown role, treating as collaborator",
			zap.String("user_id", profile.ID),
			zap.String("role", string(role)),
		)
		role = domain.RoleCollaborator
	}
	return &domain.Principal{
		ID:              profile.ID,
		Email:           profile.Email,
		FullName:        profile.FullName,
		Role:            role,
		FranchiseUnitID: profile.HomeFranchise(),
		Permissions:     perms,
	}
}

// SignIn proxies the identity provider's password grant and attaches the
// resolved principal to the session.
func (s *IdentityService) SignIn(ctx context.Context, req *domain.SignInRequest) (*domain.Session, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.SignIn")
	defer span.End()

	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "email is required"}
	}
	if req.Password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "password is required"}
	}
	if s.auth == nil {
		return nil, &domain.ErrExternalService{Service: "auth", Err: errors.New("identity provider not configured")}
	}

	session, err := s.auth.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}

	// Stale permissions must not survive a fresh login.
	s.Invalidate(session.UserID)
	p, err := s.Resolve(ctx, session.UserID)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrForbidden{Action: "sign in without a portal profile"}
		}
		return nil, err
	}
	session.Principal = p

	s.opts.Logger.Info("user signed in",
		zap.String("user_id", p.ID),
		zap.String("role", string(p.Role)),
	)
	return session, nil
}

// ListProfiles returns the assignable users, for the task form.
func (s *IdentityService) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.ListProfiles")
	defer span.End()

	return storeCall(ctx, s.opts, "ListProfiles", func(ctx context.Context) ([]domain.Profile, error) {
		return s.profiles.ListProfiles(ctx)
	})
}

// UpdateProfile edits a profile. Users may change their own name and phone;
// role, franchise unit and permissions are admin-only. The cached principal
// is dropped so the next request sees the new access at once.
func (s *IdentityService) UpdateProfile(ctx context.Context, actor *domain.Principal, id string, upd *domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := identityTracer.Start(ctx, "IdentityService.UpdateProfile")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", id))

	if err := requirePrincipal(actor); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		if actor.ID != id {
			return nil, &domain.ErrForbidden{Action: "edit another user's profile"}
		}
		if upd.ChangesAccess() {
			return nil, &domain.ErrForbidden{Action: "change roles, units or permissions"}
		}
	}

	profile, err := storeCall(ctx, s.opts, "GetProfile", func(ctx context.Context) (*domain.Profile, error) {
		return s.profiles.GetProfile(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	next := *profile

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, &domain.ErrValidation{Field: "full_name", Message: "name cannot be empty"}
		}
		next.FullName = name
	}
	if upd.Phone != nil {
		next.Phone = strings.TrimSpace(*upd.Phone)
	}
	if upd.Role != nil {
		if !upd.Role.Valid() {
			return nil, &domain.ErrValidation{Field: "role", Message: "unknown role '" + string(*upd.Role) + "'"}
		}
		next.Role = *upd.Role
	}
	if upd.Permissions != nil {
		if _, unknown := domain.ParsePermissions(upd.Permissions); len(unknown) > 0 {
			return nil, &domain.ErrValidation{Field: "permissions", Message: "unknown capabilities: " + strings.Join(unknown, ", ")}
		}
		next.Permissions = upd.Permissions
	}
	if upd.FranchiseUnitID != nil {
		unit := strings.TrimSpace(*upd.FranchiseUnitID)
		if unit == "" {
			next.FranchiseUnitID = nil
		} else {
			_, err := storeCall(ctx, s.opts, "GetFranchise", func(ctx context.Context) (*domain.FranchiseUnit, error) {
				return s.profiles.GetFranchise(ctx, unit)
			})
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				return nil, &domain.ErrValidation{Field: "franchise_unit_id", Message: "unknown franchise unit " + unit}
			}
			if err != nil {
				return nil, err
			}
			next.FranchiseUnitID = &unit
		}
	}

	updated, err := storeCall(ctx, s.opts, "UpdateProfile", func(ctx context.Context) (*domain.Profile, error) {
		return s.profiles.UpdateProfile(ctx, &next)
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(id)

	s.opts.Logger.Info("profile updated",
		zap.String("user_id", id),
		zap.String("updated_by", actor.ID),
		zap.Bool("access_changed", upd.ChangesAccess()),
	)
	return updated, nil
}
