package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/cache"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/port"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret, sub string, exp time.Time) string {
	t.Helper()
	claims := service.AccessClaims{
		Email: sub + "@elance.com.br",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func newIdentity(t *testing.T, auth *fakeAuth, metrics *observability.Metrics) (*service.IdentityService, *cache.InMemory[*domain.Principal]) {
	t.Helper()
	c := cache.New[*domain.Principal](time.Minute)
	t.Cleanup(c.Close)
	store := seededStore()
	store.PutProfile(domain.Profile{
		ID: "perm", FullName: "Paula", Role: "supervisor",
		Permissions: map[string]bool{"finance": false, "blog": true},
	})
	var authenticator port.Authenticator
	if auth != nil {
		authenticator = auth
	}
	svc := service.NewIdentityService(store, authenticator, c, testSecret, testOptions(metrics))
	return svc, c
}

func TestAuthenticate_ResolvesAndCachesPrincipal(t *testing.T) {
	metrics := observability.NewMetrics()
	svc, _ := newIdentity(t, nil, metrics)
	ctx := context.Background()
	tok := signToken(t, testSecret, "userA", time.Now().Add(time.Hour))

	p, err := svc.Authenticate(ctx, tok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID != "userA" || p.HomeFranchise() != "f1" || p.Role != domain.RoleCollaborator {
		t.Errorf("unexpected principal: %+v", p)
	}
	if _, err := svc.Authenticate(ctx, tok); err != nil {
		t.Fatal(err)
	}
	if rate := metrics.GetSnapshot().ProfileCacheHitPct; rate != 0.5 {
		t.Errorf("expected one miss and one hit, hit rate %v", rate)
	}
}

func TestAuthenticate_RejectsBadTokens(t *testing.T) {
	svc, _ := newIdentity(t, nil, nil)
	tests := map[string]string{
		"garbage":       "not-a-jwt",
		"wrong secret":  signToken(t, "another-secret-another-secret-another", "userA", time.Now().Add(time.Hour)),
		"expired":       signToken(t, testSecret, "userA", time.Now().Add(-time.Minute)),
		"no profile":    signToken(t, testSecret, "ghost", time.Now().Add(time.Hour)),
		"empty subject": signToken(t, testSecret, "", time.Now().Add(time.Hour)),
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Authenticate(context.Background(), tok)
			var unauthorized *domain.ErrUnauthorized
			if !errors.As(err, &unauthorized) {
				t.Errorf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
}

func TestResolve_UnknownRoleAndPermissionKeys(t *testing.T) {
	svc, _ := newIdentity(t, nil, nil)

	p, err := svc.Resolve(context.Background(), "perm")
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != domain.RoleCollaborator {
		t.Errorf("unknown role should fall back to collaborator, got %s", p.Role)
	}
	if len(p.Permissions) != 1 || p.Permissions[domain.CapFinance] {
		t.Errorf("expected only finance=false, got %v", p.Permissions)
	}
	if domain.CanAccess(p, domain.CapFinance) || !domain.CanAccess(p, domain.CapLeads) {
		t.Error("explicit deny must hold while unset capabilities stay open")
	}
}

func TestSignIn(t *testing.T) {
	ctx := context.Background()

	t.Run("attaches principal", func(t *testing.T) {
		svc, c := newIdentity(t, &fakeAuth{session: &domain.Session{AccessToken: "at", UserID: "userC"}}, nil)
		c.Set("principal:userC", &domain.Principal{ID: "userC", Role: domain.RoleAdmin})

		sess, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "caio@elance.com.br", Password: "pw"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sess.Principal == nil || sess.Principal.Role != domain.RoleCollaborator {
			t.Errorf("stale cached principal survived login: %+v", sess.Principal)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		svc, _ := newIdentity(t, &fakeAuth{}, nil)
		_, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "x@y"})
		var v *domain.ErrValidation
		if !errors.As(err, &v) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("bad credentials", func(t *testing.T) {
		svc, _ := newIdentity(t, &fakeAuth{err: &domain.ErrUnauthorized{Message: "invalid login credentials"}}, nil)
		_, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "x@y", Password: "bad"})
		var unauthorized *domain.ErrUnauthorized
		if !errors.As(err, &unauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("account without profile", func(t *testing.T) {
		svc, _ := newIdentity(t, &fakeAuth{session: &domain.Session{UserID: "ghost"}}, nil)
		_, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "x@y", Password: "pw"})
		var forbidden *domain.ErrForbidden
		if !errors.As(err, &forbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("no identity provider", func(t *testing.T) {
		svc, _ := newIdentity(t, nil, nil)
		_, err := svc.SignIn(ctx, &domain.SignInRequest{Email: "x@y", Password: "pw"})
		var ext *domain.ErrExternalService
		if !errors.As(err, &ext) {
			t.Errorf("expected ErrExternalService, got %v", err)
		}
	})
}

func TestUpdateProfile_AdminChangesAccessAndDropsCachedPrincipal(t *testing.T) {
	svc, _ := newIdentity(t, nil, nil)
	ctx := context.Background()

	before, err := svc.Resolve(ctx, "userA")
	if err != nil {
		t.Fatal(err)
	}
	if !domain.CanAccess(before, domain.CapFinance) {
		t.Fatal("userA should start with finance access")
	}

	role := domain.RoleManager
	unit := "f2"
	out, err := svc.UpdateProfile(ctx, admin, "userA", &domain.ProfileUpdate{
		Role:            &role,
		FranchiseUnitID: &unit,
		Permissions:     map[string]bool{"finance": false},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Role != domain.RoleManager || out.HomeFranchise() != "f2" {
		t.Errorf("unexpected profile: %+v", out)
	}

	after, err := svc.Resolve(ctx, "userA")
	if err != nil {
		t.Fatal(err)
	}
	if after.Role != domain.RoleManager || after.FranchiseUnitID != "f2" || domain.CanAccess(after, domain.CapFinance) {
		t.Errorf("cached principal survived the change: %+v", after)
	}
}

func TestUpdateProfile_CollaboratorCannotChangeAccess(t *testing.T) {
	svc, _ := newIdentity(t, nil, nil)
	ctx := context.Background()
	var forbidden *domain.ErrForbidden

	_, err := svc.UpdateProfile(ctx, userA, "userA", &domain.ProfileUpdate{Permissions: map[string]bool{"settings": true}})
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for a permission edit, got %v", err)
	}
	role := domain.RoleAdmin
	_, err = svc.UpdateProfile(ctx, userA, "userA", &domain.ProfileUpdate{Role: &role})
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden for a role edit, got %v", err)
	}
	name := "Outro"
	_, err = svc.UpdateProfile(ctx, userA, "userC", &domain.ProfileUpdate{FullName: &name})
	if !errors.As(err, &forbidden) {
		t.Errorf("expected ErrForbidden on another user's profile, got %v", err)
	}

	phone := " 11 98888-7777 "
	out, err := svc.UpdateProfile(ctx, userA, "userA", &domain.ProfileUpdate{Phone: &phone})
	if err != nil {
		t.Fatalf("own phone edit failed: %v", err)
	}
	if out.Phone != "11 98888-7777" || out.Role != domain.RoleCollaborator {
		t.Errorf("unexpected profile: %+v", out)
	}
}

func TestUpdateProfile_Validation(t *testing.T) {
	svc, _ := newIdentity(t, nil, nil)
	ctx := context.Background()

	bad := domain.Role("supervisor")
	empty := "  "
	missing := "gone"
	for name, upd := range map[string]*domain.ProfileUpdate{
		"unknown role":       {Role: &bad},
		"unknown capability": {Permissions: map[string]bool{"blog": true}},
		"unknown unit":       {FranchiseUnitID: &missing},
		"empty name":         {FullName: &empty},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.UpdateProfile(ctx, admin, "userA", upd)
			var v *domain.ErrValidation
			if !errors.As(err, &v) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}

	detach := ""
	out, err := svc.UpdateProfile(ctx, admin, "userA", &domain.ProfileUpdate{FranchiseUnitID: &detach})
	if err != nil {
		t.Fatal(err)
	}
	if out.FranchiseUnitID != nil {
		t.Errorf("expected the unit to be cleared, got %v", *out.FranchiseUnitID)
	}
}
