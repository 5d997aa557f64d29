// Package localauth signs users in against bcrypt credentials kept in the
// portal's own store, issuing HS256 access tokens in the same shape as
// Supabase Auth so the identity resolver accepts both.
package localauth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var tracer = otel.Tracer("localauth")

const (
	maxFailedAttempts = 5
	lockDuration      = 15 * time.Minute
)

type claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator implements port.Authenticator over a CredentialStore.
type Authenticator struct {
	store     port.CredentialStore
	jwtSecret []byte
	accessTTL time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// New creates a local authenticator. Tokens are signed with jwtSecret, which
// must match the secret the identity resolver validates with.
func New(store port.CredentialStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *Authenticator {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &Authenticator{store: store, jwtSecret: []byte(jwtSecret), accessTTL: accessTTL, logger: logger, now: time.Now}
}

// HashPassword returns the bcrypt hash stored in credentials.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// SignIn checks the password and returns a session. Five wrong passwords in
// a row lock the login for fifteen minutes.
func (a *Authenticator) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "LocalAuth.SignIn")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	cred, err := a.store.GetCredential(ctx, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	now := a.now()
	if cred.LockedUntil != nil && cred.LockedUntil.After(now) {
		remaining := cred.LockedUntil.Sub(now).Minutes()
		a.logger.Warn("login: account temporarily locked",
			zap.String("user_id", cred.UserID),
			zap.Float64("remaining_minutes", remaining),
		)
		return nil, &domain.ErrUnauthorized{
			Message: fmt.Sprintf("Conta temporariamente bloqueada. Tente novamente em %.0f minutos", remaining),
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		cred.FailedAttempts++
		if cred.FailedAttempts >= maxFailedAttempts {
			until := now.Add(lockDuration)
			cred.LockedUntil = &until
			cred.FailedAttempts = 0
			a.logger.Warn("login: account locked after max attempts",
				zap.String("user_id", cred.UserID),
				zap.Duration("lock_duration", lockDuration),
			)
		} else {
			a.logger.Warn("login: failed password attempt",
				zap.String("user_id", cred.UserID),
				zap.Int("attempts", cred.FailedAttempts),
			)
		}
		if err := a.store.SaveCredential(ctx, cred); err != nil {
			a.logger.Error("login: could not record failed attempt", zap.Error(err))
		}
		return nil, &domain.ErrUnauthorized{Message: "Credenciais inválidas"}
	}

	if cred.FailedAttempts > 0 || cred.LockedUntil != nil {
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
		if err := a.store.SaveCredential(ctx, cred); err != nil {
			a.logger.Error("login: could not reset attempts", zap.Error(err))
		}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: cred.Email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessTTL)),
		},
	}).SignedString(a.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	return &domain.Session{
		AccessToken: token,
		ExpiresIn:   int(a.accessTTL.Seconds()),
		UserID:      cred.UserID,
	}, nil
}
