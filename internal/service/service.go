// Package service provides the business logic layer (use cases) of the
// franchise portal: identity, tasks, auctions, notifications, leads,
// finance, training and branding.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/observability"

	"go.uber.org/zap"
)

// Options carries the settings every service shares.
type Options struct {
	// StoreTimeout bounds each store call; zero disables the bound.
	StoreTimeout time.Duration
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Metrics == nil {
		o.Metrics = observability.NewMetrics()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// storeCall runs one store operation under the configured timeout and
// records its duration and failures.
func storeCall[T any](ctx context.Context, o Options, op string, fn func(context.Context) (T, error)) (T, error) {
	if o.StoreTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.StoreTimeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fn(ctx)
	o.Metrics.RecordDuration(op, time.Since(start))
	if err == nil {
		return v, nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		var timeout *domain.ErrTimeout
		if !errors.As(err, &timeout) {
			err = &domain.ErrTimeout{Operation: op}
		}
	}
	if !isDomainOutcome(err) {
		o.Metrics.IncrStoreError(op)
		o.Logger.Error("store call failed", zap.String("operation", op), zap.Error(err))
	}
	return v, err
}

// storeExec is storeCall for operations without a result.
func storeExec(ctx context.Context, o Options, op string, fn func(context.Context) error) error {
	_, err := storeCall(ctx, o, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// isDomainOutcome reports errors that describe the request, not a fault.
func isDomainOutcome(err error) bool {
	var nf *domain.ErrNotFound
	var dup *domain.ErrDuplicate
	var v *domain.ErrValidation
	return errors.As(err, &nf) || errors.As(err, &dup) || errors.As(err, &v)
}

// inflight rejects a second identical submission while the first one is
// still being written.
type inflight struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{keys: make(map[string]struct{})}
}

// acquire returns a release func, or false when key is already held.
func (f *inflight) acquire(key string) (func(), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.keys[key]; busy {
		return nil, false
	}
	f.keys[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.keys, key)
		f.mu.Unlock()
	}, true
}

func requirePrincipal(p *domain.Principal) error {
	if p == nil || p.ID == "" {
		return &domain.ErrUnauthorized{Message: "authentication required"}
	}
	return nil
}

func requireAdmin(p *domain.Principal, action string) error {
	if err := requirePrincipal(p); err != nil {
		return err
	}
	if !p.IsAdmin() {
		return &domain.ErrForbidden{Action: action}
	}
	return nil
}

// franchiseScope is a principal's reach over franchise-owned records.
// Admins reach every record. Other roles reach their home unit only, and a
// non-admin without a unit reaches nothing. Records without a franchise
// belong to the head office and are admin-only.
type franchiseScope struct {
	all  bool
	unit string
}

func scopeOf(p *domain.Principal) franchiseScope {
	if p.IsAdmin() {
		return franchiseScope{all: true}
	}
	return franchiseScope{unit: p.HomeFranchise()}
}

// allows reports whether a record owned by franchiseID is within reach.
func (s franchiseScope) allows(franchiseID *string) bool {
	if s.all {
		return true
	}
	return s.unit != "" && franchiseID != nil && *franchiseID == s.unit
}

// empty reports whether the scope reaches no record at all.
func (s franchiseScope) empty() bool {
	return !s.all && s.unit == ""
}

// filter is the franchise filter of a listing; requested only binds admins.
func (s franchiseScope) filter(requested string) string {
	if s.all {
		return requested
	}
	return s.unit
}

// owner is the franchise a new record is written under: the requested one
// for admins, the home unit for everyone else.
func (s franchiseScope) owner(requested *string, action string) (*string, error) {
	if s.all {
		if requested == nil {
			return nil, nil
		}
		return optional(*requested), nil
	}
	if s.unit == "" {
		return nil, &domain.ErrForbidden{Action: action + " without a franchise unit"}
	}
	if requested != nil && *requested != "" && *requested != s.unit {
		return nil, &domain.ErrForbidden{Action: action + " for another franchise"}
	}
	return strPtr(s.unit), nil
}

func strPtr(s string) *string {
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
