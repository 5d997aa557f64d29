package service_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/elance/franquias-portal-go/internal/document"
	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/memstore"
	"github.com/elance/franquias-portal-go/internal/infra/observability"
	"github.com/elance/franquias-portal-go/internal/service"

	"go.uber.org/zap"
)

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func testOptions(m *observability.Metrics) service.Options {
	return service.Options{
		StoreTimeout: time.Second,
		Metrics:      m,
		Logger:       zap.NewNop(),
		Now:          func() time.Time { return fixedNow },
	}
}

var (
	admin   = &domain.Principal{ID: "admin", Role: domain.RoleAdmin}
	creator = &domain.Principal{ID: "creator", Role: domain.RoleManager, FranchiseUnitID: "f2"}
	userA   = &domain.Principal{ID: "userA", Role: domain.RoleCollaborator, FranchiseUnitID: "f1"}
	userB   = &domain.Principal{ID: "userB", Role: domain.RoleCollaborator}
	userC   = &domain.Principal{ID: "userC", Role: domain.RoleCollaborator, FranchiseUnitID: "f1"}
)

// seededStore has two units: f1 with userA and userC, f2 with creator.
// userB belongs to no unit.
func seededStore() *memstore.Store {
	s := memstore.New()
	s.PutFranchise(domain.FranchiseUnit{ID: "f1", Name: "Unidade Centro", LogoURL: "https://cdn/f1.png"})
	s.PutFranchise(domain.FranchiseUnit{ID: "f2", Name: "Unidade Sul"})
	s.PutProfile(domain.Profile{ID: "admin", FullName: "Admin", Role: domain.RoleAdmin})
	s.PutProfile(domain.Profile{ID: "creator", FullName: "Carla Gestora", Role: domain.RoleManager, FranchiseUnitID: strPtr("f2")})
	s.PutProfile(domain.Profile{ID: "userA", FullName: "Ana", Role: domain.RoleCollaborator, FranchiseUnitID: strPtr("f1")})
	s.PutProfile(domain.Profile{ID: "userB", FullName: "Bruno", Role: domain.RoleCollaborator})
	s.PutProfile(domain.Profile{ID: "userC", FullName: "Caio", Role: domain.RoleCollaborator, FranchiseUnitID: strPtr("f1")})
	return s
}

// failingNotifications accepts tasks but rejects every notification batch.
type failingNotifications struct {
	*memstore.Store
}

func (f failingNotifications) CreateNotifications(context.Context, []domain.Notification) ([]domain.Notification, error) {
	return nil, &domain.ErrExternalService{Service: "memstore", Err: errors.New("notifications table unavailable")}
}

// blockingTasks holds CreateTasks until release is closed.
type blockingTasks struct {
	*memstore.Store
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingTasks) CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error) {
	b.once.Do(func() { close(b.started) })
	<-b.release
	return b.Store.CreateTasks(ctx, tasks)
}

// countingRenderer wraps the real generator and counts calls.
type countingRenderer struct {
	mu    sync.Mutex
	calls int
	err   error
	gen   *document.Generator
}

func newCountingRenderer() *countingRenderer {
	return &countingRenderer{gen: document.NewGenerator("E-Lance", func() time.Time { return fixedNow })}
}

func (r *countingRenderer) Render(a *domain.Auction, bidder *domain.Lead) (*domain.AwardDocument, error) {
	r.mu.Lock()
	r.calls++
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.gen.Render(a, bidder)
}

func (r *countingRenderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// failingAward rejects every award write.
type failingAward struct {
	*memstore.Store
}

func (f failingAward) AwardAuction(context.Context, string, string) (*domain.Auction, error) {
	return nil, &domain.ErrExternalService{Service: "memstore", Err: errors.New("write rejected")}
}

// fakeAuth is a scripted identity provider.
type fakeAuth struct {
	session *domain.Session
	err     error
}

func (f *fakeAuth) SignIn(context.Context, string, string) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.session
	return &cp, nil
}
