package memstore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/memstore"
	"github.com/elance/franquias-portal-go/internal/port"
)

var _ port.Store = (*memstore.Store)(nil)
var _ port.CredentialStore = (*memstore.Store)(nil)

func strPtr(s string) *string { return &s }

func TestListTasks_EitherMatchesAssignedAndFranchiseWide(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	_, err := s.CreateTasks(ctx, []domain.Task{
		{Title: "mine", AssignedTo: strPtr("u1"), FranchiseID: "f1"},
		{Title: "unit", FranchiseID: "f1"},
		{Title: "colleague", AssignedTo: strPtr("u2"), FranchiseID: "f1"},
		{Title: "other unit", FranchiseID: "f2"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := s.ListTasks(ctx, domain.TaskFilter{AssignedTo: "u1", FranchiseID: "f1", Either: true})
	if len(got) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(got))
	}
	titles := map[string]bool{}
	for _, task := range got {
		titles[task.Title] = true
	}
	if !titles["mine"] || !titles["unit"] {
		t.Errorf("unexpected tasks: %v", titles)
	}
}

func TestNotifications_NewestFirstAndScopedRead(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	created, _ := s.CreateNotifications(ctx, []domain.Notification{
		{UserID: "u1", Title: "first"},
		{UserID: "u1", Title: "second"},
		{UserID: "u2", Title: "other"},
	})

	list, _ := s.ListNotifications(ctx, "u1", 10)
	if len(list) != 2 || list[0].Title != "second" {
		t.Fatalf("expected newest first, got %+v", list)
	}

	var nf *domain.ErrNotFound
	if err := s.MarkNotificationRead(ctx, "u1", created[2].ID); !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound marking another user's notification, got %v", err)
	}

	if err := s.MarkAllNotificationsRead(ctx, "u1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, _ = s.ListNotifications(ctx, "u1", 10)
	for _, n := range list {
		if !n.Read {
			t.Errorf("expected %s read", n.ID)
		}
	}
	other, _ := s.ListNotifications(ctx, "u2", 10)
	if other[0].Read {
		t.Error("expected u2's notification untouched")
	}
}

func TestUniqueConstraints(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	var dup *domain.ErrDuplicate

	if _, err := s.CreateAuction(ctx, &domain.Auction{ProcessNumber: "0001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreateAuction(ctx, &domain.Auction{ProcessNumber: "0001"}); !errors.As(err, &dup) {
		t.Errorf("expected duplicate auction, got %v", err)
	}

	c := &domain.TrainingCompletion{UserID: "u1", TrainingID: "t1"}
	if err := s.CreateCompletion(ctx, c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CreateCompletion(ctx, c); !errors.As(err, &dup) {
		t.Errorf("expected duplicate completion, got %v", err)
	}

	p := &domain.LegalProcess{ProcessNumber: "5000"}
	if _, err := s.CreateLegalProcess(ctx, p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := s.CreateLegalProcess(ctx, p); !errors.As(err, &dup) {
		t.Errorf("expected duplicate process, got %v", err)
	}
}

func TestAwardAuction_SetsStatusAndBidder(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	a, _ := s.CreateAuction(ctx, &domain.Auction{ProcessNumber: "0002", Status: domain.AuctionSegundaPraca})
	got, err := s.AwardAuction(ctx, a.ID, "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != domain.AuctionArrematado || *got.ArrematanteID != "b1" {
		t.Errorf("unexpected auction: %+v", got)
	}
}

func TestUpdateProfile_WritesAccessColumns(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	s.PutFranchise(domain.FranchiseUnit{ID: "f1", Name: "Centro"})
	s.PutProfile(domain.Profile{ID: "u1", Email: "u1@elance.com.br", FullName: "Ana", Role: domain.RoleCollaborator})

	out, err := s.UpdateProfile(ctx, &domain.Profile{
		ID: "u1", FullName: "Ana Paula", Role: domain.RoleManager,
		FranchiseUnitID: strPtr("f1"), Permissions: map[string]bool{"finance": false},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if out.Email != "u1@elance.com.br" || out.Role != domain.RoleManager || out.HomeFranchise() != "f1" || out.Permissions["finance"] {
		t.Errorf("unexpected profile: %+v", out)
	}

	if _, err := s.UpdateProfile(ctx, &domain.Profile{ID: "u1", FranchiseUnitID: strPtr("gone")}); err == nil {
		t.Error("expected a missing unit to be rejected")
	}
	_, err = s.UpdateProfile(ctx, &domain.Profile{ID: "ghost"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFranchises_CreateAndUpdate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	u, err := s.CreateFranchise(ctx, &domain.FranchiseUnit{Name: "Unidade Norte"})
	if err != nil || u.ID == "" {
		t.Fatalf("create: %+v err=%v", u, err)
	}
	_, err = s.CreateFranchise(ctx, &domain.FranchiseUnit{ID: u.ID, Name: "Outra"})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	u.SiteTitle = "E-Lance Norte"
	if _, err := s.UpdateFranchise(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.GetFranchise(ctx, u.ID)
	if got.SiteTitle != "E-Lance Norte" {
		t.Errorf("unexpected unit: %+v", got)
	}
	_, err = s.UpdateFranchise(ctx, &domain.FranchiseUnit{ID: "gone"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
