// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations (Supabase PostgREST, Postgres, memory).
package port

import (
	"context"

	"github.com/elance/franquias-portal-go/internal/domain"
)

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}

// ProfileStore reads profiles of the identity provider's users and updates
// their editable columns.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	// UpdateProfile writes full_name, phone, role, franchise_unit_id and
	// permissions of an existing profile.
	UpdateProfile(ctx context.Context, p *domain.Profile) (*domain.Profile, error)
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	ListProfilesByIDs(ctx context.Context, ids []string) ([]domain.Profile, error)
	ListProfilesByFranchise(ctx context.Context, franchiseID string) ([]domain.Profile, error)
}

// FranchiseStore persists franchise units.
type FranchiseStore interface {
	ListFranchises(ctx context.Context) ([]domain.FranchiseUnit, error)
	GetFranchise(ctx context.Context, id string) (*domain.FranchiseUnit, error)
	CreateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error)
	UpdateFranchise(ctx context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error)
}

// TaskStore persists tasks and their checklist steps.
type TaskStore interface {
	// CreateTasks inserts all tasks and their steps as one unit: either every
	// row is persisted or none is.
	CreateTasks(ctx context.Context, tasks []domain.Task) ([]domain.Task, error)
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status domain.TaskStatus) error
	SetStepCompleted(ctx context.Context, taskID, stepID string, completed bool) error
	DeleteTask(ctx context.Context, id string) error
}

// TemplateStore persists task templates.
type TemplateStore interface {
	CreateTemplate(ctx context.Context, tpl *domain.TaskTemplate) (*domain.TaskTemplate, error)
	GetTemplate(ctx context.Context, id string) (*domain.TaskTemplate, error)
	ListTemplates(ctx context.Context) ([]domain.TaskTemplate, error)
}

// NotificationStore persists user inboxes.
type NotificationStore interface {
	// CreateNotifications inserts all rows in a single write.
	CreateNotifications(ctx context.Context, notifs []domain.Notification) ([]domain.Notification, error)
	ListNotifications(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// AuctionStore persists auction processes.
type AuctionStore interface {
	CreateAuction(ctx context.Context, a *domain.Auction) (*domain.Auction, error)
	GetAuction(ctx context.Context, id string) (*domain.Auction, error)
	ListAuctions(ctx context.Context, franchiseID string) ([]domain.Auction, error)
	UpdateAuctionStatus(ctx context.Context, id string, status domain.AuctionStatus) error
	// AwardAuction sets status=arrematado and the winning bidder in one update.
	AwardAuction(ctx context.Context, id, bidderID string) (*domain.Auction, error)
}

// LeadStore persists leads, bidders and imported legal processes.
type LeadStore interface {
	CreateLead(ctx context.Context, lead *domain.Lead) (*domain.Lead, error)
	GetLead(ctx context.Context, id string) (*domain.Lead, error)
	ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, error)
	UpdateLeadStatus(ctx context.Context, id string, status domain.LeadStatus) error
	// CreateLegalProcess returns *domain.ErrDuplicate when the process number exists.
	CreateLegalProcess(ctx context.Context, p *domain.LegalProcess) (*domain.LegalProcess, error)
}

// FinanceStore persists the append-only ledger.
type FinanceStore interface {
	CreateFinancialLog(ctx context.Context, entry *domain.FinancialLog) (*domain.FinancialLog, error)
	ListFinancialLogs(ctx context.Context, filter domain.FinanceFilter) ([]domain.FinancialLog, error)
}

// TrainingStore persists training content and completions.
type TrainingStore interface {
	ListTrainings(ctx context.Context) ([]domain.TrainingContent, error)
	GetTraining(ctx context.Context, id string) (*domain.TrainingContent, error)
	CreateTraining(ctx context.Context, c *domain.TrainingContent) (*domain.TrainingContent, error)
	// CreateCompletion returns *domain.ErrDuplicate when (user, training) exists.
	CreateCompletion(ctx context.Context, c *domain.TrainingCompletion) error
	ListCompletions(ctx context.Context) ([]domain.TrainingCompletion, error)
}

// Store aggregates every persistence port; each adapter implements all of them.
type Store interface {
	ProfileStore
	FranchiseStore
	TaskStore
	TemplateStore
	NotificationStore
	AuctionStore
	LeadStore
	FinanceStore
	TrainingStore
	Ping(ctx context.Context) error
}

// Authenticator signs users in against the identity provider.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
}

// CredentialStore persists local password logins, keyed by email.
type CredentialStore interface {
	GetCredential(ctx context.Context, email string) (*domain.Credential, error)
	SaveCredential(ctx context.Context, c *domain.Credential) error
}

// AwardRenderer produces the Auto de Arrematação for a concluded auction.
type AwardRenderer interface {
	Render(auction *domain.Auction, bidder *domain.Lead) (*domain.AwardDocument, error)
}
