// Package memstore is an in-memory implementation of port.Store, used for
// local development (STORE=memory) and tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/google/uuid"
)

// Store keeps every entity in maps guarded by one mutex.
type Store struct {
	mu sync.RWMutex

	profiles      map[string]domain.Profile
	franchises    map[string]domain.FranchiseUnit
	tasks         map[string]domain.Task
	templates     map[string]domain.TaskTemplate
	notifications map[string]domain.Notification
	auctions      map[string]domain.Auction
	leads         map[string]domain.Lead
	processes     map[string]domain.LegalProcess
	ledger        []domain.FinancialLog
	trainings     map[string]domain.TrainingContent
	completions   []domain.TrainingCompletion
	credentials   map[string]domain.Credential

	now func() time.Time
	seq int64
}

// New creates an empty store.
func New() *Store {
	return &Store{
		profiles:      make(map[string]domain.Profile),
		franchises:    make(map[string]domain.FranchiseUnit),
		tasks:         make(map[string]domain.Task),
		templates:     make(map[string]domain.TaskTemplate),
		notifications: make(map[string]domain.Notification),
		auctions:      make(map[string]domain.Auction),
		leads:         make(map[string]domain.Lead),
		processes:     make(map[string]domain.LegalProcess),
		trainings:     make(map[string]domain.TrainingContent),
		credentials:   make(map[string]domain.Credential),
		now:           time.Now,
	}
}

// PutProfile inserts or replaces a profile. Profiles belong to the identity
// provider, so there is no port method creating them.
func (s *Store) PutProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p
}

// PutFranchise inserts or replaces a franchise unit.
func (s *Store) PutFranchise(u domain.FranchiseUnit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.franchises[u.ID] = u
}

// stamp returns a strictly increasing creation time so newest-first
// ordering is stable within one test.
func (s *Store) stamp() time.Time {
	s.seq++
	return s.now().Add(time.Duration(s.seq) * time.Microsecond)
}

func newID() string {
	return uuid.New().String()
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

// --- Profiles & franchises ---

func (s *Store) GetProfile(_ context.Context, userID string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &p, nil
}

func (s *Store) UpdateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[p.ID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: p.ID}
	}
	if unit := p.HomeFranchise(); unit != "" {
		if _, ok := s.franchises[unit]; !ok {
			return nil, &domain.ErrExternalService{Service: "memstore", Err: fmt.Errorf("franchise unit %s does not exist", unit)}
		}
	}
	cur.FullName = p.FullName
	cur.Phone = p.Phone
	cur.Role = p.Role
	cur.FranchiseUnitID = p.FranchiseUnitID
	cur.Permissions = copyPermissions(p.Permissions)
	s.profiles[p.ID] = cur
	return &cur, nil
}

func copyPermissions(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (s *Store) ListProfiles(context.Context) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *Store) ListProfilesByIDs(_ context.Context, ids []string) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Profile, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) ListProfilesByFranchise(_ context.Context, franchiseID string) ([]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Profile{}
	for _, p := range s.profiles {
		if p.HomeFranchise() == franchiseID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListFranchises(context.Context) ([]domain.FranchiseUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.FranchiseUnit, 0, len(s.franchises))
	for _, u := range s.franchises {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetFranchise(_ context.Context, id string) (*domain.FranchiseUnit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.franchises[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "franchise", ID: id}
	}
	return &u, nil
}

func (s *Store) CreateFranchise(_ context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *u
	if out.ID == "" {
		out.ID = newID()
	}
	if _, ok := s.franchises[out.ID]; ok {
		return nil, &domain.ErrDuplicate{Key: "franchise_units.id=" + out.ID}
	}
	s.franchises[out.ID] = out
	return &out, nil
}

func (s *Store) UpdateFranchise(_ context.Context, u *domain.FranchiseUnit) (*domain.FranchiseUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.franchises[u.ID]; !ok {
		return nil, &domain.ErrNotFound{Resource: "franchise", ID: u.ID}
	}
	s.franchises[u.ID] = *u
	out := *u
	return &out, nil
}

// --- Tasks ---

// CreateTasks stores the whole batch under one lock.
func (s *Store) CreateTasks(_ context.Context, tasks []domain.Task) ([]domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = newID()
		}
		t.CreatedAt = s.stamp()
		t.Steps = append([]domain.TaskStep(nil), t.Steps...)
		for i := range t.Steps {
			if t.Steps[i].ID == "" {
				t.Steps[i].ID = newID()
			}
			t.Steps[i].TaskID = t.ID
		}
		out = append(out, t)
	}
	for _, t := range out {
		s.tasks[t.ID] = t
	}
	return out, nil
}

func (s *Store) GetTask(_ context.Context, id string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "task", ID: id}
	}
	t.Steps = append([]domain.TaskStep(nil), t.Steps...)
	return &t, nil
}

func (s *Store) ListTasks(_ context.Context, f domain.TaskFilter) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Task{}
	for _, t := range s.tasks {
		if !matchTask(t, f) {
			continue
		}
		t.Steps = append([]domain.TaskStep(nil), t.Steps...)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func matchTask(t domain.Task, f domain.TaskFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	assigned := t.AssignedTo != nil && *t.AssignedTo == f.AssignedTo
	switch {
	case f.Either:
		open := f.FranchiseID != "" && t.AssignedTo == nil && t.FranchiseID == f.FranchiseID
		return assigned || open
	case f.AssignedTo != "":
		return assigned
	case f.FranchiseID != "":
		return t.FranchiseID == f.FranchiseID
	}
	return true
}

func (s *Store) UpdateTaskStatus(_ context.Context, id string, status domain.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "task", ID: id}
	}
	t.Status = status
	s.tasks[id] = t
	return nil
}

func (s *Store) SetStepCompleted(_ context.Context, taskID, stepID string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return &domain.ErrNotFound{Resource: "task", ID: taskID}
	}
	steps := append([]domain.TaskStep(nil), t.Steps...)
	for i := range steps {
		if steps[i].ID == stepID {
			steps[i].Completed = completed
			t.Steps = steps
			s.tasks[taskID] = t
			return nil
		}
	}
	return &domain.ErrNotFound{Resource: "task step", ID: stepID}
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return &domain.ErrNotFound{Resource: "task", ID: id}
	}
	delete(s.tasks, id)
	return nil
}

// --- Templates ---

func (s *Store) CreateTemplate(_ context.Context, tpl *domain.TaskTemplate) (*domain.TaskTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *tpl
	if out.ID == "" {
		out.ID = newID()
	}
	out.Steps = append([]domain.TemplateStep(nil), tpl.Steps...)
	for i := range out.Steps {
		if out.Steps[i].ID == "" {
			out.Steps[i].ID = newID()
		}
		out.Steps[i].TemplateID = out.ID
	}
	s.templates[out.ID] = out
	return &out, nil
}

func (s *Store) GetTemplate(_ context.Context, id string) (*domain.TaskTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "task template", ID: id}
	}
	return &t, nil
}

func (s *Store) ListTemplates(context.Context) ([]domain.TaskTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TaskTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// --- Notifications ---

func (s *Store) CreateNotifications(_ context.Context, notifs []domain.Notification) ([]domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Notification, 0, len(notifs))
	for _, n := range notifs {
		if n.ID == "" {
			n.ID = newID()
		}
		n.CreatedAt = s.stamp()
		s.notifications[n.ID] = n
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Notification{}
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok || n.UserID != userID {
		return &domain.ErrNotFound{Resource: "notification", ID: id}
	}
	n.Read = true
	s.notifications[id] = n
	return nil
}

func (s *Store) MarkAllNotificationsRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			s.notifications[id] = n
		}
	}
	return nil
}

// --- Auctions ---

func (s *Store) CreateAuction(_ context.Context, a *domain.Auction) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.auctions {
		if existing.ProcessNumber == a.ProcessNumber {
			return nil, &domain.ErrDuplicate{Key: "process_number=" + a.ProcessNumber}
		}
	}
	out := *a
	if out.ID == "" {
		out.ID = newID()
	}
	out.CreatedAt = s.stamp()
	s.auctions[out.ID] = out
	return &out, nil
}

func (s *Store) GetAuction(_ context.Context, id string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	return &a, nil
}

func (s *Store) ListAuctions(_ context.Context, franchiseID string) ([]domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Auction{}
	for _, a := range s.auctions {
		if franchiseID != "" && (a.FranchiseID == nil || *a.FranchiseID != franchiseID) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateAuctionStatus(_ context.Context, id string, status domain.AuctionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	a.Status = status
	s.auctions[id] = a
	return nil
}

func (s *Store) AwardAuction(_ context.Context, id, bidderID string) (*domain.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "auction", ID: id}
	}
	a.Status = domain.AuctionArrematado
	bidder := bidderID
	a.ArrematanteID = &bidder
	s.auctions[id] = a
	return &a, nil
}

// --- Leads ---

func (s *Store) CreateLead(_ context.Context, lead *domain.Lead) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *lead
	if out.ID == "" {
		out.ID = newID()
	}
	out.CreatedAt = s.stamp()
	s.leads[out.ID] = out
	return &out, nil
}

func (s *Store) GetLead(_ context.Context, id string) (*domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	return &l, nil
}

func (s *Store) ListLeads(_ context.Context, f domain.LeadFilter) ([]domain.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Lead{}
	for _, l := range s.leads {
		if f.FranchiseID != "" && (l.FranchiseID == nil || *l.FranchiseID != f.FranchiseID) {
			continue
		}
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Type != "" && l.Type != f.Type {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) UpdateLeadStatus(_ context.Context, id string, status domain.LeadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return &domain.ErrNotFound{Resource: "lead", ID: id}
	}
	l.Status = status
	s.leads[id] = l
	return nil
}

func (s *Store) CreateLegalProcess(_ context.Context, p *domain.LegalProcess) (*domain.LegalProcess, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.processes[p.ProcessNumber]; ok {
		return nil, &domain.ErrDuplicate{Key: "process_number=" + p.ProcessNumber}
	}
	out := *p
	if out.ID == "" {
		out.ID = newID()
	}
	s.processes[out.ProcessNumber] = out
	return &out, nil
}

// --- Finance ---

func (s *Store) CreateFinancialLog(_ context.Context, entry *domain.FinancialLog) (*domain.FinancialLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *entry
	if out.ID == "" {
		out.ID = newID()
	}
	out.CreatedAt = s.stamp()
	s.ledger = append(s.ledger, out)
	return &out, nil
}

func (s *Store) ListFinancialLogs(_ context.Context, f domain.FinanceFilter) ([]domain.FinancialLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.FinancialLog{}
	for _, e := range s.ledger {
		if f.FranchiseID != "" && (e.FranchiseID == nil || *e.FranchiseID != f.FranchiseID) {
			continue
		}
		// ISO dates compare lexically.
		if f.From != "" && e.Date < f.From {
			continue
		}
		if f.To != "" && e.Date > f.To {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

// --- Training ---

func (s *Store) ListTrainings(context.Context) ([]domain.TrainingContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TrainingContent, 0, len(s.trainings))
	for _, t := range s.trainings {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (s *Store) GetTraining(_ context.Context, id string) (*domain.TrainingContent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trainings[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "training", ID: id}
	}
	return &t, nil
}

func (s *Store) CreateTraining(_ context.Context, t *domain.TrainingContent) (*domain.TrainingContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *t
	if out.ID == "" {
		out.ID = newID()
	}
	s.trainings[out.ID] = out
	return &out, nil
}

func (s *Store) CreateCompletion(_ context.Context, c *domain.TrainingCompletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.completions {
		if existing.UserID == c.UserID && existing.TrainingID == c.TrainingID {
			return &domain.ErrDuplicate{Key: fmt.Sprintf("training_completion=%s/%s", c.UserID, c.TrainingID)}
		}
	}
	s.completions = append(s.completions, *c)
	return nil
}

func (s *Store) ListCompletions(context.Context) ([]domain.TrainingCompletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.TrainingCompletion(nil), s.completions...), nil
}

// --- Credentials ---

func (s *Store) GetCredential(_ context.Context, email string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[strings.ToLower(email)]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "credential", ID: email}
	}
	return &c, nil
}

func (s *Store) SaveCredential(_ context.Context, c *domain.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credentials[strings.ToLower(c.Email)] = *c
	return nil
}
