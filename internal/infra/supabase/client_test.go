package supabase_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/resilience"
	"github.com/elance/franquias-portal-go/internal/infra/supabase"

	"go.uber.org/zap"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Body   string
	Prefer string
}

// fakePostgREST records every request and answers from a route table keyed
// by "METHOD /rest/v1/table".
type fakePostgREST struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]func(w http.ResponseWriter, r *http.Request)
}

func newFake() *fakePostgREST {
	return &fakePostgREST{routes: map[string]func(http.ResponseWriter, *http.Request){}}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
		Prefer: r.Header.Get("Prefer"),
	})
	f.mu.Unlock()

	if r.Header.Get("apikey") != "anon" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("[]"))
		return
	}
	h(w, r)
}

func (f *fakePostgREST) calls(method, p string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.Method == method && r.Path == p {
			out = append(out, r)
		}
	}
	return out
}

func jsonReply(status int, v any) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

func newClient(t *testing.T, fake *fakePostgREST) *supabase.Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return supabase.NewClient(&http.Client{Timeout: 5 * time.Second}, srv.URL, "anon", "service",
		resilience.NewCircuitBreaker("test"), cfg, zap.NewNop())
}

func TestGetProfile_DecodesRow(t *testing.T) {
	fake := newFake()
	fake.routes["GET /rest/v1/profiles"] = jsonReply(http.StatusOK, []map[string]any{{
		"id":                "u1",
		"email":             "ana@elance.com.br",
		"full_name":         "Ana",
		"role":              "manager",
		"franchise_unit_id": "f1",
		"permissions":       map[string]bool{"finance": false},
	}})
	c := newClient(t, fake)

	p, err := c.GetProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != domain.RoleManager || p.HomeFranchise() != "f1" {
		t.Errorf("unexpected profile: %+v", p)
	}
	if allowed, ok := p.Permissions["finance"]; !ok || allowed {
		t.Errorf("expected finance=false in permissions, got %v", p.Permissions)
	}

	req := fake.calls(http.MethodGet, "/rest/v1/profiles")[0]
	if !strings.Contains(req.Query, "id=eq.u1") {
		t.Errorf("expected id filter, got query %q", req.Query)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	c := newClient(t, newFake())

	_, err := c.GetProfile(context.Background(), "ghost")
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateTasks_BulkInsertsTasksThenSteps(t *testing.T) {
	fake := newFake()
	fake.routes["POST /rest/v1/tasks"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("[]"))
	}
	fake.routes["POST /rest/v1/task_steps"] = jsonReply(http.StatusCreated, []any{})
	c := newClient(t, fake)

	userA, userB := "ua", "ub"
	tasks := []domain.Task{
		{Title: "Revisar contrato", Status: domain.TaskTodo, AssignedTo: &userA, FranchiseID: "f1",
			Steps: []domain.TaskStep{{Title: "Ler", OrderIndex: 0}}},
		{Title: "Revisar contrato", Status: domain.TaskTodo, AssignedTo: &userB, FranchiseID: "f2"},
	}

	out, err := c.CreateTasks(context.Background(), tasks)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0].ID == "" || out[1].ID == "" {
		t.Fatalf("expected two tasks with ids, got %+v", out)
	}
	if out[0].Steps[0].TaskID != out[0].ID {
		t.Errorf("step not linked to its task: %+v", out[0].Steps[0])
	}

	posts := fake.calls(http.MethodPost, "/rest/v1/tasks")
	if len(posts) != 1 {
		t.Fatalf("expected a single bulk insert, got %d", len(posts))
	}
	var rows []map[string]any
	if err := json.Unmarshal([]byte(posts[0].Body), &rows); err != nil || len(rows) != 2 {
		t.Fatalf("expected a JSON array of 2 rows, got %s", posts[0].Body)
	}
	if len(fake.calls(http.MethodPost, "/rest/v1/task_steps")) != 1 {
		t.Error("expected a single steps insert")
	}
}

func TestCreateTasks_StepFailureDeletesTasks(t *testing.T) {
	fake := newFake()
	fake.routes["POST /rest/v1/tasks"] = jsonReply(http.StatusCreated, []any{})
	fake.routes["POST /rest/v1/task_steps"] = jsonReply(http.StatusInternalServerError,
		map[string]string{"code": "XX000", "message": "boom"})
	fake.routes["DELETE /rest/v1/tasks"] = jsonReply(http.StatusOK, []any{})
	c := newClient(t, fake)

	u := "ua"
	_, err := c.CreateTasks(context.Background(), []domain.Task{
		{Title: "t", AssignedTo: &u, FranchiseID: "f1", Steps: []domain.TaskStep{{Title: "s"}}},
	})
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if len(fake.calls(http.MethodDelete, "/rest/v1/tasks")) != 1 {
		t.Error("expected a compensating delete of the inserted tasks")
	}
}

func TestCreateLegalProcess_UniqueViolationIsDuplicate(t *testing.T) {
	fake := newFake()
	fake.routes["POST /rest/v1/legal_process_leads"] = jsonReply(http.StatusConflict, map[string]string{
		"code":    "23505",
		"message": `duplicate key value violates unique constraint "legal_process_leads_process_number_key"`,
	})
	c := newClient(t, fake)

	_, err := c.CreateLegalProcess(context.Background(), &domain.LegalProcess{ProcessNumber: "0001"})
	var dup *domain.ErrDuplicate
	if !errors.As(err, &dup) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAwardAuction_SinglePatch(t *testing.T) {
	fake := newFake()
	fake.routes["PATCH /rest/v1/auctions"] = jsonReply(http.StatusOK, []map[string]any{{
		"id":             "a1",
		"process_number": "0001",
		"status":         "arrematado",
		"arrematante_id": "b1",
		"minimum_bid":    150000.5,
	}})
	c := newClient(t, fake)

	a, err := c.AwardAuction(context.Background(), "a1", "b1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Status != domain.AuctionArrematado || a.ArrematanteID == nil || *a.ArrematanteID != "b1" {
		t.Errorf("unexpected auction: %+v", a)
	}
	if a.MinimumBid.Decimal.String() != "150000.5" {
		t.Errorf("expected minimum bid 150000.5, got %s", a.MinimumBid.Decimal)
	}

	patches := fake.calls(http.MethodPatch, "/rest/v1/auctions")
	if len(patches) != 1 {
		t.Fatalf("expected one PATCH, got %d", len(patches))
	}
	var body map[string]any
	json.Unmarshal([]byte(patches[0].Body), &body)
	if body["status"] != "arrematado" || body["arrematante_id"] != "b1" {
		t.Errorf("expected status and bidder in one body, got %v", body)
	}
	if patches[0].Prefer != "return=representation" {
		t.Errorf("expected representation preference, got %q", patches[0].Prefer)
	}
}

func TestUpdateAuctionStatus_NoRowsIsNotFound(t *testing.T) {
	c := newClient(t, newFake())

	err := c.UpdateAuctionStatus(context.Background(), "missing", domain.AuctionPublicado)
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasks_EitherFilter(t *testing.T) {
	fake := newFake()
	fake.routes["GET /rest/v1/tasks"] = jsonReply(http.StatusOK, []map[string]any{{
		"id": "t1", "title": "x", "status": "pending", "franchise_id": "f1",
		"task_steps": []map[string]any{
			{"id": "s2", "title": "b", "order_index": 1},
			{"id": "s1", "title": "a", "order_index": 0},
		},
	}})
	c := newClient(t, fake)

	tasks, err := c.ListTasks(context.Background(), domain.TaskFilter{AssignedTo: "u1", FranchiseID: "f1", Either: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tasks[0].Status != domain.TaskTodo {
		t.Errorf("expected pending normalized to todo, got %s", tasks[0].Status)
	}
	if tasks[0].Steps[0].ID != "s1" {
		t.Errorf("expected steps ordered by order_index, got %+v", tasks[0].Steps)
	}

	q := fake.calls(http.MethodGet, "/rest/v1/tasks")[0].Query
	if !strings.Contains(q, "or=") {
		t.Errorf("expected an or= filter, got %q", q)
	}
}

func TestSignIn(t *testing.T) {
	fake := newFake()
	fake.routes["POST /auth/v1/token"] = func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		json.NewDecoder(r.Body).Decode(&creds)
		if creds["password"] != "secret" {
			jsonReply(http.StatusBadRequest, map[string]string{"error": "invalid_grant"})(w, r)
			return
		}
		jsonReply(http.StatusOK, map[string]any{
			"access_token": "jwt", "refresh_token": "r", "expires_in": 3600,
			"user": map[string]string{"id": "u1"},
		})(w, r)
	}
	c := newClient(t, fake)

	s, err := c.SignIn(context.Background(), "ana@elance.com.br", "secret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.AccessToken != "jwt" || s.UserID != "u1" {
		t.Errorf("unexpected session: %+v", s)
	}

	_, err = c.SignIn(context.Background(), "ana@elance.com.br", "wrong")
	var unauth *domain.ErrUnauthorized
	if !errors.As(err, &unauth) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestPing_ServerErrorIsExternal(t *testing.T) {
	fake := newFake()
	fake.routes["GET /rest/v1/franchise_units"] = jsonReply(http.StatusServiceUnavailable, map[string]string{"message": "down"})
	c := newClient(t, fake)

	err := c.Ping(context.Background())
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
}

func TestUpdateProfile_PatchesAccessColumns(t *testing.T) {
	fake := newFake()
	fake.routes["PATCH /rest/v1/profiles"] = jsonReply(http.StatusOK, []map[string]any{{
		"id": "u1", "full_name": "Ana", "role": "manager", "franchise_unit_id": "f1",
		"permissions": map[string]bool{"finance": false},
	}})
	c := newClient(t, fake)

	p, err := c.UpdateProfile(context.Background(), &domain.Profile{
		ID: "u1", FullName: "Ana", Role: domain.RoleManager, FranchiseUnitID: strPtr("f1"),
		Permissions: map[string]bool{"finance": false},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Role != domain.RoleManager || p.HomeFranchise() != "f1" {
		t.Errorf("unexpected profile: %+v", p)
	}

	patches := fake.calls(http.MethodPatch, "/rest/v1/profiles")
	if len(patches) != 1 || !strings.Contains(patches[0].Query, "id=eq.u1") {
		t.Fatalf("expected one PATCH for u1, got %+v", patches)
	}
	var body map[string]any
	json.Unmarshal([]byte(patches[0].Body), &body)
	perms, _ := body["permissions"].(map[string]any)
	if body["role"] != "manager" || body["franchise_unit_id"] != "f1" || perms["finance"] != false {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestUpdateFranchise_NoRowsIsNotFound(t *testing.T) {
	c := newClient(t, newFake())

	_, err := c.UpdateFranchise(context.Background(), &domain.FranchiseUnit{ID: "gone", Name: "x"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func strPtr(s string) *string { return &s }
