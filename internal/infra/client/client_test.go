package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/infra/client"
	"github.com/elance/franquias-portal-go/internal/infra/resilience"
)

func newClient(t *testing.T, h http.HandlerFunc, retries int) *client.PortalClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := resilience.Config{MaxRetries: retries, InitialBackoff: time.Millisecond}
	return client.NewPortalClient(srv.Client(), srv.URL, "tok-123", resilience.NewCircuitBreaker("portal-test"), cfg)
}

func TestBoard_SendsBearerAndDecodes(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auctions/board" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-123" {
			t.Errorf("unexpected auth header %q", got)
		}
		json.NewEncoder(w).Encode(domain.AuctionBoardView{
			Columns: []domain.BoardColumn{{
				AuctionColumn: domain.AuctionColumns[0],
				Cards:         []domain.AuctionCard{{Auction: domain.Auction{ID: "a1", Status: domain.AuctionPreparacao}}},
			}},
		})
	}, 0)

	view, err := c.Board(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(view.Columns) != 1 || view.Columns[0].Cards[0].ID != "a1" {
		t.Errorf("unexpected view: %+v", view)
	}
}

func TestMoveAuction_MapsErrorStatuses(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusBadRequest, func(err error) bool { var e *domain.ErrValidation; return errors.As(err, &e) }},
		{http.StatusUnauthorized, func(err error) bool { var e *domain.ErrUnauthorized; return errors.As(err, &e) }},
		{http.StatusForbidden, func(err error) bool { var e *domain.ErrForbidden; return errors.As(err, &e) }},
		{http.StatusNotFound, func(err error) bool { var e *domain.ErrNotFound; return errors.As(err, &e) }},
		{http.StatusConflict, func(err error) bool { var e *domain.ErrConflict; return errors.As(err, &e) }},
		{http.StatusGatewayTimeout, func(err error) bool { var e *domain.ErrTimeout; return errors.As(err, &e) }},
		{http.StatusInternalServerError, func(err error) bool { var e *domain.ErrExternalService; return errors.As(err, &e) }},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":"nope"}`))
			}, 0)
			_, err := c.MoveAuction(context.Background(), "a1", domain.AuctionPublicado)
			if !tt.check(err) {
				t.Errorf("unexpected error type %T: %v", err, err)
			}
		})
	}
}

func TestWrites_AreNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, 3)

	if _, err := c.ConfirmAward(context.Background(), "a1", "b1"); err == nil {
		t.Fatal("expected an error")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestReads_AreRetried(t *testing.T) {
	var calls atomic.Int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"items":[],"unread_count":0,"poll_interval_seconds":60}`))
	}, 2)

	inbox, err := c.Inbox(context.Background(), 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inbox.PollIntervalSeconds != 60 || calls.Load() != 2 {
		t.Errorf("unexpected inbox=%+v calls=%d", inbox, calls.Load())
	}
}

func TestCreateTask_PartialBatch(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusMultiStatus)
		w.Write([]byte(`{"error":"notifications failed","succeeded":["t1"],"failed":["u1","u2"]}`))
	}, 0)

	_, err := c.CreateTask(context.Background(), &domain.CreateTaskRequest{Title: "Revisar contrato"})
	var partial *domain.ErrPartialBatch
	if !errors.As(err, &partial) {
		t.Fatalf("expected ErrPartialBatch, got %T: %v", err, err)
	}
	if len(partial.Succeeded) != 1 || len(partial.Failed) != 2 {
		t.Errorf("unexpected partial: %+v", partial)
	}
}

func TestAwardDocument_ReturnsPDFBytes(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/auctions/a1/award-document" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.3"))
	}, 0)

	pdf, err := c.AwardDocument(context.Background(), "a1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(pdf) != "%PDF-1.3" {
		t.Errorf("unexpected body %q", pdf)
	}
}
