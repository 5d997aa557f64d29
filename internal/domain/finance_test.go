package domain_test

import (
	"testing"

	"github.com/elance/franquias-portal-go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestSummarize(t *testing.T) {
	entries := []domain.FinancialLog{
		{Type: domain.EntryRevenue, Amount: decimal.RequireFromString("1500.10")},
		{Type: domain.EntryRevenue, Amount: decimal.RequireFromString("0.20")},
		{Type: domain.EntryExpense, Amount: decimal.RequireFromString("300.05")},
	}
	s := domain.Summarize(entries)
	if !s.Revenue.Equal(decimal.RequireFromString("1500.30")) {
		t.Errorf("revenue: got %s", s.Revenue)
	}
	if !s.Balance.Equal(decimal.RequireFromString("1200.25")) {
		t.Errorf("balance: got %s", s.Balance)
	}
	if s.Entries != 3 {
		t.Errorf("entries: got %d", s.Entries)
	}
}

func TestNormalizeTaskStatus(t *testing.T) {
	cases := map[string]domain.TaskStatus{
		"pending":     domain.TaskTodo,
		"todo":        domain.TaskTodo,
		"completed":   domain.TaskDone,
		"in_progress": domain.TaskInProgress,
	}
	for in, want := range cases {
		got, ok := domain.NormalizeTaskStatus(in)
		if !ok || got != want {
			t.Errorf("%s: expected %s, got %s (%v)", in, want, got, ok)
		}
	}
	if _, ok := domain.NormalizeTaskStatus("archived"); ok {
		t.Error("expected archived to be rejected")
	}
}
