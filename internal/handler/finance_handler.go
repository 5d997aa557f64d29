package handler

import (
	"net/http"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Finance ledger
// ============================================================

func financeFilter(r *http.Request) domain.FinanceFilter {
	q := r.URL.Query()
	return domain.FinanceFilter{
		FranchiseID: q.Get("franchise_id"),
		From:        q.Get("from"),
		To:          q.Get("to"),
	}
}

func listEntriesHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/entries")
		defer span.End()

		entries, err := finance.ListEntries(ctx, PrincipalFromContext(ctx), financeFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func recordEntryHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/finance/entries")
		defer span.End()

		var in domain.FinancialLog
		if !decodeBody(w, r, &in) {
			return
		}

		entry, err := finance.RecordEntry(ctx, PrincipalFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

func financeSummaryHandler(finance *service.FinanceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/finance/summary")
		defer span.End()

		sum, err := finance.Summary(ctx, PrincipalFromContext(ctx), financeFilter(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, sum)
	}
}
