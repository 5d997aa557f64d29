package handler

import (
	"net/http"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Leads & bidders
// ============================================================

func captureLeadHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/public/leads")
		defer span.End()

		var req domain.CaptureLeadRequest
		if !decodeBody(w, r, &req) {
			return
		}

		lead, err := leads.CaptureLead(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": lead.ID, "status": string(lead.Status)})
	}
}

func listLeadsHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/leads")
		defer span.End()

		q := r.URL.Query()
		filter := domain.LeadFilter{
			FranchiseID: q.Get("franchise_id"),
			Status:      domain.LeadStatus(q.Get("status")),
			Type:        domain.LeadType(q.Get("type")),
			Limit:       queryInt(r, "limit"),
		}
		list, err := leads.ListLeads(ctx, PrincipalFromContext(ctx), filter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createLeadHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/leads")
		defer span.End()

		var in domain.Lead
		if !decodeBody(w, r, &in) {
			return
		}

		lead, err := leads.CreateLead(ctx, PrincipalFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, lead)
	}
}

func updateLeadStatusHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/leads/{id}/status")
		defer span.End()

		var req struct {
			Status domain.LeadStatus `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		if err := leads.UpdateLeadStatus(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), req.Status); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func listBiddersHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/bidders")
		defer span.End()

		list, err := leads.ListBidders(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func importLegalProcessHandler(leads *service.LeadService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/legal-processes/import")
		defer span.End()

		var in domain.LegalProcess
		if !decodeBody(w, r, &in) {
			return
		}

		res, err := leads.ImportLegalProcess(ctx, PrincipalFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusCreated
		if !res.Imported {
			status = http.StatusOK
		}
		writeJSON(w, status, res)
	}
}
