package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Auctions
// ============================================================

func auctionBoardHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auctions/board")
		defer span.End()

		view, err := auctions.Board(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func createAuctionHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auctions")
		defer span.End()

		var req domain.CreateAuctionRequest
		if !decodeBody(w, r, &req) {
			return
		}

		a, err := auctions.CreateAuction(ctx, PrincipalFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func getAuctionHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auctions/{id}")
		defer span.End()

		card, err := auctions.GetAuction(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func moveAuctionHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/auctions/{id}/status")
		defer span.End()

		var req struct {
			Status domain.AuctionStatus `json:"status"`
		}
		if !decodeBody(w, r, &req) {
			return
		}
		span.SetAttributes(attribute.String("auction.target", string(req.Status)))

		res, err := auctions.MoveAuction(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), req.Status)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		status := http.StatusOK
		if res.Held {
			status = http.StatusAccepted
		}
		writeJSON(w, status, res)
	}
}

func confirmAwardHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auctions/{id}/award")
		defer span.End()

		var req struct {
			BidderID string `json:"arrematante_id"`
		}
		if !decodeBody(w, r, &req) {
			return
		}

		id := chi.URLParam(r, "id")
		res, err := auctions.ConfirmAward(ctx, PrincipalFromContext(ctx), id, req.BidderID)
		var pending *domain.ErrDocumentPending
		if errors.As(err, &pending) && res != nil {
			logger.Warn("award persisted without its document",
				zap.String("auction_id", id),
				zap.Error(pending.Err),
			)
			w.Header().Set("Location", "/v1/auctions/"+id+"/award-document")
			writeJSON(w, http.StatusAccepted, res)
			return
		}
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Location", "/v1/auctions/"+id+"/award-document")
		writeJSON(w, http.StatusOK, res)
	}
}

func awardDocumentHandler(auctions *service.AuctionService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/auctions/{id}/award-document")
		defer span.End()

		doc, err := auctions.ReissueAwardDocument(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(doc.PDF)))
		w.WriteHeader(http.StatusOK)
		w.Write(doc.PDF)
	}
}
