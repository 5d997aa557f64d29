package handler

import (
	"net/http"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Training center
// ============================================================

func listTrainingHandler(training *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/training")
		defer span.End()

		list, err := training.ListContent(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createTrainingHandler(training *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/training")
		defer span.End()

		var in domain.TrainingContent
		if !decodeBody(w, r, &in) {
			return
		}

		c, err := training.CreateContent(ctx, PrincipalFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func completeTrainingHandler(training *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/training/{id}/complete")
		defer span.End()

		var req struct {
			Score int `json:"score"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		res, err := training.RecordCompletion(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), req.Score)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func leaderboardHandler(training *service.TrainingService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/training/leaderboard")
		defer span.End()

		board, err := training.Leaderboard(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, board)
	}
}
