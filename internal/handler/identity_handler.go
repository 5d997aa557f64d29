package handler

import (
	"net/http"

	"github.com/elance/franquias-portal-go/internal/domain"
	"github.com/elance/franquias-portal-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func loginHandler(identity *service.IdentityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/auth/login")
		defer span.End()

		var req domain.SignInRequest
		if !decodeBody(w, r, &req) {
			return
		}

		session, err := identity.SignIn(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, PrincipalFromContext(r.Context()))
	}
}

func navigationHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.VisibleNavigation(PrincipalFromContext(r.Context())))
	}
}

func brandingHandler(franchises *service.FranchiseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/branding")
		defer span.End()

		b, err := franchises.Branding(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func listProfilesHandler(identity *service.IdentityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/profiles")
		defer span.End()

		profiles, err := identity.ListProfiles(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profiles)
	}
}

func listFranchisesHandler(franchises *service.FranchiseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/franchises")
		defer span.End()

		units, err := franchises.ListFranchises(ctx, PrincipalFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, units)
	}
}

func updateProfileHandler(identity *service.IdentityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/profiles/{id}")
		defer span.End()

		var upd domain.ProfileUpdate
		if !decodeBody(w, r, &upd) {
			return
		}

		profile, err := identity.UpdateProfile(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), &upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func updateMeHandler(identity *service.IdentityService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/me")
		defer span.End()

		var upd domain.ProfileUpdate
		if !decodeBody(w, r, &upd) {
			return
		}

		p := PrincipalFromContext(ctx)
		profile, err := identity.UpdateProfile(ctx, p, p.ID, &upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func createFranchiseHandler(franchises *service.FranchiseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/franchises")
		defer span.End()

		var in domain.FranchiseUnit
		if !decodeBody(w, r, &in) {
			return
		}

		u, err := franchises.CreateFranchise(ctx, PrincipalFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, u)
	}
}

func updateFranchiseHandler(franchises *service.FranchiseService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/franchises/{id}")
		defer span.End()

		var upd domain.FranchiseUpdate
		if !decodeBody(w, r, &upd) {
			return
		}

		u, err := franchises.UpdateFranchise(ctx, PrincipalFromContext(ctx), chi.URLParam(r, "id"), &upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
