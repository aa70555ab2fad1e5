package handler

import (
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/service"

	"go.uber.org/zap"
)

// ============================================================
// Business profile & policies
// ============================================================

func getBusinessHandler(svc *service.BusinessService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/business")
		defer span.End()

		profile, err := svc.Profile(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"business": profile})
	}
}

func registerBusinessHandler(svc *service.BusinessService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/business")
		defer span.End()

		var in domain.BusinessProfile
		if !decodeJSON(w, r, &in) {
			return
		}

		profile, err := svc.Register(ctx, SessionFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"business": profile})
	}
}

func generatePoliciesHandler(svc *service.BusinessService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/policies/generate")
		defer span.End()

		var in domain.PolicyRequest
		if !decodeJSON(w, r, &in) {
			return
		}

		policies, err := svc.GeneratePolicies(ctx, SessionFromContext(ctx), &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"policies": policies})
	}
}

func listPoliciesHandler(svc *service.BusinessService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/policies")
		defer span.End()

		policies, err := svc.Policies(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"policies": policies, "total": len(policies)})
	}
}
