package handler

import (
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/fixtures"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Fixtures & schemas
// ============================================================

func fixtureKindsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"kinds": fixtures.Kinds()})
	}
}

func fixturesHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := chi.URLParam(r, "kind")
		data, ok := fixtures.Get(kind)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "fixture", ID: kind}, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{kind: data})
	}
}

func schemaNamesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"schemas": wire.SchemaNames()})
	}
}

func schemaHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		s, ok := wire.Schema(name)
		if !ok {
			handleServiceError(w, &domain.ErrNotFound{Resource: "schema", ID: name}, logger)
			return
		}
		writeJSON(w, http.StatusOK, s)
	}
}
