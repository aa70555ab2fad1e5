package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nexora/nexora-bfa-go/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeKindError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: domain.UserMessage(err), Kind: domain.ErrorKind(err)})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func loanIDParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "loanId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "loan_id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		noSession    *domain.ErrNoSession
		unauthorized *domain.ErrUnauthorized
		remote       *domain.ErrRemote
		network      *domain.ErrNetwork
		malformed    *domain.ErrMalformedResponse
		validation   *domain.ErrValidation
		circuitOpen  *domain.ErrCircuitOpen
		timeout      *domain.ErrTimeout
		contract     *domain.ErrContractCall
		transition   *domain.ErrInvalidTransition
		notFound     *domain.ErrNotFound
		unavailable  *domain.ErrUnavailable
	)

	switch {
	case errors.As(err, &noSession):
		logger.Debug("no session", zap.String("operation", noSession.Operation))
		writeKindError(w, http.StatusUnauthorized, err)
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.Int("status", unauthorized.Status), zap.String("error", err.Error()))
		writeKindError(w, http.StatusUnauthorized, err)
	case errors.As(err, &remote):
		status := http.StatusBadGateway
		if remote.Status >= 400 && remote.Status < 500 {
			status = http.StatusUnprocessableEntity
		}
		logger.Warn("remote failure",
			zap.String("service", remote.Service),
			zap.Int("status", remote.Status),
			zap.String("detail", remote.Detail),
		)
		writeKindError(w, status, err)
	case errors.As(err, &network):
		logger.Error("network error", zap.Error(err))
		writeKindError(w, http.StatusServiceUnavailable, err)
	case errors.As(err, &malformed):
		logger.Error("malformed response", zap.Error(err))
		writeKindError(w, http.StatusBadGateway, err)
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeKindError(w, http.StatusBadRequest, err)
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeKindError(w, http.StatusServiceUnavailable, err)
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeKindError(w, http.StatusGatewayTimeout, err)
	case errors.As(err, &contract):
		logger.Error("contract call failed", zap.String("method", contract.Method), zap.Error(err))
		writeKindError(w, http.StatusBadGateway, err)
	case errors.As(err, &transition):
		logger.Warn("invalid session transition", zap.String("from", transition.From), zap.String("to", transition.To))
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error(), Kind: "invalid_transition"})
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Kind: "not_found"})
	case errors.As(err, &unavailable):
		logger.Debug("component unavailable", zap.String("component", unavailable.Component))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error(), Kind: "unavailable"})
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
