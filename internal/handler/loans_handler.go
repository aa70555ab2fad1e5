package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// P2P loans
// ============================================================

func listLoansHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans")
		defer span.End()

		loans, err := svc.ListLoans(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"loans": loans, "total": len(loans)})
	}
}

func createLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans")
		defer span.End()

		var in domain.CreateLoanInput
		if !decodeJSON(w, r, &in) {
			return
		}

		res, err := svc.CreateLoan(ctx, &in)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}

func getLoanHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{loanId}")
		defer span.End()

		id, ok := loanIDParam(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.Int64("loan.id", int64(id)))

		loan, err := svc.GetLoan(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			*domain.LoanRequest
			Status string `json:"status"`
		}{loan, loan.Status()})
	}
}

// loanActionHandler serves the fund, repay and default transactions.
func loanActionHandler(action string, fn func(ctx context.Context, loanID uint64) (*domain.TxResult, error), logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans/{loanId}/"+action)
		defer span.End()

		id, ok := loanIDParam(w, r)
		if !ok {
			return
		}
		span.SetAttributes(attribute.Int64("loan.id", int64(id)))

		res, err := fn(ctx, id)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func escrowHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/escrow")
		defer span.End()

		bal, err := svc.EscrowBalance(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, bal)
	}
}

func maxLoanAmountHandler(svc *service.LoanService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/max-amount")
		defer span.End()

		score, err := strconv.Atoi(r.URL.Query().Get("credit_score"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "credit_score must be an integer")
			return
		}

		res, err := svc.MaxLoanAmount(ctx, score)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}
