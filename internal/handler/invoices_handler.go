package handler

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Invoices & credit score
// ============================================================

// uploadFields are the accepted multipart field names, in lookup order.
var uploadFields = []string{"file", "image"}

func uploadHandler(rec *service.ScoreReconciler, maxBytes int64, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/invoices/upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "invoice file is too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid multipart body")
			return
		}
		defer r.MultipartForm.RemoveAll()

		var (
			file   multipart.File
			header *multipart.FileHeader
			field  string
		)
		for _, name := range uploadFields {
			f, h, err := r.FormFile(name)
			if err == nil {
				file, header, field = f, h, name
				break
			}
		}
		if file == nil {
			writeError(w, http.StatusBadRequest, "a 'file' or 'image' field is required")
			return
		}
		defer file.Close()

		uploadID := r.FormValue("upload_id")
		span.SetAttributes(attribute.String("upload.id", uploadID), attribute.String("upload.file", header.Filename))

		doc := &domain.Document{
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Field:       field,
			Content:     file,
		}
		sess := SessionFromContext(ctx)
		result, err := rec.UploadAndReconcile(ctx, sess, uploadID, doc, &stepLogger{logger: logger.With(zap.String("session_id", sess.ID()))})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

// stepLogger reports upload steps to the request log.
type stepLogger struct {
	logger *zap.Logger
}

func (s *stepLogger) OnProgress(domain.Progress) {}

func (s *stepLogger) OnStep(step domain.ReconcileStep, err error) {
	if err != nil {
		s.logger.Debug("upload step failed", zap.String("step", string(step)), zap.Error(err))
		return
	}
	s.logger.Debug("upload step done", zap.String("step", string(step)))
}

func uploadStatusHandler(tracker *progress.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "uploadId")
		st, ok := tracker.Get(SessionFromContext(r.Context()).ID(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "upload not found: "+id)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func dashboardScoreHandler(rec *service.ScoreReconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/credit-score/dashboard")
		defer span.End()

		score, err := rec.FetchDashboardScore(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, score)
	}
}

func singleScoreHandler(rec *service.ScoreReconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/credit-score/single")
		defer span.End()

		var inv domain.Invoice
		if !decodeJSON(w, r, &inv) {
			return
		}

		score, err := rec.ComputeSingleInvoiceScore(ctx, &inv)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, score)
	}
}

func listInvoicesHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/invoices")
		defer span.End()

		list, err := svc.List(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"invoices": list})
	}
}

func deleteInvoiceHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/invoices/{invoiceId}")
		defer span.End()

		id := chi.URLParam(r, "invoiceId")
		if err := svc.Delete(ctx, SessionFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "Invoice deleted", ID: id})
	}
}

func overviewHandler(svc *service.InvoiceService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		ov, err := svc.Overview(ctx, SessionFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		writeJSON(w, http.StatusOK, ov)
	}
}
