package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"
	"github.com/nexora/nexora-bfa-go/internal/port"
	"github.com/nexora/nexora-bfa-go/internal/progress"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service")

// Session runs remote calls with a session's bearer token and handles the
// refresh-and-retry policy. *session.Session satisfies it.
type Session interface {
	ID() string
	Do(ctx context.Context, op string, fn func(ctx context.Context, token string) error) error
}

// UploadListener receives updates while an upload flow advances. A listener
// is detached as soon as the caller's context ends; the flow itself goes on.
type UploadListener interface {
	OnProgress(p domain.Progress)
	OnStep(step domain.ReconcileStep, err error)
}

// ScoreReconciler combines the extraction result, the single-invoice score
// and the cumulative dashboard score into one display-ready view.
type ScoreReconciler struct {
	processor port.InvoiceProcessor
	scorer    port.ScoreCalculator
	dashboard port.DashboardFetcher
	tracker   *progress.Tracker
	bulkhead  *resilience.Bulkhead
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewScoreReconciler creates the reconciler with all dependencies injected.
func NewScoreReconciler(
	processor port.InvoiceProcessor,
	scorer port.ScoreCalculator,
	dashboard port.DashboardFetcher,
	tracker *progress.Tracker,
	bulkhead *resilience.Bulkhead,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *ScoreReconciler {
	return &ScoreReconciler{
		processor: processor,
		scorer:    scorer,
		dashboard: dashboard,
		tracker:   tracker,
		bulkhead:  bulkhead,
		metrics:   metrics,
		logger:    logger,
	}
}

// FetchDashboardScore returns the cumulative score of the session's user.
// Users without invoices get the "No Data" view with an empty-state prompt.
func (r *ScoreReconciler) FetchDashboardScore(ctx context.Context, sess Session) (*domain.DashboardScore, error) {
	ctx, span := tracer.Start(ctx, "ScoreReconciler.FetchDashboardScore")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sess.ID()))

	var score *domain.DashboardScore
	err := sess.Do(ctx, "dashboard score", func(ctx context.Context, token string) error {
		s, err := r.dashboard.GetDashboardScore(ctx, token)
		if err != nil {
			return err
		}
		score = s
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("dashboard score: %w", err)
	}

	if score.IsEmpty() {
		score.Score = 0
		score.Category = domain.CategoryNoData
		score.EmptyState = domain.EmptyStatePrompt
	}
	return score, nil
}

// ComputeSingleInvoiceScore scores inv in isolation: one invoice, entirely
// pending.
func (r *ScoreReconciler) ComputeSingleInvoiceScore(ctx context.Context, inv *domain.Invoice) (*domain.ScopedScore, error) {
	ctx, span := tracer.Start(ctx, "ScoreReconciler.ComputeSingleInvoiceScore")
	defer span.End()

	if inv == nil {
		return nil, &domain.ErrValidation{Field: "invoice", Message: "is required"}
	}
	span.SetAttributes(attribute.String("invoice.number", inv.InvoiceNumber))

	analysis, err := r.scorer.CalculateSingleInvoiceScore(ctx, domain.SingleInvoiceSnapshot(inv))
	if err != nil {
		return nil, fmt.Errorf("single invoice score: %w", err)
	}
	return &domain.ScopedScore{
		Scope:         domain.ScopeIndividual,
		Score:         analysis.FinalWeightedCreditScore,
		Category:      analysis.ScoreCategory,
		TotalInvoices: 1,
		Analysis:      analysis,
	}, nil
}

// Reconcile combines the three results into a display-ready view. Any input
// but upload may be nil. The cumulative score prefers the dashboard and
// falls back to the analysis the extraction service returned.
func Reconcile(upload *domain.UploadResult, individual *domain.ScopedScore, dashboard *domain.DashboardScore) *domain.Reconciliation {
	rec := &domain.Reconciliation{
		Invoice:           upload.Invoice,
		HistoricalSummary: upload.HistoricalSummary,
		TotalLineItems:    upload.TotalLineItems,
		Duplicate:         upload.Duplicate,
		Individual:        individual,
		Dashboard:         dashboard,
	}

	switch {
	case dashboard != nil:
		rec.Total = &domain.ScopedScore{
			Scope:         domain.ScopeTotal,
			Score:         dashboard.Score,
			Category:      dashboard.Category,
			TotalInvoices: dashboard.TotalInvoices,
			LastUpdated:   dashboard.LastUpdated,
			Analysis:      upload.CreditScoreAnalysis,
		}
	case upload.CreditScoreAnalysis != nil:
		total := 0
		if upload.HistoricalSummary != nil {
			total = upload.HistoricalSummary.TotalHistoricalInvoices
		}
		rec.Total = &domain.ScopedScore{
			Scope:         domain.ScopeTotal,
			Score:         upload.CreditScoreAnalysis.FinalWeightedCreditScore,
			Category:      upload.CreditScoreAnalysis.ScoreCategory,
			TotalInvoices: total,
			Analysis:      upload.CreditScoreAnalysis,
		}
	}

	if inv := upload.Invoice; inv != nil {
		rec.Display = &domain.ReconcileDisplay{
			TotalAmount:  domain.FormatCurrency(inv.TotalAmount, inv.Currency),
			TaxAmount:    domain.FormatCurrency(inv.TaxAmount, inv.Currency),
			ExtraCharges: domain.FormatCurrency(inv.ExtraCharges, inv.Currency),
		}
		if dashboard != nil && dashboard.IsEmpty() {
			rec.Display.EmptyState = domain.EmptyStatePrompt
		}
	}
	return rec
}

// UploadAndReconcile runs the upload flow in order: extraction, then the
// single-invoice score, then the dashboard refresh. Only an extraction
// failure fails the flow; later failures are recorded in Failures and the
// rest of the result is still returned.
//
// The remote calls run detached from ctx: once ctx ends the listener stops
// receiving updates but the requests complete and the upload tracker is
// still finished.
func (r *ScoreReconciler) UploadAndReconcile(ctx context.Context, sess Session, uploadID string, doc *domain.Document, listener UploadListener) (*domain.Reconciliation, error) {
	ctx, span := tracer.Start(ctx, "ScoreReconciler.UploadAndReconcile")
	defer span.End()

	if uploadID == "" {
		uploadID = uuid.NewString()
	}
	span.SetAttributes(
		attribute.String("session.id", sess.ID()),
		attribute.String("upload.id", uploadID),
	)

	start := time.Now()
	defer func() {
		r.metrics.RecordRequestDuration("upload", time.Since(start))
	}()

	if doc == nil || doc.Content == nil {
		return nil, &domain.ErrValidation{Field: "file", Message: "no document provided"}
	}
	if err := r.bulkhead.Acquire(ctx); err != nil {
		return nil, fmt.Errorf("upload slot: %w", err)
	}
	defer r.bulkhead.Release()

	// The body is buffered so a retry after a token refresh can resend it.
	content, err := io.ReadAll(doc.Content)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	l := &detachable{ctx: ctx, l: listener}
	work := context.WithoutCancel(ctx)
	r.tracker.Start(sess.ID(), uploadID, int64(len(content)))

	upload, err := r.extract(work, sess, uploadID, doc, content, l)
	l.OnStep(domain.StepExtraction, err)
	if err != nil {
		r.tracker.Finish(sess.ID(), uploadID, err)
		r.metrics.IncrUpload("failed")
		r.metrics.IncrStepFailure(string(domain.StepExtraction))
		r.logger.Warn("invoice extraction failed",
			zap.String("session_id", sess.ID()),
			zap.String("upload_id", uploadID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("extract invoice: %w", err)
	}

	var failures []domain.StepFailure
	if upload.AnalysisErr != nil {
		failures = append(failures, r.stepFailure(domain.StepExtraction, upload.AnalysisErr))
	}

	individual, err := r.ComputeSingleInvoiceScore(work, upload.Invoice)
	l.OnStep(domain.StepSingleScore, err)
	if err != nil {
		failures = append(failures, r.stepFailure(domain.StepSingleScore, err))
	}

	dashboard, err := r.FetchDashboardScore(work, sess)
	l.OnStep(domain.StepDashboard, err)
	if err != nil {
		failures = append(failures, r.stepFailure(domain.StepDashboard, err))
	}

	rec := Reconcile(upload, individual, dashboard)
	rec.UploadID = uploadID
	rec.Failures = failures

	r.tracker.Finish(sess.ID(), uploadID, nil)
	if rec.Partial() {
		r.metrics.IncrUpload("partial")
	} else {
		r.metrics.IncrUpload("success")
	}
	r.logger.Info("invoice reconciled",
		zap.String("session_id", sess.ID()),
		zap.String("upload_id", uploadID),
		zap.String("invoice_number", upload.Invoice.InvoiceNumber),
		zap.Bool("duplicate", upload.Duplicate),
		zap.Int("failures", len(failures)),
	)
	return rec, nil
}

func (r *ScoreReconciler) extract(ctx context.Context, sess Session, uploadID string, doc *domain.Document, content []byte, l *detachable) (*domain.UploadResult, error) {
	var upload *domain.UploadResult
	err := sess.Do(ctx, "upload invoice", func(ctx context.Context, token string) error {
		attempt := *doc
		attempt.Content = bytes.NewReader(content)
		attempt.OnProgress = func(p domain.Progress) {
			r.tracker.Update(sess.ID(), uploadID, p)
			l.OnProgress(p)
		}
		res, err := r.processor.ProcessInvoice(ctx, token, &attempt)
		if err != nil {
			return err
		}
		upload = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return upload, nil
}

func (r *ScoreReconciler) stepFailure(step domain.ReconcileStep, err error) domain.StepFailure {
	r.metrics.IncrStepFailure(string(step))
	r.logger.Warn("reconciliation step failed",
		zap.String("step", string(step)),
		zap.Error(err),
	)
	return domain.StepFailure{
		Step:    step,
		Kind:    domain.ErrorKind(err),
		Message: domain.UserMessage(err),
	}
}

// detachable forwards to a listener until ctx ends.
type detachable struct {
	ctx context.Context
	l   UploadListener
}

func (d *detachable) OnProgress(p domain.Progress) {
	if d.l != nil && d.ctx.Err() == nil {
		d.l.OnProgress(p)
	}
}

func (d *detachable) OnStep(step domain.ReconcileStep, err error) {
	if d.l != nil && d.ctx.Err() == nil {
		d.l.OnStep(step, err)
	}
}
