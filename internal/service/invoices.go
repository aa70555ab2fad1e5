package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// InvoiceService reads and deletes the session user's stored invoices.
type InvoiceService struct {
	invoices   port.InvoiceLister
	reconciler *ScoreReconciler
	logger     *zap.Logger
}

// NewInvoiceService creates a new invoice service.
func NewInvoiceService(invoices port.InvoiceLister, reconciler *ScoreReconciler, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{invoices: invoices, reconciler: reconciler, logger: logger}
}

// List returns the user's invoices, newest first.
func (s *InvoiceService) List(ctx context.Context, sess Session) ([]domain.Invoice, error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.List")
	defer span.End()

	var out []domain.Invoice
	err := sess.Do(ctx, "list invoices", func(ctx context.Context, token string) error {
		list, err := s.invoices.ListInvoices(ctx, token)
		if err != nil {
			return err
		}
		out = list
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	if out == nil {
		out = []domain.Invoice{}
	}
	return out, nil
}

// Delete removes one invoice through the backend.
func (s *InvoiceService) Delete(ctx context.Context, sess Session, invoiceID string) error {
	ctx, span := tracer.Start(ctx, "InvoiceService.Delete")
	defer span.End()

	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return &domain.ErrValidation{Field: "invoice_id", Message: "is required"}
	}
	err := sess.Do(ctx, "delete invoice", func(ctx context.Context, token string) error {
		return s.invoices.DeleteInvoice(ctx, token, invoiceID)
	})
	if err != nil {
		return fmt.Errorf("delete invoice %s: %w", invoiceID, err)
	}
	s.logger.Info("invoice deleted",
		zap.String("session_id", sess.ID()),
		zap.String("invoice_id", invoiceID),
	)
	return nil
}

// Overview fetches the cumulative score and the invoice list concurrently.
// One failing half is reported in Failures; both failing is an error.
func (s *InvoiceService) Overview(ctx context.Context, sess Session) (*domain.DashboardOverview, error) {
	ctx, span := tracer.Start(ctx, "InvoiceService.Overview")
	defer span.End()

	var (
		out      = &domain.DashboardOverview{Invoices: []domain.Invoice{}}
		scoreErr error
		listErr  error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		out.Score, scoreErr = s.reconciler.FetchDashboardScore(gCtx, sess)
		return nil
	})
	g.Go(func() error {
		list, err := s.List(gCtx, sess)
		if err != nil {
			listErr = err
			return nil
		}
		out.Invoices = list
		return nil
	})
	_ = g.Wait()

	// Dashboard first. When both fail the dashboard error is returned.
	if scoreErr != nil && listErr != nil {
		return nil, scoreErr
	}
	for _, f := range []struct {
		step domain.ReconcileStep
		err  error
	}{{domain.StepDashboard, scoreErr}, {domain.StepInvoices, listErr}} {
		if f.err != nil {
			out.Failures = append(out.Failures, domain.StepFailure{
				Step:    f.step,
				Kind:    domain.ErrorKind(f.err),
				Message: domain.UserMessage(f.err),
			})
		}
	}
	if out.Score != nil && out.Score.IsEmpty() {
		out.EmptyState = domain.EmptyStatePrompt
	}
	return out, nil
}
