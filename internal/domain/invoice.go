package domain

import (
	"io"
	"time"
)

// InvoiceStatus is the lifecycle label the backend assigns to an invoice.
type InvoiceStatus string

const (
	InvoicePaid      InvoiceStatus = "paid"
	InvoicePending   InvoiceStatus = "pending"
	InvoiceOverdue   InvoiceStatus = "overdue"
	InvoiceProcessed InvoiceStatus = "processed"
)

// Valid reports whether s is one of the known statuses.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoicePaid, InvoicePending, InvoiceOverdue, InvoiceProcessed:
		return true
	}
	return false
}

// LineItem is one row of an invoice, in document order.
type LineItem struct {
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
}

// Invoice is an invoice as extracted and stored by the backend.
// It is immutable from the client's point of view.
type Invoice struct {
	ID            string        `json:"id,omitempty"`
	InvoiceNumber string        `json:"invoice_number"`
	Client        string        `json:"client"`
	Date          string        `json:"date,omitempty"`
	TotalAmount   float64       `json:"total_amount"`
	Currency      string        `json:"currency"`
	PaymentTerms  string        `json:"payment_terms,omitempty"`
	Industry      string        `json:"industry,omitempty"`
	TaxAmount     float64       `json:"tax_amount"`
	ExtraCharges  float64       `json:"extra_charges"`
	LineItems     []LineItem    `json:"line_items"`
	Status        InvoiceStatus `json:"status,omitempty"`
	CreditScore   *float64      `json:"credit_score,omitempty"`
	CreatedAt     *time.Time    `json:"created_at,omitempty"`
}

// HistoricalSummary gives display context for the user's invoice history.
type HistoricalSummary struct {
	TotalHistoricalInvoices int     `json:"total_historical_invoices"`
	TotalAmountAllInvoices  float64 `json:"total_amount_all_invoices"`
}

// UploadResult is the decoded response of the invoice extraction service.
// CreditScoreAnalysis is nil when the backend could not score the invoice.
type UploadResult struct {
	Invoice             *Invoice             `json:"invoice_details"`
	CreditScoreAnalysis *CreditScoreAnalysis `json:"credit_score_analysis,omitempty"`
	HistoricalSummary   *HistoricalSummary   `json:"historical_summary,omitempty"`
	TotalLineItems      int                  `json:"total_line_items"`
	Duplicate           bool                 `json:"duplicate"`
	Message             string               `json:"message,omitempty"`
	// AnalysisErr is set when the embedded analysis was present but invalid.
	AnalysisErr error `json:"-"`
}

// Document is an invoice file about to be uploaded.
type Document struct {
	Name        string
	ContentType string
	// Field is the multipart field name: "file" (default) or "image".
	Field   string
	Content io.Reader
	// OnProgress, when set, receives byte-level upload progress.
	OnProgress func(Progress)
}

// Progress reports how much of a request body has been handed to the transport.
type Progress struct {
	Sent  int64 `json:"bytes_sent"`
	Total int64 `json:"bytes_total"`
}

// Percent returns progress in [0, 100]. Unknown totals report 0.
func (p Progress) Percent() float64 {
	if p.Total <= 0 {
		return 0
	}
	pct := float64(p.Sent) / float64(p.Total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}
