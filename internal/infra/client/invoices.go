package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"go.uber.org/zap"
)

// ProcessInvoice uploads doc as multipart form data. The backend extracts the
// invoice, stores it and scores the user's history in one call.
func (c *NexoraClient) ProcessInvoice(ctx context.Context, token string, doc *domain.Document) (*domain.UploadResult, error) {
	body, ctype, err := c.multipartBody(doc)
	if err != nil {
		return nil, err
	}

	total := int64(body.Len())
	r := &request{
		service: ServiceExtraction,
		method:  http.MethodPost,
		path:    "/process-invoice",
		token:   token,
		body:    progress.NewReader(body, total, doc.OnProgress),
		length:  total,
		ctype:   ctype,
	}

	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.ProcessInvoiceResponse](ServiceExtraction, raw)
	if err != nil {
		return nil, err
	}

	result := &domain.UploadResult{
		Invoice:        resp.InvoiceDetails.ToDomain(),
		TotalLineItems: resp.TotalLineItems,
		Duplicate:      resp.Duplicate,
		Message:        resp.Message,
	}
	if result.TotalLineItems == 0 {
		result.TotalLineItems = len(result.Invoice.LineItems)
	}
	if resp.HistoricalSummary != nil {
		hs := domain.HistoricalSummary(*resp.HistoricalSummary)
		result.HistoricalSummary = &hs
	}

	analysis, err := wire.ParseAnalysis(ServiceExtraction, resp.CreditScoreAnalysis)
	if err != nil {
		c.logger.Warn("discarding invalid credit score analysis",
			zap.String("invoice_number", result.Invoice.InvoiceNumber),
			zap.Error(err),
		)
		result.AnalysisErr = err
	}
	result.CreditScoreAnalysis = analysis
	return result, nil
}

// ListInvoices returns the user's invoices, newest first.
func (c *NexoraClient) ListInvoices(ctx context.Context, token string) ([]domain.Invoice, error) {
	r, err := c.jsonRequest(ServiceInvoices, http.MethodGet, "/user/invoices", token, nil)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	resp, err := wire.Parse[wire.InvoiceListResponse](ServiceInvoices, raw)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Invoice, 0, len(resp.Invoices))
	for i := range resp.Invoices {
		out = append(out, *resp.Invoices[i].ToDomain())
	}
	return out, nil
}

// DeleteInvoice deletes one of the user's invoices by id.
func (c *NexoraClient) DeleteInvoice(ctx context.Context, token, invoiceID string) error {
	path := "/user/invoices/" + url.PathEscape(invoiceID)
	r, err := c.jsonRequest(ServiceInvoices, http.MethodDelete, path, token, nil)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, r)
	return err
}

// multipartBody buffers doc into a multipart form so the request carries an
// exact Content-Length and progress can be reported against it.
func (c *NexoraClient) multipartBody(doc *domain.Document) (*bytes.Buffer, string, error) {
	if doc == nil || doc.Content == nil {
		return nil, "", &domain.ErrValidation{Field: "file", Message: "no document provided"}
	}
	field := doc.Field
	switch field {
	case "":
		field = "file"
	case "file", "image":
	default:
		return nil, "", &domain.ErrValidation{Field: "field", Message: "must be file or image"}
	}

	content, err := io.ReadAll(io.LimitReader(doc.Content, c.maxUploadBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read document: %w", err)
	}
	if int64(len(content)) > c.maxUploadBytes {
		return nil, "", &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", c.maxUploadBytes)}
	}
	if len(content) == 0 {
		return nil, "", &domain.ErrValidation{Field: "file", Message: "document is empty"}
	}

	ctype := doc.ContentType
	if ctype == "" {
		ctype = http.DetectContentType(content)
	}
	name := filepath.Base(doc.Name)
	if name == "." || name == "/" {
		name = "invoice"
	}

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	h.Set("Content-Type", ctype)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf, mw.FormDataContentType(), nil
}
