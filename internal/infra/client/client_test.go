package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/client"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func newClient(t *testing.T, h http.Handler, opts ...client.Option) *client.NexoraClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	cb := resilience.NewCircuitBreaker("test", resilience.WithSuccessClassifier(client.IsBreakerSuccess))
	return client.NewNexoraClient(&http.Client{Timeout: 2 * time.Second}, srv.URL, cb, observability.NewMetrics(), zap.NewNop(), opts...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestCalculateSingleInvoiceScore_Payload(t *testing.T) {
	var got map[string]any
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calculate-single-invoice-credit-score" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("scoring endpoint must not receive a bearer token")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeJSON(w, http.StatusOK, map[string]any{
			"credit_score_analysis": map[string]any{"final_weighted_credit_score": 68.4, "score_category": "Fair"},
		})
	}))

	snap := domain.SingleInvoiceSnapshot(&domain.Invoice{TotalAmount: 10000, TaxAmount: 500, ExtraCharges: 100})
	a, err := c.CalculateSingleInvoiceScore(context.Background(), snap)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if a.FinalWeightedCreditScore != 68.4 {
		t.Errorf("expected 68.4, got %v", a.FinalWeightedCreditScore)
	}

	want := map[string]float64{
		"no_of_invoices":          1,
		"total_amount":            10000,
		"total_amount_pending":    10000,
		"total_amount_paid":       0,
		"tax":                     500,
		"extra_charges":           100,
		"payment_completion_rate": 0.7,
		"paid_to_pending_ratio":   0.5,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("payload %s = %v, want %v", k, got[k], v)
		}
	}
}

func TestCalculateSingleInvoiceScore_StringBody(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inner := `{"credit_score_analysis": {"final_weighted_credit_score": 81}}`
		writeJSON(w, http.StatusOK, inner)
	}))

	snap := domain.SingleInvoiceSnapshot(&domain.Invoice{TotalAmount: 1})
	a, err := c.CalculateSingleInvoiceScore(context.Background(), snap)
	if err != nil {
		t.Fatalf("expected string body to be accepted, got %v", err)
	}
	if a.ScoreCategory != domain.CategoryExcellent {
		t.Errorf("expected Excellent, got %q", a.ScoreCategory)
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"401 is unauthorized", http.StatusUnauthorized, `{"detail":"Could not validate credentials"}`, func(t *testing.T, err error) {
			var e *domain.ErrUnauthorized
			if !errors.As(err, &e) || e.Status != 401 {
				t.Errorf("expected ErrUnauthorized(401), got %v", err)
			}
		}},
		{"403 is unauthorized", http.StatusForbidden, ``, func(t *testing.T, err error) {
			var e *domain.ErrUnauthorized
			if !errors.As(err, &e) || e.Status != 403 {
				t.Errorf("expected ErrUnauthorized(403), got %v", err)
			}
		}},
		{"422 carries server detail", http.StatusUnprocessableEntity, `{"detail":"Invalid invoice file"}`, func(t *testing.T, err error) {
			var e *domain.ErrRemote
			if !errors.As(err, &e) || e.Detail != "Invalid invoice file" || e.UserMessage() != "Invalid invoice file" {
				t.Errorf("expected ErrRemote with detail, got %v", err)
			}
		}},
		{"500 without detail uses generic text", http.StatusInternalServerError, `<html>oops</html>`, func(t *testing.T, err error) {
			var e *domain.ErrRemote
			if !errors.As(err, &e) || e.Detail != "" || e.UserMessage() == "" {
				t.Errorf("expected ErrRemote with generic message, got %v", err)
			}
		}},
		{"malformed 200", http.StatusOK, `{"credit_score": "high"}`, func(t *testing.T, err error) {
			var e *domain.ErrMalformedResponse
			if !errors.As(err, &e) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			_, err := c.GetDashboardScore(context.Background(), "tok")
			tt.check(t, err)
		})
	}
}

func TestGetDashboardScore(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"credit_score":   74.2,
			"category":       "Good",
			"total_invoices": 3,
			"last_updated":   "10/19/2026",
			"error":          nil,
			"debug_info":     map[string]any{"individual_scores": []float64{70, 75.6, 77}, "mean_calculation": "222.6/3", "invoice_count": 3},
		})
	}))

	d, err := c.GetDashboardScore(context.Background(), "tok")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if d.Score != 74.2 || d.Category != "Good" || d.TotalInvoices != 3 {
		t.Errorf("unexpected dashboard: %+v", d)
	}
	if d.Debug == nil || len(d.Debug.IndividualScores) != 3 {
		t.Errorf("expected debug info, got %+v", d.Debug)
	}
}

func TestGetDashboardScore_InBandError(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"credit_score": 0, "category": "Error", "total_invoices": 0,
			"last_updated": "Error occurred", "error": "database unavailable",
		})
	}))

	_, err := c.GetDashboardScore(context.Background(), "tok")
	var remote *domain.ErrRemote
	if !errors.As(err, &remote) || remote.Detail != "database unavailable" {
		t.Fatalf("expected in-band error as ErrRemote, got %v", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	cb := resilience.NewCircuitBreaker("test")
	c := client.NewNexoraClient(&http.Client{Timeout: time.Second}, url, cb, observability.NewMetrics(), zap.NewNop())

	_, err := c.ListInvoices(context.Background(), "tok")
	var netErr *domain.ErrNetwork
	if !errors.As(err, &netErr) {
		t.Fatalf("expected ErrNetwork, got %v", err)
	}
	if client.ErrorKind(err) != "network" {
		t.Errorf("expected kind network, got %s", client.ErrorKind(err))
	}
}

func TestTimeout(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.ListInvoices(ctx, "tok")
	var timeout *domain.ErrTimeout
	if !errors.As(err, &timeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestClientErrorsDoNotOpenBreaker(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))

	for i := 0; i < 10; i++ {
		_, _ = c.ListInvoices(context.Background(), "expired")
	}
	if hits.Load() != 10 {
		t.Errorf("expected every request to reach the server, got %d", hits.Load())
	}
}

func TestServerErrorsOpenBreaker(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	for i := 0; i < 5; i++ {
		_, _ = c.ListInvoices(context.Background(), "tok")
	}
	_, err := c.ListInvoices(context.Background(), "tok")
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestProcessInvoice(t *testing.T) {
	var field, filename string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-invoice" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		for name, files := range r.MultipartForm.File {
			field, filename = name, files[0].Filename
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":               true,
			"invoice_details":       map[string]any{"id": 9, "invoice_number": "INV-9", "client": "Acme", "total_amount": 10000},
			"credit_score_analysis": map[string]any{"final_weighted_credit_score": 77},
			"historical_summary":    map[string]any{"total_historical_invoices": 4, "total_amount_all_invoices": 42000},
		})
	}))

	var (
		mu   sync.Mutex
		last domain.Progress
	)
	doc := &domain.Document{
		Name:    "scan.pdf",
		Content: bytes.NewReader(bytes.Repeat([]byte("%PDF"), 2048)),
		OnProgress: func(p domain.Progress) {
			mu.Lock()
			last = p
			mu.Unlock()
		},
	}
	res, err := c.ProcessInvoice(context.Background(), "tok", doc)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if field != "file" || filename != "scan.pdf" {
		t.Errorf("expected field file with scan.pdf, got %q %q", field, filename)
	}
	if res.Invoice.InvoiceNumber != "INV-9" || res.CreditScoreAnalysis == nil || res.HistoricalSummary.TotalHistoricalInvoices != 4 {
		t.Errorf("unexpected result: %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if last.Total == 0 || last.Sent != last.Total {
		t.Errorf("expected complete byte progress, got %+v", last)
	}
}

func TestProcessInvoice_InvalidAnalysisKeepsExtraction(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"invoice_details":       map[string]any{"invoice_number": "INV-1", "total_amount": 500},
			"credit_score_analysis": map[string]any{"final_weighted_credit_score": 250},
		})
	}))

	doc := &domain.Document{Name: "a.png", Field: "image", Content: strings.NewReader("png-bytes")}
	res, err := c.ProcessInvoice(context.Background(), "tok", doc)
	if err != nil {
		t.Fatalf("expected extraction to survive a bad analysis, got %v", err)
	}
	if res.CreditScoreAnalysis != nil || res.AnalysisErr == nil {
		t.Errorf("expected analysis dropped with AnalysisErr set, got %+v", res)
	}
}

func TestProcessInvoice_TooLarge(t *testing.T) {
	var hits atomic.Int32
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}), client.WithMaxUploadBytes(16))

	doc := &domain.Document{Name: "big.pdf", Content: strings.NewReader(strings.Repeat("x", 17))}
	_, err := c.ProcessInvoice(context.Background(), "tok", doc)
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("expected no request for an oversized document")
	}
}

func TestListAndDeleteInvoices(t *testing.T) {
	var deleted string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/user/invoices":
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"invoices": []map[string]any{
					{"id": 2, "invoice_number": "INV-2", "client": "B", "total_amount": 200, "status": "processed", "credit_score": 71.5, "created_at": "2026-10-01T09:00:00.123456"},
					{"id": 1, "invoice_number": "INV-1", "client": "A", "total_amount": 100, "currency": "USD"},
				},
				"total_count": 2,
			})
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/user/invoices/"):
			deleted = strings.TrimPrefix(r.URL.Path, "/user/invoices/")
			writeJSON(w, http.StatusOK, map[string]any{"success": true})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	invoices, err := c.ListInvoices(context.Background(), "tok")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(invoices) != 2 || invoices[0].ID != "2" || invoices[0].CreatedAt == nil || invoices[1].Currency != "USD" {
		t.Errorf("unexpected invoices: %+v", invoices)
	}

	if err := c.DeleteInvoice(context.Background(), "tok", "2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != "2" {
		t.Errorf("expected invoice 2 deleted, got %q", deleted)
	}
}

func TestAuth(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			var req domain.LoginRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.Password != "pw" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token": "jwt-1", "token_type": "bearer",
				"user_data": map[string]any{"id": 5, "email": req.Email, "full_name": "Owner"},
			})
		case "/auth/refresh":
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"token": "jwt-2"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}), client.WithRefreshPath("/auth/refresh"))

	res, err := c.Login(context.Background(), &domain.LoginRequest{Email: "o@acme.in", Password: "pw"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token != "jwt-1" || res.User.ID != "5" {
		t.Errorf("unexpected login result: %+v", res)
	}

	_, err = c.Login(context.Background(), &domain.LoginRequest{Email: "o@acme.in", Password: "bad"})
	var unauthorized *domain.ErrUnauthorized
	if !errors.As(err, &unauthorized) || unauthorized.Error() != "Invalid credentials" {
		t.Errorf("expected ErrUnauthorized with detail, got %v", err)
	}

	refreshed, err := c.Refresh(context.Background(), "jwt-1")
	if err != nil || refreshed.Token != "jwt-2" || refreshed.User != nil {
		t.Errorf("unexpected refresh result: %+v %v", refreshed, err)
	}
}
