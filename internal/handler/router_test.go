package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/handler"
	"github.com/nexora/nexora-bfa-go/internal/infra/client"
	"github.com/nexora/nexora-bfa-go/internal/infra/observability"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"
	"github.com/nexora/nexora-bfa-go/internal/infra/store"
	"github.com/nexora/nexora-bfa-go/internal/progress"
	"github.com/nexora/nexora-bfa-go/internal/service"
	"github.com/nexora/nexora-bfa-go/internal/session"

	"go.uber.org/zap"
)

// fakeBackend imitates the Nexora backend for one user whose token is jwt-1.
func fakeBackend(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer jwt-1" {
				reply(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid token"})
				return
			}
			next(w, r)
		}
	}

	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req["password"] != "secret" {
			reply(w, http.StatusUnauthorized, map[string]any{"detail": "Invalid credentials"})
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"access_token": "jwt-1",
			"user_data":    map[string]any{"id": 3, "email": req["email"], "full_name": "Owner"},
		})
	})
	mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusUnauthorized, map[string]any{"detail": "refresh disabled"})
	})
	mux.HandleFunc("GET /user/invoices", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"invoices": []map[string]any{
			{"id": 1, "invoice_number": "INV-1", "client": "Acme", "total_amount": 1000, "tax_amount": 50, "extra_charges": 0},
		}})
	}))
	mux.HandleFunc("DELETE /user/invoices/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "1" {
			reply(w, http.StatusNotFound, map[string]any{"detail": "Invoice not found"})
			return
		}
		reply(w, http.StatusOK, map[string]any{"success": true})
	}))
	mux.HandleFunc("GET /dashboard/credit-score", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"credit_score": 72.5, "category": "Good", "total_invoices": 3, "last_updated": "2026-10-01"})
	}))
	mux.HandleFunc("POST /process-invoice", authed(func(w http.ResponseWriter, r *http.Request) {
		if _, _, err := r.FormFile("file"); err != nil {
			reply(w, http.StatusUnprocessableEntity, map[string]any{"detail": "file missing"})
			return
		}
		reply(w, http.StatusOK, map[string]any{
			"success":               true,
			"invoice_details":       map[string]any{"invoice_number": "INV-9", "client": "Acme", "total_amount": 10000, "tax_amount": 500, "extra_charges": 100},
			"credit_score_analysis": map[string]any{"final_weighted_credit_score": 70},
			"historical_summary":    map[string]any{"total_historical_invoices": 3, "total_amount_all_invoices": 25000},
			"total_line_items":      2,
		})
	}))
	mux.HandleFunc("GET /get-business", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "business": map[string]any{"business_name": "Owner", "industry": "Technology", "employees": 50}})
	}))
	mux.HandleFunc("POST /register-business", authed(func(w http.ResponseWriter, r *http.Request) {
		var b map[string]any
		_ = json.NewDecoder(r.Body).Decode(&b)
		reply(w, http.StatusOK, map[string]any{"success": true, "message": "Business details received", "business": b})
	}))
	mux.HandleFunc("POST /generate-policies", authed(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PolicyTypes []string `json:"policy_types"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		policies := map[string]string{}
		for _, p := range req.PolicyTypes {
			policies[p] = "# " + p
		}
		reply(w, http.StatusOK, map[string]any{"success": true, "policies": policies})
	}))
	mux.HandleFunc("GET /get-policies", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"success": true, "policies": []map[string]any{
			{"id": 1, "policy_name": "Business General Liability", "policy_number": "BGL-2024-001", "premium": 25000, "coverage": 1000000, "status": "Active"},
		}})
	}))
	mux.HandleFunc("POST /calculate-single-invoice-credit-score", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, map[string]any{"credit_score_analysis": map[string]any{"final_weighted_credit_score": 64, "score_category": "Fair"}})
	})
	return mux
}

type stubContract struct{}

func (stubContract) GetLoan(_ context.Context, id uint64) (*domain.LoanRequest, error) {
	if id != 0 {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: "1"}
	}
	return &domain.LoanRequest{ID: 0, Borrower: "0xabc", AmountWei: "1000000000000000000", Funded: true}, nil
}
func (stubContract) LoanCount(context.Context) (uint64, error) { return 1, nil }
func (stubContract) CreateLoan(context.Context, *big.Int, uint64, uint64) (*domain.TxResult, error) {
	return &domain.TxResult{Prepared: &domain.PreparedTx{Method: "createLoanRequest"}, Message: "Transaction data prepared for wallet submission"}, nil
}
func (stubContract) FundLoan(context.Context, uint64, *big.Int) (*domain.TxResult, error) {
	return &domain.TxResult{Hash: "0x1", Message: "Loan funded"}, nil
}
func (stubContract) RepayLoan(context.Context, uint64, *big.Int) (*domain.TxResult, error) {
	return &domain.TxResult{Hash: "0x2", Message: "Loan repaid"}, nil
}
func (stubContract) MarkDefault(context.Context, uint64) (*domain.TxResult, error) {
	return nil, &domain.ErrContractCall{Method: "markDefault", Err: errors.New("execution reverted")}
}
func (stubContract) RepaymentAmount(context.Context, uint64) (*big.Int, error) {
	return big.NewInt(1e18), nil
}
func (stubContract) EscrowBalance(context.Context) (*big.Int, error) { return big.NewInt(5e17), nil }
func (stubContract) MaxLoanAmount(context.Context, uint64) (*big.Int, error) {
	return big.NewInt(2e18), nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	backend := httptest.NewServer(fakeBackend(t))
	t.Cleanup(backend.Close)

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test", resilience.WithSuccessClassifier(client.IsBreakerSuccess))
	nexora := client.NewNexoraClient(&http.Client{Timeout: 2 * time.Second}, backend.URL, cb, metrics, logger)

	kv := store.NewMemoryStore(0)
	t.Cleanup(kv.Close)
	sessions := session.NewManager(kv, nexora, time.Minute, metrics, logger)
	t.Cleanup(sessions.Close)
	tracker := progress.NewTracker(time.Minute)
	t.Cleanup(tracker.Close)

	rec := service.NewScoreReconciler(nexora, nexora, nexora, tracker, resilience.NewBulkhead(2), metrics, logger)
	return handler.NewRouter(handler.Services{
		Sessions:   sessions,
		Auth:       service.NewAuthService(nexora, logger),
		Reconciler: rec,
		Invoices:   service.NewInvoiceService(nexora, rec, logger),
		Loans:      service.NewLoanService(stubContract{}, 2, logger),
		Business:   service.NewBusinessService(nexora, logger),
		Tracker:    tracker,
		Checks: []handler.HealthCheck{
			{Name: "session_store", Check: func(context.Context) error { return nil }},
			{Name: "loan_contract"},
		},
		AllowedOrigins: []string{"http://localhost:5001"},
	}, metrics, logger)
}

func do(t *testing.T, h http.Handler, method, path, sessionID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(handler.SessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func login(t *testing.T, h http.Handler, sid string) {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/v1/auth/login", sid, map[string]string{"email": "owner@acme.in", "password": "secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOperationalEndpoints(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/healthz", "/readyz", "/metrics", "/ping", "/v1/metrics/summary"} {
		rec := do(t, router, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/invoices", nil)
	req.Header.Set("Origin", "http://localhost:5001")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", handler.SessionHeader)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5001" {
		t.Errorf("expected allowed origin, got %q", got)
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected credentials to be allowed")
	}

	req = httptest.NewRequest(http.MethodOptions, "/v1/invoices", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected foreign origin to be refused, got %q", got)
	}
}

func TestHealthz_ReportsComponents(t *testing.T) {
	router := handler.NewRouter(handler.Services{Checks: []handler.HealthCheck{
		{Name: "session_store", Check: func(context.Context) error { return errors.New("connection refused") }},
		{Name: "loan_contract"},
	}}, observability.NewMetrics(), zap.NewNop())

	rec := do(t, router, http.MethodGet, "/healthz", "", nil)
	var st domain.HealthStatus
	decode(t, rec, &st)
	if st.Status != "degraded" || len(st.Components) != 2 {
		t.Fatalf("unexpected health %+v", st)
	}
	if st.Components[0].Status != "down" || st.Components[1].Status != "disabled" {
		t.Errorf("unexpected components %+v", st.Components)
	}

	if rec := do(t, router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected readyz 503 while degraded, got %d", rec.Code)
	}
}

func TestSessionMiddleware_MintsID(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/auth/session", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	id := rec.Header().Get(handler.SessionHeader)
	if id == "" {
		t.Fatal("expected a minted session id")
	}
	if !strings.Contains(rec.Header().Get("Set-Cookie"), handler.SessionCookie+"="+id) {
		t.Errorf("expected session cookie, got %q", rec.Header().Get("Set-Cookie"))
	}
	var info domain.SessionInfo
	decode(t, rec, &info)
	if info.ID != id || info.State != string(session.Anonymous) {
		t.Errorf("unexpected session %+v", info)
	}
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: handler.SessionCookie, Value: "cookie-sess"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get(handler.SessionHeader) != "cookie-sess" {
		t.Errorf("expected cookie session id, got %q", rec.Header().Get(handler.SessionHeader))
	}
}

func TestProtectedRoutesWithoutLogin(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/invoices", "/v1/credit-score/dashboard"} {
		rec := do(t, router, http.MethodGet, path, "anon-1", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, rec.Code)
		}
		var body map[string]string
		decode(t, rec, &body)
		if body["kind"] != "no_session" || body["error"] != "Please log in to continue." {
			t.Errorf("%s: unexpected body %v", path, body)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/auth/login", "s1", map[string]string{"email": "owner@acme.in", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad password, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/auth/login", "s1", map[string]string{"email": "nope", "password": "x"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid email, got %d", rec.Code)
	}

	login(t, router, "s1")

	rec = do(t, router, http.MethodGet, "/v1/auth/session", "s1", nil)
	var info domain.SessionInfo
	decode(t, rec, &info)
	if info.State != string(session.Authenticated) || info.User == nil || info.User.ID != "3" {
		t.Errorf("unexpected session %+v", info)
	}

	rec = do(t, router, http.MethodPost, "/v1/auth/logout", "s1", nil)
	decode(t, rec, &info)
	if info.State != string(session.LoggedOut) {
		t.Errorf("expected logged out, got %+v", info)
	}
}

func TestInvoicesAndDashboard(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "s2")

	rec := do(t, router, http.MethodGet, "/v1/invoices", "s2", nil)
	var list struct {
		Invoices []domain.Invoice `json:"invoices"`
	}
	decode(t, rec, &list)
	if len(list.Invoices) != 1 || list.Invoices[0].ID != "1" || list.Invoices[0].Currency != "INR" {
		t.Errorf("unexpected invoices %+v", list.Invoices)
	}

	rec = do(t, router, http.MethodGet, "/v1/dashboard", "s2", nil)
	var ov domain.DashboardOverview
	decode(t, rec, &ov)
	if ov.Score == nil || ov.Score.Score != 72.5 || len(ov.Invoices) != 1 {
		t.Errorf("unexpected overview %+v", ov)
	}

	if rec := do(t, router, http.MethodDelete, "/v1/invoices/1", "s2", nil); rec.Code != http.StatusOK {
		t.Errorf("expected delete 200, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodDelete, "/v1/invoices/99", "s2", nil); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 for a remote 404, got %d", rec.Code)
	}
}

func TestUploadFlow(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "s3")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("upload_id", "up-1")
	fw, _ := mw.CreateFormFile("file", "invoice.pdf")
	_, _ = fw.Write([]byte("%PDF-1.4 fake invoice"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(handler.SessionHeader, "s3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var result domain.Reconciliation
	decode(t, rec, &result)
	if result.UploadID != "up-1" || result.Individual == nil || result.Total == nil {
		t.Fatalf("unexpected reconciliation %+v", result)
	}
	if result.Individual.Scope != domain.ScopeIndividual || result.Individual.Score != 64 {
		t.Errorf("unexpected individual score %+v", result.Individual)
	}
	if result.Total.Scope != domain.ScopeTotal || result.Total.Score != 72.5 {
		t.Errorf("unexpected total score %+v", result.Total)
	}
	if len(result.Failures) != 0 {
		t.Errorf("expected no failures, got %+v", result.Failures)
	}

	rec = do(t, router, http.MethodGet, "/v1/uploads/up-1", "s3", nil)
	var st progress.Status
	decode(t, rec, &st)
	if st.State != progress.StateCompleted || st.Percent != 100 {
		t.Errorf("unexpected upload status %+v", st)
	}

	if rec := do(t, router, http.MethodGet, "/v1/uploads/missing", "s3", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown upload, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/uploads/up-1", "other-session", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected another session to see 404 for up-1, got %d", rec.Code)
	}
}

func TestUploadRequiresFile(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "s4")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("upload_id", "up-2")
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/invoices/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(handler.SessionHeader, "s4")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestSingleScore(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/v1/credit-score/single", "", map[string]any{"invoice_number": "INV-1", "total_amount": 10000, "tax_amount": 500})
	var score domain.ScopedScore
	decode(t, rec, &score)
	if score.Scope != domain.ScopeIndividual || score.TotalInvoices != 1 || score.Category != "Fair" {
		t.Errorf("unexpected score %+v", score)
	}
}

func TestLoanRoutes(t *testing.T) {
	router := newTestRouter(t)
	login(t, router, "s5")

	rec := do(t, router, http.MethodGet, "/v1/loans/0", "s5", nil)
	var loan map[string]any
	decode(t, rec, &loan)
	if loan["status"] != "funded" || loan["borrower"] != "0xabc" {
		t.Errorf("unexpected loan %v", loan)
	}

	tests := []struct {
		method, path string
		body         any
		want         int
	}{
		{http.MethodGet, "/v1/loans", nil, http.StatusOK},
		{http.MethodGet, "/v1/loans/abc", nil, http.StatusBadRequest},
		{http.MethodGet, "/v1/loans/7", nil, http.StatusNotFound},
		{http.MethodPost, "/v1/loans", map[string]any{"amount_eth": "1.5", "interest_rate": 10, "duration_days": 30}, http.StatusCreated},
		{http.MethodPost, "/v1/loans", map[string]any{"amount_eth": "150", "interest_rate": 10, "duration_days": 30}, http.StatusBadRequest},
		{http.MethodPost, "/v1/loans/0/fund", nil, http.StatusOK},
		{http.MethodPost, "/v1/loans/0/repay", nil, http.StatusOK},
		{http.MethodPost, "/v1/loans/0/default", nil, http.StatusBadGateway},
		{http.MethodGet, "/v1/loans/escrow", nil, http.StatusOK},
		{http.MethodGet, "/v1/loans/max-amount?credit_score=720", nil, http.StatusOK},
		{http.MethodGet, "/v1/loans/max-amount?credit_score=high", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := do(t, router, tt.method, tt.path, "s5", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLoanWritesRequireLogin(t *testing.T) {
	router := newTestRouter(t)

	writes := []struct {
		path string
		body any
	}{
		{"/v1/loans", map[string]any{"amount_eth": "1.5", "interest_rate": 10, "duration_days": 30}},
		{"/v1/loans/0/fund", nil},
		{"/v1/loans/0/repay", nil},
		{"/v1/loans/0/default", nil},
	}
	for _, w := range writes {
		t.Run(w.path, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, w.path, "anon-loans", w.body)
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
			}
			var body map[string]string
			decode(t, rec, &body)
			if body["kind"] != "no_session" {
				t.Errorf("expected no_session kind, got %v", body)
			}
		})
	}

	// reads stay open to any session
	if rec := do(t, router, http.MethodGet, "/v1/loans/escrow", "anon-loans", nil); rec.Code != http.StatusOK {
		t.Errorf("expected escrow 200 without login, got %d", rec.Code)
	}

	login(t, router, "anon-loans")
	if rec := do(t, router, http.MethodPost, "/v1/loans/0/fund", "anon-loans", nil); rec.Code != http.StatusOK {
		t.Errorf("expected fund 200 after login, got %d", rec.Code)
	}
	do(t, router, http.MethodPost, "/v1/auth/logout", "anon-loans", nil)
	if rec := do(t, router, http.MethodPost, "/v1/loans/0/repay", "anon-loans", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected repay 401 after logout, got %d", rec.Code)
	}
}

func TestBusinessAndPolicies(t *testing.T) {
	router := newTestRouter(t)

	for _, path := range []string{"/v1/business", "/v1/policies"} {
		if rec := do(t, router, http.MethodGet, path, "anon-biz", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without login, got %d", path, rec.Code)
		}
	}

	login(t, router, "s6")

	rec := do(t, router, http.MethodGet, "/v1/business", "s6", nil)
	var got struct {
		Business domain.BusinessProfile `json:"business"`
	}
	decode(t, rec, &got)
	if got.Business.BusinessName != "Owner" || got.Business.Employees != 50 {
		t.Errorf("unexpected business %+v", got.Business)
	}

	rec = do(t, router, http.MethodPost, "/v1/business", "s6", map[string]any{"business_name": "Acme Exports", "location": "Pune"})
	if rec.Code != http.StatusOK {
		t.Fatalf("register: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &got)
	if got.Business.BusinessName != "Acme Exports" || got.Business.Location != "Pune" {
		t.Errorf("unexpected registered business %+v", got.Business)
	}
	if rec := do(t, router, http.MethodPost, "/v1/business", "s6", map[string]any{"industry": "Retail"}); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without business_name, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodPost, "/v1/policies/generate", "s6", map[string]any{
		"business_details": map[string]any{"business_name": "Acme Exports"},
		"policy_types":     []string{"privacy_policy", "refund_policy"},
	})
	var drafts struct {
		Policies map[string]string `json:"policies"`
	}
	decode(t, rec, &drafts)
	if len(drafts.Policies) != 2 || drafts.Policies["refund_policy"] == "" {
		t.Errorf("unexpected drafts %v", drafts.Policies)
	}

	rec = do(t, router, http.MethodGet, "/v1/policies", "s6", nil)
	var list struct {
		Policies []domain.Policy `json:"policies"`
		Total    int             `json:"total"`
	}
	decode(t, rec, &list)
	if list.Total != 1 || list.Policies[0].PolicyNumber != "BGL-2024-001" {
		t.Errorf("unexpected policies %+v", list)
	}
}

func TestLoanRoutesAbsentWithoutService(t *testing.T) {
	router := handler.NewRouter(handler.Services{}, observability.NewMetrics(), zap.NewNop())

	if rec := do(t, router, http.MethodGet, "/v1/loans", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a loan service, got %d", rec.Code)
	}
}

func TestFixturesAndSchemas(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/v1/fixtures/milestones", "", nil)
	var body map[string][]map[string]any
	decode(t, rec, &body)
	if len(body["milestones"]) == 0 {
		t.Errorf("expected milestones, got %v", body)
	}

	if rec := do(t, router, http.MethodGet, "/v1/fixtures/unknown", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown fixture, got %d", rec.Code)
	}

	rec = do(t, router, http.MethodGet, "/v1/schemas", "", nil)
	var names struct {
		Schemas []string `json:"schemas"`
	}
	decode(t, rec, &names)
	if len(names.Schemas) == 0 {
		t.Fatal("expected schema names")
	}
	if rec := do(t, router, http.MethodGet, "/v1/schemas/"+names.Schemas[0], "", nil); rec.Code != http.StatusOK {
		t.Errorf("expected schema 200, got %d", rec.Code)
	}
	if rec := do(t, router, http.MethodGet, "/v1/schemas/nope", "", nil); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown schema, got %d", rec.Code)
	}
}
