package service_test

import (
	"context"
	"io"
	"math/big"
	"sync"

	"github.com/nexora/nexora-bfa-go/internal/domain"
)

// --- Mocks ---

// callLog records the order in which remote steps were called.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(name string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
}

func (c *callLog) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

type fakeSession struct {
	id    string
	token string
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Do(ctx context.Context, op string, fn func(ctx context.Context, token string) error) error {
	if s.token == "" {
		return &domain.ErrNoSession{Operation: op}
	}
	return fn(ctx, s.token)
}

type mockProcessor struct {
	log      *callLog
	results  []*domain.UploadResult
	errs     []error
	hook     func()
	mu       sync.Mutex
	contents [][]byte
	tokens   []string
}

func (m *mockProcessor) ProcessInvoice(_ context.Context, token string, doc *domain.Document) (*domain.UploadResult, error) {
	m.log.add("extract")
	body, _ := io.ReadAll(doc.Content)
	if doc.OnProgress != nil {
		doc.OnProgress(domain.Progress{Sent: int64(len(body)), Total: int64(len(body))})
	}
	if m.hook != nil {
		m.hook()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.contents)
	m.contents = append(m.contents, body)
	m.tokens = append(m.tokens, token)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	return m.results[i], nil
}

type mockScorer struct {
	log      *callLog
	analysis *domain.CreditScoreAnalysis
	err      error
	got      *domain.FinancialSnapshot
}

func (m *mockScorer) CalculateSingleInvoiceScore(_ context.Context, snap *domain.FinancialSnapshot) (*domain.CreditScoreAnalysis, error) {
	m.log.add("score")
	m.got = snap
	return m.analysis, m.err
}

type mockDashboard struct {
	log   *callLog
	score *domain.DashboardScore
	err   error
}

func (m *mockDashboard) GetDashboardScore(_ context.Context, _ string) (*domain.DashboardScore, error) {
	m.log.add("dashboard")
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.score
	return &cp, nil
}

type mockLister struct {
	invoices []domain.Invoice
	err      error
	deleted  []string
}

func (m *mockLister) ListInvoices(_ context.Context, _ string) ([]domain.Invoice, error) {
	return m.invoices, m.err
}

func (m *mockLister) DeleteInvoice(_ context.Context, _ string, id string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockAuthenticator struct {
	result *domain.AuthResult
	err    error
	calls  int
}

func (m *mockAuthenticator) Login(_ context.Context, _ *domain.LoginRequest) (*domain.AuthResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockAuthenticator) Register(_ context.Context, _ *domain.RegisterRequest) (*domain.AuthResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockAuthenticator) Refresh(_ context.Context, _ string) (*domain.AuthResult, error) {
	m.calls++
	return m.result, m.err
}

type mockContract struct {
	mu       sync.Mutex
	loans    map[uint64]*domain.LoanRequest
	count    uint64
	owed     *big.Int
	escrow   *big.Int
	maxWei   *big.Int
	err      error
	calls    []string
	lastWei  *big.Int
	lastRate uint64
	lastSecs uint64
}

func (m *mockContract) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockContract) GetLoan(_ context.Context, id uint64) (*domain.LoanRequest, error) {
	m.record("getLoan")
	if m.err != nil {
		return nil, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	loan, ok := m.loans[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "loan"}
	}
	return loan, nil
}

func (m *mockContract) LoanCount(_ context.Context) (uint64, error) {
	m.record("loanCount")
	return m.count, m.err
}

func (m *mockContract) CreateLoan(_ context.Context, wei *big.Int, rate, secs uint64) (*domain.TxResult, error) {
	m.record("createLoan")
	m.lastWei, m.lastRate, m.lastSecs = wei, rate, secs
	return &domain.TxResult{Hash: "0xabc"}, m.err
}

func (m *mockContract) FundLoan(_ context.Context, id uint64, wei *big.Int) (*domain.TxResult, error) {
	m.record("fundLoan")
	m.lastWei = wei
	return &domain.TxResult{Hash: "0xfund", LoanID: &id}, m.err
}

func (m *mockContract) RepayLoan(_ context.Context, id uint64, wei *big.Int) (*domain.TxResult, error) {
	m.record("repayLoan")
	m.lastWei = wei
	return &domain.TxResult{Hash: "0xrepay", LoanID: &id}, m.err
}

func (m *mockContract) MarkDefault(_ context.Context, id uint64) (*domain.TxResult, error) {
	m.record("markDefault")
	return &domain.TxResult{Hash: "0xdefault", LoanID: &id}, m.err
}

func (m *mockContract) RepaymentAmount(_ context.Context, _ uint64) (*big.Int, error) {
	m.record("repaymentAmount")
	return m.owed, m.err
}

func (m *mockContract) EscrowBalance(_ context.Context) (*big.Int, error) {
	m.record("escrowBalance")
	return m.escrow, m.err
}

func (m *mockContract) MaxLoanAmount(_ context.Context, _ uint64) (*big.Int, error) {
	m.record("maxLoanAmount")
	return m.maxWei, m.err
}
