// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"math/big"

	"github.com/nexora/nexora-bfa-go/internal/domain"
)

// InvoiceProcessor uploads an invoice document for extraction and scoring.
type InvoiceProcessor interface {
	ProcessInvoice(ctx context.Context, token string, doc *domain.Document) (*domain.UploadResult, error)
}

// ScoreCalculator scores a financial snapshot. The endpoint is public.
type ScoreCalculator interface {
	CalculateSingleInvoiceScore(ctx context.Context, snap *domain.FinancialSnapshot) (*domain.CreditScoreAnalysis, error)
}

// DashboardFetcher retrieves the cumulative score of the token's user.
type DashboardFetcher interface {
	GetDashboardScore(ctx context.Context, token string) (*domain.DashboardScore, error)
}

// InvoiceLister lists and deletes the token user's invoices.
type InvoiceLister interface {
	ListInvoices(ctx context.Context, token string) ([]domain.Invoice, error)
	DeleteInvoice(ctx context.Context, token, invoiceID string) error
}

// BusinessDirectory reads and stores the token user's business profile and
// insurance policies.
type BusinessDirectory interface {
	GetBusiness(ctx context.Context, token string) (*domain.BusinessProfile, error)
	RegisterBusiness(ctx context.Context, token string, profile *domain.BusinessProfile) (*domain.BusinessProfile, error)
	GeneratePolicies(ctx context.Context, token string, req *domain.PolicyRequest) (domain.GeneratedPolicies, error)
	GetPolicies(ctx context.Context, token string) ([]domain.Policy, error)
}

// Authenticator exchanges credentials for bearer tokens.
type Authenticator interface {
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.AuthResult, error)
	Register(ctx context.Context, req *domain.RegisterRequest) (*domain.AuthResult, error)
	Refresh(ctx context.Context, token string) (*domain.AuthResult, error)
}

// KVStore persists small string values: the auth token and serialized user.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// LoanContract is the P2P lending contract as the client sees it.
type LoanContract interface {
	GetLoan(ctx context.Context, loanID uint64) (*domain.LoanRequest, error)
	LoanCount(ctx context.Context) (uint64, error)
	CreateLoan(ctx context.Context, amountWei *big.Int, interestRate uint64, durationSeconds uint64) (*domain.TxResult, error)
	FundLoan(ctx context.Context, loanID uint64, valueWei *big.Int) (*domain.TxResult, error)
	RepayLoan(ctx context.Context, loanID uint64, valueWei *big.Int) (*domain.TxResult, error)
	MarkDefault(ctx context.Context, loanID uint64) (*domain.TxResult, error)
	RepaymentAmount(ctx context.Context, loanID uint64) (*big.Int, error)
	EscrowBalance(ctx context.Context) (*big.Int, error)
	MaxLoanAmount(ctx context.Context, creditScore uint64) (*big.Int, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
