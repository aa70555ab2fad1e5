package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/blockchain"
	"github.com/nexora/nexora-bfa-go/internal/port"
	"github.com/nexora/nexora-bfa-go/internal/wire"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var maxLoanEth = decimal.NewFromInt(100)

// LoanService submits loan operations to the lending contract. Input checks
// here are for the user's convenience; the contract enforces the rules.
type LoanService struct {
	contract    port.LoanContract
	concurrency int
	logger      *zap.Logger
}

// NewLoanService creates a new loan service. contract may be nil when no
// chain is configured; every operation then fails with ErrUnavailable.
func NewLoanService(contract port.LoanContract, concurrency int, logger *zap.Logger) *LoanService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &LoanService{contract: contract, concurrency: concurrency, logger: logger}
}

// ValidateCreate checks amount in (0, 100] ETH, interest in [1, 50] percent
// and duration in [1, 365] days.
func ValidateCreate(in *domain.CreateLoanInput) error {
	if in == nil {
		return &domain.ErrValidation{Field: "body", Message: "is required"}
	}
	if !in.AmountEth.IsPositive() {
		return &domain.ErrValidation{Field: "amount_eth", Message: "must be greater than 0"}
	}
	if in.AmountEth.GreaterThan(maxLoanEth) {
		return &domain.ErrValidation{Field: "amount_eth", Message: "must be at most 100 ETH"}
	}
	return wire.ValidateInput(in)
}

// CreateLoan opens a loan request on the contract.
func (s *LoanService) CreateLoan(ctx context.Context, in *domain.CreateLoanInput) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "LoanService.CreateLoan")
	defer span.End()

	if err := s.available(); err != nil {
		return nil, err
	}
	if err := ValidateCreate(in); err != nil {
		return nil, err
	}
	wei, err := blockchain.EthToWei(in.AmountEth)
	if err != nil {
		return nil, &domain.ErrValidation{Field: "amount_eth", Message: err.Error()}
	}
	seconds := uint64(time.Duration(in.DurationDays) * 24 * time.Hour / time.Second)

	res, err := s.contract.CreateLoan(ctx, wei, in.InterestRate, seconds)
	if err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}
	s.logger.Info("loan request submitted",
		zap.String("amount_eth", in.AmountEth.String()),
		zap.Uint64("interest_rate", in.InterestRate),
		zap.Int("duration_days", in.DurationDays),
		zap.Bool("prepared", res.Prepared != nil),
	)
	return res, nil
}

// GetLoan reads one loan.
func (s *LoanService) GetLoan(ctx context.Context, loanID uint64) (*domain.LoanRequest, error) {
	ctx, span := tracer.Start(ctx, "LoanService.GetLoan")
	defer span.End()
	span.SetAttributes(attribute.Int64("loan.id", int64(loanID)))

	if err := s.available(); err != nil {
		return nil, err
	}
	return s.contract.GetLoan(ctx, loanID)
}

// ListLoans reads every loan id below loanCount with bounded concurrency.
// Ids the contract reports as empty are skipped.
func (s *LoanService) ListLoans(ctx context.Context) ([]domain.LoanRequest, error) {
	ctx, span := tracer.Start(ctx, "LoanService.ListLoans")
	defer span.End()

	if err := s.available(); err != nil {
		return nil, err
	}
	count, err := s.contract.LoanCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("loan count: %w", err)
	}
	span.SetAttributes(attribute.Int64("loan.count", int64(count)))

	var (
		mu    sync.Mutex
		loans = make([]domain.LoanRequest, 0, count)
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for id := uint64(0); id < count; id++ {
		g.Go(func() error {
			loan, err := s.contract.GetLoan(gCtx, id)
			if err != nil {
				var notFound *domain.ErrNotFound
				if errors.As(err, &notFound) {
					return nil
				}
				return fmt.Errorf("loan %d: %w", id, err)
			}
			mu.Lock()
			loans = append(loans, *loan)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(loans, func(i, j int) bool { return loans[i].ID < loans[j].ID })
	return loans, nil
}

// FundLoan lends the loan's full amount.
func (s *LoanService) FundLoan(ctx context.Context, loanID uint64) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "LoanService.FundLoan")
	defer span.End()

	loan, err := s.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	value, ok := new(big.Int).SetString(loan.AmountWei, 10)
	if !ok {
		return nil, &domain.ErrContractCall{Method: "fundLoan", Err: fmt.Errorf("bad amount %q", loan.AmountWei)}
	}
	res, err := s.contract.FundLoan(ctx, loanID, value)
	if err != nil {
		return nil, fmt.Errorf("fund loan %d: %w", loanID, err)
	}
	return res, nil
}

// RepayLoan pays back principal plus interest as computed by the contract.
func (s *LoanService) RepayLoan(ctx context.Context, loanID uint64) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "LoanService.RepayLoan")
	defer span.End()

	if err := s.available(); err != nil {
		return nil, err
	}
	owed, err := s.contract.RepaymentAmount(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("repayment amount %d: %w", loanID, err)
	}
	res, err := s.contract.RepayLoan(ctx, loanID, owed)
	if err != nil {
		return nil, fmt.Errorf("repay loan %d: %w", loanID, err)
	}
	return res, nil
}

// MarkDefault flags an overdue loan.
func (s *LoanService) MarkDefault(ctx context.Context, loanID uint64) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "LoanService.MarkDefault")
	defer span.End()

	if err := s.available(); err != nil {
		return nil, err
	}
	res, err := s.contract.MarkDefault(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("mark default %d: %w", loanID, err)
	}
	return res, nil
}

// EscrowBalance reads the contract's escrow.
func (s *LoanService) EscrowBalance(ctx context.Context) (*domain.EscrowBalance, error) {
	ctx, span := tracer.Start(ctx, "LoanService.EscrowBalance")
	defer span.End()

	if err := s.available(); err != nil {
		return nil, err
	}
	wei, err := s.contract.EscrowBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("escrow balance: %w", err)
	}
	return &domain.EscrowBalance{Eth: blockchain.WeiToEth(wei), Wei: wei.String()}, nil
}

// MaxLoanAmount returns the borrowing ceiling for creditScore. Scores below
// the minimum are answered without asking the contract.
func (s *LoanService) MaxLoanAmount(ctx context.Context, creditScore int) (*domain.MaxLoanAmount, error) {
	ctx, span := tracer.Start(ctx, "LoanService.MaxLoanAmount")
	defer span.End()
	span.SetAttributes(attribute.Int("credit_score", creditScore))

	if creditScore < 0 {
		return nil, &domain.ErrValidation{Field: "credit_score", Message: "must not be negative"}
	}
	if creditScore < domain.MinLoanCreditScore {
		return &domain.MaxLoanAmount{
			CreditScore: creditScore,
			Eth:         decimal.Zero,
			Wei:         "0",
			Message:     fmt.Sprintf("Credit score %d is below minimum requirement of %d", creditScore, domain.MinLoanCreditScore),
		}, nil
	}

	if err := s.available(); err != nil {
		return nil, err
	}
	wei, err := s.contract.MaxLoanAmount(ctx, uint64(creditScore))
	if err != nil {
		return nil, fmt.Errorf("max loan amount: %w", err)
	}
	return &domain.MaxLoanAmount{
		CreditScore: creditScore,
		Eligible:    true,
		Eth:         blockchain.WeiToEth(wei),
		Wei:         wei.String(),
	}, nil
}

func (s *LoanService) available() error {
	if s.contract == nil {
		return &domain.ErrUnavailable{Component: "loan contract"}
	}
	return nil
}
