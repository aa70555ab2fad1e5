package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Peer-to-peer loans (contract-owned state)
// ============================================================

// LoanRequest mirrors the loan struct the P2P lending contract stores.
// The client only reads it; every state change is a contract transaction.
type LoanRequest struct {
	ID           uint64          `json:"loan_id"`
	Borrower     string          `json:"borrower"`
	Lender       string          `json:"lender,omitempty"`
	AmountEth    decimal.Decimal `json:"amount_eth"`
	AmountWei    string          `json:"amount_wei"`
	InterestRate uint64          `json:"interest_rate"`
	Duration     time.Duration   `json:"-"`
	DurationDays int             `json:"duration_days"`
	CreatedAt    time.Time       `json:"created_at"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	Funded       bool            `json:"funded"`
	Repaid       bool            `json:"repaid"`
	Defaulted    bool            `json:"defaulted"`
}

// Status summarizes the contract flags into one label.
func (l *LoanRequest) Status() string {
	switch {
	case l.Defaulted:
		return "defaulted"
	case l.Repaid:
		return "repaid"
	case l.Funded:
		return "funded"
	default:
		return "open"
	}
}

// CreateLoanInput is what a borrower submits to open a loan request.
// Amount is in ETH, InterestRate in whole percent, DurationDays in days.
type CreateLoanInput struct {
	AmountEth    decimal.Decimal `json:"amount_eth"`
	InterestRate uint64          `json:"interest_rate" validate:"gte=1,lte=50"`
	DurationDays int             `json:"duration_days" validate:"gte=1,lte=365"`
}

// PreparedTx is an unsigned contract call for an external wallet to submit.
type PreparedTx struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	ValueWei string `json:"value_wei"`
	Method   string `json:"method"`
	Gas      uint64 `json:"estimated_gas,omitempty"`
}

// TxResult is the outcome of a contract write. Exactly one of Hash and
// Prepared is set: Hash when the gateway signed and sent the transaction,
// Prepared when no signing key is configured.
type TxResult struct {
	Hash     string      `json:"transaction_hash,omitempty"`
	LoanID   *uint64     `json:"loan_id,omitempty"`
	GasUsed  uint64      `json:"gas_used,omitempty"`
	Prepared *PreparedTx `json:"transaction_data,omitempty"`
	Message  string      `json:"message"`
}

// EscrowBalance is the contract's escrow balance.
type EscrowBalance struct {
	Eth decimal.Decimal `json:"escrow_balance_eth"`
	Wei string          `json:"escrow_balance_wei"`
}

// MaxLoanAmount is the borrowing ceiling for a credit score.
type MaxLoanAmount struct {
	CreditScore int             `json:"credit_score"`
	Eligible    bool            `json:"eligible"`
	Eth         decimal.Decimal `json:"max_loan_amount_eth"`
	Wei         string          `json:"max_loan_amount_wei"`
	Message     string          `json:"message,omitempty"`
}

// MinLoanCreditScore is the lowest credit score the lending contract serves.
const MinLoanCreditScore = 600
