// Package blockchain translates loan operations into calls on the P2P
// lending contract. The contract owns every state transition; the gateway
// only packs calls, signs them when it holds a key and decodes results.
package blockchain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/nexora/nexora-bfa-go/internal/domain"
	"github.com/nexora/nexora-bfa-go/internal/infra/resilience"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("blockchain")

// ContractBackend is the part of an Ethereum RPC client the gateway needs.
// *ethclient.Client satisfies it.
type ContractBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway implements port.LoanContract.
type Gateway struct {
	backend ContractBackend
	address common.Address
	abi     abi.ABI
	key     *ecdsa.PrivateKey
	from    common.Address
	poll    resilience.Config
	logger  *zap.Logger
}

// NewGateway binds the contract at address. signerKey is a hex private key;
// when empty, write operations return prepared transactions instead of
// sending them.
func NewGateway(backend ContractBackend, address, signerKey string, poll resilience.Config, logger *zap.Logger) (*Gateway, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	parsed, err := abi.JSON(strings.NewReader(loanContractABI))
	if err != nil {
		return nil, fmt.Errorf("parse contract abi: %w", err)
	}

	g := &Gateway{
		backend: backend,
		address: common.HexToAddress(address),
		abi:     parsed,
		poll:    poll,
		logger:  logger,
	}
	if signerKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(signerKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse signer key: %w", err)
		}
		g.key = key
		g.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return g, nil
}

// Address returns the contract address.
func (g *Gateway) Address() string { return g.address.Hex() }

// CanSign reports whether the gateway sends transactions itself.
func (g *Gateway) CanSign() bool { return g.key != nil }

// ============================================================
// Views
// ============================================================

// GetLoan reads one loan. Loans that were never created come back with a
// zero borrower and are reported as not found.
func (g *Gateway) GetLoan(ctx context.Context, loanID uint64) (*domain.LoanRequest, error) {
	ctx, span := tracer.Start(ctx, "Gateway.GetLoan")
	defer span.End()
	span.SetAttributes(attribute.Int64("loan.id", int64(loanID)))

	out, err := g.call(ctx, methodGetLoan, new(big.Int).SetUint64(loanID))
	if err != nil {
		return nil, err
	}
	if len(out) != 10 {
		return nil, &domain.ErrContractCall{Method: methodGetLoan, Err: fmt.Errorf("expected 10 values, got %d", len(out))}
	}

	borrower, _ := out[0].(common.Address)
	if borrower == (common.Address{}) {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: strconv.FormatUint(loanID, 10)}
	}
	lender, _ := out[1].(common.Address)
	amount := bigOf(out[2])
	duration := bigOf(out[4]).Uint64()
	createdAt := bigOf(out[5]).Int64()
	dueDate := bigOf(out[6]).Int64()

	loan := &domain.LoanRequest{
		ID:           loanID,
		Borrower:     borrower.Hex(),
		AmountEth:    WeiToEth(amount),
		AmountWei:    amount.String(),
		InterestRate: bigOf(out[3]).Uint64(),
		Duration:     time.Duration(duration) * time.Second,
		DurationDays: int(duration / 86400),
		CreatedAt:    time.Unix(createdAt, 0).UTC(),
	}
	if lender != (common.Address{}) {
		loan.Lender = lender.Hex()
	}
	if dueDate > 0 {
		t := time.Unix(dueDate, 0).UTC()
		loan.DueDate = &t
	}
	loan.Funded, _ = out[7].(bool)
	loan.Repaid, _ = out[8].(bool)
	loan.Defaulted, _ = out[9].(bool)
	return loan, nil
}

// LoanCount returns how many loans the contract holds. Ids run from 0.
func (g *Gateway) LoanCount(ctx context.Context) (uint64, error) {
	v, err := g.callUint(ctx, methodLoanCount)
	if err != nil {
		return 0, err
	}
	return v.Uint64(), nil
}

// RepaymentAmount returns principal plus interest owed on loanID, in wei.
func (g *Gateway) RepaymentAmount(ctx context.Context, loanID uint64) (*big.Int, error) {
	return g.callUint(ctx, methodRepaymentAmount, new(big.Int).SetUint64(loanID))
}

// EscrowBalance returns the wei held by the contract.
func (g *Gateway) EscrowBalance(ctx context.Context) (*big.Int, error) {
	return g.callUint(ctx, methodEscrowBalance)
}

// MaxLoanAmount returns the ceiling the contract allows for creditScore.
func (g *Gateway) MaxLoanAmount(ctx context.Context, creditScore uint64) (*big.Int, error) {
	return g.callUint(ctx, methodMaxLoanAmount, new(big.Int).SetUint64(creditScore))
}

// ============================================================
// Transactions
// ============================================================

// CreateLoan opens a loan request. When sent, the new loan id is decoded
// from the LoanCreated event.
func (g *Gateway) CreateLoan(ctx context.Context, amountWei *big.Int, interestRate, durationSeconds uint64) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.CreateLoan")
	defer span.End()

	res, receipt, err := g.transact(ctx, methodCreateLoan, nil, gasCreateLoan,
		amountWei, new(big.Int).SetUint64(interestRate), new(big.Int).SetUint64(durationSeconds))
	if err != nil || receipt == nil {
		return res, err
	}
	if id, ok := g.createdLoanID(receipt); ok {
		res.LoanID = &id
	} else {
		g.logger.Warn("loan created without LoanCreated event", zap.String("tx", res.Hash))
	}
	res.Message = "Loan request created"
	return res, nil
}

// FundLoan lends valueWei to loanID.
func (g *Gateway) FundLoan(ctx context.Context, loanID uint64, valueWei *big.Int) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.FundLoan")
	defer span.End()
	return g.loanAction(ctx, methodFundLoan, loanID, valueWei, "Loan funded")
}

// RepayLoan repays loanID with valueWei.
func (g *Gateway) RepayLoan(ctx context.Context, loanID uint64, valueWei *big.Int) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.RepayLoan")
	defer span.End()
	return g.loanAction(ctx, methodRepayLoan, loanID, valueWei, "Loan repaid")
}

// MarkDefault flags an overdue loan as defaulted.
func (g *Gateway) MarkDefault(ctx context.Context, loanID uint64) (*domain.TxResult, error) {
	ctx, span := tracer.Start(ctx, "Gateway.MarkDefault")
	defer span.End()
	return g.loanAction(ctx, methodMarkDefault, loanID, nil, "Loan marked as defaulted")
}

func (g *Gateway) loanAction(ctx context.Context, method string, loanID uint64, value *big.Int, done string) (*domain.TxResult, error) {
	res, receipt, err := g.transact(ctx, method, value, gasLoanAction, new(big.Int).SetUint64(loanID))
	if err != nil {
		return nil, err
	}
	id := loanID
	res.LoanID = &id
	if receipt != nil {
		res.Message = done
	}
	return res, nil
}

// ============================================================
// Plumbing
// ============================================================

func (g *Gateway) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	raw, err := g.backend.CallContract(ctx, ethereum.CallMsg{To: &g.address, Data: data}, nil)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	out, err := g.abi.Unpack(method, raw)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	return out, nil
}

func (g *Gateway) callUint(ctx context.Context, method string, args ...any) (*big.Int, error) {
	out, err := g.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	if len(out) != 1 {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("expected 1 value, got %d", len(out))}
	}
	return bigOf(out[0]), nil
}

// transact packs method and either signs, sends and waits for it, or returns
// it prepared for an external wallet. The receipt is nil in the second case.
func (g *Gateway) transact(ctx context.Context, method string, value *big.Int, gasHint uint64, args ...any) (*domain.TxResult, *types.Receipt, error) {
	data, err := g.abi.Pack(method, args...)
	if err != nil {
		return nil, nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	if value == nil {
		value = new(big.Int)
	}

	if g.key == nil {
		return &domain.TxResult{
			Prepared: &domain.PreparedTx{
				To:       g.address.Hex(),
				Data:     hexutil.Encode(data),
				ValueWei: value.String(),
				Method:   method,
				Gas:      gasHint,
			},
			Message: "Transaction data prepared for wallet submission",
		}, nil, nil
	}

	tx, err := g.signedTx(ctx, method, value, data)
	if err != nil {
		return nil, nil, err
	}
	if err := g.backend.SendTransaction(ctx, tx); err != nil {
		return nil, nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	g.logger.Info("contract transaction sent",
		zap.String("method", method),
		zap.String("tx", tx.Hash().Hex()),
	)

	receipt, err := g.waitReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, nil, &domain.ErrContractCall{Method: method, Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}
	return &domain.TxResult{Hash: tx.Hash().Hex(), GasUsed: receipt.GasUsed}, receipt, nil
}

func (g *Gateway) signedTx(ctx context.Context, method string, value *big.Int, data []byte) (*types.Transaction, error) {
	chainID, err := g.backend.ChainID(ctx)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("chain id: %w", err)}
	}
	nonce, err := g.backend.PendingNonceAt(ctx, g.from)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("nonce: %w", err)}
	}
	gasPrice, err := g.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("gas price: %w", err)}
	}
	gas, err := g.backend.EstimateGas(ctx, ethereum.CallMsg{From: g.from, To: &g.address, Value: value, Data: data})
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("estimate gas: %w", err)}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &g.address,
		Value:    value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), g.key)
	if err != nil {
		return nil, &domain.ErrContractCall{Method: method, Err: fmt.Errorf("sign: %w", err)}
	}
	return signed, nil
}

// waitReceipt polls until the transaction is mined. Only "not found" is
// retried; any other RPC error ends the wait.
func (g *Gateway) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := resilience.RetryWithBackoff(ctx, g.poll, func() error {
		r, err := g.backend.TransactionReceipt(ctx, hash)
		switch {
		case errors.Is(err, ethereum.NotFound):
			return err
		case err != nil:
			return &resilience.Permanent{Err: err}
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("receipt for %s: %w", hash.Hex(), err)
	}
	return receipt, nil
}

func (g *Gateway) createdLoanID(receipt *types.Receipt) (uint64, bool) {
	topic := g.abi.Events[eventLoanCreated].ID
	for _, l := range receipt.Logs {
		if l.Address != g.address || len(l.Topics) < 2 || l.Topics[0] != topic {
			continue
		}
		return new(big.Int).SetBytes(l.Topics[1].Bytes()).Uint64(), true
	}
	return 0, false
}

func bigOf(v any) *big.Int {
	if b, ok := v.(*big.Int); ok && b != nil {
		return b
	}
	return new(big.Int)
}
