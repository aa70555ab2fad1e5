package blockchain

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

var weiPerEth = decimal.New(1, 18)

// WeiToEth converts wei to ether without losing precision.
func WeiToEth(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -18)
}

// EthToWei converts ether to wei. Negative amounts and amounts finer than
// one wei are rejected.
func EthToWei(eth decimal.Decimal) (*big.Int, error) {
	if eth.IsNegative() {
		return nil, fmt.Errorf("negative amount %s", eth)
	}
	wei := eth.Mul(weiPerEth)
	if !wei.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than 18 decimal places", eth)
	}
	return wei.BigInt(), nil
}
