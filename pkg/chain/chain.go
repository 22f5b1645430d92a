package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Reader is the subset of a JSON-RPC client needed to verify a payment.
// *ethclient.Client satisfies it.
type Reader interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	if rpcURL == "" {
		return nil, fmt.Errorf("chain RPC URL is empty")
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC: %w", err)
	}
	return client, nil
}

var hashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ValidHash reports whether s is a 0x-prefixed 32-byte hex string.
func ValidHash(s string) bool {
	return hashPattern.MatchString(s)
}

// IsNotFound reports whether err means the node does not know the object.
func IsNotFound(err error) bool {
	return errors.Is(err, ethereum.NotFound)
}

// SameAddress compares a transaction recipient with a configured address,
// ignoring case. A nil recipient (contract creation) never matches.
func SameAddress(to *common.Address, want string) bool {
	if to == nil || want == "" {
		return false
	}
	return strings.EqualFold(to.Hex(), want)
}

// WithinTolerance reports whether |actual-expected| <= expected*percent/100.
// The comparison is done on integers so the boundary is exact.
func WithinTolerance(actual, expected *big.Int, percent int64) bool {
	diff := new(big.Int).Sub(actual, expected)
	diff.Abs(diff)
	lhs := new(big.Int).Mul(diff, big.NewInt(100))
	rhs := new(big.Int).Mul(expected, big.NewInt(percent))
	return lhs.Cmp(rhs) <= 0
}

// Confirmations returns how many blocks were mined on top of receiptBlock.
func Confirmations(current uint64, receiptBlock *big.Int) uint64 {
	if receiptBlock == nil || !receiptBlock.IsUint64() {
		return 0
	}
	mined := receiptBlock.Uint64()
	if current <= mined {
		return 0
	}
	return current - mined
}
