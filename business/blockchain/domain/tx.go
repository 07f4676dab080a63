package domain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxSkeleton is an unsigned transaction in the making. The contract
// binding layer fills To/Data; gas fields are populated by the caller
// before sending so gas policy stays in one place.
type TxSkeleton struct {
	From     common.Address
	To       *common.Address // nil = contract creation
	Value    *big.Int
	Data     []byte
	GasLimit uint64
	GasPrice *big.Int
}

// SigningProvider is the active wallet handle supplied by the session
// layer. It is only valid while the session is logged in.
type SigningProvider interface {
	// Accounts returns the ordered addresses controlled by the provider.
	Accounts(ctx context.Context) ([]common.Address, error)

	// SignTransaction signs the transaction for the given chain.
	SignTransaction(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}
