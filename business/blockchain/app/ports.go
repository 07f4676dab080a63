// Package app contains application services and port definitions for the blockchain context.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/crowdly/leasing-gateway/business/blockchain/domain"
)

// ChainClient defines the low-level chain access port. A single RPC
// failure surfaces immediately; retry policy belongs to the caller.
type ChainClient interface {
	// ChainID returns the connected network's chain ID.
	ChainID(ctx context.Context) (*big.Int, error)

	// Balance returns the smallest-unit native balance of the address.
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)

	// CallContract executes a read-only contract call.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)

	// SendTransaction signs the skeleton through the provider, broadcasts
	// it and waits for the mined receipt.
	SendTransaction(ctx context.Context, provider domain.SigningProvider, tx domain.TxSkeleton) (*types.Receipt, error)

	// SubscribeLogs opens a log subscription for the query.
	SubscribeLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)

	// State returns the current connection state.
	State() domain.ConnectionState
}

// GasOracle defines the interface for gas price information.
type GasOracle interface {
	// GetGasPrice retrieves the current gas price.
	GetGasPrice(ctx context.Context) (*domain.GasPrice, error)

	// EstimateGas estimates the gas needed for a transaction.
	EstimateGas(ctx context.Context, tx domain.TxSkeleton) (uint64, error)

	// GetGasEstimate returns a full quote: price, limit, and totals.
	GetGasEstimate(ctx context.Context, tx domain.TxSkeleton) (*domain.GasEstimate, error)
}
