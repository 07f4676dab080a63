package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/crowdly/leasing-gateway/business/blockchain/domain"
)

// BlockchainService coordinates chain interactions for the other
// bounded contexts: account discovery, balances, gas policy, and
// transaction submission.
type BlockchainService struct {
	client ChainClient
	gas    GasOracle
}

// NewBlockchainService creates a new BlockchainService.
func NewBlockchainService(client ChainClient, gas GasOracle) *BlockchainService {
	return &BlockchainService{
		client: client,
		gas:    gas,
	}
}

// Accounts returns the signing provider's accounts enriched with their
// current native balances.
func (s *BlockchainService) Accounts(ctx context.Context, provider domain.SigningProvider) ([]domain.Account, error) {
	addrs, err := provider.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(addrs))
	for _, addr := range addrs {
		bal, err := s.client.Balance(ctx, addr)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, domain.Account{Address: addr, Balance: bal})
	}

	return accounts, nil
}

// Balance returns the native balance of a single address.
func (s *BlockchainService) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return s.client.Balance(ctx, addr)
}

// GasPrice retrieves the current gas price.
func (s *BlockchainService) GasPrice(ctx context.Context) (*domain.GasPrice, error) {
	return s.gas.GetGasPrice(ctx)
}

// EstimateGas estimates gas for a transaction skeleton.
func (s *BlockchainService) EstimateGas(ctx context.Context, tx domain.TxSkeleton) (uint64, error) {
	return s.gas.EstimateGas(ctx, tx)
}

// SubmitAndWait fills in gas fields if the caller left them zero, then
// signs, broadcasts, and waits for the mined receipt.
func (s *BlockchainService) SubmitAndWait(ctx context.Context, provider domain.SigningProvider, tx domain.TxSkeleton) (*types.Receipt, error) {
	if tx.GasPrice == nil && tx.GasLimit == 0 {
		// The usual case: built transactions carry no gas fields at
		// all, so take a full quote in one pass (it also falls back to
		// the configured default limit when estimation fails).
		estimate, err := s.gas.GetGasEstimate(ctx, tx)
		if err != nil {
			return nil, err
		}
		tx.GasPrice = estimate.GasPrice.Wei
		tx.GasLimit = estimate.GasLimit
	}

	if tx.GasPrice == nil {
		price, err := s.gas.GetGasPrice(ctx)
		if err != nil {
			return nil, err
		}
		tx.GasPrice = price.Wei
	}

	if tx.GasLimit == 0 {
		limit, err := s.gas.EstimateGas(ctx, tx)
		if err != nil {
			return nil, err
		}
		tx.GasLimit = limit
	}

	return s.client.SendTransaction(ctx, provider, tx)
}

// ChainID returns the connected network's chain ID.
func (s *BlockchainService) ChainID(ctx context.Context) (*big.Int, error) {
	return s.client.ChainID(ctx)
}

// ConnectionState returns the current chain connection state.
func (s *BlockchainService) ConnectionState() domain.ConnectionState {
	return s.client.State()
}

// Client exposes the underlying chain client for contexts that need raw
// call and subscription access (the contract binding layer).
func (s *BlockchainService) Client() ChainClient {
	return s.client
}
