// Package app contains the leasing workflow service and its port definitions.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/leasing/domain"
)

// ChainGateway is the slice of the blockchain context the leasing
// workflows depend on.
type ChainGateway interface {
	Balance(ctx context.Context, addr common.Address) (*big.Int, error)
	GasPrice(ctx context.Context) (*chaindomain.GasPrice, error)
	EstimateGas(ctx context.Context, tx chaindomain.TxSkeleton) (uint64, error)
	SubmitAndWait(ctx context.Context, provider chaindomain.SigningProvider, tx chaindomain.TxSkeleton) (*types.Receipt, error)
}

// SessionGate supplies the active signing provider. Implementations
// must fail when no session is logged in.
type SessionGate interface {
	ActiveProvider(ctx context.Context) (chaindomain.SigningProvider, error)
}

// LogSubscriber opens contract log subscriptions.
type LogSubscriber interface {
	SubscribeLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// FactoryContract is the typed view of the leasing factory.
type FactoryContract interface {
	Address() common.Address
	BuildCreate(from common.Address, name, symbol string) (chaindomain.TxSkeleton, error)
	TotalContracts(ctx context.Context) (*big.Int, error)
	ContractByIndex(ctx context.Context, index *big.Int) (common.Address, error)
	LeasingContract(ctx context.Context, leaseID *big.Int) (common.Address, error)
	CreatedEventFromReceipt(receipt *types.Receipt) (*domain.ContractCreatedEvent, bool)
}

// InstanceContract is the typed view of one leasing contract instance.
type InstanceContract interface {
	Address() common.Address
	BuildCreateRequest(from common.Address, req domain.LeasingRequest) (chaindomain.TxSkeleton, error)
	BuildInvest(from common.Address, leaseID, value *big.Int) (chaindomain.TxSkeleton, error)
	Status(ctx context.Context, leaseID *big.Int) (domain.FundingStatus, error)
	RemainingAmount(ctx context.Context, leaseID *big.Int) (*big.Int, error)
	StateChangedQuery() ethereum.FilterQuery
	DecodeStateChanged(log types.Log) (domain.StateChangedEvent, bool)
}

// InstanceBinder binds the leasing interface to a deployed address.
type InstanceBinder func(addr common.Address) (InstanceContract, error)
