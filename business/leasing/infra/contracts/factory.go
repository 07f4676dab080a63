package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/leasing/domain"
)

// EventNewLeasingContract is the factory's instance-creation event name.
const EventNewLeasingContract = "NewLeasingContract"

// Factory is a typed binding for the CrowdLeasingFactory contract.
type Factory struct {
	binding *Binding
}

// NewFactory binds the factory interface to its well-known address.
func NewFactory(address common.Address, caller Caller) (*Factory, error) {
	b, err := NewBinding(FactoryABI, address, caller)
	if err != nil {
		return nil, err
	}
	return &Factory{binding: b}, nil
}

// Address returns the factory's address.
func (f *Factory) Address() common.Address {
	return f.binding.Address()
}

// BuildCreate packs a createCrowdLeasingContract transaction skeleton.
func (f *Factory) BuildCreate(from common.Address, name, symbol string) (chaindomain.TxSkeleton, error) {
	return f.binding.BuildTransaction("createCrowdLeasingContract", from, nil, name, symbol)
}

// TotalContracts returns how many instances the factory has deployed.
func (f *Factory) TotalContracts(ctx context.Context) (*big.Int, error) {
	out, err := f.binding.Call(ctx, "getTotalContracts")
	if err != nil {
		return nil, err
	}

	total, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getTotalContracts: unexpected output type %T", out[0])
	}
	return total, nil
}

// ContractByIndex returns the instance address at the given index.
func (f *Factory) ContractByIndex(ctx context.Context, index *big.Int) (common.Address, error) {
	out, err := f.binding.Call(ctx, "getContractByIndex", index)
	if err != nil {
		return common.Address{}, err
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("getContractByIndex: unexpected output type %T", out[0])
	}
	return addr, nil
}

// LeasingContract returns the instance address registered for a lease ID.
func (f *Factory) LeasingContract(ctx context.Context, leaseID *big.Int) (common.Address, error) {
	out, err := f.binding.Call(ctx, "leasingContracts", leaseID)
	if err != nil {
		return common.Address{}, err
	}

	addr, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("leasingContracts: unexpected output type %T", out[0])
	}
	return addr, nil
}

// CreatedEventFromReceipt scans a receipt's logs for the
// NewLeasingContract event. The deployed address is only ever taken
// from this event, never derived from the transaction.
func (f *Factory) CreatedEventFromReceipt(receipt *types.Receipt) (*domain.ContractCreatedEvent, bool) {
	for _, log := range receipt.Logs {
		if log == nil {
			continue
		}
		fields, ok := f.binding.DecodeEvent(EventNewLeasingContract, *log)
		if !ok {
			continue
		}

		user, uok := fields["user"].(common.Address)
		addr, aok := fields["contractAddress"].(common.Address)
		if !uok || !aok {
			continue
		}

		return &domain.ContractCreatedEvent{
			User:            user,
			ContractAddress: addr,
		}, true
	}
	return nil, false
}
