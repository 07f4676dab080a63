package contracts

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/leasing/domain"
)

// EventLeasingRequestStateChanged is the instance's state-change event name.
const EventLeasingRequestStateChanged = "LeasingRequestStateChanged"

// Instance is a typed binding for one CrowdLeasingContract deployment.
type Instance struct {
	binding *Binding
}

// NewInstance binds the leasing interface to a deployed instance.
func NewInstance(address common.Address, caller Caller) (*Instance, error) {
	b, err := NewBinding(LeasingABI, address, caller)
	if err != nil {
		return nil, err
	}
	return &Instance{binding: b}, nil
}

// Address returns the instance's address.
func (i *Instance) Address() common.Address {
	return i.binding.Address()
}

// BuildCreateRequest packs a createLeasingRequest transaction skeleton.
func (i *Instance) BuildCreateRequest(from common.Address, req domain.LeasingRequest) (chaindomain.TxSkeleton, error) {
	return i.binding.BuildTransaction("createLeasingRequest", from, nil,
		req.Amount, req.Duration, req.FundingPeriod, req.TokenPrice)
}

// BuildInvest packs a payable investInLeasing transaction skeleton
// carrying the investment as the transaction value.
func (i *Instance) BuildInvest(from common.Address, leaseID, value *big.Int) (chaindomain.TxSkeleton, error) {
	return i.binding.BuildTransaction("investInLeasing", from, value, leaseID)
}

// Status returns the funding status of a lease.
func (i *Instance) Status(ctx context.Context, leaseID *big.Int) (domain.FundingStatus, error) {
	out, err := i.binding.Call(ctx, "getStatus", leaseID)
	if err != nil {
		return 0, err
	}

	status, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("getStatus: unexpected output type %T", out[0])
	}
	return domain.FundingStatus(status), nil
}

// RemainingAmount returns the unfunded remainder of a lease in
// smallest units.
func (i *Instance) RemainingAmount(ctx context.Context, leaseID *big.Int) (*big.Int, error) {
	out, err := i.binding.Call(ctx, "getRemainingAmount", leaseID)
	if err != nil {
		return nil, err
	}

	remaining, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("getRemainingAmount: unexpected output type %T", out[0])
	}
	return remaining, nil
}

// StateChangedQuery builds the log filter for this instance's
// state-change events.
func (i *Instance) StateChangedQuery() ethereum.FilterQuery {
	topic, _ := i.binding.EventTopic(EventLeasingRequestStateChanged)
	return ethereum.FilterQuery{
		Addresses: []common.Address{i.binding.Address()},
		Topics:    [][]common.Hash{{topic}},
	}
}

// DecodeStateChanged decodes a LeasingRequestStateChanged log. Returns
// ok=false for logs that do not match the event signature.
func (i *Instance) DecodeStateChanged(log types.Log) (domain.StateChangedEvent, bool) {
	fields, ok := i.binding.DecodeEvent(EventLeasingRequestStateChanged, log)
	if !ok {
		return domain.StateChangedEvent{}, false
	}

	leaseID, lok := fields["leaseId"].(*big.Int)
	newState, sok := fields["newState"].(*big.Int)
	if !lok || !sok {
		return domain.StateChangedEvent{}, false
	}

	return domain.StateChangedEvent{
		LeaseID:  leaseID,
		NewState: domain.FundingStatus(newState.Uint64()),
	}, true
}
