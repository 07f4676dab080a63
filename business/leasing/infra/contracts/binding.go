// Package contracts provides typed bindings for the crowd-leasing
// factory and instance contracts.
package contracts

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
)

// Caller executes read-only contract calls. Satisfied by the chain
// client.
type Caller interface {
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// Binding pairs a parsed contract interface with a deployed address.
// Calls go through the injected Caller; state mutations are returned as
// unsigned skeletons so gas policy stays with the workflow service.
type Binding struct {
	abi     abi.ABI
	address common.Address
	caller  Caller
}

// NewBinding parses the interface description and binds it to an address.
func NewBinding(abiJSON string, address common.Address, caller Caller) (*Binding, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("parse contract ABI: %w", err)
	}

	return &Binding{
		abi:     parsed,
		address: address,
		caller:  caller,
	}, nil
}

// Address returns the bound contract address.
func (b *Binding) Address() common.Address {
	return b.address
}

// Call executes a read-only method and returns the decoded outputs.
func (b *Binding) Call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	raw, err := b.caller.CallContract(ctx, b.address, data)
	if err != nil {
		return nil, err
	}

	out, err := b.abi.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}

	return out, nil
}

// BuildTransaction packs a state-mutating call into an unsigned
// skeleton. Gas fields are intentionally left zero.
func (b *Binding) BuildTransaction(method string, from common.Address, value *big.Int, args ...any) (chaindomain.TxSkeleton, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return chaindomain.TxSkeleton{}, fmt.Errorf("pack %s: %w", method, err)
	}

	to := b.address
	return chaindomain.TxSkeleton{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	}, nil
}

// EventTopic returns the keccak-256 topic hash for a named event.
func (b *Binding) EventTopic(name string) (common.Hash, bool) {
	ev, ok := b.abi.Events[name]
	if !ok {
		return common.Hash{}, false
	}
	return ev.ID, true
}

// DecodeEvent matches a log's first topic against the named event's
// signature hash. On match it decodes indexed and non-indexed fields
// into a map keyed by argument name. A non-matching or undecodable log
// returns ok=false, never an error.
func (b *Binding) DecodeEvent(name string, log types.Log) (map[string]any, bool) {
	ev, ok := b.abi.Events[name]
	if !ok {
		return nil, false
	}
	if len(log.Topics) == 0 || log.Topics[0] != ev.ID {
		return nil, false
	}

	out := make(map[string]any)

	// Non-indexed fields live in the data blob.
	if err := b.abi.UnpackIntoMap(out, name, log.Data); err != nil {
		return nil, false
	}

	// Indexed fields live in the remaining topics.
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) > 0 {
		if err := abi.ParseTopicsIntoMap(out, indexed, log.Topics[1:]); err != nil {
			return nil, false
		}
	}

	return out, true
}
