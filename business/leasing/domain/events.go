package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ContractCreatedEvent is the factory's notification that a new leasing
// contract instance was deployed.
type ContractCreatedEvent struct {
	User            common.Address
	ContractAddress common.Address
}

// StateChangedEvent is an instance's notification that a leasing
// request moved to a new funding state.
type StateChangedEvent struct {
	LeaseID  *big.Int
	NewState FundingStatus
}
