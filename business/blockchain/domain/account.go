// Package domain contains the core domain types for the blockchain context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Account is a transient client-side view of an externally-owned address.
// It is never persisted; balance is re-fetched on every query.
type Account struct {
	Address common.Address
	Balance *big.Int // native currency, smallest unit
}

// ConnectionState represents the state of the chain connection.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)
