// Package domain contains the core domain types for the leasing context.
package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FundingStatus is the funding lifecycle state reported by a leasing
// contract instance. Instances may report terminal states beyond the
// ones this client distinguishes; everything above Active is treated as
// closed for funding.
type FundingStatus uint8

const (
	StatusPending FundingStatus = 0
	StatusActive  FundingStatus = 1
)

// IsActive reports whether the lease is open for investment.
func (s FundingStatus) IsActive() bool {
	return s == StatusActive
}

func (s FundingStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	default:
		return "closed"
	}
}

// DefaultLeaseID is the lease identifier used when querying an
// instance. Each instance carries exactly one leasing request, created
// immediately after deployment, and the contract assigns it ID 1.
var DefaultLeaseID = big.NewInt(1)

// LeasingRequest holds the write-once parameters of a funding request.
// They are set at creation and never re-read by this client.
type LeasingRequest struct {
	Amount        *big.Int // smallest unit
	Duration      *big.Int // seconds
	FundingPeriod *big.Int // seconds
	TokenPrice    *big.Int // smallest unit
}

// LeaseHandle identifies a freshly created leasing contract instance.
type LeaseHandle struct {
	Address   common.Address
	Borrower  common.Address
	CreateTx  common.Hash
	RequestTx common.Hash
}

// LeaseListing is one entry of the active-contract scan: an instance
// open for funding and how much of it remains unfunded.
type LeaseListing struct {
	Address         common.Address
	RemainingAmount decimal.Decimal // whole-token units
}
