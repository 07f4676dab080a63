// Package domain contains the core domain types for the wallet context.
package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// State is the session lifecycle state. The machine moves
// Uninitialized -> Initializing -> {LoggedOut, LoggedIn}; afterwards
// login and logout toggle between the two terminal states.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateLoggedOut     State = "logged_out"
	StateLoggedIn      State = "logged_in"
)

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	switch s {
	case StateUninitialized:
		return next == StateInitializing
	case StateInitializing:
		return next == StateLoggedOut || next == StateLoggedIn
	case StateLoggedOut:
		return next == StateLoggedIn
	case StateLoggedIn:
		return next == StateLoggedOut
	default:
		return false
	}
}

// Grant is what the custodian hands back on a successful login or
// session restore. The session key is an ephemeral signing key scoped
// to this session; it never leaves the process.
type Grant struct {
	SessionKey string // hex-encoded secp256k1 private key
	Address    common.Address
	Subject    string // custodian-side user identifier
	ExpiresAt  time.Time
}

// Session is the client-side view of an established session.
type Session struct {
	Address   common.Address
	Subject   string
	ExpiresAt time.Time
	StartedAt time.Time
}
