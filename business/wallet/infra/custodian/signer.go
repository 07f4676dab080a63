package custodian

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
)

// Signer signs transactions with the session key issued by the
// custodian. It implements the chain's SigningProvider port.
type Signer struct {
	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ chaindomain.SigningProvider = (*Signer)(nil)

// NewSigner derives a signer from a session grant. The grant's address
// must match the key; a mismatch means the custodian response is
// corrupt.
func NewSigner(grant domain.Grant) (*Signer, error) {
	keyHex := strings.TrimPrefix(grant.SessionKey, "0x")

	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, apperror.New(apperror.CodeCustodianError,
			apperror.WithCause(err),
			apperror.WithContext("invalid session key material"))
	}

	addr := crypto.PubkeyToAddress(key.PublicKey)
	if grant.Address != (common.Address{}) && grant.Address != addr {
		return nil, apperror.New(apperror.CodeCustodianError,
			apperror.WithContext("session key does not match granted address"))
	}

	return &Signer{key: key, addr: addr}, nil
}

// Accounts returns the single session-key address.
func (s *Signer) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{s.addr}, nil
}

// SignTransaction signs the transaction for the given chain.
func (s *Signer) SignTransaction(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, apperror.New(apperror.CodeCustodianError,
			apperror.WithCause(err),
			apperror.WithContext("transaction signing failed"))
	}
	return signed, nil
}

// Address returns the signer's address.
func (s *Signer) Address() common.Address {
	return s.addr
}
