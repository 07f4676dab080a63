package custodian

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/crowdly/leasing-gateway/business/wallet/domain"
)

// well-known test vector key
const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func testKeyAddress(t *testing.T) common.Address {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	if err != nil {
		t.Fatalf("HexToECDSA: %v", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

func TestNewSigner_DerivesAddress(t *testing.T) {
	signer, err := NewSigner(domain.Grant{SessionKey: "0x" + testKeyHex})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	accounts, err := signer.Accounts(context.Background())
	if err != nil {
		t.Fatalf("Accounts: %v", err)
	}
	if len(accounts) != 1 || accounts[0] != testKeyAddress(t) {
		t.Fatalf("Accounts = %v, want [%s]", accounts, testKeyAddress(t))
	}
}

func TestNewSigner_RejectsBadKey(t *testing.T) {
	if _, err := NewSigner(domain.Grant{SessionKey: "not-hex"}); err == nil {
		t.Fatal("expected an error for invalid key material")
	}
}

func TestNewSigner_RejectsAddressMismatch(t *testing.T) {
	grant := domain.Grant{
		SessionKey: testKeyHex,
		Address:    common.HexToAddress("0x1234567890123456789012345678901234567890"),
	}
	if _, err := NewSigner(grant); err == nil {
		t.Fatal("expected an error for mismatched address")
	}
}

func TestSignTransaction_RecoverableSender(t *testing.T) {
	signer, err := NewSigner(domain.Grant{SessionKey: testKeyHex})
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}

	chainID := big.NewInt(31)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    7,
		To:       &to,
		Value:    big.NewInt(1000),
		Gas:      21000,
		GasPrice: big.NewInt(65_164_000),
	})

	signed, err := signer.SignTransaction(context.Background(), tx, chainID)
	if err != nil {
		t.Fatalf("SignTransaction: %v", err)
	}

	sender, err := types.Sender(types.LatestSignerForChainID(chainID), signed)
	if err != nil {
		t.Fatalf("Sender: %v", err)
	}
	if sender != testKeyAddress(t) {
		t.Fatalf("recovered sender = %s, want %s", sender, testKeyAddress(t))
	}
}
