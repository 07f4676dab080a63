package asset_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/crowdly/leasing-gateway/internal/asset"
)

func TestAmount_Basic(t *testing.T) {
	// 1 tRBTC = 1e18 wei-equivalent
	one := asset.NewAmount(asset.TRBTC, big.NewInt(1e18))

	if one.IsZero() {
		t.Error("expected non-zero amount")
	}

	// ToDecimal should return 1.0
	d := one.ToDecimal()
	if !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", d.String())
	}

	if one.String() != "1 tRBTC" {
		t.Errorf("expected '1 tRBTC', got '%s'", one.String())
	}
}

func TestAmount_Add(t *testing.T) {
	one := asset.NewAmount(asset.TRBTC, big.NewInt(1e18))
	two := asset.NewAmount(asset.TRBTC, big.NewInt(2e18))

	sum, err := one.Add(two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !sum.ToDecimal().Equal(decimal.NewFromInt(3)) {
		t.Errorf("expected 3, got %s", sum.ToDecimal().String())
	}
}

func TestAmount_CannotAddDifferentAssets(t *testing.T) {
	leaseToken := asset.MustNewToken(
		asset.ChainIDRootstockTestnet,
		common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		"CLT", "Crowd Lease Token", 18,
	)

	one := asset.NewAmount(asset.TRBTC, big.NewInt(1e18))
	oneToken := asset.NewAmount(leaseToken, big.NewInt(1e18))

	if _, err := one.Add(oneToken); err == nil {
		t.Error("expected error when adding different assets")
	}
}

func TestAmount_SubNegativeError(t *testing.T) {
	one := asset.NewAmount(asset.TRBTC, big.NewInt(1e18))
	two := asset.NewAmount(asset.TRBTC, big.NewInt(2e18))

	if _, err := one.Sub(two); err == nil {
		t.Error("expected error for negative result")
	}
}

func TestParseString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantRaw string
		wantErr bool
	}{
		{name: "whole", input: "2", wantRaw: "2000000000000000000"},
		{name: "fractional", input: "1.5", wantRaw: "1500000000000000000"},
		{name: "smallest_unit", input: "0.000000000000000001", wantRaw: "1"},
		{name: "eighteen_digits", input: "0.123456789012345678", wantRaw: "123456789012345678"},
		{name: "zero", input: "0", wantRaw: "0"},
		{name: "nineteen_digits", input: "0.1234567890123456789", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not_a_number", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amt, err := asset.ParseString(asset.TRBTC, tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			want, _ := new(big.Int).SetString(tt.wantRaw, 10)
			if amt.Raw().Cmp(want) != 0 {
				t.Errorf("expected %s, got %s", want, amt.Raw())
			}
		})
	}
}

// Converting to decimal and parsing back must be lossless for any value
// with up to 18 fractional digits.
func TestParseString_RoundTrip(t *testing.T) {
	inputs := []string{
		"0",
		"1",
		"0.5",
		"1.000000000000000001",
		"123456.789",
		"0.000000000000000001",
		"999999999.999999999999999999",
	}

	for _, in := range inputs {
		first, err := asset.ParseString(asset.TRBTC, in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}

		again, err := asset.ParseString(asset.TRBTC, first.ToDecimal().String())
		if err != nil {
			t.Fatalf("re-parse %q: %v", in, err)
		}

		if first.Raw().Cmp(again.Raw()) != 0 {
			t.Errorf("round trip of %q: %s != %s", in, first.Raw(), again.Raw())
		}
	}
}

func TestNative(t *testing.T) {
	if got := asset.Native(asset.ChainIDRootstockTestnet); !got.Equals(asset.TRBTC) {
		t.Errorf("expected tRBTC for chain 31, got %s", got)
	}
	if got := asset.Native(9999); got.Decimals() != 18 {
		t.Errorf("expected 18-decimal placeholder for unknown chain, got %d", got.Decimals())
	}
}
