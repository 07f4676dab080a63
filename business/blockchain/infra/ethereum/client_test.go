package ethereum

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/crowdly/leasing-gateway/internal/apperror"
)

func TestMapSendError(t *testing.T) {
	tests := []struct {
		name     string
		nodeMsg  string
		wantCode apperror.Code
	}{
		{
			name:     "insufficient funds",
			nodeMsg:  "insufficient funds for gas * price + value",
			wantCode: apperror.CodeInsufficientFunds,
		},
		{
			name:     "underpriced replacement",
			nodeMsg:  "replacement transaction underpriced",
			wantCode: apperror.CodeTransactionUnderpriced,
		},
		{
			name:     "underpriced gas price",
			nodeMsg:  "transaction underpriced",
			wantCode: apperror.CodeTransactionUnderpriced,
		},
		{
			name:     "mixed case",
			nodeMsg:  "Insufficient Funds for transfer",
			wantCode: apperror.CodeInsufficientFunds,
		},
		{
			name:     "anything else is an RPC error",
			nodeMsg:  "nonce too low",
			wantCode: apperror.CodeChainRPCError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapSendError(errors.New(tt.nodeMsg))

			var appErr *apperror.AppError
			if !errors.As(got, &appErr) {
				t.Fatalf("mapSendError returned %T, want *apperror.AppError", got)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", appErr.Code, tt.wantCode)
			}
			if appErr.Unwrap() == nil {
				t.Error("cause not preserved")
			}
		})
	}
}

func TestAddrOrCreate(t *testing.T) {
	if got := addrOrCreate(nil); got != "contract-creation" {
		t.Errorf("nil to = %q", got)
	}
	addr := common.HexToAddress("0x1111111111111111111111111111111111111111")
	if got := addrOrCreate(&addr); got != addr.Hex() {
		t.Errorf("to = %q, want %q", got, addr.Hex())
	}
}

func TestDefaultClientConfig(t *testing.T) {
	cfg := DefaultClientConfig("http://localhost:4444", "")
	if cfg.ChainID != 31 {
		t.Errorf("chain id = %d, want 31", cfg.ChainID)
	}
	if cfg.ReceiptTimeout <= 0 || cfg.ReceiptPoll <= 0 {
		t.Error("receipt wait settings must be positive")
	}
	if cfg.ReceiptPoll >= cfg.ReceiptTimeout {
		t.Error("poll interval must be shorter than the timeout")
	}
}
