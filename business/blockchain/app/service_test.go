package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/crowdly/leasing-gateway/business/blockchain/domain"
)

type mockClient struct {
	submitted []domain.TxSkeleton
}

func (m *mockClient) ChainID(context.Context) (*big.Int, error) { return big.NewInt(31), nil }

func (m *mockClient) Balance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (m *mockClient) CallContract(context.Context, common.Address, []byte) ([]byte, error) {
	return nil, nil
}

func (m *mockClient) SendTransaction(_ context.Context, _ domain.SigningProvider, tx domain.TxSkeleton) (*types.Receipt, error) {
	m.submitted = append(m.submitted, tx)
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (m *mockClient) SubscribeLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, nil
}

func (m *mockClient) State() domain.ConnectionState { return domain.StateConnected }

type mockOracle struct {
	price         *domain.GasPrice
	limit         uint64
	quoteLimit    uint64
	priceCalls    int
	estimateCalls int
	quoteCalls    int
}

func (m *mockOracle) GetGasPrice(context.Context) (*domain.GasPrice, error) {
	m.priceCalls++
	return m.price, nil
}

func (m *mockOracle) EstimateGas(context.Context, domain.TxSkeleton) (uint64, error) {
	m.estimateCalls++
	return m.limit, nil
}

func (m *mockOracle) GetGasEstimate(context.Context, domain.TxSkeleton) (*domain.GasEstimate, error) {
	m.quoteCalls++
	return domain.NewGasEstimate(m.quoteLimit, m.price), nil
}

type nopProvider struct{}

func (nopProvider) Accounts(context.Context) ([]common.Address, error) { return nil, nil }

func (nopProvider) SignTransaction(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

func TestSubmitAndWait_BareSkeletonTakesOneFullQuote(t *testing.T) {
	client := &mockClient{}
	oracle := &mockOracle{
		price:      domain.NewGasPrice(big.NewInt(65_000_000)),
		quoteLimit: 120_000,
	}
	svc := NewBlockchainService(client, oracle)
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")

	_, err := svc.SubmitAndWait(context.Background(), nopProvider{}, domain.TxSkeleton{To: &to})
	if err != nil {
		t.Fatalf("SubmitAndWait: %v", err)
	}

	if oracle.quoteCalls != 1 || oracle.priceCalls != 0 || oracle.estimateCalls != 0 {
		t.Errorf("oracle calls = quote %d, price %d, estimate %d; want 1, 0, 0",
			oracle.quoteCalls, oracle.priceCalls, oracle.estimateCalls)
	}
	sent := client.submitted[0]
	if sent.GasLimit != 120_000 {
		t.Errorf("GasLimit = %d, want 120000", sent.GasLimit)
	}
	if sent.GasPrice == nil || sent.GasPrice.Cmp(big.NewInt(65_000_000)) != 0 {
		t.Errorf("GasPrice = %v, want 65000000", sent.GasPrice)
	}
}

func TestSubmitAndWait_FillsOnlyMissingGasFields(t *testing.T) {
	tests := []struct {
		name          string
		tx            domain.TxSkeleton
		wantPrice     int64
		wantLimit     uint64
		wantEstimates int
		wantPrices    int
	}{
		{
			name:       "limit set, price filled",
			tx:         domain.TxSkeleton{GasLimit: 21_000},
			wantPrice:  65_000_000,
			wantLimit:  21_000,
			wantPrices: 1,
		},
		{
			name:          "price set, limit estimated",
			tx:            domain.TxSkeleton{GasPrice: big.NewInt(99)},
			wantPrice:     99,
			wantLimit:     80_000,
			wantEstimates: 1,
		},
		{
			name:      "both set, oracle untouched",
			tx:        domain.TxSkeleton{GasPrice: big.NewInt(99), GasLimit: 21_000},
			wantPrice: 99,
			wantLimit: 21_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &mockClient{}
			oracle := &mockOracle{
				price: domain.NewGasPrice(big.NewInt(65_000_000)),
				limit: 80_000,
			}
			svc := NewBlockchainService(client, oracle)

			if _, err := svc.SubmitAndWait(context.Background(), nopProvider{}, tt.tx); err != nil {
				t.Fatalf("SubmitAndWait: %v", err)
			}

			if oracle.quoteCalls != 0 {
				t.Errorf("quoteCalls = %d, want 0", oracle.quoteCalls)
			}
			if oracle.priceCalls != tt.wantPrices || oracle.estimateCalls != tt.wantEstimates {
				t.Errorf("oracle calls = price %d, estimate %d; want %d, %d",
					oracle.priceCalls, oracle.estimateCalls, tt.wantPrices, tt.wantEstimates)
			}
			sent := client.submitted[0]
			if sent.GasPrice.Cmp(big.NewInt(tt.wantPrice)) != 0 {
				t.Errorf("GasPrice = %v, want %d", sent.GasPrice, tt.wantPrice)
			}
			if sent.GasLimit != tt.wantLimit {
				t.Errorf("GasLimit = %d, want %d", sent.GasLimit, tt.wantLimit)
			}
		})
	}
}
