package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	leasingapp "github.com/crowdly/leasing-gateway/business/leasing/app"
	leasingdomain "github.com/crowdly/leasing-gateway/business/leasing/domain"
	walletdomain "github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/asset"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

type mockLeasing struct {
	lastCreate leasingapp.CreateLeaseInput
	createErr  error
	handle     *leasingdomain.LeaseHandle
	listings   []leasingdomain.LeaseListing
	listErr    error
	fundErr    error
	byLeaseID  map[int64]common.Address
	activeIDs  []string
}

func (m *mockLeasing) CreateLeasingContractAndRequest(_ context.Context, in leasingapp.CreateLeaseInput) (*leasingdomain.LeaseHandle, error) {
	m.lastCreate = in
	if m.createErr != nil {
		return nil, m.createErr
	}
	return m.handle, nil
}

func (m *mockLeasing) ListActiveLeasingContracts(context.Context) ([]leasingdomain.LeaseListing, error) {
	return m.listings, m.listErr
}

func (m *mockLeasing) FundLeasingContract(_ context.Context, _, _ common.Address, _ string) (*types.Receipt, error) {
	if m.fundErr != nil {
		return nil, m.fundErr
	}
	return &types.Receipt{
		TxHash:      common.HexToHash("0xaa"),
		BlockNumber: big.NewInt(7),
		GasUsed:     21000,
	}, nil
}

func (m *mockLeasing) LeasingContractAddress(_ context.Context, leaseID *big.Int) (common.Address, error) {
	addr, ok := m.byLeaseID[leaseID.Int64()]
	if !ok {
		return common.Address{}, apperror.New(apperror.CodeNotFound)
	}
	return addr, nil
}

func (m *mockLeasing) ActiveLeases() []string { return m.activeIDs }

type mockSession struct {
	state    walletdomain.State
	session  walletdomain.Session
	hasSess  bool
	loginErr error
	provider chaindomain.SigningProvider
}

func (m *mockSession) ActiveProvider(context.Context) (chaindomain.SigningProvider, error) {
	if m.state != walletdomain.StateLoggedIn {
		return nil, apperror.New(apperror.CodeNotAuthenticated)
	}
	return m.provider, nil
}

func (m *mockSession) Login(context.Context) error {
	if m.loginErr != nil {
		return m.loginErr
	}
	m.state = walletdomain.StateLoggedIn
	m.hasSess = true
	return nil
}

func (m *mockSession) Logout(context.Context) error {
	m.state = walletdomain.StateLoggedOut
	m.hasSess = false
	return nil
}

func (m *mockSession) State() walletdomain.State { return m.state }

func (m *mockSession) CurrentSession() (walletdomain.Session, bool) {
	return m.session, m.hasSess
}

type stubProvider struct {
	addrs []common.Address
}

func (p *stubProvider) Accounts(context.Context) ([]common.Address, error) {
	return p.addrs, nil
}

func (p *stubProvider) SignTransaction(_ context.Context, tx *types.Transaction, _ *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type mockChain struct {
	balance *big.Int
	balErr  error
}

func (m *mockChain) Accounts(ctx context.Context, provider chaindomain.SigningProvider) ([]chaindomain.Account, error) {
	addrs, err := provider.Accounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]chaindomain.Account, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, chaindomain.Account{Address: a, Balance: m.balance})
	}
	return out, nil
}

func (m *mockChain) Balance(context.Context, common.Address) (*big.Int, error) {
	return m.balance, m.balErr
}

func (m *mockChain) GasPrice(context.Context) (*chaindomain.GasPrice, error) {
	return chaindomain.NewGasPrice(big.NewInt(65_000_000)), nil
}

func (m *mockChain) ConnectionState() chaindomain.ConnectionState {
	return chaindomain.StateConnected
}

func newTestHandler(l *mockLeasing, s *mockSession, c *mockChain) *Handler {
	if l == nil {
		l = &mockLeasing{}
	}
	if s == nil {
		s = &mockSession{state: walletdomain.StateLoggedIn}
	}
	if c == nil {
		c = &mockChain{balance: big.NewInt(0)}
	}
	log := logger.New(nil, logger.LevelError, "test", nil)
	return NewHandler(l, s, c, asset.TRBTC, log)
}

func doRequest(h *Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, req)
	return rec
}

func TestCreateLease_ConvertsDaysToSeconds(t *testing.T) {
	leasing := &mockLeasing{
		handle: &leasingdomain.LeaseHandle{
			Address:   common.HexToAddress("0x1111111111111111111111111111111111111111"),
			Borrower:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
			CreateTx:  common.HexToHash("0x01"),
			RequestTx: common.HexToHash("0x02"),
		},
	}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/leases", map[string]interface{}{
		"borrower":            "0x2222222222222222222222222222222222222222",
		"token_name":          "Harvest Lease",
		"token_symbol":        "HRV",
		"amount":              "1.5",
		"duration_days":       30,
		"funding_period_days": 7,
		"token_price":         "0.001",
	})

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := leasing.lastCreate.DurationSeconds; got != 30*86400 {
		t.Errorf("DurationSeconds = %d, want %d", got, 30*86400)
	}
	if got := leasing.lastCreate.FundingPeriodSeconds; got != 7*86400 {
		t.Errorf("FundingPeriodSeconds = %d, want %d", got, 7*86400)
	}

	var resp createLeaseResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Address != "0x1111111111111111111111111111111111111111" {
		t.Errorf("address = %s", resp.Address)
	}
}

func TestCreateLease_BadBorrowerRejectedBeforeService(t *testing.T) {
	leasing := &mockLeasing{}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/leases", map[string]interface{}{
		"borrower": "not-an-address",
		"amount":   "1",
	})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if leasing.lastCreate.Amount != "" {
		t.Error("service was called despite invalid borrower")
	}
}

func TestCreateLease_AppErrorStatusPropagates(t *testing.T) {
	leasing := &mockLeasing{
		createErr: apperror.New(apperror.CodeNotAuthenticated),
	}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodPost, "/api/v1/leases", map[string]interface{}{
		"borrower":            "0x2222222222222222222222222222222222222222",
		"amount":              "1",
		"duration_days":       1,
		"funding_period_days": 1,
		"token_price":         "1",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401; body %s", rec.Code, rec.Body.String())
	}
	var body map[string]map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if code := body["error"]["code"]; code != string(apperror.CodeNotAuthenticated) {
		t.Errorf("error code = %v", code)
	}
}

func TestListActiveLeases(t *testing.T) {
	leasing := &mockLeasing{
		listings: []leasingdomain.LeaseListing{
			{
				Address:         common.HexToAddress("0x3333333333333333333333333333333333333333"),
				RemainingAmount: decimal.RequireFromString("0.5"),
			},
		},
	}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/leases/active", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Leases []leaseListingResponse `json:"leases"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Leases) != 1 || body.Leases[0].RemainingAmount != "0.5" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestGetLeaseByID_ResolvesAddress(t *testing.T) {
	addr := common.HexToAddress("0x4444444444444444444444444444444444444444")
	leasing := &mockLeasing{byLeaseID: map[int64]common.Address{7: addr}}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/leases/by-id/7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["address"] != addr.Hex() {
		t.Errorf("address = %s, want %s", body["address"], addr.Hex())
	}
}

func TestGetLeaseByID_UnknownIsNotFound(t *testing.T) {
	leasing := &mockLeasing{byLeaseID: map[int64]common.Address{}}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/leases/by-id/99", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInvest_SubmitsAndReturnsReceipt(t *testing.T) {
	h := newTestHandler(&mockLeasing{}, nil, nil)

	rec := doRequest(h, http.MethodPost,
		"/api/v1/leases/0x3333333333333333333333333333333333333333/investments",
		map[string]string{
			"investor": "0x2222222222222222222222222222222222222222",
			"amount":   "0.25",
		})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["tx_hash"] == "" {
		t.Error("missing tx_hash")
	}
}

func TestInvest_InsufficientFundsMapsToPaymentRequired(t *testing.T) {
	leasing := &mockLeasing{
		fundErr: apperror.New(apperror.CodeInsufficientFunds),
	}
	h := newTestHandler(leasing, nil, nil)

	rec := doRequest(h, http.MethodPost,
		"/api/v1/leases/0x3333333333333333333333333333333333333333/investments",
		map[string]string{
			"investor": "0x2222222222222222222222222222222222222222",
			"amount":   "100",
		})

	appErr := apperror.New(apperror.CodeInsufficientFunds)
	if rec.Code != appErr.StatusCode {
		t.Fatalf("status = %d, want %d", rec.Code, appErr.StatusCode)
	}
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	session := &mockSession{state: walletdomain.StateLoggedOut}
	h := newTestHandler(nil, session, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/session", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get session status = %d", rec.Code)
	}

	rec = doRequest(h, http.MethodPost, "/api/v1/session/login", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d", rec.Code)
	}
	if session.state != walletdomain.StateLoggedIn {
		t.Errorf("state after login = %s", session.state)
	}

	rec = doRequest(h, http.MethodPost, "/api/v1/session/logout", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["state"] != string(walletdomain.StateLoggedOut) {
		t.Errorf("state after logout = %s", body["state"])
	}
}

func TestListAccounts_RequiresSession(t *testing.T) {
	session := &mockSession{state: walletdomain.StateLoggedOut}
	h := newTestHandler(nil, session, nil)

	rec := doRequest(h, http.MethodGet, "/api/v1/accounts", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestListAccounts_ReturnsProviderAccounts(t *testing.T) {
	addr := common.HexToAddress("0x2222222222222222222222222222222222222222")
	session := &mockSession{
		state:    walletdomain.StateLoggedIn,
		provider: &stubProvider{addrs: []common.Address{addr}},
	}
	chain := &mockChain{balance: big.NewInt(2e18)}
	h := newTestHandler(nil, session, chain)

	rec := doRequest(h, http.MethodGet, "/api/v1/accounts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Accounts []map[string]string `json:"accounts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Accounts) != 1 || body.Accounts[0]["address"] != addr.Hex() {
		t.Fatalf("unexpected accounts: %s", rec.Body.String())
	}
	if body.Accounts[0]["balance"] != "2" {
		t.Errorf("balance = %s, want 2", body.Accounts[0]["balance"])
	}
}

func TestGetBalance_FormatsNativeUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	chain := &mockChain{balance: wei}
	h := newTestHandler(nil, nil, chain)

	rec := doRequest(h, http.MethodGet,
		"/api/v1/accounts/0x2222222222222222222222222222222222222222/balance", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["balance"] != "1.5" {
		t.Errorf("balance = %s, want 1.5", body["balance"])
	}
	if body["wei"] != "1500000000000000000" {
		t.Errorf("wei = %s", body["wei"])
	}
}

func TestGetBalance_RejectsMalformedAddress(t *testing.T) {
	h := newTestHandler(nil, nil, nil)
	rec := doRequest(h, http.MethodGet, "/api/v1/accounts/zzz/balance", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealthReportsChainState(t *testing.T) {
	h := newTestHandler(nil, nil, nil)
	rec := doRequest(h, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["chain"] != string(chaindomain.StateConnected) {
		t.Errorf("chain = %s", body["chain"])
	}
}
