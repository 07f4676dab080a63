package app

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

var sessionAddr = common.HexToAddress("0xdddddddddddddddddddddddddddddddddddddddd")

type stubSigner struct{}

func (s *stubSigner) Accounts(ctx context.Context) ([]common.Address, error) {
	return []common.Address{sessionAddr}, nil
}

func (s *stubSigner) SignTransaction(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	return tx, nil
}

type mockCustodian struct {
	restoreGrant *domain.Grant
	restoreErr   error
	loginGrant   *domain.Grant
	loginErr     error
	logoutErr    error

	logoutCalls int
}

func (m *mockCustodian) Restore(ctx context.Context) (*domain.Grant, error) {
	return m.restoreGrant, m.restoreErr
}

func (m *mockCustodian) Login(ctx context.Context) (*domain.Grant, error) {
	return m.loginGrant, m.loginErr
}

func (m *mockCustodian) Logout(ctx context.Context) error {
	m.logoutCalls++
	return m.logoutErr
}

func grant(subject string) *domain.Grant {
	return &domain.Grant{
		SessionKey: "ab",
		Address:    sessionAddr,
		Subject:    subject,
	}
}

func newTestSession(t *testing.T, c *mockCustodian) *SessionService {
	t.Helper()

	factory := func(domain.Grant) (chaindomain.SigningProvider, error) {
		return &stubSigner{}, nil
	}

	svc, err := NewSessionService(c, factory, logger.New(nil, logger.LevelError, "test", nil))
	if err != nil {
		t.Fatalf("NewSessionService: %v", err)
	}
	return svc
}

func TestInitialize_NoPriorSessionLandsLoggedOut(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{})

	if got := svc.State(); got != domain.StateUninitialized {
		t.Fatalf("initial state = %s, want %s", got, domain.StateUninitialized)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}
}

func TestInitialize_PriorSessionLandsLoggedIn(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{restoreGrant: grant("user-1")})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if got := svc.State(); got != domain.StateLoggedIn {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedIn)
	}

	session, ok := svc.CurrentSession()
	if !ok || session.Address != sessionAddr {
		t.Fatalf("CurrentSession = %+v/%v, want address %s", session, ok, sessionAddr)
	}
}

func TestInitialize_RestoreFailureDegradesToLoggedOut(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{restoreErr: errors.New("custodian down")})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize should not propagate restore failure, got %v", err)
	}
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}
}

func TestInitialize_TwiceIsIllegal(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	err := svc.Initialize(context.Background())
	if apperror.GetCode(err) != apperror.CodeInvalidState {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeInvalidState)
	}
}

func TestLogin_FromLoggedOut(t *testing.T) {
	custodian := &mockCustodian{loginGrant: grant("user-1")}
	svc := newTestSession(t, custodian)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := svc.State(); got != domain.StateLoggedIn {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedIn)
	}
}

func TestLogin_FailureStaysLoggedOut(t *testing.T) {
	custodian := &mockCustodian{loginErr: apperror.New(apperror.CodeLoginFailed)}
	svc := newTestSession(t, custodian)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := svc.Login(context.Background())
	if apperror.GetCode(err) != apperror.CodeLoginFailed {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeLoginFailed)
	}
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}
}

func TestLogin_BeforeInitializeIsIllegal(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{loginGrant: grant("user-1")})

	err := svc.Login(context.Background())
	if apperror.GetCode(err) != apperror.CodeInvalidState {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeInvalidState)
	}
}

func TestLogout_ClearsProvider(t *testing.T) {
	custodian := &mockCustodian{restoreGrant: grant("user-1")}
	svc := newTestSession(t, custodian)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := svc.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if custodian.logoutCalls != 1 {
		t.Fatalf("logout calls = %d, want 1", custodian.logoutCalls)
	}
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}

	_, err := svc.ActiveProvider(context.Background())
	if apperror.GetCode(err) != apperror.CodeNotAuthenticated {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeNotAuthenticated)
	}
}

func TestLogout_WhenLoggedOutIsIllegal(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := svc.Logout(context.Background())
	if apperror.GetCode(err) != apperror.CodeInvalidState {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeInvalidState)
	}
}

func TestLogout_TeardownFailureKeepsSession(t *testing.T) {
	custodian := &mockCustodian{
		restoreGrant: grant("user-1"),
		logoutErr:    apperror.New(apperror.CodeCustodianError),
	}
	svc := newTestSession(t, custodian)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	err := svc.Logout(context.Background())
	if apperror.GetCode(err) != apperror.CodeCustodianError {
		t.Fatalf("error code = %v, want %v", apperror.GetCode(err), apperror.CodeCustodianError)
	}
	// Teardown was not confirmed, so the session survives.
	if got := svc.State(); got != domain.StateLoggedIn {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedIn)
	}
}

func TestActiveProvider_GatedByState(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{loginGrant: grant("user-1")})

	// Uninitialized
	if _, err := svc.ActiveProvider(context.Background()); apperror.GetCode(err) != apperror.CodeNotAuthenticated {
		t.Fatalf("uninitialized: error code = %v, want %v", apperror.GetCode(err), apperror.CodeNotAuthenticated)
	}

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// LoggedOut
	if _, err := svc.ActiveProvider(context.Background()); apperror.GetCode(err) != apperror.CodeNotAuthenticated {
		t.Fatalf("logged out: error code = %v, want %v", apperror.GetCode(err), apperror.CodeNotAuthenticated)
	}

	if err := svc.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}

	provider, err := svc.ActiveProvider(context.Background())
	if err != nil {
		t.Fatalf("ActiveProvider: %v", err)
	}
	accounts, err := provider.Accounts(context.Background())
	if err != nil || len(accounts) != 1 || accounts[0] != sessionAddr {
		t.Fatalf("Accounts = %v/%v, want [%s]", accounts, err, sessionAddr)
	}
}

func TestHandleRevocation(t *testing.T) {
	svc := newTestSession(t, &mockCustodian{restoreGrant: grant("user-1")})

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	// Revocation for another subject is ignored.
	svc.HandleRevocation("user-2")
	if got := svc.State(); got != domain.StateLoggedIn {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedIn)
	}

	// Revocation for the active subject drops the session.
	svc.HandleRevocation("user-1")
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}

	// Revocation while logged out is a no-op.
	svc.HandleRevocation("user-1")
	if got := svc.State(); got != domain.StateLoggedOut {
		t.Fatalf("state = %s, want %s", got, domain.StateLoggedOut)
	}
}

func TestStateTransitionTable(t *testing.T) {
	tests := []struct {
		from domain.State
		to   domain.State
		ok   bool
	}{
		{domain.StateUninitialized, domain.StateInitializing, true},
		{domain.StateUninitialized, domain.StateLoggedIn, false},
		{domain.StateUninitialized, domain.StateLoggedOut, false},
		{domain.StateInitializing, domain.StateLoggedIn, true},
		{domain.StateInitializing, domain.StateLoggedOut, true},
		{domain.StateInitializing, domain.StateUninitialized, false},
		{domain.StateLoggedOut, domain.StateLoggedIn, true},
		{domain.StateLoggedOut, domain.StateInitializing, false},
		{domain.StateLoggedIn, domain.StateLoggedOut, true},
		{domain.StateLoggedIn, domain.StateInitializing, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.ok {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", tt.from, tt.to, got, tt.ok)
		}
	}
}
