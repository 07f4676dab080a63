// Package app contains the session service for the wallet context.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

const (
	tracerName = "github.com/crowdly/leasing-gateway/business/wallet/app"
	meterName  = "github.com/crowdly/leasing-gateway/business/wallet/app"
)

// Custodian is the session backend port.
type Custodian interface {
	// Restore returns a still-valid prior session, or (nil, nil) when
	// there is none.
	Restore(ctx context.Context) (*domain.Grant, error)
	Login(ctx context.Context) (*domain.Grant, error)
	Logout(ctx context.Context) error
}

// SignerFactory turns a session grant into a signing provider.
type SignerFactory func(grant domain.Grant) (chaindomain.SigningProvider, error)

// serviceMetrics holds OTEL metric instruments.
type serviceMetrics struct {
	logins      metric.Int64Counter
	logouts     metric.Int64Counter
	revocations metric.Int64Counter
}

// SessionService owns the session state machine:
// Uninitialized -> Initializing -> {LoggedOut, LoggedIn}. The signing
// provider it hands out is only valid while logged in.
type SessionService struct {
	custodian Custodian
	newSigner SignerFactory
	logger    logger.LoggerInterface

	mu       sync.RWMutex
	state    domain.State
	session  domain.Session
	provider chaindomain.SigningProvider

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewSessionService creates the session service in the Uninitialized state.
func NewSessionService(custodian Custodian, newSigner SignerFactory, log logger.LoggerInterface) (*SessionService, error) {
	s := &SessionService{
		custodian: custodian,
		newSigner: newSigner,
		logger:    log,
		state:     domain.StateUninitialized,
		tracer:    otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *SessionService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.logins, err = meter.Int64Counter(
		"session_logins_total",
		metric.WithDescription("Total successful logins"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return err
	}

	s.metrics.logouts, err = meter.Int64Counter(
		"session_logouts_total",
		metric.WithDescription("Total logouts"),
		metric.WithUnit("{logout}"),
	)
	if err != nil {
		return err
	}

	s.metrics.revocations, err = meter.Int64Counter(
		"session_revocations_total",
		metric.WithDescription("Total custodian-side revocations applied"),
		metric.WithUnit("{revocation}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// State returns the current session state.
func (s *SessionService) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// CurrentSession returns the established session, if any.
func (s *SessionService) CurrentSession() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session, s.state == domain.StateLoggedIn
}

// Initialize moves the machine out of Uninitialized. If the custodian
// still holds a valid prior session, the machine lands in LoggedIn;
// otherwise in LoggedOut. A restore failure is not fatal — it degrades
// to LoggedOut so the user can log in manually.
func (s *SessionService) Initialize(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.initialize")
	defer span.End()

	if err := s.transition(domain.StateInitializing); err != nil {
		span.RecordError(err)
		return err
	}

	grant, err := s.custodian.Restore(ctx)
	if err != nil {
		s.logger.Warn(ctx, "session restore failed, starting logged out", "error", err)
		span.AddEvent("restore_failed")
		s.mustTransition(domain.StateLoggedOut)
		span.SetStatus(codes.Ok, "logged out")
		return nil
	}

	if grant == nil {
		s.mustTransition(domain.StateLoggedOut)
		span.SetStatus(codes.Ok, "logged out")
		return nil
	}

	if err := s.establish(*grant); err != nil {
		s.logger.Warn(ctx, "restored session unusable, starting logged out", "error", err)
		span.AddEvent("restored_grant_unusable")
		s.mustTransition(domain.StateLoggedOut)
		span.SetStatus(codes.Ok, "logged out")
		return nil
	}

	span.SetAttributes(attribute.String("address", grant.Address.Hex()))
	span.SetStatus(codes.Ok, "restored")
	s.logger.Info(ctx, "prior session restored", "address", grant.Address.Hex())
	return nil
}

// Login opens a session. Only legal from LoggedOut; a failed login
// stays in LoggedOut and reports the error.
func (s *SessionService) Login(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.login")
	defer span.End()

	if state := s.State(); state != domain.StateLoggedOut {
		err := apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cannot log in from state %s", state)))
		span.RecordError(err)
		return err
	}

	grant, err := s.custodian.Login(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login failed")
		return err
	}

	if err := s.establish(*grant); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grant unusable")
		return err
	}

	s.metrics.logins.Add(ctx, 1)
	span.SetAttributes(attribute.String("address", grant.Address.Hex()))
	span.SetStatus(codes.Ok, "logged in")
	s.logger.Info(ctx, "session opened", "address", grant.Address.Hex())
	return nil
}

// Logout tears the session down. Only legal from LoggedIn; once the
// custodian confirms teardown the machine moves to LoggedOut
// unconditionally.
func (s *SessionService) Logout(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "session.logout")
	defer span.End()

	if state := s.State(); state != domain.StateLoggedIn {
		err := apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cannot log out from state %s", state)))
		span.RecordError(err)
		return err
	}

	if err := s.custodian.Logout(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "teardown failed")
		return err
	}

	s.drop()
	s.metrics.logouts.Add(ctx, 1)
	span.SetStatus(codes.Ok, "logged out")
	s.logger.Info(ctx, "session closed")
	return nil
}

// ActiveProvider returns the signing provider of the logged-in session.
// Every workflow operation goes through this gate.
func (s *SessionService) ActiveProvider(ctx context.Context) (chaindomain.SigningProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.state != domain.StateLoggedIn || s.provider == nil {
		return nil, apperror.New(apperror.CodeNotAuthenticated,
			apperror.WithContext(fmt.Sprintf("session state is %s", s.state)))
	}
	return s.provider, nil
}

// HandleRevocation applies a custodian-side revocation. Revocations for
// other subjects and revocations outside LoggedIn are ignored.
func (s *SessionService) HandleRevocation(subject string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLoggedIn {
		return
	}
	if subject != "" && s.session.Subject != "" && subject != s.session.Subject {
		return
	}

	s.state = domain.StateLoggedOut
	s.session = domain.Session{}
	s.provider = nil

	s.metrics.revocations.Add(context.Background(), 1)
	s.logger.Warn(context.Background(), "session dropped after custodian revocation",
		"subject", subject)
}

// establish builds the signer and moves to LoggedIn.
func (s *SessionService) establish(grant domain.Grant) error {
	provider, err := s.newSigner(grant)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanTransition(domain.StateLoggedIn) {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("cannot establish session from state %s", s.state)))
	}

	s.state = domain.StateLoggedIn
	s.provider = provider
	s.session = domain.Session{
		Address:   grant.Address,
		Subject:   grant.Subject,
		ExpiresAt: grant.ExpiresAt,
		StartedAt: time.Now(),
	}
	return nil
}

// drop clears the session and moves to LoggedOut.
func (s *SessionService) drop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = domain.StateLoggedOut
	s.session = domain.Session{}
	s.provider = nil
}

// transition applies a guarded state change.
func (s *SessionService) transition(next domain.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.CanTransition(next) {
		return apperror.New(apperror.CodeInvalidState,
			apperror.WithContext(fmt.Sprintf("illegal transition %s -> %s", s.state, next)))
	}
	s.state = next
	return nil
}

// mustTransition applies a state change that is known to be legal.
func (s *SessionService) mustTransition(next domain.State) {
	if err := s.transition(next); err != nil {
		panic(err)
	}
}
