package app

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crowdly/leasing-gateway/business/leasing/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/asset"
	"github.com/crowdly/leasing-gateway/internal/logger"
	"github.com/crowdly/leasing-gateway/internal/ratelimit"
)

const (
	tracerName = "github.com/crowdly/leasing-gateway/business/leasing/app"
	meterName  = "github.com/crowdly/leasing-gateway/business/leasing/app"
)

// CreateLeaseInput carries the borrower's form values for a new
// funding request. Money fields arrive as whole-token decimal strings;
// durations arrive already normalized to seconds.
type CreateLeaseInput struct {
	Borrower             common.Address
	TokenName            string
	TokenSymbol          string
	Amount               string // whole-token decimal
	DurationSeconds      int64
	FundingPeriodSeconds int64
	TokenPrice           string // whole-token decimal
}

// serviceMetrics holds OTEL metric instruments.
type serviceMetrics struct {
	leasesCreated  metric.Int64Counter
	leasesOrphaned metric.Int64Counter
	fundings       metric.Int64Counter
	scans          metric.Int64Counter
	eventsApplied  metric.Int64Counter
}

// LeasingService orchestrates the multi-step leasing workflows:
// creating a contract instance plus its funding request, scanning the
// factory for contracts open for investment, and funding a specific
// instance. It also owns the ActiveLeaseSet derived from state-change
// events.
type LeasingService struct {
	factory     FactoryContract
	bind        InstanceBinder
	chain       ChainGateway
	session     SessionGate
	subscriber  LogSubscriber
	native      *asset.Asset
	scanLimiter *ratelimit.Limiter
	logger      logger.LoggerInterface

	active *domain.ActiveLeaseSet

	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewLeasingService creates the workflow service. scanRatePerSec paces
// the per-instance RPC reads of the factory scan.
func NewLeasingService(
	factory FactoryContract,
	bind InstanceBinder,
	chain ChainGateway,
	session SessionGate,
	subscriber LogSubscriber,
	native *asset.Asset,
	scanRatePerSec float64,
	log logger.LoggerInterface,
) (*LeasingService, error) {
	s := &LeasingService{
		factory:     factory,
		bind:        bind,
		chain:       chain,
		session:     session,
		subscriber:  subscriber,
		native:      native,
		scanLimiter: ratelimit.NewWithBurst(scanRatePerSec, 1),
		logger:      log,
		active:      domain.NewActiveLeaseSet(),
		tracer:      otel.Tracer(tracerName),
	}

	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return s, nil
}

// initMetrics initializes OTEL metric instruments.
func (s *LeasingService) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.leasesCreated, err = meter.Int64Counter(
		"leases_created_total",
		metric.WithDescription("Total leasing contracts created with a funding request"),
		metric.WithUnit("{lease}"),
	)
	if err != nil {
		return err
	}

	s.metrics.leasesOrphaned, err = meter.Int64Counter(
		"leases_orphaned_total",
		metric.WithDescription("Total contracts created whose follow-up request failed"),
		metric.WithUnit("{lease}"),
	)
	if err != nil {
		return err
	}

	s.metrics.fundings, err = meter.Int64Counter(
		"lease_fundings_total",
		metric.WithDescription("Total investment transactions submitted"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.scans, err = meter.Int64Counter(
		"lease_scans_total",
		metric.WithDescription("Total active-contract factory scans"),
		metric.WithUnit("{scan}"),
	)
	if err != nil {
		return err
	}

	s.metrics.eventsApplied, err = meter.Int64Counter(
		"lease_state_events_total",
		metric.WithDescription("Total state-change events applied to the active set"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// ActiveLeases returns the lease IDs currently tracked as active.
func (s *LeasingService) ActiveLeases() []string {
	return s.active.IDs()
}

// CreateLeasingContractAndRequest deploys a new leasing contract via the
// factory, extracts its address from the NewLeasingContract receipt log,
// and immediately initializes the funding request on the new instance.
//
// The first leg and the second are separate transactions: if the second
// fails, the deployed contract exists on-chain without a request. That
// state is reported as an orphaned-contract error and never retried
// here, because a blind retry could double-create the request when the
// first attempt actually landed after a receipt timeout.
func (s *LeasingService) CreateLeasingContractAndRequest(ctx context.Context, in CreateLeaseInput) (*domain.LeaseHandle, error) {
	ctx, span := s.tracer.Start(ctx, "leasing.create",
		trace.WithAttributes(attribute.String("borrower", in.Borrower.Hex())),
	)
	defer span.End()

	// Validation happens before any session or network access: invalid
	// input must not cost a single RPC round trip.
	req, err := s.validateCreateInput(in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation failed")
		return nil, err
	}

	provider, err := s.session.ActiveProvider(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	createTx, err := s.factory.BuildCreate(in.Borrower, in.TokenName, in.TokenSymbol)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to encode factory create call"))
	}

	receipt, err := s.chain.SubmitAndWait(ctx, provider, createTx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create tx failed")
		return nil, err
	}

	ev, ok := s.factory.CreatedEventFromReceipt(receipt)
	if !ok {
		// The deployed address must come from the event and nowhere
		// else: the factory may deploy through internal calls, so the
		// deterministic deployment address would be wrong.
		err := apperror.New(apperror.CodeMissingEvent,
			apperror.WithContext(fmt.Sprintf("no NewLeasingContract log in receipt %s",
				receipt.TxHash.Hex())))
		span.RecordError(err)
		span.SetStatus(codes.Error, "missing creation event")
		return nil, err
	}

	span.SetAttributes(attribute.String("instance", ev.ContractAddress.Hex()))
	s.logger.Info(ctx, "leasing contract deployed",
		"instance", ev.ContractAddress.Hex(), "borrower", in.Borrower.Hex())

	instance, err := s.bind(ev.ContractAddress)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	reqTx, err := instance.BuildCreateRequest(in.Borrower, req)
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to encode createLeasingRequest call"))
	}

	reqReceipt, err := s.chain.SubmitAndWait(ctx, provider, reqTx)
	if err != nil {
		s.metrics.leasesOrphaned.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request tx failed after deploy")
		return nil, apperror.New(apperror.CodeOrphanedContract,
			apperror.WithCause(err),
			apperror.WithContext(ev.ContractAddress.Hex()))
	}

	s.metrics.leasesCreated.Add(ctx, 1)
	span.SetStatus(codes.Ok, "created")
	s.logger.Info(ctx, "leasing request initialized",
		"instance", ev.ContractAddress.Hex(),
		"amount", req.Amount.String())

	return &domain.LeaseHandle{
		Address:   ev.ContractAddress,
		Borrower:  in.Borrower,
		CreateTx:  receipt.TxHash,
		RequestTx: reqReceipt.TxHash,
	}, nil
}

// validateCreateInput checks the six business inputs and converts money
// fields to smallest units.
func (s *LeasingService) validateCreateInput(in CreateLeaseInput) (domain.LeasingRequest, error) {
	var req domain.LeasingRequest

	if in.Borrower == (common.Address{}) {
		return req, validationErr("borrower address is required")
	}
	if in.TokenName == "" {
		return req, validationErr("token name is required")
	}
	if in.TokenSymbol == "" {
		return req, validationErr("token symbol is required")
	}
	if in.DurationSeconds <= 0 {
		return req, validationErr("duration must be positive")
	}
	if in.FundingPeriodSeconds <= 0 {
		return req, validationErr("funding period must be positive")
	}

	amount, err := asset.ParseString(s.native, in.Amount)
	if err != nil {
		return req, validationErr(fmt.Sprintf("invalid amount %q: %v", in.Amount, err))
	}
	if !amount.IsPositive() {
		return req, validationErr("amount must be positive")
	}

	price, err := asset.ParseString(s.native, in.TokenPrice)
	if err != nil {
		return req, validationErr(fmt.Sprintf("invalid token price %q: %v", in.TokenPrice, err))
	}
	if !price.IsPositive() {
		return req, validationErr("token price must be positive")
	}

	req.Amount = amount.Raw()
	req.TokenPrice = price.Raw()
	req.Duration = big.NewInt(in.DurationSeconds)
	req.FundingPeriod = big.NewInt(in.FundingPeriodSeconds)
	return req, nil
}

// ListActiveLeasingContracts scans every instance known to the factory
// and keeps those whose funding request is Active, preserving index
// order. It is a linear rescan with one or two RPC reads per instance,
// paced by the scan limiter.
//
// TODO: drive this off the NewLeasingContract event log range instead
// of a full rescan once the factory grows past a few hundred instances.
func (s *LeasingService) ListActiveLeasingContracts(ctx context.Context) ([]domain.LeaseListing, error) {
	ctx, span := s.tracer.Start(ctx, "leasing.list_active")
	defer span.End()

	if _, err := s.session.ActiveProvider(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.scans.Add(ctx, 1)

	total, err := s.factory.TotalContracts(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "count fetch failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("total", total.Int64()))

	listings := make([]domain.LeaseListing, 0)
	one := big.NewInt(1)

	for index := new(big.Int); index.Cmp(total) < 0; index.Add(index, one) {
		if err := s.scanLimiter.Wait(ctx); err != nil {
			span.RecordError(err)
			return nil, err
		}

		addr, err := s.factory.ContractByIndex(ctx, new(big.Int).Set(index))
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		instance, err := s.bind(addr)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		status, err := instance.Status(ctx, domain.DefaultLeaseID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if !status.IsActive() {
			continue
		}

		remaining, err := instance.RemainingAmount(ctx, domain.DefaultLeaseID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		listings = append(listings, domain.LeaseListing{
			Address:         addr,
			RemainingAmount: asset.NewAmount(s.native, remaining).ToDecimal(),
		})
	}

	span.SetAttributes(attribute.Int("active", len(listings)))
	span.SetStatus(codes.Ok, "scanned")
	return listings, nil
}

// LeasingContractAddress resolves a lease ID to its instance address
// through the factory registry.
func (s *LeasingService) LeasingContractAddress(ctx context.Context, leaseID *big.Int) (common.Address, error) {
	ctx, span := s.tracer.Start(ctx, "leasing.lookup",
		trace.WithAttributes(attribute.String("lease_id", leaseID.String())))
	defer span.End()

	if _, err := s.session.ActiveProvider(ctx); err != nil {
		span.RecordError(err)
		return common.Address{}, err
	}

	addr, err := s.factory.LeasingContract(ctx, leaseID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return common.Address{}, err
	}

	span.SetAttributes(attribute.String("address", addr.Hex()))
	span.SetStatus(codes.Ok, "resolved")
	return addr, nil
}

// FundLeasingContract submits an investment against an instance. The
// investor's balance is checked before any gas work: the chain would
// reject an underfunded transfer anyway, but failing early skips the
// estimation round trips.
func (s *LeasingService) FundLeasingContract(ctx context.Context, instanceAddr, investor common.Address, amountDecimal string) (*types.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "leasing.fund",
		trace.WithAttributes(
			attribute.String("instance", instanceAddr.Hex()),
			attribute.String("investor", investor.Hex()),
		),
	)
	defer span.End()

	amount, err := asset.ParseString(s.native, amountDecimal)
	if err != nil {
		span.RecordError(err)
		return nil, validationErr(fmt.Sprintf("invalid amount %q: %v", amountDecimal, err))
	}
	if !amount.IsPositive() {
		err := validationErr("amount must be positive")
		span.RecordError(err)
		return nil, err
	}

	provider, err := s.session.ActiveProvider(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	balance, err := s.chain.Balance(ctx, investor)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if balance.Cmp(amount.Raw()) < 0 {
		err := apperror.New(apperror.CodeInsufficientFunds,
			apperror.WithContext(fmt.Sprintf("balance %s below requested %s",
				asset.NewAmount(s.native, balance), amount)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "insufficient funds")
		return nil, err
	}

	instance, err := s.bind(instanceAddr)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	tx, err := instance.BuildInvest(investor, domain.DefaultLeaseID, amount.Raw())
	if err != nil {
		span.RecordError(err)
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to encode investInLeasing call"))
	}

	price, err := s.chain.GasPrice(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	tx.GasPrice = price.Wei

	// Best-effort hint only: the price can move between estimate and send.
	limit, err := s.chain.EstimateGas(ctx, tx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	tx.GasLimit = limit

	receipt, err := s.chain.SubmitAndWait(ctx, provider, tx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invest tx failed")
		return nil, err
	}

	s.metrics.fundings.Add(ctx, 1)
	span.SetStatus(codes.Ok, "funded")
	s.logger.Info(ctx, "investment submitted",
		"instance", instanceAddr.Hex(),
		"amount", amount.String(),
		"tx", receipt.TxHash.Hex())

	return receipt, nil
}

// Subscription is a cancellable handle on a state-change event stream.
type Subscription struct {
	errs   chan error
	done   chan struct{}
	cancel func()
	once   sync.Once
}

// Err delivers transport errors. The stream keeps running after an
// error; the channel exists so callers can observe gaps.
func (s *Subscription) Err() <-chan error {
	return s.errs
}

// Unsubscribe stops the stream. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}

// WatchLeasingRequestState subscribes to an instance's state-change
// events. Every decoded event first updates the ActiveLeaseSet, then is
// handed to the callback. Transport errors are surfaced on the
// subscription's error channel and trigger a resubscribe; they never
// terminate the stream.
func (s *LeasingService) WatchLeasingRequestState(ctx context.Context, instanceAddr common.Address, callback func(domain.StateChangedEvent)) (*Subscription, error) {
	if _, err := s.session.ActiveProvider(ctx); err != nil {
		return nil, err
	}

	instance, err := s.bind(instanceAddr)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	handle := &Subscription{
		errs:   make(chan error, 8),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	logs := make(chan types.Log, 16)
	sub, err := s.subscriber.SubscribeLogs(streamCtx, instance.StateChangedQuery(), logs)
	if err != nil {
		cancel()
		return nil, err
	}

	go s.runWatch(streamCtx, instance, sub, logs, handle, callback)

	return handle, nil
}

// runWatch pumps the log stream, resubscribing after transport errors.
func (s *LeasingService) runWatch(
	ctx context.Context,
	instance InstanceContract,
	sub interface {
		Err() <-chan error
		Unsubscribe()
	},
	logs chan types.Log,
	handle *Subscription,
	callback func(domain.StateChangedEvent),
) {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case <-handle.done:
			return
		case log := <-logs:
			ev, ok := instance.DecodeStateChanged(log)
			if !ok {
				continue
			}

			s.active.Apply(ev)
			s.metrics.eventsApplied.Add(ctx, 1)
			s.logger.Debug(ctx, "lease state changed",
				"instance", instance.Address().Hex(),
				"lease_id", ev.LeaseID.String(),
				"state", ev.NewState.String())

			callback(ev)
		case err := <-sub.Err():
			if err == nil {
				continue
			}

			select {
			case handle.errs <- err:
			default:
			}
			s.logger.Warn(ctx, "state subscription dropped, resubscribing", "error", err)

			sub.Unsubscribe()
			next, rerr := s.resubscribe(ctx, instance, logs, handle)
			if rerr != nil {
				return
			}
			sub = next
		}
	}
}

// resubscribe retries the log subscription with a fixed backoff until
// it succeeds or the watcher is cancelled.
func (s *LeasingService) resubscribe(
	ctx context.Context,
	instance InstanceContract,
	logs chan types.Log,
	handle *Subscription,
) (interface {
	Err() <-chan error
	Unsubscribe()
}, error) {
	const backoff = 5 * time.Second

	for {
		sub, err := s.subscriber.SubscribeLogs(ctx, instance.StateChangedQuery(), logs)
		if err == nil {
			return sub, nil
		}

		select {
		case handle.errs <- err:
		default:
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-handle.done:
			return nil, context.Canceled
		case <-time.After(backoff):
		}
	}
}

func validationErr(msg string) error {
	return apperror.New(apperror.CodeValidationError, apperror.WithContext(msg))
}
