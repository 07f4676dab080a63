// Package ethereum provides Rootstock/Ethereum blockchain infrastructure adapters.
package ethereum

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/circuitbreaker"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

const (
	tracerName = "github.com/crowdly/leasing-gateway/business/blockchain/infra/ethereum"
	meterName  = "github.com/crowdly/leasing-gateway/business/blockchain/infra/ethereum"
)

// ClientConfig holds configuration for the Ethereum client.
type ClientConfig struct {
	HTTPURL        string        // HTTP endpoint (calls and transactions)
	WSURL          string        // WebSocket endpoint (log subscriptions)
	ChainID        uint64        // Expected chain ID, verified on connect
	ReceiptTimeout time.Duration // How long to wait for a mined receipt
	ReceiptPoll    time.Duration // Receipt polling interval
}

// DefaultClientConfig returns sensible defaults for Rootstock testnet.
func DefaultClientConfig(httpURL, wsURL string) ClientConfig {
	return ClientConfig{
		HTTPURL:        httpURL,
		WSURL:          wsURL,
		ChainID:        31,
		ReceiptTimeout: 90 * time.Second, // ~3 Rootstock blocks
		ReceiptPoll:    3 * time.Second,
	}
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	rpcCalls        metric.Int64Counter
	rpcErrors       metric.Int64Counter
	txsSent         metric.Int64Counter
	txsReverted     metric.Int64Counter
	receiptWaitMs   metric.Float64Histogram
	connectionState metric.Int64Gauge
}

// Client implements the ChainClient port using go-ethereum. The HTTP
// endpoint serves reads and transaction submission; the WebSocket
// endpoint serves log subscriptions only.
type Client struct {
	config ClientConfig
	logger logger.LoggerInterface

	httpClient *ethclient.Client
	wsClient   *ethclient.Client
	clientMu   sync.RWMutex

	chainID *big.Int

	state   domain.ConnectionState
	stateMu sync.RWMutex

	// Circuit breaker on read paths
	readCB *circuitbreaker.CircuitBreaker[[]byte]

	// Observability
	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a new Ethereum client. Call Connect before use.
func NewClient(cfg ClientConfig, log logger.LoggerInterface) (*Client, error) {
	c := &Client{
		config: cfg,
		logger: log,
		state:  domain.StateDisconnected,
		tracer: otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	c.initCircuitBreaker()

	return c, nil
}

// initMetrics initializes OTEL metric instruments.
func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.rpcCalls, err = meter.Int64Counter(
		"chain_rpc_calls_total",
		metric.WithDescription("Total JSON-RPC calls issued"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	c.metrics.rpcErrors, err = meter.Int64Counter(
		"chain_rpc_errors_total",
		metric.WithDescription("Total JSON-RPC call failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.txsSent, err = meter.Int64Counter(
		"chain_txs_sent_total",
		metric.WithDescription("Total transactions broadcast"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	c.metrics.txsReverted, err = meter.Int64Counter(
		"chain_txs_reverted_total",
		metric.WithDescription("Total transactions mined with revert status"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	c.metrics.receiptWaitMs, err = meter.Float64Histogram(
		"chain_receipt_wait_ms",
		metric.WithDescription("Time from broadcast to mined receipt"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.connectionState, err = meter.Int64Gauge(
		"chain_connection_state",
		metric.WithDescription("Chain connection state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting)"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// initCircuitBreaker initializes the read-path circuit breaker.
func (c *Client) initCircuitBreaker() {
	cfg := circuitbreaker.DefaultConfig("chain-read")
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		c.logger.Info(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	c.readCB = circuitbreaker.New[[]byte](cfg)
}

// Connect dials the configured endpoints and verifies the chain ID.
// A chain ID mismatch is fatal: every signed transaction would land on
// the wrong network.
func (c *Client) Connect(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "chain.connect",
		trace.WithAttributes(
			attribute.String("http_url", c.config.HTTPURL),
			attribute.Int64("expected_chain_id", int64(c.config.ChainID)),
		),
	)
	defer span.End()

	c.setState(domain.StateConnecting)

	httpClient, err := ethclient.DialContext(ctx, c.config.HTTPURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		c.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("failed to connect via HTTP"))
	}

	chainID, err := httpClient.ChainID(ctx)
	if err != nil {
		httpClient.Close()
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id fetch failed")
		c.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get chain id"))
	}

	if chainID.Uint64() != c.config.ChainID {
		httpClient.Close()
		err := fmt.Errorf("expected chain %d, node reports %s", c.config.ChainID, chainID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "chain id mismatch")
		c.setState(domain.StateDisconnected)
		return apperror.New(apperror.CodeChainIDMismatch,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("node is on chain %s", chainID)))
	}

	// WS is optional: without it, subscriptions fail but everything else works.
	var wsClient *ethclient.Client
	if c.config.WSURL != "" {
		wsClient, err = ethclient.DialContext(ctx, c.config.WSURL)
		if err != nil {
			c.logger.Warn(ctx, "ws connection failed, subscriptions unavailable",
				"url", c.config.WSURL, "error", err)
			span.AddEvent("ws_dial_failed")
			wsClient = nil
		}
	}

	c.clientMu.Lock()
	c.httpClient = httpClient
	c.wsClient = wsClient
	c.chainID = chainID
	c.clientMu.Unlock()

	c.setState(domain.StateConnected)
	span.SetStatus(codes.Ok, "connected")
	c.logger.Info(ctx, "chain client connected",
		"chain_id", chainID.String(), "ws", wsClient != nil)

	return nil
}

// ChainID returns the verified chain ID of the connected node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.clientMu.RLock()
	defer c.clientMu.RUnlock()

	if c.chainID == nil {
		return nil, apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithContext("chain client not connected"))
	}
	return new(big.Int).Set(c.chainID), nil
}

// Balance returns the native currency balance in smallest units.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "chain.balance",
		trace.WithAttributes(attribute.String("address", addr.Hex())),
	)
	defer span.End()

	client, err := c.http()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.metrics.rpcCalls.Add(ctx, 1)

	raw, err := c.readCB.Execute(func() ([]byte, error) {
		bal, err := client.BalanceAt(ctx, addr, nil) // nil = latest
		if err != nil {
			return nil, err
		}
		return bal.Bytes(), nil
	})
	if err != nil {
		c.metrics.rpcErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("failed to get balance for %s", addr.Hex())))
	}

	span.SetStatus(codes.Ok, "fetched")
	return new(big.Int).SetBytes(raw), nil
}

// CallContract executes a read-only call at the latest block.
func (c *Client) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chain.call",
		trace.WithAttributes(
			attribute.String("to", to.Hex()),
			attribute.Int("data_len", len(data)),
		),
	)
	defer span.End()

	client, err := c.http()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	c.metrics.rpcCalls.Add(ctx, 1)

	out, err := c.readCB.Execute(func() ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		c.metrics.rpcErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("call to %s failed", to.Hex())))
	}

	span.SetStatus(codes.Ok, "called")
	return out, nil
}

// SendTransaction fills in the nonce, signs the skeleton through the
// provider, broadcasts it, and blocks until the receipt is mined or the
// receipt timeout elapses. Rootstock does not support EIP-1559, so
// transactions are always legacy-typed.
func (c *Client) SendTransaction(ctx context.Context, provider domain.SigningProvider, skel domain.TxSkeleton) (*types.Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "chain.send_tx",
		trace.WithAttributes(
			attribute.String("from", skel.From.Hex()),
			attribute.Int64("gas_limit", int64(skel.GasLimit)),
		),
	)
	defer span.End()

	client, err := c.http()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	nonce, err := client.PendingNonceAt(ctx, skel.From)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "nonce fetch failed")
		return nil, apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("failed to get pending nonce"))
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       skel.To,
		Value:    skel.Value,
		Gas:      skel.GasLimit,
		GasPrice: skel.GasPrice,
		Data:     skel.Data,
	})

	signed, err := provider.SignTransaction(ctx, tx, c.chainID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "signing failed")
		return nil, err
	}

	c.metrics.txsSent.Add(ctx, 1)

	if err := client.SendTransaction(ctx, signed); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return nil, mapSendError(err)
	}

	txHash := signed.Hash()
	span.SetAttributes(attribute.String("tx_hash", txHash.Hex()))
	c.logger.Info(ctx, "transaction broadcast",
		"hash", txHash.Hex(), "nonce", nonce, "to", addrOrCreate(skel.To))

	receipt, err := c.waitMined(ctx, txHash)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "receipt wait failed")
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		c.metrics.txsReverted.Add(ctx, 1)
		span.SetStatus(codes.Error, "reverted")
		return receipt, apperror.New(apperror.CodeTransactionReverted,
			apperror.WithContext(fmt.Sprintf("transaction %s reverted in block %d",
				txHash.Hex(), receipt.BlockNumber.Uint64())))
	}

	span.SetStatus(codes.Ok, "mined")
	return receipt, nil
}

// waitMined polls for the transaction receipt until it appears or the
// configured timeout elapses.
func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ctx, span := c.tracer.Start(ctx, "chain.wait_mined",
		trace.WithAttributes(attribute.String("tx_hash", txHash.Hex())),
	)
	defer span.End()

	client, err := c.http()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	deadline := start.Add(c.config.ReceiptTimeout)
	ticker := time.NewTicker(c.config.ReceiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := client.TransactionReceipt(ctx, txHash)
		if err == nil {
			waited := time.Since(start)
			c.metrics.receiptWaitMs.Record(ctx, float64(waited.Milliseconds()))
			span.SetAttributes(attribute.Int64("block_number", receipt.BlockNumber.Int64()))
			span.SetStatus(codes.Ok, "mined")
			c.logger.Debug(ctx, "transaction mined",
				"hash", txHash.Hex(),
				"block", receipt.BlockNumber.Uint64(),
				"wait_ms", waited.Milliseconds())
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			span.RecordError(err)
			return nil, apperror.New(apperror.CodeChainRPCError,
				apperror.WithCause(err),
				apperror.WithContext("receipt lookup failed"))
		}

		if time.Now().After(deadline) {
			span.SetStatus(codes.Error, "timeout")
			return nil, apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithContext(fmt.Sprintf("no receipt for %s after %s",
					txHash.Hex(), c.config.ReceiptTimeout)))
		}

		select {
		case <-ctx.Done():
			return nil, apperror.New(apperror.CodeReceiptTimeout,
				apperror.WithCause(ctx.Err()),
				apperror.WithContext(fmt.Sprintf("context canceled waiting for %s", txHash.Hex())))
		case <-ticker.C:
		}
	}
}

// SubscribeLogs opens a log subscription over the WebSocket client.
func (c *Client) SubscribeLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	ctx, span := c.tracer.Start(ctx, "chain.subscribe_logs")
	defer span.End()

	c.clientMu.RLock()
	wsClient := c.wsClient
	c.clientMu.RUnlock()

	if wsClient == nil {
		err := apperror.New(apperror.CodeSubscriptionFailed,
			apperror.WithContext("no websocket endpoint configured"))
		span.RecordError(err)
		return nil, err
	}

	sub, err := wsClient.SubscribeFilterLogs(ctx, q, ch)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "subscribe failed")
		return nil, apperror.New(apperror.CodeSubscriptionFailed,
			apperror.WithCause(err),
			apperror.WithContext("log subscription failed"))
	}

	span.SetStatus(codes.Ok, "subscribed")
	return sub, nil
}

// State returns the current connection state.
func (c *Client) State() domain.ConnectionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// Close closes the underlying RPC connections.
func (c *Client) Close() error {
	c.clientMu.Lock()
	defer c.clientMu.Unlock()

	if c.httpClient != nil {
		c.httpClient.Close()
		c.httpClient = nil
	}
	if c.wsClient != nil {
		c.wsClient.Close()
		c.wsClient = nil
	}

	c.setState(domain.StateDisconnected)
	return nil
}

// http returns the HTTP client or a connection error.
func (c *Client) http() (*ethclient.Client, error) {
	c.clientMu.RLock()
	defer c.clientMu.RUnlock()

	if c.httpClient == nil {
		return nil, apperror.New(apperror.CodeChainConnectionFailed,
			apperror.WithContext("chain client not connected"))
	}
	return c.httpClient, nil
}

// setState updates the connection state and records metrics.
func (c *Client) setState(state domain.ConnectionState) {
	c.stateMu.Lock()
	c.state = state
	c.stateMu.Unlock()

	stateValue := int64(0)
	switch state {
	case domain.StateDisconnected:
		stateValue = 0
	case domain.StateConnecting:
		stateValue = 1
	case domain.StateConnected:
		stateValue = 2
	case domain.StateReconnecting:
		stateValue = 3
	}

	c.metrics.connectionState.Record(context.Background(), stateValue)
}

// mapSendError classifies node errors for a failed broadcast by message
// text: the JSON-RPC error surface carries no structured codes for these.
func mapSendError(err error) error {
	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "insufficient funds"):
		return apperror.New(apperror.CodeInsufficientFunds,
			apperror.WithCause(err))
	case strings.Contains(msg, "underpriced"):
		return apperror.New(apperror.CodeTransactionUnderpriced,
			apperror.WithCause(err))
	default:
		return apperror.New(apperror.CodeChainRPCError,
			apperror.WithCause(err),
			apperror.WithContext("broadcast rejected by node"))
	}
}

func addrOrCreate(to *common.Address) string {
	if to == nil {
		return "contract-creation"
	}
	return to.Hex()
}
