// Package custodian integrates the external key-management service that
// backs social-login wallets.
package custodian

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/internal/apperror"
	"github.com/crowdly/leasing-gateway/internal/httpclient"
	"github.com/crowdly/leasing-gateway/internal/logger"
)

const (
	tracerName = "github.com/crowdly/leasing-gateway/business/wallet/infra/custodian"
	meterName  = "github.com/crowdly/leasing-gateway/business/wallet/infra/custodian"
)

// Config holds configuration for the custodian client.
type Config struct {
	BaseURL        string
	ClientID       string
	Network        string // "testnet" or "mainnet"
	RequestTimeout time.Duration
}

// clientMetrics holds OTEL metric instruments.
type clientMetrics struct {
	logins      metric.Int64Counter
	loginErrors metric.Int64Counter
	restores    metric.Int64Counter
	logouts     metric.Int64Counter
}

// Client talks to the custodian's session API.
type Client struct {
	config Config
	http   httpclient.Client
	logger logger.LoggerInterface

	tracer  trace.Tracer
	metrics *clientMetrics
}

// sessionResponse is the custodian's wire format for session grants.
type sessionResponse struct {
	SessionKey string `json:"session_key"`
	Address    string `json:"address"`
	Subject    string `json:"subject"`
	ExpiresAt  int64  `json:"expires_at"` // unix seconds
}

// NewClient creates a custodian client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	hc, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("custodian"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithHeaders(map[string]string{
			"X-Client-Id": cfg.ClientID,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create custodian http client: %w", err)
	}

	c := &Client{
		config: cfg,
		http:   hc,
		logger: log,
		tracer: otel.Tracer(tracerName),
	}

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return c, nil
}

// initMetrics initializes OTEL metric instruments.
func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.logins, err = meter.Int64Counter(
		"custodian_logins_total",
		metric.WithDescription("Total custodian login attempts"),
		metric.WithUnit("{login}"),
	)
	if err != nil {
		return err
	}

	c.metrics.loginErrors, err = meter.Int64Counter(
		"custodian_login_errors_total",
		metric.WithDescription("Total failed custodian logins"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	c.metrics.restores, err = meter.Int64Counter(
		"custodian_restores_total",
		metric.WithDescription("Total session restore attempts"),
		metric.WithUnit("{restore}"),
	)
	if err != nil {
		return err
	}

	c.metrics.logouts, err = meter.Int64Counter(
		"custodian_logouts_total",
		metric.WithDescription("Total custodian logouts"),
		metric.WithUnit("{logout}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Restore checks for a still-valid prior session. A missing session is
// not an error: (nil, nil) means the user has to log in.
func (c *Client) Restore(ctx context.Context) (*domain.Grant, error) {
	ctx, span := c.tracer.Start(ctx, "custodian.restore")
	defer span.End()

	c.metrics.restores.Add(ctx, 1)

	var result sessionResponse
	resp, err := c.http.NewRequest().
		SetResult(&result).
		Get(ctx, "/v1/sessions/current")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, apperror.New(apperror.CodeCustodianError,
			apperror.WithCause(err),
			apperror.WithContext("session restore request failed"))
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized {
		span.AddEvent("no_prior_session")
		return nil, nil
	}
	if resp.IsError() {
		err := apperror.New(apperror.CodeCustodianError,
			apperror.WithContext(fmt.Sprintf("session restore returned %d", resp.StatusCode)))
		span.RecordError(err)
		return nil, err
	}

	grant := grantFromResponse(result)
	span.SetAttributes(attribute.String("address", grant.Address.Hex()))
	span.SetStatus(codes.Ok, "restored")

	return &grant, nil
}

// Login opens a new custodial session.
func (c *Client) Login(ctx context.Context) (*domain.Grant, error) {
	ctx, span := c.tracer.Start(ctx, "custodian.login",
		trace.WithAttributes(attribute.String("network", c.config.Network)),
	)
	defer span.End()

	c.metrics.logins.Add(ctx, 1)

	var result sessionResponse
	resp, err := c.http.NewRequest().
		SetBody(map[string]string{
			"client_id": c.config.ClientID,
			"network":   c.config.Network,
		}).
		SetResult(&result).
		Post(ctx, "/v1/sessions")
	if err != nil {
		c.metrics.loginErrors.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return nil, apperror.New(apperror.CodeLoginFailed,
			apperror.WithCause(err),
			apperror.WithContext("login request failed"))
	}

	if resp.IsError() {
		c.metrics.loginErrors.Add(ctx, 1)
		err := apperror.New(apperror.CodeLoginFailed,
			apperror.WithContext(fmt.Sprintf("custodian returned %d", resp.StatusCode)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		return nil, err
	}

	grant := grantFromResponse(result)
	span.SetAttributes(attribute.String("address", grant.Address.Hex()))
	span.SetStatus(codes.Ok, "logged in")
	c.logger.Info(ctx, "custodian session opened", "address", grant.Address.Hex())

	return &grant, nil
}

// Logout tears the session down on the custodian side.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "custodian.logout")
	defer span.End()

	c.metrics.logouts.Add(ctx, 1)

	resp, err := c.http.NewRequest().
		Delete(ctx, "/v1/sessions/current")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return apperror.New(apperror.CodeCustodianError,
			apperror.WithCause(err),
			apperror.WithContext("logout request failed"))
	}

	// 404 means the session was already gone; teardown is confirmed
	// either way.
	if resp.IsError() && resp.StatusCode != http.StatusNotFound {
		err := apperror.New(apperror.CodeCustodianError,
			apperror.WithContext(fmt.Sprintf("logout returned %d", resp.StatusCode)))
		span.RecordError(err)
		return err
	}

	span.SetStatus(codes.Ok, "logged out")
	return nil
}

func grantFromResponse(r sessionResponse) domain.Grant {
	return domain.Grant{
		SessionKey: r.SessionKey,
		Address:    common.HexToAddress(r.Address),
		Subject:    r.Subject,
		ExpiresAt:  time.Unix(r.ExpiresAt, 0),
	}
}
