// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Chain     ChainConfig     `mapstructure:"chain"`
	Contracts ContractsConfig `mapstructure:"contracts"`
	Session   SessionConfig   `mapstructure:"session"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// ChainConfig holds node endpoints and chain identity.
type ChainConfig struct {
	HTTPURL        string        `mapstructure:"http_url"`
	WebSocketURL   string        `mapstructure:"websocket_url"`
	ChainID        uint64        `mapstructure:"chain_id"`
	ReceiptTimeout time.Duration `mapstructure:"receipt_timeout"`
	ReceiptPoll    time.Duration `mapstructure:"receipt_poll"`
	ScanRatePerSec float64       `mapstructure:"scan_rate_per_sec"`
}

// ContractsConfig holds deployed contract addresses.
type ContractsConfig struct {
	FactoryAddress string `mapstructure:"factory_address"`
}

// FactoryAddressHex returns the factory address as common.Address.
func (c *ContractsConfig) FactoryAddressHex() common.Address {
	return common.HexToAddress(c.FactoryAddress)
}

// SessionConfig holds the custodial wallet provider settings.
type SessionConfig struct {
	CustodianURL   string        `mapstructure:"custodian_url"`
	CustodianWSURL string        `mapstructure:"custodian_ws_url"`
	ClientID       string        `mapstructure:"client_id"`
	Network        string        `mapstructure:"network"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// GatewayConfig holds the HTTP API settings.
type GatewayConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("CROWDLY")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CROWDLY_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CROWDLY_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CROWDLY_LOG_LEVEL", "LOG_LEVEL")

	// Chain
	v.BindEnv("chain.http_url", "CROWDLY_RPC_URL", "ROOTSTOCK_RPC_URL")
	v.BindEnv("chain.websocket_url", "CROWDLY_RPC_WS_URL", "ROOTSTOCK_RPC_WS_URL")
	v.BindEnv("chain.chain_id", "CROWDLY_CHAIN_ID", "CHAIN_ID")

	// Contracts
	v.BindEnv("contracts.factory_address", "CROWDLY_FACTORY_ADDRESS", "FACTORY_CONTRACT_ADDRESS")

	// Session
	v.BindEnv("session.custodian_url", "CROWDLY_CUSTODIAN_URL")
	v.BindEnv("session.custodian_ws_url", "CROWDLY_CUSTODIAN_WS_URL")
	v.BindEnv("session.client_id", "CROWDLY_CLIENT_ID", "WEB3AUTH_CLIENT_ID")
	v.BindEnv("session.network", "CROWDLY_CUSTODIAN_NETWORK")

	// Gateway
	v.BindEnv("gateway.port", "CROWDLY_API_PORT")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CROWDLY_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CROWDLY_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CROWDLY_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "leasing-gateway")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Chain defaults: Rootstock testnet
	v.SetDefault("chain.chain_id", 31)
	v.SetDefault("chain.receipt_timeout", "90s")
	v.SetDefault("chain.receipt_poll", "3s")
	v.SetDefault("chain.scan_rate_per_sec", 10.0)

	// Session defaults
	v.SetDefault("session.network", "testnet")
	v.SetDefault("session.request_timeout", "15s")

	// Gateway defaults
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.read_timeout", "10s")
	v.SetDefault("gateway.write_timeout", "120s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "leasing-gateway")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Chain.HTTPURL == "" {
		return fmt.Errorf("chain.http_url is required")
	}
	if c.Chain.ChainID == 0 {
		return fmt.Errorf("chain.chain_id is required")
	}
	if !common.IsHexAddress(c.Contracts.FactoryAddress) {
		return fmt.Errorf("invalid contracts.factory_address: %s", c.Contracts.FactoryAddress)
	}
	if c.Session.ClientID == "" {
		return fmt.Errorf("session.client_id is required")
	}
	if c.Chain.ReceiptTimeout <= 0 {
		return fmt.Errorf("chain.receipt_timeout must be positive")
	}
	return nil
}
