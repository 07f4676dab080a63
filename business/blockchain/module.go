// Package blockchain implements the blockchain bounded context for Rootstock chain access.
package blockchain

import (
	"context"

	"github.com/crowdly/leasing-gateway/business/blockchain/app"
	blockchainDI "github.com/crowdly/leasing-gateway/business/blockchain/di"
	"github.com/crowdly/leasing-gateway/business/blockchain/infra/ethereum"
	"github.com/crowdly/leasing-gateway/internal/config"
	"github.com/crowdly/leasing-gateway/internal/di"
	"github.com/crowdly/leasing-gateway/internal/logger"
	"github.com/crowdly/leasing-gateway/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register ChainClient (private - internal dependency)
	di.RegisterToken(c, blockchainDI.ChainClient, func(sr di.ServiceRegistry) app.ChainClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		clientCfg := ethereum.DefaultClientConfig(cfg.Chain.HTTPURL, cfg.Chain.WebSocketURL)
		clientCfg.ChainID = cfg.Chain.ChainID
		clientCfg.ReceiptTimeout = cfg.Chain.ReceiptTimeout
		clientCfg.ReceiptPoll = cfg.Chain.ReceiptPoll

		client, err := ethereum.NewClient(clientCfg, log)
		if err != nil {
			panic("failed to create chain client: " + err.Error())
		}
		return client
	})

	// Register GasOracle (private - internal dependency)
	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := blockchainDI.GetChainClient(sr).(*ethereum.Client)

		oracle, err := ethereum.NewGasOracle(ethereum.DefaultGasOracleConfig(), client, log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	// Register BlockchainService (public - exposed to other modules)
	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		client := blockchainDI.GetChainClient(sr)
		oracle := blockchainDI.GetGasOracle(sr)
		return app.NewBlockchainService(client, oracle)
	})

	return nil
}

// Startup connects the chain client and verifies the chain ID. A chain
// ID mismatch aborts startup.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	client := blockchainDI.GetChainClient(mono.Services())

	if connector, ok := client.(interface{ Connect(context.Context) error }); ok {
		if err := connector.Connect(ctx); err != nil {
			log.Error(ctx, "failed to connect chain client", "error", err)
			return err
		}
	}

	log.Info(ctx, "blockchain module started")
	return nil
}
