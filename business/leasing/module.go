// Package leasing implements the crowd-leasing bounded context: factory
// and instance contract bindings plus the workflow service on top of them.
package leasing

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	blockchainDI "github.com/crowdly/leasing-gateway/business/blockchain/di"
	"github.com/crowdly/leasing-gateway/business/leasing/app"
	leasingDI "github.com/crowdly/leasing-gateway/business/leasing/di"
	"github.com/crowdly/leasing-gateway/business/leasing/infra/contracts"
	walletDI "github.com/crowdly/leasing-gateway/business/wallet/di"
	"github.com/crowdly/leasing-gateway/internal/asset"
	"github.com/crowdly/leasing-gateway/internal/config"
	"github.com/crowdly/leasing-gateway/internal/di"
	"github.com/crowdly/leasing-gateway/internal/logger"
	"github.com/crowdly/leasing-gateway/internal/monolith"
)

// Module implements the leasing bounded context.
type Module struct{}

// RegisterServices registers all leasing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the factory binding (private - internal dependency)
	di.RegisterToken(c, leasingDI.Factory, func(sr di.ServiceRegistry) app.FactoryContract {
		cfg := sr.Get("config").(*config.Config)
		caller := blockchainDI.GetChainClient(sr)

		factory, err := contracts.NewFactory(cfg.Contracts.FactoryAddressHex(), caller)
		if err != nil {
			panic("failed to bind leasing factory: " + err.Error())
		}
		return factory
	})

	// Register LeasingService (public - exposed to other modules)
	di.RegisterToken(c, leasingDI.LeasingService, func(sr di.ServiceRegistry) *app.LeasingService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		chainClient := blockchainDI.GetChainClient(sr)
		chainService := blockchainDI.GetBlockchainService(sr)
		session := walletDI.GetSessionService(sr)
		factory := leasingDI.GetFactory(sr)

		bind := func(addr common.Address) (app.InstanceContract, error) {
			return contracts.NewInstance(addr, chainClient)
		}

		svc, err := app.NewLeasingService(
			factory,
			bind,
			chainService,
			session,
			chainClient,
			asset.Native(cfg.Chain.ChainID),
			cfg.Chain.ScanRatePerSec,
			log,
		)
		if err != nil {
			panic("failed to create leasing service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup initializes the leasing module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	// Force construction so a bad factory address fails at startup, not
	// on the first request.
	leasingDI.GetLeasingService(mono.Services())

	log.Info(ctx, "leasing module started",
		"factory", mono.Config().Contracts.FactoryAddress)
	return nil
}
