// Package wallet implements the wallet bounded context: custodial
// session bootstrap and transaction signing.
package wallet

import (
	"context"

	chaindomain "github.com/crowdly/leasing-gateway/business/blockchain/domain"
	"github.com/crowdly/leasing-gateway/business/wallet/app"
	walletDI "github.com/crowdly/leasing-gateway/business/wallet/di"
	"github.com/crowdly/leasing-gateway/business/wallet/domain"
	"github.com/crowdly/leasing-gateway/business/wallet/infra/custodian"
	"github.com/crowdly/leasing-gateway/internal/config"
	"github.com/crowdly/leasing-gateway/internal/di"
	"github.com/crowdly/leasing-gateway/internal/logger"
	"github.com/crowdly/leasing-gateway/internal/monolith"
)

// Module implements the wallet bounded context.
type Module struct {
	watcher *custodian.RevocationWatcher
}

// RegisterServices registers all wallet services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	// Register the custodian client (private - internal dependency)
	di.RegisterToken(c, walletDI.Custodian, func(sr di.ServiceRegistry) app.Custodian {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := custodian.NewClient(custodian.Config{
			BaseURL:        cfg.Session.CustodianURL,
			ClientID:       cfg.Session.ClientID,
			Network:        cfg.Session.Network,
			RequestTimeout: cfg.Session.RequestTimeout,
		}, log)
		if err != nil {
			panic("failed to create custodian client: " + err.Error())
		}
		return client
	})

	// Register SessionService (public - exposed to other modules)
	di.RegisterToken(c, walletDI.SessionService, func(sr di.ServiceRegistry) *app.SessionService {
		log := sr.Get("logger").(logger.LoggerInterface)
		cust := walletDI.GetCustodian(sr)

		newSigner := func(grant domain.Grant) (chaindomain.SigningProvider, error) {
			return custodian.NewSigner(grant)
		}

		svc, err := app.NewSessionService(cust, newSigner, log)
		if err != nil {
			panic("failed to create session service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup initializes the session state machine and, when a push
// endpoint is configured, the revocation watcher.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	cfg := mono.Config()

	session := walletDI.GetSessionService(mono.Services())
	if err := session.Initialize(ctx); err != nil {
		return err
	}

	if cfg.Session.CustodianWSURL != "" {
		watcher, err := custodian.NewRevocationWatcher(
			cfg.Session.CustodianWSURL, log, session.HandleRevocation)
		if err != nil {
			return err
		}
		// Revocation delivery is best-effort: without the push channel
		// a dead session is only discovered on the next signing failure.
		if err := watcher.Start(ctx); err != nil {
			log.Warn(ctx, "custodian push channel unavailable, revocations will not be delivered", "error", err)
		}
		m.watcher = watcher
	}

	log.Info(ctx, "wallet module started", "state", string(session.State()))
	return nil
}

// Close stops the revocation watcher.
func (m *Module) Close() error {
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
