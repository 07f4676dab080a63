// Package di contains dependency injection tokens for the wallet context.
package di

import (
	"github.com/crowdly/leasing-gateway/business/wallet/app"
	"github.com/crowdly/leasing-gateway/internal/di"
)

// Public service tokens - exposed to other modules
var (
	SessionService = di.NewToken[*app.SessionService]("wallet.SessionService")
)

// Private dependency tokens - internal to wallet module
var (
	Custodian = di.NewToken[app.Custodian]("wallet:custodian")
)

// Helper functions for type-safe access
func GetSessionService(c di.ServiceRegistry) *app.SessionService {
	return di.GetToken(c, SessionService)
}

func GetCustodian(c di.ServiceRegistry) app.Custodian {
	return di.GetToken(c, Custodian)
}
