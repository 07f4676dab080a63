// Package di contains dependency injection tokens for the leasing context.
package di

import (
	"github.com/crowdly/leasing-gateway/business/leasing/app"
	"github.com/crowdly/leasing-gateway/internal/di"
)

// Public service tokens - exposed to other modules
var (
	LeasingService = di.NewToken[*app.LeasingService]("leasing.LeasingService")
)

// Private dependency tokens - internal to leasing module
var (
	Factory = di.NewToken[app.FactoryContract]("leasing:factory")
)

// Helper functions for type-safe access
func GetLeasingService(c di.ServiceRegistry) *app.LeasingService {
	return di.GetToken(c, LeasingService)
}

func GetFactory(c di.ServiceRegistry) app.FactoryContract {
	return di.GetToken(c, Factory)
}
