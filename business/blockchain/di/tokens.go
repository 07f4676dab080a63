// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/crowdly/leasing-gateway/business/blockchain/app"
	"github.com/crowdly/leasing-gateway/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	ChainClient = di.NewToken[app.ChainClient]("blockchain:chainClient")
	GasOracle   = di.NewToken[app.GasOracle]("blockchain:gasOracle")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetChainClient(c di.ServiceRegistry) app.ChainClient {
	return di.GetToken(c, ChainClient)
}

func GetGasOracle(c di.ServiceRegistry) app.GasOracle {
	return di.GetToken(c, GasOracle)
}
