package asset

import "github.com/ethereum/go-ethereum/common"

// Chain IDs
const (
	ChainIDRootstock        = 30
	ChainIDRootstockTestnet = 31
	ChainIDEthereum         = 1
)

// Well-known AssetIDs
var (
	IDRootstockRBTC = NewNativeAssetID(ChainIDRootstock)
	IDTestnetTRBTC  = NewNativeAssetID(ChainIDRootstockTestnet)
	IDEthereumETH   = NewNativeAssetID(ChainIDEthereum)
)

// Well-known Assets (pre-created instances)
var (
	RBTC  = NewAssetWithName(IDRootstockRBTC, "RBTC", "Rootstock BTC", 18)
	TRBTC = NewAssetWithName(IDTestnetTRBTC, "tRBTC", "Rootstock Testnet BTC", 18)
	ETH   = NewAssetWithName(IDEthereumETH, "ETH", "Ethereum", 18)
)

// DefaultRegistry returns a registry pre-populated with well-known assets.
// Lease tokens minted by leasing-contract instances are registered at
// runtime as they are discovered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(RBTC)
	r.Register(TRBTC)
	r.Register(ETH)

	return r
}

// MustNewToken creates a new ERC20 token asset with the given parameters.
// Used for lease tokens minted per leasing-contract instance.
func MustNewToken(chainID uint64, address common.Address, symbol, name string, decimals uint8) *Asset {
	id := NewTokenAssetID(chainID, address)
	return NewAssetWithName(id, symbol, name, decimals)
}

// MustNewNative creates a new native coin asset.
func MustNewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	id := NewNativeAssetID(chainID)
	return NewAssetWithName(id, symbol, name, decimals)
}

// Native returns the native asset for the given chain ID, falling back to
// an 18-decimal placeholder for unknown chains.
func Native(chainID uint64) *Asset {
	switch chainID {
	case ChainIDRootstock:
		return RBTC
	case ChainIDRootstockTestnet:
		return TRBTC
	case ChainIDEthereum:
		return ETH
	default:
		return MustNewNative(chainID, "NATIVE", "Native Coin", 18)
	}
}
