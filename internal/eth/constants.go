package eth

import (
	"github.com/ethereum/go-ethereum/common"
)

// Token addresses — Ethereum mainnet
var (
	WETHAddress = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	USDCAddress = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	USDTAddress = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	DAIAddress  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	WBTCAddress = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")
)

const (
	WETHDecimals = 18
	USDCDecimals = 6
	USDTDecimals = 6
	DAIDecimals  = 18
	WBTCDecimals = 8
)

// TokenInfo bundles address + decimals for easy lookup
type TokenInfo struct {
	Address  common.Address
	Decimals int
	Symbol   string
}

// KnownTokens — lookup by symbol string
var KnownTokens = map[string]TokenInfo{
	"WETH": {WETHAddress, WETHDecimals, "WETH"},
	"USDC": {USDCAddress, USDCDecimals, "USDC"},
	"USDT": {USDTAddress, USDTDecimals, "USDT"},
	"DAI":  {DAIAddress, DAIDecimals, "DAI"},
	"WBTC": {WBTCAddress, WBTCDecimals, "WBTC"},
}

// PairContract names one on-chain V2-style pair pool usable as a scan venue
type PairContract struct {
	DEX     string
	Address common.Address
	Token0  common.Address
	Token1  common.Address
}

// KnownPairs — tracked Uniswap V2 fork pools on Ethereum mainnet.
// token0/token1 follow the contracts' own ordering.
var KnownPairs = []PairContract{
	{"uniswap", common.HexToAddress("0xB4e16d0168e52d35CaCD2c6185b44281Ec28C9Dc"), USDCAddress, WETHAddress},
	{"sushiswap", common.HexToAddress("0x397FF1542f962076d0BFE58eA045FfA2d347ACa0"), USDCAddress, WETHAddress},
	{"uniswap", common.HexToAddress("0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852"), WETHAddress, USDTAddress},
	{"sushiswap", common.HexToAddress("0x06da0fd433C1A5d7a4faa01111c044910A184553"), WETHAddress, USDTAddress},
}

// Uniswap V2 Pair ABI — getReserves only
const UniswapV2PairABI = `[
	{
		"constant": true,
		"inputs": [],
		"name": "getReserves",
		"outputs": [
			{"internalType": "uint112", "name": "reserve0", "type": "uint112"},
			{"internalType": "uint112", "name": "reserve1", "type": "uint112"},
			{"internalType": "uint32",  "name": "blockTimestampLast", "type": "uint32"}
		],
		"payable": false,
		"stateMutability": "view",
		"type": "function"
	}
]`
