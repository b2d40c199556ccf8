package domain

import "strings"

// Network describes a supported EVM chain and the USDC deployment on it.
type Network struct {
	Name     string
	ChainID  int64
	Asset    string
	Decimals int
}

// Supported networks keyed by canonical upper-case name. USDC uses six
// decimals on every listed chain.
var networks = map[string]Network{
	"BASE": {
		Name:     "BASE",
		ChainID:  8453,
		Asset:    "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Decimals: 6,
	},
	"POLYGON": {
		Name:     "POLYGON",
		ChainID:  137,
		Asset:    "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		Decimals: 6,
	},
	"BNB": {
		Name:     "BNB",
		ChainID:  56,
		Asset:    "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
		Decimals: 6,
	},
	"ARBITRUM": {
		Name:     "ARBITRUM",
		ChainID:  42161,
		Asset:    "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		Decimals: 6,
	},
}

// networkOrder fixes the presentation order of network buttons.
var networkOrder = []string{"BASE", "POLYGON", "BNB", "ARBITRUM"}

// NetworkByName looks up a supported network, case-insensitively.
func NetworkByName(name string) (Network, bool) {
	n, ok := networks[strings.ToUpper(strings.TrimSpace(name))]
	return n, ok
}

// Networks returns the supported networks in presentation order.
func Networks() []Network {
	out := make([]Network, 0, len(networkOrder))
	for _, name := range networkOrder {
		out = append(out, networks[name])
	}
	return out
}
