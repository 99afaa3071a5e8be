package flashloan

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// TradeParams is the execution parameter blob decoded once at the boundary:
// the two venues, the swap path, the gas cost estimate, and the caller's
// minimum profit. It travels through the coordinator as opaque bytes the way
// a flash-loan callback payload does on chain.
type TradeParams struct {
	VenueFirst   common.Address
	VenueSecond  common.Address
	Path         []common.Address
	GasCost      *big.Int
	MinProfitBps *big.Int
}

var paramsArgs = func() abi.Arguments {
	addrT, _ := abi.NewType("address", "", nil)
	addrSliceT, _ := abi.NewType("address[]", "", nil)
	uintT, _ := abi.NewType("uint256", "", nil)

	return abi.Arguments{
		{Name: "venueFirst", Type: addrT},
		{Name: "venueSecond", Type: addrT},
		{Name: "path", Type: addrSliceT},
		{Name: "gasCost", Type: uintT},
		{Name: "minProfitBps", Type: uintT},
	}
}()

// Encode packs trade params ABI-style
func (p *TradeParams) Encode() ([]byte, error) {
	if len(p.Path) < 2 {
		return nil, fmt.Errorf("path needs at least 2 tokens, got %d", len(p.Path))
	}

	gasCost := p.GasCost
	if gasCost == nil {
		gasCost = big.NewInt(0)
	}

	blob, err := paramsArgs.Pack(p.VenueFirst, p.VenueSecond, p.Path, gasCost, p.MinProfitBps)
	if err != nil {
		return nil, fmt.Errorf("pack trade params: %w", err)
	}
	return blob, nil
}

// DecodeParams unpacks a parameter blob back into typed trade params
func DecodeParams(blob []byte) (*TradeParams, error) {
	values, err := paramsArgs.Unpack(blob)
	if err != nil {
		return nil, fmt.Errorf("unpack trade params: %w", err)
	}
	if len(values) != 5 {
		return nil, fmt.Errorf("unexpected unpack result length: %d", len(values))
	}

	venueFirst, ok := values[0].(common.Address)
	if !ok {
		return nil, fmt.Errorf("venueFirst type assertion failed")
	}
	venueSecond, ok := values[1].(common.Address)
	if !ok {
		return nil, fmt.Errorf("venueSecond type assertion failed")
	}
	path, ok := values[2].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("path type assertion failed")
	}
	gasCost, ok := values[3].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("gasCost type assertion failed")
	}
	minProfitBps, ok := values[4].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("minProfitBps type assertion failed")
	}

	return &TradeParams{
		VenueFirst:   venueFirst,
		VenueSecond:  venueSecond,
		Path:         path,
		GasCost:      gasCost,
		MinProfitBps: minProfitBps,
	}, nil
}
