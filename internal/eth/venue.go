package eth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/pulkyeet/flash-arb/internal/amm"
)

var pairABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(UniswapV2PairABI))
	if err != nil {
		panic(fmt.Sprintf("parse pair ABI: %v", err))
	}
	return parsed
}()

// FetchReserves reads a pair's reserves at a specific block
func FetchReserves(ctx context.Context, client *Client, poolAddress common.Address, blockNum *big.Int) (reserve0, reserve1 *big.Int, err error) {
	data, err := pairABI.Pack("getReserves")
	if err != nil {
		return nil, nil, fmt.Errorf("pack getReserves: %w", err)
	}

	msg := ethereum.CallMsg{
		To:   &poolAddress,
		Data: data,
	}

	result, err := client.CallContract(ctx, msg, blockNum)
	if err != nil {
		return nil, nil, fmt.Errorf("call contract: %w", err)
	}

	unpacked, err := pairABI.Unpack("getReserves", result)
	if err != nil {
		return nil, nil, fmt.Errorf("unpack reserves: %w", err)
	}
	if len(unpacked) < 2 {
		return nil, nil, fmt.Errorf("unexpected unpack result length: %d", len(unpacked))
	}

	reserve0, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("reserve0 type assertion failed")
	}
	reserve1, ok = unpacked[1].(*big.Int)
	if !ok {
		return nil, nil, fmt.Errorf("reserve1 type assertion failed")
	}

	return reserve0, reserve1, nil
}

// ChainVenue is a read-only scan venue backed by an on-chain V2-style pair.
// It quotes from live reserves; execution still goes through the settlement
// environment, never directly through this type.
type ChainVenue struct {
	pair   PairContract
	client *Client
	feeBps int64
}

func NewChainVenue(pair PairContract, client *Client, feeBps int64) *ChainVenue {
	return &ChainVenue{pair: pair, client: client, feeBps: feeBps}
}

func (v *ChainVenue) ID() common.Address { return v.pair.Address }
func (v *ChainVenue) Name() string       { return v.pair.DEX }

func (v *ChainVenue) Quote(path []common.Address, amountIn *big.Int) (*amm.VenueQuote, error) {
	if len(path) != 2 {
		return nil, fmt.Errorf("chain venue supports 2-token paths, got %d", len(path))
	}
	if !v.hasPair(path[0], path[1]) {
		return nil, fmt.Errorf("%w: pair %s does not trade %s/%s",
			amm.ErrNoLiquidity, v.pair.Address.Hex(), path[0].Hex(), path[1].Hex())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blockNum, err := v.client.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("block number: %w", err)
	}

	reserve0, reserve1, err := FetchReserves(ctx, v.client, v.pair.Address, new(big.Int).SetUint64(blockNum))
	if err != nil {
		return nil, fmt.Errorf("fetch reserves: %w", err)
	}

	reserveIn, reserveOut := reserve0, reserve1
	if path[0] == v.pair.Token1 {
		reserveIn, reserveOut = reserve1, reserve0
	}
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: pair %s is empty", amm.ErrNoLiquidity, v.pair.Address.Hex())
	}

	return &amm.VenueQuote{
		Venue:      v.pair.Address,
		VenueName:  v.pair.DEX,
		AmountIn:   new(big.Int).Set(amountIn),
		AmountOut:  amm.GetAmountOut(amountIn, reserveIn, reserveOut, v.feeBps),
		ReserveIn:  reserveIn,
		ReserveOut: reserveOut,
		Period:     blockNum,
	}, nil
}

func (v *ChainVenue) hasPair(a, b common.Address) bool {
	return (a == v.pair.Token0 && b == v.pair.Token1) || (a == v.pair.Token1 && b == v.pair.Token0)
}
