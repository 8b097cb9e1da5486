package guard

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"
)

// Uniswap v2/v3 swap validators. Every leg of a path is checked, not
// just the endpoints: a disallowed intermediate asset is still
// saleable and therefore still stealable.

// v3 packed path layout: token(20) fee(3) token(20) [fee(3) token(20)]...
const (
	v3AddrWidth = 20
	v3PoolWidth = 23 // fee + next token
)

// validateUniswapV2 authorizes swapExactTokensForTokens and its
// fee-on-transfer variant. Any other selector on a v2 router is
// rejected; liquidity management and ETH variants are outside the
// supported closed set.
func (g *Guard) validateUniswapV2(act Action, anyAsset bool) error {
	sel := abiraw.Sel(act.Data)
	if sel != selSwapExactTokensForTokens && sel != selSwapExactTokensForTokensFoT {
		return unrecognized("unsupported v2 router call", fmt.Sprintf("%x", sel))
	}

	// swapExactTokensForTokens(amountIn, amountOutMin, path, to, deadline)
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("v2 swap calldata too short", act.Target.Hex())
	}
	pathOff, ok := abiraw.Offset(args, 2)
	if !ok {
		return malformed("v2 swap path offset out of range", act.Target.Hex())
	}
	path, ok := abiraw.AddressArray(args, pathOff)
	if !ok {
		return malformed("v2 swap path does not decode", act.Target.Hex())
	}
	if len(path) < 2 {
		return malformed("v2 swap path needs at least two tokens", act.Target.Hex())
	}
	to, ok := abiraw.Address(args, 3)
	if !ok {
		return malformed("v2 swap missing recipient", act.Target.Hex())
	}

	if !g.IsAllowedReceiver(to) {
		return denied("receiver not whitelisted", to.Hex())
	}
	if anyAsset {
		return nil
	}
	for _, token := range path {
		if !g.IsAllowedAsset(token) {
			return denied("token in swap path not whitelisted", token.Hex())
		}
	}
	return nil
}

// validateUniswapV3 authorizes exactInput in both router shapes. The
// recipient is decoded once, then the packed path is walked
// pool-by-pool validating both sides of every pool.
func (g *Guard) validateUniswapV3(act Action, anyAsset bool) error {
	sel := abiraw.Sel(act.Data)
	if sel != selExactInput && sel != selExactInputNoDeadline {
		return unrecognized("unsupported v3 router call", fmt.Sprintf("%x", sel))
	}

	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("v3 swap calldata too short", act.Target.Hex())
	}
	paramsOff, ok := abiraw.Offset(args, 0)
	if !ok {
		return malformed("v3 swap params offset out of range", act.Target.Hex())
	}
	params, ok := abiraw.Tail(args, paramsOff)
	if !ok {
		return malformed("v3 swap params out of range", act.Target.Hex())
	}

	// (path, recipient, deadline, amountIn, amountOutMinimum) for the
	// original router; SwapRouter02 drops the deadline. Only the path
	// and recipient matter here and both sit before the split.
	pathOff, ok := abiraw.Offset(params, 0)
	if !ok {
		return malformed("v3 path offset out of range", act.Target.Hex())
	}
	recipient, ok := abiraw.Address(params, 1)
	if !ok {
		return malformed("v3 swap missing recipient", act.Target.Hex())
	}
	path, ok := abiraw.Bytes(params, pathOff)
	if !ok {
		return malformed("v3 path does not decode", act.Target.Hex())
	}

	if !g.IsAllowedReceiver(recipient) {
		return denied("receiver not whitelisted", recipient.Hex())
	}

	// A path with zero pools is an error, not a vacuous pass.
	if len(path) < v3AddrWidth+v3PoolWidth || (len(path)-v3AddrWidth)%v3PoolWidth != 0 {
		return malformed("v3 path length invalid", fmt.Sprintf("%d bytes", len(path)))
	}

	if anyAsset {
		return nil
	}
	for pos := 0; pos+v3AddrWidth+v3PoolWidth <= len(path); pos += v3PoolWidth {
		tokenIn := common.BytesToAddress(path[pos : pos+v3AddrWidth])
		tokenOut := common.BytesToAddress(path[pos+v3PoolWidth : pos+v3PoolWidth+v3AddrWidth])
		if !g.IsAllowedAsset(tokenIn) {
			return denied("token in swap path not whitelisted", tokenIn.Hex())
		}
		if !g.IsAllowedAsset(tokenOut) {
			return denied("token in swap path not whitelisted", tokenOut.Hex())
		}
	}
	return nil
}
