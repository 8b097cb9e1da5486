package guard

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"
)

// Perpetuals multicall validator (GMX v2 exchange router).
//
// One action bundles an arbitrary number of inner calls. Exactly three
// inner kinds are recognized: sendWnt (native value to the order
// vault), sendTokens (token to the order vault) and createOrder.
// Anything else fails; there is no default-allow branch.

// maxGmxSwapPath bounds the number of markets in a createOrder swap
// path. The whitelist already bounds which markets can appear; this
// bounds how many.
const maxGmxSwapPath = 8

func (g *Guard) validateGmxMulticall(act Action, anyAsset bool) error {
	if abiraw.Sel(act.Data) != selMulticall {
		return unrecognized("unsupported perpetuals router call", act.Target.Hex())
	}

	// An enabled router with an unset order vault fails closed rather
	// than defaulting transfers to the zero address.
	orderVault, ok := g.gmxOrderVault(act.Target)
	if !ok {
		return unconfigured("perpetuals router has no order vault configured", act.Target.Hex())
	}

	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("multicall calldata too short", act.Target.Hex())
	}
	arrOff, ok := abiraw.Offset(args, 0)
	if !ok {
		return malformed("multicall array offset out of range", act.Target.Hex())
	}
	inner, ok := abiraw.BytesArray(args, arrOff)
	if !ok {
		return malformed("multicall array does not decode", act.Target.Hex())
	}

	for i, call := range inner {
		if err := g.validateGmxInnerCall(call, orderVault, anyAsset); err != nil {
			return fmt.Errorf("multicall entry %d: %w", i, err)
		}
	}
	return nil
}

func (g *Guard) validateGmxInnerCall(call []byte, orderVault common.Address, anyAsset bool) error {
	if !abiraw.HasSelector(call) {
		return malformed("inner call shorter than a selector", "")
	}
	args, _ := abiraw.Args(call)

	switch abiraw.Sel(call) {
	case selSendWnt:
		// sendWnt(receiver, amount): native value may only go to the
		// configured order vault.
		receiver, ok := abiraw.Address(args, 0)
		if !ok {
			return malformed("sendWnt missing receiver", "")
		}
		if receiver != orderVault {
			return denied("sendWnt receiver is not the order vault", receiver.Hex())
		}
		return nil

	case selSendTokens:
		// sendTokens(token, receiver, amount)
		token, ok := abiraw.Address(args, 0)
		if !ok {
			return malformed("sendTokens missing token", "")
		}
		receiver, ok := abiraw.Address(args, 1)
		if !ok {
			return malformed("sendTokens missing receiver", "")
		}
		if receiver != orderVault {
			return denied("sendTokens receiver is not the order vault", receiver.Hex())
		}
		if !anyAsset && !g.IsAllowedAsset(token) {
			return denied("token not whitelisted", token.Hex())
		}
		return nil

	case selCreateOrder:
		return g.validateGmxCreateOrder(args, anyAsset)
	}

	return unrecognized("unrecognized inner call", fmt.Sprintf("%x", abiraw.Sel(call)))
}

// validateGmxCreateOrder decodes the addresses sub-tuple of
// CreateOrderParams: (receiver, cancellationReceiver, callbackContract,
// uiFeeReceiver, market, initialCollateralToken, swapPath[]).
//
// Both receivers are checked independently: a legitimate primary
// receiver with an attacker-controlled cancellation receiver would
// siphon funds on order cancellation.
func (g *Guard) validateGmxCreateOrder(args []byte, anyAsset bool) error {
	paramsOff, ok := abiraw.Offset(args, 0)
	if !ok {
		return malformed("createOrder params offset out of range", "")
	}
	params, ok := abiraw.Tail(args, paramsOff)
	if !ok {
		return malformed("createOrder params out of range", "")
	}
	addrOff, ok := abiraw.Offset(params, 0)
	if !ok {
		return malformed("createOrder addresses offset out of range", "")
	}
	addrs, ok := abiraw.Tail(params, addrOff)
	if !ok {
		return malformed("createOrder addresses out of range", "")
	}

	receiver, ok1 := abiraw.Address(addrs, 0)
	cancellationReceiver, ok2 := abiraw.Address(addrs, 1)
	market, ok3 := abiraw.Address(addrs, 4)
	collateral, ok4 := abiraw.Address(addrs, 5)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return malformed("createOrder addresses tuple too short", "")
	}
	swapPathOff, ok := abiraw.Offset(addrs, 6)
	if !ok {
		return malformed("createOrder swap path offset out of range", "")
	}
	swapPath, ok := abiraw.AddressArray(addrs, swapPathOff)
	if !ok {
		return malformed("createOrder swap path does not decode", "")
	}

	if !g.IsAllowedReceiver(receiver) {
		return denied("order receiver not whitelisted", receiver.Hex())
	}
	if !g.IsAllowedReceiver(cancellationReceiver) {
		return denied("order cancellation receiver not whitelisted", cancellationReceiver.Hex())
	}
	if len(swapPath) > maxGmxSwapPath {
		return denied("order swap path too long", fmt.Sprintf("%d markets", len(swapPath)))
	}
	if anyAsset {
		return nil
	}
	if !g.Get(KindTarget, market) {
		return denied("market not whitelisted", market.Hex())
	}
	for _, m := range swapPath {
		if !g.Get(KindTarget, m) {
			return denied("market in swap path not whitelisted", m.Hex())
		}
	}
	if !g.IsAllowedAsset(collateral) {
		return denied("collateral token not whitelisted", collateral.Hex())
	}
	return nil
}
