package guard

import (
	"fmt"

	"github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"
)

// Native-vault action validator (Hyperliquid CoreWriter).
//
// The CoreWriter system contract takes raw action bytes:
//
//	byte 0     version, always 1
//	bytes 1-3  action ID, big-endian uint24
//	bytes 4+   abi.encode(action-specific parameters)
//
// Only the closed set below is allowed; every other action ID is
// rejected. The acting contract itself must be the single whitelisted
// CoreWriter entry point, which target-family dispatch already
// guarantees.

const (
	rawActionVersion = 1

	actionVaultTransfer    = 2 // (vault, isDeposit, usd)
	actionSpotSend         = 6 // (destination, token, wei)
	actionUsdClassTransfer = 7 // (ntl, toPerp)
)

// minVaultDeposit is the smallest accepted vault deposit in raw USDC
// (6 decimals). Hypercore silently strands deposits below this
// threshold, so the guard refuses them outright.
const minVaultDeposit = 5_000_000

func (g *Guard) validateCoreWriter(act Action) error {
	if abiraw.Sel(act.Data) != selSendRawAction {
		return unrecognized("unsupported corewriter call", act.Target.Hex())
	}
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("sendRawAction calldata too short", act.Target.Hex())
	}
	rawOff, ok := abiraw.Offset(args, 0)
	if !ok {
		return malformed("raw action offset out of range", act.Target.Hex())
	}
	raw, ok := abiraw.Bytes(args, rawOff)
	if !ok {
		return malformed("raw action does not decode", act.Target.Hex())
	}
	if len(raw) < 4 {
		return malformed("raw action shorter than header", act.Target.Hex())
	}
	if raw[0] != rawActionVersion {
		return malformed("unsupported raw action version", fmt.Sprintf("%d", raw[0]))
	}
	actionID := uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
	params := raw[4:]

	switch actionID {
	case actionVaultTransfer:
		vault, ok := abiraw.Address(params, 0)
		if !ok {
			return malformed("vaultTransfer missing vault", "")
		}
		isDeposit, ok := abiraw.Bool(params, 1)
		if !ok {
			return malformed("vaultTransfer missing direction", "")
		}
		amount, ok := abiraw.Uint64(params, 2)
		if !ok {
			return malformed("vaultTransfer amount does not fit uint64", "")
		}
		if !g.Get(KindTarget, vault) {
			return denied("native vault not whitelisted", vault.Hex())
		}
		if isDeposit && amount < minVaultDeposit {
			return denied("vault deposit below minimum", fmt.Sprintf("%d raw", amount))
		}
		return nil

	case actionUsdClassTransfer:
		// Moves value between the wallet's own spot and perp
		// sub-accounts; no external address to check.
		if _, ok := abiraw.Uint64(params, 0); !ok {
			return malformed("usdClassTransfer amount does not fit uint64", "")
		}
		if _, ok := abiraw.Bool(params, 1); !ok {
			return malformed("usdClassTransfer missing direction", "")
		}
		return nil

	case actionSpotSend:
		destination, ok := abiraw.Address(params, 0)
		if !ok {
			return malformed("spotSend missing destination", "")
		}
		if _, ok := abiraw.Uint64(params, 2); !ok {
			return malformed("spotSend amount does not fit uint64", "")
		}
		if !g.IsAllowedReceiver(destination) {
			return denied("spotSend destination not whitelisted", destination.Hex())
		}
		return nil
	}

	return unrecognized("raw action id outside allowed set", fmt.Sprintf("%d", actionID))
}
