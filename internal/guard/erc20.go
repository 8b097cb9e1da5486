package guard

import "github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"

// Plain ERC-20 calls. The target itself is the token, so the asset
// check applies to the target and the argument addresses are the
// destinations being authorized.

// validateTransfer authorizes transfer(to, amount): the token must be a
// whitelisted asset (unless anyAsset) and the destination a whitelisted
// receiver. The receiver check is never bypassed.
func (g *Guard) validateTransfer(act Action, anyAsset bool) error {
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("transfer calldata too short", act.Target.Hex())
	}
	to, ok := abiraw.Address(args, 0)
	if !ok {
		return malformed("transfer missing destination", act.Target.Hex())
	}
	if !anyAsset && !g.IsAllowedAsset(act.Target) {
		return denied("token not whitelisted", act.Target.Hex())
	}
	if !g.IsAllowedReceiver(to) {
		return denied("receiver not whitelisted", to.Hex())
	}
	return nil
}

// validateApprove authorizes approve(spender, amount): the token must
// be a whitelisted asset (unless anyAsset) and the spender a
// whitelisted router, market or vault. Approvals to arbitrary
// addresses would let a compromised key drain the wallet later, so the
// spender check is never bypassed.
func (g *Guard) validateApprove(act Action, anyAsset bool) error {
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("approve calldata too short", act.Target.Hex())
	}
	spender, ok := abiraw.Address(args, 0)
	if !ok {
		return malformed("approve missing spender", act.Target.Hex())
	}
	if !anyAsset && !g.IsAllowedAsset(act.Target) {
		return denied("token not whitelisted", act.Target.Hex())
	}
	if !g.Get(KindTarget, spender) {
		return denied("approval destination not whitelisted", spender.Hex())
	}
	return nil
}
