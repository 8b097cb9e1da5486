package guard

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"
)

// ERC-4626 tokenized vault and presigned-order validators.

// validateERC4626 authorizes the four standard vault entry points.
// Deposit-side calls name a share receiver; withdraw-side calls also
// name the share owner being debited, which must be a whitelisted
// sender (the custody wallet itself in practice).
func (g *Guard) validateERC4626(act Action) error {
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("vault calldata too short", act.Target.Hex())
	}

	switch abiraw.Sel(act.Data) {
	case selDeposit, selMint:
		// deposit(assets, receiver) / mint(shares, receiver)
		receiver, ok := abiraw.Address(args, 1)
		if !ok {
			return malformed("vault call missing receiver", act.Target.Hex())
		}
		if !g.IsAllowedReceiver(receiver) {
			return denied("receiver not whitelisted", receiver.Hex())
		}
		return nil

	case selWithdraw, selRedeem:
		// withdraw(assets, receiver, owner) / redeem(shares, receiver, owner)
		receiver, ok := abiraw.Address(args, 1)
		if !ok {
			return malformed("vault call missing receiver", act.Target.Hex())
		}
		owner, ok := abiraw.Address(args, 2)
		if !ok {
			return malformed("vault call missing owner", act.Target.Hex())
		}
		if !g.IsAllowedReceiver(receiver) {
			return denied("receiver not whitelisted", receiver.Hex())
		}
		if !g.IsAllowedSender(owner) {
			return denied("share owner not whitelisted", owner.Hex())
		}
		return nil
	}

	return unrecognized("unsupported vault call", act.Target.Hex())
}

// orderUidLength is the fixed CoW order UID layout:
// digest(32) | owner(20) | validTo(4).
const orderUidLength = 56

// validatePreSignature authorizes setPreSignature(orderUid, signed) on
// a settlement contract. The order terms live off-chain, but the UID
// embeds the order owner; requiring the owner to be a whitelisted
// sender pins every presigned order to the custody wallet. Both
// signing and un-signing (cancellation) are allowed.
func (g *Guard) validatePreSignature(act Action) error {
	if abiraw.Sel(act.Data) != selSetPreSignature {
		return unrecognized("unsupported settlement call", act.Target.Hex())
	}
	args, ok := abiraw.Args(act.Data)
	if !ok {
		return malformed("setPreSignature calldata too short", act.Target.Hex())
	}
	uidOff, ok := abiraw.Offset(args, 0)
	if !ok {
		return malformed("order uid offset out of range", act.Target.Hex())
	}
	uid, ok := abiraw.Bytes(args, uidOff)
	if !ok {
		return malformed("order uid does not decode", act.Target.Hex())
	}
	if len(uid) != orderUidLength {
		return malformed("order uid must be 56 bytes", act.Target.Hex())
	}
	owner := common.BytesToAddress(uid[32:52])
	if !g.IsAllowedSender(owner) {
		return denied("order owner not whitelisted", owner.Hex())
	}
	return nil
}
