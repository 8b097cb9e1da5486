package guard

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/audit"
	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

// Balance-envelope validator for opaque aggregator swaps.
//
// Aggregator calldata comes in too many incompatible shapes to decode
// safely, so instead of proving what the payload does, the guard
// bounds what it is allowed to have done: snapshot both token balances
// before the call, re-read them after, and require the output grew by
// at least the declared minimum while the input shrank by no more than
// the declared amount. The guarantee is deliberately weaker than the
// decode-and-check validators: worst case loss is capped at the
// declared input per action.

// SwapEnvelope is the pre-phase snapshot plus the declared bounds. Its
// lifetime is exactly one action's execution window.
type SwapEnvelope struct {
	Router   common.Address
	TokenIn  common.Address
	TokenOut common.Address
	Receiver common.Address

	AmountIn     *big.Int
	MinAmountOut *big.Int

	preBalanceIn  *big.Int
	preBalanceOut *big.Int
	settled       bool
}

// BeginAggregatorSwap runs the pre-phase: every party to the swap must
// be independently whitelisted, a zero declared minimum is rejected
// outright (it would make the whole check vacuous), and both balances
// of the custody wallet are snapshotted.
//
// The returned envelope must be settled with SettleAggregatorSwap
// immediately after the underlying call executes. If the call fails or
// is skipped, the envelope must be discarded unsettled.
func (g *Guard) BeginAggregatorSwap(
	ctx context.Context,
	sender common.Address,
	router common.Address,
	tokenIn, tokenOut common.Address,
	receiver common.Address,
	amountIn, minAmountOut *big.Int,
) (*SwapEnvelope, error) {
	if g.reader == nil || g.custody == (common.Address{}) {
		return nil, unconfigured("balance reader not configured", router.Hex())
	}
	if !g.IsAllowedSender(sender) {
		return nil, denied("sender not whitelisted", sender.Hex())
	}
	if fam, ok := g.familyOf(router); !ok || fam != FamilyAggregator {
		return nil, denied("aggregator router not whitelisted", router.Hex())
	}
	if !g.IsAllowedAsset(tokenIn) {
		return nil, denied("input token not whitelisted", tokenIn.Hex())
	}
	if !g.IsAllowedAsset(tokenOut) {
		return nil, denied("output token not whitelisted", tokenOut.Hex())
	}
	if !g.IsAllowedReceiver(receiver) {
		return nil, denied("receiver not whitelisted", receiver.Hex())
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, violation("declared input amount must be positive", "amountIn")
	}
	if minAmountOut == nil || minAmountOut.Sign() <= 0 {
		return nil, violation("zero minimum output makes the envelope vacuous", "minAmountOut")
	}

	preIn, err := g.reader.BalanceOf(ctx, tokenIn, g.custody)
	if err != nil {
		return nil, fmt.Errorf("snapshot input balance: %w", err)
	}
	preOut, err := g.reader.BalanceOf(ctx, tokenOut, g.custody)
	if err != nil {
		return nil, fmt.Errorf("snapshot output balance: %w", err)
	}

	return &SwapEnvelope{
		Router:        router,
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		Receiver:      receiver,
		AmountIn:      new(big.Int).Set(amountIn),
		MinAmountOut:  new(big.Int).Set(minAmountOut),
		preBalanceIn:  preIn,
		preBalanceOut: preOut,
	}, nil
}

// SettleAggregatorSwap runs the post-phase against fresh balances and
// records the measured deltas in the audit trail. Measured, not
// declared: the payload is opaque, so only observed balance movement
// is trustworthy. An envelope settles at most once.
func (g *Guard) SettleAggregatorSwap(ctx context.Context, env *SwapEnvelope) error {
	if env == nil {
		return violation("nil envelope", "")
	}
	if env.settled {
		return violation("envelope already settled", env.Router.Hex())
	}
	env.settled = true

	postIn, err := g.reader.BalanceOf(ctx, env.TokenIn, g.custody)
	if err != nil {
		return fmt.Errorf("re-read input balance: %w", err)
	}
	postOut, err := g.reader.BalanceOf(ctx, env.TokenOut, g.custody)
	if err != nil {
		return fmt.Errorf("re-read output balance: %w", err)
	}

	gained := new(big.Int).Sub(postOut, env.preBalanceOut)
	spent := new(big.Int).Sub(env.preBalanceIn, postIn)

	auditErr := g.emit(audit.Event{
		Kind: "envelope",
		Key:  env.Router.Hex(),
		Note: fmt.Sprintf(
			"in=%s out=%s declaredIn=%s declaredMinOut=%s spent=%s gained=%s",
			env.TokenIn.Hex(), env.TokenOut.Hex(),
			env.AmountIn, env.MinAmountOut, spent, gained,
		),
	})
	if auditErr != nil {
		return auditErr
	}

	if gained.Cmp(env.MinAmountOut) < 0 {
		telemetry.Warnf("envelope violation on %s: gained %s < declared min %s",
			env.Router.Hex(), gained, env.MinAmountOut)
		return violation(
			fmt.Sprintf("output below declared minimum: gained %s, declared %s", gained, env.MinAmountOut),
			env.TokenOut.Hex(),
		)
	}
	if spent.Cmp(env.AmountIn) > 0 {
		telemetry.Warnf("envelope violation on %s: spent %s > declared %s",
			env.Router.Hex(), spent, env.AmountIn)
		return violation(
			fmt.Sprintf("input overspent: spent %s, declared %s", spent, env.AmountIn),
			env.TokenIn.Hex(),
		)
	}
	return nil
}
