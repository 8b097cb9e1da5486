// Package guard is the call-validation engine that sits between an
// asset manager's signing key and the custody wallet.
//
// Every attempted action (target, calldata, optional sub-actions) is
// decoded and checked against per-category whitelists and
// protocol-specific invariants before the caller is allowed to execute
// it. The engine is pure decision logic: it never moves funds and
// never mutates its own state while validating. A compromised manager
// key can therefore attempt anything but complete only actions whose
// destinations, assets and protocols were pre-approved.
package guard

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/abiraw"
	"github.com/hedeqiang/web3-ethereum-defi/internal/audit"
)

// Family tags a whitelisted contract with the protocol validator that
// owns calls to it.
type Family int

const (
	FamilyUniswapV2 Family = iota + 1 // constant-product swap router
	FamilyUniswapV3                   // concentrated-liquidity swap router
	FamilyGmx                         // perpetuals multicall router
	FamilyCoreWriter                  // native-vault raw action entry point
	FamilyAggregator                  // opaque aggregator, balance envelope only
	FamilyERC4626                     // tokenized vault
	FamilyCowSettlement               // presigned order settlement
)

func (f Family) String() string {
	switch f {
	case FamilyUniswapV2:
		return "uniswap-v2"
	case FamilyUniswapV3:
		return "uniswap-v3"
	case FamilyGmx:
		return "gmx"
	case FamilyCoreWriter:
		return "corewriter"
	case FamilyAggregator:
		return "aggregator"
	case FamilyERC4626:
		return "erc4626"
	case FamilyCowSettlement:
		return "cow-settlement"
	default:
		return "unknown"
	}
}

// Action is one attempted operation. Data carries the 4-byte selector
// followed by the ABI-encoded arguments. A non-empty Sub makes the
// action a batch: the container itself carries no payload and every
// sub-action must pass for the batch to pass.
type Action struct {
	Target common.Address
	Data   []byte
	Sub    []Action
}

// IsBatch reports whether the action is a container of sub-actions.
func (a Action) IsBatch() bool { return len(a.Sub) > 0 }

// AuditSink receives structured audit events. Implemented by
// audit.Trail; tests substitute an in-memory recorder.
type AuditSink interface {
	Record(ev audit.Event) (audit.Record, error)
}

// BalanceReader reads ERC-20 balances for the balance-envelope
// validator. Implemented by chain.Client.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error)
}

// Guard owns the whitelist store and dispatches validation. The store
// is mutated only through the administrative surface; validators read
// it under a shared lock.
type Guard struct {
	mu        sync.RWMutex
	senders   map[common.Address]bool
	assets    map[common.Address]bool
	receivers map[common.Address]bool
	targets   map[common.Address]bool
	callSites map[CallSite]bool

	families     map[common.Address]Family
	routerVaults map[common.Address]common.Address

	sink    AuditSink
	reader  BalanceReader
	custody common.Address
}

// New builds an empty guard. The sink is mandatory: mutations that
// cannot be audited are refused. Reader and custody wallet are needed
// only by the balance-envelope validator and may be zero otherwise.
func New(sink AuditSink, reader BalanceReader, custody common.Address) *Guard {
	return &Guard{
		senders:      make(map[common.Address]bool),
		assets:       make(map[common.Address]bool),
		receivers:    make(map[common.Address]bool),
		targets:      make(map[common.Address]bool),
		callSites:    make(map[CallSite]bool),
		families:     make(map[common.Address]Family),
		routerVaults: make(map[common.Address]common.Address),
		sink:         sink,
		reader:       reader,
		custody:      custody,
	}
}

// Permission callback surface. These reflect ground truth from the
// store; the any-asset bypass is applied at validator call sites, not
// here, so audit always sees genuine membership.

// IsAllowedSender reports whether addr may submit actions.
func (g *Guard) IsAllowedSender(addr common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.senders[addr]
}

// IsAllowedAsset reports whether a token is tradeable.
func (g *Guard) IsAllowedAsset(addr common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.assets[addr]
}

// IsAllowedReceiver reports whether addr may receive outbound value.
func (g *Guard) IsAllowedReceiver(addr common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.receivers[addr]
}

func (g *Guard) familyOf(target common.Address) (Family, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if !g.targets[target] {
		return 0, false
	}
	fam, ok := g.families[target]
	return fam, ok
}

func (g *Guard) gmxOrderVault(router common.Address) (common.Address, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	vault, ok := g.routerVaults[router]
	return vault, ok && vault != (common.Address{})
}

// ValidateCall is the single inbound entry point. It checks the sender
// once, then dispatches the action (or each sub-action of a batch, in
// declared order, short-circuiting on the first failure). anyAsset
// suppresses asset/market membership checks for this evaluation only;
// it is supplied by the trusted caller and never decoded from payload.
//
// A nil return authorizes the caller to execute the action. Any error
// aborts the whole attempt; there is no partial authorization.
func (g *Guard) ValidateCall(sender common.Address, act Action, anyAsset bool) error {
	if !g.IsAllowedSender(sender) {
		return denied("sender not whitelisted", sender.Hex())
	}
	return g.validateAction(act, anyAsset)
}

func (g *Guard) validateAction(act Action, anyAsset bool) error {
	if act.IsBatch() {
		for _, sub := range act.Sub {
			if err := g.validateAction(sub, anyAsset); err != nil {
				return err
			}
		}
		return nil
	}

	if !abiraw.HasSelector(act.Data) {
		return malformed("calldata shorter than a selector", act.Target.Hex())
	}
	sel := abiraw.Sel(act.Data)

	// Plain ERC-20 calls are matched by selector on any token target.
	switch sel {
	case selTransfer:
		return g.validateTransfer(act, anyAsset)
	case selApprove:
		return g.validateApprove(act, anyAsset)
	}

	// Protocol families are matched by target.
	if fam, ok := g.familyOf(act.Target); ok {
		switch fam {
		case FamilyUniswapV2:
			return g.validateUniswapV2(act, anyAsset)
		case FamilyUniswapV3:
			return g.validateUniswapV3(act, anyAsset)
		case FamilyGmx:
			return g.validateGmxMulticall(act, anyAsset)
		case FamilyCoreWriter:
			return g.validateCoreWriter(act)
		case FamilyERC4626:
			return g.validateERC4626(act)
		case FamilyCowSettlement:
			return g.validatePreSignature(act)
		case FamilyAggregator:
			// Opaque payloads cannot be decode-checked; the caller
			// must go through BeginAggregatorSwap/settle instead.
			return unrecognized("aggregator calls validate only through the balance envelope", act.Target.Hex())
		}
	}

	// Last resort: an exactly whitelisted (target, selector) pair.
	if g.GetCallSite(CallSite{Target: act.Target, Selector: sel}) {
		return nil
	}

	return unrecognized("unknown action", CallSite{Target: act.Target, Selector: sel}.String())
}
