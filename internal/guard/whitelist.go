package guard

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hedeqiang/web3-ethereum-defi/internal/audit"
	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

// Kind names a whitelist category. Entries are never physically
// deleted: disabling writes false so an entry's history stays
// queryable and each state change leaves an audit record.
type Kind int

const (
	KindSender Kind = iota + 1
	KindAsset
	KindReceiver
	KindCallSite
	KindTarget // routers, markets and vaults share one category
)

func (k Kind) String() string {
	switch k {
	case KindSender:
		return "sender"
	case KindAsset:
		return "asset"
	case KindReceiver:
		return "receiver"
	case KindCallSite:
		return "callsite"
	case KindTarget:
		return "target"
	default:
		return "unknown"
	}
}

// CallSite is an exact (target, selector) pair.
type CallSite struct {
	Target   common.Address
	Selector [4]byte
}

func (c CallSite) String() string {
	return fmt.Sprintf("%s#%x", c.Target.Hex(), c.Selector)
}

// SetEntry flips one whitelist entry and emits an audit record.
// Flipping an entry to the state it is already in is a no-op for the
// store but still audited (the trail is the record of intent, not of
// change). The caller is responsible for restricting access to this
// surface.
func (g *Guard) SetEntry(kind Kind, key common.Address, enabled bool, note string) error {
	g.mu.Lock()
	switch kind {
	case KindSender:
		g.senders[key] = enabled
	case KindAsset:
		g.assets[key] = enabled
	case KindReceiver:
		g.receivers[key] = enabled
	case KindTarget:
		g.targets[key] = enabled
	default:
		g.mu.Unlock()
		return fmt.Errorf("set entry: kind %s does not take a bare address key", kind)
	}
	g.mu.Unlock()
	return g.emit(audit.Event{
		Kind:    "whitelist",
		Key:     kind.String() + ":" + key.Hex(),
		Enabled: enabled,
		Note:    note,
	})
}

// Get reports the current state of one entry. Absent keys read false.
func (g *Guard) Get(kind Kind, key common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	switch kind {
	case KindSender:
		return g.senders[key]
	case KindAsset:
		return g.assets[key]
	case KindReceiver:
		return g.receivers[key]
	case KindTarget:
		return g.targets[key]
	default:
		return false
	}
}

// SetCallSite whitelists (or revokes) one exact (target, selector) pair.
func (g *Guard) SetCallSite(site CallSite, enabled bool, note string) error {
	g.mu.Lock()
	g.callSites[site] = enabled
	g.mu.Unlock()
	return g.emit(audit.Event{
		Kind:    "whitelist",
		Key:     "callsite:" + site.String(),
		Enabled: enabled,
		Note:    note,
	})
}

// GetCallSite reports whether an exact call site is whitelisted.
func (g *Guard) GetCallSite(site CallSite) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.callSites[site]
}

// WhitelistSender allows addr to submit actions for validation.
func (g *Guard) WhitelistSender(addr common.Address, note string) error {
	return g.SetEntry(KindSender, addr, true, note)
}

// RemoveSender revokes a sender.
func (g *Guard) RemoveSender(addr common.Address, note string) error {
	return g.SetEntry(KindSender, addr, false, note)
}

// WhitelistAsset allows a token to appear in swap paths, transfers and
// collateral positions.
func (g *Guard) WhitelistAsset(addr common.Address, note string) error {
	return g.SetEntry(KindAsset, addr, true, note)
}

// RemoveAsset revokes an asset.
func (g *Guard) RemoveAsset(addr common.Address, note string) error {
	return g.SetEntry(KindAsset, addr, false, note)
}

// WhitelistReceiver allows addr as a destination for outbound value.
func (g *Guard) WhitelistReceiver(addr common.Address, note string) error {
	return g.SetEntry(KindReceiver, addr, true, note)
}

// RemoveReceiver revokes a receiver.
func (g *Guard) RemoveReceiver(addr common.Address, note string) error {
	return g.SetEntry(KindReceiver, addr, false, note)
}

// registerTarget binds a contract to a protocol family and enables it
// as a target in one step. All protocol whitelisting goes through here.
func (g *Guard) registerTarget(addr common.Address, fam Family, note string) error {
	g.mu.Lock()
	g.families[addr] = fam
	g.targets[addr] = true
	g.mu.Unlock()
	return g.emit(audit.Event{
		Kind:    "whitelist",
		Key:     fmt.Sprintf("target:%s:%s", fam, addr.Hex()),
		Enabled: true,
		Note:    note,
	})
}

// WhitelistUniswapV2Router enables a constant-product router.
func (g *Guard) WhitelistUniswapV2Router(router common.Address, note string) error {
	return g.registerTarget(router, FamilyUniswapV2, note)
}

// WhitelistUniswapV3Router enables a concentrated-liquidity router.
func (g *Guard) WhitelistUniswapV3Router(router common.Address, note string) error {
	return g.registerTarget(router, FamilyUniswapV3, note)
}

// WhitelistGmxRouter enables a perpetuals exchange router. The order
// vault must be configured separately with ConfigureGmxOrderVault
// before any multicall through the router validates.
func (g *Guard) WhitelistGmxRouter(router common.Address, note string) error {
	return g.registerTarget(router, FamilyGmx, note)
}

// ConfigureGmxOrderVault binds a perpetuals router to the single vault
// address that must receive every outbound transfer routed through it.
func (g *Guard) ConfigureGmxOrderVault(router, vault common.Address, note string) error {
	g.mu.Lock()
	g.routerVaults[router] = vault
	g.mu.Unlock()
	return g.emit(audit.Event{
		Kind:    "router-config",
		Key:     fmt.Sprintf("%s->%s", router.Hex(), vault.Hex()),
		Enabled: vault != (common.Address{}),
		Note:    note,
	})
}

// RemoveGmxRouter disables a perpetuals router and clears its order
// vault in the same operation, so a later re-enable cannot pick up a
// stale destination.
func (g *Guard) RemoveGmxRouter(router common.Address, note string) error {
	g.mu.Lock()
	g.targets[router] = false
	delete(g.routerVaults, router)
	g.mu.Unlock()
	return g.emit(audit.Event{
		Kind:    "whitelist",
		Key:     "target:" + router.Hex(),
		Enabled: false,
		Note:    note,
	})
}

// WhitelistCoreWriter enables the native-vault system entry point.
func (g *Guard) WhitelistCoreWriter(addr common.Address, note string) error {
	return g.registerTarget(addr, FamilyCoreWriter, note)
}

// WhitelistAggregator enables an opaque aggregator router. Calls to it
// validate only through the balance envelope, never through ValidateCall.
func (g *Guard) WhitelistAggregator(router common.Address, note string) error {
	return g.registerTarget(router, FamilyAggregator, note)
}

// WhitelistERC4626Vault enables a tokenized vault for deposit/withdraw.
func (g *Guard) WhitelistERC4626Vault(vault common.Address, note string) error {
	return g.registerTarget(vault, FamilyERC4626, note)
}

// WhitelistCowSettlement enables a presigned-order settlement contract.
func (g *Guard) WhitelistCowSettlement(settlement common.Address, note string) error {
	return g.registerTarget(settlement, FamilyCowSettlement, note)
}

// emit writes one audit event; mutations fail if they cannot be audited.
func (g *Guard) emit(ev audit.Event) error {
	if g.sink == nil {
		return fmt.Errorf("audit sink not configured")
	}
	if _, err := g.sink.Record(ev); err != nil {
		return fmt.Errorf("emit audit record: %w", err)
	}
	telemetry.Debugf("audit: %s %s enabled=%v", ev.Kind, ev.Key, ev.Enabled)
	return nil
}
