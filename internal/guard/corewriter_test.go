package guard

import (
	"testing"
)

func coreAction(version byte, actionID uint32, params []byte) Action {
	return Action{Target: testCoreWriter, Data: encodeRawAction(version, actionID, params)}
}

func TestCoreWriterVaultTransfer(t *testing.T) {
	g, _ := newTestGuard(t)

	deposit := func(amount int64) []byte {
		return cat(addrWord(testNativeVlt), boolWord(true), uintWord(amount))
	}

	// Deposit at the minimum passes.
	act := coreAction(rawActionVersion, actionVaultTransfer, deposit(minVaultDeposit))
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("minimum deposit rejected: %v", err)
	}

	// Below the minimum the deposit would strand; refuse it.
	act = coreAction(rawActionVersion, actionVaultTransfer, deposit(minVaultDeposit-1))
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)

	// Withdrawals have no minimum.
	act = coreAction(rawActionVersion, actionVaultTransfer,
		cat(addrWord(testNativeVlt), boolWord(false), uintWord(1)))
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("small withdrawal rejected: %v", err)
	}

	// Unlisted vault.
	act = coreAction(rawActionVersion, actionVaultTransfer,
		cat(addrWord(testAttacker), boolWord(true), uintWord(minVaultDeposit)))
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)
}

func TestCoreWriterSpotSend(t *testing.T) {
	g, _ := newTestGuard(t)

	params := cat(addrWord(testCustody), uintWord(0), uintWord(1_000_000))
	act := coreAction(rawActionVersion, actionSpotSend, params)
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("spot send to custody rejected: %v", err)
	}

	params = cat(addrWord(testAttacker), uintWord(0), uintWord(1_000_000))
	act = coreAction(rawActionVersion, actionSpotSend, params)
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)
}

func TestCoreWriterUsdClassTransfer(t *testing.T) {
	g, _ := newTestGuard(t)

	// Internal spot/perp rebalance names no external address.
	act := coreAction(rawActionVersion, actionUsdClassTransfer,
		cat(uintWord(1_000_000), boolWord(true)))
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("usd class transfer rejected: %v", err)
	}
}

func TestCoreWriterRejectsOutsideClosedSet(t *testing.T) {
	g, _ := newTestGuard(t)

	// Action IDs outside the allowed set, including limit orders (1)
	// and token delegation (3).
	for _, id := range []uint32{0, 1, 3, 4, 5, 8, 0xffffff} {
		act := coreAction(rawActionVersion, id, uintWord(0))
		wantKind(t, g.ValidateCall(testManager, act, false), UnrecognizedAction)
	}
}

func TestCoreWriterHeaderValidation(t *testing.T) {
	g, _ := newTestGuard(t)

	// Wrong version byte.
	act := coreAction(2, actionUsdClassTransfer, cat(uintWord(1), boolWord(true)))
	wantKind(t, g.ValidateCall(testManager, act, false), MalformedAction)

	// Raw action shorter than the 4-byte header.
	short := cat(selSendRawAction[:], uintWord(32), uintWord(2), pad32([]byte{0x01, 0x00}))
	wantKind(t, g.ValidateCall(testManager, Action{Target: testCoreWriter, Data: short}, false), MalformedAction)
}

func TestCoreWriterRejectsOtherSelectors(t *testing.T) {
	g, _ := newTestGuard(t)
	act := Action{Target: testCoreWriter, Data: cat([]byte{0x11, 0x22, 0x33, 0x44}, uintWord(0))}
	wantKind(t, g.ValidateCall(testManager, act, false), UnrecognizedAction)
}
