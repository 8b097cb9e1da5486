package guard

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestValidateCallRejectsUnknownSender(t *testing.T) {
	g, _ := newTestGuard(t)
	act := Action{Target: testTokenA, Data: encodeTransfer(testCustody, 100)}
	err := g.ValidateCall(testAttacker, act, false)
	wantKind(t, err, PermissionDenied)
}

func TestValidateCallRejectsUnknownAction(t *testing.T) {
	g, _ := newTestGuard(t)
	// A selector nobody registered, against a token address.
	act := Action{Target: testTokenA, Data: cat([]byte{0xde, 0xad, 0xbe, 0xef}, uintWord(1))}
	err := g.ValidateCall(testManager, act, false)
	wantKind(t, err, UnrecognizedAction)
}

func TestValidateCallRejectsShortCalldata(t *testing.T) {
	g, _ := newTestGuard(t)
	act := Action{Target: testTokenA, Data: []byte{0xa9, 0x05}}
	err := g.ValidateCall(testManager, act, false)
	wantKind(t, err, MalformedAction)
}

func TestValidateCallAllowsExactCallSite(t *testing.T) {
	g, _ := newTestGuard(t)
	custom := common.HexToAddress("0xddd0000000000000000000000000000000000001")
	sel := [4]byte{0x12, 0x34, 0x56, 0x78}
	if err := g.SetCallSite(CallSite{Target: custom, Selector: sel}, true, "ops approved"); err != nil {
		t.Fatalf("SetCallSite: %v", err)
	}

	act := Action{Target: custom, Data: cat(sel[:], uintWord(1))}
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("whitelisted call site rejected: %v", err)
	}

	// Same target, different selector: no match.
	other := Action{Target: custom, Data: cat([]byte{0x12, 0x34, 0x56, 0x79}, uintWord(1))}
	wantKind(t, g.ValidateCall(testManager, other, false), UnrecognizedAction)
}

func TestValidateCallBatchShortCircuits(t *testing.T) {
	g, _ := newTestGuard(t)
	good := Action{Target: testTokenA, Data: encodeTransfer(testCustody, 100)}
	bad := Action{Target: testTokenA, Data: encodeTransfer(testAttacker, 100)}

	batch := Action{Sub: []Action{good, bad, good}}
	err := g.ValidateCall(testManager, batch, false)
	wantKind(t, err, PermissionDenied)

	allGood := Action{Sub: []Action{good, good}}
	if err := g.ValidateCall(testManager, allGood, false); err != nil {
		t.Fatalf("all-good batch rejected: %v", err)
	}
}

func TestValidateCallRejectsDirectAggregatorCall(t *testing.T) {
	g, _ := newTestGuard(t)
	act := Action{Target: testAggregator, Data: cat([]byte{0x01, 0x02, 0x03, 0x04}, uintWord(1))}
	err := g.ValidateCall(testManager, act, false)
	wantKind(t, err, UnrecognizedAction)
}

func TestTransferChecks(t *testing.T) {
	g, _ := newTestGuard(t)

	cases := []struct {
		name     string
		token    common.Address
		to       common.Address
		anyAsset bool
		wantKind ErrorKind // 0 means allowed
	}{
		{"allowed token to custody", testTokenA, testCustody, false, 0},
		{"unlisted token", testTokenB, testCustody, false, PermissionDenied},
		{"unlisted token with any-asset", testTokenB, testCustody, true, 0},
		{"receiver check survives any-asset", testTokenA, testAttacker, true, PermissionDenied},
		{"unlisted receiver", testTokenA, testAttacker, false, PermissionDenied},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			act := Action{Target: tc.token, Data: encodeTransfer(tc.to, 100)}
			err := g.ValidateCall(testManager, act, tc.anyAsset)
			if tc.wantKind == 0 {
				if err != nil {
					t.Fatalf("expected allow, got %v", err)
				}
				return
			}
			wantKind(t, err, tc.wantKind)
		})
	}
}

func TestApproveChecks(t *testing.T) {
	g, _ := newTestGuard(t)

	// Approval to a whitelisted router passes.
	act := Action{Target: testTokenA, Data: encodeApprove(testV2Router, 1_000_000)}
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("approve to router rejected: %v", err)
	}

	// Approval to an arbitrary address fails even with any-asset.
	act = Action{Target: testTokenA, Data: encodeApprove(testAttacker, 1_000_000)}
	wantKind(t, g.ValidateCall(testManager, act, true), PermissionDenied)

	// Unlisted token fails without any-asset, passes with it.
	act = Action{Target: testTokenB, Data: encodeApprove(testV2Router, 1)}
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)
	if err := g.ValidateCall(testManager, act, true); err != nil {
		t.Fatalf("any-asset approve rejected: %v", err)
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := denied("receiver not whitelisted", testAttacker.Hex())
	if !errors.Is(err, &Error{Kind: PermissionDenied}) {
		t.Error("errors.Is failed to match on kind")
	}
	if errors.Is(err, &Error{Kind: MalformedAction}) {
		t.Error("errors.Is matched the wrong kind")
	}
	if KindOf(err) != PermissionDenied {
		t.Errorf("KindOf = %v, want PermissionDenied", KindOf(err))
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("KindOf of a foreign error should be 0")
	}
}
