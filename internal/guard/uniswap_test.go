package guard

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestV2SwapPathChecks(t *testing.T) {
	g, _ := newTestGuard(t)

	swap := func(sel [4]byte, path []common.Address, to common.Address) Action {
		return Action{Target: testV2Router, Data: encodeV2Swap(sel, path, to)}
	}

	// Direct pair with both tokens listed.
	act := swap(selSwapExactTokensForTokens, []common.Address{testTokenA, testTokenC}, testCustody)
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("direct pair rejected: %v", err)
	}

	// Fee-on-transfer variant is equally accepted.
	act = swap(selSwapExactTokensForTokensFoT, []common.Address{testTokenA, testTokenC}, testCustody)
	if err := g.ValidateCall(testManager, act, false); err != nil {
		t.Fatalf("fee-on-transfer variant rejected: %v", err)
	}

	// Multi-hop with an unlisted intermediate token fails on the leg.
	act = swap(selSwapExactTokensForTokens, []common.Address{testTokenA, testTokenB, testTokenC}, testCustody)
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)

	// Any-asset lifts the path check but never the receiver check.
	if err := g.ValidateCall(testManager, act, true); err != nil {
		t.Fatalf("any-asset multi-hop rejected: %v", err)
	}
	act = swap(selSwapExactTokensForTokens, []common.Address{testTokenA, testTokenC}, testAttacker)
	wantKind(t, g.ValidateCall(testManager, act, true), PermissionDenied)

	// Single-token path is malformed, not vacuously allowed.
	act = swap(selSwapExactTokensForTokens, []common.Address{testTokenA}, testCustody)
	wantKind(t, g.ValidateCall(testManager, act, false), MalformedAction)
}

func TestV2RouterRejectsOtherSelectors(t *testing.T) {
	g, _ := newTestGuard(t)
	addLiquidity := Action{
		Target: testV2Router,
		Data: cat(
			[]byte{0xe8, 0xe3, 0x37, 0x00}, // addLiquidity
			addrWord(testTokenA), addrWord(testTokenC),
			uintWord(1), uintWord(1), uintWord(1), uintWord(1),
			addrWord(testCustody), uintWord(1_999_999_999),
		),
	}
	wantKind(t, g.ValidateCall(testManager, addLiquidity, false), UnrecognizedAction)
}

func TestV3ExactInputBothShapes(t *testing.T) {
	g, _ := newTestGuard(t)
	path := packV3Path([]common.Address{testTokenA, testTokenC})

	withDeadline := Action{
		Target: testV3Router,
		Data:   encodeV3ExactInput(selExactInput, path, testCustody, true),
	}
	if err := g.ValidateCall(testManager, withDeadline, false); err != nil {
		t.Fatalf("deadline shape rejected: %v", err)
	}

	noDeadline := Action{
		Target: testV3Router,
		Data:   encodeV3ExactInput(selExactInputNoDeadline, path, testCustody, false),
	}
	if err := g.ValidateCall(testManager, noDeadline, false); err != nil {
		t.Fatalf("deadline-less shape rejected: %v", err)
	}
}

func TestV3PathLegChecks(t *testing.T) {
	g, _ := newTestGuard(t)

	// Two pools A->B->C: B is unlisted, the first pool already fails.
	path := packV3Path([]common.Address{testTokenA, testTokenB, testTokenC})
	act := Action{
		Target: testV3Router,
		Data:   encodeV3ExactInput(selExactInput, path, testCustody, true),
	}
	wantKind(t, g.ValidateCall(testManager, act, false), PermissionDenied)

	// Any-asset lifts token checks, receiver still enforced.
	if err := g.ValidateCall(testManager, act, true); err != nil {
		t.Fatalf("any-asset v3 swap rejected: %v", err)
	}
	act.Data = encodeV3ExactInput(selExactInput, path, testAttacker, true)
	wantKind(t, g.ValidateCall(testManager, act, true), PermissionDenied)
}

func TestV3PathLengthValidation(t *testing.T) {
	g, _ := newTestGuard(t)

	cases := []struct {
		name string
		path []byte
	}{
		{"empty path", nil},
		{"single token no pool", testTokenA.Bytes()},
		{"truncated fee", append(testTokenA.Bytes(), 0x00, 0x0b)},
		{"ragged tail", append(packV3Path([]common.Address{testTokenA, testTokenC}), 0xff)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			act := Action{
				Target: testV3Router,
				Data:   encodeV3ExactInput(selExactInput, tc.path, testCustody, true),
			}
			wantKind(t, g.ValidateCall(testManager, act, false), MalformedAction)
		})
	}
}

func TestV3RouterRejectsOtherSelectors(t *testing.T) {
	g, _ := newTestGuard(t)
	act := Action{
		Target: testV3Router,
		Data:   cat([]byte{0x04, 0xe4, 0x5a, 0xaf}, uintWord(0)), // exactInputSingle
	}
	wantKind(t, g.ValidateCall(testManager, act, false), UnrecognizedAction)
}
