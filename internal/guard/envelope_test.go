package guard

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

// fakeBalances serves custody balances per token and lets tests move
// them between the begin and settle phases.
type fakeBalances struct {
	balances map[common.Address]*big.Int
}

func newFakeBalances() *fakeBalances {
	return &fakeBalances{balances: make(map[common.Address]*big.Int)}
}

func (f *fakeBalances) set(token common.Address, v int64) {
	f.balances[token] = big.NewInt(v)
}

func (f *fakeBalances) BalanceOf(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func newEnvelopeFixture(t *testing.T) (*Guard, *fakeBalances, *recordingSink) {
	t.Helper()
	sink := &recordingSink{}
	reader := newFakeBalances()
	g := New(sink, reader, testCustody)
	for _, step := range []error{
		g.WhitelistSender(testManager, "manager"),
		g.WhitelistAsset(testTokenA, "token A"),
		g.WhitelistAsset(testTokenC, "token C"),
		g.WhitelistReceiver(testCustody, "custody"),
		g.WhitelistAggregator(testAggregator, "aggregator"),
	} {
		if step != nil {
			t.Fatalf("fixture setup: %v", step)
		}
	}
	reader.set(testTokenA, 10_000)
	reader.set(testTokenC, 0)
	return g, reader, sink
}

func begin(t *testing.T, g *Guard, amountIn, minOut int64) (*SwapEnvelope, error) {
	t.Helper()
	return g.BeginAggregatorSwap(context.Background(), testManager, testAggregator,
		testTokenA, testTokenC, testCustody, big.NewInt(amountIn), big.NewInt(minOut))
}

func TestEnvelopeAcceptsHonestSwap(t *testing.T) {
	g, reader, _ := newEnvelopeFixture(t)

	env, err := begin(t, g, 1000, 900)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	reader.set(testTokenA, 9_000) // spent exactly 1000
	reader.set(testTokenC, 950)   // gained above the minimum

	if err := g.SettleAggregatorSwap(context.Background(), env); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

func TestEnvelopeRejectsShortOutput(t *testing.T) {
	g, reader, _ := newEnvelopeFixture(t)

	env, err := begin(t, g, 1000, 900)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	reader.set(testTokenA, 9_000)
	reader.set(testTokenC, 899) // one unit short

	wantKind(t, g.SettleAggregatorSwap(context.Background(), env), EnvelopeViolation)
}

func TestEnvelopeRejectsOverspend(t *testing.T) {
	g, reader, _ := newEnvelopeFixture(t)

	env, err := begin(t, g, 1000, 900)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	reader.set(testTokenA, 8_999) // spent 1001 > declared 1000
	reader.set(testTokenC, 950)

	wantKind(t, g.SettleAggregatorSwap(context.Background(), env), EnvelopeViolation)
}

func TestEnvelopeRejectsZeroMinimum(t *testing.T) {
	g, _, _ := newEnvelopeFixture(t)

	_, err := begin(t, g, 1000, 0)
	wantKind(t, err, EnvelopeViolation)

	_, err = begin(t, g, 0, 900)
	wantKind(t, err, EnvelopeViolation)
}

func TestEnvelopeBeginWhitelistChecks(t *testing.T) {
	g, _, _ := newEnvelopeFixture(t)
	ctx := context.Background()

	cases := []struct {
		name                                       string
		sender, router, tokenIn, tokenOut, receiver common.Address
	}{
		{"unknown sender", testAttacker, testAggregator, testTokenA, testTokenC, testCustody},
		{"unlisted router", testManager, testV2Router, testTokenA, testTokenC, testCustody},
		{"unlisted input token", testManager, testAggregator, testTokenB, testTokenC, testCustody},
		{"unlisted output token", testManager, testAggregator, testTokenA, testTokenB, testCustody},
		{"unlisted receiver", testManager, testAggregator, testTokenA, testTokenC, testAttacker},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.BeginAggregatorSwap(ctx, tc.sender, tc.router,
				tc.tokenIn, tc.tokenOut, tc.receiver, big.NewInt(1000), big.NewInt(900))
			wantKind(t, err, PermissionDenied)
		})
	}
}

func TestEnvelopeRequiresReader(t *testing.T) {
	g, _ := newTestGuard(t) // nil reader fixture
	_, err := begin(t, g, 1000, 900)
	wantKind(t, err, ConfigurationMissing)
}

func TestEnvelopeSettlesOnce(t *testing.T) {
	g, reader, _ := newEnvelopeFixture(t)

	env, err := begin(t, g, 1000, 900)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	reader.set(testTokenA, 9_000)
	reader.set(testTokenC, 950)

	if err := g.SettleAggregatorSwap(context.Background(), env); err != nil {
		t.Fatalf("first settle: %v", err)
	}
	wantKind(t, g.SettleAggregatorSwap(context.Background(), env), EnvelopeViolation)
}

func TestEnvelopeAuditsMeasuredDeltas(t *testing.T) {
	g, reader, sink := newEnvelopeFixture(t)

	env, err := begin(t, g, 1000, 900)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	reader.set(testTokenA, 9_100)
	reader.set(testTokenC, 500) // violation, but the audit still records

	if err := g.SettleAggregatorSwap(context.Background(), env); err == nil {
		t.Fatal("expected violation")
	}

	last := sink.events[len(sink.events)-1]
	if last.Kind != "envelope" {
		t.Fatalf("last audit event kind = %q, want envelope", last.Kind)
	}
	if !strings.Contains(last.Note, "spent=900") || !strings.Contains(last.Note, "gained=500") {
		t.Errorf("audit note missing measured deltas: %q", last.Note)
	}
}
