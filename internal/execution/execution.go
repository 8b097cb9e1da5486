// Package execution wraps validate-then-act as one unit: the guard is
// pure decision logic, so the state change happens here and only after
// a full accept.
package execution

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/hedeqiang/web3-ethereum-defi/internal/guard"
	"github.com/hedeqiang/web3-ethereum-defi/internal/helpers"
	"github.com/hedeqiang/web3-ethereum-defi/internal/telemetry"
)

// Notifier is told about blocked actions. Implemented by alerts.Bot;
// may be nil.
type Notifier interface {
	BlockedAction(sender, target common.Address, reason error)
}

// Executor validates actions against the guard and forwards accepted
// ones on-chain from the manager key.
type Executor struct {
	client     *ethclient.Client
	guard      *guard.Guard
	privateKey *ecdsa.PrivateKey
	walletAddr common.Address
	chainID    *big.Int
	notifier   Notifier
	gasLimit   uint64
}

// New builds an executor bound to one manager key.
func New(
	client *ethclient.Client,
	g *guard.Guard,
	privateKey *ecdsa.PrivateKey,
	walletAddr common.Address,
	notifier Notifier,
) (*Executor, error) {
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		return nil, fmt.Errorf("get chain ID: %w", err)
	}
	return &Executor{
		client:     client,
		guard:      g,
		privateKey: privateKey,
		walletAddr: walletAddr,
		chainID:    chainID,
		notifier:   notifier,
		gasLimit:   uint64(600000),
	}, nil
}

// Perform validates one action (or batch) and, on accept, sends it as
// a transaction from the manager key. On reject the transaction is
// never built.
func (e *Executor) Perform(ctx context.Context, act guard.Action, anyAsset bool, value *big.Int) (common.Hash, error) {
	if err := e.guard.ValidateCall(e.walletAddr, act, anyAsset); err != nil {
		e.blocked(act.Target, err)
		return common.Hash{}, err
	}
	if act.IsBatch() {
		// Batches authorize as a unit but execute call-by-call.
		var last common.Hash
		for i, sub := range act.Sub {
			hash, err := e.send(ctx, sub.Target, sub.Data, nil)
			if err != nil {
				return common.Hash{}, fmt.Errorf("batch entry %d: %w", i, err)
			}
			last = hash
		}
		return last, nil
	}
	return e.send(ctx, act.Target, act.Data, value)
}

// AggregatorSwap describes an opaque aggregator call along with the
// declared bounds the balance envelope enforces.
type AggregatorSwap struct {
	Router   common.Address
	Data     []byte
	TokenIn  common.Address
	TokenOut common.Address
	Receiver common.Address

	AmountIn     *big.Int
	MinAmountOut *big.Int
}

// PerformAggregatorSwap runs the full envelope sequence: pre-check and
// snapshot, send and wait for inclusion, post-check against fresh
// balances. If the underlying call fails the post-check never runs.
func (e *Executor) PerformAggregatorSwap(ctx context.Context, swap AggregatorSwap) (common.Hash, error) {
	env, err := e.guard.BeginAggregatorSwap(
		ctx, e.walletAddr, swap.Router,
		swap.TokenIn, swap.TokenOut, swap.Receiver,
		swap.AmountIn, swap.MinAmountOut,
	)
	if err != nil {
		e.blocked(swap.Router, err)
		return common.Hash{}, err
	}

	hash, err := e.send(ctx, swap.Router, swap.Data, nil)
	if err != nil {
		return common.Hash{}, err
	}
	if err := e.waitMined(ctx, hash); err != nil {
		return hash, err
	}

	if err := e.guard.SettleAggregatorSwap(ctx, env); err != nil {
		e.blocked(swap.Router, err)
		return hash, err
	}
	return hash, nil
}

func (e *Executor) send(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.walletAddr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest gas price: %w", err)
	}
	if value == nil {
		value = big.NewInt(0)
	}

	tx := types.NewTransaction(nonce, to, value, e.gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), e.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign transaction: %w", err)
	}

	// The whole engine keys authorization on the manager address, so a
	// key/address mix-up must stop here, before broadcast.
	signer, err := types.Sender(types.LatestSignerForChainID(e.chainID), signedTx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("recover signer: %w", err)
	}
	if signer != e.walletAddr {
		return common.Hash{}, fmt.Errorf("signer %s does not match manager wallet %s", signer.Hex(), e.walletAddr.Hex())
	}

	if err := e.client.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("send transaction: %w", err)
	}

	telemetry.Infof("[execution] sent: to=%s, tx=%s", helpers.FormatAddress(to), helpers.FormatTxHash(signedTx.Hash()))
	return signedTx.Hash(), nil
}

// waitMined polls for the receipt and fails on a reverted transaction.
func (e *Executor) waitMined(ctx context.Context, hash common.Hash) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		receipt, err := e.client.TransactionReceipt(ctx, hash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("transaction %s reverted", hash.Hex())
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Executor) blocked(target common.Address, err error) {
	telemetry.Warnf("[execution] blocked: target=%s, reason=%v", helpers.FormatAddress(target), err)
	if e.notifier != nil {
		e.notifier.BlockedAction(e.walletAddr, target, err)
	}
}
