// Package chain provides the read-only RPC access the guard needs:
// ERC-20 balance reads for balance-envelope snapshots.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const erc20ABI = `[
	{"inputs":[{"name":"account","type":"address"}],
	 "name":"balanceOf","outputs":[{"type":"uint256"}],
	 "stateMutability":"view","type":"function"}
]`

// Client wraps an eth RPC connection with the minimal ERC-20 surface.
type Client struct {
	eth   *ethclient.Client
	erc20 abi.ABI
}

// Dial connects to an RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	return New(eth)
}

// New wraps an existing connection.
func New(eth *ethclient.Client) (*Client, error) {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 ABI: %w", err)
	}
	return &Client{eth: eth, erc20: parsed}, nil
}

// BalanceOf reads token.balanceOf(holder) at the latest block.
func (c *Client) BalanceOf(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	data, err := c.erc20.Pack("balanceOf", holder)
	if err != nil {
		return nil, fmt.Errorf("pack balanceOf: %w", err)
	}
	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("call balanceOf on %s: %w", token.Hex(), err)
	}
	results, err := c.erc20.Unpack("balanceOf", out)
	if err != nil || len(results) != 1 {
		return nil, fmt.Errorf("unpack balanceOf on %s: %w", token.Hex(), err)
	}
	balance, ok := results[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf on %s: unexpected result type", token.Hex())
	}
	return balance, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}
