package helpers

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Wei to ETH formatting
func FormatEth(wei *big.Int) string {
	if wei == nil {
		return "0"
	}

	ethValue := new(big.Float).SetInt(wei)
	ethValue.Quo(ethValue, big.NewFloat(1e18))

	f, _ := ethValue.Float64()
	if f < 0.0001 {
		return fmt.Sprintf("%.8f", f)
	} else if f < 1 {
		return fmt.Sprintf("%.6f", f)
	} else if f < 100 {
		return fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%.2f", f)
}

// Token amount formatting with decimals
func FormatTokenAmount(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}

	divisor := new(big.Float).SetFloat64(1)
	for i := uint8(0); i < decimals; i++ {
		divisor.Mul(divisor, big.NewFloat(10))
	}

	result := new(big.Float).SetInt(amount)
	result.Quo(result, divisor)

	f, _ := result.Float64()
	if decimals <= 2 {
		return fmt.Sprintf("%.0f", f)
	} else if decimals <= 8 {
		return fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%.6f", f)
}

// Format address for display
func FormatAddress(addr common.Address) string {
	hex := addr.Hex()
	if len(hex) > 10 {
		return hex[:6] + "..." + hex[len(hex)-4:]
	}
	return hex
}

// Format transaction hash for display
func FormatTxHash(hash common.Hash) string {
	hex := hash.Hex()
	if len(hex) > 12 {
		return hex[:10] + "..." + hex[len(hex)-6:]
	}
	return hex
}
