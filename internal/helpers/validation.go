package helpers

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ValidateAddress checks if an address is valid
func ValidateAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address format: %s", address)
	}

	addr := common.HexToAddress(address)

	// Check if it's the zero address
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("zero address not allowed")
	}

	return addr, nil
}

// ParseCalldata decodes 0x-prefixed hex calldata.
func ParseCalldata(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid calldata hex: %w", err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("calldata shorter than a selector: %d bytes", len(data))
	}
	return data, nil
}

// ParseSelector decodes a 4-byte selector from hex like "a9059cbb".
func ParseSelector(s string) ([4]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	var sel [4]byte
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 4 {
		return sel, fmt.Errorf("invalid selector: %q", s)
	}
	copy(sel[:], b)
	return sel, nil
}

// ParseCallSite splits a "0xtarget#aabbccdd" pair into its parts.
func ParseCallSite(s string) (common.Address, [4]byte, error) {
	parts := strings.SplitN(s, "#", 2)
	if len(parts) != 2 {
		return common.Address{}, [4]byte{}, fmt.Errorf("call site must be 0xtarget#selector: %q", s)
	}
	addr, err := ValidateAddress(parts[0])
	if err != nil {
		return common.Address{}, [4]byte{}, err
	}
	sel, err := ParseSelector(parts[1])
	if err != nil {
		return common.Address{}, [4]byte{}, err
	}
	return addr, sel, nil
}

// ValidatePrivateKey validates and returns the private key
func ValidatePrivateKey(privateKeyHex string) (*ecdsa.PrivateKey, common.Address, error) {
	if privateKeyHex == "" {
		return nil, common.Address{}, fmt.Errorf("private key is empty")
	}

	// Remove 0x prefix if present
	privateKeyHex = strings.TrimPrefix(privateKeyHex, "0x")

	// Check length (64 hex chars = 32 bytes)
	if len(privateKeyHex) != 64 {
		return nil, common.Address{}, fmt.Errorf("invalid private key length")
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("invalid private key: %w", err)
	}

	publicKey := privateKey.Public()
	publicKeyECDSA, ok := publicKey.(*ecdsa.PublicKey)
	if !ok {
		return nil, common.Address{}, fmt.Errorf("invalid public key type")
	}

	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	return privateKey, address, nil
}
