// Package abiraw reads ABI-encoded calldata with explicit bounds checks.
//
// The guard cannot trust calldata produced by a possibly compromised
// manager key, so every read is bounds-checked and returns ok=false on
// short or inconsistent input. No panics, no reflection, no allocations
// beyond the values returned.
package abiraw

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// WordSize is the width of one static ABI slot.
const WordSize = 32

// Selector computes the 4-byte function selector for a canonical
// signature string, e.g. "transfer(address,uint256)".
func Selector(signature string) [4]byte {
	hash := crypto.Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], hash[:4])
	return sel
}

// HasSelector reports whether calldata is long enough to carry a selector.
func HasSelector(data []byte) bool {
	return len(data) >= 4
}

// Sel extracts the selector from calldata. Call HasSelector first.
func Sel(data []byte) [4]byte {
	var sel [4]byte
	copy(sel[:], data[:4])
	return sel
}

// Args strips the selector, leaving the argument region all offsets are
// relative to.
func Args(data []byte) ([]byte, bool) {
	if len(data) < 4 {
		return nil, false
	}
	return data[4:], true
}

// Word returns the i-th 32-byte slot of an argument region.
func Word(args []byte, i int) ([]byte, bool) {
	if i < 0 {
		return nil, false
	}
	end := WordSize*i + WordSize
	if end > len(args) || end < 0 {
		return nil, false
	}
	return args[WordSize*i : end], true
}

// Uint reads the i-th slot as an unsigned big integer.
func Uint(args []byte, i int) (*big.Int, bool) {
	word, ok := Word(args, i)
	if !ok {
		return nil, false
	}
	return new(big.Int).SetBytes(word), true
}

// Uint64 reads the i-th slot as a uint64, rejecting values that do not
// fit in 64 bits.
func Uint64(args []byte, i int) (uint64, bool) {
	word, ok := Word(args, i)
	if !ok {
		return 0, false
	}
	for _, b := range word[:24] {
		if b != 0 {
			return 0, false
		}
	}
	v := new(big.Int).SetBytes(word[24:])
	return v.Uint64(), true
}

// Address reads the i-th slot as an address (right-aligned in the word).
func Address(args []byte, i int) (common.Address, bool) {
	word, ok := Word(args, i)
	if !ok {
		return common.Address{}, false
	}
	return common.BytesToAddress(word[12:32]), true
}

// Bool reads the i-th slot as a boolean. Any non-zero word is true,
// matching EVM semantics.
func Bool(args []byte, i int) (bool, bool) {
	word, ok := Word(args, i)
	if !ok {
		return false, false
	}
	for _, b := range word {
		if b != 0 {
			return true, true
		}
	}
	return false, true
}

// Offset reads the i-th slot as a dynamic-data offset relative to the
// start of args and checks it stays inside the region.
func Offset(args []byte, i int) (int, bool) {
	word, ok := Word(args, i)
	if !ok {
		return 0, false
	}
	v := new(big.Int).SetBytes(word)
	if !v.IsInt64() {
		return 0, false
	}
	off := v.Int64()
	if off < 0 || off > int64(len(args)) {
		return 0, false
	}
	return int(off), true
}

// Tail slices args at a dynamic offset so nested tuples and arrays can
// be read with slot indexes relative to their own region.
func Tail(args []byte, off int) ([]byte, bool) {
	if off < 0 || off > len(args) {
		return nil, false
	}
	return args[off:], true
}

// Bytes reads a length-prefixed dynamic byte string starting at off.
func Bytes(args []byte, off int) ([]byte, bool) {
	region, ok := Tail(args, off)
	if !ok || len(region) < WordSize {
		return nil, false
	}
	n := new(big.Int).SetBytes(region[:WordSize])
	if !n.IsInt64() {
		return nil, false
	}
	length := n.Int64()
	if length < 0 || int64(len(region)-WordSize) < length {
		return nil, false
	}
	return region[WordSize : WordSize+length], true
}

// AddressArray reads a dynamic address[] starting at off.
func AddressArray(args []byte, off int) ([]common.Address, bool) {
	region, ok := Tail(args, off)
	if !ok || len(region) < WordSize {
		return nil, false
	}
	n := new(big.Int).SetBytes(region[:WordSize])
	if !n.IsInt64() {
		return nil, false
	}
	count := n.Int64()
	if count < 0 || int64(len(region)-WordSize)/WordSize < count {
		return nil, false
	}
	out := make([]common.Address, count)
	for i := int64(0); i < count; i++ {
		start := WordSize + i*WordSize
		out[i] = common.BytesToAddress(region[start+12 : start+WordSize])
	}
	return out, true
}

// BytesArray reads a dynamic bytes[] starting at off. Element offsets
// are relative to the start of the array's data area.
func BytesArray(args []byte, off int) ([][]byte, bool) {
	region, ok := Tail(args, off)
	if !ok || len(region) < WordSize {
		return nil, false
	}
	n := new(big.Int).SetBytes(region[:WordSize])
	if !n.IsInt64() {
		return nil, false
	}
	count := n.Int64()
	if count < 0 || int64(len(region)-WordSize)/WordSize < count {
		return nil, false
	}
	base := region[WordSize:]
	out := make([][]byte, count)
	for i := int64(0); i < count; i++ {
		elemOff, ok := Offset(base, int(i))
		if !ok {
			return nil, false
		}
		elem, ok := Bytes(base, elemOff)
		if !ok {
			return nil, false
		}
		out[i] = elem
	}
	return out, true
}
