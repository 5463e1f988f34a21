package fmcos

import (
	"crypto/des"
	"fmt"
)

// MACSize is the length of every MAC and TAC on the wire.
const MACSize = 4

var zeroIV = make([]byte, BlockSize)

// DESMAC is the single DES CBC-MAC: pad, chain from iv, keep the first n bytes.
// A nil iv means eight zero bytes.
func DESMAC(data, key, iv []byte, n int) ([]byte, error) {
	if len(key) != 8 {
		return nil, invalidf("DES MAC key must be 8 bytes, got %d", len(key))
	}
	if iv == nil {
		iv = zeroIV
	}
	if len(iv) != BlockSize {
		return nil, invalidf("MAC IV must be 8 bytes, got %d", len(iv))
	}
	if n < 1 || n > BlockSize {
		return nil, invalidf("MAC length %d out of range", n)
	}

	block, err := des.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("building MAC cipher: %w", err)
	}

	val := make([]byte, BlockSize)
	copy(val, iv)
	padded := Pad(data, BlockSize)
	for i := 0; i < len(padded); i += BlockSize {
		for j := 0; j < BlockSize; j++ {
			val[j] ^= padded[i+j]
		}
		block.Encrypt(val, val)
	}
	return val[:n], nil
}

// TDESMAC is the FMCOS 3DES MAC: a full DES MAC under the left half, then decrypt
// with the right half and encrypt with the left half.
func TDESMAC(data, key, iv []byte, n int) ([]byte, error) {
	if len(key) != 16 {
		return nil, invalidf("3DES MAC key must be 16 bytes, got %d", len(key))
	}
	if n < 1 || n > BlockSize {
		return nil, invalidf("MAC length %d out of range", n)
	}

	val, err := DESMAC(data, key[:8], iv, BlockSize)
	if err != nil {
		return nil, err
	}

	left, err := des.NewCipher(key[:8])
	if err != nil {
		return nil, err
	}
	right, err := des.NewCipher(key[8:])
	if err != nil {
		return nil, err
	}
	right.Decrypt(val, val)
	left.Encrypt(val, val)
	return val[:n], nil
}

// MAC picks the DES MAC for 8-byte keys and the 3DES MAC otherwise.
func MAC(data, key, iv []byte) ([]byte, error) {
	if len(key) == 8 {
		return DESMAC(data, key, iv, MACSize)
	}
	return TDESMAC(data, key, iv, MACSize)
}

// XORHalves folds a 16-byte key into 8 bytes. It yields the TAC key from the internal
// key and the PIN reset MAC key from the change-PIN key.
func XORHalves(key []byte) ([]byte, error) {
	if len(key) != 16 {
		return nil, invalidf("key must be 16 bytes to fold, got %d", len(key))
	}
	out := make([]byte, 8)
	for i := range out {
		out[i] = key[i] ^ key[i+8]
	}
	return out, nil
}
