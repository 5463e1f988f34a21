package fmcos

import (
	"bytes"
	"crypto/cipher"
	"crypto/des"
	"fmt"
)

// KEY INTERPRETATION:
// FMCOS key slots hold 8, 16 or 24 bytes, and repeated 8-byte segments mean a weaker
// cipher. The rules are fixed by how the card stores keys:
//
//	 8 bytes  K1          -> DES(K1)
//	16 bytes  K1 K1       -> DES(K1)
//	          K1 K2       -> 3DES(K1 K2 K1)
//	24 bytes  K1 K1 K1    -> DES(K1)
//	          K1 K1 K2    -> 3DES(K1 K2 K1), i.e. bytes 8..24
//	          K1 K2 K2    -> 3DES(K1 K2 K1), i.e. bytes 0..16
//	          K1 K2 K1    -> 3DES(K1 K2 K1), i.e. bytes 0..16
//	          K1 K2 K3    -> 3DES(K1 K2 K3)

// CipherKind is the algorithm chosen for a key.
type CipherKind int

const (
	SingleDES CipherKind = iota
	TwoKeyTDES
	ThreeKeyTDES
)

func (k CipherKind) String() string {
	switch k {
	case SingleDES:
		return "DES"
	case TwoKeyTDES:
		return "3DES-2K"
	case ThreeKeyTDES:
		return "3DES-3K"
	default:
		return fmt.Sprintf("CipherKind(%d)", int(k))
	}
}

// Cipher is an ECB cipher built from FMCOS key material.
type Cipher struct {
	kind  CipherKind
	block cipher.Block
}

// SelectCipher applies the key interpretation rules.
func SelectCipher(key []byte) (*Cipher, error) {
	kind, material, err := classifyKey(key)
	if err != nil {
		return nil, err
	}

	var block cipher.Block
	if kind == SingleDES {
		block, err = des.NewCipher(material)
	} else {
		block, err = des.NewTripleDESCipher(material)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s cipher: %w", kind, err)
	}
	return &Cipher{kind: kind, block: block}, nil
}

// classifyKey returns the kind and the bytes to hand to crypto/des (8 or 24 bytes).
func classifyKey(key []byte) (CipherKind, []byte, error) {
	switch len(key) {
	case 8:
		return SingleDES, key, nil
	case 16:
		k1, k2 := key[:8], key[8:]
		if bytes.Equal(k1, k2) {
			return SingleDES, k1, nil
		}
		return TwoKeyTDES, expandTwoKey(key), nil
	case 24:
		k1, k2, k3 := key[:8], key[8:16], key[16:]
		switch {
		case bytes.Equal(k1, k2) && bytes.Equal(k2, k3):
			return SingleDES, k1, nil
		case bytes.Equal(k1, k2):
			return TwoKeyTDES, expandTwoKey(key[8:]), nil
		case bytes.Equal(k2, k3), bytes.Equal(k1, k3):
			return TwoKeyTDES, expandTwoKey(key[:16]), nil
		}
		return ThreeKeyTDES, key, nil
	}
	return 0, nil, invalidf("key must be 8, 16 or 24 bytes, got %d", len(key))
}

func expandTwoKey(k []byte) []byte {
	out := make([]byte, 0, 24)
	out = append(out, k[:16]...)
	return append(out, k[:8]...)
}

// Kind reports the algorithm in use.
func (c *Cipher) Kind() CipherKind {
	return c.kind
}

// Encrypt runs ECB over block aligned data.
func (c *Cipher) Encrypt(data []byte) ([]byte, error) {
	return c.ecb(data, c.block.Encrypt)
}

// Decrypt runs ECB decryption over block aligned data.
func (c *Cipher) Decrypt(data []byte) ([]byte, error) {
	return c.ecb(data, c.block.Decrypt)
}

// EncryptPadded pads data (ISO7816) and encrypts it.
func (c *Cipher) EncryptPadded(data []byte) []byte {
	out, _ := c.Encrypt(Pad(data, BlockSize))
	return out
}

// DecryptUnpad decrypts data and removes the ISO7816 padding.
func (c *Cipher) DecryptUnpad(data []byte) ([]byte, error) {
	plain, err := c.Decrypt(data)
	if err != nil {
		return nil, err
	}
	return Unpad(plain, BlockSize)
}

func (c *Cipher) ecb(data []byte, fn func(dst, src []byte)) ([]byte, error) {
	if len(data)%BlockSize != 0 {
		return nil, fmt.Errorf("ECB input of %d bytes is not block aligned", len(data))
	}
	out := make([]byte, len(data))
	for i := 0; i < len(data); i += BlockSize {
		fn(out[i:i+BlockSize], data[i:i+BlockSize])
	}
	return out, nil
}

// Encrypt pads data and encrypts it under key.
func Encrypt(data, key []byte) ([]byte, error) {
	c, err := SelectCipher(key)
	if err != nil {
		return nil, err
	}
	return c.EncryptPadded(data), nil
}

// Decrypt decrypts data under key and strips the padding.
func Decrypt(data, key []byte) ([]byte, error) {
	c, err := SelectCipher(key)
	if err != nil {
		return nil, err
	}
	return c.DecryptUnpad(data)
}
