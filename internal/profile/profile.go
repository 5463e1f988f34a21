// Package profile loads the card profile: the keys, terminal id, PIN and application
// layout a personalised FMCOS card is expected to carry.
package profile

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// HexBytes is a byte string written as hex in YAML. Spaces are ignored.
type HexBytes []byte

// UnmarshalYAML implements yaml.Unmarshaler.
func (h *HexBytes) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	if err := h.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	s := strings.ReplaceAll(string(text), " ", "")
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("%q is not hex: %w", s, err)
	}
	*h = b
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (h HexBytes) MarshalYAML() (interface{}, error) {
	return strings.ToUpper(hex.EncodeToString(h)), nil
}

type Profile struct {
	Terminal    HexBytes    `yaml:"terminal"`
	KeyID       uint8       `yaml:"key_id"`
	Application Application `yaml:"application"`
	PIN         PIN         `yaml:"pin"`
	Keys        Keys        `yaml:"keys"`
}

type Application struct {
	FileID     uint16   `yaml:"file_id"`
	Space      uint16   `yaml:"space"`
	CreatePerm uint8    `yaml:"create_perm"`
	ErasePerm  uint8    `yaml:"erase_perm"`
	AppID      uint8    `yaml:"app_id"`
	Name       string   `yaml:"name"`
	KeyFile    KeyFile  `yaml:"keyfile"`
	LoopFiles  LoopFile `yaml:"loop_files"`
}

type KeyFile struct {
	FileID uint16 `yaml:"file_id"`
	Space  uint16 `yaml:"space"`
	SID    uint8  `yaml:"sid"`
	Perm   uint8  `yaml:"perm"`
}

type LoopFile struct {
	Wallet   uint8  `yaml:"wallet"`
	Passbook uint8  `yaml:"passbook"`
	Size     uint16 `yaml:"size"`
}

type PIN struct {
	KeyID        uint8    `yaml:"key_id"`
	Value        HexBytes `yaml:"value"`
	ErrorCounter uint8    `yaml:"error_counter"`
}

type Keys struct {
	ExternalAuth   HexBytes `yaml:"external_auth"`
	Internal       HexBytes `yaml:"internal"`
	LineProtection HexBytes `yaml:"line_protection"`
	UnlockPIN      HexBytes `yaml:"unlock_pin"`
	ChangePIN      HexBytes `yaml:"change_pin"`
	Purchase       HexBytes `yaml:"purchase"`
	Credit         HexBytes `yaml:"credit"`
	Debit          HexBytes `yaml:"debit"`
	Overdraft      HexBytes `yaml:"overdraft"`
	// DES keys for INTERNAL AUTHENTICATE, optional.
	DESEncrypt HexBytes `yaml:"des_encrypt"`
	DESDecrypt HexBytes `yaml:"des_decrypt"`
	DESMAC     HexBytes `yaml:"des_mac"`
}

// Load reads and validates a profile. Unknown fields are errors.
func Load(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return Parse(content)
}

// Parse decodes and validates a profile document.
func Parse(content []byte) (*Profile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)

	var p Profile
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse profile yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the lengths the card will insist on.
func (p *Profile) Validate() error {
	if len(p.Terminal) != 6 {
		return fmt.Errorf("profile.terminal must be 6 bytes, got %d", len(p.Terminal))
	}
	if n := len(p.Application.Name); n == 0 || n > 16 {
		return fmt.Errorf("profile.application.name must be 1 to 16 bytes, got %d", n)
	}
	if n := len(p.PIN.Value); n < 2 || n > 6 {
		return fmt.Errorf("profile.pin.value must be 2 to 6 bytes, got %d", n)
	}

	sixteen := map[string]HexBytes{
		"internal":   p.Keys.Internal,
		"unlock_pin": p.Keys.UnlockPIN,
		"change_pin": p.Keys.ChangePIN,
		"purchase":   p.Keys.Purchase,
		"credit":     p.Keys.Credit,
		"debit":      p.Keys.Debit,
		"overdraft":  p.Keys.Overdraft,
	}
	for name, key := range sixteen {
		if len(key) != 16 {
			return fmt.Errorf("profile.keys.%s must be 16 bytes, got %d", name, len(key))
		}
	}

	for name, key := range map[string]HexBytes{
		"external_auth":   p.Keys.ExternalAuth,
		"line_protection": p.Keys.LineProtection,
	} {
		if len(key) != 8 && len(key) != 16 {
			return fmt.Errorf("profile.keys.%s must be 8 or 16 bytes, got %d", name, len(key))
		}
	}

	for name, key := range map[string]HexBytes{
		"des_encrypt": p.Keys.DESEncrypt,
		"des_decrypt": p.Keys.DESDecrypt,
		"des_mac":     p.Keys.DESMAC,
	} {
		switch len(key) {
		case 0, 8, 16, 24:
		default:
			return fmt.Errorf("profile.keys.%s must be 8, 16 or 24 bytes, got %d", name, len(key))
		}
	}
	return nil
}

// Marshal renders the profile as YAML.
func (p *Profile) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(p); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
