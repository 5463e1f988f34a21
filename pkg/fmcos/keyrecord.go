package fmcos

// WRITE KEY PAYLOADS:
// The data field of WRITE KEY starts with the key type byte (OR'ed with the line
// protection bits) and continues with a layout that depends on the key category:
//
//	crypto keys   30 31 32 34 3C 3D 3E 3F   usage change version algorithm key
//	external auth 39                        usage change follow-up error-counter key
//	PIN           3A                        usage EF     follow-up error-counter PIN
//	control keys  36 37 38                  usage change FF        error-counter key
//
// Each category is its own type, so a record missing a field cannot be built.

// KeyRecord is the payload of a WRITE KEY command.
type KeyRecord interface {
	// KeyType is the type byte without protection bits.
	KeyType() KeyType
	// fields returns the bytes between the type byte and the key.
	fields() []byte
	material() []byte
	validate() error
}

// pinChangeRights is the fixed change-rights byte of PIN keys.
const pinChangeRights = 0xEF

// CryptoKey covers the DES, internal, credit, debit, purchase and overdraft keys.
type CryptoKey struct {
	Type      KeyType
	Usage     byte
	Change    byte
	Version   byte
	Algorithm byte
	Key       []byte
}

// NewCryptoKey checks the type belongs to the crypto category and the key length.
func NewCryptoKey(t KeyType, usage, change, version, algorithm byte, key []byte) (*CryptoKey, error) {
	k := &CryptoKey{Type: t, Usage: usage, Change: change, Version: version, Algorithm: algorithm, Key: key}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *CryptoKey) validate() error {
	switch k.Type {
	case KeyDESEncrypt, KeyDESDecrypt, KeyDESMAC, KeyInternal,
		KeyOverdraftLimit, KeyDebit, KeyPurchase, KeyCredit:
	default:
		return invalidf("%s is not a crypto key type", k.Type)
	}
	return checkKeyLength(k.Key)
}

func (k *CryptoKey) KeyType() KeyType { return k.Type }
func (k *CryptoKey) material() []byte { return k.Key }
func (k *CryptoKey) fields() []byte {
	return []byte{k.Usage, k.Change, k.Version, k.Algorithm}
}

// ExternalAuthKey is the external authentication key (39).
type ExternalAuthKey struct {
	Usage        byte
	Change       byte
	FollowUp     byte
	ErrorCounter byte
	Key          []byte
}

// NewExternalAuthKey checks the key length.
func NewExternalAuthKey(usage, change, followUp, errorCounter byte, key []byte) (*ExternalAuthKey, error) {
	k := &ExternalAuthKey{Usage: usage, Change: change, FollowUp: followUp, ErrorCounter: errorCounter, Key: key}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *ExternalAuthKey) validate() error { return checkKeyLength(k.Key) }

func (k *ExternalAuthKey) KeyType() KeyType { return KeyExternalAuth }
func (k *ExternalAuthKey) material() []byte { return k.Key }
func (k *ExternalAuthKey) fields() []byte {
	return []byte{k.Usage, k.Change, k.FollowUp, k.ErrorCounter}
}

// PINKey is the personal PIN (3A). Its change rights are fixed by the card.
type PINKey struct {
	Usage        byte
	FollowUp     byte
	ErrorCounter byte
	PIN          []byte
}

// NewPINKey accepts PINs of 2 to 6 bytes.
func NewPINKey(usage, followUp, errorCounter byte, pin []byte) (*PINKey, error) {
	k := &PINKey{Usage: usage, FollowUp: followUp, ErrorCounter: errorCounter, PIN: pin}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *PINKey) validate() error { return checkPIN(k.PIN) }

func (k *PINKey) KeyType() KeyType { return KeyPIN }
func (k *PINKey) material() []byte { return k.PIN }
func (k *PINKey) fields() []byte {
	return []byte{k.Usage, pinChangeRights, k.FollowUp, k.ErrorCounter}
}

// ControlKey covers the line protection, unlock PIN and change PIN keys.
type ControlKey struct {
	Type         KeyType
	Usage        byte
	Change       byte
	ErrorCounter byte
	Key          []byte
}

// NewControlKey checks the type belongs to the control category and the key length.
func NewControlKey(t KeyType, usage, change, errorCounter byte, key []byte) (*ControlKey, error) {
	k := &ControlKey{Type: t, Usage: usage, Change: change, ErrorCounter: errorCounter, Key: key}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return k, nil
}

func (k *ControlKey) validate() error {
	switch k.Type {
	case KeyLineProtection, KeyUnlockPIN, KeyChangePIN:
	default:
		return invalidf("%s is not a control key type", k.Type)
	}
	return checkKeyLength(k.Key)
}

func (k *ControlKey) KeyType() KeyType { return k.Type }
func (k *ControlKey) material() []byte { return k.Key }
func (k *ControlKey) fields() []byte {
	return []byte{k.Usage, k.Change, 0xFF, k.ErrorCounter}
}

func checkPIN(pin []byte) error {
	if len(pin) < 2 || len(pin) > 6 {
		return invalidf("PIN must be 2 to 6 bytes, got %d", len(pin))
	}
	return nil
}

func checkKeyLength(key []byte) error {
	switch len(key) {
	case 8, 16, 24:
		return nil
	}
	return invalidf("key must be 8, 16 or 24 bytes, got %d", len(key))
}

// EncodeKeyRecord builds the clear WRITE KEY data field.
func EncodeKeyRecord(rec KeyRecord, prot Protection) ([]byte, error) {
	if rec == nil {
		return nil, invalidf("nil key record")
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}
	fields := rec.fields()
	key := rec.material()

	out := make([]byte, 0, 1+len(fields)+len(key))
	out = append(out, byte(rec.KeyType())|byte(prot))
	out = append(out, fields...)
	return append(out, key...), nil
}
