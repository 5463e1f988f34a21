package fmcos

import "fmt"

// FileType is the type byte of a CREATE FILE data field.
type FileType byte

const (
	FileDirectory      FileType = 0x38 // MF or DF
	FileBinary         FileType = 0x28
	FileFixedRecord    FileType = 0x2A
	FileVariableRecord FileType = 0x2C
	FileLoop           FileType = 0x2E
	FileWallet         FileType = 0x2F // EDEP / EP
	FileKeyfile        FileType = 0x3F
)

var fileTypeNames = map[FileType]string{
	FileDirectory:      "Directory",
	FileBinary:         "Binary",
	FileFixedRecord:    "FixedRecord",
	FileVariableRecord: "VariableRecord",
	FileLoop:           "Loop",
	FileWallet:         "Wallet",
	FileKeyfile:        "Keyfile",
}

func (t FileType) String() string {
	if name, ok := fileTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("FileType(0x%02X)", byte(t))
}

// IsRecordFile reports whether the file is addressed by record number.
func (t FileType) IsRecordFile() bool {
	return t == FileFixedRecord || t == FileVariableRecord || t == FileLoop
}

// KeyType is the type byte of a WRITE KEY data field.
type KeyType byte

const (
	KeyDESEncrypt     KeyType = 0x30
	KeyDESDecrypt     KeyType = 0x31
	KeyDESMAC         KeyType = 0x32
	KeyInternal       KeyType = 0x34
	KeyLineProtection KeyType = 0x36
	KeyUnlockPIN      KeyType = 0x37
	KeyChangePIN      KeyType = 0x38 // reload PIN
	KeyExternalAuth   KeyType = 0x39
	KeyPIN            KeyType = 0x3A
	KeyOverdraftLimit KeyType = 0x3C
	KeyDebit          KeyType = 0x3D // circle / withdrawal
	KeyPurchase       KeyType = 0x3E
	KeyCredit         KeyType = 0x3F // load
)

var keyTypeNames = map[KeyType]string{
	KeyDESEncrypt:     "DESEncrypt",
	KeyDESDecrypt:     "DESDecrypt",
	KeyDESMAC:         "DESMAC",
	KeyInternal:       "Internal",
	KeyLineProtection: "LineProtection",
	KeyUnlockPIN:      "UnlockPIN",
	KeyChangePIN:      "ChangePIN",
	KeyExternalAuth:   "ExternalAuth",
	KeyPIN:            "PIN",
	KeyOverdraftLimit: "OverdraftLimit",
	KeyDebit:          "Debit",
	KeyPurchase:       "Purchase",
	KeyCredit:         "Credit",
}

func (k KeyType) String() string {
	if name, ok := keyTypeNames[k]; ok {
		return name
	}
	return fmt.Sprintf("KeyType(0x%02X)", byte(k))
}

// KeyAdd is the WRITE KEY P1 value that installs a new key. Updating an existing key
// passes its key type instead.
const KeyAdd byte = 0x01

// Protection selects the line protection applied to a command data field.
type Protection byte

const (
	ProtectNone       Protection = 0x00
	ProtectMAC        Protection = 0x80
	ProtectEncryptMAC Protection = 0xC0
)

func (p Protection) String() string {
	switch p {
	case ProtectNone:
		return "None"
	case ProtectMAC:
		return "MAC"
	case ProtectEncryptMAC:
		return "Encrypt+MAC"
	default:
		return fmt.Sprintf("Protection(0x%02X)", byte(p))
	}
}

// ParseProtection maps the names used in profiles and flags.
func ParseProtection(s string) (Protection, error) {
	switch s {
	case "", "none":
		return ProtectNone, nil
	case "mac":
		return ProtectMAC, nil
	case "enc", "encrypt", "encrypt+mac":
		return ProtectEncryptMAC, nil
	}
	return ProtectNone, fmt.Errorf("%w: unknown protection %q", ErrInvalidArgument, s)
}

// BalanceType selects the purse. It doubles as the EDEP file id.
type BalanceType byte

const (
	Passbook BalanceType = 0x01 // ED
	Wallet   BalanceType = 0x02 // EP
)

func (b BalanceType) String() string {
	switch b {
	case Passbook:
		return "Passbook"
	case Wallet:
		return "Wallet"
	default:
		return fmt.Sprintf("BalanceType(0x%02X)", byte(b))
	}
}

// ParseBalanceType accepts "passbook" and "wallet".
func ParseBalanceType(s string) (BalanceType, error) {
	switch s {
	case "passbook", "ed":
		return Passbook, nil
	case "wallet", "ep":
		return Wallet, nil
	}
	return 0, fmt.Errorf("%w: unknown balance type %q", ErrInvalidArgument, s)
}

// TransactionType is the transaction type byte folded into MAC and TAC inputs.
type TransactionType byte

const (
	TxCreditPassbook   TransactionType = 0x01
	TxCreditWallet     TransactionType = 0x02
	TxDebit            TransactionType = 0x03
	TxWithdraw         TransactionType = 0x04
	TxPurchasePassbook TransactionType = 0x05
	TxPurchaseWallet   TransactionType = 0x06
	TxOverdraft        TransactionType = 0x07
	TxCompound         TransactionType = 0x09
)

var transactionTypeNames = map[TransactionType]string{
	TxCreditPassbook:   "CreditPassbook",
	TxCreditWallet:     "CreditWallet",
	TxDebit:            "Debit",
	TxWithdraw:         "Withdraw",
	TxPurchasePassbook: "PurchasePassbook",
	TxPurchaseWallet:   "PurchaseWallet",
	TxOverdraft:        "Overdraft",
	TxCompound:         "Compound",
}

func (t TransactionType) String() string {
	if name, ok := transactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TransactionType(0x%02X)", byte(t))
}

// BlockMode is the APPLICATION BLOCK P2.
type BlockMode byte

const (
	BlockTemporary BlockMode = 0x00
	BlockPermanent BlockMode = 0x01
)

func (m BlockMode) String() string {
	if m == BlockPermanent {
		return "Permanent"
	}
	return "Temporary"
}
