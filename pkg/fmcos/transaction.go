package fmcos

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gregLibert/fmcos/pkg/iso7816"
)

// PURSE TRANSACTIONS:
// Credit, debit, purchase, withdrawal and overdraft limit updates share one shape:
//
//	Idle -> Phase1Sent -> Phase1Verified -> Phase2Sent -> Complete
//	                 \              \              \
//	                  +--------------+--------------+--> Failed
//
// Phase 1 (INITIALIZE, INS 50) returns the balance, a card serial and a random. The
// host derives a process key from them, checks the card's MAC1 when there is one and
// answers with phase 2 (INS 52/54/58) carrying its own MAC. The card answers with a
// TAC that the host recomputes before trusting the new balance.
//
// The flow specific parts (parameters, response layout, MAC and TAC inputs) live in
// the flow implementations below; runFlow owns the state transitions.

// TransactionState is the progress of a two-phase flow.
type TransactionState int

const (
	StateIdle TransactionState = iota
	StatePhase1Sent
	StatePhase1Verified
	StatePhase2Sent
	StateComplete
	StateFailed
)

var stateNames = map[TransactionState]string{
	StateIdle:           "Idle",
	StatePhase1Sent:     "Phase1Sent",
	StatePhase1Verified: "Phase1Verified",
	StatePhase2Sent:     "Phase2Sent",
	StateComplete:       "Complete",
	StateFailed:         "Failed",
}

func (s TransactionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TransactionState(%d)", int(s))
}

// TransactionResult is only handed out once the TAC checked out.
type TransactionResult struct {
	Flow       string
	Type       TransactionType
	Balance    BalanceType
	Amount     uint32
	OldBalance uint32
	NewBalance uint32

	// CardSerial is the online or offline transaction counter of the card.
	CardSerial []byte
	// TerminalSerial is the 4-byte serial of purchase flows.
	TerminalSerial []byte
	// OverdraftLimit is the 3-byte limit reported in phase 1.
	OverdraftLimit []byte
	KeyVersion     byte
	Algorithm      byte

	Date []byte
	Time []byte
	MAC1 []byte
	MAC2 []byte
	// CardMAC2 is the MAC2 returned by purchase flows. It is reported, not checked.
	CardMAC2 []byte
	TAC      []byte

	State     TransactionState
	Simulated bool
}

// LoadRequest describes a credit or a debit.
type LoadRequest struct {
	Balance     BalanceType
	KeyID       byte
	Amount      uint32
	Terminal    []byte
	Key         []byte // credit or debit key
	InternalKey []byte // TAC key source, credit only
}

// PurchaseRequest describes a purchase or a cash withdrawal.
type PurchaseRequest struct {
	Balance     BalanceType
	KeyID       byte
	Amount      uint32
	Terminal    []byte
	Key         []byte // purchase key
	InternalKey []byte
	// Serial is the 4-byte terminal transaction serial. Nil draws one at random.
	Serial []byte
}

// OverdraftRequest describes an overdraft limit update.
type OverdraftRequest struct {
	KeyID       byte
	Limit       uint32
	Terminal    []byte
	Key         []byte // overdraft limit key
	InternalKey []byte
}

// flow is one kind of two-phase transaction. Process keys stay inside the flow.
type flow interface {
	name() string
	phase1() *iso7816.CommandAPDU
	verifyPhase1(data []byte, res *TransactionResult) error
	phase2(res *TransactionResult) (*iso7816.CommandAPDU, error)
	verifyPhase2(data []byte, res *TransactionResult) error
}

// Credit loads amount onto a purse.
func (s *Session) Credit(req LoadRequest) (*TransactionResult, error) {
	if err := checkPurse(req.Balance); err != nil {
		return nil, err
	}
	if err := checkTransactionKeys(req.Terminal, req.Key, req.InternalKey, true); err != nil {
		return nil, err
	}
	txType := TxCreditPassbook
	if req.Balance == Wallet {
		txType = TxCreditWallet
	}
	return s.runFlow(&loadFlow{req: req, txType: txType, p1: 0x00, ins2: iso7816.INS_CREDIT_FOR_LOAD, p1Phase2: 0x00})
}

// Debit takes amount from the passbook (online transfer).
func (s *Session) Debit(req LoadRequest) (*TransactionResult, error) {
	req.Balance = Passbook
	if err := checkTransactionKeys(req.Terminal, req.Key, nil, false); err != nil {
		return nil, err
	}
	return s.runFlow(&loadFlow{req: req, txType: TxDebit, p1: 0x05, ins2: iso7816.INS_DEBIT_FOR_PURCHASE, p1Phase2: 0x03})
}

// Purchase pays amount from the purse named in the request.
func (s *Session) Purchase(req PurchaseRequest) (*TransactionResult, error) {
	if err := checkPurse(req.Balance); err != nil {
		return nil, err
	}
	txType := TxPurchasePassbook
	if req.Balance == Wallet {
		txType = TxPurchaseWallet
	}
	return s.purchase(req, txType, 0x01, byte(req.Balance))
}

// Withdraw takes cash from the passbook.
func (s *Session) Withdraw(req PurchaseRequest) (*TransactionResult, error) {
	req.Balance = Passbook
	return s.purchase(req, TxWithdraw, 0x02, byte(Passbook))
}

// CompoundPurchase is the CAPP purchase on the wallet.
func (s *Session) CompoundPurchase(req PurchaseRequest) (*TransactionResult, error) {
	req.Balance = Wallet
	return s.purchase(req, TxCompound, 0x03, byte(Wallet))
}

func (s *Session) purchase(req PurchaseRequest, txType TransactionType, p1, p2 byte) (*TransactionResult, error) {
	if err := checkTransactionKeys(req.Terminal, req.Key, req.InternalKey, true); err != nil {
		return nil, err
	}
	serial := req.Serial
	if serial == nil {
		serial = make([]byte, 4)
		if _, err := io.ReadFull(s.cfg.Rand, serial); err != nil {
			return nil, fmt.Errorf("drawing transaction serial: %w", err)
		}
	} else if len(serial) != 4 {
		return nil, invalidf("transaction serial must be 4 bytes, got %d", len(serial))
	}
	req.Serial = serial
	return s.runFlow(&purchaseFlow{req: req, txType: txType, p1: p1, p2: p2})
}

// UpdateOverdraftLimit sets a new overdraft limit on the passbook.
func (s *Session) UpdateOverdraftLimit(req OverdraftRequest) (*TransactionResult, error) {
	if err := checkTransactionKeys(req.Terminal, req.Key, req.InternalKey, true); err != nil {
		return nil, err
	}
	if req.Limit > 0xFFFFFF {
		return nil, invalidf("overdraft limit %d does not fit 3 bytes", req.Limit)
	}
	return s.runFlow(&overdraftFlow{req: req})
}

func checkPurse(b BalanceType) error {
	if b != Passbook && b != Wallet {
		return invalidf("unknown balance type %s", b)
	}
	return nil
}

func checkTransactionKeys(terminal, key, internal []byte, needInternal bool) error {
	if len(terminal) != TerminalIDSize {
		return invalidf("terminal id must be %d bytes, got %d", TerminalIDSize, len(terminal))
	}
	if len(key) != 16 {
		return invalidf("transaction key must be 16 bytes, got %d", len(key))
	}
	if needInternal && len(internal) != 16 {
		return invalidf("internal key must be 16 bytes, got %d", len(internal))
	}
	return nil
}

func (s *Session) runFlow(f flow) (*TransactionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := &TransactionResult{Flow: f.name(), State: StateIdle}
	log := s.log.With().Str("flow", f.name()).Logger()

	fail := func(phase int, err error) (*TransactionResult, error) {
		state := res.State
		res.State = StateFailed
		log.Debug().Str("state", state.String()).Err(err).Msg("transaction failed")
		return nil, &TransactionError{Flow: f.name(), Phase: phase, State: state, Err: err}
	}

	if s.cfg.Simulation {
		res.Simulated = true
		res.State = StateComplete
		return res, nil
	}

	res.State = StatePhase1Sent
	resp, err := s.run(f.name()+" phase 1", f.phase1())
	if err != nil {
		return fail(1, err)
	}
	if err := f.verifyPhase1(resp.Data, res); err != nil {
		return fail(1, err)
	}
	res.State = StatePhase1Verified
	res.Date, res.Time = TransactionDateTime(s.cfg.Clock())
	if s.cfg.Debug {
		log.Debug().Str("state", res.State.String()).Hex("mac1", res.MAC1).Uint32("old_balance", res.OldBalance).Msg("phase 1 verified")
	}

	cmd, err := f.phase2(res)
	if err != nil {
		return fail(1, err)
	}
	res.State = StatePhase2Sent
	resp, err = s.runOnce(f.name()+" phase 2", cmd)
	if err != nil {
		return fail(2, err)
	}
	if err := f.verifyPhase2(resp.Data, res); err != nil {
		return fail(2, err)
	}
	res.State = StateComplete
	if s.cfg.Debug {
		log.Debug().Str("state", res.State.String()).Hex("mac2", res.MAC2).Hex("tac", res.TAC).Msg("transaction complete")
	}
	return res, nil
}

// processKey is the first 8 bytes of ENC(pad(input)) under the transaction key.
func processKey(input, key []byte) ([]byte, error) {
	enc, err := Encrypt(input, key)
	if err != nil {
		return nil, err
	}
	return enc[:8], nil
}

func checkMAC(op, check string, expected, actual []byte) error {
	if !bytes.Equal(expected, actual) {
		return &IntegrityError{Op: op, Check: check, Expected: expected, Actual: actual}
	}
	return nil
}

func cat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

// loadFlow is credit (INS 52) and debit (INS 54, P1 03).
//
//	phase 1 data  keyid amount(4) terminal(6)
//	phase 1 resp  balance(4) serial(2) kver algo random(4) mac1(4)
//	MAC1          balance amount type terminal
//	MAC2 input    amount type terminal date time
//	TAC           newbalance serial MAC2-input
type loadFlow struct {
	req      LoadRequest
	txType   TransactionType
	p1       byte
	ins2     iso7816.InsCode
	p1Phase2 byte

	pk     []byte
	random []byte
}

func (f *loadFlow) name() string {
	if f.txType == TxDebit {
		return "debit"
	}
	return "credit"
}

func (f *loadFlow) phase1() *iso7816.CommandAPDU {
	data := cat([]byte{f.req.KeyID}, be32(f.req.Amount), f.req.Terminal)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_INITIALIZE_TRANSACTION, f.p1, byte(f.req.Balance), data, 0x10)
}

func (f *loadFlow) verifyPhase1(data []byte, res *TransactionResult) error {
	if len(data) < 16 {
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("phase 1 answer is %d bytes, want 16", len(data))}
	}
	res.Type = f.txType
	res.Balance = f.req.Balance
	res.Amount = f.req.Amount
	res.OldBalance = binary.BigEndian.Uint32(data[0:4])
	res.CardSerial = append([]byte{}, data[4:6]...)
	res.KeyVersion = data[6]
	res.Algorithm = data[7]
	f.random = data[8:12]
	cardMAC1 := data[12:16]

	old := uint64(res.OldBalance)
	amount := uint64(f.req.Amount)
	switch {
	case f.txType == TxDebit && amount > old:
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("balance %d below amount %d", old, amount)}
	case f.txType == TxDebit:
		res.NewBalance = uint32(old - amount)
	case old+amount > 0xFFFFFFFF:
		return &ProtocolError{Op: f.name(), Reason: "new balance overflows 4 bytes"}
	default:
		res.NewBalance = uint32(old + amount)
	}

	pk, err := processKey(cat(f.random, res.CardSerial), f.req.Key)
	if err != nil {
		return err
	}
	f.pk = pk

	mac1, err := DESMAC(cat(data[0:4], be32(f.req.Amount), []byte{byte(f.txType)}, f.req.Terminal), pk, nil, MACSize)
	if err != nil {
		return err
	}
	if err := checkMAC(f.name(), "MAC1", mac1, cardMAC1); err != nil {
		return err
	}
	res.MAC1 = mac1
	return nil
}

func (f *loadFlow) mac2Input(res *TransactionResult) []byte {
	return cat(be32(f.req.Amount), []byte{byte(f.txType)}, f.req.Terminal, res.Date, res.Time)
}

func (f *loadFlow) phase2(res *TransactionResult) (*iso7816.CommandAPDU, error) {
	mac2, err := DESMAC(f.mac2Input(res), f.pk, nil, MACSize)
	if err != nil {
		return nil, err
	}
	res.MAC2 = mac2
	data := cat(res.Date, res.Time, mac2)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, f.ins2, f.p1Phase2, 0x00, data, 4), nil
}

func (f *loadFlow) verifyPhase2(data []byte, res *TransactionResult) error {
	if len(data) < MACSize {
		return &ProtocolError{Op: f.name(), Reason: "phase 2 answer carries no TAC"}
	}
	tacKey := f.pk
	if f.txType != TxDebit {
		var err error
		if tacKey, err = XORHalves(f.req.InternalKey); err != nil {
			return err
		}
	}
	tac, err := DESMAC(cat(be32(res.NewBalance), res.CardSerial, f.mac2Input(res)), tacKey, nil, MACSize)
	if err != nil {
		return err
	}
	if err := checkMAC(f.name(), "TAC", tac, data[:MACSize]); err != nil {
		return err
	}
	res.TAC = tac
	return nil
}

// purchaseFlow is purchase, withdrawal and CAPP purchase (phase 2 INS 54, P1 01).
//
//	phase 1 data  keyid amount(4) terminal(6)
//	phase 1 resp  balance(4) offline-serial(2) overdraft(3) kver algo random(4)
//	process key   ENC(random offline-serial serial[2:4])[:8]
//	MAC1          amount type terminal date time
//	phase 2 data  serial(4) date time mac1
//	phase 2 resp  TAC(4) MAC2(4)
//	TAC           amount type terminal serial date time, under the folded internal key
type purchaseFlow struct {
	req    PurchaseRequest
	txType TransactionType
	p1, p2 byte

	pk []byte
}

func (f *purchaseFlow) name() string {
	switch f.txType {
	case TxWithdraw:
		return "withdraw"
	case TxCompound:
		return "compound purchase"
	}
	return "purchase"
}

func (f *purchaseFlow) phase1() *iso7816.CommandAPDU {
	data := cat([]byte{f.req.KeyID}, be32(f.req.Amount), f.req.Terminal)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_INITIALIZE_TRANSACTION, f.p1, f.p2, data, 0x0F)
}

func (f *purchaseFlow) verifyPhase1(data []byte, res *TransactionResult) error {
	if len(data) < 15 {
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("phase 1 answer is %d bytes, want 15", len(data))}
	}
	res.Type = f.txType
	res.Balance = f.req.Balance
	res.Amount = f.req.Amount
	res.OldBalance = binary.BigEndian.Uint32(data[0:4])
	if f.req.Amount > res.OldBalance {
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("balance %d below amount %d", res.OldBalance, f.req.Amount)}
	}
	res.NewBalance = res.OldBalance - f.req.Amount
	res.CardSerial = append([]byte{}, data[4:6]...)
	res.OverdraftLimit = append([]byte{}, data[6:9]...)
	res.KeyVersion = data[9]
	res.Algorithm = data[10]
	res.TerminalSerial = f.req.Serial

	pk, err := processKey(cat(data[11:15], res.CardSerial, f.req.Serial[2:4]), f.req.Key)
	if err != nil {
		return err
	}
	f.pk = pk
	return nil
}

func (f *purchaseFlow) phase2(res *TransactionResult) (*iso7816.CommandAPDU, error) {
	mac1, err := DESMAC(cat(be32(f.req.Amount), []byte{byte(f.txType)}, f.req.Terminal, res.Date, res.Time), f.pk, nil, MACSize)
	if err != nil {
		return nil, err
	}
	res.MAC1 = mac1
	data := cat(f.req.Serial, res.Date, res.Time, mac1)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_DEBIT_FOR_PURCHASE, 0x01, 0x00, data, 8), nil
}

func (f *purchaseFlow) verifyPhase2(data []byte, res *TransactionResult) error {
	if len(data) < 2*MACSize {
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("phase 2 answer is %d bytes, want 8", len(data))}
	}
	tacKey, err := XORHalves(f.req.InternalKey)
	if err != nil {
		return err
	}
	input := cat(be32(f.req.Amount), []byte{byte(f.txType)}, f.req.Terminal, f.req.Serial, res.Date, res.Time)
	tac, err := DESMAC(input, tacKey, nil, MACSize)
	if err != nil {
		return err
	}
	if err := checkMAC(f.name(), "TAC", tac, data[:MACSize]); err != nil {
		return err
	}
	res.TAC = tac
	res.CardMAC2 = append([]byte{}, data[MACSize:2*MACSize]...)
	return nil
}

// overdraftFlow updates the passbook overdraft limit (phase 2 INS 58).
//
//	phase 1 data  keyid terminal(6)
//	phase 1 resp  balance(4) serial(2) limit(3) kver algo random(4) mac1(4)
//	MAC1          balance limit 07 terminal
//	MAC2 input    newlimit(3) 07 terminal date time
//	TAC           balance+newlimit serial MAC2-input
type overdraftFlow struct {
	req OverdraftRequest

	pk []byte
}

func (f *overdraftFlow) name() string { return "overdraft" }

func (f *overdraftFlow) limit() []byte {
	return be32(f.req.Limit)[1:]
}

func (f *overdraftFlow) phase1() *iso7816.CommandAPDU {
	data := cat([]byte{f.req.KeyID}, f.req.Terminal)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_INITIALIZE_TRANSACTION, 0x04, byte(Passbook), data, 0x13)
}

func (f *overdraftFlow) verifyPhase1(data []byte, res *TransactionResult) error {
	if len(data) < 19 {
		return &ProtocolError{Op: f.name(), Reason: fmt.Sprintf("phase 1 answer is %d bytes, want 19", len(data))}
	}
	res.Type = TxOverdraft
	res.Balance = Passbook
	res.Amount = f.req.Limit
	res.OldBalance = binary.BigEndian.Uint32(data[0:4])
	res.CardSerial = append([]byte{}, data[4:6]...)
	res.OverdraftLimit = append([]byte{}, data[6:9]...)
	res.KeyVersion = data[9]
	res.Algorithm = data[10]
	cardMAC1 := data[15:19]

	if uint64(res.OldBalance)+uint64(f.req.Limit) > 0xFFFFFFFF {
		return &ProtocolError{Op: f.name(), Reason: "new balance overflows 4 bytes"}
	}
	res.NewBalance = res.OldBalance + f.req.Limit

	pk, err := processKey(cat(data[11:15], res.CardSerial), f.req.Key)
	if err != nil {
		return err
	}
	f.pk = pk

	mac1, err := DESMAC(cat(data[0:4], res.OverdraftLimit, []byte{byte(TxOverdraft)}, f.req.Terminal), pk, nil, MACSize)
	if err != nil {
		return err
	}
	if err := checkMAC(f.name(), "MAC1", mac1, cardMAC1); err != nil {
		return err
	}
	res.MAC1 = mac1
	return nil
}

func (f *overdraftFlow) mac2Input(res *TransactionResult) []byte {
	return cat(f.limit(), []byte{byte(TxOverdraft)}, f.req.Terminal, res.Date, res.Time)
}

func (f *overdraftFlow) phase2(res *TransactionResult) (*iso7816.CommandAPDU, error) {
	mac2, err := DESMAC(f.mac2Input(res), f.pk, nil, MACSize)
	if err != nil {
		return nil, err
	}
	res.MAC2 = mac2
	data := cat(f.limit(), res.Date, res.Time, mac2)
	return iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_UPDATE_OVERDRAWN_LIMIT, 0x00, 0x00, data, 4), nil
}

func (f *overdraftFlow) verifyPhase2(data []byte, res *TransactionResult) error {
	if len(data) < MACSize {
		return &ProtocolError{Op: f.name(), Reason: "phase 2 answer carries no TAC"}
	}
	tacKey, err := XORHalves(f.req.InternalKey)
	if err != nil {
		return err
	}
	tac, err := DESMAC(cat(be32(res.NewBalance), res.CardSerial, f.mac2Input(res)), tacKey, nil, MACSize)
	if err != nil {
		return err
	}
	if err := checkMAC(f.name(), "TAC", tac, data[:MACSize]); err != nil {
		return err
	}
	res.TAC = tac
	return nil
}
