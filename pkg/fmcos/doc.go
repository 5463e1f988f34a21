// Package fmcos drives FMCOS stored-value cards from the host side.
//
// It covers the three parts of the protocol that carry logic:
//
//   - key handling: DES / 3DES selection from raw key bytes, the FMCOS CBC-MAC variants
//     and ISO7816 padding (cipher.go, mac.go, padding.go);
//   - command encoding: one builder per APDU family, WRITE KEY payloads per key
//     category, and line protection of data fields (encoder.go, keyrecord.go, protect.go);
//   - the two-phase purse protocol (credit, debit, purchase, withdrawal, overdraft
//     limit) with MAC1/MAC2/TAC verification (transaction.go).
//
// A Session serialises every exchange with one card. It is built from any
// iso7816.Transmitter and a Config:
//
//	s := fmcos.NewSession(reader, fmcos.Config{Logger: &log.Logger, Debug: true})
//	res, err := s.Credit(fmcos.LoadRequest{
//	    Balance:     fmcos.Passbook,
//	    KeyID:       0x00,
//	    Amount:      1000,
//	    Terminal:    terminal,
//	    Key:         creditKey,
//	    InternalKey: internalKey,
//	})
//
// Failures come back as typed errors: *TransportError, *ProtocolError, *CardStatusError,
// *IntegrityError and, for two-phase flows, *TransactionError wrapping one of them.
package fmcos
