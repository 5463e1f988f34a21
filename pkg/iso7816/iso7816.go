/*
Package iso7816 implements the APDU layer used to talk to FMCOS smart cards.

FMCOS is a card operating system for stored-value applications (wallet and passbook balances). It follows ISO/IEC 7816-4
for the framing of commands and responses and adds a set of proprietary instructions (class 0x80/0x84) for key
management, file creation and financial transactions.

# Fundamentals

The communication with a card is strictly synchronous:
 1. The Host sends a Command APDU (Header + Optional Body).
 2. The Card processes it and returns a Response APDU (Optional Body + Trailer SW1/SW2).

Only the short length form is used: the data field is limited to 255 bytes and the expected length to 256.
A command without data and without expected length still carries a single 0x00 length byte, which is what FMCOS
expects for instructions such as ERASE DF.

# Status Words

Every response ends with a 2-byte Status Word (SW).
  - 0x9000: Success.
  - 0x61XX: Success, XX response bytes still available (handled by Client).
  - 0x6CXX: Wrong Le, XX is the correct length (handled by Client).
  - 0x63CX: Verification failed, X retries left.
  - 0x9302, 0x9401, 0x9403: FMCOS specific MAC / funds / key index errors.

StatusWord.Category groups these codes so callers can branch without string matching.

# Usage Example: Reading a balance

	client := iso7816.NewClient(card)
	cmd := iso7816.NewCommandAPDU(iso7816.ClassProprietary, iso7816.INS_GET_BALANCE, 0x00, 0x02, nil, 4)

	trace, err := client.Send(cmd)
	if err != nil {
	    log.Fatal(err)
	}

	resp := trace.Response()
	if !resp.Status.IsSuccess() {
	    log.Fatalf("balance refused: %s", resp.Status.Verbose())
	}
	fmt.Printf("Balance: %d\n", binary.BigEndian.Uint32(resp.Data))
*/
package iso7816
