package iso7816

// EXCHANGES AND TRACES:
// One logical command can take several rounds on the wire. A 61XX answer is followed
// by GET RESPONSE, a 6CXX answer by the same command with the corrected Le. The Client
// records every round in a Trace, in order. Only the last response is decoded; the
// earlier rounds are there for reports and debug logs.

// Exchange is one round: the command sent and what the card answered. Response is nil
// when the transmitter failed before an answer came back.
type Exchange struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// Trace is the ordered list of rounds for one logical command.
type Trace []Exchange

// Last returns the final round, or nil for an empty trace.
func (t Trace) Last() *Exchange {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Response is the answer of the final round.
func (t Trace) Response() *ResponseAPDU {
	if last := t.Last(); last != nil {
		return last.Response
	}
	return nil
}

// IsSuccess reports whether the final round ended with 90 00.
func (t Trace) IsSuccess() bool {
	resp := t.Response()
	return resp != nil && resp.Status.IsSuccess()
}

// FollowUps counts the rounds the Client added on its own.
func (t Trace) FollowUps() int {
	if len(t) == 0 {
		return 0
	}
	return len(t) - 1
}
