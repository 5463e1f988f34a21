package iso7816

import (
	"fmt"
	"strings"
)

// TRACE REPORT:
// DescribeTrace renders the exchanges made for one logical command: the initial
// request with its decoded header, the automatic follow-ups (GET RESPONSE, Le
// correction) and the data that came back. Callers append their own decoding of the
// payload after it.

// DescribeTrace generates a human-readable report of a trace.
func DescribeTrace(t Trace) string {
	if len(t) == 0 {
		return "=== EMPTY TRACE ==="
	}

	var sb strings.Builder

	tx0 := t[0]
	cmd := tx0.Command

	sb.WriteString(fmt.Sprintf("=== %s COMMAND REPORT ===\n", cmd.Instruction))
	sb.WriteString(fmt.Sprintf("[1] Command: %s\n", cmd.Instruction.Verbose()))
	sb.WriteString(fmt.Sprintf("    + Class:   %02X -> %s\n", cmd.Class.Encode(), describeClass(cmd.Class)))
	sb.WriteString(fmt.Sprintf("    + Params:  P1=%02X P2=%02X%s\n", cmd.P1, cmd.P2, describeParams(cmd)))
	if len(cmd.Data) > 0 {
		sb.WriteString(fmt.Sprintf("    + Data:    %X\n", cmd.Data))
	}
	sb.WriteString(fmt.Sprintf("    + Result:  %s\n", describeStatus(tx0.Response.Status)))
	sb.WriteString("\n")

	last := t.Last()
	if t.FollowUps() > 0 {
		sb.WriteString(fmt.Sprintf("[2] Protocol: Auto-handling (%d steps)\n", len(t)))
		for _, tx := range t[1:] {
			sb.WriteString(fmt.Sprintf("    + Action:  %s -> %s\n", tx.Command.Instruction, describeStatus(tx.Response.Status)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("[=] DATA OUTCOME:\n")
	payload := last.Response.Data
	if len(payload) > 0 {
		sb.WriteString(fmt.Sprintf("    + Length: %d bytes\n", len(payload)))
		sb.WriteString(fmt.Sprintf("    + Dump:   %X\n", payload))
	} else {
		sb.WriteString("    - No Data Received.\n")
	}

	return strings.TrimRight(sb.String(), "\n")
}

func describeParams(cmd *CommandAPDU) string {
	switch cmd.Instruction {
	case INS_SELECT:
		return fmt.Sprintf(" (%s)", SelectionMethod(cmd.P1))
	case INS_READ_RECORD, INS_UPDATE_RECORD, INS_APPEND_RECORD:
		return fmt.Sprintf(" (record %d, SFI %02X, %s)", cmd.P1, SFIFromP2(cmd.P2), RecordMode(cmd.P2&0x07))
	}
	return ""
}

func describeClass(c Class) string {
	kind := "interindustry"
	if c.IsProprietary() {
		kind = "proprietary"
	}
	if c.IsLineProtected() {
		return kind + ", line protected"
	}
	return kind
}

func describeStatus(sw StatusWord) string {
	mark := "[!!]"
	if sw.IsSuccess() || sw.SW1() == 0x61 {
		mark = "[OK]"
	}
	return fmt.Sprintf("%s %s", mark, sw.Verbose())
}
