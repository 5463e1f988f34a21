package iso7816

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDescribeTrace(t *testing.T) {
	sel := SelectName([]byte("walletTest"))
	getResp := NewCommandAPDU(ClassInterindustry, INS_GET_RESPONSE, 0, 0, nil, 4)

	trace := Trace{
		{Command: sel, Response: &ResponseAPDU{Status: 0x6104}},
		{Command: getResp, Response: &ResponseAPDU{Data: []byte{0x6F, 0x02, 0x84, 0x00}, Status: SW_NO_ERROR}},
	}

	lines := strings.Split(DescribeTrace(trace), "\n")
	want := []string{
		"=== SELECT COMMAND REPORT ===",
		"[1] Command: INS: 0xA4 | Command: SELECT",
		"    + Class:   00 -> interindustry",
		"    + Params:  P1=04 P2=00 (Select by DF Name)",
		"    + Data:    77616C6C657454657374",
		"    + Result:  [OK] [6104] Process completed, 4 bytes available",
		"",
		"[2] Protocol: Auto-handling (2 steps)",
		"    + Action:  GET RESPONSE -> [OK] [9000] Operation Successful",
		"",
		"[=] DATA OUTCOME:",
		"    + Length: 4 bytes",
		"    + Dump:   6F028400",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestDescribeTraceRecordParams(t *testing.T) {
	read := NewCommandAPDU(ClassInterindustryProtected, INS_READ_RECORD, 2, RecordP2(0x18, RecordByNumber), nil, 16)
	trace := Trace{{Command: read, Response: &ResponseAPDU{Status: SW_RECORD_NOT_FOUND}}}

	report := DescribeTrace(trace)
	for _, want := range []string{
		"(record 2, SFI 18, Ref Num: Record P1)",
		"interindustry, line protected",
		"[!!] [6A83]",
		"No Data Received.",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report misses %q:\n%s", want, report)
		}
	}
}

func TestDescribeEmptyTrace(t *testing.T) {
	if got := DescribeTrace(nil); got != "=== EMPTY TRACE ===" {
		t.Errorf("DescribeTrace(nil) = %q", got)
	}
}
