package fmcos

import (
	"fmt"
	"time"
)

// bcd packs an even number of decimal digits, two per byte.
func bcd(digits string) []byte {
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = (digits[2*i]-'0')<<4 | (digits[2*i+1] - '0')
	}
	return out
}

// TransactionDateTime returns the BCD date (YYYYMMDD, 4 bytes) and time (HHMMSS,
// 3 bytes) sent with phase 2.
func TransactionDateTime(t time.Time) (date, clock []byte) {
	date = bcd(fmt.Sprintf("%04d%02d%02d", t.Year(), int(t.Month()), t.Day()))
	clock = bcd(fmt.Sprintf("%02d%02d%02d", t.Hour(), t.Minute(), t.Second()))
	return date, clock
}
