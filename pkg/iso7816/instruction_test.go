package iso7816

import (
	"strings"
	"testing"
)

func TestInsCode_Validate(t *testing.T) {
	tests := []struct {
		ins     InsCode
		wantErr bool
	}{
		{INS_SELECT, false},
		{INS_INITIALIZE_TRANSACTION, false},
		{INS_CHANGE_PIN, false},
		{InsCode(0x60), true},
		{InsCode(0x6F), true},
		{InsCode(0x90), true},
	}

	for _, tt := range tests {
		err := tt.ins.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("InsCode(0x%02X).Validate() error = %v, wantErr %v", byte(tt.ins), err, tt.wantErr)
		}
	}
}

func TestInsCode_String(t *testing.T) {
	tests := []struct {
		ins  InsCode
		want string
	}{
		{INS_WRITE_KEY, "WRITE KEY"},
		{INS_DEBIT_FOR_PURCHASE, "DEBIT FOR PURCHASE"},
		{InsCode(0x42), "INS(0x42)"},
	}

	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}

	if v := INS_GET_CHALLENGE.Verbose(); !strings.Contains(v, "0x84") {
		t.Errorf("Verbose() = %q", v)
	}
}
