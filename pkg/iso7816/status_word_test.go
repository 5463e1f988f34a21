package iso7816

import (
	"strings"
	"testing"
)

func TestStatusWord_Triggering(t *testing.T) {
	tests := []struct {
		sw     StatusWord
		isTrig bool
	}{
		{NewStatusWord(0x62, 0x02), true},  // Lower bound
		{NewStatusWord(0x62, 0x80), true},  // Upper bound
		{NewStatusWord(0x64, 0x10), true},  // Error triggering
		{NewStatusWord(0x62, 0x01), false}, // Invalid (< 02)
		{NewStatusWord(0x62, 0x81), false}, // Invalid (> 80)
	}

	for _, tt := range tests {
		if got := tt.sw.IsTriggeringByCard(); got != tt.isTrig {
			t.Errorf("SW %X IsTriggeringByCard = %v, want %v", uint16(tt.sw), got, tt.isTrig)
		}
	}
}

func TestStatusWord_RetriesLeft(t *testing.T) {
	tests := []struct {
		sw     StatusWord
		n      int
		wantOK bool
	}{
		{NewStatusWord(0x63, 0xC0), 0, true},
		{NewStatusWord(0x63, 0xC2), 2, true},
		{NewStatusWord(0x63, 0xCF), 15, true},
		{SW_FILE_FILLED_UP, 0, false},
		{SW_NO_ERROR, 0, false},
	}

	for _, tt := range tests {
		n, ok := tt.sw.RetriesLeft()
		if ok != tt.wantOK || n != tt.n {
			t.Errorf("SW %s RetriesLeft = (%d, %v), want (%d, %v)", tt.sw, n, ok, tt.n, tt.wantOK)
		}
	}
}

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		sw        StatusWord
		isSuccess bool
		isWarning bool
		isError   bool
	}{
		{SW_NO_ERROR, true, false, false},
		{NewStatusWord(0x61, 0x10), false, false, false},
		{NewStatusWord(0x62, 0x82), false, true, false},
		{NewStatusWord(0x63, 0xC2), false, true, false},
		{SW_WRONG_LENGTH, false, false, true},
		{SW_FILE_NOT_FOUND, false, false, true},
		{SW_MAC_INVALID, false, false, true},
		{SW_INSUFFICIENT_FUNDS, false, false, true},
	}

	for _, tt := range tests {
		if got := tt.sw.IsSuccess(); got != tt.isSuccess {
			t.Errorf("SW %s IsSuccess = %v, want %v", tt.sw, got, tt.isSuccess)
		}
		if got := tt.sw.IsWarning(); got != tt.isWarning {
			t.Errorf("SW %s IsWarning = %v, want %v", tt.sw, got, tt.isWarning)
		}
		if got := tt.sw.IsError(); got != tt.isError {
			t.Errorf("SW %s IsError = %v, want %v", tt.sw, got, tt.isError)
		}
	}
}

func TestStatusWord_Category(t *testing.T) {
	tests := []struct {
		name     string
		sw       StatusWord
		category Category
		text     string
	}{
		{"Success", NewStatusWord(0x90, 0x00), CategorySuccess, "Operation Successful"},
		{"File not found", NewStatusWord(0x6A, 0x82), CategoryNotFound, "File or application not found"},
		{"Memory failure", SW_MEMORY_FAILURE, CategoryMemoryFailure, "Memory failure"},
		{"Security", SW_SECURITY_STATUS_NOT_SATISFIED, CategorySecurityNotSatisfied, "Security status not satisfied"},
		{"Blocked", SW_AUTH_METHOD_BLOCKED, CategorySecurityNotSatisfied, "Authentication method blocked"},
		{"MAC invalid", SW_MAC_INVALID, CategoryMACInvalid, "Invalid MAC"},
		{"Insufficient funds", SW_INSUFFICIENT_FUNDS, CategoryInsufficientFunds, "The amount is insufficient"},
		{"Key index", SW_KEY_INDEX_NOT_SUPPORTED, CategoryKeyNotSupported, "Key indexes are not supported"},
		{"Already exists", SW_FILE_ALREADY_EXISTS, CategoryAlreadyExists, "File already exists"},
		{"Counter", NewStatusWord(0x63, 0xC3), CategoryVerificationFailed, "Counter from 0 to 15 encoded by 'X'(SW2&0xF)"},
		{"Triggering warning", NewStatusWord(0x62, 0x10), CategoryWarning, "Triggering by the card"},
		{"Triggering error", NewStatusWord(0x64, 0x10), CategoryExecutionError, "Triggering by the card"},
		{"Immediate response", NewStatusWord(0x64, 0x01), CategoryExecutionError, "Immediate response required by the card"},
		{"Unknown FFFF", NewStatusWord(0xFF, 0xFF), CategoryUnknown, "Unknown return code"},
		{"Unknown 6A8B", NewStatusWord(0x6A, 0x8B), CategoryUnknown, "Unknown return code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.Category(); got != tt.category {
				t.Errorf("Category() = %s, want %s", got, tt.category)
			}
			if got := tt.sw.Describe(); got != tt.text {
				t.Errorf("Describe() = %q, want %q", got, tt.text)
			}
		})
	}
}

func TestStatusWord_Verbose(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want string
	}{
		{SW_NO_ERROR, "[9000] Operation Successful"},
		{NewStatusWord(0x63, 0xC2), "[63C2] Verification failed, 2 tries left"},
		{NewStatusWord(0x61, 0x10), "[6110] Process completed, 16 bytes available"},
		{NewStatusWord(0x6C, 0x08), "[6C08] Wrong length, correct Le is 8"},
		{NewStatusWord(0xFF, 0xFF), "[FFFF] Unknown return code"},
	}

	for _, tt := range tests {
		if got := tt.sw.Verbose(); got != tt.want {
			t.Errorf("Verbose() = %q, want %q", got, tt.want)
		}
	}

	if !strings.Contains(CategoryMACInvalid.String(), "MAC") {
		t.Errorf("Category String() = %q", CategoryMACInvalid.String())
	}
}
