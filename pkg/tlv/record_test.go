package tlv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWrapRecord(t *testing.T) {
	got, err := WrapRecord(Hex("0102"))
	if err != nil {
		t.Fatalf("WrapRecord failed: %v", err)
	}
	if diff := cmp.Diff(Hex("F7 02 0102"), got); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestUnwrapRecord(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    []byte
		wantErr bool
	}{
		{name: "Exact", input: Hex("F7 02 0102"), want: Hex("0102")},
		{name: "Padded Record", input: Hex("F7 01 AA FFFF"), want: Hex("AA")},
		{name: "Wrong Tag", input: Hex("F6 01 AA"), wantErr: true},
		{name: "Too Short", input: Hex("F7"), wantErr: true},
		{name: "Length Overflow", input: Hex("F7 04 AA"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnwrapRecord(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("UnwrapRecord() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
