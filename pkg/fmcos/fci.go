package fmcos

import (
	"fmt"
	"strings"

	"github.com/gregLibert/fmcos/pkg/iso7816"
	"github.com/gregLibert/fmcos/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// SELECT RESPONSE:
// Selecting a DF returns a short FCI:
//
//	6F L  84 L <DF name>
//	      A5 L  88 01 <SFI>  |  9F0C L <issuer data>
//
// Selecting an EF usually returns nothing. Decoding never fails: a response that does
// not follow the layout is kept raw, and a truncated one yields what could be read.

// ControlTemplate is the A5 proprietary template.
type ControlTemplate struct {
	SFI        []byte `tlv:"88"`
	IssuerData []byte `tlv:"9F0C"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FCITemplate is the 6F template.
type FCITemplate struct {
	DFName  []byte          `tlv:"84" fmt:"ascii"`
	Control ControlTemplate `tlv:"A5"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

type selectResponse struct {
	FCI FCITemplate `tlv:"6F"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// DFInfo is what a SELECT told about the current DF.
type DFInfo struct {
	FCI FCITemplate
	Raw []byte
}

// DFName is the name from tag 84, nil when absent.
func (i *DFInfo) DFName() []byte {
	return i.FCI.DFName
}

// ControlMessage is the 88 value, or the 9F0C value when 88 is absent.
func (i *DFInfo) ControlMessage() []byte {
	if len(i.FCI.Control.SFI) > 0 {
		return i.FCI.Control.SFI
	}
	return i.FCI.Control.IssuerData
}

// ParseSelectResponse decodes the response data of a successful SELECT. Strict BER
// decoding is kept when it finds a DF name, otherwise the 1-byte length reader is
// used. The returned info is always usable; the error says why the data did not
// decode cleanly.
func ParseSelectResponse(data []byte) (*DFInfo, error) {
	info := &DFInfo{Raw: data}
	if len(data) == 0 {
		return info, nil
	}

	nodes, decode, err := decodeFCI(data)
	var resp selectResponse
	if mapErr := tlv.UnmarshalFromPackets(nodes, &resp, decode); mapErr != nil && err == nil {
		err = mapErr
	}
	info.FCI = resp.FCI
	return info, err
}

func decodeFCI(data []byte) ([]bertlv.TLV, tlv.DecodeFunc, error) {
	if nodes, err := bertlv.Decode(data); err == nil {
		if _, ok := tlv.Find(nodes, "84"); ok {
			return nodes, bertlv.Decode, nil
		}
	}
	nodes, err := tlv.DecodeLenient(data)
	return nodes, tlv.DecodePartial, err
}

// SelectResult is the outcome of a SELECT.
type SelectResult struct {
	iso7816.Trace
	Info *DFInfo
}

// Describe renders the exchange followed by the decoded FCI.
func (r *SelectResult) Describe() string {
	var sb strings.Builder
	sb.WriteString(iso7816.DescribeTrace(r.Trace))

	if r.Info == nil || len(r.Info.Raw) == 0 {
		return sb.String()
	}

	sb.WriteString("\n[=] FCI:")
	if r.Info.DFName() == nil {
		sb.WriteString(fmt.Sprintf("\n    - Not an FMCOS FCI, raw: %s", tlv.Format(r.Info.Raw)))
		return sb.String()
	}
	tlv.WriteStructFields(&sb, "FCI", &r.Info.FCI)
	return sb.String()
}
