// Package tlv parses the TLV structures returned by FMCOS cards and maps them into Go
// structures using struct tags.
//
// Nodes come from strict BER-TLV decoding (moov-io/bertlv) or from DecodeLenient, the
// forgiving 1-byte length reader FMCOS answers need when the card pads or truncates its
// FCI. UnmarshalFromPackets maps either into tagged structs:
//
//	type fci struct {
//	    DFName      []byte       `tlv:"84"`
//	    Proprietary proprietary  `tlv:"A5"`
//	    Unknown     []bertlv.TLV `tlv:",unknown"`
//	}
package tlv

import (
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// DecodeFunc turns raw bytes into TLV nodes.
type DecodeFunc func(data []byte) ([]bertlv.TLV, error)

// DecodePartial is DecodeLenient with a truncated tail accepted silently.
func DecodePartial(data []byte) ([]bertlv.TLV, error) {
	nodes, err := DecodeLenient(data)
	if errors.Is(err, ErrTruncated) {
		return nodes, nil
	}
	return nodes, err
}

// UnmarshalFromPackets maps pre-decoded nodes to a target struct. Nested templates
// without decoded children go through decode, strict BER-TLV when decode is nil.
// It supports multiple occurrences of the same tag if the target field is a slice.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}, decode DecodeFunc) error {
	if decode == nil {
		decode = bertlv.Decode
	}
	return (&mapper{decode: decode}).unmarshal(packets, target)
}

type mapper struct {
	decode DecodeFunc
}

func (m *mapper) unmarshal(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)
		tagConfig := fieldType.Tag.Get("tlv")

		if tagConfig == "" || tagConfig == ",unknown" || fieldType.Name == "Unknown" {
			continue
		}

		tagHex := strings.ToUpper(strings.Split(tagConfig, ",")[0])

		for idx, packet := range packets {
			if strings.ToUpper(packet.Tag) != tagHex {
				continue
			}
			if err := m.mapPacketToField(packet, field); err != nil {
				return fmt.Errorf("tag %s: %w", tagHex, err)
			}
			consumed[idx] = true
		}
	}

	handleUnknownFields(v, t, packets, consumed)
	return nil
}

// mapPacketToField grows slices of structs, or decodes into the field directly.
func (m *mapper) mapPacketToField(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		newElem := reflect.New(field.Type().Elem()).Elem()
		if err := m.decodeToValue(packet, newElem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, newElem))
		return nil
	}

	return m.decodeToValue(packet, field)
}

// decodeToValue handles the leaf-node decoding logic (Custom Unmarshaler, ByteSlice, Struct, etc.)
func (m *mapper) decodeToValue(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawValue(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawValue(packet))
	case field.Kind() == reflect.String:
		field.SetString(strings.ToUpper(hex.EncodeToString(rawValue(packet))))
	case isStructOrPtrToStruct(field):
		targetField := getTargetField(field)
		if len(packet.TLVs) > 0 {
			return m.unmarshal(packet.TLVs, targetField.Interface())
		}
		children, err := m.decode(packet.Value)
		if err != nil {
			return err
		}
		return m.unmarshal(children, targetField.Interface())
	}

	return nil
}

func handleUnknownFields(v reflect.Value, t reflect.Type, packets []bertlv.TLV, consumed map[int]bool) {
	unknownField, found := findUnknownField(v, t)
	if !found {
		return
	}

	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
		}
	}

	if len(leftovers) > 0 && unknownField.CanSet() {
		unknownField.Set(reflect.ValueOf(leftovers))
	}
}

func findUnknownField(v reflect.Value, t reflect.Type) (reflect.Value, bool) {
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("tlv")
		if tag == ",unknown" || t.Field(i).Name == "Unknown" {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// rawValue re-encodes decoded children so constructed tags keep their bytes.
// Lenient nodes always carry Value, so it is preferred when present.
func rawValue(p bertlv.TLV) []byte {
	if len(p.Value) > 0 || len(p.TLVs) == 0 {
		return p.Value
	}
	if enc, err := bertlv.Encode(p.TLVs); err == nil {
		return enc
	}
	return p.Value
}

// Find walks the nodes depth first and returns the first one carrying tag.
func Find(packets []bertlv.TLV, tag string) (bertlv.TLV, bool) {
	tag = strings.ToUpper(tag)
	for _, p := range packets {
		if strings.ToUpper(p.Tag) == tag {
			return p, true
		}
		if found, ok := Find(p.TLVs, tag); ok {
			return found, true
		}
	}
	return bertlv.TLV{}, false
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func getTargetField(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
