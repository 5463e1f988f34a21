package tlv

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// WriteStructFields inspects a struct and writes its fields to the strings.Builder.
// It joins lines with newlines but DOES NOT add a trailing newline, preventing artifacts in strings.Split.
// If the builder is not empty, it prepends a newline to separate this block from previous content.
//
// Byte slices honour the `fmt` struct tag: "ascii", "int", "bcd" or "hex" (spaced).
// Unsigned integers print in decimal with their hex value, nested structs are
// flattened with a dotted prefix.
func WriteStructFields(sb *strings.Builder, prefix string, s interface{}) {
	lines := describeValue(prefix, reflect.ValueOf(s))

	if len(lines) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strings.Join(lines, "\n"))
	}
}

func describeValue(prefix string, val reflect.Value) []string {
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return nil
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	typ := val.Type()
	var lines []string

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		if !fieldType.IsExported() {
			continue
		}

		switch {
		case field.Type() == reflect.TypeOf([]bertlv.TLV{}):
			lines = append(lines, formatUnknownField(prefix, field)...)
		case isByteSlice(field):
			if line := formatByteSliceField(prefix, field, fieldType); line != "" {
				lines = append(lines, line)
			}
		case field.Kind() == reflect.Uint8, field.Kind() == reflect.Uint16, field.Kind() == reflect.Uint32:
			lines = append(lines, fmt.Sprintf("    - %s.%s: %d (0x%X)", prefix, fieldType.Name, field.Uint(), field.Uint()))
		case field.Kind() == reflect.String:
			if field.Len() > 0 {
				lines = append(lines, fmt.Sprintf("    - %s.%s: %s", prefix, fieldType.Name, field.String()))
			}
		case isStructOrPtrToStruct(field):
			lines = append(lines, describeValue(prefix+"."+fieldType.Name, field)...)
		}
	}
	return lines
}

func formatByteSliceField(prefix string, field reflect.Value, fieldType reflect.StructField) string {
	if field.IsNil() || field.Len() == 0 {
		return ""
	}

	bytesVal := field.Bytes()
	formatTag := fieldType.Tag.Get("fmt")
	tlvTag := fieldType.Tag.Get("tlv")

	name := fieldType.Name
	if tlvTag != "" {
		name = fmt.Sprintf("%s (%s)", name, tlvTag)
	}

	displayVal := formatByteValue(bytesVal, formatTag)
	return fmt.Sprintf("    - %s.%s: %s", prefix, name, displayVal)
}

func formatUnknownField(prefix string, field reflect.Value) []string {
	if field.IsNil() || field.Len() == 0 {
		return nil
	}

	var lines []string
	tlvs := field.Interface().([]bertlv.TLV)
	for _, t := range tlvs {
		lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %X", prefix, t.Tag, rawValue(t)))
	}
	return lines
}

func formatByteValue(data []byte, format string) string {
	switch format {
	case "ascii":
		return fmt.Sprintf("%X (%q)", data, MakeSafeASCII(data))
	case "int":
		var integer uint64
		for _, b := range data {
			integer = (integer << 8) | uint64(b)
		}
		return fmt.Sprintf("%X (Dec: %d)", data, integer)
	case "bcd":
		return fmt.Sprintf("%X (BCD)", data)
	case "hex":
		return Format(data)
	default:
		return fmt.Sprintf("%X", data)
	}
}

// MakeSafeASCII replaces non printable bytes with dots.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
