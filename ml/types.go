// types.go - Datentypen fuer Tensor-Elemente
// Dieses Modul definiert DType, die Namen im safetensors-Format und die
// Typ-Promotion, die beim Kombinieren zweier Tensoren angewendet wird.
package ml

import (
	"fmt"
	"strings"
)

// DType represents the data type of tensor elements.
type DType int

const (
	DTypeOther DType = iota
	DTypeBool
	DTypeUint8
	DTypeInt8
	DTypeInt16
	DTypeInt32
	DTypeInt64
	DTypeFloat16
	DTypeBfloat16
	DTypeFloat32
	DTypeFloat64
)

var dtypeNames = map[DType]string{
	DTypeBool:     "BOOL",
	DTypeUint8:    "U8",
	DTypeInt8:     "I8",
	DTypeInt16:    "I16",
	DTypeInt32:    "I32",
	DTypeInt64:    "I64",
	DTypeFloat16:  "F16",
	DTypeBfloat16: "BF16",
	DTypeFloat32:  "F32",
	DTypeFloat64:  "F64",
}

// String gibt den safetensors-Namen des Typs zurueck
func (d DType) String() string {
	if s, ok := dtypeNames[d]; ok {
		return s
	}
	return "other"
}

// Size gibt die Groesse eines Elements in Bytes zurueck
func (d DType) Size() int {
	switch d {
	case DTypeBool, DTypeUint8, DTypeInt8:
		return 1
	case DTypeInt16, DTypeFloat16, DTypeBfloat16:
		return 2
	case DTypeInt32, DTypeFloat32:
		return 4
	case DTypeInt64, DTypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsFloat meldet, ob der Typ ein Gleitkommatyp ist
func (d DType) IsFloat() bool {
	switch d {
	case DTypeFloat16, DTypeBfloat16, DTypeFloat32, DTypeFloat64:
		return true
	}
	return false
}

// ParseDType liest einen safetensors-Typnamen (z.B. "BF16")
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if strings.EqualFold(name, s) {
			return d, nil
		}
	}
	return DTypeOther, fmt.Errorf("unsupported dtype: %q", s)
}

// Promote bestimmt den Ergebnistyp einer Operation auf zwei Tensoren.
// Gleitkomma gewinnt gegen Ganzzahl, breiter gegen schmaler.
// F16 und BF16 haben keinen gemeinsamen 16-Bit-Typ und ergeben F32.
func Promote(a, b DType) DType {
	switch {
	case a == b, b == DTypeBool:
		return a
	case a == DTypeBool:
		return b
	case a.IsFloat() && !b.IsFloat():
		return a
	case b.IsFloat() && !a.IsFloat():
		return b
	case a.IsFloat() && b.IsFloat():
		if a.Size() == b.Size() {
			return DTypeFloat32
		}
	}

	if a.Size() > b.Size() {
		return a
	} else if b.Size() > a.Size() {
		return b
	}

	// gleiche Breite, unterschiedliches Vorzeichen (U8/I8)
	return DTypeInt16
}
