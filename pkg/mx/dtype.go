package mx

import (
	"fmt"
	"strconv"
	"strings"
)

// DType is an element type, numbered as the engine numbers them.
type DType int

const (
	Float32 DType = 0
	Float64 DType = 1
	Float16 DType = 2
	Uint8   DType = 3
	Int32   DType = 4
	Int8    DType = 5
	Int64   DType = 6
)

var dtypeNames = map[DType]string{
	Float32: "float32",
	Float64: "float64",
	Float16: "float16",
	Uint8:   "uint8",
	Int32:   "int32",
	Int8:    "int8",
	Int64:   "int64",
}

func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// Size is the width of one element in bytes, or 0 if unknown.
func (d DType) Size() int {
	switch d {
	case Float64, Int64:
		return 8
	case Float32, Int32:
		return 4
	case Float16:
		return 2
	case Uint8, Int8:
		return 1
	}
	return 0
}

// ParseDType parses a name such as "float16".
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}

// Shape is an array shape. Its String form is the engine's tuple syntax.
type Shape []uint32

// Size is the number of elements; an empty shape holds one.
func (s Shape) Size() int {
	n := 1
	for _, d := range s {
		n *= int(d)
	}
	return n
}

func (s Shape) String() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, d := range s {
		if i != 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(d), 10))
	}
	if len(s) == 1 {
		sb.WriteByte(',')
	}
	sb.WriteByte(')')
	return sb.String()
}
