package tdms

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// DataType is a TDMS property or raw data type code.
type DataType uint32

const (
	TypeVoid           DataType = 0
	TypeI8             DataType = 1
	TypeI16            DataType = 2
	TypeI32            DataType = 3
	TypeI64            DataType = 4
	TypeU8             DataType = 5
	TypeU16            DataType = 6
	TypeU32            DataType = 7
	TypeU64            DataType = 8
	TypeSingle         DataType = 9
	TypeDouble         DataType = 10
	TypeExtended       DataType = 11
	TypeSingleWithUnit DataType = 0x19
	TypeDoubleWithUnit DataType = 0x1A
	TypeString         DataType = 0x20
	TypeBoolean        DataType = 0x21
	TypeTimestamp      DataType = 0x44
	TypeComplexSingle  DataType = 0x08000C
	TypeComplexDouble  DataType = 0x10000D
	TypeDAQmxRaw       DataType = 0xFFFFFFFF
)

// Size returns the encoded width of one value, or 0 for variable or unsupported types.
func (t DataType) Size() int {
	switch t {
	case TypeI8, TypeU8, TypeBoolean:
		return 1
	case TypeI16, TypeU16:
		return 2
	case TypeI32, TypeU32, TypeSingle, TypeSingleWithUnit:
		return 4
	case TypeI64, TypeU64, TypeDouble, TypeDoubleWithUnit, TypeComplexSingle:
		return 8
	case TypeExtended, TypeTimestamp, TypeComplexDouble:
		return 16
	default:
		return 0
	}
}

// IsNumeric reports whether values of this type convert to float64.
func (t DataType) IsNumeric() bool {
	switch t {
	case TypeI8, TypeI16, TypeI32, TypeI64, TypeU8, TypeU16, TypeU32, TypeU64,
		TypeSingle, TypeDouble, TypeSingleWithUnit, TypeDoubleWithUnit, TypeBoolean:
		return true
	default:
		return false
	}
}

func (t DataType) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeI8:
		return "int8"
	case TypeI16:
		return "int16"
	case TypeI32:
		return "int32"
	case TypeI64:
		return "int64"
	case TypeU8:
		return "uint8"
	case TypeU16:
		return "uint16"
	case TypeU32:
		return "uint32"
	case TypeU64:
		return "uint64"
	case TypeSingle, TypeSingleWithUnit:
		return "float32"
	case TypeDouble, TypeDoubleWithUnit:
		return "float64"
	case TypeExtended:
		return "float128"
	case TypeString:
		return "string"
	case TypeBoolean:
		return "bool"
	case TypeTimestamp:
		return "timestamp"
	case TypeComplexSingle:
		return "complex64"
	case TypeComplexDouble:
		return "complex128"
	case TypeDAQmxRaw:
		return "daqmx"
	default:
		return fmt.Sprintf("type(0x%x)", uint32(t))
	}
}

// Property is one typed object property. Value holds int64, uint64, float64,
// string, bool, time.Time, or nil for types the reader does not decode.
type Property struct {
	Name  string
	Type  DataType
	Value any
}

// Float64 returns the property as a number when it is numeric.
func (p Property) Float64() (float64, bool) {
	switch v := p.Value.(type) {
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// String renders the value for metadata attributes.
func (p Property) String() string {
	switch v := p.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Sprint(v)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(v)
	}
}

func findProperty(props []Property, name string) (Property, bool) {
	for _, p := range props {
		if p.Name == name {
			return p, true
		}
	}
	return Property{}, false
}

func setProperty(props []Property, p Property) []Property {
	for i := range props {
		if props[i].Name == p.Name {
			props[i] = p
			return props
		}
	}
	return append(props, p)
}

// File is a decoded TDMS file.
type File struct {
	Properties []Property
	Groups     []*Group
	// Incomplete is set when the final segment was cut short.
	Incomplete bool
	data       []byte
}

// Property returns a file-level property.
func (f *File) Property(name string) (Property, bool) {
	return findProperty(f.Properties, name)
}

// Group returns the group with the given name.
func (f *File) Group(name string) (*Group, bool) {
	for _, g := range f.Groups {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// Group is a named collection of channels.
type Group struct {
	Name       string
	Properties []Property
	Channels   []*Channel
}

// Property returns a group property.
func (g *Group) Property(name string) (Property, bool) {
	return findProperty(g.Properties, name)
}

// Channel returns the channel with the given name.
func (g *Group) Channel(name string) (*Channel, bool) {
	for _, c := range g.Channels {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Channel is one sample sequence with its properties.
type Channel struct {
	Group      string
	Name       string
	Properties []Property
	DataType   DataType
	// Truncated is set when the final segment cut this channel's data short.
	Truncated bool
	refs      []dataRef
	readErr   error
	file      *File
}

// Property returns a channel property.
func (c *Channel) Property(name string) (Property, bool) {
	return findProperty(c.Properties, name)
}

// NumValues returns the number of samples recorded for the channel.
func (c *Channel) NumValues() int {
	n := 0
	for _, r := range c.refs {
		n += r.count
	}
	return n
}
