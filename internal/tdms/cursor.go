package tdms

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// cursor reads typed values from a metadata block.
type cursor struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func (c *cursor) take(n int) ([]byte, error) {
	if n < 0 || c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("need %d bytes at offset %d, block holds %d", n, c.pos, len(c.buf))
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) u32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return c.order.Uint32(b), nil
}

func (c *cursor) u64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return c.order.Uint64(b), nil
}

func (c *cursor) str() (string, error) {
	n, err := c.u32()
	if err != nil {
		return "", err
	}
	b, err := c.take(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (c *cursor) property() (Property, error) {
	name, err := c.str()
	if err != nil {
		return Property{}, err
	}
	code, err := c.u32()
	if err != nil {
		return Property{}, err
	}
	typ := DataType(code)
	prop := Property{Name: name, Type: typ}
	switch typ {
	case TypeString:
		prop.Value, err = c.str()
		return prop, err
	case TypeTimestamp:
		b, err := c.take(16)
		if err != nil {
			return Property{}, err
		}
		prop.Value = c.timestamp(b)
		return prop, nil
	case TypeVoid:
		return prop, nil
	}
	size := typ.Size()
	if size == 0 {
		return Property{}, fmt.Errorf("property %q has unsupported type %s", name, typ)
	}
	b, err := c.take(size)
	if err != nil {
		return Property{}, err
	}
	switch typ {
	case TypeI8:
		prop.Value = int64(int8(b[0]))
	case TypeI16:
		prop.Value = int64(int16(c.order.Uint16(b)))
	case TypeI32:
		prop.Value = int64(int32(c.order.Uint32(b)))
	case TypeI64:
		prop.Value = int64(c.order.Uint64(b))
	case TypeU8:
		prop.Value = uint64(b[0])
	case TypeU16:
		prop.Value = uint64(c.order.Uint16(b))
	case TypeU32:
		prop.Value = uint64(c.order.Uint32(b))
	case TypeU64:
		prop.Value = c.order.Uint64(b)
	case TypeSingle, TypeSingleWithUnit:
		prop.Value = float64(math.Float32frombits(c.order.Uint32(b)))
	case TypeDouble, TypeDoubleWithUnit:
		prop.Value = math.Float64frombits(c.order.Uint64(b))
	case TypeBoolean:
		prop.Value = b[0] != 0
	default:
		// Extended and complex values are skipped over but not decoded.
	}
	return prop, nil
}

// timestamp decodes seconds since 1904-01-01 UTC plus a 2^-64 fraction.
func (c *cursor) timestamp(b []byte) time.Time {
	var fraction uint64
	var seconds int64
	if c.order == binary.BigEndian {
		seconds = int64(c.order.Uint64(b[0:8]))
		fraction = c.order.Uint64(b[8:16])
	} else {
		fraction = c.order.Uint64(b[0:8])
		seconds = int64(c.order.Uint64(b[8:16]))
	}
	nanos := int64(float64(fraction) / math.Pow(2, 64) * 1e9)
	return tdmsEpoch.Add(time.Duration(seconds) * time.Second).Add(time.Duration(nanos))
}

// daqmxIndex consumes a DAQmx raw data index. The samples stay unreadable; the
// index is parsed so the chunk layout of neighbouring channels stays correct.
func (c *cursor) daqmxIndex() (rawIndex, error) {
	if _, err := c.u32(); err != nil { // data type, always 0xFFFFFFFF
		return rawIndex{}, err
	}
	if _, err := c.u32(); err != nil { // dimension
		return rawIndex{}, err
	}
	count, err := c.u64()
	if err != nil {
		return rawIndex{}, err
	}
	scalers, err := c.u32()
	if err != nil {
		return rawIndex{}, err
	}
	// Each scaler: data type, raw buffer index, raw byte offset, sample format, scale id.
	if _, err := c.take(int(scalers) * 17); err != nil {
		return rawIndex{}, err
	}
	widths, err := c.u32()
	if err != nil {
		return rawIndex{}, err
	}
	var perSample uint64
	for i := uint32(0); i < widths; i++ {
		w, err := c.u32()
		if err != nil {
			return rawIndex{}, err
		}
		perSample += uint64(w)
	}
	return rawIndex{hasData: true, daqmx: true, typ: TypeDAQmxRaw, count: count, totalSize: count * perSample}, nil
}
