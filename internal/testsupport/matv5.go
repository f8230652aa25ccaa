package testsupport

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"testing"
)

// MATValue is a value the MAT fixture encoder can serialise.
type MATValue interface {
	matBody(name string) []byte
}

// MATVariable is one named top-level variable.
type MATVariable struct {
	Name  string
	Value MATValue
}

// MATNumeric is a real double (or single) matrix with column-major Data.
type MATNumeric struct {
	Rows, Cols int
	Data       []float64
	Single     bool
}

// MATChar is a 1xN char array.
type MATChar struct {
	Text string
}

// MATField is one struct field.
type MATField struct {
	Name  string
	Value MATValue
}

// MATStruct is a struct whose fields are written once. Dims defaults to 1x1;
// larger Dims declare more elements than the body holds.
type MATStruct struct {
	Fields []MATField
	Dims   []int32
}

// MATCell is a cell array holding Cells under the declared Dims.
type MATCell struct {
	Dims  []int32
	Cells []MATValue
}

// MATEmpty is the 0x0 double MATLAB writes for [].
type MATEmpty struct{}

// MATScalar returns a 1x1 double.
func MATScalar(v float64) MATNumeric {
	return MATNumeric{Rows: 1, Cols: 1, Data: []float64{v}}
}

// MATColumns builds an N x len(columns) double matrix. Every column must have
// the same length.
func MATColumns(columns ...[]float64) MATNumeric {
	if len(columns) == 0 {
		return MATNumeric{}
	}
	rows := len(columns[0])
	data := make([]float64, 0, rows*len(columns))
	for _, col := range columns {
		data = append(data, col...)
	}
	return MATNumeric{Rows: rows, Cols: len(columns), Data: data}
}

// SignalRecord builds the acquisition export layout: a struct with
// x_values{start_value, increment, number_of_values} and y_values{values}.
func SignalRecord(start, increment float64, columns ...[]float64) MATStruct {
	count := 0
	if len(columns) > 0 {
		count = len(columns[0])
	}
	return MATStruct{Fields: []MATField{
		{Name: "x_values", Value: MATStruct{Fields: []MATField{
			{Name: "start_value", Value: MATScalar(start)},
			{Name: "increment", Value: MATScalar(increment)},
			{Name: "number_of_values", Value: MATScalar(float64(count))},
		}}},
		{Name: "y_values", Value: MATStruct{Fields: []MATField{
			{Name: "values", Value: MATColumns(columns...)},
		}}},
		{Name: "label", Value: MATChar{Text: "rig export"}},
	}}
}

// EncodeMAT serialises variables as a little-endian Level 5 MAT-file. When
// compress is set every variable is wrapped in a zlib-compressed element.
func EncodeMAT(compress bool, vars ...MATVariable) []byte {
	var buf bytes.Buffer
	header := make([]byte, 116)
	copy(header, "MATLAB 5.0 MAT-file, Platform: GLNXA64, Created by: harvest fixtures")
	for i := len("MATLAB 5.0 MAT-file, Platform: GLNXA64, Created by: harvest fixtures"); i < len(header); i++ {
		header[i] = ' '
	}
	buf.Write(header)
	buf.Write(make([]byte, 8))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0x0100))
	buf.WriteString("IM")

	for _, v := range vars {
		el := matElement(14, v.Value.matBody(v.Name))
		if compress {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			_, _ = zw.Write(el)
			_ = zw.Close()
			tag := make([]byte, 8)
			binary.LittleEndian.PutUint32(tag[0:4], 15)
			binary.LittleEndian.PutUint32(tag[4:8], uint32(z.Len()))
			buf.Write(tag)
			buf.Write(z.Bytes())
			continue
		}
		buf.Write(el)
	}
	return buf.Bytes()
}

// WriteMAT encodes variables to path, creating parent directories.
func WriteMAT(t testing.TB, path string, compress bool, vars ...MATVariable) {
	t.Helper()
	WriteBytes(t, path, EncodeMAT(compress, vars...))
}

func matElement(typ uint32, data []byte) []byte {
	out := make([]byte, 8, 8+len(data)+8)
	binary.LittleEndian.PutUint32(out[0:4], typ)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(data)))
	out = append(out, data...)
	if pad := len(out) % 8; pad != 0 {
		out = append(out, make([]byte, 8-pad)...)
	}
	return out
}

func matHeader(class byte, dims []int32, name string) []byte {
	flags := make([]byte, 8)
	binary.LittleEndian.PutUint32(flags[0:4], uint32(class))
	out := matElement(6, flags)
	dimBytes := make([]byte, 4*len(dims))
	for i, d := range dims {
		binary.LittleEndian.PutUint32(dimBytes[i*4:], uint32(d))
	}
	out = append(out, matElement(5, dimBytes)...)
	out = append(out, matElement(1, []byte(name))...)
	return out
}

func (m MATNumeric) matBody(name string) []byte {
	if m.Single {
		body := matHeader(7, []int32{int32(m.Rows), int32(m.Cols)}, name)
		data := make([]byte, 4*len(m.Data))
		for i, v := range m.Data {
			binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
		}
		return append(body, matElement(7, data)...)
	}
	body := matHeader(6, []int32{int32(m.Rows), int32(m.Cols)}, name)
	data := make([]byte, 8*len(m.Data))
	for i, v := range m.Data {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(v))
	}
	return append(body, matElement(9, data)...)
}

func (c MATChar) matBody(name string) []byte {
	runes := []rune(c.Text)
	body := matHeader(4, []int32{1, int32(len(runes))}, name)
	data := make([]byte, 2*len(runes))
	for i, r := range runes {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(r))
	}
	return append(body, matElement(4, data)...)
}

func (s MATStruct) matBody(name string) []byte {
	const width = 32
	dims := s.Dims
	if len(dims) == 0 {
		dims = []int32{1, 1}
	}
	body := matHeader(2, dims, name)
	// Field name length is written as a small data element.
	small := make([]byte, 8)
	binary.LittleEndian.PutUint32(small[0:4], 4<<16|5)
	binary.LittleEndian.PutUint32(small[4:8], width)
	body = append(body, small...)
	names := make([]byte, width*len(s.Fields))
	for i, f := range s.Fields {
		copy(names[i*width:(i+1)*width-1], f.Name)
	}
	body = append(body, matElement(1, names)...)
	for _, f := range s.Fields {
		body = append(body, matElement(14, f.Value.matBody(""))...)
	}
	return body
}

func (c MATCell) matBody(name string) []byte {
	dims := c.Dims
	if len(dims) == 0 {
		dims = []int32{1, int32(len(c.Cells))}
	}
	body := matHeader(1, dims, name)
	for _, v := range c.Cells {
		body = append(body, matElement(14, v.matBody(""))...)
	}
	return body
}

func (MATEmpty) matBody(string) []byte {
	return nil
}
