package matfile

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"unicode/utf16"
)

const headerSize = 128

// ErrNotMAT marks input that does not carry a Level 5 MAT-file header.
var ErrNotMAT = errors.New("not a level 5 MAT-file")

// ErrUnsupportedVersion marks HDF5-based (v7.3) MAT-files.
var ErrUnsupportedVersion = errors.New("unsupported MAT-file version")

// maxNestingDepth bounds struct and cell recursion in hostile files.
const maxNestingDepth = 64

// Compressed elements may inflate to inflateRatio times the file size, and
// never less than minInflateBudget bytes in total.
const (
	inflateRatio     = 64
	minInflateBudget = 64 << 20
)

// maxFieldlessElements bounds struct arrays that declare no fields and so
// carry no per-element bytes to check dimensions against.
const maxFieldlessElements = 1 << 16

// ErrInflateLimit marks compressed elements that expand past the budget.
var ErrInflateLimit = errors.New("compressed data exceeds inflate budget")

// Open reads and decodes the MAT-file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mat file: %w", err)
	}
	return Decode(data)
}

// Decode parses a complete MAT-file image.
func Decode(data []byte) (*File, error) {
	return decode(data, max(len(data)*inflateRatio, minInflateBudget))
}

func decode(data []byte, budget int) (*File, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the header", ErrNotMAT, len(data))
	}
	var order binary.ByteOrder
	switch string(data[126:128]) {
	case "IM":
		order = binary.LittleEndian
	case "MI":
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("%w: missing endian indicator", ErrNotMAT)
	}
	header := strings.TrimRight(string(data[:116]), " \x00")
	version := order.Uint16(data[124:126])
	if strings.Contains(header, "MATLAB 7.3") || version == 0x0200 {
		return nil, fmt.Errorf("%w: v7.3 (HDF5) files are not supported", ErrUnsupportedVersion)
	}

	d := &decoder{order: order, budget: budget}
	file := &File{Header: header, Version: version}
	vars, err := d.elements(data[headerSize:], 0)
	if err != nil {
		return nil, err
	}
	file.Variables = vars
	return file, nil
}

type decoder struct {
	order binary.ByteOrder
	// budget is the number of inflated bytes still allowed.
	budget int
}

type element struct {
	typ  uint32
	data []byte
}

// readTag decodes one data element tag at buf[0:] and returns the element and
// the number of bytes consumed including padding.
func (d *decoder) readTag(buf []byte) (element, int, error) {
	if len(buf) < 8 {
		return element{}, 0, fmt.Errorf("truncated element tag (%d bytes left)", len(buf))
	}
	first := d.order.Uint32(buf[0:4])
	if small := first >> 16; small != 0 {
		// Small data element: type and size share the first word, data lives in the second.
		typ := first & 0xFFFF
		if small > 4 {
			return element{}, 0, fmt.Errorf("small element of type %d claims %d bytes", typ, small)
		}
		return element{typ: typ, data: buf[4 : 4+small]}, 8, nil
	}
	size := d.order.Uint32(buf[4:8])
	if uint64(size) > uint64(len(buf)-8) {
		return element{}, 0, fmt.Errorf("element of type %d claims %d bytes, %d available", first, size, len(buf)-8)
	}
	consumed := 8 + int(size)
	if first != miCOMPRESSED {
		if pad := consumed % 8; pad != 0 {
			consumed += 8 - pad
		}
		if consumed > len(buf) {
			consumed = len(buf)
		}
	}
	return element{typ: first, data: buf[8 : 8+int(size)]}, consumed, nil
}

// elements decodes a sequence of top-level (possibly compressed) miMATRIX elements.
func (d *decoder) elements(buf []byte, depth int) ([]*Array, error) {
	var out []*Array
	for len(buf) > 0 {
		if len(buf) < 8 && allZero(buf) {
			break
		}
		el, n, err := d.readTag(buf)
		if err != nil {
			return nil, err
		}
		buf = buf[n:]
		switch el.typ {
		case miCOMPRESSED:
			inflated, err := d.inflate(el.data)
			if err != nil {
				return nil, err
			}
			nested, err := d.elements(inflated, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case miMATRIX:
			arr, err := d.matrix(el.data, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, arr)
		default:
			// Stray top-level elements carry no variable.
		}
	}
	return out, nil
}

func (d *decoder) inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open compressed element: %w", err)
	}
	defer zr.Close()
	out, err := io.ReadAll(io.LimitReader(zr, int64(d.budget)+1))
	if err != nil {
		return nil, fmt.Errorf("inflate compressed element: %w", err)
	}
	if len(out) > d.budget {
		return nil, fmt.Errorf("%w of %d bytes", ErrInflateLimit, d.budget)
	}
	d.budget -= len(out)
	return out, nil
}

// matrix decodes the body of one miMATRIX element.
func (d *decoder) matrix(buf []byte, depth int) (*Array, error) {
	if depth > maxNestingDepth {
		return nil, fmt.Errorf("array nesting deeper than %d", maxNestingDepth)
	}
	if len(buf) == 0 {
		return &Array{Class: ClassDouble, Dims: []int{0, 0}}, nil
	}

	flagsEl, n, err := d.readTag(buf)
	if err != nil {
		return nil, fmt.Errorf("array flags: %w", err)
	}
	buf = buf[n:]
	if flagsEl.typ != miUINT32 || len(flagsEl.data) < 4 {
		return nil, fmt.Errorf("array flags: unexpected element type %d", flagsEl.typ)
	}
	flags := d.order.Uint32(flagsEl.data[0:4])
	arr := &Array{
		Class:   Class(flags & 0xFF),
		Complex: flags&flagComplex != 0,
		Logical: flags&flagLogical != 0,
	}

	dimsEl, n, err := d.readTag(buf)
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	buf = buf[n:]
	dims, err := d.int32s(dimsEl)
	if err != nil {
		return nil, fmt.Errorf("dimensions: %w", err)
	}
	arr.Dims = make([]int, len(dims))
	for i, v := range dims {
		if v < 0 {
			return nil, fmt.Errorf("dimensions: negative extent %d", v)
		}
		arr.Dims[i] = int(v)
	}
	if _, ok := elementCount(arr.Dims); !ok {
		return nil, fmt.Errorf("dimensions %v overflow the element count", arr.Dims)
	}

	nameEl, n, err := d.readTag(buf)
	if err != nil {
		return nil, fmt.Errorf("array name: %w", err)
	}
	buf = buf[n:]
	arr.Name = string(nameEl.data)

	switch {
	case arr.Class.IsNumeric():
		err = d.numeric(arr, buf)
	case arr.Class == ClassChar:
		err = d.char(arr, buf)
	case arr.Class == ClassStruct:
		err = d.structure(arr, buf, depth)
	case arr.Class == ClassCell:
		err = d.cell(arr, buf, depth)
	case arr.Class == ClassSparse, arr.Class == ClassObject:
		// Recognised but not decoded.
	default:
		err = fmt.Errorf("unknown array class %d", arr.Class)
	}
	if err != nil {
		return nil, fmt.Errorf("variable %q: %w", arr.Name, err)
	}
	return arr, nil
}

func (d *decoder) numeric(arr *Array, buf []byte) error {
	realEl, _, err := d.readTag(buf)
	if err != nil {
		return fmt.Errorf("real part: %w", err)
	}
	values, err := d.floats(realEl)
	if err != nil {
		return fmt.Errorf("real part: %w", err)
	}
	if want := arr.NumElements(); len(values) != want {
		return fmt.Errorf("real part holds %d values, dimensions need %d", len(values), want)
	}
	arr.Real = values
	return nil
}

func (d *decoder) char(arr *Array, buf []byte) error {
	el, _, err := d.readTag(buf)
	if err != nil {
		return fmt.Errorf("char data: %w", err)
	}
	var runes []rune
	switch el.typ {
	case miUTF8, miINT8, miUINT8:
		runes = []rune(string(el.data))
	case miUINT16, miUTF16:
		units := make([]uint16, len(el.data)/2)
		for i := range units {
			units[i] = d.order.Uint16(el.data[i*2:])
		}
		runes = utf16.Decode(units)
	case miUTF32, miINT32, miUINT32:
		runes = make([]rune, len(el.data)/4)
		for i := range runes {
			runes[i] = rune(d.order.Uint32(el.data[i*4:]))
		}
	default:
		return fmt.Errorf("unsupported char element type %d", el.typ)
	}
	// Char matrices are column-major; rebuild row by row.
	rows := arr.Rows()
	if rows <= 1 || len(runes) != arr.NumElements() {
		arr.Text = string(runes)
		return nil
	}
	cols := len(runes) / rows
	var b strings.Builder
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < cols; c++ {
			b.WriteRune(runes[c*rows+r])
		}
	}
	arr.Text = b.String()
	return nil
}

func (d *decoder) structure(arr *Array, buf []byte, depth int) error {
	lenEl, n, err := d.readTag(buf)
	if err != nil {
		return fmt.Errorf("field name length: %w", err)
	}
	buf = buf[n:]
	lengths, err := d.int32s(lenEl)
	if err != nil || len(lengths) != 1 || lengths[0] <= 0 {
		return fmt.Errorf("field name length: malformed")
	}
	width := int(lengths[0])

	namesEl, n, err := d.readTag(buf)
	if err != nil {
		return fmt.Errorf("field names: %w", err)
	}
	buf = buf[n:]
	if len(namesEl.data)%width != 0 {
		return fmt.Errorf("field names: %d bytes is not a multiple of %d", len(namesEl.data), width)
	}
	count := len(namesEl.data) / width
	arr.FieldNames = make([]string, count)
	for i := 0; i < count; i++ {
		raw := namesEl.data[i*width : (i+1)*width]
		if idx := bytes.IndexByte(raw, 0); idx >= 0 {
			raw = raw[:idx]
		}
		arr.FieldNames[i] = string(raw)
	}

	elems := arr.NumElements()
	switch {
	case count == 0 && elems > maxFieldlessElements:
		return fmt.Errorf("fieldless struct declares %d elements", elems)
	case count > 0 && elems > len(buf)/(8*count):
		return fmt.Errorf("struct declares %d elements of %d fields, %d bytes remain", elems, count, len(buf))
	}
	for e := 0; e < elems; e++ {
		fields := make(map[string]*Array, count)
		for _, name := range arr.FieldNames {
			el, n, err := d.readTag(buf)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			buf = buf[n:]
			if el.typ != miMATRIX {
				return fmt.Errorf("field %q: unexpected element type %d", name, el.typ)
			}
			value, err := d.matrix(el.data, depth+1)
			if err != nil {
				return fmt.Errorf("field %q: %w", name, err)
			}
			value.Name = name
			fields[name] = value
		}
		arr.Elements = append(arr.Elements, fields)
	}
	return nil
}

func (d *decoder) cell(arr *Array, buf []byte, depth int) error {
	elems := arr.NumElements()
	if elems > len(buf)/8 {
		return fmt.Errorf("cell array declares %d elements, %d bytes remain", elems, len(buf))
	}
	for e := 0; e < elems; e++ {
		el, n, err := d.readTag(buf)
		if err != nil {
			return fmt.Errorf("cell %d: %w", e, err)
		}
		buf = buf[n:]
		if el.typ != miMATRIX {
			return fmt.Errorf("cell %d: unexpected element type %d", e, el.typ)
		}
		value, err := d.matrix(el.data, depth+1)
		if err != nil {
			return fmt.Errorf("cell %d: %w", e, err)
		}
		arr.Cells = append(arr.Cells, value)
	}
	return nil
}

// elementCount multiplies dims, reporting false when the product overflows.
func elementCount(dims []int) (int, bool) {
	if len(dims) == 0 {
		return 0, true
	}
	n := 1
	for _, v := range dims {
		if v != 0 && n > math.MaxInt/v {
			return 0, false
		}
		n *= v
	}
	return n, true
}

func (d *decoder) int32s(el element) ([]int32, error) {
	switch el.typ {
	case miINT32, miUINT32:
	default:
		return nil, fmt.Errorf("expected int32 element, got type %d", el.typ)
	}
	if len(el.data)%4 != 0 {
		return nil, fmt.Errorf("int32 element holds %d bytes", len(el.data))
	}
	out := make([]int32, len(el.data)/4)
	for i := range out {
		out[i] = int32(d.order.Uint32(el.data[i*4:]))
	}
	return out, nil
}

// floats converts a numeric data element of any storage type to float64.
func (d *decoder) floats(el element) ([]float64, error) {
	size := elementSize(el.typ)
	if size == 0 {
		return nil, fmt.Errorf("unsupported numeric element type %d", el.typ)
	}
	if len(el.data)%size != 0 {
		return nil, fmt.Errorf("element of type %d holds %d bytes", el.typ, len(el.data))
	}
	n := len(el.data) / size
	out := make([]float64, n)
	data := el.data
	for i := 0; i < n; i++ {
		chunk := data[i*size : (i+1)*size]
		switch el.typ {
		case miINT8:
			out[i] = float64(int8(chunk[0]))
		case miUINT8:
			out[i] = float64(chunk[0])
		case miINT16:
			out[i] = float64(int16(d.order.Uint16(chunk)))
		case miUINT16:
			out[i] = float64(d.order.Uint16(chunk))
		case miINT32:
			out[i] = float64(int32(d.order.Uint32(chunk)))
		case miUINT32:
			out[i] = float64(d.order.Uint32(chunk))
		case miSINGLE:
			out[i] = float64(math.Float32frombits(d.order.Uint32(chunk)))
		case miDOUBLE:
			out[i] = math.Float64frombits(d.order.Uint64(chunk))
		case miINT64:
			out[i] = float64(int64(d.order.Uint64(chunk)))
		case miUINT64:
			out[i] = float64(d.order.Uint64(chunk))
		}
	}
	return out, nil
}

func elementSize(typ uint32) int {
	switch typ {
	case miINT8, miUINT8:
		return 1
	case miINT16, miUINT16:
		return 2
	case miINT32, miUINT32, miSINGLE:
		return 4
	case miDOUBLE, miINT64, miUINT64:
		return 8
	default:
		return 0
	}
}

func allZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
