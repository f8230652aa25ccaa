package matfile

import "fmt"

// Class is the MATLAB array class from the array flags sub-element.
type Class uint8

const (
	ClassUnknown Class = 0
	ClassCell    Class = 1
	ClassStruct  Class = 2
	ClassObject  Class = 3
	ClassChar    Class = 4
	ClassSparse  Class = 5
	ClassDouble  Class = 6
	ClassSingle  Class = 7
	ClassInt8    Class = 8
	ClassUint8   Class = 9
	ClassInt16   Class = 10
	ClassUint16  Class = 11
	ClassInt32   Class = 12
	ClassUint32  Class = 13
	ClassInt64   Class = 14
	ClassUint64  Class = 15
)

var classNames = map[Class]string{
	ClassCell:   "cell",
	ClassStruct: "struct",
	ClassObject: "object",
	ClassChar:   "char",
	ClassSparse: "sparse",
	ClassDouble: "double",
	ClassSingle: "single",
	ClassInt8:   "int8",
	ClassUint8:  "uint8",
	ClassInt16:  "int16",
	ClassUint16: "uint16",
	ClassInt32:  "int32",
	ClassUint32: "uint32",
	ClassInt64:  "int64",
	ClassUint64: "uint64",
}

func (c Class) String() string {
	if name, ok := classNames[c]; ok {
		return name
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// IsNumeric reports whether arrays of this class carry numeric data.
func (c Class) IsNumeric() bool {
	return c >= ClassDouble && c <= ClassUint64
}

// Data element types.
const (
	miINT8       = 1
	miUINT8      = 2
	miINT16      = 3
	miUINT16     = 4
	miINT32      = 5
	miUINT32     = 6
	miSINGLE     = 7
	miDOUBLE     = 9
	miINT64      = 12
	miUINT64     = 13
	miMATRIX     = 14
	miCOMPRESSED = 15
	miUTF8       = 16
	miUTF16      = 17
	miUTF32      = 18
)

// Array flag bits.
const (
	flagComplex = 0x0800
	flagLogical = 0x0200
)

// Array is one decoded MATLAB variable or nested value.
type Array struct {
	Name    string
	Class   Class
	Dims    []int
	Logical bool
	Complex bool

	// Real holds numeric data in column-major order, converted to float64.
	Real []float64
	// Text holds char array contents with rows concatenated.
	Text string
	// FieldNames lists struct fields in declaration order.
	FieldNames []string
	// Elements holds one field map per struct element, column-major.
	Elements []map[string]*Array
	// Cells holds cell array contents, column-major.
	Cells []*Array
}

// NumElements returns the product of the dimensions.
func (a *Array) NumElements() int {
	if a == nil || len(a.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range a.Dims {
		n *= d
	}
	return n
}

// IsEmpty reports whether the array has zero elements.
func (a *Array) IsEmpty() bool {
	return a.NumElements() == 0
}

// IsNumeric reports whether the array carries numeric (or logical) data.
func (a *Array) IsNumeric() bool {
	return a != nil && a.Class.IsNumeric()
}

// IsScalarStruct reports whether the array is a 1x1 struct.
func (a *Array) IsScalarStruct() bool {
	return a != nil && a.Class == ClassStruct && a.NumElements() == 1 && len(a.Elements) == 1
}

// Field returns a field of a 1x1 struct.
func (a *Array) Field(name string) (*Array, bool) {
	if !a.IsScalarStruct() {
		return nil, false
	}
	v, ok := a.Elements[0][name]
	return v, ok && v != nil
}

// Scalar returns the single numeric value of a 1x1 numeric array.
func (a *Array) Scalar() (float64, bool) {
	if !a.IsNumeric() || len(a.Real) != 1 {
		return 0, false
	}
	return a.Real[0], true
}

// Rows returns the first dimension, or 0 for an empty array.
func (a *Array) Rows() int {
	if a == nil || len(a.Dims) == 0 {
		return 0
	}
	return a.Dims[0]
}

// Cols returns the product of every dimension after the first.
func (a *Array) Cols() int {
	if a == nil || len(a.Dims) < 2 {
		return 0
	}
	n := 1
	for _, d := range a.Dims[1:] {
		n *= d
	}
	return n
}

// Columns splits numeric data into columns. A row vector (1xN) is returned as
// one column of N samples, as is any array with more than two dimensions.
func (a *Array) Columns() [][]float64 {
	if !a.IsNumeric() || len(a.Real) == 0 {
		return nil
	}
	rows, cols := a.Rows(), a.Cols()
	if len(a.Dims) != 2 || rows == 1 || rows*cols != len(a.Real) {
		out := make([]float64, len(a.Real))
		copy(out, a.Real)
		return [][]float64{out}
	}
	columns := make([][]float64, cols)
	for c := 0; c < cols; c++ {
		col := make([]float64, rows)
		copy(col, a.Real[c*rows:(c+1)*rows])
		columns[c] = col
	}
	return columns
}

// File is a decoded MAT-file.
type File struct {
	Header    string
	Version   uint16
	Variables []*Array
}

// Variable returns the top-level variable with the given name.
func (f *File) Variable(name string) (*Array, bool) {
	if f == nil {
		return nil, false
	}
	for _, v := range f.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return nil, false
}

// Names lists top-level variable names in file order.
func (f *File) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, 0, len(f.Variables))
	for _, v := range f.Variables {
		names = append(names, v.Name)
	}
	return names
}
