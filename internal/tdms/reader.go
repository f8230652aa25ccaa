package tdms

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"time"
)

const (
	leadInSize = 28

	tocMetaData    = 1 << 1
	tocNewObjList  = 1 << 2
	tocRawData     = 1 << 3
	tocInterleaved = 1 << 5
	tocBigEndian   = 1 << 6
	tocDAQmxRaw    = 1 << 7

	indexNone          = 0xFFFFFFFF
	indexSameAsPrev    = 0x00000000
	indexDAQmxFormat   = 0x69120000
	indexDAQmxDigital  = 0x69130000
	incompleteSentinel = math.MaxUint64
)

var (
	// ErrNotTDMS marks input without a TDMS lead-in.
	ErrNotTDMS = errors.New("not a TDMS file")
	// ErrDAQmxRaw marks channels whose samples are stored as DAQmx raw buffers.
	ErrDAQmxRaw = errors.New("DAQmx raw data is not supported")
	// ErrNonNumeric marks channels whose data type does not convert to float64.
	ErrNonNumeric = errors.New("channel data is not numeric")
)

var tdmsEpoch = time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)

// dataRef locates count values of one channel inside the file image.
type dataRef struct {
	offset    int
	count     int
	stride    int
	typ       DataType
	bigEndian bool
}

type rawIndex struct {
	hasData   bool
	daqmx     bool
	typ       DataType
	count     uint64
	totalSize uint64
}

// byteSize returns the bytes one chunk of this object occupies.
func (ix rawIndex) byteSize() (uint64, error) {
	if !ix.hasData {
		return 0, nil
	}
	if ix.typ == TypeString || ix.daqmx {
		return ix.totalSize, nil
	}
	size := ix.typ.Size()
	if size == 0 {
		return 0, fmt.Errorf("raw data of type %s has no fixed width", ix.typ)
	}
	if ix.count > math.MaxUint64/uint64(size) {
		return 0, fmt.Errorf("raw data index of %d %s values overflows", ix.count, ix.typ)
	}
	return ix.count * uint64(size), nil
}

type object struct {
	path      string
	group     string
	channel   string
	level     int
	props     []Property
	lastIndex *rawIndex
	channelP  *Channel
}

type activeObject struct {
	obj   *object
	index rawIndex
}

// Open reads and decodes the TDMS file at path.
func Open(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tdms file: %w", err)
	}
	return Decode(data)
}

// Decode parses a complete TDMS file image.
func Decode(data []byte) (*File, error) {
	p := &parser{
		data:    data,
		file:    &File{data: data},
		objects: make(map[string]*object),
	}
	if err := p.parse(); err != nil {
		return nil, err
	}
	return p.file, nil
}

type parser struct {
	data    []byte
	file    *File
	objects map[string]*object
	order   []*object
	active  []activeObject
}

func (p *parser) parse() error {
	if len(p.data) < leadInSize {
		return fmt.Errorf("%w: %d bytes is shorter than a lead-in", ErrNotTDMS, len(p.data))
	}
	pos := 0
	segment := 0
	for pos < len(p.data) {
		if len(p.data)-pos < leadInSize {
			p.file.Incomplete = true
			break
		}
		lead := p.data[pos : pos+leadInSize]
		if string(lead[0:4]) != "TDSm" {
			if segment == 0 {
				return fmt.Errorf("%w: missing TDSm tag", ErrNotTDMS)
			}
			return fmt.Errorf("segment %d at offset %d: missing TDSm tag", segment, pos)
		}
		toc := binary.LittleEndian.Uint32(lead[4:8])
		nextOffset := binary.LittleEndian.Uint64(lead[12:20])
		rawOffset := binary.LittleEndian.Uint64(lead[20:28])

		metaStart := pos + leadInSize
		available := uint64(len(p.data) - metaStart)
		last := false
		if nextOffset == incompleteSentinel || nextOffset > available {
			nextOffset = available
			last = true
			p.file.Incomplete = true
		}
		if rawOffset > nextOffset {
			return fmt.Errorf("segment %d: raw data offset %d beyond segment end %d", segment, rawOffset, nextOffset)
		}

		var order binary.ByteOrder = binary.LittleEndian
		if toc&tocBigEndian != 0 {
			order = binary.BigEndian
		}

		if toc&tocMetaData != 0 {
			meta := &cursor{buf: p.data[metaStart : metaStart+int(rawOffset)], order: order}
			if err := p.readMetadata(meta, toc&tocNewObjList != 0); err != nil {
				return fmt.Errorf("segment %d metadata: %w", segment, err)
			}
		}

		if toc&tocRawData != 0 {
			dataStart := metaStart + int(rawOffset)
			dataEnd := metaStart + int(nextOffset)
			if err := p.layoutRawData(dataStart, dataEnd, toc, order, last); err != nil {
				return fmt.Errorf("segment %d raw data: %w", segment, err)
			}
		}

		pos = metaStart + int(nextOffset)
		segment++
		if last {
			break
		}
	}
	p.buildTree()
	return nil
}

func (p *parser) readMetadata(c *cursor, newList bool) error {
	count, err := c.u32()
	if err != nil {
		return fmt.Errorf("object count: %w", err)
	}
	if newList {
		p.active = nil
	}
	for i := uint32(0); i < count; i++ {
		path, err := c.str()
		if err != nil {
			return fmt.Errorf("object %d path: %w", i, err)
		}
		obj, err := p.object(path)
		if err != nil {
			return err
		}
		index, err := p.readIndex(c, obj)
		if err != nil {
			return fmt.Errorf("object %q index: %w", path, err)
		}
		nprops, err := c.u32()
		if err != nil {
			return fmt.Errorf("object %q property count: %w", path, err)
		}
		for j := uint32(0); j < nprops; j++ {
			prop, err := c.property()
			if err != nil {
				return fmt.Errorf("object %q property %d: %w", path, j, err)
			}
			obj.props = setProperty(obj.props, prop)
		}
		if obj.level == 2 {
			p.activate(obj, index)
		}
	}
	return nil
}

func (p *parser) activate(obj *object, index rawIndex) {
	for i := range p.active {
		if p.active[i].obj == obj {
			p.active[i].index = index
			return
		}
	}
	p.active = append(p.active, activeObject{obj: obj, index: index})
}

func (p *parser) readIndex(c *cursor, obj *object) (rawIndex, error) {
	head, err := c.u32()
	if err != nil {
		return rawIndex{}, err
	}
	switch head {
	case indexNone:
		return rawIndex{}, nil
	case indexSameAsPrev:
		if obj.lastIndex == nil {
			return rawIndex{}, errors.New("refers to a previous index that does not exist")
		}
		return *obj.lastIndex, nil
	case indexDAQmxFormat, indexDAQmxDigital:
		ix, err := c.daqmxIndex()
		if err != nil {
			return rawIndex{}, err
		}
		obj.lastIndex = &ix
		return ix, nil
	}
	typ, err := c.u32()
	if err != nil {
		return rawIndex{}, err
	}
	dim, err := c.u32()
	if err != nil {
		return rawIndex{}, err
	}
	if dim != 1 {
		return rawIndex{}, fmt.Errorf("array dimension %d (only 1 is defined)", dim)
	}
	n, err := c.u64()
	if err != nil {
		return rawIndex{}, err
	}
	ix := rawIndex{hasData: true, typ: DataType(typ), count: n}
	if ix.typ == TypeString {
		if ix.totalSize, err = c.u64(); err != nil {
			return rawIndex{}, err
		}
	}
	obj.lastIndex = &ix
	return ix, nil
}

func (p *parser) object(path string) (*object, error) {
	if obj, ok := p.objects[path]; ok {
		return obj, nil
	}
	parts, err := splitPath(path)
	if err != nil {
		return nil, err
	}
	obj := &object{path: path, level: len(parts)}
	switch len(parts) {
	case 0:
	case 1:
		obj.group = parts[0]
	case 2:
		obj.group, obj.channel = parts[0], parts[1]
	default:
		return nil, fmt.Errorf("object path %q nests deeper than group/channel", path)
	}
	p.objects[path] = obj
	p.order = append(p.order, obj)
	return obj, nil
}

// layoutRawData records where each active channel's values sit in this segment.
func (p *parser) layoutRawData(start, end int, toc uint32, order binary.ByteOrder, last bool) error {
	big := order == binary.BigEndian
	var chunkSize uint64
	for _, a := range p.active {
		size, err := a.index.byteSize()
		if err != nil {
			return fmt.Errorf("channel %q: %w", a.obj.path, err)
		}
		if size > math.MaxUint64-chunkSize {
			return fmt.Errorf("channel %q: chunk size overflows", a.obj.path)
		}
		chunkSize += size
	}
	if chunkSize == 0 {
		return nil
	}
	length := uint64(end - start)
	chunks := length / chunkSize
	remainder := length % chunkSize
	interleaved := toc&tocInterleaved != 0
	daqmxSegment := toc&tocDAQmxRaw != 0

	for _, a := range p.active {
		if a.index.daqmx || (daqmxSegment && a.index.hasData) {
			p.channel(a.obj).readErr = ErrDAQmxRaw
		}
	}

	if interleaved {
		var stride int
		for _, a := range p.active {
			if !a.index.hasData {
				continue
			}
			stride += a.index.typ.Size()
		}
		if stride == 0 {
			return errors.New("interleaved data has no fixed-width channels")
		}
		rows := int(length) / stride
		offset := 0
		for _, a := range p.active {
			if !a.index.hasData {
				continue
			}
			ch := p.channel(a.obj)
			ch.DataType = a.index.typ
			ch.refs = append(ch.refs, dataRef{
				offset: start + offset, count: rows, stride: stride,
				typ: a.index.typ, bigEndian: big,
			})
			if last && int(length)%stride != 0 {
				ch.Truncated = true
			}
			offset += a.index.typ.Size()
		}
		return nil
	}

	pos := start
	for k := uint64(0); k < chunks; k++ {
		for _, a := range p.active {
			size, _ := a.index.byteSize()
			if size == 0 {
				continue
			}
			p.addContiguous(a, pos, int(a.index.count), big)
			pos += int(size)
		}
	}
	if remainder == 0 {
		return nil
	}
	if !last {
		return fmt.Errorf("%d trailing bytes do not form a whole chunk of %d", remainder, chunkSize)
	}
	// Partial final chunk of an interrupted acquisition: keep whole values.
	left := int(remainder)
	for _, a := range p.active {
		size, _ := a.index.byteSize()
		if size == 0 {
			continue
		}
		ch := p.channel(a.obj)
		if uint64(left) >= size {
			p.addContiguous(a, pos, int(a.index.count), big)
			pos += int(size)
			left -= int(size)
			continue
		}
		ch.Truncated = true
		if width := a.index.typ.Size(); width > 0 && a.index.typ != TypeString && !a.index.daqmx {
			if whole := left / width; whole > 0 {
				p.addContiguous(a, pos, whole, big)
			}
		}
		left = 0
	}
	return nil
}

func (p *parser) addContiguous(a activeObject, offset, count int, big bool) {
	ch := p.channel(a.obj)
	ch.DataType = a.index.typ
	if a.index.typ == TypeString || a.index.daqmx {
		if ch.readErr == nil && a.index.typ == TypeString {
			ch.readErr = ErrNonNumeric
		}
		return
	}
	ch.refs = append(ch.refs, dataRef{
		offset: offset, count: count, stride: a.index.typ.Size(),
		typ: a.index.typ, bigEndian: big,
	})
}

func (p *parser) channel(obj *object) *Channel {
	if obj.channelP == nil {
		obj.channelP = &Channel{Group: obj.group, Name: obj.channel, file: p.file}
	}
	return obj.channelP
}

func (p *parser) buildTree() {
	groups := make(map[string]*Group)
	group := func(name string) *Group {
		if g, ok := groups[name]; ok {
			return g
		}
		g := &Group{Name: name}
		groups[name] = g
		p.file.Groups = append(p.file.Groups, g)
		return g
	}
	for _, obj := range p.order {
		switch obj.level {
		case 0:
			p.file.Properties = obj.props
		case 1:
			group(obj.group).Properties = obj.props
		case 2:
			ch := p.channel(obj)
			ch.Properties = obj.props
			if ch.DataType == TypeVoid && obj.lastIndex != nil {
				ch.DataType = obj.lastIndex.typ
			}
			g := group(obj.group)
			g.Channels = append(g.Channels, ch)
		}
	}
}

// splitPath parses an object path such as /'Log'/'ai0' into its quoted parts.
func splitPath(path string) ([]string, error) {
	if path == "/" {
		return nil, nil
	}
	var parts []string
	rest := path
	for rest != "" {
		if !strings.HasPrefix(rest, "/'") {
			return nil, fmt.Errorf("malformed object path %q", path)
		}
		rest = rest[2:]
		var b strings.Builder
		closed := false
		for i := 0; i < len(rest); i++ {
			if rest[i] != '\'' {
				b.WriteByte(rest[i])
				continue
			}
			if i+1 < len(rest) && rest[i+1] == '\'' {
				b.WriteByte('\'')
				i++
				continue
			}
			rest = rest[i+1:]
			closed = true
			break
		}
		if !closed {
			return nil, fmt.Errorf("unterminated name in object path %q", path)
		}
		parts = append(parts, b.String())
	}
	return parts, nil
}

// ReadFloat64 converts the channel's samples to float64.
func (c *Channel) ReadFloat64() ([]float64, error) {
	if c.readErr != nil {
		return nil, c.readErr
	}
	if len(c.refs) == 0 {
		return nil, nil
	}
	if !c.DataType.IsNumeric() {
		return nil, fmt.Errorf("%w: %s", ErrNonNumeric, c.DataType)
	}
	data := c.file.data
	out := make([]float64, 0, c.NumValues())
	for _, r := range c.refs {
		var order binary.ByteOrder = binary.LittleEndian
		if r.bigEndian {
			order = binary.BigEndian
		}
		width := r.typ.Size()
		for i := 0; i < r.count; i++ {
			at := r.offset + i*r.stride
			if at+width > len(data) {
				return nil, fmt.Errorf("sample %d lies beyond the end of the file", len(out))
			}
			out = append(out, decodeValue(data[at:at+width], r.typ, order))
		}
	}
	return out, nil
}

func decodeValue(b []byte, typ DataType, order binary.ByteOrder) float64 {
	switch typ {
	case TypeI8:
		return float64(int8(b[0]))
	case TypeU8:
		return float64(b[0])
	case TypeBoolean:
		if b[0] != 0 {
			return 1
		}
		return 0
	case TypeI16:
		return float64(int16(order.Uint16(b)))
	case TypeU16:
		return float64(order.Uint16(b))
	case TypeI32:
		return float64(int32(order.Uint32(b)))
	case TypeU32:
		return float64(order.Uint32(b))
	case TypeI64:
		return float64(int64(order.Uint64(b)))
	case TypeU64:
		return float64(order.Uint64(b))
	case TypeSingle, TypeSingleWithUnit:
		return float64(math.Float32frombits(order.Uint32(b)))
	case TypeDouble, TypeDoubleWithUnit:
		return math.Float64frombits(order.Uint64(b))
	default:
		return math.NaN()
	}
}
