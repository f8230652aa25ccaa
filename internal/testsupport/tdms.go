package testsupport

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"
)

// TDMSProperty is a typed object property. Value may be string, float64,
// int32, int64, uint32, bool, or time.Time.
type TDMSProperty struct {
	Name  string
	Value any
}

// TDMSChannel is one channel. A channel without Data is written with no raw
// data index, the layout acquisitions leave when a channel was never sampled.
type TDMSChannel struct {
	Name       string
	Properties []TDMSProperty
	Data       []float64
	// DAQmx writes Data as an int16 DAQmx raw buffer.
	DAQmx bool
	// DeclaredCount, when set, replaces the value count in the raw data index.
	DeclaredCount uint64
}

// TDMSGroup is one group of channels.
type TDMSGroup struct {
	Name       string
	Properties []TDMSProperty
	Channels   []TDMSChannel
}

// TDMSFile describes a fixture file.
type TDMSFile struct {
	Properties []TDMSProperty
	Groups     []TDMSGroup
	// Segments splits every channel's data evenly across this many segments;
	// later segments reuse the first segment's raw data index. Data lengths
	// must be divisible by Segments.
	Segments    int
	Interleaved bool
	// Incomplete marks the final segment as never finalised.
	Incomplete bool
	// TruncateBytes drops this many bytes from the end of the encoded file.
	TruncateBytes int
}

const (
	tdmsTocMeta        = 1 << 1
	tdmsTocNewObjList  = 1 << 2
	tdmsTocRawData     = 1 << 3
	tdmsTocInterleaved = 1 << 5
)

// TDMSPath quotes a group (and optional channel) into an object path.
func TDMSPath(group string, channel ...string) string {
	quote := func(s string) string { return "/'" + strings.ReplaceAll(s, "'", "''") + "'" }
	path := quote(group)
	for _, c := range channel {
		path += quote(c)
	}
	return path
}

// EncodeTDMS serialises a fixture as a little-endian TDMS 2.0 file.
func EncodeTDMS(f TDMSFile) []byte {
	segments := f.Segments
	if segments < 1 {
		segments = 1
	}
	var out bytes.Buffer
	for seg := 0; seg < segments; seg++ {
		var meta, raw bytes.Buffer
		toc := uint32(tdmsTocMeta)
		if seg == 0 {
			toc |= tdmsTocNewObjList
			writeFirstMetadata(&meta, f, segments)
		} else {
			writeReuseMetadata(&meta, f)
		}
		if writeRawData(&raw, f, seg, segments) {
			toc |= tdmsTocRawData
		}
		if f.Interleaved {
			toc |= tdmsTocInterleaved
		}

		next := uint64(meta.Len() + raw.Len())
		if f.Incomplete && seg == segments-1 {
			next = math.MaxUint64
		}
		out.WriteString("TDSm")
		writeU32(&out, toc)
		writeU32(&out, 4713)
		writeU64(&out, next)
		writeU64(&out, uint64(meta.Len()))
		out.Write(meta.Bytes())
		out.Write(raw.Bytes())
	}
	data := out.Bytes()
	if f.TruncateBytes > 0 && f.TruncateBytes < len(data) {
		data = data[:len(data)-f.TruncateBytes]
	}
	return data
}

// WriteTDMS encodes a fixture to path, creating parent directories.
func WriteTDMS(t testing.TB, path string, f TDMSFile) {
	t.Helper()
	WriteBytes(t, path, EncodeTDMS(f))
}

func writeFirstMetadata(meta *bytes.Buffer, f TDMSFile, segments int) {
	count := 1
	for _, g := range f.Groups {
		count += 1 + len(g.Channels)
	}
	writeU32(meta, uint32(count))
	writeObject(meta, "/", f.Properties)
	for _, g := range f.Groups {
		writeObject(meta, TDMSPath(g.Name), g.Properties)
		for _, ch := range g.Channels {
			writeString(meta, TDMSPath(g.Name, ch.Name))
			per := uint64(len(ch.Data) / segments)
			if ch.DeclaredCount > 0 {
				per = ch.DeclaredCount
			}
			switch {
			case len(ch.Data) == 0:
				writeU32(meta, 0xFFFFFFFF)
			case ch.DAQmx:
				writeU32(meta, 0x69120000)
				writeU32(meta, 0xFFFFFFFF)
				writeU32(meta, 1)
				writeU64(meta, per)
				writeU32(meta, 1)
				// scaler: data type, raw buffer index, raw byte offset, sample format, scale id
				writeU32(meta, 2)
				writeU32(meta, 0)
				writeU32(meta, 0)
				meta.WriteByte(0)
				writeU32(meta, 0)
				writeU32(meta, 1)
				writeU32(meta, 2)
			default:
				writeU32(meta, 20)
				writeU32(meta, 10)
				writeU32(meta, 1)
				writeU64(meta, per)
			}
			writeProperties(meta, ch.Properties)
		}
	}
}

func writeReuseMetadata(meta *bytes.Buffer, f TDMSFile) {
	var paths []string
	for _, g := range f.Groups {
		for _, ch := range g.Channels {
			if len(ch.Data) > 0 {
				paths = append(paths, TDMSPath(g.Name, ch.Name))
			}
		}
	}
	writeU32(meta, uint32(len(paths)))
	for _, p := range paths {
		writeString(meta, p)
		writeU32(meta, 0)
		writeU32(meta, 0)
	}
}

func writeRawData(raw *bytes.Buffer, f TDMSFile, seg, segments int) bool {
	type slice struct {
		values []float64
		daqmx  bool
	}
	var parts []slice
	for _, g := range f.Groups {
		for _, ch := range g.Channels {
			if len(ch.Data) == 0 {
				continue
			}
			per := len(ch.Data) / segments
			parts = append(parts, slice{values: ch.Data[seg*per : (seg+1)*per], daqmx: ch.DAQmx})
		}
	}
	if len(parts) == 0 {
		return false
	}
	writeValue := func(v float64, daqmx bool) {
		if daqmx {
			_ = binary.Write(raw, binary.LittleEndian, int16(v))
			return
		}
		writeU64(raw, math.Float64bits(v))
	}
	if f.Interleaved {
		for i := range parts[0].values {
			for _, p := range parts {
				writeValue(p.values[i], p.daqmx)
			}
		}
		return true
	}
	for _, p := range parts {
		for _, v := range p.values {
			writeValue(v, p.daqmx)
		}
	}
	return true
}

func writeObject(meta *bytes.Buffer, path string, props []TDMSProperty) {
	writeString(meta, path)
	writeU32(meta, 0xFFFFFFFF)
	writeProperties(meta, props)
}

func writeProperties(meta *bytes.Buffer, props []TDMSProperty) {
	writeU32(meta, uint32(len(props)))
	for _, p := range props {
		writeString(meta, p.Name)
		switch v := p.Value.(type) {
		case string:
			writeU32(meta, 0x20)
			writeString(meta, v)
		case float64:
			writeU32(meta, 10)
			writeU64(meta, math.Float64bits(v))
		case int32:
			writeU32(meta, 3)
			writeU32(meta, uint32(v))
		case int64:
			writeU32(meta, 4)
			writeU64(meta, uint64(v))
		case uint32:
			writeU32(meta, 7)
			writeU32(meta, v)
		case bool:
			writeU32(meta, 0x21)
			if v {
				meta.WriteByte(1)
			} else {
				meta.WriteByte(0)
			}
		case time.Time:
			writeU32(meta, 0x44)
			epoch := time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
			d := v.UTC().Sub(epoch)
			seconds := int64(d / time.Second)
			writeU64(meta, 0)
			writeU64(meta, uint64(seconds))
		default:
			panic(fmt.Sprintf("testsupport: unsupported TDMS property type %T", p.Value))
		}
	}
}

func writeString(b *bytes.Buffer, s string) {
	writeU32(b, uint32(len(s)))
	b.WriteString(s)
}

func writeU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func writeU64(b *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.Write(tmp[:])
}
