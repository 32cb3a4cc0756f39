package wasm

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	wbin "github.com/wippyai/wasm-typegen/wasm/internal/binary"
)

// ErrOverflow is returned when a LEB128 value exceeds the maximum bit width.
var ErrOverflow = wbin.ErrOverflow

// ReadLEB128u reads an unsigned 32-bit LEB128 value.
func ReadLEB128u(r io.ByteReader) (uint32, error) {
	return wbin.DecodeU32(r)
}

// ReadLEB128s reads a signed 32-bit LEB128 value.
func ReadLEB128s(r io.ByteReader) (int32, error) {
	v, err := wbin.DecodeS64(r, 35)
	return int32(v), err
}

// ReadLEB128s64 reads a signed 64-bit LEB128 value.
func ReadLEB128s64(r io.ByteReader) (int64, error) {
	return wbin.DecodeS64(r, 70)
}

// WriteLEB128u, WriteLEB128s and WriteLEB128s64 append to w through a
// stack buffer; a 64-bit value needs at most 10 bytes.

func WriteLEB128u(w *bytes.Buffer, v uint32) {
	var scratch [10]byte
	w.Write(wbin.AppendU64(scratch[:0], uint64(v)))
}

func WriteLEB128s(w *bytes.Buffer, v int32) {
	WriteLEB128s64(w, int64(v))
}

func WriteLEB128s64(w *bytes.Buffer, v int64) {
	var scratch [10]byte
	w.Write(wbin.AppendS64(scratch[:0], v))
}

func EncodeLEB128u(v uint32) []byte { return wbin.AppendU64(nil, uint64(v)) }
func EncodeLEB128s(v int32) []byte { return wbin.AppendS64(nil, int64(v)) }

// ReadFloat32 reads a little-endian IEEE 754 float32.
func ReadFloat32(r io.Reader) (float32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:])), nil
}

// ReadFloat64 reads a little-endian IEEE 754 float64.
func ReadFloat64(r io.Reader) (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[:])), nil
}

func WriteFloat32(w *bytes.Buffer, v float32) {
	w.Write(binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

func WriteFloat64(w *bytes.Buffer, v float64) {
	w.Write(binary.LittleEndian.AppendUint64(nil, math.Float64bits(v)))
}
