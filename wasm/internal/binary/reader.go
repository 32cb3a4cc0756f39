package binary

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrUnexpectedEOF is returned when the input ends inside a value.
var ErrUnexpectedEOF = errors.New("unexpected end of input")

// Reader decodes WASM binary values from an in-memory slice and tracks
// its position for error reporting.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte offset.
func (r *Reader) Position() int {
	return r.pos
}

// Len returns the number of unread bytes.
func (r *Reader) Len() int {
	return len(r.data) - r.pos
}

// ReadByte reads one byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, ErrUnexpectedEOF
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadBytes reads exactly n bytes. The result aliases the input.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.Len() < n {
		return nil, r.wrapError(ErrUnexpectedEOF)
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

// ReadRemaining reads everything that is left.
func (r *Reader) ReadRemaining() []byte {
	out := r.data[r.pos:]
	r.pos = len(r.data)
	return out
}

// ReadU32 reads an unsigned LEB128 uint32.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := DecodeU32(r)
	if errors.Is(err, ErrOverflow) {
		return 0, r.wrapError(err)
	}
	return v, err
}

// ReadS64 reads a signed LEB128 int64.
func (r *Reader) ReadS64() (int64, error) {
	v, err := DecodeS64(r, 70)
	if errors.Is(err, ErrOverflow) {
		return 0, r.wrapError(err)
	}
	return v, err
}

// ReadName reads a length-prefixed UTF-8 name.
func (r *Reader) ReadName() (string, error) {
	n, err := r.ReadU32()
	if err != nil {
		return "", err
	}
	data, err := r.ReadBytes(int(n))
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", r.wrapError(errors.New("invalid UTF-8 in name"))
	}
	return string(data), nil
}

// ReadU32LE reads a fixed 4-byte little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

func (r *Reader) wrapError(err error) error {
	return fmt.Errorf("at position %d: %w", r.pos, err)
}

// ParseError is a decoding failure annotated with section and position.
type ParseError struct {
	Err      error
	Section  string
	Position int
}

func (e *ParseError) Error() string {
	if e.Section != "" {
		return fmt.Sprintf("wasm: %s at position %d: %v", e.Section, e.Position, e.Err)
	}
	return fmt.Sprintf("wasm: at position %d: %v", e.Position, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapError annotates err with the reader's current position.
func (r *Reader) WrapError(section string, err error) error {
	return &ParseError{Position: r.pos, Section: section, Err: err}
}

// Vec reads a LEB128 count and calls item once per element.
func (r *Reader) Vec(item func(i int) error) error {
	n, err := r.ReadU32()
	if err != nil {
		return err
	}
	for i := 0; i < int(n); i++ {
		if err := item(i); err != nil {
			return err
		}
	}
	return nil
}

// Since returns a copy of the bytes consumed after offset pos.
func (r *Reader) Since(pos int) []byte {
	return append([]byte(nil), r.data[pos:r.pos]...)
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) error {
	_, err := r.ReadBytes(n)
	return err
}
