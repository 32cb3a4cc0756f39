package binary

import "encoding/binary"

// Writer accumulates WASM binary output.
type Writer struct {
	buf []byte
}

// NewWriter creates an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int { return len(w.buf) }
func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

// WriteBytes writes raw bytes without a length prefix.
func (w *Writer) WriteBytes(data []byte) {
	w.buf = append(w.buf, data...)
}

func (w *Writer) WriteU32(v uint32) { w.buf = AppendU64(w.buf, uint64(v)) }
func (w *Writer) WriteU64(v uint64) { w.buf = AppendU64(w.buf, v) }
func (w *Writer) WriteS64(v int64) { w.buf = AppendS64(w.buf, v) }

// WriteName writes a length-prefixed UTF-8 name.
func (w *Writer) WriteName(s string) {
	w.WriteU32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteU32LE writes a fixed 4-byte little-endian uint32.
func (w *Writer) WriteU32LE(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// Vec writes the LEB128 count n followed by each element written by item.
func (w *Writer) Vec(n int, item func(i int)) {
	w.WriteU32(uint32(n))
	for i := 0; i < n; i++ {
		item(i)
	}
}

// Section writes id, the LEB128 size of body, then body.
func (w *Writer) Section(id byte, body *Writer) {
	w.Byte(id)
	w.WriteU32(uint32(body.Len()))
	w.WriteBytes(body.Bytes())
}
