// Package classfile writes the parts of a JVM class file the debug info
// translation produces: CONSTANT_Utf8 pool entries and the debug
// attributes of a Code attribute.
package classfile

import (
	"encoding/binary"

	"github.com/valyala/bytebufferpool"
)

// Writer appends big-endian class file primitives to a pooled buffer.
// Release must be called once the contents have been copied out.
type Writer struct {
	buf *bytebufferpool.ByteBuffer
}

func NewWriter() *Writer {
	return &Writer{buf: bytebufferpool.Get()}
}

func (w *Writer) U8(v uint8) { w.buf.B = append(w.buf.B, v) }

func (w *Writer) U16(v uint16) { w.buf.B = binary.BigEndian.AppendUint16(w.buf.B, v) }

func (w *Writer) U32(v uint32) { w.buf.B = binary.BigEndian.AppendUint32(w.buf.B, v) }

func (w *Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns a copy of the written data.
func (w *Writer) Bytes() []byte {
	return append([]byte(nil), w.buf.B...)
}

func (w *Writer) Release() {
	if w.buf != nil {
		bytebufferpool.Put(w.buf)
		w.buf = nil
	}
}
