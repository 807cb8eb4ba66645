package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"
)

// Writer builds a server frame payload. All multi-byte writes are little-endian.
type Writer struct {
	buf []byte
}

func NewWriterWithOpcode(opcode byte) *Writer {
	w := &Writer{buf: make([]byte, 0, 32)}
	w.WriteC(opcode)
	return w
}

// WriteC writes 1 byte.
func (w *Writer) WriteC(v byte) {
	w.buf = append(w.buf, v)
}

// WriteH writes 2 bytes little-endian.
func (w *Writer) WriteH(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *Writer) WriteSH(v int16) { w.WriteH(uint16(v)) }

// WriteDU writes 4 bytes little-endian unsigned.
func (w *Writer) WriteDU(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// WriteS writes a null-terminated string in ISO-8859-1. Runes outside
// Latin-1 become '?'.
func (w *Writer) WriteS(s string) {
	enc := charmap.ISO8859_1.NewEncoder()
	for _, r := range s {
		if r < 0x80 {
			w.buf = append(w.buf, byte(r))
			continue
		}
		b, err := enc.Bytes([]byte(string(r)))
		if err != nil || len(b) != 1 {
			w.buf = append(w.buf, '?')
			continue
		}
		w.buf = append(w.buf, b[0])
	}
	w.buf = append(w.buf, 0)
}

func (w *Writer) WritePos(x, y, z int16) {
	w.WriteSH(x)
	w.WriteSH(y)
	w.WriteSH(z)
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the current length.
func (w *Writer) Len() int {
	return len(w.buf)
}
