package packet

import (
	"encoding/binary"

	"golang.org/x/text/encoding/charmap"
)

// Reader reads packet fields from a payload. Byte 0 is always the opcode.
type Reader struct {
	data []byte
	off  int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, off: 1} // skip opcode byte
}

func (r *Reader) Opcode() byte {
	if len(r.data) == 0 {
		return 0
	}
	return r.data[0]
}

// ReadC reads 1 unsigned byte.
func (r *Reader) ReadC() byte {
	if r.off >= len(r.data) {
		return 0
	}
	v := r.data[r.off]
	r.off++
	return v
}

// ReadH reads 2 bytes as little-endian uint16.
func (r *Reader) ReadH() uint16 {
	if r.off+2 > len(r.data) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

// ReadSH reads 2 bytes as little-endian int16.
func (r *Reader) ReadSH() int16 { return int16(r.ReadH()) }

// ReadD reads 4 bytes as little-endian int32.
func (r *Reader) ReadD() int32 {
	if r.off+4 > len(r.data) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// ReadS reads a null-terminated ISO-8859-1 string and returns UTF-8.
func (r *Reader) ReadS() string {
	start := r.off
	for r.off < len(r.data) {
		if r.data[r.off] == 0 {
			raw := r.data[start:r.off]
			r.off++ // skip null terminator
			return latin1ToUTF8(raw)
		}
		r.off++
	}
	return latin1ToUTF8(r.data[start:r.off])
}

func latin1ToUTF8(raw []byte) string {
	for _, b := range raw {
		if b >= 0x80 {
			decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
			if err != nil {
				return string(raw)
			}
			return string(decoded)
		}
	}
	return string(raw)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}
