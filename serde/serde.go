// Package serde encodes and decodes the fixed-width, little-endian
// primitives used by the on-disk segment format: the log header, batch
// frames, batch bodies, records, and index entries (spec §6).
package serde

import "encoding/binary"

// Encoding is little-endian, as specified for every on-disk integer.
var Encoding = binary.LittleEndian

// Encoder is a growable byte buffer with an encode cursor.
type Encoder struct {
	b []byte
}

// NewEncoder returns an Encoder with a small pre-sized buffer.
func NewEncoder() *Encoder {
	return &Encoder{b: make([]byte, 0, 256)}
}

// PutUint32 appends a little-endian uint32.
func (e *Encoder) PutUint32(v uint32) {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
}

// PutInt32 appends a little-endian int32.
func (e *Encoder) PutInt32(v int32) {
	e.PutUint32(uint32(v))
}

// PutUint64 appends a little-endian uint64.
func (e *Encoder) PutUint64(v uint64) {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
}

// PutInt64 appends a little-endian int64.
func (e *Encoder) PutInt64(v int64) {
	e.PutUint64(uint64(v))
}

// PutBytes appends raw bytes verbatim (no length prefix).
func (e *Encoder) PutBytes(b []byte) {
	e.b = append(e.b, b...)
}

// Bytes returns the encoded buffer.
func (e *Encoder) Bytes() []byte {
	return e.b
}

// Decoder reads fixed-width little-endian fields from a byte slice.
type Decoder struct {
	b      []byte
	Offset int
}

// NewDecoder wraps b for sequential decoding.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{b: b}
}

// Remaining returns how many bytes are left to decode.
func (d *Decoder) Remaining() int {
	return len(d.b) - d.Offset
}

// Uint32 decodes a little-endian uint32.
func (d *Decoder) Uint32() uint32 {
	v := binary.LittleEndian.Uint32(d.b[d.Offset:])
	d.Offset += 4
	return v
}

// Int32 decodes a little-endian int32.
func (d *Decoder) Int32() int32 {
	return int32(d.Uint32())
}

// Uint64 decodes a little-endian uint64.
func (d *Decoder) Uint64() uint64 {
	v := binary.LittleEndian.Uint64(d.b[d.Offset:])
	d.Offset += 8
	return v
}

// Int64 decodes a little-endian int64.
func (d *Decoder) Int64() int64 {
	return int64(d.Uint64())
}

// Bytes reads n raw bytes.
func (d *Decoder) Bytes(n int) []byte {
	v := d.b[d.Offset : d.Offset+n]
	d.Offset += n
	return v
}
