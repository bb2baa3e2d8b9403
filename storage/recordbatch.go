package storage

import (
	"hash/crc32"

	"github.com/CefBoud/corelog/serde"
	"github.com/CefBoud/corelog/types"
)

// encodeRecord serializes one Record as
// i32 key_len | key_bytes | i32 value_len | value_bytes | i64 timestamp_ms.
func encodeRecord(e *serde.Encoder, r types.Record) {
	e.PutInt32(int32(len(r.Key)))
	e.PutBytes(r.Key)
	e.PutInt32(int32(len(r.Value)))
	e.PutBytes(r.Value)
	e.PutInt64(r.TimestampMs)
}

// decodeRecord deserializes one Record, advancing d.
func decodeRecord(d *serde.Decoder) types.Record {
	keyLen := int(d.Int32())
	var key []byte
	if keyLen >= 0 {
		key = d.Bytes(keyLen)
	}
	valLen := int(d.Int32())
	var val []byte
	if valLen >= 0 {
		val = d.Bytes(valLen)
	}
	ts := d.Int64()
	return types.Record{Key: key, Value: val, TimestampMs: ts}
}

// encodeBatchBody builds the batch body — everything inside a frame's
// payload — per spec §6:
// i64 base_offset | i64 timestamp_ms | i32 record_count | record[0..n] | u32 crc32.
// The trailing crc32 is computed over every byte preceding it, which is
// also the value stored in the batch's CRC32 field and in the frame header.
func encodeBatchBody(b types.RecordBatch) []byte {
	e := serde.NewEncoder()
	e.PutInt64(b.BaseOffset)
	e.PutInt64(b.TimestampMs)
	e.PutInt32(int32(len(b.Records)))
	for _, r := range b.Records {
		encodeRecord(e, r)
	}
	body := e.Bytes()
	crc := crc32.ChecksumIEEE(body)
	out := make([]byte, len(body)+4)
	copy(out, body)
	serde.Encoding.PutUint32(out[len(body):], crc)
	return out
}

// decodeBatchBody parses a batch body previously produced by
// encodeBatchBody, verifying the trailing CRC against the computed one.
// ok is false on CRC mismatch; the caller treats this as CorruptedData.
func decodeBatchBody(payload []byte) (types.RecordBatch, bool) {
	if len(payload) < 4 {
		return types.RecordBatch{}, false
	}
	data, storedCRC := payload[:len(payload)-4], serde.Encoding.Uint32(payload[len(payload)-4:])
	computed := crc32.ChecksumIEEE(data)
	if computed != storedCRC {
		return types.RecordBatch{}, false
	}
	d := serde.NewDecoder(data)
	baseOffset := d.Int64()
	timestampMs := d.Int64()
	count := int(d.Int32())
	records := make([]types.Record, 0, count)
	for i := 0; i < count; i++ {
		records = append(records, decodeRecord(d))
	}
	return types.RecordBatch{
		BaseOffset:  baseOffset,
		TimestampMs: timestampMs,
		Records:     records,
		CRC32:       storedCRC,
	}, true
}

// frameBatch wraps an encoded batch body into its on-disk frame:
// u32 len | u32 crc32 | i64 base_offset | len bytes body.
func frameBatch(b types.RecordBatch) []byte {
	body := encodeBatchBody(b)
	crc := body[len(body)-4:]
	e := serde.NewEncoder()
	e.PutUint32(uint32(len(body)))
	e.PutBytes(crc)
	e.PutInt64(b.BaseOffset)
	e.PutBytes(body)
	return e.Bytes()
}

// FrameBatch is frameBatch exported for callers outside storage that
// need the same framing for a transport-level payload (the rpcserver's
// optional Fetch-response compression, SPEC_FULL.md §3).
func FrameBatch(b types.RecordBatch) []byte {
	return frameBatch(b)
}

// DecodeFrame parses a full frame (header + payload) as written by
// FrameBatch/frameBatch, verifying its CRC.
func DecodeFrame(frame []byte) (types.RecordBatch, bool) {
	if len(frame) < types.FrameHeaderSize {
		return types.RecordBatch{}, false
	}
	d := serde.NewDecoder(frame)
	_ = d.Uint32() // len
	storedCRC := d.Uint32()
	_ = d.Int64() // base_offset
	batch, ok := decodeBatchBody(frame[types.FrameHeaderSize:])
	if !ok || batch.CRC32 != storedCRC {
		return types.RecordBatch{}, false
	}
	return batch, true
}
