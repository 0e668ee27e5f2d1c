// Package journal implements the memory-mapped append-only message log:
// every inbound and outbound message a session processes is durably
// recorded before it is acted on, so a crash-recovered process can replay
// exactly what it last saw and sent.
package journal

import (
	"encoding/binary"
	"hash/crc32"
)

// Direction distinguishes a journaled entry's side of the wire. Each
// direction has its own monotonically increasing SeqNum space, mirroring
// the protocol's own separate incoming/outgoing sequence counters, so
// GetLatest(stream, Out) answers "what did we last send" independently of
// how much has been received.
type Direction byte

const (
	DirectionInbound Direction = iota
	DirectionOutbound
)

func (d Direction) String() string {
	if d == DirectionOutbound {
		return "out"
	}
	return "in"
}

// Entry is one journaled record: a per-direction sequence number, a
// wall-clock timestamp, which side of the wire it belongs to, a
// single-byte message type tag, and the raw message payload.
type Entry struct {
	SeqNum      int64
	TimestampNs int64
	Direction   Direction
	MsgType     byte
	Payload     []byte
}

// headerSize is the fixed-width prefix before Payload: u32 totalLen, i64
// timestamp, 1 byte direction, u32 seqnum, 1 byte msgtype.
const headerSize = 4 + 8 + 1 + 4 + 1

// footerSize is the trailing CRC32 checksum over header+payload.
const footerSize = 4

// EncodedSize returns the total on-disk size of an entry carrying
// payloadLen payload bytes, including the length
// prefix and checksum trailer.
func EncodedSize(payloadLen int) int {
	return headerSize + payloadLen + footerSize
}

// Encode appends e's on-disk representation to dst and returns the grown
// slice.
func Encode(dst []byte, e Entry) []byte {
	total := EncodedSize(len(e.Payload))
	start := len(dst)
	dst = append(dst, make([]byte, total)...)
	buf := dst[start:]

	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint64(buf[4:12], uint64(e.TimestampNs))
	buf[12] = byte(e.Direction)
	binary.BigEndian.PutUint32(buf[13:17], uint32(e.SeqNum))
	buf[17] = e.MsgType
	copy(buf[headerSize:headerSize+len(e.Payload)], e.Payload)

	sum := crc32.ChecksumIEEE(buf[:headerSize+len(e.Payload)])
	binary.BigEndian.PutUint32(buf[headerSize+len(e.Payload):], sum)
	return dst
}

// Decode reads one entry starting at buf[0]. consumed is 0 when buf does
// not hold a complete entry. A checksum mismatch is
// reported via ok=false, consumed=totalLen, so the caller can skip past
// the corrupt record during index rebuild rather than getting stuck.
func Decode(buf []byte) (e Entry, consumed int, ok bool) {
	if len(buf) < headerSize {
		return Entry{}, 0, false
	}
	total := int(binary.BigEndian.Uint32(buf[0:4]))
	if total < EncodedSize(0) || len(buf) < total {
		return Entry{}, 0, false
	}
	payloadLen := total - headerSize - footerSize
	body := buf[:headerSize+payloadLen]
	wantSum := binary.BigEndian.Uint32(buf[headerSize+payloadLen : total])
	gotSum := crc32.ChecksumIEEE(body)
	if gotSum != wantSum {
		return Entry{}, total, false
	}
	e = Entry{
		TimestampNs: int64(binary.BigEndian.Uint64(buf[4:12])),
		Direction:   Direction(buf[12]),
		SeqNum:      int64(binary.BigEndian.Uint32(buf[13:17])),
		MsgType:     buf[17],
		Payload:     append([]byte(nil), buf[headerSize:headerSize+payloadLen]...),
	}
	return e, total, true
}
