package fix

import (
	"strconv"
)

// DecodeResult classifies the outcome of a Decode call.
type DecodeResult int

const (
	// ResultOk means msg now describes a complete, checksum-valid frame
	// and Decode's returned consumed count bytes should be dropped from
	// the caller's buffer.
	ResultOk DecodeResult = iota
	// ResultNeedMore means the buffer holds an incomplete frame; the
	// caller must read more bytes and call Decode again with the same
	// (or a grown) buffer.
	ResultNeedMore
	// ResultChecksumError means a complete frame was found but its
	// trailer checksum did not match.
	ResultChecksumError
	// ResultMalformedFrame means the buffer does not begin with a valid
	// BeginString/BodyLength header and cannot be recovered by reading
	// more bytes.
	ResultMalformedFrame
)

// Decode scans buf for one complete FIX message starting at offset 0. On
// ResultOk, consumed is the number of bytes making up that message
// (including the trailing checksum field) and msg has been populated by
// indexing into buf — the caller must not mutate or discard buf until it
// is done with msg. On ResultChecksumError, consumed is the length of the
// corrupt frame so the caller can skip it; on any other result, consumed
// is 0.
func Decode(buf []byte, msg *IncomingMessage) (consumed int, result DecodeResult) {
	msg.Reset()

	if len(buf) < 2 || buf[0] != '8' || buf[1] != '=' {
		if len(buf) < len("8=FIX.4.2") {
			return 0, ResultNeedMore
		}
		return 0, ResultMalformedFrame
	}

	beginEnd := indexSOH(buf, 0)
	if beginEnd < 0 {
		return 0, ResultNeedMore
	}

	if beginEnd+2 >= len(buf) || buf[beginEnd+1] != '9' || buf[beginEnd+2] != '=' {
		return 0, ResultMalformedFrame
	}
	bodyLenEnd := indexSOH(buf, beginEnd+1)
	if bodyLenEnd < 0 {
		return 0, ResultNeedMore
	}
	bodyLenStr := string(buf[beginEnd+3 : bodyLenEnd])
	bodyLen, err := strconv.Atoi(bodyLenStr)
	if err != nil || bodyLen < 0 {
		return 0, ResultMalformedFrame
	}

	bodyStart := bodyLenEnd + 1
	bodyEnd := bodyStart + bodyLen
	trailerEnd := bodyEnd + len("10=000") + 1
	if trailerEnd > len(buf) {
		return 0, ResultNeedMore
	}
	if buf[bodyEnd] != '1' || buf[bodyEnd+1] != '0' || buf[bodyEnd+2] != '=' {
		return 0, ResultMalformedFrame
	}
	checksumEnd := indexSOH(buf, bodyEnd)
	if checksumEnd < 0 {
		return 0, ResultNeedMore
	}
	wantChecksum, err := strconv.Atoi(string(buf[bodyEnd+3 : checksumEnd]))
	if err != nil {
		return 0, ResultMalformedFrame
	}

	total := checksumEnd + 1
	gotChecksum := checksumOf(buf[:bodyEnd])
	if int(gotChecksum) != wantChecksum {
		return total, ResultChecksumError
	}

	if !indexFields(buf[:total], msg) {
		return 0, ResultMalformedFrame
	}
	return total, ResultOk
}

// checksumOf computes the mod-256 FIX checksum of data.
func checksumOf(data []byte) uint8 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return uint8(sum % 256)
}

// indexSOH returns the index of the next SOH byte at or after from, or -1.
func indexSOH(buf []byte, from int) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == SOH {
			return i
		}
	}
	return -1
}

// indexFields walks the full frame tag=value\x01 pairs and records each
// one's location in msg, plus the well-known MsgType (35), MsgSeqNum (34),
// and PossDupFlag (43) fields.
func indexFields(frame []byte, msg *IncomingMessage) bool {
	msg.buf = frame
	i := 0
	for i < len(frame) {
		eq := -1
		for j := i; j < len(frame); j++ {
			if frame[j] == '=' {
				eq = j
				break
			}
		}
		if eq < 0 {
			return false
		}
		tag, err := strconv.Atoi(string(frame[i:eq]))
		if err != nil {
			return false
		}
		soh := indexSOH(frame, eq+1)
		if soh < 0 {
			return false
		}
		valStart, valLen := eq+1, soh-(eq+1)
		msg.index(tag, valStart, valLen)

		switch tag {
		case 35:
			msg.MsgType = string(frame[valStart : valStart+valLen])
		case 34:
			if n, err := strconv.ParseInt(string(frame[valStart:valStart+valLen]), 10, 64); err == nil {
				msg.SeqNum = n
			}
		case 43:
			msg.Poss = valLen == 1 && frame[valStart] == 'Y'
		}
		i = soh + 1
	}
	return true
}
