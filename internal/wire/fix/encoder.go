package fix

import (
	"fmt"
	"strconv"
)

// SeqNumFieldWidth is the fixed, zero-padded width reserved for a tag
// written via SetSeqPlaceholder. FIX numeric fields tolerate leading
// zeros (they are parsed as integers, not compared as strings), so a
// fixed-width reservation lets the writer thread patch in the real
// sequence number in place at commit time without shifting BodyLength or
// re-walking the rest of the frame.
const SeqNumFieldWidth = 12

// Encoder builds one outgoing FIX message into a caller-supplied buffer.
// BodyLength is reserved as a placeholder while fields are appended;
// Finish computes the body length once the full body is known, rebuilds
// the header into a new buffer (copying the body once), and appends the
// checksum trailer.
type Encoder struct {
	buf          []byte
	beginString  string
	bodyLenStart int // offset just after "9="

	seqPlaceholderOffset int // offset of a reserved SetSeqPlaceholder value within e.buf, or -1
	finishedSeqOffset     int // same offset translated into Finish's returned frame, or -1
}

// NewEncoder starts a new message in buf (which is truncated to 0 and
// grown via append). buf may be reused across calls by slicing it back to
// buf[:0] first.
func NewEncoder(buf []byte, beginString string) *Encoder {
	e := &Encoder{buf: buf[:0], beginString: beginString, seqPlaceholderOffset: -1, finishedSeqOffset: -1}
	e.buf = append(e.buf, "8="...)
	e.buf = append(e.buf, beginString...)
	e.buf = append(e.buf, SOH)
	e.buf = append(e.buf, "9="...)
	e.bodyLenStart = len(e.buf)
	// Reserve space for a body length up to 6 digits; Finish rewrites
	// this region, padding with the true length right-justified is not
	// required since FIX BodyLength has no fixed width.
	e.buf = append(e.buf, "000000"...)
	e.buf = append(e.buf, SOH)
	return e
}

// SetField appends tag=value\x01 to the body.
func (e *Encoder) SetField(tag int, value string) {
	e.buf = strconv.AppendInt(e.buf, int64(tag), 10)
	e.buf = append(e.buf, '=')
	e.buf = append(e.buf, value...)
	e.buf = append(e.buf, SOH)
}

// SetFieldInt is a convenience wrapper for integer-valued tags.
func (e *Encoder) SetFieldInt(tag int, value int64) {
	e.buf = strconv.AppendInt(e.buf, int64(tag), 10)
	e.buf = append(e.buf, '=')
	e.buf = strconv.AppendInt(e.buf, value, 10)
	e.buf = append(e.buf, SOH)
}

// SetSeqPlaceholder reserves a SeqNumFieldWidth-wide, zero-padded value
// for tag instead of writing it immediately. The ring pipeline assigns
// outbound sequence numbers at commit time on the writer side, not when
// the frame is built, so MsgSeqNum (tag 34) cannot be known yet here;
// PatchSeqNum fills it in later using the offset SeqValueOffset reports
// once Finish has run. Only one placeholder is supported per frame, since
// a FIX message carries exactly one MsgSeqNum.
func (e *Encoder) SetSeqPlaceholder(tag int) {
	e.buf = strconv.AppendInt(e.buf, int64(tag), 10)
	e.buf = append(e.buf, '=')
	e.seqPlaceholderOffset = len(e.buf)
	for i := 0; i < SeqNumFieldWidth; i++ {
		e.buf = append(e.buf, '0')
	}
	e.buf = append(e.buf, SOH)
}

// Finish backfills BodyLength and appends the checksum trailer, returning
// the complete frame. The returned slice aliases e's internal buffer.
func (e *Encoder) Finish() []byte {
	reservedStart := e.bodyLenStart + len("000000") + 1
	bodyLen := len(e.buf) - reservedStart
	lenStr := strconv.Itoa(bodyLen)

	// Rewrite the reserved 6-byte field in place: pad reserved width
	// with the actual digits, shifting the rest of the buffer left by
	// the difference. Because SetField calls already ran, we instead
	// rebuild the header region rather than mutate a fixed-width field,
	// keeping BodyLength exactly as wide as it needs to be.
	head := make([]byte, 0, e.bodyLenStart+len(lenStr)+1)
	head = append(head, e.buf[:e.bodyLenStart]...)
	head = append(head, lenStr...)
	head = append(head, SOH)

	body := e.buf[reservedStart:]
	full := append(head, body...)

	if e.seqPlaceholderOffset >= 0 {
		e.finishedSeqOffset = len(head) + (e.seqPlaceholderOffset - reservedStart)
	}

	sum := checksumOf(full)
	full = append(full, "10="...)
	full = append(full, fmt.Sprintf("%03d", sum)...)
	full = append(full, SOH)

	e.buf = full
	return full
}

// SeqValueOffset returns the offset within the frame Finish returned
// where a reserved SetSeqPlaceholder value begins, or -1 if no
// placeholder was reserved. Call only after Finish.
func (e *Encoder) SeqValueOffset() int { return e.finishedSeqOffset }

// PatchSeqNum overwrites a SeqNumFieldWidth placeholder reserved by
// SetSeqPlaceholder with seq's zero-padded decimal digits, then
// recomputes and rewrites the trailing CheckSum so the frame stays valid
// after the in-place edit. frame must be exactly what Finish returned,
// and offset must be the value SeqValueOffset reported for it.
func PatchSeqNum(frame []byte, offset int, seq int64) {
	digits := strconv.FormatInt(seq, 10)
	if len(digits) > SeqNumFieldWidth {
		digits = digits[len(digits)-SeqNumFieldWidth:]
	}
	pad := SeqNumFieldWidth - len(digits)
	for i := 0; i < pad; i++ {
		frame[offset+i] = '0'
	}
	copy(frame[offset+pad:offset+SeqNumFieldWidth], digits)

	// Trailer layout is exactly "10=" + 3 digits + SOH (7 bytes); the
	// checksum covers everything before it.
	const trailerLen = len("10=") + 3 + 1
	body := frame[:len(frame)-trailerLen]
	sum := checksumOf(body)
	copy(frame[len(frame)-4:len(frame)-1], fmt.Sprintf("%03d", sum))
}
