package ouch

// Appendage is one OUCH 5.0 optional TLV entry: a 1-byte type code
// followed by a 1-byte length and that many bytes of value.
type Appendage struct {
	Type  byte
	Value []byte
}

// AppendageCursor walks a buffer of concatenated appendages in order,
// without allocating: each call to Next returns a view into buf.
type AppendageCursor struct {
	buf []byte
	pos int
}

// NewAppendageCursor starts a cursor over buf.
func NewAppendageCursor(buf []byte) *AppendageCursor {
	return &AppendageCursor{buf: buf}
}

// Next returns the next appendage, or ok=false once the cursor is
// exhausted. An appendage whose declared length runs past the end of buf
// is treated as exhaustion rather than an error: callers scanning for a
// specific optional field simply stop finding it, per OUCH 5.0's
// order-independent, skip-unknown-types contract.
func (c *AppendageCursor) Next() (a Appendage, ok bool) {
	if c.pos+2 > len(c.buf) {
		return Appendage{}, false
	}
	t := c.buf[c.pos]
	length := int(c.buf[c.pos+1])
	start := c.pos + 2
	if start+length > len(c.buf) {
		return Appendage{}, false
	}
	a = Appendage{Type: t, Value: c.buf[start : start+length]}
	c.pos = start + length
	return a, true
}

// Find scans from the current position for the first appendage of the
// given type, leaving the cursor positioned after it. It does not rewind:
// callers wanting every field of a given type should use Next directly.
func (c *AppendageCursor) Find(t byte) (Appendage, bool) {
	for {
		a, ok := c.Next()
		if !ok {
			return Appendage{}, false
		}
		if a.Type == t {
			return a, true
		}
	}
}

// AppendAppendage writes one type-length-value entry to dst and returns
// the grown slice, for building an outbound appendage block. value must
// be no longer than 255 bytes, since length is a single byte.
func AppendAppendage(dst []byte, t byte, value []byte) []byte {
	dst = append(dst, t, byte(len(value)))
	dst = append(dst, value...)
	return dst
}
