package fix

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeSample(t *testing.T) []byte {
	t.Helper()
	e := NewEncoder(make([]byte, 0, 256), "FIX.4.2")
	e.SetField(35, "D")
	e.SetFieldInt(34, 1)
	e.SetField(49, "SNDR")
	e.SetField(56, "TRGT")
	return e.Finish()
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	frame := encodeSample(t)

	var msg IncomingMessage
	consumed, result := Decode(frame, &msg)
	require.Equal(t, ResultOk, result)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, "D", msg.MsgType)
	assert.Equal(t, int64(1), msg.SeqNum)

	v, ok := msg.GetString(49)
	require.True(t, ok)
	assert.Equal(t, "SNDR", v)
}

func TestDecodeNeedsMoreOnPartialFrame(t *testing.T) {
	frame := encodeSample(t)
	var msg IncomingMessage
	_, result := Decode(frame[:len(frame)-5], &msg)
	assert.Equal(t, ResultNeedMore, result)
}

func TestDecodeChecksumError(t *testing.T) {
	frame := encodeSample(t)
	corrupt := append([]byte(nil), frame...)
	// Flip a body byte without fixing up the trailer checksum.
	corrupt[len(corrupt)-9] ^= 0xFF
	var msg IncomingMessage
	_, result := Decode(corrupt, &msg)
	assert.Equal(t, ResultChecksumError, result)
}

func TestDecodeMalformedFrame(t *testing.T) {
	var msg IncomingMessage
	_, result := Decode([]byte("not a fix message at all, long enough"), &msg)
	assert.Equal(t, ResultMalformedFrame, result)
}

func TestChecksumTrailerIsZeroPadded(t *testing.T) {
	e := NewEncoder(make([]byte, 0, 256), "FIX.4.2")
	e.SetField(35, "0")
	e.SetFieldInt(34, 1)
	frame := e.Finish()

	trailer := frame[len(frame)-7:]
	require.True(t, trailer[0] == '1' && trailer[1] == '0' && trailer[2] == '=')
	digits := trailer[3:6]
	for _, d := range digits {
		assert.True(t, d >= '0' && d <= '9', "checksum digit %q is not zero-padded decimal", string(d))
	}
}

func TestSeqPlaceholderPatchedInPlaceKeepsChecksumValid(t *testing.T) {
	e := NewEncoder(make([]byte, 0, 256), "FIX.4.2")
	e.SetField(35, "0")
	e.SetField(49, "SNDR")
	e.SetField(56, "TRGT")
	e.SetSeqPlaceholder(34)
	frame := e.Finish()
	offset := e.SeqValueOffset()
	require.GreaterOrEqual(t, offset, 0)

	PatchSeqNum(frame, offset, 42)

	var msg IncomingMessage
	consumed, result := Decode(frame, &msg)
	require.Equal(t, ResultOk, result)
	assert.Equal(t, len(frame), consumed)
	assert.Equal(t, int64(42), msg.SeqNum)
}

func TestFastTimestampCachesDayPrefix(t *testing.T) {
	var ts FastTimestamp
	t1 := time.Date(2026, 7, 31, 10, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 7, 31, 10, 0, 1, 0, time.UTC)

	out1 := ts.Format(nil, t1)
	prefixCached := ts.prefix
	out2 := ts.Format(nil, t2)

	assert.Equal(t, "20260731-10:00:00.000", string(out1))
	assert.Equal(t, "20260731-10:00:01.000", string(out2))
	assert.Equal(t, prefixCached, ts.prefix) // unchanged: same UTC day
}
