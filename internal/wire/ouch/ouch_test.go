package ouch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnterOrderRoundTrip(t *testing.T) {
	m := &EnterOrder{
		BuySellIndicator: 'B',
		Shares:           100,
		Price:            1234500,
		TimeInForce:      0,
		Display:          'Y',
		Capacity:         'A',
		MinimumQuantity:  0,
		CrossType:        'N',
		CustomerType:     'R',
	}
	copy(m.Token[:], "ORDERTOKEN001")
	copy(m.Stock[:], "AAPL")
	copy(m.Firm[:], "FRM1")

	buf := make([]byte, 1+EnterOrderWireSize)
	out := MarshalEnterOrder(buf, m)
	assert.Equal(t, byte(TypeEnterOrder), out[0])

	got, err := UnmarshalEnterOrder(out[1:])
	require.NoError(t, err)
	assert.Equal(t, m.Shares, got.Shares)
	assert.Equal(t, m.Price, got.Price)
	assert.Equal(t, m.BuySellIndicator, got.BuySellIndicator)
	assert.Equal(t, "ORDERTOKEN001", string(got.Token[:13]))
}

func TestOrderAcceptedRoundTrip(t *testing.T) {
	m := &OrderAccepted{
		Timestamp:            123456789,
		Shares:               50,
		Price:                998877,
		OrderReferenceNumber: 42,
		OrderState:           'L',
	}
	copy(m.Stock[:], "MSFT")

	buf := make([]byte, 1+OrderAcceptedWireSize)
	out := MarshalOrderAccepted(buf, m)
	got, err := UnmarshalOrderAccepted(out[1:])
	require.NoError(t, err)
	assert.Equal(t, m.Timestamp, got.Timestamp)
	assert.Equal(t, m.OrderReferenceNumber, got.OrderReferenceNumber)
	assert.Equal(t, "MSFT", string(got.Stock[:4]))
}

func TestAppendageCursor(t *testing.T) {
	var buf []byte
	buf = AppendAppendage(buf, 1, []byte("firm-order-id"))
	buf = AppendAppendage(buf, 2, []byte{0x01})

	c := NewAppendageCursor(buf)
	a1, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, byte(1), a1.Type)
	assert.Equal(t, "firm-order-id", string(a1.Value))

	a2, ok := c.Next()
	require.True(t, ok)
	assert.Equal(t, byte(2), a2.Type)

	_, ok = c.Next()
	assert.False(t, ok)
}

func TestAppendageCursorFindSkipsUnknown(t *testing.T) {
	var buf []byte
	buf = AppendAppendage(buf, 9, []byte("unknown"))
	buf = AppendAppendage(buf, 2, []byte{0x05})

	c := NewAppendageCursor(buf)
	a, ok := c.Find(2)
	require.True(t, ok)
	assert.Equal(t, []byte{0x05}, a.Value)
}

func TestSoupBinFrameRoundTrip(t *testing.T) {
	var buf []byte
	buf = EncodeFrame(buf, SoupSequencedData, []byte("payload"))

	pt, payload, consumed, needMore, err := DecodeFrame(buf)
	require.NoError(t, err)
	require.False(t, needMore)
	assert.Equal(t, len(buf), consumed)
	assert.Equal(t, byte(SoupSequencedData), pt)
	assert.Equal(t, "payload", string(payload))
}

func TestSoupBinFrameNeedsMore(t *testing.T) {
	var buf []byte
	buf = EncodeFrame(buf, SoupSequencedData, []byte("payload"))
	_, _, _, needMore, err := DecodeFrame(buf[:len(buf)-2])
	require.NoError(t, err)
	assert.True(t, needMore)
}

func TestLoginRequestPayloadRoundTrip(t *testing.T) {
	p := LoginRequestPayload{
		Username:          "user1",
		Password:          "pass123",
		RequestedSession:  "",
		RequestedSequence: "1",
	}
	encoded := p.Encode()
	got, err := DecodeLoginRequestPayload(encoded)
	require.NoError(t, err)
	assert.Equal(t, p.Username, got.Username)
	assert.Equal(t, p.Password, got.Password)
	assert.Equal(t, p.RequestedSequence, got.RequestedSequence)
}
