package ouch

import (
	"encoding/binary"
	"fmt"
)

// ErrInsufficientData is returned by the Unmarshal* functions when buf is
// shorter than the message's WireSize.
var ErrInsufficientData = fmt.Errorf("ouch: insufficient data")

// MarshalEnterOrder writes msgType byte 'O' followed by the EnterOrder
// wire layout into dst, which must have length >= 1+EnterOrderWireSize.
func MarshalEnterOrder(dst []byte, m *EnterOrder) []byte {
	dst[0] = TypeEnterOrder
	b := dst[1:]
	off := 0
	off += copy(b[off:], m.Token[:])
	b[off] = m.BuySellIndicator
	off++
	binary.BigEndian.PutUint32(b[off:], m.Shares)
	off += 4
	off += copy(b[off:], m.Stock[:])
	binary.BigEndian.PutUint32(b[off:], uint32(m.Price))
	off += 4
	binary.BigEndian.PutUint32(b[off:], m.TimeInForce)
	off += 4
	off += copy(b[off:], m.Firm[:])
	b[off] = m.Display
	off++
	b[off] = m.Capacity
	off++
	b[off] = m.IntermarketSweep
	off++
	binary.BigEndian.PutUint32(b[off:], m.MinimumQuantity)
	off += 4
	b[off] = m.CrossType
	off++
	b[off] = m.CustomerType
	off++
	return dst[:1+off]
}

// UnmarshalEnterOrder reads an EnterOrder payload (buf excludes the
// leading type byte).
func UnmarshalEnterOrder(buf []byte) (*EnterOrder, error) {
	if len(buf) < EnterOrderWireSize {
		return nil, ErrInsufficientData
	}
	m := &EnterOrder{}
	off := 0
	copy(m.Token[:], buf[off:off+14])
	off += 14
	m.BuySellIndicator = buf[off]
	off++
	m.Shares = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Stock[:], buf[off:off+8])
	off += 8
	m.Price = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	m.TimeInForce = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Firm[:], buf[off:off+4])
	off += 4
	m.Display = buf[off]
	off++
	m.Capacity = buf[off]
	off++
	m.IntermarketSweep = buf[off]
	off++
	m.MinimumQuantity = binary.BigEndian.Uint32(buf[off:])
	off += 4
	m.CrossType = buf[off]
	off++
	m.CustomerType = buf[off]
	return m, nil
}

// MarshalOrderAccepted writes msgType byte 'A' followed by the
// OrderAccepted wire layout into dst.
func MarshalOrderAccepted(dst []byte, m *OrderAccepted) []byte {
	dst[0] = TypeOrderAccepted
	b := dst[1:]
	off := 0
	binary.BigEndian.PutUint64(b[off:], m.Timestamp)
	off += 8
	off += copy(b[off:], m.Token[:])
	b[off] = m.BuySellIndicator
	off++
	binary.BigEndian.PutUint32(b[off:], m.Shares)
	off += 4
	off += copy(b[off:], m.Stock[:])
	binary.BigEndian.PutUint32(b[off:], uint32(m.Price))
	off += 4
	binary.BigEndian.PutUint32(b[off:], m.TimeInForce)
	off += 4
	off += copy(b[off:], m.Firm[:])
	b[off] = m.Display
	off++
	binary.BigEndian.PutUint64(b[off:], m.OrderReferenceNumber)
	off += 8
	b[off] = m.Capacity
	off++
	b[off] = m.IntermarketSweep
	off++
	binary.BigEndian.PutUint32(b[off:], m.MinimumQuantity)
	off += 4
	b[off] = m.CrossType
	off++
	b[off] = m.OrderState
	off++
	b[off] = m.CustomerType
	off++
	return dst[:1+off]
}

// UnmarshalOrderAccepted reads an OrderAccepted payload (buf excludes the
// leading type byte).
func UnmarshalOrderAccepted(buf []byte) (*OrderAccepted, error) {
	if len(buf) < OrderAcceptedWireSize {
		return nil, ErrInsufficientData
	}
	m := &OrderAccepted{}
	off := 0
	m.Timestamp = binary.BigEndian.Uint64(buf[off:])
	off += 8
	copy(m.Token[:], buf[off:off+14])
	off += 14
	m.BuySellIndicator = buf[off]
	off++
	m.Shares = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Stock[:], buf[off:off+8])
	off += 8
	m.Price = int32(binary.BigEndian.Uint32(buf[off:]))
	off += 4
	m.TimeInForce = binary.BigEndian.Uint32(buf[off:])
	off += 4
	copy(m.Firm[:], buf[off:off+4])
	off += 4
	m.Display = buf[off]
	off++
	m.OrderReferenceNumber = binary.BigEndian.Uint64(buf[off:])
	off += 8
	m.Capacity = buf[off]
	off++
	m.IntermarketSweep = buf[off]
	off++
	m.MinimumQuantity = binary.BigEndian.Uint32(buf[off:])
	off += 4
	m.CrossType = buf[off]
	off++
	m.OrderState = buf[off]
	off++
	m.CustomerType = buf[off]
	return m, nil
}

// MarshalCancelOrder writes msgType byte 'X' followed by the CancelOrder
// wire layout into dst.
func MarshalCancelOrder(dst []byte, m *CancelOrder) []byte {
	dst[0] = TypeCancelOrder
	b := dst[1:]
	binary.BigEndian.PutUint64(b, m.OrderReferenceNumber)
	binary.BigEndian.PutUint32(b[8:], m.Shares)
	return dst[:1+CancelOrderWireSize]
}

// UnmarshalCancelOrder reads a CancelOrder payload.
func UnmarshalCancelOrder(buf []byte) (*CancelOrder, error) {
	if len(buf) < CancelOrderWireSize {
		return nil, ErrInsufficientData
	}
	return &CancelOrder{
		OrderReferenceNumber: binary.BigEndian.Uint64(buf),
		Shares:               binary.BigEndian.Uint32(buf[8:]),
	}, nil
}

// UnmarshalSystemEvent reads a SystemEvent payload.
func UnmarshalSystemEvent(buf []byte) (*SystemEvent, error) {
	if len(buf) < SystemEventWireSize {
		return nil, ErrInsufficientData
	}
	return &SystemEvent{
		Timestamp: binary.BigEndian.Uint64(buf),
		EventCode: buf[8],
	}, nil
}
