// Package ouch implements the OUCH fixed-layout binary message set and
// its SoupBinTCP transport framing. Each message type is a plain Go
// struct describing the decoded fields; the wire layout itself is packed
// big-endian with no inter-field padding, which Go's struct alignment
// rules cannot reproduce directly (unlike a little-endian kernel ABI whose
// fields happen to fall on natural boundaries), so marshal.go writes and
// reads each field at an explicit byte offset instead of casting the
// struct over a buffer. WireSize documents the exact on-wire length so
// callers can size buffers without a struct literal trick.
package ouch

// Message type bytes, first byte of every OUCH payload.
const (
	TypeEnterOrder    = 'O'
	TypeReplaceOrder  = 'U'
	TypeCancelOrder   = 'X'
	TypeOrderAccepted = 'A'
	TypeOrderCanceled = 'C'
	TypeOrderRejected = 'J'
	TypeOrderExecuted = 'E'
	TypeSystemEvent   = 'S'
)

// EnterOrder is sent client->exchange to submit a new order (OUCH 4.2
// fixed layout).
type EnterOrder struct {
	Token            [14]byte
	BuySellIndicator byte
	Shares           uint32
	Stock            [8]byte
	Price            int32 // price * 10000, signed per OUCH convention
	TimeInForce      uint32
	Firm             [4]byte
	Display          byte
	Capacity         byte
	IntermarketSweep byte
	MinimumQuantity  uint32
	CrossType        byte
	CustomerType     byte
}

// EnterOrderWireSize is the payload length after the 1-byte message type.
const EnterOrderWireSize = 14 + 1 + 4 + 8 + 4 + 4 + 4 + 1 + 1 + 1 + 4 + 1 + 1

// OrderAccepted is sent exchange->client acknowledging an EnterOrder.
type OrderAccepted struct {
	Timestamp            uint64 // nanoseconds since midnight
	Token                [14]byte
	BuySellIndicator     byte
	Shares               uint32
	Stock                [8]byte
	Price                int32
	TimeInForce          uint32
	Firm                 [4]byte
	Display              byte
	OrderReferenceNumber uint64
	Capacity             byte
	IntermarketSweep     byte
	MinimumQuantity      uint32
	CrossType            byte
	OrderState           byte
	CustomerType         byte
}

const OrderAcceptedWireSize = 8 + 14 + 1 + 4 + 8 + 4 + 4 + 4 + 1 + 8 + 1 + 1 + 4 + 1 + 1 + 1

// OrderRejected is sent exchange->client when an EnterOrder is refused.
type OrderRejected struct {
	Timestamp uint64
	Token     [14]byte
	Reason    uint32
}

const OrderRejectedWireSize = 8 + 14 + 4

// OrderCanceled is sent exchange->client confirming a cancel.
type OrderCanceled struct {
	Timestamp            uint64
	OrderReferenceNumber uint64
	DecrementShares      uint32
	Reason               byte
}

const OrderCanceledWireSize = 8 + 8 + 4 + 1

// CancelOrder is sent client->exchange to cancel (or reduce) an order.
type CancelOrder struct {
	OrderReferenceNumber uint64
	Shares               uint32
}

const CancelOrderWireSize = 8 + 4

// SystemEvent carries start-of-day/end-of-day/start-of-test/end-of-test
// notifications.
type SystemEvent struct {
	Timestamp uint64
	EventCode byte
}

const SystemEventWireSize = 8 + 1
