package engine

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomtrade/xsession/backend/memstore"
	"github.com/fathomtrade/xsession/internal/logging"
	"github.com/fathomtrade/xsession/internal/ring"
	"github.com/fathomtrade/xsession/internal/wire/fix"
)

func TestWriterDrainsRingAndWritesSocket(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	r := ring.New(8, 64)
	store := memstore.New()
	w := NewWriter("s1", clientSide, r, store, logging.Default(), nil, nil, nil)
	go w.Run()
	defer w.Stop()

	slot, err := r.TryClaim()
	require.NoError(t, err)
	slot.MsgType = "D"
	slot.PayloadLen = copy(slot.Payload, []byte("hello"))
	r.Commit(slot)

	buf := make([]byte, 16)
	serverSide.SetReadDeadline(time.Now().Add(time.Second))
	n, err := serverSide.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
}

func TestWriterJournalsBeforeSending(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	r := ring.New(8, 64)
	store := memstore.New()
	w := NewWriter("s1", clientSide, r, store, logging.Default(), nil, nil, nil)
	go w.Run()
	defer w.Stop()

	slot, err := r.TryClaim()
	require.NoError(t, err)
	slot.MsgType = "D"
	slot.PayloadLen = copy(slot.Payload, []byte("payload"))
	r.Commit(slot)

	buf := make([]byte, 16)
	serverSide.SetReadDeadline(time.Now().Add(time.Second))
	_, err = serverSide.Read(buf)
	require.NoError(t, err)

	reader, err := store.NewReader()
	require.NoError(t, err)
	entries := reader.Drain()
	require.Len(t, entries, 1)
	assert.Equal(t, "payload", string(entries[0].Payload))
}

// TestWriterAssignsIncrementingSeqAtCommitTime exercises two consecutive
// slots carrying a reserved sequence placeholder and asserts the writer
// assigns strictly increasing, distinct sequence numbers at the moment it
// drains each one, rather than baking in whatever was current when the
// caller built the frame.
func TestWriterAssignsIncrementingSeqAtCommitTime(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer clientSide.Close()
	defer serverSide.Close()

	r := ring.New(8, 256)
	store := memstore.New()

	var counter int64 = 1
	nextSeq := func() int64 { return atomic.AddInt64(&counter, 1) - 1 }
	w := NewWriter("s1", clientSide, r, store, logging.Default(), nil, nextSeq, fix.PatchSeqNum)
	go w.Run()
	defer w.Stop()

	buildHeartbeat := func() ([]byte, int) {
		enc := fix.NewEncoder(nil, "FIX.4.2")
		enc.SetField(35, "0")
		enc.SetField(49, "SNDR")
		enc.SetField(56, "TRGT")
		enc.SetSeqPlaceholder(34)
		frame := enc.Finish()
		return frame, enc.SeqValueOffset()
	}

	readOne := func() fix.IncomingMessage {
		buf := make([]byte, 256)
		serverSide.SetReadDeadline(time.Now().Add(time.Second))
		n, err := serverSide.Read(buf)
		require.NoError(t, err)
		var msg fix.IncomingMessage
		_, result := fix.Decode(buf[:n], &msg)
		require.Equal(t, fix.ResultOk, result)
		return msg
	}

	frame1, off1 := buildHeartbeat()
	slot1, err := r.TryClaim()
	require.NoError(t, err)
	slot1.MsgType = "0"
	slot1.SeqPatchOffset = off1
	slot1.PayloadLen = copy(slot1.Payload, frame1)
	r.Commit(slot1)
	first := readOne()

	frame2, off2 := buildHeartbeat()
	slot2, err := r.TryClaim()
	require.NoError(t, err)
	slot2.MsgType = "0"
	slot2.SeqPatchOffset = off2
	slot2.PayloadLen = copy(slot2.Payload, frame2)
	r.Commit(slot2)
	second := readOne()

	assert.NotEqual(t, first.SeqNum, second.SeqNum)
	assert.Equal(t, first.SeqNum+1, second.SeqNum)
}

func TestWriterSendsSlotCommittedBeforeRun(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()

	r := ring.New(8, 64)
	store := memstore.New()
	w := NewWriter("s1", clientSide, r, store, logging.Default(), nil, nil, nil)

	slot, err := r.TryClaim()
	require.NoError(t, err)
	slot.MsgType = "D"
	slot.PayloadLen = copy(slot.Payload, []byte("final"))
	r.Commit(slot)

	go w.Run()

	buf := make([]byte, 16)
	serverSide.SetReadDeadline(time.Now().Add(time.Second))
	n, err := serverSide.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "final", string(buf[:n]))

	w.Stop()
}
