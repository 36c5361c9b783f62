// duart/duart_test.go

package duart

import (
	"bytes"
	"testing"
)

// newTestDriver returns a driver over a fresh simulated backend with small
// rings on both channels.
func newTestDriver(t *testing.T) (*Driver, *SimBackend) {
	t.Helper()
	sim := NewSimBackend()
	d := New(sim)
	for ch := 0; ch < NumChannels; ch++ {
		d.InitChannel(ch, ChannelConfig{
			RxStorage: make([]byte, 4),
			TxStorage: make([]byte, 8),
		})
	}
	return d, sim
}

func TestInitChannelProgramsBackend(t *testing.T) {
	sim := NewSimBackend()
	d := New(sim)
	d.InitChannel(0, ChannelConfig{})

	if !sim.Enabled(0) {
		t.Fatal("channel 0 not enabled on backend")
	}
	if got := sim.Baud(0); got != DefaultBaudRate {
		t.Fatalf("baud = %d, want default %d", got, DefaultBaudRate)
	}
	if !sim.InterruptsEnabled() {
		t.Fatal("global interrupts not enabled")
	}
	if d.TransmitPending(0) {
		t.Fatal("fresh channel reports a pending transmit")
	}
	if !d.ReceiveEmpty(0) {
		t.Fatal("fresh channel reports buffered receive data")
	}
}

func TestSendByteSingleShot(t *testing.T) {
	d, sim := newTestDriver(t)

	d.SendByte(0, 'z')
	if !d.TransmitPending(0) {
		t.Fatal("no pending transmit after SendByte")
	}
	sim.CompleteTransmit(0)
	if d.TransmitPending(0) {
		t.Fatal("still pending after transmit-complete")
	}
	if got := sim.Written(0); !bytes.Equal(got, []byte{'z'}) {
		t.Fatalf("hardware writes = %v, want [z]", got)
	}
}

func TestSendBufferStreamsInOrder(t *testing.T) {
	d, sim := newTestDriver(t)

	if !d.SendBuffer(0, []byte{'A', 'B', 'C'}) {
		t.Fatal("SendBuffer rejected a fitting payload")
	}
	// The first byte seeds the chain immediately.
	if got := sim.Written(0); !bytes.Equal(got, []byte{'A'}) {
		t.Fatalf("writes after seed = %v, want [A]", got)
	}

	sim.CompleteTransmit(0)
	sim.CompleteTransmit(0)
	if !d.TransmitPending(0) {
		t.Fatal("went idle before the last byte completed")
	}
	sim.CompleteTransmit(0)

	if d.TransmitPending(0) {
		t.Fatal("still pending after three transmit-complete signals")
	}
	if !d.TransmitBuffer(0).IsEmpty() {
		t.Fatal("transmit ring not drained")
	}
	if got := sim.Written(0); !bytes.Equal(got, []byte{'A', 'B', 'C'}) {
		t.Fatalf("hardware writes = %v, want [A B C]", got)
	}
}

func TestSendBufferCapacityCheck(t *testing.T) {
	d, sim := newTestDriver(t) // tx capacity 8

	if d.SendBuffer(0, nil) {
		t.Fatal("accepted an empty payload")
	}
	// An exact fill is rejected: used + n must stay strictly below size.
	exact := make([]byte, 8)
	if d.SendBuffer(0, exact) {
		t.Fatal("accepted a payload that exactly fills the ring")
	}
	if d.TransmitBuffer(0).Used() != 0 {
		t.Fatalf("rejected send mutated the ring: %d used", d.TransmitBuffer(0).Used())
	}
	if d.TransmitPending(0) {
		t.Fatal("rejected send started a transmission")
	}
	if len(sim.Written(0)) != 0 {
		t.Fatal("rejected send reached hardware")
	}

	// One byte less fits.
	if !d.SendBuffer(0, exact[:7]) {
		t.Fatal("rejected a payload one under the limit")
	}
	if d.TransmitBuffer(0).Used() != 6 {
		t.Fatalf("ring holds %d bytes, want 6 (first byte seeded)", d.TransmitBuffer(0).Used())
	}
}

func TestQueueThenStartStreaming(t *testing.T) {
	d, sim := newTestDriver(t)

	if !d.QueueTransmitByte(0, 'x') || !d.QueueTransmitByte(0, 'y') {
		t.Fatal("QueueTransmitByte failed with space available")
	}
	d.StartStreaming(0)
	sim.CompleteTransmit(0) // sends 'y'
	sim.CompleteTransmit(0) // drains, idles

	if got := sim.Written(0); !bytes.Equal(got, []byte{'x', 'y'}) {
		t.Fatalf("hardware writes = %v, want [x y]", got)
	}
	if d.TransmitPending(0) {
		t.Fatal("still pending after draining the ring")
	}
}

func TestReceiveFillAndOverflow(t *testing.T) {
	d, sim := newTestDriver(t) // rx capacity 4

	for _, b := range []byte{1, 2, 3, 4} {
		sim.PushReceive(0, b)
	}
	if d.ReceiveOverflowCount(0) != 0 {
		t.Fatalf("overflow = %d before the ring filled", d.ReceiveOverflowCount(0))
	}

	sim.PushReceive(0, 5)
	if d.ReceiveOverflowCount(0) != 1 {
		t.Fatalf("overflow = %d after dropping one byte, want 1", d.ReceiveOverflowCount(0))
	}

	// Buffered contents are untouched by the dropped byte.
	for i, want := range []byte{1, 2, 3, 4} {
		got, ok := d.ReceiveByte(0)
		if !ok || got != want {
			t.Fatalf("ReceiveByte #%d = %d,%v, want %d,true", i, got, ok, want)
		}
	}
	if _, ok := d.ReceiveByte(0); ok {
		t.Fatal("ReceiveByte returned data from an empty ring")
	}
}

func TestReceiveHandlerBypassesRing(t *testing.T) {
	d, sim := newTestDriver(t)

	var got []byte
	d.SetReceiveHandler(0, func(b byte) { got = append(got, b) })

	for _, b := range []byte{9, 8, 7, 6, 5, 4} { // more than ring capacity
		sim.PushReceive(0, b)
	}

	if !bytes.Equal(got, []byte{9, 8, 7, 6, 5, 4}) {
		t.Fatalf("handler received %v", got)
	}
	if !d.ReceiveEmpty(0) {
		t.Fatal("handler path touched the receive ring")
	}
	if d.ReceiveOverflowCount(0) != 0 {
		t.Fatal("handler path counted overflow")
	}

	// Clearing the handler reverts to buffered reception.
	d.SetReceiveHandler(0, nil)
	sim.PushReceive(0, 42)
	if b, ok := d.ReceiveByte(0); !ok || b != 42 {
		t.Fatalf("buffered reception after clearing handler: %d,%v", b, ok)
	}
}

func TestFlushReceive(t *testing.T) {
	d, sim := newTestDriver(t)

	sim.PushReceive(0, 1)
	sim.PushReceive(0, 2)
	d.FlushReceive(0)
	if !d.ReceiveEmpty(0) {
		t.Fatal("receive ring not empty after flush")
	}
	if _, ok := d.ReceiveByte(0); ok {
		t.Fatal("flushed byte still readable")
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	d, sim := newTestDriver(t)

	d.SendBuffer(0, []byte{'a', 'b'})
	sim.PushReceive(1, 0x55)

	if d.TransmitPending(1) {
		t.Fatal("channel 1 sees channel 0's transmission")
	}
	if !d.ReceiveEmpty(0) {
		t.Fatal("channel 0 sees channel 1's received byte")
	}
	if b, ok := d.ReceiveByte(1); !ok || b != 0x55 {
		t.Fatalf("channel 1 receive = %d,%v, want 0x55,true", b, ok)
	}

	sim.CompleteTransmit(0)
	sim.CompleteTransmit(0)
	if got := sim.Written(1); len(got) != 0 {
		t.Fatalf("channel 1 hardware saw writes: %v", got)
	}
	if got := sim.Written(0); !bytes.Equal(got, []byte{'a', 'b'}) {
		t.Fatalf("channel 0 writes = %v, want [a b]", got)
	}
}

func TestOutOfRangeChannelIsIgnored(t *testing.T) {
	d, _ := newTestDriver(t)

	d.SendByte(NumChannels, 1)
	d.SetReceiveHandler(-1, func(byte) {})
	d.SetBaudRate(99, 9600)
	d.FlushReceive(99)
	d.StartStreaming(-1)

	if d.SendBuffer(NumChannels, []byte{1}) {
		t.Fatal("SendBuffer accepted an out-of-range channel")
	}
	if _, ok := d.ReceiveByte(-1); ok {
		t.Fatal("ReceiveByte returned data for an out-of-range channel")
	}
	if !d.ReceiveEmpty(99) {
		t.Fatal("ReceiveEmpty false for an out-of-range channel")
	}
	if d.TransmitPending(99) {
		t.Fatal("TransmitPending true for an out-of-range channel")
	}
	if d.ReceiveBuffer(99) != nil || d.TransmitBuffer(-1) != nil {
		t.Fatal("buffer handle returned for an out-of-range channel")
	}
	if d.Port(NumChannels) != nil {
		t.Fatal("Port returned for an out-of-range channel")
	}
}

func TestLoopbackWire(t *testing.T) {
	d, sim := newTestDriver(t)
	sim.Wire(0, 1)

	payload := []byte("ping")
	if !d.SendBuffer(0, payload) {
		t.Fatal("SendBuffer rejected the payload")
	}
	for d.TransmitPending(0) {
		sim.CompleteTransmit(0)
	}

	var got []byte
	for {
		b, ok := d.ReceiveByte(1)
		if !ok {
			break
		}
		got = append(got, b)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("channel 1 received %q, want %q", got, payload)
	}
}

func TestExternalStorageSpans(t *testing.T) {
	sim := NewSimBackend()
	d := New(sim)
	rxSpan := make([]byte, 3)
	txSpan := make([]byte, 5)
	d.InitChannel(0, ChannelConfig{RxStorage: rxSpan, TxStorage: txSpan, BaudRate: 9600})

	if got := sim.Baud(0); got != 9600 {
		t.Fatalf("baud = %d, want 9600", got)
	}
	if d.ReceiveBuffer(0).Size() != 3 || d.TransmitBuffer(0).Size() != 5 {
		t.Fatalf("ring sizes = %d/%d, want 3/5",
			d.ReceiveBuffer(0).Size(), d.TransmitBuffer(0).Size())
	}
	// The rings really use the supplied spans.
	sim.PushReceive(0, 0xAA)
	if rxSpan[0] != 0xAA {
		t.Fatalf("external rx span untouched: %v", rxSpan)
	}
}
