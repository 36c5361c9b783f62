// duart/port_test.go

package duart

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func newTestPort(t *testing.T) (*Port, *SimBackend) {
	t.Helper()
	d, sim := newTestDriver(t)
	return d.Port(0), sim
}

func TestPortTryReadNonBlocking(t *testing.T) {
	p, sim := newTestPort(t)
	buf := make([]byte, 8)

	if n := p.TryRead(buf); n != 0 {
		t.Fatalf("TryRead on empty = %d, want 0", n)
	}

	sim.PushReceive(0, 'A')
	sim.PushReceive(0, 'B')
	sim.PushReceive(0, 'C')

	n := p.TryRead(buf)
	if n != 3 || string(buf[:n]) != "ABC" {
		t.Fatalf("got n=%d data=%q; want 3, \"ABC\"", n, string(buf[:n]))
	}
	if n := p.TryRead(buf); n != 0 {
		t.Fatalf("expected empty after drain, got n=%d", n)
	}
}

func TestPortReadBlocksUntilReceive(t *testing.T) {
	p, sim := newTestPort(t)

	done := make(chan struct{})
	var got byte
	var err error

	go func() {
		defer close(done)
		got, err = p.ReadByteBlocking(context.Background())
	}()

	time.Sleep(20 * time.Millisecond)
	sim.PushReceive(0, 'Z')

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for ReadByteBlocking")
	}
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 'Z' {
		t.Fatalf("got %q want %q", got, 'Z')
	}
}

func TestPortReadWithTimeoutExpires(t *testing.T) {
	p, _ := newTestPort(t)

	start := time.Now()
	n, err := p.ReadWithTimeout(make([]byte, 4), 50*time.Millisecond)
	if err != context.DeadlineExceeded {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
	if n != 0 {
		t.Fatalf("n = %d on timeout, want 0", n)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Fatal("timeout took far longer than the deadline")
	}
}

func TestPortWriteStreamsAndDrains(t *testing.T) {
	p, sim := newTestPort(t)

	payload := []byte("hello")
	n, err := p.Write(payload)
	if err != nil || n != len(payload) {
		t.Fatalf("Write = %d,%v, want %d,nil", n, err, len(payload))
	}

	// One transmit-complete per byte: four ring bytes plus the idle
	// transition after the last one.
	for i := 0; i < len(payload); i++ {
		sim.CompleteTransmit(0)
	}

	if got := sim.Written(0); !bytes.Equal(got, payload) {
		t.Fatalf("hardware writes = %q, want %q", got, payload)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := p.Drain(ctx); err != nil {
		t.Fatalf("Drain on idle channel: %v", err)
	}
}

func TestPortWriteAppendsWhileBusy(t *testing.T) {
	p, sim := newTestPort(t)

	// Start a single-byte send, then append through the port while it is
	// in flight. The appended bytes must ride the same signal chain.
	p.d.SendByte(0, 'a')
	if n := p.TryWrite([]byte("bc")); n != 2 {
		t.Fatalf("TryWrite while busy = %d, want 2", n)
	}

	sim.CompleteTransmit(0) // finishes 'a', streams 'b'
	sim.CompleteTransmit(0) // streams 'c'
	sim.CompleteTransmit(0) // idle

	if got := sim.Written(0); !bytes.Equal(got, []byte("abc")) {
		t.Fatalf("hardware writes = %q, want %q", got, "abc")
	}
	if p.d.TransmitPending(0) {
		t.Fatal("still pending after the chain drained")
	}
}

func TestPortWaitReadableSpuriousWake(t *testing.T) {
	p, _ := newTestPort(t)

	// A coalesced notification without data must not satisfy WaitReadable.
	post(p.d.channels[0].notify)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := p.WaitReadable(ctx); err != context.DeadlineExceeded {
		t.Fatalf("WaitReadable = %v, want DeadlineExceeded", err)
	}
}

func TestPortWriteByte(t *testing.T) {
	p, sim := newTestPort(t)

	if err := p.WriteByte('Q'); err != nil {
		t.Fatalf("WriteByte: %v", err)
	}
	sim.CompleteTransmit(0)
	if got := sim.Written(0); !bytes.Equal(got, []byte{'Q'}) {
		t.Fatalf("hardware writes = %v, want [Q]", got)
	}
}
