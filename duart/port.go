// duart/port.go

package duart

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrBufferEmpty is returned by Port.ReadByte when no data is buffered.
	ErrBufferEmpty = errors.New("UART buffer empty")
)

// Port is an io.Reader/io.Writer view of one driver channel. TryRead and
// TryWrite never block; Read, Write and the context helpers block on the
// channel's coalesced notifications, never by spinning.
//
// Unlike SendBuffer, Port writes are best-effort: TryWrite accepts as many
// bytes as fit and may use the transmit ring's full capacity.
type Port struct {
	d  *Driver
	ch int
}

// Port returns an io view of channel ch, or nil when ch is out of range.
func (d *Driver) Port(ch int) *Port {
	if d.channel(ch) == nil {
		return nil
	}
	return &Port{d: d, ch: ch}
}

// Buffered returns the number of bytes in the software receive ring.
func (p *Port) Buffered() int {
	return p.d.channels[p.ch].rx.Used()
}

// TxFree returns the remaining space in the software transmit ring.
func (p *Port) TxFree() int {
	return p.d.channels[p.ch].tx.Free()
}

// TryRead returns immediately with up to len(buf) bytes from the receive
// ring. It never blocks and never fails; 0 means no data now.
func (p *Port) TryRead(buf []byte) int {
	n := 0
	for n < len(buf) {
		b, ok := p.d.ReceiveByte(p.ch)
		if !ok {
			break
		}
		buf[n] = b
		n++
	}
	return n
}

// Read implements io.Reader. It blocks until at least one byte is
// available, then returns n>0, nil. It never returns io.EOF for an idle
// channel.
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if n := p.TryRead(buf); n > 0 {
		return n, nil
	}
	for {
		<-p.d.Readable(p.ch) // coalesced wake-up; must re-check
		if n := p.TryRead(buf); n > 0 {
			return n, nil
		}
	}
}

// ReadByte reads a single byte from the receive ring without blocking. It
// returns ErrBufferEmpty when no data is available.
func (p *Port) ReadByte() (byte, error) {
	b, ok := p.d.ReceiveByte(p.ch)
	if !ok {
		return 0, ErrBufferEmpty
	}
	return b, nil
}

// TryWrite accepts up to len(buf) bytes into the transmit path without
// blocking and returns the number accepted. On an idle channel it seeds a
// new interrupt-driven stream; on a busy channel it appends to the transmit
// ring for the service routine to drain. 0 means no space now.
func (p *Port) TryWrite(buf []byte) int {
	if len(buf) == 0 {
		return 0
	}
	d := p.d
	c := &d.channels[p.ch]

	state := d.backend.DisableInterrupts()
	if c.txReady && !c.txBuffered {
		// Idle: enqueue what fits, then seed the signal chain with the
		// ring's front byte.
		n := 0
		for n < len(buf) && c.tx.Put(buf[n]) {
			n++
		}
		if n == 0 {
			d.backend.RestoreInterrupts(state)
			return 0
		}
		c.txBuffered = true
		first := c.tx.Get()
		d.backend.RestoreInterrupts(state)
		d.SendByte(p.ch, first)
		return n
	}
	// In flight: append for the service routine. Marking the channel
	// buffered here upgrades a single-byte send in progress, so the next
	// transmit-complete signal continues with the ring instead of idling.
	n := 0
	for n < len(buf) && c.tx.Put(buf[n]) {
		n++
	}
	if n > 0 {
		c.txBuffered = true
	}
	d.backend.RestoreInterrupts(state)
	return n
}

// Write implements io.Writer. It blocks until all of buf has been accepted
// into the transmit path. Write does not wait for the bytes to leave the
// wire; use Drain for that.
func (p *Port) Write(buf []byte) (int, error) {
	sent := 0
	for sent < len(buf) {
		if n := p.TryWrite(buf[sent:]); n > 0 {
			sent += n
			continue
		}
		<-p.d.Writable(p.ch) // wait for TX progress, then retry
	}
	return sent, nil
}

// WriteByte writes a single byte with the same blocking behaviour as Write.
func (p *Port) WriteByte(b byte) error {
	_, err := p.Write([]byte{b})
	return err
}

// WaitReadable blocks until at least one byte is buffered or ctx is done.
func (p *Port) WaitReadable(ctx context.Context) error {
	for {
		if p.Buffered() > 0 {
			return nil
		}
		select {
		case <-p.d.Readable(p.ch):
			// Re-check; a coalesced notify can be spurious.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ReadBlocking blocks until at least one byte is available, then reads up
// to len(buf) bytes.
func (p *Port) ReadBlocking(ctx context.Context, buf []byte) (int, error) {
	for {
		if n := p.TryRead(buf); n > 0 {
			return n, nil
		}
		if err := p.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadByteBlocking blocks for a single byte or until ctx is done.
func (p *Port) ReadByteBlocking(ctx context.Context) (byte, error) {
	for {
		if b, err := p.ReadByte(); err == nil {
			return b, nil
		}
		if err := p.WaitReadable(ctx); err != nil {
			return 0, err
		}
	}
}

// ReadWithTimeout reads like ReadBlocking with a deadline of d.
func (p *Port) ReadWithTimeout(buf []byte, d time.Duration) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	return p.ReadBlocking(ctx, buf)
}

// Drain blocks until the channel is idle: the transmit ring is empty and no
// send is in flight. The transmit service posts a wake on the final idle
// transition, so Drain is event-driven.
func (p *Port) Drain(ctx context.Context) error {
	for {
		if !p.d.TransmitPending(p.ch) && p.d.channels[p.ch].tx.IsEmpty() {
			return nil
		}
		select {
		case <-p.d.Writable(p.ch):
			// Progress occurred; re-check.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
