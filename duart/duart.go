// duart/duart.go

// Package duart is a buffered, interrupt-driven driver for two independent
// UART channels. Application code talks to a Driver; the hardware lives
// behind a Backend, whose transmit-complete and receive-complete signals
// drive the per-channel service routines through the ServiceHooks dispatch
// table.
//
// Transmission is either a single busy-waited byte (SendByte) or
// ring-buffered streaming that advances one byte per transmit-complete
// signal (SendBuffer, StartStreaming). Reception either feeds a per-channel
// handler or fills the receive ring, counting overflow when the ring is
// full. Capacity exhaustion and overflow degrade gracefully: SendBuffer
// reports false without partial commits, overflowed receive bytes are
// dropped and counted. Nothing retries and nothing aborts.
package duart

import "time"

// NumChannels is the number of independent UART channels the driver owns.
// All channel ids are in 0..NumChannels-1.
const NumChannels = 2

// Defaults applied by InitChannel when ChannelConfig fields are zero.
const (
	DefaultBufferSize = 128
	DefaultBaudRate   = 115200
)

// ChannelConfig configures one channel at initialization.
type ChannelConfig struct {
	// RxStorage and TxStorage back the receive and transmit rings. Ring
	// capacity is the span length. When nil, InitChannel allocates
	// DefaultBufferSize bytes.
	RxStorage []byte
	TxStorage []byte

	// BaudRate defaults to DefaultBaudRate when zero.
	BaudRate uint32
}

// Driver owns the fixed set of channels and is the only path by which
// application code or service routines reach a channel's buffers and flags.
// Channels exist for the driver's whole lifetime; none is created or
// destroyed after initialization.
type Driver struct {
	backend  Backend
	channels [NumChannels]channel
}

var _ ServiceHooks = (*Driver)(nil)

// New returns a Driver over backend. Channels are unusable until Init or
// InitChannel.
func New(backend Backend) *Driver {
	d := &Driver{backend: backend}
	for i := range d.channels {
		c := &d.channels[i]
		c.notify = make(chan struct{}, 1)
		c.txNotify = make(chan struct{}, 1)
	}
	return d
}

// Init initializes every channel with default buffers and baud rate.
func (d *Driver) Init() {
	for ch := range d.channels {
		d.InitChannel(ch, ChannelConfig{})
	}
}

// InitChannel binds the channel's rings, clears its handler and overflow
// count, enables the hardware signal sources, programs the baud rate and
// finally enables global signal delivery. Out-of-range ids are ignored.
func (d *Driver) InitChannel(ch int, cfg ChannelConfig) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	if cfg.RxStorage == nil {
		cfg.RxStorage = make([]byte, DefaultBufferSize)
	}
	if cfg.TxStorage == nil {
		cfg.TxStorage = make([]byte, DefaultBufferSize)
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	c.rx.Init(cfg.RxStorage)
	c.tx.Init(cfg.TxStorage)
	c.rxHandler = nil
	c.rxOverflow = 0
	d.backend.EnableChannel(ch, d)
	d.backend.SetBaudRate(ch, cfg.BaudRate)
	c.txReady = true
	c.txBuffered = false
	d.backend.EnableInterrupts()
}

// channel returns the state for ch, or nil when ch is out of range.
func (d *Driver) channel(ch int) *channel {
	if ch < 0 || ch >= NumChannels {
		return nil
	}
	return &d.channels[ch]
}

// SetBaudRate reprograms the channel's baud divisor, independent of buffer
// state. Takes effect for subsequent bytes.
func (d *Driver) SetBaudRate(ch int, baud uint32) {
	if d.channel(ch) == nil {
		return
	}
	d.backend.SetBaudRate(ch, baud)
}

// SetReceiveHandler installs fn as the channel's receive handler, or clears
// it when fn is nil. While a handler is installed, received bytes go to the
// handler and never touch the receive ring or the overflow count.
// Out-of-range ids are silently ignored.
func (d *Driver) SetReceiveHandler(ch int, fn func(byte)) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	state := d.backend.DisableInterrupts()
	c.rxHandler = fn
	d.backend.RestoreInterrupts(state)
}

// SendByte busy-waits until the transmit holding register is free, writes b
// and marks a transmission in flight. The spin waits on hardware readiness,
// never on ring state; it is the one engine operation that may block the
// caller. Must not be invoked from a context that could be interrupted and
// reenter it for the same channel.
func (d *Driver) SendByte(ch int, b byte) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	for !d.backend.TxReady(ch) {
		time.Sleep(0) // polite yield
	}
	d.backend.WriteData(ch, b)
	c.txReady = false
}

// SendBuffer queues p for interrupt-driven streaming. It returns false
// without mutating anything when p is empty or when the transmit ring
// cannot take len(p) bytes; a send that would exactly fill the ring is
// rejected. On success every byte after the first is enqueued, the channel
// enters buffered streaming and the first byte is sent directly to seed the
// signal chain.
func (d *Driver) SendBuffer(ch int, p []byte) bool {
	c := d.channel(ch)
	if c == nil || len(p) == 0 {
		return false
	}
	state := d.backend.DisableInterrupts()
	if c.tx.Used()+len(p) >= c.tx.Size() {
		d.backend.RestoreInterrupts(state)
		return false
	}
	for _, b := range p[1:] {
		c.tx.Put(b)
	}
	c.txBuffered = true
	d.backend.RestoreInterrupts(state)
	d.SendByte(ch, p[0])
	return true
}

// QueueTransmitByte appends one byte to the transmit ring without starting
// a transmission. It returns false when the ring is full. Pair with
// StartStreaming.
func (d *Driver) QueueTransmitByte(ch int, b byte) bool {
	c := d.channel(ch)
	if c == nil {
		return false
	}
	state := d.backend.DisableInterrupts()
	ok := c.tx.Put(b)
	d.backend.RestoreInterrupts(state)
	return ok
}

// StartStreaming enters buffered streaming and sends the transmit ring's
// front byte to seed the signal chain. The ring must have been pre-loaded;
// calling StartStreaming on an empty ring violates Get's precondition.
func (d *Driver) StartStreaming(ch int) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	state := d.backend.DisableInterrupts()
	c.txBuffered = true
	first := c.tx.Get()
	d.backend.RestoreInterrupts(state)
	d.SendByte(ch, first)
}

// ServiceTransmitComplete advances the transmit state machine by one
// transmit-complete signal. Backend dispatch only; runs with the transmit
// signal source masked and is never reentered for the same channel.
func (d *Driver) ServiceTransmitComplete(ch int) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	if c.txBuffered {
		if !c.tx.IsEmpty() {
			// Streaming: push the next byte straight to hardware.
			d.backend.WriteData(ch, c.tx.Get())
		} else {
			// Ring drained: back to idle.
			c.txBuffered = false
			c.txReady = true
		}
	} else {
		// Single-byte send finished.
		c.txReady = true
	}
	c.statTxService()
	post(c.txNotify)
}

// ServiceReceiveComplete consumes one receive-complete signal. Backend
// dispatch only. The data register is single-slot and is read exactly once
// per signal. With a handler installed the byte goes to the handler;
// otherwise it is enqueued, and a full ring drops the byte and increments
// the overflow count.
func (d *Driver) ServiceReceiveComplete(ch int) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	b := d.backend.ReadData(ch)
	if c.rxHandler != nil {
		c.rxHandler(b)
		c.statRxHandled()
		return
	}
	ok := c.rx.Put(b)
	if !ok {
		c.rxOverflow++
	}
	c.statRxRing(ok)
	post(c.notify)
}

// ReceiveByte removes and returns the oldest received byte. The second
// result is false when nothing is buffered. ReceiveByte never blocks.
func (d *Driver) ReceiveByte(ch int) (byte, bool) {
	c := d.channel(ch)
	if c == nil {
		return 0, false
	}
	state := d.backend.DisableInterrupts()
	if c.rx.IsEmpty() {
		d.backend.RestoreInterrupts(state)
		return 0, false
	}
	b := c.rx.Get()
	d.backend.RestoreInterrupts(state)
	return b, true
}

// FlushReceive discards all buffered received bytes.
func (d *Driver) FlushReceive(ch int) {
	c := d.channel(ch)
	if c == nil {
		return
	}
	state := d.backend.DisableInterrupts()
	c.rx.Flush()
	d.backend.RestoreInterrupts(state)
}

// ReceiveEmpty reports whether the channel's receive ring is empty.
func (d *Driver) ReceiveEmpty(ch int) bool {
	c := d.channel(ch)
	if c == nil {
		return true
	}
	return c.rx.IsEmpty()
}

// TransmitPending reports whether a transmission is in flight.
func (d *Driver) TransmitPending(ch int) bool {
	c := d.channel(ch)
	if c == nil {
		return false
	}
	return !c.txReady
}

// ReceiveOverflowCount returns the number of received bytes dropped because
// the receive ring was full. The count only grows; it resets on
// InitChannel.
func (d *Driver) ReceiveOverflowCount(ch int) uint16 {
	c := d.channel(ch)
	if c == nil {
		return 0
	}
	return c.rxOverflow
}

// ReceiveBuffer returns the channel's receive ring for direct consumers, or
// nil when ch is out of range.
func (d *Driver) ReceiveBuffer(ch int) *RingBuffer {
	c := d.channel(ch)
	if c == nil {
		return nil
	}
	return &c.rx
}

// TransmitBuffer returns the channel's transmit ring for direct producers,
// or nil when ch is out of range.
func (d *Driver) TransmitBuffer(ch int) *RingBuffer {
	c := d.channel(ch)
	if c == nil {
		return nil
	}
	return &c.tx
}

// Readable returns the channel's coalesced receive notification. The
// receive service sends after enqueuing one or more bytes; callers must
// re-check state after waking. Nil when ch is out of range.
func (d *Driver) Readable(ch int) <-chan struct{} {
	c := d.channel(ch)
	if c == nil {
		return nil
	}
	return c.notify
}

// Writable returns the channel's coalesced transmit notification. The
// transmit service sends on every serviced signal, including the final
// transition to idle; callers must re-check state after waking.
func (d *Driver) Writable(ch int) <-chan struct{} {
	c := d.channel(ch)
	if c == nil {
		return nil
	}
	return c.txNotify
}
