// duart/sim.go

package duart

import "sync"

// SimBackend is an in-memory Backend for hosted tests, examples and
// protocol development. Every byte written to a channel's data register is
// recorded; receive-complete and transmit-complete signals are raised
// explicitly with PushReceive and CompleteTransmit, which dispatch into the
// bound service routines under the backend mutex. On hosted Go the mutex
// stands in for signal masking: DisableInterrupts locks it, the signal
// injectors hold it across dispatch.
//
// PushReceive and CompleteTransmit are the simulated signal-handler
// context. Call them from a single goroutine, as hardware would deliver one
// signal of a kind at a time.
type SimBackend struct {
	mu    sync.Mutex
	hooks ServiceHooks

	interruptsOn bool
	sim          [NumChannels]simChannel
}

type simChannel struct {
	enabled bool
	baud    uint32
	rxData  byte   // single-slot receive data register
	txLog   []byte // every data-register write, in order
	pending byte   // last write not yet completed
	hasPend bool
	wiredTo int // peer channel fed on transmit completion, -1 when unwired
}

// NewSimBackend returns a backend with no loopback wiring.
func NewSimBackend() *SimBackend {
	s := &SimBackend{}
	for i := range s.sim {
		s.sim[i].wiredTo = -1
	}
	return s
}

// Wire connects the transmit side of channel from to the receive side of
// channel to: each completed transmit byte is delivered to the peer as a
// receive-complete signal. Wiring a channel to itself makes a loopback.
func (s *SimBackend) Wire(from, to int) {
	s.mu.Lock()
	s.sim[from].wiredTo = to
	s.mu.Unlock()
}

// PushReceive loads b into the channel's receive data register and raises a
// receive-complete signal.
func (s *SimBackend) PushReceive(ch int, b byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sim[ch].rxData = b
	if s.hooks != nil {
		s.hooks.ServiceReceiveComplete(ch)
	}
}

// CompleteTransmit raises a transmit-complete signal for the channel: the
// byte most recently written is considered shifted out (and delivered to
// the wired peer, if any) before the transmit service routine runs.
func (s *SimBackend) CompleteTransmit(ch int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &s.sim[ch]
	if c.hasPend && c.wiredTo >= 0 {
		s.sim[c.wiredTo].rxData = c.pending
		if s.hooks != nil {
			s.hooks.ServiceReceiveComplete(c.wiredTo)
		}
	}
	c.hasPend = false
	if s.hooks != nil {
		s.hooks.ServiceTransmitComplete(ch)
	}
}

// Written returns a copy of every byte written to the channel's data
// register since creation.
func (s *SimBackend) Written(ch int) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]byte, len(s.sim[ch].txLog))
	copy(out, s.sim[ch].txLog)
	return out
}

// Enabled reports whether EnableChannel ran for ch.
func (s *SimBackend) Enabled(ch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim[ch].enabled
}

// Baud returns the last rate programmed for ch.
func (s *SimBackend) Baud(ch int) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sim[ch].baud
}

// InterruptsEnabled reports whether global signal delivery was enabled.
func (s *SimBackend) InterruptsEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interruptsOn
}

// --- Backend ---

func (s *SimBackend) EnableChannel(ch int, hooks ServiceHooks) {
	s.mu.Lock()
	s.hooks = hooks
	s.sim[ch].enabled = true
	s.mu.Unlock()
}

func (s *SimBackend) SetBaudRate(ch int, baud uint32) {
	s.mu.Lock()
	s.sim[ch].baud = baud
	s.mu.Unlock()
}

// TxReady always reports a free holding register; the simulated register
// accepts a byte per write and holds it until CompleteTransmit.
func (s *SimBackend) TxReady(ch int) bool { return true }

// WriteData records the byte. Called from mainline sends and, during
// CompleteTransmit dispatch, from the transmit service routine; both run
// with the backend mutex observed by the dispatch contract, so no locking
// here.
func (s *SimBackend) WriteData(ch int, b byte) {
	c := &s.sim[ch]
	c.txLog = append(c.txLog, b)
	c.pending = b
	c.hasPend = true
}

func (s *SimBackend) ReadData(ch int) byte { return s.sim[ch].rxData }

func (s *SimBackend) EnableInterrupts() {
	s.mu.Lock()
	s.interruptsOn = true
	s.mu.Unlock()
}

func (s *SimBackend) DisableInterrupts() uintptr {
	s.mu.Lock()
	return 0
}

func (s *SimBackend) RestoreInterrupts(uintptr) {
	s.mu.Unlock()
}
