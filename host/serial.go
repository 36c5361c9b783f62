// host/serial.go

// Package host runs the duart engine on a development machine over OS
// serial ports. The per-port reader goroutine plays the part of the receive
// interrupt: each byte read from the OS synthesizes one receive-complete
// dispatch. A writer goroutine completes each data-register write and
// synthesizes the transmit-complete signal, so the engine's streaming state
// machine behaves exactly as it does against hardware.
package host

import (
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/jangala-dev/tinygo-duart/duart"
)

// Config holds the OS serial port settings for one channel.
type Config struct {
	// Device path, e.g. "/dev/ttyACM0" or "COM3".
	Device string

	// Baud is the rate the port opens with. The driver's SetBaudRate
	// reopens the device at the new rate.
	Baud int

	// ReadTimeout in milliseconds; 0 blocks the reader indefinitely.
	ReadTimeout int
}

// DefaultConfig returns a 115200 8N1 configuration with a 100ms read
// timeout.
func DefaultConfig(device string) Config {
	return Config{Device: device, Baud: 115200, ReadTimeout: 100}
}

// SerialBackend implements duart.Backend over up to duart.NumChannels OS
// serial ports. The dispatch mutex serializes service-routine invocation
// against mainline driver operations, standing in for signal masking.
// Receive handlers run on the reader pump goroutine and must not call back
// into blocking driver operations, the same contract as handlers in real
// signal context.
type SerialBackend struct {
	mu    sync.Mutex
	hooks duart.ServiceHooks
	ports [duart.NumChannels]portState
}

type portState struct {
	cfg    Config
	port   *serial.Port
	open   bool
	rxData byte      // single-slot receive data register
	txCh   chan byte // holding register: at most one in-flight byte
	done   chan struct{}
}

// NewSerialBackend returns a backend with no ports open.
func NewSerialBackend() *SerialBackend {
	return &SerialBackend{}
}

// Open binds channel ch to the serial device in cfg. Call before handing
// the backend to duart.New.
func (b *SerialBackend) Open(ch int, cfg Config) error {
	if ch < 0 || ch >= duart.NumChannels {
		return fmt.Errorf("channel %d out of range", ch)
	}
	port, err := openPort(cfg)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.ports[ch] = portState{
		cfg:  cfg,
		port: port,
		open: true,
		txCh: make(chan byte, 1),
		done: make(chan struct{}),
	}
	b.mu.Unlock()
	return nil
}

// Close stops the pumps and closes every open port.
func (b *SerialBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var first error
	for i := range b.ports {
		p := &b.ports[i]
		if !p.open {
			continue
		}
		close(p.done)
		if err := p.port.Close(); err != nil && first == nil {
			first = err
		}
		p.open = false
	}
	return first
}

func openPort(cfg Config) (*serial.Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}

// --- duart.Backend ---

// EnableChannel binds the dispatch hooks and starts the channel's reader
// and writer pumps. The port must have been opened first.
func (b *SerialBackend) EnableChannel(ch int, hooks duart.ServiceHooks) {
	b.mu.Lock()
	b.hooks = hooks
	p := &b.ports[ch]
	if !p.open {
		b.mu.Unlock()
		return
	}
	done := p.done
	b.mu.Unlock()

	go b.readPump(ch, done)
	go b.writePump(ch, done)
}

// SetBaudRate reopens the device at the new rate. OS serial ports fix the
// rate at open time.
func (b *SerialBackend) SetBaudRate(ch int, baud uint32) {
	if ch < 0 || ch >= duart.NumChannels {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p := &b.ports[ch]
	if !p.open || p.cfg.Baud == int(baud) {
		return
	}
	p.cfg.Baud = int(baud)
	p.port.Close()
	port, err := openPort(p.cfg)
	if err != nil {
		p.open = false
		return
	}
	p.port = port
}

// TxReady reports whether the simulated holding register is free.
func (b *SerialBackend) TxReady(ch int) bool {
	return len(b.ports[ch].txCh) == 0
}

// WriteData hands one byte to the writer pump. The engine guarantees a
// single in-flight byte per channel, so the send never blocks.
func (b *SerialBackend) WriteData(ch int, v byte) {
	b.ports[ch].txCh <- v
}

// ReadData returns the channel's receive data register.
func (b *SerialBackend) ReadData(ch int) byte {
	return b.ports[ch].rxData
}

// EnableInterrupts is a no-op; the pumps deliver signals as soon as they
// are running.
func (b *SerialBackend) EnableInterrupts() {}

// DisableInterrupts takes the dispatch mutex so no service routine runs
// until RestoreInterrupts.
func (b *SerialBackend) DisableInterrupts() uintptr {
	b.mu.Lock()
	return 0
}

// RestoreInterrupts releases the dispatch mutex.
func (b *SerialBackend) RestoreInterrupts(uintptr) {
	b.mu.Unlock()
}

// readPump synthesizes receive-complete signals, one per byte read from the
// OS port.
func (b *SerialBackend) readPump(ch int, done chan struct{}) {
	var buf [64]byte
	for {
		select {
		case <-done:
			return
		default:
		}
		b.mu.Lock()
		p := &b.ports[ch]
		if !p.open {
			b.mu.Unlock()
			return
		}
		port := p.port
		b.mu.Unlock()

		n, err := port.Read(buf[:])
		for i := 0; i < n; i++ {
			b.mu.Lock()
			b.ports[ch].rxData = buf[i]
			if b.hooks != nil {
				b.hooks.ServiceReceiveComplete(ch)
			}
			b.mu.Unlock()
		}
		if err != nil {
			// Timeout or closed port; timeouts just loop.
			select {
			case <-done:
				return
			default:
			}
		}
	}
}

// writePump writes each in-flight byte to the OS port and synthesizes the
// transmit-complete signal once the write returns.
func (b *SerialBackend) writePump(ch int, done chan struct{}) {
	var one [1]byte
	for {
		select {
		case <-done:
			return
		case v := <-b.ports[ch].txCh:
			one[0] = v
			b.mu.Lock()
			p := &b.ports[ch]
			port, open := p.port, p.open
			b.mu.Unlock()
			if open {
				port.Write(one[:])
			}
			b.mu.Lock()
			if b.hooks != nil {
				b.hooks.ServiceTransmitComplete(ch)
			}
			b.mu.Unlock()
		}
	}
}
