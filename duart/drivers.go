// duart/drivers.go

//go:build rp2040 || rp2350

package duart

import "tinygo.org/x/drivers"

// Serial adapts one driver channel to the drivers.UART interface so
// tinygo.org/x/drivers device packages (GPS modules, modems, ...) can
// consume a duart channel in place of a machine.UART.
type Serial struct {
	port *Port
}

var _ drivers.UART = (*Serial)(nil)

// NewSerial returns a drivers.UART view of channel ch. The channel must
// already be initialized; Configure only reprograms the baud rate.
func NewSerial(d *Driver, ch int) *Serial {
	return &Serial{port: d.Port(ch)}
}

// Configure reprograms the baud rate. Pin muxing stays with the backend.
func (s *Serial) Configure(cfg drivers.UARTConfig) error {
	if cfg.BaudRate != 0 {
		s.port.d.SetBaudRate(s.port.ch, cfg.BaudRate)
	}
	return nil
}

// Buffered returns the number of bytes in the receive ring.
func (s *Serial) Buffered() int {
	return s.port.Buffered()
}

// ReadByte reads one buffered byte without blocking.
func (s *Serial) ReadByte() (byte, error) {
	return s.port.ReadByte()
}

// Write blocks until all of data is accepted into the transmit path.
func (s *Serial) Write(data []byte) (int, error) {
	return s.port.Write(data)
}
