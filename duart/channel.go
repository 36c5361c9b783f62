// duart/channel.go

package duart

// channel holds the mutable state of one UART, shared between mainline code
// and the service routines.
//
// Invariant: txBuffered is true only while the transmit ring is non-empty or
// a send is in flight; ServiceTransmitComplete clears it exactly when the
// ring drains.
type channel struct {
	rx RingBuffer
	tx RingBuffer

	txReady    bool // no transmission in flight
	txBuffered bool // streaming from the transmit ring

	rxOverflow uint16     // received bytes dropped because the rx ring was full
	rxHandler  func(byte) // nil: received bytes go to the rx ring

	notify   chan struct{} // coalesced RX readiness wake-ups
	txNotify chan struct{} // coalesced TX progress/drain wake-ups

	stats Stats
}

// post sends a coalesced notification without blocking. Safe in
// signal-handler context.
func post(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
