// duart/backend.go

package duart

// ServiceHooks is the driver side of the interrupt dispatch table. A backend
// invokes these entry points from its transmit-complete and receive-complete
// signal handlers, one call per signal, with the corresponding signal source
// masked for the duration of the call and without reentering them for the
// same channel. Application code must never call them directly; *Driver
// implements the interface.
type ServiceHooks interface {
	ServiceTransmitComplete(ch int)
	ServiceReceiveComplete(ch int)
}

// Backend abstracts the hardware registers of the UART channels. The driver
// performs no register I/O and no divisor arithmetic of its own; both live
// behind this interface.
type Backend interface {
	// EnableChannel enables the receiver, the transmitter and their
	// completion signal sources for the channel, and binds hooks as the
	// dispatch target for those signals.
	EnableChannel(ch int, hooks ServiceHooks)

	// SetBaudRate computes and programs the baud divisor for the channel.
	// It may be called at any time and takes effect for subsequent bytes.
	SetBaudRate(ch int, baud uint32)

	// TxReady reports whether the transmit holding register can accept a
	// byte.
	TxReady(ch int) bool

	// WriteData writes one byte to the channel's transmit data register.
	WriteData(ch int, b byte)

	// ReadData reads one byte from the channel's receive data register. The
	// register is single-slot; the driver reads it exactly once per
	// receive-complete signal.
	ReadData(ch int) byte

	// EnableInterrupts globally enables signal delivery.
	EnableInterrupts()

	// DisableInterrupts masks signal delivery and returns a state token for
	// RestoreInterrupts. The driver brackets multi-step mainline updates of
	// shared channel state with this pair.
	DisableInterrupts() uintptr

	// RestoreInterrupts restores the masking state captured by
	// DisableInterrupts.
	RestoreInterrupts(state uintptr)
}
