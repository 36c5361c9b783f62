// duart/rp2.go

//go:build rp2040 || rp2350

package duart

import (
	"device/rp"
	"machine"
	"runtime/interrupt"
)

// Pin re-exports so callers don't need machine for basic wiring.
type Pin = machine.Pin

const NoPin = machine.NoPin

// RP2Backend drives the two PL011 instances on RP2040/RP2350 with their
// FIFOs disabled, so each direction presents a single-slot register and the
// hardware raises exactly one interrupt per byte: TXIM when the holding
// register empties, RXIM when a byte arrives. That matches the engine's
// one-signal-per-byte contract.
//
// TXIM is parked (masked) whenever a transmit service leaves the engine
// idle; an empty holding register would otherwise re-raise the level
// interrupt forever. WriteData re-arms it.
type RP2Backend struct {
	hooks ServiceHooks
	uarts [NumChannels]rp2uart
}

type rp2uart struct {
	bus     *rp.UART0_Type
	irq     interrupt.Interrupt
	tx, rx  machine.Pin
	enabled bool
	wrote   bool // WriteData ran during the current TX dispatch
}

// RP2 is the backend for the chip's UART0 (channel 0) and UART1 (channel 1)
// with the board's default pin assignment. Reassign pins with ConfigurePins
// before InitChannel.
var RP2 = &rp2Singleton

var rp2Singleton = RP2Backend{
	uarts: [NumChannels]rp2uart{
		{bus: rp.UART0, tx: machine.UART0_TX_PIN, rx: machine.UART0_RX_PIN},
		{bus: rp.UART1, tx: machine.UART1_TX_PIN, rx: machine.UART1_RX_PIN},
	},
}

func init() {
	rp2Singleton.uarts[0].irq = interrupt.New(rp.IRQ_UART0_IRQ, handleUART0)
	rp2Singleton.uarts[1].irq = interrupt.New(rp.IRQ_UART1_IRQ, handleUART1)
}

func handleUART0(interrupt.Interrupt) { rp2Singleton.service(0) }
func handleUART1(interrupt.Interrupt) { rp2Singleton.service(1) }

// resetPL011 asserts and releases the peripheral reset for the selected
// PL011.
func resetPL011(bus *rp.UART0_Type) {
	var mask uint32
	switch bus {
	case rp.UART0:
		mask = rp.RESETS_RESET_UART0
	case rp.UART1:
		mask = rp.RESETS_RESET_UART1
	}
	rp.RESETS.RESET.SetBits(mask)
	rp.RESETS.RESET.ClearBits(mask)
	for !rp.RESETS.RESET_DONE.HasBits(mask) {
	}
}

// ConfigurePins selects the TX/RX pins muxed by the next EnableChannel.
func (b *RP2Backend) ConfigurePins(ch int, tx, rx Pin) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	b.uarts[ch].tx = tx
	b.uarts[ch].rx = rx
}

// EnableChannel resets the PL011, muxes the pins, programs 8N1 with FIFOs
// disabled, enables the receiver and transmitter and unmasks the per-byte
// receive interrupt. The transmit interrupt stays parked until the first
// WriteData.
func (b *RP2Backend) EnableChannel(ch int, hooks ServiceHooks) {
	if ch < 0 || ch >= NumChannels {
		return
	}
	b.hooks = hooks
	u := &b.uarts[ch]

	resetPL011(u.bus)

	// Disable while configuring.
	u.bus.UARTCR.ClearBits(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	// Mux pins before touching format.
	if u.tx != machine.NoPin {
		u.tx.Configure(machine.PinConfig{Mode: machine.PinUART})
	}
	if u.rx != machine.NoPin {
		u.rx.Configure(machine.PinConfig{Mode: machine.PinUART})
	}

	// 8N1, FEN clear: single-slot holding registers, one IRQ per byte.
	u.bus.UARTLCR_H.Set(uint32(3) << rp.UART0_UARTLCR_H_WLEN_Pos)

	// Clear pending IRQs, purge the receive register, clear sticky errors.
	u.bus.UARTICR.Set(0x7FF)
	for !u.bus.UARTFR.HasBits(rp.UART0_UARTFR_RXFE) {
		_ = u.bus.UARTDR.Get()
	}
	u.bus.UARTRSR.Set(0)

	u.bus.UARTCR.Set(rp.UART0_UARTCR_UARTEN | rp.UART0_UARTCR_RXE | rp.UART0_UARTCR_TXE)

	// Unmask RX; TX is armed on demand by WriteData.
	u.bus.UARTIMSC.Set(rp.UART0_UARTIMSC_RXIM)

	u.irq.SetPriority(0x80)
	u.enabled = true
}

// SetBaudRate programs the PL011 integer and fractional divisors and
// performs the LCR_H write required to latch them.
func (b *RP2Backend) SetBaudRate(ch int, baud uint32) {
	if ch < 0 || ch >= NumChannels || baud == 0 {
		return
	}
	u := &b.uarts[ch]
	div := 8 * machine.CPUFrequency() / baud

	ibrd := div >> 7
	var fbrd uint32
	switch {
	case ibrd == 0:
		ibrd = 1
		fbrd = 0
	case ibrd >= 65535:
		ibrd = 65535
		fbrd = 0
	default:
		fbrd = ((div & 0x7f) + 1) / 2
	}

	u.bus.UARTIBRD.Set(ibrd)
	u.bus.UARTFBRD.Set(fbrd)

	// PL011 requires an LCR_H write after changing divisors.
	u.bus.UARTLCR_H.Set(u.bus.UARTLCR_H.Get())
}

// TxReady reports whether the transmit holding register can accept a byte.
func (b *RP2Backend) TxReady(ch int) bool {
	return !b.uarts[ch].bus.UARTFR.HasBits(rp.UART0_UARTFR_TXFF)
}

// WriteData writes the byte and arms the per-byte transmit interrupt.
func (b *RP2Backend) WriteData(ch int, v byte) {
	u := &b.uarts[ch]
	u.wrote = true
	u.bus.UARTDR.Set(uint32(v))
	u.bus.UARTIMSC.SetBits(rp.UART0_UARTIMSC_TXIM)
}

// ReadData reads the receive data register. Reading clears the per-byte
// error flags along with the data.
func (b *RP2Backend) ReadData(ch int) byte {
	return byte(b.uarts[ch].bus.UARTDR.Get())
}

// EnableInterrupts enables NVIC delivery for every configured channel.
func (b *RP2Backend) EnableInterrupts() {
	for i := range b.uarts {
		if b.uarts[i].enabled {
			b.uarts[i].irq.Enable()
		}
	}
}

// DisableInterrupts masks interrupt delivery core-wide and returns the
// previous state.
func (b *RP2Backend) DisableInterrupts() uintptr {
	return uintptr(interrupt.Disable())
}

// RestoreInterrupts restores the state returned by DisableInterrupts.
func (b *RP2Backend) RestoreInterrupts(state uintptr) {
	interrupt.Restore(interrupt.State(state))
}

// service decodes the masked interrupt status and dispatches one service
// call per raised source. It runs in interrupt context with the source
// level held by hardware until acknowledged.
func (b *RP2Backend) service(ch int) {
	u := &b.uarts[ch]
	mis := u.bus.UARTMIS.Get()

	if mis&rp.UART0_UARTMIS_RXMIS != 0 {
		u.bus.UARTICR.Set(rp.UART0_UARTICR_RXIC)
		if b.hooks != nil {
			b.hooks.ServiceReceiveComplete(ch)
		}
		u.bus.UARTRSR.Set(0) // clear sticky RX errors
	}

	if mis&rp.UART0_UARTMIS_TXMIS != 0 {
		u.bus.UARTICR.Set(rp.UART0_UARTICR_TXIC)
		u.wrote = false
		if b.hooks != nil {
			b.hooks.ServiceTransmitComplete(ch)
		}
		if !u.wrote {
			// The engine went idle without writing a next byte; park TXIM.
			u.bus.UARTIMSC.ClearBits(rp.UART0_UARTIMSC_TXIM)
		}
	}
}
