// Loopback self-test for channel 0. Wire the channel's TX pin to its RX
// pin; every streamed pattern should be read straight back.

//go:build rp2040 || rp2350

package main

import (
	"context"
	"time"

	"machine"

	"github.com/jangala-dev/tinygo-duart/duart"
)

var pattern = []byte("duart-selftest-0123456789-abcdefghijklmnopqrstuvwxyz")

func main() {
	// Give the monitor time to attach.
	time.Sleep(3 * time.Second)

	drv := duart.New(duart.RP2)
	drv.InitChannel(0, duart.ChannelConfig{
		RxStorage: make([]byte, 256),
		TxStorage: make([]byte, 256),
		BaudRate:  115200,
	})
	port := drv.Port(0)

	println("duart self-test starting")

	pass, fail := 0, 0
	for round := 0; round < 20; round++ {
		drv.FlushReceive(0)

		if !drv.SendBuffer(0, pattern) {
			println("round", round, ": send rejected")
			fail++
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		got := make([]byte, len(pattern))
		read := 0
		for read < len(got) {
			n, err := port.ReadBlocking(ctx, got[read:])
			if err != nil {
				break
			}
			read += n
		}
		cancel()

		if read == len(pattern) && string(got) == string(pattern) {
			pass++
		} else {
			println("round", round, ": mismatch, read", read, "of", len(pattern))
			fail++
		}
	}

	println("pass:", pass, "fail:", fail, "overflow:", int(drv.ReceiveOverflowCount(0)))

	// Slow blink: all good. Fast blink: at least one failure.
	machine.LED.Configure(machine.PinConfig{Mode: machine.PinOutput})
	period := time.Second
	if fail > 0 {
		period = 100 * time.Millisecond
	}
	for {
		machine.LED.High()
		time.Sleep(period)
		machine.LED.Low()
		time.Sleep(period)
	}
}
