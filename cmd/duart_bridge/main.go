// duart_bridge connects an OS serial port to stdio through the duart
// engine, which makes it a handy counterpart for the on-device self-tests:
// whatever the device streams shows up on stdout, and stdin is streamed
// back byte-buffered.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/jangala-dev/tinygo-duart/duart"
	"github.com/jangala-dev/tinygo-duart/host"
)

func main() {
	device := flag.String("device", "/dev/ttyACM0", "serial device path")
	baud := flag.Int("baud", 115200, "baud rate")
	flag.Parse()

	backend := host.NewSerialBackend()
	cfg := host.DefaultConfig(*device)
	cfg.Baud = *baud
	if err := backend.Open(0, cfg); err != nil {
		log.Fatal(err)
	}
	defer backend.Close()

	drv := duart.New(backend)
	drv.InitChannel(0, duart.ChannelConfig{
		RxStorage: make([]byte, 4096),
		TxStorage: make([]byte, 4096),
		BaudRate:  uint32(*baud),
	})
	port := drv.Port(0)

	go func() {
		buf := make([]byte, 1024)
		for {
			n, err := port.Read(buf)
			if err != nil {
				return
			}
			os.Stdout.Write(buf[:n])
		}
	}()

	buf := make([]byte, 1024)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			if _, werr := port.Write(buf[:n]); werr != nil {
				log.Fatal(werr)
			}
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			log.Fatal(err)
		}
	}
}
