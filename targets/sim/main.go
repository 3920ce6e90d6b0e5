//go:build !tinygo

// Command sim runs the bus bridge against a simulated controller so the
// host tools can be used without hardware. It serves one connection on
// stdio, or every connection accepted on -listen.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"

	"twimaster/bridge"
	"twimaster/twi"
	"twimaster/twi/twitest"
)

var (
	listen = flag.String("listen", "", "TCP address to serve on instead of stdio")
	debug  = flag.Bool("debug", false, "Log bus events to stderr")
	cpu    = flag.Uint("cpu", 16000000, "Simulated CPU clock in Hz")
)

type stdio struct {
	io.Reader
	io.Writer
}

func main() {
	flag.Parse()

	if *debug {
		twi.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
		twi.SetDebugEnabled(true)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := twi.Config{CPUFrequency: uint32(*cpu), Frequency: 100000}
	dev, bus, err := twitest.NewBus(cfg)
	if err != nil {
		return err
	}
	defer dev.Stop()
	populate(dev)

	srv := bridge.NewServer(bridge.NewTWIDriver(cfg.CPUFrequency, bus),
		bridge.Constant{Name: "MCU", Value: "simulator"},
		bridge.Constant{Name: "CLOCK_FREQ", Value: fmt.Sprint(cfg.CPUFrequency)},
	)

	if *listen == "" {
		return srv.Serve(ctx, stdio{os.Stdin, os.Stdout})
	}

	ln, err := net.Listen("tcp", *listen)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	fmt.Fprintf(os.Stderr, "Serving on %s\n", ln.Addr())

	// A Server is not safe for concurrent use, so connections are served
	// one at a time.
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Host connected from %s\n", conn.RemoteAddr())
		unblock := context.AfterFunc(ctx, func() { conn.Close() })
		if err := srv.Serve(ctx, conn); err != nil {
			fmt.Fprintf(os.Stderr, "Connection ended: %v\n", err)
		}
		unblock()
		conn.Close()
	}
}

// populate attaches a 256 byte EEPROM at 0x50 and an accelerometer register
// file at 0x53 reporting device ID 0xE5.
func populate(dev *twitest.Device) {
	dev.Attach(0x50, twitest.NewRegisters(256))

	accel := twitest.NewRegisters(64)
	accel.Set(0x00, 0xE5)
	dev.Attach(0x53, accel)
}
