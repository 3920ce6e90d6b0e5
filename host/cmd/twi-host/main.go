package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/google/shlex"

	"twimaster/host/client"
	"twimaster/host/serial"
	"twimaster/twi"
)

var (
	device  = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	connect = flag.String("connect", "", "TCP address of a simulator, instead of -device")
	baud    = flag.Int("baud", 115200, "Baud rate")
	timeout = flag.Duration("timeout", client.DefaultTimeout, "Response timeout")
	verbose = flag.Bool("verbose", false, "Enable verbose output")
)

var errQuit = errors.New("quit")

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud

	c, err := dial(context.Background(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer c.Close()
	c.Timeout = *timeout
	if *verbose {
		c.Debug = func(msg string) { fmt.Fprintln(os.Stderr, "debug:", msg) }
	}

	d := c.Dictionary()
	fmt.Printf("Connected: %s, %d commands\n", d.Version, len(d.Commands))
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		err := run(context.Background(), c, scanner.Text(), os.Stdout)
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func dial(ctx context.Context, cfg serial.Config) (*client.Client, error) {
	if *connect == "" {
		fmt.Printf("Connecting to bridge on %s...\n", cfg.Device)
		return client.Dial(ctx, cfg)
	}

	fmt.Printf("Connecting to simulator at %s...\n", *connect)
	conn, err := net.Dial("tcp", *connect)
	if err != nil {
		return nil, err
	}
	c := client.New(conn)
	if err := c.Identify(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// run executes one command line.
func run(ctx context.Context, c *client.Client, line string, out io.Writer) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("bad command line: %w", err)
	}
	if len(args) == 0 {
		return nil
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "quit", "exit", "q":
		return errQuit

	case "help", "?":
		printHelp(out)
		return nil

	case "dict":
		d := c.Dictionary()
		fmt.Fprintf(out, "version %s\n", d.Version)
		for name, v := range d.Config {
			fmt.Fprintf(out, "  %s = %s\n", name, v)
		}
		for sig, id := range d.Commands {
			fmt.Fprintf(out, "  command %3d: %s\n", id, sig)
		}
		for sig, id := range d.Responses {
			fmt.Fprintf(out, "  response %3d: %s\n", id, sig)
		}
		return nil

	case "raw":
		raw := c.DictionaryRaw()
		fmt.Fprintf(out, "Raw dictionary data (%d bytes):\n%s\n", len(raw), raw)
		return nil

	case "config":
		if len(args) != 4 {
			return fmt.Errorf("usage: config <oid> <bus> <rate> <addr>: want 4 arguments, got %d", len(args))
		}
		v, err := numbers(args[:2], 2, 8)
		if err != nil {
			return err
		}
		rate, err := parse(args[2], 32)
		if err != nil {
			return err
		}
		addr, err := parse(args[3], 8)
		if err != nil {
			return err
		}
		if addr > twi.MaxAddress {
			return fmt.Errorf("address 0x%02x is not a 7-bit address", addr)
		}
		v = append(v, rate, addr)
		if err := c.Configure(ctx, uint8(v[0]), uint8(v[1]), uint32(v[2]), uint8(v[3])); err != nil {
			return err
		}
		fmt.Fprintf(out, "oid %d -> bus %d address 0x%02x at %d Hz\n", v[0], v[1], v[3], v[2])
		return nil

	case "write":
		if len(args) < 1 {
			return errors.New("usage: write <oid> [byte...]")
		}
		oid, err := parse(args[0], 8)
		if err != nil {
			return err
		}
		data, err := bytesOf(args[1:])
		if err != nil {
			return err
		}
		if err := c.Write(ctx, uint8(oid), data); err != nil {
			return err
		}
		fmt.Fprintf(out, "wrote %d bytes\n", len(data))
		return nil

	case "read":
		if len(args) < 2 {
			return errors.New("usage: read <oid> <count> [reg byte...]")
		}
		v, err := numbers(args[:2], 2, 8)
		if err != nil {
			return err
		}
		reg, err := bytesOf(args[2:])
		if err != nil {
			return err
		}
		data, err := c.Read(ctx, uint8(v[0]), reg, int(v[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "% x\n", data)
		return nil

	case "state":
		v, err := numbers(args, 1, 8)
		if err != nil {
			return fmt.Errorf("usage: state <oid>: %w", err)
		}
		st, err := c.State(ctx, uint8(v[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%v (0x%02x)\n", st, uint8(st))
		return nil

	case "scan":
		bus := uint64(0)
		if len(args) > 0 {
			if bus, err = parse(args[0], 8); err != nil {
				return err
			}
		}
		found, err := c.Scan(ctx, uint8(bus))
		if err != nil {
			return err
		}
		if len(found) == 0 {
			fmt.Fprintln(out, "no targets")
		}
		for _, a := range found {
			fmt.Fprintf(out, "0x%02x\n", a)
		}
		return nil
	}

	return fmt.Errorf("unknown command: %s (type 'help' for available commands)", args[0])
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "\nAvailable commands:")
	fmt.Fprintln(out, "  config <oid> <bus> <rate> <addr>  - Bind a device object to a target")
	fmt.Fprintln(out, "  write <oid> [byte...]             - Write bytes (none probes the address)")
	fmt.Fprintln(out, "  read <oid> <count> [reg byte...]  - Read up to", twi.BufferSize-1, "bytes")
	fmt.Fprintln(out, "  state <oid>                       - Last bus status")
	fmt.Fprintln(out, "  scan [bus]                        - List acknowledging addresses")
	fmt.Fprintln(out, "  dict                              - Print dictionary summary")
	fmt.Fprintln(out, "  raw                               - Print raw dictionary data")
	fmt.Fprintln(out, "  quit/exit/q                       - Exit the program")
	fmt.Fprintln(out)
}

func parse(s string, bits int) (uint64, error) {
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", s)
	}
	return v, nil
}

func numbers(args []string, n, bits int) ([]uint64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("want %d arguments, got %d", n, len(args))
	}
	out := make([]uint64, n)
	for i, a := range args {
		v, err := parse(a, bits)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func bytesOf(args []string) ([]byte, error) {
	out := make([]byte, 0, len(args))
	for _, a := range args {
		v, err := parse(a, 8)
		if err != nil {
			return nil, err
		}
		out = append(out, byte(v))
	}
	return out, nil
}
