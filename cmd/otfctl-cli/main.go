package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"otfctl/host/client"
	"otfctl/host/serial"
)

var (
	device = flag.String("device", "/dev/ttyUSB0", "Serial device path")
	baud   = flag.Int("baud", 115200, "Baud rate")
	driver = flag.String("driver", serial.DriverTarm, "Serial backend: tarm or bugst")
)

func main() {
	flag.Parse()

	cfg := serial.DefaultConfig(*device)
	cfg.Baud = *baud
	cfg.Driver = *driver

	port, err := serial.Open(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	c := client.New(port)

	fmt.Println("Enter commands (e.g. 'sweep C 1550 1560 1 100'; 'help' lists verbs, 'quit' exits):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var reply client.Reply
		if strings.HasPrefix(line, ":") {
			reply, err = c.Raw(line)
		} else {
			parts, perr := shlex.Split(line)
			if perr != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", perr)
				continue
			}
			switch parts[0] {
			case "quit", "exit", "q":
				return
			case "help", "?":
				printHelp()
				continue
			}
			reply, err = c.Do(parts[0], parts[1:]...)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		fmt.Println(reply)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  iden                                 - Identify every channel")
	fmt.Println("  get-interval <band>                  - Tunable range")
	fmt.Println("  get-wl <band>                        - Current wavelength")
	fmt.Println("  set-wl <band> <nm>                   - Tune (stops a sweep)")
	fmt.Println("  sweep <band> <min> <max> <step> <ms> - Start a repeating sweep")
	fmt.Println("  stop <band>                          - Stop a sweep")
	fmt.Println("  get-sweep <band>                     - Show the running sweep")
	fmt.Println("  powerup | powerdown | get-power      - Power control, all channels")
	fmt.Println("  get-temp <band> | get-pos <band>     - Temperature, mirror position")
	fmt.Println("  set-pos <band> <x-> <x+> <y-> <y+>   - Mirror position")
	fmt.Println("  reset <band> | set-addr <band> <a>   - Reset, move to a new address")
	fmt.Println("  :<raw line>                          - Send a line as typed")
	fmt.Println("  quit/exit/q                          - Exit the program")
	fmt.Println()
}
