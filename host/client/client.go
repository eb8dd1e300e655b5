// Package client speaks the ASCII command protocol from the host side.
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrMalformedReply is returned for lines that are neither ACK nor NACK.
var ErrMalformedReply = errors.New("malformed reply")

// Reply is one parsed reply line.
type Reply struct {
	OK   bool
	Data string // ACK payload or NACK error text
}

func (r Reply) String() string {
	switch {
	case r.OK && r.Data == "":
		return "ACK"
	case r.OK:
		return "ACK: " + r.Data
	default:
		return "NACK: " + r.Data
	}
}

// Client sends command lines and reads one reply per command.
type Client struct {
	mu sync.Mutex
	w  io.Writer
	r  *bufio.Reader
}

// New creates a client over a serial port or any other stream.
func New(rw io.ReadWriter) *Client {
	return &Client{w: rw, r: bufio.NewReader(rw)}
}

// FormatCommand builds a command line. Query verbs (get-*) separate the
// first argument with '?', everything else uses ':'.
func FormatCommand(verb string, args ...string) string {
	if len(args) == 0 {
		return ":" + verb + "\n"
	}
	sep := ":"
	if strings.HasPrefix(verb, "get-") {
		sep = "?"
	}
	return ":" + verb + sep + strings.Join(args, ":") + "\n"
}

// ParseReply parses ":ACK", ":ACK: <data>" or ":NACK: <text>".
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case line == ":ACK":
		return Reply{OK: true}, nil
	case strings.HasPrefix(line, ":ACK: "):
		return Reply{OK: true, Data: line[len(":ACK: "):]}, nil
	case strings.HasPrefix(line, ":NACK: "):
		return Reply{Data: line[len(":NACK: "):]}, nil
	default:
		return Reply{}, fmt.Errorf("%w: %q", ErrMalformedReply, line)
	}
}

// Do sends verb with args and waits for the reply.
func (c *Client) Do(verb string, args ...string) (Reply, error) {
	return c.Raw(FormatCommand(verb, args...))
}

// Raw sends a preformatted command line and waits for the reply.
func (c *Client) Raw(line string) (Reply, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !strings.HasSuffix(line, "\n") && !strings.HasSuffix(line, "\r") {
		line += "\n"
	}
	if _, err := io.WriteString(c.w, line); err != nil {
		return Reply{}, fmt.Errorf("failed to write command: %w", err)
	}

	resp, err := c.r.ReadString('\n')
	if err != nil {
		return Reply{}, fmt.Errorf("failed to read reply: %w", err)
	}
	return ParseReply(resp)
}
