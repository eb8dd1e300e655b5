package core

import (
	"errors"
	"strings"

	"otfctl/monitoring"
	"otfctl/protocol"
)

// Reply framing of the ASCII protocol.
const (
	ReplyPrefix    = ":"
	ReplyACK       = "ACK"
	ReplyNACK      = "NACK"
	ReplyTerm      = "\n"
	UnknownCommand = "unknown command"
)

// CommandHandler handles one verb. args is everything after the verb
// separator; output written to out becomes the ACK payload.
type CommandHandler func(args string, out *strings.Builder) error

// Command binds a verb to its handler.
type Command struct {
	Verb    string
	Handler CommandHandler
}

// Dispatcher maps verbs to handlers. The table is fixed at construction;
// verbs are unique.
type Dispatcher struct {
	commands []Command
}

// NewDispatcher creates a dispatcher over a static command table.
func NewDispatcher(commands []Command) *Dispatcher {
	return &Dispatcher{commands: commands}
}

// Lookup finds a command by exact verb match.
func (d *Dispatcher) Lookup(verb string) (*Command, bool) {
	for i := range d.commands {
		if d.commands[i].Verb == verb {
			return &d.commands[i], true
		}
	}
	return nil, false
}

// SplitLine separates the verb from its arguments at the first '?' or ':'.
func SplitLine(line string) (verb, args string) {
	if i := strings.IndexAny(line, "?:"); i >= 0 {
		return line[:i], line[i+1:]
	}
	return line, ""
}

// Execute runs one command line (without the leading ':' or terminator)
// and returns the complete reply line.
func (d *Dispatcher) Execute(line string) string {
	verb, args := SplitLine(strings.TrimSpace(line))

	cmd, ok := d.Lookup(verb)
	if !ok {
		return nack(UnknownCommand)
	}

	var out strings.Builder
	if err := d.call(cmd, args, &out); err != nil {
		monitoring.Logf("command %q failed: %v", line, err)
		return nack(protocol.Kind(err))
	}
	if out.Len() == 0 {
		return ReplyPrefix + ReplyACK + ReplyTerm
	}
	return ReplyPrefix + ReplyACK + ": " + out.String() + ReplyTerm
}

// call recovers from any panic in a handler so the dispatcher loop survives.
func (d *Dispatcher) call(cmd *Command, args string, out *strings.Builder) (err error) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.Logf("command %q panicked: %v", cmd.Verb, r)
			err = errPanic
		}
	}()
	return cmd.Handler(args, out)
}

var errPanic = errors.New("handler panicked")

func nack(text string) string {
	return ReplyPrefix + ReplyNACK + ": " + text + ReplyTerm
}
