package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"

	"github.com/udo-munk/z80pack-sub002/machine"
)

// breakKey is Ctrl-\. In raw mode the terminal no longer turns Ctrl-C into
// SIGINT, so this key stops the CPU instead.
const breakKey = 0x1C

// ConsoleHost reads the host's stdin and feeds the bytes to the emulated
// console. When stdin is a terminal it is switched to raw mode for the
// duration of Run.
type ConsoleHost struct {
	in      *os.File
	console *machine.Console
	onBreak func()
	log     *logrus.Entry

	fd       int
	oldState *term.State
}

// NewConsoleHost returns a host reading in. onBreak runs when the break key
// is typed and may be nil.
func NewConsoleHost(in *os.File, console *machine.Console, onBreak func(), log *logrus.Entry) *ConsoleHost {
	return &ConsoleHost{
		in:      in,
		console: console,
		onBreak: onBreak,
		log:     log,
		fd:      int(in.Fd()),
	}
}

func (h *ConsoleHost) route(b byte) {
	if b == breakKey && h.onBreak != nil && h.oldState != nil {
		h.onBreak()
		return
	}
	h.console.EnqueueByte(b)
}

func (h *ConsoleHost) makeRaw() {
	if !term.IsTerminal(h.fd) {
		return
	}
	state, err := term.MakeRaw(h.fd)
	if err != nil {
		h.log.WithError(err).Warn("can't set raw mode, console input is line buffered")
		return
	}
	h.oldState = state
}

func (h *ConsoleHost) restore() {
	if h.oldState != nil {
		_ = term.Restore(h.fd, h.oldState)
		h.oldState = nil
	}
}
