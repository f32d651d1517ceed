// watch.go - Hardware breakpoint on the bus status side channel

package debug

import (
	"strings"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// WatchMode selects the bus cycles a Watch reacts to.
type WatchMode uint8

const (
	WatchExec WatchMode = 1 << iota
	WatchRead
	WatchWrite
)

func (m WatchMode) String() string {
	var parts []string
	for _, k := range []struct {
		mode WatchMode
		name string
	}{{WatchExec, "exec"}, {WatchRead, "read"}, {WatchWrite, "write"}} {
		if m&k.mode != 0 {
			parts = append(parts, k.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "/")
}

// ParseWatchMode accepts any combination of the letters x, r and w.
func ParseWatchMode(s string) (WatchMode, bool) {
	var m WatchMode
	for _, ch := range strings.ToLower(s) {
		switch ch {
		case 'x', 'e':
			m |= WatchExec
		case 'r':
			m |= WatchRead
		case 'w':
			m |= WatchWrite
		default:
			return 0, false
		}
	}
	return m, m != 0
}

// Watch stops the CPU with UserInt after the instruction that fetched, read
// or wrote Addr. DMA transfers are not seen.
type Watch struct {
	Addr uint16
	Mode WatchMode

	cpu *cpu.CPU
	hit WatchMode
}

// NewWatch installs the watch as the bus observer of c. Call it only while
// c is stopped.
func NewWatch(c *cpu.CPU, addr uint16, mode WatchMode) *Watch {
	w := &Watch{Addr: addr, Mode: mode, cpu: c}
	c.SetBusObserver(w.observe)
	return w
}

// Remove detaches the watch from the CPU.
func (w *Watch) Remove() {
	w.cpu.SetBusObserver(nil)
}

// Hit returns the kinds of access seen since the last Reset.
func (w *Watch) Hit() WatchMode {
	return w.hit
}

func (w *Watch) Reset() {
	w.hit = 0
}

func (w *Watch) observe(status cpu.BusStatus, addr uint16, data byte) {
	if addr != w.Addr {
		return
	}
	var kind WatchMode
	switch {
	case status&(cpu.StatusHLTA|cpu.StatusINTA) != 0 && status&cpu.StatusWO != 0:
		return
	case status&cpu.StatusMEMR != 0 && status&cpu.StatusM1 != 0:
		kind = WatchExec
	case status&cpu.StatusMEMR != 0:
		kind = WatchRead
	case status&(cpu.StatusWO|cpu.StatusOUT) == 0:
		kind = WatchWrite
	default:
		return
	}
	if kind&w.Mode == 0 {
		return
	}
	w.hit |= kind
	w.cpu.SetError(cpu.UserInt)
}
