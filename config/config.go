// Package config builds the simulator configuration from defaults, an
// optional Lua script and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/udo-munk/z80pack-sub002/cpu"
	"github.com/udo-munk/z80pack-sub002/debug"
	"github.com/udo-munk/z80pack-sub002/machine"
)

// DefaultLoadAddr is where raw binary images go unless told otherwise.
const DefaultLoadAddr = 0x0100

// Breakpoint is a software breakpoint to install before the run.
type Breakpoint struct {
	Addr uint16
	Pass int
}

// Watch is a hardware breakpoint to install before the run.
type Watch struct {
	Addr uint16
	Mode debug.WatchMode
}

// Config is everything the simulator binary needs to build and run a
// machine.
type Config struct {
	Script string // Lua configuration script, flags only

	Model     cpu.Model
	Undoc     bool
	FastBlock bool
	BusStatus bool
	History   int
	ResetPC   uint16

	Measure      bool
	MeasureStart uint16
	MeasureEnd   uint16

	Banked   bool
	ROM      bool
	ROMStart uint16
	ROMEnd   uint16

	TrapUnmapped bool
	Unused       byte

	// SpeedMHz throttles the run loop, 0 runs unthrottled.
	SpeedMHz float64

	Image    string
	Raw      bool
	LoadAddr uint16

	LogLevel    string
	Breakpoints []Breakpoint
	Watch       *Watch
	ShowHistory bool
	ClockTest   bool
}

// Default returns the configuration used when nothing is specified.
func Default() *Config {
	return &Config{
		Model:    cpu.Z80,
		Undoc:    true,
		Unused:   machine.UnusedDefault,
		LoadAddr: DefaultLoadAddr,
		LogLevel: "info",
	}
}

// Validate reports every inconsistent setting.
func (c *Config) Validate() error {
	var errs []error
	if c.History < 0 || c.History > cpu.MaxHistory {
		errs = append(errs, fmt.Errorf("history depth %d out of range 0-%d", c.History, cpu.MaxHistory))
	}
	if c.ROM && c.ROMStart > c.ROMEnd {
		errs = append(errs, fmt.Errorf("ROM start %04X after end %04X", c.ROMStart, c.ROMEnd))
	}
	if c.ROM && c.Banked {
		errs = append(errs, errors.New("ROM pages need flat memory"))
	}
	if c.Measure && c.MeasureStart == c.MeasureEnd {
		errs = append(errs, fmt.Errorf("measure start and end are both %04X", c.MeasureStart))
	}
	if c.SpeedMHz < 0 {
		errs = append(errs, fmt.Errorf("speed %g MHz is negative", c.SpeedMHz))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if len(c.Breakpoints) > debug.MaxSoftBreaks {
		errs = append(errs, fmt.Errorf("%d breakpoints, at most %d available", len(c.Breakpoints), debug.MaxSoftBreaks))
	}
	if c.Raw && c.Image == "" {
		errs = append(errs, errors.New("raw load without an image"))
	}
	return errors.Join(errs...)
}

// Level returns the configured log level, info when it does not parse.
func (c *Config) Level() logrus.Level {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// CPUConfig returns the core settings.
func (c *Config) CPUConfig() cpu.Config {
	return cpu.Config{
		Model:        c.Model,
		Undoc:        c.Undoc,
		FastBlock:    c.FastBlock,
		BusStatus:    c.BusStatus,
		HistoryDepth: c.History,
		ResetPC:      c.ResetPC,
		Measure:      c.Measure,
		MeasureStart: c.MeasureStart,
		MeasureEnd:   c.MeasureEnd,
	}
}

// MachineOptions returns the machine settings. Console and Logger are left
// for the caller.
func (c *Config) MachineOptions() machine.Options {
	opts := machine.DefaultOptions()
	opts.CPU = c.CPUConfig()
	opts.Banked = c.Banked
	opts.ROM = c.ROM
	opts.ROMStart = c.ROMStart
	opts.ROMEnd = c.ROMEnd
	opts.TrapUnmapped = c.TrapUnmapped
	opts.Unused = c.Unused
	return opts
}

// ParseModel accepts z80 and 8080 in any case.
func ParseModel(s string) (cpu.Model, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "z80":
		return cpu.Z80, nil
	case "8080", "i8080":
		return cpu.I8080, nil
	}
	return 0, fmt.Errorf("unknown CPU %q (want z80 or 8080)", s)
}

// parseUint16 reads hex by default, like the debugger: 0100, 0x100, $100
// and #256 are the same address.
func parseUint16(value string) (uint16, error) {
	v, ok := debug.ParseAddress(value)
	if !ok || v > 0xFFFF {
		return 0, fmt.Errorf("invalid address %q", value)
	}
	return uint16(v), nil
}

func parseByte(value string) (byte, error) {
	v, ok := debug.ParseAddress(value)
	if !ok || v > 0xFF {
		return 0, fmt.Errorf("invalid byte %q", value)
	}
	return byte(v), nil
}

// parseRange parses "start-end" or "start,end".
func parseRange(value string) (uint16, uint16, error) {
	sep := strings.IndexAny(value, "-,")
	if sep < 0 {
		return 0, 0, fmt.Errorf("range %q: want start-end", value)
	}
	start, err := parseUint16(value[:sep])
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", value, err)
	}
	end, err := parseUint16(value[sep+1:])
	if err != nil {
		return 0, 0, fmt.Errorf("range %q: %w", value, err)
	}
	return start, end, nil
}

// ParseBreakpoint parses "addr" or "addr,pass".
func ParseBreakpoint(value string) (Breakpoint, error) {
	addrStr, passStr, hasPass := strings.Cut(value, ",")
	addr, err := parseUint16(addrStr)
	if err != nil {
		return Breakpoint{}, fmt.Errorf("breakpoint %q: %w", value, err)
	}
	bp := Breakpoint{Addr: addr, Pass: 1}
	if hasPass {
		pass, err := strconv.Atoi(strings.TrimSpace(passStr))
		if err != nil || pass < 1 {
			return Breakpoint{}, fmt.Errorf("breakpoint %q: invalid pass count", value)
		}
		bp.Pass = pass
	}
	return bp, nil
}

// ParseWatch parses "addr:mode" with mode made of x, r and w.
func ParseWatch(value string) (*Watch, error) {
	addrStr, modeStr, ok := strings.Cut(value, ":")
	if !ok {
		modeStr = "x"
	}
	addr, err := parseUint16(addrStr)
	if err != nil {
		return nil, fmt.Errorf("watch %q: %w", value, err)
	}
	mode, ok := debug.ParseWatchMode(modeStr)
	if !ok {
		return nil, fmt.Errorf("watch %q: mode must combine x, r and w", value)
	}
	return &Watch{Addr: addr, Mode: mode}, nil
}
