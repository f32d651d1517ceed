package config

import (
	"flag"
	"fmt"
	"io"
)

// FlagSet returns a flag set that stores into c. Parse errors are returned,
// not printed.
func (c *Config) FlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&c.Script, "config", c.Script, "Lua machine configuration script")
	fs.Func("cpu", "CPU model, z80 or 8080 (default "+c.Model.String()+")", func(s string) error {
		m, err := ParseModel(s)
		c.Model = m
		return err
	})
	fs.BoolVar(&c.Undoc, "undoc", c.Undoc, "execute undocumented opcodes instead of trapping")
	fs.BoolVar(&c.FastBlock, "fast-block", c.FastBlock, "run block instructions to completion in one step")
	fs.BoolVar(&c.BusStatus, "bus-status", c.BusStatus, "track the bus status byte")
	fs.IntVar(&c.History, "history", c.History, "instructions kept in the history ring")
	fs.Func("reset-pc", "PC after reset (hex)", func(s string) (err error) {
		c.ResetPC, err = parseUint16(s)
		return err
	})
	fs.Func("measure", "count T-states between two addresses, start-end (hex)", func(s string) (err error) {
		c.MeasureStart, c.MeasureEnd, err = parseRange(s)
		c.Measure = err == nil
		return err
	})
	fs.BoolVar(&c.Banked, "banked", c.Banked, "banked memory with MMU ports")
	fs.Func("rom", "write protect pages start-end (hex)", func(s string) (err error) {
		c.ROMStart, c.ROMEnd, err = parseRange(s)
		c.ROM = err == nil
		return err
	})
	fs.BoolVar(&c.TrapUnmapped, "trap", c.TrapUnmapped, "stop on access to unmapped I/O ports")
	fs.Func("unused", fmt.Sprintf("value read from unmapped ports (default %02X)", c.Unused), func(s string) (err error) {
		c.Unused, err = parseByte(s)
		return err
	})
	fs.Float64Var(&c.SpeedMHz, "speed", c.SpeedMHz, "emulated clock in MHz, 0 for unlimited")
	fs.BoolVar(&c.Raw, "raw", c.Raw, "load the image as raw binary at -load-addr")
	fs.Func("load-addr", fmt.Sprintf("load address for raw images (default %04X)", c.LoadAddr), func(s string) (err error) {
		c.LoadAddr, err = parseUint16(s)
		return err
	})
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: panic, fatal, error, warn, info, debug, trace")
	fs.Func("break", "software breakpoint addr[,pass] (hex), repeatable", func(s string) error {
		bp, err := ParseBreakpoint(s)
		if err == nil {
			c.Breakpoints = append(c.Breakpoints, bp)
		}
		return err
	})
	fs.Func("watch", "hardware breakpoint addr[:xrw] (hex)", func(s string) (err error) {
		c.Watch, err = ParseWatch(s)
		return err
	})
	fs.BoolVar(&c.ShowHistory, "hist", c.ShowHistory, "print the history when the CPU stops")
	fs.BoolVar(&c.ClockTest, "clock", c.ClockTest, "measure the emulated clock frequency and exit")
	return fs
}

// Parse builds the configuration for args. Flags override the script named
// by -config, which overrides the defaults. The first positional argument
// is the image to load.
func Parse(name string, args []string) (*Config, error) {
	scratch := Default()
	if err := scratch.FlagSet(name).Parse(args); err != nil {
		return nil, err
	}

	c := Default()
	if scratch.Script != "" {
		if err := c.LoadLua(scratch.Script); err != nil {
			return nil, err
		}
	}
	// Breakpoints from the script and the command line add up.
	fromScript := c.Breakpoints
	c.Breakpoints = nil
	fs := c.FlagSet(name)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	c.Breakpoints = append(fromScript, c.Breakpoints...)
	if fs.NArg() > 0 {
		c.Image = fs.Arg(0)
	}
	if fs.NArg() > 1 {
		return nil, fmt.Errorf("unexpected arguments after %s: %q", c.Image, fs.Args()[1:])
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Usage writes the flag summary to w.
func Usage(w io.Writer, name string) {
	fs := Default().FlagSet(name)
	fs.SetOutput(w)
	fmt.Fprintf(w, "Usage: %s [flags] [image]\n", name)
	fs.PrintDefaults()
}

func (b Breakpoint) String() string {
	return fmt.Sprintf("%04X,%d", b.Addr, b.Pass)
}
