// Command z80sim runs a Z80 or 8080 program on the simulated machine.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/udo-munk/z80pack-sub002/config"
	"github.com/udo-munk/z80pack-sub002/cpu"
	"github.com/udo-munk/z80pack-sub002/debug"
	"github.com/udo-munk/z80pack-sub002/machine"
)

func main() {
	os.Exit(run(context.Background(), filepath.Base(os.Args[0]), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run is the whole program. stdin may be nil to leave console input
// unconnected. It returns the process exit code.
func run(ctx context.Context, name string, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	cfg, err := config.Parse(name, args)
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(stdout, name)
		return 0
	}
	if err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		config.Usage(stderr, name)
		return 2
	}

	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetLevel(cfg.Level())
	log := logrus.NewEntry(logger)

	opts := cfg.MachineOptions()
	opts.Console = stdout
	opts.Logger = log.WithField("component", "machine")
	sys := machine.New(opts)

	if cfg.Image != "" {
		load := func() error {
			var err error
			if cfg.Raw {
				_, err = sys.LoadBinaryFile(cfg.Image, cfg.LoadAddr)
			} else {
				_, err = sys.LoadFile(cfg.Image)
			}
			return err
		}
		if err := load(); err != nil {
			log.WithError(err).Error("can't load image")
			return 1
		}
		sys.OnBoot(load)
	}

	sess := debug.NewSession(sys.CPU, sys.Memory, log.WithField("component", "debug"))

	if cfg.ClockTest {
		ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		res, err := debug.MeasureClock(ctx, sys.CPU, sys.Memory, debug.DefaultClockDuration)
		if err != nil {
			fmt.Fprintln(stdout, "Interrupted by user")
			return 1
		}
		fmt.Fprintln(stdout, res)
		return 0
	}

	for _, bp := range cfg.Breakpoints {
		if _, err := sess.Breaks.Set(bp.Addr, bp.Pass); err != nil {
			log.WithError(err).WithField("breakpoint", bp).Error("can't set breakpoint")
			return 1
		}
	}
	if cfg.Watch != nil {
		sess.SetWatch(cfg.Watch.Addr, cfg.Watch.Mode)
	}

	r := &Runner{
		Sys:      sys,
		Session:  sess,
		SpeedMHz: cfg.SpeedMHz,
		Log:      log.WithField("component", "runner"),
	}
	if stdin != nil {
		r.Host = NewConsoleHost(stdin, sys.Console, func() { sys.CPU.SetError(cpu.UserInt) }, r.Log)
	}
	stopErr, err := r.Run(ctx)
	if err != nil {
		log.WithError(err).Error("run failed")
		return 1
	}

	fmt.Fprintln(stdout)
	report(stdout, cfg, sess, sys.Memory.Read)
	switch stopErr {
	case cpu.None, cpu.OpHalt, cpu.IOHalt, cpu.UserInt, cpu.PowerOff:
		return 0
	}
	return 1
}

// report prints why the CPU stopped, where, and the run statistics.
func report(w io.Writer, cfg *config.Config, sess *debug.Session, read debug.ReadFunc) {
	c := sess.CPU
	if sb := sess.Breaks.Lifted(); sb != nil && c.Err() == cpu.OpHalt {
		fmt.Fprintf(w, "Software breakpoint %d reached at %04x\n", sb.Slot, sb.Addr)
	} else if msg := c.ErrorReport(); msg != "" {
		fmt.Fprintln(w, msg)
	}
	printRegisters(w, sess.View())
	for _, l := range sess.View().Disassemble(read, c.PC, 1) {
		fmt.Fprintln(w, l)
	}
	if cfg.Measure {
		fmt.Fprintf(w, "T-states between %04X and %04X: %d\n", cfg.MeasureStart, cfg.MeasureEnd, c.Measured())
	}
	if cfg.ShowHistory && c.History() != nil {
		_ = debug.FormatHistory(w, c.History().Entries(), -1)
	}
	fmt.Fprintln(w, c.Stats())
}

// printRegisters writes the register pairs and the 8-bit control
// registers on one line.
func printRegisters(w io.Writer, v *debug.View) {
	sep := ""
	for _, r := range v.Registers() {
		switch {
		case r.Group == "shadow" || r.Group == "flags":
			continue
		case r.BitWidth == 16:
			fmt.Fprintf(w, "%s%s=%04X", sep, r.Name, r.Value)
		case r.Group == "status":
			fmt.Fprintf(w, "%s%s=%02X", sep, r.Name, r.Value)
		default:
			continue
		}
		sep = " "
	}
	fmt.Fprintln(w)
}
