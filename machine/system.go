// system.go - The simulated machine: memory, ports and devices around the CPU

package machine

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

const (
	MMUInitPort    = 20
	MMUSelectPort  = 21
	MMUSegmentPort = 22
	MMUProtectPort = 23

	HardwareControlPort = 160

	hwctlUnlock = 0xAA
	hwctlLocked = 0xFF
)

// Options describes the machine to build.
type Options struct {
	CPU cpu.Config

	// Banked selects the MMU with banks and a common segment instead of
	// flat memory.
	Banked bool
	// ROM makes ROMStart..ROMEnd read-only on flat memory.
	ROM      bool
	ROMStart uint16
	ROMEnd   uint16

	// TrapUnmapped stops the CPU on access to unmapped ports.
	TrapUnmapped bool
	// Unused is returned by unmapped input ports.
	Unused byte

	Console io.Writer
	Logger  *logrus.Entry
}

// DefaultOptions is a Z80 with flat memory, permissive ports and console
// output discarded.
func DefaultOptions() Options {
	return Options{
		CPU:    cpu.Config{Model: cpu.Z80, Undoc: true},
		Unused: UnusedDefault,
	}
}

// System implements cpu.Bus and cpu.DMABus for one machine.
type System struct {
	CPU     *cpu.CPU
	Memory  Memory
	Ports   *Ports
	Console *Console

	banked *Banked
	hwLock byte
	boot   func() error
	log    *logrus.Entry
}

// New wires memory, ports and the standard devices to a new CPU.
func New(opts Options) *System {
	s := &System{
		Ports:   NewPorts(),
		Console: NewConsole(opts.Console),
		hwLock:  hwctlLocked,
		log:     opts.Logger,
	}
	if s.log == nil {
		s.log = logrus.WithField("component", "machine")
	}
	s.Ports.Trap = opts.TrapUnmapped
	s.Ports.Unused = opts.Unused

	if opts.Banked {
		b := NewBanked()
		b.OnViolation(func() { s.CPU.RequestNMI() })
		s.banked = b
		s.Memory = b
	} else {
		f := NewFlat()
		if opts.ROM && opts.ROMEnd >= opts.ROMStart {
			f.SetROM(opts.ROMStart, opts.ROMEnd)
		}
		s.Memory = f
	}

	s.CPU = cpu.New(s, opts.CPU)

	s.mapConsole()
	s.mapHardwareControl()
	if s.banked != nil {
		s.mapMMU()
	}
	return s
}

// Banked returns the MMU, or nil for flat memory.
func (s *System) Banked() *Banked {
	return s.banked
}

// OnBoot installs the function run after a reset through the hardware
// control port, typically a loader for the boot image.
func (s *System) OnBoot(fn func() error) {
	s.boot = fn
}

func (s *System) Read(addr uint16) byte {
	return s.Memory.Read(addr)
}

func (s *System) Write(addr uint16, value byte) {
	s.Memory.Write(addr, value)
}

func (s *System) DMARead(addr uint16) byte {
	return s.Memory.Read(addr)
}

func (s *System) DMAWrite(addr uint16, value byte) {
	s.Memory.DMAWrite(addr, value)
}

func (s *System) In(port uint16) byte {
	v, ok := s.Ports.In(port)
	if !ok && s.Ports.Trap {
		s.log.WithFields(logrus.Fields{
			"port": fmt.Sprintf("%02X", byte(port)),
			"pc":   fmt.Sprintf("%04X", s.CPU.PC),
		}).Debug("input from unmapped port")
		s.CPU.SetError(cpu.IOTrapIn)
	}
	return v
}

func (s *System) Out(port uint16, value byte) {
	s.log.Debugf("output %02x to port %02x", value, byte(port))
	if !s.Ports.Out(port, value) && s.Ports.Trap {
		s.log.WithFields(logrus.Fields{
			"port": fmt.Sprintf("%02X", byte(port)),
			"pc":   fmt.Sprintf("%04X", s.CPU.PC),
		}).Debug("output to unmapped port")
		s.CPU.SetError(cpu.IOTrapOut)
	}
}

// Run seals the port table and runs the CPU until it stops or ctx ends.
func (s *System) Run(ctx context.Context) cpu.Error {
	s.Ports.Seal()
	s.log.WithField("model", s.CPU.Model()).Info("CPU running")
	err := s.CPU.RunContext(ctx)
	s.log.WithField("error", err).Info("CPU stopped")
	return err
}

// Reset resets the CPU and the MMU and runs the boot function.
func (s *System) Reset() {
	s.CPU.Reset()
	if s.banked != nil {
		s.banked.Reset()
	}
	s.hwLock = hwctlLocked
	if s.boot != nil {
		if err := s.boot(); err != nil {
			s.fail(fmt.Errorf("boot: %w", err))
		}
	}
}

// fail reports a fatal device error and stops the CPU.
func (s *System) fail(err error) {
	s.log.WithField("pc", fmt.Sprintf("%04X", s.CPU.PC)).Error(err)
	s.CPU.SetError(cpu.IOError)
}

func (s *System) mapConsole() {
	s.Ports.Map(ConsoleStatusPort,
		func(uint16) byte { return s.Console.Status() },
		func(uint16, byte) {})
	s.Ports.Map(ConsoleDataPort,
		func(uint16) byte { return s.Console.ReadData() },
		func(_ uint16, v byte) {
			if err := s.Console.WriteData(v); err != nil {
				s.fail(fmt.Errorf("can't write console: %w", err))
			}
		})
}

func (s *System) mapMMU() {
	b := s.banked
	s.Ports.Map(MMUInitPort,
		func(uint16) byte { return byte(b.Banks()) },
		func(_ uint16, v byte) {
			if err := b.InitBanks(int(v)); err != nil {
				s.fail(err)
			}
		})
	s.Ports.Map(MMUSelectPort,
		func(uint16) byte { return byte(b.Selected()) },
		func(_ uint16, v byte) {
			if err := b.SelectBank(int(v)); err != nil {
				s.fail(err)
			}
		})
	s.Ports.Map(MMUSegmentPort,
		func(uint16) byte { return b.SegmentPages() },
		func(_ uint16, v byte) {
			if err := b.SetSegmentPages(v); err != nil {
				s.fail(err)
			}
		})
	s.Ports.Map(MMUProtectPort,
		func(uint16) byte { return b.Protect() },
		func(_ uint16, v byte) { b.SetProtect(v) })
}

// The hardware control port ignores everything until it receives 0xAA.
// The next write is then executed and locks the port again.
func (s *System) mapHardwareControl() {
	s.Ports.Map(HardwareControlPort,
		func(uint16) byte { return s.hwLock },
		func(_ uint16, v byte) {
			if s.hwLock != 0 {
				if v == hwctlUnlock {
					s.hwLock = 0
				}
				return
			}
			s.hwLock = hwctlLocked
			switch {
			case v&0x80 != 0:
				s.CPU.SetError(cpu.IOHalt)
			case v&0x40 != 0:
				s.Reset()
			case v&0x20 != 0:
				s.CPU.SwitchModel(cpu.Z80)
			case v&0x10 != 0:
				s.CPU.SwitchModel(cpu.I8080)
			}
		})
}
