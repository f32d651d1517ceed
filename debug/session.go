// session.go - Go, step and trace with transparent breakpoint handling

package debug

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// DefaultTraceCount is the number of instructions Trace runs for n <= 0.
const DefaultTraceCount = 20

// Session drives one CPU for an interactive debugger.
type Session struct {
	CPU    *cpu.CPU
	Breaks *Breakpoints
	// Watch is the hardware breakpoint, nil when none is set.
	Watch *Watch

	mem Memory
	log *logrus.Entry
}

// NewSession returns a session without breakpoints. A nil log uses the
// standard logger.
func NewSession(c *cpu.CPU, mem Memory, log *logrus.Entry) *Session {
	if log == nil {
		log = logrus.WithField("component", "debug")
	}
	return &Session{
		CPU:    c,
		Breaks: NewBreakpoints(mem),
		mem:    mem,
		log:    log,
	}
}

// View returns a register view of the session CPU.
func (s *Session) View() *View {
	return NewView(s.CPU)
}

// SetWatch replaces the hardware breakpoint. Mode 0 removes it.
func (s *Session) SetWatch(addr uint16, mode WatchMode) *Watch {
	if s.Watch != nil {
		s.Watch.Remove()
		s.Watch = nil
	}
	if mode != 0 {
		s.Watch = NewWatch(s.CPU, addr, mode)
	}
	return s.Watch
}

// Go runs until the CPU stops for a reason other than a breakpoint that has
// not reached its pass count, or ctx is done.
func (s *Session) Go(ctx context.Context) cpu.Error {
	s.armWatch()
	if err, stepped := s.Breaks.rearm(s.CPU); stepped && err != cpu.None {
		return s.report(err)
	}
	for {
		err := s.CPU.RunContext(ctx)
		if err != cpu.OpHalt || !s.handle() {
			break
		}
	}
	return s.report(s.CPU.Err())
}

// Step executes one instruction. A breakpoint HALT is handled like Go does.
func (s *Session) Step() cpu.Error {
	s.armWatch()
	if s.step() == cpu.OpHalt {
		s.handle()
	}
	return s.report(s.CPU.Err())
}

// Trace single steps n instructions and calls fn with the registers after
// each one. It stops early on an error that is not a passing breakpoint.
func (s *Session) Trace(n int, fn func(cpu.Registers)) cpu.Error {
	if n <= 0 {
		n = DefaultTraceCount
	}
	s.armWatch()
	for range n {
		err := s.step()
		if fn != nil {
			fn(s.CPU.Snapshot())
		}
		if err == cpu.None {
			continue
		}
		if err != cpu.OpHalt || !s.handle() {
			break
		}
	}
	return s.report(s.CPU.Err())
}

func (s *Session) step() cpu.Error {
	if err, stepped := s.Breaks.rearm(s.CPU); stepped {
		return err
	}
	return s.CPU.Step()
}

func (s *Session) handle() bool {
	sb, cont := s.Breaks.Handle(s.CPU)
	if sb != nil && s.Breaks.Lifted() == sb && s.CPU.Err() == cpu.OpHalt {
		s.log.WithField("slot", sb.Slot).Infof("Software breakpoint %d reached at %04x", sb.Slot, sb.Addr)
	}
	return cont
}

func (s *Session) armWatch() {
	if s.Watch != nil {
		s.Watch.Reset()
	}
}

func (s *Session) report(err cpu.Error) cpu.Error {
	if s.Watch != nil && s.Watch.Hit() != 0 {
		s.log.WithField("mode", s.Watch.Hit()).Infof("Hardware breakpoint reached at %04x", s.Watch.Addr)
	}
	return err
}
