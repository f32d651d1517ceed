// breakpoints.go - Software breakpoints by HALT substitution

package debug

import (
	"fmt"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// MaxSoftBreaks is the number of software breakpoint slots.
const MaxSoftBreaks = 10

const haltOpcode = 0x76

// Memory is what the debugger needs from the machine memory. Neither call
// may have bus side effects.
type Memory interface {
	Read(addr uint16) byte
	Poke(addr uint16, value byte)
}

// SoftBreak is a breakpoint that replaces the opcode at Addr with HALT.
type SoftBreak struct {
	Slot  int
	Addr  uint16
	Pass  int // hits before the breakpoint stops the CPU
	Count int // hits since the last stop
	Cond  *Condition

	saved byte
}

func (sb SoftBreak) String() string {
	s := fmt.Sprintf("%02d %04x %05d %05d", sb.Slot, sb.Addr, sb.Pass, sb.Count)
	if sb.Cond != nil {
		s += " if " + sb.Cond.String()
	}
	return s
}

// Breakpoints manages the software breakpoint slots of one CPU.
type Breakpoints struct {
	mem   Memory
	slots [MaxSoftBreaks]*SoftBreak
	next  int

	// lifted is the breakpoint the CPU stopped on. Its original opcode is
	// back in memory until execution resumes.
	lifted *SoftBreak
}

func NewBreakpoints(mem Memory) *Breakpoints {
	return &Breakpoints{mem: mem}
}

// Set installs a breakpoint in the next free slot, round robin. A pass of
// zero or less means 1.
func (b *Breakpoints) Set(addr uint16, pass int) (*SoftBreak, error) {
	slot := b.next
	b.next = (b.next + 1) % MaxSoftBreaks
	return b.SetAt(slot, addr, pass)
}

// SetAt installs a breakpoint in slot, replacing what was there.
func (b *Breakpoints) SetAt(slot int, addr uint16, pass int) (*SoftBreak, error) {
	if slot < 0 || slot >= MaxSoftBreaks {
		return nil, fmt.Errorf("breakpoint %d not available", slot)
	}
	if other := b.Find(addr); other != nil && other.Slot != slot {
		return nil, fmt.Errorf("address %04x already has breakpoint %d", addr, other.Slot)
	}
	if err := b.Clear(slot); err != nil {
		return nil, err
	}
	if pass <= 0 {
		pass = 1
	}
	sb := &SoftBreak{Slot: slot, Addr: addr, Pass: pass, saved: b.mem.Read(addr)}
	b.mem.Poke(addr, haltOpcode)
	b.slots[slot] = sb
	return sb, nil
}

// Clear removes the breakpoint in slot and restores the original opcode.
// Clearing an empty slot is not an error.
func (b *Breakpoints) Clear(slot int) error {
	if slot < 0 || slot >= MaxSoftBreaks {
		return fmt.Errorf("breakpoint %d not available", slot)
	}
	sb := b.slots[slot]
	if sb == nil {
		return nil
	}
	b.mem.Poke(sb.Addr, sb.saved)
	if b.lifted == sb {
		b.lifted = nil
	}
	b.slots[slot] = nil
	return nil
}

func (b *Breakpoints) ClearAll() {
	for i := range b.slots {
		b.Clear(i)
	}
}

// List returns copies of the installed breakpoints ordered by slot.
func (b *Breakpoints) List() []SoftBreak {
	var out []SoftBreak
	for _, sb := range b.slots {
		if sb != nil {
			out = append(out, *sb)
		}
	}
	return out
}

// Find returns the breakpoint at addr or nil.
func (b *Breakpoints) Find(addr uint16) *SoftBreak {
	for _, sb := range b.slots {
		if sb != nil && sb.Addr == addr {
			return sb
		}
	}
	return nil
}

// Lifted returns the breakpoint the CPU is stopped on, if any.
func (b *Breakpoints) Lifted() *SoftBreak {
	return b.lifted
}

// Handle is called after the CPU stopped with OpHalt. When the HALT was a
// breakpoint it returns it, and cont tells whether execution should go on.
//
// A breakpoint that has not reached its pass count executes the original
// instruction in single step and puts the HALT back. One that has reached
// it leaves PC on the breakpoint with the original opcode in memory and the
// CPU error at OpHalt; the next Go, Step or Trace executes the opcode first.
func (b *Breakpoints) Handle(c *cpu.CPU) (sb *SoftBreak, cont bool) {
	if c.Err() != cpu.OpHalt {
		return nil, false
	}
	sb = b.Find(c.PC - 1)
	if sb == nil {
		return nil, false
	}
	if h := c.History(); h != nil {
		h.DropLast()
	}
	c.PC--
	b.mem.Poke(sb.Addr, sb.saved)

	counted := sb.Cond.Evaluate(NewView(c), b.mem.Read, uint64(sb.Count+1))
	if counted {
		sb.Count++
		if sb.Count >= sb.Pass {
			sb.Count = 0
			b.lifted = sb
			return sb, false
		}
	}

	t := c.T
	err := c.Step()
	if c.T == t && c.PC == sb.Addr {
		// A stop request was pending and the original opcode did not run.
		// Stay on the breakpoint like a reached one, without counting the
		// pass.
		if counted {
			sb.Count--
		}
		b.lifted = sb
		return sb, false
	}
	b.mem.Poke(sb.Addr, haltOpcode)
	return sb, err == cpu.None
}

// rearm executes the opcode under a lifted breakpoint and reinstalls the
// HALT. It returns the error of that step.
func (b *Breakpoints) rearm(c *cpu.CPU) (cpu.Error, bool) {
	sb := b.lifted
	if sb == nil {
		return cpu.None, false
	}
	b.lifted = nil
	if c.PC != sb.Addr {
		b.mem.Poke(sb.Addr, haltOpcode)
		return cpu.None, false
	}
	err := c.Step()
	b.mem.Poke(sb.Addr, haltOpcode)
	return err, true
}
