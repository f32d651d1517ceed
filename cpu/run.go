package cpu

import (
	"context"
	"fmt"
	"time"
)

// Run executes instructions until the CPU is stopped or an error occurs and
// returns the error. A model switch during the run continues with the other
// instruction set.
func (c *CPU) Run() Error {
	return c.run()
}

// RunContext is Run that stops with UserInt once ctx is done.
func (c *CPU) RunContext(ctx context.Context) Error {
	if ctx.Err() != nil {
		c.updateCtl(func(w ctlWord) ctlWord {
			w.state &^= stopPending
			w.err, w.pending = UserInt, None
			return w
		})
		return UserInt
	}
	stop := context.AfterFunc(ctx, func() { c.SetError(UserInt) })
	defer stop()
	return c.run()
}

func (c *CPU) run() Error {
	if !c.begin(ContinuousRun) {
		return c.Err()
	}
	start := time.Now()
	for c.Err() == None {
		for c.State() == ContinuousRun {
			c.boundary()
			if c.stopAt != 0 && c.T >= c.stopAt {
				c.stopAt = 0
				c.switchState(ContinuousRun, Stopped)
			}
		}
		s := c.State()
		if s&ModelSwitch == 0 || s&^ModelSwitch != ContinuousRun {
			break
		}
		c.switchState(s, ContinuousRun)
	}
	c.end()
	c.elapsed += time.Since(start)
	return c.Err()
}

// Step executes one instruction, one interrupt acknowledge, one iteration of
// a repeating block instruction or one halt cycle.
func (c *CPU) Step() Error {
	if !c.begin(SingleStep) {
		return c.Err()
	}
	start := time.Now()
	c.boundary()
	c.end()
	c.elapsed += time.Since(start)
	return c.Err()
}

// SetReset drives the reset line. While it is held the CPU does not execute;
// releasing it resets the CPU. Release it only after Run has returned.
func (c *CPU) SetReset(hold bool) {
	if !hold {
		c.Reset()
	}
	c.updateCtl(func(w ctlWord) ctlWord {
		if hold {
			w.state |= Reset
		} else {
			w.state &^= Reset
		}
		return w
	})
}

// boundary handles one instruction boundary: bus requests, interrupts, then
// the next opcode.
func (c *CPU) boundary() {
	if c.dmaMode.Load() != int32(BusDMANone) {
		c.T += c.serviceDMA()
	}
	if c.State()&Reset != 0 {
		return
	}

	// EI and friends protect exactly one boundary.
	protected := c.intProtection
	c.intProtection = false

	if c.model == Z80 && c.intNMI.Load() {
		c.T += uint64(c.serviceNMI())
		return
	}
	if c.intInt.Load() && c.IFF&1 != 0 && !protected {
		if c.model == Z80 {
			c.T += uint64(c.serviceIntZ80())
		} else {
			c.T += uint64(c.serviceInt8080())
		}
		return
	}

	if c.Halted {
		if c.model == Z80 {
			c.incR()
		}
		if c.trackBus {
			c.cycle(StatusWO|StatusHLTA|StatusMEMR, c.PC, 0)
		}
		c.T += 4
		return
	}

	if c.history != nil {
		c.record()
	}
	if c.cfg.Measure {
		c.measureBefore()
	}

	var t int
	if c.model == Z80 {
		c.incR()
		t = c.baseOps[c.fetch()](c)
	} else {
		t = c.exec8080()
	}
	c.T += uint64(t)
	if c.measuring {
		c.measureUntil += uint64(t)
	}
}

func (c *CPU) measureBefore() {
	switch {
	case c.measuring && c.PC == c.cfg.MeasureEnd:
		c.measuring = false
	case !c.measuring && c.PC == c.cfg.MeasureStart:
		c.measuring = true
		c.measureFrom = c.T
		c.measureUntil = c.T
	}
}

// Measured returns the T-states spent between the measurement start and
// end addresses, excluding the instruction at the end address.
func (c *CPU) Measured() uint64 {
	return c.measureUntil - c.measureFrom
}

// BusDMA is the transfer mode of a bus request.
type BusDMA int32

const (
	BusDMANone BusDMA = iota
	BusDMAByte
	BusDMABurst
	BusDMAContinuous
)

// BusMaster runs a DMA transfer. ack is true when the CPU granted the bus.
// It returns the T-states the transfer took.
type BusMaster func(ack bool) uint64

// StartBusRequest asks for the bus. master is called at the next boundary.
func (c *CPU) StartBusRequest(mode BusDMA, master BusMaster) {
	c.dmaMu.Lock()
	c.dmaMaster = master
	c.dmaRequest = true
	c.dmaMu.Unlock()
	c.dmaMode.Store(int32(mode))
}

// EndBusRequest gives the bus back to the CPU.
func (c *CPU) EndBusRequest() {
	c.dmaMode.Store(int32(BusDMANone))
	c.dmaMu.Lock()
	c.dmaMaster = nil
	c.dmaRequest = false
	c.dmaMu.Unlock()
}

func (c *CPU) serviceDMA() uint64 {
	mode := BusDMA(c.dmaMode.Load())
	c.dmaMu.Lock()
	master, request := c.dmaMaster, c.dmaRequest
	c.dmaRequest = false
	c.dmaMu.Unlock()

	var t uint64
	if !request && mode != BusDMAContinuous && master != nil {
		t += master(false)
	}
	if request {
		if master != nil {
			t += master(true)
		}
		if mode == BusDMAContinuous {
			c.EndBusRequest()
		}
	}
	return t
}

// Stats summarises the time spent executing.
type Stats struct {
	Elapsed time.Duration
	T       uint64
}

// MHz is the effective clock frequency.
func (s Stats) MHz() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.T) / s.Elapsed.Seconds() / 1e6
}

func (s Stats) String() string {
	return fmt.Sprintf("CPU ran %d ms and executed %d t-states\nClock frequency %4.2f MHz",
		s.Elapsed.Milliseconds(), s.T, s.MHz())
}

// Stats returns the execution statistics since the last ResetStats.
func (c *CPU) Stats() Stats {
	return Stats{Elapsed: c.elapsed, T: c.T - c.statsBase}
}

// ResetStats starts a new statistics interval.
func (c *CPU) ResetStats() {
	c.elapsed = 0
	c.statsBase = c.T
}
