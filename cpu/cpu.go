// Package cpu is a cycle-stepped Z80 and 8080 instruction engine. It owns the
// register file, the opcode tables, the interrupt logic and the run state
// machine, and reaches the rest of the machine only through a Bus.
package cpu

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"
)

// Model selects the instruction set.
type Model int

const (
	Z80 Model = iota
	I8080
)

func (m Model) String() string {
	if m == I8080 {
		return "8080"
	}
	return "Z80"
}

// State is the run state of the CPU. Reset and ModelSwitch are bits that can
// be OR-ed into the other values.
type State uint32

const (
	Stopped       State = 0
	ContinuousRun State = 1
	SingleStep    State = 2
	Reset         State = 4
	ModelSwitch   State = 8

	// stopPending marks a stop or error that arrived while the CPU was not
	// running. The next Run or Step consumes it and returns at once.
	stopPending State = 16
)

// Config holds the options the core reads while running.
type Config struct {
	Model        Model
	Undoc        bool   // execute undocumented opcodes instead of trapping
	FastBlock    bool   // run repeating block instructions to completion in one step
	BusStatus    bool   // keep the bus status byte up to date
	HistoryDepth int    // instructions kept in the history ring, 0 disables
	ResetPC      uint16 // PC after reset

	// Runtime measurement between two addresses, see Measured.
	Measure      bool
	MeasureStart uint16
	MeasureEnd   uint16
}

// MaxHistory is the largest supported history depth.
const MaxHistory = 1000

// Registers is the programmer visible register file.
type Registers struct {
	A, F, B, C, D, E, H, L         byte
	A2, F2, B2, C2, D2, E2, H2, L2 byte // Z80 alternate set

	IX, IY uint16
	SP, PC uint16

	I   byte
	R   byte // bits 0-6 count M1 cycles, bit 7 is only changed by LD R,A
	IFF byte // bit 0 IFF1, bit 1 IFF2
	IM  byte
	WZ  uint16 // internal memptr
}

func (r *Registers) AF() uint16 { return uint16(r.A)<<8 | uint16(r.F) }
func (r *Registers) BC() uint16 { return uint16(r.B)<<8 | uint16(r.C) }
func (r *Registers) DE() uint16 { return uint16(r.D)<<8 | uint16(r.E) }
func (r *Registers) HL() uint16 { return uint16(r.H)<<8 | uint16(r.L) }

func (r *Registers) SetAF(v uint16) { r.A, r.F = byte(v>>8), byte(v) }
func (r *Registers) SetBC(v uint16) { r.B, r.C = byte(v>>8), byte(v) }
func (r *Registers) SetDE(v uint16) { r.D, r.E = byte(v>>8), byte(v) }
func (r *Registers) SetHL(v uint16) { r.H, r.L = byte(v>>8), byte(v) }

// AF2 and friends return the alternate register pairs.
func (r *Registers) AF2() uint16 { return uint16(r.A2)<<8 | uint16(r.F2) }
func (r *Registers) BC2() uint16 { return uint16(r.B2)<<8 | uint16(r.C2) }
func (r *Registers) DE2() uint16 { return uint16(r.D2)<<8 | uint16(r.E2) }
func (r *Registers) HL2() uint16 { return uint16(r.H2)<<8 | uint16(r.L2) }

// CPU is one Z80/8080 processor attached to a Bus.
type CPU struct {
	Registers

	// Halted is set while a HALT instruction waits for an interrupt.
	Halted bool
	// T counts executed T-states. It only grows.
	T uint64

	cfg   Config
	model Model
	bus   Bus

	// ctl packs the run state, a pending Error and the current Error so
	// they change together. See ctlWord.
	ctl atomic.Uint64
	// stopAt ends a run once T reaches it, 0 means no limit.
	stopAt uint64

	intNMI        atomic.Bool
	intInt        atomic.Bool
	intData       atomic.Int32
	intProtection bool
	badIntData    int

	lastPort byte
	status   BusStatus
	trackBus bool
	observer BusObserver

	history *History

	baseOps  [256]func(*CPU) int
	cbOps    [256]func(*CPU) int
	edOps    [256]func(*CPU) int
	idxOps   [256]func(*CPU) int
	idxCBOps [256]func(*CPU) int
	i8080Ops [256]func(*CPU) int

	cbUndoc    [256]bool
	edUndoc    [256]bool
	idxUndoc   [256]bool
	idxCBUndoc [256]bool
	i8080Undoc [256]bool

	// idx points at IX or IY while a DD or FD prefixed opcode runs.
	idx *uint16

	dmaMu      sync.Mutex
	dmaMode    atomic.Int32
	dmaMaster  BusMaster
	dmaRequest bool

	measuring    bool
	measureFrom  uint64
	measureUntil uint64

	elapsed   time.Duration
	statsBase uint64
}

// New returns a CPU in the reset state with the model from cfg.
func New(bus Bus, cfg Config) *CPU {
	if cfg.HistoryDepth > MaxHistory {
		cfg.HistoryDepth = MaxHistory
	}
	c := &CPU{
		bus:   bus,
		cfg:   cfg,
		model: cfg.Model,
	}
	c.trackBus = cfg.BusStatus
	if cfg.HistoryDepth > 0 {
		c.history = newHistory(cfg.HistoryDepth)
	}
	c.idx = &c.IX
	c.initBaseOps()
	c.initCBOps()
	c.initEDOps()
	c.initIndexOps()
	c.initIndexCBOps()
	c.init8080Ops()
	c.Reset()
	if c.model == I8080 {
		c.F = normalize8080(c.F)
	}
	return c
}

// Config returns the configuration the CPU was built with.
func (c *CPU) Config() Config {
	return c.cfg
}

// Model returns the active instruction set.
func (c *CPU) Model() Model {
	return c.model
}

// Init fills the register file with random values the way a CPU comes out
// of power-on, then resets it.
func (c *CPU) Init() {
	r := func() byte { return byte(rand.UintN(256)) }
	c.A, c.F, c.B, c.C, c.D, c.E, c.H, c.L = r(), r(), r(), r(), r(), r(), r(), r()
	c.A2, c.F2, c.B2, c.C2, c.D2, c.E2, c.H2, c.L2 = r(), r(), r(), r(), r(), r(), r(), r()
	c.IX = uint16(rand.UintN(0x10000))
	c.IY = uint16(rand.UintN(0x10000))
	c.SP = uint16(rand.UintN(0x10000))
	c.WZ = uint16(rand.UintN(0x10000))
	if c.model == I8080 {
		c.F = normalize8080(c.F)
	}
	c.Reset()
}

// Reset performs a hardware reset. Registers other than the ones the reset
// line touches keep their values.
func (c *CPU) Reset() {
	c.IFF = 0
	c.intInt.Store(false)
	c.intProtection = false
	c.intData.Store(-1)
	c.PC = c.cfg.ResetPC
	c.Halted = false
	if c.model == Z80 {
		c.I = 0
		c.R = 0
		c.IM = 0
		c.intNMI.Store(false)
	}
}

// State returns the current run state.
func (c *CPU) State() State {
	return loadCtl(&c.ctl).state &^ stopPending
}

// ctlWord is the unpacked form of CPU.ctl.
type ctlWord struct {
	state   State
	pending Error // delivered by the next Run or Step while stopPending is set
	err     Error
}

func loadCtl(a *atomic.Uint64) ctlWord {
	w := a.Load()
	return ctlWord{
		state:   State(uint16(w)),
		pending: Error(int16(uint16(w >> 16))),
		err:     Error(int32(uint32(w >> 32))),
	}
}

func (w ctlWord) pack() uint64 {
	return uint64(uint32(int32(w.err)))<<32 | uint64(uint16(int16(w.pending)))<<16 | uint64(uint16(w.state))
}

// updateCtl applies fn to the run state and errors atomically.
func (c *CPU) updateCtl(fn func(w ctlWord) ctlWord) {
	for {
		old := c.ctl.Load()
		w := fn(loadCtl(&c.ctl))
		if c.ctl.CompareAndSwap(old, w.pack()) {
			return
		}
	}
}

func running(s State) bool {
	return s&(ContinuousRun|SingleStep) != 0
}

// begin enters mode and clears the error. It fails while the reset line is
// held, or when a stop is pending, which it consumes.
func (c *CPU) begin(mode State) bool {
	var ok bool
	c.updateCtl(func(w ctlWord) ctlWord {
		ok = false
		switch {
		case w.state&Reset != 0:
			return w
		case w.state&stopPending != 0:
			w.state &^= stopPending
			w.err, w.pending = w.pending, None
			return w
		}
		ok = true
		return ctlWord{state: mode}
	})
	return ok
}

// end leaves the run mode. A stop that came in after the last boundary
// stays pending.
func (c *CPU) end() {
	c.updateCtl(func(w ctlWord) ctlWord {
		w.state &= Reset | stopPending
		return w
	})
}

// switchState moves from exactly from to to and leaves any other state alone.
func (c *CPU) switchState(from, to State) {
	c.updateCtl(func(w ctlWord) ctlWord {
		if w.state == from {
			w.state = to
		}
		return w
	})
}

// request stops a running CPU with e, or keeps e for the next Run or Step.
func (c *CPU) request(e Error) {
	c.updateCtl(func(w ctlWord) ctlWord {
		if running(w.state) {
			w.state &= Reset
			if e != None {
				w.err = e
			}
			return w
		}
		if w.state&stopPending == 0 || e != None {
			w.pending = e
		}
		w.state |= stopPending
		return w
	})
}

// Stop asks the CPU to stop after the current instruction. When it is not
// running the request is kept and the next Run or Step returns without
// executing. It is safe to call from any goroutine.
func (c *CPU) Stop() {
	c.request(None)
}

// StopAt makes the running CPU stop without error at the first boundary
// where T has reached t. The limit is cleared when it fires; 0 removes it.
// Set it only while the CPU is not running.
func (c *CPU) StopAt(t uint64) {
	c.stopAt = t
}

// Err returns the error that stopped the CPU.
func (c *CPU) Err() Error {
	return loadCtl(&c.ctl).err
}

// SetError stops the running CPU with e. When the CPU is not running, Err
// keeps its value and the next Run or Step returns e without executing.
// Buses and devices call it to report faults; it is safe from any
// goroutine. SetError(None) does nothing.
func (c *CPU) SetError(e Error) {
	if e != None {
		c.request(e)
	}
}

// ClearError drops the error and any pending stop request.
func (c *CPU) ClearError() {
	c.updateCtl(func(w ctlWord) ctlWord {
		w.state &^= stopPending
		w.err, w.pending = None, None
		return w
	})
}

// Snapshot returns a copy of the register file.
func (c *CPU) Snapshot() Registers {
	return c.Registers
}

// SwitchModel changes the instruction set. Call it only at an instruction
// boundary, which includes I/O handlers running inside an OUT instruction.
func (c *CPU) SwitchModel(m Model) {
	if m == c.model {
		return
	}
	if m == I8080 {
		c.F = normalize8080(c.F)
	}
	c.model = m
	c.updateCtl(func(w ctlWord) ctlWord {
		if w.state&^Reset == ContinuousRun {
			w.state |= ModelSwitch
		}
		return w
	})
}

func (c *CPU) incR() {
	c.R = c.R&0x80 | (c.R+1)&0x7F
}

func (c *CPU) decR() {
	c.R = c.R&0x80 | (c.R-1)&0x7F
}

// trap stops the CPU on an opcode that may not execute.
func (c *CPU) trap(e Error) int {
	c.SetError(e)
	return 0
}
