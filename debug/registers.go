// registers.go - Register view for the debugger

package debug

import (
	"strings"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// RegisterInfo describes a single CPU register for display.
type RegisterInfo struct {
	Name     string // "PC", "A", "HL'"
	BitWidth int    // 8 or 16
	Value    uint64
	Group    string // "general", "pair", "index", "status", "shadow", "flags"
}

type regAccess struct {
	name    string
	width   int
	group   string
	z80Only bool
	get     func(c *cpu.CPU) uint64
	set     func(c *cpu.CPU, v uint64)
}

func reg8(name, group string, z80Only bool, p func(c *cpu.CPU) *byte) regAccess {
	return regAccess{
		name: name, width: 8, group: group, z80Only: z80Only,
		get: func(c *cpu.CPU) uint64 { return uint64(*p(c)) },
		set: func(c *cpu.CPU, v uint64) { *p(c) = byte(v) },
	}
}

func reg16(name, group string, z80Only bool, p func(c *cpu.CPU) *uint16) regAccess {
	return regAccess{
		name: name, width: 16, group: group, z80Only: z80Only,
		get: func(c *cpu.CPU) uint64 { return uint64(*p(c)) },
		set: func(c *cpu.CPU, v uint64) { *p(c) = uint16(v) },
	}
}

func pair(name, group string, z80Only bool, hi, lo func(c *cpu.CPU) *byte) regAccess {
	return regAccess{
		name: name, width: 16, group: group, z80Only: z80Only,
		get: func(c *cpu.CPU) uint64 { return uint64(*hi(c))<<8 | uint64(*lo(c)) },
		set: func(c *cpu.CPU, v uint64) { *hi(c), *lo(c) = byte(v>>8), byte(v) },
	}
}

var registerTable = []regAccess{
	reg8("A", "general", false, func(c *cpu.CPU) *byte { return &c.A }),
	reg8("F", "flags", false, func(c *cpu.CPU) *byte { return &c.F }),
	reg8("B", "general", false, func(c *cpu.CPU) *byte { return &c.B }),
	reg8("C", "general", false, func(c *cpu.CPU) *byte { return &c.C }),
	reg8("D", "general", false, func(c *cpu.CPU) *byte { return &c.D }),
	reg8("E", "general", false, func(c *cpu.CPU) *byte { return &c.E }),
	reg8("H", "general", false, func(c *cpu.CPU) *byte { return &c.H }),
	reg8("L", "general", false, func(c *cpu.CPU) *byte { return &c.L }),
	pair("AF", "pair", false, func(c *cpu.CPU) *byte { return &c.A }, func(c *cpu.CPU) *byte { return &c.F }),
	pair("BC", "pair", false, func(c *cpu.CPU) *byte { return &c.B }, func(c *cpu.CPU) *byte { return &c.C }),
	pair("DE", "pair", false, func(c *cpu.CPU) *byte { return &c.D }, func(c *cpu.CPU) *byte { return &c.E }),
	pair("HL", "pair", false, func(c *cpu.CPU) *byte { return &c.H }, func(c *cpu.CPU) *byte { return &c.L }),
	reg8("A'", "shadow", true, func(c *cpu.CPU) *byte { return &c.A2 }),
	reg8("F'", "shadow", true, func(c *cpu.CPU) *byte { return &c.F2 }),
	reg8("B'", "shadow", true, func(c *cpu.CPU) *byte { return &c.B2 }),
	reg8("C'", "shadow", true, func(c *cpu.CPU) *byte { return &c.C2 }),
	reg8("D'", "shadow", true, func(c *cpu.CPU) *byte { return &c.D2 }),
	reg8("E'", "shadow", true, func(c *cpu.CPU) *byte { return &c.E2 }),
	reg8("H'", "shadow", true, func(c *cpu.CPU) *byte { return &c.H2 }),
	reg8("L'", "shadow", true, func(c *cpu.CPU) *byte { return &c.L2 }),
	pair("AF'", "shadow", true, func(c *cpu.CPU) *byte { return &c.A2 }, func(c *cpu.CPU) *byte { return &c.F2 }),
	pair("BC'", "shadow", true, func(c *cpu.CPU) *byte { return &c.B2 }, func(c *cpu.CPU) *byte { return &c.C2 }),
	pair("DE'", "shadow", true, func(c *cpu.CPU) *byte { return &c.D2 }, func(c *cpu.CPU) *byte { return &c.E2 }),
	pair("HL'", "shadow", true, func(c *cpu.CPU) *byte { return &c.H2 }, func(c *cpu.CPU) *byte { return &c.L2 }),
	reg16("IX", "index", true, func(c *cpu.CPU) *uint16 { return &c.IX }),
	reg16("IY", "index", true, func(c *cpu.CPU) *uint16 { return &c.IY }),
	reg16("SP", "general", false, func(c *cpu.CPU) *uint16 { return &c.SP }),
	reg16("PC", "general", false, func(c *cpu.CPU) *uint16 { return &c.PC }),
	reg8("I", "status", true, func(c *cpu.CPU) *byte { return &c.I }),
	reg8("R", "status", true, func(c *cpu.CPU) *byte { return &c.R }),
	reg8("IM", "status", true, func(c *cpu.CPU) *byte { return &c.IM }),
	reg8("IFF", "status", false, func(c *cpu.CPU) *byte { return &c.IFF }),
}

// View gives the debugger name based access to the registers of a stopped
// CPU. The 8080 hides the Z80-only registers.
type View struct {
	cpu *cpu.CPU
}

func NewView(c *cpu.CPU) *View {
	return &View{cpu: c}
}

func (v *View) CPUName() string { return v.cpu.Model().String() }

func (v *View) visible(r regAccess) bool {
	return !r.z80Only || v.cpu.Model() == cpu.Z80
}

func (v *View) lookup(name string) (regAccess, bool) {
	name = strings.ToUpper(strings.TrimSpace(name))
	if v.cpu.Model() == cpu.I8080 && name == "PSW" {
		name = "AF"
	}
	for _, r := range registerTable {
		if r.name == name && v.visible(r) {
			return r, true
		}
	}
	return regAccess{}, false
}

// Registers lists every visible register with its current value.
func (v *View) Registers() []RegisterInfo {
	out := make([]RegisterInfo, 0, len(registerTable))
	for _, r := range registerTable {
		if !v.visible(r) {
			continue
		}
		out = append(out, RegisterInfo{Name: r.name, BitWidth: r.width, Value: r.get(v.cpu), Group: r.group})
	}
	return out
}

// Get returns the register called name. Names are case insensitive.
func (v *View) Get(name string) (uint64, bool) {
	r, ok := v.lookup(name)
	if !ok {
		return 0, false
	}
	return r.get(v.cpu), true
}

// Set stores value truncated to the register width.
func (v *View) Set(name string, value uint64) bool {
	r, ok := v.lookup(name)
	if !ok {
		return false
	}
	r.set(v.cpu, value)
	return true
}

// Disassemble decodes count instructions at addr and marks the one at PC.
func (v *View) Disassemble(read ReadFunc, addr uint16, count int) []DisassembledLine {
	lines := Disassemble(v.cpu.Model(), read, addr, count)
	for i := range lines {
		lines[i].IsPC = lines[i].Address == v.cpu.PC
	}
	return lines
}
