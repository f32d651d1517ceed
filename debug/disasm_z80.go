// disasm_z80.go - Z80 disassembler and the shared decoder

package debug

import (
	"fmt"
	"strings"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// DisassembledLine represents one disassembled instruction.
type DisassembledLine struct {
	Address      uint16
	HexBytes     string
	Mnemonic     string
	Size         int
	IsPC         bool // true if this is the current PC
	IsBranch     bool
	BranchTarget uint16
}

func (l DisassembledLine) String() string {
	return fmt.Sprintf("%04X  %-12s %s", l.Address, l.HexBytes, l.Mnemonic)
}

// ReadFunc reads memory without side effects.
type ReadFunc func(addr uint16) byte

// Disassemble decodes count instructions starting at addr. Undocumented
// instructions are marked with a trailing '*'.
func Disassemble(model cpu.Model, read ReadFunc, addr uint16, count int) []DisassembledLine {
	lines := make([]DisassembledLine, 0, count)
	for range count {
		d := decoder{read: read, pc: addr}
		var mnemonic string
		if model == cpu.I8080 {
			mnemonic = d.decode8080()
		} else {
			mnemonic = d.decodeZ80()
		}
		hexParts := make([]string, d.n)
		for j := range d.n {
			hexParts[j] = fmt.Sprintf("%02X", read(addr+uint16(j)))
		}
		lines = append(lines, DisassembledLine{
			Address:      addr,
			HexBytes:     strings.Join(hexParts, " "),
			Mnemonic:     mnemonic,
			Size:         d.n,
			IsBranch:     d.branch,
			BranchTarget: d.target,
		})
		addr += uint16(d.n)
	}
	return lines
}

type decoder struct {
	read ReadFunc
	pc   uint16
	n    int

	idx     string // "", "IX" or "IY"
	disp    int8
	hasDisp bool

	branch bool
	target uint16
}

func (d *decoder) next() byte {
	b := d.read(d.pc + uint16(d.n))
	d.n++
	return b
}

func (d *decoder) word() uint16 {
	lo := d.next()
	hi := d.next()
	return uint16(hi)<<8 | uint16(lo)
}

func (d *decoder) jump(target uint16) uint16 {
	d.branch = true
	d.target = target
	return target
}

func (d *decoder) relative() uint16 {
	e := int8(d.next())
	return d.jump(d.pc + uint16(d.n) + uint16(e))
}

var (
	z80Reg8      = [8]string{"B", "C", "D", "E", "H", "L", "(HL)", "A"}
	z80Reg16     = [4]string{"BC", "DE", "HL", "SP"}
	z80Reg16Push = [4]string{"BC", "DE", "HL", "AF"}
	z80Cond      = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	z80ALU       = [8]string{"ADD A,", "ADC A,", "SUB", "SBC A,", "AND", "XOR", "OR", "CP"}
	z80CBOps     = [8]string{"RLC", "RRC", "RL", "RR", "SLA", "SRA", "SLL", "SRL"}
	z80Rot       = [8]string{"RLCA", "RRCA", "RLA", "RRA", "DAA", "CPL", "SCF", "CCF"}
	z80IM        = [8]string{"IM 0", "IM 0*", "IM 1", "IM 2", "IM 0*", "IM 0*", "IM 1*", "IM 2*"}
	z80Block     = [4][4]string{
		{"LDI", "CPI", "INI", "OUTI"},
		{"LDD", "CPD", "IND", "OUTD"},
		{"LDIR", "CPIR", "INIR", "OTIR"},
		{"LDDR", "CPDR", "INDR", "OTDR"},
	}
)

// mem is the (HL) operand, (IX+d) under an index prefix. The displacement
// is read on first use so it lands at the right byte offset.
func (d *decoder) mem() string {
	if d.idx == "" {
		return "(HL)"
	}
	if !d.hasDisp {
		d.disp = int8(d.next())
		d.hasDisp = true
	}
	return fmt.Sprintf("(%s%+d)", d.idx, d.disp)
}

// r names an 8-bit operand. H and L become the index halves unless the
// instruction also addresses memory through the index register.
func (d *decoder) r(i byte, plainHL bool) string {
	switch {
	case i == 6:
		return d.mem()
	case d.idx != "" && !plainHL && (i == 4 || i == 5):
		return d.idx + "HL"[i-4:i-3]
	}
	return z80Reg8[i]
}

func (d *decoder) hl() string {
	if d.idx != "" {
		return d.idx
	}
	return "HL"
}

func (d *decoder) rp(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80Reg16[p]
}

func (d *decoder) rp2(p byte) string {
	if p == 2 {
		return d.hl()
	}
	return z80Reg16Push[p]
}

// usesHL reports whether an unprefixed opcode touches HL, H, L or (HL), and
// so has an index register form.
func usesHL(op byte) bool {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	switch x {
	case 0:
		switch z {
		case 1:
			return p == 2 || q == 1
		case 2:
			return p == 2
		case 3:
			return p == 2
		case 4, 5, 6:
			return y == 4 || y == 5 || y == 6
		}
	case 1:
		if op == 0x76 {
			return false
		}
		return y == 4 || y == 5 || y == 6 || z == 4 || z == 5 || z == 6
	case 2:
		return z == 4 || z == 5 || z == 6
	case 3:
		switch op {
		case 0xE1, 0xE5, 0xE9, 0xF9, 0xE3, 0xCB:
			return true
		}
	}
	return false
}

// usesIndexHalf reports whether the opcode addresses H or L as a plain
// register, which an index prefix turns into IXH/IXL.
func usesIndexHalf(x, y, z byte) bool {
	half := func(i byte) bool { return i == 4 || i == 5 }
	switch x {
	case 0:
		return (z == 4 || z == 5 || z == 6) && half(y)
	case 1:
		return y != 6 && z != 6 && (half(y) || half(z))
	case 2:
		return half(z)
	}
	return false
}

func (d *decoder) decodeZ80() string {
	op := d.next()
	switch op {
	case 0xCB:
		return d.decodeCB()
	case 0xED:
		return d.decodeED()
	case 0xDD, 0xFD:
		next := d.read(d.pc + 1)
		if !usesHL(next) {
			return fmt.Sprintf("db $%02X", op)
		}
		d.idx = map[byte]string{0xDD: "IX", 0xFD: "IY"}[op]
		op = d.next()
		if op == 0xCB {
			return d.decodeIndexCB()
		}
	}
	return d.decodeBase(op)
}

func (d *decoder) decodeBase(op byte) string {
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	undoc := ""
	if d.idx != "" && usesIndexHalf(x, y, z) {
		undoc = "*"
	}

	switch x {
	case 0:
		switch z {
		case 0:
			switch y {
			case 0:
				return "NOP"
			case 1:
				return "EX AF, AF'"
			case 2:
				return fmt.Sprintf("DJNZ $%04X", d.relative())
			case 3:
				return fmt.Sprintf("JR $%04X", d.relative())
			}
			return fmt.Sprintf("JR %s, $%04X", z80Cond[y-4], d.relative())
		case 1:
			if q == 0 {
				return fmt.Sprintf("LD %s, $%04X", d.rp(p), d.word())
			}
			return fmt.Sprintf("ADD %s, %s", d.hl(), d.rp(p))
		case 2:
			switch y {
			case 0:
				return "LD (BC), A"
			case 1:
				return "LD A, (BC)"
			case 2:
				return "LD (DE), A"
			case 3:
				return "LD A, (DE)"
			case 4:
				return fmt.Sprintf("LD ($%04X), %s", d.word(), d.hl())
			case 5:
				return fmt.Sprintf("LD %s, ($%04X)", d.hl(), d.word())
			case 6:
				return fmt.Sprintf("LD ($%04X), A", d.word())
			}
			return fmt.Sprintf("LD A, ($%04X)", d.word())
		case 3:
			if q == 0 {
				return "INC " + d.rp(p)
			}
			return "DEC " + d.rp(p)
		case 4:
			return "INC " + d.r(y, false) + undoc
		case 5:
			return "DEC " + d.r(y, false) + undoc
		case 6:
			dst := d.r(y, false)
			return fmt.Sprintf("LD %s, $%02X", dst, d.next()) + undoc
		}
		return z80Rot[y]
	case 1:
		if op == 0x76 {
			return "HALT"
		}
		plain := y == 6 || z == 6
		dst := d.r(y, plain)
		return fmt.Sprintf("LD %s, %s", dst, d.r(z, plain)) + undoc
	case 2:
		return fmt.Sprintf("%s %s", z80ALU[y], d.r(z, false)) + undoc
	}

	switch z {
	case 0:
		return "RET " + z80Cond[y]
	case 1:
		if q == 0 {
			return "POP " + d.rp2(p)
		}
		switch p {
		case 0:
			return "RET"
		case 1:
			return "EXX"
		case 2:
			d.branch = true
			return fmt.Sprintf("JP (%s)", d.hl())
		}
		return "LD SP, " + d.hl()
	case 2:
		return fmt.Sprintf("JP %s, $%04X", z80Cond[y], d.jump(d.word()))
	case 3:
		switch y {
		case 0:
			return fmt.Sprintf("JP $%04X", d.jump(d.word()))
		case 2:
			return fmt.Sprintf("OUT ($%02X), A", d.next())
		case 3:
			return fmt.Sprintf("IN A, ($%02X)", d.next())
		case 4:
			return "EX (SP), " + d.hl()
		case 5:
			return "EX DE, HL"
		case 6:
			return "DI"
		case 7:
			return "EI"
		}
	case 4:
		return fmt.Sprintf("CALL %s, $%04X", z80Cond[y], d.jump(d.word()))
	case 5:
		if q == 0 {
			return "PUSH " + d.rp2(p)
		}
		return fmt.Sprintf("CALL $%04X", d.jump(d.word()))
	case 6:
		return fmt.Sprintf("%s $%02X", z80ALU[y], d.next())
	case 7:
		return fmt.Sprintf("RST $%02X", d.jump(uint16(y)*8))
	}
	return fmt.Sprintf("db $%02X", op)
}

func cbMnemonic(op byte, operand string) string {
	x, y := op>>6, (op>>3)&7
	switch x {
	case 0:
		if y == 6 {
			return z80CBOps[y] + "* " + operand
		}
		return z80CBOps[y] + " " + operand
	case 1:
		return fmt.Sprintf("BIT %d, %s", y, operand)
	case 2:
		return fmt.Sprintf("RES %d, %s", y, operand)
	}
	return fmt.Sprintf("SET %d, %s", y, operand)
}

func (d *decoder) decodeCB() string {
	op := d.next()
	return cbMnemonic(op, z80Reg8[op&7])
}

// DD CB d op: the displacement comes before the opcode.
func (d *decoder) decodeIndexCB() string {
	m := d.mem()
	op := d.next()
	z := op & 7
	if z == 6 {
		return cbMnemonic(op, m)
	}
	if op>>6 == 1 {
		return cbMnemonic(op, m) + "*"
	}
	return cbMnemonic(op, m) + ", " + z80Reg8[z] + "*"
}

func (d *decoder) decodeED() string {
	op := d.next()
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1
	if x == 2 && z <= 3 && y >= 4 {
		return z80Block[y-4][z]
	}
	if x != 1 {
		return fmt.Sprintf("db $ED, $%02X", op)
	}
	switch z {
	case 0:
		if y == 6 {
			return "IN F, (C)*"
		}
		return fmt.Sprintf("IN %s, (C)", z80Reg8[y])
	case 1:
		if y == 6 {
			return "OUT (C), 0*"
		}
		return fmt.Sprintf("OUT (C), %s", z80Reg8[y])
	case 2:
		if q == 0 {
			return "SBC HL, " + z80Reg16[p]
		}
		return "ADC HL, " + z80Reg16[p]
	case 3:
		if q == 0 {
			return fmt.Sprintf("LD ($%04X), %s", d.word(), z80Reg16[p])
		}
		return fmt.Sprintf("LD %s, ($%04X)", z80Reg16[p], d.word())
	case 4:
		if y == 0 {
			return "NEG"
		}
		return "NEG*"
	case 5:
		switch y {
		case 0:
			return "RETN"
		case 1:
			return "RETI"
		}
		return "RETN*"
	case 6:
		return z80IM[y]
	}
	switch y {
	case 0:
		return "LD I, A"
	case 1:
		return "LD R, A"
	case 2:
		return "LD A, I"
	case 3:
		return "LD A, R"
	case 4:
		return "RRD"
	case 5:
		return "RLD"
	}
	return "NOP*"
}
