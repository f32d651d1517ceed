package debug

import "fmt"

var (
	i8080Reg8   = [8]string{"B", "C", "D", "E", "H", "L", "M", "A"}
	i8080Reg16  = [4]string{"B", "D", "H", "SP"}
	i8080Push   = [4]string{"B", "D", "H", "PSW"}
	i8080Cond   = [8]string{"NZ", "Z", "NC", "C", "PO", "PE", "P", "M"}
	i8080ALU    = [8]string{"ADD", "ADC", "SUB", "SBB", "ANA", "XRA", "ORA", "CMP"}
	i8080ALUImm = [8]string{"ADI", "ACI", "SUI", "SBI", "ANI", "XRI", "ORI", "CPI"}
	i8080Rot    = [8]string{"RLC", "RRC", "RAL", "RAR", "DAA", "CMA", "STC", "CMC"}
)

// decode8080 uses Intel mnemonics. The opcodes the 8080 leaves undefined
// decode as the instruction they alias, marked with '*'.
func (d *decoder) decode8080() string {
	op := d.next()
	x, y, z := op>>6, (op>>3)&7, op&7
	p, q := y>>1, y&1

	switch x {
	case 0:
		switch z {
		case 0:
			if y == 0 {
				return "NOP"
			}
			return "NOP*"
		case 1:
			if q == 0 {
				return fmt.Sprintf("LXI %s, $%04X", i8080Reg16[p], d.word())
			}
			return "DAD " + i8080Reg16[p]
		case 2:
			switch y {
			case 0:
				return "STAX B"
			case 1:
				return "LDAX B"
			case 2:
				return "STAX D"
			case 3:
				return "LDAX D"
			case 4:
				return fmt.Sprintf("SHLD $%04X", d.word())
			case 5:
				return fmt.Sprintf("LHLD $%04X", d.word())
			case 6:
				return fmt.Sprintf("STA $%04X", d.word())
			}
			return fmt.Sprintf("LDA $%04X", d.word())
		case 3:
			if q == 0 {
				return "INX " + i8080Reg16[p]
			}
			return "DCX " + i8080Reg16[p]
		case 4:
			return "INR " + i8080Reg8[y]
		case 5:
			return "DCR " + i8080Reg8[y]
		case 6:
			return fmt.Sprintf("MVI %s, $%02X", i8080Reg8[y], d.next())
		}
		return i8080Rot[y]
	case 1:
		if op == 0x76 {
			return "HLT"
		}
		return fmt.Sprintf("MOV %s, %s", i8080Reg8[y], i8080Reg8[z])
	case 2:
		return fmt.Sprintf("%s %s", i8080ALU[y], i8080Reg8[z])
	}

	switch z {
	case 0:
		return "R" + i8080Cond[y]
	case 1:
		if q == 0 {
			return "POP " + i8080Push[p]
		}
		switch p {
		case 0:
			return "RET"
		case 1:
			return "RET*"
		case 2:
			d.branch = true
			return "PCHL"
		}
		return "SPHL"
	case 2:
		return fmt.Sprintf("J%s $%04X", i8080Cond[y], d.jump(d.word()))
	case 3:
		switch y {
		case 0:
			return fmt.Sprintf("JMP $%04X", d.jump(d.word()))
		case 1:
			return fmt.Sprintf("JMP* $%04X", d.jump(d.word()))
		case 2:
			return fmt.Sprintf("OUT $%02X", d.next())
		case 3:
			return fmt.Sprintf("IN $%02X", d.next())
		case 4:
			return "XTHL"
		case 5:
			return "XCHG"
		case 6:
			return "DI"
		}
		return "EI"
	case 4:
		return fmt.Sprintf("C%s $%04X", i8080Cond[y], d.jump(d.word()))
	case 5:
		if q == 0 {
			return "PUSH " + i8080Push[p]
		}
		if p == 0 {
			return fmt.Sprintf("CALL $%04X", d.jump(d.word()))
		}
		return fmt.Sprintf("CALL* $%04X", d.jump(d.word()))
	case 6:
		return fmt.Sprintf("%s $%02X", i8080ALUImm[y], d.next())
	}
	return fmt.Sprintf("RST %d", d.jump(uint16(y)*8)/8)
}
