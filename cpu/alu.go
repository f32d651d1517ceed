package cpu

// Z80 arithmetic and logic. Each helper sets F completely, including the
// undocumented Y and X bits.

type aluOp byte

const (
	aluAdd aluOp = iota
	aluAdc
	aluSub
	aluSbc
	aluAnd
	aluXor
	aluOr
	aluCp
)

func (c *CPU) alu(op aluOp, v byte) {
	switch op {
	case aluAdd:
		c.add8(v, 0)
	case aluAdc:
		c.add8(v, c.F&FlagC)
	case aluSub:
		c.A = c.sub8(v, 0)
	case aluSbc:
		c.A = c.sub8(v, c.F&FlagC)
	case aluAnd:
		c.A &= v
		c.F = szpTable[c.A] | FlagH
	case aluXor:
		c.A ^= v
		c.F = szpTable[c.A]
	case aluOr:
		c.A |= v
		c.F = szpTable[c.A]
	case aluCp:
		c.sub8(v, 0)
		c.F = c.F&^flagYX | v&flagYX
	}
}

func (c *CPU) add8(v, carry byte) {
	a := c.A
	r := uint16(a) + uint16(v) + uint16(carry)
	res := byte(r)
	f := szTable[res]
	if (a^v^res)&0x10 != 0 {
		f |= FlagH
	}
	if (a^^v)&(a^res)&0x80 != 0 {
		f |= FlagP
	}
	if r > 0xFF {
		f |= FlagC
	}
	c.A = res
	c.F = f
}

// sub8 computes A-v-carry, sets the flags and returns the result without
// storing it.
func (c *CPU) sub8(v, carry byte) byte {
	a := c.A
	r := int(a) - int(v) - int(carry)
	res := byte(r)
	f := szTable[res] | FlagN
	if (a^v^res)&0x10 != 0 {
		f |= FlagH
	}
	if (a^v)&(a^res)&0x80 != 0 {
		f |= FlagP
	}
	if r < 0 {
		f |= FlagC
	}
	c.F = f
	return res
}

func (c *CPU) inc8(v byte) byte {
	res := v + 1
	f := c.F&FlagC | szTable[res]
	if v&0x0F == 0x0F {
		f |= FlagH
	}
	if v == 0x7F {
		f |= FlagP
	}
	c.F = f
	return res
}

func (c *CPU) dec8(v byte) byte {
	res := v - 1
	f := c.F&FlagC | szTable[res] | FlagN
	if v&0x0F == 0 {
		f |= FlagH
	}
	if v == 0x80 {
		f |= FlagP
	}
	c.F = f
	return res
}

func (c *CPU) add16(a, b uint16) uint16 {
	r := uint32(a) + uint32(b)
	res := uint16(r)
	f := c.F&(FlagS|FlagZ|FlagP) | byte(res>>8)&flagYX
	if (a^b^res)&0x1000 != 0 {
		f |= FlagH
	}
	if r > 0xFFFF {
		f |= FlagC
	}
	c.F = f
	c.WZ = a + 1
	return res
}

func (c *CPU) adc16(a, b uint16) uint16 {
	r := uint32(a) + uint32(b) + uint32(c.F&FlagC)
	res := uint16(r)
	f := byte(res>>8) & (FlagS | flagYX)
	if res == 0 {
		f |= FlagZ
	}
	if (a^b^res)&0x1000 != 0 {
		f |= FlagH
	}
	if (a^^b)&(a^res)&0x8000 != 0 {
		f |= FlagP
	}
	if r > 0xFFFF {
		f |= FlagC
	}
	c.F = f
	c.WZ = a + 1
	return res
}

func (c *CPU) sbc16(a, b uint16) uint16 {
	r := int32(a) - int32(b) - int32(c.F&FlagC)
	res := uint16(r)
	f := byte(res>>8)&(FlagS|flagYX) | FlagN
	if res == 0 {
		f |= FlagZ
	}
	if (a^b^res)&0x1000 != 0 {
		f |= FlagH
	}
	if (a^b)&(a^res)&0x8000 != 0 {
		f |= FlagP
	}
	if r < 0 {
		f |= FlagC
	}
	c.F = f
	c.WZ = a + 1
	return res
}

// rotate runs one of the eight CB-prefixed shift operations selected by
// bits 3-5 of the opcode.
func (c *CPU) rotate(op byte, v byte) byte {
	var res, carry byte
	switch op & 7 {
	case 0: // RLC
		carry = v >> 7
		res = v<<1 | carry
	case 1: // RRC
		carry = v & 1
		res = v>>1 | carry<<7
	case 2: // RL
		carry = v >> 7
		res = v<<1 | c.F&FlagC
	case 3: // RR
		carry = v & 1
		res = v>>1 | (c.F&FlagC)<<7
	case 4: // SLA
		carry = v >> 7
		res = v << 1
	case 5: // SRA
		carry = v & 1
		res = v>>1 | v&0x80
	case 6: // SLL
		carry = v >> 7
		res = v<<1 | 1
	case 7: // SRL
		carry = v & 1
		res = v >> 1
	}
	c.F = szpTable[res] | carry
	return res
}

// bit sets the flags of BIT n. xy supplies the Y and X bits, which come from
// the operand for registers and from WZ for memory operands.
func (c *CPU) bit(n byte, v byte, xy byte) {
	f := c.F&FlagC | FlagH | xy&flagYX
	m := v & (1 << n)
	if m == 0 {
		f |= FlagZ | FlagP
	}
	f |= m & FlagS
	c.F = f
}

func (c *CPU) daa() {
	a := c.A
	var corr byte
	carry := c.F & FlagC
	if c.F&FlagH != 0 || a&0x0F > 9 {
		corr |= 0x06
	}
	if carry != 0 || a > 0x99 {
		corr |= 0x60
		carry = FlagC
	}
	var res, half byte
	if c.F&FlagN != 0 {
		res = a - corr
		if c.F&FlagH != 0 && a&0x0F < 6 {
			half = FlagH
		}
	} else {
		res = a + corr
		if a&0x0F > 9 {
			half = FlagH
		}
	}
	c.A = res
	c.F = szpTable[res] | c.F&FlagN | carry | half
}

func (c *CPU) neg() {
	a := c.A
	c.A = 0
	c.A = c.sub8(a, 0)
}
