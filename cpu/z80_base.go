package cpu

// Unprefixed Z80 opcodes. Every handler returns the T-states it used.

func (c *CPU) reg8(code byte) byte {
	switch code {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read(c.HL())
	}
	return c.A
}

func (c *CPU) setReg8(code byte, v byte) {
	switch code {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write(c.HL(), v)
	default:
		c.A = v
	}
}

// reg16 and setReg16 use the BC, DE, HL, SP encoding of bits 4-5.
func (c *CPU) reg16(code byte) uint16 {
	switch code {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	}
	return c.SP
}

func (c *CPU) setReg16(code byte, v uint16) {
	switch code {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

// cond evaluates condition code cc (NZ Z NC C PO PE P M).
func (c *CPU) cond(cc byte) bool {
	switch cc {
	case 0:
		return c.F&FlagZ == 0
	case 1:
		return c.F&FlagZ != 0
	case 2:
		return c.F&FlagC == 0
	case 3:
		return c.F&FlagC != 0
	case 4:
		return c.F&FlagP == 0
	case 5:
		return c.F&FlagP != 0
	case 6:
		return c.F&FlagS == 0
	}
	return c.F&FlagS != 0
}

func (c *CPU) initBaseOps() {
	ops := &c.baseOps

	ops[0x00] = func(*CPU) int { return 4 }
	ops[0x76] = (*CPU).opHalt

	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := byte(op>>3)&7, byte(op)&7
		t := 4
		if dst == 6 || src == 6 {
			t = 7
		}
		ops[op] = func(c *CPU) int {
			c.setReg8(dst, c.reg8(src))
			return t
		}
	}

	for op := 0x80; op <= 0xBF; op++ {
		alu, src := aluOp(op>>3)&7, byte(op)&7
		t := 4
		if src == 6 {
			t = 7
		}
		ops[op] = func(c *CPU) int {
			c.alu(alu, c.reg8(src))
			return t
		}
	}

	for r := range byte(8) {
		op := 0x06 | r<<3
		t := 7
		if r == 6 {
			t = 10
		}
		ops[op] = func(c *CPU) int {
			c.setReg8(r, c.fetchByte())
			return t
		}

		inc, dec := 4, 4
		if r == 6 {
			inc, dec = 11, 11
		}
		ops[0x04|r<<3] = func(c *CPU) int {
			if r == 6 {
				addr := c.HL()
				c.write(addr, c.inc8(c.read(addr)))
			} else {
				c.setReg8(r, c.inc8(c.reg8(r)))
			}
			return inc
		}
		ops[0x05|r<<3] = func(c *CPU) int {
			if r == 6 {
				addr := c.HL()
				c.write(addr, c.dec8(c.read(addr)))
			} else {
				c.setReg8(r, c.dec8(c.reg8(r)))
			}
			return dec
		}

		alu := aluOp(r)
		ops[0xC6|r<<3] = func(c *CPU) int {
			c.alu(alu, c.fetchByte())
			return 7
		}

		vec := uint16(r) << 3
		ops[0xC7|r<<3] = func(c *CPU) int {
			c.push(c.PC)
			c.PC = vec
			c.WZ = vec
			return 11
		}

		cc := r
		ops[0xC0|r<<3] = func(c *CPU) int {
			if !c.cond(cc) {
				return 5
			}
			c.PC = c.pop()
			c.WZ = c.PC
			return 11
		}
		ops[0xC2|r<<3] = func(c *CPU) int {
			nn := c.fetchWord()
			c.WZ = nn
			if c.cond(cc) {
				c.PC = nn
			}
			return 10
		}
		ops[0xC4|r<<3] = func(c *CPU) int {
			nn := c.fetchWord()
			c.WZ = nn
			if !c.cond(cc) {
				return 10
			}
			c.push(c.PC)
			c.PC = nn
			return 17
		}
	}

	for rp := range byte(4) {
		ops[0x01|rp<<4] = func(c *CPU) int {
			c.setReg16(rp, c.fetchWord())
			return 10
		}
		ops[0x03|rp<<4] = func(c *CPU) int {
			c.setReg16(rp, c.reg16(rp)+1)
			return 6
		}
		ops[0x0B|rp<<4] = func(c *CPU) int {
			c.setReg16(rp, c.reg16(rp)-1)
			return 6
		}
		ops[0x09|rp<<4] = func(c *CPU) int {
			c.SetHL(c.add16(c.HL(), c.reg16(rp)))
			return 11
		}
	}

	pushPairs := [4]struct {
		get func(*CPU) uint16
		set func(*CPU, uint16)
	}{
		{(*CPU).BC, (*CPU).SetBC},
		{(*CPU).DE, (*CPU).SetDE},
		{(*CPU).HL, (*CPU).SetHL},
		{(*CPU).AF, (*CPU).SetAF},
	}
	for i, p := range pushPairs {
		ops[0xC1|i<<4] = func(c *CPU) int {
			p.set(c, c.pop())
			return 10
		}
		ops[0xC5|i<<4] = func(c *CPU) int {
			c.push(p.get(c))
			return 11
		}
	}

	ops[0x02] = func(c *CPU) int {
		addr := c.BC()
		c.write(addr, c.A)
		c.WZ = uint16(c.A)<<8 | (addr+1)&0xFF
		return 7
	}
	ops[0x12] = func(c *CPU) int {
		addr := c.DE()
		c.write(addr, c.A)
		c.WZ = uint16(c.A)<<8 | (addr+1)&0xFF
		return 7
	}
	ops[0x0A] = func(c *CPU) int {
		addr := c.BC()
		c.A = c.read(addr)
		c.WZ = addr + 1
		return 7
	}
	ops[0x1A] = func(c *CPU) int {
		addr := c.DE()
		c.A = c.read(addr)
		c.WZ = addr + 1
		return 7
	}
	ops[0x22] = func(c *CPU) int {
		nn := c.fetchWord()
		c.write16(nn, c.HL())
		c.WZ = nn + 1
		return 16
	}
	ops[0x2A] = func(c *CPU) int {
		nn := c.fetchWord()
		c.SetHL(c.read16(nn))
		c.WZ = nn + 1
		return 16
	}
	ops[0x32] = func(c *CPU) int {
		nn := c.fetchWord()
		c.write(nn, c.A)
		c.WZ = uint16(c.A)<<8 | (nn+1)&0xFF
		return 13
	}
	ops[0x3A] = func(c *CPU) int {
		nn := c.fetchWord()
		c.A = c.read(nn)
		c.WZ = nn + 1
		return 13
	}

	ops[0x07] = func(c *CPU) int { // RLCA
		c.A = c.A<<1 | c.A>>7
		c.F = c.F&(FlagS|FlagZ|FlagP) | c.A&(flagYX|FlagC)
		return 4
	}
	ops[0x0F] = func(c *CPU) int { // RRCA
		carry := c.A & 1
		c.A = c.A>>1 | carry<<7
		c.F = c.F&(FlagS|FlagZ|FlagP) | c.A&flagYX | carry
		return 4
	}
	ops[0x17] = func(c *CPU) int { // RLA
		carry := c.A >> 7
		c.A = c.A<<1 | c.F&FlagC
		c.F = c.F&(FlagS|FlagZ|FlagP) | c.A&flagYX | carry
		return 4
	}
	ops[0x1F] = func(c *CPU) int { // RRA
		carry := c.A & 1
		c.A = c.A>>1 | (c.F&FlagC)<<7
		c.F = c.F&(FlagS|FlagZ|FlagP) | c.A&flagYX | carry
		return 4
	}
	ops[0x27] = func(c *CPU) int {
		c.daa()
		return 4
	}
	ops[0x2F] = func(c *CPU) int { // CPL
		c.A = ^c.A
		c.F = c.F&(FlagS|FlagZ|FlagP|FlagC) | FlagH | FlagN | c.A&flagYX
		return 4
	}
	ops[0x37] = func(c *CPU) int { // SCF
		c.F = c.F&(FlagS|FlagZ|FlagP) | FlagC | c.A&flagYX
		return 4
	}
	ops[0x3F] = func(c *CPU) int { // CCF
		carry := c.F & FlagC
		c.F = c.F&(FlagS|FlagZ|FlagP) | carry<<4 | (carry ^ FlagC) | c.A&flagYX
		return 4
	}

	ops[0x08] = func(c *CPU) int {
		c.A, c.A2 = c.A2, c.A
		c.F, c.F2 = c.F2, c.F
		return 4
	}
	ops[0xD9] = func(c *CPU) int {
		c.B, c.B2 = c.B2, c.B
		c.C, c.C2 = c.C2, c.C
		c.D, c.D2 = c.D2, c.D
		c.E, c.E2 = c.E2, c.E
		c.H, c.H2 = c.H2, c.H
		c.L, c.L2 = c.L2, c.L
		return 4
	}
	ops[0xEB] = func(c *CPU) int {
		c.D, c.H = c.H, c.D
		c.E, c.L = c.L, c.E
		return 4
	}
	ops[0xE3] = func(c *CPU) int {
		v := c.read16(c.SP)
		c.write(c.SP+1, c.H)
		c.write(c.SP, c.L)
		c.SetHL(v)
		c.WZ = v
		return 19
	}
	ops[0xE9] = func(c *CPU) int {
		c.PC = c.HL()
		return 4
	}
	ops[0xF9] = func(c *CPU) int {
		c.SP = c.HL()
		return 6
	}

	ops[0x10] = func(c *CPU) int { // DJNZ
		d := int8(c.fetchByte())
		c.B--
		if c.B == 0 {
			return 8
		}
		c.PC += uint16(d)
		c.WZ = c.PC
		return 13
	}
	ops[0x18] = func(c *CPU) int {
		d := int8(c.fetchByte())
		c.PC += uint16(d)
		c.WZ = c.PC
		return 12
	}
	for cc := range byte(4) {
		ops[0x20|cc<<3] = func(c *CPU) int {
			d := int8(c.fetchByte())
			if !c.cond(cc) {
				return 7
			}
			c.PC += uint16(d)
			c.WZ = c.PC
			return 12
		}
	}
	ops[0xC3] = func(c *CPU) int {
		c.PC = c.fetchWord()
		c.WZ = c.PC
		return 10
	}
	ops[0xC9] = func(c *CPU) int {
		c.PC = c.pop()
		c.WZ = c.PC
		return 10
	}
	ops[0xCD] = func(c *CPU) int {
		nn := c.fetchWord()
		c.push(c.PC)
		c.PC = nn
		c.WZ = nn
		return 17
	}

	ops[0xD3] = func(c *CPU) int {
		n := c.fetchByte()
		c.out(uint16(c.A)<<8|uint16(n), c.A)
		c.WZ = uint16(c.A)<<8 | uint16(n+1)
		return 11
	}
	ops[0xDB] = func(c *CPU) int {
		port := uint16(c.A)<<8 | uint16(c.fetchByte())
		c.A = c.in(port)
		c.WZ = port + 1
		return 11
	}

	ops[0xF3] = func(c *CPU) int {
		c.IFF = 0
		return 4
	}
	ops[0xFB] = func(c *CPU) int {
		c.IFF = 3
		c.intProtection = true
		return 4
	}

	ops[0xCB] = (*CPU).execCB
	ops[0xED] = (*CPU).execED
	ops[0xDD] = func(c *CPU) int { return c.execIndex(&c.IX) }
	ops[0xFD] = func(c *CPU) int { return c.execIndex(&c.IY) }
}

// opHalt stops the CPU when no interrupt can ever end the HALT, otherwise it
// enters the halted state and the run loop idles until one is accepted.
func (c *CPU) opHalt() int {
	if c.trackBus {
		c.cycle(StatusWO|StatusHLTA|StatusMEMR, c.PC, 0)
	}
	t := 4
	if c.model == I8080 {
		t = 7
	}
	if c.IFF&1 == 0 && !(c.model == Z80 && c.intNMI.Load()) {
		c.SetError(OpHalt)
		return t
	}
	c.Halted = true
	return t
}
