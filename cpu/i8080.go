package cpu

// Intel 8080 instruction set. Flags keep bit 1 set and bits 3 and 5 clear.

func (c *CPU) add80(v, carry byte) {
	a := c.A
	r := uint16(a) + uint16(v) + uint16(carry)
	res := byte(r)
	f := szp8080[res] | FlagN
	if (a^v^res)&0x10 != 0 {
		f |= FlagH
	}
	if r > 0xFF {
		f |= FlagC
	}
	c.A = res
	c.F = f
}

// sub80 returns A-v-carry. The 8080 sets the auxiliary carry when no borrow
// comes out of bit 3.
func (c *CPU) sub80(v, carry byte) byte {
	a := c.A
	res := a - v - carry
	f := szp8080[res] | FlagN
	if int(v&0x0F)+int(carry) <= int(a&0x0F) {
		f |= FlagH
	}
	if int(v)+int(carry) > int(a) {
		f |= FlagC
	}
	c.F = f
	return res
}

func (c *CPU) alu80(op aluOp, v byte) {
	switch op {
	case aluAdd:
		c.add80(v, 0)
	case aluAdc:
		c.add80(v, c.F&FlagC)
	case aluSub:
		c.A = c.sub80(v, 0)
	case aluSbc:
		c.A = c.sub80(v, c.F&FlagC)
	case aluAnd:
		f := szp8080[c.A&v] | FlagN
		if (c.A|v)&0x08 != 0 {
			f |= FlagH
		}
		c.A &= v
		c.F = f
	case aluXor:
		c.A ^= v
		c.F = szp8080[c.A] | FlagN
	case aluOr:
		c.A |= v
		c.F = szp8080[c.A] | FlagN
	case aluCp:
		c.sub80(v, 0)
	}
}

func (c *CPU) inr80(v byte) byte {
	res := v + 1
	f := c.F&FlagC | szp8080[res] | FlagN
	if res&0x0F == 0 {
		f |= FlagH
	}
	c.F = f
	return res
}

func (c *CPU) dcr80(v byte) byte {
	res := v - 1
	f := c.F&FlagC | szp8080[res] | FlagN
	if res&0x0F != 0x0F {
		f |= FlagH
	}
	c.F = f
	return res
}

func (c *CPU) daa80() {
	tmp := uint16(c.A)
	f := c.F
	if c.A&0x0F > 9 || f&FlagH != 0 {
		if c.A&0x0F > 9 {
			f |= FlagH
		} else {
			f &^= FlagH
		}
		tmp += 6
	}
	if tmp&0x1F0 > 0x90 || f&FlagC != 0 {
		tmp += 0x60
	}
	if tmp&0x100 != 0 {
		f |= FlagC
	}
	c.A = byte(tmp)
	c.F = f&(FlagH|FlagC) | szp8080[c.A] | FlagN
}

func (c *CPU) init8080Ops() {
	ops := &c.i8080Ops
	undoc := &c.i8080Undoc

	nop := func(*CPU) int { return 4 }
	ops[0x00] = nop
	for _, op := range []byte{0x08, 0x10, 0x18, 0x20, 0x28, 0x30, 0x38} {
		ops[op] = nop
		undoc[op] = true
	}
	ops[0x76] = (*CPU).opHalt

	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := byte(op>>3)&7, byte(op)&7
		t := 5
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
			c.alu80(alu, c.reg8(src))
			return t
		}
	}

	for r := range byte(8) {
		mvi, inr := 7, 5
		if r == 6 {
			mvi, inr = 10, 10
		}
		ops[0x06|r<<3] = func(c *CPU) int {
			c.setReg8(r, c.fetchByte())
			return mvi
		}
		ops[0x04|r<<3] = func(c *CPU) int {
			if r == 6 {
				addr := c.HL()
				c.write(addr, c.inr80(c.read(addr)))
			} else {
				c.setReg8(r, c.inr80(c.reg8(r)))
			}
			return inr
		}
		ops[0x05|r<<3] = func(c *CPU) int {
			if r == 6 {
				addr := c.HL()
				c.write(addr, c.dcr80(c.read(addr)))
			} else {
				c.setReg8(r, c.dcr80(c.reg8(r)))
			}
			return inr
		}

		alu := aluOp(r)
		ops[0xC6|r<<3] = func(c *CPU) int {
			c.alu80(alu, c.fetchByte())
			return 7
		}
		vec := uint16(r) << 3
		ops[0xC7|r<<3] = func(c *CPU) int {
			c.push(c.PC)
			c.PC = vec
			return 11
		}

		cc := r
		ops[0xC0|r<<3] = func(c *CPU) int {
			if !c.cond(cc) {
				return 5
			}
			c.PC = c.pop()
			return 11
		}
		ops[0xC2|r<<3] = func(c *CPU) int {
			nn := c.fetchWord()
			if c.cond(cc) {
				c.PC = nn
			}
			return 10
		}
		ops[0xC4|r<<3] = func(c *CPU) int {
			nn := c.fetchWord()
			if !c.cond(cc) {
				return 11
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
			return 5
		}
		ops[0x0B|rp<<4] = func(c *CPU) int {
			c.setReg16(rp, c.reg16(rp)-1)
			return 5
		}
		ops[0x09|rp<<4] = func(c *CPU) int { // DAD
			r := uint32(c.HL()) + uint32(c.reg16(rp))
			c.F &^= FlagC
			if r > 0xFFFF {
				c.F |= FlagC
			}
			c.SetHL(uint16(r))
			return 10
		}
	}

	ops[0xC1] = func(c *CPU) int { c.SetBC(c.pop()); return 10 }
	ops[0xD1] = func(c *CPU) int { c.SetDE(c.pop()); return 10 }
	ops[0xE1] = func(c *CPU) int { c.SetHL(c.pop()); return 10 }
	ops[0xF1] = func(c *CPU) int {
		c.SetAF(c.pop())
		c.F = normalize8080(c.F)
		return 10
	}
	ops[0xC5] = func(c *CPU) int { c.push(c.BC()); return 11 }
	ops[0xD5] = func(c *CPU) int { c.push(c.DE()); return 11 }
	ops[0xE5] = func(c *CPU) int { c.push(c.HL()); return 11 }
	ops[0xF5] = func(c *CPU) int { c.push(c.AF()); return 11 }

	ops[0x02] = func(c *CPU) int { c.write(c.BC(), c.A); return 7 }
	ops[0x12] = func(c *CPU) int { c.write(c.DE(), c.A); return 7 }
	ops[0x0A] = func(c *CPU) int { c.A = c.read(c.BC()); return 7 }
	ops[0x1A] = func(c *CPU) int { c.A = c.read(c.DE()); return 7 }
	ops[0x22] = func(c *CPU) int {
		c.write16(c.fetchWord(), c.HL())
		return 16
	}
	ops[0x2A] = func(c *CPU) int {
		c.SetHL(c.read16(c.fetchWord()))
		return 16
	}
	ops[0x32] = func(c *CPU) int {
		c.write(c.fetchWord(), c.A)
		return 13
	}
	ops[0x3A] = func(c *CPU) int {
		c.A = c.read(c.fetchWord())
		return 13
	}

	ops[0x07] = func(c *CPU) int { // RLC
		c.A = c.A<<1 | c.A>>7
		c.F = c.F&^FlagC | c.A&FlagC
		return 4
	}
	ops[0x0F] = func(c *CPU) int { // RRC
		carry := c.A & 1
		c.A = c.A>>1 | carry<<7
		c.F = c.F&^FlagC | carry
		return 4
	}
	ops[0x17] = func(c *CPU) int { // RAL
		carry := c.A >> 7
		c.A = c.A<<1 | c.F&FlagC
		c.F = c.F&^FlagC | carry
		return 4
	}
	ops[0x1F] = func(c *CPU) int { // RAR
		carry := c.A & 1
		c.A = c.A>>1 | (c.F&FlagC)<<7
		c.F = c.F&^FlagC | carry
		return 4
	}
	ops[0x27] = func(c *CPU) int {
		c.daa80()
		return 4
	}
	ops[0x2F] = func(c *CPU) int {
		c.A = ^c.A
		return 4
	}
	ops[0x37] = func(c *CPU) int {
		c.F |= FlagC
		return 4
	}
	ops[0x3F] = func(c *CPU) int {
		c.F ^= FlagC
		return 4
	}

	jmp := func(c *CPU) int {
		c.PC = c.fetchWord()
		return 10
	}
	ret := func(c *CPU) int {
		c.PC = c.pop()
		return 10
	}
	call := func(c *CPU) int {
		nn := c.fetchWord()
		c.push(c.PC)
		c.PC = nn
		return 17
	}
	ops[0xC3], ops[0xCB] = jmp, jmp
	ops[0xC9], ops[0xD9] = ret, ret
	ops[0xCD], ops[0xDD], ops[0xED], ops[0xFD] = call, call, call, call
	for _, op := range []byte{0xCB, 0xD9, 0xDD, 0xED, 0xFD} {
		undoc[op] = true
	}

	ops[0xD3] = func(c *CPU) int {
		n := uint16(c.fetchByte())
		c.out(n<<8|n, c.A)
		return 10
	}
	ops[0xDB] = func(c *CPU) int {
		n := uint16(c.fetchByte())
		c.A = c.in(n<<8 | n)
		return 10
	}
	ops[0xE3] = func(c *CPU) int { // XTHL
		v := c.read16(c.SP)
		c.write(c.SP+1, c.H)
		c.write(c.SP, c.L)
		c.SetHL(v)
		return 18
	}
	ops[0xE9] = func(c *CPU) int {
		c.PC = c.HL()
		return 5
	}
	ops[0xEB] = func(c *CPU) int {
		c.D, c.H = c.H, c.D
		c.E, c.L = c.L, c.E
		return 4
	}
	ops[0xF9] = func(c *CPU) int {
		c.SP = c.HL()
		return 5
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
}

func (c *CPU) exec8080() int {
	op := c.fetch()
	if c.i8080Undoc[op] && !c.cfg.Undoc {
		return c.trap(OpTrap1)
	}
	return c.i8080Ops[op](c)
}
