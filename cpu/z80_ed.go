package cpu

// ED prefixed opcodes. Slots not defined by Zilog execute as 8 T NOPs when
// undocumented opcodes are allowed.

func (c *CPU) execED() int {
	c.incR()
	op := c.fetch()
	if c.edUndoc[op] && !c.cfg.Undoc {
		return c.trap(OpTrap2)
	}
	return c.edOps[op](c)
}

func (c *CPU) initEDOps() {
	ops := &c.edOps
	undoc := &c.edUndoc

	for i := range ops {
		ops[i] = func(*CPU) int { return 8 }
		undoc[i] = true
	}

	for i := 0x40; i <= 0x7F; i++ {
		op := byte(i)
		y, z := (op>>3)&7, op&7
		undoc[op] = false
		switch z {
		case 0:
			ops[op] = func(c *CPU) int {
				v := c.in(c.BC())
				c.WZ = c.BC() + 1
				c.F = c.F&FlagC | szpTable[v]
				if y != 6 {
					c.setReg8(y, v)
				}
				return 12
			}
			undoc[op] = y == 6
		case 1:
			ops[op] = func(c *CPU) int {
				var v byte
				if y != 6 {
					v = c.reg8(y)
				}
				c.out(c.BC(), v)
				c.WZ = c.BC() + 1
				return 12
			}
			undoc[op] = y == 6
		case 2:
			rp := y >> 1
			if y&1 == 0 {
				ops[op] = func(c *CPU) int {
					c.SetHL(c.sbc16(c.HL(), c.reg16(rp)))
					return 15
				}
			} else {
				ops[op] = func(c *CPU) int {
					c.SetHL(c.adc16(c.HL(), c.reg16(rp)))
					return 15
				}
			}
		case 3:
			rp := y >> 1
			if y&1 == 0 {
				ops[op] = func(c *CPU) int {
					nn := c.fetchWord()
					c.write16(nn, c.reg16(rp))
					c.WZ = nn + 1
					return 20
				}
			} else {
				ops[op] = func(c *CPU) int {
					nn := c.fetchWord()
					c.setReg16(rp, c.read16(nn))
					c.WZ = nn + 1
					return 20
				}
			}
		case 4:
			ops[op] = func(c *CPU) int {
				c.neg()
				return 8
			}
			undoc[op] = op != 0x44
		case 5:
			ops[op] = func(c *CPU) int {
				if c.IFF&2 != 0 {
					c.IFF = 3
				} else {
					c.IFF = 0
				}
				c.PC = c.pop()
				c.WZ = c.PC
				return 14
			}
			undoc[op] = op != 0x45 && op != 0x4D
		case 6:
			mode := [4]byte{0, 0, 1, 2}[y&3]
			ops[op] = func(c *CPU) int {
				c.IM = mode
				return 8
			}
			undoc[op] = op != 0x46 && op != 0x56 && op != 0x5E
		case 7:
			undoc[op] = y >= 6
		}
	}

	ops[0x47] = func(c *CPU) int {
		c.I = c.A
		return 9
	}
	ops[0x4F] = func(c *CPU) int {
		c.R = c.A
		return 9
	}
	ops[0x57] = func(c *CPU) int {
		c.A = c.I
		c.F = c.F&FlagC | szTable[c.A] | (c.IFF&2)<<1
		return 9
	}
	ops[0x5F] = func(c *CPU) int {
		c.A = c.R
		c.F = c.F&FlagC | szTable[c.A] | (c.IFF&2)<<1
		return 9
	}
	ops[0x67] = func(c *CPU) int { // RRD
		addr := c.HL()
		t := c.read(addr)
		c.write(addr, c.A<<4|t>>4)
		c.A = c.A&0xF0 | t&0x0F
		c.F = c.F&FlagC | szpTable[c.A]
		c.WZ = addr + 1
		return 18
	}
	ops[0x6F] = func(c *CPU) int { // RLD
		addr := c.HL()
		t := c.read(addr)
		c.write(addr, t<<4|c.A&0x0F)
		c.A = c.A&0xF0 | t>>4
		c.F = c.F&FlagC | szpTable[c.A]
		c.WZ = addr + 1
		return 18
	}
	ops[0x77] = func(*CPU) int { return 8 }
	ops[0x7F] = func(*CPU) int { return 8 }

	c.initBlockOps()
}

func (c *CPU) initBlockOps() {
	ops := &c.edOps
	type block struct {
		op    byte
		step  func(c *CPU, dir uint16)
		again func(c *CPU) bool
	}
	bcLeft := func(c *CPU) bool { return c.BC() != 0 }
	bLeft := func(c *CPU) bool { return c.B != 0 }
	noMatch := func(c *CPU) bool { return c.BC() != 0 && c.F&FlagZ == 0 }
	blocks := []block{
		{0xA0, (*CPU).ldi, bcLeft},
		{0xA1, (*CPU).cpi, noMatch},
		{0xA2, (*CPU).ini, bLeft},
		{0xA3, (*CPU).outi, bLeft},
	}
	for _, b := range blocks {
		inc := func(c *CPU) { b.step(c, 1) }
		dec := func(c *CPU) { b.step(c, 0xFFFF) }
		ops[b.op] = func(c *CPU) int {
			inc(c)
			return 16
		}
		ops[b.op|0x08] = func(c *CPU) int {
			dec(c)
			return 16
		}
		ops[b.op|0x10] = func(c *CPU) int { return c.repeat(inc, b.again) }
		ops[b.op|0x18] = func(c *CPU) int { return c.repeat(dec, b.again) }
		for _, op := range []byte{b.op, b.op | 0x08, b.op | 0x10, b.op | 0x18} {
			c.edUndoc[op] = false
		}
	}
}

// repeat runs one iteration of a repeating block instruction. Unless fast
// block mode is on, the instruction re-executes from the next boundary so
// interrupts are seen between iterations.
func (c *CPU) repeat(step func(*CPU), again func(*CPU) bool) int {
	step(c)
	if !again(c) {
		return 16
	}
	c.PC -= 2
	c.WZ = c.PC + 1
	if !c.cfg.FastBlock {
		return 21
	}
	t := 21
	for c.Err() == None {
		c.incR()
		c.incR()
		step(c)
		if !again(c) {
			c.PC += 2
			return t + 16
		}
		t += 21
	}
	return t
}

func (c *CPU) ldi(dir uint16) {
	v := c.read(c.HL())
	c.write(c.DE(), v)
	c.SetHL(c.HL() + dir)
	c.SetDE(c.DE() + dir)
	c.SetBC(c.BC() - 1)
	n := v + c.A
	f := c.F&(FlagS|FlagZ|FlagC) | n&FlagX | (n&0x02)<<4
	if c.BC() != 0 {
		f |= FlagP
	}
	c.F = f
}

func (c *CPU) cpi(dir uint16) {
	v := c.read(c.HL())
	res := c.A - v
	h := (c.A ^ v ^ res) & FlagH
	n := res - h>>4
	c.SetHL(c.HL() + dir)
	c.SetBC(c.BC() - 1)
	c.WZ += dir
	f := c.F&FlagC | FlagN | szTable[res]&(FlagS|FlagZ) | h | n&FlagX | (n&0x02)<<4
	if c.BC() != 0 {
		f |= FlagP
	}
	c.F = f
}

func (c *CPU) ini(dir uint16) {
	c.WZ = c.BC() + dir
	v := c.in(c.BC())
	c.write(c.HL(), v)
	c.B--
	c.SetHL(c.HL() + dir)
	c.ioBlockFlags(v, int(v)+int(c.C+byte(dir)))
}

func (c *CPU) outi(dir uint16) {
	v := c.read(c.HL())
	c.B--
	c.WZ = c.BC() + dir
	c.out(c.BC(), v)
	c.SetHL(c.HL() + dir)
	c.ioBlockFlags(v, int(v)+int(c.L))
}

func (c *CPU) ioBlockFlags(v byte, k int) {
	f := szTable[c.B]
	if v&0x80 != 0 {
		f |= FlagN
	}
	if k > 0xFF {
		f |= FlagH | FlagC
	}
	f |= parity[byte(k)&7^c.B]
	c.F = f
}
