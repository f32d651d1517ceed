package cpu

// DD and FD prefixed opcodes. One table serves both prefixes; c.idx selects
// IX or IY. Slots left nil are opcodes the prefix does not modify.

func (c *CPU) execIndex(reg *uint16) int {
	c.incR()
	op := c.fetch()
	c.idx = reg
	if op == 0xCB {
		return c.execIndexCB()
	}
	h := c.idxOps[op]
	if h == nil {
		if !c.cfg.Undoc {
			return c.trap(OpTrap2)
		}
		// The prefix acts as a NOP and op runs as a fresh instruction.
		c.PC--
		c.decR()
		return 4
	}
	if c.idxUndoc[op] && !c.cfg.Undoc {
		return c.trap(OpTrap2)
	}
	return h(c)
}

func (c *CPU) idxH() byte { return byte(*c.idx >> 8) }
func (c *CPU) idxL() byte { return byte(*c.idx) }

func (c *CPU) setIdxH(v byte) { *c.idx = *c.idx&0x00FF | uint16(v)<<8 }
func (c *CPU) setIdxL(v byte) { *c.idx = *c.idx&0xFF00 | uint16(v) }

// xreg8 reads a register with H and L replaced by the index halves.
func (c *CPU) xreg8(code byte) byte {
	switch code {
	case 4:
		return c.idxH()
	case 5:
		return c.idxL()
	}
	return c.reg8(code)
}

func (c *CPU) setXReg8(code byte, v byte) {
	switch code {
	case 4:
		c.setIdxH(v)
	case 5:
		c.setIdxL(v)
	default:
		c.setReg8(code, v)
	}
}

// idxAddr fetches the displacement and returns IX+d or IY+d.
func (c *CPU) idxAddr() uint16 {
	d := int8(c.fetchByte())
	c.WZ = *c.idx + uint16(d)
	return c.WZ
}

func (c *CPU) initIndexOps() {
	ops := &c.idxOps
	undoc := &c.idxUndoc

	for rp := range byte(4) {
		ops[0x09|rp<<4] = func(c *CPU) int {
			v := c.reg16(rp)
			if rp == 2 {
				v = *c.idx
			}
			*c.idx = c.add16(*c.idx, v)
			return 15
		}
	}
	ops[0x21] = func(c *CPU) int {
		*c.idx = c.fetchWord()
		return 14
	}
	ops[0x22] = func(c *CPU) int {
		nn := c.fetchWord()
		c.write16(nn, *c.idx)
		c.WZ = nn + 1
		return 20
	}
	ops[0x2A] = func(c *CPU) int {
		nn := c.fetchWord()
		*c.idx = c.read16(nn)
		c.WZ = nn + 1
		return 20
	}
	ops[0x23] = func(c *CPU) int {
		*c.idx++
		return 10
	}
	ops[0x2B] = func(c *CPU) int {
		*c.idx--
		return 10
	}

	for _, r := range []byte{4, 5} {
		ops[0x04|r<<3] = func(c *CPU) int {
			c.setXReg8(r, c.inc8(c.xreg8(r)))
			return 8
		}
		ops[0x05|r<<3] = func(c *CPU) int {
			c.setXReg8(r, c.dec8(c.xreg8(r)))
			return 8
		}
		ops[0x06|r<<3] = func(c *CPU) int {
			c.setXReg8(r, c.fetchByte())
			return 11
		}
		undoc[0x04|r<<3] = true
		undoc[0x05|r<<3] = true
		undoc[0x06|r<<3] = true
	}

	ops[0x34] = func(c *CPU) int {
		addr := c.idxAddr()
		c.write(addr, c.inc8(c.read(addr)))
		return 23
	}
	ops[0x35] = func(c *CPU) int {
		addr := c.idxAddr()
		c.write(addr, c.dec8(c.read(addr)))
		return 23
	}
	ops[0x36] = func(c *CPU) int {
		addr := c.idxAddr()
		c.write(addr, c.fetchByte())
		return 19
	}

	for op := 0x40; op <= 0x7F; op++ {
		if op == 0x76 {
			continue
		}
		dst, src := byte(op>>3)&7, byte(op)&7
		switch {
		case src == 6:
			ops[op] = func(c *CPU) int {
				c.setReg8(dst, c.read(c.idxAddr()))
				return 19
			}
		case dst == 6:
			ops[op] = func(c *CPU) int {
				addr := c.idxAddr()
				c.write(addr, c.reg8(src))
				return 19
			}
		case dst == 4 || dst == 5 || src == 4 || src == 5:
			ops[op] = func(c *CPU) int {
				c.setXReg8(dst, c.xreg8(src))
				return 8
			}
			undoc[op] = true
		}
	}

	for op := 0x80; op <= 0xBF; op++ {
		alu, src := aluOp(op>>3)&7, byte(op)&7
		switch src {
		case 6:
			ops[op] = func(c *CPU) int {
				c.alu(alu, c.read(c.idxAddr()))
				return 19
			}
		case 4, 5:
			ops[op] = func(c *CPU) int {
				c.alu(alu, c.xreg8(src))
				return 8
			}
			undoc[op] = true
		}
	}

	ops[0xE1] = func(c *CPU) int {
		*c.idx = c.pop()
		return 14
	}
	ops[0xE5] = func(c *CPU) int {
		c.push(*c.idx)
		return 15
	}
	ops[0xE3] = func(c *CPU) int {
		v := c.read16(c.SP)
		c.write(c.SP+1, c.idxH())
		c.write(c.SP, c.idxL())
		*c.idx = v
		c.WZ = v
		return 23
	}
	ops[0xE9] = func(c *CPU) int {
		c.PC = *c.idx
		return 8
	}
	ops[0xF9] = func(c *CPU) int {
		c.SP = *c.idx
		return 10
	}
}
