package cpu

// CB prefixed opcodes and their DDCB/FDCB indexed forms.

func (c *CPU) execCB() int {
	c.incR()
	op := c.fetch()
	if c.cbUndoc[op] && !c.cfg.Undoc {
		return c.trap(OpTrap2)
	}
	return c.cbOps[op](c)
}

func (c *CPU) initCBOps() {
	for i := range 256 {
		op := byte(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		mem := z == 6
		switch x {
		case 0:
			t := 8
			if mem {
				t = 15
			}
			c.cbOps[op] = func(c *CPU) int {
				c.setReg8(z, c.rotate(y, c.reg8(z)))
				return t
			}
		case 1:
			if mem {
				c.cbOps[op] = func(c *CPU) int {
					c.bit(y, c.read(c.HL()), byte(c.WZ>>8))
					return 12
				}
			} else {
				c.cbOps[op] = func(c *CPU) int {
					v := c.reg8(z)
					c.bit(y, v, v)
					return 8
				}
			}
		case 2, 3:
			t := 8
			if mem {
				t = 15
			}
			mask := byte(1) << y
			set := x == 3
			c.cbOps[op] = func(c *CPU) int {
				v := c.reg8(z)
				if set {
					v |= mask
				} else {
					v &^= mask
				}
				c.setReg8(z, v)
				return t
			}
		}
	}
	for op := 0x30; op <= 0x37; op++ {
		c.cbUndoc[op] = true // SLL
	}
}

// execIndexCB runs DD CB d op / FD CB d op. The displacement and the opcode
// are plain memory reads, so R only advanced for the two prefixes.
func (c *CPU) execIndexCB() int {
	d := int8(c.fetchByte())
	op := c.fetchByte()
	c.WZ = *c.idx + uint16(d)
	if c.idxCBUndoc[op] && !c.cfg.Undoc {
		return c.trap(OpTrap4)
	}
	return c.idxCBOps[op](c)
}

func (c *CPU) initIndexCBOps() {
	for i := range 256 {
		op := byte(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		// z other than 6 also copies the result into a register.
		c.idxCBUndoc[op] = z != 6 || op == 0x36
		switch x {
		case 0:
			c.idxCBOps[op] = func(c *CPU) int {
				res := c.rotate(y, c.read(c.WZ))
				c.write(c.WZ, res)
				if z != 6 {
					c.setReg8(z, res)
				}
				return 23
			}
		case 1:
			c.idxCBOps[op] = func(c *CPU) int {
				c.bit(y, c.read(c.WZ), byte(c.WZ>>8))
				return 20
			}
		case 2, 3:
			mask := byte(1) << y
			set := x == 3
			c.idxCBOps[op] = func(c *CPU) int {
				v := c.read(c.WZ)
				if set {
					v |= mask
				} else {
					v &^= mask
				}
				c.write(c.WZ, v)
				if z != 6 {
					c.setReg8(z, v)
				}
				return 23
			}
		}
	}
}
