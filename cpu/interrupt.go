package cpu

// Interrupt requests may come from any goroutine. They are sampled at
// instruction boundaries by the run loop.

// NoDevice is the interrupt data value of a bus nobody drives.
const NoDevice = -1

// RequestNMI raises the non-maskable interrupt (Z80 only).
func (c *CPU) RequestNMI() {
	c.intNMI.Store(true)
}

// NMIPending reports whether an NMI waits to be serviced.
func (c *CPU) NMIPending() bool {
	return c.intNMI.Load()
}

// RequestInt raises the maskable interrupt with the byte a device puts on
// the data bus during acknowledge, or NoDevice.
func (c *CPU) RequestInt(data int) {
	c.intData.Store(int32(data))
	c.intInt.Store(true)
}

// ClearInt withdraws a maskable interrupt request.
func (c *CPU) ClearInt() {
	c.intInt.Store(false)
	c.intData.Store(NoDevice)
}

// IntPending reports whether a maskable interrupt is requested.
func (c *CPU) IntPending() bool {
	return c.intInt.Load()
}

// IntData returns the data of the pending maskable interrupt.
func (c *CPU) IntData() int {
	return int(c.intData.Load())
}

func (c *CPU) intAck(vector uint16) {
	if c.trackBus {
		c.cycle(StatusWO|StatusM1|StatusINTA, vector, byte(c.intData.Load()))
	}
}

func (c *CPU) serviceNMI() int {
	c.Halted = false
	c.IFF = (c.IFF << 1) & 3
	c.push(c.PC)
	c.PC = 0x0066
	c.WZ = c.PC
	c.intNMI.Store(false)
	c.incR()
	return 11
}

// rstVector converts interrupt data to an RST target. ok is false for data
// that is not an RST opcode.
func rstVector(data int) (uint16, bool) {
	if data == NoDevice {
		return 0x38, true
	}
	if data&^0x38 != 0xC7 {
		return 0, false
	}
	return uint16(data & 0x38), true
}

func (c *CPU) serviceIntZ80() int {
	data := c.IntData()
	var t int
	switch c.IM {
	case 0:
		vec, ok := rstVector(data)
		if !ok {
			return c.intError(data)
		}
		c.intAck(c.PC)
		c.Halted = false
		c.push(c.PC)
		c.PC = vec
		t = 13
	case 1:
		c.intAck(c.PC)
		c.Halted = false
		c.push(c.PC)
		c.PC = 0x0038
		t = 13
	default:
		if data == NoDevice {
			return c.intError(data)
		}
		c.intAck(c.PC)
		c.Halted = false
		vector := uint16(c.I)<<8 | uint16(data&0xFE)
		c.push(c.PC)
		c.PC = c.read16(vector)
		t = 19
	}
	c.WZ = c.PC
	c.IFF = 0
	c.intInt.Store(false)
	c.intData.Store(NoDevice)
	c.incR()
	return t
}

func (c *CPU) serviceInt8080() int {
	data := c.IntData()
	vec, ok := rstVector(data)
	if !ok {
		return c.intError(data)
	}
	c.intAck(c.PC)
	c.Halted = false
	c.push(c.PC)
	c.PC = vec
	c.IFF = 0
	c.intInt.Store(false)
	c.intData.Store(NoDevice)
	return 11
}

func (c *CPU) intError(data int) int {
	c.badIntData = data
	c.SetError(IntError)
	return 0
}
