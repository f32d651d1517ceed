package cpu

// Bus is everything the CPU sees of the machine. Memory accesses happen in
// hardware bus-cycle order. For In and Out the low byte of port is the port
// number and the high byte carries the upper address lines.
type Bus interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	In(port uint16) byte
	Out(port uint16, value byte)
}

// DMABus is implemented by buses that offer side-effect free memory access
// for bus masters and debuggers.
type DMABus interface {
	DMARead(addr uint16) byte
	DMAWrite(addr uint16, value byte)
}

// BusStatus mirrors the 8080/Z80 status byte shown on front panels.
type BusStatus byte

const (
	StatusMEMR  BusStatus = 0x80
	StatusINP   BusStatus = 0x40
	StatusM1    BusStatus = 0x20
	StatusOUT   BusStatus = 0x10
	StatusHLTA  BusStatus = 0x08
	StatusSTACK BusStatus = 0x04
	StatusWO    BusStatus = 0x02
	StatusINTA  BusStatus = 0x01
)

// BusObserver receives every bus cycle while status tracking is enabled.
type BusObserver func(status BusStatus, addr uint16, data byte)

// SetBusObserver installs fn, or removes the observer when fn is nil.
// Call it only while the CPU is stopped.
func (c *CPU) SetBusObserver(fn BusObserver) {
	c.observer = fn
	c.trackBus = c.cfg.BusStatus || fn != nil
}

// BusStatus returns the status byte of the last bus cycle.
func (c *CPU) BusStatus() BusStatus {
	return c.status
}

func (c *CPU) cycle(status BusStatus, addr uint16, data byte) {
	c.status = status
	if c.observer != nil {
		c.observer(status, addr, data)
	}
}

func (c *CPU) fetch() byte {
	v := c.bus.Read(c.PC)
	if c.trackBus {
		c.cycle(StatusWO|StatusM1|StatusMEMR, c.PC, v)
	}
	c.PC++
	return v
}

func (c *CPU) fetchByte() byte {
	v := c.read(c.PC)
	c.PC++
	return v
}

func (c *CPU) fetchWord() uint16 {
	lo := c.fetchByte()
	hi := c.fetchByte()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) read(addr uint16) byte {
	v := c.bus.Read(addr)
	if c.trackBus {
		c.cycle(c.status&StatusSTACK|StatusWO|StatusMEMR, addr, v)
	}
	return v
}

func (c *CPU) write(addr uint16, value byte) {
	c.bus.Write(addr, value)
	if c.trackBus {
		c.cycle(c.status&^(StatusWO|StatusMEMR|StatusM1), addr, value)
	}
}

func (c *CPU) read16(addr uint16) uint16 {
	lo := c.read(addr)
	hi := c.read(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) write16(addr uint16, value uint16) {
	c.write(addr, byte(value))
	c.write(addr+1, byte(value>>8))
}

func (c *CPU) push(value uint16) {
	if c.trackBus {
		c.status |= StatusSTACK
	}
	c.SP--
	c.write(c.SP, byte(value>>8))
	c.SP--
	c.write(c.SP, byte(value))
	c.status &^= StatusSTACK
}

func (c *CPU) pop() uint16 {
	if c.trackBus {
		c.status |= StatusSTACK
	}
	lo := c.read(c.SP)
	c.SP++
	hi := c.read(c.SP)
	c.SP++
	c.status &^= StatusSTACK
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) in(port uint16) byte {
	c.lastPort = byte(port)
	v := c.bus.In(port)
	if c.trackBus {
		c.cycle(StatusWO|StatusINP, port, v)
	}
	return v
}

func (c *CPU) out(port uint16, value byte) {
	c.lastPort = byte(port)
	c.bus.Out(port, value)
	if c.trackBus {
		c.cycle(StatusOUT, port, value)
	}
}

// peek reads memory without bus cycles when the bus allows it.
func (c *CPU) peek(addr uint16) byte {
	if d, ok := c.bus.(DMABus); ok {
		return d.DMARead(addr)
	}
	return c.bus.Read(addr)
}
