// ports.go - 256 entry I/O port table with trap policy

package machine

import (
	"fmt"
	"sync/atomic"
)

// UnusedDefault is what an unmapped input port returns unless configured
// otherwise.
const UnusedDefault = 0xFF

// InHandler serves an input from a port. The low byte of port is the port
// number, the high byte the upper address lines.
type InHandler func(port uint16) byte

// OutHandler serves an output to a port.
type OutHandler func(port uint16, value byte)

// Ports dispatches I/O by the low byte of the port address. Ports without a
// handler either trap or read as Unused, depending on Trap.
type Ports struct {
	in  [256]InHandler
	out [256]OutHandler

	// Trap makes accesses to unmapped ports stop the CPU with an I/O trap.
	Trap bool
	// Unused is returned for input from unmapped ports.
	Unused byte

	sealed atomic.Bool
}

func NewPorts() *Ports {
	return &Ports{Unused: UnusedDefault}
}

// Map installs handlers for port. A nil handler leaves that direction
// unmapped. Mapping after Seal panics.
func (p *Ports) Map(port byte, in InHandler, out OutHandler) {
	if p.sealed.Load() {
		panic(fmt.Sprintf("Map called after execution started (port 0x%02X)", port))
	}
	p.in[port] = in
	p.out[port] = out
}

// Seal freezes the table once the CPU starts running.
func (p *Ports) Seal() {
	p.sealed.CompareAndSwap(false, true)
}

func (p *Ports) IsSealed() bool {
	return p.sealed.Load()
}

// Mapped reports whether port has an input and an output handler.
func (p *Ports) Mapped(port byte) (in, out bool) {
	return p.in[port] != nil, p.out[port] != nil
}

// In reads from port. ok is false when the port is unmapped, in which case
// the value is Unused.
func (p *Ports) In(port uint16) (value byte, ok bool) {
	h := p.in[byte(port)]
	if h == nil {
		return p.Unused, false
	}
	return h(port), true
}

// Out writes to port. ok is false when the port is unmapped.
func (p *Ports) Out(port uint16, value byte) (ok bool) {
	h := p.out[byte(port)]
	if h == nil {
		return false
	}
	h(port, value)
	return true
}
