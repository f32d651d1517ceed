package cpu

import "testing"

type testBus struct {
	mem [0x10000]byte
	io  [0x10000]byte

	outs   []uint16
	onOut  func(port uint16, value byte)
	lastIn uint16
}

func (b *testBus) Read(addr uint16) byte {
	return b.mem[addr]
}

func (b *testBus) Write(addr uint16, value byte) {
	b.mem[addr] = value
}

func (b *testBus) In(port uint16) byte {
	b.lastIn = port
	return b.io[port&0xFF]
}

func (b *testBus) Out(port uint16, value byte) {
	b.outs = append(b.outs, port)
	b.io[port&0xFF] = value
	if b.onOut != nil {
		b.onOut(port, value)
	}
}

func (b *testBus) DMARead(addr uint16) byte {
	return b.mem[addr]
}

func (b *testBus) DMAWrite(addr uint16, value byte) {
	b.mem[addr] = value
}

type cpuTestRig struct {
	bus *testBus
	cpu *CPU
}

func newTestRig(cfg Config) *cpuTestRig {
	bus := &testBus{}
	return &cpuTestRig{
		bus: bus,
		cpu: New(bus, cfg),
	}
}

func newZ80Rig() *cpuTestRig {
	return newTestRig(Config{Model: Z80, Undoc: true})
}

func new8080Rig() *cpuTestRig {
	return newTestRig(Config{Model: I8080, Undoc: true})
}

func (r *cpuTestRig) load(start uint16, program ...byte) {
	for i, value := range program {
		r.bus.mem[start+uint16(i)] = value
	}
	r.cpu.PC = start
}

// step runs one instruction and fails the test on any CPU error.
func (r *cpuTestRig) step(t *testing.T) {
	t.Helper()
	if err := r.cpu.Step(); err != None {
		t.Fatalf("Step at 0x%04X: %v (%s)", r.cpu.PC, err, r.cpu.ErrorReport())
	}
}

// stepT runs one instruction and returns the T-states it used.
func (r *cpuTestRig) stepT(t *testing.T) uint64 {
	t.Helper()
	before := r.cpu.T
	r.step(t)
	return r.cpu.T - before
}

func requireEqualU16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%04X, want 0x%04X", name, got, want)
	}
}

func requireEqualU8(t *testing.T, name string, got, want byte) {
	t.Helper()
	if got != want {
		t.Fatalf("%s = 0x%02X, want 0x%02X", name, got, want)
	}
}

func requireT(t *testing.T, got, want uint64) {
	t.Helper()
	if got != want {
		t.Fatalf("T-states = %d, want %d", got, want)
	}
}
