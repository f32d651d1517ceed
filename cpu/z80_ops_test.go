package cpu

import "testing"

func TestZ80Opcodes(t *testing.T) {
	tests := []struct {
		name    string
		program []byte
		setup   func(c *CPU, b *testBus)
		check   func(t *testing.T, c *CPU, b *testBus)
		pc      uint16
		tstates uint64
	}{
		{
			name:    "LD A,n",
			program: []byte{0x3E, 0x05},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x05)
				requireEqualU8(t, "F", c.F, 0x00)
			},
			pc: 2, tstates: 7,
		},
		{
			name:    "INC A wraps to zero",
			program: []byte{0x3C},
			setup:   func(c *CPU, b *testBus) { c.A = 0xFF },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x00)
				requireEqualU8(t, "F", c.F, FlagZ|FlagH)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "INC A overflows",
			program: []byte{0x3C},
			setup:   func(c *CPU, b *testBus) { c.A = 0x7F; c.F = FlagC },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x80)
				requireEqualU8(t, "F", c.F, FlagS|FlagH|FlagP|FlagC)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "DEC A to zero",
			program: []byte{0x3D},
			setup:   func(c *CPU, b *testBus) { c.A = 0x01 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagZ|FlagN)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "ADD A,n carry and half carry",
			program: []byte{0xC6, 0xC6},
			setup:   func(c *CPU, b *testBus) { c.A = 0x3A },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x00)
				requireEqualU8(t, "F", c.F, FlagZ|FlagH|FlagC)
			},
			pc: 2, tstates: 7,
		},
		{
			name:    "SUB n borrow",
			program: []byte{0xD6, 0x20},
			setup:   func(c *CPU, b *testBus) { c.A = 0x10 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0xF0)
				requireEqualU8(t, "F", c.F, FlagS|FlagY|FlagN|FlagC)
			},
			pc: 2, tstates: 7,
		},
		{
			name:    "CP n takes Y and X from the operand",
			program: []byte{0xFE, 0x28},
			setup:   func(c *CPU, b *testBus) { c.A = 0x00 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x00)
				requireEqualU8(t, "F", c.F, FlagS|FlagY|FlagH|FlagX|FlagN|FlagC)
			},
			pc: 2, tstates: 7,
		},
		{
			name:    "AND n",
			program: []byte{0xE6, 0x0F},
			setup:   func(c *CPU, b *testBus) { c.A = 0xF0; c.F = FlagC },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagZ|FlagH|FlagP)
			},
			pc: 2, tstates: 7,
		},
		{
			name:    "XOR A",
			program: []byte{0xAF},
			setup:   func(c *CPU, b *testBus) { c.A = 0x5A },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x00)
				requireEqualU8(t, "F", c.F, FlagZ|FlagP)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "ADD A,(HL)",
			program: []byte{0x86},
			setup: func(c *CPU, b *testBus) {
				c.A = 0x01
				c.SetHL(0x4000)
				b.mem[0x4000] = 0x02
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x03)
			},
			pc: 1, tstates: 7,
		},
		{
			name:    "DAA low nibble correction",
			program: []byte{0x27},
			setup:   func(c *CPU, b *testBus) { c.A = 0x3C },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x42)
				requireEqualU8(t, "F", c.F, FlagH|FlagP)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "RLCA",
			program: []byte{0x07},
			setup:   func(c *CPU, b *testBus) { c.A = 0x81 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x03)
				requireEqualU8(t, "F", c.F, FlagC)
			},
			pc: 1, tstates: 4,
		},
		{
			name:    "ADD HL,BC half carry",
			program: []byte{0x09},
			setup:   func(c *CPU, b *testBus) { c.SetHL(0x0FFF); c.SetBC(0x0001) },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "HL", c.HL(), 0x1000)
				requireEqualU8(t, "F", c.F, FlagH)
				requireEqualU16(t, "WZ", c.WZ, 0x1000)
			},
			pc: 1, tstates: 11,
		},
		{
			name:    "SBC HL,DE to zero",
			program: []byte{0xED, 0x52},
			setup:   func(c *CPU, b *testBus) { c.SetHL(0x1000); c.SetDE(0x1000) },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "HL", c.HL(), 0x0000)
				requireEqualU8(t, "F", c.F, FlagZ|FlagN)
			},
			pc: 2, tstates: 15,
		},
		{
			name:    "ADC HL,BC overflow",
			program: []byte{0xED, 0x4A},
			setup:   func(c *CPU, b *testBus) { c.SetHL(0x7FFF); c.SetBC(0x0001) },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "HL", c.HL(), 0x8000)
				requireEqualU8(t, "F", c.F, FlagS|FlagH|FlagP)
			},
			pc: 2, tstates: 15,
		},
		{
			name:    "JR taken",
			program: []byte{0x18, 0x02},
			pc:      4, tstates: 12,
		},
		{
			name:    "JR NZ not taken",
			program: []byte{0x20, 0x05},
			setup:   func(c *CPU, b *testBus) { c.F = FlagZ },
			pc:      2, tstates: 7,
		},
		{
			name:    "DJNZ taken",
			program: []byte{0x10, 0xFE},
			setup:   func(c *CPU, b *testBus) { c.B = 2 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "B", c.B, 1)
			},
			pc: 0, tstates: 13,
		},
		{
			name:    "DJNZ falls through",
			program: []byte{0x10, 0xFE},
			setup:   func(c *CPU, b *testBus) { c.B = 1 },
			pc:      2, tstates: 8,
		},
		{
			name:    "CALL nn",
			program: []byte{0xCD, 0x00, 0x10},
			setup:   func(c *CPU, b *testBus) { c.SP = 0x8000 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "SP", c.SP, 0x7FFE)
				requireEqualU8(t, "ret lo", b.mem[0x7FFE], 0x03)
				requireEqualU8(t, "ret hi", b.mem[0x7FFF], 0x00)
			},
			pc: 0x1000, tstates: 17,
		},
		{
			name:    "CALL NZ not taken",
			program: []byte{0xC4, 0x00, 0x10},
			setup:   func(c *CPU, b *testBus) { c.F = FlagZ },
			pc:      3, tstates: 10,
		},
		{
			name:    "RET NZ not taken",
			program: []byte{0xC0},
			setup:   func(c *CPU, b *testBus) { c.F = FlagZ },
			pc:      1, tstates: 5,
		},
		{
			name:    "RST 28h",
			program: []byte{0xEF},
			setup:   func(c *CPU, b *testBus) { c.SP = 0x8000 },
			pc:      0x0028, tstates: 11,
		},
		{
			name:    "BIT 7,A",
			program: []byte{0xCB, 0x7F},
			setup:   func(c *CPU, b *testBus) { c.A = 0x80 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagS|FlagH)
			},
			pc: 2, tstates: 8,
		},
		{
			name:    "BIT 0,(HL) takes Y and X from WZ",
			program: []byte{0xCB, 0x46},
			setup: func(c *CPU, b *testBus) {
				c.SetHL(0x2000)
				c.WZ = 0x2800
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagZ|FlagY|FlagH|FlagX|FlagP)
			},
			pc: 2, tstates: 12,
		},
		{
			name:    "SET 3,(HL)",
			program: []byte{0xCB, 0xDE},
			setup:   func(c *CPU, b *testBus) { c.SetHL(0x2000) },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "(HL)", b.mem[0x2000], 0x08)
			},
			pc: 2, tstates: 15,
		},
		{
			name:    "SRL B",
			program: []byte{0xCB, 0x38},
			setup:   func(c *CPU, b *testBus) { c.B = 0x01 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "B", c.B, 0x00)
				requireEqualU8(t, "F", c.F, FlagZ|FlagP|FlagC)
			},
			pc: 2, tstates: 8,
		},
		{
			name:    "LD (IX+d),n",
			program: []byte{0xDD, 0x36, 0x05, 0xAA},
			setup:   func(c *CPU, b *testBus) { c.IX = 0x3000 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "(IX+5)", b.mem[0x3005], 0xAA)
			},
			pc: 4, tstates: 19,
		},
		{
			name:    "LD A,(IY-1)",
			program: []byte{0xFD, 0x7E, 0xFF},
			setup: func(c *CPU, b *testBus) {
				c.IY = 0x3001
				b.mem[0x3000] = 0x5A
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x5A)
			},
			pc: 3, tstates: 19,
		},
		{
			name:    "LD H,(IX+d) loads the real H",
			program: []byte{0xDD, 0x66, 0x01},
			setup: func(c *CPU, b *testBus) {
				c.IX = 0x3000
				b.mem[0x3001] = 0x77
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "H", c.H, 0x77)
				requireEqualU16(t, "IX", c.IX, 0x3000)
			},
			pc: 3, tstates: 19,
		},
		{
			name:    "LD IXH,n",
			program: []byte{0xDD, 0x26, 0x12},
			setup:   func(c *CPU, b *testBus) { c.IX = 0x3456 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "IX", c.IX, 0x1256)
			},
			pc: 3, tstates: 11,
		},
		{
			name:    "RLC (IX+d)",
			program: []byte{0xDD, 0xCB, 0x02, 0x06},
			setup: func(c *CPU, b *testBus) {
				c.IX = 0x3000
				b.mem[0x3002] = 0x80
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "(IX+2)", b.mem[0x3002], 0x01)
				requireEqualU8(t, "F", c.F, FlagC)
			},
			pc: 4, tstates: 23,
		},
		{
			name:    "SET 0,(IY+d),B copies into B",
			program: []byte{0xFD, 0xCB, 0x00, 0xC0},
			setup:   func(c *CPU, b *testBus) { c.IY = 0x3000 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "(IY)", b.mem[0x3000], 0x01)
				requireEqualU8(t, "B", c.B, 0x01)
			},
			pc: 4, tstates: 23,
		},
		{
			name:    "BIT 1,(IX+d)",
			program: []byte{0xDD, 0xCB, 0x00, 0x4E},
			setup: func(c *CPU, b *testBus) {
				c.IX = 0x3000
				b.mem[0x3000] = 0x02
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagY|FlagH)
			},
			pc: 4, tstates: 20,
		},
		{
			name:    "NEG",
			program: []byte{0xED, 0x44},
			setup:   func(c *CPU, b *testBus) { c.A = 0x01 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0xFF)
				requireEqualU8(t, "F", c.F, FlagS|FlagY|FlagH|FlagX|FlagN|FlagC)
			},
			pc: 2, tstates: 8,
		},
		{
			name:    "LD A,I copies IFF2 to P/V",
			program: []byte{0xED, 0x57},
			setup:   func(c *CPU, b *testBus) { c.I = 0; c.IFF = 2 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "F", c.F, FlagZ|FlagP)
			},
			pc: 2, tstates: 9,
		},
		{
			name:    "IN A,(n) puts A on the upper address lines",
			program: []byte{0xDB, 0x10},
			setup: func(c *CPU, b *testBus) {
				c.A = 0x12
				b.io[0x10] = 0x42
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x42)
				requireEqualU16(t, "port", b.lastIn, 0x1210)
			},
			pc: 2, tstates: 11,
		},
		{
			name:    "OUT (C),A",
			program: []byte{0xED, 0x79},
			setup:   func(c *CPU, b *testBus) { c.SetBC(0x0120); c.A = 9 },
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "port 0x20", b.io[0x20], 9)
				requireEqualU16(t, "port", b.outs[0], 0x0120)
			},
			pc: 2, tstates: 12,
		},
		{
			name:    "RLD",
			program: []byte{0xED, 0x6F},
			setup: func(c *CPU, b *testBus) {
				c.A = 0x12
				c.SetHL(0x4000)
				b.mem[0x4000] = 0x34
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "A", c.A, 0x13)
				requireEqualU8(t, "(HL)", b.mem[0x4000], 0x42)
				requireEqualU8(t, "F", c.F, 0x00)
			},
			pc: 2, tstates: 18,
		},
		{
			name:    "EX (SP),HL",
			program: []byte{0xE3},
			setup: func(c *CPU, b *testBus) {
				c.SP = 0x8000
				c.SetHL(0xABCD)
				b.mem[0x8000] = 0x34
				b.mem[0x8001] = 0x12
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "HL", c.HL(), 0x1234)
				requireEqualU8(t, "(SP)", b.mem[0x8000], 0xCD)
				requireEqualU8(t, "(SP+1)", b.mem[0x8001], 0xAB)
			},
			pc: 1, tstates: 19,
		},
		{
			name:    "LDI",
			program: []byte{0xED, 0xA0},
			setup: func(c *CPU, b *testBus) {
				c.SetHL(0x1000)
				c.SetDE(0x2000)
				c.SetBC(2)
				b.mem[0x1000] = 0x55
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU8(t, "(DE)", b.mem[0x2000], 0x55)
				requireEqualU16(t, "HL", c.HL(), 0x1001)
				requireEqualU16(t, "DE", c.DE(), 0x2001)
				requireEqualU16(t, "BC", c.BC(), 0x0001)
				requireEqualU8(t, "F", c.F, FlagP)
			},
			pc: 2, tstates: 16,
		},
		{
			name:    "CPIR stops on match",
			program: []byte{0xED, 0xB1},
			setup: func(c *CPU, b *testBus) {
				c.A = 0x55
				c.SetHL(0x1000)
				c.SetBC(5)
				b.mem[0x1000] = 0x55
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "BC", c.BC(), 4)
				requireEqualU8(t, "F", c.F, FlagZ|FlagP|FlagN)
			},
			pc: 2, tstates: 16,
		},
		{
			name:    "EXX and EX AF,AF'",
			program: []byte{0xD9},
			setup: func(c *CPU, b *testBus) {
				c.SetBC(0x1111)
				c.B2, c.C2 = 0x22, 0x22
			},
			check: func(t *testing.T, c *CPU, b *testBus) {
				requireEqualU16(t, "BC", c.BC(), 0x2222)
				requireEqualU16(t, "BC'", c.BC2(), 0x1111)
			},
			pc: 1, tstates: 4,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newZ80Rig()
			r.load(0, tc.program...)
			if tc.setup != nil {
				tc.setup(r.cpu, r.bus)
			}
			got := r.stepT(t)
			requireT(t, got, tc.tstates)
			requireEqualU16(t, "PC", r.cpu.PC, tc.pc)
			if tc.check != nil {
				tc.check(t, r.cpu, r.bus)
			}
		})
	}
}

func TestZ80PushPopRoundTrip(t *testing.T) {
	pairs := []struct {
		name string
		push []byte
		pop  []byte
		set  func(c *CPU, v uint16)
		get  func(c *CPU) uint16
	}{
		{"BC", []byte{0xC5}, []byte{0xC1}, (*CPU).SetBC, (*CPU).BC},
		{"DE", []byte{0xD5}, []byte{0xD1}, (*CPU).SetDE, (*CPU).DE},
		{"HL", []byte{0xE5}, []byte{0xE1}, (*CPU).SetHL, (*CPU).HL},
		{"AF", []byte{0xF5}, []byte{0xF1}, (*CPU).SetAF, (*CPU).AF},
		{"IX", []byte{0xDD, 0xE5}, []byte{0xDD, 0xE1},
			func(c *CPU, v uint16) { c.IX = v }, func(c *CPU) uint16 { return c.IX }},
		{"IY", []byte{0xFD, 0xE5}, []byte{0xFD, 0xE1},
			func(c *CPU, v uint16) { c.IY = v }, func(c *CPU) uint16 { return c.IY }},
	}
	for _, p := range pairs {
		t.Run(p.name, func(t *testing.T) {
			r := newZ80Rig()
			r.load(0x0100, append(append([]byte{}, p.push...), p.pop...)...)
			r.cpu.SP = 0x9000
			p.set(r.cpu, 0xBEEF)
			r.step(t)
			requireEqualU16(t, "SP after push", r.cpu.SP, 0x8FFE)
			requireEqualU8(t, "(SP)", r.bus.mem[0x8FFE], 0xEF)
			requireEqualU8(t, "(SP+1)", r.bus.mem[0x8FFF], 0xBE)
			p.set(r.cpu, 0)
			r.step(t)
			requireEqualU16(t, p.name, p.get(r.cpu), 0xBEEF)
			requireEqualU16(t, "SP after pop", r.cpu.SP, 0x9000)
		})
	}
}

func TestZ80RefreshRegister(t *testing.T) {
	r := newZ80Rig()
	r.load(0, 0x00, 0xCB, 0x00, 0xDD, 0xCB, 0x00, 0x06, 0xED, 0x4F)
	r.cpu.IX = 0x4000
	r.step(t)
	requireEqualU8(t, "R after NOP", r.cpu.R, 1)
	r.step(t)
	requireEqualU8(t, "R after CB", r.cpu.R, 3)
	r.step(t)
	requireEqualU8(t, "R after DDCB", r.cpu.R, 5)

	r.cpu.A = 0xFF
	r.step(t) // LD R,A
	r.load(0, 0x00)
	r.step(t)
	requireEqualU8(t, "R keeps bit 7", r.cpu.R, 0x80)
}

func TestZ80HaltWithInterruptsDisabled(t *testing.T) {
	r := newZ80Rig()
	r.load(0x0200, 0x76)
	if err := r.cpu.Step(); err != OpHalt {
		t.Fatalf("Step = %v, want %v", err, OpHalt)
	}
	if r.cpu.State() != Stopped {
		t.Fatalf("State = %d, want Stopped", r.cpu.State())
	}
	want := "INT disabled and HALT Op-Code reached at 0x0200"
	if got := r.cpu.ErrorReport(); got != want {
		t.Fatalf("ErrorReport = %q, want %q", got, want)
	}
}

func TestZ80HaltIdlesUntilInterrupt(t *testing.T) {
	r := newZ80Rig()
	r.load(0x0200, 0x76)
	r.cpu.IFF = 3
	r.cpu.IM = 1
	r.cpu.SP = 0x8000
	requireT(t, r.stepT(t), 4)
	if !r.cpu.Halted {
		t.Fatalf("CPU should be halted")
	}
	requireT(t, r.stepT(t), 4)
	requireEqualU16(t, "PC while halted", r.cpu.PC, 0x0201)

	r.cpu.RequestInt(NoDevice)
	requireT(t, r.stepT(t), 13)
	if r.cpu.Halted {
		t.Fatalf("interrupt should end HALT")
	}
	requireEqualU16(t, "PC", r.cpu.PC, 0x0038)
	requireEqualU16(t, "return address", r.cpu.read16(r.cpu.SP), 0x0201)
}
