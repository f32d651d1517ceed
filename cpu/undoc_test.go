package cpu

import "testing"

func TestUndocumentedOpcodesTrap(t *testing.T) {
	tests := []struct {
		name    string
		model   Model
		program []byte
		err     Error
		report  string
	}{
		{"SLL", Z80, []byte{0xCB, 0x30}, OpTrap2, "Op-code trap at 0x0000 cb 30"},
		{"DD before NOP", Z80, []byte{0xDD, 0x00}, OpTrap2, "Op-code trap at 0x0000 dd 00"},
		{"IXH", Z80, []byte{0xDD, 0x24}, OpTrap2, "Op-code trap at 0x0000 dd 24"},
		{"ED hole", Z80, []byte{0xED, 0x00}, OpTrap2, "Op-code trap at 0x0000 ed 00"},
		{"ED NEG alias", Z80, []byte{0xED, 0x4C}, OpTrap2, "Op-code trap at 0x0000 ed 4c"},
		{"DDCB register copy", Z80, []byte{0xDD, 0xCB, 0x01, 0x00}, OpTrap4, "Op-code trap at 0x0000 dd cb 01 00"},
		{"8080 NOP*", I8080, []byte{0x08}, OpTrap1, "Op-code trap at 0x0000 08"},
		{"8080 CALL*", I8080, []byte{0xDD, 0x00, 0x10}, OpTrap1, "Op-code trap at 0x0000 dd"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRig(Config{Model: tc.model})
			r.load(0, tc.program...)
			before := r.cpu.T
			if err := r.cpu.Step(); err != tc.err {
				t.Fatalf("Step = %v, want %v", err, tc.err)
			}
			if r.cpu.T != before {
				t.Fatalf("trap consumed %d T-states", r.cpu.T-before)
			}
			if r.cpu.State() != Stopped {
				t.Fatalf("State = %d, want Stopped", r.cpu.State())
			}
			if got := r.cpu.ErrorReport(); got != tc.report {
				t.Fatalf("ErrorReport = %q, want %q", got, tc.report)
			}
		})
	}
}

func TestDocumentedOpcodesDoNotTrap(t *testing.T) {
	r := newTestRig(Config{Model: Z80})
	r.load(0,
		0xCB, 0x3F, // SRL A
		0xDD, 0x21, 0x00, 0x40, // LD IX,4000h
		0xDD, 0xCB, 0x00, 0xC6, // SET 0,(IX+0)
		0xED, 0x44, // NEG
		0xED, 0xB0, // LDIR, BC=1
	)
	r.cpu.SetBC(1)
	for range 5 {
		r.step(t)
	}
	requireEqualU8(t, "(IX)", r.bus.mem[0x4000], 0x01)
}

func TestIndexPrefixActsAsNOP(t *testing.T) {
	r := newZ80Rig()
	r.load(0, 0xDD, 0x3C) // DD INC A
	r.cpu.R = 0

	requireT(t, r.stepT(t), 4)
	requireEqualU16(t, "PC", r.cpu.PC, 1)
	requireEqualU8(t, "R", r.cpu.R, 1)

	requireT(t, r.stepT(t), 4)
	requireEqualU8(t, "A", r.cpu.A, 1)
	requireEqualU8(t, "R", r.cpu.R, 2)
}

func TestUndocumentedZ80Opcodes(t *testing.T) {
	t.Run("SLL", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xCB, 0x37)
		r.cpu.A = 0x80
		requireT(t, r.stepT(t), 8)
		requireEqualU8(t, "A", r.cpu.A, 0x01)
		requireEqualU8(t, "F", r.cpu.F, FlagC)
	})
	t.Run("ED hole is an 8 T NOP", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xED, 0x00)
		requireT(t, r.stepT(t), 8)
		requireEqualU16(t, "PC", r.cpu.PC, 2)
	})
	t.Run("IN F,(C)", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xED, 0x70)
		r.cpu.SetBC(0x0005)
		r.bus.io[0x05] = 0x00
		r.cpu.A = 0x33
		requireT(t, r.stepT(t), 12)
		requireEqualU8(t, "A", r.cpu.A, 0x33)
		requireEqualU8(t, "F", r.cpu.F, FlagZ|FlagP)
	})
	t.Run("OUT (C),0", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xED, 0x71)
		r.cpu.SetBC(0x0007)
		r.bus.io[0x07] = 0xFF
		r.step(t)
		requireEqualU8(t, "port 7", r.bus.io[0x07], 0x00)
	})
	t.Run("ADD A,IXL", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xDD, 0x85)
		r.cpu.IX = 0x1203
		r.cpu.A = 0x01
		requireT(t, r.stepT(t), 8)
		requireEqualU8(t, "A", r.cpu.A, 0x04)
	})
	t.Run("IM 2 alias", func(t *testing.T) {
		r := newZ80Rig()
		r.load(0, 0xED, 0x7E)
		r.step(t)
		requireEqualU8(t, "IM", r.cpu.IM, 2)
	})
}
