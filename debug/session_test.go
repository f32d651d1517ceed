package debug

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/udo-munk/z80pack-sub002/cpu"
	"github.com/udo-munk/z80pack-sub002/machine"
)

func newTestSession(t *testing.T, cfg cpu.Config, addr uint16, program ...byte) (*Session, *test.Hook) {
	t.Helper()
	opts := machine.DefaultOptions()
	opts.CPU = cfg
	sys := machine.New(opts)
	for i, b := range program {
		sys.Memory.Poke(addr+uint16(i), b)
	}
	sys.CPU.PC = addr
	logger, hook := test.NewNullLogger()
	return NewSession(sys.CPU, sys.Memory, logger.WithField("component", "debug")), hook
}

func goSession(t *testing.T, s *Session) cpu.Error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Go(ctx)
	if err == cpu.UserInt && (s.Watch == nil || s.Watch.Hit() == 0) {
		t.Fatalf("Go did not stop on its own")
	}
	return err
}

// loopProgram counts five passes through 0x0100 in A and halts at 0x0103.
var loopProgram = []byte{
	0x06, 0x05, // 00FE LD B,5
	0x3C,       // 0100 INC A
	0x10, 0xFD, // 0101 DJNZ 0100
	0x76, // 0103 HALT
}

func TestBreakpointPassCount(t *testing.T) {
	s, hook := newTestSession(t, cpu.Config{Model: cpu.Z80, HistoryDepth: 16}, 0x00FE, loopProgram...)
	if _, err := s.Breaks.Set(0x0100, 3); err != nil {
		t.Fatal(err)
	}
	if s.Breaks.mem.Read(0x0100) != haltOpcode {
		t.Fatalf("breakpoint did not install HALT")
	}

	if err := goSession(t, s); err != cpu.OpHalt {
		t.Fatalf("Go = %v, want %v", err, cpu.OpHalt)
	}
	if s.CPU.PC != 0x0100 {
		t.Fatalf("PC = 0x%04X, want 0x0100", s.CPU.PC)
	}
	if s.CPU.A != 2 {
		t.Fatalf("A = %d, want 2 (two passes executed)", s.CPU.A)
	}
	if got := s.Breaks.mem.Read(0x0100); got != 0x3C {
		t.Fatalf("opcode at breakpoint = 0x%02X, want original 0x3C", got)
	}
	if s.Breaks.Lifted() == nil {
		t.Fatalf("breakpoint should be lifted")
	}
	if last := hook.LastEntry(); last == nil || last.Message != "Software breakpoint 0 reached at 0100" {
		t.Fatalf("log = %v", last)
	}
	for _, e := range s.CPU.History().Entries() {
		if e.PC == 0x0100 && e.AF>>8 == 2 {
			t.Fatalf("history holds the HALT of the final pass")
		}
	}

	if err := goSession(t, s); err != cpu.OpHalt {
		t.Fatalf("second Go = %v", err)
	}
	if s.CPU.PC != 0x0104 || s.CPU.A != 5 {
		t.Fatalf("PC = 0x%04X A = %d, want 0x0104 5", s.CPU.PC, s.CPU.A)
	}
	if s.Breaks.mem.Read(0x0100) != haltOpcode {
		t.Fatalf("breakpoint should be armed again")
	}
	if sb := s.Breaks.Find(0x0100); sb.Count != 2 {
		t.Fatalf("Count = %d, want 2", sb.Count)
	}
}

func TestBreakpointHandleWithPendingStop(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0x00FE, loopProgram...)
	if _, err := s.Breaks.Set(0x0100, 2); err != nil {
		t.Fatal(err)
	}
	if err := s.CPU.Run(); err != cpu.OpHalt {
		t.Fatalf("Run = %v, want %v", err, cpu.OpHalt)
	}

	// An interrupt request lands between the HALT and the breakpoint
	// handling. The HALT error survives and the request is kept.
	s.CPU.SetError(cpu.UserInt)
	if s.CPU.Err() != cpu.OpHalt {
		t.Fatalf("Err = %v, want %v", s.CPU.Err(), cpu.OpHalt)
	}
	sb, cont := s.Breaks.Handle(s.CPU)
	if sb == nil || cont {
		t.Fatalf("Handle = %v, %v, want the breakpoint and no continue", sb, cont)
	}
	if s.CPU.Err() != cpu.UserInt {
		t.Fatalf("Err = %v, want %v", s.CPU.Err(), cpu.UserInt)
	}
	if s.CPU.PC != 0x0100 || s.CPU.A != 0 {
		t.Fatalf("PC = 0x%04X A = %d, want 0x0100 0", s.CPU.PC, s.CPU.A)
	}
	if sb.Count != 0 {
		t.Fatalf("Count = %d, the interrupted pass was counted", sb.Count)
	}
	if s.Breaks.Lifted() != sb {
		t.Fatalf("breakpoint should stay lifted")
	}
	if got := s.Breaks.mem.Read(0x0100); got != 0x3C {
		t.Fatalf("opcode at breakpoint = 0x%02X, want original 0x3C", got)
	}

	if err := goSession(t, s); err != cpu.OpHalt {
		t.Fatalf("Go = %v, want %v", err, cpu.OpHalt)
	}
	if s.CPU.PC != 0x0100 || s.CPU.A != 2 {
		t.Fatalf("PC = 0x%04X A = %d, want 0x0100 2", s.CPU.PC, s.CPU.A)
	}
}

func TestBreakpointClearRestoresOpcode(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0x00FE, loopProgram...)
	sb, err := s.Breaks.Set(0x0101, 0)
	if err != nil {
		t.Fatal(err)
	}
	if sb.Pass != 1 || sb.Slot != 0 {
		t.Fatalf("breakpoint = %+v", *sb)
	}
	if _, err := s.Breaks.Set(0x0101, 1); err == nil {
		t.Fatalf("second breakpoint at the same address should fail")
	}
	if err := s.Breaks.Clear(0); err != nil {
		t.Fatal(err)
	}
	if s.Breaks.mem.Read(0x0101) != 0x10 {
		t.Fatalf("Clear did not restore the opcode")
	}
	if err := s.Breaks.Clear(MaxSoftBreaks); err == nil {
		t.Fatalf("slot %d should not exist", MaxSoftBreaks)
	}
	if err := goSession(t, s); err != cpu.OpHalt || s.CPU.A != 5 {
		t.Fatalf("Go = %v A = %d", err, s.CPU.A)
	}
}

func TestBreakpointSlotsRoundRobin(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0)
	for i := range MaxSoftBreaks + 1 {
		sb, err := s.Breaks.Set(uint16(0x1000+i), 1)
		if err != nil {
			t.Fatal(err)
		}
		if sb.Slot != i%MaxSoftBreaks {
			t.Fatalf("breakpoint %d in slot %d", i, sb.Slot)
		}
	}
	list := s.Breaks.List()
	if len(list) != MaxSoftBreaks || list[0].Addr != 0x100A {
		t.Fatalf("List = %v", list)
	}
	if s.Breaks.mem.Read(0x1000) != 0 {
		t.Fatalf("replaced breakpoint did not restore its opcode")
	}
	if got := list[1].String(); got != "01 1001 00001 00000" {
		t.Fatalf("String = %q", got)
	}
	s.Breaks.ClearAll()
	if len(s.Breaks.List()) != 0 || s.Breaks.mem.Read(0x1005) != 0 {
		t.Fatalf("ClearAll left breakpoints behind")
	}
}

func TestBreakpointCondition(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0x00FE, loopProgram...)
	sb, _ := s.Breaks.Set(0x0100, 1)
	cond, err := ParseCondition("A==$03")
	if err != nil {
		t.Fatal(err)
	}
	sb.Cond = cond
	if err := goSession(t, s); err != cpu.OpHalt {
		t.Fatalf("Go = %v", err)
	}
	if s.CPU.PC != 0x0100 || s.CPU.A != 3 {
		t.Fatalf("stopped at PC 0x%04X with A = %d, want 0x0100 and 3", s.CPU.PC, s.CPU.A)
	}
}

func TestStepOverBreakpoint(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0x00FE, loopProgram...)
	s.Breaks.Set(0x0100, 2)
	steps := []struct {
		pc uint16
		a  byte
	}{
		{0x0100, 0}, // LD B,5
		{0x0101, 1}, // first pass executes INC A transparently
		{0x0100, 1}, // DJNZ
	}
	for i, w := range steps {
		if err := s.Step(); err != cpu.None {
			t.Fatalf("step %d: %v", i, err)
		}
		if s.CPU.PC != w.pc || s.CPU.A != w.a {
			t.Fatalf("step %d: PC = 0x%04X A = %d, want 0x%04X %d", i, s.CPU.PC, s.CPU.A, w.pc, w.a)
		}
	}
	if err := s.Step(); err != cpu.OpHalt || s.CPU.PC != 0x0100 {
		t.Fatalf("second pass: %v at 0x%04X", err, s.CPU.PC)
	}
	if err := s.Step(); err != cpu.None || s.CPU.PC != 0x0101 || s.CPU.A != 2 {
		t.Fatalf("step off breakpoint: %v PC = 0x%04X A = %d", err, s.CPU.PC, s.CPU.A)
	}
}

func TestTrace(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0x00FE, loopProgram...)
	var pcs []uint16
	err := s.Trace(4, func(r cpu.Registers) { pcs = append(pcs, r.PC) })
	if err != cpu.None {
		t.Fatalf("Trace = %v", err)
	}
	want := []uint16{0x0100, 0x0101, 0x0100, 0x0101}
	if len(pcs) != len(want) {
		t.Fatalf("trace saw %d steps, want %d", len(pcs), len(want))
	}
	for i := range want {
		if pcs[i] != want[i] {
			t.Fatalf("step %d PC = 0x%04X, want 0x%04X", i, pcs[i], want[i])
		}
	}

	n := 0
	if err := s.Trace(0, func(cpu.Registers) { n++ }); err != cpu.OpHalt {
		t.Fatalf("Trace to HALT = %v", err)
	}
	if n >= DefaultTraceCount {
		t.Fatalf("trace should stop at HALT, ran %d steps", n)
	}
}

func TestWatchStopsOnWrite(t *testing.T) {
	s, hook := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0,
		0x3E, 0x11, // LD A,11h
		0x32, 0x00, 0x40, // LD (4000h),A
		0x3C, // INC A
		0x76,
	)
	s.SetWatch(0x4000, WatchWrite)
	if err := goSession(t, s); err != cpu.UserInt {
		t.Fatalf("Go = %v, want %v", err, cpu.UserInt)
	}
	if s.CPU.PC != 0x0005 || s.Watch.Hit() != WatchWrite {
		t.Fatalf("PC = 0x%04X hit = %v", s.CPU.PC, s.Watch.Hit())
	}
	if !strings.Contains(hook.LastEntry().Message, "Hardware breakpoint reached at 4000") {
		t.Fatalf("log = %q", hook.LastEntry().Message)
	}

	s.SetWatch(0, 0)
	if err := goSession(t, s); err != cpu.OpHalt || s.CPU.A != 0x12 {
		t.Fatalf("Go without watch = %v A = 0x%02X", err, s.CPU.A)
	}
}

func TestWatchExecAndRead(t *testing.T) {
	s, _ := newTestSession(t, cpu.Config{Model: cpu.Z80}, 0,
		0x3A, 0x05, 0x00, // LD A,(0005h)
		0x00,
		0x00,
		0x00, // 0005
		0x76,
	)
	s.SetWatch(0x0005, WatchExec)
	if err := goSession(t, s); err != cpu.UserInt || s.Watch.Hit() != WatchExec {
		t.Fatalf("exec watch: %v hit %v", err, s.Watch.Hit())
	}
	if s.CPU.PC != 0x0006 {
		t.Fatalf("PC = 0x%04X, want 0x0006", s.CPU.PC)
	}

	s.CPU.PC = 0
	s.SetWatch(0x0005, WatchRead)
	if err := s.Step(); err != cpu.UserInt || s.Watch.Hit() != WatchRead {
		t.Fatalf("read watch: %v hit %v", err, s.Watch.Hit())
	}
}

func TestParseWatchMode(t *testing.T) {
	m, ok := ParseWatchMode("rw")
	if !ok || m != WatchRead|WatchWrite || m.String() != "read/write" {
		t.Fatalf("ParseWatchMode(rw) = %v %v", m, ok)
	}
	if _, ok := ParseWatchMode("q"); ok {
		t.Fatalf("ParseWatchMode(q) should fail")
	}
}
