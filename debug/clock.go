package debug

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// DefaultClockDuration is how long MeasureClock runs when d <= 0.
const DefaultClockDuration = 3 * time.Second

// ErrInterrupted is returned when a measurement is stopped from outside.
var ErrInterrupted = errors.New("interrupted by user")

// ClockResult is the outcome of MeasureClock.
type ClockResult struct {
	Model        cpu.Model
	Instructions uint64
	T            uint64
	Duration     time.Duration
}

// MHz is the emulated clock frequency.
func (r ClockResult) MHz() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.T) / r.Duration.Seconds() / 1e6
}

func (r ClockResult) String() string {
	jump := "JP"
	if r.Model == cpu.I8080 {
		jump = "JMP"
	}
	return fmt.Sprintf("CPU executed %d %s instructions in %v\nclock frequency = %5.2f Mhz",
		r.Instructions, jump, r.Duration, r.MHz())
}

// MeasureClock runs a jump-to-self loop at address 0 for d and reports the
// speed. Memory at 0-2 and PC are restored afterwards. It fails with
// ErrInterrupted when ctx ends first or the CPU stops for another reason.
func MeasureClock(ctx context.Context, c *cpu.CPU, mem Memory, d time.Duration) (ClockResult, error) {
	if d <= 0 {
		d = DefaultClockDuration
	}
	var saved [3]byte
	for i := range saved {
		saved[i] = mem.Read(uint16(i))
	}
	pc := c.PC
	mem.Poke(0, 0xC3) // JP 0000H, JMP 0000H on the 8080
	mem.Poke(1, 0x00)
	mem.Poke(2, 0x00)
	defer func() {
		for i, b := range saved {
			mem.Poke(uint16(i), b)
		}
		c.PC = pc
	}()

	runCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	c.PC = 0
	t0 := c.T
	start := time.Now()
	err := c.RunContext(runCtx)
	elapsed := time.Since(start)
	if err != cpu.UserInt || ctx.Err() != nil {
		return ClockResult{}, ErrInterrupted
	}
	c.ClearError()
	t := c.T - t0
	return ClockResult{Model: c.Model(), Instructions: t / 10, T: t, Duration: elapsed.Round(time.Millisecond)}, nil
}
