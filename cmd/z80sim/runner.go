package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/udo-munk/z80pack-sub002/cpu"
	"github.com/udo-munk/z80pack-sub002/debug"
	"github.com/udo-munk/z80pack-sub002/machine"
)

// throttleSlice is the emulated time the CPU runs between two speed checks.
const throttleSlice = 10 * time.Millisecond

// Runner runs a machine with its console host and stops it on SIGINT or
// SIGTERM.
type Runner struct {
	Sys     *machine.System
	Session *debug.Session
	// Host is nil when console input is not connected.
	Host *ConsoleHost
	// SpeedMHz limits the emulated clock, 0 runs as fast as possible.
	SpeedMHz float64
	Log      *logrus.Entry
}

// Run returns the error that stopped the CPU. The console host and the
// signal watcher end with it.
func (r *Runner) Run(ctx context.Context) (cpu.Error, error) {
	r.Sys.Ports.Seal()
	g, ctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	result := cpu.None
	g.Go(func() error {
		defer stop()
		r.Log.WithField("model", r.Sys.CPU.Model()).Info("CPU running")
		if r.SpeedMHz > 0 {
			result = r.throttled(runCtx)
		} else {
			result = r.Session.Go(runCtx)
		}
		r.Log.WithField("error", result).Info("CPU stopped")
		return nil
	})
	if r.Host != nil {
		g.Go(func() error {
			return r.Host.Run(runCtx)
		})
	}
	g.Go(func() error {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			r.Log.WithField("signal", sig).Debug("stopping CPU")
			stop()
		case <-runCtx.Done():
		}
		return nil
	})
	err := g.Wait()
	return result, err
}

// throttled runs the CPU in slices of sliceBudget T-states and sleeps
// whenever the emulated clock gets ahead of SpeedMHz.
func (r *Runner) throttled(ctx context.Context) cpu.Error {
	c := r.Sys.CPU
	budget := sliceBudget(r.SpeedMHz)
	start := time.Now()
	t0 := c.T
	defer c.StopAt(0)
	for {
		c.StopAt(c.T + budget)
		err := r.Session.Go(ctx)
		if err != cpu.None {
			return err
		}
		wait := throttleDelay(c.T-t0, r.SpeedMHz, time.Since(start))
		if wait <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			// Go sees the done context and stops with UserInt.
			return r.Session.Go(ctx)
		case <-time.After(wait):
		}
	}
}

// sliceBudget is the number of T-states a clock of mhz executes in one
// throttleSlice.
func sliceBudget(mhz float64) uint64 {
	return max(uint64(mhz*float64(throttleSlice/time.Microsecond)), 1)
}

// throttleDelay is how long to pause after executing t T-states in elapsed
// time at a clock of mhz.
func throttleDelay(t uint64, mhz float64, elapsed time.Duration) time.Duration {
	due := time.Duration(float64(t) / mhz * float64(time.Microsecond))
	return due - elapsed
}
