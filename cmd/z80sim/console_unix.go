//go:build unix

package main

import (
	"context"
	"time"

	"golang.org/x/sys/unix"
)

// Run feeds stdin to the console until ctx is done or stdin reaches end of
// file.
func (h *ConsoleHost) Run(ctx context.Context) error {
	h.makeRaw()
	defer h.restore()

	if err := unix.SetNonblock(h.fd, true); err != nil {
		h.log.WithError(err).Warn("can't set nonblocking stdin, console input disabled")
		return nil
	}
	defer unix.SetNonblock(h.fd, false)

	buf := make([]byte, 64)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := unix.Read(h.fd, buf)
		for _, b := range buf[:max(n, 0)] {
			h.route(b)
		}
		switch {
		case err == unix.EAGAIN || err == unix.EINTR:
			time.Sleep(5 * time.Millisecond)
		case err != nil:
			h.log.WithError(err).Warn("console input closed")
			return nil
		case n == 0:
			return nil
		}
	}
}
