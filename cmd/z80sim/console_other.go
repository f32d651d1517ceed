//go:build !unix

package main

import "context"

// Run feeds stdin to the console until ctx is done or stdin reaches end of
// file. The blocked read is abandoned when ctx ends.
func (h *ConsoleHost) Run(ctx context.Context) error {
	h.makeRaw()
	defer h.restore()

	bytes := make(chan byte, 64)
	go func() {
		defer close(bytes)
		buf := make([]byte, 1)
		for {
			n, err := h.in.Read(buf)
			if n > 0 {
				bytes <- buf[0]
			}
			if err != nil {
				return
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case b, ok := <-bytes:
			if !ok {
				return nil
			}
			h.route(b)
		}
	}
}
