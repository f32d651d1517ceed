// console.go - Console device behind the status and data ports

package machine

import (
	"io"
	"sync"
)

const (
	ConsoleStatusPort = 0
	ConsoleDataPort   = 1
)

// Console is the terminal of the simulated machine. The host side feeds
// keystrokes with EnqueueByte; the CPU polls the status port and reads the
// data port. Output goes to the writer given to NewConsole.
type Console struct {
	mu sync.Mutex

	inputBuf  [1024]byte
	inputHead int
	inputTail int
	inputLen  int

	out io.Writer
}

// NewConsole creates a console writing to out. A nil out discards output.
func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = io.Discard
	}
	return &Console{out: out}
}

// Status is 0xFF when a character is waiting, 0x00 otherwise.
func (c *Console) Status() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputLen > 0 {
		return 0xFF
	}
	return 0x00
}

// ReadData returns the next input character, or 0 when none is waiting.
func (c *Console) ReadData() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputLen == 0 {
		return 0
	}
	b := c.inputBuf[c.inputHead]
	c.inputHead = (c.inputHead + 1) % len(c.inputBuf)
	c.inputLen--
	return b
}

// WriteData sends one character to the output writer.
func (c *Console) WriteData(b byte) error {
	_, err := c.out.Write([]byte{b})
	return err
}

// EnqueueByte adds a host keystroke. Input beyond the buffer size is dropped.
func (c *Console) EnqueueByte(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inputLen >= len(c.inputBuf) {
		return
	}
	c.inputBuf[c.inputTail] = b
	c.inputTail = (c.inputTail + 1) % len(c.inputBuf)
	c.inputLen++
}

// EnqueueString feeds every byte of s as input.
func (c *Console) EnqueueString(s string) {
	for i := range len(s) {
		c.EnqueueByte(s[i])
	}
}

// Pending returns the number of buffered input characters.
func (c *Console) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inputLen
}
