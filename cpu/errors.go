package cpu

import "fmt"

// Error is the reason the CPU stopped. None means it is still good to run.
type Error int

const (
	None      Error = 0
	OpHalt    Error = 1  // HALT with interrupts disabled
	IOTrapIn  Error = 2  // input from an unmapped port
	IOTrapOut Error = 3  // output to an unmapped port
	IOHalt    Error = 4  // machine halted through an I/O port
	IOError   Error = 5  // fatal device error
	OpTrap1   Error = 6  // illegal 1-byte opcode
	OpTrap2   Error = 7  // illegal 2-byte opcode
	OpTrap4   Error = 8  // illegal 4-byte opcode
	UserInt   Error = 9  // stopped by the user
	IntError  Error = 10 // unsupported bus data during INT
	PowerOff  Error = 255
)

var errorNames = map[Error]string{
	None:      "none",
	OpHalt:    "op halt",
	IOTrapIn:  "I/O trap in",
	IOTrapOut: "I/O trap out",
	IOHalt:    "I/O halt",
	IOError:   "I/O error",
	OpTrap1:   "op trap 1",
	OpTrap2:   "op trap 2",
	OpTrap4:   "op trap 4",
	UserInt:   "user interrupt",
	IntError:  "interrupt error",
	PowerOff:  "power off",
}

func (e Error) String() string {
	if name, ok := errorNames[e]; ok {
		return name
	}
	return fmt.Sprintf("error %d", int(e))
}

func (e Error) Error() string {
	return "cpu: " + e.String()
}

// trapLength is the number of opcode bytes reported for an OpTrapN error.
func (e Error) trapLength() int {
	switch e {
	case OpTrap1:
		return 1
	case OpTrap2:
		return 2
	case OpTrap4:
		return 4
	}
	return 0
}

// ErrorReport describes the current error the way an operator console
// prints it. It returns "" when no error is pending.
func (c *CPU) ErrorReport() string {
	e := c.Err()
	switch e {
	case None:
		return ""
	case OpHalt:
		return fmt.Sprintf("INT disabled and HALT Op-Code reached at 0x%04x", c.PC-1)
	case IOTrapIn:
		return fmt.Sprintf("I/O input Trap at 0x%04x, port 0x%02x", c.PC, c.lastPort)
	case IOTrapOut:
		return fmt.Sprintf("I/O output Trap at 0x%04x, port 0x%02x", c.PC, c.lastPort)
	case IOHalt:
		return "System halted"
	case IOError:
		return fmt.Sprintf("Fatal I/O Error at 0x%04x", c.PC)
	case OpTrap1, OpTrap2, OpTrap4:
		n := e.trapLength()
		at := c.PC - uint16(n)
		s := fmt.Sprintf("Op-code trap at 0x%04x", at)
		for i := range n {
			s += fmt.Sprintf(" %02x", c.peek(at+uint16(i)))
		}
		return s
	case UserInt:
		return fmt.Sprintf("User Interrupt at 0x%04x", c.PC)
	case IntError:
		return fmt.Sprintf("Unsupported bus data during INT: 0x%02x", byte(c.badIntData))
	case PowerOff:
		return "System powered off"
	}
	return fmt.Sprintf("Unknown error %d", int(e))
}
