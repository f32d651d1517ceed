// memory.go - Flat and banked memory for the simulated machines

package machine

import "fmt"

const (
	MemorySize = 0x10000
	PageSize   = 0x100

	MaxBanks           = 16
	DefaultSegmentSize = 0xC000
)

// Memory is the address space the CPU sees. Write is a CPU write and may be
// refused or have side effects; Poke stores unconditionally and is used by
// loaders and the debugger.
type Memory interface {
	Read(addr uint16) byte
	Write(addr uint16, value byte)
	DMAWrite(addr uint16, value byte)
	Poke(addr uint16, value byte)
	Reset()
}

// Flat is a single 64K address space with optional read-only pages.
type Flat struct {
	mem [MemorySize]byte
	rom [MemorySize / PageSize]bool
}

func NewFlat() *Flat {
	return &Flat{}
}

// SetROM marks the pages covering first..last as read-only for the CPU.
func (m *Flat) SetROM(first, last uint16) {
	for page := int(first) / PageSize; page <= int(last)/PageSize; page++ {
		m.rom[page] = true
	}
}

func (m *Flat) IsROM(addr uint16) bool {
	return m.rom[addr/PageSize]
}

func (m *Flat) Read(addr uint16) byte {
	return m.mem[addr]
}

func (m *Flat) Write(addr uint16, value byte) {
	if m.rom[addr/PageSize] {
		return
	}
	m.mem[addr] = value
}

func (m *Flat) DMAWrite(addr uint16, value byte) {
	m.Write(addr, value)
}

func (m *Flat) Poke(addr uint16, value byte) {
	m.mem[addr] = value
}

// Reset clears RAM and leaves ROM pages untouched.
func (m *Flat) Reset() {
	for page, ro := range m.rom {
		if ro {
			continue
		}
		clear(m.mem[page*PageSize : (page+1)*PageSize])
	}
}

// Banked is the MMU of the CP/M simulator: bank 0 is a full 64K, every
// further bank replaces the addresses below the segment size. The common
// segment above it is always bank 0 and can be write protected.
type Banked struct {
	banks    [MaxBanks][]byte
	count    int
	selected int
	segSize  int
	protect  byte

	// onViolation is called when a CPU write hits the protected common
	// segment while bit 6 of the protect register is set.
	onViolation func()
}

func NewBanked() *Banked {
	m := &Banked{segSize: DefaultSegmentSize, count: 1}
	m.banks[0] = make([]byte, MemorySize)
	return m
}

// OnViolation installs the callback for protected writes, normally the
// NMI line of the CPU.
func (m *Banked) OnViolation(fn func()) {
	m.onViolation = fn
}

func (m *Banked) bank(addr uint16) []byte {
	if m.selected == 0 || int(addr) >= m.segSize {
		return m.banks[0]
	}
	return m.banks[m.selected]
}

func (m *Banked) Read(addr uint16) byte {
	return m.bank(addr)[addr]
}

func (m *Banked) Write(addr uint16, value byte) {
	if int(addr) >= m.segSize && m.protect != 0 {
		m.protect |= 0x80
		if m.protect&0x40 != 0 && m.onViolation != nil {
			m.onViolation()
		}
		return
	}
	m.bank(addr)[addr] = value
}

// DMAWrite honours write protection but never raises the violation callback.
func (m *Banked) DMAWrite(addr uint16, value byte) {
	if int(addr) >= m.segSize && m.protect != 0 {
		m.protect |= 0x80
		return
	}
	m.bank(addr)[addr] = value
}

func (m *Banked) Poke(addr uint16, value byte) {
	m.bank(addr)[addr] = value
}

// Reset selects bank 0 and removes write protection. Allocated banks and
// their contents stay, the way a reboot of the real machine leaves them.
func (m *Banked) Reset() {
	m.selected = 0
	m.protect = 0
}

// Banks returns the number of initialised banks, bank 0 included.
func (m *Banked) Banks() int {
	return m.count
}

// InitBanks allocates banks so that n exist in total. Only the first call
// allocates; later calls are ignored.
func (m *Banked) InitBanks(n int) error {
	if m.banks[1] != nil {
		return nil
	}
	if n > MaxBanks {
		return fmt.Errorf("init %d banks, available %d banks", n, MaxBanks)
	}
	for i := 1; i < n; i++ {
		m.banks[i] = make([]byte, m.segSize)
	}
	if n > 1 {
		m.count = n
	}
	return nil
}

func (m *Banked) Selected() int {
	return m.selected
}

func (m *Banked) SelectBank(n int) error {
	if n > m.count-1 {
		return fmt.Errorf("select unallocated bank %d", n)
	}
	m.selected = n
	return nil
}

// SegmentPages returns the segment size in 256 byte pages.
func (m *Banked) SegmentPages() byte {
	return byte(m.segSize >> 8)
}

// SetSegmentPages sets the segment size; it must happen before InitBanks.
func (m *Banked) SetSegmentPages(pages byte) error {
	if m.banks[1] != nil {
		return fmt.Errorf("resize already allocated segments")
	}
	m.segSize = int(pages) << 8
	return nil
}

// Protect returns the write protect register. Bit 7 latches a violation.
func (m *Banked) Protect() byte {
	return m.protect
}

func (m *Banked) SetProtect(v byte) {
	m.protect = v
}
