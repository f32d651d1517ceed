package cpu

// HistoryEntry is the register state seen just before an instruction ran.
type HistoryEntry struct {
	Model  Model
	PC     uint16
	AF, BC uint16
	DE, HL uint16
	IX, IY uint16
	SP     uint16
}

// History is a fixed size ring of executed instructions.
type History struct {
	entries []HistoryEntry
	next    int
	count   int
}

func newHistory(depth int) *History {
	return &History{entries: make([]HistoryEntry, depth)}
}

func (h *History) add(e HistoryEntry) {
	h.entries[h.next] = e
	h.next = (h.next + 1) % len(h.entries)
	if h.count < len(h.entries) {
		h.count++
	}
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return h.count
}

// Entries returns the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	n := len(h.entries)
	out := make([]HistoryEntry, 0, h.count)
	for i := range h.count {
		out = append(out, h.entries[(h.next-h.count+i+n)%n])
	}
	return out
}

// DropLast forgets the newest entry.
func (h *History) DropLast() {
	if h.count == 0 {
		return
	}
	h.next = (h.next - 1 + len(h.entries)) % len(h.entries)
	h.count--
}

// Clear removes all entries.
func (h *History) Clear() {
	h.next = 0
	h.count = 0
}

// History returns the history ring, or nil when recording is disabled.
func (c *CPU) History() *History {
	return c.history
}

func (c *CPU) record() {
	c.history.add(HistoryEntry{
		Model: c.model,
		PC:    c.PC,
		AF:    c.AF(),
		BC:    c.BC(),
		DE:    c.DE(),
		HL:    c.HL(),
		IX:    c.IX,
		IY:    c.IY,
		SP:    c.SP,
	})
}
