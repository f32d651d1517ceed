package debug

import (
	"fmt"
	"io"

	"github.com/udo-munk/z80pack-sub002/cpu"
)

// FormatHistory writes one line per entry, oldest first. With from >= 0
// output starts at the first entry whose PC is at least from. Each line
// uses the register layout of the model that executed it.
func FormatHistory(w io.Writer, entries []cpu.HistoryEntry, from int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "History memory is empty")
		return err
	}
	for _, e := range entries {
		if from >= 0 {
			if int(e.PC) < from {
				continue
			}
			from = -1
		}
		var err error
		if e.Model == cpu.Z80 {
			_, err = fmt.Fprintf(w, "%04x AF=%04x BC=%04x DE=%04x HL=%04x IX=%04x IY=%04x SP=%04x\n",
				e.PC, e.AF, e.BC, e.DE, e.HL, e.IX, e.IY, e.SP)
		} else {
			_, err = fmt.Fprintf(w, "%04x AF=%04x BC=%04x DE=%04x HL=%04x SP=%04x\n",
				e.PC, e.AF, e.BC, e.DE, e.HL, e.SP)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
