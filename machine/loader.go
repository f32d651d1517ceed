// loader.go - Memory image loaders: raw binary, Mostek and Intel HEX

package machine

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Poker stores bytes without bus side effects.
type Poker interface {
	Poke(addr uint16, value byte)
}

// LoadResult describes what a loader stored.
type LoadResult struct {
	Start uint16
	End   uint16
	Count int
	// PC is the start address the image asks for.
	PC uint16
}

func (r LoadResult) String() string {
	return fmt.Sprintf("START : %04XH\nEND   : %04XH\nPC    : %04XH\nLOADED: %04XH (%d)",
		r.Start, r.End, r.PC, r.Count&0xFFFF, r.Count&0xFFFF)
}

var ErrEmptyImage = errors.New("empty image")

// LoadBinary copies data to addr. The image must fit below 64K.
func LoadBinary(mem Poker, addr uint16, data []byte) (LoadResult, error) {
	if len(data) == 0 {
		return LoadResult{}, ErrEmptyImage
	}
	end := int(addr) + len(data)
	if end > MemorySize {
		return LoadResult{}, fmt.Errorf("binary image too large: end=0x%X, limit=0x%X", end, MemorySize)
	}
	for i, b := range data {
		mem.Poke(addr+uint16(i), b)
	}
	return LoadResult{Start: addr, End: uint16(end - 1), Count: len(data), PC: addr}, nil
}

// LoadMostek loads a binary image with the three byte Mostek header
// 0xFF, load address low, load address high.
func LoadMostek(mem Poker, data []byte) (LoadResult, error) {
	if len(data) < 3 || data[0] != 0xFF {
		return LoadResult{}, errors.New("invalid Mostek header")
	}
	addr := uint16(data[2])<<8 | uint16(data[1])
	body := data[3:]
	if int(addr)+len(body) > MemorySize {
		body = body[:MemorySize-int(addr)]
	}
	if len(body) == 0 {
		return LoadResult{Start: addr, End: addr, PC: addr}, nil
	}
	return LoadBinary(mem, addr, body)
}

// LoadHex loads Intel HEX records. Data records are stored, the end of
// file record stops the load and its address, when not zero, becomes PC.
// Otherwise PC is the lowest loaded address.
func LoadHex(mem Poker, r io.Reader) (LoadResult, error) {
	sc := bufio.NewScanner(r)
	start, end := 0xFFFF, 0
	entry := 0
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(text, ":") {
			continue
		}
		rec, err := decodeHexRecord(text[1:])
		if err != nil {
			return LoadResult{}, fmt.Errorf("line %d: %w: %s", line, err, text)
		}
		count := int(rec[0])
		addr := int(rec[1])<<8 | int(rec[2])
		if rec[3] == 1 {
			entry = addr
			break
		}
		if rec[3] != 0 {
			continue
		}
		if count == 0 {
			continue
		}
		if addr < start {
			start = addr
		}
		if addr+count-1 > end {
			end = addr + count - 1
		}
		for i := range count {
			mem.Poke(uint16(addr+i), rec[4+i])
		}
	}
	if err := sc.Err(); err != nil {
		return LoadResult{}, fmt.Errorf("read hex: %w", err)
	}
	res := LoadResult{}
	if start <= end {
		res.Start, res.End = uint16(start), uint16(end)
		res.Count = end - start + 1
	}
	res.PC = res.Start
	if entry != 0 {
		res.PC = uint16(entry)
	}
	return res, nil
}

// decodeHexRecord turns the hex digits of one record into bytes and checks
// length and checksum.
func decodeHexRecord(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, errors.New("odd number of characters in HEX record")
	}
	rec := make([]byte, len(s)/2)
	var sum byte
	for i := range rec {
		hi, ok1 := hexDigit(s[2*i])
		lo, ok2 := hexDigit(s[2*i+1])
		if !ok1 || !ok2 {
			return nil, errors.New("invalid character in HEX record")
		}
		rec[i] = hi<<4 | lo
		sum += rec[i]
	}
	if len(rec) < 5 {
		return nil, errors.New("invalid HEX record")
	}
	if sum != 0 {
		return nil, errors.New("invalid checksum in HEX record")
	}
	if int(rec[0])+5 != len(rec) {
		return nil, errors.New("invalid count in HEX record")
	}
	return rec, nil
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}

// LoadFile loads path into the machine. A file starting with 0xFF is a
// Mostek image, anything else is Intel HEX. PC is set to the image's start
// address.
func (s *System) LoadFile(path string) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", path, err)
	}
	if len(data) == 0 {
		return LoadResult{}, fmt.Errorf("load %s: %w", path, ErrEmptyImage)
	}
	var res LoadResult
	if data[0] == 0xFF {
		res, err = LoadMostek(s.Memory, data)
	} else {
		res, err = LoadHex(s.Memory, bytes.NewReader(data))
	}
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", path, err)
	}
	s.CPU.PC = res.PC
	s.log.WithField("file", path).Infof("loader statistics\n%s", res)
	return res, nil
}

// LoadBinaryFile loads a raw binary image at addr and sets PC to it.
func (s *System) LoadBinaryFile(path string, addr uint16) (LoadResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", path, err)
	}
	res, err := LoadBinary(s.Memory, addr, data)
	if err != nil {
		return LoadResult{}, fmt.Errorf("load %s: %w", path, err)
	}
	s.CPU.PC = res.PC
	s.log.WithField("file", path).Infof("loader statistics\n%s", res)
	return res, nil
}
