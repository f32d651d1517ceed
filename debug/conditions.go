// conditions.go - Breakpoint condition parser and evaluator

package debug

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConditionOp is the comparison a Condition applies.
type ConditionOp int

const (
	CondOpEqual ConditionOp = iota
	CondOpNotEqual
	CondOpLess
	CondOpGreater
	CondOpLessEqual
	CondOpGreaterEqual
)

// ConditionSource selects what a Condition compares.
type ConditionSource int

const (
	CondSourceRegister ConditionSource = iota
	CondSourceMemory
	CondSourceHitCount
)

// Condition gates a breakpoint. It is checked each time the breakpoint is
// reached and the hit only counts when it holds.
type Condition struct {
	Source  ConditionSource
	RegName string
	MemAddr uint16
	Op      ConditionOp
	Value   uint64
}

var condOps = []struct {
	text string
	op   ConditionOp
}{
	{"==", CondOpEqual},
	{"!=", CondOpNotEqual},
	{"<=", CondOpLessEqual},
	{">=", CondOpGreaterEqual},
	{"<", CondOpLess},
	{">", CondOpGreater},
}

// ParseAddress parses #decimal, $hex, 0xhex or bare hex.
func ParseAddress(s string) (uint64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	base := 16
	switch {
	case strings.HasPrefix(s, "#"):
		s, base = s[1:], 10
	case strings.HasPrefix(s, "$"):
		s = s[1:]
	case strings.HasPrefix(s, "0x"), strings.HasPrefix(s, "0X"):
		s = s[2:]
	}
	v, err := strconv.ParseUint(s, base, 64)
	return v, err == nil
}

// ParseCondition parses a condition string.
// Formats:
//
//	A==$FF         - register A, op ==, value 0xFF
//	[$1000]==$42   - memory at 0x1000, op ==, value 0x42
//	hitcount>10    - hit count, op >, value 0x10
func ParseCondition(text string) (*Condition, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty condition")
	}

	opIdx := -1
	var opLen int
	var op ConditionOp
	for _, candidate := range condOps {
		if idx := strings.Index(text, candidate.text); idx >= 0 {
			opIdx, opLen, op = idx, len(candidate.text), candidate.op
			break
		}
	}
	if opIdx < 0 {
		return nil, errors.New("no operator found (use ==, !=, <, >, <=, >=)")
	}

	lhs := strings.TrimSpace(text[:opIdx])
	rhs := strings.TrimSpace(text[opIdx+opLen:])
	value, ok := ParseAddress(rhs)
	if !ok {
		return nil, fmt.Errorf("invalid value: %s", rhs)
	}

	switch {
	case strings.HasPrefix(lhs, "[") && strings.HasSuffix(lhs, "]"):
		addrStr := lhs[1 : len(lhs)-1]
		addr, ok := ParseAddress(addrStr)
		if !ok || addr > 0xFFFF {
			return nil, fmt.Errorf("invalid memory address: %s", addrStr)
		}
		return &Condition{Source: CondSourceMemory, MemAddr: uint16(addr), Op: op, Value: value}, nil
	case strings.EqualFold(lhs, "hitcount"):
		return &Condition{Source: CondSourceHitCount, Op: op, Value: value}, nil
	case lhs == "":
		return nil, errors.New("missing register name")
	}
	return &Condition{Source: CondSourceRegister, RegName: strings.ToUpper(lhs), Op: op, Value: value}, nil
}

// Evaluate reports whether cond holds. A nil condition always holds, an
// unknown register never does.
func (cond *Condition) Evaluate(view *View, read ReadFunc, hitCount uint64) bool {
	if cond == nil {
		return true
	}

	var actual uint64
	switch cond.Source {
	case CondSourceRegister:
		val, ok := view.Get(cond.RegName)
		if !ok {
			return false
		}
		actual = val
	case CondSourceMemory:
		actual = uint64(read(cond.MemAddr))
	case CondSourceHitCount:
		actual = hitCount
	}
	return compareValues(actual, cond.Op, cond.Value)
}

func compareValues(actual uint64, op ConditionOp, expected uint64) bool {
	switch op {
	case CondOpEqual:
		return actual == expected
	case CondOpNotEqual:
		return actual != expected
	case CondOpLess:
		return actual < expected
	case CondOpGreater:
		return actual > expected
	case CondOpLessEqual:
		return actual <= expected
	case CondOpGreaterEqual:
		return actual >= expected
	}
	return false
}

func (cond *Condition) String() string {
	if cond == nil {
		return ""
	}

	var lhs string
	switch cond.Source {
	case CondSourceRegister:
		lhs = cond.RegName
	case CondSourceMemory:
		lhs = fmt.Sprintf("[$%X]", cond.MemAddr)
	case CondSourceHitCount:
		lhs = "hitcount"
	}
	opStr := ""
	for _, candidate := range condOps {
		if candidate.op == cond.Op {
			opStr = candidate.text
		}
	}
	return fmt.Sprintf("%s%s$%X", lhs, opStr, cond.Value)
}
