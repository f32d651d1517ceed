// lua.go - Machine configuration scripts
//
// A script is plain Lua that leaves a global table called machine:
//
//	machine = {
//	    cpu = "8080",
//	    banked = true,
//	    rom = { start = 0xF000, stop = 0xFFFF },
//	    breakpoints = { 0x0100, { addr = 0x0200, pass = 3 } },
//	    watch = { addr = 0x4000, mode = "w" },
//	}
//
// Only the base, table, string and math libraries are available.

package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}

// LoadLua runs the script at path and applies its machine table.
func (c *Config) LoadLua(path string) error {
	L := newLuaState()
	defer L.Close()
	if err := L.DoFile(path); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	if err := c.applyMachine(L); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// LoadLuaString is LoadLua for a script held in memory.
func (c *Config) LoadLuaString(src string) error {
	L := newLuaState()
	defer L.Close()
	if err := L.DoString(src); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := c.applyMachine(L); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c *Config) applyMachine(L *lua.LState) error {
	tbl, ok := L.GetGlobal("machine").(*lua.LTable)
	if !ok {
		return errors.New("script does not define a machine table")
	}
	var errs []error
	tbl.ForEach(func(k, v lua.LValue) {
		key, ok := k.(lua.LString)
		if !ok {
			errs = append(errs, fmt.Errorf("machine: key %s is not a name", k))
			return
		}
		if err := c.applySetting(string(key), v); err != nil {
			errs = append(errs, fmt.Errorf("machine.%s: %w", key, err))
		}
	})
	return errors.Join(errs...)
}

func (c *Config) applySetting(key string, v lua.LValue) error {
	var err error
	switch key {
	case "cpu":
		var s string
		if s, err = luaString(v); err == nil {
			c.Model, err = ParseModel(s)
		}
	case "undoc":
		c.Undoc, err = luaBool(v)
	case "fast_block":
		c.FastBlock, err = luaBool(v)
	case "bus_status":
		c.BusStatus, err = luaBool(v)
	case "history":
		var n uint64
		n, err = luaUint(v, math.MaxInt32)
		c.History = int(n)
	case "reset_pc":
		c.ResetPC, err = luaUint16(v)
	case "measure":
		c.MeasureStart, c.MeasureEnd, err = luaRange(v)
		c.Measure = err == nil
	case "banked":
		c.Banked, err = luaBool(v)
	case "rom":
		c.ROMStart, c.ROMEnd, err = luaRange(v)
		c.ROM = err == nil
	case "trap_unmapped":
		c.TrapUnmapped, err = luaBool(v)
	case "unused":
		var n uint64
		n, err = luaUint(v, 0xFF)
		c.Unused = byte(n)
	case "speed":
		n, ok := v.(lua.LNumber)
		if !ok {
			return fmt.Errorf("want number, got %s", v.Type())
		}
		c.SpeedMHz = float64(n)
	case "image":
		c.Image, err = luaString(v)
	case "raw":
		c.Raw, err = luaBool(v)
	case "load_addr":
		c.LoadAddr, err = luaUint16(v)
	case "log_level":
		c.LogLevel, err = luaString(v)
	case "breakpoints":
		c.Breakpoints, err = luaBreakpoints(v)
	case "watch":
		c.Watch, err = luaWatch(v)
	case "show_history":
		c.ShowHistory, err = luaBool(v)
	case "clock":
		c.ClockTest, err = luaBool(v)
	default:
		return errors.New("unknown setting")
	}
	return err
}

func luaBool(v lua.LValue) (bool, error) {
	b, ok := v.(lua.LBool)
	if !ok {
		return false, fmt.Errorf("want boolean, got %s", v.Type())
	}
	return bool(b), nil
}

func luaString(v lua.LValue) (string, error) {
	s, ok := v.(lua.LString)
	if !ok {
		return "", fmt.Errorf("want string, got %s", v.Type())
	}
	return string(s), nil
}

func luaUint(v lua.LValue, limit uint64) (uint64, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, fmt.Errorf("want number, got %s", v.Type())
	}
	f := float64(n)
	if f < 0 || f != math.Trunc(f) || f > float64(limit) {
		return 0, fmt.Errorf("%v out of range 0-%d", n, limit)
	}
	return uint64(f), nil
}

func luaUint16(v lua.LValue) (uint16, error) {
	n, err := luaUint(v, 0xFFFF)
	return uint16(n), err
}

func luaField(tbl *lua.LTable, name string) (uint16, error) {
	n, err := luaUint16(tbl.RawGetString(name))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return n, nil
}

// luaRange reads { start = n, stop = n }.
func luaRange(v lua.LValue) (uint16, uint16, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return 0, 0, fmt.Errorf("want { start, stop }, got %s", v.Type())
	}
	start, err := luaField(tbl, "start")
	if err != nil {
		return 0, 0, err
	}
	stop, err := luaField(tbl, "stop")
	if err != nil {
		return 0, 0, err
	}
	return start, stop, nil
}

// luaBreakpoints reads a list whose items are addresses or
// { addr = n, pass = n } tables.
func luaBreakpoints(v lua.LValue) ([]Breakpoint, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("want list, got %s", v.Type())
	}
	var out []Breakpoint
	for i := 1; i <= tbl.Len(); i++ {
		item := tbl.RawGetInt(i)
		bp := Breakpoint{Pass: 1}
		var err error
		switch it := item.(type) {
		case lua.LNumber:
			bp.Addr, err = luaUint16(it)
		case *lua.LTable:
			if bp.Addr, err = luaField(it, "addr"); err == nil && it.RawGetString("pass") != lua.LNil {
				var pass uint64
				pass, err = luaUint(it.RawGetString("pass"), math.MaxInt32)
				bp.Pass = max(int(pass), 1)
			}
		default:
			err = fmt.Errorf("want number or table, got %s", item.Type())
		}
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, bp)
	}
	return out, nil
}

func luaWatch(v lua.LValue) (*Watch, error) {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("want { addr, mode }, got %s", v.Type())
	}
	addr, err := luaField(tbl, "addr")
	if err != nil {
		return nil, err
	}
	mode := "x"
	if m := tbl.RawGetString("mode"); m != lua.LNil {
		if mode, err = luaString(m); err != nil {
			return nil, fmt.Errorf("mode: %w", err)
		}
	}
	return ParseWatch(fmt.Sprintf("$%X:%s", addr, strings.ToLower(mode)))
}
