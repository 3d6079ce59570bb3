package preprocess

import (
	"errors"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// operatorRewriter turns C-style boolean operators into Lua. "!=" must come
// before "!" so the longer token wins.
var operatorRewriter = strings.NewReplacer(
	"&&", " and ",
	"||", " or ",
	"!=", " ~= ",
	"!", " not ",
)

// errUndefined signals that an expression referenced an undefined symbol.
var errUndefined = errors.New("symbol is not defined")

// evaluator runs #ifdef expressions in a sandboxed Lua VM. Each call gets a
// fresh environment holding only the symbol table, so expressions cannot
// reach Lua globals or leak state into each other or into the table.
type evaluator struct {
	L       *lua.LState
	missing string
}

func newEvaluator() *evaluator {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	// Only the pure libraries are opened; os, io and debug stay out.
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			panic(err)
		}
	}
	sandboxLuaVM(L)
	return &evaluator{L: L}
}

// sandboxLuaVM removes the base functions that could load code or reach the
// host. The string library stays so methods on string values still work.
func sandboxLuaVM(L *lua.LState) {
	L.SetGlobal("os", lua.LNil)
	L.SetGlobal("io", lua.LNil)
	L.SetGlobal("require", lua.LNil)
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	L.SetGlobal("load", lua.LNil)
	L.SetGlobal("loadstring", lua.LNil)
	L.SetGlobal("debug", lua.LNil)
	L.SetGlobal("package", lua.LNil)
	L.SetGlobal("module", lua.LNil)
	L.SetGlobal("setfenv", lua.LNil)
	L.SetGlobal("getfenv", lua.LNil)
	L.SetGlobal("rawset", lua.LNil)
	L.SetGlobal("setmetatable", lua.LNil)
	L.SetGlobal("collectgarbage", lua.LNil)
}

func (e *evaluator) close() {
	e.L.Close()
}

// eval reports whether expr holds with the given bindings. A defined symbol
// is true whatever its value; only comparisons look at values. A reference
// to an undefined symbol makes the whole expression false. Any other failure
// is returned.
func (e *evaluator) eval(expr string, symbols map[string]string) (bool, error) {
	L := e.L
	e.missing = ""

	fn, err := L.LoadString("return " + operatorRewriter.Replace(expr))
	if err != nil {
		return false, err
	}

	env := L.NewTable()
	for name, value := range symbols {
		env.RawSetString(name, toLuaValue(value))
	}
	mt := L.NewTable()
	mt.RawSetString("__index", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(2)
		e.missing = key
		L.RaiseError("%s is not defined", key)
		return 0
	}))
	L.SetMetatable(env, mt)
	L.SetFEnv(fn, env)

	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if e.missing != "" {
			return false, errUndefined
		}
		return false, err
	}
	result := L.Get(-1)
	L.Pop(1)

	return truthy(result), nil
}

// toLuaValue exposes numeric symbol values as numbers so comparisons like
// "MOZ_VERSION >= 22" work.
func toLuaValue(value string) lua.LValue {
	if n, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
		return lua.LNumber(n)
	}
	return lua.LString(value)
}

// truthy follows Lua: only nil and false are false, so "#define X 0" still
// satisfies "#ifdef X".
func truthy(v lua.LValue) bool {
	return lua.LVAsBool(v)
}
