package script

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Runtime is a Lua state shared by every plugin loaded into it.
// gopher-lua states are not goroutine safe, so all access goes through Do.
type Runtime struct {
	mu     sync.Mutex
	state  *lua.LState
	closed bool
}

// NewRuntime creates a runtime with the Lua standard libraries opened
func NewRuntime() *Runtime {
	return &Runtime{state: lua.NewState()}
}

// Do runs fn with exclusive access to the Lua state.
// While fn runs, ctx is installed on the state so that cancelling it aborts
// the Lua code currently executing.
func (r *Runtime) Do(ctx context.Context, fn func(L *lua.LState) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRuntimeClosed
	}

	if ctx != nil {
		r.state.SetContext(ctx)
		defer r.state.RemoveContext()
	}

	return fn(r.state)
}

// Close releases the Lua state. Plugins loaded into the runtime become unusable.
func (r *Runtime) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.state.Close()
}

// Instantiate creates an object from an entry point value.
//
// A table is treated as a class: the new object gets the class as its __index
// and, when the class defines init, init(self) is called. A function is
// treated as a constructor and must return a table.
func Instantiate(L *lua.LState, class lua.LValue) (*lua.LTable, error) {
	switch c := class.(type) {
	case *lua.LFunction:
		if err := L.CallByParam(lua.P{Fn: c, NRet: 1, Protect: true}); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)

		obj, ok := ret.(*lua.LTable)
		if !ok {
			return nil, fmt.Errorf("constructor returned a %s, expected a table", ret.Type())
		}
		return obj, nil

	case *lua.LTable:
		obj := L.NewTable()
		mt := L.NewTable()
		mt.RawSetString("__index", c)
		L.SetMetatable(obj, mt)

		if init := L.GetField(c, "init"); init.Type() == lua.LTFunction {
			if err := L.CallByParam(lua.P{Fn: init, NRet: 0, Protect: true}, obj); err != nil {
				return nil, err
			}
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("%w: got a %s", ErrNotInstantiable, class.Type())
	}
}

// MissingMethods returns the names that do not resolve to functions on obj.
// Lookups go through metatables, so inherited methods count.
func MissingMethods(L *lua.LState, obj lua.LValue, names ...string) []string {
	var missing []string
	for _, name := range names {
		if L.GetField(obj, name).Type() != lua.LTFunction {
			missing = append(missing, name)
		}
	}
	return missing
}

// CallMethod calls obj:name(args...) and returns its first result.
func CallMethod(L *lua.LState, obj lua.LValue, name string, args ...lua.LValue) (lua.LValue, error) {
	fn := L.GetField(obj, name)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, fmt.Errorf("method %s is not a function", name)
	}

	callArgs := make([]lua.LValue, 0, len(args)+1)
	callArgs = append(callArgs, obj)
	callArgs = append(callArgs, args...)

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, callArgs...); err != nil {
		return lua.LNil, err
	}
	ret := L.Get(-1)
	L.Pop(1)
	return ret, nil
}

// StringList converts values to a Lua array.
func StringList(L *lua.LState, values []string) *lua.LTable {
	t := L.CreateTable(len(values), 0)
	for _, v := range values {
		t.Append(lua.LString(v))
	}
	return t
}
