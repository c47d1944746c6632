package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/internal/ctxlog"
	lua "github.com/yuin/gopher-lua"
)

// DefaultTimeout bounds a single script execution.
const DefaultTimeout = 2 * time.Second

// Options configures a Runtime.
type Options struct {
	// Fonts resolves cell widths for pre-wrapping vertical scrollers. When nil,
	// lines are wrapped on first draw instead.
	Fonts *matrixclock.FontStore
	// ArenaLimit is the per-module byte budget; 0 selects DefaultArenaLimit.
	ArenaLimit int
	// Timeout bounds each script execution; 0 selects DefaultTimeout.
	Timeout time.Duration
}

// Runtime loads module and config scripts from a scripts filesystem. Every
// load runs in a fresh interpreter state that is closed before the load
// returns. A Runtime is owned by a single goroutine.
type Runtime struct {
	fsys    fs.FS
	fonts   *matrixclock.FontStore
	arena   *Arena
	timeout time.Duration
}

// NewRuntime returns a runtime reading scripts from fsys.
func NewRuntime(fsys fs.FS, opts Options) *Runtime {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runtime{
		fsys:    fsys,
		fonts:   opts.Fonts,
		arena:   NewArena(opts.ArenaLimit),
		timeout: timeout,
	}
}

// Arena returns the arena holding the current module's owned data.
func (r *Runtime) Arena() *Arena {
	return r.arena
}

// unsafeGlobals are removed from every state after the base library opens.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// newState opens a sandboxed interpreter bounded by the runtime timeout.
// values is exposed to the script as the CONFIG table.
func (r *Runtime) newState(ctx context.Context, name string, values map[string]string) (*lua.LState, context.CancelFunc, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{Fn: L.NewFunction(lib.open), NRet: 0, Protect: true}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, nil, fmt.Errorf("script: open %q library: %w", lib.name, err)
		}
	}
	for _, g := range unsafeGlobals {
		L.SetGlobal(g, lua.LNil)
	}

	logger := ctxlog.FromContext(ctx).With(slog.String("script", name))
	L.SetGlobal("print", L.NewFunction(func(L *lua.LState) int {
		parts := make([]string, 0, L.GetTop())
		for i := 1; i <= L.GetTop(); i++ {
			parts = append(parts, L.Get(i).String())
		}
		logger.Info(strings.Join(parts, " "))
		return 0
	}))

	fonts := L.NewTable()
	for _, id := range matrixclock.FontIDs() {
		fonts.RawSetString(string(id), lua.LString(id))
	}
	L.SetGlobal("Fonts", fonts)

	cfg := L.NewTable()
	for k, v := range values {
		cfg.RawSetString(k, lua.LString(v))
	}
	L.SetGlobal("CONFIG", cfg)

	registerHelpers(L)
	registerBuilder(L)

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	L.SetContext(ctx)
	return L, cancel, nil
}

// exec compiles and runs file, leaving nret results on the stack.
func (r *Runtime) exec(ctx context.Context, L *lua.LState, file string, nret int) error {
	if !fs.ValidPath(file) {
		return fmt.Errorf("%w: %q", matrixclock.ErrPathEscape, file)
	}
	src, err := fs.ReadFile(r.fsys, file)
	if err != nil {
		return fmt.Errorf("script: read %s: %w", file, err)
	}
	fn, err := L.Load(bytes.NewReader(src), file)
	if err != nil {
		return fmt.Errorf("script: compile %s: %w", file, err)
	}
	L.Push(fn)
	if err := L.PCall(0, nret, nil); err != nil {
		return runError(L, file, err)
	}
	return nil
}

// runError attaches the timeout cause when the execution context expired.
func runError(L *lua.LState, file string, err error) error {
	if ctx := L.Context(); ctx != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("script: run %s: %w", file, context.DeadlineExceeded)
	}
	return fmt.Errorf("script: run %s: %w", file, err)
}

// --- helpers ---

func tagMetatable(L *lua.LState, kind string) *lua.LTable {
	mt := L.NewTypeMetatable("matrixclock." + kind)
	mt.RawSetString(kindField, lua.LString(kind))
	return mt
}

// registerHelpers installs the Color, Pos and Anim constructors. Tables built
// by them carry a kind tag and are never classified by shape alone.
func registerHelpers(L *lua.LState) {
	colorMT := tagMetatable(L, kindColor)
	posMT := tagMetatable(L, kindPosition)
	animMT := tagMetatable(L, kindAnimation)

	L.SetGlobal("Color", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("r", L.CheckNumber(1))
		t.RawSetString("g", L.CheckNumber(2))
		t.RawSetString("b", L.CheckNumber(3))
		L.SetMetatable(t, colorMT)
		L.Push(t)
		return 1
	}))
	L.SetGlobal("Pos", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("x", L.CheckNumber(1))
		t.RawSetString("y", L.CheckNumber(2))
		L.SetMetatable(t, posMT)
		L.Push(t)
		return 1
	}))
	L.SetGlobal("Anim", L.NewFunction(func(L *lua.LState) int {
		t := L.NewTable()
		t.RawSetString("duration", L.CheckNumber(1))
		t.RawSetString("loop", lua.LBool(L.CheckBool(2)))
		t.RawSetString("speed", L.CheckNumber(3))
		L.SetMetatable(t, animMT)
		L.Push(t)
		return 1
	}))
}
