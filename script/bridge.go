package script

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/internal/ctxlog"
	lua "github.com/yuin/gopher-lua"
)

// LoadModule runs the module script file and converts the builder table it
// returns into a validated module. The arena is reset first, so the previous
// module's owned data must no longer be in use. values is exposed to the
// script as CONFIG.
//
// Read and compile failures, script errors and every shape or range problem
// come back as a *ValidationError naming the module. Errors matching IsFatal
// must stop the caller.
func (r *Runtime) LoadModule(ctx context.Context, file string, values map[string]string) (*matrixclock.ClockModule, error) {
	r.arena.Reset()

	L, cancel, err := r.newState(ctx, file, values)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer L.Close()

	if err := r.exec(ctx, L, file, 1); err != nil {
		return nil, &ValidationError{Module: file, Err: err}
	}
	ret := L.Get(-1)
	L.Pop(1)

	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, &ValidationError{Module: file, Err: fmt.Errorf("script returned %s, want builder table", ret.Type())}
	}

	m, err := r.decodeModule(L, file, tbl)
	if err != nil {
		r.arena.Reset()
		return nil, err
	}
	ctxlog.FromContext(ctx).Debug("Loaded module.",
		"file", file,
		"name", m.Name,
		"components", len(m.Root.Components),
		"animations", len(m.Root.Animations),
		"arena_bytes", r.arena.Used(),
	)
	return m, nil
}

func (r *Runtime) decodeModule(L *lua.LState, file string, tbl *lua.LTable) (*matrixclock.ClockModule, error) {
	invalid := func(field string, err error) error {
		return &ValidationError{Module: file, Field: field, Err: err}
	}

	name, ok := tbl.RawGetString(fieldName).(lua.LString)
	if !ok {
		return nil, invalid(fieldName, typeError(tbl.RawGetString(fieldName), lua.LTString))
	}
	ownedName, err := r.arena.String(string(name))
	if err != nil {
		return nil, invalid(fieldName, err)
	}

	limit, err := decodeTimeLimit(tbl.RawGetString(fieldTimeLimit))
	if err != nil {
		return nil, invalid(fieldTimeLimit, err)
	}

	images, err := r.decodeStrings(tbl.RawGetString(fieldImageNames))
	if err != nil {
		return nil, invalid(fieldImageNames, err)
	}
	for _, img := range images {
		if img == matrixclock.EmptyImage {
			continue
		}
		if _, err := matrixclock.ImagePath(img); err != nil {
			return nil, invalid(fieldImageNames, err)
		}
	}

	comps, err := r.decodeComponents(L, tbl.RawGetString(fieldComponents))
	if err != nil {
		return nil, invalid(fieldComponents, err)
	}

	anims, err := r.decodeAnimations(L, tbl.RawGetString(fieldCustomAnimations))
	if err != nil {
		return nil, invalid(fieldCustomAnimations, err)
	}

	root := &matrixclock.RootComponent{Components: comps, Animations: anims}
	if err := root.Validate(); err != nil {
		return nil, invalid(fieldCustomAnimations, err)
	}
	return &matrixclock.ClockModule{
		Name:       ownedName,
		Root:       root,
		TimeLimit:  limit,
		ImageNames: images,
	}, nil
}

func typeError(v lua.LValue, want lua.LValueType) error {
	return fmt.Errorf("got %s, want %s", v.Type(), want)
}

func decodeTimeLimit(v lua.LValue) (time.Duration, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, typeError(v, lua.LTNumber)
	}
	secs := float64(n)
	if math.IsNaN(secs) || secs < 0 || secs > math.MaxInt32 {
		return 0, fmt.Errorf("%v seconds out of range", secs)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// decodeStrings copies a list of strings through the arena; nil is an empty list.
func (r *Runtime) decodeStrings(v lua.LValue) ([]string, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, typeError(v, lua.LTTable)
	}
	out := make([]string, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, fmt.Errorf("entry %d: %w", i, typeError(t.RawGetInt(i), lua.LTString))
		}
		owned, err := r.arena.String(string(s))
		if err != nil {
			return nil, err
		}
		out = append(out, owned)
	}
	return out, nil
}

func (r *Runtime) decodeComponents(L *lua.LState, v lua.LValue) ([]matrixclock.AnyComponent, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, typeError(v, lua.LTTable)
	}
	bc := &buildContext{arena: r.arena, fonts: r.fonts}
	comps := make([]matrixclock.AnyComponent, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		c, err := decodeComponent(L, bc, t.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		comps = append(comps, c)
	}
	return comps, nil
}

func decodeComponent(L *lua.LState, bc *buildContext, v lua.LValue) (matrixclock.AnyComponent, error) {
	entry, ok := v.(*lua.LTable)
	if !ok {
		return matrixclock.AnyComponent{}, typeError(v, lua.LTTable)
	}
	typeID, ok := entry.RawGetString(fieldTypeID).(lua.LString)
	if !ok {
		return matrixclock.AnyComponent{}, fmt.Errorf("%s: %w", fieldTypeID, typeError(entry.RawGetString(fieldTypeID), lua.LTString))
	}
	build, err := lookupConstructor(string(typeID))
	if err != nil {
		return matrixclock.AnyComponent{}, err
	}
	props, ok := entry.RawGetString(fieldProps).(*lua.LTable)
	if !ok {
		return matrixclock.AnyComponent{}, fmt.Errorf("%s: %w", fieldProps, typeError(entry.RawGetString(fieldProps), lua.LTTable))
	}
	args, err := argsFromProps(L, props)
	if err != nil {
		return matrixclock.AnyComponent{}, fmt.Errorf("%s: %w", typeID, err)
	}
	c, err := build(bc, args)
	if err != nil {
		return matrixclock.AnyComponent{}, fmt.Errorf("%s: %w", typeID, err)
	}
	return c, nil
}

// decodeAnimations converts the customanimations list. Targets are 1-based in
// scripts and 0-based in the root.
func (r *Runtime) decodeAnimations(L *lua.LState, v lua.LValue) ([]*matrixclock.CustomAnimation, error) {
	if v == lua.LNil {
		return nil, nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, typeError(v, lua.LTTable)
	}
	var out []*matrixclock.CustomAnimation
	for i := 1; i <= t.Len(); i++ {
		a, err := r.decodeAnimation(L, t.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (r *Runtime) decodeAnimation(L *lua.LState, v lua.LValue) (*matrixclock.CustomAnimation, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, typeError(v, lua.LTTable)
	}

	targetsTbl, ok := t.RawGetString("targets").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("targets: %w", typeError(t.RawGetString("targets"), lua.LTTable))
	}
	targets := make([]int, 0, targetsTbl.Len())
	for i := 1; i <= targetsTbl.Len(); i++ {
		n, err := intValue(targetsTbl.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("targets[%d]: %w", i, err)
		}
		if n < 1 {
			return nil, fmt.Errorf("targets[%d]: %w: index %d", i, matrixclock.ErrAnimationTarget, n)
		}
		targets = append(targets, n-1)
	}

	loop, ok := t.RawGetString("loop").(lua.LBool)
	if !ok && t.RawGetString("loop") != lua.LNil {
		return nil, fmt.Errorf("loop: %w", typeError(t.RawGetString("loop"), lua.LTBool))
	}
	speed := 1
	if sv := t.RawGetString("speed"); sv != lua.LNil {
		n, err := intValue(sv)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("speed: must be a non-negative integer")
		}
		speed = n
	}

	statesTbl, ok := t.RawGetString("states").(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("states: %w", typeError(t.RawGetString("states"), lua.LTTable))
	}
	states := make([]matrixclock.CustomAnimationState, 0, statesTbl.Len())
	for i := 1; i <= statesTbl.Len(); i++ {
		s, err := r.decodeState(L, statesTbl.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("states[%d]: %w", i, err)
		}
		states = append(states, s)
	}

	a, err := matrixclock.NewCustomAnimation(targets, states, bool(loop), speed)
	if err != nil {
		return nil, err
	}
	if mv := t.RawGetString("max_timestamp"); mv != lua.LNil {
		n, err := intValue(mv)
		if err != nil || n < a.MaxTimestamp {
			return nil, fmt.Errorf("max_timestamp: must be an integer of at least %d", a.MaxTimestamp)
		}
		a.MaxTimestamp = n
	}
	return a, nil
}

func (r *Runtime) decodeState(L *lua.LState, v lua.LValue) (matrixclock.CustomAnimationState, error) {
	var s matrixclock.CustomAnimationState
	t, ok := v.(*lua.LTable)
	if !ok {
		return s, typeError(v, lua.LTTable)
	}
	ts, err := intValue(t.RawGetString("timestamp"))
	if err != nil || ts < 0 {
		return s, fmt.Errorf("timestamp: must be a non-negative integer")
	}
	s.Timestamp = ts

	if cv := t.RawGetString("color"); cv != lua.LNil {
		arg, err := ArgFromValue(L, cv)
		if err != nil {
			return s, fmt.Errorf("color: %w", err)
		}
		if arg.Kind != ArgColor {
			return s, fmt.Errorf("color: got %s, want %s", arg.Kind, ArgColor)
		}
		s.Color = &arg.Color
	}
	if pv := t.RawGetString("pos"); pv != lua.LNil {
		arg, err := ArgFromValue(L, pv)
		if err != nil {
			return s, fmt.Errorf("pos: %w", err)
		}
		if arg.Kind != ArgPosition {
			return s, fmt.Errorf("pos: got %s, want %s", arg.Kind, ArgPosition)
		}
		s.Pos = &arg.Pos
	}
	if tv := t.RawGetString("text"); tv != lua.LNil {
		str, ok := tv.(lua.LString)
		if !ok {
			return s, fmt.Errorf("text: %w", typeError(tv, lua.LTString))
		}
		text, err := r.arena.String(string(str))
		if err != nil {
			return s, err
		}
		s.Text = &text
	}
	if ev := t.RawGetString("ease"); ev != lua.LNil {
		str, ok := ev.(lua.LString)
		if !ok {
			return s, fmt.Errorf("ease: %w", typeError(ev, lua.LTString))
		}
		s.Ease = string(str)
	}
	return s, nil
}

func intValue(v lua.LValue) (int, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, typeError(v, lua.LTNumber)
	}
	f := float64(n)
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, errors.New("not an integer")
	}
	return int(f), nil
}
