package script

import (
	"context"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"github.com/phanxgames/matrixclock"
	"github.com/phanxgames/matrixclock/internal/ctxlog"
	lua "github.com/yuin/gopher-lua"
)

// ConfigEntryPoint is the global function a config script must define.
const ConfigEntryPoint = "get_config"

// customSuffix marks module names that refer to script files.
const customSuffix = ".lua"

// ClockConfig is the result of one config poll.
type ClockConfig struct {
	// Sources is the module rotation in order.
	Sources []matrixclock.ClockModuleSource
	// Modules holds the names the sources were resolved from.
	Modules []string
	// Values is visible to module scripts as CONFIG.
	Values map[string]string
	// Brightness is a display percentage in 0..100.
	Brightness uint8
}

// LoadConfig runs the config script and calls its get_config entry point.
// Module names ending in .lua become script sources; every other name must be
// a key of builtins. defaults seeds Values before the script's config table
// is merged over it, and is also visible to the config script as CONFIG.
//
// Any rejection is a *ValidationError; callers keep their previous config.
func (r *Runtime) LoadConfig(ctx context.Context, file string, builtins map[string]*matrixclock.ClockModule, defaults map[string]string) (*ClockConfig, error) {
	L, cancel, err := r.newState(ctx, file, defaults)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer L.Close()

	invalid := func(field string, err error) error {
		return &ValidationError{Module: file, Field: field, Err: err}
	}

	if err := r.exec(ctx, L, file, 0); err != nil {
		return nil, invalid("", err)
	}
	fn, ok := L.GetGlobal(ConfigEntryPoint).(*lua.LFunction)
	if !ok {
		return nil, invalid(ConfigEntryPoint, ErrMissingEntryPoint)
	}
	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return nil, invalid(ConfigEntryPoint, runError(L, file, err))
	}
	ret := L.Get(-1)
	L.Pop(1)
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return nil, invalid(ConfigEntryPoint, typeError(ret, lua.LTTable))
	}

	cfg := &ClockConfig{Values: make(map[string]string, len(defaults))}
	maps.Copy(cfg.Values, defaults)

	if cfg.Brightness, err = decodeBrightness(tbl.RawGetString("brightness")); err != nil {
		return nil, invalid("brightness", err)
	}
	if cfg.Modules, cfg.Sources, err = decodeSources(tbl.RawGetString("modules"), builtins); err != nil {
		return nil, invalid("modules", err)
	}
	if err := decodeValues(tbl.RawGetString("config"), cfg.Values); err != nil {
		return nil, invalid("config", err)
	}

	ctxlog.FromContext(ctx).Debug("Loaded config.",
		"file", file,
		"modules", len(cfg.Sources),
		"brightness", cfg.Brightness,
	)
	return cfg, nil
}

func decodeBrightness(v lua.LValue) (uint8, error) {
	n, ok := v.(lua.LNumber)
	if !ok {
		return 0, typeError(v, lua.LTNumber)
	}
	f := float64(n)
	if f != math.Trunc(f) || f < 0 || f > 100 {
		return 0, fmt.Errorf("%v out of range 0..100", f)
	}
	return uint8(f), nil
}

func decodeSources(v lua.LValue, builtins map[string]*matrixclock.ClockModule) ([]string, []matrixclock.ClockModuleSource, error) {
	t, ok := v.(*lua.LTable)
	if !ok {
		return nil, nil, typeError(v, lua.LTTable)
	}
	names := make([]string, 0, t.Len())
	sources := make([]matrixclock.ClockModuleSource, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := t.RawGetInt(i).(lua.LString)
		if !ok {
			return nil, nil, fmt.Errorf("entry %d: %w", i, typeError(t.RawGetInt(i), lua.LTString))
		}
		name := strings.Clone(string(s))
		if strings.HasSuffix(name, customSuffix) {
			sources = append(sources, matrixclock.Custom(name))
		} else if m, ok := builtins[name]; ok {
			sources = append(sources, matrixclock.Builtin(m))
		} else {
			return nil, nil, fmt.Errorf("entry %d: %w: %q", i, ErrUnknownModule, name)
		}
		names = append(names, name)
	}
	return names, sources, nil
}

// decodeValues merges a string-keyed table of strings and numbers into dst.
func decodeValues(v lua.LValue, dst map[string]string) error {
	if v == lua.LNil {
		return nil
	}
	t, ok := v.(*lua.LTable)
	if !ok {
		return typeError(v, lua.LTTable)
	}
	var err error
	t.ForEach(func(k, val lua.LValue) {
		if err != nil {
			return
		}
		key, ok := k.(lua.LString)
		if !ok {
			err = fmt.Errorf("key %s: %w", k.String(), typeError(k, lua.LTString))
			return
		}
		switch val := val.(type) {
		case lua.LString:
			dst[strings.Clone(string(key))] = strings.Clone(string(val))
		case lua.LNumber:
			dst[strings.Clone(string(key))] = strconv.FormatFloat(float64(val), 'f', -1, 64)
		default:
			err = fmt.Errorf("key %q: got %s, want string or number", string(key), val.Type())
		}
	})
	return err
}
