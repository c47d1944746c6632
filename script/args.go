package script

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/phanxgames/matrixclock"
	lua "github.com/yuin/gopher-lua"
)

// ArgKind tags the variant held by an Arg.
type ArgKind uint8

const (
	ArgNil ArgKind = iota
	ArgString
	ArgInt
	ArgBool
	ArgFloat
	ArgPosition
	ArgColor
	ArgAnimation
)

var argKindNames = [...]string{
	ArgNil:       "nil",
	ArgString:    "string",
	ArgInt:       "int",
	ArgBool:      "bool",
	ArgFloat:     "float",
	ArgPosition:  "position",
	ArgColor:     "color",
	ArgAnimation: "animation",
}

func (k ArgKind) String() string {
	if int(k) < len(argKindNames) {
		return argKindNames[k]
	}
	return fmt.Sprintf("ArgKind(%d)", k)
}

// Arg is one positional builder argument. Only the field matching Kind is set.
type Arg struct {
	Kind  ArgKind
	Str   string
	Int   int64
	Bool  bool
	Float float64
	Pos   matrixclock.Position
	Color matrixclock.Color
	Anim  matrixclock.AnimationParams
}

// Table kind tags stored on the metatables of the Color, Pos and Anim helpers.
const (
	kindField = "__kind"

	kindColor     = "color"
	kindPosition  = "position"
	kindAnimation = "animation"
)

// tableShape is the exact key set and value types of a table argument.
type tableShape struct {
	kind   ArgKind
	tag    string
	fields map[string]lua.LValueType
}

var tableShapes = []tableShape{
	{ArgColor, kindColor, map[string]lua.LValueType{"r": lua.LTNumber, "g": lua.LTNumber, "b": lua.LTNumber}},
	{ArgPosition, kindPosition, map[string]lua.LValueType{"x": lua.LTNumber, "y": lua.LTNumber}},
	{ArgAnimation, kindAnimation, map[string]lua.LValueType{"duration": lua.LTNumber, "loop": lua.LTBool, "speed": lua.LTNumber}},
}

func (s tableShape) matches(keys map[string]lua.LValue) bool {
	if len(keys) != len(s.fields) {
		return false
	}
	for name, typ := range s.fields {
		v, ok := keys[name]
		if !ok || v.Type() != typ {
			return false
		}
	}
	return true
}

// ArgFromValue converts one script value into an Arg. Tables must match
// exactly one of the color {r,g,b}, position {x,y} or animation
// {duration,loop,speed} shapes; a table built by the Color, Pos or Anim helpers
// carries an explicit tag and must match that shape.
func ArgFromValue(L *lua.LState, v lua.LValue) (Arg, error) {
	switch v := v.(type) {
	case *lua.LNilType:
		return Arg{Kind: ArgNil}, nil
	case lua.LString:
		return Arg{Kind: ArgString, Str: string(v)}, nil
	case lua.LBool:
		return Arg{Kind: ArgBool, Bool: bool(v)}, nil
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return Arg{Kind: ArgInt, Int: int64(f)}, nil
		}
		return Arg{Kind: ArgFloat, Float: f}, nil
	case *lua.LTable:
		return tableArg(L, v)
	default:
		return Arg{}, fmt.Errorf("%w: unsupported %s value", ErrAmbiguousTable, v.Type())
	}
}

func tableArg(L *lua.LState, t *lua.LTable) (Arg, error) {
	keys := make(map[string]lua.LValue)
	var bad error
	t.ForEach(func(k, v lua.LValue) {
		s, ok := k.(lua.LString)
		if !ok {
			bad = fmt.Errorf("%w: non-string key %s", ErrAmbiguousTable, k.String())
			return
		}
		keys[string(s)] = v
	})
	if bad != nil {
		return Arg{}, bad
	}

	tag := tableTag(L, t)
	var matched []tableShape
	for _, s := range tableShapes {
		if tag != "" && s.tag != tag {
			continue
		}
		if s.matches(keys) {
			matched = append(matched, s)
		}
	}
	if len(matched) != 1 {
		return Arg{}, fmt.Errorf("%w: fields {%s}", ErrAmbiguousTable, sortedKeys(keys))
	}

	switch matched[0].kind {
	case ArgColor:
		c, err := colorFromFields(keys)
		return Arg{Kind: ArgColor, Color: c}, err
	case ArgPosition:
		p, err := positionFromFields(keys)
		return Arg{Kind: ArgPosition, Pos: p}, err
	default:
		a, err := animationFromFields(keys)
		return Arg{Kind: ArgAnimation, Anim: a}, err
	}
}

func tableTag(L *lua.LState, t *lua.LTable) string {
	if L == nil {
		return ""
	}
	mt, ok := L.GetMetatable(t).(*lua.LTable)
	if !ok {
		return ""
	}
	if s, ok := mt.RawGetString(kindField).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func sortedKeys(keys map[string]lua.LValue) string {
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func uint8Field(keys map[string]lua.LValue, name string) (uint8, error) {
	f := float64(keys[name].(lua.LNumber))
	if f != math.Trunc(f) || f < 0 || f > 255 {
		return 0, fmt.Errorf("field %s: %v out of range 0..255", name, f)
	}
	return uint8(f), nil
}

func nonNegativeField(keys map[string]lua.LValue, name string) (int, error) {
	f := float64(keys[name].(lua.LNumber))
	if f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		return 0, fmt.Errorf("field %s: %v is not a non-negative integer", name, f)
	}
	return int(f), nil
}

func colorFromFields(keys map[string]lua.LValue) (matrixclock.Color, error) {
	var c matrixclock.Color
	var err error
	if c.R, err = uint8Field(keys, "r"); err != nil {
		return c, err
	}
	if c.G, err = uint8Field(keys, "g"); err != nil {
		return c, err
	}
	c.B, err = uint8Field(keys, "b")
	return c, err
}

func positionFromFields(keys map[string]lua.LValue) (matrixclock.Position, error) {
	var p matrixclock.Position
	var err error
	if p.X, err = uint8Field(keys, "x"); err != nil {
		return p, err
	}
	p.Y, err = uint8Field(keys, "y")
	return p, err
}

func animationFromFields(keys map[string]lua.LValue) (matrixclock.AnimationParams, error) {
	var a matrixclock.AnimationParams
	var err error
	if a.Duration, err = nonNegativeField(keys, "duration"); err != nil {
		return a, err
	}
	if a.Speed, err = nonNegativeField(keys, "speed"); err != nil {
		return a, err
	}
	a.Loop = bool(keys["loop"].(lua.LBool))
	return a, nil
}

// --- Args ---

// Args is the positional argument list of one builder call.
type Args []Arg

func (a Args) fetch(i int, want ArgKind) (Arg, error) {
	if i < 1 || i > len(a) || a[i-1].Kind == ArgNil {
		return Arg{}, &ArgFetchError{Index: i, Want: want, Missing: true}
	}
	arg := a[i-1]
	if arg.Kind != want {
		return Arg{}, &ArgFetchError{Index: i, Want: want, Got: arg.Kind}
	}
	return arg, nil
}

// String returns argument i (1-based) as a string.
func (a Args) String(i int) (string, error) {
	arg, err := a.fetch(i, ArgString)
	return arg.Str, err
}

// Int returns argument i as an integer.
func (a Args) Int(i int) (int64, error) {
	arg, err := a.fetch(i, ArgInt)
	return arg.Int, err
}

// Bool returns argument i as a boolean.
func (a Args) Bool(i int) (bool, error) {
	arg, err := a.fetch(i, ArgBool)
	return arg.Bool, err
}

// Float returns argument i as a float; integers widen.
func (a Args) Float(i int) (float64, error) {
	if i >= 1 && i <= len(a) && a[i-1].Kind == ArgInt {
		return float64(a[i-1].Int), nil
	}
	arg, err := a.fetch(i, ArgFloat)
	return arg.Float, err
}

// Char returns argument i as a single character. Scripts pass characters as
// one-character strings.
func (a Args) Char(i int) (rune, error) {
	if i >= 1 && i <= len(a) && a[i-1].Kind == ArgString && utf8.RuneCountInString(a[i-1].Str) == 1 {
		r, _ := utf8.DecodeRuneInString(a[i-1].Str)
		return r, nil
	}
	_, err := a.fetch(i, ArgString)
	if err == nil {
		err = fmt.Errorf("argument %d: %q is not a single character", i, a[i-1].Str)
	}
	return 0, err
}

// Position returns argument i as a grid position.
func (a Args) Position(i int) (matrixclock.Position, error) {
	arg, err := a.fetch(i, ArgPosition)
	return arg.Pos, err
}

// Color returns argument i as a color.
func (a Args) Color(i int) (matrixclock.Color, error) {
	arg, err := a.fetch(i, ArgColor)
	return arg.Color, err
}

// Animation returns argument i as animation parameters.
func (a Args) Animation(i int) (matrixclock.AnimationParams, error) {
	arg, err := a.fetch(i, ArgAnimation)
	return arg.Anim, err
}

// IntRange returns argument i as an integer within [lo, hi].
func (a Args) IntRange(i int, lo, hi int64) (int64, error) {
	n, err := a.Int(i)
	if err != nil {
		return 0, err
	}
	if n < lo || n > hi {
		return 0, fmt.Errorf("argument %d: %d out of range %d..%d", i, n, lo, hi)
	}
	return n, nil
}

// Font returns argument i as a font identifier.
func (a Args) Font(i int) (matrixclock.FontID, error) {
	s, err := a.String(i)
	if err != nil {
		return "", err
	}
	id, err := matrixclock.ParseFontID(s)
	if err != nil {
		return "", fmt.Errorf("argument %d: %w", i, err)
	}
	return id, nil
}

// minPropsCap bounds props.n for tables whose sequence part is short.
const minPropsCap = 16

// argsFromProps converts a builder entry's props table ({n = count, ...}).
// The count may cover trailing nils but never more than max(#props, 16).
func argsFromProps(L *lua.LState, props *lua.LTable) (Args, error) {
	n := props.Len()
	if v, ok := props.RawGetString("n").(lua.LNumber); ok {
		f := float64(v)
		limit := max(props.Len(), minPropsCap)
		if f != math.Trunc(f) || f < 0 || f > float64(limit) {
			return nil, fmt.Errorf("%w: n = %s, want 0..%d", ErrInvalidProps, v.String(), limit)
		}
		n = int(f)
	}
	args := make(Args, n)
	for i := 1; i <= n; i++ {
		arg, err := ArgFromValue(L, props.RawGetInt(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i-1] = arg
	}
	return args, nil
}
