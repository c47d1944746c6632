package script

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/phanxgames/matrixclock"
	"github.com/stretchr/testify/require"
)

func newTestRuntime(files map[string]string, opts Options) *Runtime {
	fsys := fstest.MapFS{}
	for name, src := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(src)}
	}
	return NewRuntime(fsys, opts)
}

func TestLoadModule_BuildsComponentTree(t *testing.T) {
	// --- Arrange ---
	src := `
		local red = Color(255, 0, 0)
		return ModuleBuilder.new("demo", 7.5, {"logo"}, {})
			:tile(Pos(5, 5), red)
			:box({x = 0, y = 0}, 64, 32, {r = 0, g = 0, b = 255}, false)
			:circle(Pos(32, 16), 10, 2, red)
			:char(Pos(1, 1), "A", Fonts.Font5x7, red)
			:text(Pos(0, 8), "hello", Fonts.Font4x6, red)
			:wrapped_text(Pos(0, 16), "wrap me", Fonts.Font5x8, red, -1)
			:image(Pos(40, 0), "logo")
			:horizontal_scrolling_text(Pos(64, 24), 0, "news", Fonts.Font6x10, red, Anim(0, true, 2))
			:vertical_scrolling_text(Pos(0, 0), 32, 16, "up", Fonts.Font6x13, red, Anim(0, true, 3))
	`
	rt := newTestRuntime(map[string]string{"demo.lua": src}, Options{})

	// --- Act ---
	m, err := rt.LoadModule(context.Background(), "demo.lua", nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Equal(t, "demo", m.Name)
	require.Equal(t, 7500*time.Millisecond, m.TimeLimit)
	require.Equal(t, []string{"logo"}, m.ImageNames)
	require.Len(t, m.Root.Components, 9)
	require.Empty(t, m.Root.Animations)

	require.Equal(t, &matrixclock.Tile{Pos: matrixclock.Position{X: 5, Y: 5}, Color: matrixclock.Color{R: 255}}, m.Root.Components[0].Normal)
	box, ok := m.Root.Components[1].Normal.(*matrixclock.Box)
	require.True(t, ok)
	require.Equal(t, uint8(64), box.Width)
	require.False(t, box.Fill)
	wrapped, ok := m.Root.Components[5].Normal.(*matrixclock.WrappedText)
	require.True(t, ok)
	require.Equal(t, -1, wrapped.LineSpacing)

	hs := m.Root.Components[7]
	require.Nil(t, hs.Normal)
	require.NotNil(t, hs.Animated)
	require.Equal(t, matrixclock.AnimationParams{Loop: true, Speed: 2}, hs.Animated.AnimationParams)
	require.IsType(t, &matrixclock.HorizontalScrollingText{}, hs.Animated.Component)
	require.IsType(t, &matrixclock.VerticalScrollingText{}, m.Root.Components[8].Animated.Component)
	require.Positive(t, rt.Arena().Used())
}

func TestLoadModule_BuilderMethodsDoNotMutateReceiver(t *testing.T) {
	// --- Arrange ---
	src := `
		local base = ModuleBuilder.new("alias", 1, {}, {})
		local a = base:tile(Pos(1, 1), Color(255, 0, 0))
		local b = base:tile(Pos(2, 2), Color(0, 255, 0)):tile(Pos(3, 3), Color(0, 0, 255))
		assert(#base.components == 0, "base changed")
		assert(#b.components == 2, "b has wrong length")
		return a
	`
	rt := newTestRuntime(map[string]string{"alias.lua": src}, Options{})

	// --- Act ---
	m, err := rt.LoadModule(context.Background(), "alias.lua", nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, m.Root.Components, 1)
	require.Equal(t, matrixclock.Position{X: 1, Y: 1}, m.Root.Components[0].Normal.(*matrixclock.Tile).Pos)
}

func TestLoadModule_CustomAnimationTargetsAreOneBased(t *testing.T) {
	// --- Arrange ---
	src := `
		return ModuleBuilder.new("timeline", 3, {}, {
			{
				targets = {2},
				loop = false,
				speed = 1,
				states = {
					{timestamp = 10, pos = Pos(4, 4)},
					{timestamp = 0},
					{timestamp = 5, color = Color(0, 255, 0), ease = "linear"},
				},
			},
		})
			:tile(Pos(0, 0), Color(255, 0, 0))
			:tile(Pos(1, 1), Color(255, 0, 0))
	`
	rt := newTestRuntime(map[string]string{"timeline.lua": src}, Options{})

	// --- Act ---
	m, err := rt.LoadModule(context.Background(), "timeline.lua", nil)

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, m.Root.Animations, 1)
	a := m.Root.Animations[0]
	require.Equal(t, []int{1}, a.Targets)
	require.Equal(t, 10, a.MaxTimestamp)
	require.Equal(t, -1, a.CurrentIndex)
	require.Equal(t, []int{0, 5, 10}, []int{a.States[0].Timestamp, a.States[1].Timestamp, a.States[2].Timestamp})
	require.Equal(t, "linear", a.States[1].Ease)
}

func TestLoadModule_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		src     string
		wantIs  error
		wantArg *ArgFetchError
	}{
		{
			name:    "argument kind mismatch",
			src:     `return ModuleBuilder.new("bad", 1, {}, {}):tile(Pos(1, 1), "red")`,
			wantArg: &ArgFetchError{Index: 2, Want: ArgColor, Got: ArgString},
		},
		{
			name:    "missing argument",
			src:     `return ModuleBuilder.new("bad", 1, {}, {}):tile(Pos(1, 1))`,
			wantArg: &ArgFetchError{Index: 2, Want: ArgColor, Missing: true},
		},
		{
			name:   "ambiguous table",
			src:    `return ModuleBuilder.new("bad", 1, {}, {}):tile({x = 1, y = 2, r = 3}, Color(1, 1, 1))`,
			wantIs: ErrAmbiguousTable,
		},
		{
			name:   "scroll start left of cutoff",
			src:    `return ModuleBuilder.new("bad", 1, {}, {}):horizontal_scrolling_text(Pos(10, 0), 20, "x", Fonts.Font4x6, Color(1, 1, 1), Anim(0, true, 1))`,
			wantIs: matrixclock.ErrInvalidScroll,
		},
		{
			name:   "degenerate circle",
			src:    `return ModuleBuilder.new("bad", 1, {}, {}):circle(Pos(10, 10), 0, 1, Color(1, 1, 1))`,
			wantIs: matrixclock.ErrInvalidCircle,
		},
		{
			name:   "unknown font",
			src:    `return ModuleBuilder.new("bad", 1, {}, {}):text(Pos(0, 0), "x", "Comic", Color(1, 1, 1))`,
			wantIs: matrixclock.ErrUnknownFont,
		},
		{
			name:   "animation target out of range",
			src:    `return ModuleBuilder.new("bad", 1, {}, {{targets = {3}, states = {{timestamp = 0}}}}):tile(Pos(0, 0), Color(1, 1, 1))`,
			wantIs: matrixclock.ErrAnimationTarget,
		},
		{
			name:   "unknown ease",
			src:    `return ModuleBuilder.new("bad", 1, {}, {{targets = {1}, states = {{timestamp = 0, ease = "wobble"}}}}):tile(Pos(0, 0), Color(1, 1, 1))`,
			wantIs: matrixclock.ErrUnknownEase,
		},
		{
			name:   "image name escapes directory",
			src:    `return ModuleBuilder.new("bad", 1, {"../secret"}, {})`,
			wantIs: matrixclock.ErrPathEscape,
		},
		{
			name:   "negative props count",
			src:    `return {name = "bad", timelimit = 1, imagenames = {}, customanimations = {}, components = {{type_id = "tile", props = {n = -1}}}}`,
			wantIs: ErrInvalidProps,
		},
		{
			name:   "props count beyond table",
			src:    `return {name = "bad", timelimit = 1, imagenames = {}, customanimations = {}, components = {{type_id = "tile", props = {n = 1e9}}}}`,
			wantIs: ErrInvalidProps,
		},
		{
			name:   "fractional props count",
			src:    `return {name = "bad", timelimit = 1, imagenames = {}, customanimations = {}, components = {{type_id = "tile", props = {Pos(0, 0), Color(1, 1, 1), n = 1.5}}}}`,
			wantIs: ErrInvalidProps,
		},
		{
			name:   "unknown component type",
			src:    `local b = ModuleBuilder.new("bad", 1, {}, {}); b.components = {{type_id = "sprite", props = {n = 0}}}; return b`,
			wantIs: ErrUnknownComponent,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			rt := newTestRuntime(map[string]string{"bad.lua": tc.src}, Options{})

			// --- Act ---
			m, err := rt.LoadModule(context.Background(), "bad.lua", nil)

			// --- Assert ---
			require.Nil(t, m)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			require.Equal(t, "bad.lua", ve.Module)
			require.False(t, IsFatal(err))
			if tc.wantIs != nil {
				require.ErrorIs(t, err, tc.wantIs)
			}
			if tc.wantArg != nil {
				var fe *ArgFetchError
				require.ErrorAs(t, err, &fe)
				require.Equal(t, tc.wantArg, fe)
			}
			require.Zero(t, rt.Arena().Used(), "a rejected module releases its arena")
		})
	}
}

func TestLoadModule_ArenaExhaustionIsFatal(t *testing.T) {
	src := `return ModuleBuilder.new("big", 1, {}, {}):text(Pos(0, 0), string.rep("x", 64), Fonts.Font4x6, Color(1, 1, 1))`
	rt := newTestRuntime(map[string]string{"big.lua": src}, Options{ArenaLimit: 32})

	_, err := rt.LoadModule(context.Background(), "big.lua", nil)

	require.ErrorIs(t, err, ErrArenaExhausted)
	require.True(t, IsFatal(err))
}

func TestLoadModule_Sandbox(t *testing.T) {
	testCases := map[string]string{
		"dofile":   `dofile("other.lua")`,
		"loadfile": `loadfile("other.lua")`,
		"require":  `require("os")`,
		"io":       `io.write("x")`,
		"os":       `os.exit(1)`,
	}
	for name, src := range testCases {
		t.Run(name, func(t *testing.T) {
			rt := newTestRuntime(map[string]string{"s.lua": src, "other.lua": "return 1"}, Options{})

			_, err := rt.LoadModule(context.Background(), "s.lua", nil)

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
		})
	}
}

func TestLoadModule_Timeout(t *testing.T) {
	rt := newTestRuntime(map[string]string{"spin.lua": "while true do end"}, Options{Timeout: 50 * time.Millisecond})

	_, err := rt.LoadModule(context.Background(), "spin.lua", nil)

	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, IsFatal(err))
}

func TestLoadModule_PathAndReadErrors(t *testing.T) {
	rt := newTestRuntime(map[string]string{}, Options{})

	_, err := rt.LoadModule(context.Background(), "../escape.lua", nil)
	require.ErrorIs(t, err, matrixclock.ErrPathEscape)

	_, err = rt.LoadModule(context.Background(), "missing.lua", nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestLoadModule_ConfigValuesVisible(t *testing.T) {
	src := `return ModuleBuilder.new(CONFIG.title, tonumber(CONFIG.seconds), {}, {})`
	rt := newTestRuntime(map[string]string{"cfg.lua": src}, Options{})

	m, err := rt.LoadModule(context.Background(), "cfg.lua", map[string]string{"title": "Weather", "seconds": "12"})

	require.NoError(t, err)
	require.Equal(t, "Weather", m.Name)
	require.Equal(t, 12*time.Second, m.TimeLimit)
}
