// Package builtin provides the natively built clock modules.
package builtin

import (
	"time"

	"github.com/phanxgames/matrixclock"
)

// Names of the builtin modules as they appear in a config's module list.
const (
	ClockName  = "clock"
	SplashName = "splash"
)

// Options configures the builtin modules.
type Options struct {
	// FPS is the render rate; the clock refreshes once per FPS frames.
	FPS int
	// Now returns the displayed time. Nil selects time.Now.
	Now func() time.Time
}

// Registry builds every builtin module once, keyed by name.
func Registry(opts Options) map[string]*matrixclock.ClockModule {
	return map[string]*matrixclock.ClockModule{
		ClockName:  Clock(opts),
		SplashName: Splash(),
	}
}

var (
	clockColor  = matrixclock.Color{R: 255, G: 160, B: 32}
	dateColor   = matrixclock.Color{R: 96, G: 160, B: 255}
	borderColor = matrixclock.Color{R: 24, G: 24, B: 96}
)

// Clock shows the time as HH:MM:SS over a date line inside a border.
func Clock(opts Options) *matrixclock.ClockModule {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fps := max(opts.FPS, 1)

	// Both texts are rewritten on frame 0; the placeholders only show the layout.
	timeText := &matrixclock.Text{
		Pos:   matrixclock.Position{X: 8, Y: 5},
		Text:  "00:00:00",
		Font:  matrixclock.Font6x10,
		Color: clockColor,
	}
	dateText := &matrixclock.Text{
		Pos:   matrixclock.Position{X: 12, Y: 20},
		Text:  "Mon 01 Jan",
		Font:  matrixclock.Font4x6,
		Color: dateColor,
	}

	tick := matrixclock.AnimationParams{Duration: 1, Loop: true, Speed: fps}
	return &matrixclock.ClockModule{
		Name:      ClockName,
		TimeLimit: 30 * time.Second,
		Root: &matrixclock.RootComponent{
			Components: []matrixclock.AnyComponent{
				matrixclock.Normal(&matrixclock.Box{
					Width:  matrixclock.Width,
					Height: matrixclock.Height,
					Color:  borderColor,
				}),
				matrixclock.Animated(matrixclock.NewAnimation(timeText, tick, formatUpdate(now, "15:04:05"))),
				matrixclock.Animated(matrixclock.NewAnimation(dateText, tick, formatUpdate(now, "Mon 02 Jan"))),
			},
		},
	}
}

// formatUpdate returns an update function setting a component's text to the
// current time in layout.
func formatUpdate(now func() time.Time, layout string) matrixclock.UpdateFunc {
	return func(c matrixclock.Component, _ int) {
		s := now().Format(layout)
		c.Apply(matrixclock.Update{Text: &s})
	}
}

// Splash is a static banner shown between modules.
func Splash() *matrixclock.ClockModule {
	accent := matrixclock.Color{R: 255, G: 48, B: 96}
	return &matrixclock.ClockModule{
		Name:      SplashName,
		TimeLimit: 5 * time.Second,
		Root: &matrixclock.RootComponent{
			Components: []matrixclock.AnyComponent{
				matrixclock.Normal(&matrixclock.Box{
					Width:  matrixclock.Width,
					Height: matrixclock.Height,
					Color:  accent,
				}),
				matrixclock.Normal(&matrixclock.Circle{
					Center:    matrixclock.Position{X: 14, Y: 16},
					Radius:    10,
					Thickness: 2,
					Color:     matrixclock.Color{R: 255, G: 200},
				}),
				matrixclock.Normal(&matrixclock.Text{
					Pos:   matrixclock.Position{X: 28, Y: 12},
					Text:  "matrix",
					Font:  matrixclock.Font5x7,
					Color: matrixclock.Color{R: 255, G: 255, B: 255},
				}),
			},
		},
	}
}
