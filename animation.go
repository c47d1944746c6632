package matrixclock

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

var (
	// ErrAnimationTarget is returned when a timeline targets a component index
	// outside the root's list.
	ErrAnimationTarget = errors.New("matrixclock: animation target out of range")
	// ErrNoKeyframes is returned for a timeline without states.
	ErrNoKeyframes = errors.New("matrixclock: animation has no keyframes")
	// ErrUnknownEase is returned for an easing name that is not registered.
	ErrUnknownEase = errors.New("matrixclock: unknown easing")
)

// --- Timed (per-component) animation ---

// AnimationParams are the timing parameters of a per-component animation.
// Speed is the number of global frames between advances; larger is slower and
// zero never advances.
type AnimationParams struct {
	Duration int
	Loop     bool
	Speed    int
}

// UpdateFunc advances a component's state for the given internal frame.
type UpdateFunc func(c Component, frame int)

// AnimationComponent wraps a component with a frame-driven update function.
type AnimationComponent struct {
	Component Component
	AnimationParams
	UpdateFn UpdateFunc
}

// NewAnimation wraps c with params and fn.
func NewAnimation(c Component, params AnimationParams, fn UpdateFunc) *AnimationComponent {
	return &AnimationComponent{Component: c, AnimationParams: params, UpdateFn: fn}
}

// Scroller is implemented by components that move by one step per advance.
type Scroller interface {
	Scroll()
}

// ScrollUpdate is the UpdateFunc of the scrolling text components.
func ScrollUpdate(c Component, _ int) {
	if s, ok := c.(Scroller); ok {
		s.Scroll()
	}
}

// TimedAnimation is the per-session runtime state of an AnimationComponent.
// It is rebuilt for every render session.
type TimedAnimation struct {
	*AnimationComponent
	InternalFrame int
}

// Due reports whether the animation advances on the given global frame. With
// Loop unset, it stops once InternalFrame reaches Duration, so a zero Duration
// never advances and the initial state draws forever.
func (t *TimedAnimation) Due(frame uint64) bool {
	if t.Speed <= 0 || frame%uint64(t.Speed) != 0 {
		return false
	}
	return t.Loop || t.InternalFrame < t.Duration
}

// Advance runs the update function if the animation is due and reports whether
// it did.
func (t *TimedAnimation) Advance(frame uint64) bool {
	if !t.Due(frame) {
		return false
	}
	if t.UpdateFn != nil {
		t.UpdateFn(t.Component, t.InternalFrame)
	}
	t.InternalFrame++
	if t.Loop && t.InternalFrame >= t.Duration {
		t.InternalFrame = 0
	}
	return true
}

// --- Timeline (custom) animation ---

// easings maps script-visible easing names to gween functions.
var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inCubic":    ease.InCubic,
	"outCubic":   ease.OutCubic,
	"inOutCubic": ease.InOutCubic,
	"inOutSine":  ease.InOutSine,
	"outBounce":  ease.OutBounce,
	"outElastic": ease.OutElastic,
}

// ValidEase reports whether name is empty (discrete) or a registered easing.
func ValidEase(name string) bool {
	if name == "" {
		return true
	}
	_, ok := easings[name]
	return ok
}

// CustomAnimationState is one keyframe. When Ease is set, Pos and Color are
// interpolated toward this keyframe from the previous one.
type CustomAnimationState struct {
	Timestamp int
	Color     *Color
	Pos       *Position
	Text      *string
	Ease      string
}

func (s *CustomAnimationState) update() Update {
	return Update{Color: s.Color, Pos: s.Pos, Text: s.Text}
}

// CustomAnimation is a keyframe timeline pushing state deltas into the
// components at Targets (indexes into the root's component list).
// CurrentIndex is the last applied keyframe, -1 before the first.
type CustomAnimation struct {
	Targets          []int
	States           []CustomAnimationState
	CurrentTimestamp int
	CurrentIndex     int
	MaxTimestamp     int
	Loop             bool
	Speed            int

	finished bool
}

// NewCustomAnimation sorts states by timestamp and derives MaxTimestamp from the
// last keyframe.
func NewCustomAnimation(targets []int, states []CustomAnimationState, loop bool, speed int) (*CustomAnimation, error) {
	if len(states) == 0 {
		return nil, ErrNoKeyframes
	}
	sort.SliceStable(states, func(i, j int) bool { return states[i].Timestamp < states[j].Timestamp })
	for i := range states {
		if !ValidEase(states[i].Ease) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEase, states[i].Ease)
		}
	}
	return &CustomAnimation{
		Targets:      targets,
		States:       states,
		CurrentIndex: -1,
		MaxTimestamp: states[len(states)-1].Timestamp,
		Loop:         loop,
		Speed:        speed,
	}, nil
}

// Validate checks the timeline against a component list of length n.
func (a *CustomAnimation) Validate(n int) error {
	if len(a.States) == 0 {
		return ErrNoKeyframes
	}
	for _, idx := range a.Targets {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: index %d, %d components", ErrAnimationTarget, idx, n)
		}
	}
	return nil
}

// Reset rewinds the timeline to before its first keyframe.
func (a *CustomAnimation) Reset() {
	a.CurrentTimestamp = 0
	a.CurrentIndex = -1
	a.finished = false
}

// Finished reports whether a non-looping timeline has run past MaxTimestamp.
func (a *CustomAnimation) Finished() bool {
	return a.finished
}

// Step advances the timeline on ticks where frame is a multiple of Speed,
// applying every keyframe reached by CurrentTimestamp before any component of
// the frame is drawn.
func (a *CustomAnimation) Step(frame uint64, components []AnyComponent) {
	if a.finished || a.Speed <= 0 || frame%uint64(a.Speed) != 0 {
		return
	}

	for a.CurrentIndex+1 < len(a.States) && a.States[a.CurrentIndex+1].Timestamp <= a.CurrentTimestamp {
		a.CurrentIndex++
		a.push(components, a.States[a.CurrentIndex].update())
	}
	if u := a.interpolate(); !u.IsEmpty() {
		a.push(components, u)
	}

	a.CurrentTimestamp++
	if a.CurrentTimestamp > a.MaxTimestamp {
		if a.Loop {
			a.CurrentTimestamp = 0
			a.CurrentIndex = -1
		} else {
			a.finished = true
		}
	}
}

func (a *CustomAnimation) push(components []AnyComponent, u Update) {
	if u.IsEmpty() {
		return
	}
	for _, idx := range a.Targets {
		components[idx].Component().Apply(u)
	}
}

// interpolate returns the eased in-between delta toward the next keyframe, or
// an empty update when the next keyframe is discrete.
func (a *CustomAnimation) interpolate() Update {
	next := a.CurrentIndex + 1
	if a.CurrentIndex < 0 || next >= len(a.States) || a.States[next].Ease == "" {
		return Update{}
	}
	cur, target := &a.States[a.CurrentIndex], &a.States[next]
	span := target.Timestamp - cur.Timestamp
	elapsed := a.CurrentTimestamp - cur.Timestamp
	if span <= 0 || elapsed <= 0 {
		return Update{}
	}
	progress, _ := gween.New(0, 1, float32(span), easings[target.Ease]).Update(float32(elapsed))

	var u Update
	if target.Pos != nil {
		if from := a.lastPos(a.CurrentIndex); from != nil {
			p := Position{
				X: lerpU8(from.X, target.Pos.X, progress),
				Y: lerpU8(from.Y, target.Pos.Y, progress),
			}
			u.Pos = &p
		}
	}
	if target.Color != nil {
		if from := a.lastColor(a.CurrentIndex); from != nil {
			c := Color{
				R: lerpU8(from.R, target.Color.R, progress),
				G: lerpU8(from.G, target.Color.G, progress),
				B: lerpU8(from.B, target.Color.B, progress),
			}
			u.Color = &c
		}
	}
	return u
}

func (a *CustomAnimation) lastPos(upto int) *Position {
	for i := upto; i >= 0; i-- {
		if a.States[i].Pos != nil {
			return a.States[i].Pos
		}
	}
	return nil
}

func (a *CustomAnimation) lastColor(upto int) *Color {
	for i := upto; i >= 0; i-- {
		if a.States[i].Color != nil {
			return a.States[i].Color
		}
	}
	return nil
}

// lerpU8 blends from toward to by t; easings such as outElastic overshoot, so
// the result is clamped to the channel range.
func lerpU8(from, to uint8, t float32) uint8 {
	v := float64(from) + (float64(to)-float64(from))*float64(t)
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
