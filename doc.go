// Package matrixclock drives a 64x32 RGB pixel matrix by repeatedly rendering a
// tree of drawable components at a target frame rate for a bounded time window,
// then switching to the next module.
//
// # Modules and components
//
// A [ClockModule] owns one [RootComponent], which holds a flat list of
// [AnyComponent] entries and a list of [CustomAnimation] timelines. Each entry
// is either a plain [Component] or an [AnimationComponent] that advances on a
// frame cadence:
//
//	root := &matrixclock.RootComponent{
//		Components: []matrixclock.AnyComponent{
//			matrixclock.Normal(&matrixclock.Tile{
//				Pos:   matrixclock.Position{X: 5, Y: 5},
//				Color: matrixclock.Color{R: 255},
//			}),
//		},
//	}
//
// Components are Tile, Box, Circle, Char, Text, WrappedText, Image,
// HorizontalScrollingText and VerticalScrollingText. Pure black is the
// transparent background and is never written.
//
// # Rendering
//
// [RootComponent.Render] draws into any [Display]. [Framebuffer] is the
// in-memory implementation; the display/ebitendisplay and display/termdisplay
// packages put it on a window or a terminal.
//
//	fb := matrixclock.NewFramebuffer()
//	err := root.Render(fb, matrixclock.RenderOptions{
//		FPS:       30,
//		TimeLimit: 10 * time.Second,
//		Running:   &running,
//		Fonts:     matrixclock.DefaultFonts,
//		Images:    images,
//	})
//
// Within a frame, timelines apply their keyframes before anything is drawn,
// timed animations draw slowest first, and static components draw last in list
// order.
//
// # Resources
//
// Fonts are BDF files loaded once into the process-wide [FontStore]. Images
// are binary PPM files loaded per render session into an [ImageStore].
//
// Scripted modules are built by the script package; the connector package
// runs the module-selection loop.
package matrixclock
