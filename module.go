package matrixclock

import (
	"fmt"
	"time"
)

// ClockModule is one named, time-boxed unit of display content.
type ClockModule struct {
	Name      string
	Root      *RootComponent
	TimeLimit time.Duration
	// ImageNames must be resident in the image store before rendering starts.
	ImageNames []string
	// Init and Deinit run around every render session when set.
	Init   func() error
	Deinit func()
}

// ClockModuleSource selects a module: either a natively built one or a script
// file that is re-read every time it is selected.
type ClockModuleSource struct {
	Module *ClockModule
	File   string
}

// Builtin returns a source for a native module.
func Builtin(m *ClockModule) ClockModuleSource {
	return ClockModuleSource{Module: m}
}

// Custom returns a source for a script file.
func Custom(file string) ClockModuleSource {
	return ClockModuleSource{File: file}
}

// IsBuiltin reports whether the source is a native module.
func (s ClockModuleSource) IsBuiltin() bool {
	return s.Module != nil
}

func (s ClockModuleSource) String() string {
	if s.Module != nil {
		return "builtin:" + s.Module.Name
	}
	return "custom:" + s.File
}

// Render runs one session of the module: declared images are expected to be
// loaded, Init and Deinit bracket the root's render loop.
func (m *ClockModule) Render(d Display, opts RenderOptions) error {
	if m.Root == nil {
		return fmt.Errorf("matrixclock: module %q has no root component", m.Name)
	}
	if opts.Name == "" {
		opts.Name = m.Name
	}
	opts.TimeLimit = m.TimeLimit

	if m.Init != nil {
		if err := m.Init(); err != nil {
			return fmt.Errorf("matrixclock: module %q init: %w", m.Name, err)
		}
	}
	if m.Deinit != nil {
		defer m.Deinit()
	}
	return m.Root.Render(d, opts)
}
