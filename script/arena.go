package script

import (
	"fmt"
	"strings"
)

// DefaultArenaLimit is the per-module budget for owned copies of script data.
const DefaultArenaLimit = 1 << 20

// sliceHeaderCost is charged per owned line-list entry.
const sliceHeaderCost = 16

// Arena accounts for the variable-length data a module copies out of script
// memory. Every string a component keeps is cloned through the arena so that
// nothing refers to interpreter memory once the script state is closed. Reset
// releases the whole module at once between module switches.
type Arena struct {
	limit int
	used  int
}

// NewArena returns an arena with the given byte budget; non-positive limits
// select DefaultArenaLimit.
func NewArena(limit int) *Arena {
	if limit <= 0 {
		limit = DefaultArenaLimit
	}
	return &Arena{limit: limit}
}

func (a *Arena) reserve(n int) error {
	if a.used+n > a.limit {
		return fmt.Errorf("%w: %d of %d bytes used, %d requested", ErrArenaExhausted, a.used, a.limit, n)
	}
	a.used += n
	return nil
}

// String returns an owned copy of s.
func (a *Arena) String(s string) (string, error) {
	if err := a.reserve(len(s)); err != nil {
		return "", err
	}
	return strings.Clone(s), nil
}

// Lines returns an owned copy of a line list.
func (a *Arena) Lines(lines []string) ([]string, error) {
	size := len(lines) * sliceHeaderCost
	for _, l := range lines {
		size += len(l)
	}
	if err := a.reserve(size); err != nil {
		return nil, err
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = strings.Clone(l)
	}
	return out, nil
}

// Used returns the bytes accounted since the last Reset.
func (a *Arena) Used() int {
	return a.used
}

// Limit returns the arena budget.
func (a *Arena) Limit() int {
	return a.limit
}

// Reset releases every allocation of the current module.
func (a *Arena) Reset() {
	a.used = 0
}
