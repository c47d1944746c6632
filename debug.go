package matrixclock

import (
	"context"
	"log/slog"
	"time"
)

// sessionStats holds per-session frame timing, logged at debug level when a
// render session ends.
type sessionStats struct {
	frames     uint64
	overruns   uint64
	processing time.Duration
	slowest    time.Duration
}

// record accounts one frame's processing time against the frame budget.
func (s *sessionStats) record(processing, budget time.Duration) {
	s.frames++
	s.processing += processing
	if processing > s.slowest {
		s.slowest = processing
	}
	if processing > budget {
		s.overruns++
	}
}

func (s *sessionStats) mean() time.Duration {
	if s.frames == 0 {
		return 0
	}
	return s.processing / time.Duration(s.frames)
}

// log prints the session summary.
func (s *sessionStats) log(logger *slog.Logger, module string, elapsed time.Duration) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	logger.Debug("Render session finished.",
		"module", module,
		"frames", s.frames,
		"elapsed", elapsed,
		"mean_processing", s.mean(),
		"slowest_frame", s.slowest,
		"overruns", s.overruns,
	)
}
