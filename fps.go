package matrixclock

import "time"

// pacer holds a target frame rate by sleeping away whatever part of the frame
// budget rendering did not use. A slow frame is not paid back by later frames.
type pacer struct {
	budget time.Duration
	now    func() time.Time
	sleep  func(time.Duration)
}

func newPacer(fps int, now func() time.Time, sleep func(time.Duration)) *pacer {
	if now == nil {
		now = time.Now
	}
	if sleep == nil {
		sleep = time.Sleep
	}
	return &pacer{budget: time.Second / time.Duration(fps), now: now, sleep: sleep}
}

// wait sleeps for max(0, budget-processing) where processing is the time since
// frameStart.
func (p *pacer) wait(frameStart time.Time) {
	if rest := p.budget - p.now().Sub(frameStart); rest > 0 {
		p.sleep(rest)
	}
}
