package runner

import (
	"context"
	"time"
)

// AccessPattern varies the think times of a set of drivers until ctx is done
type AccessPattern interface {
	Run(ctx context.Context, targets []ThinkTimer)
}

// Normal leaves think times alone
type Normal struct{}

func (Normal) Run(ctx context.Context, _ []ThinkTimer) {
	<-ctx.Done()
}

// Spike slows one driver at a time, round robin: every Interval the next driver gets
// ThinkTime for Duration, after which every think time is reset to zero.
type Spike struct {
	Interval  time.Duration
	Duration  time.Duration
	ThinkTime time.Duration
}

func (s Spike) Run(ctx context.Context, targets []ThinkTimer) {
	if len(targets) == 0 || (s.Interval <= 0 && s.Duration <= 0) {
		<-ctx.Done()
		return
	}
	for i := 0; ; i = (i + 1) % len(targets) {
		if !sleep(ctx, s.Interval) {
			return
		}
		targets[i].SetThinkTime(s.ThinkTime)
		ok := sleep(ctx, s.Duration)
		for _, t := range targets {
			t.SetThinkTime(0)
		}
		if !ok {
			return
		}
	}
}

// Wave moves the load from one driver to the next. Every driver starts slowed down to
// MaxThinkTime. After each Interval the load is handed over in Steps steps of StepInterval:
// the current driver's think time falls to zero while the previous one's rises back to
// MaxThinkTime, the two always summing to MaxThinkTime. The first hand-off has no previous
// driver.
type Wave struct {
	Interval     time.Duration
	Steps        int
	StepInterval time.Duration
	MaxThinkTime time.Duration
}

func (w Wave) Run(ctx context.Context, targets []ThinkTimer) {
	n := len(targets)
	if n < 2 || w.Steps <= 0 || (w.Interval <= 0 && w.StepInterval <= 0) {
		<-ctx.Done()
		return
	}
	for _, t := range targets {
		t.SetThinkTime(w.MaxThinkTime)
	}
	var prev ThinkTimer
	for cur := 0; ; cur = (cur + 1) % n {
		if !sleep(ctx, w.Interval) {
			return
		}
		for step := 1; step <= w.Steps; step++ {
			share := time.Duration(int64(w.MaxThinkTime) * int64(step) / int64(w.Steps))
			if prev != nil {
				prev.SetThinkTime(share)
			}
			targets[cur].SetThinkTime(w.MaxThinkTime - share)
			if !sleep(ctx, w.StepInterval) {
				return
			}
		}
		prev = targets[cur]
	}
}
