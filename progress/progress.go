// Package progress provides a lightweight tracker that keeps aggregated
// session counters (total, running, concluded, failed) for a service.

package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/advice/internal/clock"
)

// Delta represents an incremental counter change. The fields are signed and
// can be either positive (increment) or negative (decrement).
type Delta struct {
	Total     int
	Running   int
	Concluded int
	Failed    int
}

// Progress keeps aggregated session counters. It is safe for concurrent use.
type Progress struct {
	RunID     string
	StartedAt time.Time

	TotalSessions     int
	RunningSessions   int
	ConcludedSessions int
	FailedSessions    int

	sync.Mutex
	onChange func(Progress)
}

// Update applies the supplied delta. The onChange callback, if any, receives a
// copy of the updated tracker outside the critical section.
func (p *Progress) Update(d Delta) {
	if p == nil {
		return
	}
	p.Lock()
	p.TotalSessions += d.Total
	p.RunningSessions += d.Running
	p.ConcludedSessions += d.Concluded
	p.FailedSessions += d.Failed
	snapshot := p.copy()
	cb := p.onChange
	p.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Started records a session entering the chain.
func (p *Progress) Started() {
	p.Update(Delta{Total: 1, Running: 1})
}

// Finished records a session leaving the chain.
func (p *Progress) Finished(failed bool) {
	if failed {
		p.Update(Delta{Running: -1, Failed: 1})
		return
	}
	p.Update(Delta{Running: -1, Concluded: 1})
}

// Snapshot returns a copy of the tracker suitable for read-only inspection.
func (p *Progress) Snapshot() Progress {
	if p == nil {
		return Progress{}
	}
	p.Lock()
	defer p.Unlock()
	return p.copy()
}

func (p *Progress) copy() Progress {
	return Progress{
		RunID:             p.RunID,
		StartedAt:         p.StartedAt,
		TotalSessions:     p.TotalSessions,
		RunningSessions:   p.RunningSessions,
		ConcludedSessions: p.ConcludedSessions,
		FailedSessions:    p.FailedSessions,
	}
}

// OnChange registers a callback invoked after every Update; nil disables it.
func (p *Progress) OnChange(cb func(Progress)) {
	if p == nil {
		return
	}
	p.Lock()
	p.onChange = cb
	p.Unlock()
}

// New creates a tracker for the run.
func New(runID string, onChange func(Progress)) *Progress {
	return &Progress{RunID: runID, StartedAt: clock.Now(), onChange: onChange}
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithTracker embeds the tracker in a derived context.
func WithTracker(ctx context.Context, tr *Progress) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, trackerKey, tr)
}

// FromContext extracts the tracker from ctx.
func FromContext(ctx context.Context) (*Progress, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Progress)
	return tr, ok
}

// UpdateCtx applies the delta to the tracker carried by ctx, if any.
func UpdateCtx(ctx context.Context, d Delta) {
	if tr, ok := FromContext(ctx); ok {
		tr.Update(d)
	}
}
