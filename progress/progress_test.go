package progress

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgress(t *testing.T) {
	var changes []Progress
	tracker := New("run-1", func(p Progress) { changes = append(changes, p) })
	tracker.Started()
	tracker.Started()
	tracker.Finished(false)
	tracker.Finished(true)

	snapshot := tracker.Snapshot()
	assert.Equal(t, "run-1", snapshot.RunID)
	assert.Equal(t, 2, snapshot.TotalSessions)
	assert.Equal(t, 0, snapshot.RunningSessions)
	assert.Equal(t, 1, snapshot.ConcludedSessions)
	assert.Equal(t, 1, snapshot.FailedSessions)
	assert.Len(t, changes, 4)
	assert.Equal(t, 2, changes[1].RunningSessions)
}

func TestProgress_Concurrent(t *testing.T) {
	tracker := New("run", nil)
	ctx := WithTracker(context.Background(), tracker)
	wg := sync.WaitGroup{}
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UpdateCtx(ctx, Delta{Total: 1})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, tracker.Snapshot().TotalSessions)

	var empty *Progress
	empty.Update(Delta{Total: 1})
	assert.Equal(t, Progress{}, empty.Snapshot())
}
