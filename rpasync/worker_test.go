package rpasync

import (
	"context"
	"testing"
	"time"

	"github.com/docuconta/books_backend/config"
	"github.com/docuconta/books_backend/models"
	"github.com/stretchr/testify/require"
)

func newTestWorker(vendor *fakeVendor, actions *fakeActionStore) *ReconciliationWorker {
	return &ReconciliationWorker{
		vendor:   vendor,
		actions:  actions,
		logger:   config.GetLogger(),
		interval: time.Minute,
	}
}

func TestSweep_TerminalizesFinishedJobs(t *testing.T) {
	actions := newFakeActionStore()
	completed := pendingAction(t, actions, 1, "job-1")
	failed := pendingAction(t, actions, 2, "job-2")
	running := pendingAction(t, actions, 3, "job-3")
	vendor := &fakeVendor{states: map[string]string{
		"job-1": "Successful",
		"job-2": "Faulted",
		"job-3": "Running",
	}}

	newTestWorker(vendor, actions).Sweep(context.Background())

	require.Equal(t, models.RpaActionStatusCompleted, actions.get(completed).Status)
	require.Equal(t, models.RpaActionStatusFailed, actions.get(failed).Status)
	require.Equal(t, models.RpaActionStatusPending, actions.get(running).Status)
}

func TestSweep_OneFailingPollDoesNotAbortTheRest(t *testing.T) {
	actions := newFakeActionStore()
	first := pendingAction(t, actions, 1, "job-1")
	second := pendingAction(t, actions, 2, "job-2")
	third := pendingAction(t, actions, 3, "job-3")
	vendor := &fakeVendor{
		states:   map[string]string{"job-1": "Successful", "job-3": "Stopped"},
		stateErr: map[string]error{"job-2": errVendorDown},
	}

	newTestWorker(vendor, actions).Sweep(context.Background())

	require.Equal(t, models.RpaActionStatusCompleted, actions.get(first).Status)
	require.Equal(t, models.RpaActionStatusPending, actions.get(second).Status)
	require.Equal(t, models.RpaActionStatusFailed, actions.get(third).Status)
}

func TestSweep_MissingJobKeyIsSilentlySkipped(t *testing.T) {
	actions := newFakeActionStore()
	require.NoError(t, actions.Create(context.Background(), &models.RpaAction{
		DocumentId: 1,
		ActionType: models.RpaActionTypeDataEntry,
		Status:     models.RpaActionStatusPending,
	}))
	vendor := &fakeVendor{}

	newTestWorker(vendor, actions).Sweep(context.Background())

	require.Empty(t, vendor.statusCalls)
	require.Equal(t, models.RpaActionStatusPending, actions.get(1).Status)
}

func TestSweep_StopsCleanlyOnCancelledContext(t *testing.T) {
	actions := newFakeActionStore()
	pendingAction(t, actions, 1, "job-1")
	vendor := &fakeVendor{states: map[string]string{"job-1": "Successful"}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	newTestWorker(vendor, actions).Sweep(ctx)

	// Cancelled before the first action: nothing was polled or written.
	require.Empty(t, vendor.statusCalls)
	require.Equal(t, models.RpaActionStatusPending, actions.get(1).Status)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	worker := newTestWorker(&fakeVendor{}, newFakeActionStore())
	worker.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		worker.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after context cancellation")
	}
}
