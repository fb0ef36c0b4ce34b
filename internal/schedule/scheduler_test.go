package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	runs  atomic.Int64
	block chan struct{}
	err   error
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(ctx context.Context) error {
	j.runs.Add(1)
	if j.block != nil {
		<-j.block
	}
	return j.err
}

func TestAddJobRejectsBadSpecAndDuplicates(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countingJob{name: "a"}, "every minute"))
	require.NoError(t, s.AddJob(&countingJob{name: "a"}, "*/5 * * * *"))
	require.Error(t, s.AddJob(&countingJob{name: "a"}, "*/5 * * * *"))
}

func TestRunNow(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "refresh", err: errors.New("boom")}
	require.NoError(t, s.AddJob(job, "0 0 1 1 *"))

	require.EqualError(t, s.RunNow("refresh"), "boom")
	require.Equal(t, int64(1), job.runs.Load())
	require.Error(t, s.RunNow("missing"))
}

func TestRunNowSkipsOverlap(t *testing.T) {
	s := NewCronScheduler()
	job := &countingJob{name: "slow", block: make(chan struct{})}
	require.NoError(t, s.AddJob(job, "0 0 1 1 *"))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()
	require.Eventually(t, func() bool { return job.runs.Load() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.ErrorIs(t, s.RunNow("slow"), ErrJobRunning)
	close(job.block)
	require.NoError(t, <-done)
	require.Equal(t, int64(1), job.runs.Load())
}

func TestEntriesListsNextRun(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countingJob{name: "b"}, "*/15 * * * *"))
	require.NoError(t, s.AddJob(&countingJob{name: "a"}, "*/5 * * * *"))
	s.Start(context.Background())
	defer s.Stop()

	entries := s.Entries()
	require.Len(t, entries, 2)
	require.Equal(t, "a", entries[0].Name)
	require.Equal(t, "*/5 * * * *", entries[0].Spec)
	require.False(t, entries[0].Next.IsZero())
}
