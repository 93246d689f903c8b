package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
)

func TestMemoryQueueAndAcquireSingle(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, err := m.QueueAsync(ctx, Single("send_email", []byte(`{"to":"a@b.com"}`), time.Now().Add(-time.Second)))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Equal(t, id, desc.ID)
	assert.Equal(t, "send_email", desc.Type)

	// Already leased: a second acquire finds nothing else runnable.
	desc2, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc2)
}

func TestMemoryAcquireRespectsDueTime(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, err := m.QueueAsync(ctx, Single("future", nil, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc)
}

func TestMemoryReleaseFinishedIsTerminal(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.QueueAsync(ctx, Single("job", nil, time.Now()))
	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, id, desc.ID)

	require.NoError(t, m.ReleaseJob(ctx, id, jobrun.ResultFinished()))
	assert.Equal(t, 0, m.LeasedCount())

	// Finished leaf never becomes runnable again.
	desc, err = m.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc)
}

func TestMemoryReleaseRescheduleMakesJobRunnableAgainAtNewTime(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	id, _ := m.QueueAsync(ctx, Single("job", nil, time.Now()))
	_, err := m.AcquireJob(ctx)
	require.NoError(t, err)

	future := time.Now().Add(time.Hour)
	require.NoError(t, m.ReleaseJob(ctx, id, jobrun.ResultReschedule(future)))
	assert.Equal(t, 0, m.LeasedCount())

	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc, "rescheduled due time is in the future")
}

func TestMemoryReleaseUnknownIDErrors(t *testing.T) {
	m := NewMemory()
	err := m.ReleaseJob(context.Background(), "does-not-exist", jobrun.ResultFinished())
	require.Error(t, err)
}

func TestMemorySequenceOrdersChildren(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	_, err := m.QueueAsync(ctx, SequenceOf(
		Single("step1", nil, now),
		Single("step2", nil, now),
		Single("step3", nil, now),
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"step1"}, m.ReadyLeafTypes())

	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, "step1", desc.Type)
	require.NoError(t, m.ReleaseJob(ctx, desc.ID, jobrun.ResultFinished()))

	assert.Equal(t, []string{"step2"}, m.ReadyLeafTypes())

	desc, err = m.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, "step2", desc.Type)
	require.NoError(t, m.ReleaseJob(ctx, desc.ID, jobrun.ResultFinished()))

	assert.Equal(t, []string{"step3"}, m.ReadyLeafTypes())
}

func TestMemorySequenceContinuesPastAnErroredChild(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	_, err := m.QueueAsync(ctx, SequenceOf(
		Single("step1", nil, now),
		Single("step2", nil, now),
	))
	require.NoError(t, err)

	desc, err := m.AcquireJob(ctx)
	require.NoError(t, err)
	require.NoError(t, m.ReleaseJob(ctx, desc.ID, jobrun.ResultError("boom", now)))

	assert.Equal(t, []string{"step2"}, m.ReadyLeafTypes(), "an errored child still unblocks its successor")
}

func TestMemorySetRunsChildrenConcurrentlyAndCompletesWhenAllFinish(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	now := time.Now()

	_, err := m.QueueAsync(ctx, SetOf(
		Single("a", nil, now),
		Single("b", nil, now),
		Single("c", nil, now),
	))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b", "c"}, m.ReadyLeafTypes())

	var ids []string
	for i := 0; i < 3; i++ {
		desc, err := m.AcquireJob(ctx)
		require.NoError(t, err)
		require.NotNil(t, desc)
		ids = append(ids, desc.ID)
	}
	assert.Equal(t, 3, m.LeasedCount())

	for i, id := range ids {
		state := jobrun.ResultFinished()
		if i == 1 {
			state = jobrun.ResultError("one failed", now)
		}
		require.NoError(t, m.ReleaseJob(ctx, id, state))
	}
	assert.Equal(t, 0, m.LeasedCount())
	assert.Empty(t, m.ReadyLeafTypes())
}

func TestMemoryHeartbeatRoundTrip(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, ok := m.Liveness("worker-1")
	assert.False(t, ok)

	require.NoError(t, m.Heartbeat(ctx, "worker-1", 4, time.Second, 30*time.Second))

	l, ok := m.Liveness("worker-1")
	require.True(t, ok)
	assert.Equal(t, "worker-1", l.MachineName)
	assert.Equal(t, 4, l.Parallelism)
	assert.WithinDuration(t, time.Now(), l.LastSeen, time.Second)
}
