package sqlstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenwick-labs/jobengine/internal/jobrun"
	"github.com/fenwick-labs/jobengine/internal/store"
	"github.com/fenwick-labs/jobengine/internal/store/sqlstore"
	"github.com/fenwick-labs/jobengine/internal/store/sqlstore/testutil"
)

func newStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	db := testutil.DB(t)
	testutil.Truncate(t, db)
	return sqlstore.New(db)
}

func TestSqlstoreQueueAndAcquireRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	payload, err := sqlstore.MarshalInput(map[string]string{"to": "a@b.com"})
	require.NoError(t, err)

	id, err := s.QueueAsync(ctx, store.Single("send_email", payload, time.Now().Add(-time.Second)))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	desc, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Equal(t, id, desc.ID)
	assert.Equal(t, "send_email", desc.Type)
	assert.JSONEq(t, `{"to":"a@b.com"}`, string(desc.Input))

	// Already claimed: nothing else runnable right now.
	desc2, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc2)
}

func TestSqlstoreQueueAsyncRejectsCompositeSpecs(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.QueueAsync(ctx, store.SequenceOf(
		store.Single("a", nil, time.Now()),
		store.Single("b", nil, time.Now()),
	))
	assert.Error(t, err)
}

func TestSqlstoreAcquireSkipsFutureDueTime(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.QueueAsync(ctx, store.Single("later", nil, time.Now().Add(time.Hour)))
	require.NoError(t, err)

	desc, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc)
}

func TestSqlstoreReleaseFinished(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.QueueAsync(ctx, store.Single("job", nil, time.Now()))
	require.NoError(t, err)

	desc, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, id, desc.ID)

	require.NoError(t, s.ReleaseJob(ctx, id, jobrun.ResultFinished()))

	desc, err = s.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc, "a succeeded job is never offered again")
}

func TestSqlstoreReleaseRescheduleRequeuesAtNewDueTime(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.QueueAsync(ctx, store.Single("job", nil, time.Now()))
	require.NoError(t, err)

	desc, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, id, desc.ID)

	require.NoError(t, s.ReleaseJob(ctx, id, jobrun.ResultReschedule(time.Now().Add(-time.Second))))

	desc, err = s.AcquireJob(ctx)
	require.NoError(t, err)
	require.NotNil(t, desc)
	assert.Equal(t, id, desc.ID)
}

func TestSqlstoreReleaseErrorAllowsRetryAfterDelay(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	id, err := s.QueueAsync(ctx, store.Single("job", nil, time.Now()))
	require.NoError(t, err)

	desc, err := s.AcquireJob(ctx)
	require.NoError(t, err)
	require.Equal(t, id, desc.ID)

	require.NoError(t, s.ReleaseJob(ctx, id, jobrun.ResultError("transient failure", time.Now())))

	// Immediately after a failure the retry delay hasn't elapsed yet.
	desc, err = s.AcquireJob(ctx)
	require.NoError(t, err)
	assert.Nil(t, desc)
}

func TestSqlstoreReleaseUnknownIDErrors(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.ReleaseJob(ctx, "00000000-0000-0000-0000-000000000000", jobrun.ResultFinished())
	assert.Error(t, err)
}

func TestSqlstoreHeartbeatUpserts(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.Heartbeat(ctx, "worker-1", 4, time.Second, 30*time.Second))
	require.NoError(t, s.Heartbeat(ctx, "worker-1", 8, 2*time.Second, 60*time.Second))
}

func TestMarshalInputNilProducesEmptyObject(t *testing.T) {
	b, err := sqlstore.MarshalInput(nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(b))
}
