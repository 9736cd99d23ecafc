package taskpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/taskpool/retry"
)

func TestNew_NilStore(t *testing.T) {
	t.Parallel()

	pool, err := New(nil)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, ErrStoreRequired)
}

func TestNew_InvalidRetryPolicy(t *testing.T) {
	t.Parallel()

	pool, err := New(newMemStore(nil),
		WithRetryPolicy("greet", retry.Policy{Retries: -1}),
	)
	assert.Nil(t, pool)
	assert.ErrorIs(t, err, retry.ErrInvalidPolicy)
	assert.ErrorContains(t, err, "greet")
}

// badCronTask has a malformed schedule expression.
type badCronTask struct{}

func (badCronTask) Name() string                   { return "bad-cron" }
func (badCronTask) Schedule() string               { return "every day at noon" }
func (badCronTask) Handle(_ context.Context) error { return nil }

func TestNew_InvalidCronSchedule(t *testing.T) {
	t.Parallel()

	pool, err := New(newMemStore(nil), WithScheduledTask(badCronTask{}))
	assert.Nil(t, pool)
	require.Error(t, err)
	assert.ErrorContains(t, err, "bad-cron")
}

func TestPool_StartStopIdempotent(t *testing.T) {
	t.Parallel()

	pool, err := New(newMemStore(nil), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	assert.False(t, pool.Running())
	assert.False(t, pool.Stop(), "stopping an idle pool is a no-op")

	assert.True(t, pool.Start(context.Background()))
	assert.True(t, pool.Running())
	assert.False(t, pool.Start(context.Background()), "starting a running pool is a no-op")

	assert.True(t, pool.Stop())
	assert.False(t, pool.Running())
	assert.False(t, pool.Stop())
}

func TestPool_Restartable(t *testing.T) {
	t.Parallel()

	pool, err := New(newMemStore(nil), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	for range 2 {
		require.True(t, pool.Start(context.Background()))
		require.True(t, pool.Running())
		require.True(t, pool.Stop())
		require.False(t, pool.Running())
	}
}

func TestPool_ProcessesEnqueuedJobs(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil)
	task := &greetTask{}

	pool, err := New(store,
		WithTask(task),
		WithQueue("emails"),
		WithWorkers(2),
		WithPollInterval(50*time.Millisecond),
	)
	require.NoError(t, err)

	require.NoError(t, pool.Enqueue(context.Background(), "greet", greetPayload{Name: "grace"}))

	require.True(t, pool.Start(context.Background()))
	defer pool.Stop()

	assert.Eventually(t, func() bool {
		return len(store.archivedJobs()) == 1
	}, 2*time.Second, 10*time.Millisecond, "job should be claimed and archived within the poll cadence")

	archived := store.archivedJobs()
	require.Len(t, archived, 1)
	assert.Equal(t, StatusSuccess, archived[0].status)
	assert.Equal(t, "emails", archived[0].job.queue)
	assert.EqualValues(t, 1, task.calls.Load())
	assert.Empty(t, store.liveJobs())
}

func TestPool_AtMostOneExecutionPerJob(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil)
	task := &greetTask{}

	pool, err := New(store,
		WithTask(task),
		WithWorkers(4),
		WithPollInterval(10*time.Millisecond),
	)
	require.NoError(t, err)

	const jobs = 20
	for range jobs {
		require.NoError(t, pool.Enqueue(context.Background(), "greet", greetPayload{Name: "ada"}))
	}

	require.True(t, pool.Start(context.Background()))
	defer pool.Stop()

	assert.Eventually(t, func() bool {
		return len(store.archivedJobs()) == jobs
	}, 5*time.Second, 10*time.Millisecond)

	// Competing workers never observe the same job: one execution per job.
	assert.EqualValues(t, jobs, task.calls.Load())
}

func TestPool_SelfStopsOnStoreFailure(t *testing.T) {
	t.Parallel()

	store := newMemStore(nil)
	store.claimErr = errors.New("connection refused")

	pool, err := New(store, WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.True(t, pool.Start(context.Background()))

	assert.Eventually(t, func() bool { return !pool.Running() }, 2*time.Second, 10*time.Millisecond,
		"a store failure must shut the pool down instead of retrying forever")
}

func TestPool_StopsWhenParentContextCancelled(t *testing.T) {
	t.Parallel()

	pool, err := New(newMemStore(nil), WithPollInterval(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, pool.Start(ctx))

	cancel()

	assert.Eventually(t, func() bool { return !pool.Running() }, 2*time.Second, 10*time.Millisecond)
}

func TestPool_OnShutdownCallback(t *testing.T) {
	t.Parallel()

	var called atomic.Bool
	pool, err := New(newMemStore(nil),
		WithPollInterval(10*time.Millisecond),
		WithOnShutdown(func() { called.Store(true) }),
	)
	require.NoError(t, err)

	require.True(t, pool.Start(context.Background()))
	assert.False(t, called.Load())

	require.True(t, pool.Stop())
	assert.True(t, called.Load())
}

// reportTask counts executions of a scheduled task.
type reportTask struct {
	calls atomic.Int32
}

func (t *reportTask) Name() string     { return "minutely-report" }
func (t *reportTask) Schedule() string { return "* * * * *" }

func (t *reportTask) Handle(_ context.Context) error {
	t.calls.Add(1)
	return nil
}

func TestPool_ScheduledTaskEnqueuesOnFire(t *testing.T) {
	t.Parallel()

	// Park the clock just before a minute boundary so the every-minute
	// schedule fires almost immediately after Start.
	var now atomic.Pointer[time.Time]
	start := time.Date(2024, 6, 1, 12, 0, 59, int(900*time.Millisecond), time.UTC)
	now.Store(&start)

	store := newMemStore(func() time.Time { return *now.Load() })
	task := &reportTask{}

	pool, err := New(store,
		WithScheduledTask(task),
		WithPollInterval(10*time.Millisecond),
		WithClock(func() time.Time { return *now.Load() }),
	)
	require.NoError(t, err)

	require.True(t, pool.Start(context.Background()))
	defer pool.Stop()

	// Once the fire enqueues the job, advance the clock past the boundary so
	// the job is due and a worker can claim it.
	assert.Eventually(t, func() bool {
		if len(store.liveJobs())+len(store.archivedJobs()) > 0 {
			fired := start.Add(time.Second)
			now.Store(&fired)
			return true
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "cron fire should enqueue a job")

	assert.Eventually(t, func() bool {
		return task.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond, "enqueued scheduled job should execute")

	archived := store.archivedJobs()
	require.NotEmpty(t, archived)
	assert.Equal(t, "minutely-report", archived[0].job.typ)
	assert.Equal(t, StatusSuccess, archived[0].status)
}

func TestStartJitter_Bounds(t *testing.T) {
	t.Parallel()

	t.Run("within poll interval", func(t *testing.T) {
		t.Parallel()
		for range 200 {
			d := startJitter(500 * time.Millisecond)
			assert.GreaterOrEqual(t, d, 100*time.Millisecond)
			assert.Less(t, d, 500*time.Millisecond)
		}
	})

	t.Run("capped at upper bound", func(t *testing.T) {
		t.Parallel()
		for range 200 {
			d := startJitter(5 * time.Second)
			assert.GreaterOrEqual(t, d, 100*time.Millisecond)
			assert.Less(t, d, 900*time.Millisecond)
		}
	})

	t.Run("pinned when interval leaves no room", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, 100*time.Millisecond, startJitter(50*time.Millisecond))
		assert.Equal(t, 100*time.Millisecond, startJitter(100*time.Millisecond))
	})
}
