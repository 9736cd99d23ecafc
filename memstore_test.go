package taskpool

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store with transaction snapshot/rollback
// semantics, used to exercise drain and lifecycle behavior without a
// database. The whole store locks for the duration of a transaction, which
// also gives it the at-most-one-claimant guarantee the contract requires.
type memStore struct {
	mu       sync.Mutex
	jobs     map[uuid.UUID]*memJob
	archived []archivedJob
	now      func() time.Time
	claimErr error
	pingErr  error
}

type memJob struct {
	id       uuid.UUID
	queue    string
	typ      string
	payload  string
	attempts int
	runAt    time.Time
}

type archivedJob struct {
	job        memJob
	status     ArchiveStatus
	finishedAt time.Time
}

func newMemStore(now func() time.Time) *memStore {
	if now == nil {
		now = time.Now
	}
	return &memStore{
		jobs: make(map[uuid.UUID]*memJob),
		now:  now,
	}
}

func (s *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobsSnap := make(map[uuid.UUID]*memJob, len(s.jobs))
	for id, job := range s.jobs {
		cp := *job
		jobsSnap[id] = &cp
	}
	archSnap := slices.Clone(s.archived)

	if err := fn(ctx); err != nil {
		s.jobs = jobsSnap
		s.archived = archSnap
		return err
	}
	return nil
}

// ClaimNext assumes the store lock is held by WithTx, mirroring the real
// store's requirement that claims happen inside a transaction.
func (s *memStore) ClaimNext(_ context.Context, queue string) (*Job, error) {
	if s.claimErr != nil {
		return nil, s.claimErr
	}

	now := s.now()
	var due *memJob
	for _, job := range s.jobs {
		if job.queue != queue || job.runAt.After(now) {
			continue
		}
		if due == nil || job.runAt.Before(due.runAt) {
			due = job
		}
	}
	if due == nil {
		return nil, nil
	}

	due.attempts++
	return &Job{
		ID:       due.id,
		Queue:    due.queue,
		Type:     due.typ,
		Payload:  due.payload,
		Attempts: due.attempts,
	}, nil
}

func (s *memStore) Archive(_ context.Context, id uuid.UUID, status ArchiveStatus, finishedAt time.Time) error {
	job, ok := s.jobs[id]
	if !ok {
		return nil
	}
	s.archived = append(s.archived, archivedJob{job: *job, status: status, finishedAt: finishedAt})
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.jobs, id)
	return nil
}

func (s *memStore) Reschedule(_ context.Context, id uuid.UUID, retryAt time.Time) error {
	if job, ok := s.jobs[id]; ok {
		job.runAt = retryAt
	}
	return nil
}

// Enqueue locks on its own: the pool's enqueue surface and the cron
// scheduler call it outside any transaction.
func (s *memStore) Enqueue(_ context.Context, queue, jobType, payload string, runAt time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New()
	s.jobs[id] = &memJob{
		id:      id,
		queue:   queue,
		typ:     jobType,
		payload: payload,
		runAt:   runAt,
	}
	return id, nil
}

func (s *memStore) Ping(context.Context) error {
	return s.pingErr
}

// snapshot helpers for assertions

func (s *memStore) liveJobs() []memJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]memJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	return out
}

func (s *memStore) archivedJobs() []archivedJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.archived)
}
