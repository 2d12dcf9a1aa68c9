package monitoring

import (
	"context"
	"errors"
	"showservice/internal/database"
	"showservice/internal/model"
	"sort"
	"sync"
	"time"
)

// memoryStore is an in-memory Store with the same semantics as the Mongo one
type memoryStore struct {
	mu       sync.Mutex
	runs        map[string]*model.ImportRun
	attempts    []*model.RetryAttempt
	resolutions []model.RetryResolution
	metrics     map[string]*model.HealthMetric

	upserts int
	err     error

	total  int64
	stale  int64
	newest *time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		runs:    map[string]*model.ImportRun{},
		metrics: map[string]*model.HealthMetric{},
	}
}

func (s *memoryStore) UpsertImportRun(_ context.Context, run *model.ImportRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.upserts++
	cp := *run
	s.runs[run.ImportID] = &cp
	return nil
}

func (s *memoryStore) IncrementImportProgress(_ context.Context, importID string, page int, success bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	run, ok := s.runs[importID]
	if !ok {
		return database.ErrNotFound
	}
	if success {
		run.CompletedPages++
	} else {
		run.FailedPages++
	}
	p := page
	run.LastProcessedPage = &p
	run.LastActivityTime = at
	return nil
}

func (s *memoryStore) FinalizeImportRun(_ context.Context, importID string, status model.ImportStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	run, ok := s.runs[importID]
	if !ok {
		return database.ErrNotFound
	}
	if run.Status.IsTerminal() {
		return database.ErrImportFinalized
	}
	run.Status = status
	end := at
	run.EndTime = &end
	return nil
}

func (s *memoryStore) GetImportRun(_ context.Context, importID string) (*model.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	run, ok := s.runs[importID]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *memoryStore) CountImportRunsByStatus(_ context.Context, status model.ImportStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	var n int64
	for _, run := range s.runs {
		if run.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) ListImportRuns(_ context.Context, limit int) ([]*model.ImportRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	runs := make([]*model.ImportRun, 0, len(s.runs))
	for _, run := range s.runs {
		copied := *run
		runs = append(runs, &copied)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartTime.After(runs[j].StartTime) })
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (s *memoryStore) UpsertRetryAttempt(_ context.Context, attempt *model.RetryAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *attempt
	for i, a := range s.attempts {
		if a.OperationType == cp.OperationType && a.Identifier == cp.Identifier && a.AttemptNumber == cp.AttemptNumber {
			s.attempts[i] = &cp
			return nil
		}
	}
	s.attempts = append(s.attempts, &cp)
	return nil
}

func (s *memoryStore) InsertRetryResolution(_ context.Context, resolution *model.RetryResolution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.resolutions = append(s.resolutions, *resolution)
	return nil
}

// resolved must be called with mu held
func (s *memoryStore) resolved(a *model.RetryAttempt) bool {
	for _, r := range s.resolutions {
		if r.OperationType == a.OperationType && r.Identifier == a.Identifier && !r.ResolvedAt.Before(a.AttemptTime) {
			return true
		}
	}
	return false
}

func (s *memoryStore) ListUnresolvedRetryAttempts(_ context.Context, op model.OperationType, since, due time.Time) ([]*model.RetryAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []*model.RetryAttempt{}
	for _, a := range s.attempts {
		if a.OperationType == op && !s.resolved(a) && !a.AttemptTime.Before(since) && !a.NextRetryTime.After(due) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].AttemptTime.Before(out[j].AttemptTime) })
	return out, nil
}

func (s *memoryStore) CountUnresolvedOperations(_ context.Context, since time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	seen := map[string]bool{}
	for _, a := range s.attempts {
		if !s.resolved(a) && !a.AttemptTime.Before(since) {
			seen[string(a.OperationType)+"/"+a.Identifier] = true
		}
	}
	return len(seen), nil
}

func (s *memoryStore) UpsertHealthMetric(_ context.Context, metric *model.HealthMetric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	cp := *metric
	s.metrics[metric.Name] = &cp
	return nil
}

func (s *memoryStore) GetHealthMetric(_ context.Context, name string) (*model.HealthMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.metrics[name]
	if !ok {
		return nil, database.ErrNotFound
	}
	return m, nil
}

func (s *memoryStore) ListHealthMetrics(_ context.Context) ([]*model.HealthMetric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := []*model.HealthMetric{}
	for _, m := range s.metrics {
		out = append(out, m)
	}
	return out, nil
}

func (s *memoryStore) ShowStats(_ context.Context, _ time.Time) (int64, int64, *time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, 0, nil, s.err
	}
	return s.total, s.stale, s.newest, nil
}

var errStoreDown = errors.New("store unavailable")
