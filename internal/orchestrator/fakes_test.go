package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"showservice/internal/cache"
	"showservice/internal/config"
	"showservice/internal/model"
	"showservice/internal/retry"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type fakeCatalog struct {
	pages      map[int][]json.RawMessage
	pageErr    error
	details    map[int]json.RawMessage
	detailsErr error
	updates    map[int]int64
	fetched    []int
	refreshed  []int
}

func (c *fakeCatalog) GetShowsPage(_ context.Context, page int) ([]json.RawMessage, error) {
	c.fetched = append(c.fetched, page)
	if c.pageErr != nil {
		return nil, c.pageErr
	}
	return c.pages[page], nil
}

func (c *fakeCatalog) RefreshShowDetails(_ context.Context, showID int) (json.RawMessage, error) {
	c.refreshed = append(c.refreshed, showID)
	if c.detailsErr != nil {
		return nil, c.detailsErr
	}
	return c.details[showID], nil
}

func (c *fakeCatalog) GetShowUpdates(_ context.Context, _ string) (map[int]int64, error) {
	return c.updates, nil
}

type fakeRepo struct {
	mu       sync.Mutex
	upserts  []int
	ids      map[int]int64
	failFor  map[int]bool
	attempts map[int]int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{ids: map[int]int64{}, failFor: map[int]bool{}, attempts: map[int]int{}}
}

func (r *fakeRepo) UpsertShow(_ context.Context, show *model.Show) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts[show.ID]++
	if r.failFor[show.ID] {
		return errors.New("write conflict")
	}
	r.upserts = append(r.upserts, show.ID)
	return nil
}

func (r *fakeRepo) UpsertShowID(_ context.Context, showID int, lastUpdated int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[showID] = lastUpdated
	return nil
}

type enqueued struct {
	queue string
	body  []byte
}

type fakeQueue struct {
	mu       sync.Mutex
	messages []enqueued
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, queueName string, v interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	q.messages = append(q.messages, enqueued{queue: queueName, body: body})
	return nil
}

func (q *fakeQueue) InspectQueue(name string) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (q *fakeQueue) Get(string) (amqp.Delivery, bool, error) {
	return amqp.Delivery{}, false, nil
}

type progressCall struct {
	importID string
	page     int
	success  bool
}

type fakeTracker struct {
	started   []string
	progress  []progressCall
	completed map[string][]model.ImportStatus
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{completed: map[string][]model.ImportStatus{}}
}

func (t *fakeTracker) StartBulkImportTracking(_ context.Context, importID string, _, _ int) {
	t.started = append(t.started, importID)
}

func (t *fakeTracker) UpdateImportProgress(_ context.Context, importID string, page int, success bool) {
	t.progress = append(t.progress, progressCall{importID, page, success})
}

func (t *fakeTracker) CompleteBulkImport(_ context.Context, importID string, status model.ImportStatus) {
	t.completed[importID] = append(t.completed[importID], status)
}

type noopRetryTracker struct{}

func (noopRetryTracker) TrackRetryAttempt(context.Context, model.RetryAttempt)         {}
func (noopRetryTracker) ResolveOperation(context.Context, model.OperationType, string) {}
func (noopRetryTracker) GetFailedOperations(context.Context, model.OperationType, int) []model.FailedOperation {
	return nil
}

type fakeArchive struct {
	pages map[int][]byte
}

func (a *fakeArchive) PutPage(_ context.Context, page int, body []byte) (string, error) {
	a.pages[page] = body
	return fmt.Sprintf("shows_page_%d.json", page), nil
}

type deletingCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func (c *deletingCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return v, nil
}

func (c *deletingCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *deletingCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *deletingCache) Ping(context.Context) error { return nil }
func (c *deletingCache) Close() error               { return nil }

type harness struct {
	importer *ShowImporter
	catalog  *fakeCatalog
	repo     *fakeRepo
	queue    *fakeQueue
	tracker  *fakeTracker
	archive  *fakeArchive
}

func newHarness() *harness {
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	// no backoff sleeps in tests
	cfg.Import.BaseDelaySeconds = 0

	h := &harness{
		catalog: &fakeCatalog{pages: map[int][]json.RawMessage{}, details: map[int]json.RawMessage{}},
		repo:    newFakeRepo(),
		queue:   &fakeQueue{},
		tracker: newFakeTracker(),
		archive: &fakeArchive{pages: map[int][]byte{}},
	}
	coordinator := retry.NewCoordinator(cfg, noopRetryTracker{}, h.queue)
	h.importer = NewShowImporter(cfg, h.catalog, h.repo, h.queue, h.tracker, coordinator, h.archive)
	return h
}

func showItems(from, count int) []json.RawMessage {
	items := make([]json.RawMessage, 0, count)
	for id := from; id < from+count; id++ {
		items = append(items, json.RawMessage(fmt.Sprintf(`{"id":%d,"name":"Show %d","updated":%d}`, id, id, 1700000000+id)))
	}
	return items
}

func pageMsg(page int, importID string) model.QueueMessage {
	body, _ := json.Marshal(model.PageMessage{Page: &page, ImportID: importID})
	return model.QueueMessage{ID: "m", Body: body, DequeueCount: 1}
}
