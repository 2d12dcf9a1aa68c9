package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"showservice/internal/cache"
	"showservice/internal/config"
	"showservice/internal/model"
	"showservice/internal/retry"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrInvalidPage is returned for a negative start page
var ErrInvalidPage = errors.New("page must be a non-negative integer")

// Catalog is the external show source
type Catalog interface {
	GetShowsPage(ctx context.Context, page int) ([]json.RawMessage, error)
	RefreshShowDetails(ctx context.Context, showID int) (json.RawMessage, error)
	GetShowUpdates(ctx context.Context, since string) (map[int]int64, error)
}

// Repository persists shows and the id-tracking table
type Repository interface {
	UpsertShow(ctx context.Context, show *model.Show) error
	UpsertShowID(ctx context.Context, showID int, lastUpdated int64) error
}

// Publisher enqueues JSON messages
type Publisher interface {
	Enqueue(ctx context.Context, queueName string, v interface{}) error
}

// ProgressTracker records import run progress
type ProgressTracker interface {
	StartBulkImportTracking(ctx context.Context, importID string, startPage, estimatedPages int)
	UpdateImportProgress(ctx context.Context, importID string, page int, success bool)
	CompleteBulkImport(ctx context.Context, importID string, status model.ImportStatus)
}

// PageArchive keeps the raw fetched pages
type PageArchive interface {
	PutPage(ctx context.Context, page int, body []byte) (string, error)
}

// itemAttempts bounds the in-process retry of a single show write
const itemAttempts = 3

// ShowImporter drives the page-at-a-time import of the catalog
type ShowImporter struct {
	catalog Catalog
	repo    Repository
	queue   Publisher
	tracker ProgressTracker
	retry   *retry.Coordinator
	archive PageArchive
	reads   cache.Cache

	indexQueue        string
	detailsQueue      string
	fullPageThreshold int

	now func() time.Time
}

// NewShowImporter wires the importer; archive may be nil
func NewShowImporter(cfg *config.Config, catalog Catalog, repo Repository, queue Publisher, tracker ProgressTracker, coordinator *retry.Coordinator, archive PageArchive) *ShowImporter {
	return &ShowImporter{
		catalog:           catalog,
		repo:              repo,
		queue:             queue,
		tracker:           tracker,
		retry:             coordinator,
		archive:           archive,
		indexQueue:        cfg.RabbitMQ.IndexQueue,
		detailsQueue:      cfg.RabbitMQ.DetailsQueue,
		fullPageThreshold: cfg.Import.FullPageThreshold,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// WithShowCache makes every stored show drop its read-API cache entry
func (s *ShowImporter) WithShowCache(c cache.Cache) *ShowImporter {
	s.reads = c
	return s
}

// NewImportID builds a sortable, collision-resistant import id
func NewImportID(now time.Time) string {
	return fmt.Sprintf("import_%s_%s", now.UTC().Format("20060102T150405Z"), uuid.NewString()[:8])
}

// Routes returns the queue handlers this importer serves
func (s *ShowImporter) Routes() []Route {
	return []Route{
		{Queue: s.indexQueue, Operation: model.OperationIndexPage, Handler: s.HandlePageMessage},
		{Queue: s.detailsQueue, Operation: model.OperationShowDetails, Handler: s.HandleDetailMessage},
	}
}

// Start registers a new import run and queues its first page.
// It returns as soon as the page is queued.
func (s *ShowImporter) Start(ctx context.Context, startPage, estimatedPages int) (string, error) {
	if startPage < 0 {
		return "", ErrInvalidPage
	}

	importID := NewImportID(s.now())
	s.tracker.StartBulkImportTracking(ctx, importID, startPage, estimatedPages)

	page := startPage
	msg := model.PageMessage{Page: &page, ImportID: importID}
	if err := s.queue.Enqueue(ctx, s.indexQueue, msg); err != nil {
		s.tracker.CompleteBulkImport(ctx, importID, model.ImportFailed)
		return "", fmt.Errorf("failed to queue first page: %w", err)
	}

	log.Info().
		Str("importID", importID).
		Int("page", startPage).
		Msg("Started bulk import")

	return importID, nil
}

// HandlePageMessage processes one page of the show index.
// Only a failed fetch or a failed continuation enqueue is returned as an error.
func (s *ShowImporter) HandlePageMessage(ctx context.Context, msg model.QueueMessage) error {
	var body model.PageMessage
	if err := msg.Decode(&body); err != nil || body.Page == nil {
		log.Error().
			Err(err).
			Str("messageID", msg.ID).
			Msg("Queue message is missing 'page' number")
		return nil
	}

	page := *body.Page
	importID := body.ImportID
	logger := log.With().Str("importID", importID).Int("page", page).Logger()

	items, err := s.catalog.GetShowsPage(ctx, page)
	if err != nil {
		s.tracker.UpdateImportProgress(ctx, importID, page, false)
		return fmt.Errorf("failed to fetch page %d: %w", page, err)
	}

	if len(items) == 0 {
		logger.Info().Msg("Reached end of show index")
		s.tracker.CompleteBulkImport(ctx, importID, model.ImportCompleted)
		return nil
	}

	stored, err := s.persistItems(ctx, items)
	if err != nil {
		return err
	}

	s.tracker.UpdateImportProgress(ctx, importID, page, true)
	s.archivePage(ctx, page, items)

	logger.Info().
		Int("items", len(items)).
		Int("stored", stored).
		Msg("Processed shows page")

	if len(items) < s.fullPageThreshold {
		logger.Info().Int("threshold", s.fullPageThreshold).Msg("Partial page is the last one, completing import")
		s.tracker.CompleteBulkImport(ctx, importID, model.ImportCompleted)
		return nil
	}

	next := page + 1
	if err := s.queue.Enqueue(ctx, s.indexQueue, model.PageMessage{Page: &next, ImportID: importID}); err != nil {
		return fmt.Errorf("failed to queue page %d: %w", next, err)
	}

	logger.Info().Int("nextPage", next).Msg("Queued next page")
	return nil
}

// persistItems stores every well-formed show, skipping the rest. Only a
// cancelled context stops the page early.
func (s *ShowImporter) persistItems(ctx context.Context, items []json.RawMessage) (int, error) {
	stored := 0

	for i, raw := range items {
		show, ok := decodeShow(raw)
		if !ok {
			log.Warn().Int("index", i).Msg("Skipping malformed show record")
			continue
		}

		if err := s.upsertShow(ctx, show); err != nil {
			if ctx.Err() != nil {
				return stored, ctx.Err()
			}
			continue
		}
		stored++
	}

	return stored, nil
}

// upsertShow writes one show with bounded retry, then records its id
func (s *ShowImporter) upsertShow(ctx context.Context, show *model.Show) error {
	show.ImportedAt = s.now()
	identifier := fmt.Sprint(show.ID)

	err := retry.Do(ctx, s.retry, model.OperationShowUpsert, identifier, itemAttempts, func(ctx context.Context) error {
		return s.repo.UpsertShow(ctx, show)
	})
	if err != nil {
		log.Error().Err(err).Int("showID", show.ID).Msg("Failed to upsert show, skipping")
		return err
	}

	if err := cache.Invalidate(ctx, s.reads, cache.ShowKey(show.ID)); err != nil {
		log.Warn().Err(err).Int("showID", show.ID).Msg("Failed to invalidate cached show")
	}

	if show.Updated != 0 {
		s.updateIDTable(ctx, show.ID, show.Updated)
	}

	return nil
}

// updateIDTable is best effort
func (s *ShowImporter) updateIDTable(ctx context.Context, showID int, lastUpdated int64) {
	err := retry.Do(ctx, s.retry, model.OperationShowIDUpdate, fmt.Sprint(showID), itemAttempts, func(ctx context.Context) error {
		return s.repo.UpsertShowID(ctx, showID, lastUpdated)
	})
	if err != nil {
		log.Error().Err(err).Int("showID", showID).Msg("Failed to update show id table")
	}
}

func (s *ShowImporter) archivePage(ctx context.Context, page int, items []json.RawMessage) {
	if s.archive == nil {
		return
	}

	body, err := json.Marshal(items)
	if err != nil {
		log.Error().Err(err).Int("page", page).Msg("Failed to encode page for archive")
		return
	}

	if _, err := s.archive.PutPage(ctx, page, body); err != nil {
		log.Warn().Err(err).Int("page", page).Msg("Failed to archive page")
	}
}

// HandleDetailMessage refreshes a single show from the catalog
func (s *ShowImporter) HandleDetailMessage(ctx context.Context, msg model.QueueMessage) error {
	var body model.DetailMessage
	if err := msg.Decode(&body); err != nil || body.ShowID == nil {
		log.Error().
			Err(err).
			Str("messageID", msg.ID).
			Msg("Queue message is missing 'show_id' number")
		return nil
	}

	showID := *body.ShowID

	raw, err := s.catalog.RefreshShowDetails(ctx, showID)
	if err != nil {
		return fmt.Errorf("failed to fetch show %d: %w", showID, err)
	}
	if raw == nil {
		log.Warn().Int("showID", showID).Msg("Show not found in catalog")
		return nil
	}

	show, ok := decodeShow(raw)
	if !ok {
		log.Error().Int("showID", showID).Msg("Catalog returned a malformed show")
		return nil
	}

	if err := s.upsertShow(ctx, show); err != nil {
		return ctx.Err()
	}

	log.Info().Int("showID", showID).Msg("Refreshed show details")
	return nil
}

// QueueShowDetails asks a worker to refresh one show
func (s *ShowImporter) QueueShowDetails(ctx context.Context, showID int) error {
	id := showID
	if err := s.queue.Enqueue(ctx, s.detailsQueue, model.DetailMessage{ShowID: &id}); err != nil {
		return fmt.Errorf("failed to queue show %d: %w", showID, err)
	}
	return nil
}

// GetUpdates queues a detail refresh for every show the catalog changed in
// the given window and records the new timestamps. It returns how many
// shows were queued.
func (s *ShowImporter) GetUpdates(ctx context.Context, since string) (int, error) {
	updates, err := retry.WithRetry(ctx, s.retry, model.OperationCatalogUpdates, since, 0, func(ctx context.Context) (map[int]int64, error) {
		return s.catalog.GetShowUpdates(ctx, since)
	})
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, showID := range sortedKeys(updates) {
		if err := s.QueueShowDetails(ctx, showID); err != nil {
			log.Error().Err(err).Int("showID", showID).Msg("Failed to queue show update")
			continue
		}
		queued++
		s.updateIDTable(ctx, showID, updates[showID])
	}

	log.Info().
		Str("since", since).
		Int("updated", len(updates)).
		Int("queued", queued).
		Msg("Queued catalog updates")

	return queued, nil
}

// decodeShow accepts only JSON objects carrying a non-zero id
func decodeShow(raw json.RawMessage) (*model.Show, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var show model.Show
	if err := json.Unmarshal(trimmed, &show); err != nil {
		return nil, false
	}
	if show.ID == 0 {
		return nil, false
	}

	return &show, true
}

func sortedKeys(m map[int]int64) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
