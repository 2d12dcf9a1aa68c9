package controller

import (
	"context"
	"errors"
	"fmt"
	"showservice/internal/database"
	"showservice/internal/model"
	"showservice/pkg/tvmaze"

	"github.com/rs/zerolog/log"
)

var (
	// ErrArchiveDisabled is returned when no page archive is configured
	ErrArchiveDisabled = errors.New("page archive is not configured")

	// ErrInvalidStatus is returned when a run is completed with a non-terminal status
	ErrInvalidStatus = errors.New("status must be completed or failed")
)

// ImportController drives bulk imports and catalog update sweeps
type ImportController interface {
	// StartImport queues the first page of a new import run and returns its id
	StartImport(ctx context.Context, page, estimatedPages int) (string, error)

	// GetImportStatus returns database.ErrNotFound for unknown ids
	GetImportStatus(ctx context.Context, importID string) (*model.ImportRun, error)

	// ListImports returns the most recent runs first
	ListImports(ctx context.Context, limit int) []*model.ImportRun

	// CompleteImport forces a run into a terminal status. Unknown ids return
	// database.ErrNotFound, runs that already finished database.ErrImportFinalized.
	CompleteImport(ctx context.Context, importID string, status model.ImportStatus) (*model.ImportRun, error)

	// GetArchivedPage returns the raw index page stored during an import
	GetArchivedPage(ctx context.Context, page int) ([]byte, error)

	// QueueUpdates queues detail refreshes for shows changed in the window
	QueueUpdates(ctx context.Context, since string) (int, error)
}

type Importer interface {
	Start(ctx context.Context, startPage, estimatedPages int) (string, error)
	GetUpdates(ctx context.Context, since string) (int, error)
}

type ImportStatusReader interface {
	GetImportStatus(ctx context.Context, importID string) *model.ImportRun
	ListRecentImports(ctx context.Context, limit int) []*model.ImportRun
	CompleteBulkImport(ctx context.Context, importID string, status model.ImportStatus)
}

type PageReader interface {
	GetPage(ctx context.Context, page int) ([]byte, error)
}

type importController struct {
	importer Importer
	status   ImportStatusReader
	archive  PageReader
}

// NewImportController builds the controller. archive may be nil when blob storage is disabled.
func NewImportController(importer Importer, status ImportStatusReader, archive PageReader) ImportController {
	return &importController{
		importer: importer,
		status:   status,
		archive:  archive,
	}
}

func (c *importController) StartImport(ctx context.Context, page, estimatedPages int) (string, error) {
	importID, err := c.importer.Start(ctx, page, estimatedPages)
	if err != nil {
		return "", err
	}

	log.Info().Str("importID", importID).Int("page", page).Msg("Import requested")
	return importID, nil
}

func (c *importController) GetImportStatus(ctx context.Context, importID string) (*model.ImportRun, error) {
	run := c.status.GetImportStatus(ctx, importID)
	if run == nil {
		return nil, database.ErrNotFound
	}
	return run, nil
}

func (c *importController) ListImports(ctx context.Context, limit int) []*model.ImportRun {
	return c.status.ListRecentImports(ctx, limit)
}

func (c *importController) CompleteImport(ctx context.Context, importID string, status model.ImportStatus) (*model.ImportRun, error) {
	if !status.IsTerminal() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	run := c.status.GetImportStatus(ctx, importID)
	if run == nil {
		return nil, database.ErrNotFound
	}
	if run.Status.IsTerminal() {
		return run, database.ErrImportFinalized
	}

	c.status.CompleteBulkImport(ctx, importID, status)
	log.Warn().Str("importID", importID).Str("status", string(status)).Msg("Import completed by operator")

	if updated := c.status.GetImportStatus(ctx, importID); updated != nil {
		return updated, nil
	}
	return run, nil
}

func (c *importController) GetArchivedPage(ctx context.Context, page int) ([]byte, error) {
	if c.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return c.archive.GetPage(ctx, page)
}

func (c *importController) QueueUpdates(ctx context.Context, since string) (int, error) {
	if !tvmaze.ValidPeriod(since) {
		return 0, fmt.Errorf("%w: %q", tvmaze.ErrInvalidPeriod, since)
	}
	return c.importer.GetUpdates(ctx, since)
}
