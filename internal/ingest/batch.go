package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/services/production"
)

// Submitter is the behavior the batch depends on.
type Submitter interface {
	SubmitUpload(ctx context.Context, filename string, data []byte) (production.UploadResult, error)
}

// FileResult is the per-file ingest outcome.
type FileResult struct {
	Path          string
	UploadID      string
	ItemsSaved    int
	RejectedCount int
	ParsingMethod constants.ParsingMethod
	Elapsed       time.Duration
	Err           string
}

// Batch submits workbook files from disk, a few at a time. Each file is still one upload.
type Batch struct {
	Submitter Submitter
	Workers   int // default 4
	Logger    *slog.Logger
}

func NewBatch(s Submitter, workers int, logger *slog.Logger) *Batch {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Batch{Submitter: s, Workers: workers, Logger: logger}
}

// IngestPath reads and submits a single workbook.
func (b *Batch) IngestPath(ctx context.Context, path string) (FileResult, error) {
	out := FileResult{Path: path}
	start := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		b.Logger.Error("read error", "path", path, "error", err)
		return out, err
	}
	res, err := b.Submitter.SubmitUpload(ctx, filepath.Base(path), data)
	out.Elapsed = time.Since(start)
	if err != nil {
		return out, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	out.UploadID = res.UploadID.String()
	out.ItemsSaved = res.ItemsSaved
	out.RejectedCount = res.RejectedCount
	out.ParsingMethod = res.ParsingMethod
	return out, nil
}

// IngestDirectory submits every workbook under root. Per-file failures are
// reported in the results; only a failed walk or a cancelled context is an error.
// Results keep the lexical order of the files.
func (b *Batch) IngestDirectory(ctx context.Context, root string, skipHidden bool) ([]FileResult, DirStats, error) {
	paths, stats, failed, err := ScanDirectory(root, skipHidden)
	if err != nil {
		return failed, stats, err
	}
	b.Logger.Info("starting directory ingest", "root", root, "matched", len(paths), "workers", b.Workers)

	results := make([]FileResult, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.Workers)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := b.IngestPath(gctx, p)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.Err = err.Error()
				stats.Failed++
				b.Logger.Warn("file ingest failed", "path", p, "error", err)
			} else {
				stats.Succeeded++
				b.Logger.Info("file ingest succeeded", "path", p, "upload_id", r.UploadID, "items_saved", r.ItemsSaved)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return append(failed, results...), stats, err
	}
	if err := ctx.Err(); err != nil {
		return append(failed, results...), stats, err
	}

	b.Logger.Info("directory ingest completed",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
	)
	return append(failed, results...), stats, nil
}
