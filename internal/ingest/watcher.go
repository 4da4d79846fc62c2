package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/async"
)

type WatchConfig struct {
	Roots       []string      // directories to watch (recursive)
	InitialScan bool          // if true, walk roots and emit existing files
	Debounce    time.Duration // coalesce rapid write bursts; default 500ms
	SkipHidden  bool
}

// StartWatcher emits the path of every workbook created or rewritten under
// the roots. Both channels close when ctx is done.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Roots) == 0 {
		logger.Error("watcher start failed: no roots provided")
		return nil, nil, errors.New("no roots provided")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	for _, r := range cfg.Roots {
		err := filepath.WalkDir(r, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if cfg.SkipHidden && path != r && IsHidden(path) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if cfg.InitialScan && wanted(path, cfg.SkipHidden) {
				initial = append(initial, path)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to add root directory", "root", r, "error", err)
			_ = w.Close()
			return nil, nil, err
		}
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("watcher close failed", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		timer := time.NewTimer(cfg.Debounce)
		timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if e.Op.Has(fsnotify.Create) {
					// A new directory gets watched too; files are a no-op error.
					_ = w.Add(e.Name)
				}
				if wanted(e.Name, cfg.SkipHidden) && (e.Op.Has(fsnotify.Create) || e.Op.Has(fsnotify.Write) || e.Op.Has(fsnotify.Rename)) {
					pending[e.Name] = struct{}{}
					timer.Reset(cfg.Debounce)
				}
			case <-timer.C:
				for p := range pending {
					delete(pending, p)
					if !emit(p) {
						return
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

func wanted(path string, skipHidden bool) bool {
	if skipHidden && IsHidden(path) {
		return false
	}
	return constants.AllowedExt(filepath.Ext(path)) && !isLockFile(path)
}

// Watch submits workbooks as they appear until ctx is done. Files are handed
// to a worker queue so a slow upload does not hold up the watcher; queued
// uploads finish before Watch returns.
func (b *Batch) Watch(ctx context.Context, cfg WatchConfig) error {
	events, errs, err := StartWatcher(ctx, cfg, b.Logger)
	if err != nil {
		return err
	}
	q := async.NewWorkerQueue(func(jctx context.Context, job async.Job) error {
		r, err := b.IngestPath(jctx, job.Path)
		if err != nil {
			return err
		}
		b.Logger.Info("file ingest succeeded", "path", job.Path, "upload_id", r.UploadID, "items_saved", r.ItemsSaved)
		return nil
	}, b.Logger, async.WithWorkers(b.Workers), async.WithQueueSize(64))
	defer q.Shutdown(context.Background())

	b.Logger.Info("watching for workbooks", "roots", cfg.Roots, "workers", b.Workers)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if err := q.Enqueue(ctx, async.Job{Path: p}); err != nil {
				b.Logger.Warn("file not queued", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if ok {
				b.Logger.Warn("watcher reported error", "error", err)
			} else {
				errs = nil
			}
		}
	}
}
