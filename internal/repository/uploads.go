package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/common"
	"github.com/joseph-ayodele/production-tracker/internal/entity"
)

var uploadColumns = []string{
	"id", "filename", "content_hash", "size_bytes", "status", "parsing_method",
	"items_saved", "rejected_count", "error_message", "column_mapping",
	"started_at", "finished_at", "processing_ms",
}

// UploadOutcome is what a finished upload records about itself.
type UploadOutcome struct {
	ParsingMethod constants.ParsingMethod
	ItemsSaved    int
	RejectedCount int
	ColumnMapping json.RawMessage
	Elapsed       time.Duration
}

// UploadRepository keeps the history of submitted workbooks.
type UploadRepository interface {
	Start(ctx context.Context, u *entity.Upload) error
	Finish(ctx context.Context, id uuid.UUID, out UploadOutcome) error
	Fail(ctx context.Context, id uuid.UUID, message string, elapsed time.Duration) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Upload, error)
	List(ctx context.Context) ([]*entity.Upload, error)
}

type uploadRepo struct {
	db  *DB
	log *slog.Logger
}

func NewUploadRepository(db *DB, log *slog.Logger) UploadRepository {
	if log == nil {
		log = slog.Default()
	}
	return &uploadRepo{db: db, log: log}
}

func (r *uploadRepo) Start(ctx context.Context, u *entity.Upload) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.StartedAt.IsZero() {
		u.StartedAt = time.Now()
	}
	u.StartedAt = u.StartedAt.UTC()
	u.Status = constants.UploadStatusReceived

	query, args := r.db.builder().
		Insert(tableUploads).
		Columns("id", "filename", "content_hash", "size_bytes", "status", "started_at").
		Values(u.ID, u.Filename, u.ContentHash, u.SizeBytes, string(u.Status), timeArg(r.db.dialect, u.StartedAt)).
		Query()
	if err := r.db.drv.Exec(ctx, query, args, nil); err != nil {
		r.log.Error("upload start failed", "filename", u.Filename, "err", err)
		return fmt.Errorf("start upload: %w", err)
	}
	r.log.Info("upload started", "upload_id", u.ID, "filename", u.Filename, "size_bytes", u.SizeBytes)
	return nil
}

func (r *uploadRepo) Finish(ctx context.Context, id uuid.UUID, out UploadOutcome) error {
	upd := r.db.builder().
		Update(tableUploads).
		Set("status", string(constants.UploadStatusComplete)).
		Set("parsing_method", string(out.ParsingMethod)).
		Set("items_saved", out.ItemsSaved).
		Set("rejected_count", out.RejectedCount).
		Set("finished_at", timeArg(r.db.dialect, time.Now())).
		Set("processing_ms", out.Elapsed.Milliseconds()).
		Where(entsql.EQ("id", id))
	if len(out.ColumnMapping) > 0 {
		upd.Set("column_mapping", string(out.ColumnMapping))
	}
	if err := r.exec(ctx, upd); err != nil {
		r.log.Error("upload finish(COMPLETE) failed", "upload_id", id, "err", err)
		return err
	}
	r.log.Info("upload finished (COMPLETE)", "upload_id", id, "method", out.ParsingMethod, "items_saved", out.ItemsSaved)
	return nil
}

func (r *uploadRepo) Fail(ctx context.Context, id uuid.UUID, message string, elapsed time.Duration) error {
	upd := r.db.builder().
		Update(tableUploads).
		Set("status", string(constants.UploadStatusFailed)).
		Set("error_message", message).
		Set("finished_at", timeArg(r.db.dialect, time.Now())).
		Set("processing_ms", elapsed.Milliseconds()).
		Where(entsql.EQ("id", id))
	if err := r.exec(ctx, upd); err != nil {
		r.log.Error("upload finish(FAILED) failed", "upload_id", id, "err", err)
		return err
	}
	r.log.Warn("upload finished (FAILED)", "upload_id", id, "error", message)
	return nil
}

func (r *uploadRepo) exec(ctx context.Context, upd *entsql.UpdateBuilder) error {
	query, args := upd.Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, query, args, &res); err != nil {
		return fmt.Errorf("update upload: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update upload: %w", common.ErrNotFound)
	}
	return nil
}

func (r *uploadRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Upload, error) {
	uploads, err := r.query(ctx, r.db.builder().
		Select(uploadColumns...).
		From(entsql.Table(tableUploads)).
		Where(entsql.EQ("id", id)))
	if err != nil {
		return nil, err
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("upload %s: %w", id, common.ErrNotFound)
	}
	return uploads[0], nil
}

// List returns the upload history, newest first.
func (r *uploadRepo) List(ctx context.Context) ([]*entity.Upload, error) {
	return r.query(ctx, r.db.builder().
		Select(uploadColumns...).
		From(entsql.Table(tableUploads)).
		OrderBy(entsql.Desc("started_at")))
}

func (r *uploadRepo) query(ctx context.Context, sel *entsql.Selector) ([]*entity.Upload, error) {
	query, args := sel.Query()
	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		r.log.Error("failed to list uploads", "err", err)
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	defer rows.Close()

	var out []*entity.Upload
	for rows.Next() {
		var (
			u                 entity.Upload
			status            string
			method, errMsg    sql.NullString
			mapping           []byte
			started, finished timestamp
		)
		if err := rows.Scan(
			&u.ID, &u.Filename, &u.ContentHash, &u.SizeBytes, &status, &method,
			&u.ItemsSaved, &u.RejectedCount, &errMsg, &mapping,
			&started, &finished, &u.ProcessingMS,
		); err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		u.Status = constants.UploadStatus(status)
		u.ParsingMethod = constants.ParsingMethod(method.String)
		if errMsg.Valid {
			u.ErrorMessage = &errMsg.String
		}
		if len(mapping) > 0 {
			u.ColumnMapping = json.RawMessage(mapping)
		}
		u.StartedAt = started.Time
		if finished.Valid {
			t := finished.Time
			u.FinishedAt = &t
		}
		out = append(out, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	return out, nil
}
