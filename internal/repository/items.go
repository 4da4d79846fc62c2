package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/production-tracker/constants"
	"github.com/joseph-ayodele/production-tracker/internal/entity"
)

// insertChunk bounds the bind variables of one INSERT well below sqlite's limit.
const insertChunk = 500

var itemColumns = []string{
	"id", "upload_id", "seq", "source_row", "order_number", "style", "fabric", "color",
	"quantity", "status", "timeline", "raw_context", "parsing_method", "created_at",
}

// ItemRepository stores validated production items.
type ItemRepository interface {
	// InsertBatch writes every item in one transaction; either all rows land or none do.
	InsertBatch(ctx context.Context, items []*entity.ProductionItem) error
	// List returns all items ordered by creation time, then insertion sequence.
	List(ctx context.Context) ([]*entity.ProductionItem, error)
	DeleteAll(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

type itemRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewItemRepository(db *DB, logger *slog.Logger) ItemRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &itemRepo{db: db, logger: logger}
}

func (r *itemRepo) InsertBatch(ctx context.Context, items []*entity.ProductionItem) (err error) {
	if len(items) == 0 {
		return nil
	}
	start := time.Now()
	now := start.UTC()
	for i, it := range items {
		if it.ID == uuid.Nil {
			it.ID = uuid.New()
		}
		if it.CreatedAt.IsZero() {
			it.CreatedAt = now
		}
		it.CreatedAt = it.CreatedAt.UTC()
		it.Seq = i
	}

	tx, err := r.db.drv.Tx(ctx)
	if err != nil {
		r.logger.Error("repository.items.tx_begin_failed", "error", err)
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.logger.Warn("repository.items.rollback_failed", "error", rbErr)
			}
		}
	}()

	for lo := 0; lo < len(items); lo += insertChunk {
		hi := min(lo+insertChunk, len(items))
		ins := r.db.builder().Insert(tableItems).Columns(itemColumns...)
		for _, it := range items[lo:hi] {
			values, verr := r.values(it)
			if verr != nil {
				return verr
			}
			ins.Values(values...)
		}
		query, args := ins.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			r.logger.Error("repository.items.insert_failed", "rows", hi-lo, "error", err)
			return fmt.Errorf("insert items: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		r.logger.Error("repository.items.commit_failed", "error", err)
		return fmt.Errorf("commit items: %w", err)
	}
	r.logger.Info("repository.items.insert",
		"upload_id", items[0].UploadID,
		"rows", len(items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (r *itemRepo) values(it *entity.ProductionItem) ([]any, error) {
	timeline := it.Timeline
	if timeline == nil {
		timeline = map[string]*string{}
	}
	tl, err := json.Marshal(timeline)
	if err != nil {
		return nil, fmt.Errorf("encode timeline: %w", err)
	}
	rawCtx := it.RawContext
	if rawCtx == nil {
		rawCtx = map[string]any{}
	}
	rc, err := json.Marshal(rawCtx)
	if err != nil {
		return nil, fmt.Errorf("encode raw_context: %w", err)
	}
	return []any{
		it.ID, it.UploadID, it.Seq, it.SourceRow, it.OrderNumber,
		nullable(it.Style), nullable(it.Fabric), nullable(it.Color),
		it.Quantity, string(it.Status), string(tl), string(rc),
		string(it.ParsingMethod), r.timeArg(it.CreatedAt),
	}, nil
}

// timeArg keeps sqlite TIMESTAMP text sortable by writing a fixed UTC layout.
func (r *itemRepo) timeArg(t time.Time) any {
	return timeArg(r.db.dialect, t)
}

func timeArg(d string, t time.Time) any {
	if d == dialect.Postgres {
		return t.UTC()
	}
	return t.UTC().Format("2006-01-02 15:04:05.000000000-07:00")
}

func (r *itemRepo) List(ctx context.Context) ([]*entity.ProductionItem, error) {
	query, args := r.db.builder().
		Select(itemColumns...).
		From(entsql.Table(tableItems)).
		OrderBy("created_at", "seq").
		Query()

	rows := &entsql.Rows{}
	if err := r.db.drv.Query(ctx, query, args, rows); err != nil {
		r.logger.Error("failed to list items", "error", err)
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []*entity.ProductionItem
	for rows.Next() {
		var (
			it                   entity.ProductionItem
			style, fabric, color sql.NullString
			status, method       string
			timeline, rawCtx     []byte
			created              timestamp
		)
		if err := rows.Scan(
			&it.ID, &it.UploadID, &it.Seq, &it.SourceRow, &it.OrderNumber,
			&style, &fabric, &color, &it.Quantity, &status,
			&timeline, &rawCtx, &method, &created,
		); err != nil {
			r.logger.Error("failed to scan item", "error", err)
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Style, it.Fabric, it.Color = style.String, fabric.String, color.String
		it.Status = constants.ItemStatus(status)
		it.ParsingMethod = constants.ParsingMethod(method)
		it.CreatedAt = created.Time
		if err := json.Unmarshal(timeline, &it.Timeline); err != nil {
			return nil, fmt.Errorf("decode timeline of %s: %w", it.ID, err)
		}
		if err := decodeNumbers(rawCtx, &it.RawContext); err != nil {
			return nil, fmt.Errorf("decode raw_context of %s: %w", it.ID, err)
		}
		out = append(out, &it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return out, nil
}

func (r *itemRepo) DeleteAll(ctx context.Context) (int, error) {
	query, args := r.db.builder().Delete(tableItems).Query()
	var res sql.Result
	if err := r.db.drv.Exec(ctx, query, args, &res); err != nil {
		r.logger.Error("failed to delete items", "error", err)
		return 0, fmt.Errorf("delete items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	r.logger.Info("repository.items.delete_all", "deleted", n)
	return int(n), nil
}

func (r *itemRepo) Count(ctx context.Context) (int, error) {
	return count(ctx, r.db, tableItems)
}

func count(ctx context.Context, db *DB, table string) (int, error) {
	query, args := db.builder().
		Select(entsql.Count("*")).
		From(entsql.Table(table)).
		Query()
	rows := &entsql.Rows{}
	if err := db.drv.Query(ctx, query, args, rows); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	defer rows.Close()
	n, err := entsql.ScanInt(rows)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// decodeNumbers keeps integral cells integral instead of widening them to float64.
func decodeNumbers(data []byte, v *map[string]any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
