package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bfb/ingestion/internal/metrics"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Table describes a snapshot table: its fixed column order, which columns form
// the primary key, and the column that scopes a replace (empty for full-table).
type Table struct {
	Name        string
	Columns     []string
	KeyColumns  []string
	ScopeColumn string
}

// SnapshotReplacer replaces a table's contents (or one scope of it) with a
// fresh snapshot inside a single transaction.
type SnapshotReplacer struct {
	pool     *pgxpool.Pool
	isoLevel pgx.TxIsoLevel

	// beforeCommit runs after the insert and before commit. Tests use it to
	// observe the table from another connection or to force a late failure.
	beforeCommit func(ctx context.Context) error
}

// NewSnapshotReplacer creates a replacer over the given pool
func NewSnapshotReplacer(pool *pgxpool.Pool, isoLevel pgx.TxIsoLevel) *SnapshotReplacer {
	if isoLevel == "" {
		isoLevel = pgx.ReadCommitted
	}
	return &SnapshotReplacer{pool: pool, isoLevel: isoLevel}
}

// Replace deletes every row in scope and inserts rows, all or nothing.
// scope must be set exactly when the table has a ScopeColumn. Rows follow
// table.Columns order. On any failure the transaction is rolled back and the
// previous snapshot stays visible.
func (r *SnapshotReplacer) Replace(ctx context.Context, table Table, scope *int, rows [][]any) (int64, error) {
	start := time.Now()

	if err := validateReplace(table, scope, rows); err != nil {
		return 0, err
	}

	count, err := r.replace(ctx, table, scope, rows)
	status := "success"
	if err != nil {
		status = replaceStatus(err)
		metrics.RecordError("snapshot_replacer", status)
	}
	metrics.RecordReplace(table.Name, status, count, time.Since(start).Seconds())

	logEvent := log.Info()
	if err != nil {
		logEvent = log.Error().Err(err)
	}
	logEvent.
		Str("table", table.Name).
		Interface("scope", scope).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("Snapshot replace finished")

	return count, err
}

func (r *SnapshotReplacer) replace(ctx context.Context, table Table, scope *int, rows [][]any) (int64, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: r.isoLevel})
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ident := pgx.Identifier{table.Name}.Sanitize()
	var tag string
	if table.ScopeColumn != "" {
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ident, pgx.Identifier{table.ScopeColumn}.Sanitize())
		ct, err := tx.Exec(ctx, query, *scope)
		if err != nil {
			return 0, fmt.Errorf("delete %s scope %d: %w", table.Name, *scope, err)
		}
		tag = ct.String()
	} else {
		ct, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", ident))
		if err != nil {
			return 0, fmt.Errorf("delete %s: %w", table.Name, err)
		}
		tag = ct.String()
	}

	log.Debug().Str("table", table.Name).Str("result", tag).Msg("Previous snapshot deleted")

	count, err := tx.CopyFrom(ctx, pgx.Identifier{table.Name}, table.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, classifyInsertError(table, err)
	}

	if r.beforeCommit != nil {
		if err := r.beforeCommit(ctx); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	return count, nil
}

func validateReplace(table Table, scope *int, rows [][]any) error {
	if table.Name == "" || len(table.Columns) == 0 {
		return fmt.Errorf("table %q has no columns", table.Name)
	}
	if table.ScopeColumn != "" && scope == nil {
		return fmt.Errorf("table %s requires a %s scope", table.Name, table.ScopeColumn)
	}
	if table.ScopeColumn == "" && scope != nil {
		return fmt.Errorf("table %s is not scoped", table.Name)
	}

	keyIdx := make([]int, 0, len(table.KeyColumns))
	for _, key := range table.KeyColumns {
		idx := indexOf(table.Columns, key)
		if idx < 0 {
			return fmt.Errorf("table %s: key column %s not in column list", table.Name, key)
		}
		keyIdx = append(keyIdx, idx)
	}

	seen := make(map[string]int, len(rows))
	for i, row := range rows {
		if len(row) != len(table.Columns) {
			return fmt.Errorf("table %s: row %d has %d values, want %d", table.Name, i, len(row), len(table.Columns))
		}
		if len(keyIdx) == 0 {
			continue
		}
		key := rowKey(row, keyIdx)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("replace %s: %w: rows %d and %d share key %s", table.Name, ErrDuplicateKey, prev, i, key)
		}
		seen[key] = i
	}

	return nil
}

func classifyInsertError(table Table, err error) error {
	switch {
	case isDuplicateKeyError(err):
		return fmt.Errorf("replace %s: %w: %s", table.Name, ErrDuplicateKey, pgDetail(err))
	case isConstraintError(err):
		return fmt.Errorf("replace %s: %w: %s", table.Name, ErrConstraintViolation, pgDetail(err))
	default:
		return fmt.Errorf("insert %s: %w", table.Name, err)
	}
}

func replaceStatus(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateKey):
		return "duplicate_key"
	case errors.Is(err, ErrConstraintViolation):
		return "constraint_violation"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func rowKey(row []any, idx []int) string {
	parts := make([]string, len(idx))
	for i, j := range idx {
		parts[i] = fmt.Sprint(row[j])
	}
	return strings.Join(parts, "|")
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}
