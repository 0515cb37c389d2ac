package db

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// UpsertConfig defines the parameters for a bulk upsert.
type UpsertConfig struct {
	Table        string   // target table, optionally schema-qualified ("bec.features")
	Columns      []string // all columns being written
	ConflictKeys []string // columns forming the unique constraint
	UpdateCols   []string // columns to update on conflict; nil = all non-conflict columns

	// Scope, when set, names columns whose values (ScopeValues) select the
	// slice of the table being replaced: matching rows whose keys are not in
	// the new batch are deleted in the same transaction.
	Scope       []string
	ScopeValues []any
}

// BulkUpsert writes rows through a temp table:
//  1. COPY rows into a temp table shaped like the target
//  2. delete scoped target rows absent from the batch
//  3. INSERT INTO target SELECT ... FROM temp ON CONFLICT (keys) DO UPDATE
//
// It returns the number of rows inserted or updated.
func BulkUpsert(ctx context.Context, pool Pool, cfg UpsertConfig, rows [][]any) (int64, error) {
	if len(cfg.Columns) == 0 {
		return 0, eris.New("db: upsert: no columns specified")
	}
	if len(cfg.ConflictKeys) == 0 {
		return 0, eris.New("db: upsert: no conflict keys specified")
	}
	if len(cfg.Scope) != len(cfg.ScopeValues) {
		return 0, eris.Errorf("db: upsert: %d scope columns but %d values", len(cfg.Scope), len(cfg.ScopeValues))
	}
	if len(rows) == 0 && len(cfg.Scope) == 0 {
		return 0, nil
	}

	updateCols := cfg.UpdateCols
	if updateCols == nil {
		for _, c := range cfg.Columns {
			if !slices.Contains(cfg.ConflictKeys, c) {
				updateCols = append(updateCols, c)
			}
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: upsert: begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	target := sanitizeTable(cfg.Table)
	tempName := "_tmp_upsert_" + strings.ReplaceAll(cfg.Table, ".", "_")
	temp := pgx.Identifier{tempName}.Sanitize()

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP", temp, target,
	)); err != nil {
		return 0, eris.Wrapf(err, "db: upsert: create temp table for %s", cfg.Table)
	}

	if len(rows) > 0 {
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{tempName}, cfg.Columns, pgx.CopyFromRows(rows)); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: COPY into temp table for %s", cfg.Table)
		}
	}

	if len(cfg.Scope) > 0 {
		var where []string
		for i, col := range cfg.Scope {
			where = append(where, fmt.Sprintf("t.%s = $%d", pgx.Identifier{col}.Sanitize(), i+1))
		}
		var match []string
		for _, k := range cfg.ConflictKeys {
			q := pgx.Identifier{k}.Sanitize()
			match = append(match, fmt.Sprintf("n.%s = t.%s", q, q))
		}
		deleteSQL := fmt.Sprintf(
			"DELETE FROM %s t WHERE %s AND NOT EXISTS (SELECT 1 FROM %s n WHERE %s)",
			target, strings.Join(where, " AND "), temp, strings.Join(match, " AND "),
		)
		if _, err := tx.Exec(ctx, deleteSQL, cfg.ScopeValues...); err != nil {
			return 0, eris.Wrapf(err, "db: upsert: delete stale rows from %s", cfg.Table)
		}
	}

	var setClauses []string
	for _, col := range updateCols {
		q := pgx.Identifier{col}.Sanitize()
		setClauses = append(setClauses, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	colList := quoteAndJoin(cfg.Columns)
	upsertSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		target, colList, colList, temp, quoteAndJoin(cfg.ConflictKeys), strings.Join(setClauses, ", "),
	)
	tag, err := tx.Exec(ctx, upsertSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: upsert: INSERT ON CONFLICT for %s", cfg.Table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: upsert: commit tx")
	}
	return tag.RowsAffected(), nil
}

// sanitizeTable handles schema-qualified table names like "bec.features".
func sanitizeTable(table string) string {
	parts := strings.SplitN(table, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// quoteAndJoin quotes each column name and joins with commas.
func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
