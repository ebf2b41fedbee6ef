package local

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"fmt"
	"maps"
	"strings"

	"github.com/goodaideas/goodaideas/internal/backend"
	domainerrors "github.com/goodaideas/goodaideas/internal/errors"
	"github.com/goodaideas/goodaideas/internal/id"
)

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadTable(ctx context.Context, q querier, table string) ([]backend.Row, error) {
	rs, err := q.QueryContext(ctx, `SELECT body FROM records WHERE tbl = ? ORDER BY rowid`, table)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	defer rs.Close()

	var out []backend.Row
	for rs.Next() {
		var body string
		if err := rs.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var row backend.Row
		if err := json.Unmarshal([]byte(body), &row); err != nil {
			return nil, fmt.Errorf("decode %s row: %w", table, err)
		}
		out = append(out, row)
	}
	return out, rs.Err()
}

func checkTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return domainerrors.Validation("table is required")
	}
	return nil
}

// Select implements backend.Rows.
func (b *Backend) Select(ctx context.Context, q backend.Query) ([]backend.Row, error) {
	if err := checkTable(q.Table); err != nil {
		return nil, err
	}
	rows, err := loadTable(ctx, b.db, q.Table)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "query failed")
	}
	return backend.Evaluate(rows, q), nil
}

// SelectOne implements backend.Rows.
func (b *Backend) SelectOne(ctx context.Context, q backend.Query) (backend.Row, error) {
	rows, err := b.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) != 1 {
		return nil, backend.NotFound(q.Table)
	}
	return rows[0], nil
}

// Insert implements backend.Rows. Rows get a UUID id and a created_at
// stamp when they have none. A duplicate id fails the whole batch.
func (b *Backend) Insert(ctx context.Context, table string, rows []backend.Row) ([]backend.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "begin insert")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	out := make([]backend.Row, 0, len(rows))
	for _, r := range rows {
		r = b.stamp(r)
		if err := insertRecord(ctx, tx, table, r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := tx.Commit(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "commit insert")
	}

	for _, r := range out {
		b.hub.publish(backend.Change{Table: table, Type: backend.EventInsert, New: maps.Clone(r)})
	}
	return out, nil
}

// Upsert implements backend.Rows. An existing row agreeing with row on
// every conflict column is merged with row; otherwise row is inserted.
func (b *Backend) Upsert(ctx context.Context, table string, row backend.Row, conflictKey string) (backend.Row, error) {
	if err := checkTable(table); err != nil {
		return nil, err
	}
	keys := backend.SplitConflictKey(conflictKey)

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "begin upsert")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := loadTable(ctx, tx, table)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "upsert failed")
	}

	var change backend.Change
	var result backend.Row
	found := false
	for _, old := range existing {
		if !backend.SameKey(old, row, keys) {
			continue
		}
		merged := maps.Clone(old)
		maps.Copy(merged, row)
		merged["id"] = old["id"]
		if err := updateRecord(ctx, tx, table, merged); err != nil {
			return nil, err
		}
		change = backend.Change{Table: table, Type: backend.EventUpdate, New: merged, Old: old}
		result, found = merged, true
		break
	}
	if !found {
		result = b.stamp(row)
		if err := insertRecord(ctx, tx, table, result); err != nil {
			return nil, err
		}
		change = backend.Change{Table: table, Type: backend.EventInsert, New: result}
	}

	if err := tx.Commit(); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeTransient, "commit upsert")
	}
	b.hub.publish(change)
	return maps.Clone(result), nil
}

// Delete implements backend.Rows. Deleting nothing is not an error.
func (b *Backend) Delete(ctx context.Context, table string, filters []backend.Filter) error {
	if err := checkTable(table); err != nil {
		return err
	}
	if len(filters) == 0 {
		return domainerrors.Validation("delete needs at least one filter")
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "begin delete")
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := loadTable(ctx, tx, table)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "delete failed")
	}

	var removed []backend.Row
	for _, r := range existing {
		if !backend.Match(r, filters) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE tbl = ? AND id = ?`, table, fmt.Sprint(r["id"])); err != nil {
			return domainerrors.Wrap(err, domainerrors.CodeTransient, "delete failed")
		}
		removed = append(removed, r)
	}

	if err := tx.Commit(); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "commit delete")
	}
	for _, r := range removed {
		b.hub.publish(backend.Change{Table: table, Type: backend.EventDelete, Old: r})
	}
	return nil
}

func (b *Backend) stamp(r backend.Row) backend.Row {
	r = maps.Clone(r)
	if r == nil {
		r = backend.Row{}
	}
	if v, ok := r["id"]; !ok || v == nil || v == "" {
		r["id"] = id.NewUUID()
	}
	if v, ok := r["created_at"]; !ok || v == nil {
		r["created_at"] = b.timestamp()
	}
	return r
}

func encodeRow(r backend.Row) (string, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return "", domainerrors.Wrap(err, domainerrors.CodeValidation, "row is not serializable")
	}
	return string(body), nil
}

func insertRecord(ctx context.Context, tx *sql.Tx, table string, r backend.Row) error {
	body, err := encodeRow(r)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO records (tbl, id, body, created_at) VALUES (?, ?, ?, ?)`,
		table, fmt.Sprint(r["id"]), body, fmt.Sprint(r["created_at"]))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return (&backend.Error{Status: 409, Code: "23505", Message: "duplicate key value violates unique constraint"}).Domain()
		}
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "insert failed")
	}
	return nil
}

func updateRecord(ctx context.Context, tx *sql.Tx, table string, r backend.Row) error {
	body, err := encodeRow(r)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET body = ? WHERE tbl = ? AND id = ?`,
		body, table, fmt.Sprint(r["id"])); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeTransient, "update failed")
	}
	return nil
}
