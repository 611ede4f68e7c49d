package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/scoreboard/go/internal/sqlutil"
)

// Schema creates the document table.
const Schema = `
CREATE TABLE IF NOT EXISTS room_documents (
    path       TEXT PRIMARY KEY,
    value      JSONB,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const getDocument = `-- name: GetDocument :one
SELECT path, value, updated_at FROM room_documents WHERE path = $1`

const upsertDocument = `-- name: UpsertDocument :exec
INSERT INTO room_documents (path, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (path) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`

const notifyDocument = `-- name: NotifyDocument :exec
SELECT pg_notify($1, $2)`

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Document is one row of room_documents.
type Document struct {
	Path      string
	Value     pqtype.NullRawMessage
	UpdatedAt time.Time
}

type Queries struct {
	db DBTX
}

func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) CreateSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, Schema)
	return err
}

func (q *Queries) GetDocument(ctx context.Context, path string) (Document, error) {
	row := q.db.QueryRowContext(ctx, getDocument, path)
	var d Document
	err := row.Scan(&d.Path, &d.Value, &d.UpdatedAt)
	return d, err
}

func (q *Queries) UpsertDocument(ctx context.Context, path string, value json.RawMessage) error {
	_, err := q.db.ExecContext(ctx, upsertDocument, path, sqlutil.ToNullRawMessage(value))
	return err
}

func (q *Queries) NotifyDocument(ctx context.Context, channel, path string) error {
	_, err := q.db.ExecContext(ctx, notifyDocument, channel, path)
	return err
}
