package db

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/codeaudit/internal/domain/scanerrors"
)

type ScanErrorRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewScanErrorRepository(conn *sql.DB, dialect Dialect) *ScanErrorRepository {
	return &ScanErrorRepository{db: conn, dialect: dialect}
}

func (r *ScanErrorRepository) Save(ctx context.Context, e *domain.ScanError) error {
	created := e.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	q := r.dialect.rebind(`INSERT INTO scan_errors (scan_id, tool, phase, message, created_at) VALUES (?,?,?,?,?)`)
	_, err := r.db.ExecContext(ctx, q, e.ScanID, e.Tool, e.Phase, e.Message, created.UTC().Format(time.RFC3339))
	return err
}

func (r *ScanErrorRepository) ListByScan(ctx context.Context, scanID string, limit int) ([]*domain.ScanError, error) {
	if limit <= 0 {
		limit = 20
	}
	q := r.dialect.rebind(`SELECT id, scan_id, tool, phase, message, created_at
FROM scan_errors WHERE scan_id=? ORDER BY id DESC LIMIT ?`)
	rows, err := r.db.QueryContext(ctx, q, scanID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ScanError
	for rows.Next() {
		var e domain.ScanError
		var tool, msg sql.NullString
		var created string
		if err := rows.Scan(&e.ID, &e.ScanID, &tool, &e.Phase, &msg, &created); err != nil {
			return nil, err
		}
		e.Tool = tool.String
		e.Message = msg.String
		if ts, perr := time.Parse(time.RFC3339, created); perr == nil {
			e.CreatedAt = ts
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
