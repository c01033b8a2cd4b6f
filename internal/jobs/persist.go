package jobs

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"clipforge/internal/database"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes.
const schemaVersion = 1

const schemaComponent = "jobs"

// persister mirrors snapshots to SQLite. A nil persister keeps the store
// memory-only.
type persister struct {
	db *database.DB
}

func newPersister(ctx context.Context, db *database.DB) (*persister, error) {
	if err := db.EnsureSchema(ctx, schemaComponent, schemaVersion, schemaSQL); err != nil {
		return nil, err
	}
	return &persister{db: db}, nil
}

func (p *persister) save(ctx context.Context, job *Job) error {
	if p == nil {
		return nil
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	_, err = p.db.Exec(ctx,
		`INSERT INTO jobs (id, user_id, status, created_at, updated_at, snapshot_json)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             status = excluded.status,
             updated_at = excluded.updated_at,
             snapshot_json = excluded.snapshot_json`,
		job.ID,
		job.UserID,
		string(job.Status),
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		job.UpdatedAt.UTC().Format(time.RFC3339Nano),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("persist job %s: %w", job.ID, err)
	}
	return nil
}

func (p *persister) loadAll(ctx context.Context) ([]*Job, error) {
	if p == nil {
		return nil, nil
	}
	rows, err := p.db.SQL().QueryContext(ctx, `SELECT snapshot_json FROM jobs ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			return nil, fmt.Errorf("decode job snapshot: %w", err)
		}
		out = append(out, &job)
	}
	return out, rows.Err()
}
