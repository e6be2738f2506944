package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/forgeflow/orchestrator/internal/observability"
	"github.com/forgeflow/orchestrator/internal/state"
	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

type stateType = state.ConversationState

func unmarshalState(blob []byte) (*stateType, error) {
	var st stateType
	if err := json.Unmarshal(blob, &st); err != nil {
		return nil, fmt.Errorf("checkpoint: unmarshal state: %w", err)
	}
	return &st, nil
}

// SQLiteStore is the embedded relational Store backing: one row per
// (thread_id, step), matching the teacher's sqlite-backed memory schema
// (CREATE TABLE IF NOT EXISTS + explicit indexes) adapted from vector
// memories to checkpoint rows.
type SQLiteStore struct {
	db     *sql.DB
	tracer *observability.Tracer
}

// NewSQLiteStore opens (or creates) the sqlite database at path and ensures
// the checkpoints schema exists.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open database: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			thread_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			state BLOB NOT NULL,
			PRIMARY KEY (thread_id, step)
		)
	`)
	if err != nil {
		return fmt.Errorf("checkpoint: create table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_checkpoints_thread ON checkpoints(thread_id)`)
	if err != nil {
		return fmt.Errorf("checkpoint: create index: %w", err)
	}
	return nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, st *stateType) (err error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceCheckpointQuery(ctx, "save", st.ThreadID)
		defer func() {
			if err != nil {
				s.tracer.RecordError(span, err)
			}
			span.End()
		}()
	}

	blob, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("checkpoint: marshal state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO checkpoints (thread_id, step, state) VALUES (?, ?, ?)`,
		st.ThreadID, st.Step, blob,
	)
	if err != nil {
		return fmt.Errorf("checkpoint: save: %w", err)
	}
	return nil
}

// Latest implements Store.
func (s *SQLiteStore) Latest(ctx context.Context, threadID string) (*stateType, error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.TraceCheckpointQuery(ctx, "latest", threadID)
		defer span.End()
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT state FROM checkpoints WHERE thread_id = ? ORDER BY step DESC LIMIT 1`, threadID)
	var blob []byte
	if err := row.Scan(&blob); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("checkpoint: latest: %w", err)
	}
	return unmarshalState(blob)
}

// History implements Store.
func (s *SQLiteStore) History(ctx context.Context, threadID string) ([]*stateType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM checkpoints WHERE thread_id = ? ORDER BY step ASC`, threadID)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: history: %w", err)
	}
	defer rows.Close()

	var out []*stateType
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("checkpoint: scan: %w", err)
		}
		st, err := unmarshalState(blob)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// SetTracer installs t as this store's span source. A nil Tracer leaves
// Save/Latest untraced.
func (s *SQLiteStore) SetTracer(t *observability.Tracer) {
	s.tracer = t
}
