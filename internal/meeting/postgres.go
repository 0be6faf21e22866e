package meeting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema is the SQL DDL applied by [PostgresStore.Migrate].
const Schema = `
CREATE TABLE IF NOT EXISTS meetings (
    id              TEXT PRIMARY KEY,
    title           TEXT NOT NULL DEFAULT '',
    theme           TEXT NOT NULL DEFAULT '',
    project         TEXT NOT NULL DEFAULT '',
    date            TIMESTAMPTZ NOT NULL,
    participants    TEXT[] NOT NULL DEFAULT '{}',
    source          TEXT NOT NULL DEFAULT '',
    transcript_path TEXT NOT NULL DEFAULT '',
    summary         TEXT NOT NULL DEFAULT '',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS todos (
    id          TEXT PRIMARY KEY,
    meeting_id  TEXT NOT NULL REFERENCES meetings(id) ON DELETE CASCADE,
    action      TEXT NOT NULL,
    actor       TEXT NOT NULL DEFAULT '',
    due_date    TIMESTAMPTZ,
    status      TEXT NOT NULL DEFAULT 'open',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_todos_meeting ON todos(meeting_id);
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by PostgreSQL.
type PostgresStore struct {
	db   DB
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore wraps an existing connection or pool. The caller runs
// Migrate and owns the connection.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// OpenPostgres connects a pool to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("meeting: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("meeting: ping: %w", err)
	}
	s := &PostgresStore{db: pool, pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate executes [Schema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("meeting: migrate: %w", err)
	}
	return nil
}

const meetingColumns = `id, title, theme, project, date, participants, source,
	transcript_path, summary, created_at, updated_at`

func scanMeeting(row pgx.Row) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.Title, &m.Theme, &m.Project, &m.Date, &m.Participants,
		&m.Source, &m.TranscriptPath, &m.Summary, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *PostgresStore) CreateMeeting(ctx context.Context, m Meeting) (Meeting, error) {
	m.ID = uuid.NewString()
	if m.Date.IsZero() {
		m.Date = time.Now().UTC()
	}
	if m.Participants == nil {
		m.Participants = []string{}
	}

	const query = `
		INSERT INTO meetings (id, title, theme, project, date, participants, source, transcript_path, summary)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at, updated_at`
	err := s.db.QueryRow(ctx, query,
		m.ID, m.Title, m.Theme, m.Project, m.Date, m.Participants, m.Source, m.TranscriptPath, m.Summary,
	).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting: create: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) UpdateMeeting(ctx context.Context, id string, u MeetingUpdate) (Meeting, error) {
	m, err := s.GetMeeting(ctx, id)
	if err != nil {
		return Meeting{}, err
	}
	u.apply(&m)

	const query = `
		UPDATE meetings SET
			title = $2, theme = $3, project = $4, date = $5, participants = $6,
			source = $7, transcript_path = $8, summary = $9, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`
	err = s.db.QueryRow(ctx, query,
		id, m.Title, m.Theme, m.Project, m.Date, m.Participants, m.Source, m.TranscriptPath, m.Summary,
	).Scan(&m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, fmt.Errorf("meeting: update %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting: update %q: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) GetMeeting(ctx context.Context, id string) (Meeting, error) {
	m, err := scanMeeting(s.db.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Meeting{}, fmt.Errorf("meeting: get %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Meeting{}, fmt.Errorf("meeting: get %q: %w", id, err)
	}
	return m, nil
}

func (s *PostgresStore) ListMeetings(ctx context.Context) ([]Meeting, error) {
	rows, err := s.db.Query(ctx, `SELECT `+meetingColumns+` FROM meetings ORDER BY date DESC`)
	if err != nil {
		return nil, fmt.Errorf("meeting: list: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, fmt.Errorf("meeting: list scan: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("meeting: list: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) AddTodos(ctx context.Context, meetingID string, todos []Todo) ([]Todo, error) {
	if _, err := s.GetMeeting(ctx, meetingID); err != nil {
		return nil, err
	}

	const query = `
		INSERT INTO todos (id, meeting_id, action, actor, due_date, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`
	out := make([]Todo, len(todos))
	for i, t := range todos {
		t.ID = uuid.NewString()
		t.MeetingID = meetingID
		if t.Status == "" {
			t.Status = StatusOpen
		}
		err := s.db.QueryRow(ctx, query, t.ID, meetingID, t.Action, t.Actor, t.DueDate, t.Status).Scan(&t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("meeting: add todo: %w", err)
		}
		out[i] = t
	}
	return out, nil
}

func (s *PostgresStore) ListTodos(ctx context.Context, meetingID string) ([]Todo, error) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(`SELECT id, meeting_id, action, actor, due_date, status, created_at FROM todos`)
	if meetingID != "" {
		b.WriteString(` WHERE meeting_id = $1`)
		args = append(args, meetingID)
	}
	b.WriteString(` ORDER BY due_date ASC NULLS LAST, created_at ASC`)

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("meeting: list todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		var t Todo
		if err := rows.Scan(&t.ID, &t.MeetingID, &t.Action, &t.Actor, &t.DueDate, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("meeting: list todos scan: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("meeting: list todos: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) SetTodoStatus(ctx context.Context, id, status string) error {
	if err := validStatus(status); err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, `UPDATE todos SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("meeting: set todo status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("meeting: set status of todo %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Setting(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("meeting: read setting %q: %w", key, err)
	}
	return v, nil
}

func (s *PostgresStore) SetSetting(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := s.db.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("meeting: write setting %q: %w", key, err)
	}
	return nil
}

// Close releases the pool when the store opened it.
func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}
