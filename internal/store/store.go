// Package store persists generated batches, user templates, publish actions, events, and job
// cursors in a single SQLite file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"threadgenius/internal/model"
)

// DB wraps the SQLite database.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection keeps :memory: databases and WAL writers consistent
	d.SetMaxOpenConns(1)
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;`); err != nil {
		_ = d.Close()
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS batches (
	  id TEXT PRIMARY KEY,
	  created_at INTEGER NOT NULL,
	  persona TEXT NOT NULL,
	  topic TEXT NOT NULL,
	  calm_priority INTEGER NOT NULL DEFAULT 0,
	  forced_tag TEXT NOT NULL DEFAULT '',
	  short_mode INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_batches_created ON batches(created_at);
	CREATE TABLE IF NOT EXISTS posts (
	  batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	  rank INTEGER NOT NULL,
	  score REAL NOT NULL,
	  payload TEXT NOT NULL,
	  PRIMARY KEY (batch_id, rank)
	);
	CREATE TABLE IF NOT EXISTS templates (
	  name TEXT PRIMARY KEY,
	  category TEXT NOT NULL DEFAULT '',
	  content TEXT NOT NULL,
	  created_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS actions (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_actions_ts ON actions(ts);
	CREATE TABLE IF NOT EXISTS events (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  ts INTEGER NOT NULL,
	  type TEXT NOT NULL,
	  payload TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_events_ts ON events(ts);
	CREATE TABLE IF NOT EXISTS cursors (
	  name TEXT PRIMARY KEY,
	  value TEXT NOT NULL
	);
	`)
	return err
}

// Batch is one ranked generation result.
type Batch struct {
	ID           string
	CreatedAt    time.Time
	Persona      string
	Topic        string
	CalmPriority bool
	ForcedTag    string
	ShortMode    bool
	Posts        []model.Post
}

// SaveBatch stores b and its posts in rank order. An empty ID gets a new UUID, which is returned.
func (d *DB) SaveBatch(ctx context.Context, b Batch) (string, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO batches(id, created_at, persona, topic, calm_priority, forced_tag, short_mode) VALUES(?,?,?,?,?,?,?)`,
		b.ID, b.CreatedAt.Unix(), b.Persona, b.Topic, b.CalmPriority, b.ForcedTag, b.ShortMode); err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}
	for i, p := range b.Posts {
		pb, err := json.Marshal(p)
		if err != nil {
			return "", err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO posts(batch_id, rank, score, payload) VALUES(?,?,?,?)`, b.ID, i+1, p.Score, string(pb)); err != nil {
			return "", fmt.Errorf("insert post %d: %w", i+1, err)
		}
	}
	return b.ID, tx.Commit()
}

// RecentBatches returns up to limit batches, newest first, with their posts in rank order.
func (d *DB) RecentBatches(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := d.sql.QueryContext(ctx, `SELECT id, created_at, persona, topic, calm_priority, forced_tag, short_mode FROM batches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	var out []Batch
	for rows.Next() {
		var b Batch
		var ts int64
		if err := rows.Scan(&b.ID, &ts, &b.Persona, &b.Topic, &b.CalmPriority, &b.ForcedTag, &b.ShortMode); err != nil {
			_ = rows.Close()
			return nil, err
		}
		b.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, b)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	// posts are loaded after the batch cursor closes; the pool has a single connection
	for i := range out {
		posts, err := d.batchPosts(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Posts = posts
	}
	return out, nil
}

func (d *DB) batchPosts(ctx context.Context, batchID string) ([]model.Post, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT payload FROM posts WHERE batch_id=? ORDER BY rank`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var p model.Post
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, fmt.Errorf("decode post in batch %s: %w", batchID, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Template is a user-authored topic text.
type Template struct {
	Name      string
	Category  string
	Content   string
	CreatedAt time.Time
}

// PutTemplate inserts or replaces the template with the same name.
func (d *DB) PutTemplate(ctx context.Context, t Template) error {
	if t.Name == "" || t.Content == "" {
		return errors.New("template name and content are required")
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO templates(name, category, content, created_at) VALUES(?,?,?,?)
	ON CONFLICT(name) DO UPDATE SET category=excluded.category, content=excluded.content`, t.Name, t.Category, t.Content, t.CreatedAt.Unix())
	return err
}

func (d *DB) ListTemplates(ctx context.Context) ([]Template, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT name, category, content, created_at FROM templates ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Template
	for rows.Next() {
		var t Template
		var ts int64
		if err := rows.Scan(&t.Name, &t.Category, &t.Content, &ts); err != nil {
			return nil, err
		}
		t.CreatedAt = time.Unix(ts, 0).UTC()
		out = append(out, t)
	}
	return out, rows.Err()
}

// DeleteTemplate reports whether a template was removed.
func (d *DB) DeleteTemplate(ctx context.Context, name string) (bool, error) {
	res, err := d.sql.ExecContext(ctx, `DELETE FROM templates WHERE name=?`, name)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// PutAction records one budgeted action (a publish).
func (d *DB) PutAction(ctx context.Context, ts time.Time, typ string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO actions(ts, type) VALUES(?,?)`, ts.Unix(), typ)
	return err
}

// CountActionsWithin counts actions of typ in [start, end).
func (d *DB) CountActionsWithin(ctx context.Context, start, end time.Time, typ string) (int, error) {
	var n int
	err := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions WHERE ts>=? AND ts<? AND type=?`, start.Unix(), end.Unix(), typ).Scan(&n)
	return n, err
}

// PutEvent stores a publish or insight event.
func (d *DB) PutEvent(ctx context.Context, ts time.Time, typ string, payload any) error {
	pb, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx, `INSERT INTO events(ts, type, payload) VALUES(?,?,?)`, ts.Unix(), typ, string(pb))
	return err
}

// Event is a stored event
type Event struct {
	TS      time.Time
	Type    string
	Payload string
}

// LoadEventsRange returns events in [start, end); an empty typ matches all types.
func (d *DB) LoadEventsRange(ctx context.Context, start, end time.Time, typ string) ([]Event, error) {
	var rows *sql.Rows
	var err error
	if typ == "" {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, payload FROM events WHERE ts>=? AND ts<? ORDER BY ts, id`, start.Unix(), end.Unix())
	} else {
		rows, err = d.sql.QueryContext(ctx, `SELECT ts, type, payload FROM events WHERE ts>=? AND ts<? AND type=? ORDER BY ts, id`, start.Unix(), end.Unix(), typ)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var ts int64
		var e Event
		var payload sql.NullString
		if err := rows.Scan(&ts, &e.Type, &payload); err != nil {
			return nil, err
		}
		e.TS = time.Unix(ts, 0).UTC()
		e.Payload = payload.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveCursor upserts a named job cursor.
func (d *DB) SaveCursor(ctx context.Context, name, value string) error {
	_, err := d.sql.ExecContext(ctx, `INSERT INTO cursors(name, value) VALUES(?,?) ON CONFLICT(name) DO UPDATE SET value=excluded.value`, name, value)
	return err
}

// LoadCursor returns "" when the cursor has never been saved.
func (d *DB) LoadCursor(ctx context.Context, name string) (string, error) {
	var v string
	err := d.sql.QueryRowContext(ctx, `SELECT value FROM cursors WHERE name=?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return v, err
}
