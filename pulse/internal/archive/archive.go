// Package archive persists finished collection sessions in SQLite: the
// rendered report, the profile header and every qualifying post.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/feedpulse/crawl"
	"github.com/hazyhaar/feedpulse/dbopen"
	"github.com/hazyhaar/feedpulse/feed"
)

// ErrNotFound is returned when no collection has the requested id.
var ErrNotFound = errors.New("archive: collection not found")

// Migrations is the archive DDL, one entry per schema version.
var Migrations = []string{`
CREATE TABLE IF NOT EXISTS collections (
    id          TEXT PRIMARY KEY,
    preset      TEXT NOT NULL DEFAULT '',
    source_url  TEXT NOT NULL DEFAULT '',
    handle      TEXT NOT NULL DEFAULT '',
    followers   TEXT NOT NULL DEFAULT '',
    bio         TEXT NOT NULL DEFAULT '',
    config      TEXT NOT NULL DEFAULT '{}',
    collected   INTEGER NOT NULL DEFAULT 0,
    qualifying  INTEGER NOT NULL DEFAULT 0,
    rounds      INTEGER NOT NULL DEFAULT 0,
    stop_reason TEXT NOT NULL DEFAULT '',
    report      TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    finished_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collections_finished ON collections(finished_at DESC);

CREATE TABLE IF NOT EXISTS collection_posts (
    collection_id TEXT NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
    rank          INTEGER NOT NULL,
    post_id       TEXT NOT NULL,
    published_at  TEXT NOT NULL,
    content       TEXT NOT NULL DEFAULT '',
    likes         INTEGER NOT NULL DEFAULT 0,
    comments      INTEGER NOT NULL DEFAULT 0,
    reposts       INTEGER NOT NULL DEFAULT 0,
    shares        INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (collection_id, post_id)
);
`}

// Store is the archive database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the archive at path and applies the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	all := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithMigrations(Migrations...),
	}, opts...)

	db, err := dbopen.Open(path, all...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Summary describes one archived collection without its posts.
type Summary struct {
	ID         string           `json:"id"`
	Preset     string           `json:"preset"`
	SourceURL  string           `json:"source_url"`
	Profile    feed.Profile     `json:"profile"`
	Config     crawl.Config     `json:"config"`
	Collected  int              `json:"collected"`
	Qualifying int              `json:"qualifying"`
	Rounds     int              `json:"rounds"`
	Stop       crawl.StopReason `json:"stop"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Collection is an archived session with its report and posts.
type Collection struct {
	Summary
	Report string            `json:"report"`
	Posts  []feed.PostRecord `json:"posts"`
}

// Save archives res. Posts keep the order of res.Posts.
func (s *Store) Save(ctx context.Context, res *crawl.Result, preset, sourceURL string) error {
	cfg, err := json.Marshal(res.Config)
	if err != nil {
		return fmt.Errorf("archive: encode config: %w", err)
	}

	err = dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO collections
				(id, preset, source_url, handle, followers, bio, config,
				 collected, qualifying, rounds, stop_reason, report, started_at, finished_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			res.SessionID, preset, sourceURL,
			res.Profile.Handle, res.Profile.Followers, res.Profile.Bio, string(cfg),
			res.Collected, len(res.Posts), res.Rounds, string(res.Stop), res.Report,
			res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
		); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO collection_posts
				(collection_id, rank, post_id, published_at, content, likes, comments, reposts, shares)
			VALUES (?,?,?,?,?,?,?,?,?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, p := range res.Posts {
			if _, err := stmt.ExecContext(ctx,
				res.SessionID, i, p.ID, p.PublishedAt, p.Content,
				p.LikeCount, p.CommentCount, p.RepostCount, p.ShareCount,
			); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("archive: save %s: %w", res.SessionID, err)
	}
	return nil
}

const summaryColumns = `id, preset, source_url, handle, followers, bio, config,
	collected, qualifying, rounds, stop_reason, started_at, finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner, extra ...any) (Summary, error) {
	var (
		sum               Summary
		cfg, stop         string
		started, finished int64
	)
	dest := append([]any{
		&sum.ID, &sum.Preset, &sum.SourceURL,
		&sum.Profile.Handle, &sum.Profile.Followers, &sum.Profile.Bio, &cfg,
		&sum.Collected, &sum.Qualifying, &sum.Rounds, &stop, &started, &finished,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return sum, err
	}
	if err := json.Unmarshal([]byte(cfg), &sum.Config); err != nil {
		return sum, fmt.Errorf("decode config of %s: %w", sum.ID, err)
	}
	sum.Stop = crawl.StopReason(stop)
	sum.StartedAt = time.UnixMilli(started).UTC()
	sum.FinishedAt = time.UnixMilli(finished).UTC()
	return sum, nil
}

// Get returns the collection with the given id.
func (s *Store) Get(ctx context.Context, id string) (*Collection, error) {
	c := &Collection{}
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+summaryColumns+`, report FROM collections WHERE id = ?`, id)
	sum, err := scanSummary(row, &c.Report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get %s: %w", id, err)
	}
	c.Summary = sum

	posts, err := s.Posts(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Posts = posts
	return c, nil
}

// Posts returns the archived posts of a collection in report order.
func (s *Store) Posts(ctx context.Context, id string) ([]feed.PostRecord, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT post_id, published_at, content, likes, comments, reposts, shares
		FROM collection_posts WHERE collection_id = ? ORDER BY rank`, id)
	if err != nil {
		return nil, fmt.Errorf("archive: posts %s: %w", id, err)
	}
	defer rows.Close()

	var out []feed.PostRecord
	for rows.Next() {
		var p feed.PostRecord
		if err := rows.Scan(&p.ID, &p.PublishedAt, &p.Content,
			&p.LikeCount, &p.CommentCount, &p.RepostCount, &p.ShareCount); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// List returns the most recent collections first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+summaryColumns+` FROM collections ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a collection and its posts.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("archive: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
