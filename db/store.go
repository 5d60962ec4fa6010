// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
)

// SQL dialects
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Store is a store.PollStore backed by PostgreSQL or SQLite
type Store struct {
	db      *sql.DB
	dialect string

	// Now is the clock used to hide expired polls
	Now func() time.Time
}

var _ store.PollStore = &Store{}

// Open connects to the database, verifies the connection and creates the schema
func Open(dialect, url string) (*Store, error) {
	switch dialect {
	case DialectPostgres, DialectSQLite:
	default:
		return nil, errors.Errorf("unsupported SQL dialect %q", dialect)
	}

	conn, err := sql.Open(dialect, url)
	if err != nil {
		return nil, errors.Wrap(err, "database connection failed")
	}

	if dialect == DialectSQLite {
		// One writer at a time; transactions serialize on this connection
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "database ping failed")
	}

	s, err := New(conn, dialect)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open connection and creates the schema
func New(conn *sql.DB, dialect string) (*Store, error) {
	if err := CreateSchema(conn); err != nil {
		return nil, err
	}
	return &Store{db: conn, dialect: dialect, Now: time.Now}, nil
}

// DB exposes the underlying connection for tests
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $N for PostgreSQL
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

// placeholders returns "?, ?, ?" for n args
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// isDuplicate reports whether err is a unique or primary key violation
func isDuplicate(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

// Create inserts the poll and its options in one transaction
func (s *Store) Create(ctx context.Context, poll *models.Poll) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO poll (poll_id, creator_key, question, allow_multiple_choices,
			public_results, theme, voter_count, created_at, active_until, expire_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)
	`), poll.PollID, poll.CreatorKey, poll.Question, poll.AllowMultipleChoices,
		poll.PublicResults, poll.Theme,
		toMillis(poll.CreatedAt), toMillis(poll.ActiveUntil), toMillis(poll.ExpireAt))
	if err != nil {
		if isDuplicate(err) {
			return store.ErrDuplicateID
		}
		return errors.Wrap(err, "failed to insert poll")
	}

	for i, opt := range poll.Options {
		_, err = tx.ExecContext(ctx, s.rebind(`
			INSERT INTO poll_option (poll_id, option_id, position, text, votes)
			VALUES (?, ?, ?, ?, 0)
		`), poll.PollID, opt.ID, i, opt.Text)
		if err != nil {
			return errors.Wrapf(err, "failed to insert option %d", i)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit poll")
	}
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) load(ctx context.Context, q querier, pollID string) (*models.Poll, error) {
	poll := &models.Poll{
		Votes:  models.Tally{},
		Voters: models.NewVoterSet(),
	}

	var voterCount, createdAt, activeUntil, expireAt int64
	err := q.QueryRowContext(ctx, s.rebind(`
		SELECT poll_id, creator_key, question, allow_multiple_choices, public_results,
			theme, voter_count, created_at, active_until, expire_at
		FROM poll
		WHERE poll_id = ? AND expire_at > ?
	`), pollID, toMillis(s.Now())).Scan(&poll.PollID, &poll.CreatorKey, &poll.Question,
		&poll.AllowMultipleChoices, &poll.PublicResults, &poll.Theme,
		&voterCount, &createdAt, &activeUntil, &expireAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load poll")
	}

	poll.VoterCount = uint64(voterCount)
	poll.CreatedAt = fromMillis(createdAt)
	poll.ActiveUntil = fromMillis(activeUntil)
	poll.ExpireAt = fromMillis(expireAt)

	rows, err := q.QueryContext(ctx, s.rebind(`
		SELECT option_id, text, votes
		FROM poll_option
		WHERE poll_id = ?
		ORDER BY position
	`), pollID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load options")
	}
	defer rows.Close()

	for rows.Next() {
		var opt models.Option
		var votes int64
		if err := rows.Scan(&opt.ID, &opt.Text, &votes); err != nil {
			return nil, errors.Wrap(err, "failed to scan option")
		}
		poll.Options = append(poll.Options, opt)
		poll.Votes[opt.ID] = uint64(votes)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read options")
	}

	poll.Normalize()
	return poll, nil
}

func (s *Store) Find(ctx context.Context, pollID string) (*models.Poll, error) {
	return s.load(ctx, s.db, pollID)
}

func (s *Store) FindForVote(ctx context.Context, pollID, fingerprint string) (*models.Poll, error) {
	poll, err := s.load(ctx, s.db, pollID)
	if err != nil {
		return nil, err
	}

	var one int
	err = s.db.QueryRowContext(ctx, s.rebind(`
		SELECT 1 FROM poll_voter WHERE poll_id = ? AND fingerprint = ?
	`), pollID, fingerprint).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return nil, errors.Wrap(err, "failed to check voter")
	default:
		poll.Voters[fingerprint] = struct{}{}
	}

	return poll, nil
}

// ApplyVote records the vote in one transaction. Bumping voter_count first
// takes the poll's row lock on PostgreSQL, so a poll's writers serialize;
// the voter insert is the conditional part. The bump only matches while
// active_until is after now.
func (s *Store) ApplyVote(ctx context.Context, pollID string, optionIDs []string, fingerprint string, now time.Time) (*models.Poll, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`
		UPDATE poll SET voter_count = voter_count + 1
		WHERE poll_id = ? AND active_until > ?
	`), pollID, toMillis(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to update voter count")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, s.whyNoMatch(ctx, tx, pollID)
	}

	res, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO poll_voter (poll_id, fingerprint, voted_at)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`), pollID, fingerprint, toMillis(now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to record voter")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, store.ErrAlreadyVoted
	}

	args := make([]any, 0, len(optionIDs)+1)
	args = append(args, pollID)
	for _, id := range optionIDs {
		args = append(args, id)
	}
	res, err = tx.ExecContext(ctx, s.rebind(`
		UPDATE poll_option SET votes = votes + 1
		WHERE poll_id = ? AND option_id IN (`+placeholders(len(optionIDs))+`)
	`), args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to increment options")
	}
	if n, _ := res.RowsAffected(); n != int64(len(optionIDs)) {
		return nil, store.ErrUnknownOption
	}

	poll, err := s.load(ctx, tx, pollID)
	if err != nil {
		return nil, err
	}
	poll.Voters[fingerprint] = struct{}{}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit vote")
	}
	return poll, nil
}

// whyNoMatch tells a missing poll from a closed one
func (s *Store) whyNoMatch(ctx context.Context, tx *sql.Tx, pollID string) error {
	var one int
	err := tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM poll WHERE poll_id = ?`), pollID).Scan(&one)
	if err == sql.ErrNoRows {
		return store.ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "failed to check poll")
	}
	return store.ErrClosed
}

// deleteChildren removes options and voters for the polls matched by where
func (s *Store) deleteChildren(ctx context.Context, tx *sql.Tx, where string, args ...any) error {
	for _, table := range []string{"poll_option", "poll_voter"} {
		_, err := tx.ExecContext(ctx, s.rebind(`
			DELETE FROM `+table+` WHERE poll_id IN (SELECT poll_id FROM poll WHERE `+where+`)
		`), args...)
		if err != nil {
			return errors.Wrapf(err, "failed to delete from %s", table)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, pollID, creatorKey string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := s.deleteChildren(ctx, tx, "poll_id = ? AND creator_key = ?", pollID, creatorKey); err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM poll WHERE poll_id = ? AND creator_key = ?
	`), pollID, creatorKey)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete poll")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted polls")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "failed to commit delete")
	}
	return n, nil
}

// Sweep deletes every poll whose expire_at is at or before now
func (s *Store) Sweep(ctx context.Context, now time.Time) ([]string, error) {
	cutoff := toMillis(now)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT poll_id FROM poll WHERE expire_at <= ? ORDER BY poll_id
	`), cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find expired polls")
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, errors.Wrap(err, "failed to scan poll id")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read expired polls")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := s.deleteChildren(ctx, tx, "expire_at <= ?", cutoff); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM poll WHERE expire_at <= ?`), cutoff); err != nil {
		return nil, errors.Wrap(err, "failed to delete expired polls")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "failed to commit sweep")
	}
	return ids, nil
}

func (s *Store) IncrementStat(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO stats (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = stats.value + 1
	`), name)
	if err != nil {
		return errors.Wrapf(err, "failed to increment %s", name)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM stats`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load stats")
	}
	defer rows.Close()

	stats := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan stat")
		}
		stats[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read stats")
	}
	return stats, nil
}
