// Package journal keeps an optional local record of outbound
// deliveries: which transport accepted which message, for whom, when.
// It stores metadata only — never message bodies, never credentials —
// and the whole package is inert unless a database path is configured.
package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Entry is one recorded delivery.
type Entry struct {
	ID         int64     `db:"id" json:"id"`
	MessageID  string    `db:"message_id" json:"messageId"`
	Transport  string    `db:"transport" json:"transport"`
	Sender     string    `db:"sender" json:"from"`
	Recipients string    `db:"recipients" json:"to"`
	Subject    string    `db:"subject" json:"subject"`
	SentAt     time.Time `db:"sent_at" json:"sentAt"`
}

// Journal records deliveries in a local SQLite database.
type Journal struct {
	db *sqlx.DB
}

// Open opens (or creates) the journal database at path, enables WAL
// mode and applies the schema.
func Open(path string) (*Journal, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal schema: %w", err)
	}

	return j, nil
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			transport  TEXT NOT NULL,
			sender     TEXT NOT NULL,
			recipients TEXT NOT NULL,
			subject    TEXT NOT NULL,
			sent_at    TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_deliveries_sent_at
			ON deliveries(sent_at);
	`)
	return err
}

// Record appends one delivery.
func (j *Journal) Record(ctx context.Context, messageID, transport, sender string, recipients []string, subject string) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO deliveries
			(message_id, transport, sender, recipients, subject, sent_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		messageID, transport, sender,
		strings.Join(recipients, ", "), subject, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording delivery: %w", err)
	}
	return nil
}

// Recent returns the latest limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 50
	}

	var entries []Entry
	err := j.db.SelectContext(ctx, &entries, `
		SELECT id, message_id, transport, sender, recipients, subject, sent_at
		FROM deliveries
		ORDER BY sent_at DESC, id DESC
		LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing deliveries: %w", err)
	}
	return entries, nil
}
