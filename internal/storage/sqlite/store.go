package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"standupbot/internal/domain"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS standups (
		id              TEXT PRIMARY KEY,
		user_email      TEXT NOT NULL,
		issues_input    TEXT NOT NULL DEFAULT '',
		output          TEXT NOT NULL DEFAULT '',
		public_holidays TEXT NOT NULL DEFAULT '',
		created_at      DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_standups_user_created ON standups(user_email, created_at);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	// Migration: add timezone column if missing.
	var colCount int
	_ = db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('standups') WHERE name = 'timezone'`).Scan(&colCount)
	if colCount == 0 {
		_, _ = db.Exec(`ALTER TABLE standups ADD COLUMN timezone TEXT DEFAULT ''`)
	}

	return db, nil
}

// Store keeps standup history in a local SQLite file.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := InitDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite history %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Save(ctx context.Context, st domain.SavedStandup) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO standups (id, user_email, issues_input, output, timezone, public_holidays, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.UserEmail, st.IssuesInput, st.Output, st.Timezone,
		strings.Join(st.PublicHolidays, ","), st.CreatedAt.UTC(),
	)
	return err
}

// List returns the newest standups for userEmail first.
func (s *Store) List(ctx context.Context, userEmail string, limit int) ([]domain.SavedStandup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_email, issues_input, output, timezone, public_holidays, created_at
		 FROM standups WHERE user_email = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userEmail, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedStandup
	for rows.Next() {
		var st domain.SavedStandup
		var holidays string
		var createdAt time.Time
		if err := rows.Scan(&st.ID, &st.UserEmail, &st.IssuesInput, &st.Output, &st.Timezone, &holidays, &createdAt); err != nil {
			return nil, err
		}
		st.CreatedAt = createdAt.UTC()
		st.PublicHolidays = splitHolidays(holidays)
		out = append(out, st)
	}
	return out, rows.Err()
}

func splitHolidays(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
