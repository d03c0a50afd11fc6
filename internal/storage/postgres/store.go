package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"standupbot/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS standups (
	id              TEXT PRIMARY KEY,
	user_email      TEXT NOT NULL,
	issues_input    TEXT NOT NULL DEFAULT '',
	output          TEXT NOT NULL DEFAULT '',
	timezone        TEXT NOT NULL DEFAULT '',
	public_holidays TEXT[] NOT NULL DEFAULT '{}',
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_standups_user_created ON standups(user_email, created_at DESC);
`

// Store keeps standup history in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// Open connects, pings and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres migrate: %w", err)
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() error {
	s.Pool.Close()
	return nil
}

func (s *Store) Save(ctx context.Context, st domain.SavedStandup) error {
	holidays := st.PublicHolidays
	if holidays == nil {
		holidays = []string{}
	}
	const q = `
		INSERT INTO standups(id, user_email, issues_input, output, timezone, public_holidays, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)`
	_, err := s.Pool.Exec(ctx, q, st.ID, st.UserEmail, st.IssuesInput, st.Output, st.Timezone, holidays, st.CreatedAt.UTC())
	return err
}

func (s *Store) List(ctx context.Context, userEmail string, limit int) ([]domain.SavedStandup, error) {
	const q = `
		SELECT id, user_email, issues_input, output, timezone, public_holidays, created_at
		FROM standups WHERE user_email = $1
		ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := s.Pool.Query(ctx, q, userEmail, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SavedStandup
	for rows.Next() {
		var st domain.SavedStandup
		if err := rows.Scan(&st.ID, &st.UserEmail, &st.IssuesInput, &st.Output, &st.Timezone, &st.PublicHolidays, &st.CreatedAt); err != nil {
			return nil, err
		}
		st.CreatedAt = st.CreatedAt.UTC()
		if len(st.PublicHolidays) == 0 {
			st.PublicHolidays = nil
		}
		out = append(out, st)
	}
	return out, rows.Err()
}
