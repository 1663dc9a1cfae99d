package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Migration is one versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrations returns the schema history in apply order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_members", UpSQL: migration001Members},
		{Version: 2, Name: "create_ideal_types", UpSQL: migration002IdealTypes},
		{Version: 3, Name: "create_mutual_matches", UpSQL: migration003MutualMatches},
		{Version: 4, Name: "create_sequential_matches", UpSQL: migration004SequentialMatches},
	}
}

// Migrate applies every migration not yet recorded in schema_migrations.
// It returns the versions it applied.
func (db *DB) Migrate(ctx context.Context) ([]int, error) {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[v] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	var done []int
	for _, mig := range Migrations() {
		if applied[mig.Version] {
			continue
		}
		err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			_, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return done, fmt.Errorf("migration %d (%s) failed: %w", mig.Version, mig.Name, err)
		}
		done = append(done, mig.Version)
	}
	return done, nil
}

const migration001Members = `
CREATE TABLE IF NOT EXISTS members (
	id                     BIGSERIAL PRIMARY KEY,
	category               TEXT NOT NULL CHECK (category IN ('A', 'B')),
	status                 TEXT NOT NULL DEFAULT 'pending_review',
	name                   TEXT NOT NULL,
	email                  TEXT NOT NULL DEFAULT '',
	phone                  TEXT NOT NULL DEFAULT '',
	referral_code          TEXT NOT NULL DEFAULT '',
	referred_by_code       TEXT NOT NULL DEFAULT '',
	birth_year             INTEGER,
	height                 INTEGER,
	education_level        TEXT NOT NULL DEFAULT '',
	occupation_status      TEXT NOT NULL DEFAULT '',
	personality_type       TEXT NOT NULL DEFAULT '',
	smoker                 BOOLEAN NOT NULL DEFAULT FALSE,
	has_tattoo             BOOLEAN NOT NULL DEFAULT FALSE,
	has_car                BOOLEAN NOT NULL DEFAULT FALSE,
	gamer                  BOOLEAN NOT NULL DEFAULT FALSE,
	has_pet                BOOLEAN NOT NULL DEFAULT FALSE,
	religion               TEXT NOT NULL DEFAULT '',
	income_band            TEXT NOT NULL DEFAULT '',
	asset_band             TEXT NOT NULL DEFAULT '',
	books_per_year         TEXT NOT NULL DEFAULT '',
	exercise_frequency     TEXT NOT NULL DEFAULT '',
	region                 TEXT NOT NULL DEFAULT '',
	body_shape             TEXT NOT NULL DEFAULT '',
	hobby                  TEXT NOT NULL DEFAULT '',
	blacklisted_phones     TEXT[] NOT NULL DEFAULT '{}',
	blacklisted_names      TEXT[] NOT NULL DEFAULT '{}',
	blacklisted_member_ids BIGINT[] NOT NULL DEFAULT '{}',
	import_batch_id        TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_members_pool ON members (category, status, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_members_batch ON members (import_batch_id);
`

const migration002IdealTypes = `
CREATE TABLE IF NOT EXISTS ideal_types (
	member_id        BIGINT PRIMARY KEY REFERENCES members (id) ON DELETE CASCADE,
	requirements     JSONB NOT NULL DEFAULT '{}',
	priorities       JSONB NOT NULL DEFAULT '{}',
	soft_preferences JSONB NOT NULL DEFAULT '{}',
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

const migration003MutualMatches = `
CREATE TABLE IF NOT EXISTS mutual_matches (
	id         BIGSERIAL PRIMARY KEY,
	status     TEXT NOT NULL,
	sent_at    TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS mutual_match_members (
	match_id  BIGINT NOT NULL REFERENCES mutual_matches (id) ON DELETE CASCADE,
	member_id BIGINT NOT NULL REFERENCES members (id),
	response  TEXT NOT NULL DEFAULT 'pending' CHECK (response IN ('pending', 'accepted', 'rejected')),
	PRIMARY KEY (match_id, member_id)
);
CREATE INDEX IF NOT EXISTS idx_mutual_match_members_member ON mutual_match_members (member_id);
`

const migration004SequentialMatches = `
CREATE TABLE IF NOT EXISTS sequential_matches (
	id                  BIGSERIAL PRIMARY KEY,
	sender_id           BIGINT NOT NULL REFERENCES members (id),
	receiver_id         BIGINT NOT NULL REFERENCES members (id),
	sender_status       TEXT,
	receiver_status     TEXT,
	sent_to_sender_at   TIMESTAMPTZ,
	sent_to_receiver_at TIMESTAMPTZ,
	status              TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CHECK (sender_id <> receiver_id),
	CHECK (sender_status IS NULL OR sent_to_sender_at IS NOT NULL),
	CHECK (receiver_status IS NULL OR sent_to_receiver_at IS NOT NULL)
);
CREATE INDEX IF NOT EXISTS idx_sequential_matches_sender ON sequential_matches (sender_id);
CREATE INDEX IF NOT EXISTS idx_sequential_matches_receiver ON sequential_matches (receiver_id);
`
