package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"matchmaking-engine/internal/models"
)

// MutualMatchRepository handles mutual match database operations.
type MutualMatchRepository struct {
	db *DB
}

// NewMutualMatchRepository creates a new mutual match repository.
func NewMutualMatchRepository(db *DB) *MutualMatchRepository {
	return &MutualMatchRepository{db: db}
}

// Create inserts the match and one response row per member.
func (r *MutualMatchRepository) Create(ctx context.Context, m *models.MutualMatch) error {
	now := time.Now().UTC()
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO mutual_matches (status, sent_at, created_at, updated_at)
			VALUES ($1, $2, $3, $3)
			RETURNING id`,
			string(m.Status), m.SentAt, now,
		).Scan(&m.ID)
		if err != nil {
			return fmt.Errorf("failed to create mutual match: %w", err)
		}

		for _, memberID := range m.MemberIDs() {
			_, err := tx.Exec(ctx, `
				INSERT INTO mutual_match_members (match_id, member_id, response)
				VALUES ($1, $2, $3)`,
				m.ID, memberID, string(m.Responses[memberID]),
			)
			if err != nil {
				if IsForeignKeyViolation(err) {
					return fmt.Errorf("member %d: %w", memberID, models.ErrNotFound)
				}
				return fmt.Errorf("failed to add match member: %w", err)
			}
		}
		m.CreatedAt, m.UpdatedAt = now, now
		return nil
	})
}

// GetByID retrieves a match with its member responses.
func (r *MutualMatchRepository) GetByID(ctx context.Context, id int64) (*models.MutualMatch, error) {
	var out *models.MutualMatch
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		m, err := r.load(ctx, tx, id, false)
		out = m
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMembership locks the match row, runs fn on the locked snapshot and
// writes the result back in the same transaction.
func (r *MutualMatchRepository) UpdateMembership(ctx context.Context, id int64, fn func(*models.MutualMatch) error) (*models.MutualMatch, error) {
	var out *models.MutualMatch
	err := r.db.WithRetry(ctx, func(tx pgx.Tx) error {
		m, err := r.load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE mutual_matches SET status = $2, sent_at = $3, updated_at = $4
			WHERE id = $1`,
			m.ID, string(m.Status), m.SentAt, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update mutual match: %w", err)
		}
		for memberID, response := range m.Responses {
			_, err := tx.Exec(ctx, `
				UPDATE mutual_match_members SET response = $3
				WHERE match_id = $1 AND member_id = $2`,
				m.ID, memberID, string(response),
			)
			if err != nil {
				return fmt.Errorf("failed to update match member: %w", err)
			}
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus overwrites the coarse status.
func (r *MutualMatchRepository) UpdateStatus(ctx context.Context, id int64, status models.MatchStatus) error {
	n, err := r.db.ExecContext(ctx,
		"UPDATE mutual_matches SET status = $2, updated_at = $3 WHERE id = $1",
		id, string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update mutual match status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// Delete removes a match and its member rows.
func (r *MutualMatchRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.db.ExecContext(ctx, "DELETE FROM mutual_matches WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete mutual match: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mutual match %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// FindByMember lists the matches a member belongs to, newest first.
func (r *MutualMatchRepository) FindByMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]*models.MutualMatch, error) {
	query := `
		SELECT mm.id, mm.status, mm.sent_at, mm.created_at, mm.updated_at,
			array_agg(mmm.member_id ORDER BY mmm.member_id),
			array_agg(mmm.response ORDER BY mmm.member_id)
		FROM mutual_matches mm
		JOIN mutual_match_members mmm ON mmm.match_id = mm.id
		WHERE mm.id IN (SELECT match_id FROM mutual_match_members WHERE member_id = $1)
		  AND (cardinality($2::text[]) = 0 OR mm.status = ANY($2::text[]))
		  AND ($3 = FALSE OR (mm.status = 'PENDING' AND EXISTS (
				SELECT 1 FROM mutual_match_members me
				WHERE me.match_id = mm.id AND me.member_id = $1 AND me.response = 'pending')))
		GROUP BY mm.id
		ORDER BY mm.created_at DESC, mm.id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, memberID, filter.StatusStrings(), filter.PendingOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query mutual matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.MutualMatch
	for rows.Next() {
		var (
			m         models.MutualMatch
			memberIDs []int64
			responses []string
		)
		err := rows.Scan(&m.ID, (*string)(&m.Status), &m.SentAt, &m.CreatedAt, &m.UpdatedAt, &memberIDs, &responses)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mutual match: %w", err)
		}
		m.Responses = make(map[int64]models.ResponseStatus, len(memberIDs))
		for i, id := range memberIDs {
			m.Responses[id] = models.ResponseStatus(responses[i])
		}
		matches = append(matches, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read mutual matches: %w", err)
	}
	return matches, nil
}

// load reads a match and its members inside tx, optionally locking the match row.
func (r *MutualMatchRepository) load(ctx context.Context, tx pgx.Tx, id int64, forUpdate bool) (*models.MutualMatch, error) {
	query := "SELECT id, status, sent_at, created_at, updated_at FROM mutual_matches WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}

	var m models.MutualMatch
	err := tx.QueryRow(ctx, query, id).Scan(&m.ID, (*string)(&m.Status), &m.SentAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, notFound(err, "mutual match", id)
	}

	rows, err := tx.Query(ctx, "SELECT member_id, response FROM mutual_match_members WHERE match_id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query match members: %w", err)
	}
	defer rows.Close()

	m.Responses = make(map[int64]models.ResponseStatus, 2)
	for rows.Next() {
		var memberID int64
		var response string
		if err := rows.Scan(&memberID, &response); err != nil {
			return nil, fmt.Errorf("failed to scan match member: %w", err)
		}
		m.Responses[memberID] = models.ResponseStatus(response)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match members: %w", err)
	}
	return &m, nil
}
