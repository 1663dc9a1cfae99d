package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"matchmaking-engine/internal/models"
)

const sequentialColumns = `id, sender_id, receiver_id, sender_status, receiver_status,
	sent_to_sender_at, sent_to_receiver_at, status, created_at, updated_at`

// SequentialMatchRepository handles sequential match database operations.
type SequentialMatchRepository struct {
	db *DB
}

// NewSequentialMatchRepository creates a new sequential match repository.
func NewSequentialMatchRepository(db *DB) *SequentialMatchRepository {
	return &SequentialMatchRepository{db: db}
}

// Create inserts a new sequential match.
func (r *SequentialMatchRepository) Create(ctx context.Context, m *models.SequentialMatch) error {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sequential_matches (
			sender_id, receiver_id, sender_status, receiver_status,
			sent_to_sender_at, sent_to_receiver_at, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		RETURNING id`,
		m.SenderID, m.ReceiverID, responseArg(m.SenderStatus), responseArg(m.ReceiverStatus),
		m.SentToSenderAt, m.SentToReceiverAt, string(m.Status), now,
	).Scan(&m.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("sequential match members: %w", models.ErrNotFound)
		}
		return fmt.Errorf("failed to create sequential match: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// GetByID retrieves a sequential match.
func (r *SequentialMatchRepository) GetByID(ctx context.Context, id int64) (*models.SequentialMatch, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sequentialColumns+" FROM sequential_matches WHERE id = $1", id)
	m, err := scanSequential(row)
	if err != nil {
		return nil, notFound(err, "sequential match", id)
	}
	return m, nil
}

// UpdateMembership locks the match row, runs fn and persists every field fn may touch.
func (r *SequentialMatchRepository) UpdateMembership(ctx context.Context, id int64, fn func(*models.SequentialMatch) error) (*models.SequentialMatch, error) {
	var out *models.SequentialMatch
	err := r.db.WithRetry(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, "SELECT "+sequentialColumns+" FROM sequential_matches WHERE id = $1 FOR UPDATE", id)
		m, err := scanSequential(row)
		if err != nil {
			return notFound(err, "sequential match", id)
		}
		if err := fn(m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE sequential_matches SET
				sender_status = $2, receiver_status = $3,
				sent_to_sender_at = $4, sent_to_receiver_at = $5,
				status = $6, updated_at = $7
			WHERE id = $1`,
			m.ID, responseArg(m.SenderStatus), responseArg(m.ReceiverStatus),
			m.SentToSenderAt, m.SentToReceiverAt, string(m.Status), m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update sequential match: %w", err)
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
func (r *SequentialMatchRepository) UpdateStatus(ctx context.Context, id int64, status models.MatchStatus) error {
	n, err := r.db.ExecContext(ctx,
		"UPDATE sequential_matches SET status = $2, updated_at = $3 WHERE id = $1",
		id, string(status), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update sequential match status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// Delete removes a sequential match.
func (r *SequentialMatchRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.db.ExecContext(ctx, "DELETE FROM sequential_matches WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete sequential match: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("sequential match %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// FindByMember lists matches where the member is sender or receiver, newest first.
func (r *SequentialMatchRepository) FindByMember(ctx context.Context, memberID int64, filter models.MatchFilter) ([]*models.SequentialMatch, error) {
	query := "SELECT " + sequentialColumns + `
		FROM sequential_matches
		WHERE (sender_id = $1 OR receiver_id = $1)
		  AND (cardinality($2::text[]) = 0 OR status = ANY($2::text[]))
		  AND ($3 = FALSE OR (status = 'PENDING' AND (
				(sender_id = $1 AND sender_status = 'pending')
				OR (receiver_id = $1 AND receiver_status = 'pending'
					AND sender_status IS DISTINCT FROM 'pending'))))
		ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, memberID, filter.StatusStrings(), filter.PendingOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to query sequential matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.SequentialMatch
	for rows.Next() {
		m, err := scanSequential(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequential match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sequential matches: %w", err)
	}
	return matches, nil
}

func scanSequential(row pgx.Row) (*models.SequentialMatch, error) {
	var (
		m                        models.SequentialMatch
		senderStatus, recvStatus *string
	)
	err := row.Scan(
		&m.ID, &m.SenderID, &m.ReceiverID, &senderStatus, &recvStatus,
		&m.SentToSenderAt, &m.SentToReceiverAt, (*string)(&m.Status), &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.SenderStatus = responsePtr(senderStatus)
	m.ReceiverStatus = responsePtr(recvStatus)
	return &m, nil
}

func responsePtr(s *string) *models.ResponseStatus {
	if s == nil {
		return nil
	}
	rs := models.ResponseStatus(*s)
	return &rs
}

// responseArg converts a nullable response into a query argument.
func responseArg(rs *models.ResponseStatus) *string {
	if rs == nil {
		return nil
	}
	s := string(*rs)
	return &s
}
