package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"matchmaking-engine/internal/models"
)

const memberColumns = `m.id, m.category, m.status, m.name, m.email, m.phone, m.referral_code, m.referred_by_code,
	m.birth_year, m.height, m.education_level, m.occupation_status, m.personality_type,
	m.smoker, m.has_tattoo, m.has_car, m.gamer, m.has_pet, m.religion,
	m.income_band, m.asset_band, m.books_per_year, m.exercise_frequency,
	m.region, m.body_shape, m.hobby,
	m.blacklisted_phones, m.blacklisted_names, m.blacklisted_member_ids,
	m.import_batch_id, m.created_at, m.updated_at`

const idealTypeColumns = `it.member_id, it.requirements, it.priorities, it.soft_preferences, it.updated_at`

// MemberRepository handles member and ideal type database operations.
type MemberRepository struct {
	db *DB
}

// NewMemberRepository creates a new member repository.
func NewMemberRepository(db *DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts a new member and sets its id and timestamps.
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	if err := models.ValidateMember(m); err != nil {
		return err
	}
	if m.Status == "" {
		m.Status = models.MemberStatusPendingReview
	}
	now := time.Now().UTC()

	err := r.db.QueryRowContext(ctx, insertMemberSQL, memberArgs(m, now)...).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("failed to create member: %w", err)
	}
	m.CreatedAt, m.UpdatedAt = now, now
	return nil
}

// BulkInsert inserts members in one transaction. A failing row is rolled back
// to its savepoint and counted without aborting the batch.
func (r *MemberRepository) BulkInsert(ctx context.Context, members []*models.Member) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{
		Errors: []string{},
	}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for _, m := range members {
			if m.Status == "" {
				m.Status = models.MemberStatusPendingReview
			}
			now := time.Now().UTC()

			sp, err := tx.Begin(ctx)
			if err != nil {
				return fmt.Errorf("failed to open savepoint: %w", err)
			}
			err = sp.QueryRow(ctx, insertMemberSQL, memberArgs(m, now)...).Scan(&m.ID)
			if err != nil {
				_ = sp.Rollback(ctx)
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("member %s: %v", m.Name, err))
				continue
			}
			if err := sp.Commit(ctx); err != nil {
				return fmt.Errorf("failed to release savepoint: %w", err)
			}
			m.CreatedAt, m.UpdatedAt = now, now
			result.InsertedCount++
		}
		return nil
	})

	if err != nil {
		return result, fmt.Errorf("bulk insert failed: %w", err)
	}

	return result, nil
}

// GetByID retrieves a member by id.
func (r *MemberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = $1`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "member", id)
	}
	return m, nil
}

// GetProfile retrieves a member together with its ideal type, if stored.
func (r *MemberRepository) GetProfile(ctx context.Context, id int64) (*models.MemberProfile, error) {
	query := `SELECT ` + memberColumns + `, ` + idealTypeColumns + `
		FROM members m
		LEFT JOIN ideal_types it ON it.member_id = m.id
		WHERE m.id = $1`

	p, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "member", id)
	}
	return p, nil
}

// FindCandidatePool returns the raw pool for a requester: active members of
// the opposite category, with blacklists applied both ways, referral links
// removed and, when asked, members already matched with the requester left out.
// Rows come newest first.
func (r *MemberRepository) FindCandidatePool(ctx context.Context, q models.PoolQuery) ([]*models.MemberProfile, error) {
	req := q.Requester
	names := make([]string, 0, len(req.BlacklistedNames))
	for _, n := range req.BlacklistedNames {
		names = append(names, strings.ToLower(strings.TrimSpace(n)))
	}
	phones := make([]string, 0, len(req.BlacklistedPhones))
	for _, p := range req.BlacklistedPhones {
		phones = append(phones, digitsOnly(p))
	}
	blockedIDs := req.BlacklistedMemberIDs
	if blockedIDs == nil {
		blockedIDs = []int64{}
	}

	query := `SELECT ` + memberColumns + `, ` + idealTypeColumns + `
		FROM members m
		LEFT JOIN ideal_types it ON it.member_id = m.id
		WHERE m.category = $2
		  AND m.status = 'active'
		  AND m.id <> $1
		  AND NOT (m.id = ANY($3::bigint[]))
		  AND NOT ($1 = ANY(m.blacklisted_member_ids))
		  AND NOT (regexp_replace(m.phone, '\D', '', 'g') <> '' AND regexp_replace(m.phone, '\D', '', 'g') = ANY($4::text[]))
		  AND NOT (lower(trim(m.name)) = ANY($5::text[]))
		  AND NOT ($6 <> '' AND EXISTS (
				SELECT 1 FROM unnest(m.blacklisted_phones) p WHERE regexp_replace(p, '\D', '', 'g') = $6))
		  AND NOT ($7 <> '' AND EXISTS (
				SELECT 1 FROM unnest(m.blacklisted_names) n WHERE lower(trim(n)) = $7))
		  AND NOT ($8 <> '' AND m.referred_by_code = $8)
		  AND NOT ($9 <> '' AND m.referral_code = $9)
		  AND ($10 = FALSE OR NOT EXISTS (
				SELECT 1 FROM mutual_match_members a
				JOIN mutual_match_members b ON b.match_id = a.match_id
				WHERE a.member_id = $1 AND b.member_id = m.id))
		  AND ($10 = FALSE OR NOT EXISTS (
				SELECT 1 FROM sequential_matches s
				WHERE (s.sender_id = $1 AND s.receiver_id = m.id)
				   OR (s.sender_id = m.id AND s.receiver_id = $1)))
		ORDER BY m.created_at DESC, m.id DESC`

	args := []interface{}{
		req.ID,
		string(req.Category.Opposite()),
		blockedIDs,
		phones,
		names,
		digitsOnly(req.Phone),
		strings.ToLower(strings.TrimSpace(req.Name)),
		req.ReferralCode,
		req.ReferredByCode,
		q.ExcludeMatched,
	}
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate pool: %w", err)
	}
	defer rows.Close()

	var pool []*models.MemberProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		pool = append(pool, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read candidate pool: %w", err)
	}
	return pool, nil
}

// Update applies a partial edit under a row lock and returns the stored member.
func (r *MemberRepository) Update(ctx context.Context, id int64, u *models.MemberUpdate) (*models.Member, error) {
	var out *models.Member
	err := r.db.WithRetry(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + memberColumns + ` FROM members m WHERE m.id = $1 FOR UPDATE`
		m, err := scanMember(tx.QueryRow(ctx, query, id))
		if err != nil {
			return notFound(err, "member", id)
		}

		u.Apply(m)
		if err := models.ValidateMember(m); err != nil {
			return err
		}
		m.UpdatedAt = time.Now().UTC()

		_, err = tx.Exec(ctx, `
			UPDATE members SET
				status = $2, name = $3, email = $4, phone = $5, height = $6,
				education_level = $7, occupation_status = $8, income_band = $9,
				asset_band = $10, exercise_frequency = $11,
				blacklisted_phones = $12, blacklisted_names = $13, blacklisted_member_ids = $14,
				updated_at = $15
			WHERE id = $1`,
			m.ID,
			string(m.Status),
			m.Name,
			m.Email,
			m.Phone,
			m.Height,
			string(m.EducationLevel),
			string(m.OccupationStatus),
			string(m.IncomeBand),
			string(m.AssetBand),
			string(m.ExerciseFrequency),
			nonNilStrings(m.BlacklistedPhones),
			nonNilStrings(m.BlacklistedNames),
			nonNilInt64s(m.BlacklistedMemberIDs),
			m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpsertIdealType stores a member's ideal type, replacing any previous one.
func (r *MemberRepository) UpsertIdealType(ctx context.Context, it *models.IdealType) error {
	requirements, err := json.Marshal(it.Requirements)
	if err != nil {
		return fmt.Errorf("failed to encode requirements: %w", err)
	}
	priorities, err := json.Marshal(it.Priorities)
	if err != nil {
		return fmt.Errorf("failed to encode priorities: %w", err)
	}
	soft, err := json.Marshal(it.Soft)
	if err != nil {
		return fmt.Errorf("failed to encode soft preferences: %w", err)
	}
	it.UpdatedAt = time.Now().UTC()

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO ideal_types (member_id, requirements, priorities, soft_preferences, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (member_id) DO UPDATE SET
			requirements = EXCLUDED.requirements,
			priorities = EXCLUDED.priorities,
			soft_preferences = EXCLUDED.soft_preferences,
			updated_at = EXCLUDED.updated_at`,
		it.MemberID, requirements, priorities, soft, it.UpdatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("member %d: %w", it.MemberID, models.ErrNotFound)
		}
		return fmt.Errorf("failed to upsert ideal type: %w", err)
	}
	return nil
}

// CountByBatchID returns the number of members imported in a batch.
func (r *MemberRepository) CountByBatchID(ctx context.Context, batchID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM members WHERE import_batch_id = $1", batchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

const insertMemberSQL = `
	INSERT INTO members (
		category, status, name, email, phone, referral_code, referred_by_code,
		birth_year, height, education_level, occupation_status, personality_type,
		smoker, has_tattoo, has_car, gamer, has_pet, religion,
		income_band, asset_band, books_per_year, exercise_frequency,
		region, body_shape, hobby,
		blacklisted_phones, blacklisted_names, blacklisted_member_ids,
		import_batch_id, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $30)
	RETURNING id`

func memberArgs(m *models.Member, now time.Time) []interface{} {
	return []interface{}{
		string(m.Category),
		string(m.Status),
		m.Name,
		m.Email,
		m.Phone,
		m.ReferralCode,
		m.ReferredByCode,
		m.BirthYear,
		m.Height,
		string(m.EducationLevel),
		string(m.OccupationStatus),
		m.PersonalityType,
		m.Smoker,
		m.HasTattoo,
		m.HasCar,
		m.Gamer,
		m.HasPet,
		string(m.Religion),
		string(m.IncomeBand),
		string(m.AssetBand),
		string(m.BooksPerYear),
		string(m.ExerciseFrequency),
		m.Region,
		m.BodyShape,
		m.Hobby,
		nonNilStrings(m.BlacklistedPhones),
		nonNilStrings(m.BlacklistedNames),
		nonNilInt64s(m.BlacklistedMemberIDs),
		m.ImportBatchID,
		now,
	}
}

func memberDest(m *models.Member) []interface{} {
	return []interface{}{
		&m.ID,
		(*string)(&m.Category),
		(*string)(&m.Status),
		&m.Name,
		&m.Email,
		&m.Phone,
		&m.ReferralCode,
		&m.ReferredByCode,
		&m.BirthYear,
		&m.Height,
		(*string)(&m.EducationLevel),
		(*string)(&m.OccupationStatus),
		&m.PersonalityType,
		&m.Smoker,
		&m.HasTattoo,
		&m.HasCar,
		&m.Gamer,
		&m.HasPet,
		(*string)(&m.Religion),
		(*string)(&m.IncomeBand),
		(*string)(&m.AssetBand),
		(*string)(&m.BooksPerYear),
		(*string)(&m.ExerciseFrequency),
		&m.Region,
		&m.BodyShape,
		&m.Hobby,
		&m.BlacklistedPhones,
		&m.BlacklistedNames,
		&m.BlacklistedMemberIDs,
		&m.ImportBatchID,
		&m.CreatedAt,
		&m.UpdatedAt,
	}
}

func scanMember(row pgx.Row) (*models.Member, error) {
	var m models.Member
	if err := row.Scan(memberDest(&m)...); err != nil {
		return nil, err
	}
	return &m, nil
}

// scanProfile scans member columns followed by LEFT JOINed ideal type columns.
func scanProfile(row pgx.Row) (*models.MemberProfile, error) {
	var (
		p            models.MemberProfile
		idealMember  *int64
		requirements []byte
		priorities   []byte
		soft         []byte
		updatedAt    *time.Time
	)
	dest := append(memberDest(&p.Member), &idealMember, &requirements, &priorities, &soft, &updatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if idealMember == nil {
		return &p, nil
	}

	it, err := decodeIdealType(*idealMember, requirements, priorities, soft)
	if err != nil {
		return nil, err
	}
	if updatedAt != nil {
		it.UpdatedAt = *updatedAt
	}
	p.IdealType = it
	return &p, nil
}

func decodeIdealType(memberID int64, requirements, priorities, soft []byte) (*models.IdealType, error) {
	it := &models.IdealType{MemberID: memberID, Priorities: models.Priorities{}}
	if err := json.Unmarshal(requirements, &it.Requirements); err != nil {
		return nil, fmt.Errorf("failed to decode requirements of member %d: %w", memberID, err)
	}
	if err := json.Unmarshal(priorities, &it.Priorities); err != nil {
		return nil, fmt.Errorf("failed to decode priorities of member %d: %w", memberID, err)
	}
	if len(soft) > 0 {
		if err := json.Unmarshal(soft, &it.Soft); err != nil {
			return nil, fmt.Errorf("failed to decode soft preferences of member %d: %w", memberID, err)
		}
	}
	return it, nil
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInt64s(s []int64) []int64 {
	if s == nil {
		return []int64{}
	}
	return s
}
