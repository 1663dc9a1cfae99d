// Package models defines the data structures for the matchmaking engine.
package models

import (
	"strings"
	"time"
)

// Category splits members into two pools. Matches always pair opposite categories.
type Category string

const (
	CategoryA Category = "A"
	CategoryB Category = "B"
)

// IsValid checks if the category is valid.
func (c Category) IsValid() bool {
	return c == CategoryA || c == CategoryB
}

// Opposite returns the category a member of c is matched with.
func (c Category) Opposite() Category {
	if c == CategoryA {
		return CategoryB
	}
	return CategoryA
}

// MemberStatus is the lifecycle status of a member profile.
type MemberStatus string

const (
	MemberStatusPendingReview MemberStatus = "pending_review"
	MemberStatusActive        MemberStatus = "active"
	MemberStatusDormant       MemberStatus = "dormant"
	MemberStatusDeleted       MemberStatus = "deleted"
)

// ValidMemberStatuses returns all valid member status values.
func ValidMemberStatuses() []MemberStatus {
	return []MemberStatus{
		MemberStatusPendingReview,
		MemberStatusActive,
		MemberStatusDormant,
		MemberStatusDeleted,
	}
}

// IsValid checks if the member status is valid.
func (s MemberStatus) IsValid() bool {
	for _, valid := range ValidMemberStatuses() {
		if s == valid {
			return true
		}
	}
	return false
}

// OccupationStatus represents the occupation status of a member.
type OccupationStatus string

const (
	OccupationEmployed      OccupationStatus = "employed"
	OccupationSelfEmployed  OccupationStatus = "self_employed"
	OccupationPublicServant OccupationStatus = "public_servant"
	OccupationProfessional  OccupationStatus = "professional"
	OccupationStudent       OccupationStatus = "student"
	OccupationJobSeeking    OccupationStatus = "job_seeking"
	OccupationOther         OccupationStatus = "other"
)

// ValidOccupationStatuses returns all valid occupation status values.
func ValidOccupationStatuses() []OccupationStatus {
	return []OccupationStatus{
		OccupationEmployed,
		OccupationSelfEmployed,
		OccupationPublicServant,
		OccupationProfessional,
		OccupationStudent,
		OccupationJobSeeking,
		OccupationOther,
	}
}

// IsValid checks if the occupation status is valid.
func (o OccupationStatus) IsValid() bool {
	for _, valid := range ValidOccupationStatuses() {
		if o == valid {
			return true
		}
	}
	return false
}

// Religion of a member. ReligionNone means the member has no religion.
type Religion string

const (
	ReligionNone      Religion = "none"
	ReligionChristian Religion = "christian"
	ReligionCatholic  Religion = "catholic"
	ReligionBuddhist  Religion = "buddhist"
	ReligionOther     Religion = "other"
)

// IsValid checks if the religion is valid.
func (r Religion) IsValid() bool {
	switch r {
	case ReligionNone, ReligionChristian, ReligionCatholic, ReligionBuddhist, ReligionOther:
		return true
	}
	return false
}

// IsReligious reports whether the value names an actual religion.
func (r Religion) IsReligious() bool {
	return r != "" && r != ReligionNone
}

// Member represents a person profile.
//
// Pointer and empty string attributes mean "not provided".
type Member struct {
	ID             int64        `json:"id" db:"id"`
	Category       Category     `json:"category" db:"category"`
	Status         MemberStatus `json:"status" db:"status"`
	Name           string       `json:"name" db:"name"`
	Email          string       `json:"email" db:"email"`
	Phone          string       `json:"phone" db:"phone"`
	ReferralCode   string       `json:"referral_code,omitempty" db:"referral_code"`
	ReferredByCode string       `json:"referred_by_code,omitempty" db:"referred_by_code"`

	BirthYear         *int              `json:"birth_year,omitempty" db:"birth_year"`
	Height            *int              `json:"height,omitempty" db:"height"`
	EducationLevel    EducationLevel    `json:"education_level,omitempty" db:"education_level"`
	OccupationStatus  OccupationStatus  `json:"occupation_status,omitempty" db:"occupation_status"`
	PersonalityType   string            `json:"personality_type,omitempty" db:"personality_type"`
	Smoker            bool              `json:"smoker" db:"smoker"`
	HasTattoo         bool              `json:"has_tattoo" db:"has_tattoo"`
	HasCar            bool              `json:"has_car" db:"has_car"`
	Gamer             bool              `json:"gamer" db:"gamer"`
	HasPet            bool              `json:"has_pet" db:"has_pet"`
	Religion          Religion          `json:"religion,omitempty" db:"religion"`
	IncomeBand        IncomeBand        `json:"income_band,omitempty" db:"income_band"`
	AssetBand         AssetBand         `json:"asset_band,omitempty" db:"asset_band"`
	BooksPerYear      BooksPerYear      `json:"books_per_year,omitempty" db:"books_per_year"`
	ExerciseFrequency ExerciseFrequency `json:"exercise_frequency,omitempty" db:"exercise_frequency"`

	// Display-only attributes.
	Region    string `json:"region,omitempty" db:"region"`
	BodyShape string `json:"body_shape,omitempty" db:"body_shape"`
	Hobby     string `json:"hobby,omitempty" db:"hobby"`

	BlacklistedPhones    []string `json:"blacklisted_phones,omitempty" db:"blacklisted_phones"`
	BlacklistedNames     []string `json:"blacklisted_names,omitempty" db:"blacklisted_names"`
	BlacklistedMemberIDs []int64  `json:"blacklisted_member_ids,omitempty" db:"blacklisted_member_ids"`

	ImportBatchID string    `json:"import_batch_id,omitempty" db:"import_batch_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// IsActive reports whether the member can currently be matched.
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}

// Blocks reports whether m refuses to be matched with other, by id, phone or name.
func (m *Member) Blocks(other *Member) bool {
	for _, id := range m.BlacklistedMemberIDs {
		if id == other.ID {
			return true
		}
	}
	if other.Phone != "" {
		for _, p := range m.BlacklistedPhones {
			if normalizePhone(p) == normalizePhone(other.Phone) {
				return true
			}
		}
	}
	if other.Name != "" {
		for _, n := range m.BlacklistedNames {
			if strings.EqualFold(strings.TrimSpace(n), strings.TrimSpace(other.Name)) {
				return true
			}
		}
	}
	return false
}

// SharesReferralIdentity reports whether one member referred the other.
func (m *Member) SharesReferralIdentity(other *Member) bool {
	if m.ReferralCode != "" && m.ReferralCode == other.ReferredByCode {
		return true
	}
	return other.ReferralCode != "" && other.ReferralCode == m.ReferredByCode
}

// CanPairWith reports whether other belongs in m's raw candidate pool: a
// different, active member of the opposite category with no blacklist entry in
// either direction and no referral link. Existing matches are checked by the store.
func (m *Member) CanPairWith(other *Member) bool {
	if other.ID == m.ID || !other.IsActive() {
		return false
	}
	if other.Category != m.Category.Opposite() {
		return false
	}
	if m.Blocks(other) || other.Blocks(m) {
		return false
	}
	return !m.SharesReferralIdentity(other)
}

// MemberUpdate carries a partial profile edit. Nil fields are left unchanged.
type MemberUpdate struct {
	Status               *MemberStatus      `json:"status,omitempty"`
	Name                 *string            `json:"name,omitempty"`
	Email                *string            `json:"email,omitempty"`
	Phone                *string            `json:"phone,omitempty"`
	Height               *int               `json:"height,omitempty"`
	EducationLevel       *EducationLevel    `json:"education_level,omitempty"`
	OccupationStatus     *OccupationStatus  `json:"occupation_status,omitempty"`
	IncomeBand           *IncomeBand        `json:"income_band,omitempty"`
	AssetBand            *AssetBand         `json:"asset_band,omitempty"`
	ExerciseFrequency    *ExerciseFrequency `json:"exercise_frequency,omitempty"`
	BlacklistedPhones    []string           `json:"blacklisted_phones,omitempty"`
	BlacklistedNames     []string           `json:"blacklisted_names,omitempty"`
	BlacklistedMemberIDs []int64            `json:"blacklisted_member_ids,omitempty"`
}

// Apply copies the set fields of u onto m.
func (u *MemberUpdate) Apply(m *Member) {
	if u.Status != nil {
		m.Status = *u.Status
	}
	if u.Name != nil {
		m.Name = *u.Name
	}
	if u.Email != nil {
		m.Email = *u.Email
	}
	if u.Phone != nil {
		m.Phone = *u.Phone
	}
	if u.Height != nil {
		h := *u.Height
		m.Height = &h
	}
	if u.EducationLevel != nil {
		m.EducationLevel = *u.EducationLevel
	}
	if u.OccupationStatus != nil {
		m.OccupationStatus = *u.OccupationStatus
	}
	if u.IncomeBand != nil {
		m.IncomeBand = *u.IncomeBand
	}
	if u.AssetBand != nil {
		m.AssetBand = *u.AssetBand
	}
	if u.ExerciseFrequency != nil {
		m.ExerciseFrequency = *u.ExerciseFrequency
	}
	if u.BlacklistedPhones != nil {
		m.BlacklistedPhones = u.BlacklistedPhones
	}
	if u.BlacklistedNames != nil {
		m.BlacklistedNames = u.BlacklistedNames
	}
	if u.BlacklistedMemberIDs != nil {
		m.BlacklistedMemberIDs = u.BlacklistedMemberIDs
	}
}

// MemberProfile is a member together with its stored ideal type, if any.
type MemberProfile struct {
	Member
	IdealType *IdealType `json:"ideal_type,omitempty"`
}

// BulkInsertResult contains the results of a bulk insert operation.
type BulkInsertResult struct {
	InsertedCount int      `json:"inserted_count"`
	FailedCount   int      `json:"failed_count"`
	Errors        []string `json:"errors,omitempty"`
}

func normalizePhone(p string) string {
	var b strings.Builder
	for _, r := range p {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PoolQuery asks the member store for a requester's raw candidate pool.
type PoolQuery struct {
	Requester *Member
	// ExcludeMatched drops members already linked to the requester by a mutual
	// or sequential match, in either direction.
	ExcludeMatched bool
	Limit          int
}
