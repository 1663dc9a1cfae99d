// Package models defines the data structures for the matchmaking engine.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Callers branch on these with errors.Is.
var (
	ErrNotFound               = errors.New("not found")
	ErrPreconditionFailed     = errors.New("precondition violation")
	ErrIllegalTransition      = errors.New("illegal transition")
	ErrValidation             = errors.New("validation error")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// Precondition violations.
var (
	ErrMissingIdealType = fmt.Errorf("%w: member has no ideal type", ErrPreconditionFailed)
	ErrNotDispatched    = fmt.Errorf("%w: role has not been dispatched", ErrPreconditionFailed)
	ErrIncompleteMatch  = fmt.Errorf("%w: match needs exactly two resolvable members", ErrPreconditionFailed)
)

// Illegal transitions and bad requests.
var (
	ErrAlreadyResponded  = fmt.Errorf("%w: already responded", ErrIllegalTransition)
	ErrNotAMember        = fmt.Errorf("%w: member is not part of this match", ErrIllegalTransition)
	ErrUnknownCondition  = fmt.Errorf("%w: unknown condition", ErrIllegalTransition)
	ErrSoftOnlyCondition = fmt.Errorf("%w: condition is display-only", ErrIllegalTransition)
	ErrOverlappingTiers  = fmt.Errorf("%w: condition assigned to more than one tier", ErrIllegalTransition)
)

// Member validation errors.
var (
	ErrInvalidCategory         = fmt.Errorf("%w: invalid category", ErrValidation)
	ErrInvalidMemberStatus     = fmt.Errorf("%w: invalid member status", ErrValidation)
	ErrInvalidOccupationStatus = fmt.Errorf("%w: invalid occupation status", ErrValidation)
	ErrInvalidBirthYear        = fmt.Errorf("%w: birth year must be between 1900 and 2100", ErrValidation)
	ErrInvalidHeight           = fmt.Errorf("%w: height must be between 100 and 250", ErrValidation)
	ErrInvalidEmail            = fmt.Errorf("%w: invalid email address", ErrValidation)
	ErrEmptyName               = fmt.Errorf("%w: name cannot be empty", ErrValidation)
	ErrSameMember              = fmt.Errorf("%w: a match needs two different members", ErrValidation)
)

// IsBadRequest reports whether err should be surfaced as a client error.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrIllegalTransition) || errors.Is(err, ErrValidation)
}

// NormalizeOccupationStatus converts various occupation formats to standard values.
func NormalizeOccupationStatus(status string) OccupationStatus {
	normalized := strings.ToLower(strings.TrimSpace(status))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	statusMap := map[string]OccupationStatus{
		"employed":       OccupationEmployed,
		"salaried":       OccupationEmployed,
		"office_worker":  OccupationEmployed,
		"full_time":      OccupationEmployed,
		"self_employed":  OccupationSelfEmployed,
		"selfemployed":   OccupationSelfEmployed,
		"business":       OccupationSelfEmployed,
		"business_owner": OccupationSelfEmployed,
		"entrepreneur":   OccupationSelfEmployed,
		"freelancer":     OccupationSelfEmployed,
		"public_servant": OccupationPublicServant,
		"civil_servant":  OccupationPublicServant,
		"government":     OccupationPublicServant,
		"professional":   OccupationProfessional,
		"doctor":         OccupationProfessional,
		"lawyer":         OccupationProfessional,
		"student":        OccupationStudent,
		"studying":       OccupationStudent,
		"job_seeking":    OccupationJobSeeking,
		"unemployed":     OccupationJobSeeking,
		"other":          OccupationOther,
	}

	if mapped, ok := statusMap[normalized]; ok {
		return mapped
	}

	// Return as-is if no mapping found (will fail validation)
	return OccupationStatus(normalized)
}

// ValidateMember validates member registration data.
func ValidateMember(m *Member) error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}

	if !m.Category.IsValid() {
		return ErrInvalidCategory
	}

	if m.Status != "" && !m.Status.IsValid() {
		return ErrInvalidMemberStatus
	}

	if m.Email != "" && !isValidEmail(m.Email) {
		return ErrInvalidEmail
	}

	if m.BirthYear != nil && (*m.BirthYear < 1900 || *m.BirthYear > 2100) {
		return ErrInvalidBirthYear
	}

	if m.Height != nil && (*m.Height < 100 || *m.Height > 250) {
		return ErrInvalidHeight
	}

	if m.OccupationStatus != "" && !m.OccupationStatus.IsValid() {
		return ErrInvalidOccupationStatus
	}

	if m.EducationLevel != "" && !EducationScale.Contains(m.EducationLevel) {
		return fmt.Errorf("%w: education level %q", ErrValidation, m.EducationLevel)
	}
	if m.IncomeBand != "" && !IncomeScale.Contains(m.IncomeBand) {
		return fmt.Errorf("%w: income band %q", ErrValidation, m.IncomeBand)
	}
	if m.AssetBand != "" && !AssetScale.Contains(m.AssetBand) {
		return fmt.Errorf("%w: asset band %q", ErrValidation, m.AssetBand)
	}
	if m.BooksPerYear != "" && !BooksScale.Contains(m.BooksPerYear) {
		return fmt.Errorf("%w: books per year %q", ErrValidation, m.BooksPerYear)
	}
	if m.ExerciseFrequency != "" && !ExerciseScale.Contains(m.ExerciseFrequency) {
		return fmt.Errorf("%w: exercise frequency %q", ErrValidation, m.ExerciseFrequency)
	}
	if m.Religion != "" && !m.Religion.IsValid() {
		return fmt.Errorf("%w: religion %q", ErrValidation, m.Religion)
	}

	return nil
}

// isValidEmail performs basic email validation.
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}

	// Basic check: must contain @ and have content before and after
	atIndex := strings.Index(email, "@")
	if atIndex <= 0 || atIndex == len(email)-1 {
		return false
	}

	// Must have a dot after @
	dotIndex := strings.LastIndex(email, ".")
	if dotIndex <= atIndex+1 || dotIndex == len(email)-1 {
		return false
	}

	return true
}
