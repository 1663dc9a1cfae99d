package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"matchmaking-engine/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
	ErrInvalidRowData = errors.New("invalid row data")
)

// RequiredColumns defines the columns that must be present in the CSV.
var RequiredColumns = []string{
	"name",
	"category",
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// name aliases
	"full_name": "name",
	"fullname":  "name",
	"full name": "name",
	"member":    "name",

	// category aliases
	"group": "category",
	"pool":  "category",

	// contact aliases
	"emailaddress":  "email",
	"email_address": "email",
	"mail":          "email",
	"mobile":        "phone",
	"phone_number":  "phone",
	"phonenumber":   "phone",

	// birth year aliases; "age" is converted using the current year
	"birthyear":  "birth_year",
	"birth year": "birth_year",
	"born":       "birth_year",
	"age":        "birth_year",

	"height_cm":   "height",
	"education":   "education_level",
	"degree":      "education_level",
	"occupation":  "occupation_status",
	"job":         "occupation_status",
	"mbti":        "personality_type",
	"income":      "income_band",
	"assets":      "asset_band",
	"books":       "books_per_year",
	"exercise":    "exercise_frequency",
	"tattoo":      "has_tattoo",
	"car":         "has_car",
	"gaming":      "gamer",
	"pet":         "has_pet",
	"referral":    "referral_code",
	"referred_by": "referred_by_code",
}

// CSVParser handles parsing of member CSV files.
type CSVParser struct {
	columnMapping   map[string]int
	originalHeaders map[string]string // Maps normalized column name to original header
	currentYear     int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{
		columnMapping:   make(map[string]int),
		originalHeaders: make(map[string]string),
		currentYear:     time.Now().Year(),
	}
}

// WithCurrentYear fixes the year used to turn an age column into birth years.
func (p *CSVParser) WithCurrentYear(year int) *CSVParser {
	p.currentYear = year
	return p
}

// ParseMembers parses CSV content into members awaiting review.
func (p *CSVParser) ParseMembers(content string, batchID string) ([]*models.Member, []error) {
	if strings.TrimSpace(content) == "" {
		return nil, []error{ErrEmptyCSV}
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	header, err := reader.Read()
	if err != nil {
		return nil, []error{fmt.Errorf("failed to read header: %w", err)}
	}

	if err := p.buildColumnMapping(header); err != nil {
		return nil, []error{err}
	}

	var members []*models.Member
	var parseErrors []error
	lineNum := 1 // Header is line 1

	for {
		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		member, err := p.parseRow(record, batchID)
		if err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		if err := models.ValidateMember(member); err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
			continue
		}

		members = append(members, member)
	}

	if len(members) == 0 && len(parseErrors) > 0 {
		return nil, append([]error{ErrNoDataRows}, parseErrors...)
	}

	return members, parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(header []string) error {
	p.columnMapping = make(map[string]int)
	p.originalHeaders = make(map[string]string)

	for i, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		original := normalized

		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}

		p.columnMapping[normalized] = i
		p.originalHeaders[normalized] = original
	}

	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := p.columnMapping[required]; !ok {
			missing = append(missing, required)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

// parseRow parses a single CSV row into a Member.
func (p *CSVParser) parseRow(record []string, batchID string) (*models.Member, error) {
	get := func(column string) string {
		idx, ok := p.columnMapping[column]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	m := &models.Member{
		Name:              get("name"),
		Category:          models.Category(strings.ToUpper(get("category"))),
		Status:            models.MemberStatusPendingReview,
		Email:             get("email"),
		Phone:             get("phone"),
		ReferralCode:      get("referral_code"),
		ReferredByCode:    get("referred_by_code"),
		EducationLevel:    models.EducationLevel(enumValue(get("education_level"))),
		PersonalityType:   strings.ToUpper(get("personality_type")),
		Religion:          models.Religion(enumValue(get("religion"))),
		IncomeBand:        models.IncomeBand(enumValue(get("income_band"))),
		AssetBand:         models.AssetBand(enumValue(get("asset_band"))),
		BooksPerYear:      models.BooksPerYear(enumValue(get("books_per_year"))),
		ExerciseFrequency: models.ExerciseFrequency(enumValue(get("exercise_frequency"))),
		Region:            get("region"),
		BodyShape:         get("body_shape"),
		Hobby:             get("hobby"),
		ImportBatchID:     batchID,
	}

	if s := get("occupation_status"); s != "" {
		m.OccupationStatus = models.NormalizeOccupationStatus(s)
	}

	if s := get("birth_year"); s != "" {
		year, err := parseInt(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid birth_year: %v", ErrInvalidRowData, err)
		}
		// Convert an age column into a birth year
		if p.originalHeaders["birth_year"] == "age" {
			year = p.currentYear - year
		}
		m.BirthYear = &year
	}

	if s := get("height"); s != "" {
		h, err := parseInt(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid height: %v", ErrInvalidRowData, err)
		}
		m.Height = &h
	}

	flags := []struct {
		column string
		dst    *bool
	}{
		{"smoker", &m.Smoker},
		{"has_tattoo", &m.HasTattoo},
		{"has_car", &m.HasCar},
		{"gamer", &m.Gamer},
		{"has_pet", &m.HasPet},
	}
	for _, f := range flags {
		s := get(f.column)
		if s == "" {
			continue
		}
		v, err := parseBool(s)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid %s: %v", ErrInvalidRowData, f.column, err)
		}
		*f.dst = v
	}

	return m, nil
}

// enumValue lower-cases a value and turns spaces and dashes into underscores.
func enumValue(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "_")
	return strings.ReplaceAll(s, "-", "_")
}

// parseBool accepts the yes/no spellings found in spreadsheets.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "o":
		return true, nil
	case "n", "no", "x":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// parseInt parses a string to int, handling common formats.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "cm")
	s = strings.TrimSpace(s)

	// Handle float strings (e.g., "172.0")
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return int(f), nil
	}

	return strconv.Atoi(s)
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string) (*CSVValidationResult, error) {
	result := &CSVValidationResult{
		Valid:          false,
		RowCount:       0,
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result, nil
	}

	reader := csv.NewReader(strings.NewReader(content))

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result, nil
	}

	normalizedColumns := make(map[string]bool)
	for _, col := range header {
		normalized := strings.ToLower(strings.TrimSpace(col))
		if alias, ok := ColumnAliases[normalized]; ok {
			normalized = alias
		}
		normalizedColumns[normalized] = true
		result.Columns = append(result.Columns, col)
	}

	for _, required := range RequiredColumns {
		if !normalizedColumns[required] {
			result.MissingColumns = append(result.MissingColumns, required)
		}
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result, nil
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
