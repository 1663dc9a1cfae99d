package models

// Scale is a total order over an enumeration. Comparisons go through an
// explicit rank table so the order never depends on declaration order.
type Scale[T ~string] struct {
	name  string
	order []T
	rank  map[T]int
}

// NewScale builds a scale from lowest to highest value.
func NewScale[T ~string](name string, order ...T) Scale[T] {
	rank := make(map[T]int, len(order))
	for i, v := range order {
		if _, dup := rank[v]; dup {
			panic("models: duplicate value " + string(v) + " in scale " + name)
		}
		rank[v] = i
	}
	return Scale[T]{name: name, order: order, rank: rank}
}

// Name returns the scale name.
func (s Scale[T]) Name() string {
	return s.name
}

// Values returns the scale values from lowest to highest.
func (s Scale[T]) Values() []T {
	out := make([]T, len(s.order))
	copy(out, s.order)
	return out
}

// Rank returns the position of v, or false when v is not on the scale.
func (s Scale[T]) Rank(v T) (int, bool) {
	r, ok := s.rank[v]
	return r, ok
}

// Contains reports whether v is on the scale.
func (s Scale[T]) Contains(v T) bool {
	_, ok := s.rank[v]
	return ok
}

// AtLeast reports whether value is at or above threshold.
// An empty threshold imposes no constraint; a value off the scale never qualifies.
func (s Scale[T]) AtLeast(value, threshold T) bool {
	if threshold == "" {
		return true
	}
	t, ok := s.rank[threshold]
	if !ok {
		return false
	}
	v, ok := s.rank[value]
	if !ok {
		return false
	}
	return v >= t
}

// EducationLevel is the highest completed education.
type EducationLevel string

const (
	EducationHighSchool EducationLevel = "high_school"
	EducationAssociate  EducationLevel = "associate"
	EducationBachelor   EducationLevel = "bachelor"
	EducationMaster     EducationLevel = "master"
	EducationDoctorate  EducationLevel = "doctorate"
)

// IncomeBand is a yearly income bracket.
type IncomeBand string

const (
	IncomeUnder30M  IncomeBand = "under_30m"
	Income30To50M   IncomeBand = "30m_50m"
	Income50To70M   IncomeBand = "50m_70m"
	Income70To100M  IncomeBand = "70m_100m"
	Income100To150M IncomeBand = "100m_150m"
	IncomeOver150M  IncomeBand = "over_150m"
)

// AssetBand is a net asset bracket.
type AssetBand string

const (
	AssetsUnder50M  AssetBand = "under_50m"
	Assets50To100M  AssetBand = "50m_100m"
	Assets100To300M AssetBand = "100m_300m"
	Assets300To500M AssetBand = "300m_500m"
	Assets500MTo1B  AssetBand = "500m_1b"
	AssetsOver1B    AssetBand = "over_1b"
)

// BooksPerYear is a reading-habit bracket.
type BooksPerYear string

const (
	BooksNone   BooksPerYear = "none"
	Books1To5   BooksPerYear = "1_5"
	Books6To10  BooksPerYear = "6_10"
	Books11To20 BooksPerYear = "11_20"
	BooksOver20 BooksPerYear = "over_20"
)

// ExerciseFrequency is how often a member exercises.
type ExerciseFrequency string

const (
	ExerciseNone       ExerciseFrequency = "none"
	ExerciseMonthly    ExerciseFrequency = "monthly"
	ExerciseWeekly1To2 ExerciseFrequency = "weekly_1_2"
	ExerciseWeekly3To4 ExerciseFrequency = "weekly_3_4"
	ExerciseDaily      ExerciseFrequency = "daily"
)

// The ordered scales used for "at least" comparisons. Changing an order
// changes matching outcomes.
var (
	EducationScale = NewScale("education_level",
		EducationHighSchool, EducationAssociate, EducationBachelor, EducationMaster, EducationDoctorate)

	IncomeScale = NewScale("income_band",
		IncomeUnder30M, Income30To50M, Income50To70M, Income70To100M, Income100To150M, IncomeOver150M)

	AssetScale = NewScale("asset_band",
		AssetsUnder50M, Assets50To100M, Assets100To300M, Assets300To500M, Assets500MTo1B, AssetsOver1B)

	BooksScale = NewScale("books_per_year",
		BooksNone, Books1To5, Books6To10, Books11To20, BooksOver20)

	ExerciseScale = NewScale("exercise_frequency",
		ExerciseNone, ExerciseMonthly, ExerciseWeekly1To2, ExerciseWeekly3To4, ExerciseDaily)
)
