package pagination

const (
	// DefaultPageSize is the page size used when none is requested.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows a single page request may ask for.
	MaxPageSize = 100
)

// Direction is the sort direction applied to the ordering column.
type Direction string

const (
	Ascending  Direction = "Ascending"
	Descending Direction = "Descending"
)

// ParseDirection maps the exact token "Descending" to Descending.
// Any other value, including the empty string, yields Ascending.
func ParseDirection(value string) Direction {
	if value == string(Descending) {
		return Descending
	}
	return Ascending
}

func (d Direction) IsDescending() bool {
	return d == Descending
}

func (d Direction) String() string {
	if d == "" {
		return string(Ascending)
	}
	return string(d)
}

// NormalizePageSize enforces the default and maximum page sizes for API input.
func NormalizePageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}
