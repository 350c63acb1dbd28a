package domain

// SortBy orders the public catalog
type SortBy int

const (
	SortClassesDesc SortBy = iota + 1
	SortClassesAsc
	SortPropertiesDesc
	SortPropertiesAsc
	SortUploadAtDesc
	SortUploadAtAsc
)

const (
	DefaultPageSize  = 4
	AdminPageSize    = 50
	MaxTagNameLength = 20
	DefaultSortBy    = SortClassesDesc
	tagNameSeparator = ","
)

// ParseSortBy falls back to DefaultSortBy for unknown values
func ParseSortBy(v int) SortBy {
	s := SortBy(v)
	if s < SortClassesDesc || s > SortUploadAtAsc {
		return DefaultSortBy
	}
	return s
}

// OrderBy is the SQL ordering for data_sets aliased as d
func (s SortBy) OrderBy() string {
	switch s {
	case SortClassesAsc:
		return "d.meta_data_classes ASC"
	case SortPropertiesDesc:
		return "d.meta_data_properties DESC"
	case SortPropertiesAsc:
		return "d.meta_data_properties ASC"
	case SortUploadAtDesc:
		return "d.upload_at DESC"
	case SortUploadAtAsc:
		return "d.upload_at ASC"
	default:
		return "d.meta_data_classes DESC"
	}
}

// Page normalizes a 1-based page number and size into a SQL offset
type Page struct {
	Number int
	Size   int
}

// Page bounds keep Offset well inside int64 and PostgreSQL's OFFSET range
const (
	MaxPageSize   = 1000
	MaxPageNumber = 1_000_000
)

// NewPage clamps number to [1, MaxPageNumber] and size to [1, MaxPageSize]
func NewPage(number, size int) Page {
	return Page{
		Number: min(max(number, 1), MaxPageNumber),
		Size:   min(max(size, 1), MaxPageSize),
	}
}

func (p Page) Offset() int {
	return p.Size * (p.Number - 1)
}

// HasPrevious reports whether rows exist before this page
func (p Page) HasPrevious() bool {
	return p.Offset() >= 1
}

// HasNext reports whether rows exist after this page out of count
func (p Page) HasNext(count int) bool {
	return p.Offset()+p.Size < count
}
