package query

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
)

// ViewResult is the render-ready page of a list plus its pagination metadata.
type ViewResult[T any] struct {
	Records         []T  `json:"records"`
	TotalMatching   int  `json:"total_matching"`
	TotalPages      int  `json:"total_pages"`
	Page            int  `json:"page"`
	PageSize        int  `json:"page_size"`
	HasNextPage     bool `json:"has_next_page"`
	HasPreviousPage bool `json:"has_previous_page"`
}

// Apply filters, searches, sorts and pages records, in that order.
// The input slice is never modified. A page past the end yields no records.
func Apply[T any](s *Schema[T], records []T, d Descriptor) (ViewResult[T], error) {
	matched, err := Match(s, records, d)
	if err != nil {
		return ViewResult[T]{}, err
	}
	return Paginate(matched, d.EffectivePage(), d.PageSize), nil
}

// Match returns every record passing d's filters and search, sorted by d,
// without paging.
func Match[T any](s *Schema[T], records []T, d Descriptor) ([]T, error) {
	if err := s.Validate(d); err != nil {
		return nil, err
	}
	m := newMatcher(s, d)
	out := make([]T, 0, len(records))
	for _, rec := range records {
		if m.match(rec) {
			out = append(out, rec)
		}
	}
	if !d.unsorted() {
		f, _ := s.Field(d.SortKey)
		sortStable(s, f, d.SortDirection == Desc, out)
	}
	return out, nil
}

// Paginate slices an already filtered and sorted set.
func Paginate[T any](matched []T, page, pageSize int) ViewResult[T] {
	if page < 1 {
		page = 1
	}
	total := len(matched)
	totalPages := TotalPages(total, pageSize)
	res := ViewResult[T]{
		Records:         []T{},
		TotalMatching:   total,
		TotalPages:      totalPages,
		Page:            page,
		PageSize:        pageSize,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
	skip := (page - 1) * pageSize
	if skip >= total {
		return res
	}
	end := min(skip+pageSize, total)
	res.Records = slices.Clone(matched[skip:end])
	return res
}

func TotalPages(total, pageSize int) int {
	if pageSize < 1 || total == 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// ClampPage bounds page into [1, max(1, totalPages)].
func ClampPage(page, totalPages int) int {
	upper := max(1, totalPages)
	return min(max(page, 1), upper)
}

type matcher[T any] struct {
	id       func(T) string
	ids      map[string]struct{}
	filters  []filterTerm[T]
	ranges   []rangeTerm[T]
	search   []Field[T]
	term     string
	foldCase cases.Caser
}

type filterTerm[T any] struct {
	field Field[T]
	value string
}

type rangeTerm[T any] struct {
	field Field[T]
	r     Range
}

func newMatcher[T any](s *Schema[T], d Descriptor) *matcher[T] {
	m := &matcher[T]{id: s.ID, foldCase: cases.Fold()}
	if d.IDs != nil {
		m.ids = make(map[string]struct{}, len(d.IDs))
		for _, id := range d.IDs {
			m.ids[id] = struct{}{}
		}
	}
	for name, value := range d.Filters {
		if value == "" || value == AllValues {
			continue
		}
		f, _ := s.Field(name)
		m.filters = append(m.filters, filterTerm[T]{field: f, value: value})
	}
	for name, r := range d.Ranges {
		if r.IsOpen() {
			continue
		}
		f, _ := s.Field(name)
		m.ranges = append(m.ranges, rangeTerm[T]{field: f, r: r})
	}
	if d.Search != "" {
		m.term = m.foldCase.String(d.Search)
		for _, f := range s.fields {
			if f.Has(RoleSearch) {
				m.search = append(m.search, f)
			}
		}
	}
	return m
}

func (m *matcher[T]) match(rec T) bool {
	if m.ids != nil {
		if _, ok := m.ids[m.id(rec)]; !ok {
			return false
		}
	}
	for _, ft := range m.filters {
		if !ft.field.MatchesFilter(rec, ft.value) {
			return false
		}
	}
	for _, rt := range m.ranges {
		if !rt.r.Contains(rt.field.Number(rec)) {
			return false
		}
	}
	if m.term == "" {
		return true
	}
	for _, f := range m.search {
		for _, v := range f.Strings(rec) {
			if strings.Contains(m.foldCase.String(v), m.term) {
				return true
			}
		}
	}
	return false
}

func sortStable[T any](s *Schema[T], f Field[T], desc bool, recs []T) {
	var cmp func(a, b T) int
	switch f.Kind {
	case KindNumber:
		cmp = func(a, b T) int {
			x, y := f.Number(a), f.Number(b)
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			default:
				return 0
			}
		}
	case KindTime:
		cmp = func(a, b T) int {
			return f.Time(a).Compare(f.Time(b))
		}
	default:
		// collators keep internal buffers and are not safe to share
		col := collate.New(s.locale)
		cmp = func(a, b T) int {
			return col.CompareString(f.str(a), f.str(b))
		}
	}
	if desc {
		asc := cmp
		cmp = func(a, b T) int { return asc(b, a) }
	}
	slices.SortStableFunc(recs, cmp)
}
