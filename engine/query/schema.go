package query

import (
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Kind is the value type of a field and decides how it compares.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	default:
		return "unknown"
	}
}

// Role is the set of query operations a field takes part in.
type Role uint8

const (
	RoleFilter Role = 1 << iota
	RoleSearch
	RoleSort
	RoleRange
)

// Field describes one queryable attribute of T.
type Field[T any] struct {
	Name  string
	Kind  Kind
	Roles Role

	str      func(T) string
	strs     func(T) []string
	num      func(T) float64
	when     func(T) time.Time
	multi    bool
	contains bool
}

// StringField is a single-valued string attribute. A filter matches on equality.
func StringField[T any](name string, roles Role, get func(T) string) Field[T] {
	return Field[T]{Name: name, Kind: KindString, Roles: roles, str: get}
}

// StringsField is a multi-valued string attribute such as tags. A filter
// matches when any element equals the value; search matches any element.
func StringsField[T any](name string, roles Role, get func(T) []string) Field[T] {
	return Field[T]{Name: name, Kind: KindString, Roles: roles, strs: get, multi: true}
}

// ContainsField is a string attribute whose filter matches when the value
// holds the filter term as a substring, e.g. "year" against "2 years".
// Matching is case-sensitive.
func ContainsField[T any](name string, roles Role, get func(T) string) Field[T] {
	return Field[T]{Name: name, Kind: KindString, Roles: roles, str: get, contains: true}
}

// NumberField is a numeric attribute, usable for ranges and sorting.
func NumberField[T any](name string, roles Role, get func(T) float64) Field[T] {
	return Field[T]{Name: name, Kind: KindNumber, Roles: roles, num: get}
}

// TimeField is a timestamp attribute, usable for sorting.
func TimeField[T any](name string, roles Role, get func(T) time.Time) Field[T] {
	return Field[T]{Name: name, Kind: KindTime, Roles: roles, when: get}
}

func (f Field[T]) Has(r Role) bool {
	return f.Roles&r == r
}

func (f Field[T]) Multi() bool {
	return f.multi
}

// MatchesFilter reports whether rec passes a categorical filter on f.
func (f Field[T]) MatchesFilter(rec T, value string) bool {
	for _, v := range f.Strings(rec) {
		if v == value || (f.contains && strings.Contains(v, value)) {
			return true
		}
	}
	return false
}

// Strings returns the string values of f for rec; single-valued fields
// yield one element.
func (f Field[T]) Strings(rec T) []string {
	if f.multi {
		return f.strs(rec)
	}
	if f.str != nil {
		return []string{f.str(rec)}
	}
	return nil
}

func (f Field[T]) Number(rec T) float64 {
	if f.num == nil {
		return 0
	}
	return f.num(rec)
}

func (f Field[T]) Time(rec T) time.Time {
	if f.when == nil {
		return time.Time{}
	}
	return f.when(rec)
}

func (f Field[T]) validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return invalidf("field name is required")
	}
	if f.Roles == 0 {
		return invalidf("field %q has no roles", f.Name)
	}
	if f.str == nil && f.strs == nil && f.num == nil && f.when == nil {
		return invalidf("field %q has no accessor", f.Name)
	}
	if f.Has(RoleRange) && f.Kind != KindNumber {
		return invalidf("field %q: range requires a number field", f.Name)
	}
	if (f.Has(RoleFilter) || f.Has(RoleSearch)) && f.Kind != KindString {
		return invalidf("field %q: filter and search require a string field", f.Name)
	}
	if f.Has(RoleSort) && f.multi {
		return invalidf("field %q: multi-valued fields cannot be sorted", f.Name)
	}
	return nil
}

// Schema is the per-list description of how records are identified and queried.
type Schema[T any] struct {
	id     func(T) string
	fields []Field[T]
	byName map[string]int
	locale language.Tag
}

// NewSchema validates fields and indexes them by name. Field names must be unique.
func NewSchema[T any](id func(T) string, fields ...Field[T]) (*Schema[T], error) {
	if id == nil {
		return nil, invalidf("id accessor is required")
	}
	s := &Schema[T]{
		id:     id,
		fields: make([]Field[T], 0, len(fields)),
		byName: make(map[string]int, len(fields)),
		locale: language.English,
	}
	for _, f := range fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, invalidf("duplicate field %q", f.Name)
		}
		s.byName[f.Name] = len(s.fields)
		s.fields = append(s.fields, f)
	}
	return s, nil
}

// MustSchema is NewSchema for package-level schema declarations.
func MustSchema[T any](id func(T) string, fields ...Field[T]) *Schema[T] {
	s, err := NewSchema(id, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// WithLocale returns a copy of s that collates strings for tag.
func (s *Schema[T]) WithLocale(tag language.Tag) *Schema[T] {
	cp := *s
	cp.locale = tag
	return &cp
}

func (s *Schema[T]) Locale() language.Tag {
	return s.locale
}

func (s *Schema[T]) ID(rec T) string {
	return s.id(rec)
}

func (s *Schema[T]) Field(name string) (Field[T], bool) {
	i, ok := s.byName[name]
	if !ok {
		return Field[T]{}, false
	}
	return s.fields[i], true
}

func (s *Schema[T]) Fields() []Field[T] {
	out := make([]Field[T], len(s.fields))
	copy(out, s.fields)
	return out
}

// FieldNames lists the fields holding role r, in declaration order.
func (s *Schema[T]) FieldNames(r Role) []string {
	var names []string
	for _, f := range s.fields {
		if f.Has(r) {
			names = append(names, f.Name)
		}
	}
	return names
}

func (s *Schema[T]) fieldWith(name string, r Role, what string) (Field[T], error) {
	f, ok := s.Field(name)
	if !ok {
		return Field[T]{}, invalidf("unknown %s field %q", what, name)
	}
	if !f.Has(r) {
		return Field[T]{}, invalidf("field %q does not support %s", name, what)
	}
	return f, nil
}

// Validate reports whether d can be applied to lists of this schema.
func (s *Schema[T]) Validate(d Descriptor) error {
	if d.PageSize < 1 {
		return invalidf("page size must be positive, got %d", d.PageSize)
	}
	switch d.SortDirection {
	case "", Asc, Desc:
	default:
		return invalidf("unknown sort direction %q", d.SortDirection)
	}
	if !d.unsorted() {
		if _, err := s.fieldWith(d.SortKey, RoleSort, "sort"); err != nil {
			return err
		}
	}
	for name := range d.Filters {
		if _, err := s.fieldWith(name, RoleFilter, "filter"); err != nil {
			return err
		}
	}
	for name := range d.Ranges {
		if _, err := s.fieldWith(name, RoleRange, "range"); err != nil {
			return err
		}
	}
	return nil
}
