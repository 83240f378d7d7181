package query

import (
	"fmt"
	"maps"
	"slices"

	"dario.cat/mergo"

	"github.com/compozy/listview/engine/core"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// SortNone keeps insertion order. The empty sort key means the same.
const SortNone = "none"

// AllValues is the filter value that imposes no constraint.
const AllValues = "all"

// Range bounds a numeric field. Both ends are inclusive; nil means open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

func AtLeast(v float64) Range {
	return Range{Min: &v}
}

func AtMost(v float64) Range {
	return Range{Max: &v}
}

func Between(lo, hi float64) Range {
	return Range{Min: &lo, Max: &hi}
}

func (r Range) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) IsOpen() bool {
	return r.Min == nil && r.Max == nil
}

// Descriptor is the full user intent for one list view. A non-nil IDs
// restricts the view to those record ids; an empty non-nil set matches nothing.
type Descriptor struct {
	Filters       map[string]string `json:"filters,omitempty"`
	Ranges        map[string]Range  `json:"ranges,omitempty"`
	Search        string            `json:"search,omitempty"`
	SortKey       string            `json:"sort_key,omitempty"`
	SortDirection Direction         `json:"sort_direction,omitempty"`
	Page          int               `json:"page"`
	PageSize      int               `json:"page_size"`
	IDs           []string          `json:"ids,omitzero"`
}

func (d Descriptor) clone() Descriptor {
	out := d
	out.Filters = maps.Clone(d.Filters)
	out.Ranges = maps.Clone(d.Ranges)
	out.IDs = slices.Clone(d.IDs)
	return out
}

func (d Descriptor) unsorted() bool {
	return d.SortKey == "" || d.SortKey == SortNone
}

// EffectivePage treats pages below 1 as page 1.
func (d Descriptor) EffectivePage() int {
	if d.Page < 1 {
		return 1
	}
	return d.Page
}

// WithFilter sets or clears (value "" or "all") a categorical filter.
func (d Descriptor) WithFilter(field, value string) Descriptor {
	out := d.clone()
	if value == "" || value == AllValues {
		delete(out.Filters, field)
		return out
	}
	if out.Filters == nil {
		out.Filters = make(map[string]string, 1)
	}
	out.Filters[field] = value
	return out
}

func (d Descriptor) WithRange(field string, r Range) Descriptor {
	out := d.clone()
	if r.IsOpen() {
		delete(out.Ranges, field)
		return out
	}
	if out.Ranges == nil {
		out.Ranges = make(map[string]Range, 1)
	}
	out.Ranges[field] = r
	return out
}

func (d Descriptor) WithSearch(term string) Descriptor {
	out := d.clone()
	out.Search = term
	return out
}

func (d Descriptor) WithSort(key string, dir Direction) Descriptor {
	out := d.clone()
	out.SortKey = key
	out.SortDirection = dir
	return out
}

// WithIDs limits the view to ids, e.g. a favorites set. nil lifts the limit.
func (d Descriptor) WithIDs(ids []string) Descriptor {
	out := d.clone()
	if ids == nil {
		out.IDs = nil
		return out
	}
	out.IDs = append(make([]string, 0, len(ids)), ids...)
	return out
}

func (d Descriptor) WithPage(page int) Descriptor {
	out := d.clone()
	out.Page = page
	return out
}

// Cleared drops every filter, range, search term and sort, keeping the page size.
func (d Descriptor) Cleared() Descriptor {
	return Descriptor{Page: 1, PageSize: d.PageSize}
}

// Normalize fills zero fields and missing map entries of d from defaults.
func (d Descriptor) Normalize(defaults Descriptor) (Descriptor, error) {
	out := d.clone()
	if err := mergo.Merge(&out, defaults.clone()); err != nil {
		return d, fmt.Errorf("failed to merge descriptor defaults: %w", err)
	}
	return out, nil
}

// Fingerprint is a stable digest of the descriptor, insensitive to map order.
func (d Descriptor) Fingerprint() string {
	n := d.clone()
	n.Page = d.EffectivePage()
	slices.Sort(n.IDs)
	if n.unsorted() {
		n.SortKey = ""
		n.SortDirection = ""
	} else if n.SortDirection == "" {
		n.SortDirection = Asc
	}
	return core.ETagFromAny(n)
}
