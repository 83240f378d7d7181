package list

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/engine/query"
)

// descriptorFlags collects the view flags shared by list and fetch.
type descriptorFlags struct {
	filters   map[string]string
	mins      map[string]string
	maxs      map[string]string
	search    string
	sort      string
	dir       string
	page      int
	pageSize  int
	favorites bool
}

func (f *descriptorFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringToStringVar(&f.filters, "filter", nil, "Categorical filter as field=value (repeatable)")
	fs.StringToStringVar(&f.mins, "min", nil, "Inclusive lower bound as field=number")
	fs.StringToStringVar(&f.maxs, "max", nil, "Inclusive upper bound as field=number")
	fs.StringVarP(&f.search, "search", "q", "", "Case-insensitive search term")
	fs.StringVar(&f.sort, "sort", "", "Sort key, or none for insertion order")
	fs.StringVar(&f.dir, "dir", "", "Sort direction (asc, desc)")
	fs.IntVar(&f.page, "page", 0, "Page number, starting at 1")
	fs.IntVar(&f.pageSize, "page-size", 0, "Records per page")
	fs.BoolVar(&f.favorites, "favorites", false, "Only show records in the kind's favorites set")
}

// descriptor builds the requested view. Unset flags stay zero so the list
// defaults fill them in.
func (f *descriptorFlags) descriptor() (query.Descriptor, error) {
	var d query.Descriptor
	for field, value := range f.filters {
		d = d.WithFilter(field, value)
	}
	ranges := make(map[string]query.Range)
	for field, raw := range f.mins {
		v, err := parseBound("min", field, raw)
		if err != nil {
			return query.Descriptor{}, err
		}
		r := ranges[field]
		r.Min = &v
		ranges[field] = r
	}
	for field, raw := range f.maxs {
		v, err := parseBound("max", field, raw)
		if err != nil {
			return query.Descriptor{}, err
		}
		r := ranges[field]
		r.Max = &v
		ranges[field] = r
	}
	for field, r := range ranges {
		d = d.WithRange(field, r)
	}
	d = d.WithSearch(f.search)
	if f.sort != "" {
		dir := query.Direction(strings.ToLower(f.dir))
		if dir == "" {
			dir = query.Asc
		}
		d = d.WithSort(f.sort, dir)
	}
	if f.page < 0 || f.pageSize < 0 {
		return query.Descriptor{}, fmt.Errorf("%w: page and page size must be positive", query.ErrInvalidArgument)
	}
	d = d.WithPage(f.page)
	d.PageSize = f.pageSize
	return d, nil
}

func parseBound(flag, field, raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s %s=%q is not a number", query.ErrInvalidArgument, flag, field, raw)
	}
	return v, nil
}
