package router

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/compozy/listview/engine/query"
)

// Query parameters understood by list endpoints. ParamFavorites limits a
// view to the kind's favorites set.
const (
	ParamSearch    = "q"
	ParamSort      = "sort"
	ParamDir       = "dir"
	ParamPage      = "page"
	ParamPageSize  = "page_size"
	ParamFavorites = "favorites"

	prefixFilter = "filter."
	prefixMin    = "min."
	prefixMax    = "max."
)

// ParseDescriptor reads a list descriptor from query parameters:
// filter.<field>, min.<field>, max.<field>, q, sort, dir, page and page_size.
// Omitted parameters stay zero so the list defaults fill them in.
func ParseDescriptor(values url.Values) (query.Descriptor, error) {
	var d query.Descriptor
	ranges := make(map[string]query.Range)
	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := strings.TrimSpace(vals[len(vals)-1])
		switch {
		case strings.HasPrefix(key, prefixFilter):
			d = d.WithFilter(strings.TrimPrefix(key, prefixFilter), raw)
		case strings.HasPrefix(key, prefixMin), strings.HasPrefix(key, prefixMax):
			if raw == "" {
				continue
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return query.Descriptor{}, fmt.Errorf("%w: %s must be a number", query.ErrInvalidArgument, key)
			}
			if field, ok := strings.CutPrefix(key, prefixMin); ok {
				r := ranges[field]
				r.Min = &v
				ranges[field] = r
			} else {
				field := strings.TrimPrefix(key, prefixMax)
				r := ranges[field]
				r.Max = &v
				ranges[field] = r
			}
		}
	}
	for field, r := range ranges {
		d = d.WithRange(field, r)
	}
	d = d.WithSearch(values.Get(ParamSearch))
	if key := values.Get(ParamSort); key != "" {
		dir := query.Direction(strings.ToLower(values.Get(ParamDir)))
		if dir == "" {
			dir = query.Asc
		}
		d = d.WithSort(key, dir)
	}
	page, err := intParam(values, ParamPage)
	if err != nil {
		return query.Descriptor{}, err
	}
	size, err := intParam(values, ParamPageSize)
	if err != nil {
		return query.Descriptor{}, err
	}
	d = d.WithPage(page)
	d.PageSize = size
	return d, nil
}

// ParseFavoritesOnly reads the favorites flag. An absent flag is false.
func ParseFavoritesOnly(values url.Values) (bool, error) {
	raw := strings.TrimSpace(values.Get(ParamFavorites))
	if raw == "" {
		return false, nil
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", query.ErrInvalidArgument, ParamFavorites)
	}
	return on, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", query.ErrInvalidArgument, name)
	}
	return n, nil
}
