package query

import "math"

// DistinctValues lists the non-empty values of a string field in
// first-occurrence order. Used to populate filter choices.
func DistinctValues[T any](s *Schema[T], records []T, field string) ([]string, error) {
	f, ok := s.Field(field)
	if !ok {
		return nil, invalidf("unknown field %q", field)
	}
	if f.Kind != KindString {
		return nil, invalidf("field %q is not a string field", field)
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, rec := range records {
		for _, v := range f.Strings(rec) {
			if v == "" {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out, nil
}

// NumericBounds returns the smallest and largest value of a number field.
// ok is false for an empty collection.
func NumericBounds[T any](s *Schema[T], records []T, field string) (lo, hi float64, ok bool, err error) {
	f, found := s.Field(field)
	if !found {
		return 0, 0, false, invalidf("unknown field %q", field)
	}
	if f.Kind != KindNumber {
		return 0, 0, false, invalidf("field %q is not a number field", field)
	}
	if len(records) == 0 {
		return 0, 0, false, nil
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, rec := range records {
		v := f.Number(rec)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true, nil
}
