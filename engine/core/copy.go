package core

import (
	"fmt"

	"github.com/mohae/deepcopy"
)

// DeepCopy returns a deep copy of v. Unexported fields are not copied, so
// record types handed to the engines should keep their state exported.
func DeepCopy[T any](v T) (T, error) {
	var zero T
	copied := deepcopy.Copy(v)
	if copied == nil {
		return zero, nil
	}
	result, ok := copied.(T)
	if !ok {
		return zero, fmt.Errorf("failed to cast copied value to type %T", zero)
	}
	return result, nil
}

// CloneSlice deep-copies every element of in.
func CloneSlice[T any](in []T) ([]T, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]T, len(in))
	for i := range in {
		c, err := DeepCopy(in[i])
		if err != nil {
			return nil, fmt.Errorf("copy element %d: %w", i, err)
		}
		out[i] = c
	}
	return out, nil
}
