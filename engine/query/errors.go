package query

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument marks a malformed descriptor or field reference.
var ErrInvalidArgument = errors.New("invalid argument")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
