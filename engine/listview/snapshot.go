package listview

import (
	"errors"

	"github.com/compozy/listview/engine/query"
)

var ErrUnmounted = errors.New("list view is unmounted")

type Status string

const (
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusEmpty   Status = "empty"
	StatusError   Status = "error"
)

const (
	MessageEmpty = "No records match your filters"
	MessageError = "Failed to load data, try again"
)

// Snapshot is an immutable picture of the list handed to renderers and
// subscribers. Revision increases with every published change.
type Snapshot[T any] struct {
	View       query.ViewResult[T] `json:"view"`
	Descriptor query.Descriptor    `json:"descriptor"`
	Status     Status              `json:"status"`
	FetchErr   error               `json:"-"`
	SaveErr    error               `json:"-"`
	Revision   uint64              `json:"revision"`
}

// Message is the user-facing line for the empty and error states.
func (s Snapshot[T]) Message() string {
	switch s.Status {
	case StatusError:
		return MessageError
	case StatusEmpty:
		return MessageEmpty
	default:
		return ""
	}
}
