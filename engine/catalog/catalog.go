package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/listview"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/config"
)

var ErrUnknownKind = errors.New("unknown list kind")

// seedNamespace scopes the name-based ids of seeded records.
var seedNamespace = uuid.MustParse("6f1c2d3e-8a4b-5c6d-9e0f-1a2b3c4d5e6f")

// NewID returns a fresh record id.
func NewID() string {
	return uuid.NewString()
}

// seedID derives the stable id of the n-th seeded record of kind.
func seedID(kind string, n int) string {
	return uuid.NewSHA1(seedNamespace, fmt.Appendf(nil, "%s/%d", kind, n)).String()
}

// Deps are the shared resources a list kind is opened with.
type Deps struct {
	Slots    slot.Store
	Remote   remote.Options
	Limit    int
	PageSize int
	MemoSize int
	Locale   language.Tag
	Clock    func() time.Time
}

func DepsFromConfig(cfg *config.Config, slots slot.Store) Deps {
	locale, err := language.Parse(cfg.List.Locale)
	if err != nil {
		locale = language.English
	}
	return Deps{
		Slots:    slots,
		Remote:   remote.OptionsFromConfig(&cfg.Remote),
		Limit:    cfg.Remote.Limit,
		PageSize: cfg.List.PageSize,
		MemoSize: cfg.List.MemoSize,
		Locale:   locale,
		Clock:    time.Now,
	}
}

func (d Deps) now() time.Time {
	if d.Clock == nil {
		return time.Now()
	}
	return d.Clock()
}

// Kind describes one list the CLI and HTTP surface can open by name.
type Kind struct {
	Name    string
	Slot    string
	Remote  bool
	Columns []string
	open    func(ctx context.Context, deps Deps) (List, error)
}

// Open builds and mounts the list. A remote list whose first fetch failed is
// still returned, in the error state, together with the fetch error.
func (k Kind) Open(ctx context.Context, deps Deps) (List, error) {
	return k.open(ctx, deps)
}

var kinds = []Kind{
	productKind,
	vendorKind,
	restroomKind,
	listingKind,
	playerKind,
	petKind,
	recipeKind,
}

// Kinds lists every registered kind by name.
func Kinds() []Kind {
	out := slices.Clone(kinds)
	slices.SortFunc(out, func(a, b Kind) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func Lookup(name string) (Kind, error) {
	for _, k := range kinds {
		if k.Name == name {
			return k, nil
		}
	}
	return Kind{}, fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// FieldInfo describes a queryable field for clients building filter UIs.
type FieldInfo struct {
	Name  string   `json:"name"`
	Kind  string   `json:"kind"`
	Roles []string `json:"roles"`
}

func fieldInfo[T any](s *query.Schema[T]) []FieldInfo {
	fields := s.Fields()
	out := make([]FieldInfo, 0, len(fields))
	for _, f := range fields {
		info := FieldInfo{Name: f.Name, Kind: f.Kind.String()}
		for _, r := range []struct {
			role query.Role
			name string
		}{
			{query.RoleFilter, "filter"},
			{query.RoleSearch, "search"},
			{query.RoleSort, "sort"},
			{query.RoleRange, "range"},
		} {
			if f.Has(r.role) {
				info.Roles = append(info.Roles, r.name)
			}
		}
		out = append(out, info)
	}
	return out
}

// View is a list snapshot with the record type erased.
type View struct {
	Records         any              `json:"records"`
	TotalMatching   int              `json:"total_matching"`
	TotalPages      int              `json:"total_pages"`
	Page            int              `json:"page"`
	PageSize        int              `json:"page_size"`
	HasNextPage     bool             `json:"has_next_page"`
	HasPreviousPage bool             `json:"has_previous_page"`
	Descriptor      query.Descriptor `json:"descriptor"`
	Status          listview.Status  `json:"status"`
	Message         string           `json:"message,omitempty"`
	FetchError      string           `json:"fetch_error,omitempty"`
	SaveError       string           `json:"save_error,omitempty"`
	Revision        uint64           `json:"revision"`
}

func viewOf[T any](s listview.Snapshot[T]) View {
	v := View{
		Records:         s.View.Records,
		TotalMatching:   s.View.TotalMatching,
		TotalPages:      s.View.TotalPages,
		Page:            s.View.Page,
		PageSize:        s.View.PageSize,
		HasNextPage:     s.View.HasNextPage,
		HasPreviousPage: s.View.HasPreviousPage,
		Descriptor:      s.Descriptor,
		Status:          s.Status,
		Message:         s.Message(),
		Revision:        s.Revision,
	}
	if s.View.Records == nil {
		v.Records = []T{}
	}
	if s.FetchErr != nil {
		v.FetchError = s.FetchErr.Error()
	}
	if s.SaveErr != nil {
		v.SaveError = s.SaveErr.Error()
	}
	return v
}

// List is an opened list of any kind.
type List interface {
	Kind() string
	Remote() bool
	Fields() []FieldInfo
	Snapshot() View
	Render(d query.Descriptor) (View, error)
	Create(ctx context.Context, raw []byte) (View, error)
	Update(ctx context.Context, id string, patch collection.Patch) (View, error)
	Delete(ctx context.Context, id string) (View, error)
	LoadMore(ctx context.Context) (View, error)
	Options(field string) ([]string, error)
	Bounds(field string) (lo, hi float64, ok bool, err error)
	Close()
}
