package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

// Restroom is a crowd-sourced public restroom entry. Ratings run 1 to 5.
type Restroom struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"          validate:"required"`
	Location      string    `json:"location"      validate:"required"`
	Cleanliness   int       `json:"cleanliness"   validate:"min=1,max=5"`
	Accessibility int       `json:"accessibility" validate:"min=1,max=5"`
	Notes         string    `json:"notes,omitempty"`
	Lat           float64   `json:"lat"           validate:"min=-90,max=90"`
	Lng           float64   `json:"lng"           validate:"min=-180,max=180"`
	Reviews       []string  `json:"reviews"`
	AddedBy       string    `json:"addedBy"`
	DateAdded     time.Time `json:"dateAdded"`
}

func RestroomSchema() *query.Schema[Restroom] {
	return query.MustSchema(func(r Restroom) string { return r.ID },
		query.NumberField("cleanliness", query.RoleRange|query.RoleSort, func(r Restroom) float64 {
			return float64(r.Cleanliness)
		}),
		query.NumberField("accessibility", query.RoleRange|query.RoleSort, func(r Restroom) float64 {
			return float64(r.Accessibility)
		}),
		query.StringField("name", query.RoleSearch, func(r Restroom) string { return r.Name }),
		query.StringField("location", query.RoleSearch, func(r Restroom) string { return r.Location }),
		query.TimeField("dateAdded", query.RoleSort, func(r Restroom) time.Time { return r.DateAdded }),
	)
}

// AddReview appends text to the reviews of restroom id in l and returns the
// refreshed view. Blank reviews are rejected; other kinds take no reviews.
func AddReview(ctx context.Context, l List, id, text string) (View, error) {
	b, ok := l.(*binding[Restroom])
	if !ok {
		return View{}, fmt.Errorf("%w: %s does not take reviews", query.ErrInvalidArgument, l.Kind())
	}
	r, ok := b.ctrl.Records().Find(id)
	if !ok {
		return b.Snapshot(), fmt.Errorf("%w: %s", collection.ErrNotFound, id)
	}
	patch, err := reviewPatch(r, text)
	if err != nil {
		return b.Snapshot(), err
	}
	return b.Update(ctx, id, patch)
}

func reviewPatch(r Restroom, text string) (collection.Patch, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: review text is required", collection.ErrInvalidRecord)
	}
	return collection.Patch{"reviews": append(slices.Clone(r.Reviews), text)}, nil
}

func SeedRestrooms(now time.Time) []Restroom {
	return []Restroom{
		{
			ID:            seedID("restrooms", 1),
			Name:          "City Center Mall",
			Location:      "Main Atrium, Level 2",
			Cleanliness:   4,
			Accessibility: 3,
			Notes:         "Clean and well-maintained, baby changing facilities available",
			Lat:           51.5074,
			Lng:           -0.1278,
			Reviews:       []string{},
			AddedBy:       "Anonymous",
			DateAdded:     now,
		},
		{
			ID:            seedID("restrooms", 2),
			Name:          "Central Park West",
			Location:      "Near playground area",
			Cleanliness:   2,
			Accessibility: 4,
			Notes:         "Portable toilet, hand sanitizer provided",
			Lat:           40.7851,
			Lng:           -73.9683,
			Reviews:       []string{"Needs more frequent cleaning"},
			AddedBy:       "Anonymous",
			DateAdded:     now,
		},
	}
}

const RestroomSlot = "restrooms"

var restroomKind = Kind{
	Name:    "restrooms",
	Slot:    RestroomSlot,
	Columns: []string{"id", "name", "location", "cleanliness", "accessibility"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Restroom]{
			kind:     "restrooms",
			slot:     RestroomSlot,
			position: collection.Append,
			defaults: query.Descriptor{SortKey: "cleanliness", SortDirection: query.Desc},
			schema:   func(Deps) *query.Schema[Restroom] { return RestroomSchema() },
			seed:     SeedRestrooms,
			prepare: func(r *Restroom, _ collection.Collection[Restroom], now time.Time) {
				if r.ID == "" {
					r.ID = NewID()
				}
				if r.AddedBy == "" {
					r.AddedBy = "Anonymous"
				}
				if r.Reviews == nil {
					r.Reviews = []string{}
				}
				r.DateAdded = now
			},
		}, Validator())
	},
}
