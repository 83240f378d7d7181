package catalog

import (
	"context"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

// Listing is a community swap offer.
type Listing struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"       validate:"required"`
	Description string    `json:"description"`
	Offer       string    `json:"offer"`
	Category    string    `json:"category"    validate:"required"`
	Condition   string    `json:"condition"   validate:"required,oneof=new used"`
	PostedAt    time.Time `json:"postedAt"`
}

func ListingSchema() *query.Schema[Listing] {
	return query.MustSchema(func(l Listing) string { return l.ID },
		query.StringField("category", query.RoleFilter, func(l Listing) string { return l.Category }),
		query.StringField("condition", query.RoleFilter, func(l Listing) string { return l.Condition }),
		query.StringField("title", query.RoleSearch, func(l Listing) string { return l.Title }),
		query.StringField("description", query.RoleSearch, func(l Listing) string { return l.Description }),
		query.TimeField("postedAt", query.RoleSort, func(l Listing) time.Time { return l.PostedAt }),
	)
}

func SeedListings(now time.Time) []Listing {
	return []Listing{
		{
			ID:          seedID("listings", 1),
			Title:       "Vintage Guitar",
			Description: "Well-maintained acoustic guitar",
			Offer:       "Looking for wooden bookshelf",
			Category:    "music",
			Condition:   "used",
			PostedAt:    now,
		},
		{
			ID:          seedID("listings", 2),
			Title:       "Designer Dress",
			Description: "Size M, never worn",
			Offer:       "Want hiking gear or kitchen appliances",
			Category:    "clothing",
			Condition:   "new",
			PostedAt:    now.Add(-time.Hour),
		},
	}
}

const ListingSlot = "swapListings"

var listingKind = Kind{
	Name:    "listings",
	Slot:    ListingSlot,
	Columns: []string{"id", "title", "category", "condition", "postedAt"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Listing]{
			kind:     "listings",
			slot:     ListingSlot,
			position: collection.Prepend,
			schema:   func(Deps) *query.Schema[Listing] { return ListingSchema() },
			seed:     SeedListings,
			prepare: func(l *Listing, _ collection.Collection[Listing], now time.Time) {
				if l.ID == "" {
					l.ID = NewID()
				}
				if l.Category == "" {
					l.Category = "other"
				}
				if l.Condition == "" {
					l.Condition = "used"
				}
				l.PostedAt = now
			},
		}, Validator())
	},
}
