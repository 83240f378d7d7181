package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

type Pet struct {
	ID          int    `json:"id"          validate:"min=1"`
	Name        string `json:"name"        validate:"required"`
	Type        string `json:"type"        validate:"required"`
	Breed       string `json:"breed"`
	Age         string `json:"age"`
	Location    string `json:"location"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Gender      string `json:"gender"      validate:"omitempty,oneof=Male Female"`
	Size        string `json:"size"        validate:"omitempty,oneof=Small Medium Large"`
	Vaccinated  bool   `json:"vaccinated"`
}

func PetSchema() *query.Schema[Pet] {
	return query.MustSchema(func(p Pet) string { return strconv.Itoa(p.ID) },
		query.StringField("type", query.RoleFilter, func(p Pet) string { return p.Type }),
		query.StringField("gender", query.RoleFilter, func(p Pet) string { return p.Gender }),
		query.StringField("size", query.RoleFilter, func(p Pet) string { return p.Size }),
		query.ContainsField("age", query.RoleFilter, func(p Pet) string { return p.Age }),
		query.StringField("name", query.RoleSearch|query.RoleSort, func(p Pet) string { return p.Name }),
		query.StringField("breed", query.RoleSearch, func(p Pet) string { return p.Breed }),
	)
}

func SeedPets(time.Time) []Pet {
	return []Pet{
		{
			ID:          1,
			Name:        "Buddy",
			Type:        "dog",
			Breed:       "Golden Retriever",
			Age:         "2 years",
			Location:    "New York, NY",
			Description: "Friendly and energetic golden retriever loves playing fetch",
			Gender:      "Male",
			Size:        "Large",
			Vaccinated:  true,
		},
		{
			ID:          2,
			Name:        "Whiskers",
			Type:        "cat",
			Breed:       "Siamese",
			Age:         "6 months",
			Location:    "Los Angeles, CA",
			Description: "Playful kitten looking for a loving home",
			Gender:      "Female",
			Size:        "Small",
		},
		{
			ID:          3,
			Name:        "Max",
			Type:        "dog",
			Breed:       "Labrador",
			Age:         "1 year",
			Location:    "Chicago, IL",
			Description: "Loyal companion who loves water and treats",
			Gender:      "Male",
			Size:        "Medium",
			Vaccinated:  true,
		},
	}
}

const (
	PetSlot          = "pets"
	PetFavoritesSlot = "petFavorites"
)

var petKind = Kind{
	Name:    "pets",
	Slot:    PetSlot,
	Columns: []string{"id", "name", "type", "breed", "gender", "size"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Pet]{
			kind:     "pets",
			slot:     PetSlot,
			position: collection.Append,
			schema:   func(Deps) *query.Schema[Pet] { return PetSchema() },
			seed:     SeedPets,
			prepare: func(p *Pet, existing collection.Collection[Pet], _ time.Time) {
				if p.ID != 0 {
					return
				}
				for _, other := range existing.View() {
					p.ID = max(p.ID, other.ID)
				}
				p.ID++
			},
		}, Validator())
	},
}
