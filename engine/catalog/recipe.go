package catalog

import (
	"context"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

type Recipe struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"         validate:"required"`
	Ingredients  []string `json:"ingredients"  validate:"required,min=1,dive,required"`
	Instructions string   `json:"instructions"`
	Tags         []string `json:"tags"`
}

// RecipeSchema searches names and ingredients; a recipe matches when any
// ingredient contains the term.
func RecipeSchema() *query.Schema[Recipe] {
	return query.MustSchema(func(r Recipe) string { return r.ID },
		query.StringField("name", query.RoleSearch|query.RoleSort, func(r Recipe) string { return r.Name }),
		query.StringsField("ingredients", query.RoleSearch, func(r Recipe) []string { return r.Ingredients }),
		query.StringsField("tag", query.RoleFilter, func(r Recipe) []string { return r.Tags }),
	)
}

func SeedRecipes(time.Time) []Recipe {
	return []Recipe{
		{
			ID:           seedID("recipes", 1),
			Name:         "Chicken Fried Rice",
			Ingredients:  []string{"chicken", "rice", "soy sauce", "eggs", "vegetables"},
			Instructions: "Stir-fry chicken, add rice, veggies, and season with soy sauce. Mix in scrambled eggs.",
			Tags:         []string{"Quick", "Savory"},
		},
		{
			ID:           seedID("recipes", 2),
			Name:         "Vegetable Stir-Fry",
			Ingredients:  []string{"vegetables", "soy sauce", "garlic", "oil"},
			Instructions: "Stir-fry vegetables in oil with garlic. Add soy sauce for seasoning.",
			Tags:         []string{"Healthy", "Quick"},
		},
		{
			ID:           seedID("recipes", 3),
			Name:         "Chicken Wrap",
			Ingredients:  []string{"chicken", "tortilla", "lettuce", "mayo"},
			Instructions: "Grill chicken, spread mayo on tortilla, add lettuce and sliced chicken.",
			Tags:         []string{"Easy", "Portable"},
		},
	}
}

const (
	RecipeSlot       = "recipes"
	SavedRecipesSlot = "savedRecipes"
)

var recipeKind = Kind{
	Name:    "recipes",
	Slot:    RecipeSlot,
	Columns: []string{"id", "name", "ingredients", "tags"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Recipe]{
			kind:     "recipes",
			slot:     RecipeSlot,
			position: collection.Append,
			schema:   func(Deps) *query.Schema[Recipe] { return RecipeSchema() },
			seed:     SeedRecipes,
			prepare: func(r *Recipe, _ collection.Collection[Recipe], _ time.Time) {
				if r.ID == "" {
					r.ID = NewID()
				}
			},
		}, Validator())
	},
}
