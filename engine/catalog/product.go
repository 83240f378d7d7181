package catalog

import (
	"context"
	"strconv"

	"github.com/compozy/listview/engine/query"
)

// Product is one entry of the remote product catalog.
type Product struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Category           string   `json:"category"`
	Price              float64  `json:"price"`
	DiscountPercentage float64  `json:"discountPercentage,omitempty"`
	Rating             float64  `json:"rating"`
	Stock              int      `json:"stock,omitempty"`
	Brand              string   `json:"brand,omitempty"`
	Thumbnail          string   `json:"thumbnail,omitempty"`
	Tags               []string `json:"tags,omitempty"`
}

func ProductSchema() *query.Schema[Product] {
	return query.MustSchema(func(p Product) string { return strconv.Itoa(p.ID) },
		query.StringField("category", query.RoleFilter, func(p Product) string { return p.Category }),
		query.StringField("title", query.RoleSearch|query.RoleSort, func(p Product) string { return p.Title }),
		query.NumberField("price", query.RoleSort|query.RoleRange, func(p Product) float64 { return p.Price }),
		query.NumberField("rating", query.RoleSort|query.RoleRange, func(p Product) float64 { return p.Rating }),
	)
}

var productKind = Kind{
	Name:    "products",
	Remote:  true,
	Columns: []string{"id", "title", "category", "price", "rating"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openRemote(ctx, deps, remoteDef[Product]{
			kind:   "products",
			schema: func(Deps) *query.Schema[Product] { return ProductSchema() },
		})
	},
}
