package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

// Player is a leaderboard entry. Its id doubles as its rank.
type Player struct {
	ID              int      `json:"id"              validate:"min=1"`
	Name            string   `json:"name"            validate:"required"`
	Points          int      `json:"points"          validate:"min=0"`
	Avatar          string   `json:"avatar,omitempty"`
	Country         string   `json:"country"         validate:"required,len=2"`
	Achievements    []string `json:"achievements"`
	ProgressHistory []int    `json:"progressHistory"`
}

func PlayerSchema() *query.Schema[Player] {
	return query.MustSchema(func(p Player) string { return strconv.Itoa(p.ID) },
		query.StringField("country", query.RoleFilter, func(p Player) string { return p.Country }),
		query.StringField("name", query.RoleSearch|query.RoleSort, func(p Player) string { return p.Name }),
		query.NumberField("rank", query.RoleSort, func(p Player) float64 { return float64(p.ID) }),
		query.NumberField("points", query.RoleSort|query.RoleRange, func(p Player) float64 { return float64(p.Points) }),
	)
}

func SeedPlayers(time.Time) []Player {
	return []Player{
		{
			ID:              1,
			Name:            "Rahul Sharma",
			Points:          4500,
			Avatar:          "https://api.dicebear.com/7.x/avataaars/svg?seed=Fluffy",
			Country:         "IN",
			Achievements:    []string{"First Place", "Fast Riser"},
			ProgressHistory: []int{2000, 3200, 4500},
		},
		{
			ID:              2,
			Name:            "Priya Singh",
			Points:          4200,
			Avatar:          "https://api.dicebear.com/7.x/avataaars/svg?seed=Whiskers",
			Country:         "US",
			Achievements:    []string{"Silver Medal"},
			ProgressHistory: []int{3000, 3800, 4200},
		},
		{
			ID:              3,
			Name:            "Amit Patel",
			Points:          3900,
			Avatar:          "https://api.dicebear.com/7.x/avataaars/svg?seed=Simba",
			Country:         "GB",
			Achievements:    []string{"Most Improved"},
			ProgressHistory: []int{2500, 3200, 3900},
		},
	}
}

// nextRank is one past the highest id in c.
func nextRank(c collection.Collection[Player]) int {
	highest := 0
	for _, p := range c.View() {
		highest = max(highest, p.ID)
	}
	return highest + 1
}

const PlayerSlot = "leaderboard"

var playerKind = Kind{
	Name:    "players",
	Slot:    PlayerSlot,
	Columns: []string{"id", "name", "country", "points"},
	open: func(ctx context.Context, deps Deps) (List, error) {
		return openLocal(ctx, deps, localDef[Player]{
			kind:     "players",
			slot:     PlayerSlot,
			position: collection.Append,
			defaults: query.Descriptor{SortKey: "rank", SortDirection: query.Asc},
			schema:   func(Deps) *query.Schema[Player] { return PlayerSchema() },
			seed:     SeedPlayers,
			prepare: func(p *Player, existing collection.Collection[Player], _ time.Time) {
				if p.ID == 0 {
					p.ID = nextRank(existing)
				}
			},
		}, Validator())
	},
}
