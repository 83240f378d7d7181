package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
	"github.com/compozy/listview/engine/slot"
)

// ErrUnknownFavorites reports a favorites set name with no slot.
var ErrUnknownFavorites = fmt.Errorf("%w: no such favorites set", ErrUnknownKind)

var favoriteSets = map[string]string{
	"pets":    PetFavoritesSlot,
	"recipes": SavedRecipesSlot,
}

// FavoriteSets names the favorites sets, sorted.
func FavoriteSets() []string {
	out := make([]string, 0, len(favoriteSets))
	for name := range favoriteSets {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// FavoriteSlot resolves a favorites set name to its slot.
func FavoriteSlot(name string) (string, error) {
	slotName, ok := favoriteSets[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownFavorites, name)
	}
	return slotName, nil
}

// FavoritesSlotFor resolves the favorites set of a list kind, for views
// limited to favorite records. Kinds without a set are invalid input.
func FavoritesSlotFor(kind string) (string, error) {
	slotName, ok := favoriteSets[kind]
	if !ok {
		return "", fmt.Errorf("%w: %s has no favorites set", query.ErrInvalidArgument, kind)
	}
	return slotName, nil
}

// Favorites is a persisted set of record ids, kept in insertion order.
type Favorites struct {
	store    *collection.Store[string]
	slotName string

	mu  sync.Mutex
	ids collection.Collection[string]
}

func OpenFavorites(ctx context.Context, slots slot.Store, slotName string) (*Favorites, error) {
	store, err := collection.New(slots, func(id string) string { return id })
	if err != nil {
		return nil, err
	}
	return &Favorites{
		store:    store,
		slotName: slotName,
		ids:      store.Load(ctx, slotName, nil),
	}, nil
}

// Toggle adds id when absent and removes it otherwise. The returned error is
// a non-fatal *collection.PersistenceError; the set changes regardless.
func (f *Favorites) Toggle(ctx context.Context, id string) (added bool, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var m collection.Mutation[string]
	if f.ids.Contains(id) {
		m, err = f.store.Delete(ctx, f.slotName, f.ids, id)
	} else {
		added = true
		m, err = f.store.Create(ctx, f.slotName, f.ids, id)
	}
	if err != nil {
		return false, err
	}
	f.ids = m.Collection
	return added, m.SaveErr
}

func (f *Favorites) Contains(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids.Contains(id)
}

func (f *Favorites) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ids.Items()
}
