package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/logger"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

const ThemeSlot = "theme"

var ErrInvalidTheme = errors.New("theme must be light or dark")

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(s); t {
	case ThemeLight, ThemeDark:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ThemeStore keeps the light/dark preference in its own slot.
type ThemeStore struct {
	slots slot.Store
}

func NewThemeStore(slots slot.Store) *ThemeStore {
	return &ThemeStore{slots: slots}
}

// Get returns the saved theme, or light when nothing usable is stored.
func (s *ThemeStore) Get(ctx context.Context) Theme {
	log := logger.FromContext(ctx)
	raw, err := s.slots.Get(ctx, ThemeSlot)
	if err != nil {
		if !errors.Is(err, slot.ErrNotFound) {
			log.Warn("Failed to read theme; using light", "error", err)
		}
		return ThemeLight
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		// older writers stored the bare word
		name = string(raw)
	}
	t, err := ParseTheme(name)
	if err != nil {
		log.Warn("Ignoring stored theme", "error", err)
		return ThemeLight
	}
	return t
}

func (s *ThemeStore) Set(ctx context.Context, t Theme) error {
	if _, err := ParseTheme(string(t)); err != nil {
		return err
	}
	raw, err := json.Marshal(string(t))
	if err != nil {
		return err
	}
	if err := s.slots.Set(ctx, ThemeSlot, raw); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}
	return nil
}

// Toggle flips the saved theme. The new theme is returned even when saving
// it failed.
func (s *ThemeStore) Toggle(ctx context.Context) (Theme, error) {
	next := s.Get(ctx).Toggle()
	return next, s.Set(ctx, next)
}
