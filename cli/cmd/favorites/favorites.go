package favorites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
)

type favoritesOutput struct {
	Set       string   `json:"set"`
	IDs       []string `json:"ids"`
	ID        string   `json:"id,omitempty"`
	Favorite  *bool    `json:"favorite,omitempty"`
	SaveError string   `json:"save_error,omitempty"`
}

// NewFavoritesCommand creates the favorites command
func NewFavoritesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "favorites <set> [id]",
		Short: "Show a favorites set, or toggle one id in it",
		Long: fmt.Sprintf(`Show the ids saved in a favorites set. With an id, add it when absent
and remove it otherwise.

Sets: %s`, strings.Join(catalog.FavoriteSets(), ", ")),
		Args: cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					slotName, err := catalog.FavoriteSlot(args[0])
					if err != nil {
						return err
					}
					favs, err := catalog.OpenFavorites(ctx, e.Slots(), slotName)
					if err != nil {
						return err
					}
					out := favoritesOutput{Set: args[0]}
					if len(args) == 2 {
						out.ID = args[1]
						added, err := favs.Toggle(ctx, args[1])
						var saveErr *collection.PersistenceError
						switch {
						case errors.As(err, &saveErr):
							out.SaveError = err.Error()
						case err != nil:
							return err
						}
						out.Favorite = &added
					}
					out.IDs = favs.List()
					if out.IDs == nil {
						out.IDs = []string{}
					}
					return e.Output().WriteData(out, func(w io.Writer) error {
						return writeFavorites(w, out)
					})
				}, args)
		},
	}
}

func writeFavorites(w io.Writer, out favoritesOutput) error {
	if out.Favorite != nil {
		verb := "removed from"
		if *out.Favorite {
			verb = "added to"
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", out.ID, verb, out.Set); err != nil {
			return err
		}
	}
	if len(out.IDs) == 0 {
		_, err := fmt.Fprintln(w, "No favorites yet")
		return err
	}
	for _, id := range out.IDs {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	if out.SaveError != "" {
		_, err := fmt.Fprintln(w, "Changes were not saved: "+out.SaveError)
		return err
	}
	return nil
}
