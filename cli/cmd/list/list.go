package list

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/remote"
	"github.com/compozy/listview/pkg/logger"
)

const remoteKind = "products"

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var flags descriptorFlags
	c := &cobra.Command{
		Use:   "list <kind>",
		Short: "Show a filtered, sorted page of a list",
		Long: `Show one page of a list. Filters, ranges, search and sort are applied
in that order; unset options fall back to the list defaults.

Examples:
  listview list vendors --filter type=tacos --sort name
  listview list restrooms --min cleanliness=4 --sort cleanliness --dir desc
  listview list recipes -q chicken --page 2
  listview list pets --favorites --filter age=year`,
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, c *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					return showList(ctx, e, args[0], &flags, 0)
				}, args)
		},
	}
	flags.register(c)
	return c
}

// NewFetchCommand creates the fetch command for the remote catalog
func NewFetchCommand() *cobra.Command {
	var (
		flags descriptorFlags
		pages int
	)
	c := &cobra.Command{
		Use:   "fetch",
		Short: "Load pages of the remote product catalog",
		Long: `Fetch the first page of the remote catalog plus --pages - 1 more, then
show the accumulated records through the view flags.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					if pages < 1 {
						return fmt.Errorf("--pages must be at least 1")
					}
					return showList(ctx, e, remoteKind, &flags, pages-1)
				}, args)
		},
	}
	flags.register(c)
	c.Flags().IntVar(&pages, "pages", 1, "Number of catalog pages to load")
	return c
}

// showList opens kind, loads extra remote pages and prints the view.
func showList(ctx context.Context, e *cmd.CommandExecutor, kind string, flags *descriptorFlags, extraPages int) error {
	log := logger.FromContext(ctx)
	desc, err := flags.descriptor()
	if err != nil {
		return err
	}
	if flags.favorites {
		slotName, err := catalog.FavoritesSlotFor(kind)
		if err != nil {
			return err
		}
		favs, err := catalog.OpenFavorites(ctx, e.Slots(), slotName)
		if err != nil {
			return err
		}
		desc = desc.WithIDs(favs.List())
	}
	k, l, openErr := e.OpenList(ctx, kind)
	if l == nil {
		return openErr
	}
	defer l.Close()
	fetchErr := openErr
	if l.Remote() {
		for i := 0; i < extraPages && fetchErr == nil; i++ {
			view, err := l.LoadMore(ctx)
			if err != nil {
				fetchErr = err
				break
			}
			if !view.HasNextPage {
				log.Debug("Remote catalog exhausted", "pages", i+2)
				break
			}
		}
	}
	view, err := l.Render(desc)
	if err != nil {
		return err
	}
	if err := e.Output().WriteView(k.Columns, view); err != nil {
		return err
	}
	if fetchErr != nil && errors.Is(fetchErr, remote.ErrFetch) {
		log.Warn("Remote catalog fetch failed", "error", fetchErr)
	}
	return fetchErr
}

// NewKindsCommand creates the kinds command
func NewKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the available list kinds",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{},
				func(_ context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					kinds := catalog.Kinds()
					type kindInfo struct {
						Name    string   `json:"name"`
						Remote  bool     `json:"remote"`
						Slot    string   `json:"slot,omitempty"`
						Columns []string `json:"columns"`
					}
					infos := make([]kindInfo, 0, len(kinds))
					rows := make([][]string, 0, len(kinds))
					for _, k := range kinds {
						infos = append(infos, kindInfo{Name: k.Name, Remote: k.Remote, Slot: k.Slot, Columns: k.Columns})
						source := k.Slot
						if k.Remote {
							source = "remote"
						}
						rows = append(rows, []string{k.Name, source, strings.Join(k.Columns, ", ")})
					}
					return e.Output().WriteData(infos, func(io.Writer) error {
						return e.Output().WriteTable([]string{"kind", "source", "columns"}, rows)
					})
				}, args)
		},
	}
}

// NewOptionsCommand creates the options command
func NewOptionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "options <kind> <field>",
		Short: "Show the distinct values of a field, for building filters",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					_, l, err := e.OpenList(ctx, args[0])
					if l == nil {
						return err
					}
					defer l.Close()
					values, err := l.Options(args[1])
					if err != nil {
						return err
					}
					return e.Output().WriteData(map[string]any{"field": args[1], "values": values}, func(w io.Writer) error {
						for _, v := range values {
							if _, err := fmt.Fprintln(w, v); err != nil {
								return err
							}
						}
						return nil
					})
				}, args)
		},
	}
}
