package theme

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/pkg/logger"
)

type themeOutput struct {
	Theme     catalog.Theme `json:"theme"`
	SaveError string        `json:"save_error,omitempty"`
}

// NewThemeCommand creates the theme command and its subcommands
func NewThemeCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "theme",
		Short: "Show or change the light/dark preference",
		Args:  cobra.NoArgs,
		RunE:  runTheme(func(ctx context.Context, s *catalog.ThemeStore, _ []string) (catalog.Theme, error) {
			return s.Get(ctx), nil
		}),
	}
	c.AddCommand(
		&cobra.Command{
			Use:       "set <light|dark>",
			Short:     "Save a theme",
			Args:      cobra.ExactArgs(1),
			ValidArgs: []string{string(catalog.ThemeLight), string(catalog.ThemeDark)},
			RunE: runTheme(func(ctx context.Context, s *catalog.ThemeStore, args []string) (catalog.Theme, error) {
				t, err := catalog.ParseTheme(args[0])
				if err != nil {
					return "", err
				}
				return t, s.Set(ctx, t)
			}),
		},
		&cobra.Command{
			Use:   "toggle",
			Short: "Switch between light and dark",
			Args:  cobra.NoArgs,
			RunE: runTheme(func(ctx context.Context, s *catalog.ThemeStore, _ []string) (catalog.Theme, error) {
				return s.Toggle(ctx)
			}),
		},
	)
	return c
}

type themeAction func(ctx context.Context, s *catalog.ThemeStore, args []string) (catalog.Theme, error)

// runTheme reports a failed save next to the theme in effect instead of
// failing the command, unless no theme could be determined.
func runTheme(action themeAction) func(*cobra.Command, []string) error {
	return func(c *cobra.Command, args []string) error {
		return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
			func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
				t, err := action(ctx, catalog.NewThemeStore(e.Slots()), args)
				if t == "" {
					return err
				}
				out := themeOutput{Theme: t}
				if err != nil {
					logger.FromContext(ctx).Warn("Theme not saved", "theme", t, "error", err)
					out.SaveError = err.Error()
				}
				return e.Output().WriteData(out, func(w io.Writer) error {
					if _, err := fmt.Fprintln(w, out.Theme); err != nil {
						return err
					}
					if out.SaveError != "" {
						_, err := fmt.Fprintln(w, "Changes were not saved: "+out.SaveError)
						return err
					}
					return nil
				})
			}, args)
	}
}
