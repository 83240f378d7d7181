package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/pkg/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{},
				func(_ context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					info := version.Get()
					return e.Output().WriteData(info, func(w io.Writer) error {
						_, err := fmt.Fprintf(w, "listview %s (%s, built %s)\n", info.Version, info.CommitHash, info.BuildDate)
						return err
					})
				}, args)
		},
	}
}
