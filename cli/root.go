package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	configcmd "github.com/compozy/listview/cli/cmd/config"
	favoritescmd "github.com/compozy/listview/cli/cmd/favorites"
	listcmd "github.com/compozy/listview/cli/cmd/list"
	recordcmd "github.com/compozy/listview/cli/cmd/record"
	servecmd "github.com/compozy/listview/cli/cmd/serve"
	themecmd "github.com/compozy/listview/cli/cmd/theme"
	"github.com/compozy/listview/cli/helpers"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "listview",
		Short: "Browse, filter and edit persisted lists",
		Long: `listview keeps small record collections (vendors, restrooms, listings,
players, pets, recipes) in a durable slot store and renders filtered,
sorted, paginated views of them. Products are read from a remote catalog.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String(helpers.FlagConfig, "", "Path to a YAML config file")
	flags.String(helpers.FlagLogLevel, "", "Log level (debug, info, warn, error, disabled)")
	flags.Bool(helpers.FlagLogJSON, false, "Emit logs as JSON")
	flags.String(helpers.FlagFormat, "", "Output format (auto, table, json)")
	flags.Bool(helpers.FlagNoColor, false, "Disable colored output")

	root.AddCommand(
		listcmd.NewListCommand(),
		listcmd.NewKindsCommand(),
		listcmd.NewOptionsCommand(),
		listcmd.NewFetchCommand(),
		recordcmd.NewAddCommand(),
		recordcmd.NewUpdateCommand(),
		recordcmd.NewDeleteCommand(),
		recordcmd.NewReviewCommand(),
		themecmd.NewThemeCommand(),
		favoritescmd.NewFavoritesCommand(),
		servecmd.NewServeCommand(),
		configcmd.NewConfigCommand(),
		newVersionCommand(),
	)

	return root
}

// SetupGlobalConfig loads configuration, applies global flags on top of it,
// installs the logger and attaches both to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	flags := cmd.Flags()
	path, err := flags.GetString(helpers.FlagConfig)
	if err != nil {
		return err
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return err
	}
	if flags.Changed(helpers.FlagLogLevel) {
		cfg.Runtime.LogLevel, _ = flags.GetString(helpers.FlagLogLevel)
	}
	if flags.Changed(helpers.FlagLogJSON) {
		cfg.Runtime.LogJSON, _ = flags.GetBool(helpers.FlagLogJSON)
	}
	if flags.Changed(helpers.FlagFormat) {
		cfg.CLI.Format, _ = flags.GetString(helpers.FlagFormat)
	}
	if flags.Changed(helpers.FlagNoColor) {
		cfg.CLI.NoColor, _ = flags.GetBool(helpers.FlagNoColor)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}
