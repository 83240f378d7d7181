package config

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/cli/helpers"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

const (
	showFormatYAML  = "yaml"
	showFormatJSON  = "json"
	showFormatTable = "table"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
		Long: `Inspect the configuration built from defaults, the --config YAML file
and LISTVIEW_* environment variables.`,
	}
	c.AddCommand(
		NewConfigShowCommand(),
		NewConfigValidateCommand(),
	)
	return c
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	var format string
	c := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Long: `Display the effective configuration as YAML, JSON or a key/value table.
Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					logger.FromContext(ctx).Debug("executing config show command", "format", format)
					return formatConfigOutput(e.Output(), e.Config(), format)
				}, args)
		},
	}
	c.Flags().StringVarP(&format, "output", "o", showFormatYAML, "Output format (yaml, json, table)")
	return c
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and report the first problem",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{},
				func(_ context.Context, c *cobra.Command, e *cmd.CommandExecutor, _ []string) error {
					if err := config.Validate(e.Config()); err != nil {
						return err
					}
					path, _ := c.Flags().GetString(helpers.FlagConfig)
					result := map[string]any{"valid": true, "path": path}
					return e.Output().WriteData(result, func(w io.Writer) error {
						_, err := fmt.Fprintln(w, "Configuration is valid")
						return err
					})
				}, args)
		},
	}
}

func formatConfigOutput(out *helpers.OutputWriter, cfg *config.Config, format string) error {
	values, err := config.AsMap(cfg)
	if err != nil {
		return err
	}
	values = displayValues(values)
	switch format {
	case showFormatJSON:
		return out.WriteJSON(values)
	case showFormatYAML:
		enc := yaml.NewEncoder(out.Writer())
		enc.SetIndent(2)
		if err := enc.Encode(values); err != nil {
			return fmt.Errorf("failed to encode YAML: %w", err)
		}
		return enc.Close()
	case showFormatTable:
		flat := make(map[string]string)
		flattenConfig("", values, flat)
		keys := make([]string, 0, len(flat))
		for k := range flat {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, flat[k]})
		}
		return out.WriteTable([]string{"key", "value"}, rows)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// displayValues replaces Stringer leaves such as durations and secrets with
// their printed form.
func displayValues(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case map[string]any:
			out[k] = displayValues(val)
		case fmt.Stringer:
			out[k] = val.String()
		default:
			out[k] = v
		}
	}
	return out
}

func flattenConfig(prefix string, m map[string]any, out map[string]string) {
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flattenConfig(key, nested, out)
			continue
		}
		out[key] = fmt.Sprint(v)
	}
}
