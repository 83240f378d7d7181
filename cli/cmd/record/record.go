package record

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/compozy/listview/cli/cmd"
	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/collection"
	"github.com/compozy/listview/engine/query"
)

// NewAddCommand creates the add command
func NewAddCommand() *cobra.Command {
	var file string
	c := &cobra.Command{
		Use:   "add <kind> [json]",
		Short: "Add a record to a list",
		Long: `Add a record given as a JSON object. The record is read from the argument,
from --file, or from stdin when neither is given. A missing id is assigned.

Examples:
  listview add pets '{"name":"Rex","type":"dog","age":2}'
  listview add vendors --file vendor.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, c *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					raw, err := readRecord(c, args[1:], file)
					if err != nil {
						return err
					}
					k, l, err := e.OpenList(ctx, args[0])
					if l == nil {
						return err
					}
					defer l.Close()
					view, err := l.Create(ctx, raw)
					if err != nil {
						return err
					}
					return e.Output().WriteView(k.Columns, view)
				}, args)
		},
	}
	c.Flags().StringVarP(&file, "file", "f", "", "Read the record from a JSON file")
	return c
}

// NewUpdateCommand creates the update command
func NewUpdateCommand() *cobra.Command {
	var sets map[string]string
	c := &cobra.Command{
		Use:   "update <kind> <id> [json]",
		Short: "Change fields of a record",
		Long: `Merge a JSON object of field values into a record, or set single fields
with --set. Values given to --set are parsed as JSON when they are valid
JSON and kept as strings otherwise.

Examples:
  listview update players p1 --set score=2400
  listview update listings l2 '{"status":"traded"}'`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					patch, err := buildPatch(args[2:], sets)
					if err != nil {
						return err
					}
					k, l, err := e.OpenList(ctx, args[0])
					if l == nil {
						return err
					}
					defer l.Close()
					view, err := l.Update(ctx, args[1], patch)
					if err != nil {
						return err
					}
					return e.Output().WriteView(k.Columns, view)
				}, args)
		},
	}
	c.Flags().StringToStringVar(&sets, "set", nil, "Field assignment as field=value (repeatable)")
	return c
}

// NewDeleteCommand creates the delete command
func NewDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <kind> <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a record from a list",
		Args:    cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					k, l, err := e.OpenList(ctx, args[0])
					if l == nil {
						return err
					}
					defer l.Close()
					view, err := l.Delete(ctx, args[1])
					if err != nil {
						return err
					}
					return e.Output().WriteView(k.Columns, view)
				}, args)
		},
	}
}

// NewReviewCommand creates the review command for restrooms
func NewReviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "review <id> <text>",
		Short: "Append a review to a restroom",
		Long: `Append a review to a restroom. Words after the id are joined into the text.

Example:
  listview review 3f1c... Spotless today`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, cmd.ExecutorOptions{RequireStore: true},
				func(ctx context.Context, _ *cobra.Command, e *cmd.CommandExecutor, args []string) error {
					k, l, err := e.OpenList(ctx, "restrooms")
					if l == nil {
						return err
					}
					defer l.Close()
					view, err := catalog.AddReview(ctx, l, args[0], strings.Join(args[1:], " "))
					if err != nil {
						return err
					}
					return e.Output().WriteView(k.Columns, view)
				}, args)
		},
	}
}

func readRecord(c *cobra.Command, args []string, file string) ([]byte, error) {
	var raw []byte
	switch {
	case len(args) > 0 && file != "":
		return nil, fmt.Errorf("%w: give the record as an argument or --file, not both", query.ErrInvalidArgument)
	case len(args) > 0:
		raw = []byte(args[0])
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read record file: %w", err)
		}
		raw = data
	default:
		data, err := io.ReadAll(c.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read record from stdin: %w", err)
		}
		raw = data
	}
	if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsObject() {
		return nil, fmt.Errorf("%w: record must be a JSON object", collection.ErrInvalidRecord)
	}
	return raw, nil
}

func buildPatch(args []string, sets map[string]string) (collection.Patch, error) {
	patch := collection.Patch{}
	if len(args) > 0 {
		parsed := gjson.Parse(args[0])
		if !gjson.Valid(args[0]) || !parsed.IsObject() {
			return nil, fmt.Errorf("%w: changes must be a JSON object", collection.ErrInvalidRecord)
		}
		for field, value := range parsed.Map() {
			patch[field] = value.Value()
		}
	}
	for field, value := range sets {
		field = strings.TrimSpace(field)
		if field == "" {
			return nil, fmt.Errorf("%w: --set needs a field name", query.ErrInvalidArgument)
		}
		if gjson.Valid(value) {
			patch[field] = gjson.Parse(value).Value()
		} else {
			patch[field] = value
		}
	}
	if len(patch) == 0 {
		return nil, fmt.Errorf("%w: nothing to update", query.ErrInvalidArgument)
	}
	return patch, nil
}
