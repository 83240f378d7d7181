package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/listview/cli/helpers"
	"github.com/compozy/listview/engine/catalog"
	"github.com/compozy/listview/engine/slot"
	"github.com/compozy/listview/pkg/config"
	"github.com/compozy/listview/pkg/logger"
)

// CommandExecutor handles common setup for CLI commands: the slot store,
// list dependencies and the output writer.
type CommandExecutor struct {
	cfg   *config.Config
	slots slot.Store
	deps  catalog.Deps
	out   *helpers.OutputWriter
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ExecutorOptions allows customization of the command executor
type ExecutorOptions struct {
	// RequireStore opens the configured slot backend.
	RequireStore bool
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	format := helpers.DetectFormat(cmd)
	logger.FromContext(ctx).Debug("detected output format", "format", format)
	e := &CommandExecutor{
		cfg: cfg,
		out: helpers.NewOutputWriter(cmd.OutOrStdout(), format, helpers.ShouldUseColor(cmd)),
	}
	if opts.RequireStore {
		slots, err := slot.Open(ctx, &cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
		}
		e.slots = slots
		e.deps = catalog.DepsFromConfig(cfg, slots)
	}
	return e, nil
}

func (e *CommandExecutor) Config() *config.Config {
	return e.cfg
}

func (e *CommandExecutor) Deps() catalog.Deps {
	return e.deps
}

func (e *CommandExecutor) Slots() slot.Store {
	return e.slots
}

func (e *CommandExecutor) Output() *helpers.OutputWriter {
	return e.out
}

// OpenList looks up kind and mounts its list. A remote list whose first
// fetch failed is returned together with the error.
func (e *CommandExecutor) OpenList(ctx context.Context, kind string) (catalog.Kind, catalog.List, error) {
	k, err := catalog.Lookup(kind)
	if err != nil {
		return catalog.Kind{}, nil, err
	}
	l, err := k.Open(ctx, e.deps)
	return k, l, err
}

// Close releases the slot store.
func (e *CommandExecutor) Close(ctx context.Context) {
	if e.slots == nil {
		return
	}
	if err := e.slots.Close(); err != nil {
		logger.FromContext(ctx).Warn("Failed to close slot store", "error", err)
	}
}

// ExecuteCommand creates the executor, runs handler and reports its error.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handler HandlerFunc, args []string) error {
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		return HandleCommonErrors(cmd, err)
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	defer executor.Close(ctx)
	return HandleCommonErrors(cmd, handler(ctx, cmd, executor, args))
}

// HandleCommonErrors prints err once in the command's output format and
// returns it categorized.
func HandleCommonErrors(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	cliErr := helpers.Categorize(err)
	helpers.WriteError(cmd.ErrOrStderr(), cliErr, helpers.DetectFormat(cmd), helpers.ShouldUseColor(cmd))
	return cliErr
}
