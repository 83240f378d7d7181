package helpers

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/compozy/listview/pkg/config"
)

// isRunningInCI checks if we're running in a CI/CD environment
func isRunningInCI() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	for _, v := range []string{
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"BUILDKITE",
		"JENKINS_URL",
		"TF_BUILD", // Azure DevOps
	} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// isTerminal reports whether w writes to an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectFormat resolves the output format for cmd. An explicit table or json
// setting wins; auto picks tables for terminals and JSON for pipes and CI.
func DetectFormat(cmd *cobra.Command) OutputFormat {
	cfg := config.FromContext(cmd.Context())
	switch OutputFormat(cfg.CLI.Format) {
	case OutputFormatJSON:
		return OutputFormatJSON
	case OutputFormatTable:
		return OutputFormatTable
	}
	if isRunningInCI() || !isTerminal(cmd.OutOrStdout()) {
		return OutputFormatJSON
	}
	return OutputFormatTable
}

// ShouldUseColor determines if colored output should be used
func ShouldUseColor(cmd *cobra.Command) bool {
	cfg := config.FromContext(cmd.Context())
	if cfg.CLI.NoColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	if !isTerminal(cmd.OutOrStdout()) || isRunningInCI() {
		return false
	}
	term := os.Getenv("TERM")
	return term != "dumb" && term != ""
}
