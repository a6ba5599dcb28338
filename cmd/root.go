package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "plytool",
	Short: "Point Cloud File Tool",
	Long: `plytool is a streaming codec tool for binary point-cloud files.
It inspects, converts, appends, verifies and caches PLY point files and
ingests plain-text PTS point lists.`,
}

// Execute executes the root command.
func Execute() error {
	return RootCmd.Execute()
}

// ExecuteWithContext executes the root command with the given context.
func ExecuteWithContext(ctx context.Context) error {
	RootCmd.SetContext(ctx)
	return RootCmd.Execute()
}
