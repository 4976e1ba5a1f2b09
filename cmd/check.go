package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/routegate/internal/manifest"
	"github.com/zjrosen/routegate/internal/presentation"
)

var checkCmd = &cobra.Command{
	Use:   "check [paths...]",
	Short: "Validate manifests and list duplicate paths",
	Long: `Load and validate manifests without registering them, then print module
and route counts plus every path declared more than once as JSON.

Duplicates are not errors: "self" means a module repeats one of its own
paths, "cross" means several modules claim the same path and only the first
will be bound. The command fails when any manifest is invalid.

Examples:
  # Check the configured manifests
  routegate check

  # Check specific files or directories
  routegate check ./manifests plugins/extra.hcl

  # Only cross-module duplicates
  routegate check | jq '.duplicates[] | select(.kind == "cross")'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest(cmd.Context(), manifest.NewLoader(), manifestPaths(args))
		if err != nil {
			return err
		}

		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		return formatter.Format(presentation.FromManifest(m))
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
