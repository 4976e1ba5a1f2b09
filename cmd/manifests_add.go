package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/routegate/internal/config"
	"github.com/zjrosen/routegate/internal/manifest"
	"github.com/zjrosen/routegate/internal/presentation"
)

var manifestsAddCmd = &cobra.Command{
	Use:   "manifests:add <paths...>",
	Short: "Validate manifests and add them to the config file",
	Long: `Validate each path together with the configured manifests and, when
enabled, the built-in catalogue, then append it to the manifests list of the
config file in use (or .routegate/config.yaml). Paths already listed are
skipped and the rest of the file, comments included, is left as is. A path
whose modules clash with those already configured is refused.

Examples:
  routegate manifests:add ./manifests
  routegate manifests:add plugins/extra.hcl plugins/units.toml`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Validate against everything register would load alongside them.
		merged := config.MergeManifests(cfg.Manifests, args...)
		if _, err := loadManifest(cmd.Context(), manifest.NewLoader(), merged); err != nil {
			return err
		}

		path := configFileUsed
		if path == "" {
			path = localConfigPath
		}

		saved, err := config.AddManifests(path, cfg.Manifests, args...)
		if err != nil {
			return err
		}
		cfg.Manifests = saved

		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		return formatter.Format(map[string]any{"config": path, "manifests": saved})
	},
}

func init() {
	rootCmd.AddCommand(manifestsAddCmd)
}
