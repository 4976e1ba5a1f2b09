package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/routegate/internal/gateway"
	"github.com/zjrosen/routegate/internal/manifest"
	"github.com/zjrosen/routegate/internal/presentation"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <path> [manifests...]",
	Short: "Show which module method serves a capability path",
	Long: `Register the manifests, then resolve a single capability path to the
module and method bound to it. Fails when the path is unbound.

Examples:
  routegate resolve engine.svd.calculate
  routegate resolve calc.thread.pitch ./manifests`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		m, err := loadManifest(cmd.Context(), manifest.NewLoader(), manifestPaths(args[1:]))
		if err != nil {
			return err
		}
		reg, err := newRegistry()
		if err != nil {
			return err
		}

		gw := gateway.New(reg)
		defer gw.Close()
		gw.Register(cmd.Context(), m)

		binding, err := gw.Resolve(path)
		if err != nil {
			return err
		}

		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		return formatter.Format(presentation.FromBinding(path, binding))
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
