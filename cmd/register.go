package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/routegate/internal/coverage"
	"github.com/zjrosen/routegate/internal/flags"
	"github.com/zjrosen/routegate/internal/gateway"
	"github.com/zjrosen/routegate/internal/manifest"
	"github.com/zjrosen/routegate/internal/presentation"
)

// errStrict is returned by register --strict when the pass was not clean.
var errStrict = errors.New("registration not clean")

var registerStrict bool

var registerCmd = &cobra.Command{
	Use:   "register [paths...]",
	Short: "Register manifests into a fresh registry and report coverage",
	Long: `Register every route of the manifests into an empty registry of the
configured backend, then verify coverage. Prints the registration stats, the
coverage report and, unless the ownership-audit flag is off, every declared
route bound to another module as JSON.

The built-in catalogue, when included, is merged ahead of the manifests, so
its modules own every path they declare and a manifest module may not reuse
a built-in module ID. Pass --no-builtin to register the manifests alone.

Collisions never fail the command unless --strict is given, in which case a
shadowed path, a failed route or incomplete coverage exits non-zero.

Examples:
  routegate register
  routegate register ./manifests --no-builtin
  routegate register | jq '.stats.collisions'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := loadManifest(cmd.Context(), manifest.NewLoader(), manifestPaths(args))
		if err != nil {
			return err
		}
		reg, err := newRegistry()
		if err != nil {
			return err
		}

		gw := gateway.New(reg)
		defer gw.Close()

		stats, report := gw.Register(cmd.Context(), m)
		var mismatches []coverage.Mismatch
		if features.Enabled(flags.FlagOwnershipAudit) {
			mismatches = coverage.Audit(m, reg)
		}

		formatter := presentation.NewFormatter(cmd.OutOrStdout())
		if err := formatter.Format(presentation.FromRegistration(stats, report, mismatches)); err != nil {
			return err
		}

		if registerStrict && (stats.Shadowed() > 0 || stats.Errors > 0 || !report.Complete()) {
			return fmt.Errorf("%w: %d shadowed, %d failed, coverage %s",
				errStrict, stats.Shadowed(), stats.Errors, report.CoveragePercent)
		}
		return nil
	},
}

func init() {
	registerCmd.Flags().BoolVar(&registerStrict, "strict", false, "fail on shadowed paths, failed routes or incomplete coverage")
	rootCmd.AddCommand(registerCmd)
}
