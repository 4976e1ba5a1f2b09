package cmd

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/routegate/internal/flags"
	"github.com/zjrosen/routegate/internal/gateway"
	"github.com/zjrosen/routegate/internal/log"
	"github.com/zjrosen/routegate/internal/manifest"
	"github.com/zjrosen/routegate/internal/presentation"
	"github.com/zjrosen/routegate/internal/watcher"
)

var errNoWatchPaths = errors.New("no manifest paths to watch: pass paths or set manifests in config")

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Register manifests and re-register on every change",
	Long: `Register the manifests into a long-lived registry, then watch the files
and directories for edits. After each burst of changes the manifests are
reloaded and registered again into the same registry, so new routes are
added while existing bindings are never replaced.

One JSON event is printed per line: "registered" for a clean pass,
"incomplete" when routes are left unbound or failed, and "rejected" when a
manifest fails to load. Rejected manifests leave the registry untouched.

Examples:
  routegate watch ./manifests
  routegate watch --debug ./manifests | jq -c '{type, coverage: .coverage.coverage_percent}'`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	paths := manifestPaths(args)
	if len(paths) == 0 {
		return errNoWatchPaths
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := newRegistry()
	if err != nil {
		return err
	}
	gw := gateway.New(reg)
	defer gw.Close()
	events := gw.Subscribe(ctx)

	wcfg := watcher.DefaultConfig(paths...)
	wcfg.DebounceDur = cfg.Watch.Debounce
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return err
	}

	loader := manifest.NewLoader()
	if features.Enabled(flags.FlagManifestCache) {
		loader = manifest.NewCachingLoader(manifest.DefaultCacheExpiration, manifest.DefaultCleanupInterval)
	}
	reload := func(source string) {
		m, err := loadManifest(ctx, loader, paths)
		if err != nil {
			gw.Reject(source, err)
			return
		}
		gw.RegisterFrom(ctx, source, m)
	}

	reload(strings.Join(paths, ","))

	formatter := presentation.NewFormatter(cmd.OutOrStdout())
	for {
		select {
		case <-ctx.Done():
			log.Info(log.CatCLI, "watch stopped", "registry_size", reg.Size())
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := formatter.FormatEvent(presentation.FromEvent(ev)); err != nil {
				return err
			}

		case change := <-changes:
			reload(strings.Join(change.Paths, ","))
		}
	}
}
