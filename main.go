package main

import (
	"context"
	"embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/chazu/mannequin/pkg/config"
	"github.com/chazu/mannequin/pkg/engine"
	"github.com/chazu/mannequin/pkg/studio"
	"github.com/chazu/mannequin/pkg/web"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "mannequin",
		Short:        "Keyframe animation studio for an articulated figure",
		SilenceUsage: true,
		RunE:         runDesktop,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the studio over HTTP and websockets",
		RunE:  runServe,
	}
	serve.Flags().String("listen", "", "listen address (overrides config)")
	root.AddCommand(serve)

	root.AddCommand(&cobra.Command{
		Use:   "config <path>",
		Short: "Write the effective configuration to a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConfig,
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the config and builds the logger and studio shared by both
// commands. Scripts in the configured directory are watched until ctx ends.
func setup(ctx context.Context) (config.Config, *logrus.Logger, *studio.Studio, error) {
	log := logrus.New()
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, log, nil, err
	}
	log.SetLevel(cfg.Level())

	s := studio.New(cfg, log)
	if cfg.ScriptDir != "" {
		go func() {
			if err := engine.Watch(ctx, cfg.ScriptDir, s.Scripts(), cfg.EvalTimeout, log); err != nil && ctx.Err() == nil {
				log.WithError(err).WithField("dir", cfg.ScriptDir).Error("script watcher stopped")
			}
		}()
	}
	return cfg, log, s, nil
}

func runDesktop(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	_, log, s, err := setup(ctx)
	if err != nil {
		return err
	}
	app := NewApp(s, log)

	return wails.Run(&options.App{
		Title:  "Mannequin",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup:  app.startup,
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return cfg.Save(args[0])
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, s, err := setup(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	addr := cfg.Listen
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		addr = v
	}
	return web.NewServer(s, log).ListenAndServe(ctx, addr)
}
