package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zulandar/shiftyard/internal/dashboard"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the roster editing API",
		Long:  "Serves the JSON editing API used by roster editors. Idle sessions are evicted on the configured sweep schedule.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfig, "path to Shiftyard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (overrides dashboard.port)")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string, port int) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	deps, err := sessionDeps(cfg, gormDB)
	if err != nil {
		return err
	}
	defer deps.Log.Sync()

	if port == 0 {
		port = cfg.Dashboard.Port
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:          deps.DB,
		Remote:      deps.Remote,
		Engine:      deps.Engine,
		Notifier:    deps.Notifier,
		Port:        port,
		IdleTimeout: cfg.Dashboard.IdleTimeout,
		Sweep:       cfg.Dashboard.Sweep,
		Log:         deps.Log,
		Out:         cmd.OutOrStdout(),
	})
}
