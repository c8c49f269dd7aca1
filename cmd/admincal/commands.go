package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"admincal/internal/backend"
	"admincal/internal/config"
	"admincal/internal/eventsync"
	"admincal/internal/ics"
	appLog "admincal/internal/log"
	"admincal/internal/scheduler"
	"admincal/internal/web"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string

	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:     "admincal",
		Short:   "Admin calendar for projects and meetings",
		Version: version,
		Long: `admincal keeps a merged calendar of project deadlines and meetings
fetched from the admin backend, and serves it to the calendar page over
HTTP and WebSocket.`,
		PersistentPreRunE: opts.setup,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "/etc/admincal/config.yaml", "path to config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional dotenv file loaded before the environment overrides")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newServeCommand(opts),
		newSyncCommand(opts),
		newExportCommand(opts),
	)
	return root
}

// setup loads configuration and configures logging before any subcommand.
func (o *rootOptions) setup(_ *cobra.Command, _ []string) error {
	if err := config.LoadEnvFile(o.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.Load(o.configPath)
	if err != nil {
		// Load still returns defaults when the first-run save fails.
		if cfg == nil {
			return fmt.Errorf("load config %s: %w", o.configPath, err)
		}
		appLog.Warn("could not write default config, continuing with defaults", "config_path", o.configPath, "error", err.Error())
	}
	cfg.ApplyEnv()

	level := cfg.LogLevel
	if o.logLevel != "" {
		level = o.logLevel
	}
	appLog.SetFormat(cfg.LogFormat)
	appLog.SetLevel(appLog.ParseLevel(level))

	appLog.Info("effective config",
		"version", version,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"backend", cfg.Backend.BaseURL,
		"cache_dir", cfg.Backend.CacheDir,
		"stale_on_error", cfg.Backend.StaleOnError,
		"basic_auth", cfg.BasicAuth != nil,
	)
	o.cfg = cfg
	return nil
}

func (o *rootOptions) orchestrator() *eventsync.Orchestrator {
	client := backend.New(o.cfg.Backend)
	return eventsync.New(client.Projects(), client.Meetings(), client.Employees())
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar and refresh it on schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(ctx context.Context, opts *rootOptions) error {
	cfg := opts.cfg
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}

	orch := opts.orchestrator()
	sched, err := scheduler.New(ctx, cfg.RefreshCron, loc, func(ctx context.Context) {
		orch.Refresh(ctx)
	})
	if err != nil {
		return err
	}

	// The first refresh runs in the background so the page is reachable
	// while the backend is slow.
	go orch.Refresh(ctx)
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sched.Stop(stopCtx)
	}()

	return web.NewServer(cfg, orch).Run(ctx)
}

func newSyncCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one refresh cycle and print a summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch := opts.orchestrator()
			cycle := orch.Refresh(cmd.Context())

			counts := map[string]int{}
			for _, ev := range orch.Events() {
				counts[string(ev.Source)]++
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "cycle %s: %s\n", cycle.ID, cycle.Phase)
			fmt.Fprintf(out, "projects: %d\nmeetings: %d\n", counts["project"], counts["meeting"])
			for src, err := range cycle.Errors {
				fmt.Fprintf(out, "%s failed: %v\n", src, err)
			}
			if cycle.Failed() {
				return errors.New("both sources failed")
			}
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Refresh once and write the calendar as iCalendar",
		RunE: func(cmd *cobra.Command, _ []string) error {
			orch := opts.orchestrator()
			cycle := orch.Refresh(cmd.Context())
			if cycle.Failed() {
				return errors.New("both sources failed, nothing to export")
			}

			body := ics.Encode(orch.Events(), "", time.Now())
			if outPath == "" || outPath == "-" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(outPath, body, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", outPath, err)
			}
			appLog.Info("calendar exported", "path", outPath, "events", len(orch.Events()))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file, - for stdout")
	return cmd
}
