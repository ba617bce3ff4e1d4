// Package main provides the briefwizard binary entry point.
// Briefwizard is a conversational project-brief wizard: you describe the
// project in plain language, it maintains a structured brief alongside the
// conversation, and it speaks up when an edit looks significant.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/briefwizard/analysis"
	"github.com/c360studio/briefwizard/config"
	"github.com/c360studio/briefwizard/ingest"
	"github.com/c360studio/briefwizard/project"
	"github.com/c360studio/briefwizard/trigger"
	"github.com/c360studio/briefwizard/wizard"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "briefwizard"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		configPath  string
		projectsDir string
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "briefwizard",
		Short: "Conversational project brief wizard",
		Long: `Briefwizard turns a free-form conversation into a structured project
brief with a phased roadmap.

It provides:
- Conversation analysis via an OpenAI-compatible endpoint
- A live brief you can edit directly, field by field
- Unsolicited AI comments when an edit looks significant
- Attachment ingestion with validation and threat scanning

Type /help inside the session for the available commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, projectsDir, logLevel)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Config file path (YAML)")
	cmd.Flags().StringVar(&projectsDir, "projects", "./projects", "Directory for created projects")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

func run(configPath, projectsDir, logLevel string) error {
	printBanner()

	// Configure logging
	level := slog.LevelWarn
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(configPath, logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	client := analysis.NewClient(cfg.Analysis, analysis.WithLogger(logger))
	projects, err := project.NewDirStore(projectsDir, logger)
	if err != nil {
		return fmt.Errorf("open project store: %w", err)
	}

	svc := wizard.New(wizard.Collaborators{
		Analyzer:  client,
		Roadmaps:  client,
		Commenter: client,
		Projects:  projects,
	}, wizard.Config{
		Triggers: trigger.Config{
			DebounceDelay:          cfg.Triggers.DebounceDelay,
			MaxResponsesPerSession: cfg.Triggers.MaxResponsesPerSession,
			Frequency:              trigger.Frequency(cfg.Triggers.ResponseFrequency),
		},
		Uploads: cfg.Uploads,
	}, logger)
	defer svc.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Uploads.WatchDir != "" {
		if err := startWatcher(ctx, cfg.Uploads.WatchDir, cfg.Triggers.DebounceDelay, svc, logger); err != nil {
			logger.Warn("drop directory unavailable",
				slog.String("dir", cfg.Uploads.WatchDir),
				slog.String("error", err.Error()))
		} else {
			fmt.Printf("Watching %s for dropped attachments.\n", cfg.Uploads.WatchDir)
		}
	}

	if err := svc.StartSession(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	return runREPL(ctx, svc)
}

// loadConfig uses the layered loader by default; an explicit --config path
// is overlaid on the defaults instead.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath == "" {
		return config.NewLoader(logger).Load()
	}
	cfg := config.DefaultConfig()
	fileCfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Merge(fileCfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// startWatcher feeds drop-directory batches into the wizard.
func startWatcher(ctx context.Context, dir string, debounce time.Duration, svc *wizard.Service, logger *slog.Logger) error {
	w, err := ingest.NewWatcher(dir, debounce, logger)
	if err != nil {
		return err
	}
	go w.Run(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case batch, ok := <-w.Batches():
				if !ok {
					return
				}
				results, err := svc.UploadFiles(ctx, batch, nil)
				if err != nil {
					fmt.Printf("\n[upload] batch rejected: %v\n", err)
					continue
				}
				for _, r := range results {
					if r.Err != nil {
						fmt.Printf("\n[upload] %s rejected: %v\n", r.Name, r.Err)
					} else {
						fmt.Printf("\n[upload] %s attached\n", r.Name)
					}
				}
			}
		}
	}()
	return nil
}

func printBanner() {
	fmt.Printf(`
 _          _       __          _                  _
| |__  _ __(_) ___ / _|_      _(_)______ _ _ __ __| |
| '_ \| '__| |/ _ \ |_\ \ /\ / / |_  / _' | '__/ _' |
| |_) | |  | |  __/  _|\ V  V /| |/ / (_| | | | (_| |
|_.__/|_|  |_|\___|_|   \_/\_/ |_/___\__,_|_|  \__,_|

%s v%s
`, appName, Version)
}
