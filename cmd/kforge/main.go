// ABOUTME: Entry point for the kforge development server.
// ABOUTME: Speaks the protocol on stdin/stdout; banner and logs go to stderr.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/kforge/internal/audit"
	"github.com/2389/kforge/internal/capability"
	"github.com/2389/kforge/internal/config"
	"github.com/2389/kforge/internal/dispatch"
	"github.com/2389/kforge/internal/operation"
	"github.com/2389/kforge/internal/prompt"
	"github.com/2389/kforge/internal/protocol"
	"github.com/2389/kforge/internal/resource"
	"github.com/2389/kforge/internal/tools"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _     __
| | __/ _| ___  _ __ __ _  ___
| |/ / |_ / _ \| '__/ _' |/ _ \
|   <|  _| (_) | | | (_| |  __/
|_|\_\_|  \___/|_|  \__, |\___|
                    |___/
`

// getConfigPath returns the path to the kforge config file.
// Priority: KFORGE_CONFIG env var > ./kforge.yaml > XDG_CONFIG_HOME/kforge/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("KFORGE_CONFIG"); envPath != "" {
		return envPath
	}
	if _, err := os.Stat("kforge.yaml"); err == nil {
		return "kforge.yaml"
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "kforge.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "kforge", "config.yaml")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: kforge <command>")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  serve [project-root]   Start the server on stdin/stdout")
		fmt.Fprintln(os.Stderr, "  init                   Create a starter config file")
		fmt.Fprintln(os.Stderr, "  audit [action]         Show recent audit log entries")
		fmt.Fprintln(os.Stderr, "  version                Print version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "audit":
		err = runAudit(ctx)
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	projectRoot := cfg.Project.Root
	if len(os.Args) > 2 {
		projectRoot = os.Args[2]
	}
	if projectRoot == "" {
		projectRoot, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}
	projectRoot, err = filepath.Abs(projectRoot)
	if err != nil {
		return fmt.Errorf("resolving project root: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	// The banner goes to stderr: stdout carries protocol frames only.
	cyan := color.New(color.FgCyan)
	gray := color.New(color.FgHiBlack)
	green := color.New(color.FgGreen)
	cyan.Fprint(os.Stderr, banner)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Config:  %s\n", configPath)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Project: %s\n", projectRoot)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Audit:   %s\n\n", cfg.Audit.DBPath)

	overrides, err := config.LoadOverrides(projectRoot)
	if err != nil {
		return err
	}

	store, err := audit.NewSQLiteStore(resolveDBPath(cfg.Audit.DBPath, projectRoot), logger)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer store.Close()

	registry := capability.NewRegistry()
	descriptors := tools.All()
	applyTimeouts(descriptors, cfg, overrides)
	if err := registry.RegisterAll(descriptors); err != nil {
		return fmt.Errorf("registering capabilities: %w", err)
	}

	hook := audit.NewHook(store, nil, logger)
	executor, err := dispatch.NewExecutor(dispatch.Config{
		Registry: registry,
		Tracker:  operation.NewTracker(logger),
		Hook:     hook,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("creating executor: %w", err)
	}

	roots := append([]string{projectRoot}, cfg.Project.AllowedRoots...)
	roots = append(roots, overrides.ExtraRoots...)
	fs, err := resource.NewFS(roots, logger)
	if err != nil {
		return fmt.Errorf("configuring resource roots: %w", err)
	}

	gw, err := protocol.NewGateway(protocol.Config{
		Executor:      executor,
		Registry:      registry,
		Resources:     fs,
		Prompts:       prompt.NewCatalog(),
		Hook:          hook,
		Logger:        logger,
		ServerName:    cfg.Server.Name,
		ServerVersion: serverVersion(cfg),
		ProjectRoot:   projectRoot,
	}, os.Stdout)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	logger.Info("starting kforge",
		"config", configPath,
		"project_root", projectRoot,
		"capabilities", registry.Len(),
	)

	return gw.Run(ctx, os.Stdin)
}

// loadConfig loads the config file if one exists, falling back to defaults.
func loadConfig() (*config.Config, string, error) {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err != nil {
		return config.Default(), configPath + " (not found, using defaults)", nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	return cfg, configPath, nil
}

// applyTimeouts resolves each capability's timeout: project override first,
// then the configured per-class timeout, then the class default.
func applyTimeouts(descriptors []*capability.Descriptor, cfg *config.Config, overrides *config.Overrides) {
	for _, d := range descriptors {
		if t, ok := overrides.Timeout(d.Name); ok {
			d.Timeout = t
			continue
		}
		if d.Timeout != 0 {
			continue
		}
		switch d.Class {
		case capability.ClassBuild:
			d.Timeout = cfg.Timeouts.Build
		default:
			d.Timeout = cfg.Timeouts.Interactive
		}
	}
}

// resolveDBPath anchors a relative audit db path at the project root.
func resolveDBPath(dbPath, projectRoot string) string {
	if filepath.IsAbs(dbPath) {
		return dbPath
	}
	return filepath.Join(projectRoot, dbPath)
}

func serverVersion(cfg *config.Config) string {
	if cfg.Server.Version != "" {
		return cfg.Server.Version
	}
	return version
}

const starterConfig = `server:
  name: "kforge"

project:
  # root defaults to the directory kforge serve is started in
  root: ""
  allowed_roots: []

audit:
  db_path: ".kforge/audit.db"

timeouts:
  interactive: "10s"
  build: "5m"

logging:
  level: "info"
  format: "text"
`

func runInit() error {
	configPath := getConfigPath()
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(starterConfig), 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "✓ ")
	fmt.Fprintf(os.Stderr, "Created %s\n", configPath)
	return nil
}

func runAudit(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	projectRoot := cfg.Project.Root
	if projectRoot == "" {
		if projectRoot, err = os.Getwd(); err != nil {
			return fmt.Errorf("resolving working directory: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store, err := audit.NewSQLiteStore(resolveDBPath(cfg.Audit.DBPath, projectRoot), logger)
	if err != nil {
		return fmt.Errorf("opening audit store: %w", err)
	}
	defer store.Close()

	filter := audit.Filter{}
	if len(os.Args) > 2 {
		filter.Action = os.Args[2]
	}

	entries, err := store.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing audit entries: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("no audit entries")
		return nil
	}

	gray := color.New(color.FgHiBlack)
	yellow := color.New(color.FgYellow)
	for _, e := range entries {
		gray.Printf("%s ", e.Timestamp.Format(time.RFC3339))
		fmt.Printf("%-30s %s", e.Action, e.Resource)
		if len(e.Flags) > 0 {
			flags := make([]string, len(e.Flags))
			for i, f := range e.Flags {
				flags[i] = string(f)
			}
			yellow.Printf(" [%s]", strings.Join(flags, ","))
		}
		fmt.Println()
	}
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// Logs share stderr with the banner; stdout stays clean for protocol
	// frames.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = &colorHandler{level: level}
	}

	return slog.New(handler)
}
