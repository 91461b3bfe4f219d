// MacroAI is a nutrition tracking agent server.
//
// It exposes a WebSocket chat endpoint backed by a tool-calling agent
// plus a small REST API for chat session management. Configuration is
// loaded from a single YAML file discovered automatically (see
// [config.DefaultSearchPaths]).
//
// Usage:
//
//	macroai serve            Start the API server
//	macroai seed             Create the default user and starter food database
//	macroai version          Print version and build information
//	macroai -o json version  Output version information as JSON
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mvanders/macroai/internal/agent"
	"github.com/mvanders/macroai/internal/api"
	"github.com/mvanders/macroai/internal/buildinfo"
	"github.com/mvanders/macroai/internal/checkpoint"
	"github.com/mvanders/macroai/internal/config"
	"github.com/mvanders/macroai/internal/gateway"
	"github.com/mvanders/macroai/internal/identity"
	"github.com/mvanders/macroai/internal/nutrition"
	"github.com/mvanders/macroai/internal/session"
	"github.com/mvanders/macroai/internal/tools"

	_ "github.com/mattn/go-sqlite3" // SQLite driver for database/sql
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run], keeping
// os.Exit and os.Args out of the application logic so the full lifecycle
// can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the macroai command. Arguments are
// parsed by hand; the flag package relies on package-level globals
// that interfere with parallel tests, and the surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "seed":
		return runSeed(stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "MacroAI - Nutrition Tracking Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: macroai [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve     Start the API server")
	fmt.Fprintln(w, "  seed      Create the default user and starter food database")
	fmt.Fprintln(w, "  version   Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintln(w, "  ./config.yaml, ~/.config/macroai/config.yaml, /etc/macroai/config.yaml")
	return nil
}

// runServe is the primary operating mode: load config, open the
// database, wire the stores, agent loop, and tool registry, then serve
// until SIGINT or SIGTERM.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")
	logger.Info("starting MacroAI", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure now that the desired level and format are known.
	{
		level := slog.LevelInfo
		if cfg.LogLevel != "" {
			level, err = config.ParseLogLevel(cfg.LogLevel)
			if err != nil {
				return err
			}
		}
		logger = newLogger(stdout, level, cfg.LogFormat)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"single_user", cfg.SingleUser,
	)

	if !cfg.SingleUser && cfg.Auth.Secret == "" {
		return fmt.Errorf("auth.secret is required unless single_user_mode is enabled")
	}

	db, err := openDatabase(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := identity.NewStore(db)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	sessions, err := session.NewStore(db)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	checkpoints, err := checkpoint.NewStore(db)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	ledger, err := nutrition.NewLedger(db)
	if err != nil {
		return fmt.Errorf("open nutrition ledger: %w", err)
	}

	registry := tools.NewRegistry(users, ledger, logger)
	loop := agent.NewLoop(logger, checkpoints, registry, cfg.Agent.MaxToolCallsPerTurn)
	resolver := identity.NewResolver(users, cfg.Auth.Secret)

	chatWS := gateway.NewHandler(logger, resolver, users, sessions, loop, cfg.SingleUser)
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, logger,
		resolver, users, sessions, checkpoints, chatWS, cfg.SingleUser)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("shutdown signal received")
		_ = server.Shutdown(context.Background())
	}()

	if err := server.Start(ctx); err != nil {
		if ctx.Err() == nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	logger.Info("MacroAI stopped")
	return nil
}

// runSeed prepares a fresh installation: the single-user account and
// the starter food database. Safe to run repeatedly.
func runSeed(stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo, "text")

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	logger.Info("config loaded", "path", cfgPath)

	db, err := openDatabase(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	users, err := identity.NewStore(db)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	ledger, err := nutrition.NewLedger(db)
	if err != nil {
		return fmt.Errorf("open nutrition ledger: %w", err)
	}

	existing, err := users.GetByEmail(identity.SingleUserEmail)
	if err != nil {
		return err
	}
	if existing == nil {
		// The model provider can be preconfigured via environment so the
		// seeded install is chat-ready without touching settings.
		aiCfg := identity.AIConfig{
			Provider: os.Getenv("MACROAI_AI_PROVIDER"),
			Model:    os.Getenv("MACROAI_AI_MODEL"),
			APIKey:   os.Getenv("MACROAI_AI_API_KEY"),
			BaseURL:  os.Getenv("MACROAI_AI_BASE_URL"),
		}
		user, err := users.Create(identity.SingleUserEmail, identity.Profile{
			DisplayName:   "MacroAI User",
			ActivityLevel: "moderate",
			Timezone:      "UTC",
		}, identity.DefaultTargets(), aiCfg)
		if err != nil {
			return fmt.Errorf("create default user: %w", err)
		}
		logger.Info("default user created", "id", user.ID, "email", user.Email)
		fmt.Fprintf(stdout, "Created default user %s\n", user.Email)
	} else {
		fmt.Fprintf(stdout, "Default user %s already exists\n", existing.Email)
	}

	inserted, err := ledger.Seed()
	if err != nil {
		return fmt.Errorf("seed foods: %w", err)
	}
	if inserted > 0 {
		fmt.Fprintf(stdout, "Seeded %d starter foods\n", inserted)
	} else {
		fmt.Fprintln(stdout, "Food database already populated")
	}
	return nil
}

// openDatabase creates the data directory and opens the shared SQLite
// database all stores live in.
func openDatabase(dataDir string) (*sql.DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDir, err)
	}

	dbPath := filepath.Join(dataDir, "macroai.db")
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}
	return db, nil
}

// newLogger creates a structured logger writing to w at the given level
// and format. Format must be "text" or "json"; anything else defaults
// to text.
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig locates and parses the YAML configuration. When no file
// exists anywhere in the search path and none was requested explicitly,
// built-in defaults apply.
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		if explicit == "" {
			return config.Default(), "(defaults)", nil
		}
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}
