// Command lexio is the main entry point for the Lexio word-mastery server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/kalini-labs/lexio/internal/config"
	"github.com/kalini-labs/lexio/internal/health"
	"github.com/kalini-labs/lexio/internal/maintenance"
	"github.com/kalini-labs/lexio/internal/observe"
	"github.com/kalini-labs/lexio/internal/resilience"
	"github.com/kalini-labs/lexio/internal/server"
	"github.com/kalini-labs/lexio/internal/session"
	"github.com/kalini-labs/lexio/pkg/provider/passage"
	passageanyllm "github.com/kalini-labs/lexio/pkg/provider/passage/anyllm"
	passagemock "github.com/kalini-labs/lexio/pkg/provider/passage/mock"
	passageopenai "github.com/kalini-labs/lexio/pkg/provider/passage/openai"
	"github.com/kalini-labs/lexio/pkg/wordstore"
	pgstore "github.com/kalini-labs/lexio/pkg/wordstore/postgres"
)

// version is stamped by the build; "dev" otherwise.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lexio: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lexio: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("lexio starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "lexio",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Word record store ─────────────────────────────────────────────────────
	store, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise word store", "err", err)
		return 1
	}
	defer store.Close()

	// ── Passage generator ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinGenerators(reg)

	gen, err := buildGenerator(cfg, reg)
	if err != nil {
		slog.Error("failed to create passage generator", "name", cfg.Generator.Name, "err", err)
		return 1
	}
	slog.Info("passage generator created", "name", cfg.Generator.Name, "model", cfg.Generator.Model,
		"fallbacks", len(cfg.Generator.Fallbacks))

	// ── Session manager ───────────────────────────────────────────────────────
	manager, err := session.NewManager(session.Deps{
		Config:    cfg,
		Store:     store,
		Generator: gen,
		Log:       logger,
	})
	if err != nil {
		slog.Error("failed to initialise session manager", "err", err)
		return 1
	}

	// ── Maintenance sweep ─────────────────────────────────────────────────────
	sweeper := maintenance.New(store, maintenance.WithLogger(logger))
	if err := sweeper.Start(); err != nil {
		slog.Error("failed to start maintenance sweeper", "err", err)
		return 1
	}
	defer sweeper.Stop()

	// ── Config watcher ────────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		logConfigChange(config.Diff(old, new))
	})
	if err != nil {
		slog.Warn("config watcher disabled", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	printStartupSummary(cfg)

	srv := server.New(manager,
		server.WithLogger(logger),
		server.WithHealth(health.New(health.Checker{
			Name:  "wordstore",
			Check: store.Ping,
		})),
	)
	httpSrv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", cfg.Server.ListenAddr)
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "err", err)
			return 1
		}
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown error", "err", err)
	}
	closeSessions(shutdownCtx, manager)
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return 0
}

// buildStore selects the word record store backend: PostgreSQL when a DSN is
// configured, the in-memory store otherwise.
func buildStore(ctx context.Context, cfg *config.Config) (wordstore.Store, error) {
	if dsn := cfg.Store.PostgresDSN; dsn != "" {
		st, err := pgstore.NewStore(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("postgres store: %w", err)
		}
		slog.Info("word store ready", "backend", "postgres")
		return st, nil
	}
	slog.Warn("no postgres_dsn configured — using in-memory store, records will not survive a restart")
	return wordstore.NewMemStore(), nil
}

// buildGenerator creates the configured passage generator. When fallback
// entries are configured each backend gets its own circuit breaker and the
// whole chain is wrapped in a [resilience.GeneratorFallback].
func buildGenerator(cfg *config.Config, reg *config.Registry) (passage.Generator, error) {
	primary, err := reg.CreateGenerator(cfg.Generator)
	if err != nil {
		return nil, err
	}
	if len(cfg.Generator.Fallbacks) == 0 {
		return primary, nil
	}

	fb := resilience.NewGeneratorFallback(primary, cfg.Generator.Name, resilience.FallbackConfig{})
	for _, entry := range cfg.Generator.Fallbacks {
		gen, err := reg.CreateGenerator(entry)
		if err != nil {
			return nil, fmt.Errorf("fallback generator %q: %w", entry.Name, err)
		}
		fb.AddFallback(entry.Name, gen)
		slog.Info("fallback generator registered", "name", entry.Name, "model", entry.Model)
	}
	return fb, nil
}

// registerBuiltinGenerators wires all built-in passage generator factories
// into reg. openai uses the native client; the other hosted providers and
// ollama go through the any-llm adapter.
func registerBuiltinGenerators(reg *config.Registry) {
	reg.RegisterGenerator("openai", func(entry config.GeneratorConfig) (passage.Generator, error) {
		var opts []passageopenai.Option
		if entry.BaseURL != "" {
			opts = append(opts, passageopenai.WithBaseURL(entry.BaseURL))
		}
		return passageopenai.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"gemini", "anthropic", "deepseek", "mistral", "groq",
	} {
		reg.RegisterGenerator(providerName, func(entry config.GeneratorConfig) (passage.Generator, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return passageanyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterGenerator("ollama", func(entry config.GeneratorConfig) (passage.Generator, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return passageanyllm.NewOllama(entry.Model, opts...)
	})

	// mock returns synthesised passages; useful for local frontend work.
	reg.RegisterGenerator("mock", func(config.GeneratorConfig) (passage.Generator, error) {
		return &passagemock.Generator{}, nil
	})
}

// closeSessions flushes every active session before exit so buffered attempt
// writes are not lost.
func closeSessions(ctx context.Context, manager *session.Manager) {
	for _, user := range manager.ActiveUsers() {
		if flushed, err := manager.Close(ctx, user); err != nil {
			slog.Warn("session close failed during shutdown", "user", user, "flushed", flushed, "err", err)
		}
	}
}

// logConfigChange reports edits to the config file. Most settings are read at
// startup, so a change here means a restart is needed to take effect.
func logConfigChange(d config.ConfigDiff) {
	if !d.Changed() {
		return
	}
	slog.Warn("config file changed on disk — restart to apply", "changed", d.Fields())
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	backend := "in-memory"
	if cfg.Store.PostgresDSN != "" {
		backend = "postgres"
	}
	langs := ""
	for i, l := range cfg.Languages {
		if i > 0 {
			langs += ", "
		}
		langs += l.Code
	}

	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          Lexio — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Generator", cfg.Generator.Name+" / "+cfg.Generator.Model)
	printRow("Word store", backend)
	printRow("Languages", langs)
	printRow("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-14s  : %-19s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
