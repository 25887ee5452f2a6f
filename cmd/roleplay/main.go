package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ErumAfzal/Roleplay-App-sub000/internal/catalog"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/handler"
	appI18n "github.com/ErumAfzal/Roleplay-App-sub000/internal/i18n"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/llm"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/model"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/session"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/store"
	"github.com/ErumAfzal/Roleplay-App-sub000/internal/survey"
)

const sweepInterval = 10 * time.Minute

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roleplay",
		Short: "Role-play conversation trainer powered by LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve, exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `roleplay --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP training server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("store", "sqlite", "Primary persistence backend (sqlite, postgres)")
	f.String("db", "roleplay.db", "SQLite database path")
	f.String("database-url", "", "PostgreSQL connection string (or set ROLEPLAY_DATABASE_URL)")
	f.String("fallback", "attempts.jsonl", "Local append-only fallback file")
	f.String("scenarios", "", "External scenario catalog JSON (default: embedded catalog)")
	f.String("survey", "standard", "Survey question set (standard, extended, or a JSON file path)")
	f.String("llm-provider", "openai", "Completion provider (openai, anthropic)")
	f.String("llm-url", "", "OpenAI-compatible API base URL (empty for the provider default)")
	f.String("llm-key", "", "API key for the completion service (or set ROLEPLAY_LLM_KEY)")
	f.String("llm-model", "gpt-4o-mini", "Completion model name")
	f.StringP("lang", "l", "en", "Default UI language (en, de)")
	f.Duration("session-ttl", session.DefaultTTL, "Idle session lifetime")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.String("admin-password", "", "Admin password for /admin (or set ROLEPLAY_ADMIN_PASSWORD; empty disables)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export recorded attempts as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("store", "sqlite", "Persistence backend to read (sqlite, postgres)")
	f.String("db", "roleplay.db", "SQLite database path")
	f.String("database-url", "", "PostgreSQL connection string")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper
// instance. A local .env file is loaded first so secrets can live there.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "error", err)
	}

	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("ROLEPLAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("roleplay")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/roleplay")
	v.AddConfigPath("/etc/roleplay")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Load the scenario catalog; malformed data fails here, not mid-session.
	var cat *catalog.Catalog
	var err error
	if path := v.GetString("scenarios"); path != "" {
		cat, err = catalog.LoadFile(path)
	} else {
		cat, err = catalog.Load()
	}
	if err != nil {
		return fmt.Errorf("load scenarios: %w", err)
	}
	slog.Info("loaded scenario catalog",
		"total", cat.Len(), "batch1", len(cat.ListByBatch(1)), "batch2", len(cat.ListByBatch(2)))

	questions, err := survey.Load(v.GetString("survey"))
	if err != nil {
		return fmt.Errorf("load survey set: %w", err)
	}
	slog.Info("loaded survey set", "name", questions.Name, "questions", len(questions.Questions))

	lang, err := model.ParseLanguage(v.GetString("lang"))
	if err != nil {
		return fmt.Errorf("parse lang: %w", err)
	}
	if err := appI18n.Init(string(lang)); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	recorder, reader, err := openStores(v)
	if err != nil {
		return err
	}
	defer recorder.Close()

	completer, err := openCompleter(v)
	if err != nil {
		return err
	}

	mgr := session.NewManager(cat, questions, completer, recorder, lang, v.GetDuration("session-ttl"))
	go mgr.RunSweeper(context.Background(), sweepInterval)

	cfg := handler.Config{
		SecureCookies: v.GetBool("secure-cookies"),
		StoreName:     v.GetString("store"),
	}
	h, err := handler.New(cat, questions, mgr, reader, cfg, v.GetString("admin-password"))
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(string(lang)))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"store", cfg.StoreName,
		"survey", questions.Name,
		"lang", lang,
		"provider", v.GetString("llm-provider"),
		"model", v.GetString("llm-model"),
	)
	return http.ListenAndServe(addr, r)
}

// openStores builds the recorder chain (primary store with local-file
// fallback) and the reader for export. A missing or unreachable postgres
// degrades to fallback-only instead of blocking students; a broken local
// sqlite is fatal.
func openStores(v *viper.Viper) (store.Recorder, store.Reader, error) {
	fallback, err := store.NewFile(v.GetString("fallback"))
	if err != nil {
		return nil, nil, fmt.Errorf("open fallback store: %w", err)
	}

	switch name := v.GetString("store"); name {
	case "sqlite":
		db, err := store.NewSQLite(v.GetString("db"))
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store.NewFallback(db, fallback), db, nil

	case "postgres":
		url := v.GetString("database-url")
		if url == "" {
			slog.Warn("no database-url configured, recording to local fallback only")
			return fallback, nil, nil
		}
		db, err := store.NewPostgres(url)
		if err != nil {
			slog.Warn("postgres unreachable, recording to local fallback only", "error", err)
			return fallback, nil, nil
		}
		return store.NewFallback(db, fallback), db, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want sqlite or postgres)", name)
	}
}

// openCompleter builds the completion client. A missing API key does not
// stop the server: conversations are blocked with an actionable message
// while the rest of the tool keeps working.
func openCompleter(v *viper.Viper) (session.Completer, error) {
	key := v.GetString("llm-key")
	if key == "" {
		slog.Warn("no completion API key configured, conversations are disabled",
			"hint", "set --llm-key or ROLEPLAY_LLM_KEY")
		return nil, nil
	}

	client, err := llm.New(llm.Config{
		Provider: v.GetString("llm-provider"),
		BaseURL:  v.GetString("llm-url"),
		APIKey:   key,
		Model:    v.GetString("llm-model"),
	})
	if err != nil {
		return nil, fmt.Errorf("create LLM client: %w", err)
	}
	if err := client.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("LLM health check: %w", err)
	}
	slog.Info("LLM endpoint OK",
		"provider", v.GetString("llm-provider"), "model", client.ModelID())
	return client, nil
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	var reader store.Reader
	switch name := v.GetString("store"); name {
	case "sqlite":
		db, err := store.NewSQLite(v.GetString("db"))
		if err != nil {
			return fmt.Errorf("open sqlite store: %w", err)
		}
		defer db.Close()
		reader = db
	case "postgres":
		db, err := store.NewPostgres(v.GetString("database-url"))
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer db.Close()
		reader = db
	default:
		return fmt.Errorf("unknown store %q (want sqlite or postgres)", name)
	}

	attempts, err := reader.ListAttempts(context.Background())
	if err != nil {
		return fmt.Errorf("list attempts: %w", err)
	}

	export := model.Export{
		ExportedAt: time.Now().UTC(),
		Store:      v.GetString("store"),
		Count:      len(attempts),
		Attempts:   attempts,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
