// Command hrbot runs the HR bot backend: admin API, GreytHR roster
// sync, and the Slack leave assistant.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/slack-go/slack"

	"github.com/hrbotdev/hrbot/internal/api"
	"github.com/hrbotdev/hrbot/internal/assistant"
	"github.com/hrbotdev/hrbot/internal/cache"
	_ "github.com/hrbotdev/hrbot/internal/cache/loader"
	"github.com/hrbotdev/hrbot/internal/config"
	"github.com/hrbotdev/hrbot/internal/crypto"
	"github.com/hrbotdev/hrbot/internal/greythr"
	"github.com/hrbotdev/hrbot/internal/httpclient"
	"github.com/hrbotdev/hrbot/internal/identity"
	"github.com/hrbotdev/hrbot/internal/server"
	"github.com/hrbotdev/hrbot/internal/slackbot"
	"github.com/hrbotdev/hrbot/internal/store"
	_ "github.com/hrbotdev/hrbot/internal/store/sqlite"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	dataDir := flag.String("data-dir", "", "data directory (overrides config)")
	loggingLevel := flag.String("logging-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	// Bootstrap logger until the configured one takes over.
	bootstrap := slog.New(slog.NewJSONHandler(os.Stderr, nil))

	cfg, err := config.Load(config.LoaderOptions{
		ConfigPath: *configPath,
		FlagOverrides: config.FlagOverrides{
			ListenAddr:   listenAddr,
			DataDir:      dataDir,
			LoggingLevel: loggingLevel,
		},
		Logger: bootstrap,
	})
	if err != nil {
		bootstrap.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.Logging.Level),
	}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "config", cfg.Redacted())

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("SECRET_KEY is required")
	}
	if len(cfg.Auth.EncryptionKeys) == 0 {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if cfg.Slack.BotToken == "" {
		logger.Warn("SLACK_BOT_TOKEN not set; slack calls will fail")
	}
	if cfg.Gemini.APIKey == "" {
		logger.Warn("GEMINI_API_KEY not set; assistant calls will fail")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	driver, err := store.New(&store.DriverConfig{
		Driver:  cfg.Store.Driver,
		DataDir: cfg.Store.DataDir,
	})
	if err != nil {
		return fmt.Errorf("create store driver: %w", err)
	}
	db, ok := driver.(store.Backend)
	if !ok {
		return fmt.Errorf("store driver %s does not implement the full backend", driver.Name())
	}
	if err := db.Init(ctx); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer db.Close()
	logger.Info("store initialized", "driver", db.Name(), "data_dir", cfg.Store.DataDir)

	events, err := cache.NewFromConfig(cfg.Cache.Driver, cfg.Cache.Drivers)
	if err != nil {
		return fmt.Errorf("create cache: %w", err)
	}
	defer events.Close()

	cipher, err := crypto.NewCipher(cfg.Auth.EncryptionKeys)
	if err != nil {
		return fmt.Errorf("load encryption keys: %w", err)
	}

	tokenTTL := time.Duration(cfg.Auth.TokenExpireMinutes) * time.Minute
	issuer := identity.NewTokenIssuer(cfg.Auth.JWTSecret, tokenTTL)
	cookies := identity.NewCookieCodec(cipher, cfg.Auth.CookieDomain, cfg.Auth.CookieSecure, cfg.Auth.CookieSameSite)

	outbound := httpclient.New(&cfg.OutboundHTTP)
	tokens := greythr.NewTokenSource(outbound, cipher, cfg.GreytHR.AuthURLTemplate, logger)
	hrAPI := greythr.NewClient(outbound, cfg.GreytHR.APIBaseURL)
	syncer := greythr.NewSyncer(hrAPI, tokens, cfg.GreytHR.PageSize, logger)

	workspace := slackbot.NewWorkspace(slack.New(cfg.Slack.BotToken), logger)
	dedup := slackbot.NewDedupStore(events, cache.TTLDedup, logger)

	generator, err := assistant.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		return fmt.Errorf("create gemini client: %w", err)
	}
	responder := assistant.NewResponder(db, hrAPI, tokens, generator, logger)
	relay := slackbot.NewRelay(workspace, dedup, responder, logger)

	srv := server.New(cfg, server.Handlers{
		Auth:      api.NewAuthHandler(db, issuer, cookies, tokenTTL, logger),
		Companies: api.NewCompanyHandler(db, cipher, syncer, logger),
		Slack:     api.NewSlackHandler(relay, logger),
		MCP:       api.NewMCPHandler(workspace, responder, logger),
	}, server.AuthDeps{
		Users:   db,
		Cookies: cookies,
		Issuer:  issuer,
	}, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
