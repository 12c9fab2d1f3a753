package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"supportbot/internal/bus"
	"supportbot/internal/channel"
	"supportbot/internal/config"
	"supportbot/internal/gateway"
	"supportbot/internal/metrics"
	"supportbot/internal/purge"
	"supportbot/internal/relay"
	"supportbot/internal/store"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	root := &cobra.Command{
		Use:   "supportbot",
		Short: "Telegram support relay over forum topics",
		Long: "supportbot relays private Telegram messages into per-user topics " +
			"of a staff supergroup and routes staff replies back, anonymously.",
		Version: version,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.json (default: ~/.supportbot/config.json)")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(cleanerCmd())
	root.AddCommand(statsCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil {
				return fmt.Errorf("config already exists at %s", cfgPath)
			}
			if err := os.MkdirAll(config.DefaultConfigDir(), 0o755); err != nil {
				return err
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Println("Edit the file and set telegram.token and telegram.supportGroupId,")
			fmt.Println("then start the relay with: supportbot run")
			return nil
		},
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the support relay",
		RunE:  runRelay,
	}
}

func runRelay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger = buildLogger(cfg)

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram.token is not set, run `supportbot init` and edit the config")
	}
	if cfg.Telegram.SupportGroupID == 0 {
		return fmt.Errorf("telegram.supportGroupId is not set")
	}

	replies, err := config.LoadReplies(cfg.Relay.RepliesPath)
	if err != nil {
		return fmt.Errorf("load replies: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessStore, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return err
	}
	defer sessStore.Close()

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		return fmt.Errorf("telegram auth: %w", err)
	}
	logger.Info("authorized", "bot", bot.Self.UserName, "version", version)

	gw := gateway.NewTelegram(bot, cfg.Telegram.SupportGroupID, logger)
	registry := relay.NewRegistry(sessStore, gw, logger)

	var acker *relay.Acker
	if cfg.Relay.AutoAck {
		acker = relay.NewAcker(gw, replies.AutoAck, logger)
	}

	dispatcher := relay.NewDispatcher(relay.DispatcherConfig{
		Registry:     registry,
		Gateway:      gw,
		Store:        sessStore,
		Acker:        acker,
		FailureReply: replies.RelayFailure,
		Logger:       logger,
	})

	eventBus := bus.New(cfg.Relay.QueueSize, logger)

	var wg sync.WaitGroup
	events := eventBus.Subscribe()
	for i := 0; i < cfg.Relay.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				dispatcher.Dispatch(ctx, ev)
			}
		}()
	}
	logger.Info("relay workers started", "workers", cfg.Relay.Workers, "queue", cfg.Relay.QueueSize)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = startMetricsServer(cfg.Metrics.Addr)
	}

	listener := channel.NewRelay(channel.RelayConfig{
		Bot:      bot,
		GroupID:  cfg.Telegram.SupportGroupID,
		Bus:      eventBus,
		Registry: registry,
		Stats:    relay.NewStats(sessStore),
		Replies:  replies,
		AutoAck:  cfg.Relay.AutoAck,
		Logger:   logger,
	})
	runErr := listener.Start(ctx)

	// Drain in-flight events before closing the store.
	eventBus.Close()
	wg.Wait()

	if metricsSrv != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		metricsSrv.Shutdown(shutCtx)
	}

	logger.Info("relay stopped")
	return runErr
}

func cleanerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleaner",
		Short: "Run the bulk-deletion bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger = buildLogger(cfg)

			if cfg.Cleaner.Token == "" {
				return fmt.Errorf("cleaner.token is not set")
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bot, err := tgbotapi.NewBotAPI(cfg.Cleaner.Token)
			if err != nil {
				return fmt.Errorf("telegram auth: %w", err)
			}
			logger.Info("authorized", "bot", bot.Self.UserName, "version", version)

			purger := purge.NewPurger(channel.BotDeleter{Bot: bot}, cfg.Cleaner.BatchSize, logger)
			cleaner := channel.NewCleaner(bot, purger, cfg.Cleaner.MaxRange, logger)
			return cleaner.Start(ctx)
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print session and message totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sessStore, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
			if err != nil {
				return err
			}
			defer sessStore.Close()

			totals, err := relay.NewStats(sessStore).Totals(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Sessions: %d\nMessages: %d\nDatabase: %s\n",
				totals.Sessions, totals.Events, cfg.Store.DBPath)
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, nil
}

// buildLogger applies the configured level and optional log file.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.General.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	out := os.Stderr
	if cfg.General.LogFile != "" {
		f, err := os.OpenFile(config.ExpandPath(cfg.General.LogFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			logger.Warn("cannot open log file, using stderr", "path", cfg.General.LogFile, "err", err)
		} else {
			out = f
		}
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

func startMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", metrics.Collector.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()
	return srv
}
