package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"time"

	"supportbot/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your supportbot installation",
		Long: `Verifies that supportbot's configuration, bot tokens, support group,
and database are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("supportbot doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printFail("Config file", fmt.Sprintf("not found at %s", cfgPath))
				fmt.Printf("\nRun 'supportbot init' to create a default configuration.\n")
				return nil
			}
			printPass("Config file", cfgPath)
			passed++

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Relay bot token works and the support group is reachable
			if cfg.Telegram.Token == "" {
				printFail("Relay token", "telegram.token is not set")
				failed++
			} else if bot, err := tgbotapi.NewBotAPI(cfg.Telegram.Token); err != nil {
				printFail("Relay token", err.Error())
				failed++
			} else {
				printPass("Relay token", "@"+bot.Self.UserName)
				passed++

				if cfg.Telegram.SupportGroupID == 0 {
					printFail("Support group", "telegram.supportGroupId is not set")
					failed++
				} else if chat, err := bot.GetChat(tgbotapi.ChatInfoConfig{
					ChatConfig: tgbotapi.ChatConfig{ChatID: cfg.Telegram.SupportGroupID},
				}); err != nil {
					printFail("Support group", fmt.Sprintf("cannot access %d: %v", cfg.Telegram.SupportGroupID, err))
					failed++
				} else if !chat.IsSuperGroup() {
					printFail("Support group", fmt.Sprintf("%q is not a supergroup, topics need one", chat.Title))
					failed++
				} else {
					printPass("Support group", chat.Title)
					passed++
				}
			}

			// 4. Cleaner bot token (optional)
			if cfg.Cleaner.Token == "" {
				printWarn("Cleaner token", "not configured, 'supportbot cleaner' disabled")
				warned++
			} else if bot, err := tgbotapi.NewBotAPI(cfg.Cleaner.Token); err != nil {
				printFail("Cleaner token", err.Error())
				failed++
			} else {
				printPass("Cleaner token", "@"+bot.Self.UserName)
				passed++
			}

			// 5. Database writable
			if err := checkDatabase(cfg.Store.DBPath); err != nil {
				printFail("Database", err.Error())
				failed++
			} else {
				printPass("Database", cfg.Store.DBPath)
				passed++
			}

			// 6. Metrics port free
			if cfg.Metrics.Enabled {
				if err := checkAddr(cfg.Metrics.Addr); err != nil {
					printWarn("Metrics addr", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Addr, err))
					warned++
				} else {
					printPass("Metrics addr", cfg.Metrics.Addr)
					passed++
				}
			}

			// 7. Replies file parses
			if cfg.Relay.RepliesPath != "" {
				if _, err := config.LoadReplies(cfg.Relay.RepliesPath); err != nil {
					printFail("Replies file", err.Error())
					failed++
				} else {
					printPass("Replies file", cfg.Relay.RepliesPath)
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running supportbot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nsupportbot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! supportbot is ready to run.\n")
			}
			return nil
		},
	}
}

func checkDatabase(dbPath string) error {
	dir := dbPath
	for i := len(dir) - 1; i >= 0; i-- {
		if dir[i] == '/' || dir[i] == '\\' {
			dir = dir[:i]
			break
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return fmt.Errorf("cannot open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("cannot ping: %w", err)
	}

	// Try a write.
	if _, err := db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS _doctor_test (id INTEGER PRIMARY KEY)"); err != nil {
		return fmt.Errorf("not writable: %w", err)
	}
	db.ExecContext(ctx, "DROP TABLE IF EXISTS _doctor_test")

	return nil
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
