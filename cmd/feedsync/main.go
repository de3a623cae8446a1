// Command feedsync scrapes the text feed into the posts worksheet, keeping
// per-author analytics and a local CSV mirror alongside it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	_ "time/tzdata"

	"github.com/chromedp/chromedp"
	"github.com/pkg/browser"

	"github.com/ibeckermayer/feedsync/internal/app"
	browseropts "github.com/ibeckermayer/feedsync/internal/browser"
	"github.com/ibeckermayer/feedsync/internal/config"
	"github.com/ibeckermayer/feedsync/internal/logging"
	"github.com/ibeckermayer/feedsync/internal/scheduler"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	var err error
	switch os.Args[1] {
	case "run":
		err = withConfig(func(cfg *config.Config, logger *slog.Logger) error {
			return runOnce(ctx, cfg, logger)
		})
	case "schedule":
		err = withConfig(func(cfg *config.Config, logger *slog.Logger) error {
			return runSchedule(ctx, cfg, logger)
		})
	case "resync":
		err = withConfig(func(cfg *config.Config, logger *slog.Logger) error {
			return runResync(ctx, cfg, logger)
		})
	case "open":
		if len(os.Args) < 3 {
			fmt.Println("Usage: feedsync open <config|cache|csv>")
			err = errors.New("missing open target")
			break
		}
		err = runOpen(os.Args[2])
	case "bot-test":
		runBotTest()
	case "help", "-h", "--help":
		printUsage()
	default:
		printUsage()
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	stop()

	if err != nil {
		slog.Error("feedsync failed", "error", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Usage: feedsync <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run            Scrape the configured pages once and sync them")
	fmt.Println("  schedule       Run now, then repeatedly on the configured schedule")
	fmt.Println("  resync         Sync the records cached by the last run again")
	fmt.Println("  open config    Open config file in default editor")
	fmt.Println("  open cache     Open cache directory in file explorer")
	fmt.Println("  open csv       Open the CSV mirror")
	fmt.Println("  bot-test       Open bot.sannysoft.com to audit browser fingerprint")
	fmt.Println()
	fmt.Printf("Settings are read from the config file and %s* environment variables.\n", config.EnvPrefix)
}

// withConfig loads and validates the configuration, installs the logger and
// calls fn. Invalid configuration stops before anything is fetched.
func withConfig(fn func(*config.Config, *slog.Logger) error) error {
	cfg, err := config.LoadOrCreate()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	envErr := cfg.ApplyEnv()

	level, levelErr := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(os.Stderr, level, cfg.Log.NoColor)
	slog.SetDefault(logger)

	if err := errors.Join(envErr, levelErr, cfg.Validate()); err != nil {
		return err
	}
	return fn(cfg, logger)
}

func runOnce(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	wb, closeWorkbook, err := app.OpenWorkbook(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeWorkbook()

	fetcher, err := app.NewFetcher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to start fetcher: %w", err)
	}
	defer fetcher.Close()

	_, err = app.New(cfg, wb, fetcher, logger).Run(ctx)
	return err
}

func runSchedule(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	sched, err := scheduler.New(cfg.Schedule.Timezone, logger)
	if err != nil {
		return err
	}
	return sched.Run(ctx, "sync", cfg.Schedule.Spec, func(ctx context.Context) error {
		return runOnce(ctx, cfg, logger)
	})
}

func runResync(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	records, path, err := app.LoadCachedRecords()
	if err != nil {
		return err
	}
	logger.Info("loaded cached records", "path", path, "records", len(records))

	wb, closeWorkbook, err := app.OpenWorkbook(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer closeWorkbook()

	_, err = app.New(cfg, wb, nil, logger).Resync(ctx, records)
	return err
}

func runBotTest() {
	slog.Info("opening bot.sannysoft.com with stealth browser options")

	opts := browseropts.Options(false) // non-headless so you can see it

	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	defer cancel()

	ctx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	go func() {
		err := chromedp.Run(ctx,
			chromedp.Navigate("https://bot.sannysoft.com"),
		)
		if err != nil {
			slog.Error("failed to navigate", "error", err)
		}
	}()

	fmt.Println("Press Enter to end program...")
	fmt.Scanln()
}

func runOpen(target string) error {
	var path string
	var err error

	switch target {
	case "config":
		path, err = config.ConfigPath()
	case "cache":
		path, err = config.CacheDir()
	case "csv":
		cfg, loadErr := config.LoadOrCreate()
		if loadErr != nil {
			return loadErr
		}
		if err := cfg.ApplyEnv(); err != nil {
			return err
		}
		path, err = filepath.Abs(cfg.Mirror.CSVPath)
	default:
		return fmt.Errorf("unknown target: %s", target)
	}

	if err != nil {
		return fmt.Errorf("failed to get path: %w", err)
	}

	if err := browser.OpenFile(path); err != nil {
		return fmt.Errorf("failed to open: %w", err)
	}
	return nil
}
