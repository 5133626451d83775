package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kakeibo/internal/amqp"
	"kakeibo/internal/cache"
	"kakeibo/internal/calendar"
	"kakeibo/internal/config"
	apphttp "kakeibo/internal/http"
	applog "kakeibo/internal/log"
	"kakeibo/internal/services"
	"kakeibo/internal/sheets"
	"kakeibo/internal/storage"
	"kakeibo/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	calcCache := cache.New()
	calculator := services.NewBudgetCalculator(services.NewTransactionAggregator(), calcCache)
	engine := services.NewAnnualAllocationEngine()

	var businessDays services.BusinessDayProvider = calendar.NewWeekendCalendar()
	if holidays := cfg.HolidayDates(); len(holidays) > 0 {
		businessDays = calendar.NewHolidayCalendar(holidays)
	}
	periods := services.NewMonthPeriodCalculator(cfg.MonthStartDay, cfg.BusinessDayAdjustment, businessDays)

	// The server binds its own queue on the fanout exchange so cache
	// invalidations reach it regardless of the worker's consumption.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue+".cache")
		if err != nil {
			logger.Warn("Event broker unavailable, continuing without it", "error", err)
			events = nil
		} else {
			defer events.Close()
		}
	}

	var exporter *sheets.Client
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err = sheets.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	srv := apphttp.NewServer(":"+cfg.Port, repo, calculator, engine, periods, calcCache, events, exporter, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	if events != nil {
		invalidator := worker.NewCacheInvalidator(calcCache)
		g.Go(func() error {
			if err := events.Consume(ctx, invalidator); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		logger.Info("Starting kakeibo server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
