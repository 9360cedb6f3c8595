package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/fiado-app/fiado/internal/config"
	"github.com/fiado-app/fiado/internal/database"
	"github.com/fiado-app/fiado/internal/debtor"
	debtorStore "github.com/fiado-app/fiado/internal/debtor/store"
	fiadoHttp "github.com/fiado-app/fiado/internal/http"
	agreementHandler "github.com/fiado-app/fiado/internal/http/agreement"
	debtorHandler "github.com/fiado-app/fiado/internal/http/debtor"
	profileHandler "github.com/fiado-app/fiado/internal/http/profile"
	"github.com/fiado-app/fiado/internal/ledger"
	ledgerStore "github.com/fiado-app/fiado/internal/ledger/store"
	"github.com/fiado-app/fiado/internal/notify"
	"github.com/fiado-app/fiado/internal/scoring"
	"github.com/fiado-app/fiado/internal/scoring/cache"
	scoringStore "github.com/fiado-app/fiado/internal/scoring/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	bus := ledger.NewBus()

	var profileCache scoring.ProfileCache
	if cfg.Redis.Addr != "" {
		profileCache = cache.NewRedis(cfg.Redis.Addr, cfg.Scoring.ProfileTTL)
		slog.Info("using redis profile cache", "addr", cfg.Redis.Addr)
	} else {
		profileCache = cache.NewInMemory(cfg.Scoring.ProfileTTL)
	}

	var (
		debtorService  = debtor.NewService(debtorStore.New(db))
		ledgerService  = ledger.NewService(ledgerStore.New(db), bus)
		scoringService = scoring.NewService(ledgerService, scoringStore.New(db), profileCache)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ledger commits invalidate cached scores and re-plan reminders; both
	// consumers run independently of the request path.
	scoreEvents, cancelScores := bus.Subscribe(64)
	defer cancelScores()

	go scoringService.Watch(ctx, scoreEvents)

	planner := notify.NewPlanner()
	reminderEvents, cancelReminders := bus.Subscribe(64)
	defer cancelReminders()

	go planner.Run(ctx, reminderEvents)

	var (
		debtorH    = debtorHandler.NewHandler(debtorService)
		agreementH = agreementHandler.NewHandler(ledgerService, cfg.Ledger.DefaultCurrency)
		profileH   = profileHandler.NewHandler(scoringService, ledgerService)
	)

	router := fiadoHttp.New(debtorH, agreementH, profileH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
