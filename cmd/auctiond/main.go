package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jensholdgaard/player-auction/internal/auction"
	"github.com/jensholdgaard/player-auction/internal/clock"
	"github.com/jensholdgaard/player-auction/internal/config"
	"github.com/jensholdgaard/player-auction/internal/health"
	"github.com/jensholdgaard/player-auction/internal/httpapi"
	"github.com/jensholdgaard/player-auction/internal/hub"
	"github.com/jensholdgaard/player-auction/internal/model"
	"github.com/jensholdgaard/player-auction/internal/store"
	"github.com/jensholdgaard/player-auction/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/jensholdgaard/player-auction/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	seedPath := flag.String("seed", "", "optional JSON file with the player pool to ingest on startup")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath, *seedPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, seedPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration.
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup telemetry.
	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	// Open store using the configured driver.
	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to database", slog.String("driver", cfg.Database.Driver))

	if seedPath != "" {
		if err := seedPool(ctx, repos.Players, seedPath); err != nil {
			return fmt.Errorf("seeding player pool: %w", err)
		}
		logger.InfoContext(ctx, "player pool seeded", slog.String("file", seedPath))
	}

	players, err := repos.Players.List(ctx)
	if err != nil {
		return fmt.Errorf("loading player pool: %w", err)
	}
	teams, err := repos.Teams.List(ctx)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	if len(teams) == 0 {
		teams = cfg.Auction.TeamList()
		if err := repos.Teams.Seed(ctx, teams); err != nil {
			return fmt.Errorf("seeding teams: %w", err)
		}
		logger.InfoContext(ctx, "teams seeded from config", slog.Int("count", len(teams)))
	}

	auctionStore := auction.New(auction.NewState(players, teams), auction.Options{
		Players:        repos.Players,
		Teams:          repos.Teams,
		Logs:           repos.Logs,
		Clock:          clk,
		Logger:         logger,
		TracerProvider: tp.TracerProvider,
		RosterCap:      cfg.Auction.RosterCap,
		UndoDepth:      cfg.Auction.UndoDepth,
		BidSteps:       cfg.Auction.BidSteps,
		FinalStep:      cfg.Auction.FinalStep,
		InitialTeams:   cfg.Auction.TeamList(),
	})

	h := hub.New(ctx, auctionStore, clk, logger)

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	api := httpapi.NewAPI(repos, logger)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           httpapi.SetupRoutes(api, h, healthHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
			cancel()
		}
	}()

	healthHandler.SetReady(true)
	logger.InfoContext(ctx, "auctiond is running",
		slog.String("version", version),
		slog.Int("players", len(players)),
		slog.Int("teams", len(teams)))

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down...")

	healthHandler.SetReady(false)
	h.Inbox() <- hub.Shutdown{}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// seedPool ingests a player pool from a JSON file. File order becomes the
// canonical pool order.
func seedPool(ctx context.Context, players store.PlayerRepository, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var pool []model.Player
	if err := json.Unmarshal(data, &pool); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}
	if len(pool) == 0 {
		return fmt.Errorf("seed file %s contains no players", path)
	}
	return players.Seed(ctx, pool)
}
