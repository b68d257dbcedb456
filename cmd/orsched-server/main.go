package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orsched/orsched/internal/config"
	"github.com/orsched/orsched/internal/domain/codered"
	"github.com/orsched/orsched/internal/domain/planner"
	"github.com/orsched/orsched/internal/domain/resources"
	"github.com/orsched/orsched/internal/domain/schedule"
	"github.com/orsched/orsched/internal/domain/waitlist"
	"github.com/orsched/orsched/internal/platform/db"
	"github.com/orsched/orsched/internal/platform/estimator"
	"github.com/orsched/orsched/internal/platform/middleware"
	"github.com/orsched/orsched/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orsched-server",
		Short: "Surgical scheduling and re-optimization server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal().Msg("DATABASE_URL is required")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: strings.Split(cfg.CORSOrigins, ","),
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	apiV1 := e.Group("/api/v1")

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Notification outbox. Intents go to the structured log until a real
	// delivery gateway is configured.
	outbox := notification.NewOutbox(notification.NewLogDispatcher(logger), notification.NewTemplateEngine())
	notifHandler := notification.NewHandler(outbox)
	notifHandler.RegisterRoutes(apiV1)

	// Waitlist domain
	wlRepo := waitlist.NewRepoPG(pool)
	wlSvc := waitlist.NewService(wlRepo)
	wlHandler := waitlist.NewHandler(wlSvc)
	wlHandler.RegisterRoutes(apiV1)

	// Resources domain and the green-corridor reservation manager
	roomRepo := resources.NewRoomRepoPG(pool)
	surgeonRepo := resources.NewSurgeonRepoPG(pool)
	equipRepo := resources.NewEquipmentRepoPG(pool)
	resSvc := resources.NewService(roomRepo, surgeonRepo, equipRepo, cfg.DayStartHour, cfg.DayEndHour)

	corridor := resources.NewCorridorManager(
		time.Duration(cfg.CorridorQuietHours)*time.Hour,
		cfg.CorridorFloorPct,
		func(free, total int) {
			logger.Warn().
				Int("free_corridor_rooms", free).
				Int("total_rooms", total).
				Msg("emergency capacity floor alert")
		},
		logger,
	)
	trackCorridorRooms(ctx, resSvc, corridor, cfg.CorridorReservePct, logger)

	resHandler := resources.NewHandler(resSvc, corridor)
	resHandler.RegisterRoutes(apiV1)

	// Schedule store and the solve coordinator
	store := schedule.NewPGStore(pool)
	est := estimator.NewTableEstimator(nil)
	plannerSvc := planner.NewService(wlSvc, resSvc, corridor, est, store, outbox, planner.Options{
		HorizonDays:    cfg.HorizonDays,
		BufferMinutes:  cfg.BufferMinutes,
		UrgentWaitDays: cfg.UrgentWaitDays,
		SolveBudget:    cfg.SolveBudget(),
	}, logger)
	plannerHandler := planner.NewHandler(plannerSvc)
	plannerHandler.RegisterRoutes(apiV1)

	// Code Red reallocator, linked to the planner for preemption and re-solve
	sessionRepo := codered.NewSessionRepoPG(pool)
	auditRepo := codered.NewAuditRepoPG(pool)
	coderedSvc := codered.NewService(sessionRepo, auditRepo, corridor, resSvc, wlSvc, store, outbox, cfg.ResolutionBonus, logger)
	coderedSvc.SetReplanner(plannerSvc)
	coderedHandler := codered.NewHandler(coderedSvc)
	coderedHandler.RegisterRoutes(apiV1)

	// Resume from the last committed schedule version rather than re-solving
	// on every restart.
	if latest, err := store.LoadLatest(ctx); err == nil {
		logger.Info().
			Int("version", latest.Version).
			Str("status", latest.Status).
			Int("surgeries", len(latest.Surgeries)).
			Msg("resuming from committed schedule")
	} else if errors.Is(err, schedule.ErrNoSchedule) {
		logger.Info().Msg("no committed schedule yet, waiting for first solve")
	} else {
		logger.Error().Err(err).Msg("failed to load latest schedule")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// trackCorridorRooms registers every active green-corridor room with the
// manager and warns when the corridor share of the room pool is below the
// configured reserve percentage.
func trackCorridorRooms(ctx context.Context, resSvc *resources.Service, corridor *resources.CorridorManager, reservePct int, logger zerolog.Logger) {
	rooms, err := resSvc.ListActiveRooms(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list rooms for corridor tracking")
		return
	}
	corridorCount := 0
	for _, r := range rooms {
		if r.IsCorridor() {
			corridor.Track(r.ID)
			corridorCount++
		}
	}
	if len(rooms) > 0 && corridorCount*100 < reservePct*len(rooms) {
		logger.Warn().
			Int("corridor_rooms", corridorCount).
			Int("total_rooms", len(rooms)).
			Int("reserve_pct", reservePct).
			Msg("green-corridor capacity below configured reserve")
	}
	logger.Info().Int("corridor_rooms", corridorCount).Int("total_rooms", len(rooms)).Msg("corridor rooms tracked")
}
