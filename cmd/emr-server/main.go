package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/emr/emr/internal/config"
	"github.com/emr/emr/internal/domain/charge"
	"github.com/emr/emr/internal/domain/encounter"
	"github.com/emr/emr/internal/domain/inventory"
	"github.com/emr/emr/internal/domain/patient"
	"github.com/emr/emr/internal/domain/prescription"
	"github.com/emr/emr/internal/domain/report"
	"github.com/emr/emr/internal/domain/settings"
	"github.com/emr/emr/internal/domain/ward"
	"github.com/emr/emr/internal/platform/auth"
	"github.com/emr/emr/internal/platform/cache"
	"github.com/emr/emr/internal/platform/db"
	"github.com/emr/emr/internal/platform/metrics"
	"github.com/emr/emr/internal/platform/middleware"
	"github.com/emr/emr/internal/platform/validate"
	"github.com/emr/emr/migrations"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "emr-server",
		Short: "Hospital EMR API Server",
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
		Short: "Start the EMR API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func openPool(ctx context.Context) (*pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "emr-migrate",
	})
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
			target, _ := cmd.Flags().GetInt("to")

			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, migrations.FS)
			var count int
			if target > 0 {
				count, err = migrator.UpTo(ctx, target)
			} else {
				count, err = migrator.Up(ctx)
			}
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().Int("to", 0, "Stop after this migration version (0 applies all)")
	cmd.AddCommand(upCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
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
	})

	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	return logger.Level(level)
}

func newCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) cache.Cache {
	if cfg.RedisURL == "" {
		return cache.NewMemory()
	}
	rc, err := cache.NewRedis(ctx, cfg.RedisURL, "emr:")
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, using in-process cache")
		return cache.NewMemory()
	}
	logger.Info().Msg("connected to redis")
	return rc
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	switch {
	case cfg.AuthSigningKey != "":
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:     cfg.AuthIssuer,
			Audience:   cfg.AuthAudience,
			SigningKey: []byte(cfg.AuthSigningKey),
			Skipper:    auth.AuthSkipper,
		})
	case cfg.IsDev() && cfg.AuthIssuer == "":
		return auth.DevAuthMiddleware(auth.AuthSkipper)
	default:
		return auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
			Skipper:  auth.AuthSkipper,
		})
	}
}

// newServer builds the router and wires every domain service. It performs no
// I/O, so tests can call it with a pool that is never dialed.
func newServer(cfg *config.Config, logger zerolog.Logger, pool *pgxpool.Pool, c cache.Cache) (*echo.Echo, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validate.New()

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
		HSTS: cfg.TLSEnabled,
		Public: func(c echo.Context) bool {
			return c.Request().Method == http.MethodGet && c.Path() == "/api/settings"
		},
		PublicMaxAge: cfg.CacheTTL,
	}))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}
	e.Use(authMiddleware(cfg))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	e.GET("/metrics", metrics.Handler())

	api := e.Group("/api")
	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	api.Use(middleware.RateLimit(rateLimitCfg))

	tx := db.NewTransactor(pool)

	// Patients and HMOs
	patientSvc := patient.NewService(patient.NewPatientRepo(pool), patient.NewHMORepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	// Charge catalog
	chargeSvc := charge.NewService(charge.NewRepo(pool))
	charge.NewHandler(chargeSvc).RegisterRoutes(api)

	// Wards and beds
	wardSvc := ward.NewService(ward.NewRepo(pool), tx)
	ward.NewHandler(wardSvc).RegisterRoutes(api)

	// Encounters
	encounterSvc := encounter.NewService(encounter.NewRepo(pool), patientSvc, chargeSvc, wardSvc, tx, encounter.Options{
		Policy:   encounter.Policy(cfg.EncounterStatusPolicy),
		Location: loc,
		Logger:   logger.With().Str("component", "encounter").Logger(),
	})
	encounter.NewHandler(encounterSvc).RegisterRoutes(api)

	// Pharmacy inventory and drug metadata
	inventorySvc := inventory.NewService(inventory.NewRepo(pool), tx, inventory.Options{
		WarnDays: cfg.ExpiryWarningDays,
		Location: loc,
		Logger:   logger.With().Str("component", "inventory").Logger(),
	})
	inventory.NewHandler(inventorySvc).RegisterRoutes(api)

	// Prescriptions and dispensing
	prescriptionSvc := prescription.NewService(prescription.NewRepo(pool), encounterSvc, patientSvc, inventorySvc, tx,
		logger.With().Str("component", "prescription").Logger())
	prescription.NewHandler(prescriptionSvc).RegisterRoutes(api)

	// Settings and banks
	settingsHandler := settings.NewHandler(settings.NewService(settings.NewRepo(pool), tx, c, cfg.CacheTTL,
		logger.With().Str("component", "settings").Logger()))
	settingsHandler.RegisterPublicRoutes(api)
	settingsHandler.RegisterRoutes(api)

	// Reports
	reportSvc := report.NewService(report.NewRepo(pool), inventorySvc, wardSvc, c, report.Options{
		Location: loc,
		CacheTTL: cfg.CacheTTL,
		Logger:   logger.With().Str("component", "report").Logger(),
	})
	report.NewHandler(reportSvc).RegisterRoutes(api)

	return e, nil
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		ApplicationName: "emr-server",
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	c := newCache(ctx, cfg, logger)
	if closer, ok := c.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	e, err := newServer(cfg, logger, pool, c)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("timezone", cfg.HospitalTimezone).
			Str("status_policy", cfg.EncounterStatusPolicy).Msg("starting server")
		var err error
		if cfg.TLSEnabled {
			err = e.StartTLS(addr, cfg.TLSCertFile, cfg.TLSKeyFile)
		} else {
			err = e.Start(addr)
		}
		if err != nil && err != http.ErrServerClosed {
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
