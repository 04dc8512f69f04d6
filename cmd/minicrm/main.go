package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minicrm/internal/auth"
	"minicrm/internal/config"
	"minicrm/internal/crm"
	"minicrm/internal/db"
	httpx "minicrm/internal/http"
	"minicrm/internal/idempotency"
	"minicrm/internal/logging"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "minicrm",
	Short:         "Contacts and tasks CRM API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Migrate the schema and serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, gdb, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return serve(cfg, log, gdb)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update tables and indexes",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, log, gdb, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Info("schema up to date")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all contacts and tasks with sample data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, gdb, err := bootstrap()
		if err != nil {
			return err
		}
		if err := db.AutoMigrateAndIndexes(gdb); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		svc := crm.NewService(gdb, crm.Paging{Default: cfg.PageSize, Max: cfg.MaxPageSize})
		seed := uint64(time.Now().UnixNano())
		res, err := svc.Seed(cmd.Context(), rand.New(rand.NewPCG(seed, seed>>1)))
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"contacts": res.Contacts, "tasks": res.Tasks}).Info("seeded")
		return nil
	},
}

var flagUserID uint64

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Print a bearer token for a user id (local testing)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagUserID == 0 {
			return errors.New("--user-id is required")
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		tok, err := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL).Sign(flagUserID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

func init() {
	tokenCmd.Flags().Uint64Var(&flagUserID, "user-id", 0, "subject of the token")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(seedCmd)
}

func bootstrap() (config.Config, *logrus.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return cfg, nil, nil, err
	}
	gdb, err := db.Connect(cfg.DBDriver, cfg.DatabaseURL, log)
	if err != nil {
		return cfg, nil, nil, err
	}
	return cfg, log, gdb, nil
}

func serve(cfg config.Config, log *logrus.Logger, gdb *gorm.DB) error {
	var idem *idempotency.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("REDIS_URL: %w", err)
		}
		rc := redis.NewClient(opts)
		defer rc.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err = rc.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping: %w", err)
		}
		idem = idempotency.New(rc, cfg.IdempotencyTTL)
		log.Info("idempotency keys enabled")
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL)
	r := httpx.NewRouter(cfg, gdb, jwtSvc, idem, log)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case sig := <-ch:
		log.WithField("signal", sig.String()).Info("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
