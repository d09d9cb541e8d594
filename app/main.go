// Файл: main.go

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/revenant-13/maintenance-app/internal/hierarchy"
	"github.com/revenant-13/maintenance-app/internal/listeners"
	"github.com/revenant-13/maintenance-app/internal/routes"
	"github.com/revenant-13/maintenance-app/internal/services"
	"github.com/revenant-13/maintenance-app/pkg/config"
	"github.com/revenant-13/maintenance-app/pkg/customvalidator"
	"github.com/revenant-13/maintenance-app/pkg/database/postgresql"
	"github.com/revenant-13/maintenance-app/pkg/eventbus"
	applogger "github.com/revenant-13/maintenance-app/pkg/logger"
	appmw "github.com/revenant-13/maintenance-app/pkg/middleware"
	"github.com/revenant-13/maintenance-app/pkg/utils"
	"github.com/revenant-13/maintenance-app/seeders"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger *zap.Logger

	seedFile string

	rootCmd = &cobra.Command{
		Use:           "maintenance-app",
		Short:         "Учёт оборудования, запчастей и задач обслуживания",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg = config.New()
			logger = applogger.NewLogger(cfg.Log)
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP API",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:       "migrate [up|down|status|reset]",
		Short:     "Миграции схемы PostgreSQL (goose)",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status", "reset"},
		RunE:      runMigrate,
	}

	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Загрузить начальные данные из YAML (без --file используется встроенный набор)",
		RunE:  runSeed,
	}

	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "Проверить целостность иерархии оборудования",
		RunE:  runCheck,
	}
)

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "путь к YAML-файлу (по умолчанию SEED_FILE)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error("команда завершилась с ошибкой", zap.Error(err))
			_ = logger.Sync()
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
	if logger != nil {
		_ = logger.Sync()
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	cache, closeCache := openCache(ctx, cfg.Redis, logger)
	defer closeCache()

	bus := eventbus.New(logger)
	audit := listeners.NewAuditListener(logger, 500)
	audit.Register(bus)
	listeners.NewCacheListener(cache, logger, services.CacheKeyDashboard).Register(bus)

	e := echo.New()
	e.HideBanner = true
	e.Use(appmw.Recover(logger))
	e.Use(appmw.RequestLogger(logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
		ExposeHeaders: []string{"Content-Disposition"},
	}))
	e.Validator = utils.NewValidator(customvalidator.New())

	routes.InitRouter(e, routes.Dependencies{
		Tx:       store.tx,
		Backend:  store.backend,
		Cache:    cache,
		CacheTTL: cfg.Redis.CacheTTL,
		Bus:      bus,
		Audit:    audit,
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Info("🚀 Сервер запущен", zap.String("addr", addr), zap.String("storage", store.backend))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка запуска сервера: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("получен сигнал остановки, завершаем работу")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("ошибка остановки сервера", zap.Error(err))
	}
	// слушатели аудита и кеша должны успеть отработать до закрытия хранилища
	bus.Wait()
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	if cfg.Storage.Driver != config.StoragePostgres {
		return fmt.Errorf("migrate работает только с STORAGE_DRIVER=%s (сейчас %q)", config.StoragePostgres, cfg.Storage.Driver)
	}
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	pool, err := postgresql.ConnectDB(cmd.Context(), cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgresql.RunMigrations(cmd.Context(), pool, command); err != nil {
		return err
	}
	logger.Info("миграции выполнены", zap.String("command", command))
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	path := seedFile
	if path == "" {
		path = cfg.Storage.SeedFile
	}
	seed, err := seeders.Load(path)
	if err != nil {
		return err
	}

	store, err := openStorage(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	summary, err := seeders.New(store.tx, logger).Run(cmd.Context(), seed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "inventory: %d, equipment: %d, tasks: %d, skipped: %d\n",
		summary.Inventory, summary.Equipment, summary.Tasks, summary.Skipped)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	store, err := openStorage(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.close()

	report, err := hierarchy.NewEngine(store.tx).Verify(cmd.Context())
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if !report.OK() {
		return fmt.Errorf("найдено нарушений целостности: %d", len(report.Violations))
	}
	return nil
}
