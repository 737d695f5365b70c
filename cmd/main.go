package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	_ "github.com/lib/pq"

	"github.com/m04kA/SMC-BookingEngine/internal/api"
	"github.com/m04kA/SMC-BookingEngine/internal/config"
	bookingRepo "github.com/m04kA/SMC-BookingEngine/internal/infra/storage/booking"
	"github.com/m04kA/SMC-BookingEngine/internal/infra/storage/memory"
	settingsRepo "github.com/m04kA/SMC-BookingEngine/internal/infra/storage/settings"
	sellerServiceClient "github.com/m04kA/SMC-BookingEngine/internal/integrations/sellerservice"
	bookingsService "github.com/m04kA/SMC-BookingEngine/internal/service/bookings"
	settingsService "github.com/m04kA/SMC-BookingEngine/internal/service/settings"
	createBookingUC "github.com/m04kA/SMC-BookingEngine/internal/usecase/create_booking"
	getAvailableSlotsUC "github.com/m04kA/SMC-BookingEngine/internal/usecase/get_available_slots"
	"github.com/m04kA/SMC-BookingEngine/migrations"
	"github.com/m04kA/SMC-BookingEngine/pkg/dbmetrics"
	"github.com/m04kA/SMC-BookingEngine/pkg/logger"
	"github.com/m04kA/SMC-BookingEngine/pkg/metrics"
	"github.com/m04kA/SMC-BookingEngine/pkg/txmanager"
)

// bookingStore хранилище бронирований (PostgreSQL или in-memory)
type bookingStore interface {
	createBookingUC.BookingRepository
	bookingsService.BookingRepository
}

// settingsStore хранилище настроек расписания
type settingsStore interface {
	settingsService.SettingsRepository
}

// txManager менеджер транзакций, общий для use cases и сервисов
type txManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

type storage struct {
	bookings  bookingStore
	settings  settingsStore
	txManager txManager
	close     func()
}

func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	flag.Parse()

	// Загружаем конфигурацию
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализируем логгер
	log, err := logger.New(cfg.Logs.File, cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("Starting SMC-BookingEngine...")
	log.Info("Configuration loaded from %s (storage=%s, conflict_scope=%s)",
		*configPath, cfg.Storage.Driver, cfg.Booking.ConflictScope)

	scope, err := cfg.ConflictScope()
	if err != nil {
		log.Fatal("Invalid conflict scope: %v", err)
	}
	defaultLoc, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid default timezone: %v", err)
	}

	// Инициализируем метрики (если включены)
	var metricsCollector *metrics.Metrics
	stopMetricsCh := make(chan struct{})

	if cfg.Metrics.Enabled {
		metricsCollector = metrics.New(cfg.Metrics.ServiceName)
		log.Info("Metrics enabled at %s", cfg.Metrics.Path)
	}

	// Инициализируем хранилище
	store, err := openStorage(cfg, metricsCollector, stopMetricsCh, log)
	if err != nil {
		log.Fatal("Failed to initialize storage: %v", err)
	}
	defer store.close()

	// Инициализируем каталог бизнесов и услуг
	var catalog createBookingUC.Catalog
	if cfg.SellerService.CatalogPath != "" {
		static, err := sellerServiceClient.LoadCatalog(cfg.SellerService.CatalogPath, defaultLoc)
		if err != nil {
			log.Fatal("Failed to load catalog: %v", err)
		}
		catalog = static
		log.Info("Static catalog loaded from %s", cfg.SellerService.CatalogPath)
	} else {
		catalog = sellerServiceClient.NewClient(
			cfg.SellerService.URL,
			config.Duration(cfg.SellerService.Timeout),
			defaultLoc,
			log,
		)
		log.Info("SellerService client initialized (url=%s, timeout=%ds)",
			cfg.SellerService.URL, cfg.SellerService.Timeout)
	}

	// Инициализируем use cases и сервисы
	createBookingUseCase := createBookingUC.NewUseCase(
		store.bookings,
		store.settings,
		catalog,
		store.txManager,
		scope,
		log,
	)
	getAvailableSlotsUseCase := getAvailableSlotsUC.NewUseCase(
		store.bookings,
		store.settings,
		catalog,
		scope,
		log,
	)
	bookingSvc := bookingsService.NewService(store.bookings, catalog, store.txManager, log)
	settingsSvc := settingsService.NewService(store.settings, catalog, store.txManager, log)

	// Настраиваем роутер
	r := api.NewRouter(api.Deps{
		CreateBooking:     createBookingUseCase,
		GetAvailableSlots: getAvailableSlotsUseCase,
		Bookings:          bookingSvc,
		Settings:          settingsSvc,
		Metrics:           metricsCollector,
		MetricsPath:       cfg.Metrics.Path,
		Logger:            log,
	})

	// Создаем HTTP сервер
	addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  config.Duration(cfg.Server.ReadTimeout),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
		IdleTimeout:  config.Duration(cfg.Server.IdleTimeout),
	}

	// Graceful shutdown
	go func() {
		log.Info("Starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start: %v", err)
		}
	}()

	// Ожидаем сигнал завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Останавливаем сбор метрик connection pool
	close(stopMetricsCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Duration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	log.Info("Server stopped gracefully")
}

// openStorage создает хранилище по storage.driver
func openStorage(cfg *config.Config, m *metrics.Metrics, stopCh <-chan struct{}, log *logger.Logger) (*storage, error) {
	if cfg.Storage.Driver == config.StorageDriverMemory {
		log.Warn("Using in-memory storage: data is lost on restart")
		return &storage{
			bookings:  memory.NewBookingStore(),
			settings:  memory.NewSettingsStore(),
			txManager: memory.NewTxManager(),
			close:     func() {},
		}, nil
	}

	// Подключаемся к базе данных
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Настраиваем connection pool
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	// Проверяем соединение
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Info("Successfully connected to database (host=%s, port=%d, db=%s)",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)

	if cfg.Database.AutoMigrate {
		if err := migrations.Up(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		log.Info("Database migrations applied")
	}

	// Обертка с метриками; при выключенных метриках m == nil и запросы не наблюдаются
	wrappedDB := dbmetrics.WrapWithDefault(db, m, cfg.Metrics.ServiceName, stopCh)

	opts := []txmanager.Option{
		txmanager.WithMaxRetries(cfg.Database.MaxTxRetries),
		txmanager.WithRetryDelay(
			time.Duration(cfg.Database.TxRetryDelay)*time.Millisecond,
			txmanager.DefaultRetryBackoff,
		),
		txmanager.WithLogger(log),
	}
	if m != nil {
		opts = append(opts, txmanager.WithRetryRecorder(m))
	}

	return &storage{
		bookings:  bookingRepo.NewRepository(wrappedDB),
		settings:  settingsRepo.NewRepository(wrappedDB),
		txManager: txmanager.NewTransactionManager(wrappedDB, opts...),
		close:     func() { db.Close() },
	}, nil
}
