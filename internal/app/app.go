package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/avstrong/arisync/internal/config"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/lock"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/migration"
	"github.com/avstrong/arisync/internal/ota"
	"github.com/avstrong/arisync/internal/rate"
	"github.com/avstrong/arisync/internal/reconcile"
	"github.com/avstrong/arisync/internal/storage/memory"
	"github.com/avstrong/arisync/internal/storage/mongodb"
	"github.com/avstrong/arisync/internal/storage/postgres"
	"github.com/avstrong/arisync/internal/transport/web"
)

// store is everything the engines need from a backend.
type store interface {
	FindInventory(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]inventory.Day, error)
	BulkSetInventoryStatus(ctx context.Context, changes []inventory.StatusChange) (inventory.BulkResult, error)
	SetInventoryStatus(ctx context.Context, change inventory.StatusChange) (inventory.BulkResult, error)
	UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error)
	DeleteInventory(ctx context.Context, hotelCode string) (int64, error)
	FindRates(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]rate.Day, error)
	UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error)
	DeleteRates(ctx context.Context, hotelCode string) (int64, error)
	DataSource(ctx context.Context, hotelCode string) (string, error)
}

type locker interface {
	Acquire(ctx context.Context, key string) (lock.Release, error)
}

func openStore(ctx context.Context, l *logger.Logger, conf *config.Config) (store, func(), error) {
	switch conf.StoreDriver {
	case config.DriverMongo:
		db, err := mongodb.New(ctx, mongodb.Config{L: l, URI: conf.MongoURI, Database: conf.MongoDatabase})
		if err != nil {
			return nil, nil, fmt.Errorf("open mongodb store: %w", err)
		}

		closeFn := func() {
			if err := db.Close(context.Background()); err != nil {
				l.LogErrorf("Failed to close mongodb: %v", err.Error())
			}
		}

		if err = db.EnsureIndexes(ctx); err != nil {
			closeFn()

			return nil, nil, fmt.Errorf("ensure mongodb indexes: %w", err)
		}

		return db, closeFn, nil
	case config.DriverPostgres:
		db, err := postgres.New(ctx, postgres.Config{L: l, DSN: conf.PostgresDSN})
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}

		if err = db.EnsureSchema(ctx); err != nil {
			db.Close()

			return nil, nil, fmt.Errorf("ensure postgres schema: %w", err)
		}

		return db, db.Close, nil
	default:
		return memory.New(memory.Config{L: l}), func() {}, nil
	}
}

func openLocker(ctx context.Context, l *logger.Logger, conf *config.Config) (locker, func(), error) {
	opts := []lock.Option{lock.WithTTL(conf.LockTTL), lock.WithWait(conf.LockWait)}

	if conf.RedisURL == "" {
		l.LogInfo("REDIS_URL is empty, hotel locks are process local")

		return lock.NewMemory(opts...), func() {}, nil
	}

	r, err := lock.NewRedis(ctx, conf.RedisURL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("open redis locker: %w", err)
	}

	return r, func() {
		if err := r.Close(); err != nil {
			l.LogErrorf("Failed to close redis: %v", err.Error())
		}
	}, nil
}

func Run(l *logger.Logger, conf config.Config) error {
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGHUP,
	)
	defer cancel()

	storage, closeStore, err := openStore(ctx, l, &conf)
	if err != nil {
		return err
	}
	defer closeStore()

	l.LogInfo("Using %s store", conf.StoreDriver)

	locks, closeLocks, err := openLocker(ctx, l, &conf)
	if err != nil {
		return err
	}
	defer closeLocks()

	if conf.SeedDemoData {
		if err = migration.Up(ctx, l, storage, time.Now()); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}

		l.LogInfo("Demo data has been seeded")
	}

	webConf := web.Conf{
		L:                 l,
		ServerLogger:      log.Default(),
		Host:              conf.HTTPHost,
		Port:              conf.HTTPPort,
		ReadHeaderTimeout: conf.HTTPReadHeaderTimeout,
		MaxBodyBytes:      conf.HTTPMaxBodyBytes,
		LivenessEndpoint:  "/liveness",
	}

	srv, err := web.New(ctx, webConf, web.Services{
		Quotes:     rate.New(l, storage),
		Inventory:  inventory.New(l, storage),
		OTA:        ota.NewProcessor(l, storage),
		Reconciler: reconcile.New(l, storage, locks),
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	//nolint:contextcheck
	go func() {
		<-ctx.Done()

		ctx, cancel := context.WithTimeout(context.Background(), conf.HTTPShutdownTimeout)
		defer cancel()

		if err := srv.Srv().Shutdown(ctx); err != nil {
			l.LogErrorf("Failed to stop http server: %v", err.Error())
		}
	}()

	l.LogInfo("Application is running on %v:%v...", webConf.Host, webConf.Port)

	if err := srv.Srv().ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		l.LogErrorf("Failed to run http server: %v", err.Error())

		cancel()
	}

	l.LogInfo("Application stopped gracefully")

	return nil
}
