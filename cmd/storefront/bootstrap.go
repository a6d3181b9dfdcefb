package main

import (
	"context"
	"fmt"
	"io"

	"github.com/angelmondragon/storefront/pkg/config"
	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/redis"
	"github.com/angelmondragon/storefront/pkg/storage"
)

// openStore returns the configured backend and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, logg *logger.Logger) (storage.Store, func() error, error) {
	driver, err := cfg.Storage.DriverKind()
	if err != nil {
		return nil, nil, err
	}

	switch driver {
	case enums.StorageDriverMemory:
		return storage.NewMemory(), func() error { return nil }, nil

	case enums.StorageDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, cfg.Storage.Namespace, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap redis: %w", err)
		}
		return client, client.Close, nil

	case enums.StorageDriverSQLite, enums.StorageDriverPostgres:
		client, err := db.New(ctx, driver, cfg.DB, logg)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap database: %w", err)
		}
		kv, err := db.NewKVStore(ctx, client.DB(), cfg.Storage.Namespace)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return kv, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unsupported storage driver %q", driver)
}

// loggerOptions keeps production output machine readable and turns on warn
// stacks for local development.
func loggerOptions(app config.AppConfig, out io.Writer) logger.Options {
	format := app.LogFormat
	if app.IsProd() {
		format = "json"
	}
	return logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(app.LogLevel),
		WarnStack:   app.LogWarnStack || app.IsDev(),
		Format:      format,
		Output:      out,
	}
}
