package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/config"
	"github.com/planttracer/odb/internal/store"
)

// OpenStore connects the backend selected by STORE_TYPE and wraps it with
// the configured table prefix.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (*store.Store, error) {
	var backend store.Backend

	switch cfg.StoreType {
	case config.StoreSQL:
		db, err := Connect(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		backend = store.NewSQLBackend(db)

	case config.StoreRedis:
		client, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		backend = store.NewRedisBackend(client)

	case config.StoreDynamoDB:
		client, err := NewDynamoDB(ctx, cfg.AWS)
		if err != nil {
			return nil, err
		}
		backend = store.NewDynamoDBBackend(client)

	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}

	st, err := store.New(backend, cfg.TablePrefix, log.Named("store"))
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	log.Info("Store opened", zap.String("backend", backend.Name()), zap.String("prefix", cfg.TablePrefix))
	return st, nil
}
