// Package devstores starts throwaway store servers in containers for local
// development and integration tests.
package devstores

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/config"
)

const startupTimeout = 60 * time.Second

// Images selects what to start. Empty images are skipped.
type Images struct {
	DB       string
	Redis    string
	DynamoDB string
}

// ImagesFromEnv reads DB_IMAGE, REDIS_IMAGE and DYNAMODB_IMAGE.
func ImagesFromEnv() Images {
	return Images{
		DB:       os.Getenv("DB_IMAGE"),
		Redis:    os.Getenv("REDIS_IMAGE"),
		DynamoDB: os.Getenv("DYNAMODB_IMAGE"),
	}
}

// Containers are the running store servers and how to reach them.
type Containers struct {
	DB       testcontainers.Container
	Redis    testcontainers.Container
	DynamoDB testcontainers.Container

	DBConfig         config.DatabaseConfig
	RedisAddr        string
	DynamoDBEndpoint string
}

// StartDB starts a mariadb, mysql or postgres server whose application
// user and database come from cfg. The returned config points at the
// mapped host port.
func StartDB(ctx context.Context, image string, cfg config.DatabaseConfig) (testcontainers.Container, config.DatabaseConfig, error) {
	var containerPort string
	var env map[string]string
	switch cfg.Type {
	case "postgres", "postgresql":
		containerPort = "5432"
		env = map[string]string{
			"POSTGRES_PASSWORD": cfg.AppPassword,
			"POSTGRES_USER":     cfg.AppUser,
			"POSTGRES_DB":       cfg.Database,
		}
	case "mysql", "mariadb":
		containerPort = "3306"
		env = map[string]string{
			"MYSQL_RANDOM_ROOT_PASSWORD": "yes",
			"MYSQL_DATABASE":             cfg.Database,
			"MYSQL_USER":                 cfg.AppUser,
			"MYSQL_PASSWORD":             cfg.AppPassword,
		}
	default:
		return nil, cfg, fmt.Errorf("no container for database type %q", cfg.Type)
	}

	port, err := nat.NewPort("tcp", containerPort)
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to create DB port: %w", err)
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(port)},
			Env:          env,
			WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, cfg, fmt.Errorf("failed to start database: %w", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, cfg, fmt.Errorf("failed to get database host: %w", err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, cfg, fmt.Errorf("failed to get database port: %w", err)
	}
	cfg.Host = host
	cfg.Port = mapped.Port()
	return c, cfg, nil
}

// StartRedis starts a Redis server and returns its host:port.
func StartRedis(ctx context.Context, image string) (testcontainers.Container, string, error) {
	port, err := nat.NewPort("tcp", "6379")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create Redis port: %w", err)
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(port)},
			WaitingFor:   wait.ForListeningPort(port).WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start Redis: %w", err)
	}

	addr, err := c.PortEndpoint(ctx, port, "")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get Redis endpoint: %w", err)
	}
	return c, addr, nil
}

// StartDynamoDB starts an in-memory DynamoDB Local and returns its URL.
func StartDynamoDB(ctx context.Context, image string) (testcontainers.Container, string, error) {
	port, err := nat.NewPort("tcp", "8000")
	if err != nil {
		return nil, "", fmt.Errorf("failed to create DynamoDB port: %w", err)
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        image,
			ExposedPorts: []string{string(port)},
			Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
			HostConfigModifier: func(hostConfig *container.HostConfig) {
				hostConfig.AutoRemove = true
			},
			WaitingFor: wait.ForListeningPort(port).WithStartupTimeout(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to start DynamoDB Local: %w", err)
	}

	endpoint, err := c.PortEndpoint(ctx, port, "http")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get DynamoDB endpoint: %w", err)
	}
	return c, endpoint, nil
}

// StartAll starts every store with an image set. On failure the ones
// already running are terminated.
func StartAll(ctx context.Context, images Images, dbCfg config.DatabaseConfig, log *zap.Logger) (*Containers, error) {
	cs := &Containers{DBConfig: dbCfg}
	var err error

	if images.DB != "" {
		if cs.DB, cs.DBConfig, err = StartDB(ctx, images.DB, dbCfg); err != nil {
			cs.Terminate(ctx, log)
			return nil, err
		}
		log.Info("Database started", zap.String("type", dbCfg.Type), zap.String("host", cs.DBConfig.Host), zap.String("port", cs.DBConfig.Port))
	}
	if images.Redis != "" {
		if cs.Redis, cs.RedisAddr, err = StartRedis(ctx, images.Redis); err != nil {
			cs.Terminate(ctx, log)
			return nil, err
		}
		log.Info("Redis started", zap.String("addr", cs.RedisAddr))
	}
	if images.DynamoDB != "" {
		if cs.DynamoDB, cs.DynamoDBEndpoint, err = StartDynamoDB(ctx, images.DynamoDB); err != nil {
			cs.Terminate(ctx, log)
			return nil, err
		}
		log.Info("DynamoDB Local started", zap.String("endpoint", cs.DynamoDBEndpoint))
	}
	return cs, nil
}

// Env returns the variables that point the odb executables at the running
// stores, as KEY=VALUE lines.
func (cs *Containers) Env() []string {
	var env []string
	if cs.DB != nil {
		env = append(env,
			"DB_TYPE="+cs.DBConfig.Type,
			"DB_HOST="+cs.DBConfig.Host,
			"DB_PORT="+cs.DBConfig.Port,
			"DB_DATABASE="+cs.DBConfig.Database,
			"DB_APP_USER="+cs.DBConfig.AppUser,
			"DB_APP_PASSWORD="+cs.DBConfig.AppPassword,
		)
	}
	if cs.Redis != nil {
		env = append(env, "REDIS_ADDR="+cs.RedisAddr)
	}
	if cs.DynamoDB != nil {
		env = append(env,
			"DYNAMODB_ENDPOINT="+cs.DynamoDBEndpoint,
			"AWS_ACCESS_KEY_ID=local",
			"AWS_SECRET_ACCESS_KEY=local",
		)
	}
	return env
}

// Terminate stops every started container, logging failures.
func (cs *Containers) Terminate(ctx context.Context, log *zap.Logger) {
	for name, c := range map[string]testcontainers.Container{
		"database": cs.DB,
		"redis":    cs.Redis,
		"dynamodb": cs.DynamoDB,
	} {
		if c == nil {
			continue
		}
		if err := c.Terminate(ctx); err != nil {
			log.Warn("Failed to terminate container", zap.String("container", name), zap.Error(err))
		}
	}
}
