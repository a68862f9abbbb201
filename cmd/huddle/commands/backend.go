package commands

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/huddle/internal/api"
	"github.com/dyluth/huddle/internal/config"
	"github.com/dyluth/huddle/internal/printer"
	"github.com/dyluth/huddle/internal/store/sqlite"
	"github.com/dyluth/huddle/pkg/activity"
)

// sessionStore is the read side the CLI needs from either store driver.
type sessionStore interface {
	ListSessions(ctx context.Context) ([]*activity.Session, error)
	GetSession(ctx context.Context, sessionID string) (*activity.Session, error)
	ScanSessionIDs(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

func loadConfig() (*config.HuddleConfig, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, printer.Error(
			"invalid configuration",
			err.Error(),
			[]string{"Check the file passed with --config (or HUDDLE_CONFIG) and the HUDDLE_* environment variables."},
		)
	}
	return cfg, nil
}

// connectRedis opens and verifies the instance's Redis client.
func connectRedis(ctx context.Context, cfg *config.HuddleConfig) (*activity.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, printer.Error("invalid redis_url", err.Error(), []string{"Use a URL like redis://localhost:6379"})
	}
	client, err := activity.NewClient(opts, cfg.InstanceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.ErrorWithContext(
			"Redis not accessible",
			err.Error(),
			map[string]string{"Instance": cfg.InstanceName, "Redis": cfg.RedisURL},
			[]string{"Start Redis, or point REDIS_URL at a running server."},
		)
	}
	return client, nil
}

// openStore opens the session store selected by store.driver.
func openStore(ctx context.Context, cfg *config.HuddleConfig) (sessionStore, error) {
	if cfg.Store.Driver == config.DriverSQLite {
		store, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, printer.Error("failed to open SQLite store", err.Error(), nil)
		}
		return store, nil
	}
	return connectRedis(ctx, cfg)
}

// apiClient builds a client for write commands, acting as --as.
func apiClient() (*api.Client, error) {
	if actorID == "" {
		return nil, printer.Error(
			"no actor",
			"Write commands need an actor identity.",
			[]string{"Pass --as <actor-id> or set HUDDLE_ACTOR."},
		)
	}
	actor := activity.Actor{ID: actorID, Name: actorName, Role: activity.RoleMember}
	if actor.Name == "" {
		actor.Name = actorID
	}
	if actorAdmin {
		actor.Role = activity.RoleAdmin
	}
	return api.NewClient(serverURL, actor), nil
}
