package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/huddle/internal/api"
	"github.com/dyluth/huddle/internal/broadcast"
	"github.com/dyluth/huddle/internal/config"
	"github.com/dyluth/huddle/internal/dispatch"
	"github.com/dyluth/huddle/internal/notify"
	"github.com/dyluth/huddle/internal/relay"
	"github.com/dyluth/huddle/internal/store/sqlite"
	"github.com/dyluth/huddle/internal/variant"
	"github.com/dyluth/huddle/pkg/activity"
)

// shutdownTimeout bounds how long in-flight requests get after a signal.
const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load configuration (file optional, env always applies)
	cfg, err := config.Load(os.Getenv("HUDDLE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg, nil); err != nil {
		fmt.Fprintf(os.Stderr, "huddled error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("huddled stopped")
}

// run wires the stack described by cfg and serves until ctx is cancelled.
// ready, when non-nil, receives the server once it is listening.
func run(ctx context.Context, cfg *config.HuddleConfig, ready chan<- *api.Server) error {
	// Redis is always required: it carries host messages, snapshots,
	// notifications and counters even when sessions live in SQLite.
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis_url: %w", err)
	}
	client, err := activity.NewClient(redisOpts, cfg.InstanceName)
	if err != nil {
		return fmt.Errorf("failed to create Redis client: %w", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return fmt.Errorf("redis not accessible: %w", err)
	}

	var store dispatch.Store = client
	if cfg.Store.Driver == config.DriverSQLite {
		sqliteStore, err := sqlite.Open(cfg.Store.SQLitePath)
		if err != nil {
			return err
		}
		defer sqliteStore.Close()
		store = sqliteStore
	}

	var notifier relay.Notifier
	if *cfg.Notify.Enabled {
		notifier = notify.New(notify.NewRedisDispatcher(client))
	}

	r := relay.New(relay.Options{
		InstanceName:    cfg.InstanceName,
		BufferSize:      cfg.Relay.BufferSize,
		DeliveryTimeout: cfg.Relay.DeliveryTimeout,
	}, broadcast.New(client), notifier, client)
	// Deliveries outlive ctx so Stop can drain after a signal.
	r.Start(context.Background())
	defer r.Stop()

	d := dispatch.New(store, client, r, variant.Builtin(), dispatch.Options{
		InstanceName:    cfg.InstanceName,
		MaxWriteRetries: cfg.WriteRetries(),
		MaxPayloadBytes: cfg.Dispatch.MaxPayloadBytes,
		Limits: variant.Limits{
			MaxTextLength: cfg.Limits.MaxTextLength,
			MaxEntries:    cfg.Limits.MaxEntries,
		},
	})

	server := api.NewServer(d, client, client)
	if err := server.Start(cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	logEvent(cfg.InstanceName, "server_started", map[string]interface{}{
		"addr":         cfg.HTTP.Addr,
		"store_driver": cfg.Store.Driver,
		"notify":       *cfg.Notify.Enabled,
		"types":        len(d.Registry().Types()),
	})
	if ready != nil {
		ready <- server
	}

	<-ctx.Done()
	log.Printf("[Server] Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}

	logEvent(cfg.InstanceName, "server_stopped", map[string]interface{}{})
	return nil
}

// logEvent logs a structured event in JSON format.
func logEvent(instanceName, eventType string, data map[string]interface{}) {
	data["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	data["level"] = "info"
	data["component"] = "server"
	data["event_type"] = eventType
	data["instance"] = instanceName

	jsonData, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Server] Failed to marshal log event: %v", err)
		return
	}

	log.Println(string(jsonData))
}
