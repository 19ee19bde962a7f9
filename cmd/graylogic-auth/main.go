// Gray Logic Auth - identity and role service
//
// This is the main entry point for the Gray Logic auth service. It owns
// user accounts and roles, issues short-lived HS256 access tokens, and
// publishes auth events to the building's MQTT bus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/nerrad567/gray-logic-auth/migrations"

	"github.com/nerrad567/gray-logic-auth/internal/api"
	"github.com/nerrad567/gray-logic-auth/internal/audit"
	"github.com/nerrad567/gray-logic-auth/internal/auth"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-auth/internal/infrastructure/mqtt"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// auditSource tags audit rows written by this process.
const auditSource = "api"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Gray Logic Auth",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database
	db, err := database.Open(ctx, database.Config{
		Driver:      cfg.Database.Driver,
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
		DSN:         cfg.Database.DSN,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "driver", db.Dialect().String())

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Stores
	hasher, err := auth.NewHasher(cfg.Security.Password.Algorithm, cfg.Security.Password.BcryptCost)
	if err != nil {
		return fmt.Errorf("configuring password hasher: %w", err)
	}
	creds := auth.NewCredentialStore(db.DB, db.Dialect(), hasher)
	roles := auth.NewRoleRegistry(db.DB, db.Dialect())
	auditRepo := audit.NewRepository(db.DB, db.Dialect())

	issuer, err := auth.NewTokenIssuer(auth.IssuerConfig{
		SigningKey: []byte(cfg.Security.JWT.Secret),
		Issuer:     cfg.Security.JWT.Issuer,
		Audience:   cfg.Security.JWT.Audience,
	})
	if err != nil {
		return fmt.Errorf("configuring token issuer: %w", err)
	}

	healthChecks := map[string]api.HealthChecker{"database": db}
	sinks := auth.MultiSink{audit.NewSink(auditRepo, auditSource, log.Logger)}

	// Background workers stop when run returns, including on startup errors.
	workCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	g, gctx := errgroup.WithContext(workCtx)

	// MQTT event bus (optional)
	var events *mqtt.EventPublisher
	if cfg.MQTT.Enabled {
		mqttClient, connErr := mqtt.Connect(cfg.MQTT)
		if connErr != nil {
			return fmt.Errorf("connecting to MQTT: %w", connErr)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
			"topics", mqttClient.Topics().AllEvents(),
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		events = mqtt.NewEventPublisher(mqttClient, mqtt.DefaultEventQueueSize, log)
		g.Go(func() error { return events.Run(gctx) })

		sinks = append(sinks, mqttSink(events, log))
		healthChecks["mqtt"] = mqttClient
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB metrics (optional)
	if cfg.InfluxDB.Enabled {
		influxClient, connErr := influxdb.Connect(cfg.InfluxDB)
		if connErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", connErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		sinks = append(sinks, influxSink(influxClient, cfg.Service.ID))
		healthChecks["influxdb"] = influxClient
	} else {
		log.Info("InfluxDB disabled")
	}

	// Bootstrap roles and the first admin
	if err := auth.EnsureDefaultRoles(ctx, roles, log.Logger); err != nil {
		return fmt.Errorf("creating default roles: %w", err)
	}
	if cfg.Security.SeedAdmin {
		seedOpts := auth.SeedOptions{
			Password:     cfg.Security.SeedAdminPassword,
			PasswordFile: cfg.Security.SeedAdminPasswordFile,
		}
		if _, err := auth.SeedAdmin(ctx, creds, roles, sinks, log.Logger, seedOpts); err != nil {
			return fmt.Errorf("seeding admin account: %w", err)
		}
	}

	service, err := auth.NewService(auth.ServiceConfig{
		Credentials: creds,
		Roles:       roles,
		Issuer:      issuer,
		Events:      sinks,
		Logger:      log.Logger,
	})
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}

	if err := healthCheck(ctx, healthChecks); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	deps := api.Deps{
		Config:       cfg.API,
		Logger:       log,
		Service:      service,
		Authorizer:   auth.NewAuthorizer(issuer),
		AuditRepo:    auditRepo,
		DB:           db.DB,
		HealthChecks: healthChecks,
		Version:      version,
	}
	if events != nil {
		deps.EventStats = events
	}
	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, cleaning up")
	// Deferred Close() calls run in reverse order:
	// API server, InfluxDB, MQTT, database.
	log.Info("Gray Logic Auth stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GRAYLOGIC_AUTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GRAYLOGIC_AUTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck probes every component concurrently and returns the first
// failure, prefixed with the component name.
func healthCheck(ctx context.Context, checks map[string]api.HealthChecker) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, checker := range checks {
		g.Go(func() error {
			if err := checker.HealthCheck(gctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
