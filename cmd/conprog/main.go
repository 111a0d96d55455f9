package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"conprog/internal/api"
	"conprog/internal/cache"
	"conprog/internal/checks"
	"conprog/internal/config"
	"conprog/internal/db"
	"conprog/internal/events"
	"conprog/internal/export"
	"conprog/internal/metrics"
	"conprog/internal/model"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $CONPROG_CONFIG_PATH or configs/config.yaml)")
	importPath := flag.String("import", "", "JSON file of programme records to import before starting")
	once := flag.Bool("once", false, "run the enabled checks once and exit")
	deleteBundle := flag.Int64("delete-bundle", 0, "delete the kit bundle with this id using kit.bundle_delete_policy and exit")
	flag.Parse()

	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	path := *configPath
	if path == "" {
		path = os.Getenv("CONPROG_CONFIG_PATH")
	}
	cfg, err := config.Load(path)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
		logger = logger.Level(level)
	} else {
		logger.Warn().Str("level", cfg.Logging.Level).Msg("unknown log level, using info")
		logger = logger.Level(zerolog.InfoLevel)
	}

	registry := checks.Default()
	if err := cfg.ValidateChecks(registry.Names()); err != nil {
		logger.Fatal().Err(err).Msg("invalid check list")
	}
	policy, err := db.ParseBundleDeletePolicy(cfg.Kit.BundleDeletePolicy)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid kit policy")
	}

	database, err := db.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Convention.Path != "" {
		conv, err := config.LoadConvention(cfg.Convention.Path)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to load convention")
		}
		created, err := database.Bootstrap(ctx, conv)
		if err != nil {
			logger.Fatal().Err(err).Msg("bootstrap error")
		}
		if created {
			logger.Info().Str("convention", conv.String()).Msg("convention bootstrapped")
		}
	}

	if *importPath != "" {
		if err := importFile(ctx, database, *importPath); err != nil {
			logger.Fatal().Err(err).Str("path", *importPath).Msg("import error")
		}
		logger.Info().Str("path", *importPath).Msg("programme imported")
	}

	if _, err := database.LoadSnapshot(ctx); err != nil {
		if errors.Is(err, model.ErrSentinel) {
			logger.Fatal().Err(err).Msg("invalid programme configuration")
		}
		logger.Error().Err(err).Msg("initial snapshot load failed")
	}

	if *deleteBundle != 0 {
		if err := database.DeleteBundle(ctx, *deleteBundle, policy); err != nil {
			logger.Fatal().Err(err).Int64("bundle_id", *deleteBundle).Msg("delete bundle error")
		}
		logger.Info().Int64("bundle_id", *deleteBundle).Str("policy", string(policy)).Msg("bundle deleted")
		return
	}

	metrics.Register()

	bus := events.NewEventBus()
	bus.OnError(func(ev events.Event, err error) {
		logger.Error().Err(err).Str("event", ev.Type).Msg("event handler failed")
	})
	bus.Subscribe(events.CheckFailed, func(ev events.Event) error {
		var ce checks.CheckEvent
		if err := ev.Decode(&ce); err != nil {
			return err
		}
		logger.Warn().Str("check", ce.Check).Str("run_id", ce.RunID).Str("error", ce.Error).Msg("check failed")
		return nil
	})

	var rdb *redis.Client
	var store api.RunStore
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		results := cache.NewResultCache(rdb, cfg.RedisTTL(), &logger)
		bus.Subscribe(events.RunCompleted, results.HandleRunCompleted)
		store = results
	}

	runner := checks.NewRunner(registry, metrics.Recorder{}, bus, &logger)
	if err := runner.SetEnabled(cfg.Checks.Enabled); err != nil {
		logger.Fatal().Err(err).Msg("enable checks")
	}

	scheduler := checks.NewScheduler(database, runner, cfg.CheckInterval(), cfg.Availability.NoAvailMeansAlwaysAvail, &logger)
	if cfg.Export.Enabled {
		exporter := export.NewExporter(cfg.Export.Path, &logger)
		scheduler.OnRun(exporter.HandleRun)
	}

	if *once {
		run, err := scheduler.RunNow(ctx)
		if run != nil {
			logger.Info().Str("run_id", run.ID).Int("violations", run.Total()).Int("failed", len(run.Failures)).Msg("checks finished")
		}
		if err != nil {
			logger.Error().Err(err).Msg("check run failed")
			os.Exit(1)
		}
		return
	}

	watcher := config.NewWatcher(path, 10*time.Second, &logger)
	err = watcher.Start(ctx, func(updated *config.Config) {
		if err := updated.ValidateChecks(registry.Names()); err != nil {
			logger.Error().Err(err).Msg("ignoring config reload")
			return
		}
		if err := runner.SetEnabled(updated.Checks.Enabled); err != nil {
			logger.Error().Err(err).Msg("ignoring config reload")
			return
		}
		scheduler.SetPolicy(updated.Availability.NoAvailMeansAlwaysAvail)
		logger.Debug().Strs("checks", runner.Enabled()).Msg("config applied")
	})
	if err != nil {
		logger.Error().Err(err).Msg("config watch error")
	}

	backups := db.NewBackupService(database, cfg.Backup, &logger)
	go backups.Start(ctx)

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	server := api.NewHTTPServer(cfg.Monitoring.HealthCheckPort, scheduler, registry, database, store, cfg.Checks.ManualRunsPerMinute, &logger)
	server.AddReadyCheck("db", database.PingContext)
	if rdb != nil {
		server.AddReadyCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	}
	go func() {
		if err := server.Start(ctx); err != nil {
			logger.Error().Err(err).Msg("API server error")
		}
	}()

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Strs("checks", runner.Enabled()).Msg("conprog started")
	scheduler.Start(ctx)
}

func importFile(ctx context.Context, database *db.DB, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var c model.Collections
	if err := json.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return database.ImportCollections(ctx, c)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
