package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"apiconform/config"
	"apiconform/internal/fakeexchange"
	"apiconform/logger"
	"apiconform/scenario"
	"apiconform/writer"
)

func main() {
	os.Exit(run())
}

func run() int {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	envName := flag.String("env", "", "Target environment (defaults to TEST_ENV)")
	runFilter := flag.String("run", "", "Comma-separated scenario ids or tags")
	fake := flag.Bool("fake", false, "Run against the in-process exchange double")
	capture := flag.Bool("capture", false, "Archive collected websocket frames as parquet")
	flag.Parse()

	env := *envName
	if env == "" {
		env = config.Environment(os.LookupEnv)
	}
	cfg, err := config.Build(
		config.EnvironmentDefaults(env),
		config.YAMLFile(*configPath),
		config.EnvOverrides(os.LookupEnv),
	)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}
	if cfg.Logging.Dir != "" {
		path, err := log.ConfigureDir(cfg.Logging.Dir, cfg.Logging.MaxAge, time.Now())
		if err != nil {
			log.WithError(err).Error("Failed to open log directory")
			return 1
		}
		log.WithFields(logger.Fields{"path": path}).Info("logging to file")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Logging.CloudWatch {
		logger.InitCloudWatch(ctx, cfg.Logging.Region, cfg.Logging.Namespace, cfg.Logging.DashboardName)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	log.WithFields(logger.Fields{
		"service":     cfg.Harness.Name,
		"version":     cfg.Harness.Version,
		"environment": cfg.Harness.Environment,
		"fake":        *fake,
	}).Info("starting apiconform")

	if *fake {
		srv := fakeexchange.New(fakeexchange.Options{
			Instruments:         []string{cfg.Instruments.Primary, cfg.Instruments.Secondary},
			SnapshotIntervalMs:  cfg.Book.SnapshotIntervalMs,
			HeartbeatIntervalMs: cfg.Book.HeartbeatIntervalMs,
			PingInterval:        time.Second,
			APIKey:              cfg.WebSocket.APIKey,
			SecretKey:           cfg.WebSocket.SecretKey,
		})
		if err := srv.Start("127.0.0.1:0"); err != nil {
			log.WithError(err).Error("failed to start exchange double")
			return 1
		}
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			if err := srv.Close(shutdownCtx); err != nil {
				log.WithError(err).Warn("exchange double shutdown")
			}
		}()
		cfg.REST.BaseURL = srv.RESTURL()
		cfg.WebSocket.MarketURL = srv.MarketURL()
		cfg.WebSocket.UserURL = srv.UserURL()
	}
	if *capture {
		cfg.Storage.Capture.Enabled = true
	}

	runID := uuid.NewString()
	var captureWriter *writer.CaptureWriter
	if cfg.Storage.Capture.Enabled || cfg.Storage.S3.Enabled {
		captureWriter, err = writer.NewCaptureWriter(ctx, cfg.Storage, runID)
		if err != nil {
			log.WithError(err).Error("failed to create capture writer")
			return 1
		}
	}

	var filters []string
	if *runFilter != "" {
		filters = strings.Split(*runFilter, ",")
	}
	runner := scenario.NewRunner(scenario.NewEnv(runID, cfg, captureWriter), scenario.All(cfg.Instruments))
	summary := runner.Run(ctx, filters)

	if captureWriter != nil {
		flushCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
		paths, err := captureWriter.Flush(flushCtx)
		stop()
		if err != nil {
			log.WithError(err).Error("capture flush failed")
		} else {
			log.WithFields(logger.Fields{"files": paths}).Info("capture flushed")
		}
	}

	for _, res := range summary.Results {
		if !res.Passed {
			log.WithFields(logger.Fields{"scenario": res.ID, "name": res.Name}).WithError(res.Err).Warn("failed scenario")
		}
	}
	logger.LogReport(ctx, log)
	log.WithFields(logger.Fields{
		"run_id":      summary.RunID,
		"passed":      summary.Passed,
		"failed":      summary.Failed,
		"duration_ms": summary.Duration.Milliseconds(),
	}).Info("apiconform finished")

	if !summary.OK() {
		return 1
	}
	return 0
}
