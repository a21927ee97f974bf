package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"shift-redeemer/internal/components/chrono"
	"shift-redeemer/internal/components/logging"
	"shift-redeemer/internal/components/telemetry"
	"shift-redeemer/internal/config"

	"github.com/spf13/cobra"
)

const report_main_telemetry = "main.telemetry"

// env is what every subcommand needs before it can do anything.
type env struct {
	cfg   config.Config
	tel   telemetry.API
	clock chrono.API
	// dump is nil unless --dump-http was given.
	dump telemetry.HttpDump

	logFile io.Closer
	otel    telemetry.Otel
	stop    context.CancelFunc
}

func (e env) Close() {
	e.stop()
	err := e.otel.Shutdown(context.Background())
	if err != nil {
		e.tel.ReportWarning(report_main_telemetry, fmt.Errorf("shutdown: %w", err))
	}
	e.logFile.Close()
}

// loadConfig reads the config directory named by --config-dir, then applies the flags the user
// set explicitly on top of it.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(rootFlags.configDir)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("platform") {
		cfg.Platform = rootFlags.platform
	}
	if flags.Changed("dry-run") {
		cfg.DryRun = rootFlags.dryRun
	}

	err = cfg.Validate()
	if err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func setup(cmd *cobra.Command) (env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return env{}, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelInfo
	if rootFlags.debug {
		level = slog.LevelDebug
	}
	logFile, err := logging.Setup(os.Stderr, cfg.LogFile(), level)
	if err != nil {
		return env{}, err
	}

	tel := telemetry.SlogAPI{}

	otel, err := telemetry.SetupFromEnv(cmd.Context(), "shift-redeemer")
	if err != nil {
		tel.ReportWarning(report_main_telemetry, fmt.Errorf("setup: %w", err))
	}
	perfCtx, stop := context.WithCancel(cmd.Context())
	if otel.MeterProvider != nil {
		telemetry.InstrumentPerfStats(perfCtx, 15*time.Second, tel)
	}

	var dump telemetry.HttpDump
	if rootFlags.dumpHttp != "" {
		dirDump, err := telemetry.NewDirectoryDump(rootFlags.dumpHttp, tel)
		if err != nil {
			stop()
			logFile.Close()
			return env{}, err
		}
		dump = dirDump
		tel.ReportDebug("dumping http exchanges", dirDump.Dir())
	}

	tel.ReportDebug("config loaded", cfg.Dir, cfg.Platform, cfg.DryRun)

	return env{
		cfg:     cfg,
		tel:     tel,
		clock:   chrono.NewStandardImpl(),
		dump:    dump,
		logFile: logFile,
		otel:    otel,
		stop:    stop,
	}, nil
}
