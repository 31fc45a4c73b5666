package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tsbridge/internal/slogutil"
	"tsbridge/internal/telemetry"
	"tsbridge/internal/version"
)

var (
	formatFlag     string
	logLevelFlag   string
	logFileFlag    string
	verbosityFlag  int
	telemetryFlag  bool
	workerModeFlag string
)

// runtime state set up by the root command's pre-run hook
var (
	logger            = slogutil.NewDiscardLogger()
	logCloser         io.Closer
	telemetryShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "tsbridge",
	Short: "tsbridge - TypeScript and JavaScript language features from the command line",
	Long: `tsbridge runs a TypeScript/JavaScript language service in a supervised worker
and answers editor requests about files on disk: diagnostics, hover, completion,
signature help, navigation, outline, formatting and emit.`,
	Version:            version.Version,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupRuntime,
	PersistentPostRunE: teardownRuntime,
}

func init() {
	rootCmd.SetVersionTemplate("tsbridge version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", string(FormatHuman),
		"Output format: json, human, yaml or toml")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error or silent (overrides -v)")
	rootCmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "",
		"Also write logs to this file, rotated at 10MB")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v",
		"Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&telemetryFlag, "telemetry", false,
		"Export traces and metrics to stderr")
	rootCmd.PersistentFlags().StringVar(&workerModeFlag, "worker-mode", "",
		"Worker mode: inprocess or process (default from config)")
}

// logLevel resolves --log-level, then -v, then the configured level.
func logLevel(configured string) slog.Level {
	if logLevelFlag != "" {
		return slogutil.LevelFromString(logLevelFlag)
	}
	if verbosityFlag > 0 {
		return slogutil.LevelFromVerbosity(verbosityFlag, false)
	}
	if configured != "" {
		return slogutil.LevelFromString(configured)
	}
	return slog.LevelWarn
}

func newLogger(level slog.Level, jsonFormat bool) (*slog.Logger, io.Closer, error) {
	var handler slog.Handler = slogutil.NewHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	if jsonFormat {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	if logFileFlag == "" {
		return slog.New(handler), nil, nil
	}
	fileLogger, closer, err := slogutil.NewFileLogger(logFileFlag, level, "10MB", 3)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slogutil.NewTeeHandler(handler, fileLogger.Handler())), closer, nil
}

func setupRuntime(cmd *cobra.Command, _ []string) error {
	if _, err := ParseOutputFormat(formatFlag); err != nil {
		return err
	}
	// config errors surface later, when a command needs the configuration
	configured, jsonLogs := "", false
	if cfg, err := loadConfig(); err == nil {
		configured = cfg.Logging.Level
		jsonLogs = cfg.Logging.Format == "json"
	}
	l, closer, err := newLogger(logLevel(configured), jsonLogs)
	if err != nil {
		return err
	}
	logger, logCloser = l, closer

	if telemetryFlag {
		shutdown, err := telemetry.Setup(cmd.Context(), telemetry.DefaultConfig(version.Version))
		if err != nil {
			return err
		}
		telemetryShutdown = shutdown
	}
	return nil
}

func teardownRuntime(*cobra.Command, []string) error {
	var err error
	if telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = telemetryShutdown(ctx)
		cancel()
		telemetryShutdown = nil
	}
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
	return err
}
