package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/thushan/tabkeeper/internal/config"
	"github.com/thushan/tabkeeper/internal/logger"
	"github.com/thushan/tabkeeper/internal/version"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	cfg          *config.Config
	styledLogger logger.StyledLogger
	logCleanup   = func() {}

	// reloads carries hot reloaded configs to the run loop, older ones are dropped
	reloads = make(chan *config.Config, 1)

	catalogFile string

	rootCmd = &cobra.Command{
		Use:           "tabkeeper",
		Short:         version.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logCleanup()
		},
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if styledLogger == nil {
			// config or logger setup failed, nothing to log through
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.FatalWithLogger(styledLogger.GetUnderlying(), logCleanup, "Command failed", "error", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "catalog snapshot (json) to load into the provider")

	rootCmd.AddCommand(runCmd, checkCmd, exportCmd, presetsCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		version.PrintVersionInfo(true, log.New(cmd.OutOrStdout(), "", 0))
	},
}

func setup() error {
	var err error
	cfg, err = config.Load(func(next *config.Config) {
		select {
		case reloads <- next:
		default:
			// run loop still holds the previous reload
		}
	})
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logInstance, styled, cleanup, err := logger.NewWithTheme(buildLoggerConfig(cfg.Logging))
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	slog.SetDefault(logInstance)
	styledLogger, logCleanup = styled, cleanup
	return nil
}

func buildLoggerConfig(l config.LoggingConfig) *logger.Config {
	return &logger.Config{
		Level:      l.Level,
		FileOutput: l.FileOutput,
		LogDir:     l.Dir,
		MaxSize:    l.MaxSize,
		MaxBackups: l.MaxBackups,
		MaxAge:     l.MaxAge,
		Theme:      l.Theme,
	}
}
