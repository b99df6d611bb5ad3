package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"courseplanner-backend/internal/components/chrono"
	"courseplanner-backend/internal/components/configutil"
	"courseplanner-backend/internal/components/serviceutil"
	"courseplanner-backend/internal/components/telemetry"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string

	config    Config
	clock     chrono.API
	tel       telemetry.API = telemetry.SlogAPI{}
	providers telemetry.Otel
	// only set in verbose mode
	restyOutput telemetry.RestyOutput
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "ingest scrapes the UCSD schedule of classes and enriches it with instructor ratings.",
	// main logs the error through serviceutil.Fatal
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)
		if verbose {
			slog.Debug("verbose logging enabled")
			output, err := telemetry.NewFilesystemOutput(".dev/resty/rmp")
			if err != nil {
				return fmt.Errorf("create resty output: %w", err)
			}
			restyOutput = output
		}

		var err error
		config, err = configutil.ReadConfig[Config](configPath)
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("config file not found, using defaults", "path", configPath)
			err = nil
		}
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}
		clock, err = chrono.NewStandardImpl(config.Timezone)
		if err != nil {
			return fmt.Errorf("load timezone: %w", err)
		}

		providers, err = telemetry.SetupOtelFromEnv(cmd.Context(), "courseplanner-ingest")
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := providers.Shutdown(context.Background())
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "Path to the config file.")
}

func main() {
	ctx := serviceutil.SignalContext()
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		serviceutil.Fatal("ingest", err)
	}
}
