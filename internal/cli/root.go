// Package cli implements the scrapekit command line.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/spider-crawler/scrapekit/internal/config"
	"github.com/spider-crawler/scrapekit/internal/storage"
)

// Version information (set by build flags)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "scrapekit",
	Short: "Fetch, decode and archive web responses",
	Long: `scrapekit fetches pages over HTTP or through headless Chromium, decodes
them with the same encoding rules a browser applies, and archives the raw bytes
in SQLite so they can be inspected, re-decoded and exported later.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return closeLogFile() },
}

// logFile is the --log-file handle opened by setupLogging.
var logFile *os.File

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	// PersistentPostRunE is skipped when RunE fails
	if cerr := closeLogFile(); err == nil {
		err = cerr
	}
	return err
}

func init() {
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("config", "", "JSON config file")
	rootCmd.PersistentFlags().String("preset", "", "Config preset (polite, fast)")
	rootCmd.PersistentFlags().String("db", "", "Archive database path (overrides config)")
	rootCmd.PersistentFlags().CountP("verbose", "v", "Verbosity (-v debug, -vv trace)")
	rootCmd.PersistentFlags().String("log-file", "", "Log file to use (in addition to stderr)")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "scrapekit %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func setupLogging(cmd *cobra.Command, args []string) error {
	verbose, _ := cmd.Flags().GetCount("verbose")
	logPath, _ := cmd.Flags().GetString("log-file")

	level := zerolog.InfoLevel
	switch {
	case verbose >= 2:
		level = zerolog.TraceLevel
	case verbose == 1:
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if err := closeLogFile(); err != nil {
		return err
	}
	outputs := []io.Writer{zerolog.ConsoleWriter{Out: os.Stderr}}
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
		if err != nil {
			return fmt.Errorf("cannot open log file: %w", err)
		}
		logFile = f
		outputs = append(outputs, f)
	}
	log.Logger = newLogger(outputs...)
	return nil
}

func newLogger(outputs ...io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.MultiLevelWriter(outputs...)).
		With().Timestamp().Str("version", version).Logger()
}

// closeLogFile closes the --log-file handle, if any, and points the global
// logger back at stderr alone.
func closeLogFile() error {
	if logFile == nil {
		return nil
	}
	f := logFile
	logFile = nil
	log.Logger = newLogger(zerolog.ConsoleWriter{Out: os.Stderr})
	if err := f.Close(); err != nil {
		return fmt.Errorf("cannot close log file: %w", err)
	}
	return nil
}

// loadConfig builds the effective config: the preset (or defaults), then the
// config file over it, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	preset, _ := cmd.Flags().GetString("preset")
	dbPath, _ := cmd.Flags().GetString("db")

	cfg := config.DefaultConfig()
	if preset != "" {
		p, err := config.Preset(preset)
		if err != nil {
			return nil, err
		}
		cfg = p
	}
	if configPath != "" {
		loaded, err := config.LoadOver(cfg, configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dbPath != "" {
		cfg.DatabasePath = dbPath
	}
	if cfg.LogLevel != "" && !cmd.Flags().Changed("verbose") {
		if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			zerolog.SetGlobalLevel(level)
		}
	}
	return cfg, cfg.Validate()
}

func openArchive(cfg *config.Config) (*storage.Database, error) {
	db, err := storage.NewDatabase(cfg.DatabasePath, cfg.IgnoreQueryParams, &log.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %q: %w", cfg.DatabasePath, err)
	}
	return db, nil
}
