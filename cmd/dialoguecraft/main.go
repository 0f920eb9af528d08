package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"dialoguecraft/internal/config"
)

var (
	configPath string
	logLevel   string
	fromSource bool
	logger     = slog.New(slog.DiscardHandler)
)

func main() {
	root := &cobra.Command{
		Use:          "dialoguecraft",
		Short:        "Linearize branching dialogue exports into speaker-attributed conversations",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(logLevel)
			if err != nil {
				return err
			}
			logger = l
			loadEnv(configPath)
			return nil
		},
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultFileName, "Project file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	root.PersistentFlags().BoolVar(&fromSource, "from-source", false, "Read the interchange document directly instead of the database")

	root.AddCommand(initCmd())
	root.AddCommand(ingestCmd())
	root.AddCommand(listCmd())
	root.AddCommand(extractCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger backs slog with the charm console logger on stderr, keeping
// stdout for command output.
func newLogger(level string) (*slog.Logger, error) {
	parsed, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	handler := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Level:           parsed,
	})
	return slog.New(handler), nil
}

// loadEnv reads a .env file next to the project file, if there is one.
// Variables already set in the environment win.
func loadEnv(projectFile string) {
	path := filepath.Join(filepath.Dir(projectFile), ".env")
	if err := godotenv.Load(path); err != nil {
		logger.Debug("no .env file found, using process environment", "path", path)
	}
}
