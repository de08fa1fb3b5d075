package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/insightdelivered/statementlens/internal/buildinfo"
	"github.com/insightdelivered/statementlens/internal/config"
	"github.com/insightdelivered/statementlens/internal/logging"
)

// runtime is shared by every subcommand once the root pre-run has loaded the
// configuration.
type runtime struct {
	envFile  string
	logLevel string
	cfg      *config.Config
	closeLog func() error
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}

	rootCmd := &cobra.Command{
		Use:     "statementlens",
		Short:   "Convert bank statement PDFs into spreadsheets",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if rt.closeLog != nil {
				return rt.closeLog()
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&rt.envFile, "env-file", "", "read settings from this env file instead of .env")
	rootCmd.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCommand(rt),
		newConvertCommand(rt),
		newDetectCommand(rt),
		newFormatsCommand(rt),
	)

	return rootCmd
}

func (rt *runtime) load() error {
	var (
		cfg *config.Config
		err error
	)
	if rt.envFile != "" {
		cfg, err = config.LoadFile(rt.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if rt.logLevel != "" {
		cfg.Logging.Level = rt.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
	}

	_, rt.closeLog = logging.Setup(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
	})
	rt.cfg = cfg
	return nil
}
