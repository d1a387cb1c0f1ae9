// Package cmd implements the feedfilter command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/feedfilter/internal/config"
	"github.com/xkilldash9x/feedfilter/internal/observability"
)

type contextKey string

const configKey contextKey = "config"

// rootOptions holds the values of the root command's flags.
type rootOptions struct {
	profile     string
	configFile  string
	listConfigs bool
}

// NewRootCommand builds a fresh command tree. Flag state is per instance.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "feedfilter",
		Short: "Opens a group feed in a browser and removes posts that mention excluded keywords.",
		Long: `feedfilter logs in to the site (optional), opens the group or page of the
selected configuration, and keeps its feed free of posts that mention any of
the configuration's filter keywords until it is interrupted.`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFiles(); err != nil {
				return err
			}

			v := viper.New()
			if err := bindFlags(cmd, v); err != nil {
				return err
			}

			cfg, err := config.Load(v, opts.configFile)
			if err != nil {
				// Errors are reported through the logger, so one must exist.
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: "feedfilter"})
				return err
			}

			observability.InitializeLogger(cfg.Logger)
			observability.GetLogger().Info("Loaded configuration",
				zap.String("path", v.ConfigFileUsed()),
				zap.String("version", Version),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if opts.listConfigs {
				return printConfigs(cmd.OutOrStdout(), cfg)
			}
			return runViewer(cmd.Context(), cfg, opts.profile, observability.GetLogger())
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.profile, "config", "c", "", "Configuration to use (default: the file's 'default')")
	flags.BoolVarP(&opts.listConfigs, "list-configs", "l", false, "List available configurations")

	persistent := cmd.PersistentFlags()
	persistent.StringVarP(&opts.configFile, "config-file", "f", "", "Path to the configuration file (default: config.toml)")
	persistent.Bool("headless", false, "Run the browser without a window")
	persistent.String("log-level", "", "Log level (debug, info, warn, error)")

	cmd.AddCommand(newConfigsCmd())
	cmd.SetVersionTemplate("{{printf \"%s\\n\" .Version}}")
	return cmd
}

// bindFlags lets explicitly set flags override the file and environment.
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	if err := v.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
		return err
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		v.Set("logger.level", f.Value.String())
	}
	return nil
}

// loadEnvFiles loads .env.local and then .env from the working directory.
// Variables already set in the environment win, and missing files are fine.
func loadEnvFiles() error {
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func configFromContext(ctx context.Context) (*config.Config, error) {
	cfg, ok := ctx.Value(configKey).(*config.Config)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}

// Execute runs the command line with ctx, which should be canceled on
// SIGINT/SIGTERM. An interrupted run returns context.Canceled.
func Execute(ctx context.Context) error {
	defer observability.Sync()

	err := NewRootCommand().ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		observability.GetLogger().Info("Interrupted, shutting down.")
		return err
	}
	if errors.Is(err, config.ErrInvalidConfig) {
		observability.GetLogger().Error("Configuration error", zap.Error(err))
		return err
	}
	observability.GetLogger().Error("Command execution failed", zap.Error(err))
	return err
}
