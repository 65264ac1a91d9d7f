package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"threadgenius/internal/cmdlog"
	"threadgenius/internal/config"
	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
	"threadgenius/internal/store"
	"threadgenius/internal/theme"
)

const defaultConfigPath = "./threadgenius.yaml"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:           "threadgenius",
	Short:         "Generate, rank, and publish conversation-first Threads posts.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		theme.PrintBanner()
		return cmd.Help()
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", defaultConfigPath, "config path")
	rootCmd.AddCommand(initCmd(), generateCmd(), personasCmd(), templatesCmd(), newsCmd(), publishCmd(),
		authCmd(), historyCmd(), monitorCmd(), scheduleCmd(), insightsCmd())
}

// logged wraps a RunE with cmdlog so every command is counted and logged under its name.
func logged(name string, f func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return cmdlog.Run(name, func() error { return f(cmd, args) })
	}
}

// loadConfig reads .env and the config file, applies the log level, and starts the metrics server.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		logging.Warn("dotenv_error", map[string]any{"error": err.Error()})
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("config %s not found; run `threadgenius init` first", cfgPath)
		}
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	logging.SetLevel(cfg.Log.Level)
	metrics.StartServer(cfg.Metrics.Addr)
	return cfg, nil
}

func openStore(cfg config.Config) (*store.DB, error) {
	if dir := filepath.Dir(cfg.Storage.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return store.Open(cfg.Storage.DBPath)
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: logged("init", func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := config.Save(cfgPath, config.Default()); err != nil {
				return err
			}
			abs, _ := filepath.Abs(cfgPath)
			theme.PrintBanner()
			fmt.Println("Config written to:", abs)
			fmt.Println("Set ANTHROPIC_API_KEY (or the key for your provider) in the environment or .env.")
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}
