package main

import (
	"context"
	"fmt"
	"log"

	"github.com/Blaze-0903/NextStepAI/internal/app"
	"github.com/Blaze-0903/NextStepAI/internal/config"
	"github.com/Blaze-0903/NextStepAI/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const cliName = "nextstep"

var rootCmd = &cobra.Command{
	Use:          cliName,
	Short:        "nextstep manages the NextStepAI career ontology",
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	for _, name := range []string{"env-file", "debug", "json"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			log.Fatalf("binding --%s: %v", name, err)
		}
	}
}

// setup loads configuration and builds the container shared by every
// subcommand.
func setup(ctx context.Context, opts ...app.ContainerOption) (*app.Container, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	lg, err := logger.New(cfg.Log.JSON || viper.GetBool("json"), cfg.Log.Debug || viper.GetBool("debug"))
	if err != nil {
		return nil, nil, fmt.Errorf("creating a logger: %w", err)
	}

	c, err := app.NewContainer(ctx, cfg, lg, opts...)
	if err != nil {
		_ = lg.Sync()
		return nil, nil, err
	}
	return c, lg, nil
}

func teardown(c *app.Container, lg *zap.Logger) {
	if err := c.Close(); err != nil {
		lg.Warn("closing container", zap.Error(err))
	}
	_ = lg.Sync()
}
