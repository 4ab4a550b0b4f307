package main

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"probate-resolver/internal/app"
	"probate-resolver/internal/common/config"
	"probate-resolver/internal/common/logger"
)

const skipConfigAnnotation = "skipConfig"

type commandContext struct {
	configFlag *string
	logLevel   *string
	persist    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(*c.configFlag)
		if path == "" {
			c.config, c.configErr = config.Load()
			return
		}
		c.config, c.configErr = config.LoadFromFile(path)
	})
	return c.config, c.configErr
}

// withApp builds the resolver for one command invocation.
func (c *commandContext) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	zapLog := logger.Build(logger.Options{
		Level:       *c.logLevel,
		Format:      "console",
		OutputPaths: []string{"stderr"},
	})
	defer zapLog.Sync()

	a, err := app.New(ctx, cfg, zapLog, app.Options{Sinks: *c.persist})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func newRootCommand() *cobra.Command {
	var configFlag, logLevel string
	var persist bool
	ctx := &commandContext{configFlag: &configFlag, logLevel: &logLevel, persist: &persist}

	rootCmd := &cobra.Command{
		Use:           "resolve",
		Short:         "Find phone numbers for probate representatives",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&persist, "persist", false, "Deliver outcomes to the configured sinks")

	rootCmd.AddCommand(newTargetCommand(ctx))
	rootCmd.AddCommand(newRecordCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newParseOwnerCommand())
	rootCmd.AddCommand(newRegistryCommand())

	return rootCmd
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
