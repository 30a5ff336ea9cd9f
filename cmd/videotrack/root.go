package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"videotrack/internal/config"
	"videotrack/internal/logger"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Player
	configErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

// ensureConfig loads the --config file, or the defaults when none is given.
func (c *commandContext) ensureConfig() (*config.Player, error) {
	c.configOnce.Do(func() {
		path := ""
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			c.config = config.Default()
			return
		}
		c.config, c.configErr = config.LoadConfig(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) logger.Logger {
	level := ""
	if c.logLevelFlag != nil {
		level = *c.logLevelFlag
	}
	if level == "" {
		if cfg, err := c.ensureConfig(); err == nil {
			level = cfg.LogLevel
		}
	}
	return logger.NewLoggerTo(cmd.ErrOrStderr(), level)
}

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:           "videotrack",
		Short:         "Transcript lookup and completion tracking for course videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Player configuration file (JSON or YAML)")
	rootCmd.PersistentFlags().StringVarP(&logLevelFlag, "log-level", "L", "", "Log level (error, warn, info, debug)")

	rootCmd.AddCommand(newCaptionsCommand(ctx))
	rootCmd.AddCommand(newSimulateCommand(ctx))

	return rootCmd
}
