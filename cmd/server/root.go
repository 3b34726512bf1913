package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatreveal/internal/config"
	"github.com/iyunix/go-chatreveal/internal/logger"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	logLevel string

	cfg *config.Config
	zl  *logger.ZapLogger
	app *Application
)

var rootCmd = &cobra.Command{
	Use:   "chatreveal",
	Short: "Chat service with progressively revealed replies",
	Long: `chatreveal stores chats and their messages, answers each user message
with a generated (or echoed) bot reply, and reveals that reply a character at
a time over HTTP, the terminal and an optional redis channel.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}

		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		var err error
		zl, err = logger.New("chatreveal", cfg.IsProduction(), cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		app, err = NewApplication(cmd.Context(), cfg, zl)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if app != nil {
			app.Close()
		}
		if zl != nil {
			zl.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.SetOut(os.Stdout)

	rootCmd.AddCommand(serveCmd, sendCmd, probeCmd, watchCmd, chatsCmd)
}
