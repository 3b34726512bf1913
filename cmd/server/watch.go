package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatreveal/internal/realtime"
)

var watchChatID uint

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print reveal events published on the redis channel",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().UintVarP(&watchChatID, "chat", "c", 0, "only show this chat")
}

func runWatch(cmd *cobra.Command, args []string) error {
	if app.Redis == nil {
		return errors.New("redis is not configured or unreachable (set REDIS_ADDR)")
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	err := app.Redis.Subscribe(ctx, func(e realtime.RevealEvent) {
		if watchChatID != 0 && e.ChatID != watchChatID {
			return
		}
		if e.Final {
			fmt.Fprintf(out, "[chat %d] %s\n", e.ChatID, e.Text)
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "watching %s, Ctrl-C to stop\n", app.Redis.Channel())
	<-ctx.Done()
	return nil
}
