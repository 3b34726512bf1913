package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatreveal/internal/services/ai"
)

var probeCmd = &cobra.Command{
	Use:   "probe [prompt]",
	Short: "Run one generation round trip against the configured backend",
	Args:  cobra.ArbitraryArgs,
	RunE:  runProbe,
}

func runProbe(cmd *cobra.Command, args []string) error {
	if app.Generator == nil {
		return errors.New("no API key configured (set AI_API_KEY or GEMINI_API_KEY)")
	}
	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		prompt = "Reply with the single word: pong"
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.AITimeout)
	defer cancel()

	start := time.Now()
	reply, err := app.Generator.Generate(ctx, []ai.Turn{{Role: ai.TurnRoleUser, Text: prompt}})
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return fmt.Errorf("%s probe failed after %s: %w", app.Generator.Name(), elapsed, err)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s answered in %s\n", app.Generator.Name(), elapsed)
	if reply == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "(empty reply)")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), reply)
	return nil
}
