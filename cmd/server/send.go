package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iyunix/go-chatreveal/internal/domain"
	"github.com/iyunix/go-chatreveal/internal/services/chat"
)

var (
	sendChatID uint
	sendRole   string
	sendUser   string
)

var sendCmd = &cobra.Command{
	Use:   "send [text]",
	Short: "Send one message and print the reply as it is revealed",
	Long: `Send one message to a chat and print the bot reply as it is revealed.
Without --chat a new chat is created for --user.

Examples:
  chatreveal send "Hello"
  chatreveal send --chat 3 "What about channels?"
  chatreveal send --chat 3 --role bot "imported reply"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().UintVarP(&sendChatID, "chat", "c", 0, "chat id (0 creates a new chat)")
	sendCmd.Flags().StringVarP(&sendRole, "role", "r", string(domain.RoleUser), "message role: user or bot")
	sendCmd.Flags().StringVarP(&sendUser, "user", "u", "", "owner for a new chat (default DEFAULT_USER_ID)")
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	text := strings.Join(args, " ")

	chatID := sendChatID
	if chatID == 0 {
		owner := sendUser
		if owner == "" {
			owner = cfg.DefaultUserID
		}
		created, err := app.ChatService.CreateChat(ctx, owner, "")
		if err != nil {
			return err
		}
		chatID = created.ID
		fmt.Fprintf(cmd.ErrOrStderr(), "created chat %d\n", chatID)
	}

	return sendAndPrint(cmd, app.Orchestrator, chat.SendRequest{
		ChatID: chatID,
		Text:   text,
		Role:   domain.Role(sendRole),
	})
}

// sendAndPrint runs one send and writes each revealed delta to the command
// output as it arrives.
func sendAndPrint(cmd *cobra.Command, sender chat.Sender, req chat.SendRequest) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	reveal := chat.NewReveal()
	req.Reveal = reveal

	errCh := make(chan error, 1)
	go func() {
		_, err := sender.SendMessage(ctx, req)
		errCh <- err
	}()

	printed := false
	_ = reveal.Deltas(ctx, func(delta string) error {
		printed = true
		_, err := io.WriteString(out, delta)
		return err
	})
	if printed {
		fmt.Fprintln(out)
	}
	return <-errCh
}
