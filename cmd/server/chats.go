package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var chatsUser string

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "Manage chats",
}

var chatsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats, newest first",
	Args:  cobra.NoArgs,
	RunE:  runChatsList,
}

var chatsNewCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a chat",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatsNew,
}

var chatsRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a chat",
	Args:  cobra.ExactArgs(2),
	RunE:  runChatsRename,
}

var chatsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a chat and its messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatsDelete,
}

func init() {
	chatsCmd.PersistentFlags().StringVarP(&chatsUser, "user", "u", "", "chat owner (default DEFAULT_USER_ID)")
	chatsCmd.AddCommand(chatsListCmd, chatsNewCmd, chatsRenameCmd, chatsDeleteCmd)
}

func chatsOwner() string {
	if chatsUser != "" {
		return chatsUser
	}
	return cfg.DefaultUserID
}

func parseChatID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid chat id %q", s)
	}
	return uint(id), nil
}

func runChatsList(cmd *cobra.Command, args []string) error {
	chats, err := app.ChatService.ListChats(cmd.Context(), chatsOwner())
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No chats.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCREATED")
	for _, c := range chats {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Title, c.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runChatsNew(cmd *cobra.Command, args []string) error {
	title := ""
	if len(args) == 1 {
		title = args[0]
	}
	created, err := app.ChatService.CreateChat(cmd.Context(), chatsOwner(), title)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", created.ID, created.Title)
	return nil
}

func runChatsRename(cmd *cobra.Command, args []string) error {
	id, err := parseChatID(args[0])
	if err != nil {
		return err
	}
	return app.ChatService.RenameChat(cmd.Context(), id, args[1])
}

func runChatsDelete(cmd *cobra.Command, args []string) error {
	id, err := parseChatID(args[0])
	if err != nil {
		return err
	}
	if err := app.ChatService.DeleteChat(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted chat %d\n", id)
	return nil
}
