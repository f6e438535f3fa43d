package cli

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	myredis "cms_chat_console/internal/dao/redis"
	"cms_chat_console/internal/model"
)

func newChatsCmd() *cobra.Command {
	var purge bool
	cmd := &cobra.Command{
		Use:   "chats",
		Short: "List chats in the configured scope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if purge {
				if err := myredis.ClearChatMeta(ctx, a.cache); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "last-message cache cleared")
			}

			chats, err := a.svc.Session.Load(ctx, a.scope)
			if err != nil {
				return err
			}
			printChats(cmd.OutOrStdout(), chats, time.Now())
			return nil
		},
	}
	cmd.Flags().BoolVar(&purge, "purge-cache", false, "drop cached last-message snapshots before loading")
	return cmd
}

// printChats 每行：id、名称、未读数、最后一条消息及相对时间
func printChats(w io.Writer, chats []model.Chat, now time.Time) {
	if len(chats) == 0 {
		fmt.Fprintln(w, "(no chats)")
		return
	}
	for _, c := range chats {
		when := "-"
		if !c.LastMessageTime.IsZero() {
			when = humanize.RelTime(c.LastMessageTime, now, "ago", "from now")
		}
		unread := ""
		if c.CountUnRead > 0 {
			unread = fmt.Sprintf(" [%s unread]", humanize.Comma(int64(c.CountUnRead)))
		}
		fmt.Fprintf(w, "%6d  %-24s%s  %s  (%s)\n", c.ID, c.Name, unread, ellipsis(c.LastMessage, 48), when)
	}
}

func ellipsis(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}
