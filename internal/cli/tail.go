package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cms_chat_console/internal/model"
	"cms_chat_console/internal/service"
	"cms_chat_console/internal/service/chat"
	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

func newTailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail <chat-id>",
		Short: "Open a chat, print its history and follow live events",
		Long: strings.TrimSpace(`
Open a chat, print its history grouped by day and follow live events.

Lines typed on stdin are sent as new messages. Commands:
  /edit <message-id> <text>   edit a message
  /delete <message-id>        delete a message
  /outbox                     show delivery state of sent messages
  /quit                       exit
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chatID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || chatID <= 0 {
				return fmt.Errorf("invalid chat id %q", args[0])
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			updates, cancel := a.broker.Subscribe()
			defer cancel()

			sess := a.svc.Session
			if _, err := sess.Load(ctx, a.scope); err != nil {
				return err
			}
			active, err := sess.Select(ctx, chatID)
			if err != nil && errorx.GetCode(err) != errorx.CodeBackendError {
				return err
			}
			out := cmd.OutOrStdout()
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "history unavailable: %v\n", err)
			}
			fmt.Fprintf(out, "== %s (#%d) ==\n", active.Name, active.ID)
			printGroups(out, chat.GroupByDay(active.Messages, time.Now(), time.Local), time.Local)

			lines := make(chan string)
			go readLines(os.Stdin, lines)

			t := &tailer{sess: sess, out: out, errOut: cmd.ErrOrStderr()}
			for {
				select {
				case <-ctx.Done():
					return nil
				case u, ok := <-updates:
					if !ok {
						return nil
					}
					t.onUpdate(u)
				case line, ok := <-lines:
					if !ok {
						// stdin 关闭后继续跟随事件，直到收到信号
						lines = nil
						continue
					}
					if quit := t.onLine(ctx, line); quit {
						return nil
					}
				}
			}
		},
	}
	return cmd
}

func readLines(r io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lines <- sc.Text()
	}
}

type tailer struct {
	sess   service.ChatSessionService
	out    io.Writer
	errOut io.Writer
}

func (t *tailer) onUpdate(u model.Update) {
	switch u.Type {
	case model.UpdateStatus:
		fmt.Fprintf(t.errOut, "-- %s\n", u.Status)
	case model.UpdateMessage:
		if u.Action == model.ActionDelete {
			fmt.Fprintf(t.out, "   (message %d deleted)\n", u.MessageID)
			return
		}
		if u.Action == model.ActionReadMessages {
			return
		}
		active, err := t.sess.ActiveChat()
		if err != nil {
			return
		}
		if i := active.IndexOf(u.MessageID); i >= 0 {
			prefix := ""
			if u.Action == model.ActionEdit {
				prefix = "(edited) "
			}
			fmt.Fprintln(t.out, prefix+formatMessage(active.Messages[i], time.Local))
		}
	case model.UpdateOutbox:
		for _, e := range t.sess.Outbox() {
			if e.ClientMsgID == u.ClientMsgID && e.State == model.OutboxFailed {
				fmt.Fprintf(t.errOut, "!! not delivered: %q (%s)\n", e.Content, e.Error)
			}
		}
	}
}

// onLine 处理一行输入，返回 true 表示退出
func (t *tailer) onLine(ctx context.Context, line string) bool {
	cmd, err := parseLine(line)
	if err != nil {
		fmt.Fprintln(t.errOut, err)
		return false
	}
	switch cmd.kind {
	case lineEmpty:
	case lineQuit:
		return true
	case lineOutbox:
		for _, e := range t.sess.Outbox() {
			fmt.Fprintf(t.out, "%-8s %s %q\n", e.State, e.ClientMsgID[:8], e.Content)
		}
	case lineSend:
		_, err = t.sess.Send(ctx, cmd.text)
	case lineEdit:
		err = t.sess.Edit(ctx, cmd.id, cmd.text)
	case lineDelete:
		err = t.sess.Delete(ctx, cmd.id)
	}
	if err != nil {
		zap.L().Debug("tail command failed", zap.String("line", line), zap.Error(err))
		fmt.Fprintf(t.errOut, "!! %v\n", err)
	}
	return false
}

type lineKind int

const (
	lineEmpty lineKind = iota
	lineSend
	lineEdit
	lineDelete
	lineOutbox
	lineQuit
)

type lineCmd struct {
	kind lineKind
	id   int64
	text string
}

func parseLine(line string) (lineCmd, error) {
	raw := strings.TrimRight(line, "\r\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return lineCmd{kind: lineEmpty}, nil
	}
	if !strings.HasPrefix(line, "/") {
		// 普通消息原样发送，只去掉行尾换行
		return lineCmd{kind: lineSend, text: raw}, nil
	}
	fields := strings.SplitN(line, " ", 3)
	switch fields[0] {
	case "/quit", "/q":
		return lineCmd{kind: lineQuit}, nil
	case "/outbox":
		return lineCmd{kind: lineOutbox}, nil
	case "/delete", "/del":
		if len(fields) < 2 {
			return lineCmd{}, fmt.Errorf("usage: /delete <message-id>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return lineCmd{}, fmt.Errorf("invalid message id %q", fields[1])
		}
		return lineCmd{kind: lineDelete, id: id}, nil
	case "/edit":
		if len(fields) < 3 {
			return lineCmd{}, fmt.Errorf("usage: /edit <message-id> <text>")
		}
		id, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return lineCmd{}, fmt.Errorf("invalid message id %q", fields[1])
		}
		return lineCmd{kind: lineEdit, id: id, text: fields[2]}, nil
	}
	return lineCmd{}, fmt.Errorf("unknown command %s", fields[0])
}

func printGroups(w io.Writer, groups []chat.DayGroup, loc *time.Location) {
	for _, g := range groups {
		fmt.Fprintf(w, "--- %s ---\n", g.Label)
		for _, m := range g.Messages {
			fmt.Fprintln(w, formatMessage(m, loc))
		}
	}
}

// formatMessage HH:MM name: text，自己的消息用 > 标记，未读用 * 标记
func formatMessage(m model.Message, loc *time.Location) string {
	mark := " "
	if m.IsMine() {
		mark = ">"
	}
	if !m.IsRead {
		mark += "*"
	} else {
		mark += " "
	}
	return fmt.Sprintf("%s %s [%d] %s: %s", mark, m.CreatedAt.In(loc).Format(constants.CLOCK_LAYOUT), m.ID, m.SenderName, m.Text)
}
