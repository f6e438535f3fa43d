package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms_chat_console/internal/model"
	"cms_chat_console/internal/service/chat"
	"cms_chat_console/pkg/util/jwt"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line    string
		want    lineCmd
		wantErr bool
	}{
		{"   ", lineCmd{kind: lineEmpty}, false},
		{"hello there", lineCmd{kind: lineSend, text: "hello there"}, false},
		{"  indented reply\r\n", lineCmd{kind: lineSend, text: "  indented reply"}, false},
		{"/edit 12 new text here", lineCmd{kind: lineEdit, id: 12, text: "new text here"}, false},
		{"/del 5", lineCmd{kind: lineDelete, id: 5}, false},
		{"/outbox", lineCmd{kind: lineOutbox}, false},
		{"/q", lineCmd{kind: lineQuit}, false},
		{"/edit 12", lineCmd{}, true},
		{"/delete abc", lineCmd{}, true},
		{"/nope", lineCmd{}, true},
	}
	for _, tt := range tests {
		got, err := parseLine(tt.line)
		if tt.wantErr {
			assert.Error(t, err, tt.line)
			continue
		}
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.want, got, tt.line)
	}
}

func TestPrintChats(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printChats(&buf, []model.Chat{
		{ID: 1, Name: "alice", LastMessage: "hi", LastMessageTime: now.Add(-2 * time.Hour), CountUnRead: 1200},
		{ID: 2, Name: "bob", LastMessage: strings.Repeat("x", 60)},
	}, now)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[1,200 unread]")
	assert.Contains(t, lines[0], "2 hours ago")
	assert.Contains(t, lines[1], "…")
	assert.Contains(t, lines[1], "(-)")

	buf.Reset()
	printChats(&buf, nil, now)
	assert.Equal(t, "(no chats)\n", buf.String())
}

func TestPrintGroups(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	msgs := []model.Message{
		{ID: 1, Text: "old", Sender: model.SenderOther, SenderName: "alice", IsRead: true, CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 2, Text: "new", Sender: model.SenderMe, SenderName: "me", CreatedAt: now.Add(-time.Minute)},
	}
	var buf bytes.Buffer
	printGroups(&buf, chat.GroupByDay(msgs, now, time.UTC), time.UTC)
	assert.Equal(t, "--- 04.03.2024 ---\n"+
		"   14:00 [1] alice: old\n"+
		"--- Today ---\n"+
		">* 13:59 [2] me: new\n", buf.String())
}

func TestPrintTokenInfo(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	printTokenInfo(&buf, &jwt.BackendTokenInfo{UserID: 9}, now)
	assert.Contains(t, buf.String(), "user_id:    9")
	assert.Contains(t, buf.String(), "expires_at: never")

	buf.Reset()
	printTokenInfo(&buf, &jwt.BackendTokenInfo{UserID: 9, ExpiresAt: now.Add(3 * time.Hour)}, now)
	assert.Contains(t, buf.String(), "from now")
}
