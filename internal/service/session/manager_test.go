package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cms_chat_console/internal/dao/backend"
	myredis "cms_chat_console/internal/dao/redis"
	"cms_chat_console/internal/dto/respond"
	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/infrastructure/mq"
	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/errorx"
)

type harness struct {
	repo   *fakeRepo
	links  *linkSet
	broker *mq.ChannelBroker
	cache  *myredis.MemoryCache
	m      *Manager
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	h := &harness{
		repo:   newFakeRepo(),
		links:  &linkSet{},
		broker: mq.NewChannelBroker(),
		cache:  myredis.NewMemoryCache(1, 16),
	}
	h.repo.chats = []respond.ChatRecord{
		{ID: 1, Name: "alice", LastMessage: strPtr("hi"), CreatedAt: timePtr(testNow.Add(-48 * time.Hour)), CountUnRead: 2},
		{ID: 2, Name: "bob"},
	}
	h.repo.setHistory(1, msgRec(10, 3, "hi"))
	h.repo.setHistory(2, msgRec(20, 7, "yo"), msgRec(21, 4, "sup"))
	if opts.Now == nil {
		opts.Now = func() time.Time { return testNow }
	}
	h.m = NewManager(Deps{Repo: h.repo, Links: h.links.factory, Cache: h.cache, Publisher: h.broker}, opts)
	t.Cleanup(func() {
		h.m.Close()
		_ = h.cache.Close()
		_ = h.broker.Close()
	})
	return h
}

func (h *harness) load(t *testing.T) {
	t.Helper()
	_, err := h.m.Load(context.Background(), backend.Scope{Kind: backend.ScopeAll})
	require.NoError(t, err)
}

func TestLoad(t *testing.T) {
	h := newHarness(t, Options{})
	updates, cancel := h.broker.Subscribe()
	defer cancel()

	chats, err := h.m.Load(context.Background(), backend.Scope{Kind: backend.ScopeAll})
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "hi", chats[0].LastMessage)
	assert.Equal(t, 2, chats[0].CountUnRead)
	assert.Empty(t, chats[0].Messages)
	assert.Equal(t, "", chats[1].LastMessage)

	assert.Equal(t, &model.Actor{UserID: 7, Login: "operator", RoleID: 2}, h.m.Actor())
	assert.Equal(t, model.StatusIdle, h.m.Status())
	assert.Zero(t, h.links.len(), "loading the list must not open a socket")
	assert.Equal(t, model.UpdateChats, (<-updates).Type)
}

func TestLoadFailureLeavesEmptyList(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)

	h.repo.mu.Lock()
	h.repo.listErr = errorx.New(errorx.CodeBackendError, "down")
	h.repo.mu.Unlock()

	_, err := h.m.Load(context.Background(), backend.Scope{Kind: backend.ScopeAll})
	assert.Equal(t, errorx.CodeBackendError, errorx.GetCode(err))
	assert.Empty(t, h.m.Chats())

	h.repo.mu.Lock()
	h.repo.meErr = errorx.New(errorx.CodeUnauthorized, "expired")
	h.repo.mu.Unlock()
	_, err = h.m.Load(context.Background(), backend.Scope{Kind: backend.ScopeAll})
	assert.Equal(t, errorx.CodeUnauthorized, errorx.GetCode(err))
	assert.Nil(t, h.m.Actor())
}

func TestLoadUsesMetaSnapshot(t *testing.T) {
	h := newHarness(t, Options{})
	snapAt := testNow.Add(-time.Hour)
	require.NoError(t, myredis.SaveChatMeta(context.Background(), h.cache, 1, myredis.ChatMeta{Text: "hi", Time: snapAt}, 0))
	h.load(t)
	assert.True(t, snapAt.Equal(h.m.Chats()[0].LastMessageTime))

	require.NoError(t, myredis.SaveChatMeta(context.Background(), h.cache, 1, myredis.ChatMeta{Text: "older text", Time: snapAt}, 0))
	h.load(t)
	assert.True(t, testNow.Add(-48*time.Hour).Equal(h.m.Chats()[0].LastMessageTime))
}

func TestSelectWithoutLoad(t *testing.T) {
	h := newHarness(t, Options{})
	_, err := h.m.Select(context.Background(), 1)
	assert.ErrorIs(t, err, errorx.ErrNoActor)

	h.load(t)
	_, err = h.m.Select(context.Background(), 99)
	assert.True(t, errorx.IsNotFound(err))
	assert.Zero(t, h.links.len())
}

func TestSelectLoadsHistoryAndAppliesFrames(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)

	c, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, c.Messages, 1)
	assert.Equal(t, model.SenderOther, c.Messages[0].Sender)
	assert.Equal(t, "hi", c.LastMessage)
	assert.Zero(t, c.CountUnRead)
	assert.Equal(t, model.StatusLoading, h.m.Status())

	link := h.links.get(0)
	assert.Equal(t, int64(1), link.chatID)
	assert.Equal(t, int64(7), link.userID)
	assert.True(t, link.isOpen())

	link.state(ws.StateEvent{State: ws.StateConnected})
	assert.Equal(t, model.StatusConnected, h.m.Status())

	link.frame(model.Frame{Action: model.ActionCreate, Content: "hello", MessageID: 11, SenderID: 7, Login: "operator"})
	active, err := h.m.ActiveChat()
	require.NoError(t, err)
	require.Len(t, active.Messages, 2)
	assert.Equal(t, model.SenderMe, active.Messages[1].Sender)
	assert.Equal(t, "hello", active.LastMessage)
	assert.Equal(t, "hello", h.m.Chats()[0].LastMessage)

	link.frame(model.Frame{Action: model.ActionEdit, MessageID: 10, Content: "hi!"})
	link.frame(model.Frame{Action: "typing"})
	active, _ = h.m.ActiveChat()
	assert.Equal(t, "hi!", active.Messages[0].Text)
	assert.Equal(t, "hello", active.LastMessage)

	link.frame(model.Frame{Action: model.ActionReadMessages, SenderID: 3})
	active, _ = h.m.ActiveChat()
	assert.True(t, active.Messages[1].IsRead)
	assert.False(t, active.Messages[0].IsRead)
}

func TestSelectClosesPreviousLinkFirst(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)

	_, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)
	_, err = h.m.Select(context.Background(), 2)
	require.NoError(t, err)

	require.Equal(t, 2, h.links.len())
	assert.False(t, h.links.get(0).isOpen())
	assert.True(t, h.links.get(1).isOpen())
	assert.Equal(t, 1, h.links.open())
	assert.Equal(t, int64(2), h.m.ActiveChatID())

	// 旧连接的迟到帧不影响新聊天
	h.links.get(0).frame(model.Frame{Action: model.ActionCreate, Content: "late", MessageID: 99, SenderID: 3})
	active, _ := h.m.ActiveChat()
	assert.Len(t, active.Messages, 2)
	h.links.get(0).state(ws.StateEvent{State: ws.StateDisconnected})
	assert.NotEqual(t, model.StatusDisconnected, h.m.Status())
}

func TestStaleHistoryResponseIsDropped(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	gate := h.repo.gate(1)

	type result struct {
		chat model.Chat
		err  error
	}
	done := make(chan result, 1)
	go func() {
		c, err := h.m.Select(context.Background(), 1)
		done <- result{c, err}
	}()
	require.Equal(t, int64(1), <-h.repo.fetched)

	c, err := h.m.Select(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, c.Messages, 2)

	close(gate)
	r := <-done
	assert.ErrorIs(t, r.err, errorx.ErrStaleResponse)

	active, err := h.m.ActiveChat()
	require.NoError(t, err)
	assert.Equal(t, int64(2), active.ID)
	assert.Len(t, active.Messages, 2)
	assert.Equal(t, 1, h.links.open())
}

func TestFramesBeforeHistoryAreReplayed(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	gate := h.repo.gate(1)

	done := make(chan error, 1)
	go func() {
		_, err := h.m.Select(context.Background(), 1)
		done <- err
	}()
	require.Equal(t, int64(1), <-h.repo.fetched)

	link := h.links.get(0)
	link.frame(model.Frame{Action: model.ActionReadMessages, SenderID: 7})
	// 历史中已有的消息重复投递
	link.frame(model.Frame{Action: model.ActionCreate, Content: "hi", MessageID: 10, SenderID: 3})
	link.frame(model.Frame{Action: model.ActionCreate, Content: "new", MessageID: 12, SenderID: 3})

	close(gate)
	require.NoError(t, <-done)

	active, _ := h.m.ActiveChat()
	require.Len(t, active.Messages, 2)
	assert.Equal(t, int64(10), active.Messages[0].ID)
	assert.True(t, active.Messages[0].IsRead)
	assert.Equal(t, int64(12), active.Messages[1].ID)
	assert.Equal(t, "new", active.LastMessage)
}

func TestHistoryFailureKeepsSocket(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	h.repo.histErr = errorx.New(errorx.CodeBackendError, "boom")

	_, err := h.m.Select(context.Background(), 1)
	assert.Equal(t, errorx.CodeBackendError, errorx.GetCode(err))
	assert.True(t, h.links.get(0).isOpen())

	h.links.get(0).frame(model.Frame{Action: model.ActionCreate, Content: "live", MessageID: 30, SenderID: 3})
	active, _ := h.m.ActiveChat()
	require.Len(t, active.Messages, 1)
	assert.Equal(t, "live", active.LastMessage)
}

func TestStatusTransitions(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	updates, cancel := h.broker.Subscribe()
	defer cancel()

	_, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)
	link := h.links.get(0)
	link.state(ws.StateEvent{State: ws.StateConnecting, Attempt: 1})
	assert.Equal(t, model.StatusLoading, h.m.Status())
	link.state(ws.StateEvent{State: ws.StateConnected})
	link.state(ws.StateEvent{State: ws.StateDisconnected, RetryIn: time.Second, Err: errors.New("eof")})
	assert.Equal(t, model.StatusDisconnected, h.m.Status())

	h.m.Disconnect()
	assert.Equal(t, model.StatusIdle, h.m.Status())
	assert.False(t, link.isOpen())
	_, err = h.m.ActiveChat()
	assert.ErrorIs(t, err, errorx.ErrNoActiveChat)

	var statuses []model.SessionStatus
	for len(updates) > 0 {
		u := <-updates
		if u.Type == model.UpdateStatus {
			statuses = append(statuses, u.Status)
		}
	}
	assert.Equal(t, []model.SessionStatus{model.StatusLoading, model.StatusConnected, model.StatusDisconnected, model.StatusIdle}, statuses)
}

func TestReconnectTriggersResync(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	_, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)
	<-h.repo.fetched
	link := h.links.get(0)
	link.state(ws.StateEvent{State: ws.StateConnected})
	link.state(ws.StateEvent{State: ws.StateDisconnected, RetryIn: 10 * time.Millisecond})

	// 断线期间服务端多了两条消息，删掉了一条
	h.repo.setHistory(1, msgRec(13, 3, "missed"), msgRec(14, 7, "mine"))
	link.state(ws.StateEvent{State: ws.StateConnected, Reconnected: true})
	require.Equal(t, int64(1), <-h.repo.fetched)

	require.Eventually(t, func() bool {
		active, err := h.m.ActiveChat()
		return err == nil && len(active.Messages) == 2 && active.LastMessage == "mine"
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, model.StatusConnected, h.m.Status())
}

func TestReconnectWhileFetchInFlightRefetches(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	h.repo.mu.Lock()
	h.repo.snapshotAtRequest = true
	h.repo.mu.Unlock()
	gate := h.repo.gate(1)

	done := make(chan error, 1)
	go func() {
		_, err := h.m.Select(context.Background(), 1)
		done <- err
	}()
	require.Equal(t, int64(1), <-h.repo.fetched)
	link := h.links.get(0)
	link.state(ws.StateEvent{State: ws.StateConnected})
	link.state(ws.StateEvent{State: ws.StateDisconnected, RetryIn: 10 * time.Millisecond})
	link.state(ws.StateEvent{State: ws.StateConnected, Reconnected: true})
	require.Equal(t, int64(1), <-h.repo.fetched)

	// 第一次重连的同步还没返回，又断了一次，期间服务端多了一条消息
	link.state(ws.StateEvent{State: ws.StateDisconnected, RetryIn: 10 * time.Millisecond})
	h.repo.setHistory(1, msgRec(10, 3, "hi"), msgRec(11, 3, "gap"))
	link.state(ws.StateEvent{State: ws.StateConnected, Reconnected: true})
	require.Equal(t, int64(1), <-h.repo.fetched)

	close(gate)
	require.NoError(t, <-done)
	require.Eventually(t, func() bool {
		active, err := h.m.ActiveChat()
		return err == nil && len(active.Messages) == 2 && active.LastMessage == "gap"
	}, 2*time.Second, 10*time.Millisecond)

	// 作废的结果返回后不能覆盖最新历史
	time.Sleep(20 * time.Millisecond)
	active, _ := h.m.ActiveChat()
	assert.Len(t, active.Messages, 2)
	assert.Empty(t, h.repo.fetched)
}

func TestCloseClearsSession(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	_, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)

	h.m.Close()
	assert.Nil(t, h.m.Actor())
	assert.Empty(t, h.m.Chats())
	assert.Zero(t, h.links.open())
	assert.Equal(t, model.StatusIdle, h.m.Status())
}

func TestReloadKeepsActiveChat(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	_, err := h.m.Select(context.Background(), 1)
	require.NoError(t, err)
	h.links.get(0).frame(model.Frame{Action: model.ActionCreate, Content: "fresh", MessageID: 11, SenderID: 3})

	h.load(t)
	assert.Equal(t, int64(1), h.m.ActiveChatID())
	assert.Equal(t, "fresh", h.m.Chats()[0].LastMessage)
	assert.True(t, h.links.get(0).isOpen())

	h.repo.mu.Lock()
	h.repo.chats = h.repo.chats[1:]
	h.repo.mu.Unlock()
	h.load(t)
	assert.Zero(t, h.m.ActiveChatID())
	assert.False(t, h.links.get(0).isOpen())
}

func TestMetaSnapshotWrittenOnCreate(t *testing.T) {
	h := newHarness(t, Options{})
	h.load(t)
	_, err := h.m.Select(context.Background(), 2)
	require.NoError(t, err)
	h.links.get(0).frame(model.Frame{Action: model.ActionCreate, Content: "snap", MessageID: 22, SenderID: 4})

	require.Eventually(t, func() bool {
		meta, err := myredis.LoadChatMeta(context.Background(), h.cache, 2)
		return err == nil && meta != nil && meta.Text == "snap" && meta.Time.Equal(testNow)
	}, 2*time.Second, 10*time.Millisecond)
}
