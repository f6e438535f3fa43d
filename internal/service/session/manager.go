// Package session 实现控制台的会话状态存储
// manager.go
// 核心职责：
// 1. 加载聊天列表和当前用户（Load）
// 2. 切换聊天：关闭旧连接、拉取历史、建立新连接（Select）
// 3. 把连接收到的帧交给 chat.Apply，并把变更发布出去
// 所有状态都由 Manager 的互斥锁保护，连接回调与 HTTP/CLI 调用可以并发进入
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"cms_chat_console/internal/dao/backend"
	myredis "cms_chat_console/internal/dao/redis"
	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/infrastructure/mq"
	"cms_chat_console/internal/model"
	"cms_chat_console/internal/service/chat"
	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// Deps Manager 的外部依赖
type Deps struct {
	Repo      backend.ChatRepository
	Links     ws.LinkFactory
	Cache     myredis.AsyncCacheService // 可为 nil
	Publisher mq.Publisher              // 可为 nil
}

// Options Manager 的行为参数
type Options struct {
	PrivilegedLabel string
	AckTimeout      time.Duration
	SendRate        float64 // 每秒帧数，<=0 不限速
	SendBurst       int
	MetaTTL         time.Duration
	ResyncTimeout   time.Duration
	Now             func() time.Time
}

// Manager 会话状态存储
type Manager struct {
	deps    Deps
	opts    Options
	limiter *rate.Limiter

	// switchMu 串行化连接切换，保证旧连接关闭后新连接才启动
	switchMu sync.Mutex

	mu       sync.Mutex
	actor    *model.Actor
	scope    backend.Scope
	chats    []model.Chat
	index    map[int64]int
	loadSeq  uint64
	activeID int64
	seq      uint64 // 选择序号，每次 Select/Disconnect 递增
	status   model.SessionStatus
	link     ws.ChatLink
	// listener 当前连接的回调入口，回调只认当前 listener，包装过的连接同样适用
	listener *linkListener
	// historyReady 为 false 时收到的帧先缓存，历史应用后按顺序重放
	historyReady bool
	// histGen 历史拉取代次，Select 和每次重连都会递增，只有最新一代的结果会被应用
	histGen    uint64
	pending    []model.Frame
	lastSeenID int64
	outbox     []*model.OutboxEntry
}

// NewManager 创建会话管理器
func NewManager(deps Deps, opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = constants.DEFAULT_ACK_TIMEOUT
	}
	if opts.ResyncTimeout <= 0 {
		opts.ResyncTimeout = constants.DEFAULT_HTTP_TIMEOUT
	}
	limit := rate.Inf
	if opts.SendRate > 0 {
		limit = rate.Limit(opts.SendRate)
	}
	burst := opts.SendBurst
	if burst <= 0 {
		burst = 1
	}
	return &Manager{
		deps:    deps,
		opts:    opts,
		limiter: rate.NewLimiter(limit, burst),
		index:   make(map[int64]int),
		chats:   []model.Chat{},
		status:  model.StatusIdle,
	}
}

// ==================== 聊天列表 ====================

// Load 获取当前用户和指定范围的聊天列表，替换现有列表
// 失败时列表置空并返回错误；正在查看的聊天如果仍在新列表中则保留其消息
func (m *Manager) Load(ctx context.Context, scope backend.Scope) ([]model.Chat, error) {
	m.mu.Lock()
	m.loadSeq++
	seq := m.loadSeq
	m.mu.Unlock()

	me, err := m.deps.Repo.Me(ctx)
	if err != nil {
		zap.L().Error("fetch current user failed", zap.Error(err))
		m.replaceChats(seq, nil, nil, scope)
		return nil, err
	}
	actor := &model.Actor{UserID: me.UserID, Login: me.Login, RoleID: me.RoleID}

	recs, err := m.deps.Repo.ListChats(ctx, scope)
	if err != nil {
		zap.L().Error("fetch chat list failed", zap.String("scope", scope.String()), zap.Error(err))
		m.replaceChats(seq, actor, nil, scope)
		return nil, err
	}

	chats := make([]model.Chat, 0, len(recs))
	for _, rec := range recs {
		c := chat.ChatFromRecord(rec)
		m.fillFromMeta(ctx, &c)
		chats = append(chats, c)
	}
	if !m.replaceChats(seq, actor, chats, scope) {
		return nil, errorx.ErrStaleResponse
	}
	zap.L().Info("chat list loaded",
		zap.String("scope", scope.String()),
		zap.Int("count", len(chats)),
		zap.Int64("user_id", actor.UserID),
	)
	return m.Chats(), nil
}

// fillFromMeta 列表只有 last_message 文本，快照文本一致时用快照里的时间
func (m *Manager) fillFromMeta(ctx context.Context, c *model.Chat) {
	if m.deps.Cache == nil || c.LastMessage == "" {
		return
	}
	meta, err := myredis.LoadChatMeta(ctx, m.deps.Cache, c.ID)
	if err != nil {
		zap.L().Warn("load chat meta failed", zap.Int64("chat_id", c.ID), zap.Error(err))
		return
	}
	if meta != nil && meta.Text == c.LastMessage && !meta.Time.IsZero() {
		c.LastMessageTime = meta.Time
	}
}

// replaceChats 只有最新一次 Load 的结果会生效
func (m *Manager) replaceChats(seq uint64, actor *model.Actor, chats []model.Chat, scope backend.Scope) bool {
	var stale ws.ChatLink
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	if seq != m.loadSeq {
		m.mu.Unlock()
		return false
	}
	if actor != nil && m.actor != nil && actor.UserID != m.actor.UserID {
		// 换了用户，当前连接属于旧用户
		stale = m.dropSelectionLocked()
	}
	m.actor = actor
	m.scope = scope
	if chats == nil {
		chats = []model.Chat{}
	}
	if i, ok := m.index[m.activeID]; ok && m.activeID != 0 {
		active := m.chats[i]
		kept := false
		for j := range chats {
			if chats[j].ID == active.ID {
				chats[j] = active
				kept = true
				break
			}
		}
		if !kept {
			if l := m.dropSelectionLocked(); l != nil {
				stale = l
			}
		}
	}
	m.chats = chats
	m.reindexLocked()
	m.publishLocked(model.Update{Type: model.UpdateChats})
	m.mu.Unlock()

	if stale != nil {
		stale.Close()
	}
	return true
}

func (m *Manager) reindexLocked() {
	m.index = make(map[int64]int, len(m.chats))
	for i, c := range m.chats {
		m.index[c.ID] = i
	}
}

// ==================== 选择聊天 ====================

// Select 切换到 chatID：先关闭旧连接，再启动新连接并拉取历史
// 历史返回时如果已经切换到别的聊天，结果被丢弃并返回 ErrStaleResponse
func (m *Manager) Select(ctx context.Context, chatID int64) (model.Chat, error) {
	m.switchMu.Lock()
	m.mu.Lock()
	if m.actor == nil {
		m.mu.Unlock()
		m.switchMu.Unlock()
		return model.Chat{}, errorx.ErrNoActor
	}
	if _, ok := m.index[chatID]; !ok {
		m.mu.Unlock()
		m.switchMu.Unlock()
		return model.Chat{}, errorx.Newf(errorx.CodeNotFound, "聊天 %d 不在当前列表中", chatID)
	}
	old := m.link
	m.seq++
	seq := m.seq
	m.activeID = chatID
	m.historyReady = false
	m.histGen++
	gen := m.histGen
	m.pending = nil
	m.lastSeenID = 0
	listener := &linkListener{m: m}
	link := m.deps.Links(chatID, m.actor.UserID, listener)
	m.link = link
	m.listener = listener
	m.setStatusLocked(model.StatusLoading)
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	link.Start()
	m.switchMu.Unlock()

	zap.L().Info("chat selected", zap.Int64("chat_id", chatID), zap.Uint64("seq", seq))
	recs, fetchErr := m.deps.Repo.GetMessages(ctx, chatID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seq != seq || m.activeID != chatID {
		zap.L().Info("drop stale history response", zap.Int64("chat_id", chatID), zap.Uint64("seq", seq), zap.Uint64("current_seq", m.seq))
		return model.Chat{}, errorx.ErrStaleResponse
	}
	if gen != m.histGen {
		// 拉取期间发生了重连，这份历史可能缺少断线期间的事件，交给重连后的同步
		zap.L().Info("history superseded by resync", zap.Int64("chat_id", chatID), zap.Uint64("gen", gen), zap.Uint64("current_gen", m.histGen))
		return m.chats[m.index[chatID]].Clone(), nil
	}
	if fetchErr != nil {
		zap.L().Error("fetch history failed", zap.Int64("chat_id", chatID), zap.Error(fetchErr))
		m.applyHistoryLocked(nil, false)
		return m.chats[m.index[chatID]].Clone(), fetchErr
	}
	m.applyHistoryLocked(chat.MessagesFromRecords(recs, *m.actor, m.opts.PrivilegedLabel), true)
	return m.chats[m.index[chatID]].Clone(), nil
}

// applyHistoryLocked 用历史替换当前聊天的消息并重放缓存的帧
// ok=false 表示历史拉取失败：保留现有消息，只重放缓存
func (m *Manager) applyHistoryLocked(msgs []model.Message, ok bool) {
	i := m.index[m.activeID]
	if ok {
		m.chats[i] = chat.WithHistory(m.chats[i], msgs)
		m.lastSeenID = maxMessageID(msgs)
		m.saveMetaLocked(m.chats[i])
	}
	m.historyReady = true
	pending := m.pending
	m.pending = nil
	for _, f := range pending {
		m.applyLocked(f)
	}
	m.publishLocked(model.Update{
		Type:        model.UpdateSelected,
		ChatID:      m.activeID,
		LastMessage: m.chats[i].LastMessage,
	})
}

// Disconnect 关闭当前聊天的连接，状态回到 Idle
func (m *Manager) Disconnect() {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()
	m.mu.Lock()
	old := m.dropSelectionLocked()
	m.seq++
	m.mu.Unlock()
	if old != nil {
		old.Close()
	}
}

// Close 关闭连接并清空会话
func (m *Manager) Close() {
	m.Disconnect()
	m.mu.Lock()
	m.actor = nil
	m.chats = []model.Chat{}
	m.reindexLocked()
	m.outbox = nil
	m.loadSeq++
	m.publishLocked(model.Update{Type: model.UpdateChats})
	m.mu.Unlock()
}

// dropSelectionLocked 清除当前选择，返回需要在锁外关闭的旧连接
func (m *Manager) dropSelectionLocked() ws.ChatLink {
	old := m.link
	m.link = nil
	m.listener = nil
	m.activeID = 0
	m.historyReady = false
	m.pending = nil
	if old != nil || m.status != model.StatusIdle {
		m.setStatusLocked(model.StatusIdle)
	}
	return old
}

// ==================== 连接回调 ====================

// linkListener 把连接回调转给 Manager，避免在 Manager 上暴露回调方法
type linkListener struct {
	m *Manager
}

func (l *linkListener) OnFrame(_ ws.ChatLink, f model.Frame) {
	l.m.onFrame(l, f)
}

func (l *linkListener) OnState(_ ws.ChatLink, ev ws.StateEvent) {
	l.m.onState(l, ev)
}

func (m *Manager) onFrame(l *linkListener, f model.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l != m.listener {
		return
	}
	if !m.historyReady {
		if len(m.pending) >= constants.MAX_PENDING_FRAMES {
			zap.L().Warn("pending frame buffer full, dropping oldest", zap.Int64("chat_id", m.activeID))
			m.pending = m.pending[1:]
		}
		m.pending = append(m.pending, f)
		return
	}
	m.applyLocked(f)
}

func (m *Manager) onState(l *linkListener, ev ws.StateEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l != m.listener {
		return
	}
	switch ev.State {
	case ws.StateConnected:
		m.setStatusLocked(model.StatusConnected)
		if ev.Reconnected {
			// 断线期间的事件已丢失，重新拉取完整历史；进行中的拉取一律作废
			m.historyReady = false
			m.histGen++
			go m.resync(l, m.seq, m.histGen, m.activeID)
		}
	case ws.StateDisconnected:
		m.setStatusLocked(model.StatusDisconnected)
		if ev.RetryIn == 0 && ev.Err != nil {
			zap.L().Warn("chat link stopped reconnecting", zap.Int64("chat_id", m.activeID), zap.Error(ev.Err))
		}
	case ws.StateConnecting:
		// 首次连接保持 Loading，重连期间保持 Disconnected
	}
}

// resync 重连后的全量同步
func (m *Manager) resync(l *linkListener, seq, gen uint64, chatID int64) {
	ctx, cancel := context.WithTimeout(context.Background(), m.opts.ResyncTimeout)
	defer cancel()
	recs, err := m.deps.Repo.GetMessages(ctx, chatID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if l != m.listener || seq != m.seq || gen != m.histGen {
		return
	}
	if err != nil {
		zap.L().Error("resync history failed", zap.Int64("chat_id", chatID), zap.Error(err))
		m.applyHistoryLocked(nil, false)
		return
	}
	msgs := chat.MessagesFromRecords(recs, *m.actor, m.opts.PrivilegedLabel)
	newer := 0
	for _, msg := range msgs {
		if msg.ID > m.lastSeenID {
			newer++
		}
	}
	zap.L().Info("chat resynced after reconnect",
		zap.Int64("chat_id", chatID),
		zap.Int64("last_seen_id", m.lastSeenID),
		zap.Int("newer", newer),
		zap.Int("total", len(msgs)),
	)
	m.applyHistoryLocked(msgs, true)
}

// applyLocked 应用一帧并发布结果
func (m *Manager) applyLocked(f model.Frame) {
	i, ok := m.index[m.activeID]
	if !ok || m.actor == nil {
		return
	}
	prev := m.chats[i]
	next, out := chat.Apply(prev, f, *m.actor, chat.Options{Now: m.opts.Now, PrivilegedLabel: m.opts.PrivilegedLabel})

	switch out {
	case chat.Ignored:
		zap.L().Warn("unknown chat frame action", zap.String("action", f.Action), zap.Int64("chat_id", m.activeID))
		return
	case chat.ForeignChat, chat.NotFound:
		zap.L().Debug("chat frame not applied", zap.String("outcome", out.String()), zap.String("action", f.Action), zap.Int64("message_id", f.MessageID))
		return
	case chat.Duplicate:
		zap.L().Debug("duplicate create", zap.Int64("message_id", f.MessageID))
		m.ackOutboxLocked(f)
		return
	}

	m.chats[i] = next
	if f.Action == model.ActionCreate {
		if f.MessageID > m.lastSeenID {
			m.lastSeenID = f.MessageID
		}
		m.ackOutboxLocked(f)
	}
	if next.LastMessage != prev.LastMessage || !next.LastMessageTime.Equal(prev.LastMessageTime) {
		m.saveMetaLocked(next)
	}
	m.publishLocked(model.Update{
		Type:        model.UpdateMessage,
		ChatID:      next.ID,
		Action:      f.Action,
		MessageID:   f.MessageID,
		LastMessage: next.LastMessage,
	})
}

func (m *Manager) saveMetaLocked(c model.Chat) {
	if m.deps.Cache == nil || c.LastMessage == "" {
		return
	}
	myredis.SaveChatMetaAsync(m.deps.Cache, c.ID, myredis.ChatMeta{Text: c.LastMessage, Time: c.LastMessageTime}, m.opts.MetaTTL)
}

func (m *Manager) setStatusLocked(s model.SessionStatus) {
	if m.status == s {
		return
	}
	m.status = s
	m.publishLocked(model.Update{Type: model.UpdateStatus, ChatID: m.activeID, Status: s})
}

// publishLocked Publisher 的实现都不阻塞，可以在锁内调用以保证事件顺序
func (m *Manager) publishLocked(u model.Update) {
	if m.deps.Publisher == nil {
		return
	}
	u.At = m.opts.Now()
	if err := m.deps.Publisher.Publish(context.Background(), u); err != nil {
		zap.L().Warn("publish update failed", zap.String("type", string(u.Type)), zap.Error(err))
	}
}

// ==================== 只读快照 ====================

// Status 当前连接状态
func (m *Manager) Status() model.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Actor 当前用户，未加载时返回 nil
func (m *Manager) Actor() *model.Actor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.actor == nil {
		return nil
	}
	a := *m.actor
	return &a
}

// Scope 最近一次加载使用的范围
func (m *Manager) Scope() backend.Scope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scope
}

// ActiveChatID 当前选中的聊天，未选择时为 0
func (m *Manager) ActiveChatID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID
}

// Chats 聊天列表快照（不含消息）
func (m *Manager) Chats() []model.Chat {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Chat, 0, len(m.chats))
	for _, c := range m.chats {
		out = append(out, c.Summary())
	}
	return out
}

// ActiveChat 当前聊天的完整快照
func (m *Manager) ActiveChat() (model.Chat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.index[m.activeID]
	if m.activeID == 0 || !ok {
		return model.Chat{}, errorx.ErrNoActiveChat
	}
	return m.chats[i].Clone(), nil
}

func maxMessageID(msgs []model.Message) int64 {
	var max int64
	for _, msg := range msgs {
		if msg.ID > max {
			max = msg.ID
		}
	}
	return max
}
