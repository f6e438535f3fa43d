package session

import (
	"context"
	"sync"
	"time"

	"cms_chat_console/internal/dao/backend"
	"cms_chat_console/internal/dto/respond"
	ws "cms_chat_console/internal/gateway/websocket"
	"cms_chat_console/internal/model"
)

// fakeRepo 可控的后端
type fakeRepo struct {
	mu      sync.Mutex
	me      *respond.MeRespond
	meErr   error
	chats   []respond.ChatRecord
	listErr error
	history map[int64][]respond.MessageRecord
	histErr error
	// gates 中存在的聊天，GetMessages 会等到通道关闭才返回
	gates   map[int64]chan struct{}
	fetched chan int64

	// snapshotAtRequest 为 true 时返回请求发出时的历史，而不是放行时的
	snapshotAtRequest bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		me:      &respond.MeRespond{UserID: 7, Login: "operator", RoleID: 2},
		history: map[int64][]respond.MessageRecord{},
		gates:   map[int64]chan struct{}{},
		fetched: make(chan int64, 64),
	}
}

func (r *fakeRepo) Me(ctx context.Context) (*respond.MeRespond, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meErr != nil {
		return nil, r.meErr
	}
	me := *r.me
	return &me, nil
}

func (r *fakeRepo) ListChats(ctx context.Context, scope backend.Scope) ([]respond.ChatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chats, r.listErr
}

func (r *fakeRepo) GetMessages(ctx context.Context, chatID int64) ([]respond.MessageRecord, error) {
	r.mu.Lock()
	gate := r.gates[chatID]
	var snapshot []respond.MessageRecord
	if r.snapshotAtRequest {
		snapshot = append([]respond.MessageRecord(nil), r.history[chatID]...)
	}
	r.mu.Unlock()
	r.fetched <- chatID
	if gate != nil {
		<-gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.histErr != nil {
		return nil, r.histErr
	}
	if r.snapshotAtRequest {
		return snapshot, nil
	}
	return append([]respond.MessageRecord(nil), r.history[chatID]...), nil
}

func (r *fakeRepo) gate(chatID int64) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	ch := make(chan struct{})
	r.gates[chatID] = ch
	return ch
}

func (r *fakeRepo) setHistory(chatID int64, recs ...respond.MessageRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history[chatID] = recs
}

// fakeLink 内存连接，测试通过 frame/state 模拟服务端
type fakeLink struct {
	chatID, userID int64
	listener       ws.Listener

	mu      sync.Mutex
	started bool
	closed  bool
	sent    []model.Frame
	sendErr error
	onSend  func(f model.Frame)
}

func (l *fakeLink) Start() {
	l.mu.Lock()
	l.started = true
	l.mu.Unlock()
}

func (l *fakeLink) Send(_ context.Context, f model.Frame) error {
	l.mu.Lock()
	if l.sendErr != nil {
		err := l.sendErr
		l.mu.Unlock()
		return err
	}
	l.sent = append(l.sent, f)
	cb := l.onSend
	l.mu.Unlock()
	if cb != nil {
		cb(f)
	}
	return nil
}

func (l *fakeLink) Close() {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
}

func (l *fakeLink) State() ws.LinkState {
	return ws.StateConnected
}

func (l *fakeLink) frame(f model.Frame) {
	l.listener.OnFrame(l, f)
}

func (l *fakeLink) state(ev ws.StateEvent) {
	l.listener.OnState(l, ev)
}

func (l *fakeLink) isOpen() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started && !l.closed
}

func (l *fakeLink) sentFrames() []model.Frame {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Frame(nil), l.sent...)
}

type linkSet struct {
	mu    sync.Mutex
	links []*fakeLink
}

func (s *linkSet) factory(chatID, userID int64, l ws.Listener) ws.ChatLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	link := &fakeLink{chatID: chatID, userID: userID, listener: l}
	s.links = append(s.links, link)
	return link
}

func (s *linkSet) get(i int) *fakeLink {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.links[i]
}

func (s *linkSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *linkSet) open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.links {
		if l.isOpen() {
			n++
		}
	}
	return n
}

var testNow = time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func msgRec(id int64, senderID int64, content string) respond.MessageRecord {
	return respond.MessageRecord{
		ID:        id,
		Content:   content,
		Sender:    respond.SenderRecord{ID: senderID, Login: "u" + content, RoleID: 3},
		CreatedAt: testNow.Add(time.Duration(id) * time.Minute),
	}
}
