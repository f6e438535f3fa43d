package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cms_chat_console/internal/model"
	"cms_chat_console/pkg/constants"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
}

// PushClient 控制台的一个推送订阅者（浏览器或其他 UI）
type PushClient struct {
	Conn   *websocket.Conn
	Uuid   string
	closed chan struct{}
	once   sync.Once
}

// ServeUpdates 升级连接并把 updates 中的事件推送给前端，连接断开后返回
// release 在返回前调用，用于取消订阅；checkOrigin 为 nil 时只接受同源握手
func ServeUpdates(w http.ResponseWriter, r *http.Request, updates <-chan model.Update, release func(), checkOrigin func(*http.Request) bool) error {
	defer release()
	up := upgrader
	up.CheckOrigin = checkOrigin
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	client := &PushClient{
		Conn:   conn,
		Uuid:   uuid.NewString(),
		closed: make(chan struct{}),
	}
	zap.L().Info("push client connected", zap.String("client_id", client.Uuid))
	go client.Read()
	client.Write(updates)
	zap.L().Info("push client disconnected", zap.String("client_id", client.Uuid))
	return nil
}

// Read 前端不发业务消息，这里只负责发现连接关闭
func (c *PushClient) Read() {
	defer c.close()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Write 从 updates 读取事件写给前端
func (c *PushClient) Write(updates <-chan model.Update) {
	defer c.close()
	for {
		select {
		case <-c.closed:
			return
		case u, ok := <-updates:
			if !ok {
				_ = c.Conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(time.Second))
				return
			}
			_ = c.Conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.Conn.WriteJSON(u); err != nil {
				zap.L().Warn("push write failed", zap.String("client_id", c.Uuid), zap.Error(err))
				return
			}
		}
	}
}

func (c *PushClient) close() {
	c.once.Do(func() {
		close(c.closed)
		_ = c.Conn.Close()
	})
}
