package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"cms_chat_console/internal/dto/respond"
	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// chatRepository ChatRepository 接口的 fasthttp 实现
type chatRepository struct {
	client  *fasthttp.Client
	baseURL string
	token   string
	timeout time.Duration
}

// NewChatRepository 创建 ChatRepository 实例
// baseURL: 如 "http://localhost:8080"，末尾的 / 会被去掉
// token: 作为 cookie "token" 发送
func NewChatRepository(baseURL, token string, timeout time.Duration) ChatRepository {
	if timeout <= 0 {
		timeout = constants.DEFAULT_HTTP_TIMEOUT
	}
	return &chatRepository{
		client: &fasthttp.Client{
			Name:                "cms_chat_console",
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		timeout: timeout,
	}
}

// Me 获取当前登录用户
func (r *chatRepository) Me(ctx context.Context) (*respond.MeRespond, error) {
	var me respond.MeRespond
	if err := r.getJSON(ctx, "/auth/me", &me); err != nil {
		return nil, err
	}
	return &me, nil
}

// ListChats 按范围获取聊天列表
// support 范围后端返回单个对象而不是数组
func (r *chatRepository) ListChats(ctx context.Context, scope Scope) ([]respond.ChatRecord, error) {
	if scope.Kind == ScopeSupport {
		var one *respond.ChatRecord
		if err := r.getJSON(ctx, scope.path(), &one); err != nil {
			return nil, err
		}
		if one == nil {
			return []respond.ChatRecord{}, nil
		}
		return []respond.ChatRecord{*one}, nil
	}

	var chats []respond.ChatRecord
	if err := r.getJSON(ctx, scope.path(), &chats); err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []respond.ChatRecord{}
	}
	return chats, nil
}

// GetMessages 获取聊天的完整历史
func (r *chatRepository) GetMessages(ctx context.Context, chatID int64) ([]respond.MessageRecord, error) {
	var msgs []respond.MessageRecord
	if err := r.getJSON(ctx, fmt.Sprintf("/chats/%d/messages", chatID), &msgs); err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []respond.MessageRecord{}
	}
	return msgs, nil
}

// getJSON 发送带 token cookie 的 GET 请求并解码 JSON 响应
// fasthttp 不接收 context，这里用 ctx 的截止时间作为请求截止时间
func (r *chatRepository) getJSON(ctx context.Context, path string, out any) error {
	if err := ctx.Err(); err != nil {
		return errorx.Wrapf(err, errorx.CodeBackendError, "GET %s 已取消", path)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.baseURL + path)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")
	if r.token != "" {
		req.Header.SetCookie(constants.TOKEN_COOKIE_NAME, r.token)
	}

	deadline := time.Now().Add(r.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	start := time.Now()
	if err := r.client.DoDeadline(req, resp, deadline); err != nil {
		return errorx.Wrapf(err, errorx.CodeBackendError, "GET %s 请求失败", path)
	}
	zap.L().Debug("backend request",
		zap.String("path", path),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("cost", time.Since(start)),
	)

	return decodeBody(path, resp.StatusCode(), resp.Body(), out)
}

// decodeBody 按状态码归类错误并解码响应体
func decodeBody(path string, status int, body []byte, out any) error {
	switch {
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return errorx.Newf(errorx.CodeUnauthorized, "GET %s: 状态码 %d", path, status)
	case status == fasthttp.StatusNotFound:
		return errorx.Newf(errorx.CodeNotFound, "GET %s: 资源不存在", path)
	case status < 200 || status >= 300:
		return errorx.Newf(errorx.CodeBackendError, "GET %s: 状态码 %d: %s", path, status, snippet(body))
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errorx.Wrapf(err, errorx.CodeBackendError, "GET %s: 解析响应失败", path)
	}
	return nil
}

func snippet(body []byte) string {
	const max = 200
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
