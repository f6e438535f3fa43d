package websocket

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"cms_chat_console/pkg/constants"
	"cms_chat_console/pkg/errorx"
)

// BuildChatURL 拼接聊天连接地址：<base>/ws/chat?chat_id={id}&user_id={uid}
// base 可以是 ws(s):// 或 http(s)://，后者会被换成对应的 ws 协议
func BuildChatURL(base string, chatID, userID int64) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", errorx.Wrapf(err, errorx.CodeInvalidParam, "websocket 地址 %q 无效", base)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", errorx.Newf(errorx.CodeInvalidParam, "websocket 地址 %q 协议不支持", base)
	}
	u.Path += "/ws/chat"
	q := url.Values{}
	q.Set("chat_id", strconv.FormatInt(chatID, 10))
	q.Set("user_id", strconv.FormatInt(userID, 10))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// TokenHeader 带鉴权 cookie 的握手请求头
func TokenHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Cookie", (&http.Cookie{Name: constants.TOKEN_COOKIE_NAME, Value: token}).String())
	}
	return h
}

// NewLinkFactory 返回按配置创建 Link 的工厂
// 地址无效时返回的 Link 会一直处于重连中，错误在 Validate 阶段就应被拦下
func NewLinkFactory(base, token string, b BackoffConfig) LinkFactory {
	header := TokenHeader(token)
	return func(chatID, userID int64, l Listener) ChatLink {
		u, err := BuildChatURL(base, chatID, userID)
		if err != nil {
			u = base
		}
		return NewLink(LinkOptions{URL: u, Header: header.Clone(), Backoff: b}, l)
	}
}
