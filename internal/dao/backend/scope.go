package backend

import (
	"fmt"

	"cms_chat_console/pkg/errorx"
)

// 聊天列表范围
const (
	ScopeAll     = "all"     // 管理员：全部聊天
	ScopeLeak    = "leak"    // 某个 leaked 记录下的聊天
	ScopeSupport = "support" // 当前用户的客服聊天（单个）
)

// Scope 聊天列表的加载范围
type Scope struct {
	Kind     string `json:"kind"`
	LeakedID int64  `json:"leaked_id,omitempty"`
}

// ParseScope 校验并构造 Scope，空字符串视为 all
func ParseScope(kind string, leakedID int64) (Scope, error) {
	switch kind {
	case "", ScopeAll:
		return Scope{Kind: ScopeAll}, nil
	case ScopeSupport:
		return Scope{Kind: ScopeSupport}, nil
	case ScopeLeak:
		if leakedID <= 0 {
			return Scope{}, errorx.New(errorx.CodeInvalidParam, "scope=leak 需要 leaked_id")
		}
		return Scope{Kind: ScopeLeak, LeakedID: leakedID}, nil
	}
	return Scope{}, errorx.Newf(errorx.CodeInvalidParam, "未知的聊天范围 %q", kind)
}

// path 返回范围对应的 REST 路径
func (s Scope) path() string {
	switch s.Kind {
	case ScopeLeak:
		return fmt.Sprintf("/chats_user/%d", s.LeakedID)
	case ScopeSupport:
		return "/chats/u/v1"
	default:
		return "/chats"
	}
}

func (s Scope) String() string {
	if s.Kind == ScopeLeak {
		return fmt.Sprintf("%s:%d", s.Kind, s.LeakedID)
	}
	return s.Kind
}
