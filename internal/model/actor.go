package model

// Actor 当前登录用户，来自 GET /auth/me
// 每次加载会话时获取一次，之后只读
type Actor struct {
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	RoleID int    `json:"role_id"`
}
