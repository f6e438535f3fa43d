package request

// LoadSessionRequest 重新加载聊天列表
// 使用位置: POST /api/session/load
type LoadSessionRequest struct {
	Scope    string `json:"scope" binding:"omitempty,oneof=all leak support"`
	LeakedID int64  `json:"leaked_id" binding:"required_if=Scope leak,gte=0"`
}

// ChatURIRequest 路径中的聊天 id
// 使用位置: POST /api/chats/:id/select
type ChatURIRequest struct {
	ChatID int64 `uri:"id" binding:"required,gt=0"`
}

// MessageURIRequest 路径中的消息 id
// 使用位置: PUT/DELETE /api/messages/:id
type MessageURIRequest struct {
	MessageID int64 `uri:"id" binding:"required,gt=0"`
}

// SendMessageRequest 发送新消息
// 使用位置: POST /api/messages
type SendMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}

// EditMessageRequest 编辑消息
// 使用位置: PUT /api/messages/:id
type EditMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
}
