package constants

import "time"

const (
	CHANNEL_SIZE        = 100          // 通道大小
	ADMIN_ROLE_ID       = 1            // 特权角色（管理员/客服）的 role_id
	DEFAULT_ADMIN_LABEL = "Admin"      // 特权角色发送者的默认显示名
	UNKNOWN_LOGIN_LABEL = "???"        // 发送者 login 为空时的显示名
	TODAY_LABEL         = "Today"      // 当天分组的标签
	DAY_KEY_LAYOUT      = "02.01.2006" // 日期分组的 key 格式 dd.mm.yyyy
	CLOCK_LAYOUT        = "15:04"      // 当天消息的时间格式
	TOKEN_COOKIE_NAME   = "token"      // CMS 后端鉴权 cookie 名
	REDIS_META_PREFIX   = "chat_meta_" // Redis 中聊天最后一条消息快照的 key 前缀
	MAX_PENDING_FRAMES  = 1000         // 历史加载完成前最多缓存的帧数
	MAX_OUTBOX_ENTRIES  = 200          // outbox 保留的最大条数
	MAX_CONTENT_LENGTH  = 4000         // 单条消息最大长度（字符）
)

const (
	DEFAULT_HTTP_TIMEOUT = 10 * time.Second // REST 请求默认超时
	DEFAULT_ACK_TIMEOUT  = 10 * time.Second // 发出消息等待回显的默认超时
	WS_WRITE_WAIT        = 5 * time.Second  // 单帧写超时
	WS_HANDSHAKE_TIMEOUT = 10 * time.Second // WebSocket 握手超时
)
