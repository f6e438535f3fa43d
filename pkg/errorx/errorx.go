package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持包装底层错误，能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 存在底层错误时返回 "消息: 底层错误"，否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 两个 CodeError 错误码相同即视为同一类错误
// 这样 errors.Is(err, errorx.ErrNotConnected) 对 Wrap 出来的错误同样成立
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeBackendError, "获取聊天列表失败")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{Code: code, Msg: msg, cause: err}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeBackendError, "获取聊天 %d 的消息失败", chatID)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{Code: code, Msg: fmt.Sprintf(format, args...), cause: err}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回 CodeServerBusy
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy
}

// 业务状态码常量定义
const (
	CodeSuccess       = 1000 // 成功
	CodeInvalidParam  = 1001 // 请求参数错误
	CodeServerBusy    = 1005 // 服务繁忙
	CodeUnauthorized  = 1006 // 未授权/Token 失效
	CodeForbidden     = 1007 // 请求来源不被允许
	CodeNotFound      = 1008 // 资源不存在
	CodeCacheError    = 1011 // 缓存错误
	CodeBackendError  = 1020 // CMS 后端接口调用失败
	CodeNotConnected  = 1021 // 聊天 WebSocket 未连接
	CodeNoActiveChat  = 1022 // 当前没有选中的聊天
	CodeStaleResponse = 1023 // 响应已过期（聊天已切换）
	CodeNoActor       = 1024 // 尚未获取当前用户身份
)

// 预定义常用错误实例，既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam  = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy    = New(CodeServerBusy, "服务繁忙")
	ErrNotConnected  = New(CodeNotConnected, "聊天连接未建立")
	ErrNoActiveChat  = New(CodeNoActiveChat, "未选择聊天")
	ErrStaleResponse = New(CodeStaleResponse, "聊天已切换，响应被丢弃")
	ErrNoActor       = New(CodeNoActor, "当前用户未知，请先加载会话")
)

// IsNotFound 检查错误是否为"未找到"类型
func IsNotFound(err error) bool {
	var codeErr *CodeError
	return errors.As(err, &codeErr) && codeErr.Code == CodeNotFound
}
