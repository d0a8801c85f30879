package errorx

import (
	"errors"
	"fmt"
)

// CodeError 带业务错误码的自定义错误
// 实现了 error 接口，支持 %w 包装底层错误，且能被 errors.Is/errors.As 识别
type CodeError struct {
	Code  int    // 业务错误码
	Msg   string // 错误消息
	cause error  // 被包装的底层错误
}

// Error 实现 Go 标准 error 接口
// 当存在底层错误时，返回格式为 "消息: 底层错误"；否则仅返回消息
func (e *CodeError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.cause)
	}
	return e.Msg
}

// Unwrap 实现 errors.Unwrap 接口，支持 errors.Is/errors.As 向下追溯
func (e *CodeError) Unwrap() error {
	return e.cause
}

// Is 按业务码比较，使 errors.Is(err, errorx.ErrNotFound) 对任意同码错误成立
func (e *CodeError) Is(target error) bool {
	var t *CodeError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// New 创建一个新的 CodeError
func New(code int, msg string) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  msg,
	}
}

// Newf 创建一个带格式化消息的 CodeError
func Newf(code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// Wrap 包装底层错误，添加业务错误码和消息
// 用法: errorx.Wrap(err, CodeNotFound, "会话不存在")
func Wrap(err error, code int, msg string) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   msg,
		cause: err,
	}
}

// Wrapf 包装底层错误，支持格式化消息
// 用法: errorx.Wrapf(err, CodeNotFound, "会话 %s 不存在", sessionId)
func Wrapf(err error, code int, format string, args ...any) *CodeError {
	return &CodeError{
		Code:  code,
		Msg:   fmt.Sprintf(format, args...),
		cause: err,
	}
}

// GetCode 从错误中提取业务错误码，如果不是 CodeError 则返回默认码
func GetCode(err error) int {
	var codeErr *CodeError
	if errors.As(err, &codeErr) {
		return codeErr.Code
	}
	return CodeServerBusy // 默认返回服务繁忙
}

// HasCode 判断错误链上是否带有指定业务码
func HasCode(err error, code int) bool {
	return err != nil && GetCode(err) == code
}

// 业务状态码常量定义
const (
	CodeSuccess      = 1000 // 成功
	CodeInvalidParam = 1001 // 请求参数错误
	CodeServerBusy   = 1005 // 服务繁忙
	CodeUnauthorized = 1006 // 未授权/认证失败
	CodeForbidden    = 1007 // 无权操作该资源
	CodeNotFound     = 1008 // 资源不存在
	CodeDBError      = 1010 // 数据库错误
	CodeCacheError   = 1011 // 缓存错误

	CodeInvalidState     = 2001 // 当前生命周期状态不允许该操作
	CodeAlreadyActive    = 2002 // 客户已有未结束的会话
	CodeSessionNotActive = 2003 // 会话不在 active 窗口内
	CodeNoAgentAvailable = 2004 // 没有可分配的坐席
)

// 预定义常用错误实例
// 这些实例既可直接返回，也可用于 errors.Is 比较
var (
	ErrInvalidParam     = New(CodeInvalidParam, "请求参数错误")
	ErrServerBusy       = New(CodeServerBusy, "服务繁忙")
	ErrForbidden        = New(CodeForbidden, "无权操作该会话")
	ErrNotFound         = New(CodeNotFound, "资源不存在")
	ErrInvalidState     = New(CodeInvalidState, "会话状态不允许该操作")
	ErrAlreadyActive    = New(CodeAlreadyActive, "客户已有进行中的会话")
	ErrSessionNotActive = New(CodeSessionNotActive, "会话未处于进行中状态")
	ErrNoAgentAvailable = New(CodeNoAgentAvailable, "暂无可用坐席")
)

// IsNotFound 检查错误是否为"未找到"类型
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsBusiness 是否为应原样返回给调用方的业务错误
// 数据库、缓存及未知错误返回 false，由调用方记录日志并转换为 ErrServerBusy
func IsBusiness(err error) bool {
	switch GetCode(err) {
	case CodeServerBusy, CodeDBError, CodeCacheError:
		return false
	}
	return true
}
