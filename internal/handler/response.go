package handler

import (
	"errors"
	"net/http"

	"support_chat_server/internal/infrastructure/logger"
	"support_chat_server/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResponseData 统一响应信封
// 业务结果一律 HTTP 200 返回，由 code 区分；轮询客户端据此判断是否重试
type ResponseData struct {
	Code int `json:"code"`
	Msg  any `json:"msg"`
	Data any `json:"data"`
}

func reply(c *gin.Context, code int, msg any, data any) {
	c.JSON(http.StatusOK, ResponseData{Code: code, Msg: msg, Data: data})
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	reply(c, errorx.CodeSuccess, "success", data)
}

// HandleError 将 service 层错误写回客户端
// 业务错误原样返回；数据库、缓存故障记录日志后带上原始错误码，
// 非 CodeError 一律视为服务繁忙
func HandleError(c *gin.Context, err error) {
	var codeErr *errorx.CodeError
	if !errors.As(err, &codeErr) {
		logRequestError(c, "unexpected error", err)
		reply(c, errorx.ErrServerBusy.Code, errorx.ErrServerBusy.Msg, nil)
		return
	}
	if !errorx.IsBusiness(err) {
		logRequestError(c, "storage error", err)
	}
	reply(c, codeErr.Code, codeErr.Msg, nil)
}

// HandleParamError 处理参数绑定错误
// 校验失败时 msg 为 {字段: 提示} 的映射，JSON 解析失败时为固定提示
func HandleParamError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		reply(c, errorx.CodeInvalidParam, RemoveTopStruct(validationErrs.Translate(Trans)), nil)
		return
	}
	zap.L().Debug("param bind error",
		zap.String("path", c.FullPath()),
		zap.String("request_id", c.GetString(logger.RequestIDKey)),
		zap.Error(err),
	)
	reply(c, errorx.CodeInvalidParam, errorx.ErrInvalidParam.Msg, nil)
}

func logRequestError(c *gin.Context, msg string, err error) {
	zap.L().Error(msg,
		zap.String("path", c.FullPath()),
		zap.String("method", c.Request.Method),
		zap.String("request_id", c.GetString(logger.RequestIDKey)),
		zap.Error(err),
	)
}
