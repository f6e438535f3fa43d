package handler

import (
	"errors"
	"net/http"

	"cms_chat_console/pkg/errorx"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ResponseData 统一响应结构，HTTP 状态码固定 200，业务结果看 code
type ResponseData struct {
	Code int `json:"code"`           // 业务响应状态码
	Msg  any `json:"msg"`            // 提示信息，参数错误时为字段→原因
	Data any `json:"data,omitempty"` // 数据
}

// HandleSuccess 返回成功响应
func HandleSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, ResponseData{Code: errorx.CodeSuccess, Msg: "success", Data: data})
}

// HandleError 业务错误原样返回错误码和消息，其余错误记录日志后返回 CodeServerBusy
//
//	if err := h.svc.Edit(ctx, id, content); err != nil {
//	    HandleError(c, err)
//	    return
//	}
func HandleError(c *gin.Context, err error) {
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		if codeErr.Code == errorx.CodeBackendError || codeErr.Code == errorx.CodeNotConnected {
			zap.L().Warn("request failed", zap.String("path", c.Request.URL.Path), zap.Int("code", codeErr.Code), zap.Error(err))
		}
		c.JSON(http.StatusOK, ResponseData{Code: codeErr.Code, Msg: codeErr.Msg})
		return
	}

	zap.L().Error("system error",
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.Error(err),
	)
	c.JSON(http.StatusOK, ResponseData{Code: errorx.ErrServerBusy.Code, Msg: errorx.ErrServerBusy.Msg})
}

// HandleParamError 参数绑定错误，validator 错误翻译成 字段→原因
func HandleParamError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && Trans != nil {
		c.JSON(http.StatusOK, ResponseData{
			Code: errorx.ErrInvalidParam.Code,
			Msg:  RemoveTopStruct(validationErrs.Translate(Trans)),
		})
		return
	}

	// JSON 格式错误、路径参数不是数字等
	zap.L().Debug("param bind error", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(http.StatusOK, ResponseData{Code: errorx.ErrInvalidParam.Code, Msg: errorx.ErrInvalidParam.Msg})
}
