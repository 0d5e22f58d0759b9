package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reseller_hub/internal/metrics"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/service"
)

// ==================== 错误响应 ====================

// statusOf 错误分类对应的 HTTP 状态码
func statusOf(kind service.ErrorKind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindAuthorization:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// errorResponder 业务错误原样返回，其余错误记录日志后返回通用文案
type errorResponder struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func (r errorResponder) respond(ctx *gin.Context, operation string, err error, fallback string) {
	kind := service.KindOf(err)
	status := statusOf(kind)

	if r.metrics != nil {
		r.metrics.RecordStoreError(operation, kind.String())
	}

	var appErr *service.AppError
	if status == http.StatusInternalServerError || !errors.As(err, &appErr) {
		middleware.RequestLoggerFrom(ctx, r.logger).Error("请求处理失败",
			zap.String("operation", operation),
			zap.Error(err),
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}

	ctx.JSON(status, gin.H{"error": appErr.Message})
}

// ==================== 请求辅助 ====================

// currentReseller 当前登录的分销商 ID
// 路由层已做角色校验，这里再确认一次
func currentReseller(ctx *gin.Context) (int64, bool) {
	if middleware.GetUserRole(ctx) != string(model.UserRoleReseller) {
		return 0, false
	}
	id := middleware.GetUserID(ctx)
	return id, id > 0
}

// unauthorized 统一 401
func unauthorized(ctx *gin.Context) {
	ctx.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrUnauthorized.Message})
}

// readPatch 读取 PATCH 请求体，必须是 JSON 对象
func readPatch(ctx *gin.Context) (map[string]interface{}, error) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		return nil, service.ErrInvalidBody.Wrap(err)
	}

	var patch map[string]interface{}
	if err := json.Unmarshal(raw, &patch); err != nil || patch == nil {
		return nil, service.ErrInvalidBody
	}
	return patch, nil
}
