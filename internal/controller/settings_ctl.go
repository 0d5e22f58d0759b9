package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	msgFetchSettingsFailed  = "Failed to fetch store settings"
	msgUpdateSettingsFailed = "Failed to update settings"
)

// SettingsController 设置页使用的接口，与店铺接口返回同一份店铺文档
type SettingsController struct {
	store *StoreController
}

// NewSettingsController 创建设置控制器
func NewSettingsController(store *StoreController) *SettingsController {
	return &SettingsController{store: store}
}

// GetSettings 获取店铺设置
// @Summary 获取店铺设置
// @Tags Settings
// @Produce json
// @Success 200 {object} model.Store
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/reseller/settings [get]
func (c *SettingsController) GetSettings(ctx *gin.Context) {
	resellerID, ok := currentReseller(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	store, err := c.store.storeService.GetStore(ctx.Request.Context(), resellerID)
	if err != nil {
		c.store.errors.respond(ctx, "get_settings", err, msgFetchSettingsFailed)
		return
	}

	ctx.JSON(http.StatusOK, store)
}

// UpdateSettings 修改店铺设置
// @Summary 修改店铺设置
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body object true "要修改的字段"
// @Success 200 {object} model.Store
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/reseller/settings [patch]
func (c *SettingsController) UpdateSettings(ctx *gin.Context) {
	c.store.update(ctx, "update_settings", msgUpdateSettingsFailed)
}
