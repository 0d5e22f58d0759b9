package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/service"
)

// ==================== AdminController 后台管理 ====================

// AdminController 管理员接口
type AdminController struct {
	storeService *service.StoreService
	userService  *service.UserService
	errors       errorResponder
}

// NewAdminController 创建后台控制器
func NewAdminController(
	storeService *service.StoreService,
	userService *service.UserService,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AdminController {
	return &AdminController{
		storeService: storeService,
		userService:  userService,
		errors:       errorResponder{metrics: m, logger: logger},
	}
}

// ListStores 店铺列表
// @Summary 店铺列表
// @Tags Admin
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param status query string false "状态 active/suspended"
// @Param keyword query string false "店铺名 / 子域名 / 自定义域名"
// @Success 200 {object} dto.StoreListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/admin/stores [get]
func (c *AdminController) ListStores(ctx *gin.Context) {
	var req dto.StoreListRequest
	if err := ctx.ShouldBindQuery(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := c.storeService.ListStores(ctx.Request.Context(), &req)
	if err != nil {
		c.errors.respond(ctx, "list_stores", err, "Failed to fetch stores")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// UpdateStoreStatus 启用 / 停用店铺
// @Summary 修改店铺状态
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "店铺 ID"
// @Param request body dto.UpdateStoreStatusRequest true "状态"
// @Success 200 {object} model.Store
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/admin/stores/{id}/status [patch]
func (c *AdminController) UpdateStoreStatus(ctx *gin.Context) {
	storeID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || storeID <= 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid store id"})
		return
	}

	var req dto.UpdateStoreStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidStatus.Message})
		return
	}

	store, err := c.storeService.UpdateStatus(ctx.Request.Context(), storeID, req.Status)
	if err != nil {
		c.errors.respond(ctx, "update_store_status", err, msgUpdateStoreFailed)
		return
	}

	ctx.JSON(http.StatusOK, store)
}

// ListUsers 账号列表
// @Summary 账号列表
// @Tags Admin
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param keyword query string false "用户名 / 邮箱"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/users [get]
func (c *AdminController) ListUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := c.userService.ListUsers(ctx.Request.Context(), ctx.Query("keyword"), page, pageSize)
	if err != nil {
		c.errors.respond(ctx, "list_users", err, "Failed to fetch users")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"list":      users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}
