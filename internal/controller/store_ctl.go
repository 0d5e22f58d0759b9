package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/service"
)

// 500 通用文案
const (
	msgCreateStoreFailed = "Failed to create store"
	msgFetchStoreFailed  = "Failed to fetch store"
	msgUpdateStoreFailed = "Failed to update store"
	msgVerifyFailed      = "Failed to verify domain"
)

// ==================== StoreController 分销商店铺 ====================

// StoreController 分销商店铺接口
type StoreController struct {
	storeService *service.StoreService
	verifier     *service.DomainVerifier
	errors       errorResponder
}

// NewStoreController 创建店铺控制器
func NewStoreController(
	storeService *service.StoreService,
	verifier *service.DomainVerifier,
	m *metrics.Metrics,
	logger *zap.Logger,
) *StoreController {
	return &StoreController{
		storeService: storeService,
		verifier:     verifier,
		errors:       errorResponder{metrics: m, logger: logger},
	}
}

// CreateStore 创建店铺
// @Summary 创建店铺
// @Description 每个分销商只能创建一个店铺；isDomainCustom 为 true 时 domain 为自定义域名，否则按店铺名生成子域名
// @Tags Store
// @Accept json
// @Produce json
// @Param request body dto.CreateStoreRequest true "店铺信息"
// @Success 200 {object} dto.CreateStoreResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /api/reseller/store [post]
func (c *StoreController) CreateStore(ctx *gin.Context) {
	resellerID, ok := currentReseller(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	var req dto.CreateStoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": service.ErrInvalidBody.Message})
		return
	}

	resp, err := c.storeService.CreateStore(ctx.Request.Context(), resellerID, &req)
	if err != nil {
		c.errors.respond(ctx, "create_store", err, msgCreateStoreFailed)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// GetStore 获取当前分销商的店铺
// @Summary 获取店铺
// @Tags Store
// @Produce json
// @Success 200 {object} model.Store
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/reseller/store [get]
func (c *StoreController) GetStore(ctx *gin.Context) {
	resellerID, ok := currentReseller(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	store, err := c.storeService.GetStore(ctx.Request.Context(), resellerID)
	if err != nil {
		c.errors.respond(ctx, "get_store", err, msgFetchStoreFailed)
		return
	}

	ctx.JSON(http.StatusOK, store)
}

// UpdateStore 按字段合并更新店铺
// @Summary 修改店铺
// @Description 请求体为任意 JSON 对象，支持嵌套对象和点号路径，如 {"settings.defaultMarkup": 25}
// @Tags Store
// @Accept json
// @Produce json
// @Param request body object true "要修改的字段"
// @Success 200 {object} model.Store
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/reseller/store [patch]
func (c *StoreController) UpdateStore(ctx *gin.Context) {
	c.update(ctx, "update_store", msgUpdateStoreFailed)
}

// update PATCH 店铺与 PATCH 设置共用
func (c *StoreController) update(ctx *gin.Context, operation, fallback string) {
	resellerID, ok := currentReseller(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	patch, err := readPatch(ctx)
	if err != nil {
		c.errors.respond(ctx, operation, err, fallback)
		return
	}

	store, err := c.storeService.UpdateStore(ctx.Request.Context(), resellerID, patch)
	if err != nil {
		c.errors.respond(ctx, operation, err, fallback)
		return
	}

	ctx.JSON(http.StatusOK, store)
}

// VerifyDomain 立即校验自定义域名
// @Summary 校验自定义域名
// @Description 查询 _reseller-verify.<域名> 的 TXT 记录，1 分钟内只能触发一次
// @Tags Store
// @Produce json
// @Success 200 {object} dto.VerifyDomainResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 429 {object} map[string]interface{}
// @Router /api/reseller/store/domain/verify [post]
func (c *StoreController) VerifyDomain(ctx *gin.Context) {
	resellerID, ok := currentReseller(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	resp, err := c.verifier.VerifyForReseller(ctx.Request.Context(), resellerID)
	if err != nil {
		c.errors.respond(ctx, "verify_domain", err, msgVerifyFailed)
		return
	}

	ctx.JSON(http.StatusOK, resp)
}
