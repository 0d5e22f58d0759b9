package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/service"
)

// ==================== AuthController 登录会话 ====================

// AuthController 注册、登录与会话
type AuthController struct {
	userService *service.UserService
	errors      errorResponder
}

// NewAuthController 创建认证控制器
func NewAuthController(userService *service.UserService, logger *zap.Logger) *AuthController {
	return &AuthController{
		userService: userService,
		errors:      errorResponder{logger: logger},
	}
}

// Register 注册分销商
// @Summary 注册分销商账号
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "注册信息"
// @Success 200 {object} dto.UserInfo
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/auth/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req dto.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := c.userService.Register(ctx.Request.Context(), &req)
	if err != nil {
		c.errors.respond(ctx, "register", err, "Failed to register")
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// Login 用户登录，同时写入会话 Cookie 供页面使用
// @Summary 用户登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "登录信息"
// @Success 200 {object} dto.LoginResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req dto.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := c.userService.Login(ctx.Request.Context(), &req)
	if err != nil {
		c.errors.respond(ctx, "login", err, "Failed to sign in")
		return
	}

	middleware.SetSessionCookie(ctx, resp.AccessToken)
	ctx.JSON(http.StatusOK, resp)
}

// RefreshToken 刷新 Token
// @Summary 刷新 Token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh Token"
// @Success 200 {object} dto.RefreshTokenResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/refresh [post]
func (c *AuthController) RefreshToken(ctx *gin.Context) {
	var req dto.RefreshTokenRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	resp, err := c.userService.RefreshToken(ctx.Request.Context(), &req)
	if err != nil {
		c.errors.respond(ctx, "refresh_token", err, "Failed to refresh token")
		return
	}

	ctx.JSON(http.StatusOK, resp)
}

// SignOut 清除会话并回到首页
// @Summary 退出登录
// @Tags Auth
// @Success 303
// @Router /auth/signout [post]
func (c *AuthController) SignOut(ctx *gin.Context) {
	middleware.ClearSessionCookie(ctx)
	ctx.Redirect(http.StatusSeeOther, "/")
}

// Me 当前用户
// @Summary 获取当前用户信息
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.UserInfo
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/me [get]
func (c *AuthController) Me(ctx *gin.Context) {
	user, err := c.userService.GetProfile(ctx.Request.Context(), middleware.GetUserID(ctx))
	if err != nil {
		c.errors.respond(ctx, "get_profile", err, "Failed to fetch user")
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// ChangePassword 修改密码
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.ChangePasswordRequest true "密码信息"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/auth/password [put]
func (c *AuthController) ChangePassword(ctx *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	if err := c.userService.ChangePassword(ctx.Request.Context(), middleware.GetUserID(ctx), &req); err != nil {
		c.errors.respond(ctx, "change_password", err, "Failed to change password")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}
