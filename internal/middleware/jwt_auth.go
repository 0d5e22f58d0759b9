package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// SessionCookie 页面使用的会话 Cookie，值为 Access Token
const SessionCookie = "session"

// 未授权响应文案
const unauthorizedMessage = "Unauthorized"

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey       string        // 签名密钥
	AccessTokenTTL  time.Duration // Access Token 有效期
	RefreshTokenTTL time.Duration // Refresh Token 有效期
	Issuer          string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:       "reseller-hub-secret-change-in-production",
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		Issuer:          "reseller-hub",
	}
}

// 全局配置
var jwtConfig = DefaultJWTConfig()

// SetJWTConfig 设置 JWT 配置
func SetJWTConfig(cfg *JWTConfig) {
	jwtConfig = cfg
}

// GetJWTConfig 获取 JWT 配置
func GetJWTConfig() *JWTConfig {
	return jwtConfig
}

// ==================== Claims 定义 ====================

// UserClaims 用户声明
type UserClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

const (
	subjectAccess  = "access"
	subjectRefresh = "refresh"
)

// ==================== Token 生成 ====================

func generateToken(userID int64, username, role, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &UserClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    jwtConfig.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtConfig.SecretKey))
}

// GenerateTokenPair 生成 Access / Refresh Token
func GenerateTokenPair(userID int64, username, role string) (accessToken, refreshToken string, err error) {
	accessToken, err = generateToken(userID, username, role, subjectAccess, jwtConfig.AccessTokenTTL)
	if err != nil {
		return "", "", err
	}

	refreshToken, err = generateToken(userID, username, role, subjectRefresh, jwtConfig.RefreshTokenTTL)
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

// ==================== Token 解析 ====================

// ParseToken 解析 Token
func ParseToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(jwtConfig.SecretKey), nil
	}, jwt.WithIssuer(jwtConfig.Issuer))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// IsRefreshToken 是否为 Refresh Token
func IsRefreshToken(claims *UserClaims) bool {
	return claims != nil && claims.Subject == subjectRefresh
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeyUserID   = "user_id"
	ContextKeyUsername = "username"
	ContextKeyRole     = "role"
	ContextKeyClaims   = "claims"
)

// extractToken Authorization: Bearer 优先，其次 session Cookie
func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

// authenticate 解析并注入用户信息，失败返回 false
func authenticate(c *gin.Context) bool {
	tokenString := extractToken(c)
	if tokenString == "" {
		return false
	}

	claims, err := ParseToken(tokenString)
	if err != nil || claims.Subject != subjectAccess {
		return false
	}

	c.Set(ContextKeyUserID, claims.UserID)
	c.Set(ContextKeyUsername, claims.Username)
	c.Set(ContextKeyRole, claims.Role)
	c.Set(ContextKeyClaims, claims)
	return true
}

// abortUnauthorized 统一的 401 响应
func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": unauthorizedMessage})
}

// SessionAuth 强制登录（API）
func SessionAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authenticate(c) {
			abortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireRole 角色校验
// 角色不符同样返回 401
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole := GetUserRole(c)
		for _, r := range roles {
			if userRole != "" && userRole == r {
				c.Next()
				return
			}
		}
		abortUnauthorized(c)
	}
}

// OptionalAuth 可选认证（页面），未登录时继续处理
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authenticate(c)
		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetUserID 从 Context 获取用户 ID
func GetUserID(c *gin.Context) int64 {
	return c.GetInt64(ContextKeyUserID)
}

// GetUsername 从 Context 获取用户名
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetUserRole 从 Context 获取用户角色
func GetUserRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// IsAuthenticated 是否已登录
func IsAuthenticated(c *gin.Context) bool {
	_, ok := c.Get(ContextKeyClaims)
	return ok
}

// SetSessionCookie 写入会话 Cookie
func SetSessionCookie(c *gin.Context, token string) {
	secure := c.Request.TLS != nil
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(jwtConfig.AccessTokenTTL.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie 清除会话 Cookie
func ClearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", c.Request.TLS != nil, true)
}
