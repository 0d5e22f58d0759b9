package web

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/service"
)

// ==================== 会话状态 ====================

// SessionStatus 页面渲染时的会话状态
type SessionStatus string

const (
	SessionLoading         SessionStatus = "loading"
	SessionUnauthenticated SessionStatus = "unauthenticated"
	SessionAuthenticated   SessionStatus = "authenticated"
)

// 页面跳转地址
const (
	SignInPath = "/auth/signin"
	HomePath   = "/"
)

// DefaultSessionLookupTimeout 查询当前用户的最长等待时间，超时按 loading 处理
const DefaultSessionLookupTimeout = 2 * time.Second

// UserLookup 读取当前用户，角色以数据库为准
type UserLookup interface {
	GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error)
}

// Session 当前请求的会话
type Session struct {
	Status SessionStatus
	User   *dto.UserInfo
}

// Role 未登录时为空
func (s Session) Role() string {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// ResolveSession 根据 token 与用户记录判断会话状态
// 需在 OptionalAuth 之后使用
func ResolveSession(c *gin.Context, users UserLookup, timeout time.Duration) Session {
	if !middleware.IsAuthenticated(c) {
		return Session{Status: SessionUnauthenticated}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	user, err := users.GetProfile(ctx, middleware.GetUserID(c))
	switch {
	case err == nil:
		if user.Status != int(model.UserStatusActive) {
			return Session{Status: SessionUnauthenticated}
		}
		return Session{Status: SessionAuthenticated, User: user}
	case errors.Is(err, service.ErrUserNotFound):
		return Session{Status: SessionUnauthenticated}
	default:
		// 超时或数据库暂不可用，页面稍后重试
		return Session{Status: SessionLoading}
	}
}

// ==================== 后台导航 ====================

// NavItem 导航项
type NavItem struct {
	Label  string
	Href   string
	Active bool
}

// AdminNav 后台导航，顺序固定
var AdminNav = []NavItem{
	{Label: "Dashboard", Href: "/admin"},
	{Label: "Products", Href: "/admin/products"},
	{Label: "Users", Href: "/admin/users"},
	{Label: "Orders", Href: "/admin/orders"},
	{Label: "Resellers", Href: "/admin/resellers"},
	{Label: "Redeem Codes", Href: "/admin/redeem-codes"},
	{Label: "Settings", Href: "/admin/settings"},
}

// ShellAction 后台外壳的渲染结果
type ShellAction int

const (
	ShellSpinner ShellAction = iota
	ShellRedirect
	ShellRender
)

// ShellView 后台外壳视图
type ShellView struct {
	Action     ShellAction
	RedirectTo string
	Nav        []NavItem
	Title      string
}

// ResolveShell 按会话状态决定展示加载、跳转还是渲染导航
// 当前页按路径精确匹配高亮
func ResolveShell(status SessionStatus, role, path string) ShellView {
	switch status {
	case SessionLoading:
		return ShellView{Action: ShellSpinner}
	case SessionUnauthenticated:
		return ShellView{Action: ShellRedirect, RedirectTo: SignInPath}
	}

	if role != string(model.UserRoleAdmin) {
		return ShellView{Action: ShellRedirect, RedirectTo: HomePath}
	}

	view := ShellView{Action: ShellRender, Nav: make([]NavItem, len(AdminNav))}
	for i, item := range AdminNav {
		item.Active = item.Href == path
		if item.Active {
			view.Title = item.Label
		}
		view.Nav[i] = item
	}
	return view
}
