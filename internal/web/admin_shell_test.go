package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestResolveShell(t *testing.T) {
	tests := []struct {
		name       string
		status     SessionStatus
		role       string
		path       string
		wantAction ShellAction
		wantTarget string
	}{
		{"加载中", SessionLoading, "", "/admin", ShellSpinner, ""},
		{"未登录", SessionUnauthenticated, "", "/admin", ShellRedirect, "/auth/signin"},
		{"分销商", SessionAuthenticated, "reseller", "/admin", ShellRedirect, "/"},
		{"普通用户", SessionAuthenticated, "user", "/admin/orders", ShellRedirect, "/"},
		{"管理员", SessionAuthenticated, "admin", "/admin/orders", ShellRender, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view := ResolveShell(tt.status, tt.role, tt.path)
			assert.Equal(t, tt.wantAction, view.Action)
			assert.Equal(t, tt.wantTarget, view.RedirectTo)
		})
	}
}

func TestResolveShell_NavActive(t *testing.T) {
	view := ResolveShell(SessionAuthenticated, "admin", "/admin/resellers")
	require.Len(t, view.Nav, 7)

	labels := make([]string, 0, len(view.Nav))
	var active []string
	for _, item := range view.Nav {
		labels = append(labels, item.Label)
		if item.Active {
			active = append(active, item.Href)
		}
	}
	assert.Equal(t, []string{"Dashboard", "Products", "Users", "Orders", "Resellers", "Redeem Codes", "Settings"}, labels)
	assert.Equal(t, []string{"/admin/resellers"}, active)
	assert.Equal(t, "Resellers", view.Title)

	// 精确匹配，子路径不高亮
	view = ResolveShell(SessionAuthenticated, "admin", "/admin/resellers/12")
	for _, item := range view.Nav {
		assert.False(t, item.Active, item.Href)
	}

	// Dashboard 不会因前缀匹配到所有页面
	view = ResolveShell(SessionAuthenticated, "admin", "/admin/users")
	assert.False(t, view.Nav[0].Active)
	assert.True(t, view.Nav[2].Active)

	// 不修改全局导航
	for _, item := range AdminNav {
		assert.False(t, item.Active)
	}
}

// ==================== ResolveSession ====================

type stubUsers struct {
	user  *dto.UserInfo
	err   error
	delay time.Duration
}

func (s stubUsers) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.user, s.err
}

func resolveWithToken(t *testing.T, users UserLookup, token string, timeout time.Duration) Session {
	var got Session
	r := gin.New()
	r.GET("/", middleware.OptionalAuth(), func(c *gin.Context) {
		got = ResolveSession(c, users, timeout)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return got
}

func TestResolveSession(t *testing.T) {
	access, _, err := middleware.GenerateTokenPair(7, "root", "admin")
	require.NoError(t, err)
	active := &dto.UserInfo{ID: 7, Username: "root", Role: "admin", Status: 1}

	s := resolveWithToken(t, stubUsers{user: active}, "", time.Second)
	assert.Equal(t, SessionUnauthenticated, s.Status)

	s = resolveWithToken(t, stubUsers{user: active}, "not-a-token", time.Second)
	assert.Equal(t, SessionUnauthenticated, s.Status)

	s = resolveWithToken(t, stubUsers{user: active}, access, time.Second)
	assert.Equal(t, SessionAuthenticated, s.Status)
	assert.Equal(t, "admin", s.Role())

	s = resolveWithToken(t, stubUsers{user: &dto.UserInfo{ID: 7, Role: "admin", Status: 0}}, access, time.Second)
	assert.Equal(t, SessionUnauthenticated, s.Status)

	s = resolveWithToken(t, stubUsers{err: service.ErrUserNotFound}, access, time.Second)
	assert.Equal(t, SessionUnauthenticated, s.Status)

	s = resolveWithToken(t, stubUsers{user: active, delay: time.Second}, access, 20*time.Millisecond)
	assert.Equal(t, SessionLoading, s.Status)

	s = resolveWithToken(t, stubUsers{err: errors.New("db down")}, access, time.Second)
	assert.Equal(t, SessionLoading, s.Status)
}
