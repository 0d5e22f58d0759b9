package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reseller_hub/internal/cache"
	"reseller_hub/internal/controller"
	"reseller_hub/internal/event"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/repository"
	"reseller_hub/internal/service"
	"reseller_hub/internal/web"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noRecords struct{}

func (noRecords) LookupTXT(context.Context, string) ([]string, error) { return nil, nil }

func setupTestRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.SysUser{}, &model.Store{}))
	require.NoError(t, middleware.RegisterAuditCallbacks(db))

	log := zap.NewNop()
	m := metrics.New()
	storeRepo := repository.NewStoreRepository(db)

	domains, err := service.NewDomainService(storeRepo, "203.0.113.10", "shops.example.com")
	require.NoError(t, err)
	storeCache := cache.NewMemoryStoreCache(time.Minute)
	publisher := &event.MemoryPublisher{}

	storeSvc := service.NewStoreService(storeRepo, domains, storeCache, publisher, m, log)
	verifier := service.NewDomainVerifier(storeRepo, noRecords{}, storeCache, publisher, m, log)
	userSvc := service.NewUserService(repository.NewUserRepository(db), log)

	storeCtl := controller.NewStoreController(storeSvc, verifier, m, log)
	ctrls := &Controllers{
		Store:    storeCtl,
		Settings: controller.NewSettingsController(storeCtl),
		Auth:     controller.NewAuthController(userSvc, log),
		Admin:    controller.NewAdminController(storeSvc, userSvc, m, log),
		Pages:    web.NewPages(userSvc, storeSvc, storeSvc, userSvc, log),
	}
	return SetupRouter(ctrls, Infra{DB: db, Metrics: m, Logger: log}), db
}

func serve(r *gin.Engine, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Infra(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := serve(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	serve(r, http.MethodGet, "/api/reseller/store", "", "")
	w = serve(r, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reseller_hub_")
}

func TestRouter_HealthzUnavailable(t *testing.T) {
	r, db := setupTestRouter(t)
	sqlDB, _ := db.DB()
	require.NoError(t, sqlDB.Close())

	w := serve(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_ResellerFlow(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := serve(r, http.MethodPost, "/api/auth/register", "", `{"username":"acme","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodPost, "/api/auth/login", "", `{"username":"acme","password":"secret1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session string
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			session = c.Value
		}
	}
	require.NotEmpty(t, session)

	w = serve(r, http.MethodGet, "/api/reseller/store", session, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodPost, "/api/reseller/store", session, `{"name":"Acme","domain":"acme"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"subdomain":"acme"`)

	w = serve(r, http.MethodPatch, "/api/reseller/settings", session, `{"settings":{"defaultMarkup":30}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = serve(r, http.MethodGet, "/api/reseller/settings", session, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"defaultMarkup":30`)

	// 分销商不能访问管理接口
	w = serve(r, http.MethodGet, "/api/admin/stores", session, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// 设置页面
	w = serve(r, http.MethodGet, "/reseller/settings", session, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), `value="Acme"`))
}

func TestRouter_AdminPages(t *testing.T) {
	r, _ := setupTestRouter(t)

	w := serve(r, http.MethodGet, "/admin", "", "")
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, web.SignInPath, w.Header().Get("Location"))

	w = serve(r, http.MethodPost, "/auth/signout", "", "")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, web.HomePath, w.Header().Get("Location"))
}
