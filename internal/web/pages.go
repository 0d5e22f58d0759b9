package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates 页面模板，由 router 通过 SetHTMLTemplate 注册
func Templates() *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/*.html"))
}

// StoreLister 后台店铺列表
type StoreLister interface {
	ListStores(ctx context.Context, req *dto.StoreListRequest) (*dto.StoreListResponse, error)
}

// PasswordChanger 修改密码
type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error
}

// StoreStore 设置页读写店铺
type StoreStore interface {
	StoreLoader
	StoreUpdater
}

// ==================== Pages 页面处理 ====================

// Pages 服务端渲染的后台外壳与设置页
type Pages struct {
	users         UserLookup
	stores        StoreLister
	settings      StoreStore
	passwords     PasswordChanger
	logger        *zap.Logger
	lookupTimeout time.Duration
}

// NewPages 创建页面处理器
func NewPages(
	users UserLookup,
	stores StoreLister,
	settings StoreStore,
	passwords PasswordChanger,
	logger *zap.Logger,
) *Pages {
	return &Pages{
		users:         users,
		stores:        stores,
		settings:      settings,
		passwords:     passwords,
		logger:        logger,
		lookupTimeout: DefaultSessionLookupTimeout,
	}
}

// SetLookupTimeout 调整会话查询超时
func (p *Pages) SetLookupTimeout(d time.Duration) {
	p.lookupTimeout = d
}

// renderLoading 会话尚未就绪，页面自动刷新
func renderLoading(c *gin.Context) {
	c.HTML(http.StatusOK, "loading.html", gin.H{"RefreshSeconds": 2})
}

// ==================== 后台外壳 ====================

// Admin GET /admin 与 /admin/*section
func (p *Pages) Admin(c *gin.Context) {
	session := ResolveSession(c, p.users, p.lookupTimeout)
	view := ResolveShell(session.Status, session.Role(), c.Request.URL.Path)

	switch view.Action {
	case ShellSpinner:
		renderLoading(c)
		return
	case ShellRedirect:
		c.Redirect(http.StatusFound, view.RedirectTo)
		return
	}

	data := gin.H{
		"Nav":   view.Nav,
		"Title": view.Title,
		"User":  session.User,
	}
	if c.Request.URL.Path == "/admin/resellers" {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		list, err := p.stores.ListStores(c.Request.Context(), &dto.StoreListRequest{
			Page:    page,
			Status:  c.Query("status"),
			Keyword: c.Query("keyword"),
		})
		if err != nil {
			middleware.RequestLoggerFrom(c, p.logger).Error("加载店铺列表失败", zap.Error(err))
			data["Error"] = "Failed to load resellers"
		} else {
			data["Stores"] = list
		}
	}

	c.HTML(http.StatusOK, "admin.html", data)
}

// ==================== 分销商设置页 ====================

// settingsView 设置页模板数据
type settingsView struct {
	Page      *SettingsPage
	Tabs      []Tab
	Active    string
	Form      map[string]string
	FormError string
	User      *dto.UserInfo
}

// resellerSession 设置页只对分销商开放，其余跳转登录
func (p *Pages) resellerSession(c *gin.Context) (Session, bool) {
	session := ResolveSession(c, p.users, p.lookupTimeout)
	switch {
	case session.Status == SessionLoading:
		renderLoading(c)
		return session, false
	case session.Status != SessionAuthenticated || session.Role() != string(model.UserRoleReseller):
		c.Redirect(http.StatusFound, SignInPath)
		return session, false
	}
	return session, true
}

// Settings GET /reseller/settings?tab=
func (p *Pages) Settings(c *gin.Context) {
	session, ok := p.resellerSession(c)
	if !ok {
		return
	}

	page := NewSettingsPage(session.User.ID, p.settings, p.settings)
	page.Load(c.Request.Context())

	tab := FindTab(c.Query("tab"))
	p.renderSettings(c, http.StatusOK, settingsView{
		Page:   page,
		Active: tab.Key,
		Form:   FormValues(page.Store, tab, nil),
		User:   session.User,
	})
}

// SubmitSettings POST /reseller/settings/:tab
// 失败时保留用户提交的值重新渲染
func (p *Pages) SubmitSettings(c *gin.Context) {
	session, ok := p.resellerSession(c)
	if !ok {
		return
	}
	if err := c.Request.ParseForm(); err != nil {
		c.Redirect(http.StatusSeeOther, "/reseller/settings")
		return
	}
	form := c.Request.PostForm
	tab := FindTab(c.Param("tab"))
	ctx := c.Request.Context()

	page := NewSettingsPage(session.User.ID, p.settings, p.settings)
	page.Load(ctx)
	view := settingsView{
		Page:   page,
		Active: tab.Key,
		Form:   FormValues(page.Store, tab, nil),
		User:   session.User,
	}

	if tab.Key == TabSecurity {
		p.submitPassword(c, page, view, form)
		return
	}
	if page.State != StateLoaded || page.Store == nil {
		p.renderSettings(c, http.StatusOK, view)
		return
	}

	patch, err := tab.BuildPatch(form)
	if err == nil {
		err = page.Update(ctx, patch)
	}
	if err != nil {
		view.Form = FormValues(page.Store, tab, form)
		view.FormError = formErrorMessage(err)
		if service.KindOf(err) == service.KindUnexpected && !isFormError(err) {
			middleware.RequestLoggerFrom(c, p.logger).Error("保存店铺设置失败", zap.Error(err))
		}
		p.renderSettings(c, http.StatusUnprocessableEntity, view)
		return
	}

	view.Form = FormValues(page.Store, tab, nil)
	p.renderSettings(c, http.StatusOK, view)
}

func (p *Pages) submitPassword(c *gin.Context, page *SettingsPage, view settingsView, form url.Values) {
	req, err := PasswordForm(form)
	if err == nil {
		err = p.passwords.ChangePassword(c.Request.Context(), view.User.ID, req)
	}
	if err != nil {
		view.FormError = formErrorMessage(err)
		page.toast(Toast{Title: "Error", Message: "Failed to update password", Variant: "destructive"})
		p.renderSettings(c, http.StatusUnprocessableEntity, view)
		return
	}

	page.toast(Toast{Title: "Success", Message: MsgPasswordUpdate, Variant: "default"})
	p.renderSettings(c, http.StatusOK, view)
}

func (p *Pages) renderSettings(c *gin.Context, status int, view settingsView) {
	view.Tabs = SettingsTabs
	c.HTML(status, "settings.html", view)
}

func isFormError(err error) bool {
	var formErr *FormError
	return errors.As(err, &formErr)
}

// formErrorMessage 只展示表单错误与业务错误，内部错误不外露
func formErrorMessage(err error) string {
	var formErr *FormError
	if errors.As(err, &formErr) {
		return formErr.Message
	}
	var appErr *service.AppError
	if errors.As(err, &appErr) && appErr.Kind != service.KindUnexpected {
		return appErr.Message
	}
	return ""
}

// FormValues 表单回填：店铺当前值，submitted 非空时用页签提交的字段覆盖
func FormValues(store *model.Store, tab Tab, submitted url.Values) map[string]string {
	values := map[string]string{}
	if store != nil {
		values["name"] = store.Name
		values["description"] = store.Description
		values["contactEmail"] = PreferenceString(store, "business.contactEmail")
		values["supportPhone"] = PreferenceString(store, "business.supportPhone")
		values["defaultMarkup"] = strconv.Itoa(store.Settings.DefaultMarkup)
		values["minimumMarkup"] = strconv.Itoa(store.Settings.MinimumMarkup)
		values["maximumMarkup"] = strconv.Itoa(store.Settings.MaximumMarkup)
		values["autoFulfillment"] = checkbox(store.Settings.AutoFulfillment)
		values["lowBalanceAlert"] = strconv.FormatFloat(store.Settings.LowBalanceAlert, 'f', -1, 64)
		values["payoutMethod"] = PreferenceString(store, "payments.payoutMethod")
		values["orderEmails"] = checkbox(PreferenceBool(store, "notifications.orderEmails"))
		values["lowBalanceEmails"] = checkbox(PreferenceBool(store, "notifications.lowBalanceEmails"))
	}

	// 未勾选的 checkbox 不会出现在提交中，按空值覆盖
	if submitted != nil {
		for _, field := range tab.Fields {
			values[field] = submitted.Get(field)
		}
	}
	return values
}

func checkbox(on bool) string {
	if on {
		return "on"
	}
	return ""
}
