package web

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/model"
	"reseller_hub/internal/service"
)

// ==================== 设置页状态 ====================

// PageState 设置页状态：loading → loaded | error
type PageState string

const (
	StateLoading PageState = "loading"
	StateLoaded  PageState = "loaded"
	StateError   PageState = "error"
)

// 提示文案
const (
	MsgLoadFailed     = "Failed to load store settings"
	MsgStoreMissing   = "Store not found. Please contact support."
	MsgUpdateSuccess  = "Settings updated successfully"
	MsgUpdateFailed   = "Failed to update settings"
	MsgPasswordUpdate = "Password updated successfully"
)

// Toast 页面右上角的提示
type Toast struct {
	Title   string
	Message string
	Variant string // default / destructive
}

// StoreLoader 读取店铺
type StoreLoader interface {
	GetStore(ctx context.Context, resellerID int64) (*model.Store, error)
}

// StoreUpdater 按字段合并更新店铺
type StoreUpdater interface {
	UpdateStore(ctx context.Context, resellerID int64, patch map[string]interface{}) (*model.Store, error)
}

// SettingsPage 分销商设置页
type SettingsPage struct {
	State  PageState
	Store  *model.Store
	Banner string
	Toasts []Toast

	resellerID int64
	loader     StoreLoader
	updater    StoreUpdater
}

// NewSettingsPage 初始状态为 loading
func NewSettingsPage(resellerID int64, loader StoreLoader, updater StoreUpdater) *SettingsPage {
	return &SettingsPage{
		State:      StateLoading,
		resellerID: resellerID,
		loader:     loader,
		updater:    updater,
	}
}

func (p *SettingsPage) toast(t Toast) {
	p.Toasts = append(p.Toasts, t)
}

// Load 拉取店铺设置
// 店铺不存在时进入 loaded 并展示提示，其余失败进入 error
func (p *SettingsPage) Load(ctx context.Context) {
	store, err := p.loader.GetStore(ctx, p.resellerID)
	if err != nil && !errors.Is(err, service.ErrStoreNotFound) {
		p.State = StateError
		p.Banner = MsgLoadFailed
		p.toast(Toast{Title: "Error", Message: MsgLoadFailed, Variant: "destructive"})
		return
	}

	p.State = StateLoaded
	p.Store = store
}

// Update 提交 patch 并用服务端返回替换本地状态
// 失败时返回 error，表单保留用户输入
func (p *SettingsPage) Update(ctx context.Context, patch map[string]interface{}) error {
	store, err := p.updater.UpdateStore(ctx, p.resellerID, patch)
	if err != nil {
		p.toast(Toast{Title: "Error", Message: MsgUpdateFailed, Variant: "destructive"})
		return err
	}

	p.Store = store
	p.toast(Toast{Title: "Success", Message: MsgUpdateSuccess, Variant: "default"})
	return nil
}

// ==================== 页签 ====================

// FormError 表单校验失败，不发起请求
type FormError struct {
	Message string
}

func (e *FormError) Error() string {
	return e.Message
}

// Tab 设置页页签
type Tab struct {
	Key    string
	Label  string
	Fields []string
	// BuildPatch 将提交的表单转为 patch；security 页签为 nil
	BuildPatch func(form url.Values) (map[string]interface{}, error)
}

// 页签 key
const (
	TabBusiness      = "business"
	TabOrders        = "orders"
	TabPayments      = "payments"
	TabNotifications = "notifications"
	TabSecurity      = "security"
)

// SettingsTabs 页签顺序固定
var SettingsTabs = []Tab{
	{
		Key:        TabBusiness,
		Label:      "Business",
		Fields:     []string{"name", "description", "contactEmail", "supportPhone"},
		BuildPatch: businessPatch,
	},
	{
		Key:        TabOrders,
		Label:      "Orders",
		Fields:     []string{"autoFulfillment", "defaultMarkup", "minimumMarkup", "maximumMarkup"},
		BuildPatch: ordersPatch,
	},
	{
		Key:        TabPayments,
		Label:      "Payments",
		Fields:     []string{"lowBalanceAlert", "payoutMethod"},
		BuildPatch: paymentsPatch,
	},
	{
		Key:        TabNotifications,
		Label:      "Notifications",
		Fields:     []string{"orderEmails", "lowBalanceEmails"},
		BuildPatch: notificationsPatch,
	},
	{Key: TabSecurity, Label: "Security"},
}

// FindTab 未知 key 返回第一个页签
func FindTab(key string) Tab {
	for _, t := range SettingsTabs {
		if t.Key == key {
			return t
		}
	}
	return SettingsTabs[0]
}

// PayoutMethods 可选的收款方式
var PayoutMethods = []string{"bank_transfer", "paypal", "stripe"}

func businessPatch(form url.Values) (map[string]interface{}, error) {
	name := strings.TrimSpace(form.Get("name"))
	if name == "" {
		return nil, &FormError{Message: "Store name is required"}
	}
	return map[string]interface{}{
		"name":                              name,
		"description":                       strings.TrimSpace(form.Get("description")),
		"preferences.business.contactEmail": strings.TrimSpace(form.Get("contactEmail")),
		"preferences.business.supportPhone": strings.TrimSpace(form.Get("supportPhone")),
	}, nil
}

func ordersPatch(form url.Values) (map[string]interface{}, error) {
	patch := map[string]interface{}{
		"settings.autoFulfillment": checked(form, "autoFulfillment"),
	}
	for _, field := range []string{"defaultMarkup", "minimumMarkup", "maximumMarkup"} {
		n, err := strconv.Atoi(strings.TrimSpace(form.Get(field)))
		if err != nil {
			return nil, &FormError{Message: "Markup values must be whole numbers"}
		}
		// 与 JSON 请求体保持一致，数字统一为 float64
		patch["settings."+field] = float64(n)
	}
	return patch, nil
}

func paymentsPatch(form url.Values) (map[string]interface{}, error) {
	alert, err := strconv.ParseFloat(strings.TrimSpace(form.Get("lowBalanceAlert")), 64)
	if err != nil {
		return nil, &FormError{Message: "Low balance alert must be a number"}
	}

	method := form.Get("payoutMethod")
	valid := false
	for _, m := range PayoutMethods {
		if m == method {
			valid = true
			break
		}
	}
	if !valid {
		return nil, &FormError{Message: fmt.Sprintf("Unsupported payout method %q", method)}
	}

	return map[string]interface{}{
		"settings.lowBalanceAlert":          alert,
		"preferences.payments.payoutMethod": method,
	}, nil
}

func notificationsPatch(form url.Values) (map[string]interface{}, error) {
	return map[string]interface{}{
		"preferences.notifications.orderEmails":      checked(form, "orderEmails"),
		"preferences.notifications.lowBalanceEmails": checked(form, "lowBalanceEmails"),
	}, nil
}

// checked HTML checkbox 未勾选时不提交
func checked(form url.Values, key string) bool {
	v := form.Get(key)
	return v == "on" || v == "true"
}

// PasswordForm security 页签
func PasswordForm(form url.Values) (*dto.ChangePasswordRequest, error) {
	req := &dto.ChangePasswordRequest{
		OldPassword: form.Get("old_password"),
		NewPassword: form.Get("new_password"),
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		return nil, &FormError{Message: "Current and new password are required"}
	}
	if len(req.NewPassword) < 6 {
		return nil, &FormError{Message: "New password must be at least 6 characters"}
	}
	if req.NewPassword != form.Get("confirm_password") {
		return nil, &FormError{Message: "Passwords do not match"}
	}
	return req, nil
}

// ==================== 表单回填 ====================

// Preference 读取 preferences 中的嵌套值
func Preference(store *model.Store, path string) interface{} {
	if store == nil || store.Preferences == nil {
		return nil
	}
	var node interface{} = map[string]interface{}(store.Preferences)
	for _, part := range strings.Split(path, ".") {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil
		}
		node = m[part]
	}
	return node
}

// PreferenceString 字符串形式的 preference，缺省为空
func PreferenceString(store *model.Store, path string) string {
	if s, ok := Preference(store, path).(string); ok {
		return s
	}
	return ""
}

// PreferenceBool 布尔形式的 preference，缺省为 false
func PreferenceBool(store *model.Store, path string) bool {
	b, _ := Preference(store, path).(bool)
	return b
}
