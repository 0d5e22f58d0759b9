package web

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reseller_hub/internal/model"
	"reseller_hub/internal/service"
)

// fakeStores 内存版店铺读写
type fakeStores struct {
	store     *model.Store
	loadErr   error
	updateErr error
	patches   []map[string]interface{}
}

func (f *fakeStores) GetStore(context.Context, int64) (*model.Store, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if f.store == nil {
		return nil, service.ErrStoreNotFound
	}
	cp := *f.store
	return &cp, nil
}

func (f *fakeStores) UpdateStore(_ context.Context, _ int64, patch map[string]interface{}) (*model.Store, error) {
	f.patches = append(f.patches, patch)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if name, ok := patch["name"].(string); ok {
		f.store.Name = name
	}
	cp := *f.store
	return &cp, nil
}

func newFakeStore() *model.Store {
	return &model.Store{
		ID:         1,
		ResellerID: 1,
		Name:       "Acme",
		Settings:   model.DefaultStoreSettings(),
		Status:     model.StoreStatusActive,
	}
}

func TestSettingsPage_Load(t *testing.T) {
	t.Run("成功", func(t *testing.T) {
		page := NewSettingsPage(1, &fakeStores{store: newFakeStore()}, nil)
		assert.Equal(t, StateLoading, page.State)

		page.Load(context.Background())
		assert.Equal(t, StateLoaded, page.State)
		require.NotNil(t, page.Store)
		assert.Equal(t, "Acme", page.Store.Name)
		assert.Empty(t, page.Toasts)
	})

	t.Run("失败", func(t *testing.T) {
		page := NewSettingsPage(1, &fakeStores{loadErr: errors.New("boom")}, nil)
		page.Load(context.Background())
		assert.Equal(t, StateError, page.State)
		assert.Equal(t, MsgLoadFailed, page.Banner)
		require.Len(t, page.Toasts, 1)
		assert.Equal(t, "destructive", page.Toasts[0].Variant)
	})

	t.Run("店铺不存在", func(t *testing.T) {
		page := NewSettingsPage(1, &fakeStores{}, nil)
		page.Load(context.Background())
		assert.Equal(t, StateLoaded, page.State)
		assert.Nil(t, page.Store)
	})
}

func TestSettingsPage_Update(t *testing.T) {
	stores := &fakeStores{store: newFakeStore()}
	page := NewSettingsPage(1, stores, stores)
	page.Load(context.Background())

	require.NoError(t, page.Update(context.Background(), map[string]interface{}{"name": "Acme Outlet"}))
	assert.Equal(t, "Acme Outlet", page.Store.Name)
	assert.Equal(t, MsgUpdateSuccess, page.Toasts[len(page.Toasts)-1].Message)

	stores.updateErr = service.ErrInvalidSettings
	err := page.Update(context.Background(), map[string]interface{}{"name": "Broken"})
	assert.ErrorIs(t, err, service.ErrInvalidSettings)
	assert.Equal(t, "Acme Outlet", page.Store.Name, "失败时保留原状态")
	last := page.Toasts[len(page.Toasts)-1]
	assert.Equal(t, MsgUpdateFailed, last.Message)
	assert.Equal(t, "destructive", last.Variant)
}

func TestTabs(t *testing.T) {
	keys := make([]string, 0, len(SettingsTabs))
	for _, tab := range SettingsTabs {
		keys = append(keys, tab.Key)
	}
	assert.Equal(t, []string{"business", "orders", "payments", "notifications", "security"}, keys)
	assert.Equal(t, TabBusiness, FindTab("unknown").Key)
	assert.Nil(t, FindTab(TabSecurity).BuildPatch)
}

func TestTabPatches(t *testing.T) {
	tests := []struct {
		name    string
		tab     string
		form    url.Values
		want    map[string]interface{}
		wantErr string
	}{
		{
			name: "business",
			tab:  TabBusiness,
			form: url.Values{"name": {" Acme "}, "description": {"d"}, "contactEmail": {"a@b.co"}},
			want: map[string]interface{}{
				"name":                              "Acme",
				"description":                       "d",
				"preferences.business.contactEmail": "a@b.co",
				"preferences.business.supportPhone": "",
			},
		},
		{
			name:    "business 缺少名称",
			tab:     TabBusiness,
			form:    url.Values{"name": {"  "}},
			wantErr: "Store name is required",
		},
		{
			name: "orders",
			tab:  TabOrders,
			form: url.Values{"defaultMarkup": {"25"}, "minimumMarkup": {"0"}, "maximumMarkup": {"80"}},
			want: map[string]interface{}{
				"settings.autoFulfillment": false,
				"settings.defaultMarkup":   float64(25),
				"settings.minimumMarkup":   float64(0),
				"settings.maximumMarkup":   float64(80),
			},
		},
		{
			name:    "orders 非整数",
			tab:     TabOrders,
			form:    url.Values{"defaultMarkup": {"2.5"}, "minimumMarkup": {"0"}, "maximumMarkup": {"80"}},
			wantErr: "Markup values must be whole numbers",
		},
		{
			name: "payments",
			tab:  TabPayments,
			form: url.Values{"lowBalanceAlert": {"0"}, "payoutMethod": {"paypal"}},
			want: map[string]interface{}{
				"settings.lowBalanceAlert":          float64(0),
				"preferences.payments.payoutMethod": "paypal",
			},
		},
		{
			name:    "payments 未知方式",
			tab:     TabPayments,
			form:    url.Values{"lowBalanceAlert": {"10"}, "payoutMethod": {"cash"}},
			wantErr: `Unsupported payout method "cash"`,
		},
		{
			name: "notifications",
			tab:  TabNotifications,
			form: url.Values{"orderEmails": {"on"}},
			want: map[string]interface{}{
				"preferences.notifications.orderEmails":      true,
				"preferences.notifications.lowBalanceEmails": false,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := FindTab(tt.tab).BuildPatch(tt.form)
			if tt.wantErr != "" {
				var formErr *FormError
				require.ErrorAs(t, err, &formErr)
				assert.Equal(t, tt.wantErr, formErr.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, patch)
		})
	}
}

func TestPasswordForm(t *testing.T) {
	_, err := PasswordForm(url.Values{"old_password": {"secret1"}, "new_password": {"secret2"}, "confirm_password": {"other"}})
	assert.EqualError(t, err, "Passwords do not match")

	_, err = PasswordForm(url.Values{"old_password": {"secret1"}, "new_password": {"abc"}, "confirm_password": {"abc"}})
	assert.EqualError(t, err, "New password must be at least 6 characters")

	req, err := PasswordForm(url.Values{"old_password": {"secret1"}, "new_password": {"secret2"}, "confirm_password": {"secret2"}})
	require.NoError(t, err)
	assert.Equal(t, "secret1", req.OldPassword)
}

func TestPreference(t *testing.T) {
	store := newFakeStore()
	assert.Nil(t, Preference(store, "business.contactEmail"))

	store.Preferences = map[string]interface{}{
		"business":      map[string]interface{}{"contactEmail": "a@b.co"},
		"notifications": map[string]interface{}{"orderEmails": true},
	}
	assert.Equal(t, "a@b.co", PreferenceString(store, "business.contactEmail"))
	assert.True(t, PreferenceBool(store, "notifications.orderEmails"))
	assert.False(t, PreferenceBool(store, "notifications.lowBalanceEmails"))
	assert.Equal(t, "", PreferenceString(store, "business.contactEmail.deeper"))
}

func TestFormValues(t *testing.T) {
	store := newFakeStore()
	values := FormValues(store, FindTab(TabOrders), nil)
	assert.Equal(t, "20", values["defaultMarkup"])
	assert.Equal(t, "on", values["autoFulfillment"])
	assert.Equal(t, "100", values["lowBalanceAlert"])

	// 提交失败时保留该页签的输入，未勾选的 checkbox 为空
	values = FormValues(store, FindTab(TabOrders), url.Values{"defaultMarkup": {"abc"}})
	assert.Equal(t, "abc", values["defaultMarkup"])
	assert.Equal(t, "", values["autoFulfillment"])
	assert.Equal(t, "Acme", values["name"])
}
