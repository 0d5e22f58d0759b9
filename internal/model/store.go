package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// 店铺状态
const (
	StoreStatusActive    = "active"
	StoreStatusSuspended = "suspended"
)

// 默认店铺设置
const (
	DefaultMarkup          = 20
	DefaultMinimumMarkup   = 10
	DefaultMaximumMarkup   = 50
	DefaultAutoFulfillment = true
	DefaultLowBalanceAlert = 100.0
)

// Store 分销商店铺，每个分销商最多一个
type Store struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ResellerID  int64  `gorm:"uniqueIndex;not null" json:"reseller"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`

	DomainSettings DomainSettings `gorm:"embedded;embeddedPrefix:domain_" json:"domainSettings"`
	Settings       StoreSettings  `gorm:"embedded;embeddedPrefix:settings_" json:"settings"`

	// 各设置页签的扩展数据，如 business.contactEmail、notifications.orderEmails
	Preferences datatypes.JSONMap `json:"preferences"`

	Status string `gorm:"size:20;index;not null;default:'active'" json:"status"`

	AuditMixin
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Store) TableName() string {
	return "stores"
}

// HasCustomDomain 是否绑定了自定义域名
func (s *Store) HasCustomDomain() bool {
	return s.DomainSettings.CustomDomain != nil && *s.DomainSettings.CustomDomain != ""
}

// DomainSettings 域名设置
// 未绑定自定义域名时只输出 subdomain
type DomainSettings struct {
	Subdomain            string      `gorm:"size:63;uniqueIndex;not null" json:"subdomain"`
	CustomDomain         *string     `gorm:"size:253;uniqueIndex" json:"customDomain,omitempty"`
	CustomDomainVerified bool        `gorm:"not null;default:false" json:"customDomainVerified"`
	DNSSettings          DNSSettings `gorm:"embedded;embeddedPrefix:dns_" json:"dnsSettings"`

	VerifiedAt            *time.Time `json:"verifiedAt,omitempty"`
	LastVerificationAt    *time.Time `json:"lastVerificationAt,omitempty"`
	LastVerificationError string     `gorm:"size:255" json:"lastVerificationError,omitempty"`
}

// DNSSettings 自定义域名需要配置的 DNS 记录
type DNSSettings struct {
	ARecord           string `gorm:"size:64" json:"aRecord"`
	CNAMERecord       string `gorm:"size:255" json:"cnameRecord"`
	VerificationToken string `gorm:"size:64" json:"verificationToken"`
}

type domainSettingsJSON DomainSettings

func (d DomainSettings) MarshalJSON() ([]byte, error) {
	if d.CustomDomain == nil || *d.CustomDomain == "" {
		return json.Marshal(struct {
			Subdomain string `json:"subdomain"`
		}{Subdomain: d.Subdomain})
	}
	return json.Marshal(domainSettingsJSON(d))
}

// StoreSettings 店铺经营设置
// 加价为整数百分比
type StoreSettings struct {
	DefaultMarkup   int     `gorm:"not null" json:"defaultMarkup"`
	MinimumMarkup   int     `gorm:"not null" json:"minimumMarkup"`
	MaximumMarkup   int     `gorm:"not null" json:"maximumMarkup"`
	AutoFulfillment bool    `gorm:"not null" json:"autoFulfillment"`
	LowBalanceAlert float64 `gorm:"type:numeric(12,2);not null" json:"lowBalanceAlert"`
}

// DefaultStoreSettings 默认设置
func DefaultStoreSettings() StoreSettings {
	return StoreSettings{
		DefaultMarkup:   DefaultMarkup,
		MinimumMarkup:   DefaultMinimumMarkup,
		MaximumMarkup:   DefaultMaximumMarkup,
		AutoFulfillment: DefaultAutoFulfillment,
		LowBalanceAlert: DefaultLowBalanceAlert,
	}
}

// Valid 校验加价区间与余额提醒
func (s StoreSettings) Valid() bool {
	if s.MinimumMarkup < 0 || s.MaximumMarkup > 1000 {
		return false
	}
	if s.MinimumMarkup > s.DefaultMarkup || s.DefaultMarkup > s.MaximumMarkup {
		return false
	}
	return s.LowBalanceAlert >= 0
}
