package dto

import "reseller_hub/internal/model"

// ==================== 店铺创建 ====================

// CreateStoreRequest 创建店铺请求
// name / domain 的必填校验在 service 中完成，以返回统一的错误文案
type CreateStoreRequest struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Domain         string              `json:"domain"`
	IsDomainCustom bool                `json:"isDomainCustom"`
	Settings       *StoreSettingsInput `json:"settings"`
}

// StoreSettingsInput 可选的设置覆盖，nil 字段使用默认值
type StoreSettingsInput struct {
	DefaultMarkup   *int     `json:"defaultMarkup"`
	MinimumMarkup   *int     `json:"minimumMarkup"`
	MaximumMarkup   *int     `json:"maximumMarkup"`
	AutoFulfillment *bool    `json:"autoFulfillment"`
	LowBalanceAlert *float64 `json:"lowBalanceAlert"`
}

// CreateStoreResponse 创建店铺响应
type CreateStoreResponse struct {
	Store          *model.Store `json:"store"`
	IsDomainCustom bool         `json:"isDomainCustom"`
	Message        string       `json:"message"`
}

// ==================== 域名校验 ====================

// VerifyDomainResponse 自定义域名校验结果
type VerifyDomainResponse struct {
	Verified bool         `json:"verified"`
	Store    *model.Store `json:"store"`
}

// ==================== 后台店铺管理 ====================

// StoreListRequest 店铺列表查询
type StoreListRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=active suspended"`
	Keyword  string `form:"keyword"`
}

// StoreListResponse 店铺列表
type StoreListResponse struct {
	List     []model.Store `json:"list"`
	Total    int64         `json:"total"`
	Page     int           `json:"page"`
	PageSize int           `json:"page_size"`
}

// UpdateStoreStatusRequest 修改店铺状态
type UpdateStoreStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active suspended"`
}

// ErrorResponse 错误响应
type ErrorResponse struct {
	Error string `json:"error"`
}
