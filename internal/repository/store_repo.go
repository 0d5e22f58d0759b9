package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"reseller_hub/internal/model"
)

// ==================== 接口定义 ====================

// StoreRepository 店铺仓储接口
// Get 系列方法在记录不存在时返回 (nil, nil)
type StoreRepository interface {
	Create(ctx context.Context, store *model.Store) error
	GetByID(ctx context.Context, id int64) (*model.Store, error)
	GetByResellerID(ctx context.Context, resellerID int64) (*model.Store, error)
	GetByCustomDomain(ctx context.Context, domain string) (*model.Store, error)
	ExistsByResellerID(ctx context.Context, resellerID int64) (bool, error)
	ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error)
	Save(ctx context.Context, store *model.Store) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	UpdateVerification(ctx context.Context, id int64, result VerificationResult) error

	// 列表查询
	List(ctx context.Context, filter StoreFilter) ([]model.Store, int64, error)
	ListPendingVerification(ctx context.Context, limit int) ([]model.Store, error)
}

// ==================== 过滤条件 ====================

// StoreFilter 店铺过滤条件
type StoreFilter struct {
	Keyword  string // 名称 / 子域名 / 自定义域名
	Status   string // 空表示不筛选
	Page     int
	PageSize int
}

// ErrStaleVerification 校验结果对应的域名或 token 已失效
var ErrStaleVerification = errors.New("verification result is stale")

// VerificationResult 自定义域名校验结果
type VerificationResult struct {
	// 本次校验针对的域名与 token，写入时要求与库中一致
	Domain    string
	Token     string
	Verified  bool
	CheckedAt time.Time
	Error     string
}

// ==================== 仓储实现 ====================

type storeRepo struct {
	db *gorm.DB
}

// NewStoreRepository 创建店铺仓储
func NewStoreRepository(db *gorm.DB) StoreRepository {
	return &storeRepo{db: db}
}

func (r *storeRepo) Create(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Create(store).Error
}

func (r *storeRepo) GetByID(ctx context.Context, id int64) (*model.Store, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *storeRepo) GetByResellerID(ctx context.Context, resellerID int64) (*model.Store, error) {
	return r.first(ctx, "reseller_id = ?", resellerID)
}

func (r *storeRepo) GetByCustomDomain(ctx context.Context, domain string) (*model.Store, error) {
	return r.first(ctx, "domain_custom_domain = ?", strings.ToLower(domain))
}

func (r *storeRepo) first(ctx context.Context, query string, args ...interface{}) (*model.Store, error) {
	var store model.Store
	err := r.db.WithContext(ctx).Where(query, args...).First(&store).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &store, nil
}

func (r *storeRepo) ExistsByResellerID(ctx context.Context, resellerID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("reseller_id = ?", resellerID).
		Count(&count).Error
	return count > 0, err
}

func (r *storeRepo) ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("domain_subdomain = ?", subdomain).
		Count(&count).Error
	return count > 0, err
}

// Save 全量保存（包括零值字段）
func (r *storeRepo) Save(ctx context.Context, store *model.Store) error {
	return r.db.WithContext(ctx).Save(store).Error
}

func (r *storeRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateVerification 写入域名校验结果
// 校验期间域名或 token 已被修改时不写入，返回 ErrStaleVerification
func (r *storeRepo) UpdateVerification(ctx context.Context, id int64, result VerificationResult) error {
	fields := map[string]interface{}{
		"domain_custom_domain_verified":  result.Verified,
		"domain_last_verification_at":    result.CheckedAt,
		"domain_last_verification_error": result.Error,
	}
	if result.Verified {
		fields["domain_verified_at"] = result.CheckedAt
	}
	res := r.db.WithContext(ctx).
		Model(&model.Store{}).
		Where("id = ? AND domain_custom_domain = ? AND domain_dns_verification_token = ?", id, result.Domain, result.Token).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVerification
	}
	return nil
}

func (r *storeRepo) List(ctx context.Context, filter StoreFilter) ([]model.Store, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Store{})

	if filter.Keyword != "" {
		keyword := "%" + strings.ToLower(filter.Keyword) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR domain_subdomain LIKE ? OR domain_custom_domain LIKE ?",
			keyword, keyword, keyword,
		)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}
	offset := (filter.Page - 1) * filter.PageSize

	var stores []model.Store
	err := query.
		Order("id DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&stores).Error

	return stores, total, err
}

// ListPendingVerification 待校验的自定义域名店铺，最久未校验的优先
func (r *storeRepo) ListPendingVerification(ctx context.Context, limit int) ([]model.Store, error) {
	if limit <= 0 {
		limit = 100
	}
	var stores []model.Store
	err := r.db.WithContext(ctx).
		Where("domain_custom_domain IS NOT NULL AND domain_custom_domain <> ''").
		Where("domain_custom_domain_verified = ?", false).
		Where("status = ?", model.StoreStatusActive).
		Order("domain_last_verification_at ASC NULLS FIRST, id ASC").
		Limit(limit).
		Find(&stores).Error
	return stores, err
}
