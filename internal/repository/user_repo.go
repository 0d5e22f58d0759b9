package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"reseller_hub/internal/model"
)

// ==================== UserRepository 用户仓库 ====================

// UserRepository 用户仓库接口
type UserRepository interface {
	Create(ctx context.Context, user *model.SysUser) error
	GetByID(ctx context.Context, id int64) (*model.SysUser, error)
	GetByUsername(ctx context.Context, username string) (*model.SysUser, error)
	UpdatePassword(ctx context.Context, id int64, hashedPassword string) error
	UpdateRole(ctx context.Context, id int64, role model.UserRole) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, filter UserFilter) ([]model.SysUser, int64, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// UserFilter 用户筛选条件
type UserFilter struct {
	Keyword  string
	Role     model.UserRole
	Page     int
	PageSize int
}

// ==================== 实现 ====================

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.SysUser) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// GetByID 用户不存在时返回 nil, nil
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.SysUser, error) {
	var user model.SysUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	return r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("password", hashedPassword).Error
}

func (r *userRepository) UpdateRole(ctx context.Context, id int64, role model.UserRole) error {
	return r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("role", role).Error
}

func (r *userRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("id = ?", id).
		Update("last_login_at", at).Error
}

// List 用户列表（后台 Users 页）
func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]model.SysUser, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.SysUser{})

	if filter.Keyword != "" {
		keyword := "%" + filter.Keyword + "%"
		query = query.Where("username LIKE ? OR email LIKE ?", keyword, keyword)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
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

	var users []model.SysUser
	err := query.
		Order("id DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&users).Error

	return users, total, err
}

func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.SysUser{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}
