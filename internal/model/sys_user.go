package model

import "time"

// UserRole 系统级角色
type UserRole string

const (
	UserRoleAdmin    UserRole = "admin"
	UserRoleReseller UserRole = "reseller"
	UserRoleUser     UserRole = "user"
)

// UserStatus 账号状态
type UserStatus int

const (
	UserStatusDisabled UserStatus = 0
	UserStatusActive   UserStatus = 1
)

// SysUser 平台账号（管理员 / 分销商）
type SysUser struct {
	BaseModel
	AuditMixin

	Username string `gorm:"size:100;uniqueIndex;not null"`
	Password string `gorm:"size:255;not null"` // bcrypt 哈希
	Email    string `gorm:"size:100"`

	Role   UserRole   `gorm:"size:20;not null;default:'user'"`
	Status UserStatus `gorm:"type:smallint;not null;default:1"`

	LastLoginAt *time.Time
}

func (SysUser) TableName() string {
	return "sys_users"
}

// IsReseller 是否为分销商
func (u *SysUser) IsReseller() bool {
	return u.Role == UserRoleReseller
}
