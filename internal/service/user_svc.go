package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/middleware"
	"reseller_hub/internal/model"
	"reseller_hub/internal/repository"
)

// ==================== UserService 用户服务 ====================

// UserService 账号注册、登录与密码管理
type UserService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

// ==================== 认证相关 ====================

// Register 注册分销商账号
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserInfo, error) {
	exists, err := s.userRepo.ExistsByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUsernameExists
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.SysUser{
		Username: req.Username,
		Password: string(hashedPassword),
		Email:    req.Email,
		Role:     model.UserRoleReseller,
		Status:   model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUsernameExists.Wrap(err)
		}
		return nil, err
	}

	return toUserInfo(user), nil
}

// Login 用户登录
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("更新最后登录时间失败", zap.Int64("user_id", user.ID), zap.Error(err))
	}
	user.LastLoginAt = &now

	cfg := middleware.GetJWTConfig()
	return &dto.LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    now.Add(cfg.AccessTokenTTL),
		User:         toUserInfo(user),
	}, nil
}

// RefreshToken 刷新 Token
func (s *UserService) RefreshToken(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.RefreshTokenResponse, error) {
	claims, err := middleware.ParseToken(req.RefreshToken)
	if err != nil || !middleware.IsRefreshToken(claims) {
		return nil, ErrInvalidToken
	}

	// 确保用户仍然有效，角色以数据库为准
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != model.UserStatusActive {
		return nil, ErrUserDisabled
	}

	accessToken, refreshToken, err := middleware.GenerateTokenPair(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, err
	}

	cfg := middleware.GetJWTConfig()
	return &dto.RefreshTokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(cfg.AccessTokenTTL),
	}, nil
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		return ErrInvalidOldPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.userRepo.UpdatePassword(ctx, userID, string(hashedPassword))
}

// GetProfile 获取用户信息
func (s *UserService) GetProfile(ctx context.Context, userID int64) (*dto.UserInfo, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return toUserInfo(user), nil
}

// ListUsers 后台用户列表
func (s *UserService) ListUsers(ctx context.Context, keyword string, page, pageSize int) ([]*dto.UserInfo, int64, error) {
	users, total, err := s.userRepo.List(ctx, repository.UserFilter{
		Keyword:  keyword,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return nil, 0, err
	}

	list := make([]*dto.UserInfo, 0, len(users))
	for i := range users {
		list = append(list, toUserInfo(&users[i]))
	}
	return list, total, nil
}

// ==================== 启动初始化 ====================

// EnsureAdmin 管理员账号不存在时创建，已存在但角色不同则提升为管理员
func (s *UserService) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return err
	}
	if user != nil {
		if user.Role != model.UserRoleAdmin {
			s.logger.Info("提升用户为管理员", zap.String("username", username))
			return s.userRepo.UpdateRole(ctx, user.ID, model.UserRoleAdmin)
		}
		return nil
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	s.logger.Info("创建管理员账号", zap.String("username", username))
	return s.userRepo.Create(ctx, &model.SysUser{
		Username: username,
		Password: string(hashedPassword),
		Role:     model.UserRoleAdmin,
		Status:   model.UserStatusActive,
	})
}

// toUserInfo 转换为 DTO
func toUserInfo(user *model.SysUser) *dto.UserInfo {
	return &dto.UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		Role:        string(user.Role),
		Status:      int(user.Status),
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}
