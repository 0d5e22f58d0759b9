package service

import (
	"errors"
	"fmt"
)

// ErrorKind 错误分类，由 controller 映射为 HTTP 状态码
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota // 500
	KindValidation                  // 400
	KindAuthorization               // 401
	KindNotFound                    // 404
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// AppError 业务错误
// Message 直接返回给调用方，Err 只进日志
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is 同 Kind 同 Message 视为同一错误，便于 errors.Is 匹配哨兵
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// Wrap 附带底层错误
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Kind: e.Kind, Message: e.Message, Err: err}
}

func newError(kind ErrorKind, msg string) *AppError {
	return &AppError{Kind: kind, Message: msg}
}

// KindOf 非 AppError 一律视为 Unexpected
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnexpected
}

// ==================== 错误定义 ====================

// 店铺
var (
	ErrUnauthorized        = newError(KindAuthorization, "Unauthorized")
	ErrStoreExists         = newError(KindValidation, "Store already exists")
	ErrStoreFieldsRequired = newError(KindValidation, "Store name and domain are required")
	ErrInvalidDomain       = newError(KindValidation, "Invalid domain format")
	ErrDomainInUse         = newError(KindValidation, "Domain is already in use")
	ErrInvalidSettings     = newError(KindValidation, "Invalid store settings")
	ErrInvalidBody         = newError(KindValidation, "Invalid request body")
	ErrStoreNotFound       = newError(KindNotFound, "Store not found")
	ErrNoCustomDomain      = newError(KindValidation, "Store has no custom domain")
	ErrInvalidStatus       = newError(KindValidation, "Invalid store status")
	ErrSubdomainExhausted  = newError(KindUnexpected, "Could not allocate a unique subdomain")
)

// 用户
var (
	ErrInvalidCredentials = newError(KindAuthorization, "Invalid username or password")
	ErrUserDisabled       = newError(KindAuthorization, "User is disabled")
	ErrInvalidToken       = newError(KindAuthorization, "Invalid token")
	ErrUserNotFound       = newError(KindNotFound, "User not found")
	ErrInvalidOldPassword = newError(KindValidation, "Current password is incorrect")
	ErrUsernameExists     = newError(KindValidation, "Username already exists")
)
