package middleware

import (
	"context"
	"reflect"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ==================== 审计上下文 ====================

type auditContextKey struct{}

// AuditInfo 审计信息
type AuditInfo struct {
	UserID   int64
	Username string
}

// WithAuditInfo 注入审计信息到 context
func WithAuditInfo(ctx context.Context, userID int64, username string) context.Context {
	return context.WithValue(ctx, auditContextKey{}, &AuditInfo{
		UserID:   userID,
		Username: username,
	})
}

// GetAuditUserID 从 context 获取操作人 ID，系统任务为 0
func GetAuditUserID(ctx context.Context) int64 {
	if info, ok := ctx.Value(auditContextKey{}).(*AuditInfo); ok {
		return info.UserID
	}
	return 0
}

// AuditContext 将登录用户写入 request context，供 GORM 回调使用
func AuditContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := GetUserID(c); userID > 0 {
			ctx := WithAuditInfo(c.Request.Context(), userID, GetUsername(c))
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}

// ==================== GORM 回调 ====================

// RegisterAuditCallbacks 注册审计回调
// Create 填充 CreatedBy / UpdatedBy，Update 覆盖 UpdatedBy（包括 map 形式的 Updates）
func RegisterAuditCallbacks(db *gorm.DB) error {
	err := db.Callback().Create().Before("gorm:create").Register("audit:create", func(tx *gorm.DB) {
		userID := auditUserID(tx)
		if userID == 0 {
			return
		}
		setAuditField(tx, "CreatedBy", userID, false)
		setAuditField(tx, "UpdatedBy", userID, false)
	})
	if err != nil {
		return err
	}

	return db.Callback().Update().Before("gorm:update").Register("audit:update", func(tx *gorm.DB) {
		userID := auditUserID(tx)
		if userID == 0 || tx.Statement.Schema == nil {
			return
		}
		field := tx.Statement.Schema.LookUpField("UpdatedBy")
		if field == nil {
			return
		}

		if updates, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			updates[field.DBName] = userID
			return
		}
		setAuditField(tx, "UpdatedBy", userID, true)
	})
}

func auditUserID(tx *gorm.DB) int64 {
	if tx.Statement.Context == nil {
		return 0
	}
	return GetAuditUserID(tx.Statement.Context)
}

// setAuditField overwrite 为 false 时只填充零值
func setAuditField(tx *gorm.DB, fieldName string, value int64, overwrite bool) {
	if tx.Statement.Schema == nil {
		return
	}
	field := tx.Statement.Schema.LookUpField(fieldName)
	if field == nil {
		return
	}

	ctx := tx.Statement.Context
	set := func(rv reflect.Value) {
		if _, isZero := field.ValueOf(ctx, rv); isZero || overwrite {
			_ = field.Set(ctx, rv, value)
		}
	}

	switch tx.Statement.ReflectValue.Kind() {
	case reflect.Struct:
		set(tx.Statement.ReflectValue)
	case reflect.Slice, reflect.Array:
		for i := 0; i < tx.Statement.ReflectValue.Len(); i++ {
			set(reflect.Indirect(tx.Statement.ReflectValue.Index(i)))
		}
	}
}
