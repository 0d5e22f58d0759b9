package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reseller_hub/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("获取连接池失败: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&model.SysUser{}, &model.Store{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

func newTestStore(resellerID int64, subdomain string) *model.Store {
	return &model.Store{
		ResellerID:     resellerID,
		Name:           "Store " + subdomain,
		DomainSettings: model.DomainSettings{Subdomain: subdomain},
		Settings:       model.DefaultStoreSettings(),
		Status:         model.StoreStatusActive,
	}
}

func strPtr(s string) *string { return &s }

func TestStoreRepo_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	store := newTestStore(7, "acme")
	store.DomainSettings.CustomDomain = strPtr("shop.acme.com")
	store.Preferences = map[string]interface{}{"business": map[string]interface{}{"contactEmail": "a@acme.com"}}
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if store.ID == 0 {
		t.Fatal("Create() 未回填 ID")
	}

	got, err := repo.GetByResellerID(ctx, 7)
	if err != nil {
		t.Fatalf("GetByResellerID() error = %v", err)
	}
	if got == nil || got.ID != store.ID {
		t.Fatalf("GetByResellerID() = %+v, want id %d", got, store.ID)
	}
	if got.Settings.DefaultMarkup != model.DefaultMarkup {
		t.Errorf("DefaultMarkup = %d, want %d", got.Settings.DefaultMarkup, model.DefaultMarkup)
	}
	business, _ := got.Preferences["business"].(map[string]interface{})
	if business["contactEmail"] != "a@acme.com" {
		t.Errorf("Preferences = %v", got.Preferences)
	}

	byDomain, err := repo.GetByCustomDomain(ctx, "SHOP.ACME.COM")
	if err != nil || byDomain == nil {
		t.Fatalf("GetByCustomDomain() = %v, %v", byDomain, err)
	}

	missing, err := repo.GetByResellerID(ctx, 999)
	if err != nil {
		t.Fatalf("GetByResellerID(missing) error = %v", err)
	}
	if missing != nil {
		t.Errorf("GetByResellerID(missing) = %+v, want nil", missing)
	}
}

func TestStoreRepo_UniqueConstraints(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	first := newTestStore(1, "acme")
	first.DomainSettings.CustomDomain = strPtr("shop.acme.com")
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name  string
		store *model.Store
	}{
		{"同一分销商", newTestStore(1, "acme-2")},
		{"子域名重复", newTestStore(2, "acme")},
		{"自定义域名重复", func() *model.Store {
			s := newTestStore(3, "other")
			s.DomainSettings.CustomDomain = strPtr("shop.acme.com")
			return s
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.store)
			if !errors.Is(err, gorm.ErrDuplicatedKey) {
				t.Errorf("Create() error = %v, want ErrDuplicatedKey", err)
			}
		})
	}

	// 多个店铺都没有自定义域名时不冲突
	if err := repo.Create(ctx, newTestStore(4, "plain-a")); err != nil {
		t.Fatalf("Create(plain-a) error = %v", err)
	}
	if err := repo.Create(ctx, newTestStore(5, "plain-b")); err != nil {
		t.Fatalf("Create(plain-b) error = %v", err)
	}
}

func TestStoreRepo_Exists(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	if err := repo.Create(ctx, newTestStore(1, "acme")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if ok, _ := repo.ExistsByResellerID(ctx, 1); !ok {
		t.Error("ExistsByResellerID(1) = false")
	}
	if ok, _ := repo.ExistsByResellerID(ctx, 2); ok {
		t.Error("ExistsByResellerID(2) = true")
	}
	if ok, _ := repo.ExistsBySubdomain(ctx, "acme"); !ok {
		t.Error("ExistsBySubdomain(acme) = false")
	}
	if ok, _ := repo.ExistsBySubdomain(ctx, "nope"); ok {
		t.Error("ExistsBySubdomain(nope) = true")
	}
}

func TestStoreRepo_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	store := newTestStore(1, "acme")
	if err := repo.Create(ctx, store); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.UpdateStatus(ctx, store.ID, model.StoreStatusSuspended); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, store.ID)
	if got.Status != model.StoreStatusSuspended {
		t.Errorf("Status = %s, want suspended", got.Status)
	}

	if err := repo.UpdateStatus(ctx, 404, model.StoreStatusActive); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("UpdateStatus(missing) error = %v, want ErrRecordNotFound", err)
	}
}

func TestStoreRepo_Verification(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	pending := newTestStore(1, "pending")
	pending.DomainSettings.CustomDomain = strPtr("pending.example.com")
	pending.DomainSettings.DNSSettings.VerificationToken = "token-a"
	noDomain := newTestStore(2, "plain")
	for _, s := range []*model.Store{pending, noDomain} {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list, err := repo.ListPendingVerification(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingVerification() error = %v", err)
	}
	if len(list) != 1 || list[0].ID != pending.ID {
		t.Fatalf("ListPendingVerification() = %d 条, want 仅 pending", len(list))
	}

	now := time.Now().UTC().Truncate(time.Second)

	// token 已轮换的旧结果不写入
	err = repo.UpdateVerification(ctx, pending.ID, VerificationResult{
		Domain: "pending.example.com", Token: "token-old", Verified: true, CheckedAt: now,
	})
	if !errors.Is(err, ErrStaleVerification) {
		t.Fatalf("UpdateVerification(旧 token) error = %v, want ErrStaleVerification", err)
	}
	err = repo.UpdateVerification(ctx, pending.ID, VerificationResult{
		Domain: "other.example.com", Token: "token-a", Verified: true, CheckedAt: now,
	})
	if !errors.Is(err, ErrStaleVerification) {
		t.Fatalf("UpdateVerification(旧域名) error = %v, want ErrStaleVerification", err)
	}
	got, _ := repo.GetByID(ctx, pending.ID)
	if got.DomainSettings.CustomDomainVerified || got.DomainSettings.LastVerificationAt != nil {
		t.Fatal("过期结果不应写入")
	}

	err = repo.UpdateVerification(ctx, pending.ID, VerificationResult{
		Domain: "pending.example.com", Token: "token-a", Verified: true, CheckedAt: now,
	})
	if err != nil {
		t.Fatalf("UpdateVerification() error = %v", err)
	}

	got, _ = repo.GetByID(ctx, pending.ID)
	if !got.DomainSettings.CustomDomainVerified {
		t.Error("CustomDomainVerified = false, want true")
	}
	if got.DomainSettings.VerifiedAt == nil {
		t.Error("VerifiedAt 未写入")
	}

	list, _ = repo.ListPendingVerification(ctx, 10)
	if len(list) != 0 {
		t.Errorf("已校验后仍有 %d 条待校验", len(list))
	}
}

func TestStoreRepo_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewStoreRepository(db)
	ctx := context.Background()

	for i, sub := range []string{"alpha", "beta", "gamma"} {
		if err := repo.Create(ctx, newTestStore(int64(i+1), sub)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	if err := repo.UpdateStatus(ctx, 1, model.StoreStatusSuspended); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}

	all, total, err := repo.List(ctx, StoreFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if total != 3 || len(all) != 3 {
		t.Errorf("List() total = %d len = %d, want 3", total, len(all))
	}

	_, total, _ = repo.List(ctx, StoreFilter{Status: model.StoreStatusActive})
	if total != 2 {
		t.Errorf("List(active) total = %d, want 2", total)
	}

	found, total, _ := repo.List(ctx, StoreFilter{Keyword: "BET"})
	if total != 1 || found[0].DomainSettings.Subdomain != "beta" {
		t.Errorf("List(keyword) = %+v", found)
	}
}
