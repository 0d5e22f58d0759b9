package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/cache"
	"reseller_hub/internal/event"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/model"
	"reseller_hub/internal/repository"
)

// 创建成功提示
const (
	MsgStoreCreatedCustom = "Store created! Please configure your domain DNS settings."
	MsgStoreCreated       = "Store created successfully!"
)

// ==================== StoreService 店铺服务 ====================

// StoreService 分销商店铺的创建、查询与修改
type StoreService struct {
	storeRepo repository.StoreRepository
	domains   *DomainService
	cache     cache.StoreCache
	publisher event.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewStoreService 创建店铺服务
func NewStoreService(
	storeRepo repository.StoreRepository,
	domains *DomainService,
	storeCache cache.StoreCache,
	publisher event.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *StoreService {
	return &StoreService{
		storeRepo: storeRepo,
		domains:   domains,
		cache:     storeCache,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// ==================== 创建 ====================

// CreateStore 为分销商开店，每个分销商只能创建一次
func (s *StoreService) CreateStore(ctx context.Context, resellerID int64, req *dto.CreateStoreRequest) (*dto.CreateStoreResponse, error) {
	exists, err := s.storeRepo.ExistsByResellerID(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrStoreExists
	}

	name := strings.TrimSpace(req.Name)
	if name == "" || strings.TrimSpace(req.Domain) == "" {
		return nil, ErrStoreFieldsRequired
	}

	var domainSettings model.DomainSettings
	if !req.IsDomainCustom {
		subdomain, err := s.domains.GenerateUniqueSubdomain(ctx, name)
		if err != nil {
			return nil, err
		}
		domainSettings.Subdomain = subdomain
	} else {
		domain := NormalizeDomain(req.Domain)
		if !ValidateDomain(domain) {
			return nil, ErrInvalidDomain
		}
		if err := s.ensureDomainAvailable(ctx, domain, 0); err != nil {
			return nil, err
		}

		// 自定义域名同样分配一个子域名作为备用入口
		subdomain, err := s.domains.GenerateUniqueSubdomain(ctx, name)
		if err != nil {
			return nil, err
		}
		domainSettings = model.DomainSettings{
			Subdomain:            subdomain,
			CustomDomain:         &domain,
			CustomDomainVerified: false,
			DNSSettings:          s.domains.NewDNSSettings(subdomain),
		}
	}

	settings := mergeSettings(model.DefaultStoreSettings(), req.Settings)
	if !settings.Valid() {
		return nil, ErrInvalidSettings
	}

	store := &model.Store{
		ResellerID:     resellerID,
		Name:           name,
		Description:    req.Description,
		DomainSettings: domainSettings,
		Settings:       settings,
		Status:         model.StoreStatusActive,
	}
	if err := s.storeRepo.Create(ctx, store); err != nil {
		return nil, s.translateWriteError(ctx, store, err)
	}

	s.metrics.RecordStoreCreated(req.IsDomainCustom)
	s.afterWrite(ctx, event.TypeStoreCreated, store)

	msg := MsgStoreCreated
	if req.IsDomainCustom {
		msg = MsgStoreCreatedCustom
	}
	return &dto.CreateStoreResponse{
		Store:          store,
		IsDomainCustom: req.IsDomainCustom,
		Message:        msg,
	}, nil
}

// mergeSettings 请求中提供的字段覆盖默认值
func mergeSettings(base model.StoreSettings, in *dto.StoreSettingsInput) model.StoreSettings {
	if in == nil {
		return base
	}
	if in.DefaultMarkup != nil {
		base.DefaultMarkup = *in.DefaultMarkup
	}
	if in.MinimumMarkup != nil {
		base.MinimumMarkup = *in.MinimumMarkup
	}
	if in.MaximumMarkup != nil {
		base.MaximumMarkup = *in.MaximumMarkup
	}
	if in.AutoFulfillment != nil {
		base.AutoFulfillment = *in.AutoFulfillment
	}
	if in.LowBalanceAlert != nil {
		base.LowBalanceAlert = *in.LowBalanceAlert
	}
	return base
}

// ==================== 查询 ====================

// GetStore 获取分销商店铺，优先读缓存
func (s *StoreService) GetStore(ctx context.Context, resellerID int64) (*model.Store, error) {
	if cached, err := s.cache.Get(ctx, resellerID); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("读取店铺缓存失败", zap.Int64("reseller_id", resellerID), zap.Error(err))
	}

	// 回源前记录失效代数，回源期间有写操作时不回填
	generation, genErr := s.cache.Generation(ctx, resellerID)

	store, err := s.storeRepo.GetByResellerID(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}

	if genErr != nil {
		s.logger.Warn("读取缓存代数失败", zap.Int64("reseller_id", resellerID), zap.Error(genErr))
	} else if err := s.cache.Fill(ctx, store, generation); err != nil {
		s.logger.Warn("写入店铺缓存失败", zap.Int64("reseller_id", resellerID), zap.Error(err))
	}
	return store, nil
}

// ==================== 修改 ====================

// UpdateStore 按字段合并更新店铺
// 空 patch 或未产生变化时直接返回原店铺，不写库
func (s *StoreService) UpdateStore(ctx context.Context, resellerID int64, patch map[string]interface{}) (*model.Store, error) {
	if patch == nil {
		return nil, ErrInvalidBody
	}

	store, err := s.storeRepo.GetByResellerID(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}

	changed, domainChanged, err := applyStorePatch(store, patch)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.metrics.RecordStoreUpdate("unchanged")
		return store, nil
	}

	if !store.Settings.Valid() {
		return nil, ErrInvalidSettings
	}
	if domainChanged {
		if err := s.resetCustomDomain(ctx, store); err != nil {
			return nil, err
		}
	}

	if err := s.storeRepo.Save(ctx, store); err != nil {
		return nil, s.translateWriteError(ctx, store, err)
	}

	s.metrics.RecordStoreUpdate("updated")
	s.afterWrite(ctx, event.TypeStoreUpdated, store)
	return store, nil
}

// resetCustomDomain 自定义域名变化后重新校验并清空校验状态
func (s *StoreService) resetCustomDomain(ctx context.Context, store *model.Store) error {
	d := &store.DomainSettings
	d.CustomDomainVerified = false
	d.VerifiedAt = nil
	d.LastVerificationAt = nil
	d.LastVerificationError = ""

	if !store.HasCustomDomain() {
		d.CustomDomain = nil
		d.DNSSettings = model.DNSSettings{}
		return nil
	}

	if !ValidateDomain(*d.CustomDomain) {
		return ErrInvalidDomain
	}
	if err := s.ensureDomainAvailable(ctx, *d.CustomDomain, store.ID); err != nil {
		return err
	}
	d.DNSSettings = s.domains.NewDNSSettings(d.Subdomain)
	return nil
}

// ==================== 后台管理 ====================

// ListStores 后台店铺列表
func (s *StoreService) ListStores(ctx context.Context, req *dto.StoreListRequest) (*dto.StoreListResponse, error) {
	filter := repository.StoreFilter{
		Keyword:  req.Keyword,
		Status:   req.Status,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = 20
	}

	stores, total, err := s.storeRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &dto.StoreListResponse{
		List:     stores,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// UpdateStatus 管理员启用 / 停用店铺
func (s *StoreService) UpdateStatus(ctx context.Context, storeID int64, status string) (*model.Store, error) {
	if status != model.StoreStatusActive && status != model.StoreStatusSuspended {
		return nil, ErrInvalidStatus
	}

	if err := s.storeRepo.UpdateStatus(ctx, storeID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStoreNotFound
		}
		return nil, err
	}

	store, err := s.storeRepo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}

	s.afterWrite(ctx, event.TypeStoreStatus, store)
	return store, nil
}

// ==================== 内部方法 ====================

// ensureDomainAvailable 自定义域名未被其他店铺占用
func (s *StoreService) ensureDomainAvailable(ctx context.Context, domain string, selfID int64) error {
	owner, err := s.storeRepo.GetByCustomDomain(ctx, domain)
	if err != nil {
		return err
	}
	if owner != nil && owner.ID != selfID {
		return ErrDomainInUse
	}
	return nil
}

// translateWriteError 唯一索引冲突（检查与写入之间的竞争）映射为业务错误
// 翻译后的错误不带索引名，重新查询判断冲突来源
func (s *StoreService) translateWriteError(ctx context.Context, store *model.Store, err error) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if store.HasCustomDomain() {
		if owner, lookupErr := s.storeRepo.GetByCustomDomain(ctx, *store.DomainSettings.CustomDomain); lookupErr == nil &&
			owner != nil && owner.ID != store.ID {
			return ErrDomainInUse.Wrap(err)
		}
	}
	if store.ID == 0 {
		if exists, lookupErr := s.storeRepo.ExistsByResellerID(ctx, store.ResellerID); lookupErr == nil && exists {
			return ErrStoreExists.Wrap(err)
		}
	}
	return ErrSubdomainExhausted.Wrap(err)
}

// afterWrite 失效缓存并发布事件，失败只记录日志
func (s *StoreService) afterWrite(ctx context.Context, eventType string, store *model.Store) {
	if err := s.cache.Delete(ctx, store.ResellerID); err != nil {
		s.logger.Warn("删除店铺缓存失败", zap.Int64("reseller_id", store.ResellerID), zap.Error(err))
	}

	evt := event.StoreEvent{
		Type:       eventType,
		StoreID:    store.ID,
		ResellerID: store.ResellerID,
		Subdomain:  store.DomainSettings.Subdomain,
		Status:     store.Status,
		OccurredAt: s.now(),
	}
	if store.HasCustomDomain() {
		evt.CustomDomain = *store.DomainSettings.CustomDomain
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("发布店铺事件失败",
			zap.String("type", eventType),
			zap.Int64("store_id", store.ID),
			zap.Error(err),
		)
	}
}
