package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"reseller_hub/internal/api/dto"
	"reseller_hub/internal/cache"
	"reseller_hub/internal/event"
	"reseller_hub/internal/metrics"
	"reseller_hub/internal/model"
	"reseller_hub/internal/repository"
)

// VerificationRecordPrefix 校验 TXT 记录所在的子域前缀
const VerificationRecordPrefix = "_reseller-verify."

// ==================== DNS-over-HTTPS 解析 ====================

// TXTResolver TXT 记录查询
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// DoHResolver 通过 DNS-over-HTTPS JSON 接口查询（Cloudflare / Google 格式）
type DoHResolver struct {
	client   *resty.Client
	endpoint string
}

// NewDoHResolver 创建 DoH 解析器
func NewDoHResolver(client *resty.Client, endpoint string) *DoHResolver {
	return &DoHResolver{client: client, endpoint: endpoint}
}

type dohAnswer struct {
	Name string `json:"name"`
	Type int    `json:"type"`
	TTL  int    `json:"TTL"`
	Data string `json:"data"`
}

type dohResponse struct {
	Status int         `json:"Status"`
	Answer []dohAnswer `json:"Answer"`
}

const (
	dnsTypeTXT       = 16
	dnsRcodeNoError  = 0
	dnsRcodeNXDomain = 3
)

// LookupTXT 域名不存在时返回空列表
func (r *DoHResolver) LookupTXT(ctx context.Context, name string) ([]string, error) {
	var result dohResponse
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/dns-json").
		SetQueryParams(map[string]string{"name": name, "type": "TXT"}).
		SetResult(&result).
		Get(r.endpoint)
	if err != nil {
		return nil, fmt.Errorf("doh request: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("doh status %d: %s", resp.StatusCode(), resp.String())
	}

	switch result.Status {
	case dnsRcodeNoError:
	case dnsRcodeNXDomain:
		return nil, nil
	default:
		return nil, fmt.Errorf("doh rcode %d", result.Status)
	}

	var records []string
	for _, a := range result.Answer {
		if a.Type == dnsTypeTXT {
			records = append(records, unquoteTXT(a.Data))
		}
	}
	return records, nil
}

// unquoteTXT 去掉引号并拼接分段，如 "abc" "def" -> abcdef
func unquoteTXT(data string) string {
	data = strings.TrimSpace(data)
	if !strings.HasPrefix(data, `"`) {
		return data
	}
	var b strings.Builder
	for _, part := range strings.Split(data, `" "`) {
		b.WriteString(strings.Trim(part, `"`))
	}
	return b.String()
}

// ==================== DomainVerifier 自定义域名校验 ====================

// DomainVerifier 检查 _reseller-verify.<域名> 的 TXT 记录是否包含校验 token
type DomainVerifier struct {
	storeRepo repository.StoreRepository
	resolver  TXTResolver
	cache     cache.StoreCache
	publisher event.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewDomainVerifier 创建域名校验服务
func NewDomainVerifier(
	storeRepo repository.StoreRepository,
	resolver TXTResolver,
	storeCache cache.StoreCache,
	publisher event.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *DomainVerifier {
	return &DomainVerifier{
		storeRepo: storeRepo,
		resolver:  resolver,
		cache:     storeCache,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// VerifyForReseller 分销商手动触发校验
func (v *DomainVerifier) VerifyForReseller(ctx context.Context, resellerID int64) (*dto.VerifyDomainResponse, error) {
	store, err := v.storeRepo.GetByResellerID(ctx, resellerID)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrStoreNotFound
	}

	verified, err := v.VerifyStore(ctx, store)
	if err != nil {
		return nil, err
	}
	return &dto.VerifyDomainResponse{Verified: verified, Store: store}, nil
}

// VerifyStore 校验单个店铺并写回结果
// DNS 查询失败记录为校验失败，只有写库失败才返回 error
func (v *DomainVerifier) VerifyStore(ctx context.Context, store *model.Store) (bool, error) {
	if !store.HasCustomDomain() {
		return false, ErrNoCustomDomain
	}
	domain := *store.DomainSettings.CustomDomain
	token := store.DomainSettings.DNSSettings.VerificationToken

	result := repository.VerificationResult{Domain: domain, Token: token, CheckedAt: v.now()}
	records, err := v.resolver.LookupTXT(ctx, VerificationRecordPrefix+domain)
	switch {
	case err != nil:
		result.Error = "dns lookup failed"
		v.metrics.RecordVerification("error")
		v.logger.Warn("域名校验 DNS 查询失败", zap.String("domain", domain), zap.Error(err))
	case token != "" && containsRecord(records, token):
		result.Verified = true
		v.metrics.RecordVerification("verified")
	default:
		result.Error = "verification record not found"
		v.metrics.RecordVerification("failed")
	}

	if err := v.storeRepo.UpdateVerification(ctx, store.ID, result); err != nil {
		if errors.Is(err, repository.ErrStaleVerification) {
			// 校验期间域名已变更，丢弃本次结果
			v.logger.Info("域名已变更，跳过过期的校验结果", zap.Int64("store_id", store.ID), zap.String("domain", domain))
			return false, nil
		}
		return false, err
	}

	d := &store.DomainSettings
	d.CustomDomainVerified = result.Verified
	d.LastVerificationAt = &result.CheckedAt
	d.LastVerificationError = result.Error
	if result.Verified {
		d.VerifiedAt = &result.CheckedAt
	}

	if err := v.cache.Delete(ctx, store.ResellerID); err != nil {
		v.logger.Warn("删除店铺缓存失败", zap.Int64("reseller_id", store.ResellerID), zap.Error(err))
	}
	if result.Verified {
		evt := event.StoreEvent{
			Type:         event.TypeDomainVerified,
			StoreID:      store.ID,
			ResellerID:   store.ResellerID,
			Subdomain:    d.Subdomain,
			CustomDomain: domain,
			Status:       store.Status,
			OccurredAt:   result.CheckedAt,
		}
		if err := v.publisher.Publish(ctx, evt); err != nil {
			v.logger.Warn("发布域名校验事件失败", zap.Int64("store_id", store.ID), zap.Error(err))
		}
	}
	return result.Verified, nil
}

// ListPending 待校验店铺
func (v *DomainVerifier) ListPending(ctx context.Context, limit int) ([]model.Store, error) {
	return v.storeRepo.ListPendingVerification(ctx, limit)
}

func containsRecord(records []string, token string) bool {
	for _, r := range records {
		if strings.TrimSpace(r) == token {
			return true
		}
	}
	return false
}
