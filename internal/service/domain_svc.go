package service

import (
	"context"
	"fmt"
	"strings"

	nanoid "github.com/jaevor/go-nanoid"
	"golang.org/x/net/publicsuffix"

	"reseller_hub/internal/model"
)

const (
	maxSlugLength        = 40
	subdomainSuffixLen   = 6
	maxSubdomainAttempts = 10
	verificationTokenLen = 24
	lowerAlnum           = "abcdefghijklmnopqrstuvwxyz0123456789"
	fallbackSlug         = "store"
)

// 保留子域名，不分配给店铺
var reservedSubdomains = map[string]struct{}{
	"www":    {},
	"api":    {},
	"admin":  {},
	"app":    {},
	"mail":   {},
	"static": {},
}

// SubdomainChecker 子域名占用查询
type SubdomainChecker interface {
	ExistsBySubdomain(ctx context.Context, subdomain string) (bool, error)
}

// ==================== DomainService 域名服务 ====================

// DomainService 子域名分配与自定义域名 DNS 记录
type DomainService struct {
	checker    SubdomainChecker
	ipAddress  string
	baseDomain string
	suffix     func() string
	token      func() string
}

// NewDomainService 创建域名服务
// ipAddress / baseDomain 对应 STORE_IP_ADDRESS / STORE_DOMAIN
func NewDomainService(checker SubdomainChecker, ipAddress, baseDomain string) (*DomainService, error) {
	suffix, err := nanoid.CustomASCII(lowerAlnum, subdomainSuffixLen)
	if err != nil {
		return nil, err
	}
	token, err := nanoid.CustomASCII(lowerAlnum, verificationTokenLen)
	if err != nil {
		return nil, err
	}
	return &DomainService{
		checker:    checker,
		ipAddress:  ipAddress,
		baseDomain: strings.TrimSuffix(strings.ToLower(baseDomain), "."),
		suffix:     suffix,
		token:      token,
	}, nil
}

// GenerateUniqueSubdomain 由店铺名生成未被占用的子域名
// 先尝试 slug 本身，被占用时追加 -<6 位随机串>
func (s *DomainService) GenerateUniqueSubdomain(ctx context.Context, name string) (string, error) {
	base := Slugify(name)
	candidate := base

	for attempt := 0; attempt < maxSubdomainAttempts; attempt++ {
		if attempt > 0 {
			candidate = base + "-" + s.suffix()
		}
		if _, reserved := reservedSubdomains[candidate]; reserved {
			continue
		}
		taken, err := s.checker.ExistsBySubdomain(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check subdomain %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrSubdomainExhausted
}

// NewDNSSettings 自定义域名需要配置的 DNS 记录
func (s *DomainService) NewDNSSettings(subdomain string) model.DNSSettings {
	return model.DNSSettings{
		ARecord:           s.ipAddress,
		CNAMERecord:       subdomain + "." + s.baseDomain,
		VerificationToken: s.NewVerificationToken(),
	}
}

// NewVerificationToken 24 位小写字母数字
func (s *DomainService) NewVerificationToken() string {
	return s.token()
}

// ==================== 工具函数 ====================

// Slugify 转为子域名可用的 slug
// 非 [a-z0-9] 的连续字符折叠为一个 '-'，结果为空时返回 "store"
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}

	slug := b.String()
	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// NormalizeDomain 去除首尾空白并转小写
func NormalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}

// ValidateDomain 校验自定义域名格式
// 不接受协议前缀、路径、端口、末尾的点，也不接受公共后缀本身（如 co.uk）
func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !validLabel(label) {
			return false
		}
	}

	tld := labels[len(labels)-1]
	if len(tld) < 2 {
		return false
	}
	for _, r := range tld {
		if r < 'a' || r > 'z' {
			return false
		}
	}

	_, err := publicsuffix.EffectiveTLDPlusOne(domain)
	return err == nil
}

func validLabel(label string) bool {
	if len(label) == 0 || len(label) > 63 {
		return false
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return false
	}
	for _, r := range label {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
		default:
			return false
		}
	}
	return true
}
