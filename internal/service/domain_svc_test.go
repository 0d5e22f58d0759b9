package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChecker 已占用子域名集合
type fakeChecker struct {
	taken map[string]bool
	err   error
	calls int
}

func (f *fakeChecker) ExistsBySubdomain(_ context.Context, subdomain string) (bool, error) {
	f.calls++
	return f.taken[subdomain], f.err
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"普通", "Acme", "acme"},
		{"空格与符号", "  Bob's Gadget  Shop!! ", "bob-s-gadget-shop"},
		{"连续分隔符", "a---b___c", "a-b-c"},
		{"非 ASCII", "Café Ünïcode", "caf-n-code"},
		{"全部非法", "!!!", "store"},
		{"空字符串", "", "store"},
		{"超长截断", strings.Repeat("ab ", 30), "ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-ab-a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slugify(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), maxSlugLength)
			assert.False(t, strings.HasSuffix(got, "-"))
		})
	}
}

func TestValidateDomain(t *testing.T) {
	valid := []string{"acme.com", "shop.acme.com", "my-store.co.uk", "a1.io", "xn--bcher-kva.example"}
	invalid := []string{
		"", "acme", "co.uk", "com", "http://acme.com", "acme.com/path", "acme.com.",
		"-acme.com", "acme-.com", "ac_me.com", "acme.c", "acme.c0m", "acme..com",
		"acme.com:8080", strings.Repeat("a", 64) + ".com",
	}

	for _, d := range valid {
		assert.True(t, ValidateDomain(d), d)
	}
	for _, d := range invalid {
		assert.False(t, ValidateDomain(d), d)
	}
}

func TestNormalizeDomain(t *testing.T) {
	assert.Equal(t, "acme.com", NormalizeDomain("  ACME.com "))
}

func TestGenerateUniqueSubdomain(t *testing.T) {
	ctx := context.Background()

	t.Run("slug 可用", func(t *testing.T) {
		svc, err := NewDomainService(&fakeChecker{}, "1.2.3.4", "example.com")
		require.NoError(t, err)

		got, err := svc.GenerateUniqueSubdomain(ctx, "Acme Store")
		require.NoError(t, err)
		assert.Equal(t, "acme-store", got)
	})

	t.Run("slug 被占用时追加后缀", func(t *testing.T) {
		svc, err := NewDomainService(&fakeChecker{taken: map[string]bool{"acme": true}}, "", "example.com")
		require.NoError(t, err)

		got, err := svc.GenerateUniqueSubdomain(ctx, "Acme")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "acme-"), got)
		assert.Len(t, got, len("acme-")+subdomainSuffixLen)
	})

	t.Run("保留名", func(t *testing.T) {
		checker := &fakeChecker{}
		svc, err := NewDomainService(checker, "", "example.com")
		require.NoError(t, err)

		got, err := svc.GenerateUniqueSubdomain(ctx, "Admin")
		require.NoError(t, err)
		assert.NotEqual(t, "admin", got)
		assert.True(t, strings.HasPrefix(got, "admin-"))
	})

	t.Run("多次冲突后失败", func(t *testing.T) {
		svc, err := NewDomainService(&fakeChecker{}, "", "example.com")
		require.NoError(t, err)
		svc.checker = alwaysTaken{}

		_, err = svc.GenerateUniqueSubdomain(ctx, "Acme")
		assert.ErrorIs(t, err, ErrSubdomainExhausted)
	})

	t.Run("查询失败", func(t *testing.T) {
		boom := errors.New("db down")
		svc, err := NewDomainService(&fakeChecker{err: boom}, "", "example.com")
		require.NoError(t, err)

		_, err = svc.GenerateUniqueSubdomain(ctx, "Acme")
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, KindUnexpected, KindOf(err))
	})
}

type alwaysTaken struct{}

func (alwaysTaken) ExistsBySubdomain(context.Context, string) (bool, error) { return true, nil }

func TestNewDNSSettings(t *testing.T) {
	svc, err := NewDomainService(&fakeChecker{}, "203.0.113.10", "Shops.Example.com.")
	require.NoError(t, err)

	dns := svc.NewDNSSettings("acme")
	assert.Equal(t, "203.0.113.10", dns.ARecord)
	assert.Equal(t, "acme.shops.example.com", dns.CNAMERecord)
	assert.Len(t, dns.VerificationToken, verificationTokenLen)

	other := svc.NewDNSSettings("acme")
	assert.NotEqual(t, dns.VerificationToken, other.VerificationToken)
}
