package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reseller_hub/internal/model"
)

func sampleStore() *model.Store {
	domain := "shop.acme.com"
	return &model.Store{
		ID:         3,
		ResellerID: 42,
		Name:       "Acme",
		DomainSettings: model.DomainSettings{
			Subdomain:    "acme",
			CustomDomain: &domain,
			DNSSettings: model.DNSSettings{
				ARecord:           "203.0.113.10",
				CNAMERecord:       "acme.shops.example.com",
				VerificationToken: "tok123",
			},
		},
		Settings:   model.DefaultStoreSettings(),
		Status:     model.StoreStatusActive,
		AuditMixin: model.AuditMixin{CreatedBy: 42, UpdatedBy: 42},
	}
}

func TestMemoryStoreCache_RoundTrip(t *testing.T) {
	c := NewMemoryStoreCache(time.Minute)
	ctx := context.Background()

	_, err := c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Fill(ctx, sampleStore(), 0))

	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.DomainSettings.Subdomain)
	assert.Equal(t, "tok123", got.DomainSettings.DNSSettings.VerificationToken)
	assert.Equal(t, int64(42), got.CreatedBy)
	assert.Equal(t, model.DefaultMarkup, got.Settings.DefaultMarkup)

	require.NoError(t, c.Delete(ctx, 42))
	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreCache_Expiry(t *testing.T) {
	c := NewMemoryStoreCache(time.Minute).(*memoryStoreCache)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Fill(ctx, sampleStore(), 0))

	now = now.Add(2 * time.Minute)
	_, err := c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryStoreCache_FillAfterDelete(t *testing.T) {
	c := NewMemoryStoreCache(time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, 42)
	require.NoError(t, err)

	// 回源期间店铺被修改
	require.NoError(t, c.Delete(ctx, 42))
	require.NoError(t, c.Fill(ctx, sampleStore(), gen))
	_, err = c.Get(ctx, 42)
	assert.ErrorIs(t, err, ErrMiss)

	current, err := c.Generation(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, gen+1, current)

	require.NoError(t, c.Fill(ctx, sampleStore(), current))
	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.DomainSettings.Subdomain)

	// 其它分销商的代数互不影响
	other, err := c.Generation(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, other)
}

func TestEncodeStore_KeepsDNSWithoutCustomDomain(t *testing.T) {
	store := sampleStore()
	store.DomainSettings.CustomDomain = nil

	raw, err := encodeStore(store)
	require.NoError(t, err)

	got, err := decodeStore(raw)
	require.NoError(t, err)
	assert.Nil(t, got.DomainSettings.CustomDomain)
	assert.Equal(t, "tok123", got.DomainSettings.DNSSettings.VerificationToken)
}
