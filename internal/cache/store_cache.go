package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"reseller_hub/internal/model"
)

// ErrMiss 缓存未命中
var ErrMiss = errors.New("cache miss")

// StoreCache 按分销商缓存店铺
//
// 回源前先读 Generation，回源后用 Fill 写入：期间发生过 Delete 时 Fill 不写入，
// 避免读到的旧数据覆盖写操作的失效
type StoreCache interface {
	Get(ctx context.Context, resellerID int64) (*model.Store, error)
	Generation(ctx context.Context, resellerID int64) (int64, error)
	Fill(ctx context.Context, store *model.Store, generation int64) error
	Delete(ctx context.Context, resellerID int64) error
}

func storeKey(resellerID int64) string {
	return fmt.Sprintf("reseller:%d:store", resellerID)
}

func generationKey(resellerID int64) string {
	return fmt.Sprintf("reseller:%d:store:gen", resellerID)
}

// generationTTL 失效代数保留时间，过期后进行中的 Fill 只会被拒绝
const generationTTL = 24 * time.Hour

// ==================== Redis 实现 ====================

type redisStoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient 创建 Redis 客户端
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// NewRedisStoreCache 基于 Redis 的店铺缓存
func NewRedisStoreCache(client *redis.Client, ttl time.Duration) StoreCache {
	return &redisStoreCache{client: client, ttl: ttl}
}

func (c *redisStoreCache) Get(ctx context.Context, resellerID int64) (*model.Store, error) {
	raw, err := c.client.Get(ctx, storeKey(resellerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, err
	}
	return decodeStore(raw)
}

// fillScript KEYS[1]=店铺 KEYS[2]=代数 ARGV: 值, 期望代数, 过期毫秒
var fillScript = redis.NewScript(`
local gen = tonumber(redis.call('GET', KEYS[2]) or '0')
if gen ~= tonumber(ARGV[2]) then
	return 0
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

func (c *redisStoreCache) Generation(ctx context.Context, resellerID int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(resellerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *redisStoreCache) Fill(ctx context.Context, store *model.Store, generation int64) error {
	raw, err := encodeStore(store)
	if err != nil {
		return err
	}
	keys := []string{storeKey(store.ResellerID), generationKey(store.ResellerID)}
	return fillScript.Run(ctx, c.client, keys, raw, generation, c.ttl.Milliseconds()).Err()
}

func (c *redisStoreCache) Delete(ctx context.Context, resellerID int64) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(resellerID))
		pipe.Expire(ctx, generationKey(resellerID), generationTTL)
		pipe.Del(ctx, storeKey(resellerID))
		return nil
	})
	return err
}

// ==================== 内存实现 ====================

// cacheItem 缓存值及过期时间
type cacheItem struct {
	value      []byte
	expiration time.Time
}

type memoryStoreCache struct {
	items sync.Map // key -> cacheItem
	ttl   time.Duration
	now   func() time.Time

	mu          sync.Mutex
	generations map[int64]int64
}

// NewMemoryStoreCache 进程内缓存，未配置 Redis 时使用
func NewMemoryStoreCache(ttl time.Duration) StoreCache {
	return &memoryStoreCache{ttl: ttl, now: time.Now, generations: make(map[int64]int64)}
}

func (c *memoryStoreCache) Get(_ context.Context, resellerID int64) (*model.Store, error) {
	key := storeKey(resellerID)
	val, ok := c.items.Load(key)
	if !ok {
		return nil, ErrMiss
	}

	item := val.(cacheItem)
	if c.now().After(item.expiration) {
		c.items.Delete(key) // 懒删除
		return nil, ErrMiss
	}
	return decodeStore(item.value)
}

func (c *memoryStoreCache) Generation(_ context.Context, resellerID int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[resellerID], nil
}

func (c *memoryStoreCache) Fill(_ context.Context, store *model.Store, generation int64) error {
	raw, err := encodeStore(store)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generations[store.ResellerID] != generation {
		return nil
	}
	c.items.Store(storeKey(store.ResellerID), cacheItem{
		value:      raw,
		expiration: c.now().Add(c.ttl),
	})
	return nil
}

func (c *memoryStoreCache) Delete(_ context.Context, resellerID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generations[resellerID]++
	c.items.Delete(storeKey(resellerID))
	return nil
}

// ==================== 序列化 ====================

// cachedStore 缓存中的完整店铺快照
// Store 的 JSON 形态会省略未绑定域名时的 DNS 信息，这里单独保存
type cachedStore struct {
	Store     *model.Store   `json:"store"`
	Domain    domainSnapshot `json:"domain"`
	CreatedBy int64          `json:"createdBy"`
	UpdatedBy int64          `json:"updatedBy"`
}

type domainSnapshot struct {
	Subdomain             string            `json:"subdomain"`
	CustomDomain          *string           `json:"customDomain"`
	CustomDomainVerified  bool              `json:"customDomainVerified"`
	DNSSettings           model.DNSSettings `json:"dnsSettings"`
	VerifiedAt            *time.Time        `json:"verifiedAt"`
	LastVerificationAt    *time.Time        `json:"lastVerificationAt"`
	LastVerificationError string            `json:"lastVerificationError"`
}

func encodeStore(store *model.Store) ([]byte, error) {
	d := store.DomainSettings
	return json.Marshal(cachedStore{
		Store: store,
		Domain: domainSnapshot{
			Subdomain:             d.Subdomain,
			CustomDomain:          d.CustomDomain,
			CustomDomainVerified:  d.CustomDomainVerified,
			DNSSettings:           d.DNSSettings,
			VerifiedAt:            d.VerifiedAt,
			LastVerificationAt:    d.LastVerificationAt,
			LastVerificationError: d.LastVerificationError,
		},
		CreatedBy: store.CreatedBy,
		UpdatedBy: store.UpdatedBy,
	})
}

func decodeStore(raw []byte) (*model.Store, error) {
	var cs cachedStore
	if err := json.Unmarshal(raw, &cs); err != nil {
		return nil, err
	}
	if cs.Store == nil {
		return nil, ErrMiss
	}
	d := cs.Domain
	cs.Store.DomainSettings = model.DomainSettings{
		Subdomain:             d.Subdomain,
		CustomDomain:          d.CustomDomain,
		CustomDomainVerified:  d.CustomDomainVerified,
		DNSSettings:           d.DNSSettings,
		VerifiedAt:            d.VerifiedAt,
		LastVerificationAt:    d.LastVerificationAt,
		LastVerificationError: d.LastVerificationError,
	}
	cs.Store.CreatedBy = cs.CreatedBy
	cs.Store.UpdatedBy = cs.UpdatedBy
	return cs.Store, nil
}
