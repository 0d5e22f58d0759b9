package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"reseller_hub/internal/model"
)

// DefaultDomainVerifySpec 每 10 分钟执行一次（秒级 cron）
const DefaultDomainVerifySpec = "0 */10 * * * *"

// StoreVerifier 自定义域名校验
type StoreVerifier interface {
	ListPending(ctx context.Context, limit int) ([]model.Store, error)
	VerifyStore(ctx context.Context, store *model.Store) (bool, error)
}

// VerifyStats 一轮校验的结果统计
type VerifyStats struct {
	Checked  int64
	Verified int64
	Failed   int64
}

// DomainVerifyTask 定时校验未通过的自定义域名
type DomainVerifyTask struct {
	verifier StoreVerifier
	cron     *cron.Cron
	logger   *zap.Logger

	spec        string
	batchSize   int
	concurrency int
	sleepTime   time.Duration
	timeout     time.Duration
}

// NewDomainVerifyTask 创建域名校验任务
func NewDomainVerifyTask(verifier StoreVerifier, logger *zap.Logger) *DomainVerifyTask {
	return &DomainVerifyTask{
		verifier:    verifier,
		cron:        cron.New(cron.WithSeconds()),
		logger:      logger,
		spec:        DefaultDomainVerifySpec,
		batchSize:   200,
		concurrency: 10,                    // DoH 服务端有限流，保持较低并发
		sleepTime:   20 * time.Millisecond, // 平滑请求
		timeout:     5 * time.Minute,
	}
}

// SetSchedule 修改执行周期
func (t *DomainVerifyTask) SetSchedule(spec string) {
	if spec != "" {
		t.spec = spec
	}
}

// SetConcurrency 设置并发数与每轮数量
func (t *DomainVerifyTask) SetConcurrency(concurrency, batchSize int, sleepTime time.Duration) {
	if concurrency > 0 {
		t.concurrency = concurrency
	}
	if batchSize > 0 {
		t.batchSize = batchSize
	}
	t.sleepTime = sleepTime
}

// Start 启动定时任务，并立即执行一次
func (t *DomainVerifyTask) Start() error {
	if _, err := t.cron.AddFunc(t.spec, t.runWithTimeout); err != nil {
		return err
	}

	go t.runWithTimeout()
	t.cron.Start()
	t.logger.Info("域名校验任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止调度，返回的 context 在运行中的任务结束后关闭
func (t *DomainVerifyTask) Stop() context.Context {
	return t.cron.Stop()
}

func (t *DomainVerifyTask) runWithTimeout() {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	t.RunOnce(ctx)
}

// RunOnce 执行一轮校验
func (t *DomainVerifyTask) RunOnce(ctx context.Context) VerifyStats {
	var stats VerifyStats

	stores, err := t.verifier.ListPending(ctx, t.batchSize)
	if err != nil {
		t.logger.Error("查询待校验店铺失败", zap.Error(err))
		return stats
	}
	if len(stores) == 0 {
		return stats
	}

	t.logger.Info("开始校验自定义域名", zap.Int("count", len(stores)), zap.Int("concurrency", t.concurrency))

	var checked, verified, failed atomic.Int64
	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup

loop:
	for i := range stores {
		if ctx.Err() != nil {
			t.logger.Warn("域名校验任务超时停止", zap.Int("remaining", len(stores)-i))
			break
		}
		select {
		case <-ctx.Done():
			break loop
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(store *model.Store) {
			defer wg.Done()
			defer func() { <-sem }()

			ok, err := t.verifier.VerifyStore(ctx, store)
			checked.Add(1)
			switch {
			case err != nil:
				failed.Add(1)
				t.logger.Warn("域名校验失败", zap.Int64("store_id", store.ID), zap.Error(err))
			case ok:
				verified.Add(1)
			}
		}(&stores[i])

		if t.sleepTime > 0 {
			time.Sleep(t.sleepTime)
		}
	}

	wg.Wait()
	stats = VerifyStats{Checked: checked.Load(), Verified: verified.Load(), Failed: failed.Load()}
	t.logger.Info("本轮域名校验完成",
		zap.Int64("checked", stats.Checked),
		zap.Int64("verified", stats.Verified),
		zap.Int64("failed", stats.Failed),
	)
	return stats
}
