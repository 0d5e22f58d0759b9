package task

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一启动和停止后台任务
type TaskManager struct {
	verifyTask *DomainVerifyTask
	logger     *zap.Logger
}

// TaskManagerConfig 任务配置
type TaskManagerConfig struct {
	DomainVerifyEnabled     bool
	DomainVerifySpec        string
	DomainVerifyConcurrency int
	DomainVerifyBatchSize   int
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		DomainVerifyEnabled:     true,
		DomainVerifySpec:        DefaultDomainVerifySpec,
		DomainVerifyConcurrency: 10,
		DomainVerifyBatchSize:   200,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(verifier StoreVerifier, cfg *TaskManagerConfig, logger *zap.Logger) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{logger: logger}
	if cfg.DomainVerifyEnabled && verifier != nil {
		tm.verifyTask = NewDomainVerifyTask(verifier, logger)
		tm.verifyTask.SetSchedule(cfg.DomainVerifySpec)
		tm.verifyTask.SetConcurrency(cfg.DomainVerifyConcurrency, cfg.DomainVerifyBatchSize, 20*time.Millisecond)
	}
	return tm
}

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	if tm.verifyTask != nil {
		if err := tm.verifyTask.Start(); err != nil {
			return err
		}
	}
	tm.logger.Info("后台任务已启动")
	return nil
}

// Stop 停止调度并等待运行中的任务结束
func (tm *TaskManager) Stop(ctx context.Context) {
	if tm.verifyTask == nil {
		return
	}

	select {
	case <-tm.verifyTask.Stop().Done():
		tm.logger.Info("后台任务已停止")
	case <-ctx.Done():
		tm.logger.Warn("等待后台任务结束超时")
	}
}
