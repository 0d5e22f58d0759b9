package event

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// 店铺事件类型
const (
	TypeStoreCreated   = "store.created"
	TypeStoreUpdated   = "store.updated"
	TypeStoreStatus    = "store.status_changed"
	TypeDomainVerified = "domain.verified"
)

// StoreEvent 店铺变更事件
type StoreEvent struct {
	Type         string    `json:"type"`
	StoreID      int64     `json:"storeId"`
	ResellerID   int64     `json:"resellerId"`
	Subdomain    string    `json:"subdomain"`
	CustomDomain string    `json:"customDomain,omitempty"`
	Status       string    `json:"status,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Publisher 事件发布接口
type Publisher interface {
	Publish(ctx context.Context, event StoreEvent) error
	Close() error
}

// ==================== Kafka ====================

// KafkaPublisher 以分销商 ID 作为消息 Key，保证同一店铺事件有序
// 单次发布受 timeout 限制
type KafkaPublisher struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// DefaultPublishTimeout 单次发布超时
const DefaultPublishTimeout = 5 * time.Second

// NewKafkaPublisher 创建 Kafka 发布器
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
		},
		timeout: DefaultPublishTimeout,
	}
}

// SetTimeout 修改单次发布超时
func (k *KafkaPublisher) SetTimeout(d time.Duration) {
	if d > 0 {
		k.timeout = d
	}
}

func (k *KafkaPublisher) Publish(ctx context.Context, event StoreEvent) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ResellerID, 10)),
		Value: msg,
		Time:  event.OccurredAt,
	})
}

func (k *KafkaPublisher) Close() error {
	return k.writer.Close()
}

// ==================== 空实现 / 内存实现 ====================

// NopPublisher 未配置 Kafka 时使用
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, StoreEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }

// MemoryPublisher 记录已发布事件，测试使用
type MemoryPublisher struct {
	mu     sync.Mutex
	events []StoreEvent
}

func (m *MemoryPublisher) Publish(_ context.Context, event StoreEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events 已发布事件快照
func (m *MemoryPublisher) Events() []StoreEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]StoreEvent, len(m.events))
	copy(out, m.events)
	return out
}
