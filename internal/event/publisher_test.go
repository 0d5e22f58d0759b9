package event

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSilentBroker 接受连接但从不响应
func newSilentBroker(t *testing.T) string {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()

	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestKafkaPublisher_Timeout(t *testing.T) {
	p := NewKafkaPublisher([]string{newSilentBroker(t)}, "store-events")
	p.SetTimeout(200 * time.Millisecond)

	start := time.Now()
	err := p.Publish(context.Background(), StoreEvent{Type: TypeStoreCreated, StoreID: 1, ResellerID: 1, OccurredAt: time.Now()})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 3*time.Second)
}

func TestKafkaPublisher_SetTimeout(t *testing.T) {
	p := NewKafkaPublisher([]string{"127.0.0.1:9092"}, "store-events")
	assert.Equal(t, DefaultPublishTimeout, p.timeout)

	p.SetTimeout(0)
	assert.Equal(t, DefaultPublishTimeout, p.timeout)

	p.SetTimeout(time.Second)
	assert.Equal(t, time.Second, p.timeout)
}

func TestMemoryPublisher(t *testing.T) {
	m := &MemoryPublisher{}
	require.NoError(t, m.Publish(context.Background(), StoreEvent{Type: TypeStoreCreated}))
	require.NoError(t, m.Publish(context.Background(), StoreEvent{Type: TypeDomainVerified}))

	events := m.Events()
	require.Len(t, events, 2)
	assert.Equal(t, TypeDomainVerified, events[1].Type)

	events[0].Type = "mutated"
	assert.Equal(t, TypeStoreCreated, m.Events()[0].Type)
}
