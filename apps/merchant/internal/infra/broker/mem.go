package broker

import (
	"context"
	"sync"
)

// MemBroker 进程内广播，at-most-once，慢订阅者直接丢
type MemBroker struct {
	mu   sync.RWMutex
	subs map[string]map[chan Message]struct{}
}

var _ Broker = (*MemBroker)(nil)

func NewMemBroker() *MemBroker {
	return &MemBroker{subs: make(map[string]map[chan Message]struct{})}
}

func (b *MemBroker) Publish(_ context.Context, topic string, payload []byte) error {
	msg := Message{Topic: topic, Payload: payload}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (b *MemBroker) Subscribe(ctx context.Context, topics []string) (<-chan Message, error) {
	ch := make(chan Message, 1024)
	b.mu.Lock()
	for _, t := range topics {
		set := b.subs[t]
		if set == nil {
			set = make(map[chan Message]struct{})
			b.subs[t] = set
		}
		set[ch] = struct{}{}
	}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		// 先摘掉再 close，Publish 持读锁所以不会写到已关闭的 channel
		b.mu.Lock()
		for _, t := range topics {
			delete(b.subs[t], ch)
			if len(b.subs[t]) == 0 {
				delete(b.subs, t)
			}
		}
		b.mu.Unlock()
		close(ch)
	}()
	return ch, nil
}

func (b *MemBroker) Close() error { return nil }
