// Package chatfeed 把聊天栏通知通过 websocket 推给在线客户端。
package chatfeed

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"tradepost.com/apps/merchant/internal/infra/broker"
	"tradepost.com/pkg/logger"
)

type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Conn]struct{} // topic -> set(conn)
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*Conn]struct{}, 16)}
}

func (h *Hub) Subscribe(c *Conn, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		set := h.subs[t]
		if set == nil {
			set = make(map[*Conn]struct{}, 16)
			h.subs[t] = set
		}
		set[c] = struct{}{}
	}
}

func (h *Hub) Unsubscribe(c *Conn, topics []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		if set := h.subs[t]; set != nil {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, t)
			}
		}
	}
}

func (h *Hub) RemoveConn(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for topic, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, topic)
		}
	}
}

// Publish 广播给 topic 的订阅者，对每个连接都是非阻塞投递
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.subs[topic]))
	for c := range h.subs[topic] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.Offer(payload)
	}
}

// Run 订阅 broker 并转发到本地 hub，ctx 结束或 broker 关闭时返回
func (h *Hub) Run(ctx context.Context, b broker.Broker, topics []string) error {
	ch, err := b.Subscribe(ctx, topics)
	if err != nil {
		return err
	}
	logger.Info(ctx, "chat feed bridging broker", zap.Strings("topics", topics))
	h.Bridge(ctx, ch)
	return nil
}

// Bridge 把已订阅的消息流转发到 hub
func (h *Hub) Bridge(ctx context.Context, ch <-chan broker.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			h.Publish(m.Topic, m.Payload)
		}
	}
}
