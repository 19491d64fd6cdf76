// Package broker 会话通知的发布订阅。单机用内存实现，多实例走 NATS。
package broker

import "context"

type Message struct {
	Topic   string
	Payload []byte
}

type Broker interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	// Subscribe ctx 结束时取消订阅并关闭返回的 channel
	Subscribe(ctx context.Context, topics []string) (<-chan Message, error)
	Close() error
}
