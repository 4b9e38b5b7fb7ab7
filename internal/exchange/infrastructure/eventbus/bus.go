// Package eventbus 提供撮合事件的进程内订阅与 Kafka 外发。
// 撮合 Worker 通过 domain.EventPublisher 接口发布事件，
// 本包负责把事件扇出给各订阅方，撮合路径上不做任何阻塞等待。
package eventbus

import (
	"context"
	"sync"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
	"github.com/wyfcoding/exchangecore/pkg/logger"
)

// Subscription 一个进程内订阅
type Subscription struct {
	id int
	ch chan domain.MatchingEvent
	b  *Bus
}

// Events 订阅事件通道
func (s *Subscription) Events() <-chan domain.MatchingEvent { return s.ch }

// Close 退订并关闭通道
func (s *Subscription) Close() {
	s.b.unsubscribe(s.id)
}

// Bus 进程内事件总线。
// 发布方永不阻塞：订阅方缓冲占满时丢弃最旧事件给新事件让位，
// 订阅方可以通过事件序号的跳变感知丢失并重新拉取快照。
type Bus struct {
	mu         sync.RWMutex
	nextID     int
	subs       map[int]*Subscription
	closed     bool
	defaultBuf int
}

// NewBus 创建事件总线，defaultBuffer 为订阅方未指定时的缓冲大小
func NewBus(defaultBuffer int) *Bus {
	if defaultBuffer <= 0 {
		defaultBuffer = 256
	}
	return &Bus{subs: make(map[int]*Subscription), defaultBuf: defaultBuffer}
}

// Subscribe 注册一个缓冲大小为 buffer 的订阅，buffer <= 0 时取总线默认值
func (b *Bus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = b.defaultBuf
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	sub := &Subscription{id: b.nextID, ch: make(chan domain.MatchingEvent, buffer), b: b}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}

// Publish 将事件扇出给所有订阅方，实现 domain.EventPublisher
func (b *Bus) Publish(ctx context.Context, event domain.MatchingEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- event:
		default:
			// 腾出最旧事件再投递
			select {
			case dropped := <-sub.ch:
				logger.Warn(ctx, "event bus subscriber lagging, oldest event dropped",
					"event_type", dropped.EventType(),
					"symbol", dropped.PairSymbol(),
				)
			default:
			}
			select {
			case sub.ch <- event:
			default:
				// 腾位后仍被并发发布方占满，本事件丢弃
				logger.Warn(ctx, "event bus subscriber stalled, event dropped",
					"event_type", event.EventType(),
					"symbol", event.PairSymbol(),
				)
			}
		}
	}
}

// Close 关闭总线并断开所有订阅
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
	}
}
