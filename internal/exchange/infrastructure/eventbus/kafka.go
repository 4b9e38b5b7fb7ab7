package eventbus

import (
	"context"
	"strings"
	"sync"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
	"github.com/wyfcoding/exchangecore/pkg/logger"
	"github.com/wyfcoding/exchangecore/pkg/mq"
)

// KafkaPublisher 将撮合事件异步外发到 Kafka。
// 撮合 Worker 只把事件投入缓冲通道，网络写入由独立转发协程完成，
// 通道占满时丢弃并告警，撮合延迟不受 Kafka 抖动影响。
type KafkaPublisher struct {
	producer    *mq.KafkaProducer
	topicPrefix string
	buf         chan domain.MatchingEvent
	stopOnce    sync.Once
	stopCh      chan struct{}
	done        chan struct{}
}

// NewKafkaPublisher 创建 Kafka 事件发布器并启动转发协程
func NewKafkaPublisher(producer *mq.KafkaProducer, topicPrefix string, buffer int) *KafkaPublisher {
	if buffer <= 0 {
		buffer = 4096
	}
	p := &KafkaPublisher{
		producer:    producer,
		topicPrefix: topicPrefix,
		buf:         make(chan domain.MatchingEvent, buffer),
		stopCh:      make(chan struct{}),
		done:        make(chan struct{}),
	}
	go p.forward()
	return p
}

// Publish 实现 domain.EventPublisher，非阻塞入队
func (p *KafkaPublisher) Publish(ctx context.Context, event domain.MatchingEvent) {
	select {
	case p.buf <- event:
	default:
		logger.Warn(ctx, "kafka event buffer full, event dropped",
			"event_type", event.EventType(),
			"symbol", event.PairSymbol(),
		)
	}
}

func (p *KafkaPublisher) forward() {
	defer close(p.done)
	ctx := context.Background()
	for {
		select {
		case <-p.stopCh:
			// 排空剩余事件后退出
			for {
				select {
				case ev := <-p.buf:
					p.send(ctx, ev)
				default:
					return
				}
			}
		case ev := <-p.buf:
			p.send(ctx, ev)
		}
	}
}

func (p *KafkaPublisher) send(ctx context.Context, ev domain.MatchingEvent) {
	topic := p.topicPrefix + "." + topicSuffix(ev.EventType())
	if err := p.producer.SendMessage(ctx, topic, ev.PairSymbol(), ev); err != nil {
		logger.Error(ctx, "failed to publish matching event",
			"topic", topic,
			"event_type", ev.EventType(),
			"error", err,
		)
	}
}

// topicSuffix 事件类型转 topic 后缀，如 OrderBookDelta -> orderbook-delta
func topicSuffix(eventType string) string {
	var b strings.Builder
	for i, r := range eventType {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Close 停止转发协程并等待缓冲排空
func (p *KafkaPublisher) Close() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	<-p.done
}
