package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MatchingEvent 撮合核心对外发布的领域事件。
// 每个交易对的事件携带单调递增的 Sequence，投递语义为 at-least-once，
// 订阅方据 Sequence 与业务 ID 去重。
type MatchingEvent interface {
	EventType() string
	PairSymbol() string
	OccurredAt() time.Time
}

// BaseEvent 基础事件结构
type BaseEvent struct {
	// 交易对符号
	Symbol string `json:"symbol"`
	// 交易对内单调递增的事件序号
	Sequence uint64 `json:"sequence"`
	// 事件发生时间
	Timestamp time.Time `json:"timestamp"`
}

// PairSymbol 返回事件所属交易对
func (e BaseEvent) PairSymbol() string { return e.Symbol }

// OccurredAt 返回事件发生时间
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// OrderBookDeltaEvent 订单簿档位变更（新增/数量变化/删除）
type OrderBookDeltaEvent struct {
	BaseEvent
	// 档位方向
	Side OrderSide `json:"side"`
	// 档位价格
	Price decimal.Decimal `json:"price"`
	// 档位最新总量，零表示档位被删除
	Quantity decimal.Decimal `json:"quantity"`
}

// EventType 返回事件类型
func (e OrderBookDeltaEvent) EventType() string { return "OrderBookDelta" }

// TradeExecutedEvent 成交事件
type TradeExecutedEvent struct {
	BaseEvent
	// 成交 ID
	TradeID string `json:"trade_id"`
	// Maker 订单 ID
	MakerOrderID string `json:"maker_order_id"`
	// Taker 订单 ID
	TakerOrderID string `json:"taker_order_id"`
	// 成交价
	Price decimal.Decimal `json:"price"`
	// 成交数量
	Quantity decimal.Decimal `json:"quantity"`
}

// EventType 返回事件类型
func (e TradeExecutedEvent) EventType() string { return "TradeExecuted" }

// OrderStatusChangedEvent 订单状态变更事件
type OrderStatusChangedEvent struct {
	BaseEvent
	// 订单 ID
	OrderID string `json:"order_id"`
	// 变更前状态
	OldStatus OrderStatus `json:"old_status"`
	// 变更后状态
	NewStatus OrderStatus `json:"new_status"`
	// 本次新增的成交数量
	FilledDelta decimal.Decimal `json:"filled_delta"`
	// 累计成交数量
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
}

// EventType 返回事件类型
func (e OrderStatusChangedEvent) EventType() string { return "OrderStatusChanged" }

// EventPublisher 事件发布接口，由事件总线与 Kafka 适配器实现
type EventPublisher interface {
	Publish(ctx context.Context, event MatchingEvent)
}

// MultiPublisher 将事件扇出到多个发布器
type MultiPublisher []EventPublisher

// Publish 依次发布到每个下游
func (p MultiPublisher) Publish(ctx context.Context, event MatchingEvent) {
	for _, pub := range p {
		pub.Publish(ctx, event)
	}
}

// OrderSink 接收订单最新快照，供查询侧保存副本
type OrderSink interface {
	SaveOrder(order *Order)
}

// TradeSink 接收新生成的成交记录
type TradeSink interface {
	SaveTrade(trade *Trade)
}
