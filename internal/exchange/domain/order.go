package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusOpen            OrderStatus = "OPEN"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal 是否为终态，终态后成交数量不再变化
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusExpired, OrderStatusRejected:
		return true
	}
	return false
}

// OrderSide 买卖方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Opposite 返回对手方向
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderType 订单类型
type OrderType string

const (
	OrderTypeLimit      OrderType = "LIMIT"
	OrderTypeMarket     OrderType = "MARKET"
	OrderTypeStopLoss   OrderType = "STOP_LOSS"
	OrderTypeTakeProfit OrderType = "TAKE_PROFIT"
	OrderTypeStopLimit  OrderType = "STOP_LIMIT"
)

// IsTrigger 是否为触发型订单（在触发前不进入订单簿）
func (t OrderType) IsTrigger() bool {
	switch t {
	case OrderTypeStopLoss, OrderTypeTakeProfit, OrderTypeStopLimit:
		return true
	}
	return false
}

// TimeInForce 订单有效期策略
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC" // Good Till Cancel
	TimeInForceIOC TimeInForce = "IOC" // Immediate Or Cancel
	TimeInForceFOK TimeInForce = "FOK" // Fill Or Kill
	TimeInForceDAY TimeInForce = "DAY" // 当日有效，日切清扫
)

// Order 订单实体。撮合引擎持有唯一的可写副本，外部只拿到拷贝。
type Order struct {
	// 订单 ID
	OrderID string `json:"order_id"`
	// 用户 ID
	UserID string `json:"user_id"`
	// 交易对符号
	Symbol string `json:"symbol"`
	// 买卖方向
	Side OrderSide `json:"side"`
	// 订单类型
	Type OrderType `json:"type"`
	// 有效期策略
	TimeInForce TimeInForce `json:"time_in_force"`
	// 限价（市价单为零值）
	Price decimal.Decimal `json:"price"`
	// 触发价（仅触发型订单）
	StopPrice decimal.Decimal `json:"stop_price"`
	// 原始数量
	Quantity decimal.Decimal `json:"quantity"`
	// 已成交数量，不变量：0 <= FilledQuantity <= Quantity
	FilledQuantity decimal.Decimal `json:"filled_quantity"`
	// 订单状态，状态迁移由 LifecycleManager 独占管理
	Status OrderStatus `json:"status"`
	// 交易对内的到达序号，撮合严格按此序处理
	SequenceID uint64 `json:"sequence_id"`
	// 剩余冻结资金（含费率余量），终态时释放
	Reserved decimal.Decimal `json:"reserved"`
	// 冻结资金的货币（买单为计价货币，卖单为基础货币）
	ReserveCurrency string `json:"reserve_currency"`
	// 过期时间，零值表示不过期，仅 GTC 支持
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	// 创建时间
	CreatedAt time.Time `json:"created_at"`
	// 更新时间
	UpdatedAt time.Time `json:"updated_at"`
}

// NewOrder 创建 PENDING 状态的订单
func NewOrder(orderID, userID, symbol string, side OrderSide, typ OrderType, tif TimeInForce, price, stopPrice, qty decimal.Decimal) *Order {
	now := time.Now()
	return &Order{
		OrderID:        orderID,
		UserID:         userID,
		Symbol:         symbol,
		Side:           side,
		Type:           typ,
		TimeInForce:    tif,
		Price:          price,
		StopPrice:      stopPrice,
		Quantity:       qty,
		FilledQuantity: decimal.Zero,
		Status:         OrderStatusPending,
		Reserved:       decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// RemainingQuantity 剩余未成交数量
func (o *Order) RemainingQuantity() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// IsFilled 是否已完全成交
func (o *Order) IsFilled() bool {
	return o.FilledQuantity.GreaterThanOrEqual(o.Quantity)
}

// Clone 返回订单的拷贝，供引擎外部持有
func (o *Order) Clone() *Order {
	c := *o
	return &c
}
