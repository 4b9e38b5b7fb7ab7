package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LifecycleManager 独占管理订单状态机。
// PENDING -> OPEN -> {PARTIALLY_FILLED <-> OPEN 等价} -> FILLED | CANCELLED | EXPIRED | REJECTED
// 终态后禁止任何成交数量或状态变更。
type LifecycleManager struct{}

var validTransitions = map[OrderStatus]map[OrderStatus]bool{
	OrderStatusPending: {
		OrderStatusOpen:            true,
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusRejected:        true,
	},
	OrderStatusOpen: {
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusExpired:         true,
	},
	OrderStatusPartiallyFilled: {
		OrderStatusPartiallyFilled: true,
		OrderStatusFilled:          true,
		OrderStatusCancelled:       true,
		OrderStatusExpired:         true,
	},
}

// Transition 执行一次状态迁移，非法迁移返回错误
func (LifecycleManager) Transition(o *Order, to OrderStatus) error {
	if o.Status == to {
		return nil
	}
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrAlreadyTerminal, o.OrderID, o.Status)
	}
	if !validTransitions[o.Status][to] {
		return fmt.Errorf("invalid order transition %s -> %s for %s", o.Status, to, o.OrderID)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

// ApplyFill 累加成交数量并推导状态（FILLED 或 PARTIALLY_FILLED）
func (m LifecycleManager) ApplyFill(o *Order, qty decimal.Decimal) error {
	if o.Status.IsTerminal() {
		return fmt.Errorf("%w: fill on terminal order %s", ErrAlreadyTerminal, o.OrderID)
	}
	if !qty.IsPositive() {
		return fmt.Errorf("fill quantity must be positive, got %s", qty)
	}
	if qty.GreaterThan(o.RemainingQuantity()) {
		return fmt.Errorf("fill %s exceeds remaining %s on %s", qty, o.RemainingQuantity(), o.OrderID)
	}

	o.FilledQuantity = o.FilledQuantity.Add(qty)
	if o.IsFilled() {
		return m.Transition(o, OrderStatusFilled)
	}
	return m.Transition(o, OrderStatusPartiallyFilled)
}
