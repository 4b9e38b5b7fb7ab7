package domain

import (
	"container/list"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/pkg/algos"
)

// TriggerStore 保存尚未触发的止损/止盈/止损限价单。
// 触发前订单不进入订单簿，对快照不可见。
// 与 OrderBook 一样由交易对的撮合 Worker 独占访问。
//
// 触发方向：
//   - 价格上穿触发（成交价 >= 触发价）：买入止损、卖出止盈、买入止损限价
//   - 价格下穿触发（成交价 <= 触发价）：卖出止损、买入止盈、卖出止损限价
type TriggerStore struct {
	symbol string

	// 上穿组：按触发价升序，最先触发的是最低触发价
	above *algos.SkipList[decimal.Decimal, *list.List]
	// 下穿组：按触发价降序，最先触发的是最高触发价
	below *algos.SkipList[decimal.Decimal, *list.List]

	index map[string]*triggerEntry
}

type triggerEntry struct {
	order *Order
	elem  *list.Element
	// 所属组
	arm *algos.SkipList[decimal.Decimal, *list.List]
}

// NewTriggerStore 创建空触发单存储
func NewTriggerStore(symbol string) *TriggerStore {
	return &TriggerStore{
		symbol: symbol,
		above: algos.NewSkipList[decimal.Decimal, *list.List](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
		below: algos.NewSkipList[decimal.Decimal, *list.List](func(a, b decimal.Decimal) bool {
			return a.GreaterThan(b)
		}),
		index: make(map[string]*triggerEntry),
	}
}

// Len 未触发订单数
func (t *TriggerStore) Len() int { return len(t.index) }

// Contains 订单是否在存储中
func (t *TriggerStore) Contains(orderID string) bool {
	_, ok := t.index[orderID]
	return ok
}

func (t *TriggerStore) armFor(o *Order) *algos.SkipList[decimal.Decimal, *list.List] {
	// 买入止盈在价格回落时触发，其余买单触发方向与卖单相反
	switch o.Type {
	case OrderTypeTakeProfit:
		if o.Side == OrderSideBuy {
			return t.below
		}
		return t.above
	default: // STOP_LOSS / STOP_LIMIT
		if o.Side == OrderSideBuy {
			return t.above
		}
		return t.below
	}
}

// Add 按触发价归档一个触发型订单
func (t *TriggerStore) Add(o *Order) {
	arm := t.armFor(o)
	queue, ok := arm.Search(o.StopPrice)
	if !ok {
		queue = list.New()
		arm.Insert(o.StopPrice, queue)
	}
	elem := queue.PushBack(o)
	t.index[o.OrderID] = &triggerEntry{order: o, elem: elem, arm: arm}
}

// Cancel 移除一个未触发订单
func (t *TriggerStore) Cancel(orderID string) (*Order, bool) {
	entry, ok := t.index[orderID]
	if !ok {
		return nil, false
	}
	stop := entry.order.StopPrice
	if queue, ok := entry.arm.Search(stop); ok {
		queue.Remove(entry.elem)
		if queue.Len() == 0 {
			entry.arm.Delete(stop)
		}
	}
	delete(t.index, orderID)
	return entry.order, true
}

// Triggered 弹出所有被最新成交价触发的订单，
// 按触发价先后、同价按到达顺序返回
func (t *TriggerStore) Triggered(lastPrice decimal.Decimal) []*Order {
	var fired []*Order

	pop := func(arm *algos.SkipList[decimal.Decimal, *list.List], hit func(stop decimal.Decimal) bool) {
		for {
			stop, queue, ok := arm.Min()
			if !ok || !hit(stop) {
				return
			}
			for e := queue.Front(); e != nil; e = e.Next() {
				o := e.Value.(*Order)
				fired = append(fired, o)
				delete(t.index, o.OrderID)
			}
			arm.Delete(stop)
		}
	}

	pop(t.above, func(stop decimal.Decimal) bool { return lastPrice.GreaterThanOrEqual(stop) })
	pop(t.below, func(stop decimal.Decimal) bool { return lastPrice.LessThanOrEqual(stop) })

	return fired
}
