package domain

import (
	"container/list"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/pkg/algos"
)

// PriceLevel 同一价格档位下的订单队列，保证时间优先（FIFO）。
// 档位在队列清空时即被删除，订单簿中不存在空档位。
type PriceLevel struct {
	// 档位价格
	Price decimal.Decimal
	// 挂单队列，元素为 *Order，按到达顺序排列
	orders *list.List
	// 档位剩余数量合计
	total decimal.Decimal
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
		total:  decimal.Zero,
	}
}

// Total 档位剩余数量合计
func (l *PriceLevel) Total() decimal.Decimal { return l.total }

// Len 档位中的订单数
func (l *PriceLevel) Len() int { return l.orders.Len() }

type bookEntry struct {
	order *Order
	level *PriceLevel
	elem  *list.Element
}

// BookLevel 快照中的单个档位
type BookLevel struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// BookSnapshot 订单簿快照
type BookSnapshot struct {
	Symbol    string          `json:"symbol"`
	Bids      []BookLevel     `json:"bids"`
	Asks      []BookLevel     `json:"asks"`
	LastPrice decimal.Decimal `json:"last_price"`
	Sequence  uint64          `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderBook 单一交易对的内存订单簿。
// 无锁：由所属交易对的撮合 Worker 独占访问（单写者模型）。
type OrderBook struct {
	symbol string

	// 买盘按价格降序，Min 即最高买价
	bids *algos.SkipList[decimal.Decimal, *PriceLevel]
	// 卖盘按价格升序，Min 即最低卖价
	asks *algos.SkipList[decimal.Decimal, *PriceLevel]

	// orderID -> 位置索引，取消时 O(log 档位数) 定位
	index map[string]*bookEntry
}

// NewOrderBook 创建空订单簿
func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol: symbol,
		bids: algos.NewSkipList[decimal.Decimal, *PriceLevel](func(a, b decimal.Decimal) bool {
			return a.GreaterThan(b)
		}),
		asks: algos.NewSkipList[decimal.Decimal, *PriceLevel](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
		index: make(map[string]*bookEntry),
	}
}

func (b *OrderBook) sideLevels(side OrderSide) *algos.SkipList[decimal.Decimal, *PriceLevel] {
	if side == OrderSideBuy {
		return b.bids
	}
	return b.asks
}

// Len 订单簿中的挂单总数
func (b *OrderBook) Len() int { return len(b.index) }

// Contains 订单是否在簿中
func (b *OrderBook) Contains(orderID string) bool {
	_, ok := b.index[orderID]
	return ok
}

// BestBid 最高买价
func (b *OrderBook) BestBid() (decimal.Decimal, bool) {
	price, _, ok := b.bids.Min()
	return price, ok
}

// BestAsk 最低卖价
func (b *OrderBook) BestAsk() (decimal.Decimal, bool) {
	price, _, ok := b.asks.Min()
	return price, ok
}

// Insert 将订单追加到对应价格档位的队尾，返回档位最新总量
func (b *OrderBook) Insert(o *Order) decimal.Decimal {
	levels := b.sideLevels(o.Side)
	level, ok := levels.Search(o.Price)
	if !ok {
		level = newPriceLevel(o.Price)
		levels.Insert(o.Price, level)
	}
	elem := level.orders.PushBack(o)
	level.total = level.total.Add(o.RemainingQuantity())
	b.index[o.OrderID] = &bookEntry{order: o, level: level, elem: elem}
	return level.total
}

// Cancel 将订单移出订单簿，返回订单与档位最新总量
func (b *OrderBook) Cancel(orderID string) (*Order, decimal.Decimal, bool) {
	entry, ok := b.index[orderID]
	if !ok {
		return nil, decimal.Zero, false
	}
	level := entry.level
	level.orders.Remove(entry.elem)
	level.total = level.total.Sub(entry.order.RemainingQuantity())
	delete(b.index, orderID)
	if level.orders.Len() == 0 {
		level.total = decimal.Zero
		b.sideLevels(entry.order.Side).Delete(level.Price)
	}
	return entry.order, level.total, true
}

// onMakerFill 在 maker 成交 qty 之后修正档位合计；
// maker 完全成交时出队，档位清空时删除档位。返回档位最新总量。
func (b *OrderBook) onMakerFill(maker *Order, qty decimal.Decimal) decimal.Decimal {
	entry, ok := b.index[maker.OrderID]
	if !ok {
		return decimal.Zero
	}
	level := entry.level
	level.total = level.total.Sub(qty)
	if maker.RemainingQuantity().IsZero() {
		level.orders.Remove(entry.elem)
		delete(b.index, maker.OrderID)
	}
	if level.orders.Len() == 0 {
		level.total = decimal.Zero
		b.sideLevels(maker.Side).Delete(level.Price)
	}
	return level.total
}

// bestOpposing 返回 taker 的最优对手档位
func (b *OrderBook) bestOpposing(takerSide OrderSide) (*PriceLevel, bool) {
	_, level, ok := b.sideLevels(takerSide.Opposite()).Min()
	return level, ok
}

// nextOpposing 返回对手方向上严格劣于 after 的下一档位，
// 用于跳过整档同账户挂单后继续推进
func (b *OrderBook) nextOpposing(takerSide OrderSide, after decimal.Decimal) (*PriceLevel, bool) {
	it := b.sideLevels(takerSide.Opposite()).Seek(after)
	for {
		price, level, ok := it.Next()
		if !ok {
			return nil, false
		}
		if !price.Equal(after) {
			return level, true
		}
	}
}

// Snapshot 返回买卖双边前 depth 档
func (b *OrderBook) Snapshot(depth int) ([]BookLevel, []BookLevel) {
	collect := func(levels *algos.SkipList[decimal.Decimal, *PriceLevel]) []BookLevel {
		out := make([]BookLevel, 0, depth)
		it := levels.Iterator()
		for len(out) < depth {
			price, level, ok := it.Next()
			if !ok {
				break
			}
			out = append(out, BookLevel{Price: price, Quantity: level.total})
		}
		return out
	}
	return collect(b.bids), collect(b.asks)
}

// crossed 检查撮合后不变量：最高买价必须低于最低卖价
func (b *OrderBook) crossed() bool {
	bid, okBid := b.BestBid()
	ask, okAsk := b.BestAsk()
	return okBid && okAsk && bid.GreaterThanOrEqual(ask)
}
