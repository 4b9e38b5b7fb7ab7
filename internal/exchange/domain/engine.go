package domain

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/pkg/idgen"
	"github.com/wyfcoding/exchangecore/pkg/logger"
	"github.com/wyfcoding/exchangecore/pkg/metrics"
)

// 数量截断精度，资金上限换算数量时使用
const qtyPrecision = 8

type taskKind int

const (
	taskSubmit taskKind = iota + 1
	taskCancel
	taskSnapshot
	taskSweep
)

type task struct {
	kind          taskKind
	order         *Order
	cancelOrderID string
	cancelUserID  string
	depth         int
	now           time.Time
	result        chan taskResult
}

type taskResult struct {
	submit   *SubmitResult
	status   OrderStatus
	snapshot *BookSnapshot
	expired  int
	err      error
}

// SubmitResult 一次订单提交的撮合结果
type SubmitResult struct {
	// 订单处理完成后的快照
	Order *Order
	// 本次提交产生的成交（不含被级联触发的订单的成交）
	Trades []*Trade
}

// MatchingEngine 单交易对撮合引擎。
// 单写者模型：提交、取消、快照与清扫都作为任务进入同一串行队列，
// 由唯一的 Worker 按到达序处理，订单簿与触发单存储仅被该 Worker 访问。
// 由此保证价格-时间优先与未交叉簿不变量，无需在 OrderBook 内部加锁。
type MatchingEngine struct {
	pair      *TradingPair
	book      *OrderBook
	triggers  *TriggerStore
	ledger    *BalanceLedger
	lifecycle LifecycleManager
	events    EventPublisher

	orderSink OrderSink
	tradeSink TradeSink
	metrics   *metrics.Metrics

	tasks    chan *task
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	// offerMu 保护 stopped 与任务入队：Stop 取得写锁后不再有新任务入队
	offerMu sync.RWMutex
	stopped bool

	// 到达序号，Worker 出队时分配，序号顺序与处理顺序严格一致
	seq uint64
	// 事件序号，Worker 独占递增
	eventSeq uint64
	// 最新成交价，Worker 独占
	lastPrice decimal.Decimal
	// 本交易对所有未终态订单（挂单与未触发的触发单）
	live map[string]*Order

	halted atomic.Bool
	paused atomic.Bool

	log *slog.Logger
}

// NewMatchingEngine 创建撮合引擎，queueSize 为串行任务队列长度
func NewMatchingEngine(pair *TradingPair, ledger *BalanceLedger, events EventPublisher, queueSize int) *MatchingEngine {
	if queueSize <= 0 {
		queueSize = 4096
	}
	return &MatchingEngine{
		pair:     pair,
		book:     NewOrderBook(pair.Symbol),
		triggers: NewTriggerStore(pair.Symbol),
		ledger:   ledger,
		events:   events,
		tasks:    make(chan *task, queueSize),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		live:     make(map[string]*Order),
		log:      logger.Get().With("module", "matching_engine", "symbol", pair.Symbol),
	}
}

// SetOrderSink 设置订单快照接收器
func (e *MatchingEngine) SetOrderSink(sink OrderSink) { e.orderSink = sink }

// SetTradeSink 设置成交接收器
func (e *MatchingEngine) SetTradeSink(sink TradeSink) { e.tradeSink = sink }

// SetMetrics 设置指标采集
func (e *MatchingEngine) SetMetrics(m *metrics.Metrics) { e.metrics = m }

// Pair 返回交易对定义
func (e *MatchingEngine) Pair() *TradingPair { return e.pair }

// Halted 交易对是否已熔断
func (e *MatchingEngine) Halted() bool { return e.halted.Load() }

// Paused 交易对是否已暂停
func (e *MatchingEngine) Paused() bool { return e.paused.Load() }

// Pause 暂停接收新订单（已排队任务继续处理）
func (e *MatchingEngine) Pause() { e.paused.Store(true) }

// Resume 恢复接收新订单
func (e *MatchingEngine) Resume() { e.paused.Store(false) }

// Start 启动撮合 Worker
func (e *MatchingEngine) Start() {
	go e.run()
}

// Stop 停止 Worker 并等待退出，可安全重复调用
func (e *MatchingEngine) Stop() {
	e.stopOnce.Do(func() {
		e.offerMu.Lock()
		e.stopped = true
		e.offerMu.Unlock()
		close(e.stopCh)
	})
	<-e.done
}

func (e *MatchingEngine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.stopCh:
			// 排空队列，向等待方报告引擎已停止
			for {
				select {
				case t := <-e.tasks:
					t.result <- taskResult{err: ErrEngineStopped}
				default:
					return
				}
			}
		case t := <-e.tasks:
			e.handle(t)
		}
	}
}

// offer 非阻塞入队。读锁保证入队完成先于 Stop 置位，
// Worker 停止后排空队列时不会再有新任务滞留
func (e *MatchingEngine) offer(t *task) error {
	e.offerMu.RLock()
	defer e.offerMu.RUnlock()
	if e.stopped {
		return ErrEngineStopped
	}
	select {
	case e.tasks <- t:
		return nil
	default:
		return ErrEngineBusy
	}
}

// SubmitOrder 提交订单进入串行撮合队列，阻塞直至撮合完成。
// 返回错误且结果为空时表示订单未被 Worker 接手，冻结由调用方回滚。
func (e *MatchingEngine) SubmitOrder(o *Order) (*SubmitResult, error) {
	if e.halted.Load() {
		return nil, ErrPairHalted
	}
	if e.paused.Load() {
		return nil, ErrPairUnavailable
	}

	t := &task{kind: taskSubmit, order: o, result: make(chan taskResult, 1)}
	if err := e.offer(t); err != nil {
		return nil, err
	}
	res := <-t.result
	return res.submit, res.err
}

// CancelOrder 请求取消，与新订单进入同一串行队列，
// 保证取消不会插入到一次撮合的中间
func (e *MatchingEngine) CancelOrder(orderID, userID string) (OrderStatus, error) {
	if e.halted.Load() {
		return "", ErrPairHalted
	}
	t := &task{kind: taskCancel, cancelOrderID: orderID, cancelUserID: userID, result: make(chan taskResult, 1)}
	if err := e.offer(t); err != nil {
		return "", err
	}
	res := <-t.result
	return res.status, res.err
}

// Snapshot 获取订单簿前 depth 档快照
func (e *MatchingEngine) Snapshot(depth int) (*BookSnapshot, error) {
	if depth <= 0 {
		depth = 20
	}
	t := &task{kind: taskSnapshot, depth: depth, result: make(chan taskResult, 1)}
	if err := e.offer(t); err != nil {
		return nil, err
	}
	res := <-t.result
	return res.snapshot, res.err
}

// SweepExpired 清扫 DAY 单与已过 expires_at 的挂单，返回过期数量
func (e *MatchingEngine) SweepExpired(now time.Time) (int, error) {
	t := &task{kind: taskSweep, now: now, result: make(chan taskResult, 1)}
	if err := e.offer(t); err != nil {
		return 0, err
	}
	res := <-t.result
	return res.expired, res.err
}

func (e *MatchingEngine) handle(t *task) {
	switch t.kind {
	case taskSubmit:
		e.handleSubmit(t)
	case taskCancel:
		e.handleCancel(t)
	case taskSnapshot:
		bids, asks := e.book.Snapshot(t.depth)
		t.result <- taskResult{snapshot: &BookSnapshot{
			Symbol:    e.pair.Symbol,
			Bids:      bids,
			Asks:      asks,
			LastPrice: e.lastPrice,
			Sequence:  e.eventSeq,
			Timestamp: time.Now(),
		}}
	case taskSweep:
		t.result <- taskResult{expired: e.handleSweep(t.now)}
	}
}

// ---- 提交 ----

func (e *MatchingEngine) handleSubmit(t *task) {
	start := time.Now()
	o := t.order
	// 出队时分配到达序号，同价位的成交顺序即序号顺序
	o.SequenceID = e.nextSeq()

	if e.halted.Load() {
		// 入队后发生熔断
		_ = e.lifecycle.Transition(o, OrderStatusRejected)
		e.releaseRemaining(o)
		t.result <- taskResult{submit: &SubmitResult{Order: o.Clone()}, err: ErrPairHalted}
		return
	}

	if e.metrics != nil {
		e.metrics.OrdersTotal.Inc()
	}

	var trades []*Trade
	var err error
	if o.Type.IsTrigger() {
		e.parkTrigger(o)
	} else {
		trades, err = e.match(o)
	}

	e.saveOrder(o)

	// 成交可能触发止损/止盈级联
	if len(trades) > 0 {
		e.runTriggers()
	}

	e.checkInvariants()

	if e.metrics != nil {
		e.metrics.MatchDuration.Observe(time.Since(start).Seconds())
	}

	t.result <- taskResult{submit: &SubmitResult{Order: o.Clone(), Trades: trades}, err: err}
}

// parkTrigger 将触发型订单归档到 TriggerStore，等待成交价穿越触发价
func (e *MatchingEngine) parkTrigger(o *Order) {
	old := o.Status
	_ = e.lifecycle.Transition(o, OrderStatusOpen)
	e.triggers.Add(o)
	e.addLive(o)
	e.publishStatus(o, old, decimal.Zero)
}

// match 对一个非触发型订单执行撮合与 TIF 残余处理
func (e *MatchingEngine) match(o *Order) ([]*Trade, error) {
	isMarket := o.Type == OrderTypeMarket

	if o.TimeInForce == TimeInForceFOK && !e.fokFeasible(o) {
		e.rejectOrder(o)
		return nil, ErrFOKInfeasible
	}

	var trades []*Trade

	level, ok := e.book.bestOpposing(o.Side)
matching:
	for ok && o.RemainingQuantity().IsPositive() {
		if !isMarket && !e.priceAcceptable(o, level.Price) {
			break
		}

		for elem := level.orders.Front(); elem != nil && o.RemainingQuantity().IsPositive(); {
			next := elem.Next()
			maker := elem.Value.(*Order)

			// 自成交防护：跳过同账户挂单，推进到下一条
			if maker.UserID == o.UserID {
				elem = next
				continue
			}

			qty := decimal.Min(o.RemainingQuantity(), maker.RemainingQuantity())
			if isMarket && o.Side == OrderSideBuy {
				if afford := e.affordableQty(o, level.Price); afford.LessThan(qty) {
					qty = afford
				}
				if !qty.IsPositive() {
					// 资金上限耗尽，残余按 TIF 处理
					break matching
				}
			}

			trades = append(trades, e.executeTrade(o, maker, level.Price, qty))
			elem = next
		}

		if o.RemainingQuantity().IsZero() {
			break
		}
		if level.Len() == 0 {
			// 档位已清空删除，重新取最优档
			level, ok = e.book.bestOpposing(o.Side)
		} else {
			// 档内仅剩同账户挂单，跳到下一档
			level, ok = e.book.nextOpposing(o.Side, level.Price)
		}
	}

	e.finishTaker(o, isMarket)
	return trades, nil
}

func (e *MatchingEngine) priceAcceptable(o *Order, levelPrice decimal.Decimal) bool {
	if o.Side == OrderSideBuy {
		return levelPrice.LessThanOrEqual(o.Price)
	}
	return levelPrice.GreaterThanOrEqual(o.Price)
}

// affordableQty 市价买单在当前档位价格下冻结资金还能兑付的数量
func (e *MatchingEngine) affordableQty(o *Order, price decimal.Decimal) decimal.Decimal {
	unit := price.Mul(decimal.NewFromInt(1).Add(e.pair.TakerFeeRate))
	if !unit.IsPositive() {
		return decimal.Zero
	}
	return o.Reserved.DivRound(unit, qtyPrecision+2).Truncate(qtyPrecision)
}

// fokFeasible 在任何撮合发生前确认对手方能吃下全部数量（FOK 原子性）
func (e *MatchingEngine) fokFeasible(o *Order) bool {
	isMarket := o.Type == OrderTypeMarket
	need := o.Quantity
	budget := o.Reserved
	feeFactor := decimal.NewFromInt(1).Add(e.pair.TakerFeeRate)

	accum := decimal.Zero
	it := e.book.sideLevels(o.Side.Opposite()).Iterator()
	for {
		price, level, ok := it.Next()
		if !ok {
			return false
		}
		if !isMarket && !e.priceAcceptable(o, price) {
			return false
		}
		for elem := level.orders.Front(); elem != nil; elem = elem.Next() {
			maker := elem.Value.(*Order)
			if maker.UserID == o.UserID {
				continue
			}
			avail := maker.RemainingQuantity()
			if isMarket && o.Side == OrderSideBuy {
				// 资金预算限制市价买单的可成交量
				affordable := budget.DivRound(price.Mul(feeFactor), qtyPrecision+2).Truncate(qtyPrecision)
				if affordable.LessThan(avail) {
					avail = affordable
				}
				if !avail.IsPositive() {
					return false
				}
				budget = budget.Sub(avail.Mul(price).Mul(feeFactor))
			}
			accum = accum.Add(avail)
			if accum.GreaterThanOrEqual(need) {
				return true
			}
		}
	}
}

// executeTrade 以 maker 价成交 qty，完成双边结算、生命周期推进与事件发布
func (e *MatchingEngine) executeTrade(taker, maker *Order, price, qty decimal.Decimal) *Trade {
	cost := price.Mul(qty)

	var buy, sell *Order
	var buyRate, sellRate decimal.Decimal
	if taker.Side == OrderSideBuy {
		buy, sell = taker, maker
		buyRate, sellRate = e.pair.TakerFeeRate, e.pair.MakerFeeRate
	} else {
		buy, sell = maker, taker
		buyRate, sellRate = e.pair.MakerFeeRate, e.pair.TakerFeeRate
	}

	// 买方手续费以计价货币收取，卖方以基础货币收取
	buyFee := cost.Mul(buyRate)
	sellFee := qty.Mul(sellRate)

	// 结算：双边从冻结扣减已兑付部分，对价入账可用余额，手续费归集
	e.consumeReserved(buy, e.pair.QuoteCurrency, cost.Add(buyFee))
	e.consumeReserved(sell, e.pair.BaseCurrency, qty.Add(sellFee))
	e.mustCredit(buy.UserID, e.pair.BaseCurrency, qty)
	e.mustCredit(sell.UserID, e.pair.QuoteCurrency, cost)
	e.mustCredit(e.ledger.FeeAccount(), e.pair.QuoteCurrency, buyFee)
	e.mustCredit(e.ledger.FeeAccount(), e.pair.BaseCurrency, sellFee)

	oldTaker, oldMaker := taker.Status, maker.Status
	if err := e.lifecycle.ApplyFill(taker, qty); err != nil {
		e.haltPair("lifecycle violation on taker", "order_id", taker.OrderID, "error", err)
	}
	if err := e.lifecycle.ApplyFill(maker, qty); err != nil {
		e.haltPair("lifecycle violation on maker", "order_id", maker.OrderID, "error", err)
	}

	levelTotal := e.book.onMakerFill(maker, qty)
	if maker.Status == OrderStatusFilled {
		e.releaseRemaining(maker)
		e.removeLive(maker.OrderID)
	}

	e.lastPrice = price

	makerFee, makerFeeCcy := sellFee, e.pair.BaseCurrency
	takerFee, takerFeeCcy := buyFee, e.pair.QuoteCurrency
	if taker.Side == OrderSideSell {
		makerFee, makerFeeCcy = buyFee, e.pair.QuoteCurrency
		takerFee, takerFeeCcy = sellFee, e.pair.BaseCurrency
	}

	trade := &Trade{
		TradeID:          idgen.GenIDString(),
		Symbol:           e.pair.Symbol,
		MakerOrderID:     maker.OrderID,
		TakerOrderID:     taker.OrderID,
		MakerUserID:      maker.UserID,
		TakerUserID:      taker.UserID,
		Price:            price,
		Quantity:         qty,
		MakerFee:         makerFee,
		MakerFeeCurrency: makerFeeCcy,
		TakerFee:         takerFee,
		TakerFeeCurrency: takerFeeCcy,
		Timestamp:        time.Now(),
	}

	if e.tradeSink != nil {
		e.tradeSink.SaveTrade(trade)
	}
	e.saveOrder(maker)

	e.publishTrade(trade)
	e.publishDelta(maker.Side, price, levelTotal)
	e.publishStatus(maker, oldMaker, qty)
	e.publishStatus(taker, oldTaker, qty)

	if e.metrics != nil {
		e.metrics.TradesTotal.Inc()
	}
	return trade
}

// finishTaker 撮合循环结束后的 TIF 残余处理
func (e *MatchingEngine) finishTaker(o *Order, isMarket bool) {
	if o.RemainingQuantity().IsZero() {
		// ApplyFill 已置 FILLED
		e.releaseRemaining(o)
		return
	}

	old := o.Status
	switch {
	case isMarket:
		// 市价单残余不挂簿：无成交且从未被接受的直接拒绝，其余取消
		if o.FilledQuantity.IsZero() && o.Status == OrderStatusPending {
			e.rejectOrder(o)
			return
		}
		_ = e.lifecycle.Transition(o, OrderStatusCancelled)
		e.releaseRemaining(o)
		e.publishStatus(o, old, decimal.Zero)
	case o.TimeInForce == TimeInForceIOC:
		// IOC 残余不挂簿
		_ = e.lifecycle.Transition(o, OrderStatusCancelled)
		e.releaseRemaining(o)
		e.publishStatus(o, old, decimal.Zero)
	case e.wouldCross(o):
		// 撮合后仍与对手侧最优价交叉，说明对手侧只剩同账户挂单。
		// 残余若挂入会形成交叉簿，按自成交防护取消。
		_ = e.lifecycle.Transition(o, OrderStatusCancelled)
		e.releaseRemaining(o)
		e.publishStatus(o, old, decimal.Zero)
	default:
		// GTC / DAY 挂入订单簿
		if o.Status == OrderStatusPending {
			_ = e.lifecycle.Transition(o, OrderStatusOpen)
		}
		levelTotal := e.book.Insert(o)
		e.addLive(o)
		if o.Status != old {
			e.publishStatus(o, old, decimal.Zero)
		}
		e.publishDelta(o.Side, o.Price, levelTotal)
	}
}

// wouldCross 判断订单以当前限价挂入是否会与对手侧最优价交叉
func (e *MatchingEngine) wouldCross(o *Order) bool {
	if o.Side == OrderSideBuy {
		ask, ok := e.book.BestAsk()
		return ok && o.Price.GreaterThanOrEqual(ask)
	}
	bid, ok := e.book.BestBid()
	return ok && o.Price.LessThanOrEqual(bid)
}

func (e *MatchingEngine) rejectOrder(o *Order) {
	old := o.Status
	_ = e.lifecycle.Transition(o, OrderStatusRejected)
	e.releaseRemaining(o)
	e.publishStatus(o, old, decimal.Zero)
	if e.metrics != nil {
		e.metrics.OrdersRejectedTotal.Inc()
	}
}

// runTriggers 级联处理被最新成交价触发的止损/止盈单，
// 在同一 Worker 循环内按触发顺序逐一作为新到订单撮合
func (e *MatchingEngine) runTriggers() {
	for {
		fired := e.triggers.Triggered(e.lastPrice)
		if len(fired) == 0 {
			return
		}
		for _, o := range fired {
			e.removeLive(o.OrderID)
			switch o.Type {
			case OrderTypeStopLimit:
				o.Type = OrderTypeLimit
			default:
				// 止损/止盈转为市价单
				o.Type = OrderTypeMarket
				o.Price = decimal.Zero
			}
			o.SequenceID = e.nextSeq()
			e.log.Info("trigger order activated",
				"order_id", o.OrderID,
				"type", o.Type,
				"stop_price", o.StopPrice,
				"last_price", e.lastPrice,
			)
			_, _ = e.match(o)
			e.saveOrder(o)
		}
	}
}

// ---- 取消与清扫 ----

func (e *MatchingEngine) handleCancel(t *task) {
	if e.halted.Load() {
		// 熔断后不再触碰账本，撤单一并拒绝
		t.result <- taskResult{err: ErrPairHalted}
		return
	}
	o, ok := e.live[t.cancelOrderID]
	if !ok || (t.cancelUserID != "" && o.UserID != t.cancelUserID) {
		t.result <- taskResult{err: ErrOrderNotFound}
		return
	}

	e.terminate(o, OrderStatusCancelled)

	if e.metrics != nil {
		e.metrics.CancelsTotal.Inc()
	}
	e.checkInvariants()
	t.result <- taskResult{status: o.Status}
}

func (e *MatchingEngine) handleSweep(now time.Time) int {
	if e.halted.Load() {
		return 0
	}
	var expired []*Order
	for _, o := range e.live {
		if e.shouldExpire(o, now) {
			expired = append(expired, o)
		}
	}
	for _, o := range expired {
		e.terminate(o, OrderStatusExpired)
		if e.metrics != nil {
			e.metrics.ExpiredTotal.Inc()
		}
	}
	if len(expired) > 0 {
		e.log.Info("expiry sweep completed", "expired", len(expired))
	}
	return len(expired)
}

func (e *MatchingEngine) shouldExpire(o *Order, now time.Time) bool {
	if !o.ExpiresAt.IsZero() && !now.Before(o.ExpiresAt) {
		return true
	}
	if o.TimeInForce == TimeInForceDAY {
		created := o.CreatedAt.UTC()
		dayEnd := time.Date(created.Year(), created.Month(), created.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
		return !now.UTC().Before(dayEnd)
	}
	return false
}

// terminate 将存活订单移出簿/触发存储并置为终态，释放剩余冻结
func (e *MatchingEngine) terminate(o *Order, status OrderStatus) {
	old := o.Status
	if _, levelTotal, inBook := e.book.Cancel(o.OrderID); inBook {
		e.publishDelta(o.Side, o.Price, levelTotal)
	} else {
		e.triggers.Cancel(o.OrderID)
	}
	_ = e.lifecycle.Transition(o, status)
	e.releaseRemaining(o)
	e.removeLive(o.OrderID)
	e.publishStatus(o, old, decimal.Zero)
	e.saveOrder(o)
}

// ---- 资金与不变量 ----

func (e *MatchingEngine) consumeReserved(o *Order, currency string, amount decimal.Decimal) {
	if err := e.ledger.ConsumeLocked(o.UserID, currency, amount); err != nil {
		e.haltPair("settlement exceeded reservation", "order_id", o.OrderID, "error", err)
		return
	}
	o.Reserved = o.Reserved.Sub(amount)
	if o.Reserved.IsNegative() {
		e.haltPair("reservation accounting negative", "order_id", o.OrderID, "reserved", o.Reserved)
	}
}

func (e *MatchingEngine) mustCredit(userID, currency string, amount decimal.Decimal) {
	if err := e.ledger.Credit(userID, currency, amount); err != nil {
		e.haltPair("credit failed", "user_id", userID, "error", err)
	}
}

// releaseRemaining 终态时释放订单剩余的冻结资金
func (e *MatchingEngine) releaseRemaining(o *Order) {
	if !o.Reserved.IsPositive() {
		o.Reserved = decimal.Zero
		return
	}
	if err := e.ledger.Release(o.UserID, o.ReserveCurrency, o.Reserved); err != nil {
		e.haltPair("release exceeded locked balance", "order_id", o.OrderID, "error", err)
		return
	}
	o.Reserved = decimal.Zero
}

// checkInvariants 每次任务处理完成后校验撮合不变量，
// 被破坏即熔断本交易对（继续撮合可能进一步污染结算）
func (e *MatchingEngine) checkInvariants() {
	if e.book.crossed() {
		bid, _ := e.book.BestBid()
		ask, _ := e.book.BestAsk()
		e.haltPair("order book crossed after matching", "best_bid", bid, "best_ask", ask)
	}
}

func (e *MatchingEngine) haltPair(reason string, args ...any) {
	if e.halted.CompareAndSwap(false, true) {
		if e.metrics != nil {
			e.metrics.PairsHalted.Inc()
		}
		args = append(args, "symbol", e.pair.Symbol)
		e.log.Error("FATAL: matching halted: "+reason, args...)
	}
}

// ---- 事件与副本 ----

func (e *MatchingEngine) nextSeq() uint64 {
	e.seq++
	return e.seq
}

func (e *MatchingEngine) nextEventSeq() uint64 {
	e.eventSeq++
	return e.eventSeq
}

func (e *MatchingEngine) base() BaseEvent {
	return BaseEvent{Symbol: e.pair.Symbol, Sequence: e.nextEventSeq(), Timestamp: time.Now()}
}

func (e *MatchingEngine) publish(ev MatchingEvent) {
	if e.events == nil {
		return
	}
	e.events.Publish(context.Background(), ev)
	if e.metrics != nil {
		e.metrics.EventsPublishedTotal.Inc()
	}
}

func (e *MatchingEngine) publishDelta(side OrderSide, price, quantity decimal.Decimal) {
	e.publish(OrderBookDeltaEvent{BaseEvent: e.base(), Side: side, Price: price, Quantity: quantity})
}

func (e *MatchingEngine) publishTrade(t *Trade) {
	e.publish(TradeExecutedEvent{
		BaseEvent:    e.base(),
		TradeID:      t.TradeID,
		MakerOrderID: t.MakerOrderID,
		TakerOrderID: t.TakerOrderID,
		Price:        t.Price,
		Quantity:     t.Quantity,
	})
}

func (e *MatchingEngine) publishStatus(o *Order, old OrderStatus, filledDelta decimal.Decimal) {
	if o.Status == old && filledDelta.IsZero() {
		return
	}
	e.publish(OrderStatusChangedEvent{
		BaseEvent:      e.base(),
		OrderID:        o.OrderID,
		OldStatus:      old,
		NewStatus:      o.Status,
		FilledDelta:    filledDelta,
		FilledQuantity: o.FilledQuantity,
	})
}

func (e *MatchingEngine) saveOrder(o *Order) {
	if e.orderSink != nil {
		e.orderSink.SaveOrder(o.Clone())
	}
}

func (e *MatchingEngine) addLive(o *Order) {
	e.live[o.OrderID] = o
	if e.metrics != nil {
		e.metrics.OrdersActive.Inc()
	}
}

func (e *MatchingEngine) removeLive(orderID string) {
	if _, ok := e.live[orderID]; ok {
		delete(e.live, orderID)
		if e.metrics != nil {
			e.metrics.OrdersActive.Dec()
		}
	}
}
