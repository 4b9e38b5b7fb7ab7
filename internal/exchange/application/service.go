// Package application 编排撮合引擎、资金账本与存储，是接口层的唯一入口。
package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
	"github.com/wyfcoding/exchangecore/internal/exchange/infrastructure/persistence/memory"
	"github.com/wyfcoding/exchangecore/pkg/idgen"
	"github.com/wyfcoding/exchangecore/pkg/logger"
	"github.com/wyfcoding/exchangecore/pkg/metrics"
)

// ExchangeService 交易核心应用服务。
// 下单流程：参数校验、资金冻结、进入交易对串行撮合队列、返回同步结果。
// 资金冻结发生在入队之前，订单未被撮合 Worker 接手时由本层回滚。
type ExchangeService struct {
	mu      sync.RWMutex
	engines map[string]*domain.MatchingEngine

	ledger    *domain.BalanceLedger
	orders    *memory.OrderStore
	trades    *memory.TradeStore
	events    domain.EventPublisher
	metrics   *metrics.Metrics
	queueSize int
}

// NewExchangeService 创建应用服务
func NewExchangeService(
	ledger *domain.BalanceLedger,
	orders *memory.OrderStore,
	trades *memory.TradeStore,
	events domain.EventPublisher,
	m *metrics.Metrics,
	queueSize int,
) *ExchangeService {
	return &ExchangeService{
		engines:   make(map[string]*domain.MatchingEngine),
		ledger:    ledger,
		orders:    orders,
		trades:    trades,
		events:    events,
		metrics:   m,
		queueSize: queueSize,
	}
}

// RegisterPair 注册交易对并启动其撮合 Worker
func (s *ExchangeService) RegisterPair(pair *domain.TradingPair) error {
	if err := pair.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.engines[pair.Symbol]; ok {
		return fmt.Errorf("pair %s already registered", pair.Symbol)
	}
	eng := domain.NewMatchingEngine(pair, s.ledger, s.events, s.queueSize)
	eng.SetOrderSink(s.orders)
	eng.SetTradeSink(s.trades)
	eng.SetMetrics(s.metrics)
	eng.Start()
	s.engines[pair.Symbol] = eng
	logger.Info(context.Background(), "trading pair registered", "symbol", pair.Symbol)
	return nil
}

// Stop 停止所有撮合 Worker
func (s *ExchangeService) Stop() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, eng := range s.engines {
		eng.Stop()
	}
}

func (s *ExchangeService) engine(symbol string) (*domain.MatchingEngine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	eng, ok := s.engines[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPairNotFound, symbol)
	}
	return eng, nil
}

// Engines 返回全部引擎，供清扫调度使用
func (s *ExchangeService) Engines() []*domain.MatchingEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	engines := make([]*domain.MatchingEngine, 0, len(s.engines))
	for _, eng := range s.engines {
		engines = append(engines, eng)
	}
	return engines
}

// PlaceOrder 下单。返回的错误与结果可以同时非空，
// 如 FOK 不可全量成交时结果携带 REJECTED 终态订单。
func (s *ExchangeService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResult, error) {
	o, eng, err := s.buildOrder(req)
	if err != nil {
		return nil, err
	}
	pair := eng.Pair()

	reserveCcy, reserveAmt, err := s.reservation(eng, pair, o)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Reserve(o.UserID, reserveCcy, reserveAmt); err != nil {
		return nil, err
	}
	o.Reserved = reserveAmt
	o.ReserveCurrency = reserveCcy

	res, err := eng.SubmitOrder(o)
	if res == nil {
		// 订单未被 Worker 接手，回滚冻结
		if rel := s.ledger.Release(o.UserID, reserveCcy, reserveAmt); rel != nil {
			logger.Error(ctx, "failed to roll back reservation",
				"order_id", o.OrderID, "error", rel)
		}
		return nil, err
	}

	logger.Info(ctx, "order processed",
		"order_id", res.Order.OrderID,
		"symbol", res.Order.Symbol,
		"status", res.Order.Status,
		"filled", res.Order.FilledQuantity,
		"trades", len(res.Trades),
	)
	return &PlaceOrderResult{Order: res.Order, Trades: res.Trades}, err
}

func (s *ExchangeService) buildOrder(req *PlaceOrderRequest) (*domain.Order, *domain.MatchingEngine, error) {
	side, err := parseSide(req.Side)
	if err != nil {
		return nil, nil, err
	}
	typ, err := parseType(req.Type)
	if err != nil {
		return nil, nil, err
	}
	tif, err := parseTIF(req.TimeInForce)
	if err != nil {
		return nil, nil, err
	}
	qty, err := parseDecimal("quantity", req.Quantity, true)
	if err != nil {
		return nil, nil, err
	}
	needsPrice := typ == domain.OrderTypeLimit || typ == domain.OrderTypeStopLimit
	price, err := parseDecimal("price", req.Price, needsPrice)
	if err != nil {
		return nil, nil, err
	}
	stopPrice, err := parseDecimal("stop_price", req.StopPrice, typ.IsTrigger())
	if err != nil {
		return nil, nil, err
	}
	expiresAt, err := parseExpiresAt(req.ExpiresAt)
	if err != nil {
		return nil, nil, err
	}

	eng, err := s.engine(req.Symbol)
	if err != nil {
		return nil, nil, err
	}
	pair := eng.Pair()

	if err := pair.CheckQuantity(qty); err != nil {
		return nil, nil, err
	}
	if needsPrice {
		if err := pair.CheckPrice(price); err != nil {
			return nil, nil, err
		}
	} else if !price.IsZero() {
		return nil, nil, fmt.Errorf("%w: %s order must not carry a price", domain.ErrInvalidOrderParameters, typ)
	}
	if typ.IsTrigger() {
		if err := pair.CheckPrice(stopPrice); err != nil {
			return nil, nil, fmt.Errorf("invalid stop price: %w", err)
		}
	} else if !stopPrice.IsZero() {
		return nil, nil, fmt.Errorf("%w: %s order must not carry a stop price", domain.ErrInvalidOrderParameters, typ)
	}
	if !expiresAt.IsZero() {
		if tif != domain.TimeInForceGTC {
			return nil, nil, fmt.Errorf("%w: expires_at is only valid for GTC orders", domain.ErrInvalidOrderParameters)
		}
		if !expiresAt.After(time.Now()) {
			return nil, nil, fmt.Errorf("%w: expires_at must be in the future", domain.ErrInvalidOrderParameters)
		}
	}
	if typ == domain.OrderTypeMarket && tif == domain.TimeInForceDAY {
		return nil, nil, fmt.Errorf("%w: market orders do not support DAY", domain.ErrInvalidOrderParameters)
	}

	o := domain.NewOrder(idgen.GenIDString(), req.UserID, req.Symbol, side, typ, tif, price, stopPrice, qty)
	o.ExpiresAt = expiresAt
	return o, eng, nil
}

// reservation 计算下单需要冻结的货币与金额。
// 买单冻结计价货币并包含 Taker 费率余量，卖单冻结基础货币加费率余量。
// 市价买单以当前最优卖价估算，成交时由资金上限裁剪实际数量。
func (s *ExchangeService) reservation(
	eng *domain.MatchingEngine,
	pair *domain.TradingPair,
	o *domain.Order,
) (string, decimal.Decimal, error) {
	feeFactor := decimal.NewFromInt(1).Add(pair.TakerFeeRate)

	if o.Side == domain.OrderSideSell {
		return pair.BaseCurrency, o.Quantity.Mul(feeFactor), nil
	}

	var ref decimal.Decimal
	switch o.Type {
	case domain.OrderTypeLimit, domain.OrderTypeStopLimit:
		ref = o.Price
	case domain.OrderTypeStopLoss, domain.OrderTypeTakeProfit:
		ref = o.StopPrice
	case domain.OrderTypeMarket:
		snap, err := eng.Snapshot(1)
		if err != nil {
			return "", decimal.Zero, err
		}
		if len(snap.Asks) == 0 {
			return "", decimal.Zero, fmt.Errorf("%w: no asks to price a market buy", domain.ErrInvalidOrderParameters)
		}
		ref = snap.Asks[0].Price
	}
	return pair.QuoteCurrency, ref.Mul(o.Quantity).Mul(feeFactor), nil
}

// CancelOrder 取消订单。订单已处于终态时幂等返回当前状态。
func (s *ExchangeService) CancelOrder(ctx context.Context, symbol, orderID, userID string) (*domain.Order, error) {
	eng, err := s.engine(symbol)
	if err != nil {
		return nil, err
	}

	_, err = eng.CancelOrder(orderID, userID)
	if err != nil && errors.Is(err, domain.ErrOrderNotFound) {
		// 引擎不认识的订单可能已经终态，从存储侧幂等解析
		o, ok := s.orders.Get(orderID)
		if ok && (userID == "" || o.UserID == userID) && o.Status.IsTerminal() {
			return o, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	o, ok := s.orders.Get(orderID)
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	logger.Info(ctx, "order cancelled", "order_id", orderID, "symbol", symbol, "status", o.Status)
	return o, nil
}

// GetOrder 查询订单
func (s *ExchangeService) GetOrder(orderID, userID string) (*domain.Order, error) {
	o, ok := s.orders.Get(orderID)
	if !ok || (userID != "" && o.UserID != userID) {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ListOrders 查询用户订单
func (s *ExchangeService) ListOrders(userID string, openOnly bool) []*domain.Order {
	return s.orders.ListByUser(userID, openOnly)
}

// OrderBook 获取订单簿快照
func (s *ExchangeService) OrderBook(symbol string, depth int) (*domain.BookSnapshot, error) {
	eng, err := s.engine(symbol)
	if err != nil {
		return nil, err
	}
	return eng.Snapshot(depth)
}

// RecentTrades 获取最近成交
func (s *ExchangeService) RecentTrades(symbol string, limit int) ([]*domain.Trade, error) {
	if _, err := s.engine(symbol); err != nil {
		return nil, err
	}
	return s.trades.Recent(symbol, limit), nil
}

// Deposit 入金
func (s *ExchangeService) Deposit(ctx context.Context, req *DepositRequest) (domain.Balance, error) {
	amount, err := parseDecimal("amount", req.Amount, true)
	if err != nil {
		return domain.Balance{}, err
	}
	if !amount.IsPositive() {
		return domain.Balance{}, fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidOrderParameters)
	}
	if err := s.ledger.Deposit(req.UserID, req.Currency, amount); err != nil {
		return domain.Balance{}, err
	}
	logger.Info(ctx, "deposit credited", "user_id", req.UserID, "currency", req.Currency, "amount", amount)
	return s.ledger.Balance(req.UserID, req.Currency), nil
}

// Balances 查询用户全部余额
func (s *ExchangeService) Balances(userID string) []domain.Balance {
	return s.ledger.Balances(userID)
}

// PausePair 暂停交易对
func (s *ExchangeService) PausePair(symbol string) error {
	eng, err := s.engine(symbol)
	if err != nil {
		return err
	}
	eng.Pause()
	logger.Warn(context.Background(), "trading pair paused", "symbol", symbol)
	return nil
}

// ResumePair 恢复交易对
func (s *ExchangeService) ResumePair(symbol string) error {
	eng, err := s.engine(symbol)
	if err != nil {
		return err
	}
	if eng.Halted() {
		return fmt.Errorf("%w: %s is halted", domain.ErrPairUnavailable, symbol)
	}
	eng.Resume()
	logger.Info(context.Background(), "trading pair resumed", "symbol", symbol)
	return nil
}

// ListPairs 列出全部交易对及状态
func (s *ExchangeService) ListPairs() []PairStatus {
	engines := s.Engines()
	result := make([]PairStatus, 0, len(engines))
	for _, eng := range engines {
		p := eng.Pair()
		status := "TRADING"
		switch {
		case eng.Halted():
			status = "HALTED"
		case eng.Paused():
			status = "PAUSED"
		}
		result = append(result, PairStatus{
			Symbol:        p.Symbol,
			BaseCurrency:  p.BaseCurrency,
			QuoteCurrency: p.QuoteCurrency,
			TickSize:      p.TickSize.String(),
			MinOrderSize:  p.MinOrderSize.String(),
			MakerFeeRate:  p.MakerFeeRate.String(),
			TakerFeeRate:  p.TakerFeeRate.String(),
			Status:        status,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result
}
