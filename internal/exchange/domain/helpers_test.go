package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/exchangecore/pkg/idgen"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func testPair() *TradingPair {
	return &TradingPair{
		Symbol:        "BTC-USDT",
		BaseCurrency:  "BTC",
		QuoteCurrency: "USDT",
		TickSize:      d(0.01),
		MinOrderSize:  d(0.0001),
		MakerFeeRate:  d(0.001),
		TakerFeeRate:  d(0.002),
	}
}

// recordingSink 捕获引擎推送的订单快照与成交
type recordingSink struct {
	orders map[string]*Order
	trades []*Trade
}

func newRecordingSink() *recordingSink {
	return &recordingSink{orders: make(map[string]*Order)}
}

func (s *recordingSink) SaveOrder(o *Order) { s.orders[o.OrderID] = o }
func (s *recordingSink) SaveTrade(t *Trade) { s.trades = append(s.trades, t) }

type engineFixture struct {
	t      *testing.T
	pair   *TradingPair
	ledger *BalanceLedger
	eng    *MatchingEngine
	sink   *recordingSink
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	pair := testPair()
	ledger := NewBalanceLedger("")
	eng := NewMatchingEngine(pair, ledger, nil, 256)
	sink := newRecordingSink()
	eng.SetOrderSink(sink)
	eng.SetTradeSink(sink)
	eng.Start()
	t.Cleanup(eng.Stop)
	return &engineFixture{t: t, pair: pair, ledger: ledger, eng: eng, sink: sink}
}

func (f *engineFixture) deposit(user, currency string, amount float64) {
	f.t.Helper()
	require.NoError(f.t, f.ledger.Deposit(user, currency, d(amount)))
}

func (f *engineFixture) newOrder(user string, side OrderSide, typ OrderType, tif TimeInForce, price, stopPrice, qty float64) *Order {
	return NewOrder(idgen.GenIDString(), user, f.pair.Symbol, side, typ, tif, d(price), d(stopPrice), d(qty))
}

// reserveFor 按下单规则冻结资金并写入订单
func (f *engineFixture) reserveFor(o *Order) {
	f.t.Helper()
	feeFactor := decimal.NewFromInt(1).Add(f.pair.TakerFeeRate)
	if o.Side == OrderSideSell {
		o.ReserveCurrency = f.pair.BaseCurrency
		o.Reserved = o.Quantity.Mul(feeFactor)
	} else {
		o.ReserveCurrency = f.pair.QuoteCurrency
		ref := o.Price
		switch o.Type {
		case OrderTypeStopLoss, OrderTypeTakeProfit:
			ref = o.StopPrice
		case OrderTypeMarket:
			snap, err := f.eng.Snapshot(1)
			require.NoError(f.t, err)
			require.NotEmpty(f.t, snap.Asks, "market buy needs a priced ask")
			ref = snap.Asks[0].Price
		}
		o.Reserved = ref.Mul(o.Quantity).Mul(feeFactor)
	}
	require.NoError(f.t, f.ledger.Reserve(o.UserID, o.ReserveCurrency, o.Reserved))
}

func (f *engineFixture) submit(o *Order) (*SubmitResult, error) {
	f.t.Helper()
	f.reserveFor(o)
	return f.eng.SubmitOrder(o)
}

func (f *engineFixture) mustSubmit(o *Order) *SubmitResult {
	f.t.Helper()
	res, err := f.submit(o)
	require.NoError(f.t, err)
	require.NotNil(f.t, res)
	return res
}

func (f *engineFixture) limit(user string, side OrderSide, price, qty float64, tif TimeInForce) *SubmitResult {
	f.t.Helper()
	return f.mustSubmit(f.newOrder(user, side, OrderTypeLimit, tif, price, 0, qty))
}

func (f *engineFixture) market(user string, side OrderSide, qty float64) *SubmitResult {
	f.t.Helper()
	return f.mustSubmit(f.newOrder(user, side, OrderTypeMarket, TimeInForceIOC, 0, 0, qty))
}
