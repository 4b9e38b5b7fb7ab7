package domain

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/exchangecore/pkg/metrics"
)

func assertEq(t *testing.T, expected float64, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.True(t, actual.Equal(d(expected)), "expected %s, got %s %v", d(expected), actual, msgAndArgs)
}

func TestLimitRestsThenPartialMarketFill(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)
	f.deposit("bob", "BTC", 20)

	// 买单挂簿
	res := f.limit("alice", OrderSideBuy, 100, 10, TimeInForceGTC)
	require.Equal(t, OrderStatusOpen, res.Order.Status)
	require.Empty(t, res.Trades)
	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assertEq(t, 100, snap.Bids[0].Price)
	assertEq(t, 10, snap.Bids[0].Quantity)

	// 限价卖单部分吃掉买单
	res = f.limit("bob", OrderSideSell, 100, 4, TimeInForceGTC)
	require.Equal(t, OrderStatusFilled, res.Order.Status)
	require.Len(t, res.Trades, 1)
	assertEq(t, 100, res.Trades[0].Price)
	assertEq(t, 4, res.Trades[0].Quantity)

	// 市价卖 10，仅剩 6 可成交，残余 4 不挂簿
	res = f.market("bob", OrderSideSell, 10)
	require.Equal(t, OrderStatusCancelled, res.Order.Status)
	assertEq(t, 6, res.Order.FilledQuantity)
	require.Len(t, res.Trades, 1)
	assertEq(t, 6, res.Trades[0].Quantity)

	// 簿已清空
	snap, err = f.eng.Snapshot(5)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
	assert.Empty(t, snap.Asks)

	// 资金核对：alice 成交 10 BTC，maker 费率 0.001
	assertEq(t, 10, f.ledger.Balance("alice", "BTC").Available)
	assertEq(t, 999, f.ledger.Balance("alice", "USDT").Available)
	assertEq(t, 0, f.ledger.Balance("alice", "USDT").Locked)
	// bob 卖出 10 BTC，taker 费率 0.002
	assertEq(t, 1000, f.ledger.Balance("bob", "USDT").Available)
	assertEq(t, 9.98, f.ledger.Balance("bob", "BTC").Available)
	assertEq(t, 0, f.ledger.Balance("bob", "BTC").Locked)
	// 手续费归集
	assertEq(t, 1, f.ledger.Balance(f.ledger.FeeAccount(), "USDT").Available)
	assertEq(t, 0.02, f.ledger.Balance(f.ledger.FeeAccount(), "BTC").Available)
	// 货币守恒
	assertEq(t, 2000, f.ledger.TotalSupply("USDT"))
	assertEq(t, 20, f.ledger.TotalSupply("BTC"))

	assert.False(t, f.eng.Halted())
}

func TestFOKRejectedWhenInfeasible(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 600)
	f.deposit("bob", "BTC", 20)

	f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)

	// 卖价 105 高于唯一买价 100，FOK 不可全量成交
	res, err := f.submit(f.newOrder("bob", OrderSideSell, OrderTypeLimit, TimeInForceFOK, 105, 0, 5))
	require.ErrorIs(t, err, ErrFOKInfeasible)
	require.NotNil(t, res)
	assert.Equal(t, OrderStatusRejected, res.Order.Status)
	assert.Empty(t, res.Trades)

	// 零副作用：冻结解除，簿保持原状
	assertEq(t, 20, f.ledger.Balance("bob", "BTC").Available)
	assertEq(t, 0, f.ledger.Balance("bob", "BTC").Locked)
	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assertEq(t, 5, snap.Bids[0].Quantity)
}

func TestFOKFillsAtomicallyWhenFeasible(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 600)
	f.deposit("bob", "BTC", 20)

	f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)

	res, err := f.submit(f.newOrder("bob", OrderSideSell, OrderTypeLimit, TimeInForceFOK, 100, 0, 5))
	require.NoError(t, err)
	require.Equal(t, OrderStatusFilled, res.Order.Status)
	assertEq(t, 5, res.Order.FilledQuantity)
}

func TestPriceTimePriority(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("carol", "BTC", 10)
	f.deposit("dave", "BTC", 10)
	f.deposit("erin", "BTC", 10)
	f.deposit("frank", "USDT", 1000)

	carol := f.limit("carol", OrderSideSell, 100, 3, TimeInForceGTC)
	dave := f.limit("dave", OrderSideSell, 100, 3, TimeInForceGTC)
	erin := f.limit("erin", OrderSideSell, 99, 2, TimeInForceGTC)

	res := f.market("frank", OrderSideBuy, 4)
	require.Equal(t, OrderStatusFilled, res.Order.Status)
	require.Len(t, res.Trades, 2)

	// 先吃更优价 99，再按时间序吃 100 档中先到的 carol
	assertEq(t, 99, res.Trades[0].Price)
	assert.Equal(t, erin.Order.OrderID, res.Trades[0].MakerOrderID)
	assertEq(t, 100, res.Trades[1].Price)
	assert.Equal(t, carol.Order.OrderID, res.Trades[1].MakerOrderID)

	// dave 的挂单未被触碰
	assertEq(t, 0, f.sink.orders[dave.Order.OrderID].FilledQuantity)
	assertEq(t, 2, f.sink.orders[carol.Order.OrderID].FilledQuantity)
}

func TestIOCNeverRests(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 1000)

	res, err := f.submit(f.newOrder("alice", OrderSideBuy, OrderTypeLimit, TimeInForceIOC, 100, 0, 5))
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, res.Order.Status)
	assert.Empty(t, res.Trades)

	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	assert.Empty(t, snap.Bids)
	assertEq(t, 1000, f.ledger.Balance("alice", "USDT").Available)
	assertEq(t, 0, f.ledger.Balance("alice", "USDT").Locked)
}

func TestMarketSellWithoutLiquidityRejected(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "BTC", 5)

	res := f.market("alice", OrderSideSell, 2)
	assert.Equal(t, OrderStatusRejected, res.Order.Status)
	assertEq(t, 5, f.ledger.Balance("alice", "BTC").Available)
	assertEq(t, 0, f.ledger.Balance("alice", "BTC").Locked)
}

func TestMarketBuySpendCap(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("carol", "BTC", 10)
	f.deposit("erin", "BTC", 10)
	f.deposit("dave", "USDT", 600)

	f.limit("carol", OrderSideSell, 100, 1, TimeInForceGTC)
	f.limit("erin", OrderSideSell, 200, 4, TimeInForceGTC)

	// 冻结按最优卖价 100 估算，价格上移后资金上限裁剪成交量
	res := f.market("dave", OrderSideBuy, 5)
	require.Equal(t, OrderStatusCancelled, res.Order.Status)
	assertEq(t, 3, res.Order.FilledQuantity)
	require.Len(t, res.Trades, 2)
	assertEq(t, 1, res.Trades[0].Quantity)
	assertEq(t, 2, res.Trades[1].Quantity)

	assertEq(t, 3, f.ledger.Balance("dave", "BTC").Available)
	// 501 冻结被全部兑付：100.2 + 400.8
	assertEq(t, 99, f.ledger.Balance("dave", "USDT").Available)
	assertEq(t, 0, f.ledger.Balance("dave", "USDT").Locked)
}

func TestSelfTradePrevention(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 600)
	f.deposit("alice", "BTC", 10)
	f.deposit("bob", "USDT", 400)

	aliceBid := f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)
	f.limit("bob", OrderSideBuy, 100, 3, TimeInForceGTC)

	// 自己的买单被跳过，只与 bob 成交；残余挂入会与自身买单交叉，取消
	res := f.limit("alice", OrderSideSell, 100, 5, TimeInForceGTC)
	require.Equal(t, OrderStatusCancelled, res.Order.Status)
	assertEq(t, 3, res.Order.FilledQuantity)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, "bob", res.Trades[0].MakerUserID)

	// alice 自己的买单原封不动
	assert.Equal(t, OrderStatusOpen, f.sink.orders[aliceBid.Order.OrderID].Status)
	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assertEq(t, 5, snap.Bids[0].Quantity)
	assert.False(t, f.eng.Halted())
}

func TestCancelRestingOrder(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)

	res := f.limit("alice", OrderSideBuy, 100, 10, TimeInForceGTC)
	orderID := res.Order.OrderID

	status, err := f.eng.CancelOrder(orderID, "alice")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, status)
	assertEq(t, 2000, f.ledger.Balance("alice", "USDT").Available)
	assertEq(t, 0, f.ledger.Balance("alice", "USDT").Locked)

	// 再次取消：引擎已不认识该订单
	_, err = f.eng.CancelOrder(orderID, "alice")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelWrongOwner(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)

	res := f.limit("alice", OrderSideBuy, 100, 10, TimeInForceGTC)

	_, err := f.eng.CancelOrder(res.Order.OrderID, "mallory")
	assert.ErrorIs(t, err, ErrOrderNotFound)

	// 订单仍然在簿
	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
}

func TestCancelPartiallyFilledReleasesRemainder(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)
	f.deposit("bob", "BTC", 10)

	res := f.limit("alice", OrderSideBuy, 100, 10, TimeInForceGTC)
	f.limit("bob", OrderSideSell, 100, 4, TimeInForceGTC)

	status, err := f.eng.CancelOrder(res.Order.OrderID, "alice")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCancelled, status)

	// 已兑付 400.4（含 maker 费），其余全部解冻
	assertEq(t, 0, f.ledger.Balance("alice", "USDT").Locked)
	assertEq(t, 1599.6, f.ledger.Balance("alice", "USDT").Available)
	assertEq(t, 4, f.ledger.Balance("alice", "BTC").Available)
}

func TestStopLossSellTriggersOnPriceDrop(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("bob", "USDT", 2000)
	f.deposit("alice", "BTC", 10)
	f.deposit("carol", "BTC", 5)

	f.limit("bob", OrderSideBuy, 100, 1, TimeInForceGTC)
	f.limit("bob", OrderSideBuy, 95, 5, TimeInForceGTC)

	// 止损卖单停放，不参与撮合
	stop := f.mustSubmit(f.newOrder("alice", OrderSideSell, OrderTypeStopLoss, TimeInForceGTC, 0, 95, 2))
	require.Equal(t, OrderStatusOpen, stop.Order.Status)
	require.Empty(t, stop.Trades)
	assert.True(t, f.eng.triggers.Contains(stop.Order.OrderID))

	// 成交价 100，未穿越触发价
	f.market("carol", OrderSideSell, 1)
	assert.True(t, f.eng.triggers.Contains(stop.Order.OrderID))

	// 成交价跌到 95，触发转市价卖出
	f.market("carol", OrderSideSell, 1)
	assert.False(t, f.eng.triggers.Contains(stop.Order.OrderID))

	final := f.sink.orders[stop.Order.OrderID]
	require.NotNil(t, final)
	assert.Equal(t, OrderStatusFilled, final.Status)
	assertEq(t, 2, final.FilledQuantity)
	assertEq(t, 190, f.ledger.Balance("alice", "USDT").Available)
}

func TestTakeProfitBuyTriggersOnPriceDrop(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("bob", "BTC", 10)
	f.deposit("alice", "USDT", 500)
	f.deposit("carol", "USDT", 500)

	f.limit("bob", OrderSideSell, 100, 5, TimeInForceGTC)

	// 买侧止盈：成交价跌破触发价后进场
	tp := f.mustSubmit(f.newOrder("alice", OrderSideBuy, OrderTypeTakeProfit, TimeInForceGTC, 0, 100, 2))
	require.Equal(t, OrderStatusOpen, tp.Order.Status)

	f.market("carol", OrderSideBuy, 1)

	final := f.sink.orders[tp.Order.OrderID]
	require.NotNil(t, final)
	assert.Equal(t, OrderStatusFilled, final.Status)
	assertEq(t, 2, final.FilledQuantity)
	assertEq(t, 2, f.ledger.Balance("alice", "BTC").Available)
}

func TestStopLimitConvertsToLimitAndRests(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("bob", "BTC", 10)
	f.deposit("alice", "USDT", 500)
	f.deposit("carol", "USDT", 500)

	f.limit("bob", OrderSideSell, 100, 1, TimeInForceGTC)

	sl := f.mustSubmit(f.newOrder("alice", OrderSideBuy, OrderTypeStopLimit, TimeInForceGTC, 101, 100, 2))
	require.Equal(t, OrderStatusOpen, sl.Order.Status)

	// 成交价到 100 触发，对手侧已无卖单，转为限价单挂簿
	f.market("carol", OrderSideBuy, 1)

	final := f.sink.orders[sl.Order.OrderID]
	require.NotNil(t, final)
	assert.Equal(t, OrderTypeLimit, final.Type)
	assert.Equal(t, OrderStatusOpen, final.Status)
	snap, err := f.eng.Snapshot(5)
	require.NoError(t, err)
	require.Len(t, snap.Bids, 1)
	assertEq(t, 101, snap.Bids[0].Price)
}

func TestDayOrderExpiresOnSweep(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)

	res := f.mustSubmit(f.newOrder("alice", OrderSideBuy, OrderTypeLimit, TimeInForceDAY, 100, 0, 5))
	require.Equal(t, OrderStatusOpen, res.Order.Status)

	// 当日内不过期
	expired, err := f.eng.SweepExpired(time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	// 跨过日切
	expired, err = f.eng.SweepExpired(time.Now().UTC().AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	final := f.sink.orders[res.Order.OrderID]
	assert.Equal(t, OrderStatusExpired, final.Status)
	assertEq(t, 2000, f.ledger.Balance("alice", "USDT").Available)
	assertEq(t, 0, f.ledger.Balance("alice", "USDT").Locked)
}

func TestExpiresAtSweep(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)

	o := f.newOrder("alice", OrderSideBuy, OrderTypeLimit, TimeInForceGTC, 100, 0, 5)
	o.ExpiresAt = time.Now().Add(time.Minute)
	f.mustSubmit(o)

	expired, err := f.eng.SweepExpired(time.Now())
	require.NoError(t, err)
	assert.Zero(t, expired)

	expired, err = f.eng.SweepExpired(time.Now().Add(2 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, expired)
	assert.Equal(t, OrderStatusExpired, f.sink.orders[o.OrderID].Status)
}

func TestPausedPairRefusesOrders(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)

	f.eng.Pause()
	o := f.newOrder("alice", OrderSideBuy, OrderTypeLimit, TimeInForceGTC, 100, 0, 5)
	res, err := f.eng.SubmitOrder(o)
	assert.ErrorIs(t, err, ErrPairUnavailable)
	assert.Nil(t, res)

	f.eng.Resume()
	f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)
}

func TestStoppedEngineRefusesOrders(t *testing.T) {
	pair := testPair()
	eng := NewMatchingEngine(pair, NewBalanceLedger(""), nil, 16)
	eng.Start()
	eng.Stop()
	// Stop 幂等
	eng.Stop()

	_, err := eng.SubmitOrder(NewOrder("o1", "alice", pair.Symbol, OrderSideBuy, OrderTypeLimit, TimeInForceGTC, d(100), decimal.Zero, d(1)))
	assert.ErrorIs(t, err, ErrEngineStopped)
}

func TestMakerPriceExecution(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 2000)
	f.deposit("bob", "BTC", 10)

	// 挂单价 100，吃单限价 90 仍以挂单价成交
	f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)
	res := f.limit("bob", OrderSideSell, 90, 2, TimeInForceGTC)

	require.Len(t, res.Trades, 1)
	assertEq(t, 100, res.Trades[0].Price)
	assert.Equal(t, OrderStatusFilled, res.Order.Status)
}

func TestConservationAcrossManyTrades(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 10000)
	f.deposit("bob", "BTC", 50)
	f.deposit("carol", "USDT", 10000)
	f.deposit("carol", "BTC", 50)

	f.limit("alice", OrderSideBuy, 100, 10, TimeInForceGTC)
	f.limit("carol", OrderSideBuy, 99, 10, TimeInForceGTC)
	f.limit("bob", OrderSideSell, 99, 15, TimeInForceGTC)
	f.limit("carol", OrderSideSell, 101, 5, TimeInForceGTC)
	f.market("bob", OrderSideSell, 3)

	assertEq(t, 20000, f.ledger.TotalSupply("USDT"))
	assertEq(t, 100, f.ledger.TotalSupply("BTC"))
	assert.False(t, f.eng.Halted())
}

func TestConcurrentSubmitsFillInArrivalOrder(t *testing.T) {
	f := newEngineFixture(t)
	const sellers = 16
	const rounds = 20

	f.deposit("taker", "USDT", 1000000)
	for i := 0; i < sellers; i++ {
		f.deposit(fmt.Sprintf("seller%02d", i), "BTC", 100)
	}

	feeFactor := decimal.NewFromInt(1).Add(f.pair.TakerFeeRate)
	for round := 0; round < rounds; round++ {
		var wg sync.WaitGroup
		for i := 0; i < sellers; i++ {
			wg.Add(1)
			go func(user string) {
				defer wg.Done()
				o := f.newOrder(user, OrderSideSell, OrderTypeLimit, TimeInForceGTC, 100, 0, 1)
				o.ReserveCurrency = f.pair.BaseCurrency
				o.Reserved = o.Quantity.Mul(feeFactor)
				if !assert.NoError(t, f.ledger.Reserve(o.UserID, o.ReserveCurrency, o.Reserved)) {
					return
				}
				_, err := f.eng.SubmitOrder(o)
				assert.NoError(t, err)
			}(fmt.Sprintf("seller%02d", i))
		}
		wg.Wait()

		// 同价位的成交顺序必须与到达序号一致
		res := f.limit("taker", OrderSideBuy, 100, sellers, TimeInForceGTC)
		require.Len(t, res.Trades, sellers)
		var prev uint64
		for _, tr := range res.Trades {
			maker := f.sink.orders[tr.MakerOrderID]
			require.NotNil(t, maker)
			require.Greater(t, maker.SequenceID, prev,
				"round %d: maker seq %d filled after seq %d", round, maker.SequenceID, prev)
			prev = maker.SequenceID
		}
	}
}

func TestCrossedBookHaltsPair(t *testing.T) {
	f := newEngineFixture(t)
	m := metrics.New("halt_test")
	f.eng.SetMetrics(m)
	f.deposit("alice", "USDT", 10000)
	f.deposit("bob", "BTC", 10)

	buy := f.limit("alice", OrderSideBuy, 100, 1, TimeInForceGTC)

	// 绕过撮合直接塞入与买一交叉的卖单，模拟簿状态被破坏
	rogue := f.newOrder("mallory", OrderSideSell, OrderTypeLimit, TimeInForceGTC, 99, 0, 1)
	f.eng.book.Insert(rogue)

	// 下一个任务的不变量校验发现交叉簿并熔断
	res, err := f.submit(f.newOrder("bob", OrderSideSell, OrderTypeLimit, TimeInForceGTC, 120, 0, 1))
	require.NoError(t, err)
	require.NotNil(t, res)
	require.True(t, f.eng.Halted())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PairsHalted))

	// 熔断后新订单、撤单与清扫全部失效
	o := f.newOrder("alice", OrderSideBuy, OrderTypeLimit, TimeInForceGTC, 98, 0, 1)
	_, err = f.eng.SubmitOrder(o)
	assert.ErrorIs(t, err, ErrPairHalted)

	_, err = f.eng.CancelOrder(buy.Order.OrderID, "alice")
	assert.ErrorIs(t, err, ErrPairHalted)

	n, err := f.eng.SweepExpired(time.Now().Add(48 * time.Hour))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSettlementShortfallHaltsPair(t *testing.T) {
	f := newEngineFixture(t)
	f.deposit("alice", "USDT", 1000)
	f.deposit("bob", "BTC", 10)

	// 冻结 501 USDT
	f.limit("alice", OrderSideBuy, 100, 5, TimeInForceGTC)

	// 在引擎背后消耗冻结资金，下一笔成交的结算必然超出冻结
	require.NoError(t, f.ledger.ConsumeLocked("alice", "USDT", d(501)))

	f.submit(f.newOrder("bob", OrderSideSell, OrderTypeLimit, TimeInForceGTC, 100, 0, 5))
	require.True(t, f.eng.Halted())

	_, err := f.eng.SubmitOrder(f.newOrder("bob", OrderSideSell, OrderTypeLimit, TimeInForceGTC, 100, 0, 1))
	assert.ErrorIs(t, err, ErrPairHalted)
}

func TestStopReleasesConcurrentSubmitters(t *testing.T) {
	f := newEngineFixture(t)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				o := f.newOrder(fmt.Sprintf("u%d", n), OrderSideSell, OrderTypeLimit, TimeInForceGTC, 100, 0, 1)
				_, err := f.eng.SubmitOrder(o)
				if errors.Is(err, ErrEngineBusy) {
					continue
				}
				if err != nil {
					assert.ErrorIs(t, err, ErrEngineStopped)
					return
				}
			}
		}(i)
	}

	time.Sleep(5 * time.Millisecond)
	f.eng.Stop()
	close(stop)

	// 每个提交方都必须得到应答，不能滞留在结果通道上
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("submitter blocked after engine stop")
	}
}
