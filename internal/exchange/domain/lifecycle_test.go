package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lifecycleOrder(qty float64) *Order {
	return NewOrder("o1", "alice", "BTC-USDT", OrderSideBuy, OrderTypeLimit, TimeInForceGTC, d(100), decimal.Zero, d(qty))
}

func TestLifecycleValidTransitions(t *testing.T) {
	var m LifecycleManager
	o := lifecycleOrder(10)

	require.NoError(t, m.Transition(o, OrderStatusOpen))
	require.NoError(t, m.Transition(o, OrderStatusPartiallyFilled))
	require.NoError(t, m.Transition(o, OrderStatusFilled))
	assert.True(t, o.Status.IsTerminal())
}

func TestLifecycleTerminalIsFinal(t *testing.T) {
	var m LifecycleManager
	o := lifecycleOrder(10)
	require.NoError(t, m.Transition(o, OrderStatusCancelled))

	err := m.Transition(o, OrderStatusOpen)
	assert.ErrorIs(t, err, ErrAlreadyTerminal)
	assert.Equal(t, OrderStatusCancelled, o.Status)
}

func TestLifecycleSameStatusNoop(t *testing.T) {
	var m LifecycleManager
	o := lifecycleOrder(10)
	require.NoError(t, m.Transition(o, OrderStatusOpen))
	require.NoError(t, m.Transition(o, OrderStatusOpen))
}

func TestLifecycleInvalidTransition(t *testing.T) {
	var m LifecycleManager
	o := lifecycleOrder(10)
	require.NoError(t, m.Transition(o, OrderStatusOpen))

	// OPEN 不能直接回退或被拒绝
	assert.Error(t, m.Transition(o, OrderStatusPending))
	assert.Error(t, m.Transition(o, OrderStatusRejected))
}

func TestApplyFillDerivesStatus(t *testing.T) {
	var m LifecycleManager
	o := lifecycleOrder(10)
	require.NoError(t, m.Transition(o, OrderStatusOpen))

	require.NoError(t, m.ApplyFill(o, d(4)))
	assert.Equal(t, OrderStatusPartiallyFilled, o.Status)
	assertEq(t, 4, o.FilledQuantity)

	require.NoError(t, m.ApplyFill(o, d(6)))
	assert.Equal(t, OrderStatusFilled, o.Status)
	assertEq(t, 0, o.RemainingQuantity())
}

func TestApplyFillGuards(t *testing.T) {
	var m LifecycleManager

	o := lifecycleOrder(10)
	assert.Error(t, m.ApplyFill(o, d(0)), "非正数量")
	assert.Error(t, m.ApplyFill(o, d(11)), "超出剩余量")

	filled := lifecycleOrder(10)
	require.NoError(t, m.ApplyFill(filled, d(10)))
	assert.Error(t, m.ApplyFill(filled, d(1)), "终态订单")
}
