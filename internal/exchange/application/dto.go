package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
)

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	UserID      string `json:"user_id" binding:"required"`
	Symbol      string `json:"symbol" binding:"required"`
	Side        string `json:"side" binding:"required"`
	Type        string `json:"type" binding:"required"`
	TimeInForce string `json:"time_in_force"`
	// 数值字段统一使用字符串，避免 JSON 浮点精度丢失
	Price     string `json:"price"`
	StopPrice string `json:"stop_price"`
	Quantity  string `json:"quantity" binding:"required"`
	// 可选过期时间，RFC3339，仅 GTC 单支持
	ExpiresAt string `json:"expires_at"`
}

// DepositRequest 入金请求
type DepositRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Amount   string `json:"amount" binding:"required"`
}

// PlaceOrderResult 下单响应
type PlaceOrderResult struct {
	Order  *domain.Order   `json:"order"`
	Trades []*domain.Trade `json:"trades"`
}

// PairStatus 交易对状态视图
type PairStatus struct {
	Symbol        string `json:"symbol"`
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
	TickSize      string `json:"tick_size"`
	MinOrderSize  string `json:"min_order_size"`
	MakerFeeRate  string `json:"maker_fee_rate"`
	TakerFeeRate  string `json:"taker_fee_rate"`
	// TRADING, PAUSED, HALTED
	Status string `json:"status"`
}

func parseSide(s string) (domain.OrderSide, error) {
	switch domain.OrderSide(s) {
	case domain.OrderSideBuy, domain.OrderSideSell:
		return domain.OrderSide(s), nil
	}
	return "", fmt.Errorf("%w: unknown side %q", domain.ErrInvalidOrderParameters, s)
}

func parseType(s string) (domain.OrderType, error) {
	switch domain.OrderType(s) {
	case domain.OrderTypeLimit, domain.OrderTypeMarket,
		domain.OrderTypeStopLoss, domain.OrderTypeTakeProfit, domain.OrderTypeStopLimit:
		return domain.OrderType(s), nil
	}
	return "", fmt.Errorf("%w: unknown order type %q", domain.ErrInvalidOrderParameters, s)
}

func parseTIF(s string) (domain.TimeInForce, error) {
	if s == "" {
		return domain.TimeInForceGTC, nil
	}
	switch domain.TimeInForce(s) {
	case domain.TimeInForceGTC, domain.TimeInForceIOC, domain.TimeInForceFOK, domain.TimeInForceDAY:
		return domain.TimeInForce(s), nil
	}
	return "", fmt.Errorf("%w: unknown time in force %q", domain.ErrInvalidOrderParameters, s)
}

func parseDecimal(field, s string, required bool) (decimal.Decimal, error) {
	if s == "" {
		if required {
			return decimal.Zero, fmt.Errorf("%w: %s is required", domain.ErrInvalidOrderParameters, field)
		}
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: invalid %s %q", domain.ErrInvalidOrderParameters, field, s)
	}
	return d, nil
}

func parseExpiresAt(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid expires_at %q", domain.ErrInvalidOrderParameters, s)
	}
	return t, nil
}
