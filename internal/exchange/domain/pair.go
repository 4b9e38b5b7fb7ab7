package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TradingPair 交易对定义，创建后不可变
type TradingPair struct {
	// 交易对符号，如 BTC-USDT
	Symbol string `json:"symbol"`
	// 基础货币
	BaseCurrency string `json:"base_currency"`
	// 计价货币
	QuoteCurrency string `json:"quote_currency"`
	// 最小价格变动单位
	TickSize decimal.Decimal `json:"tick_size"`
	// 最小下单数量
	MinOrderSize decimal.Decimal `json:"min_order_size"`
	// Maker 费率
	MakerFeeRate decimal.Decimal `json:"maker_fee_rate"`
	// Taker 费率，冻结资金时按此费率预留上限
	TakerFeeRate decimal.Decimal `json:"taker_fee_rate"`
}

// Validate 校验交易对定义本身的合法性
func (p *TradingPair) Validate() error {
	if p.Symbol == "" || p.BaseCurrency == "" || p.QuoteCurrency == "" {
		return fmt.Errorf("%w: symbol and currencies are required", ErrInvalidOrderParameters)
	}
	if p.BaseCurrency == p.QuoteCurrency {
		return fmt.Errorf("%w: base and quote currency must differ", ErrInvalidOrderParameters)
	}
	if !p.TickSize.IsPositive() {
		return fmt.Errorf("%w: tick size must be positive", ErrInvalidOrderParameters)
	}
	if !p.MinOrderSize.IsPositive() {
		return fmt.Errorf("%w: min order size must be positive", ErrInvalidOrderParameters)
	}
	if p.MakerFeeRate.IsNegative() || p.TakerFeeRate.IsNegative() {
		return fmt.Errorf("%w: fee rates must not be negative", ErrInvalidOrderParameters)
	}
	if p.TakerFeeRate.LessThan(p.MakerFeeRate) {
		return fmt.Errorf("%w: taker fee rate must not be below maker fee rate", ErrInvalidOrderParameters)
	}
	return nil
}

// CheckPrice 校验价格为正且对齐 tick
func (p *TradingPair) CheckPrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidOrderParameters)
	}
	if !price.Mod(p.TickSize).IsZero() {
		return fmt.Errorf("%w: price %s not aligned to tick size %s", ErrInvalidOrderParameters, price, p.TickSize)
	}
	return nil
}

// CheckQuantity 校验数量为正且不低于最小下单量
func (p *TradingPair) CheckQuantity(qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", ErrInvalidOrderParameters)
	}
	if qty.LessThan(p.MinOrderSize) {
		return fmt.Errorf("%w: quantity %s below minimum %s", ErrInvalidOrderParameters, qty, p.MinOrderSize)
	}
	return nil
}
