package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade 成交记录，创建后不可变。
// 费率策略：买方手续费以计价货币收取，卖方手续费以基础货币收取；
// maker/taker 各自独立按所属费率计费，全部归集到账本的手续费账户。
type Trade struct {
	// 成交 ID
	TradeID string `json:"trade_id"`
	// 交易对符号
	Symbol string `json:"symbol"`
	// Maker（被动方）订单 ID
	MakerOrderID string `json:"maker_order_id"`
	// Taker（主动方）订单 ID
	TakerOrderID string `json:"taker_order_id"`
	// Maker 用户 ID
	MakerUserID string `json:"maker_user_id"`
	// Taker 用户 ID
	TakerUserID string `json:"taker_user_id"`
	// 成交价（Maker 挂单价）
	Price decimal.Decimal `json:"price"`
	// 成交数量
	Quantity decimal.Decimal `json:"quantity"`
	// Maker 手续费
	MakerFee decimal.Decimal `json:"maker_fee"`
	// Maker 手续费货币
	MakerFeeCurrency string `json:"maker_fee_currency"`
	// Taker 手续费
	TakerFee decimal.Decimal `json:"taker_fee"`
	// Taker 手续费货币
	TakerFeeCurrency string `json:"taker_fee_currency"`
	// 成交时间
	Timestamp time.Time `json:"timestamp"`
}
