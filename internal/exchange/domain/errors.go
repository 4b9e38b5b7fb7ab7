// Package domain 交易核心的领域模型：订单簿、撮合引擎、资金账本与订单生命周期
package domain

import "errors"

// 领域错误分类。校验类错误在入队前同步返回给提交方；
// 不变量被破坏属于致命缺陷，对应交易对会被熔断（见 MatchingEngine）。
var (
	// ErrInvalidOrderParameters 价格/数量非法、未对齐 tick 或低于最小下单量
	ErrInvalidOrderParameters = errors.New("invalid order parameters")
	// ErrInsufficientBalance 可用余额不足以完成冻结
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrFOKInfeasible FOK 订单无法全部成交，原子拒绝且无任何副作用
	ErrFOKInfeasible = errors.New("fill-or-kill order cannot be fully filled")
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrAlreadyTerminal 订单已处于终态（幂等取消时返回当前状态而非失败）
	ErrAlreadyTerminal = errors.New("order already in terminal state")
	// ErrPairNotFound 交易对不存在
	ErrPairNotFound = errors.New("trading pair not found")
	// ErrPairUnavailable 交易对已暂停，稍后可重试
	ErrPairUnavailable = errors.New("trading pair unavailable")
	// ErrPairHalted 交易对因不变量被破坏而熔断
	ErrPairHalted = errors.New("trading pair halted")
	// ErrEngineBusy 撮合队列已满
	ErrEngineBusy = errors.New("matching queue full")
	// ErrEngineStopped 撮合引擎已停止
	ErrEngineStopped = errors.New("matching engine stopped")
)
