package domain

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Balance 某用户某货币的余额视图
type Balance struct {
	UserID    string          `json:"user_id"`
	Currency  string          `json:"currency"`
	Available decimal.Decimal `json:"available"`
	Locked    decimal.Decimal `json:"locked"`
}

// Total 总余额 = 可用 + 冻结
func (b Balance) Total() decimal.Decimal {
	return b.Available.Add(b.Locked)
}

type ledgerAccount struct {
	mu        sync.Mutex
	available decimal.Decimal
	locked    decimal.Decimal
}

// BalanceLedger 资金账本，维护每个 (用户, 货币) 的可用/冻结余额。
// 所有交易对共享同一账本；同步粒度为单个账户的互斥锁，绝不使用全局锁。
// 不变量：available >= 0 且 locked >= 0；撮合结算除手续费流向
// 手续费账户外不改变各货币的总量（守恒）。
type BalanceLedger struct {
	mu         sync.RWMutex
	accounts   map[string]*ledgerAccount
	feeAccount string
}

// DefaultFeeAccount 默认手续费归集账户
const DefaultFeeAccount = "fee-sink"

// NewBalanceLedger 创建账本，feeAccount 为空时使用默认手续费账户
func NewBalanceLedger(feeAccount string) *BalanceLedger {
	if feeAccount == "" {
		feeAccount = DefaultFeeAccount
	}
	return &BalanceLedger{
		accounts:   make(map[string]*ledgerAccount),
		feeAccount: feeAccount,
	}
}

// FeeAccount 手续费归集账户 ID
func (l *BalanceLedger) FeeAccount() string { return l.feeAccount }

func accountKey(userID, currency string) string {
	return userID + "\x00" + currency
}

func (l *BalanceLedger) account(userID, currency string) *ledgerAccount {
	key := accountKey(userID, currency)

	l.mu.RLock()
	acc, ok := l.accounts[key]
	l.mu.RUnlock()
	if ok {
		return acc
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok = l.accounts[key]; ok {
		return acc
	}
	acc = &ledgerAccount{available: decimal.Zero, locked: decimal.Zero}
	l.accounts[key] = acc
	return acc
}

// Deposit 充值，入账到可用余额
func (l *BalanceLedger) Deposit(userID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount must be positive, got %s", amount)
	}
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.available = acc.available.Add(amount)
	return nil
}

// Reserve 将 amount 从可用余额转入冻结，余额不足时失败
func (l *BalanceLedger) Reserve(userID, currency string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("reserve amount must be positive, got %s", amount)
	}
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.available.LessThan(amount) {
		return fmt.Errorf("%w: need %s %s, available %s", ErrInsufficientBalance, amount, currency, acc.available)
	}
	acc.available = acc.available.Sub(amount)
	acc.locked = acc.locked.Add(amount)
	return nil
}

// Release 解除冻结，将 amount 从冻结转回可用
func (l *BalanceLedger) Release(userID, currency string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("release amount must not be negative, got %s", amount)
	}
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.locked.LessThan(amount) {
		return fmt.Errorf("release %s %s exceeds locked %s for %s", amount, currency, acc.locked, userID)
	}
	acc.locked = acc.locked.Sub(amount)
	acc.available = acc.available.Add(amount)
	return nil
}

// ConsumeLocked 结算时从冻结余额中扣除已兑付的资金
func (l *BalanceLedger) ConsumeLocked(userID, currency string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("consume amount must not be negative, got %s", amount)
	}
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.locked.LessThan(amount) {
		return fmt.Errorf("consume %s %s exceeds locked %s for %s", amount, currency, acc.locked, userID)
	}
	acc.locked = acc.locked.Sub(amount)
	return nil
}

// Credit 入账对价资金到可用余额
func (l *BalanceLedger) Credit(userID, currency string, amount decimal.Decimal) error {
	if amount.IsZero() {
		return nil
	}
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must not be negative, got %s", amount)
	}
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.available = acc.available.Add(amount)
	return nil
}

// Balance 查询单个账户余额
func (l *BalanceLedger) Balance(userID, currency string) Balance {
	acc := l.account(userID, currency)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return Balance{
		UserID:    userID,
		Currency:  currency,
		Available: acc.available,
		Locked:    acc.locked,
	}
}

// Balances 查询用户的全部余额，按货币排序
func (l *BalanceLedger) Balances(userID string) []Balance {
	prefix := userID + "\x00"

	l.mu.RLock()
	keys := make([]string, 0, 4)
	for key := range l.accounts {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	l.mu.RUnlock()

	sort.Strings(keys)
	out := make([]Balance, 0, len(keys))
	for _, key := range keys {
		currency := strings.TrimPrefix(key, prefix)
		out = append(out, l.Balance(userID, currency))
	}
	return out
}

// TotalSupply 某货币在全部账户中的总量（可用+冻结），用于守恒校验
func (l *BalanceLedger) TotalSupply(currency string) decimal.Decimal {
	suffix := "\x00" + currency

	l.mu.RLock()
	accs := make([]*ledgerAccount, 0, len(l.accounts))
	for key, acc := range l.accounts {
		if strings.HasSuffix(key, suffix) {
			accs = append(accs, acc)
		}
	}
	l.mu.RUnlock()

	total := decimal.Zero
	for _, acc := range accs {
		acc.mu.Lock()
		total = total.Add(acc.available).Add(acc.locked)
		acc.mu.Unlock()
	}
	return total
}
