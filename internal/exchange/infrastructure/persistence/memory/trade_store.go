package memory

import (
	"sync"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
)

// 每个交易对保留的最近成交条数上限
const defaultTradeCap = 10000

// TradeStore 成交流水存储，实现 domain.TradeSink。
// 按交易对保留最近 N 条，超出后淘汰最旧记录。
type TradeStore struct {
	mu       sync.RWMutex
	bySymbol map[string][]*domain.Trade
	capacity int
}

// NewTradeStore 创建成交存储，capacity 小于等于零时使用默认上限
func NewTradeStore(capacity int) *TradeStore {
	if capacity <= 0 {
		capacity = defaultTradeCap
	}
	return &TradeStore{
		bySymbol: make(map[string][]*domain.Trade),
		capacity: capacity,
	}
}

// SaveTrade 追加一条成交
func (s *TradeStore) SaveTrade(trade *domain.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trades := append(s.bySymbol[trade.Symbol], trade)
	if len(trades) > s.capacity {
		trades = trades[len(trades)-s.capacity:]
	}
	s.bySymbol[trade.Symbol] = trades
}

// Recent 返回交易对最近 limit 条成交，最新在前
func (s *TradeStore) Recent(symbol string, limit int) []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	trades := s.bySymbol[symbol]
	if limit <= 0 || limit > len(trades) {
		limit = len(trades)
	}
	result := make([]*domain.Trade, 0, limit)
	for i := len(trades) - 1; i >= len(trades)-limit; i-- {
		result = append(result, trades[i])
	}
	return result
}

// Len 交易对成交条数
func (s *TradeStore) Len(symbol string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bySymbol[symbol])
}
