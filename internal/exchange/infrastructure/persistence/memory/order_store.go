// Package memory 提供订单与成交的内存存储。
// 撮合引擎在每次状态变化时推送订单快照，查询接口从这里读取，
// 不会触碰撮合 Worker 内部的存活订单。
package memory

import (
	"sort"
	"sync"

	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
)

// OrderStore 订单快照存储，实现 domain.OrderSink
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]*domain.Order
	// 用户维度索引，按用户查询订单列表
	byUser map[string]map[string]struct{}
}

// NewOrderStore 创建订单存储
func NewOrderStore() *OrderStore {
	return &OrderStore{
		orders: make(map[string]*domain.Order),
		byUser: make(map[string]map[string]struct{}),
	}
}

// SaveOrder 保存订单最新快照，入参必须是撮合侧的副本
func (s *OrderStore) SaveOrder(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[order.OrderID]; !ok {
		ids, ok := s.byUser[order.UserID]
		if !ok {
			ids = make(map[string]struct{})
			s.byUser[order.UserID] = ids
		}
		ids[order.OrderID] = struct{}{}
	}
	s.orders[order.OrderID] = order
}

// Get 按订单号查询，返回副本
func (s *OrderStore) Get(orderID string) (*domain.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, false
	}
	return o.Clone(), true
}

// ListByUser 查询用户订单，openOnly 为真时仅返回未终态订单，
// 结果按创建时间倒序
func (s *OrderStore) ListByUser(userID string, openOnly bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byUser[userID]
	result := make([]*domain.Order, 0, len(ids))
	for id := range ids {
		o := s.orders[id]
		if openOnly && o.Status.IsTerminal() {
			continue
		}
		result = append(result, o.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

// Len 订单总数
func (s *OrderStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
