// Package algos 提供通用算法与数据结构（跳表、线段树等）
package algos

import "math/rand"

const (
	skipListMaxLevel = 32
	skipListP        = 0.25
)

type skipListNode[K any, V any] struct {
	key     K
	value   V
	forward []*skipListNode[K, V]
}

// SkipList 有序跳表，排序规则由 less 决定。
// 订单簿以价格为键：买盘传入降序 less，卖盘传入升序 less，Min 即为最优档。
type SkipList[K any, V any] struct {
	head  *skipListNode[K, V]
	level int
	size  int
	less  func(a, b K) bool
}

// NewSkipList 创建跳表，less 定义键的全序
func NewSkipList[K any, V any](less func(a, b K) bool) *SkipList[K, V] {
	return &SkipList[K, V]{
		head:  &skipListNode[K, V]{forward: make([]*skipListNode[K, V], skipListMaxLevel)},
		level: 1,
		less:  less,
	}
}

func (s *SkipList[K, V]) randomLevel() int {
	level := 1
	for level < skipListMaxLevel && rand.Float64() < skipListP {
		level++
	}
	return level
}

func (s *SkipList[K, V]) equal(a, b K) bool {
	return !s.less(a, b) && !s.less(b, a)
}

// Len 返回元素个数
func (s *SkipList[K, V]) Len() int {
	return s.size
}

// Insert 插入键值对，键已存在时覆盖值
func (s *SkipList[K, V]) Insert(key K, value V) {
	update := make([]*skipListNode[K, V], skipListMaxLevel)
	node := s.head
	for i := s.level - 1; i >= 0; i-- {
		for node.forward[i] != nil && s.less(node.forward[i].key, key) {
			node = node.forward[i]
		}
		update[i] = node
	}

	next := node.forward[0]
	if next != nil && s.equal(next.key, key) {
		next.value = value
		return
	}

	level := s.randomLevel()
	if level > s.level {
		for i := s.level; i < level; i++ {
			update[i] = s.head
		}
		s.level = level
	}

	newNode := &skipListNode[K, V]{
		key:     key,
		value:   value,
		forward: make([]*skipListNode[K, V], level),
	}
	for i := 0; i < level; i++ {
		newNode.forward[i] = update[i].forward[i]
		update[i].forward[i] = newNode
	}
	s.size++
}

// Search 查找键对应的值
func (s *SkipList[K, V]) Search(key K) (V, bool) {
	node := s.head
	for i := s.level - 1; i >= 0; i-- {
		for node.forward[i] != nil && s.less(node.forward[i].key, key) {
			node = node.forward[i]
		}
	}
	next := node.forward[0]
	if next != nil && s.equal(next.key, key) {
		return next.value, true
	}
	var zero V
	return zero, false
}

// Delete 删除键，返回是否存在
func (s *SkipList[K, V]) Delete(key K) bool {
	update := make([]*skipListNode[K, V], skipListMaxLevel)
	node := s.head
	for i := s.level - 1; i >= 0; i-- {
		for node.forward[i] != nil && s.less(node.forward[i].key, key) {
			node = node.forward[i]
		}
		update[i] = node
	}

	target := node.forward[0]
	if target == nil || !s.equal(target.key, key) {
		return false
	}

	for i := 0; i < s.level; i++ {
		if update[i].forward[i] != target {
			break
		}
		update[i].forward[i] = target.forward[i]
	}
	for s.level > 1 && s.head.forward[s.level-1] == nil {
		s.level--
	}
	s.size--
	return true
}

// Min 返回排序最前的键值对
func (s *SkipList[K, V]) Min() (K, V, bool) {
	first := s.head.forward[0]
	if first == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	return first.key, first.value, true
}

// Iterator 返回从最小键开始的迭代器
func (s *SkipList[K, V]) Iterator() *SkipListIterator[K, V] {
	return &SkipListIterator[K, V]{node: s.head.forward[0]}
}

// Seek 返回从第一个不小于 key（按 less 排序）的节点开始的迭代器
func (s *SkipList[K, V]) Seek(key K) *SkipListIterator[K, V] {
	node := s.head
	for i := s.level - 1; i >= 0; i-- {
		for node.forward[i] != nil && s.less(node.forward[i].key, key) {
			node = node.forward[i]
		}
	}
	return &SkipListIterator[K, V]{node: node.forward[0]}
}

// SkipListIterator 跳表迭代器
type SkipListIterator[K any, V any] struct {
	node *skipListNode[K, V]
}

// Next 返回下一个键值对，遍历结束时 ok 为 false
func (it *SkipListIterator[K, V]) Next() (K, V, bool) {
	if it.node == nil {
		var zk K
		var zv V
		return zk, zv, false
	}
	k, v := it.node.key, it.node.value
	it.node = it.node.forward[0]
	return k, v, true
}
