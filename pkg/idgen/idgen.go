// Package idgen 提供雪花算法 ID 生成器，用于订单号与成交号
package idgen

import (
	"strconv"
	"sync"
	"time"
)

// Generator 雪花算法 ID 生成器
type Generator struct {
	mu        sync.Mutex
	timestamp int64
	sequence  int64
	nodeID    int64
}

// NewGenerator 创建雪花 ID 生成器
func NewGenerator(nodeID int64) *Generator {
	return &Generator{
		nodeID: nodeID & 0x3FF, // 10 bits
	}
}

// Generate 生成雪花 ID
func (g *Generator) Generate() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == g.timestamp {
		g.sequence = (g.sequence + 1) & 0xFFF // 12 bits
		if g.sequence == 0 {
			// 序列号耗尽，等待下一毫秒
			for now <= g.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		g.sequence = 0
	}

	g.timestamp = now

	// 组合 ID：timestamp(41 bits) + nodeID(10 bits) + sequence(12 bits)
	return (now << 22) | (g.nodeID << 12) | g.sequence
}

// GenerateString 生成十进制字符串形式的雪花 ID
func (g *Generator) GenerateString() string {
	return strconv.FormatInt(g.Generate(), 10)
}

var (
	defaultMu  sync.Mutex
	defaultGen = NewGenerator(1)
)

// Init 设置全局生成器的节点编号
func Init(nodeID int64) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultGen = NewGenerator(nodeID)
}

// GenID 使用全局生成器生成 ID
func GenID() int64 {
	return defaultGen.Generate()
}

// GenIDString 使用全局生成器生成字符串 ID
func GenIDString() string {
	return defaultGen.GenerateString()
}
