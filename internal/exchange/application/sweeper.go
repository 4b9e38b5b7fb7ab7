package application

import (
	"context"
	"sync"
	"time"

	"github.com/wyfcoding/exchangecore/pkg/logger"
)

// ExpirySweeper 定时把清扫任务投入各交易对的串行撮合队列，
// 过期判定与取消都在撮合 Worker 内完成，调度协程不触碰任何订单状态。
type ExpirySweeper struct {
	service  *ExchangeService
	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}
	done     chan struct{}
}

// NewExpirySweeper 创建清扫调度器
func NewExpirySweeper(service *ExchangeService, interval time.Duration) *ExpirySweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ExpirySweeper{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start 启动定时清扫
func (w *ExpirySweeper) Start() {
	go w.run()
}

// Stop 停止清扫并等待退出
func (w *ExpirySweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *ExpirySweeper) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case now := <-ticker.C:
			w.SweepOnce(now)
		}
	}
}

// SweepOnce 对所有交易对执行一轮清扫，返回过期订单总数
func (w *ExpirySweeper) SweepOnce(now time.Time) int {
	total := 0
	for _, eng := range w.service.Engines() {
		expired, err := eng.SweepExpired(now)
		if err != nil {
			logger.Warn(context.Background(), "expiry sweep skipped",
				"symbol", eng.Pair().Symbol, "error", err)
			continue
		}
		total += expired
	}
	return total
}
