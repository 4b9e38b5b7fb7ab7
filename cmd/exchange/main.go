package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/exchangecore/internal/exchange/application"
	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
	"github.com/wyfcoding/exchangecore/internal/exchange/infrastructure/eventbus"
	"github.com/wyfcoding/exchangecore/internal/exchange/infrastructure/persistence/memory"
	exchange_http "github.com/wyfcoding/exchangecore/internal/exchange/interfaces/http"
	"github.com/wyfcoding/exchangecore/pkg/config"
	"github.com/wyfcoding/exchangecore/pkg/idgen"
	"github.com/wyfcoding/exchangecore/pkg/logger"
	"github.com/wyfcoding/exchangecore/pkg/metrics"
	"github.com/wyfcoding/exchangecore/pkg/middleware"
	"github.com/wyfcoding/exchangecore/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/exchange/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	ctx := context.Background()
	logger.Info(ctx, "starting service",
		"service", cfg.ServiceName, "version", cfg.Version, "environment", cfg.Environment)

	// 3. ID generator
	idgen.Init(cfg.Engine.NodeID)

	// 4. Metrics
	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(cfg.ServiceName)
		if err := m.Register(); err != nil {
			panic(fmt.Sprintf("register metrics failed: %v", err))
		}
		metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// 5. Event publishers
	bus := eventbus.NewBus(cfg.Engine.EventBuffer)
	defer bus.Close()

	publishers := domain.MultiPublisher{bus}
	var kafkaPub *eventbus.KafkaPublisher
	if cfg.Kafka.Enabled {
		producer, err := mq.NewProducer(mq.KafkaConfig{
			Brokers:      cfg.Kafka.Brokers,
			MaxRetries:   cfg.Kafka.MaxRetries,
			RetryBackoff: cfg.Kafka.RetryBackoff,
		})
		if err != nil {
			panic(fmt.Sprintf("init kafka producer failed: %v", err))
		}
		defer producer.Close()
		kafkaPub = eventbus.NewKafkaPublisher(producer, cfg.Kafka.TopicPrefix, cfg.Kafka.BufferSize)
		publishers = append(publishers, kafkaPub)
	}

	// 6. Ledger, stores, application service
	ledger := domain.NewBalanceLedger(cfg.Engine.FeeAccount)
	orderStore := memory.NewOrderStore()
	tradeStore := memory.NewTradeStore(0)
	service := application.NewExchangeService(ledger, orderStore, tradeStore, publishers, m, cfg.Engine.QueueSize)
	defer service.Stop()

	for _, pc := range cfg.Pairs {
		pair, err := buildPair(pc)
		if err != nil {
			panic(fmt.Sprintf("invalid pair %s: %v", pc.Symbol, err))
		}
		if err := service.RegisterPair(pair); err != nil {
			panic(fmt.Sprintf("register pair %s failed: %v", pc.Symbol, err))
		}
	}

	// 7. Expiry sweeper
	sweeper := application.NewExpirySweeper(service, time.Duration(cfg.Engine.SweepInterval)*time.Second)
	sweeper.Start()
	defer sweeper.Stop()

	// 8. HTTP server
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.GinLogging(m), middleware.GinRecovery(), middleware.GinCORS())
	exchange_http.NewHandler(service).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "HTTP shutdown failed", "error", err)
	}
	if kafkaPub != nil {
		kafkaPub.Close()
	}
	logger.Info(ctx, "server exiting")
}

func buildPair(pc config.PairConfig) (*domain.TradingPair, error) {
	tickSize, err := decimal.NewFromString(pc.TickSize)
	if err != nil {
		return nil, fmt.Errorf("invalid tick_size: %w", err)
	}
	minOrderSize, err := decimal.NewFromString(pc.MinOrderSize)
	if err != nil {
		return nil, fmt.Errorf("invalid min_order_size: %w", err)
	}
	makerRate, err := decimal.NewFromString(pc.MakerFeeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid maker_fee_rate: %w", err)
	}
	takerRate, err := decimal.NewFromString(pc.TakerFeeRate)
	if err != nil {
		return nil, fmt.Errorf("invalid taker_fee_rate: %w", err)
	}
	return &domain.TradingPair{
		Symbol:        pc.Symbol,
		BaseCurrency:  pc.Base,
		QuoteCurrency: pc.Quote,
		TickSize:      tickSize,
		MinOrderSize:  minOrderSize,
		MakerFeeRate:  makerRate,
		TakerFeeRate:  takerRate,
	}, nil
}
