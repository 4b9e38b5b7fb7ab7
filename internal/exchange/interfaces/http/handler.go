// Package http 暴露交易核心的 REST 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/exchangecore/internal/exchange/application"
	"github.com/wyfcoding/exchangecore/internal/exchange/domain"
	"github.com/wyfcoding/exchangecore/pkg/response"
)

// Handler 交易核心 HTTP 处理器
type Handler struct {
	service *application.ExchangeService
}

// NewHandler 创建处理器
func NewHandler(service *application.ExchangeService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.POST("/orders", h.PlaceOrder)
		api.DELETE("/orders/:order_id", h.CancelOrder)
		api.GET("/orders/:order_id", h.GetOrder)
		api.GET("/users/:user_id/orders", h.ListOrders)
		api.GET("/users/:user_id/balances", h.Balances)
		api.POST("/deposits", h.Deposit)
		api.GET("/orderbook/:symbol", h.OrderBook)
		api.GET("/trades/:symbol", h.RecentTrades)
		api.GET("/pairs", h.ListPairs)
		api.POST("/pairs/:symbol/pause", h.PausePair)
		api.POST("/pairs/:symbol/resume", h.ResumePair)
	}
}

// errStatus 领域错误到 HTTP 状态码的映射
func errStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrderParameters):
		return http.StatusBadRequest, "INVALID_ORDER"
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusBadRequest, "INSUFFICIENT_BALANCE"
	case errors.Is(err, domain.ErrFOKInfeasible):
		return http.StatusBadRequest, "FOK_INFEASIBLE"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "ORDER_NOT_FOUND"
	case errors.Is(err, domain.ErrAlreadyTerminal):
		return http.StatusConflict, "ORDER_TERMINAL"
	case errors.Is(err, domain.ErrPairNotFound):
		return http.StatusNotFound, "PAIR_NOT_FOUND"
	case errors.Is(err, domain.ErrPairHalted):
		return http.StatusServiceUnavailable, "PAIR_HALTED"
	case errors.Is(err, domain.ErrPairUnavailable):
		return http.StatusServiceUnavailable, "PAIR_UNAVAILABLE"
	case errors.Is(err, domain.ErrEngineBusy):
		return http.StatusTooManyRequests, "ENGINE_BUSY"
	case errors.Is(err, domain.ErrEngineStopped):
		return http.StatusServiceUnavailable, "ENGINE_STOPPED"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

func fail(c *gin.Context, err error) {
	status, code := errStatus(err)
	response.ErrorWithStatus(c, status, err.Error(), code)
}

// PlaceOrder 下单
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req application.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body: "+err.Error(), "BAD_REQUEST")
		return
	}

	res, err := h.service.PlaceOrder(c.Request.Context(), &req)
	if res != nil {
		// 同步拒绝（如 FOK 不可全量成交）也携带终态订单返回
		response.Success(c, res)
		return
	}
	fail(c, err)
}

// CancelOrder 撤单，订单已终态时幂等返回当前状态
func (h *Handler) CancelOrder(c *gin.Context) {
	symbol := c.Query("symbol")
	if symbol == "" {
		response.ErrorWithStatus(c, http.StatusBadRequest, "symbol query parameter is required", "BAD_REQUEST")
		return
	}
	o, err := h.service.CancelOrder(c.Request.Context(), symbol, c.Param("order_id"), c.Query("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, o)
}

// GetOrder 查询订单
func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.service.GetOrder(c.Param("order_id"), c.Query("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, o)
}

// ListOrders 查询用户订单，open=true 仅返回未终态
func (h *Handler) ListOrders(c *gin.Context) {
	openOnly := c.Query("open") == "true"
	response.Success(c, h.service.ListOrders(c.Param("user_id"), openOnly))
}

// Balances 查询用户余额
func (h *Handler) Balances(c *gin.Context) {
	response.Success(c, h.service.Balances(c.Param("user_id")))
}

// Deposit 入金
func (h *Handler) Deposit(c *gin.Context) {
	var req application.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithStatus(c, http.StatusBadRequest, "invalid request body: "+err.Error(), "BAD_REQUEST")
		return
	}
	b, err := h.service.Deposit(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, b)
}

// OrderBook 订单簿快照
func (h *Handler) OrderBook(c *gin.Context) {
	depth, _ := strconv.Atoi(c.DefaultQuery("depth", "20"))
	snap, err := h.service.OrderBook(c.Param("symbol"), depth)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}

// RecentTrades 最近成交
func (h *Handler) RecentTrades(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	trades, err := h.service.RecentTrades(c.Param("symbol"), limit)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, trades)
}

// ListPairs 交易对列表
func (h *Handler) ListPairs(c *gin.Context) {
	response.Success(c, h.service.ListPairs())
}

// PausePair 暂停交易对
func (h *Handler) PausePair(c *gin.Context) {
	if err := h.service.PausePair(c.Param("symbol")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"symbol": c.Param("symbol"), "status": "PAUSED"})
}

// ResumePair 恢复交易对
func (h *Handler) ResumePair(c *gin.Context) {
	if err := h.service.ResumePair(c.Param("symbol")); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"symbol": c.Param("symbol"), "status": "TRADING"})
}
