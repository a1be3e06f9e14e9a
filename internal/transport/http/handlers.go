package enginehttp

import (
	"net/http"

	"normex/internal/engine"
	"normex/internal/exchange"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type handlers struct {
	engine *engine.Engine
}

type openPositionRequest struct {
	Venue        string  `json:"venue" binding:"required"`
	Symbol       string  `json:"symbol" binding:"required"`
	Side         string  `json:"side" binding:"required"`
	Mode         string  `json:"mode"`
	USDAmount    float64 `json:"usd_amount"`
	Leverage     int     `json:"leverage"`
	BaseQuantity float64 `json:"base_quantity"`
	LimitPrice   float64 `json:"limit_price"`
	TimeInForce  string  `json:"time_in_force"`
	ReduceOnly   bool    `json:"reduce_only"`
}

func (h *handlers) openPosition(c *gin.Context) {
	var req openPositionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sizing := exchange.SizeFromUSD(decimal.NewFromFloat(req.USDAmount), req.Leverage)
	if req.BaseQuantity > 0 {
		sizing = exchange.SizeFromBase(decimal.NewFromFloat(req.BaseQuantity))
	}
	mode := exchange.ModeMarket
	if req.Mode != "" {
		mode = exchange.OrderMode(req.Mode)
	}
	intent := exchange.OrderIntent{
		Venue:       venue,
		Symbol:      req.Symbol,
		Side:        exchange.Side(req.Side),
		Mode:        mode,
		Sizing:      sizing,
		LimitPrice:  decimal.NewFromFloat(req.LimitPrice),
		TimeInForce: exchange.TimeInForce(req.TimeInForce),
		ReduceOnly:  req.ReduceOnly,
	}
	writeResult(c, h.engine.OpenPosition(c.Request.Context(), intent))
}

type triggerRequest struct {
	Venue        string  `json:"venue" binding:"required"`
	Symbol       string  `json:"symbol" binding:"required"`
	Kind         string  `json:"kind" binding:"required"`
	Side         string  `json:"side" binding:"required"`
	TriggerPrice float64 `json:"trigger_price"`
	CallbackRate float64 `json:"callback_rate"`
	LimitPrice   float64 `json:"limit_price"`
	Quantity     float64 `json:"quantity" binding:"required"`
}

func (h *handlers) placeTrigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeResult(c, h.engine.PlaceTrigger(c.Request.Context(), exchange.TriggerOrderIntent{
		Venue:        venue,
		Symbol:       req.Symbol,
		Kind:         exchange.TriggerKind(req.Kind),
		Side:         exchange.Side(req.Side),
		TriggerPrice: decimal.NewFromFloat(req.TriggerPrice),
		CallbackRate: decimal.NewFromFloat(req.CallbackRate),
		LimitPrice:   decimal.NewFromFloat(req.LimitPrice),
		Quantity:     decimal.NewFromFloat(req.Quantity),
	}))
}

type closeRequest struct {
	Venue    string  `json:"venue" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Fraction float64 `json:"fraction" binding:"required"`
}

func (h *handlers) closePosition(c *gin.Context) {
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	writeResult(c, h.engine.ClosePosition(c.Request.Context(), engine.CloseRequest{
		Venue:    venue,
		Symbol:   req.Symbol,
		Fraction: decimal.NewFromFloat(req.Fraction),
	}))
}

type tpSlRequest struct {
	Venue             string  `json:"venue" binding:"required"`
	Symbol            string  `json:"symbol" binding:"required"`
	TakeProfitPrice   float64 `json:"take_profit_price"`
	TakeProfitPercent float64 `json:"take_profit_percent"`
	StopLossPrice     float64 `json:"stop_loss_price"`
	StopLossPercent   float64 `json:"stop_loss_percent"`
}

func target(price, percent float64) *engine.Target {
	if price <= 0 && percent <= 0 {
		return nil
	}
	return &engine.Target{
		Price:   decimal.NewFromFloat(price),
		Percent: decimal.NewFromFloat(percent),
	}
}

func (h *handlers) setTpSl(c *gin.Context) {
	var req tpSlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.engine.SetTpSl(c.Request.Context(), engine.TpSlRequest{
		Venue:      venue,
		Symbol:     req.Symbol,
		TakeProfit: target(req.TakeProfitPrice, req.TakeProfitPercent),
		StopLoss:   target(req.StopLossPrice, req.StopLossPercent),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     res.Success(),
		"take_profit": resultBody(res.TakeProfit),
		"stop_loss":   resultBody(res.StopLoss),
	})
}

type leverageRequest struct {
	Venue    string `json:"venue" binding:"required"`
	Symbol   string `json:"symbol" binding:"required"`
	Leverage int    `json:"leverage" binding:"required"`
}

func (h *handlers) setLeverage(c *gin.Context) {
	var req leverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetLeverage(c.Request.Context(), venue, req.Symbol, req.Leverage); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) getLeverage(c *gin.Context) {
	venue, err := exchange.ParseVenue(c.Param("venue"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	lev, err := h.engine.Leverage(c.Request.Context(), venue, c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"leverage": lev})
}

type marginModeRequest struct {
	Venue  string `json:"venue" binding:"required"`
	Symbol string `json:"symbol" binding:"required"`
	Mode   string `json:"mode" binding:"required"`
}

func (h *handlers) setMarginMode(c *gin.Context) {
	var req marginModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.SetMarginMode(c.Request.Context(), venue, req.Symbol, exchange.MarginMode(req.Mode)); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type cancelRequest struct {
	Venue   string `json:"venue" binding:"required"`
	Symbol  string `json:"symbol" binding:"required"`
	OrderID string `json:"order_id"`
}

func (h *handlers) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}
	if err := h.engine.CancelOrder(c.Request.Context(), venue, req.Symbol, req.OrderID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) cancelAllOrders(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	venue, err := exchange.ParseVenue(req.Venue)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.engine.CancelAllOrders(c.Request.Context(), venue, req.Symbol); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *handlers) getPosition(c *gin.Context) {
	venue, err := exchange.ParseVenue(c.Param("venue"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pos, err := h.engine.Position(c.Request.Context(), venue, c.Param("symbol"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if pos == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": exchange.KindPositionNotFound.Category()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"venue":          pos.Venue,
		"symbol":         pos.Symbol,
		"side":           pos.Side,
		"size":           pos.Size,
		"entry_price":    pos.EntryPrice,
		"mark_price":     pos.MarkPrice,
		"leverage":       pos.Leverage,
		"margin_mode":    pos.MarginMode,
		"unrealized_pnl": pos.UnrealizedPnl,
	})
}

func (h *handlers) balances(c *gin.Context) {
	balances, err := h.engine.Balances(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, balances)
}

func resultBody(res *exchange.ExecutionResult) gin.H {
	if res == nil {
		return nil
	}
	body := gin.H{"success": res.Success, "order_id": res.OrderID, "status": res.Status}
	if res.Err != nil {
		body["error"] = res.Err.Kind.Category()
		body["kind"] = res.Err.Kind
		body["detail"] = res.Err.Raw
	}
	return body
}

func writeResult(c *gin.Context, res exchange.ExecutionResult) {
	if !res.Success {
		status := http.StatusBadGateway
		if res.Err != nil {
			status = statusFor(res.Err.Kind)
		}
		c.JSON(status, resultBody(&res))
		return
	}
	c.JSON(http.StatusOK, resultBody(&res))
}
