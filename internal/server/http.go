package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xtding233/wish-backend/internal/config"
	"github.com/xtding233/wish-backend/internal/wish"
)

// HTTP exposes the engine as a JSON API.
type HTTP struct {
	engine *wish.Engine
	loader *config.Loader
	log    *zap.Logger
}

// NewHTTP builds the handler set. loader may be nil, which disables /reload.
func NewHTTP(engine *wish.Engine, loader *config.Loader, log *zap.Logger) *HTTP {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTP{engine: engine, loader: loader, log: log}
}

// Router returns a gin engine with recovery, request logging and all routes.
func (h *HTTP) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), accessLog(h.log))
	h.RegisterRoutes(r)
	return r
}

func (h *HTTP) RegisterRoutes(r gin.IRouter) {
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.POST("/wish", h.PerformWish)
	r.GET("/status", h.Status)
	r.GET("/pools", h.Pools)
	r.GET("/history", h.History)
	r.POST("/tickets", h.AddTickets)
	r.POST("/reload", h.Reload)
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

type wishRequest struct {
	Account string `json:"account" binding:"required"`
	Pool    string `json:"pool" binding:"required"`
	Count   int    `json:"count"`
}

type ticketRequest struct {
	Account string `json:"account" binding:"required"`
	Ticket  string `json:"ticket" binding:"required"`
	Delta   int    `json:"delta"`
}

// httpStatus maps a wish failure to a response code.
func httpStatus(r wish.Reason) int {
	switch r {
	case wish.InvalidCount, wish.InvalidAccount:
		return http.StatusBadRequest
	case wish.PoolMissing, wish.UnknownTicket:
		return http.StatusNotFound
	case wish.PoolNotActive:
		return http.StatusForbidden
	case wish.LimitReached:
		return http.StatusTooManyRequests
	case wish.CostInsufficient:
		return http.StatusPaymentRequired
	case wish.CostFailure:
		return http.StatusConflict
	case wish.LedgerUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (h *HTTP) fail(c *gin.Context, err error) {
	reason := wish.ReasonOf(err)
	if reason == "" {
		h.log.Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal", "detail": err.Error()})
		return
	}
	c.JSON(httpStatus(reason), gin.H{"error": string(reason), "detail": err.Error()})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": err.Error()})
}

func (h *HTTP) PerformWish(c *gin.Context) {
	var req wishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.engine.PerformWish(c.Request.Context(), req.Account, req.Pool, req.Count)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *HTTP) Status(c *gin.Context) {
	acct, pool := c.Query("account"), c.Query("pool")
	if acct == "" || pool == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": "account and pool are required"})
		return
	}
	st, err := h.engine.QueryStatus(c.Request.Context(), acct, pool)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

type poolView struct {
	ID         string             `json:"id"`
	CountsName string             `json:"counts_name"`
	MaxCount   int                `json:"max_count"`
	MaxPerWish int                `json:"max_per_wish"`
	Costs      map[int]int        `json:"costs"`
	AutoCost   bool               `json:"auto_cost"`
	Active     bool               `json:"active"`
	Limit      *limitView         `json:"limit,omitempty"`
	Display    config.PoolDisplay `json:"display"`
	Items      []itemView         `json:"items"`
	Guarantee  []itemView         `json:"guarantee_items,omitempty"`
}

type limitView struct {
	Count  int   `json:"count"`
	Millis int64 `json:"window_ms"`
}

type itemView struct {
	Key    string  `json:"key"`
	Weight float64 `json:"weight"`
	Chance float64 `json:"chance"`
	Nested bool    `json:"nested,omitempty"`
}

func (h *HTTP) Pools(c *gin.Context) {
	now := time.Now()
	pools := h.engine.Pools()
	out := make([]poolView, 0, len(pools))
	for _, p := range pools {
		v := poolView{
			ID:         p.ID,
			CountsName: p.CountsName,
			MaxCount:   p.MaxCount,
			MaxPerWish: p.PerWishCap(),
			Costs:      p.Costs.Prices,
			AutoCost:   p.Costs.Auto,
			Active:     p.IsActive(now),
			Display:    p.Display,
			Items:      items(p.Items),
			Guarantee:  items(p.GuaranteeItems),
		}
		if p.Limit != nil {
			v.Limit = &limitView{Count: p.Limit.Count, Millis: p.Limit.Every.Milliseconds()}
		}
		out = append(out, v)
	}
	c.JSON(http.StatusOK, gin.H{"pools": out})
}

func (h *HTTP) History(c *gin.Context) {
	acct := c.Query("account")
	if acct == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad_request", "detail": "account is required"})
		return
	}
	hist, err := h.engine.History(c.Request.Context(), acct)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": acct, "history": hist})
}

func (h *HTTP) AddTickets(c *gin.Context) {
	var req ticketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	n, err := h.engine.AddTickets(c.Request.Context(), req.Account, req.Ticket, req.Delta)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"account": req.Account, "ticket": req.Ticket, "balance": n})
}

func (h *HTTP) Reload(c *gin.Context) {
	if h.loader == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "unavailable", "detail": "no config loader attached"})
		return
	}
	if err := h.engine.Reload(h.loader); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "invalid_config", "detail": err.Error()})
		return
	}
	snap := h.engine.Snapshot()
	c.JSON(http.StatusOK, gin.H{"version": snap.Version, "pools": snap.Order})
}
