package apihttp

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"tradebot/internal/gateway/exchange"
	"tradebot/internal/pkg/circuit"
	"tradebot/internal/pkg/symbol"
	"tradebot/internal/position"
	"tradebot/internal/store/model"
	"tradebot/internal/trading"

	"github.com/gin-gonic/gin"
)

type PositionReader interface {
	GetAllPositions() []position.Position
	GetClosedPositions() []position.Position
	LastRefresh() time.Time
}

type DrawdownChecker interface {
	CheckDrawdownLimits(ctx context.Context) []string
}

type JournalReader interface {
	RecentOrders(ctx context.Context, symbol string, limit int) ([]model.OrderModel, error)
	RecentSignals(ctx context.Context, symbol string, limit int) ([]model.SignalLogModel, error)
	RecentClosed(ctx context.Context, symbol string, limit int) ([]model.ClosedPositionModel, error)
	RealizedPnL(ctx context.Context, symbol string) (float64, error)
}

type Exiter interface {
	Exit(ctx context.Context, symbol, reason string) (*exchange.OrderResult, bool, error)
}

type BreakerReporter interface {
	Snapshot() circuit.Snapshot
}

type CycleReporter interface {
	LastCycle() (trading.CycleReport, int)
}

// Deps are the collaborators behind the routes. Only Positions is required;
// routes whose dependency is nil answer 503.
type Deps struct {
	Positions   PositionReader
	Risk        DrawdownChecker
	MaxDrawdown float64
	Journal     JournalReader
	Exiter      Exiter
	Cycles      CycleReporter
	Breaker     BreakerReporter
	DryRun      bool
	Now         func() time.Time
}

type Router struct {
	deps Deps
}

func NewRouter(deps Deps) *Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Router{deps: deps}
}

func (r *Router) Register(router gin.IRouter) {
	router.GET("/healthz", r.handleHealth)
	api := router.Group("/api")
	api.GET("/positions", r.handlePositions)
	api.GET("/positions/closed", r.handleClosed)
	api.POST("/positions/close", r.handleClose)
	api.GET("/risk/drawdown", r.handleDrawdown)
	api.GET("/orders", r.handleOrders)
	api.GET("/signals", r.handleSignals)
}

// PositionView is a position plus its derived metrics.
type PositionView struct {
	position.Position
	Value       float64 `json:"value"`
	DrawdownPct float64 `json:"drawdown_pct"`
	ProfitPct   float64 `json:"profit_pct"`
	HeldSeconds int64   `json:"held_seconds"`
}

func newView(p position.Position, now time.Time) PositionView {
	return PositionView{
		Position:    p,
		Value:       p.Value(),
		DrawdownPct: p.DrawdownPct(),
		ProfitPct:   p.ProfitPct(),
		HeldSeconds: int64(p.Duration(now) / time.Second),
	}
}

func (r *Router) handleHealth(c *gin.Context) {
	body := gin.H{
		"status":       "ok",
		"dry_run":      r.deps.DryRun,
		"last_refresh": r.deps.Positions.LastRefresh(),
	}
	if r.deps.Cycles != nil {
		last, n := r.deps.Cycles.LastCycle()
		body["cycles"] = n
		body["last_cycle"] = last.StartedAt
	}
	if r.deps.Breaker != nil {
		snap := r.deps.Breaker.Snapshot()
		body["exchange"] = snap
		if snap.State == circuit.StateOpen {
			body["status"] = "degraded"
		}
	}
	c.JSON(http.StatusOK, body)
}

func (r *Router) handlePositions(c *gin.Context) {
	now := r.deps.Now()
	positions := r.deps.Positions.GetAllPositions()
	views := make([]PositionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, newView(p, now))
	}
	c.JSON(http.StatusOK, gin.H{"positions": views, "count": len(views)})
}

// handleClosed answers from the tracker's bounded history by default and
// from the journal archive with ?source=archive.
func (r *Router) handleClosed(c *gin.Context) {
	sym := symbol.Canonical(strings.TrimSpace(c.Query("symbol")))
	limit := queryLimit(c, 100)
	if strings.EqualFold(c.Query("source"), "archive") {
		if r.deps.Journal == nil {
			unavailable(c, "journal")
			return
		}
		ctx := c.Request.Context()
		recs, err := r.deps.Journal.RecentClosed(ctx, sym, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		pnl, err := r.deps.Journal.RealizedPnL(ctx, sym)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"closed": recs, "realized_pnl": pnl})
		return
	}

	history := r.deps.Positions.GetClosedPositions()
	out := make([]position.Position, 0, len(history))
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		if sym != "" && history[i].Symbol != sym {
			continue
		}
		out = append(out, history[i])
	}
	c.JSON(http.StatusOK, gin.H{"closed": out})
}

func (r *Router) handleDrawdown(c *gin.Context) {
	if r.deps.Risk == nil {
		unavailable(c, "risk manager")
		return
	}
	breached := r.deps.Risk.CheckDrawdownLimits(c.Request.Context())
	if breached == nil {
		breached = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"breached": breached, "max_drawdown": r.deps.MaxDrawdown})
}

type closeRequest struct {
	Symbol string `json:"symbol" binding:"required"`
	Reason string `json:"reason"`
}

func (r *Router) handleClose(c *gin.Context) {
	if r.deps.Exiter == nil {
		unavailable(c, "executor")
		return
	}
	var req closeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "manual"
	}
	res, closed, err := r.deps.Exiter.Exit(c.Request.Context(), req.Symbol, reason)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if !closed {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open position", "symbol": symbol.Canonical(req.Symbol)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": true, "order": res})
}

func (r *Router) handleOrders(c *gin.Context) {
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	orders, err := r.deps.Journal.RecentOrders(c.Request.Context(), symbol.Canonical(c.Query("symbol")), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (r *Router) handleSignals(c *gin.Context) {
	if r.deps.Journal == nil {
		unavailable(c, "journal")
		return
	}
	logs, err := r.deps.Journal.RecentSignals(c.Request.Context(), symbol.Canonical(c.Query("symbol")), queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"signals": logs})
}

func queryLimit(c *gin.Context, def int) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || n <= 0 {
		return def
	}
	return min(n, 500)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " not enabled"})
}
