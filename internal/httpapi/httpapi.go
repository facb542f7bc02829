// Package httpapi exposes the fetch façade and the widget registry over
// HTTP for the browser dashboard. All state stays local; the API is the
// only surface the frontend talks to.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"finboard/internal/configstore"
	"finboard/internal/market"
	"finboard/internal/service"
	"finboard/internal/widgets"
)

// Handler wires the HTTP routes to the core services.
type Handler struct {
	svc      *service.Service
	configs  *configstore.Store
	registry *widgets.Registry
	logger   zerolog.Logger
}

// NewHandler constructs the API handler.
func NewHandler(svc *service.Service, configs *configstore.Store, registry *widgets.Registry, logger zerolog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		configs:  configs,
		registry: registry,
		logger:   logger.With().Str("component", "httpapi").Logger(),
	}
}

// Router builds the gin engine with all routes registered.
func (h *Handler) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.GET("/quotes/:symbol", h.getQuote)
		v1.GET("/quotes", h.getQuotes)
		v1.GET("/charts/:symbol", h.getChart)
		v1.GET("/gainers", h.getGainers)
		v1.GET("/news", h.getNews)

		v1.GET("/providers", h.listProviders)
		v1.POST("/providers", h.addProvider)
		v1.DELETE("/providers/:id", h.removeProvider)
		v1.POST("/providers/:id/test", h.testProvider)

		v1.GET("/widgets", h.listWidgets)
		v1.POST("/widgets", h.addWidget)
		v1.PATCH("/widgets/:id", h.updateWidget)
		v1.DELETE("/widgets/:id", h.removeWidget)
		v1.PUT("/widgets/:id/position", h.updatePosition)
		v1.PUT("/widgets/:id/size", h.updateSize)

		v1.GET("/dashboard/export", h.exportDashboard)
		v1.POST("/dashboard/import", h.importDashboard)
		v1.DELETE("/dashboard", h.clearDashboard)
	}

	return r
}

func providerParam(c *gin.Context) configstore.ProviderID {
	id := c.DefaultQuery("provider", string(configstore.ProviderAlphaVantage))
	return configstore.ProviderID(id)
}

func sendError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

// GET /api/v1/quotes/{symbol}
func (h *Handler) getQuote(c *gin.Context) {
	quote, err := h.svc.Quote(c.Request.Context(), c.Param("symbol"), providerParam(c))
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": quote})
}

// GET /api/v1/quotes?symbols=AAPL,MSFT
func (h *Handler) getQuotes(c *gin.Context) {
	raw := c.Query("symbols")
	if raw == "" {
		sendError(c, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	symbols := strings.Split(raw, ",")
	quotes := h.svc.Quotes(c.Request.Context(), symbols, providerParam(c))
	c.JSON(http.StatusOK, gin.H{"data": quotes})
}

// GET /api/v1/charts/{symbol}?interval=1M
func (h *Handler) getChart(c *gin.Context) {
	interval, err := market.ParseInterval(c.DefaultQuery("interval", string(market.Interval1M)))
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	points, err := h.svc.ChartSeries(c.Request.Context(), c.Param("symbol"), interval, providerParam(c))
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": points})
}

// GET /api/v1/gainers?limit=10
func (h *Handler) getGainers(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		sendError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Gainers(c.Request.Context(), providerParam(c), limit)})
}

// GET /api/v1/news?category=business&limit=10
func (h *Handler) getNews(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		sendError(c, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	category := c.DefaultQuery("category", "business")
	providerID := configstore.ProviderID(c.DefaultQuery("provider", string(configstore.ProviderNewsData)))
	c.JSON(http.StatusOK, gin.H{"data": h.svc.News(c.Request.Context(), category, limit, providerID)})
}

// GET /api/v1/providers
func (h *Handler) listProviders(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.svc.Providers()})
}

// POST /api/v1/providers
func (h *Handler) addProvider(c *gin.Context) {
	var cfg configstore.ProviderConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		sendError(c, http.StatusBadRequest, "invalid provider config payload")
		return
	}
	if err := h.configs.Add(cfg); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": gin.H{"provider": cfg.Provider}})
}

// DELETE /api/v1/providers/{id}
func (h *Handler) removeProvider(c *gin.Context) {
	if err := h.configs.Remove(configstore.ProviderID(c.Param("id"))); err != nil {
		h.logger.Error().Err(err).Str("provider", c.Param("id")).Msg("failed to remove provider config")
		sendError(c, http.StatusInternalServerError, "failed to remove provider config")
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/v1/providers/{id}/test
func (h *Handler) testProvider(c *gin.Context) {
	ok := h.svc.TestConnection(c.Request.Context(), configstore.ProviderID(c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"connected": ok}})
}

// GET /api/v1/widgets
func (h *Handler) listWidgets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": h.registry.List()})
}

// POST /api/v1/widgets
func (h *Handler) addWidget(c *gin.Context) {
	var w widgets.Widget
	if err := c.ShouldBindJSON(&w); err != nil {
		sendError(c, http.StatusBadRequest, "invalid widget payload")
		return
	}
	created, err := h.registry.Add(w)
	if err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": created})
}

// PATCH /api/v1/widgets/{id}
func (h *Handler) updateWidget(c *gin.Context) {
	var patch widgets.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		sendError(c, http.StatusBadRequest, "invalid widget patch payload")
		return
	}
	updated, err := h.registry.Update(c.Param("id"), patch)
	if err != nil {
		h.respondRegistryError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": updated})
}

// DELETE /api/v1/widgets/{id}
func (h *Handler) removeWidget(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		h.logger.Error().Err(err).Str("widget", c.Param("id")).Msg("failed to remove widget")
		sendError(c, http.StatusInternalServerError, "failed to remove widget")
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/widgets/{id}/position
func (h *Handler) updatePosition(c *gin.Context) {
	var pos widgets.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		sendError(c, http.StatusBadRequest, "invalid position payload")
		return
	}
	if err := h.registry.UpdatePosition(c.Param("id"), pos); err != nil {
		h.respondRegistryError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/widgets/{id}/size
func (h *Handler) updateSize(c *gin.Context) {
	var size widgets.Size
	if err := c.ShouldBindJSON(&size); err != nil {
		sendError(c, http.StatusBadRequest, "invalid size payload")
		return
	}
	if err := h.registry.UpdateSize(c.Param("id"), size); err != nil {
		h.respondRegistryError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/v1/dashboard/export
func (h *Handler) exportDashboard(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="finboard-dashboard.json"`)
	c.JSON(http.StatusOK, h.registry.Export())
}

// POST /api/v1/dashboard/import
func (h *Handler) importDashboard(c *gin.Context) {
	var env widgets.Envelope
	if err := c.ShouldBindJSON(&env); err != nil {
		sendError(c, http.StatusBadRequest, "invalid dashboard file")
		return
	}
	if err := h.registry.Import(env); err != nil {
		sendError(c, http.StatusBadRequest, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"widgets": len(env.Widgets)}})
}

// DELETE /api/v1/dashboard
func (h *Handler) clearDashboard(c *gin.Context) {
	if err := h.registry.Clear(); err != nil {
		h.logger.Error().Err(err).Msg("failed to clear dashboard")
		sendError(c, http.StatusInternalServerError, "failed to clear dashboard")
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondRegistryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, widgets.ErrNotFound):
		sendError(c, http.StatusNotFound, err.Error())
	default:
		sendError(c, http.StatusBadRequest, err.Error())
	}
}
