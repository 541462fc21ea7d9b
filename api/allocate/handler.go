// Package allocate exposes the allocation service over HTTP.
package allocate

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	coreinsight "github.com/kilianp07/offload/core/insight"
	"github.com/kilianp07/offload/core/logger"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/core/prediction"
	"github.com/kilianp07/offload/infra/worldpop"
	"github.com/kilianp07/offload/internal/eventbus"
)

// PopulationSource resolves the population inside an area.
type PopulationSource interface {
	Population(ctx context.Context, q worldpop.Query) (worldpop.Result, error)
}

// Handler serves the /api routes.
type Handler struct {
	svc        *offload.Service
	population PopulationSource
	estimator  prediction.Estimator
	insights   coreinsight.Generator
	bus        eventbus.EventBus
	log        logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

func WithPopulation(p PopulationSource) Option { return func(h *Handler) { h.population = p } }

func WithEstimator(e prediction.Estimator) Option { return func(h *Handler) { h.estimator = e } }

func WithInsights(g coreinsight.Generator) Option { return func(h *Handler) { h.insights = g } }

func WithBus(b eventbus.EventBus) Option { return func(h *Handler) { h.bus = b } }

func WithLogger(l logger.Logger) Option { return func(h *Handler) { h.log = l } }

// NewHandler builds a handler around svc. Prediction and insights default to
// the built-in heuristics.
func NewHandler(svc *offload.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		estimator: prediction.PowerModel{},
		insights:  coreinsight.PolicyGenerator{},
	}
	for _, o := range opts {
		o(h)
	}
	if h.log == nil {
		h.log = nopLogger{}
	}
	return h
}

// RegisterRoutes registers the allocation routes with the given router group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/health", h.health)
	allocate := r.Group("/allocate")
	{
		allocate.POST("", h.allocateRow)
		allocate.POST("/population", h.allocatePopulation)
	}
	r.POST("/population", h.lookupPopulation)
	r.POST("/predict-offload", h.predictOffload)
	r.POST("/policy", h.policy)
	r.POST("/insights", h.generateInsights)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Infow(string, map[string]any)  {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
