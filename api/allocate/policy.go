package allocate

import (
	"net/http"

	"github.com/gin-gonic/gin"

	coreinsight "github.com/kilianp07/offload/core/insight"
	"github.com/kilianp07/offload/core/prediction"
)

type predictRequest struct {
	DCMetrics    prediction.DCMetrics `json:"dc_metrics"`
	Availability *float64             `json:"availability"`
}

type policyRequest struct {
	predictRequest
	MapData         *coreinsight.MapData         `json:"map_data"`
	ExternalFactors *coreinsight.ExternalFactors `json:"external_factors"`
}

func (h *Handler) predict(c *gin.Context, req predictRequest) (float64, error) {
	if req.Availability == nil {
		return 0, badInput("missing key: availability")
	}
	return h.estimator.PredictMW(c.Request.Context(), req.DCMetrics, *req.Availability)
}

func (h *Handler) predictOffload(c *gin.Context) {
	req := predictRequest{DCMetrics: prediction.DefaultDCMetrics()}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badInput("invalid JSON body: %v", err))
		return
	}
	mw, err := h.predict(c, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"power_to_offload_mw": mw})
}

// policy predicts the power to offload and feeds it to the insight generator.
func (h *Handler) policy(c *gin.Context) {
	req := policyRequest{predictRequest: predictRequest{DCMetrics: prediction.DefaultDCMetrics()}}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, badInput("invalid JSON body: %v", err))
		return
	}
	mw, err := h.predict(c, req.predictRequest)
	if err != nil {
		h.respondError(c, err)
		return
	}
	in := coreinsight.DefaultInput()
	in.PowerMW = &mw
	if req.MapData != nil {
		in.Map = *req.MapData
	}
	if req.ExternalFactors != nil {
		in.External = *req.ExternalFactors
	}
	out, err := h.insights.Generate(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"power_to_offload_mw": mw, "policy": out})
}

func (h *Handler) generateInsights(c *gin.Context) {
	in := coreinsight.DefaultInput()
	if err := c.ShouldBindJSON(&in); err != nil {
		h.respondError(c, badInput("invalid JSON body: %v", err))
		return
	}
	out, err := h.insights.Generate(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
