package allocate

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) lookupPopulation(c *gin.Context) {
	body, err := decodeBody(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if geo, ok := body["geojson"]; !ok || geo == nil {
		h.respondError(c, badInput("Missing geojson"))
		return
	}
	q, err := queryFromBody(body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	res, err := h.resolvePopulation(c, q)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_population": res.TotalPopulation,
		"taskid":           res.TaskID,
		"cached":           res.Cached,
	})
}
