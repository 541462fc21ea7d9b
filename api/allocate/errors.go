package allocate

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	coreinsight "github.com/kilianp07/offload/core/insight"
	coremon "github.com/kilianp07/offload/core/monitoring"
	"github.com/kilianp07/offload/core/offload"
	"github.com/kilianp07/offload/core/prediction"
	"github.com/kilianp07/offload/infra/worldpop"
)

// inputError is a caller mistake reported as 400.
type inputError struct{ msg string }

func (e *inputError) Error() string { return e.msg }

func badInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

func statusFor(err error) int {
	var ie *inputError
	switch {
	case errors.As(err, &ie),
		errors.Is(err, offload.ErrNegativeBudget),
		errors.Is(err, prediction.ErrInvalidInput),
		errors.Is(err, coreinsight.ErrInvalidInput),
		errors.Is(err, worldpop.ErrMissingGeoJSON),
		errors.Is(err, worldpop.ErrInvalidGeoJSON):
		return http.StatusBadRequest
	case errors.Is(err, worldpop.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, worldpop.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": ...}. Non-validation failures are sent to
// the monitor tagged with the route.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		coremon.CaptureException(err, map[string]string{
			"module": "api",
			"route":  c.FullPath(),
			"status": fmt.Sprint(status),
		})
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
