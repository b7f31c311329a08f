package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/errs"
	"github.com/02loveslollipop/Shizuku-dataset-viewer/services/api/ingest"
)

// statusFor maps classified errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound), errors.Is(err, ingest.ErrSlotNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrDuplicateName),
		errors.Is(err, errs.ErrDuplicateURL),
		errors.Is(err, ingest.ErrSlotOccupied),
		errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, ingest.ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errs.IsKind(err, errs.KindConfiguration):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	if k, ok := errs.KindOf(err); ok {
		body["kind"] = k.String()
	}
	c.JSON(statusFor(err), body)
}
