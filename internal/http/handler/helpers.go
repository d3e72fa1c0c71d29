package handler

import (
	"errors"
	"net/http"

	"github.com/edgemux/restream-server/internal/domain/restream"
	"github.com/edgemux/restream-server/internal/dvr"
	"github.com/edgemux/restream-server/internal/service"
	"github.com/edgemux/restream-server/pkg/jsonx"
	"github.com/gin-gonic/gin"
)

// bind strictly decodes the JSON request body into dst, responding 400 on
// any structural problem. Returns false when the request was rejected.
func bind[T any](c *gin.Context, dst *T) bool {
	if err := jsonx.ParseStrictJSONBody(c.Request, dst); err != nil {
		c.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return false
	}
	return true
}

// respondError maps the failure taxonomy onto HTTP statuses:
//
//	ErrInvalidInput → 400   ErrAuthFailed → 401   ErrNotFound → 404
//	ErrConflict     → 409   ErrLocked     → 423   ErrWorkerStart → 502
//
// Anything else is a 500.
func respondError(c *gin.Context, err error) {
	c.Error(err)

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, restream.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAuthFailed):
		status = http.StatusUnauthorized
	case errors.Is(err, restream.ErrNotFound), errors.Is(err, dvr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, restream.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrLocked):
		status = http.StatusLocked
	case errors.Is(err, service.ErrWorkerStart):
		status = http.StatusBadGateway
	}

	c.JSON(status, gin.H{"message": err.Error()})
}

// pathRestreamID parses the :id path parameter, responding 400 on a
// malformed value. ok=false means the response was already written.
func pathRestreamID(c *gin.Context) (restream.RestreamID, bool) {
	id, err := restream.ParseRestreamID(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return id, true
}

// pathOutputID parses the :oid path parameter.
func pathOutputID(c *gin.Context) (restream.OutputID, bool) {
	id, err := restream.ParseOutputID(c.Param("oid"))
	if err != nil {
		respondError(c, err)
		return "", false
	}
	return id, true
}
