package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/guardpost/internal/apperr"
	"go.uber.org/zap"
)

// errorStatus maps an apperr kind to its HTTP status and wire code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, apperr.ErrAuthorization):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperr.ErrConflict):
		// State failures are 400 on the wire; the code keeps them apart
		// from validation errors.
		return http.StatusBadRequest, "conflict"
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	}
	return http.StatusInternalServerError, "internal"
}

// writeError renders err as {"error", "code"}. Anything that is not an
// apperr kind is logged and answered with a generic 500.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{
		"error": apperr.Message(err, "internal server error"),
		"code":  code,
	})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "validation"})
}

// paramID parses the uuid path parameter name. On failure it writes a 400
// and returns false.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// decodeStrict decodes the request body into dst and fails on keys dst
// does not declare.
func decodeStrict(c *gin.Context, dst any) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
