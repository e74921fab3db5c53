package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"medqueue/internal/middleware"
	"medqueue/internal/queue"
	"medqueue/internal/response"
)

var errForbidden = errors.New("operation not allowed for this caller")

// writeEngineError maps an engine error onto a status and error code. Internal
// errors are logged with the request logger and hidden from the caller.
func writeEngineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errForbidden):
		fail(c, http.StatusForbidden, response.CodeForbidden, err.Error(), "")
		return
	}
	switch queue.Kind(err) {
	case queue.KindInvalidInput:
		fail(c, http.StatusBadRequest, response.CodeValidation, err.Error(), "")
	case queue.KindNotFound:
		fail(c, http.StatusNotFound, response.CodeNotFound, err.Error(), "")
	case queue.KindInvalidTransition:
		fail(c, http.StatusConflict, response.CodeInvalidTransition, err.Error(), "")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("queue operation failed")
		fail(c, http.StatusInternalServerError, response.CodeDB, "Internal error", "")
	}
}

func fail(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, response.ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	})
}

// pathID parses a positive integer path parameter, writing a 400 otherwise.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, http.StatusBadRequest, response.CodeValidation, name+" must be a positive integer", "")
		return 0, false
	}
	return uint(id), true
}
