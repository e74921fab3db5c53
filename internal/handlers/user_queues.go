package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medqueue/internal/auth"
	"medqueue/internal/queue"
)

// GetUserQueues godoc
// @Summary		Queues the caller stands in today
// @Description	Lists the caller's WAITING, CALLED and IN_CONSULTATION entries across doctors with rank and estimated wait.
// @Tags			profile
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		queue.PatientQueue
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/profile/queues [get]
func (h *QueueHandler) GetUserQueues(c *gin.Context) {
	items, err := h.engine.PatientQueues(c.Request.Context(), auth.IdentityFrom(c).UserID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if items == nil {
		items = []queue.PatientQueue{}
	}
	c.JSON(http.StatusOK, items)
}
