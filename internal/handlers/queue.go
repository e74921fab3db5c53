package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"medqueue/internal/auth"
	"medqueue/internal/models"
	"medqueue/internal/queue"
	"medqueue/internal/response"
)

// QueueEngine is the queue engine as seen by the REST facade.
type QueueEngine interface {
	JoinQueue(ctx context.Context, doctorID, patientID uint) (*models.QueueEntry, error)
	GetQueueStatus(ctx context.Context, doctorID uint) (*queue.Snapshot, error)
	GetPatientPosition(ctx context.Context, doctorID, patientID uint) (*queue.PatientPosition, error)
	CallNextPatient(ctx context.Context, doctorID uint) (*models.QueueEntry, error)
	MarkInConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	CompleteConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	CancelEntry(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	GetEntry(ctx context.Context, entryID uint) (*models.QueueEntry, uint, error)
	PatientQueues(ctx context.Context, patientID uint) ([]queue.PatientQueue, error)
}

// QueueHandler exposes the queue engine over REST. Every mutation is also
// broadcast to websocket watchers by the engine.
type QueueHandler struct {
	engine QueueEngine
}

func NewQueueHandler(engine QueueEngine) *QueueHandler {
	return &QueueHandler{engine: engine}
}

type JoinQueueRequest struct {
	DoctorID uint `json:"doctor_id" binding:"required,gt=0" example:"3"`
	// Defaults to the caller for patients
	PatientID uint `json:"patient_id" example:"12"`
}

type EntryResponse struct {
	Entry *models.QueueEntry `json:"entry"`
}

// Register mounts the queue routes on rg. mutate runs before every state
// changing route (rate limiting).
func (h *QueueHandler) Register(rg *gin.RouterGroup, mutate ...gin.HandlerFunc) {
	with := func(op auth.Operation, fn gin.HandlerFunc) []gin.HandlerFunc {
		chain := append([]gin.HandlerFunc{auth.RequireRoles(auth.RolesFor(op)...)}, mutate...)
		return append(chain, fn)
	}
	rg.GET("/status/:doctorId", auth.RequireRoles(auth.RolesFor(auth.OpStatus)...), h.GetQueueStatus)
	rg.GET("/position/:doctorId/:patientId", auth.RequireRoles(auth.RolesFor(auth.OpPosition)...), h.GetPatientPosition)
	rg.POST("/join", with(auth.OpJoin, h.JoinQueue)...)
	rg.POST("/call-next/:doctorId", with(auth.OpCallNext, h.CallNextPatient)...)
	rg.POST("/in-consultation/:entryId", with(auth.OpInConsultation, h.MarkInConsultation)...)
	rg.POST("/complete/:entryId", with(auth.OpComplete, h.CompleteConsultation)...)
	rg.POST("/cancel/:entryId", with(auth.OpCancel, h.CancelEntry)...)
}

// JoinQueue godoc
// @Summary		Join a doctor's queue
// @Description	Appends the patient to today's queue of the doctor. Joining again while WAITING or CALLED returns the existing entry.
// @Tags			queue
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			body	body		JoinQueueRequest		true	"Doctor and patient"
// @Success		200		{object}	EntryResponse
// @Failure		400		{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		403		{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404		{object}	response.ErrorResponse	"NOT_FOUND (doctor or patient)"
// @Failure		500		{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/join [post]
func (h *QueueHandler) JoinQueue(c *gin.Context) {
	var req JoinQueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}
	id := auth.IdentityFrom(c)
	if req.PatientID == 0 && id.Role == models.RolePatient {
		req.PatientID = id.UserID
	}
	if !id.CanActFor(req.PatientID) {
		writeEngineError(c, errForbidden)
		return
	}

	entry, err := h.engine.JoinQueue(c.Request.Context(), req.DoctorID, req.PatientID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, EntryResponse{Entry: entry})
}

// GetQueueStatus godoc
// @Summary		Today's queue of a doctor
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			doctorId	path		int	true	"Doctor ID"
// @Success		200			{object}	queue.Snapshot
// @Failure		400			{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		500			{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/status/{doctorId} [get]
func (h *QueueHandler) GetQueueStatus(c *gin.Context) {
	doctorID, ok := pathID(c, "doctorId")
	if !ok {
		return
	}
	snap, err := h.engine.GetQueueStatus(c.Request.Context(), doctorID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// GetPatientPosition godoc
// @Summary		Where a patient stands in today's queue
// @Description	Patients may only look up their own position.
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			doctorId	path		int	true	"Doctor ID"
// @Param			patientId	path		int	true	"Patient ID"
// @Success		200			{object}	queue.PatientPosition
// @Failure		403			{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404			{object}	response.ErrorResponse	"NOT_FOUND"
// @Router			/api/queue/position/{doctorId}/{patientId} [get]
func (h *QueueHandler) GetPatientPosition(c *gin.Context) {
	doctorID, ok := pathID(c, "doctorId")
	if !ok {
		return
	}
	patientID, ok := pathID(c, "patientId")
	if !ok {
		return
	}
	if !auth.IdentityFrom(c).CanActFor(patientID) {
		writeEngineError(c, errForbidden)
		return
	}
	pos, err := h.engine.GetPatientPosition(c.Request.Context(), doctorID, patientID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, pos)
}

// CallNextPatient godoc
// @Summary		Call the next waiting patient
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			doctorId	path		int	true	"Doctor ID"
// @Success		200			{object}	EntryResponse
// @Success		204			"Nobody is waiting"
// @Failure		403			{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		500			{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/queue/call-next/{doctorId} [post]
func (h *QueueHandler) CallNextPatient(c *gin.Context) {
	doctorID, ok := pathID(c, "doctorId")
	if !ok {
		return
	}
	entry, err := h.engine.CallNextPatient(c.Request.Context(), doctorID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	if entry == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, EntryResponse{Entry: entry})
}

// MarkInConsultation godoc
// @Summary		Start the consultation of a called patient
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			entryId	path		int	true	"Queue entry ID"
// @Success		200		{object}	EntryResponse
// @Failure		404		{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		409		{object}	response.ErrorResponse	"INVALID_TRANSITION"
// @Router			/api/queue/in-consultation/{entryId} [post]
func (h *QueueHandler) MarkInConsultation(c *gin.Context) {
	h.transition(c, h.engine.MarkInConsultation)
}

// CompleteConsultation godoc
// @Summary		Finish a consultation
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			entryId	path		int	true	"Queue entry ID"
// @Success		200		{object}	EntryResponse
// @Failure		404		{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		409		{object}	response.ErrorResponse	"INVALID_TRANSITION"
// @Router			/api/queue/complete/{entryId} [post]
func (h *QueueHandler) CompleteConsultation(c *gin.Context) {
	h.transition(c, h.engine.CompleteConsultation)
}

// CancelEntry godoc
// @Summary		Leave the queue
// @Description	Cancels a WAITING or CALLED entry. Patients may only cancel their own entries.
// @Tags			queue
// @Produce		json
// @Security		BearerAuth
// @Param			entryId	path		int	true	"Queue entry ID"
// @Success		200		{object}	EntryResponse
// @Failure		403		{object}	response.ErrorResponse	"FORBIDDEN"
// @Failure		404		{object}	response.ErrorResponse	"NOT_FOUND"
// @Failure		409		{object}	response.ErrorResponse	"INVALID_TRANSITION"
// @Router			/api/queue/cancel/{entryId} [post]
func (h *QueueHandler) CancelEntry(c *gin.Context) {
	h.transition(c, h.engine.CancelEntry)
}

func (h *QueueHandler) transition(c *gin.Context, fn func(context.Context, uint) (*models.QueueEntry, error)) {
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if id := auth.IdentityFrom(c); id.Role == models.RolePatient {
		entry, _, err := h.engine.GetEntry(ctx, entryID)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		if !id.CanActFor(entry.PatientID) {
			writeEngineError(c, errForbidden)
			return
		}
	}
	entry, err := fn(ctx, entryID)
	if err != nil {
		writeEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, EntryResponse{Entry: entry})
}
