package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gorilla/websocket"

	"medqueue/internal/auth"
	"medqueue/internal/models"
	"medqueue/internal/queue"
	"medqueue/internal/response"
)

const operationTimeout = 10 * time.Second

// Engine is the part of the queue engine the gateway drives.
type Engine interface {
	JoinQueue(ctx context.Context, doctorID, patientID uint) (*models.QueueEntry, error)
	GetQueueStatus(ctx context.Context, doctorID uint) (*queue.Snapshot, error)
	CallNextPatient(ctx context.Context, doctorID uint) (*models.QueueEntry, error)
	MarkInConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	CompleteConsultation(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	CancelEntry(ctx context.Context, entryID uint) (*models.QueueEntry, error)
	GetEntry(ctx context.Context, entryID uint) (*models.QueueEntry, uint, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

var errForbidden = errors.New("operation not allowed")

type Handler struct {
	hub    *Hub
	engine Engine
}

func NewHandler(hub *Hub, engine Engine) *Handler {
	return &Handler{hub: hub, engine: engine}
}

// ServeWS upgrades the request and registers the client. An optional
// doctor_id query parameter subscribes the client right away.
// @Summary		Realtime queue channel
// @Description	Websocket endpoint. Messages are {"event","request_id","data"} envelopes; see the README for the event list.
// @Tags			queue
// @Security		BearerAuth
// @Param			token		query	string	false	"Access token when the Authorization header cannot be set"
// @Param			doctor_id	query	int		false	"Doctor to watch on connect"
// @Success		101	{string}	string	"Switching Protocols"
// @Failure		401	{object}	response.ErrorResponse
// @Router			/api/queue/ws [get]
func (h *Handler) ServeWS(c *gin.Context) {
	var watchOnConnect uint
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, response.ErrorResponse{
				Code:    response.CodeValidation,
				Message: "doctor_id must be a positive integer",
			})
			return
		}
		watchOnConnect = uint(id)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader already wrote the HTTP error
		return
	}

	client := newClient(h.hub, conn, auth.IdentityFrom(c))
	h.hub.Register(client)
	if watchOnConnect != 0 {
		h.hub.Watch(client, watchOnConnect)
	}
	client.log.Debug().Msg("websocket connected")

	go client.writePump()
	go client.readPump(h.handleMessage)
}

func (h *Handler) handleMessage(c *Client, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		h.replyError(c, env.RequestID, response.CodeValidation, "message must be a JSON envelope with an event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	data, err := h.dispatch(ctx, c, env)
	if err != nil {
		code, msg := errorCode(err)
		if code == response.CodeDB {
			c.log.Error().Err(err).Str("event", env.Event).Msg("websocket operation failed")
		}
		h.replyError(c, env.RequestID, code, msg)
		return
	}
	payload, err := encode(env.Event, env.RequestID, data)
	if err != nil {
		c.log.Error().Err(err).Str("event", env.Event).Msg("encode reply")
		return
	}
	h.hub.Send(c, payload)
}

func (h *Handler) dispatch(ctx context.Context, c *Client, env Envelope) (any, error) {
	switch env.Event {
	case EventWatch, EventUnwatch:
		var req DoctorRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}
		if env.Event == EventWatch {
			h.hub.Watch(c, req.DoctorID)
		} else {
			h.hub.Unwatch(c, req.DoctorID)
		}
		return WatchData{DoctorID: req.DoctorID}, nil

	case EventGetQueueStatus:
		var req DoctorRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}
		if err := allow(c, auth.OpStatus); err != nil {
			return nil, err
		}
		h.hub.Watch(c, req.DoctorID)
		snap, err := h.engine.GetQueueStatus(ctx, req.DoctorID)
		if err != nil {
			return nil, err
		}
		return QueueData{Queue: *snap}, nil

	case EventJoinQueue:
		var req JoinRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}
		if err := allow(c, auth.OpJoin); err != nil {
			return nil, err
		}
		if req.PatientID == 0 && c.Identity.Role == models.RolePatient {
			req.PatientID = c.Identity.UserID
		}
		if !c.Identity.CanActFor(req.PatientID) {
			return nil, errForbidden
		}
		// subscribe first so the caller also sees its own join broadcast
		added := h.hub.WatchNew(c, req.DoctorID)
		entry, err := h.engine.JoinQueue(ctx, req.DoctorID, req.PatientID)
		if err != nil {
			if added {
				h.hub.Unwatch(c, req.DoctorID)
			}
			return nil, err
		}
		return EntryData{Entry: entry}, nil

	case EventCallNextPatient:
		var req DoctorRequest
		if err := decode(env.Data, &req); err != nil {
			return nil, err
		}
		if err := allow(c, auth.OpCallNext); err != nil {
			return nil, err
		}
		entry, err := h.engine.CallNextPatient(ctx, req.DoctorID)
		if err != nil {
			return nil, err
		}
		return EntryData{Entry: entry}, nil

	case EventMarkInConsultation:
		return h.entryOp(ctx, c, env, auth.OpInConsultation, h.engine.MarkInConsultation)
	case EventCompleteConsultation:
		return h.entryOp(ctx, c, env, auth.OpComplete, h.engine.CompleteConsultation)
	case EventLeaveQueue:
		return h.entryOp(ctx, c, env, auth.OpCancel, h.engine.CancelEntry)
	}
	return nil, &unknownEventError{event: env.Event}
}

func (h *Handler) entryOp(
	ctx context.Context,
	c *Client,
	env Envelope,
	op auth.Operation,
	fn func(context.Context, uint) (*models.QueueEntry, error),
) (any, error) {
	var req EntryRequest
	if err := decode(env.Data, &req); err != nil {
		return nil, err
	}
	if err := allow(c, op); err != nil {
		return nil, err
	}
	if c.Identity.Role == models.RolePatient {
		entry, _, err := h.engine.GetEntry(ctx, req.EntryID)
		if err != nil {
			return nil, err
		}
		if !c.Identity.CanActFor(entry.PatientID) {
			return nil, errForbidden
		}
	}
	entry, err := fn(ctx, req.EntryID)
	if err != nil {
		return nil, err
	}
	return EntryData{Entry: entry}, nil
}

func (h *Handler) replyError(c *Client, requestID, code, message string) {
	payload, err := encode(EventError, requestID, ErrorData{Code: code, Message: message})
	if err != nil {
		return
	}
	h.hub.Send(c, payload)
}

func allow(c *Client, op auth.Operation) error {
	if !auth.Allowed(c.Identity.Role, op) {
		return errForbidden
	}
	return nil
}

type validationError struct{ err error }

func (e *validationError) Error() string { return e.err.Error() }

type unknownEventError struct{ event string }

func (e *unknownEventError) Error() string { return "unknown event " + strconv.Quote(e.event) }

// decode unmarshals and validates a request payload with gin's validator.
func decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &validationError{err: err}
	}
	if err := binding.Validator.ValidateStruct(v); err != nil {
		return &validationError{err: err}
	}
	return nil
}

// errorCode maps an error to the code and message sent to the client.
func errorCode(err error) (string, string) {
	var (
		verr *validationError
		uerr *unknownEventError
	)
	switch {
	case errors.As(err, &verr):
		return response.CodeValidation, verr.Error()
	case errors.As(err, &uerr):
		return response.CodeValidation, uerr.Error()
	case errors.Is(err, errForbidden):
		return response.CodeForbidden, err.Error()
	}
	switch queue.Kind(err) {
	case queue.KindNotFound:
		return response.CodeNotFound, err.Error()
	case queue.KindInvalidTransition:
		return response.CodeInvalidTransition, err.Error()
	case queue.KindInvalidInput:
		return response.CodeValidation, err.Error()
	}
	return response.CodeDB, "internal error"
}
