package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"medqueue/internal/middleware"
	"medqueue/internal/models"
	"medqueue/internal/response"
)

const (
	doctorsCacheKey = "medqueue:doctors"
	doctorsCacheTTL = 5 * time.Minute
)

type DoctorLister interface {
	ListDoctors(ctx context.Context) ([]models.User, error)
}

// Doctor is a directory entry clients pick a queue from.
type Doctor struct {
	ID      uint   `json:"id" example:"3"`
	Name    string `json:"name" example:"Ivan"`
	Surname string `json:"surname" example:"Sokolov"`
}

type DoctorsResponse struct {
	Items []Doctor `json:"items"`
	Total int      `json:"total"`
}

// DoctorHandler serves the read-only doctor directory. The list is cached in
// redis when a cache is configured.
type DoctorHandler struct {
	users DoctorLister
	cache redis.Cmdable
}

// NewDoctorHandler builds the handler; cache may be nil.
func NewDoctorHandler(users DoctorLister, cache redis.Cmdable) *DoctorHandler {
	return &DoctorHandler{users: users, cache: cache}
}

// ListDoctors godoc
// @Summary		List doctors
// @Description	Returns every doctor; the result is cached in Redis for five minutes.
// @Tags			doctors
// @Produce		json
// @Security		BearerAuth
// @Success		200	{object}	DoctorsResponse
// @Failure		500	{object}	response.ErrorResponse	"DB_ERROR"
// @Router			/api/doctors [get]
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	ctx := c.Request.Context()
	log := middleware.LoggerFrom(c)

	if h.cache != nil {
		cached, err := h.cache.Get(ctx, doctorsCacheKey).Bytes()
		if err == nil {
			var resp DoctorsResponse
			if err := json.Unmarshal(cached, &resp); err == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		} else if err != redis.Nil {
			log.Warn().Err(err).Msg("doctor cache read failed")
		}
	}

	users, err := h.users.ListDoctors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("list doctors")
		fail(c, http.StatusInternalServerError, response.CodeDB, "Could not load doctors", "")
		return
	}
	resp := DoctorsResponse{Items: make([]Doctor, 0, len(users)), Total: len(users)}
	for _, u := range users {
		resp.Items = append(resp.Items, Doctor{ID: u.ID, Name: u.Name, Surname: u.Surname})
	}

	if h.cache != nil {
		if body, err := json.Marshal(resp); err == nil {
			if err := h.cache.Set(ctx, doctorsCacheKey, body, doctorsCacheTTL).Err(); err != nil {
				log.Warn().Err(err).Msg("doctor cache write failed")
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

// Invalidate drops the cached list so a new doctor shows up immediately.
func (h *DoctorHandler) Invalidate(ctx context.Context) error {
	if h.cache == nil {
		return nil
	}
	return h.cache.Del(ctx, doctorsCacheKey).Err()
}
