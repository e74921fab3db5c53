package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"medqueue/internal/auth"
	"medqueue/internal/middleware"
	"medqueue/internal/models"
	"medqueue/internal/response"
	"medqueue/internal/storage"
)

// UserDirectory stores the accounts behind the auth endpoints.
type UserDirectory interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
}

type AuthHandler struct {
	users  UserDirectory
	tokens *auth.Tokens
	// called after a new account is stored
	onRegistered func(ctx context.Context, u *models.User)
}

func NewAuthHandler(users UserDirectory, tokens *auth.Tokens) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// OnRegistered installs a hook run after every successful registration.
func (h *AuthHandler) OnRegistered(fn func(ctx context.Context, u *models.User)) {
	h.onRegistered = fn
}

func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/register", h.SignUp)
	rg.POST("/login", h.Login)
	rg.POST("/refresh", h.Refresh)
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required" example:"Anna"`
	Surname  string `json:"surname" binding:"required" example:"Petrova"`
	Email    string `json:"email" binding:"required,email" example:"anna@example.com"`
	Phone    string `json:"phone" example:"+79990000000"`
	Password string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// SignUp godoc
// @Summary		Register a patient account
// @Description	Self registration always creates a PATIENT. Clinic staff accounts are created with medqueuectl.
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		RegisterRequest				true	"Account data"
// @Success		201		{object}	response.SuccessResponse
// @Failure		400		{object}	response.ErrorResponse	"VALIDATION_ERROR or EMAIL_EXISTS"
// @Failure		500		{object}	response.ErrorResponse	"PASSWORD_HASH_ERROR or DB_ERROR"
// @Router			/auth/register [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		fail(c, http.StatusInternalServerError, "PASSWORD_HASH_ERROR", "Could not hash password", "")
		return
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         models.RolePatient,
	}
	ctx := c.Request.Context()
	if err := h.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			fail(c, http.StatusBadRequest, "EMAIL_EXISTS", "A user with this email already exists", "")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("create user")
		fail(c, http.StatusInternalServerError, response.CodeDB, "Could not create user", "")
		return
	}
	if h.onRegistered != nil {
		h.onRegistered(ctx, user)
	}

	c.JSON(http.StatusCreated, response.SuccessResponse{Message: "User registered"})
}

// Login godoc
// @Summary		Log in
// @Description	Exchanges email and password for an access and refresh token pair.
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			user	body		LoginRequest			true	"Credentials"
// @Success		200		{object}	response.TokenResponse
// @Failure		400		{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		401		{object}	response.ErrorResponse	"INVALID_CREDENTIALS"
// @Failure		500		{object}	response.ErrorResponse	"TOKEN_GENERATION_ERROR"
// @Router			/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	user, err := h.users.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		middleware.LoggerFrom(c).Error().Err(err).Msg("find user")
		fail(c, http.StatusInternalServerError, response.CodeDB, "Could not load user", "")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", "")
		return
	}
	h.issue(c, user)
}

// Refresh godoc
// @Summary		Refresh tokens
// @Description	Issues a new token pair for a valid refresh token.
// @Tags			auth
// @Accept			json
// @Produce		json
// @Param			refresh_token	body		RefreshTokenRequest		true	"Refresh token"
// @Success		200				{object}	response.TokenResponse
// @Failure		400				{object}	response.ErrorResponse	"VALIDATION_ERROR"
// @Failure		401				{object}	response.ErrorResponse	"INVALID_REFRESH_TOKEN or USER_NOT_FOUND"
// @Failure		500				{object}	response.ErrorResponse	"TOKEN_GENERATION_ERROR"
// @Router			/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body", err.Error())
		return
	}

	claims, err := h.tokens.ParseRefresh(req.RefreshToken)
	if err != nil {
		fail(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token", "")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		fail(c, http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token", "")
		return
	}
	// the role is read again so a changed role takes effect on refresh
	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			fail(c, http.StatusUnauthorized, "USER_NOT_FOUND", "User not found", "")
			return
		}
		middleware.LoggerFrom(c).Error().Err(err).Msg("load user")
		fail(c, http.StatusInternalServerError, response.CodeDB, "Could not load user", "")
		return
	}
	h.issue(c, user)
}

func (h *AuthHandler) issue(c *gin.Context, user *models.User) {
	pair, err := h.tokens.Issue(user)
	if err != nil {
		middleware.LoggerFrom(c).Error().Err(err).Msg("issue tokens")
		fail(c, http.StatusInternalServerError, "TOKEN_GENERATION_ERROR", "Could not issue tokens", "")
		return
	}
	c.JSON(http.StatusOK, response.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
