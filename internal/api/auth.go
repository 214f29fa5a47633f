package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/guardpost/internal/apperr"
	"github.com/lalith-99/guardpost/internal/auth"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

// AuthHandler serves register and login, the only endpoints that hand out
// tokens. They sit outside AuthMiddleware.
type AuthHandler struct {
	users     *service.UserService
	jwtSecret string
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthHandler(users *service.UserService, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwtSecret: jwtSecret, tokenTTL: tokenTTL, logger: logger}
}

type registerRequest struct {
	Email       string      `json:"email" binding:"required,email"`
	Password    string      `json:"password" binding:"required,min=8"`
	FirstName   string      `json:"firstName" binding:"required"`
	LastName    string      `json:"lastName" binding:"required"`
	Role        models.Role `json:"role" binding:"required"`
	PhoneNumber string      `json:"phoneNumber"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// authResponse is returned by both register and login. The client sends the
// token back as "Authorization: Bearer <token>".
type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Register handles POST /v1/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.Registration{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Role:        req.Role,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": apperr.Message(err, "email already registered"), "code": "conflict"})
			return
		}
		writeError(c, h.logger, err)
		return
	}

	h.respondWithToken(c, http.StatusCreated, user)
}

// Login handles POST /v1/auth/login. Unknown email and wrong password get
// the same 401 so the endpoint does not reveal which emails exist.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.respondWithToken(c, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateToken(user, h.jwtSecret, h.tokenTTL)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(status, authResponse{Token: token, User: user})
}
