package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/guardpost/internal/middleware"
	"github.com/lalith-99/guardpost/internal/models"
	"github.com/lalith-99/guardpost/internal/service"
	"go.uber.org/zap"
)

type UserHandler struct {
	users  *service.UserService
	logger *zap.Logger
}

func NewUserHandler(users *service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

// GetMe handles GET /v1/users/me.
func (h *UserHandler) GetMe(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe handles PUT /v1/users/me. Only firstName, lastName and
// phoneNumber may be sent; any other key fails the whole request.
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var patch models.UserPatch
	if err := decodeStrict(c, &patch); err != nil {
		badRequest(c, "invalid updates")
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), middleware.GetActor(c), patch)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
