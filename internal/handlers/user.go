package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/felixvaughn/themachine-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetUser(c *gin.Context) {
	user, err := uh.userService.GetUser(c.Request.Context())
	if err != nil {
		RespondError(c, http.StatusNotFound, "user_not_found", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}
