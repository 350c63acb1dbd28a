package handler

import (
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/api/model"
	"github.com/gin-gonic/gin"
)

const (
	currentUserKey = "current_user"

	notFoundMessage = "not found"
)

// SetCurrentUser stores the authenticated user on the request
func SetCurrentUser(c *gin.Context, user *model.User) {
	c.Set(currentUserKey, user)
}

// CurrentUser returns the user set by the auth middleware
func CurrentUser(c *gin.Context) *model.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*model.User)
	return user
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, dto.ErrorResponse{Message: message})
}

// AbortWithError ends the request with a {"message"} body
func AbortWithError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Message: message})
}
