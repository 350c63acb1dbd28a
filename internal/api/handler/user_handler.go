package handler

import (
	"log/slog"
	"net/http"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/cuongbtq/dataset-hub/internal/dataset"
	"github.com/gin-gonic/gin"
)

// UserHandler handles the /me resource
type UserHandler struct {
	logger   *slog.Logger
	users    UserStore
	identity Identity
}

func NewUserHandler(deps *Dependencies) *UserHandler {
	return &UserHandler{
		logger:   deps.Logger,
		users:    deps.Store,
		identity: deps.Identity,
	}
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(c *gin.Context) {
	h.respondMe(c, http.StatusOK)
}

// UpdateMe handles PATCH /api/v1/me
func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req dto.UpdateMeRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	user := *CurrentUser(c)
	if req.DisplayName != nil {
		user.DisplayName = dataset.Truncate(*req.DisplayName, domain.MaxDisplayNameLength)
	}
	if req.ContactURI != nil {
		user.ContactURI = dataset.Truncate(*req.ContactURI, domain.MaxContactURILength)
	}

	if err := h.users.UpdateUser(c.Request.Context(), &user); err != nil {
		h.logger.Error("Failed to update user",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to update user")
		return
	}

	SetCurrentUser(c, &user)
	h.respondMe(c, http.StatusOK)
}

// DeleteMe handles DELETE /api/v1/me
// The user's data sets are removed with it.
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user := CurrentUser(c)

	if err := h.users.DeleteUser(c.Request.Context(), user.ID); err != nil {
		h.logger.Error("Failed to delete user",
			slog.Int64("user_id", user.ID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.logger.Info("User deleted", slog.Int64("user_id", user.ID))
	c.Status(http.StatusNoContent)
}

// GetCustomToken handles GET /api/v1/me/custom_token
func (h *UserHandler) GetCustomToken(c *gin.Context) {
	user := CurrentUser(c)
	ctx := c.Request.Context()

	if err := h.identity.LookupUser(ctx, user.FirebaseUID); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.identity.CustomToken(ctx, user.FirebaseUID)
	if err != nil {
		h.logger.Error("Failed to mint custom token", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create custom token")
		return
	}

	c.JSON(http.StatusOK, dto.CustomTokenResponse{CustomToken: token})
}

func (h *UserHandler) respondMe(c *gin.Context, status int) {
	user := CurrentUser(c)

	roles, err := h.users.GetUserRoles(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("Failed to get user roles", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get user")
		return
	}

	c.JSON(status, dto.MeResponse{
		DisplayName: user.DisplayName,
		ContactURI:  user.ContactURI,
		Roles:       roles,
	})
}
