package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/dto"
	"github.com/gin-gonic/gin"
)

const userNotFoundMessage = "user not found. You have to sign up."

// AuthHandler handles sign up and sign in
type AuthHandler struct {
	logger   *slog.Logger
	users    UserStore
	identity Identity
}

func NewAuthHandler(deps *Dependencies) *AuthHandler {
	return &AuthHandler{
		logger:   deps.Logger,
		users:    deps.Store,
		identity: deps.Identity,
	}
}

// SignUp handles POST /api/v1/signup
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req dto.SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "firebase_uid and display_name are required")
		return
	}

	ctx := c.Request.Context()

	if err := h.identity.LookupUser(ctx, req.FirebaseUID); err != nil {
		h.logger.Warn("Sign up for unknown firebase user",
			slog.String("firebase_uid", req.FirebaseUID),
			slog.Any("error", err),
		)
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.CreateUser(ctx, req.FirebaseUID, req.DisplayName)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			respondError(c, http.StatusBadRequest, domain.ErrAlreadyExists.Error())
			return
		}
		h.logger.Error("Failed to create user", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := h.identity.CustomToken(ctx, user.FirebaseUID)
	if err != nil {
		h.logger.Error("Failed to mint custom token", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create custom token")
		return
	}

	h.logger.Info("User signed up", slog.Int64("user_id", user.ID))
	c.JSON(http.StatusCreated, dto.CustomTokenResponse{CustomToken: token})
}

// Authenticate handles POST /api/v1/auth
// Exchanges an ID token of a registered user for a custom token and profile.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req dto.AuthRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, http.StatusBadRequest, "token is required")
		return
	}

	ctx := c.Request.Context()

	uid, err := h.identity.VerifyIDToken(ctx, req.Token)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetUserByFirebaseUID(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			respondError(c, http.StatusBadRequest, userNotFoundMessage)
			return
		}
		h.logger.Error("Failed to get user", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get user")
		return
	}

	roles, err := h.users.GetUserRoles(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to get user roles", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to get user")
		return
	}

	token, err := h.identity.CustomToken(ctx, uid)
	if err != nil {
		h.logger.Error("Failed to mint custom token", slog.Any("error", err))
		respondError(c, http.StatusInternalServerError, "failed to create custom token")
		return
	}

	c.JSON(http.StatusOK, dto.AuthResponse{
		CustomToken: token,
		MeResponse: dto.MeResponse{
			DisplayName: user.DisplayName,
			ContactURI:  user.ContactURI,
			Roles:       roles,
		},
	})
}
