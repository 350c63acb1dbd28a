package router

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cuongbtq/dataset-hub/internal/api/domain"
	"github.com/cuongbtq/dataset-hub/internal/api/handler"
	"github.com/gin-gonic/gin"
)

const bearerPrefix = "Bearer "

// LoggerMiddleware logs HTTP requests with slog
func LoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		// Process request
		c.Next()

		latency := time.Since(start)

		attrs := []any{
			slog.Int("status", c.Writer.Status()),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.String("ip", c.ClientIP()),
			slog.String("user_agent", c.Request.UserAgent()),
			slog.Duration("latency", latency),
			slog.Int("body_size", c.Writer.Size()),
		}
		if user := handler.CurrentUser(c); user != nil {
			attrs = append(attrs, slog.Int64("user_id", user.ID))
		}
		logger.Info("HTTP Request", attrs...)

		for _, e := range c.Errors {
			logger.Error("Request error",
				slog.String("error", e.Error()),
				slog.Uint64("type", uint64(e.Type)),
			)
		}
	}
}

// CORSMiddleware handles Cross-Origin Resource Sharing.
// Preflight requests end here, before authentication.
func CORSMiddleware(allowOrigin string) gin.HandlerFunc {
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware resolves the bearer ID token to a local user or answers 401
func AuthMiddleware(users handler.UserStore, identity handler.Identity, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := c.GetHeader("Authorization")
		if authorization == "" {
			handler.AbortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		token := strings.TrimPrefix(authorization, bearerPrefix)

		ctx := c.Request.Context()

		uid, err := identity.VerifyIDToken(ctx, token)
		if err != nil {
			logger.Debug("Rejected id token", slog.Any("error", err))
			handler.AbortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := users.GetUserByFirebaseUID(ctx, uid)
		if err != nil {
			if !errors.Is(err, domain.ErrUserNotFound) {
				logger.Error("Failed to load authenticated user",
					slog.String("firebase_uid", uid),
					slog.Any("error", err),
				)
			}
			handler.AbortWithError(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		handler.SetCurrentUser(c, user)
		c.Next()
	}
}

// AdminMiddleware hides admin routes from everyone without the admin role
func AdminMiddleware(users handler.UserStore, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handler.CurrentUser(c)
		if user == nil {
			handler.AbortWithError(c, http.StatusNotFound, "not found")
			return
		}

		roles, err := users.GetUserRoles(c.Request.Context(), user.ID)
		if err != nil {
			logger.Error("Failed to load user roles",
				slog.Int64("user_id", user.ID),
				slog.Any("error", err),
			)
			handler.AbortWithError(c, http.StatusInternalServerError, "failed to get user")
			return
		}

		if !domain.HasRole(roles, domain.RoleAdmin) {
			handler.AbortWithError(c, http.StatusNotFound, "not found")
			return
		}

		c.Next()
	}
}
