package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/assistbridge/server/domain/entities"
	"github.com/satriahrh/assistbridge/server/domain/repositories"
	"github.com/satriahrh/assistbridge/server/internal/auth"
	"github.com/satriahrh/assistbridge/server/usecase"
)

const claimsKey = "claims"

// QueryHandler runs a single assistant turn
type QueryHandler interface {
	Handle(ctx context.Context, req usecase.TurnRequest) (*usecase.TurnResult, error)
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, handler QueryHandler, authenticator *auth.Authenticator, metricsHandler http.Handler, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "assistbridge-server",
		})
	})

	e.GET("/metrics", echo.WrapHandler(metricsHandler))

	// API v1 routes
	v1 := e.Group("/api/v1", bearerAuth(authenticator, logger))
	v1.POST("/query", func(c echo.Context) error {
		return query(c, handler, logger)
	})
}

// bearerAuth validates the JWT in the Authorization header and stores its claims
func bearerAuth(authenticator *auth.Authenticator, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := strings.CutPrefix(c.Request().Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.Warn("Request rejected: missing token")
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "JWT token is required in Authorization header",
				})
			}

			claims, err := authenticator.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired JWT token",
				})
			}

			if claims.Role != auth.RoleUser || claims.UserID == "" {
				logger.Warn("Request rejected: invalid claims", zap.String("role", claims.Role))
				return c.JSON(http.StatusForbidden, ErrorResponse{
					Error:   "invalid_token_claims",
					Message: "Token does not identify a user",
				})
			}

			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

func query(c echo.Context, handler QueryHandler, logger *zap.Logger) error {
	claims := c.Get(claimsKey).(*auth.JWTClaims)
	requestID := uuid.NewString()
	logger = logger.With(zap.String("requestID", requestID), zap.String("userID", claims.UserID))

	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind query request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Query text is required",
		})
	}

	turn := usecase.TurnRequest{
		UserID:      claims.UserID,
		Text:        req.Text,
		Locale:      req.Locale,
		AccessToken: req.AccessToken,
		Location:    req.Location,
	}
	if req.Device != nil {
		turn.Device = &repositories.DeviceRef{
			DeviceID:       req.Device.DeviceID,
			APIEndpoint:    req.Device.APIEndpoint,
			APIAccessToken: req.Device.APIAccessToken,
		}
	}

	result, err := handler.Handle(c.Request().Context(), turn)
	if err != nil {
		kind := entities.ErrorKind(err)
		logger.Warn("Query failed", zap.String("kind", kind), zap.Error(err))
		return c.JSON(statusFor(err), ErrorResponse{
			Error:   kind,
			Message: Message(kind),
		})
	}

	return c.JSON(http.StatusOK, QueryResponse{
		RequestID:       requestID,
		AudioURL:        result.AudioURL,
		DisplayText:     result.DisplayText,
		CardTitle:       result.CardTitle,
		KeepSessionOpen: result.KeepSessionOpen,
	})
}
