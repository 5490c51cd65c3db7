package http

import (
	"context"
	"errors"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"go.uber.org/zap"

	"github.com/spec-kit/donor-auth/internal/config"
	"github.com/spec-kit/donor-auth/internal/observability"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

// RegisterMiddlewares attaches global middlewares: timeout, CORS, request logging and
// error rendering. The request logger wraps the error middleware so it sees final statuses.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration, corsCfg config.CORSConfig) {
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(corsMiddleware(corsCfg))
	app.Use(observability.RequestLogger(logger, metrics))
	app.Use(errorHandlingMiddleware(logger, metrics))
}

func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// corsMiddleware allows credentialed requests. An empty origin list reflects any origin.
func corsMiddleware(cfg config.CORSConfig) fiber.Handler {
	corsConfig := cors.Config{
		AllowMethods:     "GET,POST,PUT,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = strings.Join(cfg.AllowedOrigins, ",")
	} else {
		corsConfig.AllowOriginsFunc = func(string) bool { return true }
	}
	return cors.New(corsConfig)
}

func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err != nil {
				status, body := renderError(logger, err)
				metrics.RecordError(c.Route().Path, c.Method(), body.Code)
				c.Status(status)
				_ = c.JSON(fiber.Map{"error": body})
				err = nil
			}
		}()
		return c.Next()
	}
}

type errorBody struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func renderError(logger *zap.Logger, err error) (int, errorBody) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, errorBody{Code: fiberErrorCode(fiberErr.Code), Message: fiberErr.Message}
	}

	domainErr := apperrors.ToDomainError(err)
	status := apperrors.HTTPStatus(domainErr.Kind)
	if status >= fiber.StatusInternalServerError {
		logger.Error("request failed", zap.Error(domainErr))
	}
	return status, errorBody{Code: domainErr.Code, Message: domainErr.Message, Details: domainErr.Details}
}

func fiberErrorCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return apperrors.KindNotFound.String()
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestTimeout:
		return "REQUEST_TIMEOUT"
	case fiber.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	}
	if status >= fiber.StatusInternalServerError {
		return apperrors.KindInternal.String()
	}
	return apperrors.KindBadRequest.String()
}
