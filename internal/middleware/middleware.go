package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/telemetry"
)

const tracerName = "github.com/joshua-takyi/slotbook/internal/middleware"

// RequestID middleware adds a unique request ID to each request
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// Tracing starts a server span per request, continuing any trace the caller propagated.
func Tracing(serviceName string) gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", c.Request.Method, route),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("service.name", serviceName),
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// StructuredLogger provides structured logging middleware
func StructuredLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		if raw != "" {
			path = path + "?" + raw
		}
		requestID, _ := c.Get("request_id")

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if traceID := telemetry.TraceID(c.Request.Context()); traceID != "" {
			attrs = append(attrs, "trace_id", traceID)
		}
		logger.Info("HTTP Request", attrs...)
	}
}

// ErrorHandler provides centralized error handling
func ErrorHandler(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last()
		requestID, _ := c.Get("request_id")

		logger.Error("Request error",
			"request_id", requestID,
			"error", err.Error(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		)

		// handlers that already answered only attach the error for logging
		if c.Writer.Written() {
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":      "Internal server error",
			"request_id": requestID,
		})
	}
}

type TokenValidator interface {
	ValidateToken(token string) (*helpers.CustomClaims, error)
}

type TokenRefresher interface {
	RefreshToken(ctx context.Context, refreshToken string) (*types.TokenResponse, error)
}

func unauthorized(c *gin.Context, reason string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"message": "Unauthorized access",
		"error":   reason,
	})
	c.Abort()
}

// AuthMiddleware accepts a Bearer token or the access_token cookie. An expired cookie session is
// renewed with the refresh_token cookie and the new pair is written back.
func AuthMiddleware(tokens TokenValidator, refresher TokenRefresher, secureCookies bool, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := helpers.BearerToken(c.GetHeader("Authorization"))
		fromCookie := false
		if token == "" {
			cookie, err := c.Cookie("access_token")
			if err != nil || cookie == "" {
				unauthorized(c, "JWT token not found in header or cookie")
				return
			}
			token = cookie
			fromCookie = true
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			if !fromCookie {
				unauthorized(c, err.Error())
				return
			}
			refreshToken, refreshErr := c.Cookie("refresh_token")
			if refreshErr != nil || refreshToken == "" {
				unauthorized(c, err.Error())
				return
			}

			tokenRes, refreshErr := refresher.RefreshToken(c.Request.Context(), refreshToken)
			if refreshErr != nil || tokenRes == nil || tokenRes.AccessToken == "" {
				logger.Error("Token refresh failed", "error", refreshErr)
				unauthorized(c, "Token expired and refresh failed")
				return
			}
			logger.Info("Token refreshed successfully",
				"user_id", tokenRes.User.ID,
				"expires_in", tokenRes.ExpiresIn,
			)
			c.SetCookie("access_token", tokenRes.AccessToken, tokenRes.ExpiresIn, "/", "", secureCookies, true)
			c.SetCookie("refresh_token", tokenRes.RefreshToken, 3600*24*30, "/", "", secureCookies, true)

			claims, err = tokens.ValidateToken(tokenRes.AccessToken)
			if err != nil {
				unauthorized(c, "Refreshed token validation failed")
				return
			}
		}

		if _, err := uuid.Parse(claims.Subject); err != nil {
			logger.Warn("Invalid user ID in token", "user_id", claims.Subject, "error", err)
			unauthorized(c, "Invalid subject in token")
			return
		}

		helpers.SetUser(c, &helpers.EnhancedClaims{
			CustomClaims: claims,
			Role:         claims.Role,
			UserID:       claims.Subject,
			Email:        claims.Email,
		})
		c.Next()
	}
}
