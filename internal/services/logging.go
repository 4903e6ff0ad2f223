package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type contextKey string

// RequestIDKey is the context key under which handlers store the request id
const RequestIDKey contextKey = "request_id"

// maxLoggedFieldErrors caps how many field errors one log line carries.
const maxLoggedFieldErrors = 5

type LogConfig struct {
	Service   string
	Component string
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
	}
}

// ===== OPERATION LOGGING =====

// operationStatus classifies err for the operation log. Expected outcomes of
// grading (an answer already given, an attempt already closed) are not errors.
func operationStatus(err error) (string, slog.Level) {
	switch {
	case err == nil:
		return "success", slog.LevelInfo
	case IsValidation(err), IsBusinessRule(err):
		return "validation_error", slog.LevelWarn
	case IsUnauthorized(err):
		return "unauthorized", slog.LevelWarn
	case IsConflict(err):
		return "conflict", slog.LevelInfo
	case IsNotFound(err):
		return "not_found", slog.LevelInfo
	default:
		return "error", slog.LevelError
	}
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation string, userID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	status, level := operationStatus(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
		attrs = append(attrs, errorDetails(err)...)
	}

	l.logger.LogAttrs(ctx, level, operation+" operation "+status, attrs...)
}

func errorDetails(err error) []slog.Attr {
	var validationErrs ValidationErrors
	var businessErr *BusinessRuleError
	var permErr *PermissionError

	switch {
	case errors.As(err, &validationErrs):
		attrs := []slog.Attr{slog.Int("validation_errors_count", len(validationErrs))}
		for i, fieldErr := range validationErrs {
			if i == maxLoggedFieldErrors {
				break
			}
			attrs = append(attrs, slog.String("invalid_"+fieldErr.Field, fieldErr.Message))
		}
		return attrs
	case errors.As(err, &businessErr):
		return []slog.Attr{slog.String("business_rule", businessErr.Rule), slog.Any("rule_context", businessErr.Context)}
	case errors.As(err, &permErr):
		return []slog.Attr{slog.String("permission_action", permErr.Action), slog.String("permission_reason", permErr.Reason)}
	}
	return nil
}

// ContextualLogger times one operation and logs its outcome
type ContextualLogger struct {
	logger    *ServiceLogger
	operation string
	userID    string
	startTime time.Time
	ctx       context.Context
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation string, userID string) *ContextualLogger {
	return &ContextualLogger{
		logger:    l,
		operation: operation,
		userID:    userID,
		startTime: time.Now(),
		ctx:       ctx,
	}
}

func (cl *ContextualLogger) LogResult(resourceID uint, resourceType string, err error) {
	cl.logger.LogOperation(cl.ctx, cl.operation, cl.userID, resourceID, resourceType, time.Since(cl.startTime), err)
}
