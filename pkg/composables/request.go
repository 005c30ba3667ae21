package composables

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

var ErrNoOperator = errors.New("no operator found in context")

type loggerKey struct{}
type operatorKey struct{}
type requestIDKey struct{}

func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// UseLogger returns the request-scoped logger, or a standard-logger entry.
func UseLogger(ctx context.Context) *logrus.Entry {
	if ctx != nil {
		switch typed := ctx.Value(loggerKey{}).(type) {
		case *logrus.Entry:
			return typed
		case *logrus.Logger:
			return logrus.NewEntry(typed)
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// WithOperator records the employee id of the person acting on the request.
func WithOperator(ctx context.Context, employeeID uint) context.Context {
	return context.WithValue(ctx, operatorKey{}, employeeID)
}

func UseOperator(ctx context.Context) (uint, error) {
	id, ok := ctx.Value(operatorKey{}).(uint)
	if !ok || id == 0 {
		return 0, ErrNoOperator
	}
	return id, nil
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func UseRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

type PaginationParams struct {
	Limit  int
	Offset int
}

func UsePaginated(r *http.Request) PaginationParams {
	params := PaginationParams{Limit: 20}
	if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 && parsed <= 100 {
			params.Limit = parsed
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("offset")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			params.Offset = parsed
		}
	}
	return params
}
