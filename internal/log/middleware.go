package log

import (
	"context"
	"log/slog"
	"net/http"

	"kharcha/internal/core"
)

type contextKey string

const loggerContextKey contextKey = "logger"

// IntoContext stores logger in ctx
func IntoContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the default logger
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// Middleware creates HTTP middleware that adds a request-scoped logger to the context.
// requestID may be nil.
func Middleware(logger *Logger, requestID func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger
			if requestID != nil {
				if id := requestID(r); id != "" {
					l = l.With(FieldRequestID, id)
				}
			}
			next.ServeHTTP(w, r.WithContext(IntoContext(r.Context(), l)))
		})
	}
}

// StructuredLogger logs domain events with consistent field sets
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogExpenseCreated logs successful expense creation
func (sl *StructuredLogger) LogExpenseCreated(ctx context.Context, id string, e core.NewExpense) {
	fields := NewFields().
		WithExpense(e).
		WithOperation(OpCreate).
		ToSlice()
	fields = append(fields, FieldExpenseID, id)
	sl.logger.InfoContext(ctx, "Expense created", fields...)
}

// LogExpenseDeleted logs successful expense deletion
func (sl *StructuredLogger) LogExpenseDeleted(ctx context.Context, id string) {
	sl.logger.InfoContext(ctx, "Expense deleted", FieldExpenseID, id, FieldOperation, OpDelete)
}

// LogRejected warns about records that were skipped while loading a view
func (sl *StructuredLogger) LogRejected(ctx context.Context, email string, rejected []core.RecordError) {
	if len(rejected) == 0 {
		return
	}
	fields := NewFields().
		WithUser(email).
		WithRejected(rejected).
		WithOperation(OpList)
	sl.logger.WarnContext(ctx, "Skipped malformed expense records", fields.ToSlice()...)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.
		WithError(err).
		WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
