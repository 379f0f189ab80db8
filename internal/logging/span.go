package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Span times one service operation. Its records share trace_id with the request
// and nest through parent_span_id.
type Span struct {
	name   string
	logger *slog.Logger
	start  time.Time
	err    error
}

// StartSpan derives a child span of whatever span ctx already carries. The
// request id doubles as the trace id when no trace is active.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, logger := ensureTrace(ctx)

	spanID := uuid.NewString()
	attrs := []any{slog.String("span_id", spanID), slog.String("span_name", name)}
	if parent := SpanIDFromContext(ctx); parent != "" {
		attrs = append(attrs, slog.String("parent_span_id", parent))
	}
	logger = logger.With(attrs...)

	ctx = WithSpanID(WithLogger(ctx, logger), spanID)
	return ctx, &Span{name: name, logger: logger, start: time.Now()}
}

func ensureTrace(ctx context.Context) (context.Context, *slog.Logger) {
	logger := FromContext(ctx)
	if TraceIDFromContext(ctx) != "" {
		return ctx, logger
	}
	traceID := RequestIDFromContext(ctx)
	if traceID == "" {
		traceID = uuid.NewString()
	}
	return WithTraceID(ctx, traceID), logger.With(slog.String("trace_id", traceID))
}

// Fail records the error the span finished with. The last call wins.
func (s *Span) Fail(err error) {
	if s != nil {
		s.err = err
	}
}

// End emits the completion record: debug on success, warn after Fail.
func (s *Span) End() {
	if s == nil {
		return
	}
	elapsed := slog.Duration("duration", time.Since(s.start))
	if s.err != nil {
		s.logger.Warn("span failed", elapsed, slog.Any("error", s.err))
		return
	}
	s.logger.Debug("span completed", elapsed)
}
