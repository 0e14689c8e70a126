package observability

import (
	"context"
	"log/slog"

	"github.com/geocoder89/authhub/internal/actorctx"
	"go.opentelemetry.io/otel/trace"
)

// TraceHandler decorates records with the trace/span ids and the request and
// user ids carried by ctx.
type TraceHandler struct {
	next slog.Handler
}

func NewTraceHandler(next slog.Handler) *TraceHandler {
	return &TraceHandler{next: next}
}

func (h *TraceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}

	sc := trace.SpanFromContext(ctx).SpanContext()

	if sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}

	if id, ok := actorctx.RequestIDFrom(ctx); ok {
		r.AddAttrs(slog.String("request_id", id))
	}

	if id, ok := actorctx.UserIDFrom(ctx); ok {
		r.AddAttrs(slog.String("user_id", id))
	}

	return h.next.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{next: h.next.WithGroup(name)}
}
