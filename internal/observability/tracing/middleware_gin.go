package tracing

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/bonos/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request. Actor attributes are read
// after the handler chain because the actor is resolved further down.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("bonos/http")
	return func(c *gin.Context) {
		method := strings.ToUpper(c.Request.Method)
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, "HTTP "+method, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		ctx = withRequestBaggage(ctx, span)
		c.Request = c.Request.WithContext(ctx)
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()
		span.SetName("HTTP " + method + " " + route)

		attrs := []attribute.KeyValue{
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.Int64("http.server_duration_ms", time.Since(started).Milliseconds()),
		}
		reqCtx := c.Request.Context()
		if role, _ := obscontext.ActorFromContext(reqCtx); role != "" {
			attrs = append(attrs, attribute.String("bonos.actor_role", role))
		}
		if partnerID := obscontext.PartnerIDFromContext(reqCtx); partnerID != "" {
			attrs = append(attrs, attribute.String("bonos.partner_id", partnerID))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		switch {
		case status >= http.StatusInternalServerError:
			if lastErr := c.Errors.Last(); lastErr != nil {
				if safeErr := SafeError(lastErr.Err); safeErr != nil {
					span.RecordError(safeErr)
				}
			}
			span.SetStatus(codes.Error, "request error")
		case status == http.StatusConflict:
			// Quota and state conflicts are expected outcomes, not span errors.
			span.AddEvent("voucher.conflict")
		case status == http.StatusTooManyRequests:
			span.AddEvent("verify.rate_limited")
		}
	}
}

func withRequestBaggage(ctx context.Context, span trace.Span) context.Context {
	requestID := obscontext.RequestIDFromContext(ctx)
	if requestID == "" {
		return ctx
	}
	span.SetAttributes(attribute.String("request_id", requestID))
	member, err := baggage.NewMember("request_id", requestID)
	if err != nil {
		return ctx
	}
	bag, err := baggage.New(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
