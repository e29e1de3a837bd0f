package context

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type partnerIDKey struct{}
type actorKey struct{}

type actorValue struct {
	role string
	id   string
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request id, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

// WithPartnerID stores the mayorista id the request acts for.
func WithPartnerID(ctx context.Context, partnerID string) context.Context {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return ctx
	}
	return context.WithValue(ctx, partnerIDKey{}, partnerID)
}

func PartnerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(partnerIDKey{}).(string)
	return value
}

// WithActor stores the acting role and user id.
func WithActor(ctx context.Context, role, id string) context.Context {
	return context.WithValue(ctx, actorKey{}, actorValue{
		role: strings.TrimSpace(role),
		id:   strings.TrimSpace(id),
	})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	value, ok := ctx.Value(actorKey{}).(actorValue)
	if !ok {
		return "", ""
	}
	return value.role, value.id
}
