package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

// Viewer roles as asserted by the external identity provider.
const (
	RoleClient = "client"
	RoleAdmin  = "admin"
)

// RequestData carries the authenticated caller through a request.
type RequestData struct {
	UserID      uuid.UUID
	DisplayName string
	Role        string
}

type requestDataKey struct{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	rd, ok := ctx.Value(requestDataKey{}).(*RequestData)
	if !ok {
		return nil
	}
	return rd
}

// TraceData carries correlation identifiers for a request.
type TraceData struct {
	TraceID   string
	RequestID string
}

type traceDataKey struct{}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	td, ok := ctx.Value(traceDataKey{}).(*TraceData)
	if !ok {
		return nil
	}
	return td
}
