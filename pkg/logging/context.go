package logging

import (
	"context"
)

const (
	RequestIDKey   = "request_id"
	VisitorIDKey   = "visitor_id"
	EventKindKey   = "event_kind"
	ServiceNameKey = "service_name"
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

func WithVisitorID(ctx context.Context, visitorID string) context.Context {
	return context.WithValue(ctx, VisitorIDKey, visitorID)
}

func WithEventKind(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, EventKindKey, kind)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

func GetVisitorID(ctx context.Context) string {
	if visitorID, ok := ctx.Value(VisitorIDKey).(string); ok {
		return visitorID
	}
	return ""
}

func GetEventKind(ctx context.Context) string {
	if kind, ok := ctx.Value(EventKindKey).(string); ok {
		return kind
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 8)

	if requestID := GetRequestID(ctx); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}

	if visitorID := GetVisitorID(ctx); visitorID != "" {
		fields = append(fields, "visitor_id", visitorID)
	}

	if kind := GetEventKind(ctx); kind != "" {
		fields = append(fields, "event_kind", kind)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
