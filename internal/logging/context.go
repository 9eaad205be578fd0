package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
)

// Context key types.
type requestCtxKey struct{}
type documentCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 2)

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if docID := DocumentIDFromContext(ctx); docID != "" {
		fields = append(fields, zap.String("document_id", docID))
	}

	return fields
}

// WithRequestID adds a request ID to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithDocumentID adds a document ID to context.
func WithDocumentID(ctx context.Context, docID string) context.Context {
	return context.WithValue(ctx, documentCtxKey{}, docID)
}

// DocumentIDFromContext extracts the document ID from context.
func DocumentIDFromContext(ctx context.Context) string {
	if d, ok := ctx.Value(documentCtxKey{}).(string); ok {
		return d
	}
	return ""
}

// stdout is indirected for tests.
var stdout = func() *os.File { return os.Stdout }
