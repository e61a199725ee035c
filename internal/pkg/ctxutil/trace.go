package ctxutil

import "context"

type traceKey struct{}

// TraceData carries the request/trace correlation IDs attached at the HTTP
// boundary so the request logger and error paths can tag their output.
type TraceData struct {
	TraceID   string
	RequestID string
}

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	val := ctx.Value(traceKey{})
	td, ok := val.(*TraceData)
	if !ok {
		return nil
	}
	return td
}
