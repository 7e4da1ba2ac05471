package logger

import "context"

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single controller RPC.
type LogContext struct {
	TraceID  string // OpenTelemetry trace ID
	SpanID   string // OpenTelemetry span ID
	RPC      string // Write, Read, SetForwardingPipelineConfig, ...
	DeviceID uint64 // target device_id
	TableID  uint32 // table_id, when the call concerns a single table
}

// WithContext returns a new context carrying the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from ctx, or nil if absent.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// Clone returns a copy of lc.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithRPC returns a copy of lc with RPC set.
func (lc *LogContext) WithRPC(rpc string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RPC = rpc
	}
	return clone
}

// WithTableID returns a copy of lc with TableID set.
func (lc *LogContext) WithTableID(tableID uint32) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TableID = tableID
	}
	return clone
}
