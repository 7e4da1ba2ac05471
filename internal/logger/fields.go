package logger

// Standard field keys for structured logging. Use these consistently across
// log statements so the fields line up for aggregation and querying.
const (
	// Distributed tracing
	KeyTraceID = "trace_id"
	KeySpanID  = "span_id"

	// RPC / dispatch
	KeyRPC        = "rpc"         // Write, Read, SetForwardingPipelineConfig, ...
	KeyEntityKind = "entity_kind" // TableEntry, ActionProfileMember, ...
	KeyUpdateType = "update_type" // INSERT, MODIFY, DELETE

	// Device / pipeline
	KeyDeviceID     = "device_id"
	KeyPipelineGen  = "pipeline_generation"
	KeyPipelineStat = "pipeline_state"

	// P4 objects
	KeyTableID      = "table_id"
	KeyActionProfID = "action_profile_id"
	KeyMemberID     = "member_id"
	KeyGroupID      = "group_id"
	KeyMeterID      = "meter_id"
	KeyCounterID    = "counter_id"
	KeyHandle       = "handle"

	// Status
	KeyStatusCode = "status_code"
	KeyError      = "error"

	// Timing
	KeyDurationMs = "duration_ms"
)
