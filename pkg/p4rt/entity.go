// Package p4rt defines the controller-facing message types consumed by
// DeviceMgr. A gRPC server sits in front of this package, deserializes the
// wire messages and hands DeviceMgr the already-parsed structures defined
// here; this package never touches the wire format itself.
package p4rt

// Entity is the tagged union over the object kinds a controller may Write or
// Read. New entity kinds can be added by introducing a new implementation
// without touching existing dispatch arms.
type Entity interface {
	isEntity()
}

// TableEntry is a match-action table row, or the table's default entry when
// Match is empty.
type TableEntry struct {
	TableID            uint32
	Match              []FieldMatch // empty => default entry
	Action             ActionEntry  // nil on a read-by-key request
	ControllerMetadata uint64
	Priority           int32
}

func (*TableEntry) isEntity() {}

// ActionProfileMember is a named action bound to an action-profile member ID.
type ActionProfileMember struct {
	ActionProfileID uint32
	MemberID        uint32
	Action          DirectAction
}

func (*ActionProfileMember) isEntity() {}

// ActionProfileGroup is a set of member IDs bound to an action-profile group ID.
type ActionProfileGroup struct {
	ActionProfileID uint32
	GroupID         uint32
	MemberIDs       []uint32
}

func (*ActionProfileGroup) isEntity() {}

// MeterEntry addresses an indirect meter cell by (MeterID, Index).
type MeterEntry struct {
	MeterID uint32
	Index   int64 // cell index; DeviceMgr.Read does not accept MeterEntry
	Config  MeterConfig
}

func (*MeterEntry) isEntity() {}

// DirectMeterEntry addresses a meter cell attached to a table entry.
type DirectMeterEntry struct {
	MeterID    uint32
	TableEntry *TableEntry
	Config     MeterConfig
}

func (*DirectMeterEntry) isEntity() {}

// CounterEntry addresses an indirect counter cell by (CounterID, Index).
type CounterEntry struct {
	CounterID uint32
	Index     int64 // 0 on read means "all cells"
	Data      CounterData
}

func (*CounterEntry) isEntity() {}

// DirectCounterEntry would address a counter cell attached to a table entry.
// Recognized only to be rejected UNIMPLEMENTED; see §1 Non-goals.
type DirectCounterEntry struct {
	CounterID  uint32
	TableEntry *TableEntry
}

func (*DirectCounterEntry) isEntity() {}

// ExternEntry would address a generic extern object. Recognized only to be
// rejected UNIMPLEMENTED; see §1 Non-goals.
type ExternEntry struct {
	ExternTypeID uint32
	ExternID     uint32
}

func (*ExternEntry) isEntity() {}

// MeterConfig is the controller-supplied rate/burst configuration of a meter
// cell. Unit and type are always the driver's default.
type MeterConfig struct {
	CIR    int64
	CBurst int64
	PIR    int64
	PBurst int64
}

// CounterData is the result of a counter read; either field may be unset
// depending on the driver's reported unit validity.
type CounterData struct {
	PacketCount *int64
	ByteCount   *int64
}
