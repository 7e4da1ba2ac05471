// Package pidriver declares the downward interface DeviceMgr requires of a
// target-specific Programmable Interface (PI) driver (§6.2). The driver
// itself — whether it talks to a physical ASIC, a software switch, or a
// simulator — is an external collaborator; this package only states the
// contract.
package pidriver

import (
	"context"

	"github.com/p4lang/pi4go/pkg/p4info"
)

// DeviceTarget identifies a device and the subset of its pipes addressed by
// an operation. pipe_mask=0xffff addresses every pipe (§3).
type DeviceTarget struct {
	DeviceID uint64
	PipeMask uint16
}

const AllPipes uint16 = 0xffff

// EntryHandle is an opaque driver-side reference to a table entry.
type EntryHandle uint64

// IndirectHandle is an opaque driver-side reference to an action-profile
// member or group.
type IndirectHandle uint64

// MatchKey is the opaque, driver-level key representation built by the
// internal/keys package from a controller-supplied match field list.
type MatchKey struct {
	TableID uint32
	Bytes   []byte
}

// ActionSpec is the opaque, driver-level action representation: either a
// direct action-and-params pair or an indirect handle, already resolved by
// the caller.
type ActionSpec struct {
	IsIndirect     bool
	ActionID       uint32
	Params         [][]byte
	IndirectHandle IndirectHandle
}

// MeterSpec is the driver-level meter configuration. Unit/type are always
// the driver's default (§3).
type MeterSpec struct {
	CIR    uint64
	CBurst uint32
	PIR    uint64
	PBurst uint32
}

// CounterValue is a single counter cell read from the driver; Valid* reports
// which of the two fields the driver actually populated.
type CounterValue struct {
	PacketsValid bool
	Packets      uint64
	BytesValid   bool
	Bytes        uint64
}

// FetchedEntry is one table row yielded by a driver fetch.
type FetchedEntry struct {
	Handle EntryHandle
	Key    MatchKey // zero-value Bytes for the default entry
	Action ActionSpec
}

// Session is a scoped driver transaction context (§5 Sessions). A
// WriteRequest uses one batched session for all of its updates; a Read uses
// its own non-batched session.
type Session interface {
	// Close commits (or aborts, if commit is false) the session.
	Close(ctx context.Context, commit bool) error
}

// Device is the per-device operation surface a driver exposes to DeviceMgr.
// All operations are synchronous; the core never suspends mid-call.
type Device interface {
	// Lifecycle (§6.2)
	IsAssigned(ctx context.Context, deviceID uint64) (bool, error)
	AssignDevice(ctx context.Context, deviceID uint64, extras map[string]string) error
	RemoveDevice(ctx context.Context, deviceID uint64) error
	UpdateDeviceStart(ctx context.Context, deviceID uint64, schema p4info.Schema, image []byte) error
	UpdateDeviceEnd(ctx context.Context, deviceID uint64) error

	// Sessions
	SessionOpen(ctx context.Context, batch bool) (Session, error)

	// Table entries
	EntryAdd(ctx context.Context, sess Session, target DeviceTarget, tableID uint32, key MatchKey, action ActionSpec) (EntryHandle, error)
	EntryModifyWKey(ctx context.Context, sess Session, target DeviceTarget, tableID uint32, key MatchKey, action ActionSpec) error
	EntryDeleteWKey(ctx context.Context, sess Session, target DeviceTarget, tableID uint32, key MatchKey) error
	DefaultEntrySet(ctx context.Context, sess Session, target DeviceTarget, tableID uint32, action ActionSpec) error
	EntriesFetch(ctx context.Context, sess Session, target DeviceTarget, tableID uint32) ([]FetchedEntry, error)

	// Action profile members and groups
	MemberCreate(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, action ActionSpec) (IndirectHandle, error)
	MemberModify(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, handle IndirectHandle, action ActionSpec) error
	MemberDelete(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, handle IndirectHandle) error
	GroupCreate(ctx context.Context, sess Session, target DeviceTarget, profileID uint32) (IndirectHandle, error)
	GroupDelete(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, handle IndirectHandle) error
	GroupAddMember(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, group IndirectHandle, member IndirectHandle) error
	GroupRemoveMember(ctx context.Context, sess Session, target DeviceTarget, profileID uint32, group IndirectHandle, member IndirectHandle) error

	// Meters
	MeterSet(ctx context.Context, sess Session, target DeviceTarget, meterID uint32, index int64, spec MeterSpec) error
	MeterSetDirect(ctx context.Context, sess Session, target DeviceTarget, meterID uint32, entry EntryHandle, spec MeterSpec) error

	// Counters
	CounterRead(ctx context.Context, sess Session, target DeviceTarget, counterID uint32, index int64) (CounterValue, error)
}
