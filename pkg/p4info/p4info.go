// Package p4info wraps a parsed P4 program schema (the P4Info message) with
// the lookup surface the control plane needs: resolving numeric object IDs
// to their declarations and iterating objects of a given kind.
//
// The schema itself is produced by an external parser/compiler toolchain;
// this package only consumes the already-parsed message (Schema) and never
// reads device_config_bytes or any wire format.
package p4info

import "fmt"

// ObjectKind identifies the kind of a P4Info object.
type ObjectKind int

const (
	KindUnspecified ObjectKind = iota
	KindTable
	KindActionProfile
	KindAction
	KindCounter
	KindMeter
)

func (k ObjectKind) String() string {
	switch k {
	case KindTable:
		return "table"
	case KindActionProfile:
		return "action_profile"
	case KindAction:
		return "action"
	case KindCounter:
		return "counter"
	case KindMeter:
		return "meter"
	default:
		return "unspecified"
	}
}

// MatchKind identifies how a single match field participates in a table key.
type MatchKind int

const (
	MatchUnspecified MatchKind = iota
	MatchExact
	MatchLPM
	MatchTernary
	MatchRange
	MatchValid
)

// MatchField describes one field of a table's match key.
type MatchField struct {
	ID        uint32
	Name      string
	Bitwidth  int
	MatchKind MatchKind
}

// ActionParam describes one parameter of an action.
type ActionParam struct {
	ID       uint32
	Name     string
	Bitwidth int
}

// Action describes a P4 action and its parameters.
type Action struct {
	ID     uint32
	Name   string
	Params []ActionParam
}

// ParamByID returns the parameter declaration for id, or ok=false.
func (a *Action) ParamByID(id uint32) (ActionParam, bool) {
	for _, p := range a.Params {
		if p.ID == id {
			return p, true
		}
	}
	return ActionParam{}, false
}

// NoActionProfile marks a table with no indirection (all-direct actions).
const NoActionProfile uint32 = 0

// Table describes a P4 match-action table.
type Table struct {
	ID              uint32
	Name            string
	MatchFields     []MatchField
	ActionIDs       []uint32 // actions permitted on this table (direct or via profile)
	ImplementationID uint32  // action-profile ID, or NoActionProfile
	Size            int
}

// HasImplementation reports whether the table is indirect (action-profile backed).
func (t *Table) HasImplementation() bool {
	return t.ImplementationID != NoActionProfile
}

// AllowsAction reports whether actionID may be used directly on this table.
func (t *Table) AllowsAction(actionID uint32) bool {
	for _, id := range t.ActionIDs {
		if id == actionID {
			return true
		}
	}
	return false
}

// ActionProfile describes a P4 action profile (the indirection object behind
// one-to-many indirect tables).
type ActionProfile struct {
	ID          uint32
	Name        string
	WithGroups  bool
	MaxGroupSize int
	Size        int
}

// Counter describes a P4 counter (direct or indirect).
type Counter struct {
	ID       uint32
	Name     string
	Size     int
	IsDirect bool
	TableID  uint32 // only meaningful when IsDirect
}

// Meter describes a P4 meter (direct or indirect).
type Meter struct {
	ID       uint32
	Name     string
	Size     int
	IsDirect bool
	TableID  uint32 // only meaningful when IsDirect
}

// Schema is the already-parsed P4Info message: the set of tables, actions,
// action profiles, counters and meters that make up a compiled P4 program.
type Schema struct {
	Tables         []Table
	Actions        []Action
	ActionProfiles []ActionProfile
	Counters       []Counter
	Meters         []Meter
}

// Handle is an opaque, read-only view over a Schema, built once per staged or
// committed pipeline and released when superseded. It never mutates the
// Schema it wraps.
type Handle struct {
	schema Schema

	tablesByID  map[uint32]*Table
	actionsByID map[uint32]*Action
	profsByID   map[uint32]*ActionProfile
	countersByID map[uint32]*Counter
	metersByID  map[uint32]*Meter
}

// Build constructs a Handle from an already-parsed Schema. This stands in
// for the external P4Info compiler/parser step referenced by the spec: by
// the time a Schema reaches this package it has already been validated for
// syntactic well-formedness (unknown object cross-references, e.g. a table
// naming an action ID with no Action entry, are still possible and are
// reported by the lookup methods, not by Build).
func Build(schema Schema) *Handle {
	h := &Handle{
		schema:       schema,
		tablesByID:   make(map[uint32]*Table, len(schema.Tables)),
		actionsByID:  make(map[uint32]*Action, len(schema.Actions)),
		profsByID:    make(map[uint32]*ActionProfile, len(schema.ActionProfiles)),
		countersByID: make(map[uint32]*Counter, len(schema.Counters)),
		metersByID:   make(map[uint32]*Meter, len(schema.Meters)),
	}
	for i := range h.schema.Tables {
		t := &h.schema.Tables[i]
		h.tablesByID[t.ID] = t
	}
	for i := range h.schema.Actions {
		a := &h.schema.Actions[i]
		h.actionsByID[a.ID] = a
	}
	for i := range h.schema.ActionProfiles {
		p := &h.schema.ActionProfiles[i]
		h.profsByID[p.ID] = p
	}
	for i := range h.schema.Counters {
		c := &h.schema.Counters[i]
		h.countersByID[c.ID] = c
	}
	for i := range h.schema.Meters {
		m := &h.schema.Meters[i]
		h.metersByID[m.ID] = m
	}
	return h
}

// Table looks up a table by ID.
func (h *Handle) Table(id uint32) (*Table, bool) {
	t, ok := h.tablesByID[id]
	return t, ok
}

// Action looks up an action by ID.
func (h *Handle) Action(id uint32) (*Action, bool) {
	a, ok := h.actionsByID[id]
	return a, ok
}

// ActionProfile looks up an action profile by ID.
func (h *Handle) ActionProfile(id uint32) (*ActionProfile, bool) {
	p, ok := h.profsByID[id]
	return p, ok
}

// Counter looks up a counter by ID.
func (h *Handle) Counter(id uint32) (*Counter, bool) {
	c, ok := h.countersByID[id]
	return c, ok
}

// Meter looks up a meter by ID.
func (h *Handle) Meter(id uint32) (*Meter, bool) {
	m, ok := h.metersByID[id]
	return m, ok
}

// Tables returns every table in iteration order.
func (h *Handle) Tables() []Table { return h.schema.Tables }

// ActionProfiles returns every action profile in iteration order.
func (h *Handle) ActionProfiles() []ActionProfile { return h.schema.ActionProfiles }

// Counters returns every counter in iteration order.
func (h *Handle) Counters() []Counter { return h.schema.Counters }

// Meters returns every meter in iteration order.
func (h *Handle) Meters() []Meter { return h.schema.Meters }

// ErrUnknownID reports that a p4Info lookup for a given (kind, id) pair failed.
type ErrUnknownID struct {
	Kind ObjectKind
	ID   uint32
}

func (e *ErrUnknownID) Error() string {
	return fmt.Sprintf("p4info: unknown %s id %d", e.Kind, e.ID)
}
