// Package pisim is an in-memory, single-process stand-in for a real PI
// driver, implementing pkg/pidriver.Device (§6.2). It exists so pidevmgrd
// and the test suite have something to drive DeviceMgr against without a
// physical ASIC or a software switch such as BMv2 attached — grounded on
// the same "map of match key to row" shape the fabric simulator referenced
// alongside this spec uses for its own table storage, generalized here to
// the full Device surface DeviceMgr requires (lifecycle, sessions, action
// profiles, meters, counters).
package pisim

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// newHandle derives a uint64 driver handle from a random uuid, the same way
// the control plane this simulator sits alongside mints every other opaque
// entity ID. A zero result (astronomically unlikely) is resampled, since 0
// doubles as this package's error-path sentinel return value.
func newHandle() uint64 {
	for {
		id := uuid.New()
		if h := binary.BigEndian.Uint64(id[:8]); h != 0 {
			return h
		}
	}
}

type simEntry struct {
	handle pidriver.EntryHandle
	key    pidriver.MatchKey
	action pidriver.ActionSpec
}

type simTable struct {
	entries    map[string]*simEntry
	defaultRow *simEntry
}

func newSimTable() *simTable {
	return &simTable{entries: make(map[string]*simEntry)}
}

type simProfile struct {
	members      map[pidriver.IndirectHandle]pidriver.ActionSpec
	groups       map[pidriver.IndirectHandle]map[pidriver.IndirectHandle]bool
	directMeters map[pidriver.EntryHandle]pidriver.MeterSpec
}

func newSimProfile() *simProfile {
	return &simProfile{
		members: make(map[pidriver.IndirectHandle]pidriver.ActionSpec),
		groups:  make(map[pidriver.IndirectHandle]map[pidriver.IndirectHandle]bool),
	}
}

type simDevice struct {
	assigned bool
	extras   map[string]string

	tables         map[uint32]*simTable
	profiles       map[uint32]*simProfile
	meters         map[uint32][]pidriver.MeterSpec
	directMeters   map[pidriver.EntryHandle]pidriver.MeterSpec
	counters       map[uint32][]pidriver.CounterValue
}

func newSimDevice() *simDevice {
	return &simDevice{
		tables:       make(map[uint32]*simTable),
		profiles:     make(map[uint32]*simProfile),
		meters:       make(map[uint32][]pidriver.MeterSpec),
		directMeters: make(map[pidriver.EntryHandle]pidriver.MeterSpec),
		counters:     make(map[uint32][]pidriver.CounterValue),
	}
}

type session struct{}

func (session) Close(context.Context, bool) error { return nil }

// Simulator is a pidriver.Device backed entirely by in-process maps.
type Simulator struct {
	mu      sync.Mutex
	devices map[uint64]*simDevice
}

// New creates an empty Simulator; every device starts unassigned.
func New() *Simulator {
	return &Simulator{devices: make(map[uint64]*simDevice)}
}

func (s *Simulator) deviceFor(deviceID uint64) *simDevice {
	d, ok := s.devices[deviceID]
	if !ok {
		d = newSimDevice()
		s.devices[deviceID] = d
	}
	return d
}

func (s *Simulator) assignedDevice(deviceID uint64) (*simDevice, error) {
	d, ok := s.devices[deviceID]
	if !ok || !d.assigned {
		return nil, status.Errorf(codes.Unknown, "device %d is not assigned", deviceID)
	}
	return d, nil
}

// IsAssigned reports whether deviceID has been assigned.
func (s *Simulator) IsAssigned(_ context.Context, deviceID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[deviceID]
	return ok && d.assigned, nil
}

// AssignDevice assigns deviceID, recording extras for inspection.
func (s *Simulator) AssignDevice(_ context.Context, deviceID uint64, extras map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deviceFor(deviceID)
	d.assigned = true
	d.extras = extras
	return nil
}

// RemoveDevice tears deviceID down entirely.
func (s *Simulator) RemoveDevice(_ context.Context, deviceID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.devices, deviceID)
	return nil
}

// UpdateDeviceStart rebuilds the device's tables/profiles/meters/counters
// from schema. The simulator applies the new layout immediately; a real
// driver would stage it until UpdateDeviceEnd, but nothing here depends on
// that distinction since the simulator has no separate "candidate" image.
func (s *Simulator) UpdateDeviceStart(_ context.Context, deviceID uint64, schema p4info.Schema, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.assignedDevice(deviceID)
	if err != nil {
		return err
	}

	d.tables = make(map[uint32]*simTable, len(schema.Tables))
	for _, t := range schema.Tables {
		d.tables[t.ID] = newSimTable()
	}

	d.profiles = make(map[uint32]*simProfile, len(schema.ActionProfiles))
	for _, p := range schema.ActionProfiles {
		d.profiles[p.ID] = newSimProfile()
	}

	d.meters = make(map[uint32][]pidriver.MeterSpec, len(schema.Meters))
	for _, m := range schema.Meters {
		if !m.IsDirect {
			d.meters[m.ID] = make([]pidriver.MeterSpec, m.Size)
		}
	}
	d.directMeters = make(map[pidriver.EntryHandle]pidriver.MeterSpec)

	d.counters = make(map[uint32][]pidriver.CounterValue, len(schema.Counters))
	for _, c := range schema.Counters {
		if !c.IsDirect {
			d.counters[c.ID] = make([]pidriver.CounterValue, c.Size)
		}
	}
	return nil
}

// UpdateDeviceEnd is a no-op for the simulator: there is no staged image to
// swap in, since UpdateDeviceStart already applied the new layout.
func (s *Simulator) UpdateDeviceEnd(_ context.Context, deviceID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.assignedDevice(deviceID)
	return err
}

// SessionOpen returns a no-op session; the simulator has no transaction log
// to commit or abort.
func (s *Simulator) SessionOpen(context.Context, bool) (pidriver.Session, error) {
	return session{}, nil
}

func (s *Simulator) tableFor(deviceID uint64, tableID uint32) (*simTable, error) {
	d, err := s.assignedDevice(deviceID)
	if err != nil {
		return nil, err
	}
	t, ok := d.tables[tableID]
	if !ok {
		return nil, status.Errorf(codes.Unknown, "table %d not recognized by simulator", tableID)
	}
	return t, nil
}

// EntryAdd inserts a non-default entry and returns its new handle.
func (s *Simulator) EntryAdd(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, tableID uint32, key pidriver.MatchKey, action pidriver.ActionSpec) (pidriver.EntryHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableFor(target.DeviceID, tableID)
	if err != nil {
		return 0, err
	}

	k := string(key.Bytes)
	if _, exists := t.entries[k]; exists {
		return 0, status.Errorf(codes.AlreadyExists, "simulator already has an entry for this key in table %d", tableID)
	}

	h := pidriver.EntryHandle(newHandle())
	t.entries[k] = &simEntry{handle: h, key: key, action: action}
	return h, nil
}

// EntryModifyWKey rewrites the action of an existing non-default entry.
func (s *Simulator) EntryModifyWKey(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, tableID uint32, key pidriver.MatchKey, action pidriver.ActionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableFor(target.DeviceID, tableID)
	if err != nil {
		return err
	}
	row, ok := t.entries[string(key.Bytes)]
	if !ok {
		return status.Errorf(codes.Unknown, "simulator has no entry for this key in table %d", tableID)
	}
	row.action = action
	return nil
}

// EntryDeleteWKey removes a non-default entry.
func (s *Simulator) EntryDeleteWKey(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, tableID uint32, key pidriver.MatchKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableFor(target.DeviceID, tableID)
	if err != nil {
		return err
	}
	delete(t.entries, string(key.Bytes))
	return nil
}

// DefaultEntrySet installs or replaces the table's default entry.
func (s *Simulator) DefaultEntrySet(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, tableID uint32, action pidriver.ActionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableFor(target.DeviceID, tableID)
	if err != nil {
		return err
	}
	t.defaultRow = &simEntry{key: pidriver.MatchKey{TableID: tableID}, action: action}
	return nil
}

// EntriesFetch returns every entry currently installed in tableID,
// including the default entry if one has been set.
func (s *Simulator) EntriesFetch(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, tableID uint32) ([]pidriver.FetchedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.tableFor(target.DeviceID, tableID)
	if err != nil {
		return nil, err
	}

	out := make([]pidriver.FetchedEntry, 0, len(t.entries)+1)
	for _, row := range t.entries {
		out = append(out, pidriver.FetchedEntry{Handle: row.handle, Key: row.key, Action: row.action})
	}
	if t.defaultRow != nil {
		out = append(out, pidriver.FetchedEntry{Key: pidriver.MatchKey{TableID: tableID}, Action: t.defaultRow.action})
	}
	return out, nil
}

func (s *Simulator) profileFor(deviceID uint64, profileID uint32) (*simProfile, error) {
	d, err := s.assignedDevice(deviceID)
	if err != nil {
		return nil, err
	}
	p, ok := d.profiles[profileID]
	if !ok {
		return nil, status.Errorf(codes.Unknown, "action profile %d not recognized by simulator", profileID)
	}
	return p, nil
}

// MemberCreate creates a new member and returns its handle.
func (s *Simulator) MemberCreate(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, action pidriver.ActionSpec) (pidriver.IndirectHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return 0, err
	}
	h := pidriver.IndirectHandle(newHandle())
	p.members[h] = action
	return h, nil
}

// MemberModify rewrites an existing member's action.
func (s *Simulator) MemberModify(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, handle pidriver.IndirectHandle, action pidriver.ActionSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return err
	}
	if _, ok := p.members[handle]; !ok {
		return status.Errorf(codes.Unknown, "member handle %d not found", handle)
	}
	p.members[handle] = action
	return nil
}

// MemberDelete removes a member.
func (s *Simulator) MemberDelete(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, handle pidriver.IndirectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return err
	}
	delete(p.members, handle)
	return nil
}

// GroupCreate creates a new, initially empty group and returns its handle.
func (s *Simulator) GroupCreate(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32) (pidriver.IndirectHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return 0, err
	}
	h := pidriver.IndirectHandle(newHandle())
	p.groups[h] = make(map[pidriver.IndirectHandle]bool)
	return h, nil
}

// GroupDelete removes a group, rejecting groups still referenced by a table
// entry is left to the caller — the simulator only tracks membership, not
// cross-references from table entries, so it always allows the delete.
func (s *Simulator) GroupDelete(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, handle pidriver.IndirectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return err
	}
	delete(p.groups, handle)
	return nil
}

// GroupAddMember adds member to group.
func (s *Simulator) GroupAddMember(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, group, member pidriver.IndirectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return err
	}
	members, ok := p.groups[group]
	if !ok {
		return status.Errorf(codes.Unknown, "group handle %d not found", group)
	}
	if _, ok := p.members[member]; !ok {
		return status.Errorf(codes.Unknown, "member handle %d not found", member)
	}
	members[member] = true
	return nil
}

// GroupRemoveMember removes member from group.
func (s *Simulator) GroupRemoveMember(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, profileID uint32, group, member pidriver.IndirectHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.profileFor(target.DeviceID, profileID)
	if err != nil {
		return err
	}
	members, ok := p.groups[group]
	if !ok {
		return status.Errorf(codes.Unknown, "group handle %d not found", group)
	}
	delete(members, member)
	return nil
}

// MeterSet writes an indirect meter cell.
func (s *Simulator) MeterSet(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, meterID uint32, index int64, spec pidriver.MeterSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.assignedDevice(target.DeviceID)
	if err != nil {
		return err
	}
	cells, ok := d.meters[meterID]
	if !ok {
		return status.Errorf(codes.Unknown, "meter %d not recognized by simulator", meterID)
	}
	if index < 0 || index >= int64(len(cells)) {
		return status.Errorf(codes.Unknown, "meter %d index %d out of range", meterID, index)
	}
	cells[index] = spec
	return nil
}

// MeterSetDirect writes the meter spec attached to a table entry handle.
func (s *Simulator) MeterSetDirect(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, meterID uint32, entry pidriver.EntryHandle, spec pidriver.MeterSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.assignedDevice(target.DeviceID)
	if err != nil {
		return err
	}
	d.directMeters[entry] = spec
	_ = meterID // the simulator keys direct meters by entry handle alone
	return nil
}

// CounterRead reads one indirect counter cell.
func (s *Simulator) CounterRead(_ context.Context, _ pidriver.Session, target pidriver.DeviceTarget, counterID uint32, index int64) (pidriver.CounterValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.assignedDevice(target.DeviceID)
	if err != nil {
		return pidriver.CounterValue{}, err
	}
	cells, ok := d.counters[counterID]
	if !ok {
		return pidriver.CounterValue{}, status.Errorf(codes.Unknown, "counter %d not recognized by simulator", counterID)
	}
	if index < 0 || index >= int64(len(cells)) {
		return pidriver.CounterValue{}, status.Errorf(codes.Unknown, "counter %d index %d out of range", counterID, index)
	}
	return cells[index], nil
}

var _ pidriver.Device = (*Simulator)(nil)

func (s *Simulator) String() string {
	return fmt.Sprintf("pisim.Simulator{devices=%d}", len(s.devices))
}
