package pisim

import (
	"context"
	"testing"

	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/pidriver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const testDeviceID = 1

func sampleSchema() p4info.Schema {
	return p4info.Schema{
		Tables:         []p4info.Table{{ID: 1, Name: "t1", Size: 16}},
		ActionProfiles: []p4info.ActionProfile{{ID: 100}},
		Meters: []p4info.Meter{
			{ID: 200, Size: 4},
			{ID: 201, IsDirect: true},
		},
		Counters: []p4info.Counter{
			{ID: 300, Size: 4},
			{ID: 301, IsDirect: true},
		},
	}
}

func assignedSim(t *testing.T) *Simulator {
	t.Helper()
	s := New()
	ctx := context.Background()
	require.NoError(t, s.AssignDevice(ctx, testDeviceID, nil))
	require.NoError(t, s.UpdateDeviceStart(ctx, testDeviceID, sampleSchema(), nil))
	require.NoError(t, s.UpdateDeviceEnd(ctx, testDeviceID))
	return s
}

func target() pidriver.DeviceTarget {
	return pidriver.DeviceTarget{DeviceID: testDeviceID, PipeMask: pidriver.AllPipes}
}

func TestAssignAndIsAssigned(t *testing.T) {
	s := New()
	ctx := context.Background()

	ok, err := s.IsAssigned(ctx, testDeviceID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.AssignDevice(ctx, testDeviceID, map[string]string{"k": "v"}))

	ok, err = s.IsAssigned(ctx, testDeviceID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveDevice(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	require.NoError(t, s.RemoveDevice(ctx, testDeviceID))

	ok, err := s.IsAssigned(ctx, testDeviceID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOperationsOnUnassignedDeviceFail(t *testing.T) {
	s := New()
	ctx := context.Background()

	_, err := s.EntryAdd(ctx, nil, target(), 1, pidriver.MatchKey{}, pidriver.ActionSpec{})
	require.Error(t, err)
	assert.Equal(t, codes.Unknown, status.Code(err))
}

func TestEntryAddModifyDeleteFetch(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	key := pidriver.MatchKey{TableID: 1, Bytes: []byte{1, 2, 3, 4}}
	action := pidriver.ActionSpec{ActionID: 10}

	handle, err := s.EntryAdd(ctx, nil, target(), 1, key, action)
	require.NoError(t, err)
	assert.NotZero(t, handle)

	_, err = s.EntryAdd(ctx, nil, target(), 1, key, action)
	require.Error(t, err, "duplicate key must be rejected")
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	modified := pidriver.ActionSpec{ActionID: 20}
	require.NoError(t, s.EntryModifyWKey(ctx, nil, target(), 1, key, modified))

	entries, err := s.EntriesFetch(ctx, nil, target(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(20), entries[0].Action.ActionID)

	require.NoError(t, s.EntryDeleteWKey(ctx, nil, target(), 1, key))
	entries, err = s.EntriesFetch(ctx, nil, target(), 1)
	require.NoError(t, err)
	assert.Len(t, entries, 0)
}

func TestEntryModifyUnknownKeyFails(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	err := s.EntryModifyWKey(ctx, nil, target(), 1, pidriver.MatchKey{TableID: 1, Bytes: []byte{9}}, pidriver.ActionSpec{})
	require.Error(t, err)
}

func TestDefaultEntrySetAndFetch(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	require.NoError(t, s.DefaultEntrySet(ctx, nil, target(), 1, pidriver.ActionSpec{ActionID: 99}))

	entries, err := s.EntriesFetch(ctx, nil, target(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(99), entries[0].Action.ActionID)
	assert.Zero(t, len(entries[0].Key.Bytes), "default entry must carry an empty key")
}

func TestUnknownTableFails(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()
	_, err := s.EntriesFetch(ctx, nil, target(), 999)
	require.Error(t, err)
}

func TestMemberAndGroupLifecycle(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	member, err := s.MemberCreate(ctx, nil, target(), 100, pidriver.ActionSpec{ActionID: 1})
	require.NoError(t, err)

	require.NoError(t, s.MemberModify(ctx, nil, target(), 100, member, pidriver.ActionSpec{ActionID: 2}))

	group, err := s.GroupCreate(ctx, nil, target(), 100)
	require.NoError(t, err)

	require.NoError(t, s.GroupAddMember(ctx, nil, target(), 100, group, member))

	err = s.GroupAddMember(ctx, nil, target(), 100, group, pidriver.IndirectHandle(9999))
	require.Error(t, err, "adding an unknown member must fail")

	require.NoError(t, s.GroupRemoveMember(ctx, nil, target(), 100, group, member))
	require.NoError(t, s.GroupDelete(ctx, nil, target(), 100, group))
	require.NoError(t, s.MemberDelete(ctx, nil, target(), 100, member))

	err = s.MemberModify(ctx, nil, target(), 100, member, pidriver.ActionSpec{})
	require.Error(t, err, "modifying a deleted member must fail")
}

func TestMeterSetIndirectAndDirect(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	require.NoError(t, s.MeterSet(ctx, nil, target(), 200, 0, pidriver.MeterSpec{CIR: 1000}))

	err := s.MeterSet(ctx, nil, target(), 200, 99, pidriver.MeterSpec{})
	require.Error(t, err, "out-of-range index must fail")

	err = s.MeterSet(ctx, nil, target(), 999, 0, pidriver.MeterSpec{})
	require.Error(t, err, "unknown meter must fail")

	require.NoError(t, s.MeterSetDirect(ctx, nil, target(), 201, pidriver.EntryHandle(5), pidriver.MeterSpec{CIR: 500}))
}

func TestCounterRead(t *testing.T) {
	s := assignedSim(t)
	ctx := context.Background()

	v, err := s.CounterRead(ctx, nil, target(), 300, 0)
	require.NoError(t, err)
	assert.Equal(t, pidriver.CounterValue{}, v)

	_, err = s.CounterRead(ctx, nil, target(), 300, 99)
	require.Error(t, err, "out-of-range index must fail")

	_, err = s.CounterRead(ctx, nil, target(), 999, 0)
	require.Error(t, err, "unknown counter must fail")
}

func TestSessionOpenCloseIsNoOp(t *testing.T) {
	s := New()
	sess, err := s.SessionOpen(context.Background(), true)
	require.NoError(t, err)
	require.NoError(t, sess.Close(context.Background(), true))
}

func TestDeviceInterfaceSatisfied(t *testing.T) {
	var _ pidriver.Device = (*Simulator)(nil)
}

func TestString(t *testing.T) {
	s := assignedSim(t)
	assert.Contains(t, s.String(), "devices=1")
}
