package devicemgr

import (
	"context"
	"testing"

	"github.com/p4lang/pi4go/internal/pisim"
	"github.com/p4lang/pi4go/pkg/p4info"
	"github.com/p4lang/pi4go/pkg/p4rt"
	"github.com/p4lang/pi4go/pkg/packetio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const testDeviceID = 1
const testTableID = 1
const testActionID = 10
const testProfileID = 100
const testMeterID = 200
const testDirectMeterID = 201
const testCounterID = 300

type discardSender struct{}

func (discardSender) Send(context.Context, p4rt.PacketOut) error { return nil }

func testSchema() p4info.Schema {
	return p4info.Schema{
		Tables: []p4info.Table{
			{
				ID:          testTableID,
				Name:        "ipv4_host",
				MatchFields: []p4info.MatchField{{ID: 1, Bitwidth: 32, MatchKind: p4info.MatchExact}},
				ActionIDs:   []uint32{testActionID},
				Size:        1024,
			},
			{
				ID:               2,
				Name:             "ecmp_select",
				MatchFields:      []p4info.MatchField{{ID: 1, Bitwidth: 32, MatchKind: p4info.MatchExact}},
				ActionIDs:        []uint32{11},
				ImplementationID: testProfileID,
				Size:             1024,
			},
		},
		Actions: []p4info.Action{
			{ID: testActionID, Params: []p4info.ActionParam{{ID: 1, Bitwidth: 9}}},
			{ID: 11},
		},
		ActionProfiles: []p4info.ActionProfile{{ID: testProfileID, WithGroups: true, Size: 256}},
		Meters: []p4info.Meter{
			{ID: testMeterID, Size: 4},
			{ID: testDirectMeterID, IsDirect: true, TableID: testTableID},
		},
		Counters: []p4info.Counter{{ID: testCounterID, Size: 4}},
	}
}

func newCommittedManager(t *testing.T) *Manager {
	t.Helper()
	driver := pisim.New()
	pio := packetio.New(discardSender{})
	mgr := New(testDeviceID, driver, pio)

	cfgBytes, err := EncodeDeviceConfig(p4rt.DeviceConfig{})
	require.NoError(t, err)

	cfg := p4rt.ForwardingPipelineConfig{DeviceID: testDeviceID, P4Info: testSchema(), DeviceConfigBytes: cfgBytes}
	require.NoError(t, mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineVerifyAndCommit, cfg))
	return mgr
}

func exactMatch(value byte) []p4rt.FieldMatch {
	return []p4rt.FieldMatch{{FieldID: 1, Exact: &p4rt.ExactMatch{Value: []byte{0, 0, 0, value}}}}
}

func directAction() p4rt.ActionEntry {
	return p4rt.DirectAction{ActionID: testActionID, Params: []p4rt.ActionParam{{ParamID: 1, Value: []byte{0, 1}}}}
}

func TestSetForwardingPipelineConfigCommitsAndReports(t *testing.T) {
	mgr := newCommittedManager(t)
	assert.Equal(t, StateCommitted, mgr.currentPipeline().state)

	got := mgr.GetForwardingPipelineConfig()
	assert.Equal(t, uint64(testDeviceID), got.DeviceID)
	assert.Len(t, got.P4Info.Tables, 2)
	assert.Nil(t, got.DeviceConfigBytes, "device_config_bytes must never be echoed back")
}

func TestSetForwardingPipelineConfigUnspecifiedActionFails(t *testing.T) {
	driver := pisim.New()
	mgr := New(testDeviceID, driver, packetio.New(discardSender{}))

	err := mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineUnspecified, p4rt.ForwardingPipelineConfig{})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestSetForwardingPipelineConfigVerifyOnlyHasNoSideEffects(t *testing.T) {
	driver := pisim.New()
	mgr := New(testDeviceID, driver, packetio.New(discardSender{}))

	err := mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineVerify, p4rt.ForwardingPipelineConfig{P4Info: testSchema()})
	require.NoError(t, err)
	assert.Equal(t, StateUnassigned, mgr.currentPipeline().state)
}

func TestSetForwardingPipelineConfigMalformedDeviceConfigFails(t *testing.T) {
	driver := pisim.New()
	mgr := New(testDeviceID, driver, packetio.New(discardSender{}))

	cfg := p4rt.ForwardingPipelineConfig{P4Info: testSchema(), DeviceConfigBytes: []byte("not json")}
	err := mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineVerifyAndCommit, cfg)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTableWriteInsertReadDelete(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	entry := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(1), Action: directAction()}
	err := mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.NoError(t, err)

	resp, err := mgr.Read(ctx, p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.TableEntry{TableID: testTableID}}})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)
	got := resp.Entities[0].(*p4rt.TableEntry)
	assert.Equal(t, exactMatch(1), got.Match)

	err = mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateDelete, Entity: entry}}})
	require.NoError(t, err)

	resp, err = mgr.Read(ctx, p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.TableEntry{TableID: testTableID}}})
	require.NoError(t, err)
	assert.Len(t, resp.Entities, 0)
}

func TestTableWriteDuplicateInsertFails(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()
	entry := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(1), Action: directAction()}

	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}}))

	err := mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.Error(t, err)
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestTableWriteUnknownTableFails(t *testing.T) {
	mgr := newCommittedManager(t)
	entry := &p4rt.TableEntry{TableID: 999, Match: exactMatch(1), Action: directAction()}

	err := mgr.Write(context.Background(), p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestTableWriteStopsAtFirstFailure(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	good := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(1), Action: directAction()}
	bad := &p4rt.TableEntry{TableID: 999, Match: exactMatch(2), Action: directAction()}
	afterBad := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(3), Action: directAction()}

	err := mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{
		{Type: p4rt.UpdateInsert, Entity: good},
		{Type: p4rt.UpdateInsert, Entity: bad},
		{Type: p4rt.UpdateInsert, Entity: afterBad},
	}})
	require.Error(t, err)

	resp, err := mgr.Read(ctx, p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.TableEntry{TableID: testTableID}}})
	require.NoError(t, err)
	assert.Len(t, resp.Entities, 1, "updates after the failing one must not be applied")
}

func TestActionProfileMemberAndGroupWriteRead(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	member := &p4rt.ActionProfileMember{ActionProfileID: testProfileID, MemberID: 1, Action: p4rt.DirectAction{ActionID: 11}}
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: member}}}))

	group := &p4rt.ActionProfileGroup{ActionProfileID: testProfileID, GroupID: 1, MemberIDs: []uint32{1}}
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: group}}}))

	resp, err := mgr.Read(ctx, p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.ActionProfileMember{ActionProfileID: testProfileID}}})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)

	resp, err = mgr.Read(ctx, p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.ActionProfileGroup{ActionProfileID: testProfileID}}})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)
	gotGroup := resp.Entities[0].(*p4rt.ActionProfileGroup)
	assert.ElementsMatch(t, []uint32{1}, gotGroup.MemberIDs)
}

func TestTableEntryWithIndirectMemberAction(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	member := &p4rt.ActionProfileMember{ActionProfileID: testProfileID, MemberID: 1, Action: p4rt.DirectAction{ActionID: 11}}
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: member}}}))

	entry := &p4rt.TableEntry{TableID: 2, Match: exactMatch(1), Action: p4rt.IndirectMemberAction{MemberID: 1}}
	err := mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.NoError(t, err)

	err = mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: &p4rt.TableEntry{
		TableID: 2, Match: exactMatch(2), Action: p4rt.IndirectMemberAction{MemberID: 999},
	}}}})
	require.Error(t, err, "referencing an unknown member must fail")
}

func TestMeterWriteIndirectInsertAndDelete(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	entry := &p4rt.MeterEntry{MeterID: testMeterID, Index: 0, Config: p4rt.MeterConfig{CIR: 1000}}
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}}))
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateDelete, Entity: entry}}}))
}

func TestMeterWriteUnknownMeterFails(t *testing.T) {
	mgr := newCommittedManager(t)
	entry := &p4rt.MeterEntry{MeterID: 999}
	err := mgr.Write(context.Background(), p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.Error(t, err)
}

func TestDirectMeterWriteRequiresExistingTableEntry(t *testing.T) {
	mgr := newCommittedManager(t)
	ctx := context.Background()

	tableEntry := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(1)}
	entry := &p4rt.DirectMeterEntry{MeterID: testDirectMeterID, TableEntry: tableEntry, Config: p4rt.MeterConfig{CIR: 1}}

	err := mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}})
	require.Error(t, err, "no table entry exists yet for this key")

	insert := &p4rt.TableEntry{TableID: testTableID, Match: exactMatch(1), Action: directAction()}
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: insert}}}))

	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: entry}}}))
	require.NoError(t, mgr.Write(ctx, p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateDelete, Entity: entry}}}))
}

func TestCounterReadIndirect(t *testing.T) {
	mgr := newCommittedManager(t)
	resp, err := mgr.Read(context.Background(), p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.CounterEntry{CounterID: testCounterID, Index: 1}}})
	require.NoError(t, err)
	require.Len(t, resp.Entities, 1)
	got := resp.Entities[0].(*p4rt.CounterEntry)
	assert.Equal(t, int64(1), got.Index)
}

func TestCounterReadAllCellsWhenIndexZero(t *testing.T) {
	mgr := newCommittedManager(t)
	resp, err := mgr.Read(context.Background(), p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.CounterEntry{CounterID: testCounterID}}})
	require.NoError(t, err)
	assert.Len(t, resp.Entities, 4)
}

func TestDirectCounterReadIsUnimplemented(t *testing.T) {
	mgr := newCommittedManager(t)
	schema := testSchema()
	schema.Counters = append(schema.Counters, p4info.Counter{ID: 999, IsDirect: true, TableID: testTableID})
	cfgBytes, err := EncodeDeviceConfig(p4rt.DeviceConfig{})
	require.NoError(t, err)
	require.NoError(t, mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineVerifyAndCommit,
		p4rt.ForwardingPipelineConfig{P4Info: schema, DeviceConfigBytes: cfgBytes}))

	_, err = mgr.Read(context.Background(), p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.CounterEntry{CounterID: 999}}})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestCounterReadZeroIDFansOutAndSkipsDirect(t *testing.T) {
	mgr := newCommittedManager(t)
	schema := testSchema()
	schema.Counters = append(schema.Counters, p4info.Counter{ID: 999, IsDirect: true, TableID: testTableID})
	cfgBytes, err := EncodeDeviceConfig(p4rt.DeviceConfig{})
	require.NoError(t, err)
	require.NoError(t, mgr.SetForwardingPipelineConfig(context.Background(), p4rt.PipelineVerifyAndCommit,
		p4rt.ForwardingPipelineConfig{P4Info: schema, DeviceConfigBytes: cfgBytes}))

	resp, err := mgr.Read(context.Background(), p4rt.ReadRequest{Entities: []p4rt.Entity{&p4rt.CounterEntry{}}})
	require.NoError(t, err)
	assert.Len(t, resp.Entities, 4, "only the indirect counter's 4 cells, direct counter skipped")
	for _, e := range resp.Entities {
		assert.Equal(t, uint32(testCounterID), e.(*p4rt.CounterEntry).CounterID)
	}
}

func TestExternEntryIsUnimplemented(t *testing.T) {
	mgr := newCommittedManager(t)
	err := mgr.Write(context.Background(), p4rt.WriteRequest{Updates: []p4rt.Update{{Type: p4rt.UpdateInsert, Entity: &p4rt.ExternEntry{}}}})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestPipelineStateString(t *testing.T) {
	cases := map[PipelineState]string{
		StateUnassigned:      "UNASSIGNED",
		StateAssignedNoConfig: "ASSIGNED_NO_CONFIG",
		StateStaged:          "STAGED",
		StateCommitted:       "COMMITTED",
	}
	for state, want := range cases {
		assert.Equal(t, want, state.String())
	}
}

func TestEncodeDecodeDeviceConfigRoundTrip(t *testing.T) {
	cfg := p4rt.DeviceConfig{DeviceData: []byte{1, 2, 3}, Reassign: true, Extras: map[string]string{"a": "b"}}
	raw, err := EncodeDeviceConfig(cfg)
	require.NoError(t, err)

	decoded, err := decodeDeviceConfig(raw)
	require.NoError(t, err)
	assert.Equal(t, cfg, decoded)
}

func TestDecodeDeviceConfigRejectsMalformedInput(t *testing.T) {
	_, err := decodeDeviceConfig([]byte("not json"))
	require.Error(t, err)

	_, err = decodeDeviceConfig(nil)
	require.Error(t, err, "empty payload must be rejected, not treated as zero-value config")
}
