package p4info

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSchema() Schema {
	return Schema{
		Tables: []Table{{
			ID:               1,
			Name:             "ipv4_host",
			MatchFields:      []MatchField{{ID: 1, Name: "dst_addr", Bitwidth: 32, MatchKind: MatchExact}},
			ActionIDs:        []uint32{10},
			ImplementationID: NoActionProfile,
			Size:             1024,
		}, {
			ID:               2,
			Name:             "ecmp_select",
			ActionIDs:        []uint32{11},
			ImplementationID: 100,
			Size:             256,
		}},
		Actions: []Action{
			{ID: 10, Name: "forward", Params: []ActionParam{{ID: 1, Name: "port", Bitwidth: 9}}},
			{ID: 11, Name: "set_ecmp", Params: nil},
		},
		ActionProfiles: []ActionProfile{{ID: 100, Name: "ecmp_profile", WithGroups: true, MaxGroupSize: 16, Size: 1024}},
		Counters:       []Counter{{ID: 200, Name: "ipv4_host_hits", Size: 1024}},
		Meters:         []Meter{{ID: 300, Name: "ipv4_host_meter", IsDirect: true, TableID: 1}},
	}
}

func TestBuildAndLookup(t *testing.T) {
	h := Build(sampleSchema())

	table, ok := h.Table(1)
	require.True(t, ok)
	assert.Equal(t, "ipv4_host", table.Name)

	_, ok = h.Table(999)
	assert.False(t, ok)

	action, ok := h.Action(10)
	require.True(t, ok)
	assert.Equal(t, "forward", action.Name)

	prof, ok := h.ActionProfile(100)
	require.True(t, ok)
	assert.True(t, prof.WithGroups)

	counter, ok := h.Counter(200)
	require.True(t, ok)
	assert.Equal(t, 1024, counter.Size)

	meter, ok := h.Meter(300)
	require.True(t, ok)
	assert.True(t, meter.IsDirect)
}

func TestIterators(t *testing.T) {
	h := Build(sampleSchema())

	assert.Len(t, h.Tables(), 2)
	assert.Len(t, h.ActionProfiles(), 1)
	assert.Len(t, h.Counters(), 1)
	assert.Len(t, h.Meters(), 1)
}

func TestTableHelpers(t *testing.T) {
	h := Build(sampleSchema())

	direct, _ := h.Table(1)
	assert.False(t, direct.HasImplementation())
	assert.True(t, direct.AllowsAction(10))
	assert.False(t, direct.AllowsAction(11))

	indirect, _ := h.Table(2)
	assert.True(t, indirect.HasImplementation())
}

func TestActionParamByID(t *testing.T) {
	h := Build(sampleSchema())
	action, _ := h.Action(10)

	p, ok := action.ParamByID(1)
	require.True(t, ok)
	assert.Equal(t, "port", p.Name)

	_, ok = action.ParamByID(99)
	assert.False(t, ok)
}

func TestObjectKindString(t *testing.T) {
	cases := []struct {
		kind ObjectKind
		want string
	}{
		{KindTable, "table"},
		{KindActionProfile, "action_profile"},
		{KindAction, "action"},
		{KindCounter, "counter"},
		{KindMeter, "meter"},
		{KindUnspecified, "unspecified"},
		{ObjectKind(99), "unspecified"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.kind.String())
	}
}

func TestErrUnknownID(t *testing.T) {
	err := &ErrUnknownID{Kind: KindTable, ID: 42}
	assert.Equal(t, "p4info: unknown table id 42", err.Error())
}
