package p4rt

import "github.com/p4lang/pi4go/pkg/p4info"

// UpdateType is the write operation kind carried by each Update.
type UpdateType int

const (
	UpdateUnspecified UpdateType = iota
	UpdateInsert
	UpdateModify
	UpdateDelete
)

func (t UpdateType) String() string {
	switch t {
	case UpdateInsert:
		return "INSERT"
	case UpdateModify:
		return "MODIFY"
	case UpdateDelete:
		return "DELETE"
	default:
		return "UNSPECIFIED"
	}
}

// Update is a single mutation within a WriteRequest.
type Update struct {
	Type   UpdateType
	Entity Entity
}

// WriteRequest batches a list of updates applied in order, stopping at the
// first non-OK result.
type WriteRequest struct {
	DeviceID uint64
	Updates  []Update
}

// ReadRequest lists the entities to read. Each entity with a zero resource ID
// reads every object of that kind.
type ReadRequest struct {
	DeviceID uint64
	Entities []Entity
}

// ReadResponse is the consolidated set of entities matched by a ReadRequest.
type ReadResponse struct {
	Entities []Entity
}

// PipelineAction is the action requested of SetForwardingPipelineConfig.
type PipelineAction int

const (
	PipelineUnspecified PipelineAction = iota
	PipelineVerify
	PipelineVerifyAndSave
	PipelineVerifyAndCommit
	PipelineCommit
)

// ForwardingPipelineConfig is the controller-supplied pipeline payload: a
// parsed P4Info schema plus an opaque, framed device-config blob.
type ForwardingPipelineConfig struct {
	DeviceID          uint64
	P4Info            p4info.Schema
	DeviceConfigBytes []byte
}

// DeviceConfig is the parsed form of ForwardingPipelineConfig.DeviceConfigBytes
// (§6.4). Unknown fields in the wire framing are ignored by the parser that
// produces this structure.
type DeviceConfig struct {
	DeviceData []byte
	Reassign   bool
	Extras     map[string]string
}

// PacketOut is a controller-originated packet destined for the data plane.
type PacketOut struct {
	Payload  []byte
	Metadata map[uint32][]byte
}

// PacketIn is a data-plane-originated packet delivered to the controller.
type PacketIn struct {
	Payload  []byte
	Metadata map[uint32][]byte
}
